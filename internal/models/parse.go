package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// ServiceLocation is the zone every service timestamp is reported in
var ServiceLocation = mustLoadLocation("Asia/Jerusalem")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("load location %s: %v", name, err))
	}
	return loc
}

// ErrMissingField marks a required field that is absent or null
var ErrMissingField = errors.New("missing required field")

// ParseError reports a payload that does not match the expected schema.
// Field is a dotted path such as "stations[2].monitors[0].channelId".
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	field := e.Field
	if field == "" {
		field = "payload"
	}
	return fmt.Sprintf("parse %s: %v", field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func missing(field string) error {
	return &ParseError{Field: field, Err: ErrMissingField}
}

func join(prefix, field string) string {
	if prefix == "" {
		return field
	}
	return prefix + "." + field
}

// decode unmarshals body into v and turns decoding failures into a ParseError
func decode(body []byte, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return &ParseError{Err: errors.New("empty body")}
	}
	return decodeAt(body, v, "")
}

// decodeAt unmarshals one record found at prefix. Arrays are decoded an
// element at a time so type errors keep their index in the field path.
func decodeAt(raw json.RawMessage, v any, prefix string) error {
	if err := json.Unmarshal(raw, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &ParseError{Field: join(prefix, typeErr.Field), Err: fmt.Errorf("expected %s, got %s", typeErr.Type, typeErr.Value)}
		}
		return &ParseError{Field: prefix, Err: err}
	}
	return nil
}

type locationWire struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type monitorWire struct {
	ChannelID   *int    `json:"channelId"`
	Name        *string `json:"name"`
	Alias       *string `json:"alias"`
	Active      *bool   `json:"active"`
	TypeID      *int    `json:"typeId"`
	PollutantID *int    `json:"pollutantId"`
	Units       *string `json:"units"`
	Description *string `json:"description"`
}

type stationWire struct {
	StationID     *int          `json:"stationId"`
	Name          *string       `json:"name"`
	ShortName     *string       `json:"shortName"`
	StationsTag   *string       `json:"stationsTag"`
	Location      *locationWire `json:"location"`
	Timebase      *int          `json:"timebase"`
	Active        *bool         `json:"active"`
	Owner         *string       `json:"owner"`
	RegionID      *int          `json:"regionId"`
	StationTarget *string       `json:"StationTarget"`
	Monitors      []json.RawMessage `json:"monitors"`
}

type regionWire struct {
	RegionID *int              `json:"regionId"`
	Name     *string           `json:"name"`
	Stations []json.RawMessage `json:"stations"`
}

type channelValueWire struct {
	ID     *int            `json:"id"`
	Name   *string         `json:"name"`
	Value  json.RawMessage `json:"value"`
	Status *int            `json:"status"`
	Valid  *bool           `json:"valid"`
}

type readingWire struct {
	Datetime *string           `json:"datetime"`
	Channels []json.RawMessage `json:"channels"`
}

type stationReadingsWire struct {
	StationID *int              `json:"stationId"`
	Data      []json.RawMessage `json:"data"`
}

// ParseStation parses a single station object
func ParseStation(body []byte) (*Station, error) {
	var w stationWire
	if err := decode(body, &w); err != nil {
		return nil, err
	}
	s, err := w.toStation("")
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ParseStations parses an array of station objects
func ParseStations(body []byte) ([]Station, error) {
	var raws []json.RawMessage
	if err := decode(body, &raws); err != nil {
		return nil, err
	}
	stations := make([]Station, 0, len(raws))
	for i, raw := range raws {
		s, err := parseStationAt(raw, fmt.Sprintf("[%d]", i))
		if err != nil {
			return nil, err
		}
		stations = append(stations, s)
	}
	return stations, nil
}

// ParseRegion parses a single region object with its embedded stations
func ParseRegion(body []byte) (*Region, error) {
	var w regionWire
	if err := decode(body, &w); err != nil {
		return nil, err
	}
	r, err := w.toRegion("")
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ParseRegions parses an array of region objects
func ParseRegions(body []byte) ([]Region, error) {
	var raws []json.RawMessage
	if err := decode(body, &raws); err != nil {
		return nil, err
	}
	regions := make([]Region, 0, len(raws))
	for i, raw := range raws {
		prefix := fmt.Sprintf("[%d]", i)
		var w regionWire
		if err := decodeAt(raw, &w, prefix); err != nil {
			return nil, err
		}
		r, err := w.toRegion(prefix)
		if err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}
	return regions, nil
}

// ParseStationReadings parses a station data payload. A missing or null
// data array yields empty readings.
func ParseStationReadings(body []byte) (*StationMeteorologicalReadings, error) {
	var w stationReadingsWire
	if err := decode(body, &w); err != nil {
		return nil, err
	}
	if w.StationID == nil {
		return nil, missing("stationId")
	}

	readings := EmptyReadings(*w.StationID)
	for i, raw := range w.Data {
		prefix := fmt.Sprintf("data[%d]", i)
		var rw readingWire
		if err := decodeAt(raw, &rw, prefix); err != nil {
			return nil, err
		}
		d, err := rw.toData(*w.StationID, prefix)
		if err != nil {
			return nil, err
		}
		readings.Data = append(readings.Data, d)
	}
	sort.SliceStable(readings.Data, func(i, j int) bool {
		return readings.Data[i].Time.Before(readings.Data[j].Time)
	})
	return readings, nil
}

func parseStationAt(raw json.RawMessage, prefix string) (Station, error) {
	var w stationWire
	if err := decodeAt(raw, &w, prefix); err != nil {
		return Station{}, err
	}
	return w.toStation(prefix)
}

func (w locationWire) toLocation(prefix string) (Location, error) {
	if w.Latitude == nil {
		return Location{}, missing(join(prefix, "latitude"))
	}
	if w.Longitude == nil {
		return Location{}, missing(join(prefix, "longitude"))
	}
	return Location{Latitude: *w.Latitude, Longitude: *w.Longitude}, nil
}

func (w monitorWire) toMonitor(prefix string) (Monitor, error) {
	switch {
	case w.ChannelID == nil:
		return Monitor{}, missing(join(prefix, "channelId"))
	case w.Name == nil:
		return Monitor{}, missing(join(prefix, "name"))
	case w.Active == nil:
		return Monitor{}, missing(join(prefix, "active"))
	}
	return Monitor{
		ChannelID:   *w.ChannelID,
		Name:        *w.Name,
		Alias:       deref(w.Alias),
		Active:      *w.Active,
		TypeID:      deref(w.TypeID),
		PollutantID: deref(w.PollutantID),
		Units:       deref(w.Units),
		Description: deref(w.Description),
	}, nil
}

func (w stationWire) toStation(prefix string) (Station, error) {
	switch {
	case w.StationID == nil:
		return Station{}, missing(join(prefix, "stationId"))
	case *w.StationID <= 0:
		return Station{}, &ParseError{Field: join(prefix, "stationId"), Err: fmt.Errorf("must be positive, got %d", *w.StationID)}
	case w.Name == nil:
		return Station{}, missing(join(prefix, "name"))
	case w.Location == nil:
		return Station{}, missing(join(prefix, "location"))
	case w.Active == nil:
		return Station{}, missing(join(prefix, "active"))
	case w.Owner == nil:
		return Station{}, missing(join(prefix, "owner"))
	case w.RegionID == nil:
		return Station{}, missing(join(prefix, "regionId"))
	case w.Monitors == nil:
		return Station{}, missing(join(prefix, "monitors"))
	}

	loc, err := w.Location.toLocation(join(prefix, "location"))
	if err != nil {
		return Station{}, err
	}

	monitors := make([]Monitor, 0, len(w.Monitors))
	for i, raw := range w.Monitors {
		field := join(prefix, fmt.Sprintf("monitors[%d]", i))
		var mw monitorWire
		if err := decodeAt(raw, &mw, field); err != nil {
			return Station{}, err
		}
		m, err := mw.toMonitor(field)
		if err != nil {
			return Station{}, err
		}
		monitors = append(monitors, m)
	}

	var target *string
	if w.StationTarget != nil && *w.StationTarget != "" {
		target = w.StationTarget
	}

	return Station{
		ID:            *w.StationID,
		Name:          *w.Name,
		ShortName:     deref(w.ShortName),
		StationsTag:   deref(w.StationsTag),
		Location:      loc,
		Timebase:      deref(w.Timebase),
		Active:        *w.Active,
		Owner:         *w.Owner,
		RegionID:      *w.RegionID,
		StationTarget: target,
		Monitors:      monitors,
	}, nil
}

func (w regionWire) toRegion(prefix string) (Region, error) {
	switch {
	case w.RegionID == nil:
		return Region{}, missing(join(prefix, "regionId"))
	case w.Name == nil:
		return Region{}, missing(join(prefix, "name"))
	case w.Stations == nil:
		return Region{}, missing(join(prefix, "stations"))
	}

	stations := make([]Station, 0, len(w.Stations))
	for i, raw := range w.Stations {
		s, err := parseStationAt(raw, join(prefix, fmt.Sprintf("stations[%d]", i)))
		if err != nil {
			return Region{}, err
		}
		stations = append(stations, s)
	}
	return Region{ID: *w.RegionID, Name: *w.Name, Stations: stations}, nil
}

func (w readingWire) toData(stationID int, prefix string) (MeteorologicalData, error) {
	if w.Datetime == nil {
		return MeteorologicalData{}, missing(join(prefix, "datetime"))
	}
	ts, err := ParseTimestamp(*w.Datetime)
	if err != nil {
		return MeteorologicalData{}, &ParseError{Field: join(prefix, "datetime"), Err: err}
	}

	values := make(map[string]*float64, len(w.Channels))
	for i, raw := range w.Channels {
		field := join(prefix, fmt.Sprintf("channels[%d]", i))
		var cw channelValueWire
		if err := decodeAt(raw, &cw, field); err != nil {
			return MeteorologicalData{}, err
		}
		if cw.Name == nil {
			return MeteorologicalData{}, missing(join(field, "name"))
		}
		if !cw.usable() {
			values[*cw.Name] = nil
			continue
		}
		v, err := ParseNullableFloat(cw.Value)
		if err != nil {
			return MeteorologicalData{}, &ParseError{Field: join(field, "value"), Err: err}
		}
		values[*cw.Name] = v
	}

	return MeteorologicalData{StationID: stationID, Time: ts, Values: values}, nil
}

// usable reports whether the service flagged the value as a valid reading
func (w channelValueWire) usable() bool {
	return w.Valid != nil && *w.Valid && w.Status != nil && *w.Status == 1
}

// ParseNullableFloat decodes a JSON number or numeric string. JSON null,
// an absent value, an empty string, the text "null" and non-finite values
// such as "NaN" yield nil.
func ParseNullableFloat(raw json.RawMessage) (*float64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil, nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return nil, err
		}
		s = strings.TrimSpace(str)
		if s == "" || strings.EqualFold(s, "null") {
			return nil, nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid numeric value %q", s)
	}
	// strconv accepts NaN and Inf, which no reading can be
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, nil
	}
	return &f, nil
}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses a service date-time. Timestamps without an offset
// are taken to be local service time. The result is always in ServiceLocation.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(ServiceLocation), nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, ServiceLocation); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
