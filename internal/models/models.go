package models

import (
	"fmt"
	"time"
)

// Location is a station's position in decimal degrees
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (l Location) String() string {
	return fmt.Sprintf("[Lat-%v/Long-%v]", l.Latitude, l.Longitude)
}

// Monitor is a single measured channel of a station
type Monitor struct {
	ChannelID   int    `json:"channel_id"`
	Name        string `json:"name"`
	Alias       string `json:"alias,omitempty"`
	Active      bool   `json:"active"`
	TypeID      int    `json:"type_id"`
	PollutantID int    `json:"pollutant_id"`
	Units       string `json:"units"`
	Description string `json:"description,omitempty"`
}

func (m Monitor) String() string {
	return fmt.Sprintf("%s(%s)", m.Name, m.Units)
}

// Station describes a monitoring station and the channels it reports
type Station struct {
	ID            int       `json:"station_id"`
	Name          string    `json:"name"`
	ShortName     string    `json:"short_name,omitempty"`
	StationsTag   string    `json:"stations_tag,omitempty"`
	Location      Location  `json:"location"`
	Timebase      int       `json:"timebase"`
	Active        bool      `json:"active"`
	Owner         string    `json:"owner"`
	RegionID      int       `json:"region_id"`
	StationTarget *string   `json:"station_target,omitempty"`
	Monitors      []Monitor `json:"monitors"`
}

// Monitor returns the station's monitor for channelID, if any
func (s Station) Monitor(channelID int) (Monitor, bool) {
	for _, m := range s.Monitors {
		if m.ChannelID == channelID {
			return m, true
		}
	}
	return Monitor{}, false
}

// Region is a named group of stations
type Region struct {
	ID       int       `json:"region_id"`
	Name     string    `json:"name"`
	Stations []Station `json:"stations"`
}

// StationIDs returns the ids of the region's stations in payload order
func (r Region) StationIDs() []int {
	ids := make([]int, 0, len(r.Stations))
	for _, s := range r.Stations {
		ids = append(ids, s.ID)
	}
	return ids
}

// IMSVariable describes a measurable variable and its unit
type IMSVariable struct {
	Code        string `json:"code"`
	Unit        string `json:"unit"`
	Description string `json:"description"`
}

func (v IMSVariable) String() string {
	return fmt.Sprintf("Code: %s - Unit: (%s) - Description: %s", v.Code, v.Unit, v.Description)
}

// MeteorologicalData is one timestamped set of channel values for a station.
// A nil entry in Values means the channel reported without a usable value.
type MeteorologicalData struct {
	StationID int                 `json:"station_id"`
	Time      time.Time           `json:"datetime"`
	Values    map[string]*float64 `json:"values"`
}

// Value returns the reading for a channel and whether it is present
func (d MeteorologicalData) Value(code string) (float64, bool) {
	v, ok := d.Values[code]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// Has reports whether the channel appeared in the reading at all
func (d MeteorologicalData) Has(code string) bool {
	_, ok := d.Values[code]
	return ok
}

// EndTime decodes the Time channel, which holds the end time of the
// maximum 10 minute wind speed. Values up to 60 are minutes after midnight,
// larger values are HHMM.
func (d MeteorologicalData) EndTime() (time.Time, bool) {
	raw, ok := d.Value(VarTime)
	if !ok {
		return time.Time{}, false
	}

	n := int(raw)
	hour, minute := 0, n
	if n > maxMinuteValue {
		hour, minute = n/100, n%100
	}
	if n < 0 || hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	t := d.Time.In(ServiceLocation)
	return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, ServiceLocation), true
}

const maxMinuteValue = 60

// StationMeteorologicalReadings holds a station's readings ordered by time
type StationMeteorologicalReadings struct {
	StationID int                  `json:"station_id"`
	Data      []MeteorologicalData `json:"data"`
}

// Latest returns the most recent reading, if any
func (r StationMeteorologicalReadings) Latest() (MeteorologicalData, bool) {
	if len(r.Data) == 0 {
		return MeteorologicalData{}, false
	}
	return r.Data[len(r.Data)-1], true
}

// EmptyReadings returns readings for a station that reported no data
func EmptyReadings(stationID int) *StationMeteorologicalReadings {
	return &StationMeteorologicalReadings{
		StationID: stationID,
		Data:      []MeteorologicalData{},
	}
}
