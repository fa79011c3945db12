package api

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"imsenvista/internal/models"
)

// DefaultBaseURL is the Envista API root
const DefaultBaseURL = "https://api.ims.gov.il/v1/envista"

// Language selects the language of names in responses
type Language string

const (
	LanguageHebrew  Language = "he"
	LanguageEnglish Language = "en"
)

// ParseLanguage validates a language code
func ParseLanguage(s string) (Language, error) {
	switch lang := Language(strings.ToLower(strings.TrimSpace(s))); lang {
	case LanguageHebrew, LanguageEnglish:
		return lang, nil
	default:
		return "", &UnsupportedLanguageError{Language: s}
	}
}

// ChannelOptions narrows a data request to a single channel
type ChannelOptions struct {
	ChannelID *int
}

// MonthlyOptions selects the month for GetMonthlyStationData.
// Month is "01".."12" and Year is four digits. When both are nil the
// current month is requested.
type MonthlyOptions struct {
	ChannelID *int
	Month     *string
	Year      *string
}

// Request is a validated endpoint path and raw query, relative to the base URL
type Request struct {
	Op       string // operation name, used for logs and metrics
	Path     string
	RawQuery string
}

// URL joins the request onto baseURL
func (r Request) URL(baseURL string) string {
	url := strings.TrimRight(baseURL, "/") + r.Path
	if r.RawQuery != "" {
		url += "?" + r.RawQuery
	}
	return url
}

var (
	monthPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])$`)
	yearPattern  = regexp.MustCompile(`^[0-9]{4}$`)
)

func StationsRequest() Request {
	return Request{Op: "stations", Path: "/stations"}
}

func StationRequest(stationID int) (Request, error) {
	if err := checkID("station id", stationID); err != nil {
		return Request{}, err
	}
	return Request{Op: "station", Path: fmt.Sprintf("/stations/%d", stationID)}, nil
}

func RegionsRequest() Request {
	return Request{Op: "regions", Path: "/regions"}
}

func RegionRequest(regionID int) (Request, error) {
	if err := checkID("region id", regionID); err != nil {
		return Request{}, err
	}
	return Request{Op: "region", Path: fmt.Sprintf("/regions/%d", regionID)}, nil
}

func LatestRequest(stationID int, opts ChannelOptions) (Request, error) {
	return dataRequest("latest", stationID, opts.ChannelID, "/latest")
}

func EarliestRequest(stationID int, opts ChannelOptions) (Request, error) {
	return dataRequest("earliest", stationID, opts.ChannelID, "/earliest")
}

func DailyRequest(stationID int, opts ChannelOptions) (Request, error) {
	return dataRequest("daily", stationID, opts.ChannelID, "/daily")
}

// FromDateRequest requests the readings of a single calendar day
func FromDateRequest(stationID int, date time.Time, opts ChannelOptions) (Request, error) {
	return dataRequest("from_date", stationID, opts.ChannelID, "/daily/"+date.Format("2006/01/02"))
}

// RangeRequest requests readings between two calendar days, inclusive
func RangeRequest(stationID int, from, to time.Time, opts ChannelOptions) (Request, error) {
	if civilDate(from).After(civilDate(to)) {
		return Request{}, &InvalidRangeError{From: from, To: to}
	}
	req, err := dataRequest("range", stationID, opts.ChannelID, "")
	if err != nil {
		return Request{}, err
	}
	// slashes stay unescaped, the service expects from=YYYY/MM/DD
	req.RawQuery = "from=" + from.Format("2006/01/02") + "&to=" + to.Format("2006/01/02")
	return req, nil
}

// MonthlyRequest requests a month of readings. A month or year left nil
// while the other is set is taken from now in service time.
func MonthlyRequest(stationID int, opts MonthlyOptions, now time.Time) (Request, error) {
	if opts.Month == nil && opts.Year == nil {
		return dataRequest("monthly", stationID, opts.ChannelID, "/monthly")
	}

	local := now.In(models.ServiceLocation)
	month := local.Format("01")
	year := local.Format("2006")
	if opts.Month != nil {
		month = *opts.Month
	}
	if opts.Year != nil {
		year = *opts.Year
	}

	if !monthPattern.MatchString(month) {
		return Request{}, &InvalidParameterError{Param: "month", Value: month, Reason: "must be two digits 01-12"}
	}
	if !yearPattern.MatchString(year) {
		return Request{}, &InvalidParameterError{Param: "year", Value: year, Reason: "must be four digits"}
	}
	return dataRequest("monthly", stationID, opts.ChannelID, "/monthly/"+year+"/"+month)
}

func dataRequest(op string, stationID int, channelID *int, suffix string) (Request, error) {
	if err := checkID("station id", stationID); err != nil {
		return Request{}, err
	}
	path := fmt.Sprintf("/stations/%d/data", stationID)
	if channelID != nil {
		if err := checkID("channel id", *channelID); err != nil {
			return Request{}, err
		}
		path += fmt.Sprintf("/%d", *channelID)
	}
	return Request{Op: op, Path: path + suffix}, nil
}

func checkID(param string, id int) error {
	if id <= 0 {
		return &InvalidParameterError{Param: param, Value: id, Reason: "must be a positive integer"}
	}
	return nil
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
