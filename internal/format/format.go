package format

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"imsenvista/internal/models"
)

var (
	labelColor   = color.New(color.FgCyan)
	valueColor   = color.New(color.FgWhite)
	dateColor    = color.New(color.FgGreen)
	sectionColor = color.New(color.FgBlue)
	missingColor = color.New(color.FgHiBlack)

	freshColor   = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	expiredColor = color.New(color.FgRed)
)

const timeLayout = "2006-01-02 15:04 MST"

// readingAgeColor colors a reading by how stale it is; stations report every 10 minutes
func readingAgeColor(t, now time.Time) *color.Color {
	age := now.Sub(t)
	switch {
	case age <= 20*time.Minute:
		return freshColor
	case age <= 2*time.Hour:
		return warningColor
	default:
		return expiredColor
	}
}

// Station renders station metadata with its monitors
func Station(s models.Station) string {
	var sb strings.Builder

	labelColor.Fprint(&sb, "Station: ")
	valueColor.Fprintf(&sb, "%s (%d)\n", s.Name, s.ID)

	labelColor.Fprint(&sb, "Location: ")
	sb.WriteString(s.Location.String() + "\n")

	labelColor.Fprint(&sb, "Region: ")
	sb.WriteString(strconv.Itoa(s.RegionID) + "\n")

	labelColor.Fprint(&sb, "Active: ")
	sb.WriteString(strconv.FormatBool(s.Active) + "\n")

	if s.StationTarget != nil {
		labelColor.Fprint(&sb, "Target: ")
		sb.WriteString(*s.StationTarget + "\n")
	}

	if len(s.Monitors) > 0 {
		sectionColor.Fprintln(&sb, "Monitors:")
		for _, m := range s.Monitors {
			fmt.Fprintf(&sb, "  %3d  %-8s", m.ChannelID, m.Name)
			if m.Units != "" {
				fmt.Fprintf(&sb, " [%s]", m.Units)
			}
			if !m.Active {
				missingColor.Fprint(&sb, " inactive")
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// Readings renders every reading of r, oldest first
func Readings(r models.StationMeteorologicalReadings, now time.Time) string {
	var sb strings.Builder

	labelColor.Fprint(&sb, "Station: ")
	valueColor.Fprintf(&sb, "%d\n", r.StationID)

	if len(r.Data) == 0 {
		missingColor.Fprintln(&sb, "No readings")
		return sb.String()
	}

	for _, d := range r.Data {
		sb.WriteString(Reading(d, now))
	}
	return sb.String()
}

// Reading renders one timestamped set of channel values sorted by code
func Reading(d models.MeteorologicalData, now time.Time) string {
	var sb strings.Builder

	labelColor.Fprint(&sb, "Time: ")
	dateColor.Fprint(&sb, d.Time.Format(timeLayout))
	readingAgeColor(d.Time, now).Fprintf(&sb, " (%s ago)\n", now.Sub(d.Time).Round(time.Minute))

	codes := make([]string, 0, len(d.Values))
	for code := range d.Values {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		fmt.Fprintf(&sb, "  %-10s ", code)
		v := d.Values[code]
		if v == nil {
			missingColor.Fprintln(&sb, "n/a")
			continue
		}
		if code == models.VarTime {
			if end, ok := d.EndTime(); ok {
				sb.WriteString(end.Format("15:04") + "\n")
				continue
			}
		}
		sb.WriteString(formatValue(code, *v) + "\n")
	}
	return sb.String()
}

// Variables renders the variable catalogue
func Variables(vars []models.IMSVariable) string {
	var sb strings.Builder
	sectionColor.Fprintln(&sb, "Variables:")
	for _, v := range vars {
		labelColor.Fprintf(&sb, "  %-10s", v.Code)
		fmt.Fprintf(&sb, " %-6s %s\n", v.Unit, v.Description)
	}
	return sb.String()
}

func formatValue(code string, v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if variable, ok := models.LookupVariable(code); ok {
		return s + " " + variable.Unit
	}
	return s
}
