package models

import "sort"

// Channel names used by the service
const (
	VarBP       = "BP"
	VarDiff     = "Diff"
	VarGrad     = "Grad"
	VarNIP      = "NIP"
	VarRain     = "Rain"
	VarRain1Min = "Rain_1_min"
	VarRH       = "RH"
	VarSTDwd    = "STDwd"
	VarTD       = "TD"
	VarTDmax    = "TDmax"
	VarTDmin    = "TDmin"
	VarTG       = "TG"
	VarTW       = "TW"
	VarWD       = "WD"
	VarWDmax    = "WDmax"
	VarWS       = "WS"
	VarWS1mm    = "WS1mm"
	VarWs10mm   = "Ws10mm"
	VarWSmax    = "WSmax"
	VarTime     = "Time"
)

var variables = map[string]IMSVariable{
	VarBP:       {VarBP, "hPa", "Average pressure at station level"},
	VarDiff:     {VarDiff, "w/m²", "Diffused radiation"},
	VarGrad:     {VarGrad, "w/m²", "Global radiation"},
	VarNIP:      {VarNIP, "w/m²", "Direct radiation"},
	VarRain:     {VarRain, "mm", "Rainfall"},
	VarRain1Min: {VarRain1Min, "mm", "Rainfall per minute"},
	VarRH:       {VarRH, "%", "Relative humidity"},
	VarSTDwd:    {VarSTDwd, "deg", "Standard deviation wind direction"},
	VarTD:       {VarTD, "°C", "Temperature"},
	VarTDmax:    {VarTDmax, "°C", "Maximum temperature"},
	VarTDmin:    {VarTDmin, "°C", "Minimum temperature"},
	VarTG:       {VarTG, "°C", "Grass minimum temperature"},
	VarTW:       {VarTW, "°C", "Wet bulb temperature"},
	VarWD:       {VarWD, "deg", "Wind direction"},
	VarWDmax:    {VarWDmax, "deg", "Gust wind direction"},
	VarWS:       {VarWS, "m/s", "Wind speed"},
	VarWS1mm:    {VarWS1mm, "m/s", "Maximum 1 minute wind speed"},
	VarWs10mm:   {VarWs10mm, "m/s", "Maximum 10 minutes wind speed"},
	VarWSmax:    {VarWSmax, "m/s", "Gust wind speed"},
	VarTime:     {VarTime, "hhmm", "End time of Ws10mm"},
}

// LookupVariable returns the catalogue entry for a channel name
func LookupVariable(code string) (IMSVariable, bool) {
	v, ok := variables[code]
	return v, ok
}

// Variables returns the full catalogue sorted by code
func Variables() []IMSVariable {
	out := make([]IMSVariable, 0, len(variables))
	for _, v := range variables {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
