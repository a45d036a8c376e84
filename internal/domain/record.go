package domain

import (
	"math"
	"strconv"
	"strings"
)

// EPA annual AQI column names.
const (
	ColState                  = "State"
	ColCounty                 = "County"
	ColYear                   = "Year"
	ColMedianAQI              = "Median AQI"
	ColMaxAQI                 = "Max AQI"
	ColUnhealthySensitiveDays = "Unhealthy for Sensitive Groups Days"
	ColUnhealthyDays          = "Unhealthy Days"
	ColVeryUnhealthyDays      = "Very Unhealthy Days"
	ColHazardousDays          = "Hazardous Days"
)

// ObservationFromRecord maps a header-keyed row onto a RawObservation.
// Unparseable metrics become NaN so the aggregator drops the row; missing
// anomaly-day counts become 0. Keys are not trimmed here.
func ObservationFromRecord(rec map[string]string) RawObservation {
	return RawObservation{
		State:                  rec[ColState],
		County:                 rec[ColCounty],
		Year:                   parseYear(rec[ColYear]),
		MedianAQI:              parseFloatOrNaN(rec[ColMedianAQI]),
		MaxAQI:                 parseFloatOrNaN(rec[ColMaxAQI]),
		UnhealthySensitiveDays: finiteOrZero(parseFloatOrNaN(rec[ColUnhealthySensitiveDays])),
		UnhealthyDays:          finiteOrZero(parseFloatOrNaN(rec[ColUnhealthyDays])),
		VeryUnhealthyDays:      finiteOrZero(parseFloatOrNaN(rec[ColVeryUnhealthyDays])),
		HazardousDays:          finiteOrZero(parseFloatOrNaN(rec[ColHazardousDays])),
	}
}

// parseFloatOrNaN parses s as float64, returning NaN when s is empty or not a number.
func parseFloatOrNaN(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func parseYear(s string) int {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return y
}
