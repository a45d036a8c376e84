package domain

import "math"

// RawObservation is one county-year row of the annual AQI files.
type RawObservation struct {
	State  string `json:"state"`
	County string `json:"county"`
	Year   int    `json:"year,omitempty"`

	MedianAQI float64 `json:"median_aqi"`
	MaxAQI    float64 `json:"max_aqi"`

	UnhealthySensitiveDays float64 `json:"unhealthy_sensitive_days,omitempty"`
	UnhealthyDays          float64 `json:"unhealthy_days,omitempty"`
	VeryUnhealthyDays      float64 `json:"very_unhealthy_days,omitempty"`
	HazardousDays          float64 `json:"hazardous_days,omitempty"`
}

// HighAQIDays sums the four anomaly-day counts. Non-finite counts contribute 0.
func (o RawObservation) HighAQIDays() float64 {
	return finiteOrZero(o.UnhealthySensitiveDays) +
		finiteOrZero(o.UnhealthyDays) +
		finiteOrZero(o.VeryUnhealthyDays) +
		finiteOrZero(o.HazardousDays)
}

// CountyKey identifies a county. It is compared by value, so names containing
// separator characters cannot collide.
type CountyKey struct {
	State  string `json:"state"`
	County string `json:"county"`
}

func (k CountyKey) String() string {
	return k.County + ", " + k.State
}

// CountySummary is the five-year aggregate for one county.
type CountySummary struct {
	State            string  `json:"state"`
	County           string  `json:"county"`
	MedianAQIAvg     float64 `json:"median_aqi_avg"`
	MaxAQIAvg        float64 `json:"max_aqi_avg"`
	HighAQIDaysTotal float64 `json:"high_aqi_days_total"`
	Observations     int     `json:"observations"`
}

// Key returns the summary's county key.
func (s CountySummary) Key() CountyKey {
	return CountyKey{State: s.State, County: s.County}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteOrZero(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	return v
}
