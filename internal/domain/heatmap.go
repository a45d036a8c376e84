package domain

import (
	"cmp"
	"slices"
)

// StateHeat is the total number of high-AQI days recorded in one state.
type StateHeat struct {
	State       string  `json:"state"`
	Abbr        string  `json:"abbr"`
	HighAQIDays float64 `json:"high_aqi_days"`
}

// HighAQIDaysByState sums HighAQIDaysTotal per state. States without a USPS
// abbreviation are skipped; the two DC spellings are reported separately
// under the same code, as the choropleth sums them. Sorted by state name.
func HighAQIDaysByState(counties []CountySummary) []StateHeat {
	totals := make(map[string]float64)
	for _, c := range counties {
		if _, ok := StateAbbreviation(c.State); !ok {
			continue
		}
		totals[c.State] += c.HighAQIDaysTotal
	}

	out := make([]StateHeat, 0, len(totals))
	for state, days := range totals {
		abbr, _ := StateAbbreviation(state)
		out = append(out, StateHeat{State: state, Abbr: abbr, HighAQIDays: days})
	}
	slices.SortFunc(out, func(a, b StateHeat) int { return cmp.Compare(a.State, b.State) })
	return out
}

// DistinctStates returns the sorted set of states present in counties.
func DistinctStates(counties []CountySummary) []string {
	seen := make(map[string]struct{}, 64)
	out := make([]string, 0, 64)
	for _, c := range counties {
		if _, ok := seen[c.State]; ok {
			continue
		}
		seen[c.State] = struct{}{}
		out = append(out, c.State)
	}
	slices.Sort(out)
	return out
}
