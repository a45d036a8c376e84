package domain

import "strings"

// CountyRef names a county loosely: matching ignores case and surrounding
// whitespace.
type CountyRef struct {
	State  string `yaml:"state" json:"state"`
	County string `yaml:"county" json:"county"`
}

// Matches reports whether state/county refer to this county.
func (r CountyRef) Matches(state, county string) bool {
	return strings.EqualFold(strings.TrimSpace(r.State), strings.TrimSpace(state)) &&
		strings.EqualFold(strings.TrimSpace(r.County), strings.TrimSpace(county))
}

// ExclusionList hides known outliers from visual displays. It is applied after
// classification and never affects aggregation, thresholds, or KPI totals.
type ExclusionList []CountyRef

// DefaultExclusions hides Mono County, California, whose five-year averages
// stretch every scatter axis.
var DefaultExclusions = ExclusionList{{State: "California", County: "Mono"}}

// Excludes reports whether the county is on the list.
func (l ExclusionList) Excludes(state, county string) bool {
	for _, r := range l {
		if r.Matches(state, county) {
			return true
		}
	}
	return false
}

// Filter returns the classified counties that are not excluded, in order.
func (l ExclusionList) Filter(classified []ClassifiedCounty) []ClassifiedCounty {
	out := make([]ClassifiedCounty, 0, len(classified))
	for _, c := range classified {
		if !l.Excludes(c.State, c.County) {
			out = append(out, c)
		}
	}
	return out
}
