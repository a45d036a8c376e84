package domain

import "math"

// DefaultPercentile is the threshold percentile used when none is configured.
const DefaultPercentile = 0.90

// RiskLabel is the four-way county classification.
type RiskLabel string

const (
	LowRisk        RiskLabel = "Low Risk"
	HighChronic    RiskLabel = "High Chronic"
	HighAcute      RiskLabel = "High Acute"
	DoubleJeopardy RiskLabel = "Double Jeopardy"
)

// RiskLabels lists every label in display order.
var RiskLabels = []RiskLabel{LowRisk, HighChronic, HighAcute, DoubleJeopardy}

// Label maps the two threshold predicates onto a RiskLabel.
func Label(chronic, acute bool) RiskLabel {
	switch {
	case chronic && acute:
		return DoubleJeopardy
	case chronic:
		return HighChronic
	case acute:
		return HighAcute
	default:
		return LowRisk
	}
}

// Thresholds holds the chronic and acute cut-offs for one scope. Either value
// is NaN when the scope contains no counties.
type Thresholds struct {
	Chronic    float64
	Acute      float64
	Percentile float64
}

// Defined reports whether both thresholds are numbers.
func (t Thresholds) Defined() bool {
	return !math.IsNaN(t.Chronic) && !math.IsNaN(t.Acute)
}

// ComputeThresholds takes the p-th percentile of the median and max averages
// of the scoped counties.
func ComputeThresholds(scoped []CountySummary, p float64) Thresholds {
	meds := make([]float64, len(scoped))
	maxes := make([]float64, len(scoped))
	for i, c := range scoped {
		meds[i] = c.MedianAQIAvg
		maxes[i] = c.MaxAQIAvg
	}
	return Thresholds{
		Chronic:    Percentile(meds, p),
		Acute:      Percentile(maxes, p),
		Percentile: p,
	}
}

// ClassifiedCounty is a CountySummary with its risk label.
type ClassifiedCounty struct {
	CountySummary
	Risk RiskLabel `json:"risk"`
}

// Classify labels every summary. Comparisons are inclusive; a NaN threshold
// never matches, which makes an empty scope all Low Risk.
func Classify(summaries []CountySummary, chronicThreshold, acuteThreshold float64) []ClassifiedCounty {
	out := make([]ClassifiedCounty, len(summaries))
	for i, s := range summaries {
		chronic := s.MedianAQIAvg >= chronicThreshold
		acute := s.MaxAQIAvg >= acuteThreshold
		out[i] = ClassifiedCounty{CountySummary: s, Risk: Label(chronic, acute)}
	}
	return out
}

// CountByRisk tallies labels. Every label is present in the result.
func CountByRisk(classified []ClassifiedCounty) map[RiskLabel]int {
	counts := make(map[RiskLabel]int, len(RiskLabels))
	for _, l := range RiskLabels {
		counts[l] = 0
	}
	for _, c := range classified {
		counts[c.Risk]++
	}
	return counts
}
