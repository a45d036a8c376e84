package domain

import (
	"cmp"
	"maps"
	"slices"
	"strings"
)

// tally holds running sums for one county.
type tally struct {
	medianSum float64
	maxSum    float64
	daysSum   float64
	n         int
}

// Accumulator folds raw observations into per-county running sums. Sums and
// counts combine associatively, so accumulators built over disjoint shards
// (e.g. one per year-file) can be merged before averages are taken.
//
// An Accumulator is not safe for concurrent use.
type Accumulator struct {
	groups  map[CountyKey]tally
	dropped int
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{groups: make(map[CountyKey]tally)}
}

// Add folds one observation in. It returns false when the row is dropped
// because a key is empty after trimming or a metric is not finite.
func (a *Accumulator) Add(o RawObservation) bool {
	key := CountyKey{
		State:  strings.TrimSpace(o.State),
		County: strings.TrimSpace(o.County),
	}
	if key.State == "" || key.County == "" || !isFinite(o.MedianAQI) || !isFinite(o.MaxAQI) {
		a.dropped++
		return false
	}

	t := a.groups[key]
	t.medianSum += o.MedianAQI
	t.maxSum += o.MaxAQI
	t.daysSum += o.HighAQIDays()
	t.n++
	a.groups[key] = t
	return true
}

// AddAll folds every row and returns the number accepted.
func (a *Accumulator) AddAll(rows []RawObservation) int {
	accepted := 0
	for _, r := range rows {
		if a.Add(r) {
			accepted++
		}
	}
	return accepted
}

// Merge adds other's sums and counts into a. other is left unchanged.
func (a *Accumulator) Merge(other *Accumulator) {
	if other == nil {
		return
	}
	for key, o := range other.groups {
		t := a.groups[key]
		t.medianSum += o.medianSum
		t.maxSum += o.maxSum
		t.daysSum += o.daysSum
		t.n += o.n
		a.groups[key] = t
	}
	a.dropped += other.dropped
}

// Clone returns an independent copy.
func (a *Accumulator) Clone() *Accumulator {
	return &Accumulator{groups: maps.Clone(a.groups), dropped: a.dropped}
}

// Len returns the number of distinct counties.
func (a *Accumulator) Len() int { return len(a.groups) }

// Dropped returns the number of rejected rows.
func (a *Accumulator) Dropped() int { return a.dropped }

// Summaries emits one CountySummary per county, sorted by state then county.
func (a *Accumulator) Summaries() []CountySummary {
	out := make([]CountySummary, 0, len(a.groups))
	for key, t := range a.groups {
		if t.n == 0 {
			continue
		}
		n := float64(t.n)
		out = append(out, CountySummary{
			State:            key.State,
			County:           key.County,
			MedianAQIAvg:     t.medianSum / n,
			MaxAQIAvg:        t.maxSum / n,
			HighAQIDaysTotal: t.daysSum,
			Observations:     t.n,
		})
	}
	slices.SortFunc(out, func(x, y CountySummary) int {
		return cmp.Or(cmp.Compare(x.State, y.State), cmp.Compare(x.County, y.County))
	})
	return out
}

// Aggregate groups rows by county and averages the median and max AQI.
// Callers must not depend on the output order.
func Aggregate(rows []RawObservation) []CountySummary {
	acc := NewAccumulator()
	acc.AddAll(rows)
	return acc.Summaries()
}
