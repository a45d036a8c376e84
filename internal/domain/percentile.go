package domain

import (
	"math"
	"slices"
)

// Percentile returns the p-th order statistic of values with linear
// interpolation between the two closest ranks. p is a fraction, clamped to
// [0, 1]. Non-finite values are ignored; an empty sample or a NaN p yields
// NaN. values is not modified.
func Percentile(values []float64, p float64) float64 {
	if math.IsNaN(p) {
		return math.NaN()
	}
	p = math.Max(0, math.Min(1, p))

	arr := make([]float64, 0, len(values))
	for _, v := range values {
		if isFinite(v) {
			arr = append(arr, v)
		}
	}
	if len(arr) == 0 {
		return math.NaN()
	}
	slices.Sort(arr)

	idx := float64(len(arr)-1) * p
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return arr[lo]
	}
	return arr[lo] + (arr[hi]-arr[lo])*(idx-float64(lo))
}
