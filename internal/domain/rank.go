package domain

import (
	"cmp"
	"slices"
)

// AllRegions disables the region filter.
const AllRegions = "ALL"

// RankedCounty is a Double Jeopardy county with its composite score.
type RankedCounty struct {
	ClassifiedCounty
	DoubleJeopardyScore float64 `json:"double_jeopardy_score"`
}

// TopDoubleJeopardy scores the Double Jeopardy counties of region (or every
// region for AllRegions) and returns the k highest, ties in input order.
// An unknown region or k <= 0 yields an empty result.
func TopDoubleJeopardy(classified []ClassifiedCounty, chronicThreshold, acuteThreshold float64, region string, k int) []RankedCounty {
	ranked := make([]RankedCounty, 0)
	if k <= 0 {
		return ranked
	}
	for _, c := range classified {
		if c.Risk != DoubleJeopardy {
			continue
		}
		if region != AllRegions && c.State != region {
			continue
		}
		ranked = append(ranked, RankedCounty{
			ClassifiedCounty:    c,
			DoubleJeopardyScore: (c.MedianAQIAvg - chronicThreshold) + (c.MaxAQIAvg - acuteThreshold),
		})
	}

	slices.SortStableFunc(ranked, func(a, b RankedCounty) int {
		return cmp.Compare(b.DoubleJeopardyScore, a.DoubleJeopardyScore)
	})
	return ranked[:min(k, len(ranked))]
}

// TopChronic returns the n counties with the highest average median AQI.
func TopChronic(classified []ClassifiedCounty, n int) []ClassifiedCounty {
	return topBy(classified, n, func(a, b ClassifiedCounty) int {
		return cmp.Compare(b.MedianAQIAvg, a.MedianAQIAvg)
	})
}

// TopAcute returns the n counties with the highest average max AQI.
func TopAcute(classified []ClassifiedCounty, n int) []ClassifiedCounty {
	return topBy(classified, n, func(a, b ClassifiedCounty) int {
		return cmp.Compare(b.MaxAQIAvg, a.MaxAQIAvg)
	})
}

// TopLivable returns the n counties with the lowest average median AQI.
func TopLivable(classified []ClassifiedCounty, n int) []ClassifiedCounty {
	return topBy(classified, n, func(a, b ClassifiedCounty) int {
		return cmp.Compare(a.MedianAQIAvg, b.MedianAQIAvg)
	})
}

// topBy stable-sorts a copy and keeps the first n.
func topBy(classified []ClassifiedCounty, n int, order func(a, b ClassifiedCounty) int) []ClassifiedCounty {
	if n <= 0 {
		return []ClassifiedCounty{}
	}
	sorted := append(make([]ClassifiedCounty, 0, len(classified)), classified...)
	slices.SortStableFunc(sorted, order)
	return sorted[:min(n, len(sorted))]
}
