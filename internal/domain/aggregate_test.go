package domain

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obs(state, county string, median, max float64) RawObservation {
	return RawObservation{State: state, County: county, MedianAQI: median, MaxAQI: max}
}

func TestAggregate_AveragesPerCounty(t *testing.T) {
	rows := []RawObservation{
		obs("CA", "Alpha", 10, 50),
		obs("CA", "Alpha", 20, 70),
	}

	got := Aggregate(rows)

	require.Len(t, got, 1)
	assert.Equal(t, "CA", got[0].State)
	assert.Equal(t, "Alpha", got[0].County)
	assert.InDelta(t, 15.0, got[0].MedianAQIAvg, 1e-9)
	assert.InDelta(t, 60.0, got[0].MaxAQIAvg, 1e-9)
	assert.Equal(t, 2, got[0].Observations)
}

func TestAggregate_TrimsKeys(t *testing.T) {
	rows := []RawObservation{
		obs(" Texas ", "Harris", 20, 30),
		obs("Texas", " Harris", 40, 50),
	}

	got := Aggregate(rows)

	require.Len(t, got, 1)
	assert.Equal(t, CountyKey{State: "Texas", County: "Harris"}, got[0].Key())
	assert.InDelta(t, 30.0, got[0].MedianAQIAvg, 1e-9)
}

func TestAggregate_DropsInvalidRows(t *testing.T) {
	tests := []struct {
		name string
		row  RawObservation
	}{
		{"empty state", obs("", "Harris", 1, 2)},
		{"blank county", obs("Texas", "   ", 1, 2)},
		{"NaN median", obs("Texas", "Harris", math.NaN(), 2)},
		{"Inf max", obs("Texas", "Harris", 1, math.Inf(1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := NewAccumulator()
			assert.False(t, acc.Add(tt.row))
			assert.Equal(t, 1, acc.Dropped())
			assert.Empty(t, acc.Summaries())
		})
	}
}

func TestAggregate_SumsAnomalyDays(t *testing.T) {
	rows := []RawObservation{
		{State: "Utah", County: "Salt Lake", MedianAQI: 40, MaxAQI: 150,
			UnhealthySensitiveDays: 5, UnhealthyDays: 2, VeryUnhealthyDays: 1, HazardousDays: math.NaN()},
		{State: "Utah", County: "Salt Lake", MedianAQI: 44, MaxAQI: 160, UnhealthyDays: 3},
	}

	got := Aggregate(rows)

	require.Len(t, got, 1)
	assert.InDelta(t, 11.0, got[0].HighAQIDaysTotal, 1e-9)
}

func TestAggregate_DistinctKeysDoNotCollide(t *testing.T) {
	// With string concatenation on "|" these two would share a key.
	rows := []RawObservation{
		obs("A|B", "C", 10, 10),
		obs("A", "B|C", 30, 30),
	}

	got := Aggregate(rows)
	assert.Len(t, got, 2)
}

func TestAggregate_DoesNotMutateInput(t *testing.T) {
	rows := []RawObservation{obs(" CA ", " Alpha ", 10, 50)}
	before := append([]RawObservation(nil), rows...)

	Aggregate(rows)

	if diff := cmp.Diff(before, rows); diff != "" {
		t.Fatalf("input mutated (-want +got):\n%s", diff)
	}
}

func TestAccumulator_MergeEqualsSingleFold(t *testing.T) {
	year1 := []RawObservation{obs("CA", "Mono", 300, 600), obs("CA", "LA", 40, 80)}
	year2 := []RawObservation{obs("CA", "Mono", 310, 620), obs("TX", "Harris", 20, 30), obs("", "bad", 1, 1)}

	shardA := NewAccumulator()
	shardA.AddAll(year1)
	shardB := NewAccumulator()
	shardB.AddAll(year2)

	merged := NewAccumulator()
	merged.Merge(shardB)
	merged.Merge(shardA)

	whole := Aggregate(append(append([]RawObservation{}, year1...), year2...))

	if diff := cmp.Diff(whole, merged.Summaries()); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, merged.Dropped())
	assert.Equal(t, 3, merged.Len())
}

func TestAccumulator_CloneIsIndependent(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(obs("CA", "LA", 40, 80))

	clone := acc.Clone()
	clone.Add(obs("CA", "LA", 60, 100))

	assert.InDelta(t, 40.0, acc.Summaries()[0].MedianAQIAvg, 1e-9)
	assert.InDelta(t, 50.0, clone.Summaries()[0].MedianAQIAvg, 1e-9)
}

func TestAccumulator_MergeNil(t *testing.T) {
	acc := NewAccumulator()
	acc.Merge(nil)
	assert.Equal(t, 0, acc.Len())
}

func TestObservationFromRecord(t *testing.T) {
	t.Run("full row", func(t *testing.T) {
		got := ObservationFromRecord(map[string]string{
			ColState:                  "California",
			ColCounty:                 "Mono",
			ColYear:                   "2023",
			ColMedianAQI:              "31",
			ColMaxAQI:                 " 512 ",
			ColUnhealthySensitiveDays: "4",
			ColUnhealthyDays:          "2",
			ColVeryUnhealthyDays:      "1",
			ColHazardousDays:          "1",
		})
		assert.Equal(t, "California", got.State)
		assert.Equal(t, 2023, got.Year)
		assert.Equal(t, 31.0, got.MedianAQI)
		assert.Equal(t, 512.0, got.MaxAQI)
		assert.Equal(t, 8.0, got.HighAQIDays())
	})

	t.Run("missing anomaly days default to zero", func(t *testing.T) {
		got := ObservationFromRecord(map[string]string{
			ColState: "Texas", ColCounty: "Harris", ColMedianAQI: "50", ColMaxAQI: "150",
			ColHazardousDays: "n/a",
		})
		assert.Equal(t, 0.0, got.HighAQIDays())
		assert.Equal(t, 0, got.Year)
	})

	t.Run("unparseable metric becomes NaN", func(t *testing.T) {
		got := ObservationFromRecord(map[string]string{
			ColState: "Texas", ColCounty: "Harris", ColMedianAQI: "", ColMaxAQI: "abc",
		})
		assert.True(t, math.IsNaN(got.MedianAQI))
		assert.True(t, math.IsNaN(got.MaxAQI))
		assert.False(t, NewAccumulator().Add(got))
	})
}
