package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHighAQIDaysByState(t *testing.T) {
	counties := []CountySummary{
		{State: "Utah", County: "Salt Lake", HighAQIDaysTotal: 12},
		{State: "Utah", County: "Utah", HighAQIDaysTotal: 3},
		{State: "Arizona", County: "Maricopa", HighAQIDaysTotal: 40},
		{State: "Country Of Mexico", County: "Tijuana", HighAQIDaysTotal: 99},
	}

	got := HighAQIDaysByState(counties)

	require.Len(t, got, 2)
	assert.Equal(t, StateHeat{State: "Arizona", Abbr: "AZ", HighAQIDays: 40}, got[0])
	assert.Equal(t, StateHeat{State: "Utah", Abbr: "UT", HighAQIDays: 15}, got[1])
}

func TestHighAQIDaysByState_Empty(t *testing.T) {
	got := HighAQIDaysByState(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDistinctStates(t *testing.T) {
	counties := []CountySummary{
		{State: "Utah"}, {State: "Arizona"}, {State: "Utah"}, {State: "Country Of Mexico"},
	}
	assert.Equal(t, []string{"Arizona", "Country Of Mexico", "Utah"}, DistinctStates(counties))
}
