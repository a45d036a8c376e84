package dashboard

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/county-aqi-risk/internal/domain"
)

var frozen = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func freezeClock(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(frozen))
	t.Cleanup(func() { domain.SetClock(nil) })
}

func county(state, name string, median, max, days float64) domain.CountySummary {
	return domain.CountySummary{
		State: state, County: name,
		MedianAQIAvg: median, MaxAQIAvg: max, HighAQIDaysTotal: days,
		Observations: 5,
	}
}

func threeCounty() Dataset {
	return Dataset{
		Origin: OriginAnnual,
		Counties: []domain.CountySummary{
			county("California", "Los Angeles", 40, 80, 30),
			county("California", "Mono", 300, 600, 50),
			county("Texas", "Harris", 20, 30, 10),
		},
		HasAnomalyDays: true,
		Version:        uuid.MustParse("6f1c1f8e-9a9a-4c1e-8a51-3c1c6b0d2a10"),
		LoadedAt:       frozen,
	}
}

func TestBuild_ThreeCounty(t *testing.T) {
	freezeClock(t)

	v := Build(threeCounty(), DefaultParams(), domain.DefaultExclusions)

	assert.Equal(t, 3, v.KPIs.TotalCounties)
	require.NotNil(t, v.KPIs.ChronicThreshold)
	require.NotNil(t, v.KPIs.AcuteThreshold)
	assert.InDelta(t, 248.0, *v.KPIs.ChronicThreshold, 1e-9)
	assert.InDelta(t, 496.0, *v.KPIs.AcuteThreshold, 1e-9)
	assert.Equal(t, 1, v.KPIs.DoubleJeopardyCount)
	assert.Equal(t, 2, v.KPIs.RiskCounts[domain.LowRisk])

	require.Len(t, v.DoubleJeopardy, 1)
	assert.Equal(t, "Mono", v.DoubleJeopardy[0].County)
	assert.InDelta(t, 156.0, v.DoubleJeopardy[0].DoubleJeopardyScore, 1e-9)

	// Mono is hidden from the scatter only.
	assert.Len(t, v.Scatter, 2)
	for _, c := range v.Scatter {
		assert.NotEqual(t, "Mono", c.County)
	}
	assert.Equal(t, "Mono", v.TopChronic[0].County)
	assert.Equal(t, "Harris", v.TopLivable[0].County)

	assert.Equal(t, []string{"California", "Texas"}, v.States)
	assert.Equal(t, []domain.StateHeat{
		{State: "California", Abbr: "CA", HighAQIDays: 80},
		{State: "Texas", Abbr: "TX", HighAQIDays: 10},
	}, v.Heatmap)
	assert.Equal(t, frozen, v.ComputedAt)
	assert.Equal(t, threeCounty().Version, v.DatasetVersion)
}

func TestBuild_ExclusionsDoNotMoveThresholds(t *testing.T) {
	with := Build(threeCounty(), DefaultParams(), domain.DefaultExclusions)
	without := Build(threeCounty(), DefaultParams(), nil)

	assert.Equal(t, *without.KPIs.ChronicThreshold, *with.KPIs.ChronicThreshold)
	assert.Equal(t, *without.KPIs.AcuteThreshold, *with.KPIs.AcuteThreshold)
	assert.Equal(t, without.KPIs.TotalCounties, with.KPIs.TotalCounties)
	assert.Len(t, without.Scatter, 3)
}

func TestBuild_RegionFilter(t *testing.T) {
	p := DefaultParams()
	p.Region = "Texas"

	v := Build(threeCounty(), p, domain.DefaultExclusions)

	require.Len(t, v.Scatter, 1)
	assert.Equal(t, "Harris", v.Scatter[0].County)
	assert.Empty(t, v.DoubleJeopardy)
	assert.Equal(t, 3, v.KPIs.TotalCounties)
}

func TestBuild_USScope(t *testing.T) {
	ds := threeCounty()
	ds.Counties = append(ds.Counties, county("Country Of Mexico", "Tijuana", 90, 200, 5))

	all := Build(ds, DefaultParams(), nil)
	p := DefaultParams()
	p.Scope = domain.ScopeUS
	us := Build(ds, p, nil)

	assert.Equal(t, 4, all.KPIs.TotalCounties)
	assert.Equal(t, 3, us.KPIs.TotalCounties)
	assert.NotContains(t, us.States, "Country Of Mexico")
}

func TestBuild_EmptyDatasetHasNullThresholds(t *testing.T) {
	ds := Dataset{Origin: OriginAnnual, Counties: []domain.CountySummary{}, HasAnomalyDays: true}

	v := Build(ds, DefaultParams(), domain.DefaultExclusions)

	assert.Nil(t, v.KPIs.ChronicThreshold)
	assert.Nil(t, v.KPIs.AcuteThreshold)
	assert.Equal(t, 0, v.KPIs.TotalCounties)

	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"chronic_threshold":null`)
	assert.Contains(t, string(b), `"double_jeopardy":[]`)
}

func TestBuild_SummaryDatasetHasNoHeatmap(t *testing.T) {
	ds := threeCounty()
	ds.Origin = OriginSummary
	ds.HasAnomalyDays = false

	v := Build(ds, DefaultParams(), nil)
	assert.Nil(t, v.Heatmap)
}

func TestNewSnapshot(t *testing.T) {
	freezeClock(t)

	s := NewSnapshot(threeCounty(), DefaultParams())

	assert.NotEqual(t, uuid.Nil, s.ID)
	assert.Equal(t, threeCounty().Version, s.DatasetVersion)
	assert.Len(t, s.Counties, 3)
	assert.Equal(t, 1, s.DoubleJeopardyCount())
	require.NotNil(t, s.ChronicThreshold)
	assert.InDelta(t, 248.0, *s.ChronicThreshold, 1e-9)
	assert.Equal(t, frozen, s.ComputedAt)
}
