package dashboard

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/county-aqi-risk/internal/domain"
)

// KPIs are the headline numbers. Thresholds are null when the scope is empty.
type KPIs struct {
	TotalCounties       int                      `json:"total_counties"`
	ChronicThreshold    *float64                 `json:"chronic_threshold"`
	AcuteThreshold      *float64                 `json:"acute_threshold"`
	DoubleJeopardyCount int                      `json:"dj_count"`
	RiskCounts          map[domain.RiskLabel]int `json:"risk_counts"`
}

// View is everything the dashboard renders for one Params.
type View struct {
	Params         Params                    `json:"params"`
	KPIs           KPIs                      `json:"kpis"`
	States         []string                  `json:"states"`
	Scatter        []domain.ClassifiedCounty `json:"scatter"`
	TopChronic     []domain.ClassifiedCounty `json:"top_chronic"`
	TopAcute       []domain.ClassifiedCounty `json:"top_acute"`
	TopLivable     []domain.ClassifiedCounty `json:"top_livable"`
	DoubleJeopardy []domain.RankedCounty     `json:"double_jeopardy"`
	// Heatmap is nil when the dataset carries no anomaly-day counts.
	Heatmap        []domain.StateHeat `json:"heatmap"`
	Origin         Origin             `json:"origin"`
	DatasetVersion uuid.UUID          `json:"dataset_version"`
	ComputedAt     time.Time          `json:"computed_at"`
}

// classification is the scoped, thresholded, labelled state shared by views
// and snapshots.
type classification struct {
	scoped     []domain.CountySummary
	thresholds domain.Thresholds
	counties   []domain.ClassifiedCounty
}

func classify(ds Dataset, p Params) classification {
	scoped := domain.ApplyScope(ds.Counties, p.Scope)
	th := domain.ComputeThresholds(scoped, p.Percentile)
	return classification{
		scoped:     scoped,
		thresholds: th,
		counties:   domain.Classify(scoped, th.Chronic, th.Acute),
	}
}

// Build computes the view for p. The exclusion list only trims the scatter
// series; every other figure covers the full scope.
func Build(ds Dataset, p Params, excl domain.ExclusionList) View {
	c := classify(ds, p)
	counts := domain.CountByRisk(c.counties)

	v := View{
		Params: p,
		KPIs: KPIs{
			TotalCounties:       len(c.scoped),
			ChronicThreshold:    nullable(c.thresholds.Chronic),
			AcuteThreshold:      nullable(c.thresholds.Acute),
			DoubleJeopardyCount: counts[domain.DoubleJeopardy],
			RiskCounts:          counts,
		},
		States:         domain.DistinctStates(c.scoped),
		Scatter:        excl.Filter(inRegion(c.counties, p.Region)),
		TopChronic:     domain.TopChronic(c.counties, p.TopChronic),
		TopAcute:       domain.TopAcute(c.counties, p.TopAcute),
		TopLivable:     domain.TopLivable(c.counties, p.TopLivable),
		DoubleJeopardy: domain.TopDoubleJeopardy(c.counties, c.thresholds.Chronic, c.thresholds.Acute, p.Region, p.DJTopK),
		Origin:         ds.Origin,
		DatasetVersion: ds.Version,
		ComputedAt:     domain.Now(),
	}
	if ds.HasAnomalyDays {
		v.Heatmap = domain.HighAQIDaysByState(c.scoped)
	}
	return v
}

func inRegion(counties []domain.ClassifiedCounty, region string) []domain.ClassifiedCounty {
	if region == domain.AllRegions {
		return counties
	}
	out := make([]domain.ClassifiedCounty, 0)
	for _, c := range counties {
		if c.State == region {
			out = append(out, c)
		}
	}
	return out
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
