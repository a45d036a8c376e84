package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/county-aqi-risk/internal/domain"
)

// Origin records where a dataset came from.
type Origin string

const (
	// OriginAnnual is a set of per-year county files, aggregated here.
	OriginAnnual Origin = "annual"
	// OriginSummary is a precomputed county summary with no anomaly-day data.
	OriginSummary Origin = "summary"
	// OriginStream is built solely from streamed observation rows.
	OriginStream Origin = "stream"
)

// Input is what a Loader produces. Annual loaders fill Tally; summary
// loaders fill Summaries.
type Input struct {
	Origin    Origin
	Tally     *domain.Accumulator
	Summaries []domain.CountySummary
}

// Loader fetches a complete dataset from its source.
type Loader interface {
	Load(ctx context.Context) (Input, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (Input, error)

func (f LoaderFunc) Load(ctx context.Context) (Input, error) { return f(ctx) }

// Dataset is an immutable set of county summaries. A new Version is minted
// every time the counties change.
type Dataset struct {
	Origin         Origin
	Counties       []domain.CountySummary
	HasAnomalyDays bool
	Version        uuid.UUID
	LoadedAt       time.Time
}

func newDataset(origin Origin, counties []domain.CountySummary) *Dataset {
	if counties == nil {
		counties = []domain.CountySummary{}
	}
	return &Dataset{
		Origin:         origin,
		Counties:       counties,
		HasAnomalyDays: origin != OriginSummary,
		Version:        uuid.New(),
		LoadedAt:       domain.Now(),
	}
}

// NewDataset builds the dataset a loader result describes.
func NewDataset(in Input) Dataset {
	if in.Origin == OriginSummary {
		return *newDataset(OriginSummary, in.Summaries)
	}
	if in.Tally == nil {
		return *newDataset(in.Origin, nil)
	}
	return *newDataset(in.Origin, in.Tally.Summaries())
}
