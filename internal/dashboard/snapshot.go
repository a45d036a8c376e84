package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/county-aqi-risk/internal/domain"
)

// Snapshot is the full classification of one dataset version under one set
// of parameters. Sinks archive or forward it.
type Snapshot struct {
	ID               uuid.UUID                 `json:"id"`
	DatasetVersion   uuid.UUID                 `json:"dataset_version"`
	Params           Params                    `json:"params"`
	ChronicThreshold *float64                  `json:"chronic_threshold"`
	AcuteThreshold   *float64                  `json:"acute_threshold"`
	Counties         []domain.ClassifiedCounty `json:"counties"`
	ComputedAt       time.Time                 `json:"computed_at"`
}

// DoubleJeopardyCount counts the Double Jeopardy counties in the snapshot.
func (s Snapshot) DoubleJeopardyCount() int {
	n := 0
	for _, c := range s.Counties {
		if c.Risk == domain.DoubleJeopardy {
			n++
		}
	}
	return n
}

// NewSnapshot classifies ds under p.
func NewSnapshot(ds Dataset, p Params) Snapshot {
	c := classify(ds, p)
	return Snapshot{
		ID:               uuid.New(),
		DatasetVersion:   ds.Version,
		Params:           p,
		ChronicThreshold: nullable(c.thresholds.Chronic),
		AcuteThreshold:   nullable(c.thresholds.Acute),
		Counties:         c.counties,
		ComputedAt:       domain.Now(),
	}
}

// Publisher delivers snapshots to a sink.
type Publisher interface {
	PublishSnapshot(ctx context.Context, s Snapshot) error
}

// Sink is a named Publisher; the name labels metrics and logs.
type Sink struct {
	Name      string
	Publisher Publisher
}

// SnapshotRecord is the archived summary of a published snapshot.
type SnapshotRecord struct {
	ID                  uuid.UUID `json:"id"`
	DatasetVersion      uuid.UUID `json:"dataset_version"`
	Scope               string    `json:"scope"`
	Percentile          float64   `json:"percentile"`
	ChronicThreshold    *float64  `json:"chronic_threshold"`
	AcuteThreshold      *float64  `json:"acute_threshold"`
	TotalCounties       int       `json:"total_counties"`
	DoubleJeopardyCount int       `json:"dj_count"`
	ComputedAt          time.Time `json:"computed_at"`
}

// SnapshotArchive reads archived snapshots.
type SnapshotArchive interface {
	// ListSnapshots returns up to limit snapshots, newest first.
	ListSnapshots(ctx context.Context, limit int) ([]SnapshotRecord, error)
	// SnapshotCounties returns the classified counties of one snapshot,
	// or ErrSnapshotNotFound.
	SnapshotCounties(ctx context.Context, id uuid.UUID) ([]domain.ClassifiedCounty, error)
}

// ErrSnapshotNotFound is returned for an unknown snapshot ID.
var ErrSnapshotNotFound = errors.New("snapshot not found")
