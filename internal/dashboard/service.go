package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/county-aqi-risk/internal/domain"
	"github.com/couchcryptid/county-aqi-risk/internal/observability"
)

var (
	// ErrNoDataset is returned until the first successful load or ingest.
	ErrNoDataset = errors.New("no dataset loaded")
	// ErrSummaryIngest rejects observation rows on top of a precomputed summary,
	// which has lost the per-year tallies needed to fold them in.
	ErrSummaryIngest = fmt.Errorf("%w: cannot ingest observations into a precomputed summary", domain.ErrBatchRejected)
	// ErrNoLoader is returned by Reload on stream-only services.
	ErrNoLoader = errors.New("no loader configured")
)

// ViewCache stores encoded views by key. Implementations must be safe for
// concurrent use.
type ViewCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Options configures a Service.
type Options struct {
	Defaults   Params
	Exclusions domain.ExclusionList
	Cache      ViewCache // nil disables view caching
	Sinks      []Sink

	// PublishInterval coalesces the snapshots triggered by LoadBatch into at
	// most one per interval. Zero publishes after every batch. Reloads always
	// publish immediately.
	PublishInterval time.Duration
	Clock           clockwork.Clock // nil uses the real clock
}

// Service owns the current dataset and serves views over it.
type Service struct {
	loader  Loader
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics

	mu       sync.RWMutex
	dataset  *Dataset
	tally    *domain.Accumulator // loaded plus streamed rows
	streamed *domain.Accumulator // streamed rows only, carried across reloads

	clock   clockwork.Clock
	pubMu   sync.Mutex
	pending clockwork.Timer
}

// NewService creates a Service. loader may be nil for stream-only setups.
func NewService(loader Loader, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Service {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		loader:   loader,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
		streamed: domain.NewAccumulator(),
		clock:    clock,
	}
}

// Defaults returns the parameters used when a request sets none.
func (s *Service) Defaults() Params { return s.opts.Defaults }

// Dataset returns the current dataset.
func (s *Service) Dataset() (Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil {
		return Dataset{}, ErrNoDataset
	}
	return *s.dataset, nil
}

// CheckReadiness reports ready once a dataset is available.
func (s *Service) CheckReadiness(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil {
		return ErrNoDataset
	}
	return nil
}

// Reload replaces the dataset with a fresh load. Rows streamed in through
// LoadBatch are folded into the new dataset, so a reload never loses
// ingested data. On failure the previous dataset is kept.
func (s *Service) Reload(ctx context.Context) (Dataset, error) {
	if s.loader == nil {
		return Dataset{}, ErrNoLoader
	}

	start := time.Now()
	in, err := s.loader.Load(ctx)
	if err != nil {
		s.metrics.DatasetReloads.WithLabelValues("error").Inc()
		return Dataset{}, fmt.Errorf("load dataset: %w", err)
	}
	if in.Tally != nil {
		s.metrics.ObservationsDropped.Add(float64(in.Tally.Dropped()))
	}

	s.mu.Lock()
	ds, tally := s.rebase(in)
	s.dataset = &ds
	s.tally = tally
	s.mu.Unlock()

	s.metrics.DatasetReloads.WithLabelValues("success").Inc()
	s.metrics.DatasetCounties.Set(float64(len(ds.Counties)))
	s.logger.Info("dataset loaded",
		"origin", ds.Origin,
		"counties", len(ds.Counties),
		"version", ds.Version,
		"duration", time.Since(start),
	)

	s.cancelPending()
	s.publish(ctx, ds)
	return ds, nil
}

// rebase builds the dataset for a fresh load on top of every row streamed
// so far, including rows that arrived while the loader ran. s.mu must be
// held.
func (s *Service) rebase(in Input) (Dataset, *domain.Accumulator) {
	if in.Origin == OriginSummary {
		if n := s.streamed.Len(); n > 0 {
			s.logger.Warn("precomputed summary replaces streamed observations", "streamed_counties", n)
		}
		return NewDataset(in), nil
	}

	tally := domain.NewAccumulator()
	if in.Tally != nil {
		tally = in.Tally.Clone()
	}
	tally.Merge(s.streamed)
	return NewDataset(Input{Origin: in.Origin, Tally: tally}), tally
}

// LoadBatch folds streamed observation rows into the current dataset and
// mints a new version. It satisfies the ingest pipeline's loader stage.
// Batches on top of a precomputed summary fail with ErrSummaryIngest, which
// the pipeline treats as permanent.
func (s *Service) LoadBatch(ctx context.Context, rows []domain.RawObservation) error {
	s.mu.Lock()
	if s.dataset != nil && s.dataset.Origin == OriginSummary {
		s.mu.Unlock()
		return ErrSummaryIngest
	}

	origin := OriginStream
	if s.dataset != nil {
		origin = s.dataset.Origin
	}
	if s.tally == nil {
		s.tally = domain.NewAccumulator()
	}
	accepted := s.tally.AddAll(rows)
	s.streamed.AddAll(rows)
	ds := newDataset(origin, s.tally.Summaries())
	s.dataset = ds
	s.mu.Unlock()

	s.metrics.ObservationsConsumed.Add(float64(len(rows)))
	s.metrics.ObservationsDropped.Add(float64(len(rows) - accepted))
	s.metrics.DatasetCounties.Set(float64(len(ds.Counties)))
	s.logger.Debug("observations ingested",
		"rows", len(rows),
		"accepted", accepted,
		"counties", len(ds.Counties),
		"version", ds.Version,
	)

	s.schedulePublish(ctx, *ds)
	return nil
}

// View returns the dashboard view for p, from cache when possible.
func (s *Service) View(ctx context.Context, p Params) (View, error) {
	if err := p.Validate(); err != nil {
		return View{}, err
	}
	ds, err := s.Dataset()
	if err != nil {
		return View{}, err
	}

	key := "view:" + ds.Version.String() + ":" + p.Key()
	if v, ok := s.cached(ctx, key); ok {
		return v, nil
	}

	start := time.Now()
	v := Build(ds, p, s.opts.Exclusions)
	s.metrics.ViewComputeDuration.Observe(time.Since(start).Seconds())

	if s.opts.Cache != nil {
		b, err := json.Marshal(v)
		if err != nil {
			return View{}, fmt.Errorf("encode view: %w", err)
		}
		if err := s.opts.Cache.Set(ctx, key, b); err != nil {
			s.logger.Warn("view cache write failed", "error", err, "key", key)
		}
	}
	return v, nil
}

func (s *Service) cached(ctx context.Context, key string) (View, bool) {
	if s.opts.Cache == nil {
		return View{}, false
	}
	b, ok, err := s.opts.Cache.Get(ctx, key)
	if err != nil {
		s.metrics.ViewCache.WithLabelValues("error").Inc()
		s.logger.Warn("view cache read failed", "error", err, "key", key)
		return View{}, false
	}
	if !ok {
		s.metrics.ViewCache.WithLabelValues("miss").Inc()
		return View{}, false
	}
	var v View
	if err := json.Unmarshal(b, &v); err != nil {
		s.metrics.ViewCache.WithLabelValues("error").Inc()
		s.logger.Warn("cached view undecodable", "error", err, "key", key)
		return View{}, false
	}
	s.metrics.ViewCache.WithLabelValues("hit").Inc()
	return v, true
}

// schedulePublish publishes ds now when no PublishInterval is set. Otherwise
// it arms a single timer; the snapshot taken when it fires covers every batch
// ingested in between.
func (s *Service) schedulePublish(ctx context.Context, ds Dataset) {
	if s.opts.PublishInterval <= 0 {
		s.publish(ctx, ds)
		return
	}

	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if s.pending != nil || len(s.opts.Sinks) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.pending = s.clock.AfterFunc(s.opts.PublishInterval, func() {
		s.pubMu.Lock()
		s.pending = nil
		s.pubMu.Unlock()
		s.publishCurrent(ctx)
	})
}

// Flush publishes a snapshot scheduled by LoadBatch right away instead of
// waiting for its timer. Call it before shutdown.
func (s *Service) Flush(ctx context.Context) {
	if s.cancelPending() {
		s.publishCurrent(ctx)
	}
}

// cancelPending stops a scheduled publish and reports whether one was
// waiting.
func (s *Service) cancelPending() bool {
	s.pubMu.Lock()
	t := s.pending
	s.pending = nil
	s.pubMu.Unlock()
	return t != nil && t.Stop()
}

func (s *Service) publishCurrent(ctx context.Context) {
	ds, err := s.Dataset()
	if err != nil {
		return
	}
	s.publish(ctx, ds)
}

// publish sends the default-parameter snapshot of ds to every sink. Sink
// failures are logged and counted; they never fail the caller.
func (s *Service) publish(ctx context.Context, ds Dataset) {
	if len(s.opts.Sinks) == 0 {
		return
	}
	snap := NewSnapshot(ds, s.opts.Defaults)
	for _, sink := range s.opts.Sinks {
		if err := sink.Publisher.PublishSnapshot(ctx, snap); err != nil {
			s.metrics.SnapshotsPublished.WithLabelValues(sink.Name, "error").Inc()
			s.logger.Error("publish snapshot failed", "sink", sink.Name, "snapshot_id", snap.ID, "error", err)
			continue
		}
		s.metrics.SnapshotsPublished.WithLabelValues(sink.Name, "success").Inc()
		s.logger.Info("snapshot published",
			"sink", sink.Name,
			"snapshot_id", snap.ID,
			"counties", len(snap.Counties),
			"dj_count", snap.DoubleJeopardyCount(),
		)
	}
}
