package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/county-aqi-risk/internal/dashboard"
	"github.com/couchcryptid/county-aqi-risk/internal/domain"
	"github.com/couchcryptid/county-aqi-risk/internal/observability"
	"github.com/couchcryptid/county-aqi-risk/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawMessage
	index   atomic.Int64
	errs    []error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawMessage, error) {
	i := int(m.index.Add(1) - 1)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockLoader struct {
	mu      sync.Mutex
	batches [][]domain.RawObservation
	failN   int
}

func (m *mockLoader) LoadBatch(_ context.Context, rows []domain.RawObservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failN > 0 {
		m.failN--
		return errors.New("dataset locked")
	}
	m.batches = append(m.batches, rows)
	return nil
}

func (m *mockLoader) rows() []domain.RawObservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.RawObservation
	for _, b := range m.batches {
		out = append(out, b...)
	}
	return out
}

type commitLog struct {
	mu      sync.Mutex
	offsets []int64
}

func (c *commitLog) commitFor(offset int64) func(context.Context) error {
	return func(context.Context) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.offsets = append(c.offsets, offset)
		return nil
	}
}

func (c *commitLog) committed() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.offsets...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func message(t *testing.T, offset int64, obs map[string]any, commits *commitLog) domain.RawMessage {
	t.Helper()
	b, err := json.Marshal(obs)
	require.NoError(t, err)
	msg := domain.RawMessage{
		Key:    []byte("k"),
		Value:  b,
		Topic:  "aqi-observations",
		Offset: offset,
	}
	if commits != nil {
		msg.Commit = commits.commitFor(offset)
	}
	return msg
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	commits := &commitLog{}
	ext := &mockExtractor{batches: [][]domain.RawMessage{{
		message(t, 1, map[string]any{"state": "Utah", "county": "Salt Lake", "median_aqi": 44, "max_aqi": 160}, commits),
		message(t, 2, map[string]any{"state": "Texas", "county": "Harris", "median_aqi": 20, "max_aqi": 30}, commits),
	}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, pipeline.NewTransformer(discardLogger()), ldr, discardLogger(), metrics, 50)

	runFor(t, p, 300*time.Millisecond)

	rows := ldr.rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "Salt Lake", rows[0].County)
	assert.Equal(t, []int64{1, 2}, commits.committed())
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning), 1e-9)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{}
	ldr := &mockLoader{}

	p := pipeline.New(ext, pipeline.NewTransformer(discardLogger()), ldr, discardLogger(), observability.NewMetricsForTesting(), 50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.rows())
	require.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_UndecodableMessagesAreSkippedAndCommitted(t *testing.T) {
	commits := &commitLog{}
	bad := domain.RawMessage{Value: []byte(`{"state":`), Offset: 7, Commit: commits.commitFor(7)}
	ext := &mockExtractor{batches: [][]domain.RawMessage{{
		bad,
		message(t, 8, map[string]any{"state": "Texas", "county": "", "median_aqi": 1, "max_aqi": 2}, commits),
	}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, pipeline.NewTransformer(discardLogger()), ldr, discardLogger(), metrics, 50)

	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, ldr.rows())
	assert.ElementsMatch(t, []int64{7, 8}, commits.committed())
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.TransformErrors), 1e-9)
	require.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_TransientLoadFailureRetriesSameBatch(t *testing.T) {
	commits := &commitLog{}
	msg := message(t, 3, map[string]any{"state": "Texas", "county": "Harris", "median_aqi": 20, "max_aqi": 30}, commits)
	ext := &mockExtractor{batches: [][]domain.RawMessage{{msg}}}
	ldr := &mockLoader{failN: 2}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, pipeline.NewTransformer(discardLogger()), ldr, discardLogger(), metrics, 50)

	runFor(t, p, 2*time.Second)

	// The batch is held and retried rather than dropped; it commits once.
	assert.Len(t, ldr.rows(), 1)
	assert.Equal(t, []int64{3}, commits.committed())
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.LoadFailures.WithLabelValues("transient")), 1e-9)
	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.LoadFailures.WithLabelValues("rejected")), 1e-9)
	require.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_RejectedBatchStopsWithoutCommit(t *testing.T) {
	summary := dashboard.LoaderFunc(func(context.Context) (dashboard.Input, error) {
		return dashboard.Input{Origin: dashboard.OriginSummary, Summaries: []domain.CountySummary{
			{State: "Texas", County: "Harris", MedianAQIAvg: 20, MaxAQIAvg: 30, Observations: 5},
		}}, nil
	})
	metrics := observability.NewMetricsForTesting()
	svc := dashboard.NewService(summary, dashboard.Options{Defaults: dashboard.DefaultParams()}, discardLogger(), metrics)
	_, err := svc.Reload(context.Background())
	require.NoError(t, err)

	commits := &commitLog{}
	ext := &mockExtractor{batches: [][]domain.RawMessage{
		{
			message(t, 1, map[string]any{"state": "Utah", "county": "Salt Lake", "median_aqi": 44, "max_aqi": 160}, commits),
			message(t, 2, map[string]any{"state": "Utah", "county": "Utah", "median_aqi": 30, "max_aqi": 90}, commits),
		},
		{message(t, 3, map[string]any{"state": "Utah", "county": "Cache", "median_aqi": 25, "max_aqi": 70}, commits)},
	}}

	p := pipeline.New(ext, pipeline.NewTransformer(discardLogger()), svc, discardLogger(), metrics, 50)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err = p.Run(ctx)

	require.ErrorIs(t, err, dashboard.ErrSummaryIngest)
	require.ErrorIs(t, err, domain.ErrBatchRejected)
	assert.NoError(t, ctx.Err(), "rejection must stop the loop without waiting for cancellation")
	assert.Empty(t, commits.committed())
	assert.Equal(t, int64(1), ext.index.Load(), "no batch after the rejected one is read")
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.LoadFailures.WithLabelValues("rejected")), 1e-9)
	require.Error(t, p.CheckReadiness(context.Background()))

	ds, err := svc.Dataset()
	require.NoError(t, err)
	assert.Len(t, ds.Counties, 1)
}

func TestPipeline_Run_ExtractErrorBacksOff(t *testing.T) {
	commits := &commitLog{}
	ext := &mockExtractor{
		errs: []error{errors.New("broker unavailable")},
		batches: [][]domain.RawMessage{
			nil,
			{message(t, 1, map[string]any{"state": "Utah", "county": "Utah", "median_aqi": 30, "max_aqi": 90}, commits)},
		},
	}
	ldr := &mockLoader{}

	p := pipeline.New(ext, pipeline.NewTransformer(discardLogger()), ldr, discardLogger(), observability.NewMetricsForTesting(), 50)

	runFor(t, p, time.Second)

	assert.Len(t, ldr.rows(), 1)
	assert.Equal(t, []int64{1}, commits.committed())
}
