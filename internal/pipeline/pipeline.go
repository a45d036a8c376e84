package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/county-aqi-risk/internal/domain"
	"github.com/couchcryptid/county-aqi-risk/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchExtractor reads up to batchSize raw messages from the stream.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawMessage, error)
}

// Transformer decodes a raw message into an observation row.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawMessage) (domain.RawObservation, error)
}

// BatchLoader folds decoded observation rows into the dataset. Errors
// wrapping domain.ErrBatchRejected are permanent; anything else is retried.
type BatchLoader interface {
	LoadBatch(ctx context.Context, rows []domain.RawObservation) error
}

// Pipeline streams observation rows into the dataset. Offsets are committed
// only once the rows they carry are part of the dataset, so a batch that
// cannot be folded in stays on the topic.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	batchSize   int

	ingested atomic.Bool
	backoff  time.Duration
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
		backoff:     initialBackoff,
	}
}

// CheckReadiness returns nil once at least one batch has been ingested.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ingested.Load() {
		return errors.New("pipeline has not ingested any observations yet")
	}
	return nil
}

// Run consumes the stream until ctx is cancelled. It returns an error only
// when the dataset rejects a batch outright; the rejected offsets are left
// uncommitted.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for {
		msgs, err := p.extractor.ExtractBatch(ctx, p.batchSize)
		if ctx.Err() != nil {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}
		if err != nil {
			p.logger.Error("extract batch failed", "error", err, "backoff", p.backoff)
			p.pause(ctx)
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		p.metrics.BatchSize.Observe(float64(len(msgs)))
		p.backoff = initialBackoff

		if err := p.ingest(ctx, msgs); err != nil {
			return err
		}
	}
}

// decoded holds the rows of one batch and the messages that carried them.
type decoded struct {
	rows []domain.RawObservation
	msgs []domain.RawMessage
}

// decode transforms each message. Messages that do not hold an observation
// are committed straight away; nothing will ever make them decodable.
func (p *Pipeline) decode(ctx context.Context, msgs []domain.RawMessage) decoded {
	d := decoded{
		rows: make([]domain.RawObservation, 0, len(msgs)),
		msgs: make([]domain.RawMessage, 0, len(msgs)),
	}
	for _, m := range msgs {
		obs, err := p.transformer.Transform(ctx, m)
		if err != nil {
			p.metrics.TransformErrors.Inc()
			p.logger.Warn("undecodable observation, skipping message",
				"error", err,
				"topic", m.Topic,
				"partition", m.Partition,
				"offset", m.Offset,
			)
			p.commit(ctx, m)
			continue
		}
		d.rows = append(d.rows, obs)
		d.msgs = append(d.msgs, m)
	}
	return d
}

// ingest folds one batch into the dataset, retrying the same rows on
// transient failures until they land or ctx ends.
func (p *Pipeline) ingest(ctx context.Context, msgs []domain.RawMessage) error {
	start := time.Now()
	d := p.decode(ctx, msgs)
	if len(d.rows) == 0 {
		return nil
	}

	for {
		err := p.loader.LoadBatch(ctx, d.rows)
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrBatchRejected) {
			p.metrics.LoadFailures.WithLabelValues("rejected").Inc()
			p.logger.Error("dataset rejected observation batch, stopping ingest",
				"error", err, "rows", len(d.rows))
			return fmt.Errorf("ingest: %w", err)
		}
		p.metrics.LoadFailures.WithLabelValues("transient").Inc()
		p.logger.Warn("load batch failed, retrying", "error", err, "rows", len(d.rows), "backoff", p.backoff)
		if !p.pause(ctx) {
			return nil
		}
	}

	for _, m := range d.msgs {
		p.commit(ctx, m)
	}
	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ingested.Store(true)
	return nil
}

// pause sleeps for the current backoff and grows it. It reports false if
// ctx ended first.
func (p *Pipeline) pause(ctx context.Context) bool {
	if !retry.SleepWithContext(ctx, p.backoff) {
		return false
	}
	p.backoff = retry.NextBackoff(p.backoff, maxBackoff)
	return true
}

func (p *Pipeline) commit(ctx context.Context, m domain.RawMessage) {
	if m.Commit == nil {
		return
	}
	if err := m.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", m.Topic, "partition", m.Partition, "offset", m.Offset)
	}
}
