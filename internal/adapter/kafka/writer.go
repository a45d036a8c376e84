package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/county-aqi-risk/internal/config"
	"github.com/couchcryptid/county-aqi-risk/internal/dashboard"
	"github.com/couchcryptid/county-aqi-risk/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer the adapter uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes classification snapshots to the sink topic, one message
// per county. It implements dashboard.Publisher.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// countyRisk is the sink message payload.
type countyRisk struct {
	SnapshotID       string           `json:"snapshot_id"`
	DatasetVersion   string           `json:"dataset_version"`
	Scope            string           `json:"scope"`
	Percentile       float64          `json:"percentile"`
	ChronicThreshold *float64         `json:"chronic_threshold"`
	AcuteThreshold   *float64         `json:"acute_threshold"`
	State            string           `json:"state"`
	County           string           `json:"county"`
	MedianAQIAvg     float64          `json:"median_aqi_avg"`
	MaxAQIAvg        float64          `json:"max_aqi_avg"`
	HighAQIDaysTotal float64          `json:"high_aqi_days_total"`
	Observations     int              `json:"observations"`
	Risk             domain.RiskLabel `json:"risk"`
	ComputedAt       time.Time        `json:"computed_at"`
}

// PublishSnapshot writes every county of the snapshot in a single
// WriteMessages call. Messages are keyed by county so a county's history
// stays on one partition.
func (w *Writer) PublishSnapshot(ctx context.Context, snap dashboard.Snapshot) error {
	if len(snap.Counties) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(snap.Counties))
	for i, c := range snap.Counties {
		msg, err := serializeToMessage(snap, c)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write snapshot %s: %w", snap.ID, err)
	}
	w.logger.Debug("snapshot written to kafka", "snapshot_id", snap.ID, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func messageKey(c domain.ClassifiedCounty) []byte {
	return []byte(c.State + "|" + c.County)
}

// serializeToMessage marshals one county of a snapshot into a Kafka message.
func serializeToMessage(snap dashboard.Snapshot, c domain.ClassifiedCounty) (kafkago.Message, error) {
	data, err := json.Marshal(countyRisk{
		SnapshotID:       snap.ID.String(),
		DatasetVersion:   snap.DatasetVersion.String(),
		Scope:            string(snap.Params.Scope),
		Percentile:       snap.Params.Percentile,
		ChronicThreshold: snap.ChronicThreshold,
		AcuteThreshold:   snap.AcuteThreshold,
		State:            c.State,
		County:           c.County,
		MedianAQIAvg:     c.MedianAQIAvg,
		MaxAQIAvg:        c.MaxAQIAvg,
		HighAQIDaysTotal: c.HighAQIDaysTotal,
		Observations:     c.Observations,
		Risk:             c.Risk,
		ComputedAt:       snap.ComputedAt,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize county risk: %w", err)
	}
	return kafkago.Message{
		Key:   messageKey(c),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "risk", Value: []byte(c.Risk)},
			{Key: "snapshot_id", Value: []byte(snap.ID.String())},
			{Key: "computed_at", Value: []byte(snap.ComputedAt.Format(time.RFC3339))},
		},
	}, nil
}
