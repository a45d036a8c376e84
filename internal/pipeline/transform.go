package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/county-aqi-risk/internal/domain"
)

// ObservationTransformer implements Transformer by decoding JSON county-year rows.
type ObservationTransformer struct {
	logger *slog.Logger
}

// NewTransformer creates an ObservationTransformer.
func NewTransformer(logger *slog.Logger) *ObservationTransformer {
	return &ObservationTransformer{logger: logger}
}

func (t *ObservationTransformer) Transform(_ context.Context, raw domain.RawMessage) (domain.RawObservation, error) {
	obs, err := domain.ParseObservationMessage(raw)
	if err != nil {
		return domain.RawObservation{}, err
	}
	t.logger.Debug("observation decoded",
		"state", obs.State,
		"county", obs.County,
		"year", obs.Year,
		"offset", raw.Offset,
	)
	return obs, nil
}
