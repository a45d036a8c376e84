package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RawMessage is an unprocessed message from the observation stream.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// streamAliases maps the snake_case field names accepted on the stream to
// the annual file columns.
var streamAliases = map[string]string{
	"state":                    ColState,
	"county":                   ColCounty,
	"year":                     ColYear,
	"median_aqi":               ColMedianAQI,
	"max_aqi":                  ColMaxAQI,
	"unhealthy_sensitive_days": ColUnhealthySensitiveDays,
	"unhealthy_days":           ColUnhealthyDays,
	"very_unhealthy_days":      ColVeryUnhealthyDays,
	"hazardous_days":           ColHazardousDays,
}

// ErrIncompleteObservation is returned for rows without a county key or
// numeric metrics.
var ErrIncompleteObservation = errors.New("incomplete observation")

// ErrBatchRejected marks a batch the dataset can never accept, however
// often it is retried.
var ErrBatchRejected = errors.New("observation batch rejected")

// ParseObservationMessage decodes one county-year row from a JSON object.
// Keys may use either the annual file column names or snake_case; values
// may be numbers or numeric strings.
func ParseObservationMessage(raw RawMessage) (RawObservation, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw.Value, &obj); err != nil {
		return RawObservation{}, fmt.Errorf("parse observation: %w", err)
	}

	rec := make(map[string]string, len(obj))
	for k, v := range obj {
		if col, ok := streamAliases[k]; ok {
			k = col
		}
		switch val := v.(type) {
		case string:
			rec[k] = val
		case float64:
			rec[k] = strconv.FormatFloat(val, 'f', -1, 64)
		}
	}

	o := ObservationFromRecord(rec)
	if strings.TrimSpace(o.State) == "" || strings.TrimSpace(o.County) == "" || !isFinite(o.MedianAQI) || !isFinite(o.MaxAQI) {
		return RawObservation{}, fmt.Errorf("%w: state=%q county=%q", ErrIncompleteObservation, o.State, o.County)
	}
	return o, nil
}
