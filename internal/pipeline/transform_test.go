package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/county-aqi-risk/internal/domain"
	"github.com/couchcryptid/county-aqi-risk/internal/pipeline"
)

func TestObservationTransformer_Transform(t *testing.T) {
	tfm := pipeline.NewTransformer(discardLogger())

	got, err := tfm.Transform(context.Background(), message(t, 1, map[string]any{
		"State":                               "California",
		"County":                              "Mono",
		"Year":                                "2025",
		"Median AQI":                          "300",
		"Max AQI":                             600,
		"Unhealthy for Sensitive Groups Days": 4,
	}, nil))
	require.NoError(t, err)

	assert.Equal(t, domain.RawObservation{
		State: "California", County: "Mono", Year: 2025,
		MedianAQI: 300, MaxAQI: 600, UnhealthySensitiveDays: 4,
	}, got)
}

func TestObservationTransformer_Invalid(t *testing.T) {
	tfm := pipeline.NewTransformer(discardLogger())

	_, err := tfm.Transform(context.Background(), domain.RawMessage{Value: []byte(`[1,2,3]`)})
	require.Error(t, err)
}
