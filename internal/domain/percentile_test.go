package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		p        float64
		expected float64
	}{
		{"single value p=0", []float64{42}, 0, 42},
		{"single value p=0.5", []float64{42}, 0.5, 42},
		{"single value p=1", []float64{42}, 1, 42},
		{"min at p=0", []float64{5, 1, 9, 3}, 0, 1},
		{"max at p=1", []float64{5, 1, 9, 3}, 1, 9},
		{"exact rank", []float64{10, 20, 30}, 0.5, 20},
		{"interpolated", []float64{20, 40, 300}, 0.9, 248},
		{"interpolated max column", []float64{30, 80, 600}, 0.9, 496},
		{"unsorted input", []float64{4, 1, 3, 2}, 0.5, 2.5},
		{"ignores NaN", []float64{math.NaN(), 10, 20}, 1, 20},
		{"ignores Inf", []float64{math.Inf(1), 10, math.Inf(-1), 20}, 0, 10},
		{"p clamped above", []float64{1, 2, 3}, 1.5, 3},
		{"p clamped below", []float64{1, 2, 3}, -0.5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Percentile(tt.values, tt.p), 1e-9)
		})
	}
}

func TestPercentile_EmptyIsNaN(t *testing.T) {
	for _, p := range []float64{0, 0.25, 0.9, 1} {
		assert.True(t, math.IsNaN(Percentile(nil, p)), "p=%v", p)
		assert.True(t, math.IsNaN(Percentile([]float64{}, p)), "p=%v", p)
	}
	assert.True(t, math.IsNaN(Percentile([]float64{math.NaN(), math.Inf(1)}, 0.5)))
	assert.True(t, math.IsNaN(Percentile([]float64{1, 2}, math.NaN())))
}

func TestPercentile_DoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Percentile(values, 0.5)
	assert.Equal(t, []float64{3, 1, 2}, values)
}
