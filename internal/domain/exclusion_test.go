package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExclusionList_Excludes(t *testing.T) {
	tests := []struct {
		name          string
		state, county string
		expected      bool
	}{
		{"exact", "California", "Mono", true},
		{"case insensitive", "CALIFORNIA", "mono", true},
		{"padded", "  California ", " Mono  ", true},
		{"other county", "California", "Inyo", false},
		{"other state", "Nevada", "Mono", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DefaultExclusions.Excludes(tt.state, tt.county))
		})
	}
}

func TestExclusionList_Filter(t *testing.T) {
	counties := []ClassifiedCounty{
		classified("California", "Mono", 300, 600, DoubleJeopardy),
		classified("California", "Los Angeles", 40, 80, LowRisk),
		classified("Texas", "Harris", 20, 30, LowRisk),
	}

	got := DefaultExclusions.Filter(counties)
	assert.Equal(t, []string{"Los Angeles", "Harris"}, classifiedNames(got))
	assert.Len(t, counties, 3)

	var none ExclusionList
	assert.Len(t, none.Filter(counties), 3)
}
