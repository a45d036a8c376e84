package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScope(t *testing.T) {
	s, err := ParseScope("all")
	require.NoError(t, err)
	assert.Equal(t, ScopeAll, s)

	s, err = ParseScope("us")
	require.NoError(t, err)
	assert.Equal(t, ScopeUS, s)

	_, err = ParseScope("US")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scope")
}

func TestApplyScope(t *testing.T) {
	counties := []CountySummary{
		summary("Texas", "Harris", 1, 1),
		summary("Country Of Mexico", "Tijuana", 1, 1),
		summary("District Of Columbia", "District of Columbia", 1, 1),
		summary("Puerto Rico", "Bayamon", 1, 1),
		summary("Alaska", "Anchorage", 1, 1),
	}

	t.Run("all is identity", func(t *testing.T) {
		assert.Equal(t, counties, ApplyScope(counties, ScopeAll))
	})

	t.Run("us keeps states and DC in order", func(t *testing.T) {
		got := ApplyScope(counties, ScopeUS)
		require.Len(t, got, 3)
		assert.Equal(t, "Texas", got[0].State)
		assert.Equal(t, "District Of Columbia", got[1].State)
		assert.Equal(t, "Alaska", got[2].State)
		for _, c := range got {
			assert.True(t, IsUSStateOrDC(c.State))
		}
	})

	t.Run("unknown scope matches nothing", func(t *testing.T) {
		got := ApplyScope(counties, Scope("mars"))
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("filtering twice is a no-op", func(t *testing.T) {
		for _, scope := range []Scope{ScopeAll, ScopeUS, Scope("mars")} {
			once := ApplyScope(counties, scope)
			assert.Equal(t, once, ApplyScope(once, scope), string(scope))
		}
	})

	t.Run("us is a subset of all", func(t *testing.T) {
		assert.LessOrEqual(t, len(ApplyScope(counties, ScopeUS)), len(ApplyScope(counties, ScopeAll)))
	})
}

func TestStateAbbreviation(t *testing.T) {
	tests := []struct {
		state string
		abbr  string
		ok    bool
	}{
		{"California", "CA", true},
		{"District of Columbia", "DC", true},
		{"District Of Columbia", "DC", true},
		{"Wyoming", "WY", true},
		{"Puerto Rico", "", false},
		{"california", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			abbr, ok := StateAbbreviation(tt.state)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.abbr, abbr)
		})
	}
}

func TestUSStateTableSize(t *testing.T) {
	codes := make(map[string]struct{})
	for _, abbr := range usStateAbbr {
		codes[abbr] = struct{}{}
	}
	assert.Len(t, codes, 51)
}
