package domain

import "fmt"

// Scope restricts which regions take part in threshold computation.
type Scope string

const (
	ScopeAll Scope = "all"
	ScopeUS  Scope = "us"
)

// ParseScope validates a scope string.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeAll, ScopeUS:
		return Scope(s), nil
	default:
		return "", fmt.Errorf("unknown scope %q", s)
	}
}

// ApplyScope filters counties to the given scope. ScopeAll returns the input
// unchanged; ScopeUS keeps the 50 states and DC in input order. Any other
// scope matches nothing.
func ApplyScope(counties []CountySummary, scope Scope) []CountySummary {
	switch scope {
	case ScopeAll:
		return counties
	case ScopeUS:
		out := make([]CountySummary, 0, len(counties))
		for _, c := range counties {
			if IsUSStateOrDC(c.State) {
				out = append(out, c)
			}
		}
		return out
	default:
		return []CountySummary{}
	}
}
