package dashboard

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/couchcryptid/county-aqi-risk/internal/domain"
)

// ErrInvalidParams marks a request parameter that failed validation.
var ErrInvalidParams = errors.New("invalid parameters")

// Params selects one view of the dataset. Percentile is a fraction in [0, 1].
type Params struct {
	Scope      domain.Scope `json:"scope"`
	Percentile float64      `json:"percentile"`
	Region     string       `json:"state"`
	TopChronic int          `json:"top_chronic"`
	TopAcute   int          `json:"top_acute"`
	TopLivable int          `json:"top_livable"`
	DJTopK     int          `json:"dj_k"`
}

// DefaultParams mirrors the dashboard's initial state.
func DefaultParams() Params {
	return Params{
		Scope:      domain.ScopeAll,
		Percentile: domain.DefaultPercentile,
		Region:     domain.AllRegions,
		TopChronic: 15,
		TopAcute:   15,
		TopLivable: 15,
		DJTopK:     5,
	}
}

// Validate checks every field.
func (p Params) Validate() error {
	if _, err := domain.ParseScope(string(p.Scope)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if math.IsNaN(p.Percentile) || p.Percentile < 0 || p.Percentile > 1 {
		return fmt.Errorf("%w: percentile %v outside [0, 1]", ErrInvalidParams, p.Percentile)
	}
	if strings.TrimSpace(p.Region) == "" {
		return fmt.Errorf("%w: state is empty", ErrInvalidParams)
	}
	for _, f := range []struct {
		name string
		n    int
	}{
		{"top_chronic", p.TopChronic},
		{"top_acute", p.TopAcute},
		{"top_livable", p.TopLivable},
		{"dj_k", p.DJTopK},
	} {
		if f.n <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidParams, f.name, f.n)
		}
	}
	return nil
}

// Key is a canonical encoding of p, used to key cached views.
func (p Params) Key() string {
	return p.values().Encode()
}

func (p Params) values() url.Values {
	v := url.Values{}
	v.Set("scope", string(p.Scope))
	v.Set("percentile", strconv.FormatFloat(p.Percentile*100, 'g', -1, 64))
	v.Set("state", p.Region)
	v.Set("top_chronic", strconv.Itoa(p.TopChronic))
	v.Set("top_acute", strconv.Itoa(p.TopAcute))
	v.Set("top_livable", strconv.Itoa(p.TopLivable))
	v.Set("dj_k", strconv.Itoa(p.DJTopK))
	return v
}

// ParamsFromQuery overlays query parameters onto defaults. percentile is
// read as a percentage (0-100); state "" or "ALL" selects every region.
func ParamsFromQuery(q url.Values, defaults Params) (Params, error) {
	p := defaults

	if s := q.Get("scope"); s != "" {
		scope, err := domain.ParseScope(strings.ToLower(strings.TrimSpace(s)))
		if err != nil {
			return Params{}, fmt.Errorf("%w: %w", ErrInvalidParams, err)
		}
		p.Scope = scope
	}

	if s := q.Get("percentile"); s != "" {
		pct, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(pct) || pct < 0 || pct > 100 {
			return Params{}, fmt.Errorf("%w: percentile must be a number between 0 and 100, got %q", ErrInvalidParams, s)
		}
		p.Percentile = pct / 100
	}

	if s := strings.TrimSpace(q.Get("state")); s != "" {
		if strings.EqualFold(s, domain.AllRegions) {
			s = domain.AllRegions
		}
		p.Region = s
	}

	for _, f := range []struct {
		key string
		dst *int
	}{
		{"top_chronic", &p.TopChronic},
		{"top_acute", &p.TopAcute},
		{"top_livable", &p.TopLivable},
		{"dj_k", &p.DJTopK},
	} {
		s := q.Get(f.key)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n <= 0 {
			return Params{}, fmt.Errorf("%w: %s must be a positive integer, got %q", ErrInvalidParams, f.key, s)
		}
		*f.dst = n
	}

	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}
