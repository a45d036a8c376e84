package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/couchcryptid/county-aqi-risk/internal/dashboard"
	"github.com/couchcryptid/county-aqi-risk/internal/domain"
)

// SummaryRow is one county in the precomputed summary file. Field names
// follow the file's established column spelling.
type SummaryRow struct {
	State     string  `json:"State"`
	County    string  `json:"County"`
	MedianAQI float64 `json:"Median AQI"`
	MaxAQI    float64 `json:"Max AQI"`
	Risk      string  `json:"Risk,omitempty"`
}

// SummaryMetadata carries the headline figures of the summary file.
type SummaryMetadata struct {
	TotalCounties    int      `json:"total_counties"`
	DJCount          int      `json:"dj_count"`
	ChronicThreshold *float64 `json:"chronic_threshold"`
	AcuteThreshold   *float64 `json:"acute_threshold"`
	Percentile       *float64 `json:"percentile,omitempty"` // fraction; nil in files that predate it
}

// Summary is the dashboard_data.json document.
type Summary struct {
	Metadata    SummaryMetadata `json:"metadata"`
	ScatterData []SummaryRow    `json:"scatter_data"`
	ChronicTop  []SummaryRow    `json:"chronic_top"`
	AcuteTop    []SummaryRow    `json:"acute_top"`
	DJCounties  []SummaryRow    `json:"dj_counties"`
}

// DecodeSummary parses a summary document.
func DecodeSummary(r io.Reader) (Summary, error) {
	var s Summary
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return Summary{}, fmt.Errorf("decode summary: %w", err)
	}
	return s, nil
}

// Encode writes s as indented JSON.
func (s Summary) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

// Counties converts the scatter series back to county summaries. Rows with
// an empty key are skipped, and only the first row for a county is kept.
// Anomaly-day totals and observation counts are not part of the file and
// stay zero.
func (s Summary) Counties() []domain.CountySummary {
	out := make([]domain.CountySummary, 0, len(s.ScatterData))
	seen := make(map[domain.CountyKey]struct{}, len(s.ScatterData))
	for _, r := range s.ScatterData {
		key := domain.CountyKey{State: strings.TrimSpace(r.State), County: strings.TrimSpace(r.County)}
		if key.State == "" || key.County == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, domain.CountySummary{
			State:        key.State,
			County:       key.County,
			MedianAQIAvg: r.MedianAQI,
			MaxAQIAvg:    r.MaxAQI,
		})
	}
	return out
}

// NewSummary renders a snapshot in the summary file shape. topN bounds the
// chronic and acute lists; every Double Jeopardy county is listed.
func NewSummary(snap dashboard.Snapshot, topN int) Summary {
	dj := make([]domain.ClassifiedCounty, 0)
	for _, c := range snap.Counties {
		if c.Risk == domain.DoubleJeopardy {
			dj = append(dj, c)
		}
	}

	pct := snap.Params.Percentile
	return Summary{
		Metadata: SummaryMetadata{
			TotalCounties:    len(snap.Counties),
			DJCount:          len(dj),
			ChronicThreshold: snap.ChronicThreshold,
			AcuteThreshold:   snap.AcuteThreshold,
			Percentile:       &pct,
		},
		ScatterData: rows(snap.Counties),
		ChronicTop:  rows(domain.TopChronic(snap.Counties, topN)),
		AcuteTop:    rows(domain.TopAcute(snap.Counties, topN)),
		DJCounties:  rows(dj),
	}
}

func rows(counties []domain.ClassifiedCounty) []SummaryRow {
	out := make([]SummaryRow, len(counties))
	for i, c := range counties {
		out[i] = SummaryRow{
			State:     c.State,
			County:    c.County,
			MedianAQI: c.MedianAQIAvg,
			MaxAQI:    c.MaxAQIAvg,
			Risk:      string(c.Risk),
		}
	}
	return out
}

// SummaryLoader reads a precomputed summary file.
type SummaryLoader struct {
	Path string
}

// Load implements dashboard.Loader.
func (l SummaryLoader) Load(_ context.Context) (dashboard.Input, error) {
	s, err := ReadSummaryFile(l.Path)
	if err != nil {
		return dashboard.Input{}, err
	}
	return dashboard.Input{Origin: dashboard.OriginSummary, Summaries: s.Counties()}, nil
}

// ReadSummaryFile opens and decodes a summary file.
func ReadSummaryFile(path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open summary: %w", err)
	}
	defer f.Close()

	s, err := DecodeSummary(f)
	if err != nil {
		return Summary{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
