// Command validate checks a precomputed dashboard_data.json against a fresh
// aggregation of the annual county CSVs: county counts, thresholds, per-county
// averages, risk labels, and the top lists.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -data-dir data \
//	  -summary data/dashboard_data.json
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/couchcryptid/county-aqi-risk/internal/dashboard"
	"github.com/couchcryptid/county-aqi-risk/internal/domain"
	"github.com/couchcryptid/county-aqi-risk/internal/source"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataDir := flag.String("data-dir", "data", "directory containing annual_aqi_by_county_*.csv files")
	glob := flag.String("glob", source.DefaultGlob, "annual file pattern")
	summaryPath := flag.String("summary", "", "path to dashboard_data.json")
	scope := flag.String("scope", string(domain.ScopeAll), "threshold scope the summary was built with")
	percentile := flag.Float64("percentile", domain.DefaultPercentile*100, "percentile (0-100), used when the summary does not record one")
	tolerance := flag.Float64("tolerance", 0.01, "absolute tolerance for AQI values")
	flag.Parse()

	if *summaryPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*dataDir, *glob, *summaryPath, *scope, *percentile/100, *tolerance))
}

func run(dataDir, glob, summaryPath, scope string, pct, tol float64) int {
	fmt.Println("=== County AQI Summary Validation ===")
	fmt.Println()

	summary, err := source.ReadSummaryFile(summaryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load summary: %v\n", err)
		return 1
	}

	sc, err := domain.ParseScope(strings.ToLower(scope))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	in, err := source.NewDirLoader(dataDir, glob, logger).Load(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load annual CSVs: %v\n", err)
		return 1
	}

	p := dashboard.DefaultParams()
	p.Scope = sc
	p.Percentile = summaryPercentile(summary.Metadata, pct)
	want := dashboard.NewSnapshot(dashboard.NewDataset(in), p)

	phases := validate(summary, want, tol)

	allPassed := true
	for _, ph := range phases {
		status := "\033[32mPASS\033[0m"
		if !ph.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(ph.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", ph.name, status)
	}

	fmt.Println()
	fmt.Printf("Counties: %d in summary, %d recomputed (p%.0f, scope %s)\n",
		len(summary.ScatterData), len(want.Counties), p.Percentile*100, p.Scope)

	for _, ph := range phases {
		if ph.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", ph.name)
		for i, e := range ph.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// summaryPercentile prefers the percentile the summary records, including
// zero, over the flag value.
func summaryPercentile(meta source.SummaryMetadata, fallback float64) float64 {
	if meta.Percentile != nil {
		return *meta.Percentile
	}
	return fallback
}

func validate(got source.Summary, want dashboard.Snapshot, tol float64) []*phase {
	return []*phase{
		validateMetadata(got, want, tol),
		validateCounties(got, want, tol),
		validateTopList("Chronic top list", got.ChronicTop, domain.TopChronic(want.Counties, len(got.ChronicTop))),
		validateTopList("Acute top list", got.AcuteTop, domain.TopAcute(want.Counties, len(got.AcuteTop))),
		validateDoubleJeopardy(got, want),
	}
}

func validateMetadata(got source.Summary, want dashboard.Snapshot, tol float64) *phase {
	p := &phase{name: "Metadata"}
	m := got.Metadata

	if m.TotalCounties != len(want.Counties) {
		p.errorf("total_counties: got %d, want %d", m.TotalCounties, len(want.Counties))
	}
	if m.TotalCounties != len(got.ScatterData) {
		p.errorf("total_counties %d disagrees with %d scatter rows", m.TotalCounties, len(got.ScatterData))
	}
	if m.DJCount != want.DoubleJeopardyCount() {
		p.errorf("dj_count: got %d, want %d", m.DJCount, want.DoubleJeopardyCount())
	}
	checkThreshold(p, "chronic_threshold", m.ChronicThreshold, want.ChronicThreshold, tol)
	checkThreshold(p, "acute_threshold", m.AcuteThreshold, want.AcuteThreshold, tol)
	return p
}

func checkThreshold(p *phase, name string, got, want *float64, tol float64) {
	switch {
	case got == nil && want == nil:
	case got == nil || want == nil:
		p.errorf("%s: got %s, want %s", name, fmtPtr(got), fmtPtr(want))
	case math.Abs(*got-*want) > tol:
		p.errorf("%s: got %.4f, want %.4f", name, *got, *want)
	}
}

func fmtPtr(v *float64) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%.4f", *v)
}

func validateCounties(got source.Summary, want dashboard.Snapshot, tol float64) *phase {
	p := &phase{name: "County averages and labels"}

	index := make(map[domain.CountyKey]domain.ClassifiedCounty, len(want.Counties))
	for _, c := range want.Counties {
		index[c.Key()] = c
	}

	seen := make(map[domain.CountyKey]bool, len(got.ScatterData))
	for _, row := range got.ScatterData {
		k := rowKey(row)
		if seen[k] {
			p.errorf("%s: duplicate row", k)
			continue
		}
		seen[k] = true

		c, ok := index[k]
		if !ok {
			p.errorf("%s: not present in the annual files", k)
			continue
		}
		if math.Abs(row.MedianAQI-c.MedianAQIAvg) > tol {
			p.errorf("%s: Median AQI got %.4f, want %.4f", k, row.MedianAQI, c.MedianAQIAvg)
		}
		if math.Abs(row.MaxAQI-c.MaxAQIAvg) > tol {
			p.errorf("%s: Max AQI got %.4f, want %.4f", k, row.MaxAQI, c.MaxAQIAvg)
		}
		if row.Risk != "" && domain.RiskLabel(row.Risk) != c.Risk {
			p.errorf("%s: Risk got %q, want %q", k, row.Risk, c.Risk)
		}
	}

	for k := range index {
		if !seen[k] {
			p.errorf("%s: missing from summary", k)
		}
	}
	return p
}

func validateTopList(name string, got []source.SummaryRow, want []domain.ClassifiedCounty) *phase {
	p := &phase{name: name}
	if len(got) != len(want) {
		p.errorf("length: got %d, want %d", len(got), len(want))
		return p
	}
	for i := range got {
		if rowKey(got[i]) != want[i].Key() {
			p.errorf("position %d: got %s, want %s", i+1, rowKey(got[i]), want[i].Key())
		}
	}
	return p
}

func validateDoubleJeopardy(got source.Summary, want dashboard.Snapshot) *phase {
	p := &phase{name: "Double Jeopardy counties"}

	expected := make(map[domain.CountyKey]bool)
	for _, c := range want.Counties {
		if c.Risk == domain.DoubleJeopardy {
			expected[c.Key()] = true
		}
	}
	for _, row := range got.DJCounties {
		k := rowKey(row)
		if !expected[k] {
			p.errorf("%s: listed but not Double Jeopardy", k)
			continue
		}
		delete(expected, k)
	}
	for k := range expected {
		p.errorf("%s: Double Jeopardy but not listed", k)
	}
	return p
}

func rowKey(r source.SummaryRow) domain.CountyKey {
	return domain.CountyKey{State: strings.TrimSpace(r.State), County: strings.TrimSpace(r.County)}
}
