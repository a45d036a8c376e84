// Command aqireport aggregates the annual county CSVs once and writes the
// precomputed summary (dashboard_data.json), the scatter and Double Jeopardy
// charts, and an XLSX workbook.
//
// Usage:
//
//	go run ./cmd/aqireport \
//	  -data-dir data \
//	  -out data/report \
//	  -percentile 90
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/couchcryptid/county-aqi-risk/internal/config"
	"github.com/couchcryptid/county-aqi-risk/internal/dashboard"
	"github.com/couchcryptid/county-aqi-risk/internal/domain"
	"github.com/couchcryptid/county-aqi-risk/internal/observability"
	"github.com/couchcryptid/county-aqi-risk/internal/report"
	"github.com/couchcryptid/county-aqi-risk/internal/source"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dataDir := flag.String("data-dir", "data", "directory containing annual_aqi_by_county_*.csv files")
	glob := flag.String("glob", source.DefaultGlob, "annual file pattern")
	out := flag.String("out", "", "output directory for the report files")
	scope := flag.String("scope", string(domain.ScopeAll), "threshold scope: all or us")
	percentile := flag.Float64("percentile", domain.DefaultPercentile*100, "threshold percentile (0-100)")
	topN := flag.Int("top", 15, "length of the chronic, acute, and livable lists")
	djK := flag.Int("dj-k", 5, "number of ranked Double Jeopardy counties")
	exclusions := flag.String("exclusions", "", "YAML exclusion list (defaults to the built-in list)")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	sc, err := domain.ParseScope(strings.ToLower(*scope))
	if err != nil {
		return err
	}
	p := dashboard.DefaultParams()
	p.Scope = sc
	p.Percentile = *percentile / 100
	p.TopChronic, p.TopAcute, p.TopLivable = *topN, *topN, *topN
	p.DJTopK = *djK
	if err := p.Validate(); err != nil {
		return err
	}

	excl := domain.DefaultExclusions
	if *exclusions != "" {
		excl, err = config.LoadExclusions(*exclusions)
		if err != nil {
			return fmt.Errorf("load exclusions: %w", err)
		}
	}

	logger := observability.NewLogger("info", "text")
	in, err := source.NewDirLoader(*dataDir, *glob, logger).Load(context.Background())
	if err != nil {
		return err
	}
	ds := dashboard.NewDataset(in)
	snap := dashboard.NewSnapshot(ds, p)

	sink := &report.DirSink{Dir: *out, TopN: *topN, DJTopK: *djK, Exclusions: excl, Logger: logger}
	if err := sink.PublishSnapshot(context.Background(), snap); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	printStats(snap)
	log.Printf("wrote %s, %s, %s, %s to %s",
		report.SummaryFile, report.WorkbookFile, report.ScatterFile, report.DoubleJeopardyFile, *out)
	return nil
}

func printStats(snap dashboard.Snapshot) {
	log.Printf("counties: %d", len(snap.Counties))
	if snap.ChronicThreshold != nil && snap.AcuteThreshold != nil {
		log.Printf("thresholds (p%.0f): chronic %.2f, acute %.2f",
			snap.Params.Percentile*100, *snap.ChronicThreshold, *snap.AcuteThreshold)
	}
	counts := domain.CountByRisk(snap.Counties)
	for _, l := range domain.RiskLabels {
		log.Printf("  %-16s %d", l, counts[l])
	}
}
