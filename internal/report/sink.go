package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"

	"github.com/couchcryptid/county-aqi-risk/internal/dashboard"
	"github.com/couchcryptid/county-aqi-risk/internal/domain"
	"github.com/couchcryptid/county-aqi-risk/internal/source"
)

// Output file names inside a report directory.
const (
	SummaryFile        = "dashboard_data.json"
	ScatterFile        = "risk_scatter.png"
	DoubleJeopardyFile = "double_jeopardy.png"
	WorkbookFile       = "county_risk.xlsx"
)

// DirSink writes the full report for every published snapshot into Dir,
// replacing the previous one. Each file is written to a temporary name and
// renamed into place.
type DirSink struct {
	Dir        string
	TopN       int
	DJTopK     int
	Exclusions domain.ExclusionList
	Logger     *slog.Logger
}

// PublishSnapshot implements dashboard.Publisher.
func (d *DirSink) PublishSnapshot(_ context.Context, snap dashboard.Snapshot) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	if err := d.write(SummaryFile, func(w io.Writer) error {
		return source.NewSummary(snap, d.TopN).Encode(w)
	}); err != nil {
		return err
	}

	if err := d.write(WorkbookFile, func(w io.Writer) error {
		return WriteWorkbook(w, snap, d.TopN, d.DJTopK)
	}); err != nil {
		return err
	}

	scatter, err := ScatterPlot(snap, d.Exclusions)
	if err := d.writeChart(ScatterFile, scatter, err); err != nil {
		return err
	}

	dj, err := DoubleJeopardyChart(RankDoubleJeopardy(snap, d.DJTopK))
	return d.writeChart(DoubleJeopardyFile, dj, err)
}

// writeChart removes a stale chart instead of failing when there is nothing
// to draw.
func (d *DirSink) writeChart(name string, p *plot.Plot, buildErr error) error {
	switch {
	case errors.Is(buildErr, ErrNoData):
		d.logger().Debug("chart skipped, nothing to plot", "file", name)
		if err := os.Remove(filepath.Join(d.Dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove stale %s: %w", name, err)
		}
		return nil
	case buildErr != nil:
		return fmt.Errorf("build %s: %w", name, buildErr)
	}
	return d.write(name, func(w io.Writer) error { return WritePNG(w, p) })
}

func (d *DirSink) write(name string, render func(io.Writer) error) error {
	tmp, err := os.CreateTemp(d.Dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if err := render(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("render %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(d.Dir, name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

func (d *DirSink) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}
