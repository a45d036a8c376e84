package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/county-aqi-risk/internal/dashboard"
	"github.com/couchcryptid/county-aqi-risk/internal/domain"
)

// DefaultGlob matches the EPA annual county files.
const DefaultGlob = "annual_aqi_by_county_*.csv"

// DirLoader aggregates every annual file in a directory. Files are parsed
// concurrently into per-file accumulators that are merged afterwards.
type DirLoader struct {
	Dir    string
	Glob   string
	Logger *slog.Logger
}

// NewDirLoader creates a DirLoader. An empty glob selects DefaultGlob.
func NewDirLoader(dir, glob string, logger *slog.Logger) *DirLoader {
	if glob == "" {
		glob = DefaultGlob
	}
	return &DirLoader{Dir: dir, Glob: glob, Logger: logger}
}

// Files lists the matching files in name order.
func (l *DirLoader) Files() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(l.Dir, l.Glob))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", l.Glob, err)
	}
	slices.Sort(paths)
	return paths, nil
}

// Load implements dashboard.Loader.
func (l *DirLoader) Load(ctx context.Context) (dashboard.Input, error) {
	paths, err := l.Files()
	if err != nil {
		return dashboard.Input{}, err
	}
	if len(paths) == 0 {
		return dashboard.Input{}, fmt.Errorf("no files matching %s in %s", l.Glob, l.Dir)
	}

	parts := make([]*domain.Accumulator, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			acc, rows, err := readFile(path)
			if err != nil {
				return err
			}
			l.Logger.Debug("annual file parsed", "path", path, "rows", rows, "counties", acc.Len(), "dropped", acc.Dropped())
			parts[i] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return dashboard.Input{}, err
	}

	return dashboard.Input{Origin: dashboard.OriginAnnual, Tally: mergeAll(parts)}, nil
}

func readFile(path string) (*domain.Accumulator, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	acc := domain.NewAccumulator()
	rows, err := ReadAnnualCSV(f, acc)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	return acc, rows, nil
}

func mergeAll(parts []*domain.Accumulator) *domain.Accumulator {
	total := domain.NewAccumulator()
	for _, p := range parts {
		total.Merge(p)
	}
	return total
}
