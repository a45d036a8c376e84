// Package report renders classification snapshots as PNG charts, an XLSX
// workbook, and the precomputed summary JSON.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/couchcryptid/county-aqi-risk/internal/dashboard"
	"github.com/couchcryptid/county-aqi-risk/internal/domain"
)

// ErrNoData is returned when a chart would have nothing on it.
var ErrNoData = errors.New("nothing to plot")

var riskColors = map[domain.RiskLabel]color.RGBA{
	domain.LowRisk:        {R: 46, G: 139, B: 87, A: 255},
	domain.HighChronic:    {R: 255, G: 140, B: 0, A: 255},
	domain.HighAcute:      {R: 128, G: 0, B: 128, A: 255},
	domain.DoubleJeopardy: {R: 220, G: 20, B: 60, A: 255},
}

var thresholdColor = color.RGBA{R: 90, G: 90, B: 90, A: 255}

const (
	chartWidth  = 12 * vg.Inch
	chartHeight = 8 * vg.Inch
)

// ScatterPlot draws average median AQI against average max AQI, one series
// per risk label, with dashed lines at the two thresholds. Counties on the
// exclusion list are left out.
func ScatterPlot(snap dashboard.Snapshot, excl domain.ExclusionList) (*plot.Plot, error) {
	counties := excl.Filter(snap.Counties)
	if len(counties) == 0 {
		return nil, ErrNoData
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("County AQI risk (p%.0f)", snap.Params.Percentile*100)
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = "Average median AQI (chronic)"
	p.Y.Label.Text = "Average max AQI (acute)"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	groups := make(map[domain.RiskLabel]plotter.XYs, len(domain.RiskLabels))
	xMin, xMax := math.Inf(1), math.Inf(-1)
	yMin, yMax := math.Inf(1), math.Inf(-1)
	for _, c := range counties {
		groups[c.Risk] = append(groups[c.Risk], plotter.XY{X: c.MedianAQIAvg, Y: c.MaxAQIAvg})
		xMin, xMax = math.Min(xMin, c.MedianAQIAvg), math.Max(xMax, c.MedianAQIAvg)
		yMin, yMax = math.Min(yMin, c.MaxAQIAvg), math.Max(yMax, c.MaxAQIAvg)
	}

	for _, label := range domain.RiskLabels {
		pts := groups[label]
		if len(pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("%s series: %w", label, err)
		}
		s.GlyphStyle.Color = riskColors[label]
		s.GlyphStyle.Radius = vg.Points(3)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("%s (%d)", label, len(pts)), s)
	}

	if t := snap.ChronicThreshold; t != nil {
		xMin, xMax = math.Min(xMin, *t), math.Max(xMax, *t)
		if err := addThreshold(p, plotter.XYs{{X: *t, Y: yMin}, {X: *t, Y: yMax}}, fmt.Sprintf("chronic %.1f", *t)); err != nil {
			return nil, err
		}
	}
	if t := snap.AcuteThreshold; t != nil {
		if err := addThreshold(p, plotter.XYs{{X: xMin, Y: *t}, {X: xMax, Y: *t}}, fmt.Sprintf("acute %.1f", *t)); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func addThreshold(p *plot.Plot, pts plotter.XYs, name string) error {
	l, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("threshold line: %w", err)
	}
	l.LineStyle.Color = thresholdColor
	l.LineStyle.Width = vg.Points(1)
	l.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	p.Add(l)
	p.Legend.Add(name, l)
	return nil
}

// DoubleJeopardyChart draws one bar per ranked county, highest score first.
func DoubleJeopardyChart(ranked []domain.RankedCounty) (*plot.Plot, error) {
	if len(ranked) == 0 {
		return nil, ErrNoData
	}

	values := make(plotter.Values, len(ranked))
	names := make([]string, len(ranked))
	for i, r := range ranked {
		values[i] = r.DoubleJeopardyScore
		names[i] = r.Key().String()
	}

	p := plot.New()
	p.Title.Text = "Double Jeopardy counties"
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Y.Label.Text = "Score (AQI above both thresholds)"

	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return nil, fmt.Errorf("bar chart: %w", err)
	}
	bars.Color = riskColors[domain.DoubleJeopardy]
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)

	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 6
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	return p, nil
}

// WritePNG renders p as a PNG.
func WritePNG(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// RankDoubleJeopardy ranks the snapshot's Double Jeopardy counties across
// every region. It returns nil when either threshold is undefined.
func RankDoubleJeopardy(snap dashboard.Snapshot, k int) []domain.RankedCounty {
	if snap.ChronicThreshold == nil || snap.AcuteThreshold == nil {
		return nil
	}
	return domain.TopDoubleJeopardy(snap.Counties, *snap.ChronicThreshold, *snap.AcuteThreshold, domain.AllRegions, k)
}
