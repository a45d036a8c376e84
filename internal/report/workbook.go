package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/county-aqi-risk/internal/dashboard"
	"github.com/couchcryptid/county-aqi-risk/internal/domain"
)

// Workbook sheet names.
const (
	SheetSummary        = "Summary"
	SheetCounties       = "Counties"
	SheetTopChronic     = "Top Chronic"
	SheetTopAcute       = "Top Acute"
	SheetTopLivable     = "Top Livable"
	SheetDoubleJeopardy = "Double Jeopardy"
)

var countyHeader = []any{"State", "County", "Avg Median AQI", "Avg Max AQI", "High AQI Days", "Years", "Risk"}

// Workbook lays the snapshot out over one summary sheet and five county
// sheets. topN bounds the three top lists; djK bounds the Double Jeopardy
// ranking. The caller closes the returned file.
func Workbook(snap dashboard.Snapshot, topN, djK int) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := writeSummarySheet(f, snap); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("sheet %s: %w", SheetSummary, err)
	}

	for _, s := range []struct {
		name     string
		counties []domain.ClassifiedCounty
	}{
		{SheetCounties, snap.Counties},
		{SheetTopChronic, domain.TopChronic(snap.Counties, topN)},
		{SheetTopAcute, domain.TopAcute(snap.Counties, topN)},
		{SheetTopLivable, domain.TopLivable(snap.Counties, topN)},
	} {
		if err := writeCountySheet(f, s.name, s.counties); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("sheet %s: %w", s.name, err)
		}
	}

	if err := writeDoubleJeopardySheet(f, RankDoubleJeopardy(snap, djK)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("sheet %s: %w", SheetDoubleJeopardy, err)
	}

	return f, nil
}

// WriteWorkbook renders the workbook as XLSX.
func WriteWorkbook(w io.Writer, snap dashboard.Snapshot, topN, djK int) error {
	f, err := Workbook(snap, topN, djK)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, snap dashboard.Snapshot) error {
	counts := domain.CountByRisk(snap.Counties)
	rows := [][]any{
		{"Snapshot", snap.ID.String()},
		{"Dataset version", snap.DatasetVersion.String()},
		{"Scope", string(snap.Params.Scope)},
		{"Percentile", snap.Params.Percentile * 100},
		{"Chronic threshold", cellFloat(snap.ChronicThreshold)},
		{"Acute threshold", cellFloat(snap.AcuteThreshold)},
		{"Total counties", len(snap.Counties)},
		{"Computed at", snap.ComputedAt.UTC().Format(time.RFC3339)},
	}
	for _, l := range domain.RiskLabels {
		rows = append(rows, []any{string(l), counts[l]})
	}

	for i, r := range rows {
		if err := f.SetSheetRow(SheetSummary, cell(1, i+1), &r); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetSummary, "A", "B", 40)
}

func writeCountySheet(f *excelize.File, name string, counties []domain.ClassifiedCounty) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	if err := f.SetSheetRow(name, "A1", &countyHeader); err != nil {
		return err
	}
	for i, c := range counties {
		row := countyRow(c)
		if err := f.SetSheetRow(name, cell(1, i+2), &row); err != nil {
			return err
		}
	}
	return f.SetColWidth(name, "A", "G", 18)
}

func writeDoubleJeopardySheet(f *excelize.File, ranked []domain.RankedCounty) error {
	if _, err := f.NewSheet(SheetDoubleJeopardy); err != nil {
		return err
	}
	header := append([]any{"Rank"}, countyHeader...)
	header = append(header, "Score")
	if err := f.SetSheetRow(SheetDoubleJeopardy, "A1", &header); err != nil {
		return err
	}
	for i, r := range ranked {
		row := append([]any{i + 1}, countyRow(r.ClassifiedCounty)...)
		row = append(row, r.DoubleJeopardyScore)
		if err := f.SetSheetRow(SheetDoubleJeopardy, cell(1, i+2), &row); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetDoubleJeopardy, "A", "I", 18)
}

func countyRow(c domain.ClassifiedCounty) []any {
	return []any{c.State, c.County, c.MedianAQIAvg, c.MaxAQIAvg, c.HighAQIDaysTotal, c.Observations, string(c.Risk)}
}

// cellFloat leaves undefined thresholds blank.
func cellFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
