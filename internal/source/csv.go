// Package source loads county AQI datasets from annual CSV files (on disk
// or in S3) and from the precomputed dashboard summary JSON.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/county-aqi-risk/internal/domain"
)

// requiredColumns must appear in every annual file header.
var requiredColumns = []string{domain.ColState, domain.ColCounty, domain.ColMedianAQI, domain.ColMaxAQI}

// ReadAnnualCSV streams one annual county file into acc and returns the
// number of data rows read. Short rows and unparseable values are left for
// the accumulator to drop.
func ReadAnnualCSV(r io.Reader, acc *domain.Accumulator) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return 0, errors.New("empty file")
	}
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}

	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := colIdx[col]; !ok {
			return 0, fmt.Errorf("missing column %q", col)
		}
	}

	rows := 0
	fields := make(map[string]string, len(colIdx))
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, fmt.Errorf("read row %d: %w", rows+2, err)
		}

		clear(fields)
		for name, i := range colIdx {
			if i < len(row) {
				fields[name] = row[i]
			}
		}
		acc.Add(domain.ObservationFromRecord(fields))
		rows++
	}
}
