// Package ingest reads delimited client exports into raw records for the
// engine. It is deliberately mechanical: no interpretation of values happens
// here, only column-name association.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"bilancio/internal/core"
)

// ReadRecords parses CSV data whose first row is the header. Each subsequent
// row becomes one raw record mapping trimmed column names to cell values.
// Rows with a different field count than the header are rejected by the CSV
// parser; structural problems are fatal here, value-level problems are the
// normalizer's concern.
func ReadRecords(r io.Reader) ([]core.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty input: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []core.RawRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		rec := make(core.RawRecord, len(header))
		for i, col := range header {
			rec[col] = row[i]
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadFile reads a CSV export from disk.
func ReadFile(path string) ([]core.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	records, err := ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}
