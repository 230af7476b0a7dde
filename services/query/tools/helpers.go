// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// =============================================================================
// Shared Helpers for CSV Analysis Tools
// =============================================================================

// dataset is an in-memory CSV table: a header row plus string cells.
type dataset struct {
	headers []string
	rows    [][]string
}

// loadDataset reads and parses one CSV file.
//
// Description:
//
//	Reads the whole file through encoding/csv with variable-length records
//	allowed. Short records are padded so every row has one cell per header.
//	The first record is treated as the header row.
//
// Outputs:
//
//	*dataset - The parsed table. Never nil on success.
//	error    - Non-nil on read or parse failure.
func loadDataset(path string) (*dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s is empty", filepath.Base(path))
	}

	ds := &dataset{headers: records[0]}
	for _, rec := range records[1:] {
		row := make([]string, len(ds.headers))
		copy(row, rec)
		ds.rows = append(ds.rows, row)
	}
	return ds, nil
}

// columnIndex finds a column by name, case-insensitively.
func (d *dataset) columnIndex(name string) int {
	for i, h := range d.headers {
		if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(name)) {
			return i
		}
	}
	return -1
}

// columnValues returns every cell of one column in row order.
func (d *dataset) columnValues(idx int) []string {
	values := make([]string, 0, len(d.rows))
	for _, row := range d.rows {
		values = append(values, row[idx])
	}
	return values
}

// numericValues parses a column's non-empty cells as floats. The second
// return is false when fewer than half the non-empty cells parse, which
// is the threshold for treating the column as numeric.
func numericValues(values []string) ([]float64, bool) {
	var nums []float64
	nonEmpty := 0
	for _, v := range values {
		s := strings.TrimSpace(v)
		if s == "" {
			continue
		}
		nonEmpty++
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			nums = append(nums, f)
		}
	}
	if nonEmpty == 0 || len(nums)*2 < nonEmpty {
		return nil, false
	}
	return nums, true
}

// inferDType classifies a column the way the stats tools report it:
// "int64" when every non-empty cell parses as an integer, "float64" when
// every non-empty cell parses as a number, "string" otherwise. An
// all-empty column is "string".
func inferDType(values []string) string {
	nonEmpty := 0
	allInt, allFloat := true, true
	for _, v := range values {
		s := strings.TrimSpace(v)
		if s == "" {
			continue
		}
		nonEmpty++
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			allInt = false
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			allFloat = false
		}
	}
	switch {
	case nonEmpty == 0 || !allFloat:
		return "string"
	case allInt:
		return "int64"
	default:
		return "float64"
	}
}

// nullCount counts the empty cells of a column.
func nullCount(values []string) int {
	n := 0
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			n++
		}
	}
	return n
}

// percentage is round(part/total*100, 2); 0 when total is 0.
func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}

// valueCounts tallies the non-empty values of a column.
func valueCounts(values []string) map[string]int {
	counts := make(map[string]int)
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		counts[v]++
	}
	return counts
}

// toJSON renders a tool result as indented JSON. Marshal failures turn
// into an Error string so the executor classifies them.
func toJSON(v any) string {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error: could not encode result: %v", err)
	}
	return string(raw)
}

// renderRows formats a header plus up to limit rows as an aligned text
// table for inclusion in tool output.
func renderRows(headers []string, rows [][]string, limit int) string {
	if limit > len(rows) {
		limit = len(rows)
	}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows[:limit] {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(cell)
			if i < len(widths) {
				for pad := len(cell); pad < widths[i]; pad++ {
					b.WriteByte(' ')
				}
			}
		}
		b.WriteByte('\n')
	}
	writeRow(headers)
	for _, row := range rows[:limit] {
		writeRow(row)
	}
	return strings.TrimRight(b.String(), " \n")
}

// =============================================================================
// Parameter Coercion
// =============================================================================
//
// Parameter maps arrive from JSON bodies and from the remote reasoner, so
// values may be strings, json.Number-style floats, bools, or missing.

// stringParam extracts a string parameter, coercing scalars.
func stringParam(params map[string]any, key, fallback string) string {
	v, ok := params[key]
	if !ok || v == nil {
		return fallback
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return fallback
		}
		return t
	case float64:
		// JSON numbers decode as float64; render integers without decimals.
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// safeName flattens any path components out of a user-supplied file name.
// Tool parameters are never allowed to escape their directory.
func safeName(name string) string {
	return filepath.Base(strings.TrimSpace(name))
}
