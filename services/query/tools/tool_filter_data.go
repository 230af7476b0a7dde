// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// filterOperations is the closed set of comparison operations filter_data
// accepts. greater/less coerce both sides to float; the rest compare the
// cell's string form.
var filterOperations = map[string]struct{}{
	"equals":     {},
	"contains":   {},
	"greater":    {},
	"less":       {},
	"not_equals": {},
}

// maxFilterRows caps how many matching rows the result embeds.
const maxFilterRows = 100

// filterResult is the JSON body filter_data returns on a non-empty match.
type filterResult struct {
	FilteredCount int     `json:"filtered_count"`
	TotalCount    int     `json:"total_count"`
	Percentage    float64 `json:"percentage"`
	Data          string  `json:"data"`
}

// filterData returns the rows of a CSV file matching a column condition:
// match counts, the matching share of the file, and the first rows as an
// aligned table inside a JSON result.
//
// Inputs (params):
//
//	data_source - Required. CSV file name inside the data directory.
//	column      - Required. Column to test, matched case-insensitively.
//	value       - Required. Comparison value (string form).
//	operation   - Optional. Defaults to "equals".
func (r *Registry) filterData(ctx context.Context, params map[string]any) string {
	source := safeName(stringParam(params, "data_source", ""))
	column := stringParam(params, "column", "")
	value := stringParam(params, "value", "")
	operation := strings.ToLower(stringParam(params, "operation", "equals"))

	if source == "" || column == "" || value == "" {
		return "Error: filter_data requires 'data_source', 'column', and 'value' parameters"
	}
	if _, ok := filterOperations[operation]; !ok {
		return fmt.Sprintf("Error: unknown operation '%s'. Valid operations: equals, contains, greater, less, not_equals", operation)
	}

	ds, err := loadDataset(filepath.Join(r.dataDir, source))
	if err != nil {
		return fmt.Sprintf("Error: could not read '%s': %v", source, err)
	}

	idx := ds.columnIndex(column)
	if idx < 0 {
		return fmt.Sprintf("Error: column '%s' not found in '%s'. Available columns: %s",
			column, source, strings.Join(ds.headers, ", "))
	}

	var matched [][]string
	for _, row := range ds.rows {
		if cellMatches(row[idx], value, operation) {
			matched = append(matched, row)
		}
	}

	if len(matched) == 0 {
		return fmt.Sprintf("No rows in '%s' where %s %s %s", source, column, operation, value)
	}

	return toJSON(filterResult{
		FilteredCount: len(matched),
		TotalCount:    len(ds.rows),
		Percentage:    percentage(len(matched), len(ds.rows)),
		Data:          renderRows(ds.headers, matched, maxFilterRows),
	})
}

// cellMatches applies one filter operation to a single cell.
func cellMatches(cell, value, operation string) bool {
	switch operation {
	case "equals":
		return strings.EqualFold(strings.TrimSpace(cell), strings.TrimSpace(value))
	case "not_equals":
		return !strings.EqualFold(strings.TrimSpace(cell), strings.TrimSpace(value))
	case "contains":
		return strings.Contains(strings.ToLower(cell), strings.ToLower(value))
	case "greater", "less":
		cellNum, err1 := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		valueNum, err2 := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err1 != nil || err2 != nil {
			return false
		}
		if operation == "greater" {
			return cellNum > valueNum
		}
		return cellNum < valueNum
	}
	return false
}
