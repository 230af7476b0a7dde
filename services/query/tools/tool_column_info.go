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
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// topValuesThreshold splits string columns into top_values (a full tally)
// and sample_values (first rows only) by distinct-value count.
const topValuesThreshold = 10

// getColumnInfo reports dtype, null accounting, and a value summary per
// column as JSON. With a column parameter it covers that column only;
// without one it covers every column of the file.
//
// Inputs (params):
//
//	data_source - Required. CSV file name inside the data directory.
//	column      - Optional. Column name, matched case-insensitively.
//	              Omitted means every column.
func (r *Registry) getColumnInfo(ctx context.Context, params map[string]any) string {
	source := safeName(stringParam(params, "data_source", ""))
	column := stringParam(params, "column", "")
	if source == "" {
		return "Error: get_column_info requires a 'data_source' parameter"
	}

	ds, err := loadDataset(filepath.Join(r.dataDir, source))
	if err != nil {
		return fmt.Sprintf("Error: could not read '%s': %v", source, err)
	}

	var indexes []int
	if column != "" {
		idx := ds.columnIndex(column)
		if idx < 0 {
			return fmt.Sprintf("Error: column '%s' not found in '%s'. Available columns: %s",
				column, source, strings.Join(ds.headers, ", "))
		}
		indexes = []int{idx}
	} else {
		for i := range ds.headers {
			indexes = append(indexes, i)
		}
	}

	report := make(map[string]map[string]any, len(indexes))
	for _, idx := range indexes {
		report[ds.headers[idx]] = columnReport(ds.columnValues(idx))
	}
	return toJSON(report)
}

// columnReport summarizes one column. Numeric columns get the five-number
// block; string columns get top_values or sample_values depending on
// cardinality.
func columnReport(values []string) map[string]any {
	nulls := nullCount(values)
	counts := valueCounts(values)
	info := map[string]any{
		"data_type":       inferDType(values),
		"null_count":      nulls,
		"null_percentage": percentage(nulls, len(values)),
		"unique_values":   len(counts),
	}

	if nums, ok := numericValues(values); ok && len(nums) > 0 {
		sorted := append([]float64(nil), nums...)
		sort.Float64s(sorted)
		std := stat.StdDev(sorted, nil)
		if len(sorted) < 2 {
			std = 0
		}
		info["min"] = sorted[0]
		info["max"] = sorted[len(sorted)-1]
		info["mean"] = stat.Mean(sorted, nil)
		info["median"] = stat.Quantile(0.5, stat.Empirical, sorted, nil)
		info["std"] = std
		return info
	}

	if len(counts) > 0 && len(counts) <= topValuesThreshold {
		info["top_values"] = counts
	} else {
		info["sample_values"] = sampleValues(values, 5)
	}
	return info
}

// sampleValues returns the first n non-empty values in row order.
func sampleValues(values []string, n int) []string {
	sample := []string{}
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		sample = append(sample, v)
		if len(sample) == n {
			break
		}
	}
	return sample
}
