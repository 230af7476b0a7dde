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
	"math"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// maxCategoricalUniques bounds which string columns get value counts in
// the stats report.
const maxCategoricalUniques = 20

// dataStatsFileInfo is the file_info block of the stats report.
type dataStatsFileInfo struct {
	Filename string  `json:"filename"`
	Shape    [2]int  `json:"shape"`
	SizeMB   float64 `json:"size_mb"`
}

// dataStatsReport is the JSON body get_data_stats returns.
type dataStatsReport struct {
	FileInfo              dataStatsFileInfo             `json:"file_info"`
	Columns               []string                      `json:"columns"`
	DataTypes             map[string]string             `json:"data_types"`
	NullCounts            map[string]int                `json:"null_counts"`
	NullPercentages       map[string]float64            `json:"null_percentages"`
	NumericStatistics     map[string]map[string]float64 `json:"numeric_statistics,omitempty"`
	CategoricalStatistics map[string]map[string]int     `json:"categorical_statistics,omitempty"`
}

// getDataStats builds the comprehensive statistics report for a CSV file:
// shape and size, per-column dtypes and null accounting, a describe block
// for every numeric column, and value counts for low-cardinality string
// columns.
//
// Inputs (params):
//
//	data_source - Required. CSV file name inside the data directory.
func (r *Registry) getDataStats(ctx context.Context, params map[string]any) string {
	source := safeName(stringParam(params, "data_source", ""))
	if source == "" {
		return "Error: get_data_stats requires a 'data_source' parameter"
	}

	path := filepath.Join(r.dataDir, source)
	ds, err := loadDataset(path)
	if err != nil {
		return fmt.Sprintf("Error: could not read '%s': %v", source, err)
	}

	report := dataStatsReport{
		FileInfo: dataStatsFileInfo{
			Filename: source,
			Shape:    [2]int{len(ds.rows), len(ds.headers)},
		},
		Columns:         append([]string(nil), ds.headers...),
		DataTypes:       make(map[string]string, len(ds.headers)),
		NullCounts:      make(map[string]int, len(ds.headers)),
		NullPercentages: make(map[string]float64, len(ds.headers)),
	}
	if info, err := os.Stat(path); err == nil {
		report.FileInfo.SizeMB = math.Round(float64(info.Size())/(1024*1024)*10000) / 10000
	}

	for i, header := range ds.headers {
		values := ds.columnValues(i)
		nulls := nullCount(values)
		report.DataTypes[header] = inferDType(values)
		report.NullCounts[header] = nulls
		report.NullPercentages[header] = percentage(nulls, len(values))

		if report.DataTypes[header] != "string" {
			if describe := describeColumn(values); describe != nil {
				if report.NumericStatistics == nil {
					report.NumericStatistics = make(map[string]map[string]float64)
				}
				report.NumericStatistics[header] = describe
			}
			continue
		}

		counts := valueCounts(values)
		if len(counts) > 0 && len(counts) <= maxCategoricalUniques {
			if report.CategoricalStatistics == nil {
				report.CategoricalStatistics = make(map[string]map[string]int)
			}
			report.CategoricalStatistics[header] = counts
		}
	}

	return toJSON(report)
}

// describeColumn computes the count/mean/std/min/quartiles/max block for
// one numeric column. Returns nil when no cell parses.
func describeColumn(values []string) map[string]float64 {
	nums, ok := numericValues(values)
	if !ok || len(nums) == 0 {
		return nil
	}
	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)

	std := stat.StdDev(sorted, nil)
	if len(sorted) < 2 {
		std = 0
	}
	return map[string]float64{
		"count": float64(len(sorted)),
		"mean":  stat.Mean(sorted, nil),
		"std":   std,
		"min":   sorted[0],
		"25%":   stat.Quantile(0.25, stat.Empirical, sorted, nil),
		"50%":   stat.Quantile(0.5, stat.Empirical, sorted, nil),
		"75%":   stat.Quantile(0.75, stat.Empirical, sorted, nil),
		"max":   sorted[len(sorted)-1],
	}
}
