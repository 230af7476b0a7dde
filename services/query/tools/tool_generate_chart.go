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
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
)

// chartTypes is the closed set of renderable chart kinds.
var chartTypes = map[string]struct{}{
	"bar":     {},
	"line":    {},
	"scatter": {},
	"pie":     {},
}

// maxChartPoints caps how many rows feed a categorical chart so labels
// stay legible.
const maxChartPoints = 20

// generateChart renders a chart from a CSV file to a PNG in the output
// directory and returns the artifact path.
//
// Inputs (params):
//
//	data_source - Required. CSV file name inside the data directory.
//	chart_type  - Optional. bar (default), line, scatter, or pie.
//	title       - Optional. Chart title; defaults to a generated one.
//	x_axis      - Optional. Column for labels / x values; defaults to the
//	              first column.
//	y_axis      - Optional. Column for values; defaults to the first
//	              numeric column.
func (r *Registry) generateChart(ctx context.Context, params map[string]any) string {
	source := safeName(stringParam(params, "data_source", ""))
	chartType := strings.ToLower(stringParam(params, "chart_type", "bar"))
	title := stringParam(params, "title", "")

	if source == "" {
		return "Error: generate_chart requires a 'data_source' parameter"
	}
	if _, ok := chartTypes[chartType]; !ok {
		return fmt.Sprintf("Error: unknown chart_type '%s'. Valid types: bar, line, scatter, pie", chartType)
	}

	ds, err := loadDataset(filepath.Join(r.dataDir, source))
	if err != nil {
		return fmt.Sprintf("Error: could not read '%s': %v", source, err)
	}
	if len(ds.rows) == 0 {
		return fmt.Sprintf("Error: '%s' has no data rows to chart", source)
	}

	xIdx := ds.columnIndex(stringParam(params, "x_axis", ""))
	if xIdx < 0 {
		xIdx = 0
	}
	yIdx := ds.columnIndex(stringParam(params, "y_axis", ""))
	if yIdx < 0 {
		yIdx = firstNumericColumn(ds, xIdx)
	}
	if yIdx < 0 {
		return fmt.Sprintf("Error: '%s' has no numeric column to chart. Columns: %s",
			source, strings.Join(ds.headers, ", "))
	}

	if title == "" {
		title = fmt.Sprintf("%s chart of %s by %s", chartType, ds.headers[yIdx], ds.headers[xIdx])
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return fmt.Sprintf("Error: could not create output directory: %v", err)
	}
	outName := fmt.Sprintf("chart_%s_%s.png", chartType, time.Now().Format("20060102_150405.000"))
	outPath := filepath.Join(r.outputDir, outName)

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Sprintf("Error: could not create chart file: %v", err)
	}
	defer f.Close()

	switch chartType {
	case "bar":
		err = renderBar(f, title, ds, xIdx, yIdx)
	case "pie":
		err = renderPie(f, title, ds, xIdx, yIdx)
	default:
		err = renderXY(f, title, chartType, ds, xIdx, yIdx)
	}
	if err != nil {
		os.Remove(outPath)
		return fmt.Sprintf("Error: chart rendering failed: %v", err)
	}

	r.logger.Info("chart rendered",
		slog.String("type", chartType),
		slog.String("source", source),
		slog.String("path", outPath),
	)
	return fmt.Sprintf("Chart saved to %s", outPath)
}

// firstNumericColumn finds the first numeric column, preferring one that
// is not the x axis.
func firstNumericColumn(ds *dataset, xIdx int) int {
	fallback := -1
	for i := range ds.headers {
		if _, ok := numericValues(ds.columnValues(i)); !ok {
			continue
		}
		if i != xIdx {
			return i
		}
		fallback = i
	}
	return fallback
}

// labeledValues pairs x-column labels with parsed y-column values,
// skipping rows whose y cell is not numeric.
func labeledValues(ds *dataset, xIdx, yIdx, limit int) []chart.Value {
	var values []chart.Value
	for _, row := range ds.rows {
		y, err := strconv.ParseFloat(strings.TrimSpace(row[yIdx]), 64)
		if err != nil {
			continue
		}
		values = append(values, chart.Value{Label: row[xIdx], Value: y})
		if len(values) == limit {
			break
		}
	}
	return values
}

func renderBar(f *os.File, title string, ds *dataset, xIdx, yIdx int) error {
	bars := labeledValues(ds, xIdx, yIdx, maxChartPoints)
	if len(bars) == 0 {
		return fmt.Errorf("no numeric values in column '%s'", ds.headers[yIdx])
	}
	bc := chart.BarChart{
		Title:    title,
		Width:    1024,
		Height:   640,
		BarWidth: 40,
		Bars:     bars,
	}
	return bc.Render(chart.PNG, f)
}

func renderPie(f *os.File, title string, ds *dataset, xIdx, yIdx int) error {
	values := labeledValues(ds, xIdx, yIdx, maxChartPoints)
	if len(values) == 0 {
		return fmt.Errorf("no numeric values in column '%s'", ds.headers[yIdx])
	}
	// Pie slices must be positive; drop the rest rather than fail.
	var positive []chart.Value
	for _, v := range values {
		if v.Value > 0 {
			positive = append(positive, v)
		}
	}
	if len(positive) == 0 {
		return fmt.Errorf("no positive values in column '%s' for a pie chart", ds.headers[yIdx])
	}
	pc := chart.PieChart{
		Title:  title,
		Width:  800,
		Height: 800,
		Values: positive,
	}
	return pc.Render(chart.PNG, f)
}

func renderXY(f *os.File, title, chartType string, ds *dataset, xIdx, yIdx int) error {
	var xs, ys []float64
	for i, row := range ds.rows {
		y, err := strconv.ParseFloat(strings.TrimSpace(row[yIdx]), 64)
		if err != nil {
			continue
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(row[xIdx]), 64)
		if err != nil {
			// Non-numeric x axis falls back to the row index.
			x = float64(i)
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	if len(ys) < 2 {
		return fmt.Errorf("need at least 2 numeric values in column '%s'", ds.headers[yIdx])
	}

	style := chart.Style{}
	if chartType == "scatter" {
		style = chart.Style{
			StrokeWidth: chart.Disabled,
			DotWidth:    5,
		}
	}
	c := chart.Chart{
		Title:  title,
		Width:  1024,
		Height: 640,
		XAxis:  chart.XAxis{Name: ds.headers[xIdx]},
		YAxis:  chart.YAxis{Name: ds.headers[yIdx]},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: xs,
				YValues: ys,
				Style:   style,
			},
		},
	}
	return c.Render(chart.PNG, f)
}
