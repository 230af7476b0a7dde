// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package tools implements the CSV analysis tool bodies behind the query
// router: reading, statistics, column inspection, filtering, charting,
// file listing, and script execution.
//
// Tool contract: every tool takes a parameter map and returns a string.
// Expected domain failures (missing file, unknown column) come back as
// descriptive strings prefixed with "Error:"; tools do not panic for
// foreseeable conditions. The executor layer classifies the prefix.
package tools

import (
	"context"
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Func is the uniform signature every tool implementation satisfies.
type Func func(ctx context.Context, params map[string]any) string

// Registry maps tool names to their implementations and owns the three
// working directories (data, output, scripts).
//
// Description:
//
//	The name-to-function mapping is declared explicitly at construction.
//	There is no reflective discovery: adding a tool means adding a line
//	here and a descriptor to the catalog.
//
// Thread Safety: Safe for concurrent use (read-only after construction).
type Registry struct {
	dataDir    string
	outputDir  string
	scriptsDir string
	logger     *slog.Logger
	funcs      map[string]Func
}

// NewRegistry constructs a Registry rooted at the given directories.
//
// Inputs:
//
//	dataDir    - Directory holding input CSV files. Must not be empty.
//	outputDir  - Directory chart artifacts are written to. Created on demand.
//	scriptsDir - Directory holding runnable analysis scripts.
//	logger     - Logger instance. Nil uses slog.Default().
//
// Outputs:
//
//	*Registry - The constructed registry. Never nil.
func NewRegistry(dataDir, outputDir, scriptsDir string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		dataDir:    dataDir,
		outputDir:  outputDir,
		scriptsDir: scriptsDir,
		logger:     logger,
	}
	r.funcs = map[string]Func{
		"read_csv":        r.readCSV,
		"get_data_stats":  r.getDataStats,
		"get_column_info": r.getColumnInfo,
		"filter_data":     r.filterData,
		"generate_chart":  r.generateChart,
		"list_data_files": r.listDataFiles,
		"execute_script":  r.executeScript,
	}
	return r
}

// Lookup resolves a tool name to its implementation.
func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// Headers reads just the header row of one CSV file in the data
// directory. Used for best-effort column defaults; callers must treat
// errors as "headers unknown", not as failures.
func (r *Registry) Headers(filename string) ([]string, error) {
	f, err := os.Open(filepath.Join(r.dataDir, safeName(filename)))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	return reader.Read()
}

// DataFiles enumerates the CSV files currently present in the data
// directory, sorted by name. Called fresh for every query so concurrent
// requests may observe different sets while files change; that is
// accepted behavior, not a defect.
func (r *Registry) DataFiles() []string {
	entries, err := os.ReadDir(r.dataDir)
	if err != nil {
		r.logger.Warn("data directory unreadable",
			slog.String("dir", r.dataDir),
			slog.String("error", err.Error()),
		)
		return nil
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files
}
