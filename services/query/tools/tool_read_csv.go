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
	"strings"
)

// readCSV loads a CSV file and summarizes its shape, columns, and the
// first rows.
//
// Inputs (params):
//
//	filename - Required. CSV file name inside the data directory.
func (r *Registry) readCSV(ctx context.Context, params map[string]any) string {
	filename := safeName(stringParam(params, "filename", ""))
	if filename == "" {
		return "Error: read_csv requires a 'filename' parameter"
	}

	ds, err := loadDataset(filepath.Join(r.dataDir, filename))
	if err != nil {
		return fmt.Sprintf("Error: could not read '%s': %v", filename, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CSV file '%s' loaded successfully.\n", filename)
	fmt.Fprintf(&b, "Shape: %d rows, %d columns\n", len(ds.rows), len(ds.headers))
	fmt.Fprintf(&b, "Columns: %s\n", strings.Join(ds.headers, ", "))
	fmt.Fprintf(&b, "First %d rows:\n%s", previewLen(len(ds.rows)), renderRows(ds.headers, ds.rows, 5))
	return b.String()
}

func previewLen(rows int) int {
	if rows < 5 {
		return rows
	}
	return 5
}
