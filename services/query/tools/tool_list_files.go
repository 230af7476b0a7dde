// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"
)

// fileListResult is the JSON body list_data_files returns.
type fileListResult struct {
	AvailableFiles []string `json:"available_files"`
}

// listDataFiles enumerates the CSV files in the data directory. Takes no
// parameters; an empty directory yields an empty list, not an error.
func (r *Registry) listDataFiles(ctx context.Context, params map[string]any) string {
	files := r.DataFiles()
	if files == nil {
		files = []string{}
	}
	return toJSON(fileListResult{AvailableFiles: files})
}
