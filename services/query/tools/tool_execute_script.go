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
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// scriptTimeout bounds how long one analysis script may run.
const scriptTimeout = 60 * time.Second

// executeScript runs a named analysis script from the scripts directory.
//
// Description:
//
//	Scripts are the escape hatch for analyses the fixed tool set does not
//	cover. Only files already present in the scripts directory can run;
//	the script name is flattened to its base name so parameters cannot
//	reach outside that directory. Python scripts run through python3,
//	anything else executes directly.
//
// Inputs (params):
//
//	script_name - Required. Script file inside the scripts directory.
//	csv_file    - Required. CSV file passed as the first argument,
//	              resolved inside the data directory.
//	args        - Optional. Extra whitespace-separated arguments.
func (r *Registry) executeScript(ctx context.Context, params map[string]any) string {
	scriptName := safeName(stringParam(params, "script_name", ""))
	if scriptName == "" {
		return "Error: execute_script requires a 'script_name' parameter"
	}

	scriptPath := filepath.Join(r.scriptsDir, scriptName)
	if _, err := os.Stat(scriptPath); err != nil {
		return fmt.Sprintf("Error: script '%s' not found in %s", scriptName, r.scriptsDir)
	}

	csvFile := safeName(stringParam(params, "csv_file", ""))
	if csvFile == "" {
		return "Error: execute_script requires a 'csv_file' parameter"
	}
	csvPath := filepath.Join(r.dataDir, csvFile)
	if _, err := os.Stat(csvPath); err != nil {
		return fmt.Sprintf("Error: CSV file '%s' not found in data directory", csvFile)
	}

	argv := []string{csvPath}
	if extra := stringParam(params, "args", ""); extra != "" {
		argv = append(argv, strings.Fields(extra)...)
	}

	runCtx, cancel := context.WithTimeout(ctx, scriptTimeout)
	defer cancel()

	var cmd *exec.Cmd
	if strings.HasSuffix(scriptName, ".py") {
		cmd = exec.CommandContext(runCtx, "python3", append([]string{scriptPath}, argv...)...)
	} else {
		cmd = exec.CommandContext(runCtx, scriptPath, argv...)
	}
	cmd.Dir = r.scriptsDir

	start := time.Now()
	output, err := cmd.CombinedOutput()
	elapsed := time.Since(start)

	r.logger.Info("script executed",
		slog.String("script", scriptName),
		slog.Duration("duration", elapsed),
		slog.Bool("failed", err != nil),
	)

	text := strings.TrimSpace(string(output))
	if runCtx.Err() == context.DeadlineExceeded {
		return fmt.Sprintf("Error: script '%s' timed out after %s", scriptName, scriptTimeout)
	}
	if err != nil {
		if text == "" {
			text = err.Error()
		}
		return fmt.Sprintf("Error: script '%s' failed: %s", scriptName, text)
	}
	if text == "" {
		return fmt.Sprintf("Script '%s' completed with no output", scriptName)
	}
	return fmt.Sprintf("Script '%s' output:\n%s", scriptName, text)
}
