// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileAbsent(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data", cfg.Paths.DataDir)
	assert.True(t, cfg.Reasoner.Enabled)
	assert.Equal(t, 30, cfg.Reasoner.TimeoutSeconds)
	assert.Equal(t, 3, cfg.Reasoner.MaxAttempts)
}

func TestLoadFileLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "driftwood.yaml")
	content := `
server:
  port: 9999
paths:
  data_dir: /srv/csv
reasoner:
  enabled: false
  model: qwen2.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "/srv/csv", cfg.Paths.DataDir)
	assert.Equal(t, "output", cfg.Paths.OutputDir, "untouched fields keep their defaults")
	assert.False(t, cfg.Reasoner.Enabled)
	assert.Equal(t, "qwen2.5", cfg.Reasoner.Model)
}

func TestLoadEnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "driftwood.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644))

	t.Setenv("DRIFTWOOD_PORT", "7777")
	t.Setenv("DRIFTWOOD_DATA_DIR", "/env/data")
	t.Setenv("DRIFTWOOD_REASONER_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "/env/data", cfg.Paths.DataDir)
	assert.False(t, cfg.Reasoner.Enabled)
}

func TestLoadBrokenFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "driftwood.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a mapping"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
