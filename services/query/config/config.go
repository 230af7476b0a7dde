// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the service configuration: a YAML file layered
// under environment overrides, with working defaults when neither is
// present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Paths     PathsConfig     `yaml:"paths"`
	Reasoner  ReasonerConfig  `yaml:"reasoner"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// PathsConfig locates the three working directories.
type PathsConfig struct {
	DataDir    string `yaml:"data_dir"`
	OutputDir  string `yaml:"output_dir"`
	ScriptsDir string `yaml:"scripts_dir"`
}

// ReasonerConfig configures the optional remote reasoner tier.
type ReasonerConfig struct {
	Enabled        bool    `yaml:"enabled"`
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxAttempts    int     `yaml:"max_attempts"`
	RatePerSec     float64 `yaml:"rate_per_sec"`
}

// Timeout returns the per-attempt reasoner timeout as a Duration.
func (r ReasonerConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// TelemetryConfig toggles trace export.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() Config {
	return Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Paths: PathsConfig{
			DataDir:    "data",
			OutputDir:  "output",
			ScriptsDir: "scripts",
		},
		Reasoner: ReasonerConfig{
			Enabled:        true,
			TimeoutSeconds: 30,
			MaxAttempts:    3,
			RatePerSec:     2,
		},
	}
}

// Load builds the effective configuration.
//
// Description:
//
//	Precedence, lowest to highest: built-in defaults, the YAML file at
//	path (skipped silently when path is empty or the file is absent),
//	then DRIFTWOOD_* environment variables. A present-but-broken file
//	is an error; a missing one is not.
//
// Inputs:
//
//	path - YAML config file path. Empty skips the file layer.
//
// Outputs:
//
//	Config - The effective configuration.
//	error  - Non-nil if the file exists but cannot be parsed.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// No file is fine; defaults plus environment apply.
		case err != nil:
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv layers DRIFTWOOD_* variables over the file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("DRIFTWOOD_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("DRIFTWOOD_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DRIFTWOOD_DATA_DIR"); v != "" {
		cfg.Paths.DataDir = v
	}
	if v := os.Getenv("DRIFTWOOD_OUTPUT_DIR"); v != "" {
		cfg.Paths.OutputDir = v
	}
	if v := os.Getenv("DRIFTWOOD_SCRIPTS_DIR"); v != "" {
		cfg.Paths.ScriptsDir = v
	}
	if v := os.Getenv("DRIFTWOOD_REASONER_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Reasoner.Enabled = enabled
		}
	}
	if v := os.Getenv("DRIFTWOOD_REASONER_MODEL"); v != "" {
		cfg.Reasoner.Model = v
	}
	// The base URL also honors the provider-level OLLAMA_* variables;
	// those are resolved by the providers package when BaseURL is empty.
	if v := os.Getenv("DRIFTWOOD_REASONER_URL"); v != "" {
		cfg.Reasoner.BaseURL = v
	}
	if v := os.Getenv("DRIFTWOOD_TELEMETRY"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Telemetry.Enabled = enabled
		}
	}
}
