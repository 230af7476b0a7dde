// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package providers

import (
	"log/slog"
	"os"
	"strings"
)

// =============================================================================
// Environment Resolution
// =============================================================================

const (
	// DefaultOllamaURL is used when no environment override is present.
	DefaultOllamaURL = "http://localhost:11434"

	// DefaultModel is the reasoner model used when none is configured.
	DefaultModel = "llama3.2"
)

// ResolveOllamaURL resolves the Ollama base URL from the environment.
//
// Description:
//
//	Precedence: OLLAMA_BASE_URL, then the deprecated OLLAMA_URL (with a
//	warning), then DefaultOllamaURL. A trailing slash is stripped so
//	path joins stay predictable.
//
// Outputs:
//
//	string - The resolved base URL. Never empty.
func ResolveOllamaURL(logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}
	if url := strings.TrimSpace(os.Getenv("OLLAMA_BASE_URL")); url != "" {
		return strings.TrimRight(url, "/")
	}
	if url := strings.TrimSpace(os.Getenv("OLLAMA_URL")); url != "" {
		logger.Warn("OLLAMA_URL is deprecated, use OLLAMA_BASE_URL")
		return strings.TrimRight(url, "/")
	}
	return DefaultOllamaURL
}

// ResolveModel resolves the reasoner model name from the environment,
// falling back to DefaultModel.
func ResolveModel() string {
	if model := strings.TrimSpace(os.Getenv("DRIFTWOOD_REASONER_MODEL")); model != "" {
		return model
	}
	return DefaultModel
}
