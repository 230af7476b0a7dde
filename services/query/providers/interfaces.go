// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package providers contains clients for external text-generation
// services consumed by the remote reasoner tier.
package providers

import (
	"context"
	"errors"
)

// =============================================================================
// Chat Abstraction
// =============================================================================

// Message is one chat turn sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions carries per-call overrides. Zero values defer to the
// client's configuration.
type ChatOptions struct {
	Model       string
	Temperature float64
}

// ChatClient is the minimal provider abstraction the reasoner consumes:
// one blocking round trip, returning the reply text.
//
// Thread Safety: Implementations must be safe for concurrent use.
type ChatClient interface {
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error)
}

// =============================================================================
// Sentinel Errors
// =============================================================================

var (
	// ErrUnavailable means the provider could not be reached at all
	// (connection refused, DNS failure). Callers must not retry.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrTimeout means the retry budget was exhausted on timeouts.
	ErrTimeout = errors.New("provider timed out")
)
