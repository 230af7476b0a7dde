// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package reasoner is the optional fallback tier that forwards a query
// to a remote text-generation service and extracts a structured tool
// suggestion from its free-text reply. Every failure mode degrades to a
// null suggestion or to "unavailable"; nothing escapes this boundary.
package reasoner

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/DriftwoodAI/driftwood/services/query/catalog"
	"github.com/DriftwoodAI/driftwood/services/query/providers"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var reasonerSuggestionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "driftwood",
	Subsystem: "reasoner",
	Name:      "suggestions_total",
	Help:      "Reasoner outcomes: tool, null, malformed, timeout, unavailable",
}, []string{"outcome"})

var reasonerTracer = otel.Tracer("driftwood.query.reasoner")

// =============================================================================
// Suggestion
// =============================================================================

// Suggestion is the reasoner's structured reply: a candidate tool (empty
// when the model declined or the reply was unusable), its parameters,
// and a human-readable explanation.
type Suggestion struct {
	Tool        string         `json:"tool"`
	Parameters  map[string]any `json:"parameters"`
	Explanation string         `json:"explanation"`
}

// =============================================================================
// Reasoner
// =============================================================================

// Reasoner consults a ChatClient for tool suggestions.
//
// Thread Safety: Safe for concurrent use.
type Reasoner struct {
	client  providers.ChatClient
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// New constructs a Reasoner.
//
// Inputs:
//
//	client - The chat provider. Must not be nil.
//	cat    - The tool catalog rendered into the system prompt. Must not be nil.
//	logger - Logger instance. Nil uses slog.Default().
func New(client providers.ChatClient, cat *catalog.Catalog, logger *slog.Logger) *Reasoner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reasoner{client: client, catalog: cat, logger: logger}
}

// Suggest asks the remote model which tool fits the query.
//
// Description:
//
//	Degradation ladder: a reply whose JSON parses yields a normal
//	suggestion; a malformed reply yields a null suggestion carrying the
//	raw text as explanation; an exhausted timeout budget yields a null
//	suggestion with a timeout explanation; a connection failure yields
//	nil, meaning "this tier is not available right now". Suggest never
//	returns an error and never panics.
//
// Inputs:
//
//	ctx   - Context for cancellation. Must not be nil.
//	query - Raw user query text.
//	files - Currently available data files, listed in the prompt.
//
// Outputs:
//
//	*Suggestion - The suggestion, or nil when the reasoner is unreachable.
//
// Thread Safety: Safe for concurrent use.
func (r *Reasoner) Suggest(ctx context.Context, query string, files []string) *Suggestion {
	ctx, span := reasonerTracer.Start(ctx, "reasoner.Suggest")
	defer span.End()

	reply, err := r.client.Chat(ctx, []providers.Message{
		{Role: "system", Content: buildSystemPrompt(r.catalog, files)},
		{Role: "user", Content: query},
	}, providers.ChatOptions{})

	if err != nil {
		switch {
		case errors.Is(err, providers.ErrTimeout):
			reasonerSuggestionsTotal.WithLabelValues("timeout").Inc()
			span.SetAttributes(attribute.String("outcome", "timeout"))
			return &Suggestion{
				Parameters:  map[string]any{},
				Explanation: "The reasoning service timed out; try rephrasing the request or use an explicit tool call.",
			}
		default:
			r.logger.Warn("reasoner unavailable", slog.String("error", err.Error()))
			reasonerSuggestionsTotal.WithLabelValues("unavailable").Inc()
			span.SetAttributes(attribute.String("outcome", "unavailable"))
			return nil
		}
	}

	sug := parseReply(reply)
	outcome := "tool"
	if sug.Tool == "" {
		outcome = "null"
		if sug.Explanation == strings.TrimSpace(reply) && !looksStructured(reply) {
			outcome = "malformed"
		}
	}
	reasonerSuggestionsTotal.WithLabelValues(outcome).Inc()
	span.SetAttributes(
		attribute.String("outcome", outcome),
		attribute.String("suggested_tool", sug.Tool),
	)
	return sug
}

// =============================================================================
// Reply Parsing
// =============================================================================

// parseReply extracts a Suggestion from free-form model output.
//
// Description:
//
//	Strips markdown code fences, locates the first balanced {...} span,
//	and unmarshals it. Any failure degrades to a null suggestion whose
//	explanation is the raw reply text, so the caller can still show the
//	model's words to the user.
func parseReply(reply string) *Suggestion {
	raw := strings.TrimSpace(reply)

	cleaned := stripCodeFences(raw)
	span, ok := firstJSONObject(cleaned)
	if !ok {
		return &Suggestion{Parameters: map[string]any{}, Explanation: raw}
	}

	var wire struct {
		Tool        *string        `json:"tool"`
		Parameters  map[string]any `json:"parameters"`
		Explanation string         `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(span), &wire); err != nil {
		return &Suggestion{Parameters: map[string]any{}, Explanation: raw}
	}

	sug := &Suggestion{
		Parameters:  wire.Parameters,
		Explanation: wire.Explanation,
	}
	if sug.Parameters == nil {
		sug.Parameters = map[string]any{}
	}
	if wire.Tool != nil && *wire.Tool != "null" {
		sug.Tool = strings.TrimSpace(*wire.Tool)
	}
	if sug.Explanation == "" {
		sug.Explanation = raw
	}
	return sug
}

// stripCodeFences removes a surrounding ```json ... ``` block if present.
func stripCodeFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	s = strings.ReplaceAll(s, "```json", "```")
	if start := strings.Index(s, "```"); start >= 0 {
		rest := s[start+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	return s
}

// firstJSONObject returns the first balanced {...} span, honoring string
// literals and escapes.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// looksStructured reports whether the reply contained any JSON object at
// all; used only for metric labeling.
func looksStructured(reply string) bool {
	_, ok := firstJSONObject(stripCodeFences(strings.TrimSpace(reply)))
	return ok
}
