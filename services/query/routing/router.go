// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routing

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/DriftwoodAI/driftwood/services/query/catalog"
	"github.com/DriftwoodAI/driftwood/services/query/executor"
	"github.com/DriftwoodAI/driftwood/services/query/reasoner"
)

// =============================================================================
// Collaborator Interfaces
// =============================================================================

// Invoker executes one tool. Satisfied by *executor.Executor.
type Invoker interface {
	Invoke(ctx context.Context, name string, params map[string]any) executor.Result
}

// Suggester is the optional reasoner tier. Satisfied by
// *reasoner.Reasoner; nil disables the tier entirely.
type Suggester interface {
	Suggest(ctx context.Context, query string, files []string) *reasoner.Suggestion
}

// FileSource supplies a fresh data-file snapshot per query. Satisfied
// by *tools.Registry.
type FileSource interface {
	DataFiles() []string
}

// =============================================================================
// Request / Result
// =============================================================================

// Request is one resolution attempt. A non-empty Tool bypasses all
// heuristics and executes directly with Parameters.
type Request struct {
	Query      string         `json:"query"`
	Tool       string         `json:"tool,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Result is the uniform per-query outcome. Created and discarded per
// request; results are never merged across queries.
type Result struct {
	ToolUsed    string         `json:"tool_used,omitempty"`
	Parameters  map[string]any `json:"parameters"`
	Explanation string         `json:"explanation"`
	ToolOutput  string         `json:"tool_output,omitempty"`
	Success     bool           `json:"success"`
	Error       string         `json:"error,omitempty"`
}

// =============================================================================
// Router
// =============================================================================

// Router orchestrates the resolution pipeline: explicit call, then the
// heuristic matcher, then the optional reasoner, then the static
// default response. Exactly one tool executes per query; tiers are
// never combined.
//
// Description:
//
//	The router is stateless across queries. Every collaborator fault is
//	caught at this boundary and converted into success=false with a
//	readable error; Resolve never panics past its own frame.
//
// Thread Safety: Safe for concurrent use.
type Router struct {
	catalog   *catalog.Catalog
	matcher   *Matcher
	invoker   Invoker
	suggester Suggester
	files     FileSource
	logger    *slog.Logger
}

// NewRouter constructs a Router.
//
// Inputs:
//
//	cat       - The tool catalog. Must not be nil.
//	matcher   - The heuristic matcher. Must not be nil.
//	invoker   - The tool executor. Must not be nil.
//	suggester - The reasoner tier. Nil disables it.
//	files     - Data file source. Must not be nil.
//	logger    - Logger instance. Nil uses slog.Default().
func NewRouter(cat *catalog.Catalog, matcher *Matcher, invoker Invoker, suggester Suggester, files FileSource, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		catalog:   cat,
		matcher:   matcher,
		invoker:   invoker,
		suggester: suggester,
		files:     files,
		logger:    logger,
	}
}

// Resolve turns one query into at most one tool invocation.
//
// Outputs:
//
//	Result - Always well formed, even when a tier misbehaves.
//
// Thread Safety: Safe for concurrent use.
func (r *Router) Resolve(ctx context.Context, req Request) (res Result) {
	ctx, span := routerTracer.Start(ctx, "routing.Router.Resolve")
	defer span.End()
	span.SetAttributes(
		attribute.String("query_preview", truncateForLog(req.Query, 80)),
		attribute.Bool("explicit_tool", req.Tool != ""),
	)

	start := time.Now()
	tier := "default"
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("resolution panicked",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
			res = Result{
				Parameters:  map[string]any{},
				Explanation: "The request could not be processed.",
				Success:     false,
				Error:       fmt.Sprintf("internal error: %v", rec),
			}
		}
		routerResolutionLatency.WithLabelValues(tier).Observe(time.Since(start).Seconds())
		routerResolutionsTotal.WithLabelValues(tier, outcomeLabel(res)).Inc()
		span.SetAttributes(
			attribute.String("tier", tier),
			attribute.String("tool_used", res.ToolUsed),
			attribute.Bool("success", res.Success),
		)
	}()

	files := r.files.DataFiles()

	// Explicit tool calls skip every heuristic tier.
	if req.Tool != "" {
		tier = "explicit"
		return r.execute(ctx, req.Tool, req.Parameters, fmt.Sprintf("Explicit invocation of %s", req.Tool))
	}

	if match, ok := r.matcher.Match(req.Query, files); ok {
		tier = match.Source
		if match.Tool == "" {
			// A family fired but something is missing; ask, don't guess.
			return Result{
				Parameters:  map[string]any{},
				Explanation: match.Explanation,
				Success:     true,
			}
		}
		return r.execute(ctx, match.Tool, match.Params, match.Explanation)
	}

	if r.suggester != nil {
		if sug := r.suggester.Suggest(ctx, req.Query, files); sug != nil {
			if sug.Tool != "" {
				tier = "reasoner"
				return r.execute(ctx, sug.Tool, sug.Parameters, sug.Explanation)
			}
			tier = "default"
			return Result{
				Parameters:  map[string]any{},
				Explanation: defaultExplanation(sug.Explanation, r.catalog, files),
				Success:     true,
			}
		}
	}

	tier = "default"
	return Result{
		Parameters:  map[string]any{},
		Explanation: capabilitySummary(r.catalog, files),
		Success:     true,
	}
}

// execute runs one tool through the invoker and folds the outcome into
// a Result.
func (r *Router) execute(ctx context.Context, tool string, params map[string]any, explanation string) Result {
	if params == nil {
		params = map[string]any{}
	}

	r.logger.Info("executing tool",
		slog.String("tool", tool),
		slog.Int("params", len(params)),
	)

	inv := r.invoker.Invoke(ctx, tool, params)
	res := Result{
		ToolUsed:    tool,
		Parameters:  params,
		Explanation: explanation,
		ToolOutput:  inv.Output,
		Success:     inv.OK,
	}
	if !inv.OK {
		res.Error = inv.Err
	}
	return res
}

// defaultExplanation prefixes the capability summary with the
// reasoner's own words when it offered any.
func defaultExplanation(reasonerText string, cat *catalog.Catalog, files []string) string {
	summary := capabilitySummary(cat, files)
	if reasonerText == "" {
		return summary
	}
	return reasonerText + "\n\n" + summary
}

// outcomeLabel maps a Result to a bounded metric label value.
func outcomeLabel(res Result) string {
	switch {
	case !res.Success:
		return "failed"
	case res.ToolUsed != "":
		return "executed"
	default:
		return "no_tool"
	}
}
