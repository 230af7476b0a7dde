// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package executor provides the uniform tool invocation wrapper: name
// resolution against the catalog, parameter validation, defaults, panic
// containment, and failure classification.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/DriftwoodAI/driftwood/services/query/catalog"
	"github.com/DriftwoodAI/driftwood/services/query/tools"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	executorInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "driftwood",
		Subsystem: "executor",
		Name:      "invocations_total",
		Help:      "Tool invocations by tool name and outcome: ok, unknown_tool, parameter_mismatch, execution_failure",
	}, []string{"tool", "outcome"})

	executorDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "driftwood",
		Subsystem: "executor",
		Name:      "duration_seconds",
		Help:      "Wall time of tool invocations",
		Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1.0, 5.0, 30.0, 60.0},
	}, []string{"tool"})
)

// =============================================================================
// OTel Tracer
// =============================================================================

var executorTracer = otel.Tracer("driftwood.query.executor")

// =============================================================================
// Result Types
// =============================================================================

// ErrorKind classifies an invocation failure.
type ErrorKind string

const (
	// KindNone marks a successful invocation.
	KindNone ErrorKind = ""
	// KindUnknownTool means the name does not exist in the catalog.
	KindUnknownTool ErrorKind = "UnknownTool"
	// KindParameterMismatch means the parameters failed validation or the
	// implementation rejected their types.
	KindParameterMismatch ErrorKind = "ParameterMismatch"
	// KindExecutionFailure covers every other runtime fault.
	KindExecutionFailure ErrorKind = "ExecutionFailure"
)

// metricLabel maps an ErrorKind to its bounded metric label value.
func (k ErrorKind) metricLabel() string {
	switch k {
	case KindNone:
		return "ok"
	case KindUnknownTool:
		return "unknown_tool"
	case KindParameterMismatch:
		return "parameter_mismatch"
	default:
		return "execution_failure"
	}
}

// Result is the uniform outcome of one tool invocation.
type Result struct {
	OK     bool
	Output string
	Kind   ErrorKind
	Err    string
}

// =============================================================================
// Executor
// =============================================================================

// Runner resolves tool names to implementations. Satisfied by
// *tools.Registry; tests substitute stubs.
type Runner interface {
	Lookup(name string) (tools.Func, bool)
}

// Executor invokes catalog tools with validation and classification.
//
// Description:
//
//	The executor is the single boundary between suggestion-producing
//	tiers (matcher, reasoner, explicit calls) and the tool bodies. Every
//	failure comes back as a classified Result; Invoke never panics past
//	its own frame even when a tool body does.
//
// Thread Safety: Safe for concurrent use.
type Executor struct {
	catalog *catalog.Catalog
	runners Runner
	logger  *slog.Logger
}

// New constructs an Executor.
//
// Inputs:
//
//	cat     - The tool catalog. Must not be nil.
//	runners - Tool implementation source. Must not be nil.
//	logger  - Logger instance. Nil uses slog.Default().
func New(cat *catalog.Catalog, runners Runner, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{catalog: cat, runners: runners, logger: logger}
}

// Invoke runs one tool by name.
//
// Description:
//
//	Validation order: catalog lookup, required-parameter check, default
//	fill, dispatch. Tool bodies signal expected domain failures by
//	returning a string prefixed with "Error:"; those become
//	ExecutionFailure results. A panicking tool body is recovered and
//	classified rather than propagated.
//
// Inputs:
//
//	ctx    - Context for cancellation. Must not be nil.
//	name   - Tool name, as listed in the catalog.
//	params - Parameter map. Nil is treated as empty.
//
// Outputs:
//
//	Result - Always well formed; OK=false carries a Kind and message.
//
// Thread Safety: Safe for concurrent use.
func (e *Executor) Invoke(ctx context.Context, name string, params map[string]any) (res Result) {
	ctx, span := executorTracer.Start(ctx, "executor.Invoke")
	defer span.End()
	span.SetAttributes(attribute.String("tool", name))

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tool panicked",
				slog.String("tool", name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			res = Result{
				OK:   false,
				Kind: classifyPanic(r),
				Err:  fmt.Sprintf("tool '%s' failed internally: %v", name, r),
			}
		}
		executorDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		executorInvocationsTotal.WithLabelValues(name, res.Kind.metricLabel()).Inc()
		span.SetAttributes(attribute.Bool("ok", res.OK))
	}()

	desc, ok := e.catalog.Describe(name)
	if !ok {
		return Result{
			OK:   false,
			Kind: KindUnknownTool,
			Err: fmt.Sprintf("unknown tool '%s'. Valid tools: %s",
				name, strings.Join(e.catalog.Names(), ", ")),
		}
	}

	if params == nil {
		params = map[string]any{}
	}
	if missing := missingRequired(desc, params); len(missing) > 0 {
		return Result{
			OK:   false,
			Kind: KindParameterMismatch,
			Err: fmt.Sprintf("tool '%s' is missing required parameters: %s. Expected parameters: %s. Example: %s",
				name, strings.Join(missing, ", "), describeParams(desc), renderExample(desc)),
		}
	}
	applyDefaults(desc, params)

	fn, ok := e.runners.Lookup(name)
	if !ok {
		// Catalog and registry disagree; a wiring bug, not a caller error.
		e.logger.Error("catalog tool has no registered implementation", slog.String("tool", name))
		return Result{
			OK:   false,
			Kind: KindExecutionFailure,
			Err:  fmt.Sprintf("tool '%s' has no registered implementation", name),
		}
	}

	output := fn(ctx, params)
	if strings.HasPrefix(output, "Error:") {
		return Result{OK: false, Output: output, Kind: KindExecutionFailure, Err: output}
	}
	return Result{OK: true, Output: output}
}

// missingRequired returns the required parameter names absent or empty
// in params.
func missingRequired(desc catalog.ToolDescriptor, params map[string]any) []string {
	var missing []string
	for _, p := range desc.Params {
		if !p.Required {
			continue
		}
		v, ok := params[p.Name]
		if !ok || v == nil || v == "" {
			missing = append(missing, p.Name)
		}
	}
	return missing
}

// applyDefaults fills descriptor defaults for absent optional parameters.
func applyDefaults(desc catalog.ToolDescriptor, params map[string]any) {
	for _, p := range desc.Params {
		if p.Default == "" {
			continue
		}
		if v, ok := params[p.Name]; !ok || v == nil || v == "" {
			params[p.Name] = p.Default
		}
	}
}

// describeParams renders a descriptor's parameter list for error messages.
func describeParams(desc catalog.ToolDescriptor) string {
	if len(desc.Params) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(desc.Params))
	for _, p := range desc.Params {
		s := p.Name
		if p.Required {
			s += " (required)"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

// renderExample renders a descriptor's example parameter set as JSON.
func renderExample(desc catalog.ToolDescriptor) string {
	b, err := json.Marshal(desc.Example)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// classifyPanic maps a recovered panic to an error kind. Type assertion
// and conversion panics come from malformed parameter values.
func classifyPanic(r any) ErrorKind {
	msg := fmt.Sprintf("%v", r)
	if strings.Contains(msg, "interface conversion") || strings.Contains(msg, "type assertion") {
		return KindParameterMismatch
	}
	return KindExecutionFailure
}
