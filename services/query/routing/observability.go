// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	routerResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "driftwood",
		Subsystem: "router",
		Name:      "resolutions_total",
		Help:      "Query resolutions by deciding tier (explicit, sigil, heuristic, reasoner, default) and outcome (executed, no_tool, failed)",
	}, []string{"tier", "outcome"})

	routerResolutionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "driftwood",
		Subsystem: "router",
		Name:      "resolution_latency_seconds",
		Help:      "End-to-end latency of one query resolution",
		Buckets:   []float64{0.005, 0.05, 0.25, 1.0, 5.0, 30.0, 120.0},
	}, []string{"tier"})
)

// =============================================================================
// OTel Tracer
// =============================================================================

var routerTracer = otel.Tracer("driftwood.query.routing")

// truncateForLog bounds attribute values derived from user input.
func truncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
