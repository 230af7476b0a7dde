// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command driftwood starts the Driftwood query API server.
//
// Driftwood is a natural-language front end to a fixed catalog of CSV
// analysis tools: free text in, one deterministic tool invocation out,
// with an optional Ollama-backed reasoner as the fallback tier.
//
// Usage:
//
//	go run ./cmd/driftwood
//	go run ./cmd/driftwood -port 9090 -data-dir /srv/csv
//
// With the remote reasoner:
//
//	OLLAMA_BASE_URL=http://localhost:11434 go run ./cmd/driftwood
//
// Example requests:
//
//	# Resolve a query
//	curl -X POST http://localhost:8080/v1/query/resolve \
//	  -H "Content-Type: application/json" \
//	  -d '{"query": "show sales_data.csv"}'
//
//	# Invoke a tool directly
//	curl -X POST http://localhost:8080/v1/tools/execute \
//	  -H "Content-Type: application/json" \
//	  -d '{"tool": "list_data_files"}'
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/DriftwoodAI/driftwood/services/query"
	"github.com/DriftwoodAI/driftwood/services/query/catalog"
	"github.com/DriftwoodAI/driftwood/services/query/config"
	"github.com/DriftwoodAI/driftwood/services/query/executor"
	"github.com/DriftwoodAI/driftwood/services/query/providers"
	"github.com/DriftwoodAI/driftwood/services/query/reasoner"
	"github.com/DriftwoodAI/driftwood/services/query/routing"
	"github.com/DriftwoodAI/driftwood/services/query/tools"
)

func main() {
	configPath := flag.String("config", "driftwood.yaml", "Path to the YAML config file")
	port := flag.Int("port", 0, "Port to listen on (overrides config)")
	dataDir := flag.String("data-dir", "", "Data directory (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dataDir != "" {
		cfg.Paths.DataDir = *dataDir
	}

	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// W3C TraceContext propagation so inbound traceparent headers flow
	// into handler spans.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if cfg.Telemetry.Enabled {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			logger.Warn("trace exporter unavailable, continuing without export",
				slog.String("error", err.Error()))
		} else {
			tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
			otel.SetTracerProvider(tp)
		}
	}

	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.OutputDir, cfg.Paths.ScriptsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to prepare directory",
				slog.String("dir", dir),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	cat := catalog.Default()
	registry := tools.NewRegistry(cfg.Paths.DataDir, cfg.Paths.OutputDir, cfg.Paths.ScriptsDir, logger)
	exec := executor.New(cat, registry, logger)
	matcher := routing.NewMatcher(cat, registry.Headers, logger)

	var suggester routing.Suggester
	reasonerEnabled := false
	if cfg.Reasoner.Enabled {
		client := providers.NewOllamaClient(providers.OllamaOptions{
			BaseURL:     cfg.Reasoner.BaseURL,
			Model:       cfg.Reasoner.Model,
			Timeout:     cfg.Reasoner.Timeout(),
			MaxAttempts: cfg.Reasoner.MaxAttempts,
			RatePerSec:  cfg.Reasoner.RatePerSec,
		}, logger)
		suggester = reasoner.New(client, cat, logger)
		reasonerEnabled = true
		logger.Info("reasoner tier enabled", slog.String("model", client.Model()))
	} else {
		logger.Info("reasoner tier disabled; unmatched queries get the default response")
	}

	router := routing.NewRouter(cat, matcher, exec, suggester, registry, logger)
	handlers := query.NewHandlers(router, exec, cat, registry, cfg.Paths.DataDir, cfg.Paths.OutputDir, logger)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware("driftwood-query"))
	if *debug {
		engine.Use(gin.Logger())
	}

	query.RegisterRoutes(engine.Group("/v1"), handlers)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	printBanner(cfg.Server.Port, reasonerEnabled, cfg.Paths.DataDir)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("shutting down driftwood server")
		os.Exit(0)
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("starting driftwood server", slog.String("address", addr))
	if err := engine.Run(addr); err != nil {
		logger.Error("failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func printBanner(port int, reasonerEnabled bool, dataDir string) {
	fmt.Print(buildBanner(port, reasonerEnabled, dataDir))
}

// buildBanner renders the startup box plus the quick-start lines. Long
// values are truncated so the frame stays intact.
func buildBanner(port int, reasonerEnabled bool, dataDir string) string {
	reasonerStatus := "DISABLED (heuristics only)"
	if reasonerEnabled {
		reasonerStatus = "ENABLED (set OLLAMA_BASE_URL to point elsewhere)"
	}

	box := `
╔════════════════════════════════════════════════════════════════╗
║                     DRIFTWOOD QUERY SERVER                     ║
╠════════════════════════════════════════════════════════════════╣
║                                                                ║
║  Natural-language routing over CSV analysis tools.             ║
║  Reasoner: %-50.50s  ║
║  Data dir: %-50.50s  ║
║  Port:     %-50d  ║
║                                                                ║
╚════════════════════════════════════════════════════════════════╝
`
	tail := `
Quick start:
  curl -X POST http://localhost:%d/v1/query/resolve \
    -H "Content-Type: application/json" \
    -d '{"query": "show sales_data.csv"}'

  curl http://localhost:%d/v1/tools

Press Ctrl+C to stop.

`
	return fmt.Sprintf(box, reasonerStatus, dataDir, port) + fmt.Sprintf(tail, port, port)
}
