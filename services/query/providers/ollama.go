// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var ollamaTracer = otel.Tracer("driftwood.query.providers.ollama")

// =============================================================================
// Wire Types
// =============================================================================

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type ollamaChatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
}

// =============================================================================
// OllamaClient
// =============================================================================

// OllamaClient is a minimal chat client for an Ollama-compatible
// endpoint (POST {base}/api/chat, stream disabled).
//
// Description:
//
//	One blocking round trip per Chat call, with a retry policy tuned for
//	a locally hosted model: timeouts retry up to the attempt budget
//	(the model may be loading), connection failures return
//	ErrUnavailable immediately (the server is simply not running, and
//	retrying cannot help). A token-bucket limiter throttles the request
//	rate so concurrent queries cannot pile onto the model.
//
// Thread Safety: Safe for concurrent use.
type OllamaClient struct {
	baseURL     string
	model       string
	maxAttempts int
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// OllamaOptions configures NewOllamaClient. Zero values take defaults.
type OllamaOptions struct {
	BaseURL     string        // default: ResolveOllamaURL
	Model       string        // default: ResolveModel
	Timeout     time.Duration // per-attempt; default 30s
	MaxAttempts int           // total attempts on timeout; default 3
	RatePerSec  float64       // request rate limit; default 2
}

// NewOllamaClient constructs an OllamaClient.
//
// Outputs:
//
//	*OllamaClient - The constructed client. Never nil.
func NewOllamaClient(opts OllamaOptions, logger *slog.Logger) *OllamaClient {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = ResolveOllamaURL(logger)
	}
	if opts.Model == "" {
		opts.Model = ResolveModel()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 2
	}
	return &OllamaClient{
		baseURL:     opts.BaseURL,
		model:       opts.Model,
		maxAttempts: opts.MaxAttempts,
		httpClient:  &http.Client{Timeout: opts.Timeout},
		limiter:     rate.NewLimiter(rate.Limit(opts.RatePerSec), int(opts.RatePerSec)*2),
		logger:      logger,
	}
}

// Model returns the configured model name.
func (c *OllamaClient) Model() string {
	return c.model
}

// Chat sends one chat completion request.
//
// Description:
//
//	Retries only on per-attempt timeouts, up to the attempt budget.
//	Connection failures return ErrUnavailable without retrying.
//	Exhausted timeout retries return ErrTimeout.
//
// Inputs:
//
//	ctx      - Context for cancellation. Must not be nil.
//	messages - Ordered chat turns. Must not be empty.
//	opts     - Per-call overrides; zero values use client defaults.
//
// Outputs:
//
//	string - The reply text on success.
//	error  - ErrUnavailable, ErrTimeout, or an HTTP/decode error.
//
// Thread Safety: Safe for concurrent use.
func (c *OllamaClient) Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error) {
	ctx, span := ollamaTracer.Start(ctx, "providers.OllamaClient.Chat")
	defer span.End()

	model := opts.Model
	if model == "" {
		model = c.model
	}
	span.SetAttributes(
		attribute.String("model", model),
		attribute.Int("messages", len(messages)),
	)

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	start := time.Now()
	reply, err := c.chatWithRetry(ctx, model, messages)
	providerLatency.WithLabelValues("ollama").Observe(time.Since(start).Seconds())
	providerRequestsTotal.WithLabelValues("ollama", classifyOutcome(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat failed")
		return "", err
	}
	return reply, nil
}

func (c *OllamaClient) chatWithRetry(ctx context.Context, model string, messages []Message) (string, error) {
	body, err := json.Marshal(ollamaChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	endpoint := c.baseURL + "/api/chat"
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		reply, err := c.doChat(ctx, endpoint, body)
		if err == nil {
			return reply, nil
		}

		if !isTimeout(err) {
			if isConnectionError(err) {
				c.logger.Warn("ollama unreachable",
					slog.String("endpoint", endpoint),
					slog.String("error", err.Error()),
				)
				return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			return "", err
		}

		c.logger.Warn("ollama request timed out",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", c.maxAttempts),
		)
	}
	return "", ErrTimeout
}

func (c *OllamaClient) doChat(ctx context.Context, endpoint string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ollama returned HTTP %d: %s", resp.StatusCode, string(snippet))
	}

	var decoded ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	return decoded.Message.Content, nil
}

// isTimeout reports whether an HTTP round-trip error was a timeout (per
// attempt client timeout or deadline) rather than a reachability failure.
func isTimeout(err error) bool {
	var uerr *url.Error
	return errors.As(err, &uerr) && uerr.Timeout()
}

// isConnectionError reports whether the error means the endpoint could
// not be reached at all (connection refused, DNS failure).
func isConnectionError(err error) bool {
	var uerr *url.Error
	return errors.As(err, &uerr)
}
