// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string, timeout time.Duration, attempts int) *OllamaClient {
	return NewOllamaClient(OllamaOptions{
		BaseURL:     baseURL,
		Model:       "test-model",
		Timeout:     timeout,
		MaxAttempts: attempts,
		RatePerSec:  1000, // tests must not be throttled
	}, nil)
}

func TestChatSuccess(t *testing.T) {
	var gotBody ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":{"role":"assistant","content":"hello there"}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second, 3)
	reply, err := c.Chat(context.Background(), []Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "hi"},
	}, ChatOptions{})

	require.NoError(t, err)
	assert.Equal(t, "hello there", reply)
	assert.Equal(t, "test-model", gotBody.Model)
	assert.False(t, gotBody.Stream, "streaming must be disabled")
	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
}

func TestChatConnectionErrorDoesNotRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing is listening anymore

	c := testClient(srv.URL, 2*time.Second, 3)

	start := time.Now()
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, ChatOptions{})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable), "expected ErrUnavailable, got %v", err)
	assert.Less(t, elapsed, time.Second, "connection failure must return immediately, not retry")
}

func TestChatRetriesOnTimeoutThenGivesUp(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 20*time.Millisecond, 3)
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, ChatOptions{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "expected ErrTimeout, got %v", err)
	assert.Equal(t, int32(3), attempts.Load(), "should attempt exactly the retry budget")
}

func TestChatNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 2*time.Second, 3)
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, ChatOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
	assert.False(t, errors.Is(err, ErrUnavailable))
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestChatModelOverride(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		w.Write([]byte(`{"message":{"content":"ok"}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 2*time.Second, 1)
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, ChatOptions{Model: "bigger-model"})

	require.NoError(t, err)
	assert.Equal(t, "bigger-model", gotModel)
}

func TestResolveOllamaURL(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "")
	t.Setenv("OLLAMA_URL", "")
	assert.Equal(t, DefaultOllamaURL, ResolveOllamaURL(nil))

	t.Setenv("OLLAMA_URL", "http://legacy:11434/")
	assert.Equal(t, "http://legacy:11434", ResolveOllamaURL(nil))

	t.Setenv("OLLAMA_BASE_URL", "http://primary:11434")
	assert.Equal(t, "http://primary:11434", ResolveOllamaURL(nil), "OLLAMA_BASE_URL should win over OLLAMA_URL")
}
