// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DriftwoodAI/driftwood/services/query/catalog"
	"github.com/DriftwoodAI/driftwood/services/query/executor"
	"github.com/DriftwoodAI/driftwood/services/query/routing"
	"github.com/DriftwoodAI/driftwood/services/query/tools"
)

const salesCSV = "month,revenue\njan,100\nfeb,150\nmar,90\n"

// newTestServer builds the full stack with temp dirs and no reasoner.
func newTestServer(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "sales_data.csv"), []byte(salesCSV), 0o644))

	cat := catalog.Default()
	reg := tools.NewRegistry(dataDir, t.TempDir(), t.TempDir(), nil)
	exec := executor.New(cat, reg, nil)
	matcher := routing.NewMatcher(cat, reg.Headers, nil)
	router := routing.NewRouter(cat, matcher, exec, nil, reg, nil)

	h := NewHandlers(router, exec, cat, reg, dataDir, t.TempDir(), nil)
	engine := gin.New()
	RegisterRoutes(engine.Group("/v1"), h)
	return engine, dataDir
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestResolveEndpoint(t *testing.T) {
	engine, _ := newTestServer(t)

	w := doJSON(t, engine, http.MethodPost, "/v1/query/resolve", gin.H{"query": "show sales_data.csv"})
	require.Equal(t, http.StatusOK, w.Code)

	var res routing.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "read_csv", res.ToolUsed)
	assert.Contains(t, res.ToolOutput, "3 rows, 2 columns")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestResolveEndpointRejectsEmptyBody(t *testing.T) {
	engine, _ := newTestServer(t)

	w := doJSON(t, engine, http.MethodPost, "/v1/query/resolve", gin.H{"query": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExecuteEndpoint(t *testing.T) {
	engine, _ := newTestServer(t)

	w := doJSON(t, engine, http.MethodPost, "/v1/tools/execute", gin.H{
		"tool":       "get_data_stats",
		"parameters": gin.H{"data_source": "sales_data.csv"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		OK     bool   `json:"ok"`
		Output string `json:"output"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.OK)
	assert.Contains(t, res.Output, "revenue")
}

func TestExecuteEndpointUnknownToolIs404(t *testing.T) {
	engine, _ := newTestServer(t)

	w := doJSON(t, engine, http.MethodPost, "/v1/tools/execute", gin.H{"tool": "summon_dragon"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "UnknownTool")
}

func TestListToolsEndpoint(t *testing.T) {
	engine, _ := newTestServer(t)

	w := doJSON(t, engine, http.MethodGet, "/v1/tools", nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, name := range catalog.Default().Names() {
		assert.Contains(t, w.Body.String(), name)
	}
}

func TestListFilesEndpoint(t *testing.T) {
	engine, _ := newTestServer(t)

	w := doJSON(t, engine, http.MethodGet, "/v1/files", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sales_data.csv")
}

func TestUploadAndDownload(t *testing.T) {
	engine, dataDir := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "new_data.csv")
	require.NoError(t, err)
	fmt.Fprint(part, "a,b\n1,2\n")
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	_, err = os.Stat(filepath.Join(dataDir, "new_data.csv"))
	require.NoError(t, err)

	w = doJSON(t, engine, http.MethodGet, "/v1/files/download/new_data.csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "a,b"))

	w = doJSON(t, engine, http.MethodGet, "/v1/files/download/absent.csv", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadRejectsNonCSV(t *testing.T) {
	engine, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "payload.exe")
	require.NoError(t, err)
	fmt.Fprint(part, "binary")
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProbes(t *testing.T) {
	engine, _ := newTestServer(t)

	w := doJSON(t, engine, http.MethodGet, "/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, engine, http.MethodGet, "/v1/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
