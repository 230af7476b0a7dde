// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package query wires the resolution pipeline behind an HTTP surface:
// query resolution, direct tool execution, catalog listing, and data
// file management.
package query

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/DriftwoodAI/driftwood/services/query/catalog"
	"github.com/DriftwoodAI/driftwood/services/query/executor"
	"github.com/DriftwoodAI/driftwood/services/query/routing"
	"github.com/DriftwoodAI/driftwood/services/query/tools"
)

// maxUploadBytes bounds one uploaded CSV file.
const maxUploadBytes = 64 << 20

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Handlers carries the wired collaborators for every endpoint.
//
// Thread Safety: Safe for concurrent use (delegates to thread-safe parts).
type Handlers struct {
	router   *routing.Router
	executor *executor.Executor
	catalog  *catalog.Catalog
	registry *tools.Registry
	dataDir  string
	outDir   string
	logger   *slog.Logger
}

// NewHandlers constructs the handler set.
//
// Inputs:
//
//	router  - The query router. Must not be nil.
//	exec    - The tool executor. Must not be nil.
//	cat     - The tool catalog. Must not be nil.
//	reg     - The tool registry (file listing). Must not be nil.
//	dataDir - Directory uploads land in and downloads resolve against.
//	outDir  - Directory chart artifacts resolve against.
//	logger  - Logger instance. Nil uses slog.Default().
func NewHandlers(router *routing.Router, exec *executor.Executor, cat *catalog.Catalog, reg *tools.Registry, dataDir, outDir string, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		router:   router,
		executor: exec,
		catalog:  cat,
		registry: reg,
		dataDir:  dataDir,
		outDir:   outDir,
		logger:   logger,
	}
}

// getOrCreateRequestID returns the inbound X-Request-ID, minting one
// when the caller did not send it.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

// handleResolve resolves one free-text query (POST /v1/query/resolve).
func (h *Handlers) handleResolve(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With(slog.String("request_id", requestID))

	var req routing.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("invalid request body: %v", err),
			Code:  "bad_request",
		})
		return
	}
	if strings.TrimSpace(req.Query) == "" && req.Tool == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "either 'query' or 'tool' must be provided",
			Code:  "bad_request",
		})
		return
	}

	logger.Info("resolving query",
		slog.String("query_preview", preview(req.Query, 80)),
		slog.Bool("explicit_tool", req.Tool != ""),
	)

	res := h.router.Resolve(c.Request.Context(), req)
	c.Header("X-Request-ID", requestID)
	c.JSON(http.StatusOK, res)
}

// executeRequest is the body of POST /v1/tools/execute.
type executeRequest struct {
	Tool       string         `json:"tool" binding:"required"`
	Parameters map[string]any `json:"parameters"`
}

// executeResponse mirrors the executor result on the wire.
type executeResponse struct {
	OK     bool   `json:"ok"`
	Output string `json:"output,omitempty"`
	Kind   string `json:"error_kind,omitempty"`
	Error  string `json:"error,omitempty"`
}

// handleExecute invokes one tool directly (POST /v1/tools/execute).
func (h *Handlers) handleExecute(c *gin.Context) {
	requestID := getOrCreateRequestID(c)

	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("invalid request body: %v", err),
			Code:  "bad_request",
		})
		return
	}

	res := h.executor.Invoke(c.Request.Context(), req.Tool, req.Parameters)
	status := http.StatusOK
	if res.Kind == executor.KindUnknownTool {
		status = http.StatusNotFound
	}
	c.Header("X-Request-ID", requestID)
	c.JSON(status, executeResponse{
		OK:     res.OK,
		Output: res.Output,
		Kind:   string(res.Kind),
		Error:  res.Err,
	})
}

// handleListTools returns the catalog (GET /v1/tools).
func (h *Handlers) handleListTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": h.catalog.List()})
}

// fileEntry is one row of GET /v1/files.
type fileEntry struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// handleListFiles enumerates the data directory (GET /v1/files).
func (h *Handlers) handleListFiles(c *gin.Context) {
	names := h.registry.DataFiles()
	files := make([]fileEntry, 0, len(names))
	for _, name := range names {
		entry := fileEntry{Name: name}
		if info, err := os.Stat(filepath.Join(h.dataDir, name)); err == nil {
			entry.Size = info.Size()
			entry.Modified = info.ModTime()
		}
		files = append(files, entry)
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// handleUpload stores one CSV file (POST /v1/files/upload, multipart
// field "file").
func (h *Handlers) handleUpload(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With(slog.String("request_id", requestID))

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "multipart field 'file' is required",
			Code:  "bad_request",
		})
		return
	}
	name := filepath.Base(file.Filename)
	if !strings.HasSuffix(strings.ToLower(name), ".csv") {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "only .csv files are accepted",
			Code:  "unsupported_type",
		})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: fmt.Sprintf("file exceeds the %d byte limit", maxUploadBytes),
			Code:  "too_large",
		})
		return
	}

	if err := os.MkdirAll(h.dataDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "could not prepare data directory", Code: "internal"})
		return
	}
	dest := filepath.Join(h.dataDir, name)
	if err := c.SaveUploadedFile(file, dest); err != nil {
		logger.Error("upload failed", slog.String("file", name), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "could not store the file", Code: "internal"})
		return
	}

	logger.Info("file uploaded", slog.String("file", name), slog.Int64("size", file.Size))
	c.JSON(http.StatusCreated, gin.H{"name": name, "size": file.Size})
}

// handleDownload serves a data file or a generated chart artifact
// (GET /v1/files/download/:name).
func (h *Handlers) handleDownload(c *gin.Context) {
	name := filepath.Base(c.Param("name"))
	if name == "." || name == string(filepath.Separator) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid file name", Code: "bad_request"})
		return
	}

	for _, dir := range []string{h.dataDir, h.outDir} {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			c.FileAttachment(path, name)
			return
		}
	}
	c.JSON(http.StatusNotFound, ErrorResponse{
		Error: fmt.Sprintf("file '%s' not found", name),
		Code:  "not_found",
	})
}

// handleHealth is the liveness probe (GET /v1/health).
func (h *Handlers) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleReady is the readiness probe (GET /v1/ready). Ready means the
// data directory is reachable; the reasoner tier is optional by design
// and never gates readiness.
func (h *Handlers) handleReady(c *gin.Context) {
	if _, err := os.Stat(h.dataDir); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": "data directory unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func preview(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
