// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package query

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts every endpoint under the given group.
//
// Layout:
//
//	POST /query/resolve        - resolve free text into a tool invocation
//	POST /tools/execute        - invoke one tool directly
//	GET  /tools                - list the tool catalog
//	GET  /files                - list data files
//	POST /files/upload         - upload a CSV file
//	GET  /files/download/:name - download a data file or chart artifact
//	GET  /health, /ready       - probes
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	queryGroup := rg.Group("/query")
	{
		queryGroup.POST("/resolve", h.handleResolve)
	}

	toolsGroup := rg.Group("/tools")
	{
		toolsGroup.GET("", h.handleListTools)
		toolsGroup.POST("/execute", h.handleExecute)
	}

	filesGroup := rg.Group("/files")
	{
		filesGroup.GET("", h.handleListFiles)
		filesGroup.POST("/upload", h.handleUpload)
		filesGroup.GET("/download/:name", h.handleDownload)
	}

	rg.GET("/health", h.handleHealth)
	rg.GET("/ready", h.handleReady)
}
