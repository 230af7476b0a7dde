// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// resolveResponse mirrors the server's POST /v1/query/resolve body.
type resolveResponse struct {
	ToolUsed    string         `json:"tool_used,omitempty"`
	Parameters  map[string]any `json:"parameters"`
	Explanation string         `json:"explanation"`
	ToolOutput  string         `json:"tool_output,omitempty"`
	Success     bool           `json:"success"`
	Error       string         `json:"error,omitempty"`
}

// executeResult mirrors the server's POST /v1/tools/execute body.
type executeResult struct {
	OK     bool   `json:"ok"`
	Output string `json:"output,omitempty"`
	Kind   string `json:"error_kind,omitempty"`
	Error  string `json:"error,omitempty"`
}

// toolParam and toolEntry mirror the catalog listing from GET /v1/tools.
type toolParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description"`
}

type toolEntry struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []toolParam `json:"parameters"`
}

func runQueryCommand(_ *cobra.Command, args []string) {
	query := strings.Join(args, " ")
	payload, _ := json.Marshal(map[string]any{"query": query})

	body := postJSON("/v1/query/resolve", payload, "Resolving")

	var result resolveResponse
	if err := json.Unmarshal(body, &result); err != nil {
		log.Fatalf("failed to decode response: %v", err)
	}

	if result.ToolUsed != "" {
		fmt.Printf("Tool: %s\n", result.ToolUsed)
		if len(result.Parameters) > 0 {
			params, _ := json.Marshal(result.Parameters)
			fmt.Printf("Parameters: %s\n", params)
		}
		fmt.Println("---")
	}
	if result.Explanation != "" {
		fmt.Println(result.Explanation)
	}
	if result.ToolOutput != "" {
		fmt.Println(result.ToolOutput)
	}
	if !result.Success {
		fmt.Fprintf(os.Stderr, "\nError: %s\n", result.Error)
		os.Exit(1)
	}
}

func runExecCommand(_ *cobra.Command, args []string) {
	params, err := parseParamFlags(execParams)
	if err != nil {
		log.Fatalf("--param: %v", err)
	}

	payload, _ := json.Marshal(map[string]any{
		"tool":       args[0],
		"parameters": params,
	})

	body := postJSON("/v1/tools/execute", payload, "Executing")

	var result executeResult
	if err := json.Unmarshal(body, &result); err != nil {
		log.Fatalf("failed to decode response: %v", err)
	}

	if !result.OK {
		fmt.Fprintf(os.Stderr, "Error (%s): %s\n", result.Kind, result.Error)
		os.Exit(1)
	}
	fmt.Println(result.Output)
}

func runToolsCommand(_ *cobra.Command, _ []string) {
	body := getJSON("/v1/tools")

	var listing struct {
		Tools []toolEntry `json:"tools"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		log.Fatalf("failed to decode response: %v", err)
	}

	for _, tool := range listing.Tools {
		fmt.Printf("%s\n  %s\n", tool.Name, tool.Description)
		for _, p := range tool.Params {
			marker := "optional"
			if p.Required {
				marker = "required"
			}
			if p.Default != "" {
				marker += fmt.Sprintf(", default %q", p.Default)
			}
			fmt.Printf("    %-14s %s (%s) %s\n", p.Name, p.Type, marker, p.Description)
		}
		fmt.Println()
	}
}

func runFilesCommand(_ *cobra.Command, _ []string) {
	body := getJSON("/v1/files")

	var listing struct {
		Files []struct {
			Name string `json:"name"`
			Size int64  `json:"size"`
		} `json:"files"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		log.Fatalf("failed to decode response: %v", err)
	}

	if len(listing.Files) == 0 {
		fmt.Println("No files on the server. Upload one with 'dw upload <path>'.")
		return
	}
	for _, f := range listing.Files {
		fmt.Printf("%-40s %8d bytes\n", f.Name, f.Size)
	}
}

func runUploadCommand(_ *cobra.Command, args []string) {
	path := args[0]
	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("cannot open %s: %v", path, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Printf("failed to close %s: %v", path, err)
		}
	}()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		log.Fatalf("failed to build upload: %v", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		log.Fatalf("failed to read %s: %v", path, err)
	}
	if err := writer.Close(); err != nil {
		log.Fatalf("failed to build upload: %v", err)
	}

	targetURL := getServerBaseURL() + "/v1/files/upload"
	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Post(targetURL, writer.FormDataContentType(), &buf)
	if err != nil {
		fatalConnection(err)
	}
	body := readBody(resp)

	if resp.StatusCode != http.StatusCreated {
		log.Fatalf("upload failed (HTTP %d): %s", resp.StatusCode, string(body))
	}
	fmt.Printf("Uploaded %s\n", filepath.Base(path))
}

func runDownloadCommand(_ *cobra.Command, args []string) {
	name := filepath.Base(args[0])
	targetURL := getServerBaseURL() + "/v1/files/download/" + name

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Get(targetURL)
	if err != nil {
		fatalConnection(err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Fatalf("download failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	out, err := os.Create(name)
	if err != nil {
		log.Fatalf("cannot create %s: %v", name, err)
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Printf("failed to close %s: %v", name, err)
		}
	}()

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		log.Fatalf("failed to write %s: %v", name, err)
	}
	fmt.Printf("Saved %s (%d bytes)\n", name, n)
}

// parseParamFlags turns repeated key=value flags into a parameter map.
// Values that parse as numbers or booleans are sent typed so tools
// receive them the same way the server's JSON decoder would deliver them.
func parseParamFlags(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			params[key] = n
		} else if b, err := strconv.ParseBool(value); err == nil {
			params[key] = b
		} else {
			params[key] = value
		}
	}
	return params, nil
}

func postJSON(path string, payload []byte, spinnerMsg string) []byte {
	targetURL := getServerBaseURL() + path

	var done chan bool
	if isatty.IsTerminal(os.Stdout.Fd()) {
		done = make(chan bool)
		go showSpinner(spinnerMsg, done)
	}

	client := &http.Client{Timeout: 3 * time.Minute}
	resp, err := client.Post(targetURL, "application/json", bytes.NewBuffer(payload))
	if done != nil {
		done <- true
		fmt.Print("\r                                        \r")
	}
	if err != nil {
		fatalConnection(err)
	}
	body := readBody(resp)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		log.Fatalf("server error (HTTP %d): %s", resp.StatusCode, string(body))
	}
	return body
}

func getJSON(path string) []byte {
	targetURL := getServerBaseURL() + path

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(targetURL)
	if err != nil {
		fatalConnection(err)
	}
	body := readBody(resp)

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("server error (HTTP %d): %s", resp.StatusCode, string(body))
	}
	return body
}

func readBody(resp *http.Response) []byte {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("failed to close response body: %v", err)
		}
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("failed to read response: %v", err)
	}
	return body
}

func fatalConnection(err error) {
	fmt.Fprintf(os.Stderr, "Error: driftwood server unavailable at %s\n", getServerBaseURL())
	fmt.Fprintln(os.Stderr, "Start it with: go run ./cmd/driftwood")
	fmt.Fprintln(os.Stderr, "Or set DRIFTWOOD_SERVER_URL / --server to point elsewhere.")
	log.Fatalf("connection failed: %v", err)
}

// showSpinner animates a progress indicator on the current line until
// a value arrives on done.
func showSpinner(msg string, done chan bool) {
	chars := []string{"▖", "▘", "▝", "▗"}
	i := 0

	fmt.Print("\033[?25l")
	defer fmt.Print("\033[?25h")

	for {
		select {
		case <-done:
			return
		default:
			fmt.Printf("\r%s  %s... \033[K", chars[i%len(chars)], msg)
			i++
			time.Sleep(100 * time.Millisecond)
		}
	}
}
