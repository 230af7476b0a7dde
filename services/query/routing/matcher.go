// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package routing turns one free-text query into at most one tool
// invocation. The heuristic matcher is an ordered, first-match-wins
// rule set; the router wires it together with the executor and the
// optional remote reasoner tier.
package routing

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/DriftwoodAI/driftwood/services/query/catalog"
)

// EscapeSigil prefixes a query that names a tool directly, bypassing
// all heuristics: "#read_csv sales.csv" or "#filter_data {...}".
const EscapeSigil = "#"

// =============================================================================
// Match
// =============================================================================

// Match is the matcher's verdict on one query.
//
// Description:
//
//	Tool empty with a non-empty Explanation means a keyword family fired
//	but the query lacks something (a file, a filter clause); the router
//	returns the clarification without consulting the reasoner.
type Match struct {
	Tool        string
	Params      map[string]any
	Explanation string
	Source      string // "sigil" or "heuristic"
}

// =============================================================================
// Keyword Families
// =============================================================================

// familyOrder is the authoritative priority order. A query containing
// keywords from two families resolves to the EARLIER family, regardless
// of keyword count or position.
var familyOrder = []struct {
	name     string
	keywords []string
}{
	{"read", []string{"read", "show", "view", "display", "content", "contents", "open"}},
	{"chart", []string{"chart", "graph", "plot", "visualize", "visualization"}},
	{"stats", []string{"stats", "statistics", "analyze", "analysis", "summary", "summarize", "describe"}},
	{"column", []string{"column", "columns", "field", "fields", "info"}},
	{"list", []string{"list", "files", "available"}},
	{"filter", []string{"filter", "search", "find", "where", "select"}},
}

// chartSubtypes maps secondary keywords to a chart kind; absent all of
// them the chart family defaults to "bar".
var chartSubtypes = []struct {
	keyword string
	kind    string
}{
	{"pie", "pie"},
	{"line", "line"},
	{"scatter", "scatter"},
}

// filterPatterns is the ordered clause-extraction list. Earlier patterns
// win; each yields (column, operator token, value) or (column, value)
// with a fixed operator.
var filterPatterns = []struct {
	re *regexp.Regexp
	op string // fixed operation; empty means group 2 holds the operator token
}{
	{regexp.MustCompile(`(?i)where\s+(\w+)\s*(==|=|!=|>|<|not\s+equals|greater\s+than|less\s+than|equals|contains)\s*(\S+)`), ""},
	{regexp.MustCompile(`(?i)(\w+)\s+equals\s+(\S+)`), "equals"},
	{regexp.MustCompile(`(?i)(\w+)\s*>\s*(\S+)`), "greater"},
	{regexp.MustCompile(`(?i)(\w+)\s*<\s*(\S+)`), "less"},
}

// operatorTokens maps a matched operator token to its canonical
// operation name.
var operatorTokens = map[string]string{
	"=":            "equals",
	"==":           "equals",
	"equals":       "equals",
	"contains":     "contains",
	">":            "greater",
	"greater than": "greater",
	"<":            "less",
	"less than":    "less",
	"!=":           "not_equals",
	"not equals":   "not_equals",
}

var wordRe = regexp.MustCompile(`[\w.]+`)

// =============================================================================
// Matcher
// =============================================================================

// Matcher applies the deterministic rule set. Identical query text
// against an unchanged file set always yields the same verdict.
//
// Thread Safety: Safe for concurrent use (read-only state).
type Matcher struct {
	catalog *catalog.Catalog
	headers func(filename string) ([]string, error)
	logger  *slog.Logger
}

// NewMatcher constructs a Matcher.
//
// Inputs:
//
//	cat     - The tool catalog. Must not be nil.
//	headers - Best-effort header reader for chart axis defaults. Nil
//	          disables the header peek (axis defaults fall back to x/y).
//	logger  - Logger instance. Nil uses slog.Default().
func NewMatcher(cat *catalog.Catalog, headers func(string) ([]string, error), logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{catalog: cat, headers: headers, logger: logger}
}

// Match applies the ordered rules to one query.
//
// Description:
//
//	Rule order: escape sigil, then verb-keyword families (with file
//	detection feeding the chosen family). The second return is false
//	when no rule fired at all, which tells the router to consult the
//	next tier.
//
// Inputs:
//
//	query - Raw query text.
//	files - Snapshot of currently available data files.
//
// Outputs:
//
//	*Match - The verdict; nil when no rule fired.
//	bool   - True when a rule fired (even a clarification).
func (m *Matcher) Match(query string, files []string) (*Match, bool) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, false
	}

	if strings.HasPrefix(trimmed, EscapeSigil) {
		return m.matchSigil(trimmed), true
	}

	words := tokenize(trimmed)
	file := detectFile(trimmed, words, files)

	for _, family := range familyOrder {
		if !containsAny(words, family.keywords) {
			continue
		}
		match := m.matchFamily(family.name, trimmed, file, files)
		match.Source = "heuristic"
		return match, true
	}

	return nil, false
}

// matchSigil parses the escape-hatch syntax: sigil, tool name, optional
// parameter blob. A blob that looks like a JSON object is parsed as the
// parameter map; anything else binds to the tool's first required
// parameter as a single value.
func (m *Matcher) matchSigil(query string) *Match {
	rest := strings.TrimSpace(strings.TrimPrefix(query, EscapeSigil))
	name := rest
	blob := ""
	if i := strings.IndexAny(rest, " \t"); i >= 0 {
		name = rest[:i]
		blob = strings.TrimSpace(rest[i+1:])
	}

	params := map[string]any{}
	if strings.HasPrefix(blob, "{") {
		if err := json.Unmarshal([]byte(blob), &params); err != nil {
			m.logger.Warn("sigil parameter blob is not valid JSON, binding positionally",
				slog.String("tool", name),
				slog.String("error", err.Error()),
			)
			params = map[string]any{}
			m.bindPositional(name, blob, params)
		}
	} else if blob != "" {
		m.bindPositional(name, blob, params)
	}

	return &Match{
		Tool:        name,
		Params:      params,
		Explanation: fmt.Sprintf("Direct invocation of %s", name),
		Source:      "sigil",
	}
}

func (m *Matcher) bindPositional(tool, value string, params map[string]any) {
	key := "filename"
	if desc, ok := m.catalog.Describe(tool); ok {
		if first := desc.FirstRequired(); first != "" {
			key = first
		}
	}
	params[key] = value
}

// matchFamily builds the verdict for the winning keyword family.
func (m *Matcher) matchFamily(family, query, file string, files []string) *Match {
	switch family {
	case "read":
		if file == "" {
			return &Match{Explanation: clarifyFile("read", files)}
		}
		return &Match{
			Tool:        "read_csv",
			Params:      map[string]any{"filename": file},
			Explanation: fmt.Sprintf("Reading %s", file),
		}

	case "chart":
		return m.matchChart(query, file, files)

	case "stats":
		if file == "" {
			return &Match{Explanation: clarifyFile("compute statistics for", files)}
		}
		return &Match{
			Tool:        "get_data_stats",
			Params:      map[string]any{"data_source": file},
			Explanation: fmt.Sprintf("Computing statistics for %s", file),
		}

	case "column":
		return m.matchColumn(query, file, files)

	case "list":
		return &Match{
			Tool:        "list_data_files",
			Params:      map[string]any{},
			Explanation: "Listing available data files",
		}

	case "filter":
		return m.matchFilter(query, file, files)
	}
	return &Match{Explanation: capabilitySummary(m.catalog, files)}
}

// matchChart picks the chart subtype and best-effort axis defaults.
func (m *Matcher) matchChart(query, file string, files []string) *Match {
	if file == "" {
		if len(files) == 0 {
			return &Match{Explanation: clarifyFile("chart", files)}
		}
		file = files[0]
	}

	kind := "bar"
	lower := strings.ToLower(query)
	for _, sub := range chartSubtypes {
		if strings.Contains(lower, sub.keyword) {
			kind = sub.kind
			break
		}
	}

	// Peek at the header row to pick axis defaults. Any failure falls
	// back silently to literal x/y; the tool re-resolves defaults anyway.
	xAxis, yAxis := "x", "y"
	if m.headers != nil {
		if headers, err := m.headers(file); err == nil && len(headers) > 0 {
			xAxis = headers[0]
			yAxis = headers[0]
			if len(headers) > 1 {
				yAxis = headers[1]
			}
		}
	}

	return &Match{
		Tool: "generate_chart",
		Params: map[string]any{
			"data_source": file,
			"chart_type":  kind,
			"title":       fmt.Sprintf("%s chart of %s", kind, file),
			"x_axis":      xAxis,
			"y_axis":      yAxis,
		},
		Explanation: fmt.Sprintf("Generating a %s chart from %s", kind, file),
	}
}

var columnNameRe = regexp.MustCompile(`(?i)(?:column|field|info\s+(?:on|about|for))\s+['"]?(\w+)['"]?`)

// genericColumnWords are captures that cannot be real column names.
var genericColumnWords = map[string]struct{}{
	"info": {}, "information": {}, "about": {}, "on": {}, "for": {},
	"of": {}, "the": {}, "a": {}, "my": {}, "this": {}, "that": {},
	"data": {}, "file": {}, "csv": {},
}

// matchColumn extracts the target column name when present; without one
// the match degrades to a clarification.
func (m *Matcher) matchColumn(query, file string, files []string) *Match {
	if file == "" {
		return &Match{Explanation: clarifyFile("inspect a column of", files)}
	}
	column := extractColumnName(query, file)
	if column == "" {
		return &Match{
			Explanation: fmt.Sprintf("Which column of %s should I describe? For example: \"column salary info for %s\"", file, file),
		}
	}
	return &Match{
		Tool: "get_column_info",
		Params: map[string]any{
			"data_source": file,
			"column":      column,
		},
		Explanation: fmt.Sprintf("Describing column %s of %s", column, file),
	}
}

// extractColumnName finds a plausible column name after a column/field
// marker, rejecting generic filler words and words that are really part
// of the detected file's name.
func extractColumnName(query, file string) string {
	groups := columnNameRe.FindStringSubmatch(query)
	if groups == nil {
		return ""
	}
	candidate := strings.ToLower(groups[1])
	if _, generic := genericColumnWords[candidate]; generic {
		return ""
	}
	for _, part := range strings.Fields(normalizeFilename(file)) {
		if candidate == part {
			return ""
		}
	}
	return groups[1]
}

// matchFilter extracts a column/operation/value triple from the ordered
// pattern list.
func (m *Matcher) matchFilter(query, file string, files []string) *Match {
	if file == "" {
		if len(files) == 0 {
			return &Match{Explanation: clarifyFile("filter", files)}
		}
		file = files[0]
	}

	for _, p := range filterPatterns {
		groups := p.re.FindStringSubmatch(query)
		if groups == nil {
			continue
		}
		column, operation, value := "", p.op, ""
		if p.op == "" {
			column, value = groups[1], groups[3]
			token := strings.ToLower(strings.Join(strings.Fields(groups[2]), " "))
			op, ok := operatorTokens[token]
			if !ok {
				continue
			}
			operation = op
		} else {
			column, value = groups[1], groups[2]
		}
		return &Match{
			Tool: "filter_data",
			Params: map[string]any{
				"data_source": file,
				"column":      column,
				"operation":   operation,
				"value":       strings.Trim(value, `'"`),
			},
			Explanation: fmt.Sprintf("Filtering %s where %s %s %s", file, column, operation, value),
		}
	}

	return &Match{
		Explanation: "I could not extract a filter condition. Try: \"filter where age > 30\" or \"department equals sales\"",
	}
}

// =============================================================================
// Text Helpers
// =============================================================================

// tokenize splits a query into lowercased word tokens, keeping dots so
// file names survive as single tokens.
func tokenize(query string) []string {
	return wordRe.FindAllString(strings.ToLower(query), -1)
}

func containsAny(words []string, keywords []string) bool {
	for _, w := range words {
		for _, k := range keywords {
			if w == k {
				return true
			}
		}
	}
	return false
}

// detectFile finds the file a query refers to: an exact token match
// first, then a normalized-name substring pass. First hit wins; ""
// means no file was mentioned.
func detectFile(query string, words []string, files []string) string {
	for _, w := range words {
		for _, f := range files {
			if strings.EqualFold(w, f) {
				return f
			}
		}
	}

	lower := strings.ToLower(query)
	for _, f := range files {
		norm := normalizeFilename(f)
		if norm == "" {
			continue
		}
		if strings.Contains(lower, norm) {
			return f
		}
		for _, part := range strings.Fields(norm) {
			if strings.Contains(lower, part) {
				return f
			}
		}
	}
	return ""
}

// normalizeFilename strips the extension, turns underscores into spaces,
// and lowercases: "Employee_Data.csv" becomes "employee data".
func normalizeFilename(name string) string {
	base := name
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return strings.ToLower(strings.ReplaceAll(base, "_", " "))
}

// clarifyFile asks the user which file to act on.
func clarifyFile(verb string, files []string) string {
	if len(files) == 0 {
		return fmt.Sprintf("I can %s a CSV file, but no data files are available yet. Upload one first.", verb)
	}
	return fmt.Sprintf("Which file would you like to %s? Available: %s", verb, strings.Join(files, ", "))
}

// capabilitySummary is the static default response: what the service
// can do and which files it can do it to.
func capabilitySummary(cat *catalog.Catalog, files []string) string {
	var b strings.Builder
	b.WriteString("I can help you analyze CSV files. Things you can ask for:\n")
	for _, d := range cat.List() {
		fmt.Fprintf(&b, "  - %s: %s\n", d.Name, d.Description)
	}
	if len(files) > 0 {
		fmt.Fprintf(&b, "Available files: %s", strings.Join(files, ", "))
	} else {
		b.WriteString("No data files are available yet; upload a CSV to get started.")
	}
	return b.String()
}
