// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routing

import (
	"fmt"
	"strings"
	"testing"

	"github.com/DriftwoodAI/driftwood/services/query/catalog"
)

var testFiles = []string{"employee_data.csv", "sales_data.csv"}

func newTestMatcher(headers func(string) ([]string, error)) *Matcher {
	return NewMatcher(catalog.Default(), headers, nil)
}

func TestMatchReadWithExactFilename(t *testing.T) {
	m := newTestMatcher(nil)

	match, ok := m.Match("show employee_data.csv", testFiles)
	if !ok {
		t.Fatal("expected a match")
	}
	if match.Tool != "read_csv" {
		t.Fatalf("expected read_csv, got %q", match.Tool)
	}
	if match.Params["filename"] != "employee_data.csv" {
		t.Errorf("expected filename employee_data.csv, got %v", match.Params)
	}
}

func TestMatchFileByNormalizedName(t *testing.T) {
	m := newTestMatcher(nil)

	match, ok := m.Match("display the employee data please", testFiles)
	if !ok || match.Tool != "read_csv" {
		t.Fatalf("expected read_csv, got %+v", match)
	}
	if match.Params["filename"] != "employee_data.csv" {
		t.Errorf("normalized name should resolve the file, got %v", match.Params)
	}
}

func TestMatchReadWithoutFileIsClarification(t *testing.T) {
	m := newTestMatcher(nil)

	match, ok := m.Match("show me the numbers", testFiles)
	if !ok {
		t.Fatal("read family should fire even without a file")
	}
	if match.Tool != "" {
		t.Fatalf("expected a clarification (no tool), got %q", match.Tool)
	}
	if !strings.Contains(match.Explanation, "employee_data.csv") {
		t.Errorf("clarification should list available files, got %q", match.Explanation)
	}
}

func TestMatchPieChart(t *testing.T) {
	m := newTestMatcher(func(string) ([]string, error) {
		return []string{"month", "revenue"}, nil
	})

	match, ok := m.Match("create a pie chart from sales_data.csv", testFiles)
	if !ok || match.Tool != "generate_chart" {
		t.Fatalf("expected generate_chart, got %+v", match)
	}
	if match.Params["chart_type"] != "pie" {
		t.Errorf("expected chart_type pie, got %v", match.Params["chart_type"])
	}
	if match.Params["data_source"] != "sales_data.csv" {
		t.Errorf("expected data_source sales_data.csv, got %v", match.Params["data_source"])
	}
	if match.Params["x_axis"] != "month" || match.Params["y_axis"] != "revenue" {
		t.Errorf("axis defaults should come from the header peek, got %v", match.Params)
	}
}

func TestMatchChartDefaultsToBarAndSilentAxisFallback(t *testing.T) {
	m := newTestMatcher(func(string) ([]string, error) {
		return nil, fmt.Errorf("unreadable")
	})

	match, ok := m.Match("plot sales_data.csv", testFiles)
	if !ok || match.Tool != "generate_chart" {
		t.Fatalf("expected generate_chart, got %+v", match)
	}
	if match.Params["chart_type"] != "bar" {
		t.Errorf("expected default chart_type bar, got %v", match.Params["chart_type"])
	}
	if match.Params["x_axis"] != "x" || match.Params["y_axis"] != "y" {
		t.Errorf("header failure should fall back to literal x/y, got %v", match.Params)
	}
}

func TestMatchStats(t *testing.T) {
	m := newTestMatcher(nil)

	match, ok := m.Match("give me statistics on sales_data.csv", testFiles)
	if !ok || match.Tool != "get_data_stats" {
		t.Fatalf("expected get_data_stats, got %+v", match)
	}
	if match.Params["data_source"] != "sales_data.csv" {
		t.Errorf("expected data_source sales_data.csv, got %v", match.Params)
	}
}

func TestMatchColumnInfo(t *testing.T) {
	m := newTestMatcher(nil)

	match, ok := m.Match("column salary info for employee_data.csv", testFiles)
	if !ok || match.Tool != "get_column_info" {
		t.Fatalf("expected get_column_info, got %+v", match)
	}
	if match.Params["column"] != "salary" {
		t.Errorf("expected column salary, got %v", match.Params)
	}

	match, ok = m.Match("field info about employee_data.csv", testFiles)
	if !ok {
		t.Fatal("column family should fire")
	}
	if match.Tool != "" {
		t.Fatalf("no column named: expected clarification, got %q", match.Tool)
	}
}

func TestMatchList(t *testing.T) {
	m := newTestMatcher(nil)

	match, ok := m.Match("what files are available?", testFiles)
	if !ok || match.Tool != "list_data_files" {
		t.Fatalf("expected list_data_files, got %+v", match)
	}
	if len(match.Params) != 0 {
		t.Errorf("list_data_files takes no parameters, got %v", match.Params)
	}
}

func TestMatchFilterClauses(t *testing.T) {
	m := newTestMatcher(nil)

	cases := []struct {
		query     string
		column    string
		operation string
		value     string
	}{
		{"filter where age > 30", "age", "greater", "30"},
		{"filter where age < 30", "age", "less", "30"},
		{"filter where name equals alice", "name", "equals", "alice"},
		{"filter where dept != sales", "dept", "not_equals", "sales"},
		{"filter where name contains ali", "name", "contains", "ali"},
		{"search department equals engineering", "department", "equals", "engineering"},
		{"find rows salary > 50000", "salary", "greater", "50000"},
		{"select entries age < 40", "age", "less", "40"},
	}

	for _, tc := range cases {
		match, ok := m.Match(tc.query, testFiles)
		if !ok || match.Tool != "filter_data" {
			t.Errorf("%q: expected filter_data, got %+v", tc.query, match)
			continue
		}
		if match.Params["column"] != tc.column ||
			match.Params["operation"] != tc.operation ||
			match.Params["value"] != tc.value {
			t.Errorf("%q: got params %v", tc.query, match.Params)
		}
		if match.Params["data_source"] != "employee_data.csv" {
			t.Errorf("%q: expected default data_source, got %v", tc.query, match.Params["data_source"])
		}
	}
}

func TestMatchFilterWithoutClauseIsClarification(t *testing.T) {
	m := newTestMatcher(nil)

	match, ok := m.Match("filter the results somehow", testFiles)
	if !ok {
		t.Fatal("filter family should fire")
	}
	if match.Tool != "" {
		t.Fatalf("expected clarification, got tool %q", match.Tool)
	}
}

func TestMatchFamilyPriorityIsAuthoritative(t *testing.T) {
	m := newTestMatcher(func(string) ([]string, error) { return []string{"a", "b"}, nil })

	// read beats chart even when chart keywords dominate.
	match, _ := m.Match("show a chart graph plot of sales_data.csv", testFiles)
	if match.Tool != "read_csv" {
		t.Errorf("read family should win over chart, got %q", match.Tool)
	}

	// chart beats stats.
	match, _ = m.Match("chart the statistics of sales_data.csv", testFiles)
	if match.Tool != "generate_chart" {
		t.Errorf("chart family should win over stats, got %q", match.Tool)
	}

	// stats beats filter.
	match, _ = m.Match("analyze employee_data.csv where age > 30", testFiles)
	if match.Tool != "get_data_stats" {
		t.Errorf("stats family should win over filter, got %q", match.Tool)
	}
}

func TestMatchSigil(t *testing.T) {
	m := newTestMatcher(nil)

	match, ok := m.Match("#list_data_files", testFiles)
	if !ok || match.Tool != "list_data_files" {
		t.Fatalf("expected list_data_files, got %+v", match)
	}
	if len(match.Params) != 0 {
		t.Errorf("bare sigil call should carry no params, got %v", match.Params)
	}
	if match.Source != "sigil" {
		t.Errorf("expected sigil source, got %q", match.Source)
	}

	match, _ = m.Match("#read_csv unknown_file.csv", testFiles)
	if match.Tool != "read_csv" || match.Params["filename"] != "unknown_file.csv" {
		t.Errorf("positional blob should bind to the first required param, got %+v", match)
	}

	match, _ = m.Match(`#filter_data {"data_source": "d.csv", "column": "age", "operation": "less", "value": "40"}`, testFiles)
	if match.Tool != "filter_data" {
		t.Fatalf("expected filter_data, got %q", match.Tool)
	}
	if match.Params["column"] != "age" || match.Params["value"] != "40" {
		t.Errorf("JSON blob should parse into the param map, got %v", match.Params)
	}
}

func TestMatchNoFamilyIsNoMatch(t *testing.T) {
	m := newTestMatcher(nil)

	if _, ok := m.Match("write me a haiku about autumn", testFiles); ok {
		t.Error("a query with no family keywords must not match")
	}
	if _, ok := m.Match("   ", testFiles); ok {
		t.Error("blank queries must not match")
	}
}

func TestMatchDeterminism(t *testing.T) {
	m := newTestMatcher(func(string) ([]string, error) { return []string{"c1", "c2"}, nil })

	queries := []string{
		"show employee_data.csv",
		"pie chart of sales_data.csv",
		"filter where age > 30",
		"what files are available",
	}
	for _, q := range queries {
		first, okFirst := m.Match(q, testFiles)
		for i := 0; i < 20; i++ {
			match, ok := m.Match(q, testFiles)
			if ok != okFirst {
				t.Fatalf("%q: match decision changed between runs", q)
			}
			if match.Tool != first.Tool {
				t.Fatalf("%q: tool changed between runs: %q vs %q", q, first.Tool, match.Tool)
			}
			if fmt.Sprintf("%v", match.Params) != fmt.Sprintf("%v", first.Params) {
				t.Fatalf("%q: params changed between runs", q)
			}
		}
	}
}
