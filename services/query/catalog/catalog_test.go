// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package catalog

import "testing"

func TestDefaultCatalogOrderAndLookup(t *testing.T) {
	c := Default()

	wantOrder := []string{
		"read_csv",
		"get_data_stats",
		"get_column_info",
		"filter_data",
		"generate_chart",
		"list_data_files",
		"execute_script",
	}

	names := c.Names()
	if len(names) != len(wantOrder) {
		t.Fatalf("expected %d tools, got %d", len(wantOrder), len(names))
	}
	for i, want := range wantOrder {
		if names[i] != want {
			t.Errorf("tool %d: expected %q, got %q", i, want, names[i])
		}
	}

	for _, name := range wantOrder {
		d, ok := c.Describe(name)
		if !ok {
			t.Errorf("Describe(%q) not found", name)
			continue
		}
		if d.Name != name {
			t.Errorf("Describe(%q) returned descriptor named %q", name, d.Name)
		}
		if d.Description == "" {
			t.Errorf("tool %q has empty description", name)
		}
	}

	if _, ok := c.Describe("summon_dragon"); ok {
		t.Error("Describe should report unknown tools as missing")
	}
}

func TestDescriptorRequiredParams(t *testing.T) {
	c := Default()

	filter, _ := c.Describe("filter_data")
	required := filter.RequiredParams()
	want := []string{"data_source", "column", "value"}
	if len(required) != len(want) {
		t.Fatalf("filter_data required params: expected %v, got %v", want, required)
	}
	for i := range want {
		if required[i] != want[i] {
			t.Errorf("required param %d: expected %q, got %q", i, want[i], required[i])
		}
	}

	read, _ := c.Describe("read_csv")
	if got := read.FirstRequired(); got != "filename" {
		t.Errorf("read_csv first required param: expected filename, got %q", got)
	}

	list, _ := c.Describe("list_data_files")
	if got := list.FirstRequired(); got != "" {
		t.Errorf("list_data_files should have no required params, got %q", got)
	}

	info, _ := c.Describe("get_column_info")
	required = info.RequiredParams()
	if len(required) != 1 || required[0] != "data_source" {
		t.Errorf("get_column_info should require only data_source, got %v", required)
	}

	script, _ := c.Describe("execute_script")
	required = script.RequiredParams()
	wantScript := []string{"script_name", "csv_file"}
	if len(required) != len(wantScript) {
		t.Fatalf("execute_script required params: expected %v, got %v", wantScript, required)
	}
	for i := range wantScript {
		if required[i] != wantScript[i] {
			t.Errorf("execute_script required param %d: expected %q, got %q", i, wantScript[i], required[i])
		}
	}
}

func TestNewDropsDuplicateNames(t *testing.T) {
	c := New([]ToolDescriptor{
		{Name: "alpha", Description: "first"},
		{Name: "alpha", Description: "second"},
		{Name: "beta", Description: "third"},
	})

	if c.Len() != 2 {
		t.Fatalf("expected 2 tools after dedup, got %d", c.Len())
	}
	d, _ := c.Describe("alpha")
	if d.Description != "first" {
		t.Errorf("duplicate names should keep the first occurrence, got %q", d.Description)
	}
}
