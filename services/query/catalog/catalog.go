// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package catalog holds the static registry of analysis tool descriptors.
// The catalog is built once at startup and never mutated, so it is safe
// for concurrent reads without locking.
package catalog

// =============================================================================
// Descriptor Types
// =============================================================================

// ParamSpec describes one named parameter of a tool.
//
// Description:
//
//	Captures everything the router and executor need to reason about a
//	parameter without calling the tool: its name, whether the tool refuses
//	to run without it, a coarse type hint, and the default applied when
//	the caller omits it.
type ParamSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description"`
}

// ToolDescriptor describes one tool in the catalog.
//
// Description:
//
//	Pure data: name, human description, ordered parameter specs, and an
//	example parameter set used in error messages and reasoner prompts.
//
// Thread Safety: Immutable after construction.
type ToolDescriptor struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Params      []ParamSpec       `json:"parameters"`
	Example     map[string]string `json:"example"`
}

// FirstRequired returns the name of the first required parameter, or ""
// if the tool has none. Used to bind a bare positional value from the
// escape-sigil syntax.
func (d ToolDescriptor) FirstRequired() string {
	for _, p := range d.Params {
		if p.Required {
			return p.Name
		}
	}
	return ""
}

// RequiredParams returns the names of all required parameters in order.
func (d ToolDescriptor) RequiredParams() []string {
	var names []string
	for _, p := range d.Params {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// =============================================================================
// Catalog
// =============================================================================

// Catalog is an ordered, read-only collection of tool descriptors.
//
// Thread Safety: Safe for concurrent use (read-only after construction).
type Catalog struct {
	ordered []ToolDescriptor
	byName  map[string]ToolDescriptor
}

// New builds a Catalog from an ordered descriptor list.
//
// Inputs:
//
//	descriptors - Tools in presentation order. Duplicate names keep the
//	              first occurrence.
//
// Outputs:
//
//	*Catalog - The constructed catalog. Never nil.
func New(descriptors []ToolDescriptor) *Catalog {
	c := &Catalog{
		byName: make(map[string]ToolDescriptor, len(descriptors)),
	}
	for _, d := range descriptors {
		if _, dup := c.byName[d.Name]; dup {
			continue
		}
		c.ordered = append(c.ordered, d)
		c.byName[d.Name] = d
	}
	return c
}

// Describe looks up one tool by name.
//
// Outputs:
//
//	ToolDescriptor - The descriptor, zero-valued if not found.
//	bool           - True if the tool exists.
func (c *Catalog) Describe(name string) (ToolDescriptor, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// List returns every descriptor in catalog order. The returned slice is
// shared; callers must not mutate it.
func (c *Catalog) List() []ToolDescriptor {
	return c.ordered
}

// Names returns every tool name in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.ordered))
	for _, d := range c.ordered {
		names = append(names, d.Name)
	}
	return names
}

// Len returns the number of tools in the catalog.
func (c *Catalog) Len() int {
	return len(c.ordered)
}

// =============================================================================
// Default Catalog
// =============================================================================

// Default returns the built-in seven-tool CSV analysis catalog.
//
// Description:
//
//	This is the complete tool universe the query router resolves against.
//	Order matters: it is the order tools are listed to users and to the
//	remote reasoner.
func Default() *Catalog {
	return New([]ToolDescriptor{
		{
			Name:        "read_csv",
			Description: "Read a CSV file and return its shape, columns, and the first rows.",
			Params: []ParamSpec{
				{Name: "filename", Type: "string", Required: true, Description: "CSV file in the data directory"},
			},
			Example: map[string]string{"filename": "employee_data.csv"},
		},
		{
			Name:        "get_data_stats",
			Description: "Compute comprehensive statistics for a CSV file: shape, dtypes, null counts, numeric describe blocks, and categorical value counts.",
			Params: []ParamSpec{
				{Name: "data_source", Type: "string", Required: true, Description: "CSV file in the data directory"},
			},
			Example: map[string]string{"data_source": "sales_data.csv"},
		},
		{
			Name:        "get_column_info",
			Description: "Describe one column, or every column when none is named: dtype, null counts, unique values, and a numeric or value summary.",
			Params: []ParamSpec{
				{Name: "data_source", Type: "string", Required: true, Description: "CSV file in the data directory"},
				{Name: "column", Type: "string", Required: false, Description: "Column name to inspect; omitted reports on every column"},
			},
			Example: map[string]string{"data_source": "employee_data.csv", "column": "salary"},
		},
		{
			Name:        "filter_data",
			Description: "Filter rows of a CSV file by a column condition and return match counts plus the first matching rows.",
			Params: []ParamSpec{
				{Name: "data_source", Type: "string", Required: true, Description: "CSV file in the data directory"},
				{Name: "column", Type: "string", Required: true, Description: "Column to test"},
				{Name: "value", Type: "string", Required: true, Description: "Comparison value"},
				{Name: "operation", Type: "string", Required: false, Default: "equals", Description: "One of equals, contains, greater, less, not_equals"},
			},
			Example: map[string]string{"data_source": "employee_data.csv", "column": "age", "operation": "greater", "value": "30"},
		},
		{
			Name:        "generate_chart",
			Description: "Render a chart (bar, line, scatter, or pie) from a CSV file to a PNG in the output directory.",
			Params: []ParamSpec{
				{Name: "data_source", Type: "string", Required: true, Description: "CSV file in the data directory"},
				{Name: "chart_type", Type: "string", Required: false, Default: "bar", Description: "One of bar, line, scatter, pie"},
				{Name: "title", Type: "string", Required: false, Description: "Chart title"},
				{Name: "x_axis", Type: "string", Required: false, Description: "Column for the x axis"},
				{Name: "y_axis", Type: "string", Required: false, Description: "Column for the y axis"},
			},
			Example: map[string]string{"data_source": "sales_data.csv", "chart_type": "bar", "x_axis": "month", "y_axis": "revenue"},
		},
		{
			Name:        "list_data_files",
			Description: "List every CSV file currently available in the data directory.",
			Params:      nil,
			Example:     map[string]string{},
		},
		{
			Name:        "execute_script",
			Description: "Run a named analysis script from the scripts directory against a CSV file.",
			Params: []ParamSpec{
				{Name: "script_name", Type: "string", Required: true, Description: "Script file in the scripts directory"},
				{Name: "csv_file", Type: "string", Required: true, Description: "CSV file passed as the script's first argument"},
				{Name: "args", Type: "string", Required: false, Description: "Extra whitespace-separated arguments"},
			},
			Example: map[string]string{"script_name": "analyze_data.py", "csv_file": "sales_data.csv"},
		},
	})
}
