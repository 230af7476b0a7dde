// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package reasoner

import (
	"strings"
	"text/template"

	"github.com/DriftwoodAI/driftwood/services/query/catalog"
)

// systemPromptTemplate enumerates the tool catalog and pins the reply
// shape. The reply contract is a single JSON object; everything else the
// model says is tolerated and stripped by the parser.
var systemPromptTemplate = template.Must(template.New("reasoner_system").Parse(`You are a tool selection assistant for a CSV analysis service.
Given a user request, choose at most one tool from the catalog below and fill in its parameters.

Available tools:
{{range .Tools}}- {{.Name}}: {{.Description}}
{{- if .Params}}
  Parameters:{{range .Params}} {{.Name}}{{if .Required}} (required){{end}};{{end}}
{{- end}}
  Example: {{.ExampleJSON}}
{{end}}
Available data files: {{if .Files}}{{.FilesJoined}}{{else}}(none){{end}}

Respond with ONLY one JSON object, no other text:
{"tool": "<tool name or null>", "parameters": {<parameter name>: <value>}, "explanation": "<one sentence>"}

If no tool fits, use null for "tool" and explain why in "explanation".`))

type promptTool struct {
	Name        string
	Description string
	Params      []catalog.ParamSpec
	ExampleJSON string
}

type promptData struct {
	Tools       []promptTool
	Files       []string
	FilesJoined string
}

// buildSystemPrompt renders the catalog into the reasoner system prompt.
func buildSystemPrompt(cat *catalog.Catalog, files []string) string {
	data := promptData{
		Files:       files,
		FilesJoined: strings.Join(files, ", "),
	}
	for _, d := range cat.List() {
		data.Tools = append(data.Tools, promptTool{
			Name:        d.Name,
			Description: d.Description,
			Params:      d.Params,
			ExampleJSON: exampleJSON(d),
		})
	}

	var b strings.Builder
	if err := systemPromptTemplate.Execute(&b, data); err != nil {
		// Template and data are both static; this cannot fail at runtime.
		return "You are a tool selection assistant for a CSV analysis service."
	}
	return b.String()
}

func exampleJSON(d catalog.ToolDescriptor) string {
	if len(d.Example) == 0 {
		return `{"tool": "` + d.Name + `", "parameters": {}}`
	}
	var parts []string
	for _, p := range d.Params {
		if v, ok := d.Example[p.Name]; ok {
			parts = append(parts, `"`+p.Name+`": "`+v+`"`)
		}
	}
	return `{"tool": "` + d.Name + `", "parameters": {` + strings.Join(parts, ", ") + `}}`
}
