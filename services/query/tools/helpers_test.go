// Copyright (C) 2025 Driftwood AI (oss@driftwood.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferDType(t *testing.T) {
	assert.Equal(t, "int64", inferDType([]string{"1", "2", "-3"}))
	assert.Equal(t, "int64", inferDType([]string{"1", "", "3"}), "blanks should not break numeric inference")
	assert.Equal(t, "float64", inferDType([]string{"1", "2.5", "-3"}))
	assert.Equal(t, "string", inferDType([]string{"red", "green", "1"}))
	assert.Equal(t, "string", inferDType([]string{"", "  ", ""}))
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 50.0, percentage(1, 2))
	assert.Equal(t, 33.33, percentage(1, 3), "percentages should round to two decimals")
	assert.Equal(t, 0.0, percentage(0, 0))
}

func TestValueCounts(t *testing.T) {
	counts := valueCounts([]string{"a", "b", "a", "", "a"})
	assert.Equal(t, map[string]int{"a": 3, "b": 1}, counts)
}

func TestNumericValuesThreshold(t *testing.T) {
	nums, ok := numericValues([]string{"1", "2", "oops", "4"})
	assert.True(t, ok, "a single bad cell should not disqualify the column")
	assert.Len(t, nums, 3)

	_, ok = numericValues([]string{"a", "b", "c", "4"})
	assert.False(t, ok)

	_, ok = numericValues(nil)
	assert.False(t, ok)
}

func TestStringParamCoercion(t *testing.T) {
	params := map[string]any{
		"s":     "hello",
		"int":   float64(42),
		"float": 2.5,
		"flag":  true,
		"nil":   nil,
	}

	assert.Equal(t, "hello", stringParam(params, "s", "d"))
	assert.Equal(t, "42", stringParam(params, "int", "d"), "whole JSON numbers should render without decimals")
	assert.Equal(t, "2.5", stringParam(params, "float", "d"))
	assert.Equal(t, "true", stringParam(params, "flag", "d"))
	assert.Equal(t, "d", stringParam(params, "nil", "d"))
	assert.Equal(t, "d", stringParam(params, "absent", "d"))
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "data.csv", safeName("data.csv"))
	assert.Equal(t, "data.csv", safeName("../../etc/data.csv"))
	assert.Equal(t, "passwd", safeName("/etc/passwd"))
}

func TestRenderRowsAlignsAndLimits(t *testing.T) {
	headers := []string{"name", "n"}
	rows := [][]string{{"alice", "1"}, {"bob", "2"}, {"carol", "3"}}

	out := renderRows(headers, rows, 2)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "bob")
	assert.NotContains(t, out, "carol")
}
