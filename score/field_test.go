//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-eval-go/evalset"
)

func TestMatchFields_Exact(t *testing.T) {
	candidate := `{"order":{"id":"A-17","status":"shipped"}}`
	expected := `{"order":{"id":"A-17","status":"delivered"}}`
	fields := []*evalset.FieldMatcher{
		{Path: "order.id"},
		{Path: "order.status"},
	}
	outcomes := MatchFields(candidate, expected, fields)
	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].Matched)
	assert.False(t, outcomes[1].Matched)
	assert.NotEmpty(t, outcomes[1].Reason)
}

func TestMatchFields_MissingFields(t *testing.T) {
	fields := []*evalset.FieldMatcher{{Path: "total"}}

	outcomes := MatchFields(`{}`, `{"total":5}`, fields)
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Matched)
	assert.Contains(t, outcomes[0].Reason, "candidate")

	outcomes = MatchFields(`{"total":5}`, `{}`, fields)
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Matched)
	assert.Contains(t, outcomes[0].Reason, "expected")
}

func TestMatchFields_NumericTolerance(t *testing.T) {
	fields := []*evalset.FieldMatcher{
		{Path: "total", Match: evalset.FieldMatchNumericTolerance, Tolerance: 0.05},
	}
	outcomes := MatchFields(`{"total":10.03}`, `{"total":10.0}`, fields)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Matched)

	outcomes = MatchFields(`{"total":10.2}`, `{"total":10.0}`, fields)
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Matched)
}

func TestMatchFields_NumericToleranceRelative(t *testing.T) {
	fields := []*evalset.FieldMatcher{
		{Path: "total", Match: evalset.FieldMatchNumericTolerance, Tolerance: 0.01, Relative: true},
	}
	outcomes := MatchFields(`{"total":1009}`, `{"total":1000}`, fields)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Matched)

	outcomes = MatchFields(`{"total":1020}`, `{"total":1000}`, fields)
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Matched)
}

func TestMatchFields_NumericString(t *testing.T) {
	fields := []*evalset.FieldMatcher{
		{Path: "total", Match: evalset.FieldMatchNumericTolerance, Tolerance: 0.5},
	}
	outcomes := MatchFields(`{"total":"10"}`, `{"total":10}`, fields)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Matched)
}

func TestMatchFields_DateFormats(t *testing.T) {
	fields := []*evalset.FieldMatcher{
		{Path: "due", Match: evalset.FieldMatchDate, Formats: []string{"2006-01-02", "01/02/2006"}},
	}
	outcomes := MatchFields(`{"due":"03/15/2026"}`, `{"due":"2026-03-15"}`, fields)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Matched)

	outcomes = MatchFields(`{"due":"03/16/2026"}`, `{"due":"2026-03-15"}`, fields)
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Matched)

	outcomes = MatchFields(`{"due":"next week"}`, `{"due":"2026-03-15"}`, fields)
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Matched)
}

func TestMatchFields_CarriesWeights(t *testing.T) {
	weight := 3.0
	fields := []*evalset.FieldMatcher{{Path: "a", Weight: &weight}, {Path: "b"}}
	outcomes := MatchFields(`{"a":1,"b":2}`, `{"a":1,"b":2}`, fields)
	require.Len(t, outcomes, 2)
	assert.Equal(t, 3.0, outcomes[0].Weight)
	assert.Equal(t, 1.0, outcomes[1].Weight)
}
