//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package fieldaccuracy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-eval-go/evalset"
	"trpc.group/trpc-go/trpc-eval-go/invoker"
)

func fieldCase(expected string) *evalset.EvalCase {
	return &evalset.EvalCase{
		CaseID:   "case-1",
		Input:    []evalset.Message{{Role: evalset.RoleUser, Content: "extract the order"}},
		Criteria: "All fields extracted correctly.",
		Expected: expected,
	}
}

func answer(text string) *invoker.Response {
	return &invoker.Response{Messages: []evalset.Message{{Role: evalset.RoleAssistant, Content: text}}}
}

func weightPtr(v float64) *float64 { return &v }

func TestFieldAccuracyEvaluate_WeightedAverage(t *testing.T) {
	cfg := &evalset.FieldAccuracyConfig{
		Fields: []*evalset.FieldMatcher{
			{Path: "id", Weight: weightPtr(3)},
			{Path: "status"},
		},
	}
	e, err := New("fields", cfg)
	require.NoError(t, err)

	result, err := e.Evaluate(context.Background(),
		fieldCase(`{"id":"A-17","status":"done"}`),
		answer(`{"id":"A-17","status":"open"}`))
	require.NoError(t, err)
	assert.Equal(t, 0.75, result.Score)
	require.Len(t, result.Hits, 1)
	assert.Contains(t, result.Hits[0], "id")
	require.Len(t, result.Misses, 1)
	assert.Contains(t, result.Misses[0], "status")
}

func TestFieldAccuracyEvaluate_AllOrNothing(t *testing.T) {
	cfg := &evalset.FieldAccuracyConfig{
		Fields: []*evalset.FieldMatcher{
			{Path: "id"},
			{Path: "status"},
		},
		Aggregation: evalset.FieldAllOrNothing,
	}
	e, err := New("fields", cfg)
	require.NoError(t, err)

	result, err := e.Evaluate(context.Background(),
		fieldCase(`{"id":"A-17","status":"done"}`),
		answer(`{"id":"A-17","status":"done"}`))
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Score)

	result, err = e.Evaluate(context.Background(),
		fieldCase(`{"id":"A-17","status":"done"}`),
		answer(`{"id":"A-17","status":"open"}`))
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Score)
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New("fields", nil)
	require.Error(t, err)
}
