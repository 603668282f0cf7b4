//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package fieldaccuracy scores structured answers field by field against the
// expected output.
package fieldaccuracy

import (
	"context"
	"errors"
	"fmt"

	"trpc.group/trpc-go/trpc-eval-go/evalset"
	"trpc.group/trpc-go/trpc-eval-go/evaluator"
	"trpc.group/trpc-go/trpc-eval-go/invoker"
	"trpc.group/trpc-go/trpc-eval-go/score"
)

type fieldEvaluator struct {
	name string
	cfg  *evalset.FieldAccuracyConfig
}

// New creates a field accuracy evaluator.
func New(name string, cfg *evalset.FieldAccuracyConfig) (evaluator.Evaluator, error) {
	if cfg == nil {
		return nil, errors.New("field accuracy config is nil")
	}
	return &fieldEvaluator{name: name, cfg: cfg}, nil
}

// Name returns the configured evaluator name.
func (e *fieldEvaluator) Name() string {
	return e.name
}

// Description returns a description of what this evaluator does.
func (e *fieldEvaluator) Description() string {
	return "Compares selected fields of the candidate output with the expected output"
}

// Evaluate extracts each configured field from both documents and reduces the
// per-field outcomes with the configured aggregation.
func (e *fieldEvaluator) Evaluate(_ context.Context, evalCase *evalset.EvalCase, answer *invoker.Response) (*evaluator.Score, error) {
	outcomes := score.MatchFields(answer.Text(), evalCase.Expected, e.cfg.Fields)
	var hits, misses []string
	var matchedWeight, totalWeight float64
	allMatched := true
	for _, outcome := range outcomes {
		totalWeight += outcome.Weight
		if outcome.Matched {
			matchedWeight += outcome.Weight
			hits = append(hits, fmt.Sprintf("%s matched", outcome.Path))
			continue
		}
		allMatched = false
		misses = append(misses, fmt.Sprintf("%s: %s", outcome.Path, outcome.Reason))
	}
	var value float64
	switch e.cfg.Aggregation {
	case evalset.FieldAllOrNothing:
		if allMatched {
			value = 1
		}
	default:
		if totalWeight > 0 {
			value = matchedWeight / totalWeight
		}
	}
	return &evaluator.Score{
		Score:     evaluator.Clamp(value),
		Hits:      evaluator.CapFindings(hits),
		Misses:    evaluator.CapFindings(misses),
		Reasoning: fmt.Sprintf("%d of %d fields matched", len(hits), len(outcomes)),
	}, nil
}
