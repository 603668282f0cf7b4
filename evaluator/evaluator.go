//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package evaluator provides the evaluator contract shared by all variants.
package evaluator

import (
	"context"

	"trpc.group/trpc-go/trpc-eval-go/evalset"
	"trpc.group/trpc-go/trpc-eval-go/invoker"
)

// Finding list caps. Hits and misses stay short so result records remain
// readable.
const (
	MaxFindings   = 4
	MaxFindingLen = 200
)

// Score is the result of one evaluator run.
type Score struct {
	// Score is in [0,1].
	Score float64 `json:"score"`
	// Hits lists satisfied expectations, ordered and capped.
	Hits []string `json:"hits,omitempty"`
	// Misses lists unsatisfied expectations, ordered and capped.
	Misses []string `json:"misses,omitempty"`
	// Reasoning explains the score when available.
	Reasoning string `json:"reasoning,omitempty"`
	// Details carries structured evaluator-specific information.
	Details map[string]any `json:"details,omitempty"`
}

// Evaluator scores one candidate answer against one case. Implementations
// are safe for concurrent calls across different cases and hold no shared
// mutable state.
type Evaluator interface {
	// Name returns the configured evaluator name, unique within a case.
	Name() string
	// Description returns a description of what this evaluator does.
	Description() string
	// Evaluate scores the candidate answer for the case.
	Evaluate(ctx context.Context, evalCase *evalset.EvalCase, answer *invoker.Response) (*Score, error)
}

// CapFindings bounds a hits or misses list to MaxFindings entries of at most
// MaxFindingLen runes each.
func CapFindings(findings []string) []string {
	if len(findings) == 0 {
		return nil
	}
	if len(findings) > MaxFindings {
		findings = findings[:MaxFindings]
	}
	capped := make([]string, len(findings))
	for i, finding := range findings {
		runes := []rune(finding)
		if len(runes) > MaxFindingLen {
			finding = string(runes[:MaxFindingLen])
		}
		capped[i] = finding
	}
	return capped
}

// Clamp bounds a score to [0,1].
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
