//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package tooltrajectory scores the tool call trace of a candidate response
// against an expected trajectory.
package tooltrajectory

import (
	"context"
	"errors"
	"fmt"

	"trpc.group/trpc-go/trpc-eval-go/evalset"
	"trpc.group/trpc-go/trpc-eval-go/evaluator"
	"trpc.group/trpc-go/trpc-eval-go/invoker"
	"trpc.group/trpc-go/trpc-eval-go/score"
)

type trajectoryEvaluator struct {
	name string
	cfg  *evalset.ToolTrajectoryConfig
}

// New creates a tool trajectory evaluator.
func New(name string, cfg *evalset.ToolTrajectoryConfig) (evaluator.Evaluator, error) {
	if cfg == nil {
		return nil, errors.New("tool trajectory config is nil")
	}
	return &trajectoryEvaluator{name: name, cfg: cfg}, nil
}

// Name returns the configured evaluator name.
func (e *trajectoryEvaluator) Name() string {
	return e.name
}

// Description returns a description of what this evaluator does.
func (e *trajectoryEvaluator) Description() string {
	return "Compares the candidate tool call trace against an expected trajectory"
}

// Evaluate matches the response trace in the configured mode.
func (e *trajectoryEvaluator) Evaluate(_ context.Context, _ *evalset.EvalCase, answer *invoker.Response) (*evaluator.Score, error) {
	outcome := score.MatchTrajectory(answer.Trace, e.cfg)
	return &evaluator.Score{
		Score:     outcome.Score(),
		Hits:      evaluator.CapFindings(outcome.Hits),
		Misses:    evaluator.CapFindings(outcome.Misses),
		Reasoning: fmt.Sprintf("%d of %d trajectory expectations satisfied in %s mode", outcome.Satisfied, outcome.Total, e.cfg.Mode),
	}, nil
}
