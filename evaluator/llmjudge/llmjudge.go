//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package llmjudge provides the LLM-as-judge evaluator.
package llmjudge

import (
	"context"
	"errors"
	"fmt"

	"trpc.group/trpc-go/trpc-eval-go/evalset"
	"trpc.group/trpc-go/trpc-eval-go/evaluator"
	"trpc.group/trpc-go/trpc-eval-go/invoker"
	"trpc.group/trpc-go/trpc-eval-go/log"
)

// judge is an llm_judge evaluator implementation.
type judge struct {
	name    string
	cfg     *evalset.LLMJudgeConfig
	backend invoker.Invoker
}

// New creates an llm_judge evaluator backed by the supplied judge invoker.
func New(name string, cfg *evalset.LLMJudgeConfig, backend invoker.Invoker) (evaluator.Evaluator, error) {
	if cfg == nil {
		return nil, errors.New("llm judge config is nil")
	}
	if backend == nil {
		return nil, errors.New("judge invoker is nil")
	}
	return &judge{name: name, cfg: cfg, backend: backend}, nil
}

// Name returns the configured evaluator name.
func (j *judge) Name() string {
	return j.name
}

// Description returns a description of what this evaluator does.
func (j *judge) Description() string {
	return "Scores the candidate answer with a judge model"
}

// Evaluate renders the judge prompt, invokes the judge backend and parses the
// returned verdict. Malformed judge output scores 0 with the failure surfaced
// in misses; it is never a case-fatal error.
func (j *judge) Evaluate(ctx context.Context, evalCase *evalset.EvalCase, answer *invoker.Response) (*evaluator.Score, error) {
	prompt := renderPrompt(j.cfg, evalCase, answer.Text())
	resp, err := j.backend.Invoke(ctx, &invoker.Request{
		CaseID:   evalCase.CaseID,
		Messages: []evalset.Message{{Role: evalset.RoleUser, Content: prompt}},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("judge invocation: %w", err)
		}
		log.Warnf("judge %s invocation failed for case %s: %v", j.backend.Name(), evalCase.CaseID, err)
		return &evaluator.Score{
			Misses:    []string{fmt.Sprintf("judge invocation failed: %v", err)},
			Reasoning: "judge backend unavailable",
		}, nil
	}
	return j.scoreResponse(evalCase, resp.Text()), nil
}

// scoreResponse turns the raw judge text into an evaluation score.
func (j *judge) scoreResponse(evalCase *evalset.EvalCase, text string) *evaluator.Score {
	out, ok := parseJudgeOutput(text)
	if !ok || (out.Score == nil && len(j.cfg.Rubrics) == 0) {
		log.Debugf("judge output for case %s is not schema-valid", evalCase.CaseID)
		return &evaluator.Score{Reasoning: "judge output is not a valid verdict object"}
	}
	var base float64
	if out.Score != nil {
		base = *out.Score
	}
	result := &evaluator.Score{
		Score:     evaluator.Clamp(base),
		Hits:      evaluator.CapFindings(out.Hits),
		Misses:    evaluator.CapFindings(out.Misses),
		Reasoning: out.Reasoning,
	}
	if len(j.cfg.Rubrics) > 0 {
		score, verdict, hits, misses := scoreChecklist(j.cfg.Rubrics, out.Rubrics)
		result.Score = score
		result.Hits = evaluator.CapFindings(hits)
		result.Misses = evaluator.CapFindings(misses)
		result.Details = map[string]any{"verdict": verdict}
	}
	if len(j.cfg.ScoreRanges) > 0 {
		grade := 0
		if out.Grade != nil {
			grade = *out.Grade
		}
		score, rationale := scoreRangeResult(j.cfg.ScoreRanges, grade)
		result.Score = score
		if result.Details == nil {
			result.Details = make(map[string]any)
		}
		result.Details["grade"] = grade
		result.Details["rationale"] = rationale
	}
	return result
}
