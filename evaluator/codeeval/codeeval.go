//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package codeeval provides the external-process evaluator.
package codeeval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"trpc.group/trpc-go/trpc-eval-go/evalset"
	"trpc.group/trpc-go/trpc-eval-go/evaluator"
	"trpc.group/trpc-go/trpc-eval-go/invoker"
	"trpc.group/trpc-go/trpc-eval-go/log"
)

// DefaultTimeout bounds the evaluator process runtime when the configuration
// does not supply one.
const DefaultTimeout = 30 * time.Second

// Payload is the single JSON object written to the evaluator process input
// channel.
type Payload struct {
	// Question is the concatenated user input.
	Question string `json:"question"`
	// Criteria is the case success description.
	Criteria string `json:"criteria"`
	// ExpectedAnswer is the reference answer, if any.
	ExpectedAnswer string `json:"expected_answer,omitempty"`
	// CandidateAnswer is the answer under evaluation.
	CandidateAnswer string `json:"candidate_answer"`
	// GuidelinePaths lists guideline files of the case.
	GuidelinePaths []string `json:"guideline_paths,omitempty"`
	// FilePaths lists input files of the case.
	FilePaths []string `json:"file_paths,omitempty"`
	// InputMessages carries the structured input segments.
	InputMessages []evalset.Message `json:"input_messages,omitempty"`
	// CandidateTraceSummary maps tool names to call counts.
	CandidateTraceSummary map[string]int `json:"candidate_trace_summary,omitempty"`
	// Config is free-form configuration from the evaluator config.
	Config map[string]any `json:"config,omitempty"`
	// ChildResults carries serialized child findings for code_judge
	// composite aggregation.
	ChildResults []*ChildResult `json:"child_results,omitempty"`
}

// ChildResult serializes one composite child outcome for the judge process.
type ChildResult struct {
	// Name is the child evaluator name.
	Name string `json:"name"`
	// Score is the child score.
	Score float64 `json:"score"`
	// Hits lists the child's satisfied expectations.
	Hits []string `json:"hits,omitempty"`
	// Misses lists the child's unsatisfied expectations.
	Misses []string `json:"misses,omitempty"`
	// Reasoning is the child's explanation.
	Reasoning string `json:"reasoning,omitempty"`
}

// output is the single JSON object required on the process output channel.
type output struct {
	Score     *float64       `json:"score"`
	Hits      []string       `json:"hits"`
	Misses    []string       `json:"misses"`
	Reasoning string         `json:"reasoning"`
	Details   map[string]any `json:"details"`
}

// Execute runs the configured command, writes the payload on stdin and parses
// the score object from stdout. Non-zero exit, timeout or malformed output is
// returned as an error for the caller to surface, never propagated as a
// case-fatal failure.
func Execute(ctx context.Context, cfg *evalset.CodeConfig, payload *Payload) (*evaluator.Score, error) {
	timeout := DefaultTimeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	input, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	cmd := exec.CommandContext(ctx, cfg.Command[0], cfg.Command[1:]...)
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("evaluator process timed out after %s", timeout)
		}
		return nil, fmt.Errorf("evaluator process failed: %v: %s", err, strings.TrimSpace(stderr.String()))
	}
	var out output
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &out); err != nil {
		return nil, fmt.Errorf("evaluator output is not a JSON object: %w", err)
	}
	if out.Score == nil || *out.Score < 0 || *out.Score > 1 {
		return nil, errors.New("evaluator output score is missing or outside [0,1]")
	}
	return &evaluator.Score{
		Score:     *out.Score,
		Hits:      evaluator.CapFindings(out.Hits),
		Misses:    evaluator.CapFindings(out.Misses),
		Reasoning: out.Reasoning,
		Details:   out.Details,
	}, nil
}

// codeEvaluator is a code evaluator implementation.
type codeEvaluator struct {
	name string
	cfg  *evalset.CodeConfig
}

// New creates a code evaluator delegating to an external process.
func New(name string, cfg *evalset.CodeConfig) (evaluator.Evaluator, error) {
	if cfg == nil {
		return nil, errors.New("code config is nil")
	}
	return &codeEvaluator{name: name, cfg: cfg}, nil
}

// Name returns the configured evaluator name.
func (e *codeEvaluator) Name() string {
	return e.name
}

// Description returns a description of what this evaluator does.
func (e *codeEvaluator) Description() string {
	return "Delegates scoring to an external process over JSON stdin/stdout"
}

// Evaluate runs the external process on the candidate answer. Process
// failures score 0 with the failure captured in misses.
func (e *codeEvaluator) Evaluate(ctx context.Context, evalCase *evalset.EvalCase, answer *invoker.Response) (*evaluator.Score, error) {
	payload := BuildPayload(evalCase, answer, e.cfg.Config)
	result, err := Execute(ctx, e.cfg, payload)
	if err != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
			return nil, fmt.Errorf("code evaluator: %w", ctx.Err())
		}
		log.Warnf("code evaluator %s failed for case %s: %v", e.name, evalCase.CaseID, err)
		return &evaluator.Score{Misses: []string{err.Error()}}, nil
	}
	return result, nil
}

// BuildPayload assembles the process input for a case and candidate answer.
func BuildPayload(evalCase *evalset.EvalCase, answer *invoker.Response, config map[string]any) *Payload {
	var question strings.Builder
	for _, message := range evalCase.Input {
		if message.Role == evalset.RoleUser {
			if question.Len() > 0 {
				question.WriteString("\n")
			}
			question.WriteString(message.Content)
		}
	}
	payload := &Payload{
		Question:        question.String(),
		Criteria:        evalCase.Criteria,
		ExpectedAnswer:  evalCase.Expected,
		CandidateAnswer: answer.Text(),
		GuidelinePaths:  evalCase.GuidelinePaths,
		FilePaths:       evalCase.FilePaths,
		InputMessages:   evalCase.Input,
		Config:          config,
	}
	if len(answer.Trace) > 0 {
		summary := make(map[string]int, len(answer.Trace))
		for _, call := range answer.Trace {
			summary[call.Name]++
		}
		payload.CandidateTraceSummary = summary
	}
	return payload
}
