//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package composite combines child evaluators into a single score.
package composite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-eval-go/evalset"
	"trpc.group/trpc-go/trpc-eval-go/evaluator"
	"trpc.group/trpc-go/trpc-eval-go/evaluator/codeeval"
	"trpc.group/trpc-go/trpc-eval-go/evaluator/llmjudge"
	"trpc.group/trpc-go/trpc-eval-go/invoker"
	"trpc.group/trpc-go/trpc-eval-go/log"
)

type composite struct {
	name     string
	cfg      *evalset.CompositeConfig
	children []evaluator.Evaluator
	backend  invoker.Invoker
}

// New creates a composite evaluator over already constructed children. The
// children slice must align with the configuration's child list. The judge
// backend is required for the llm_judge aggregator only.
func New(name string, cfg *evalset.CompositeConfig, children []evaluator.Evaluator, backend invoker.Invoker) (evaluator.Evaluator, error) {
	if cfg == nil {
		return nil, errors.New("composite config is nil")
	}
	if len(children) != len(cfg.Children) {
		return nil, fmt.Errorf("composite %s: %d children built for %d configured", name, len(children), len(cfg.Children))
	}
	if cfg.Aggregator == evalset.AggregateLLMJudge && backend == nil {
		return nil, fmt.Errorf("composite %s: llm_judge aggregator requires a judge invoker", name)
	}
	return &composite{name: name, cfg: cfg, children: children, backend: backend}, nil
}

// Name returns the configured evaluator name.
func (c *composite) Name() string {
	return c.name
}

// Description returns a description of what this evaluator does.
func (c *composite) Description() string {
	return "Runs child evaluators and reduces their scores into one"
}

// Evaluate runs children depth first in configuration order and reduces their
// scores with the configured aggregator.
func (c *composite) Evaluate(ctx context.Context, evalCase *evalset.EvalCase, answer *invoker.Response) (*evaluator.Score, error) {
	results := make([]*evaluator.Score, 0, len(c.children))
	for i, child := range c.children {
		result, err := child.Evaluate(ctx, evalCase, answer)
		if err != nil {
			return nil, fmt.Errorf("child %s: %w", c.cfg.Children[i].Name, err)
		}
		results = append(results, result)
	}
	switch c.cfg.Aggregator {
	case evalset.AggregateLLMJudge:
		return c.judgeAggregate(ctx, evalCase, results)
	case evalset.AggregateCodeJudge:
		return c.codeAggregate(ctx, evalCase, answer, results)
	default:
		return c.weightedAverage(results), nil
	}
}

// weightedAverage reduces child scores by their configured weights and unions
// their findings prefixed with the child name.
func (c *composite) weightedAverage(results []*evaluator.Score) *evaluator.Score {
	var weighted, total float64
	var hits, misses []string
	details := make(map[string]any, len(results))
	for i, result := range results {
		child := c.cfg.Children[i]
		weight := child.EffectiveWeight()
		weighted += weight * result.Score
		total += weight
		details[child.Name] = result.Score
		for _, hit := range result.Hits {
			hits = append(hits, fmt.Sprintf("%s: %s", child.Name, hit))
		}
		for _, miss := range result.Misses {
			misses = append(misses, fmt.Sprintf("%s: %s", child.Name, miss))
		}
	}
	var value float64
	if total > 0 {
		value = weighted / total
	}
	return &evaluator.Score{
		Score:   evaluator.Clamp(value),
		Hits:    evaluator.CapFindings(hits),
		Misses:  evaluator.CapFindings(misses),
		Details: details,
	}
}

// judgeAggregate asks the judge backend for an overall verdict given the
// child outcomes.
func (c *composite) judgeAggregate(ctx context.Context, evalCase *evalset.EvalCase, results []*evaluator.Score) (*evaluator.Score, error) {
	prompt := c.renderJudgePrompt(evalCase, results)
	resp, err := c.backend.Invoke(ctx, &invoker.Request{
		CaseID:   evalCase.CaseID,
		Messages: []evalset.Message{{Role: evalset.RoleUser, Content: prompt}},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("aggregator judge invocation: %w", err)
		}
		log.Warnf("composite %s aggregator judge failed for case %s: %v", c.name, evalCase.CaseID, err)
		return &evaluator.Score{
			Misses:    []string{fmt.Sprintf("aggregator judge invocation failed: %v", err)},
			Reasoning: "aggregator judge unavailable",
		}, nil
	}
	result, ok := llmjudge.ParseScore(resp.Text())
	if !ok {
		return &evaluator.Score{Reasoning: "aggregator judge output is not a valid verdict object"}, nil
	}
	return result, nil
}

// codeAggregate delegates the reduction to an external process, passing the
// serialized child outcomes alongside the case payload.
func (c *composite) codeAggregate(ctx context.Context, evalCase *evalset.EvalCase, answer *invoker.Response, results []*evaluator.Score) (*evaluator.Score, error) {
	payload := codeeval.BuildPayload(evalCase, answer, c.cfg.Code.Config)
	payload.ChildResults = make([]*codeeval.ChildResult, 0, len(results))
	for i, result := range results {
		payload.ChildResults = append(payload.ChildResults, &codeeval.ChildResult{
			Name:      c.cfg.Children[i].Name,
			Score:     result.Score,
			Hits:      result.Hits,
			Misses:    result.Misses,
			Reasoning: result.Reasoning,
		})
	}
	result, err := codeeval.Execute(ctx, c.cfg.Code, payload)
	if err != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
			return nil, fmt.Errorf("aggregator process: %w", ctx.Err())
		}
		log.Warnf("composite %s aggregator process failed for case %s: %v", c.name, evalCase.CaseID, err)
		return &evaluator.Score{Misses: []string{err.Error()}}, nil
	}
	return result, nil
}

// renderJudgePrompt summarizes the child outcomes for the aggregator judge.
func (c *composite) renderJudgePrompt(evalCase *evalset.EvalCase, results []*evaluator.Score) string {
	var sb strings.Builder
	sb.WriteString("You are combining the verdicts of several evaluators into one overall score.\n\n")
	sb.WriteString("Success criteria:\n")
	sb.WriteString(evalCase.Criteria)
	sb.WriteString("\n\nEvaluator verdicts:\n")
	for i, result := range results {
		child := c.cfg.Children[i]
		fmt.Fprintf(&sb, "- %s scored %.3f", child.Name, result.Score)
		if result.Reasoning != "" {
			fmt.Fprintf(&sb, " (%s)", result.Reasoning)
		}
		sb.WriteString("\n")
		for _, hit := range result.Hits {
			fmt.Fprintf(&sb, "  hit: %s\n", hit)
		}
		for _, miss := range result.Misses {
			fmt.Fprintf(&sb, "  miss: %s\n", miss)
		}
	}
	sb.WriteString("\nRespond with exactly one JSON object of the form ")
	sb.WriteString(`{"score": <number in [0,1]>, "hits": [...], "misses": [...], "reasoning": "..."}.`)
	sb.WriteString(" Do not wrap it in markdown or add any other text.")
	return sb.String()
}
