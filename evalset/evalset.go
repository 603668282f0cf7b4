//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package evalset defines the evaluation case data model and evaluator configuration.
package evalset

// Role identifies the author of a conversation message.
type Role string

// Conversation roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message represents a single role-tagged conversation message.
type Message struct {
	// Role is the author of the message.
	Role Role `json:"role"`
	// Content is the message text.
	Content string `json:"content"`
}

// ToolCall represents one recorded tool invocation in a trace.
type ToolCall struct {
	// Name is the tool name.
	Name string `json:"name"`
	// Arguments keeps the decoded argument object.
	Arguments map[string]any `json:"arguments,omitempty"`
}

// EvalCase represents a single evaluation case.
// Cases are created by the loader and read-only thereafter.
type EvalCase struct {
	// CaseID uniquely identifies this evaluation case within a run.
	CaseID string `json:"caseId"`
	// Input contains the ordered conversation messages sent to the target.
	Input []Message `json:"input"`
	// Criteria is the free-text description of a successful answer.
	Criteria string `json:"criteria"`
	// Expected is the optional reference answer. For field accuracy
	// evaluators it holds a JSON document.
	Expected string `json:"expected,omitempty"`
	// Evaluators lists the evaluator configurations applied in order.
	Evaluators []*EvaluatorConfig `json:"evaluators"`
	// Trials configures repeated independent runs of this case.
	Trials *TrialConfig `json:"trials,omitempty"`
	// GuidelinePaths lists guideline files forwarded to code evaluators.
	GuidelinePaths []string `json:"guidelinePaths,omitempty"`
	// FilePaths lists input files forwarded to code evaluators.
	FilePaths []string `json:"filePaths,omitempty"`
}

// TrialAggregation selects how repeated trial results reduce to one statistic.
type TrialAggregation string

// Trial aggregation modes.
const (
	// TrialMean reports the arithmetic mean of trial scores.
	TrialMean TrialAggregation = "mean"
	// TrialPassAtK passes the case if any trial meets the pass threshold.
	TrialPassAtK TrialAggregation = "pass_at_k"
	// TrialConfidenceInterval reports the mean with a confidence bound.
	TrialConfidenceInterval TrialAggregation = "confidence_interval"
)

// TrialConfig configures repeated independent runs of one case.
type TrialConfig struct {
	// Count is the number of independent trials. Values below 1 run once.
	Count int `json:"count"`
	// Aggregation reduces the trial results. Defaults to mean.
	Aggregation TrialAggregation `json:"aggregation,omitempty"`
	// PassThreshold is the per-case pass threshold in [0,1].
	// Required when Aggregation is pass_at_k.
	PassThreshold *float64 `json:"passThreshold,omitempty"`
	// ConfidenceLevel is the confidence level for confidence_interval.
	// Defaults to 0.95.
	ConfidenceLevel float64 `json:"confidenceLevel,omitempty"`
	// CostLimitUSD stops launching further trials once cumulative cost
	// would exceed the limit.
	CostLimitUSD *float64 `json:"costLimitUsd,omitempty"`
}

// EffectiveCount returns the number of trials to run.
func (t *TrialConfig) EffectiveCount() int {
	if t == nil || t.Count < 1 {
		return 1
	}
	return t.Count
}
