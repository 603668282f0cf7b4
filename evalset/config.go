//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package evalset

import (
	"encoding/json"
	"fmt"
)

// EvaluatorType identifies an evaluator variant.
type EvaluatorType string

// Evaluator variants. The set is closed: unknown types are rejected at load time.
const (
	TypeLLMJudge       EvaluatorType = "llm_judge"
	TypeCode           EvaluatorType = "code"
	TypeComposite      EvaluatorType = "composite"
	TypeToolTrajectory EvaluatorType = "tool_trajectory"
	TypeFieldAccuracy  EvaluatorType = "field_accuracy"
)

// EvaluatorConfig is the tagged-union configuration for one evaluator.
// Exactly the parameter struct matching Type must be populated.
type EvaluatorConfig struct {
	// Name uniquely identifies the evaluator within a case.
	Name string `json:"name"`
	// Type selects the evaluator variant.
	Type EvaluatorType `json:"type"`
	// Weight applies when this config is a composite child. Defaults to 1.
	Weight *float64 `json:"weight,omitempty"`
	// LLMJudge holds parameters for the llm_judge variant.
	LLMJudge *LLMJudgeConfig `json:"llmJudge,omitempty"`
	// Code holds parameters for the code variant.
	Code *CodeConfig `json:"code,omitempty"`
	// Composite holds parameters for the composite variant.
	Composite *CompositeConfig `json:"composite,omitempty"`
	// ToolTrajectory holds parameters for the tool_trajectory variant.
	ToolTrajectory *ToolTrajectoryConfig `json:"toolTrajectory,omitempty"`
	// FieldAccuracy holds parameters for the field_accuracy variant.
	FieldAccuracy *FieldAccuracyConfig `json:"fieldAccuracy,omitempty"`
}

// EffectiveWeight returns the composite child weight, defaulting to 1.
func (c *EvaluatorConfig) EffectiveWeight() float64 {
	if c.Weight == nil {
		return 1
	}
	return *c.Weight
}

// LLMJudgeConfig configures an LLM judge evaluator.
type LLMJudgeConfig struct {
	// Template is an optional judge prompt template. The placeholders
	// {criteria}, {question}, {expected} and {candidate} are substituted.
	Template string `json:"template,omitempty"`
	// Rubrics holds checklist rubric items judged satisfied or unsatisfied.
	Rubrics []*Rubric `json:"rubrics,omitempty"`
	// ScoreRanges holds disjoint integer sub-ranges of the 0-10 scale.
	// When present they must jointly cover every integer 0..10.
	ScoreRanges []*ScoreRange `json:"scoreRanges,omitempty"`
}

// Rubric defines a single checklist rubric item.
type Rubric struct {
	// ID identifies the rubric item.
	ID string `json:"id,omitempty"`
	// ExpectedOutcome describes what the judge checks for.
	ExpectedOutcome string `json:"expectedOutcome"`
	// Weight scales this item in the weighted score. Defaults to 1.
	Weight *float64 `json:"weight,omitempty"`
	// Required marks the item as mandatory for a pass verdict.
	Required bool `json:"required,omitempty"`
	// RequiredMinScore makes the required status conditional on the
	// judge's sub-score (0-10) meeting this floor. It affects the
	// pass/borderline/fail verdict, not the raw weighted score.
	RequiredMinScore *int `json:"requiredMinScore,omitempty"`
}

// EffectiveWeight returns the rubric weight, defaulting to 1.
func (r *Rubric) EffectiveWeight() float64 {
	if r.Weight == nil {
		return 1
	}
	return *r.Weight
}

// ScoreRange maps an integer sub-range of the 0-10 scale to a rationale.
type ScoreRange struct {
	// Min is the inclusive lower bound.
	Min int `json:"min"`
	// Max is the inclusive upper bound.
	Max int `json:"max"`
	// Rationale describes answers scoring inside this range.
	Rationale string `json:"rationale"`
}

// CodeConfig configures an external-process evaluator.
type CodeConfig struct {
	// Command is the argv of the evaluator process.
	Command []string `json:"command"`
	// TimeoutSec bounds the process runtime. Defaults to 30 seconds.
	TimeoutSec int `json:"timeoutSec,omitempty"`
	// Config is free-form configuration forwarded on the input channel.
	Config map[string]any `json:"config,omitempty"`
}

// CompositeAggregator selects how child scores reduce to one score.
type CompositeAggregator string

// Composite aggregation modes.
const (
	// AggregateWeightedAverage reduces children to a weighted mean.
	AggregateWeightedAverage CompositeAggregator = "weighted_average"
	// AggregateLLMJudge hands child findings to a judge prompt.
	AggregateLLMJudge CompositeAggregator = "llm_judge"
	// AggregateCodeJudge hands child findings to an external process.
	AggregateCodeJudge CompositeAggregator = "code_judge"
)

// CompositeConfig configures a composite evaluator.
type CompositeConfig struct {
	// Children are evaluated depth-first, sequentially, in order.
	Children []*EvaluatorConfig `json:"children"`
	// Aggregator reduces the child results. Defaults to weighted_average.
	Aggregator CompositeAggregator `json:"aggregator,omitempty"`
	// Judge configures the judge for the llm_judge aggregator.
	Judge *LLMJudgeConfig `json:"judge,omitempty"`
	// Code configures the process for the code_judge aggregator.
	Code *CodeConfig `json:"codeJudge,omitempty"`
}

// TrajectoryMode selects how a recorded trace is compared against expectations.
type TrajectoryMode string

// Trajectory comparison modes.
const (
	// TrajectoryAnyOrder requires minimum per-tool counts anywhere in the trace.
	TrajectoryAnyOrder TrajectoryMode = "any_order"
	// TrajectoryInOrder requires the expected calls as a subsequence.
	TrajectoryInOrder TrajectoryMode = "in_order"
	// TrajectoryExact requires the filtered trace to equal the expected list.
	TrajectoryExact TrajectoryMode = "exact"
)

// ToolTrajectoryConfig configures a tool trajectory evaluator.
type ToolTrajectoryConfig struct {
	// Mode selects the comparison mode.
	Mode TrajectoryMode `json:"mode"`
	// Minimums maps tool names to minimum call counts for any_order mode.
	Minimums map[string]int `json:"minimums,omitempty"`
	// Expected is the ordered expected call list for in_order and exact modes.
	Expected []*ExpectedToolCall `json:"expected,omitempty"`
}

// ExpectedToolCall is one expected tool invocation.
type ExpectedToolCall struct {
	// Tool is the expected tool name.
	Tool string `json:"tool"`
	// Args lists argument keys compared by deep equality. Keys absent
	// from Args are ignored in the actual call.
	Args map[string]any `json:"-"`
	// AnyArgs accepts any arguments for this call.
	AnyArgs bool `json:"-"`
}

// expectedToolCallJSON is the wire form of ExpectedToolCall, where args is
// either the string "any" or an object.
type expectedToolCallJSON struct {
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args,omitempty"`
}

// UnmarshalJSON decodes an expected call, accepting args:"any" as a wildcard.
func (e *ExpectedToolCall) UnmarshalJSON(data []byte) error {
	var raw expectedToolCallJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal expected tool call: %w", err)
	}
	e.Tool = raw.Tool
	e.Args = nil
	e.AnyArgs = false
	if len(raw.Args) == 0 {
		e.AnyArgs = true
		return nil
	}
	var anyMarker string
	if err := json.Unmarshal(raw.Args, &anyMarker); err == nil {
		if anyMarker != "any" {
			return fmt.Errorf("unsupported args marker %q", anyMarker)
		}
		e.AnyArgs = true
		return nil
	}
	if err := json.Unmarshal(raw.Args, &e.Args); err != nil {
		return fmt.Errorf("unmarshal expected tool call args: %w", err)
	}
	return nil
}

// MarshalJSON encodes an expected call, rendering wildcards as args:"any".
func (e *ExpectedToolCall) MarshalJSON() ([]byte, error) {
	raw := expectedToolCallJSON{Tool: e.Tool}
	if e.AnyArgs {
		marker, err := json.Marshal("any")
		if err != nil {
			return nil, err
		}
		raw.Args = marker
		return json.Marshal(&raw)
	}
	args, err := json.Marshal(e.Args)
	if err != nil {
		return nil, fmt.Errorf("marshal expected tool call args: %w", err)
	}
	raw.Args = args
	return json.Marshal(&raw)
}

// FieldMatchType selects how a single field is compared.
type FieldMatchType string

// Field match types.
const (
	// FieldMatchExact compares by deep equality.
	FieldMatchExact FieldMatchType = "exact"
	// FieldMatchNumericTolerance compares numbers within a tolerance.
	FieldMatchNumericTolerance FieldMatchType = "numeric_tolerance"
	// FieldMatchDate parses both sides against format lists and compares instants.
	FieldMatchDate FieldMatchType = "date"
)

// FieldAggregation selects how per-field outcomes reduce to one score.
type FieldAggregation string

// Field aggregation modes.
const (
	// FieldWeightedAverage reduces field outcomes to a weighted mean.
	FieldWeightedAverage FieldAggregation = "weighted_average"
	// FieldAllOrNothing scores 1 only when every field matches.
	FieldAllOrNothing FieldAggregation = "all_or_nothing"
)

// FieldAccuracyConfig configures a field accuracy evaluator.
type FieldAccuracyConfig struct {
	// Fields lists the dot-path field matchers.
	Fields []*FieldMatcher `json:"fields"`
	// Aggregation reduces field outcomes. Defaults to weighted_average.
	Aggregation FieldAggregation `json:"aggregation,omitempty"`
}

// FieldMatcher compares one named dot-path field against the expected output.
type FieldMatcher struct {
	// Path is the dot path of the field, e.g. "result.total".
	Path string `json:"path"`
	// Match selects the comparison. Defaults to exact.
	Match FieldMatchType `json:"match,omitempty"`
	// Tolerance is the numeric tolerance for numeric_tolerance.
	Tolerance float64 `json:"tolerance,omitempty"`
	// Relative interprets Tolerance relative to the expected magnitude.
	Relative bool `json:"relative,omitempty"`
	// Formats lists date layouts tried in order for the date match type.
	Formats []string `json:"formats,omitempty"`
	// Weight scales this field in the weighted score. Defaults to 1.
	Weight *float64 `json:"weight,omitempty"`
}

// EffectiveWeight returns the field weight, defaulting to 1.
func (m *FieldMatcher) EffectiveWeight() float64 {
	if m.Weight == nil {
		return 1
	}
	return *m.Weight
}

// EffectiveMatch returns the field match type, defaulting to exact.
func (m *FieldMatcher) EffectiveMatch() FieldMatchType {
	if m.Match == "" {
		return FieldMatchExact
	}
	return m.Match
}
