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
	"errors"
	"fmt"
	"sort"
	"sync"
)

// MaxCompositeDepth bounds composite evaluator nesting, checked at load time.
const MaxCompositeDepth = 5

var (
	customTypesMu sync.RWMutex
	customTypes   = make(map[EvaluatorType]bool)
)

// RegisterCustomType marks an evaluator type as acceptable at load time. The
// builtin variants are always accepted; anything else is rejected unless
// registered here. Custom types carry no inline parameter struct, so only
// the common fields are validated.
func RegisterCustomType(typ EvaluatorType) {
	customTypesMu.Lock()
	defer customTypesMu.Unlock()
	customTypes[typ] = true
}

func isCustomType(typ EvaluatorType) bool {
	customTypesMu.RLock()
	defer customTypesMu.RUnlock()
	return customTypes[typ]
}

// Severity classifies a diagnostic.
type Severity string

// Diagnostic severities.
const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic reports a load-time finding with location context.
// The caller decides how to render diagnostics.
type Diagnostic struct {
	// Severity classifies the finding.
	Severity Severity `json:"severity"`
	// Location identifies the offending case or config element.
	Location string `json:"location"`
	// Message describes the finding.
	Message string `json:"message"`
}

// ValidateCases validates the supplied cases and returns the valid subset
// together with diagnostics for the excluded ones. Valid cases proceed even
// when siblings are rejected.
func ValidateCases(cases []*EvalCase) ([]*EvalCase, []Diagnostic) {
	valid := make([]*EvalCase, 0, len(cases))
	var diags []Diagnostic
	seen := make(map[string]bool, len(cases))
	for i, c := range cases {
		location := fmt.Sprintf("case[%d]", i)
		if c == nil {
			diags = append(diags, Diagnostic{Severity: SeverityError, Location: location, Message: "case is nil"})
			continue
		}
		if c.CaseID != "" {
			location = fmt.Sprintf("case[%d] %s", i, c.CaseID)
		}
		if seen[c.CaseID] {
			diags = append(diags, Diagnostic{Severity: SeverityError, Location: location, Message: "duplicate case id"})
			continue
		}
		if err := c.Validate(); err != nil {
			diags = append(diags, Diagnostic{Severity: SeverityError, Location: location, Message: err.Error()})
			continue
		}
		seen[c.CaseID] = true
		valid = append(valid, c)
	}
	return valid, diags
}

// Validate checks the case structure and every evaluator configuration.
func (c *EvalCase) Validate() error {
	if c.CaseID == "" {
		return errors.New("case id is empty")
	}
	if len(c.Input) == 0 {
		return errors.New("input is empty")
	}
	if c.Criteria == "" {
		return errors.New("criteria is empty")
	}
	if len(c.Evaluators) == 0 {
		return errors.New("no evaluators configured")
	}
	names := make(map[string]bool, len(c.Evaluators))
	for i, cfg := range c.Evaluators {
		if cfg == nil {
			return fmt.Errorf("evaluator[%d] is nil", i)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("evaluator[%d] %s: %w", i, cfg.Name, err)
		}
		if names[cfg.Name] {
			return fmt.Errorf("evaluator[%d]: duplicate evaluator name %s", i, cfg.Name)
		}
		names[cfg.Name] = true
	}
	if err := c.Trials.validate(); err != nil {
		return fmt.Errorf("trials: %w", err)
	}
	return nil
}

// Validate checks one evaluator configuration, including nested composites.
func (c *EvaluatorConfig) Validate() error {
	return c.validate(0)
}

func (c *EvaluatorConfig) validate(depth int) error {
	if c.Name == "" {
		return errors.New("evaluator name is empty")
	}
	if c.Weight != nil && *c.Weight < 0 {
		return fmt.Errorf("negative weight %v", *c.Weight)
	}
	switch c.Type {
	case TypeLLMJudge:
		if c.LLMJudge == nil {
			return errors.New("llm_judge parameters missing")
		}
		return c.LLMJudge.validate()
	case TypeCode:
		if c.Code == nil {
			return errors.New("code parameters missing")
		}
		return c.Code.validate()
	case TypeComposite:
		if c.Composite == nil {
			return errors.New("composite parameters missing")
		}
		return c.Composite.validate(depth)
	case TypeToolTrajectory:
		if c.ToolTrajectory == nil {
			return errors.New("tool_trajectory parameters missing")
		}
		return c.ToolTrajectory.validate()
	case TypeFieldAccuracy:
		if c.FieldAccuracy == nil {
			return errors.New("field_accuracy parameters missing")
		}
		return c.FieldAccuracy.validate()
	default:
		if isCustomType(c.Type) {
			return nil
		}
		return fmt.Errorf("unknown evaluator type %q", c.Type)
	}
}

func (c *LLMJudgeConfig) validate() error {
	for i, rubric := range c.Rubrics {
		if rubric == nil {
			return fmt.Errorf("rubric[%d] is nil", i)
		}
		if rubric.ExpectedOutcome == "" {
			return fmt.Errorf("rubric[%d]: expected outcome is empty", i)
		}
		if rubric.Weight != nil && *rubric.Weight < 0 {
			return fmt.Errorf("rubric[%d]: negative weight %v", i, *rubric.Weight)
		}
		if rubric.RequiredMinScore != nil && (*rubric.RequiredMinScore < 0 || *rubric.RequiredMinScore > 10) {
			return fmt.Errorf("rubric[%d]: required min score %d outside 0..10", i, *rubric.RequiredMinScore)
		}
	}
	return validateScoreRanges(c.ScoreRanges)
}

// validateScoreRanges requires the ranges to be disjoint and to jointly
// cover every integer 0..10. Any gap or overlap is a hard load-time error.
func validateScoreRanges(ranges []*ScoreRange) error {
	if len(ranges) == 0 {
		return nil
	}
	sorted := make([]*ScoreRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })
	next := 0
	for i, r := range sorted {
		if r == nil {
			return fmt.Errorf("score range[%d] is nil", i)
		}
		if r.Rationale == "" {
			return fmt.Errorf("score range %d..%d: rationale is empty", r.Min, r.Max)
		}
		if r.Min > r.Max {
			return fmt.Errorf("score range %d..%d: min exceeds max", r.Min, r.Max)
		}
		if r.Min < 0 || r.Max > 10 {
			return fmt.Errorf("score range %d..%d outside 0..10", r.Min, r.Max)
		}
		if r.Min < next {
			return fmt.Errorf("score range %d..%d overlaps previous range", r.Min, r.Max)
		}
		if r.Min > next {
			return fmt.Errorf("score ranges leave gap at %d", next)
		}
		next = r.Max + 1
	}
	if next != 11 {
		return fmt.Errorf("score ranges leave gap at %d", next)
	}
	return nil
}

func (c *CodeConfig) validate() error {
	if len(c.Command) == 0 {
		return errors.New("command is empty")
	}
	if c.TimeoutSec < 0 {
		return fmt.Errorf("negative timeout %d", c.TimeoutSec)
	}
	return nil
}

func (c *CompositeConfig) validate(depth int) error {
	if depth >= MaxCompositeDepth {
		return fmt.Errorf("composite nesting exceeds depth %d", MaxCompositeDepth)
	}
	if len(c.Children) == 0 {
		return errors.New("composite has no children")
	}
	names := make(map[string]bool, len(c.Children))
	for i, child := range c.Children {
		if child == nil {
			return fmt.Errorf("child[%d] is nil", i)
		}
		if err := child.validate(depth + 1); err != nil {
			return fmt.Errorf("child[%d] %s: %w", i, child.Name, err)
		}
		if names[child.Name] {
			return fmt.Errorf("child[%d]: duplicate child name %s", i, child.Name)
		}
		names[child.Name] = true
	}
	switch c.Aggregator {
	case "", AggregateWeightedAverage:
	case AggregateLLMJudge:
		if c.Judge != nil {
			if err := c.Judge.validate(); err != nil {
				return fmt.Errorf("judge: %w", err)
			}
		}
	case AggregateCodeJudge:
		if c.Code == nil {
			return errors.New("code_judge aggregator requires a code config")
		}
		if err := c.Code.validate(); err != nil {
			return fmt.Errorf("code judge: %w", err)
		}
	default:
		return fmt.Errorf("unknown aggregator %q", c.Aggregator)
	}
	return nil
}

func (c *ToolTrajectoryConfig) validate() error {
	switch c.Mode {
	case TrajectoryAnyOrder:
		if len(c.Minimums) == 0 {
			return errors.New("any_order mode requires minimums")
		}
		for tool, count := range c.Minimums {
			if tool == "" {
				return errors.New("minimums contain an empty tool name")
			}
			if count < 1 {
				return fmt.Errorf("minimum count for tool %s must be at least 1", tool)
			}
		}
	case TrajectoryInOrder, TrajectoryExact:
		if len(c.Expected) == 0 {
			return fmt.Errorf("%s mode requires an expected call list", c.Mode)
		}
		for i, call := range c.Expected {
			if call == nil {
				return fmt.Errorf("expected[%d] is nil", i)
			}
			if call.Tool == "" {
				return fmt.Errorf("expected[%d]: tool name is empty", i)
			}
		}
	default:
		return fmt.Errorf("unknown trajectory mode %q", c.Mode)
	}
	return nil
}

func (c *FieldAccuracyConfig) validate() error {
	if len(c.Fields) == 0 {
		return errors.New("no field matchers configured")
	}
	switch c.Aggregation {
	case "", FieldWeightedAverage, FieldAllOrNothing:
	default:
		return fmt.Errorf("unknown aggregation %q", c.Aggregation)
	}
	for i, field := range c.Fields {
		if field == nil {
			return fmt.Errorf("field[%d] is nil", i)
		}
		if field.Path == "" {
			return fmt.Errorf("field[%d]: path is empty", i)
		}
		if field.Weight != nil && *field.Weight < 0 {
			return fmt.Errorf("field %s: negative weight %v", field.Path, *field.Weight)
		}
		switch field.EffectiveMatch() {
		case FieldMatchExact:
		case FieldMatchNumericTolerance:
			if field.Tolerance < 0 {
				return fmt.Errorf("field %s: negative tolerance %v", field.Path, field.Tolerance)
			}
		case FieldMatchDate:
			if len(field.Formats) == 0 {
				return fmt.Errorf("field %s: date match requires formats", field.Path)
			}
		default:
			return fmt.Errorf("field %s: unknown match type %q", field.Path, field.Match)
		}
	}
	return nil
}

func (t *TrialConfig) validate() error {
	if t == nil {
		return nil
	}
	if t.Count < 0 {
		return fmt.Errorf("negative trial count %d", t.Count)
	}
	switch t.Aggregation {
	case "", TrialMean, TrialConfidenceInterval:
	case TrialPassAtK:
		// The pass threshold is an explicit required field rather than an
		// inferred default.
		if t.PassThreshold == nil {
			return errors.New("pass_at_k requires a pass threshold")
		}
	default:
		return fmt.Errorf("unknown aggregation %q", t.Aggregation)
	}
	if t.PassThreshold != nil && (*t.PassThreshold < 0 || *t.PassThreshold > 1) {
		return fmt.Errorf("pass threshold %v outside [0,1]", *t.PassThreshold)
	}
	if t.ConfidenceLevel != 0 && (t.ConfidenceLevel <= 0 || t.ConfidenceLevel >= 1) {
		return fmt.Errorf("confidence level %v outside (0,1)", t.ConfidenceLevel)
	}
	if t.CostLimitUSD != nil && *t.CostLimitUSD <= 0 {
		return fmt.Errorf("cost limit %v must be positive", *t.CostLimitUSD)
	}
	return nil
}
