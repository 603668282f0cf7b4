//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package evalresult provides evaluation result records and the result sink.
package evalresult

import (
	"context"
	"time"

	"trpc.group/trpc-go/trpc-eval-go/evalset"
	"trpc.group/trpc-go/trpc-eval-go/status"
)

// EvaluatorScore is the outcome of one evaluator run on one candidate answer.
type EvaluatorScore struct {
	// Name is the unique evaluator name within the case.
	Name string `json:"name"`
	// Score is in [0,1].
	Score float64 `json:"score"`
	// Hits lists satisfied expectations, ordered and capped.
	Hits []string `json:"hits,omitempty"`
	// Misses lists unsatisfied expectations, ordered and capped.
	Misses []string `json:"misses,omitempty"`
	// Reasoning explains the score when the evaluator provides one.
	Reasoning string `json:"reasoning,omitempty"`
	// Details carries structured evaluator-specific information.
	Details map[string]any `json:"details,omitempty"`
	// ErrorMessage surfaces an evaluator-execution failure. The case still
	// produces a result; evaluation failure is not case failure.
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// CaseResult is the aggregated result of one case for one trial.
type CaseResult struct {
	// CaseID identifies the evaluation case.
	CaseID string `json:"caseId"`
	// Trial is the 1-based trial number.
	Trial int `json:"trial"`
	// Target names the backend under test.
	Target string `json:"target,omitempty"`
	// Status is the pass/fail status against the case pass threshold.
	Status status.EvalStatus `json:"status"`
	// OverallScore is the arithmetic mean of the evaluator scores.
	OverallScore float64 `json:"overallScore"`
	// EvaluatorScores holds one entry per configured evaluator, in order.
	EvaluatorScores []*EvaluatorScore `json:"evaluatorScores,omitempty"`
	// Attempts counts backend invocation attempts including retries.
	Attempts int `json:"attempts,omitempty"`
	// StartTime is when the trial started.
	StartTime time.Time `json:"startTime"`
	// Duration is the trial wall time.
	Duration time.Duration `json:"duration"`
	// CostUSD is the passthrough cost reported by the backend.
	CostUSD float64 `json:"costUsd,omitempty"`
	// ErrorMessage records a fatal per-case failure, such as retry exhaustion.
	// An errored case is distinguishable from one that scored 0 on merit.
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// EvaluatorScore returns the score entry for the named evaluator, or nil.
func (r *CaseResult) EvaluatorScore(name string) *EvaluatorScore {
	for _, s := range r.EvaluatorScores {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// ConfidenceInterval is a symmetric confidence bound around a mean.
type ConfidenceInterval struct {
	// Level is the confidence level, e.g. 0.95.
	Level float64 `json:"level"`
	// Low is the lower bound.
	Low float64 `json:"low"`
	// High is the upper bound.
	High float64 `json:"high"`
}

// TrialSummary reduces repeated trial results for one case to one statistic.
type TrialSummary struct {
	// CaseID identifies the evaluation case.
	CaseID string `json:"caseId"`
	// Aggregation names the reduction that produced this summary.
	Aggregation evalset.TrialAggregation `json:"aggregation"`
	// Score is the summary score.
	Score float64 `json:"score"`
	// Passed reports the pass_at_k outcome when that aggregation is used.
	Passed *bool `json:"passed,omitempty"`
	// NumTrials counts the trials the summary covers.
	NumTrials int `json:"numTrials"`
	// TrialScores lists the per-trial overall scores in trial order.
	TrialScores []float64 `json:"trialScores,omitempty"`
	// Hits are taken from the trial nearest the summary statistic.
	Hits []string `json:"hits,omitempty"`
	// Misses are taken from the trial nearest the summary statistic.
	Misses []string `json:"misses,omitempty"`
	// Interval is populated for the confidence_interval aggregation.
	Interval *ConfidenceInterval `json:"interval,omitempty"`
	// CostUSD is the cumulative passthrough cost across trials.
	CostUSD float64 `json:"costUsd,omitempty"`
}

// Record is one appended result per completed case. Every record carries its
// own case id so readers can identify it regardless of write order.
type Record struct {
	// RecordID uniquely identifies this record.
	RecordID string `json:"recordId,omitempty"`
	// RunID identifies the evaluation run.
	RunID string `json:"runId,omitempty"`
	// CaseID identifies the evaluation case.
	CaseID string `json:"caseId"`
	// Trials holds the per-trial results in trial order.
	Trials []*CaseResult `json:"trials"`
	// Summary is the trial reduction. Populated when trials > 1.
	Summary *TrialSummary `json:"summary,omitempty"`
	// CreationTimestamp is when the record was appended.
	CreationTimestamp time.Time `json:"creationTimestamp"`
}

// Sink appends one result record per completed case. Append is safe for
// concurrent callers; implementations must not interleave partial writes and
// must durably flush every successfully appended record before returning.
type Sink interface {
	// Append appends one record.
	Append(ctx context.Context, record *Record) error
	// Close closes the sink and releases owned resources.
	Close() error
}
