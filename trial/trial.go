//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package trial reduces repeated runs of one case into a single summary.
package trial

import (
	"errors"
	"fmt"
	"math"

	"trpc.group/trpc-go/trpc-eval-go/evalresult"
	"trpc.group/trpc-go/trpc-eval-go/evalset"
	"trpc.group/trpc-go/trpc-eval-go/evaluator"
	"trpc.group/trpc-go/trpc-eval-go/status"
)

// DefaultConfidenceLevel applies when a confidence_interval aggregation does
// not name a level.
const DefaultConfidenceLevel = 0.95

// zValues carries the two-sided normal critical values for the supported
// confidence levels.
var zValues = map[float64]float64{
	0.90: 1.645,
	0.95: 1.960,
	0.99: 2.576,
}

// Summarize reduces the trial results of one case with the configured
// aggregation. Trials that failed before scoring contribute a zero score.
// Trials that never ran, such as those skipped by the cost ceiling, are
// excluded so the statistic covers completed trials only.
func Summarize(caseID string, cfg *evalset.TrialConfig, trials []*evalresult.CaseResult) (*evalresult.TrialSummary, error) {
	if len(trials) == 0 {
		return nil, errors.New("no trials to summarize")
	}
	completed := make([]*evalresult.CaseResult, 0, len(trials))
	for _, t := range trials {
		if t.Status == status.EvalStatusNotEvaluated {
			continue
		}
		completed = append(completed, t)
	}
	if len(completed) == 0 {
		return nil, errors.New("no completed trials to summarize")
	}
	trials = completed
	aggregation := evalset.TrialMean
	if cfg != nil && cfg.Aggregation != "" {
		aggregation = cfg.Aggregation
	}
	scores := make([]float64, len(trials))
	var cost float64
	for i, t := range trials {
		scores[i] = t.OverallScore
		cost += t.CostUSD
	}
	summary := &evalresult.TrialSummary{
		CaseID:      caseID,
		Aggregation: aggregation,
		NumTrials:   len(trials),
		TrialScores: scores,
		CostUSD:     cost,
	}
	switch aggregation {
	case evalset.TrialPassAtK:
		if cfg == nil || cfg.PassThreshold == nil {
			return nil, errors.New("pass_at_k aggregation requires a pass threshold")
		}
		summarizePassAtK(summary, trials, *cfg.PassThreshold)
	case evalset.TrialConfidenceInterval:
		level := DefaultConfidenceLevel
		if cfg != nil && cfg.ConfidenceLevel > 0 {
			level = cfg.ConfidenceLevel
		}
		if err := summarizeInterval(summary, trials, level); err != nil {
			return nil, err
		}
		applyThreshold(summary, cfg)
	case evalset.TrialMean:
		summarizeMean(summary, trials)
		applyThreshold(summary, cfg)
	default:
		return nil, fmt.Errorf("unknown trial aggregation %q", aggregation)
	}
	return summary, nil
}

// summarizeMean scores the case by the arithmetic mean of its trials and
// carries findings from the trial closest to that mean.
func summarizeMean(summary *evalresult.TrialSummary, trials []*evalresult.CaseResult) {
	summary.Score = mean(summary.TrialScores)
	adoptFindings(summary, nearest(trials, summary.Score))
}

// summarizePassAtK passes the case when any trial clears the threshold. The
// summary score is 1 on a pass and the trial mean otherwise.
func summarizePassAtK(summary *evalresult.TrialSummary, trials []*evalresult.CaseResult, threshold float64) {
	passed := false
	for _, t := range trials {
		if t.OverallScore >= threshold {
			passed = true
			adoptFindings(summary, t)
			break
		}
	}
	summary.Passed = &passed
	if passed {
		summary.Score = 1
		return
	}
	summary.Score = mean(summary.TrialScores)
	adoptFindings(summary, nearest(trials, summary.Score))
}

// summarizeInterval scores by the mean and attaches a normal-approximation
// confidence interval clamped to [0,1].
func summarizeInterval(summary *evalresult.TrialSummary, trials []*evalresult.CaseResult, level float64) error {
	z, ok := zValues[level]
	if !ok {
		return fmt.Errorf("unsupported confidence level %v", level)
	}
	m := mean(summary.TrialScores)
	summary.Score = m
	margin := 0.0
	if n := len(summary.TrialScores); n > 1 {
		var variance float64
		for _, s := range summary.TrialScores {
			variance += (s - m) * (s - m)
		}
		variance /= float64(n - 1)
		margin = z * math.Sqrt(variance/float64(n))
	}
	summary.Interval = &evalresult.ConfidenceInterval{
		Level: level,
		Low:   evaluator.Clamp(m - margin),
		High:  evaluator.Clamp(m + margin),
	}
	adoptFindings(summary, nearest(trials, m))
	return nil
}

// applyThreshold sets the pass flag when an optional threshold is configured.
func applyThreshold(summary *evalresult.TrialSummary, cfg *evalset.TrialConfig) {
	if cfg == nil || cfg.PassThreshold == nil {
		return
	}
	passed := summary.Score >= *cfg.PassThreshold
	summary.Passed = &passed
}

// adoptFindings copies the representative trial's findings onto the summary.
func adoptFindings(summary *evalresult.TrialSummary, trial *evalresult.CaseResult) {
	if trial == nil {
		return
	}
	var hits, misses []string
	for _, es := range trial.EvaluatorScores {
		hits = append(hits, es.Hits...)
		misses = append(misses, es.Misses...)
	}
	summary.Hits = evaluator.CapFindings(hits)
	summary.Misses = evaluator.CapFindings(misses)
}

// nearest returns the trial whose score is closest to the target. Ties keep
// the earlier trial.
func nearest(trials []*evalresult.CaseResult, target float64) *evalresult.CaseResult {
	var best *evalresult.CaseResult
	bestDelta := math.Inf(1)
	for _, t := range trials {
		delta := math.Abs(t.OverallScore - target)
		if delta < bestDelta {
			best = t
			bestDelta = delta
		}
	}
	return best
}

func mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
