//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package runner drives evaluation runs: it schedules trials over a bounded
// worker pool, invokes the target with retries, runs the configured
// evaluators and appends one record per case to the sink.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-eval-go/evalresult"
	"trpc.group/trpc-go/trpc-eval-go/evalset"
	"trpc.group/trpc-go/trpc-eval-go/evaluator"
	"trpc.group/trpc-go/trpc-eval-go/evaluator/registry"
	"trpc.group/trpc-go/trpc-eval-go/invoker"
	"trpc.group/trpc-go/trpc-eval-go/log"
	"trpc.group/trpc-go/trpc-eval-go/status"
	"trpc.group/trpc-go/trpc-eval-go/trial"
)

// Runner executes evaluation cases against a target.
type Runner struct {
	opts    *Options
	target  invoker.Invoker
	batcher *microBatcher
	pool    *ants.PoolWithFunc
}

// Report summarizes one evaluation run.
type Report struct {
	// RunID identifies the run.
	RunID string
	// Target is the name of the evaluated target.
	Target string
	// StartTime is when the run began.
	StartTime time.Time
	// Duration is the wall time of the whole run.
	Duration time.Duration
	// NumCases is the number of cases scheduled.
	NumCases int
	// NumPassed, NumFailed and NumNotEvaluated partition the scheduled
	// cases by final status.
	NumPassed       int
	NumFailed       int
	NumNotEvaluated int
	// NumInvalid is the number of cases rejected at load time.
	NumInvalid int
	// Diagnostics lists the load-time rejections.
	Diagnostics []evalset.Diagnostic
	// Records holds one record per scheduled case, in case order.
	Records []*evalresult.Record
	// CostUSD is the total reported cost of the run.
	CostUSD float64
}

// New creates a runner for the target. Batch-capable targets are wrapped in
// a collector when batching is enabled so concurrent trials share batch
// calls.
func New(target invoker.Invoker, opt ...Option) (*Runner, error) {
	if target == nil {
		return nil, errors.New("target invoker is nil")
	}
	opts := NewOptions(opt...)
	if opts.Parallelism <= 0 {
		return nil, errors.New("parallelism must be greater than 0")
	}
	r := &Runner{opts: opts, target: target}
	if opts.BatchSize > 1 {
		if batchTarget, ok := target.(invoker.BatchInvoker); ok {
			r.batcher = newMicroBatcher(batchTarget, opts.BatchSize, opts.BatchLinger)
			r.target = r.batcher
		}
	}
	pool, err := createTrialPool(opts.Parallelism)
	if err != nil {
		return nil, err
	}
	r.pool = pool
	return r, nil
}

// Close releases the worker pool and the batch collector.
func (r *Runner) Close() error {
	if r.pool != nil {
		r.pool.Release()
	}
	if r.batcher != nil {
		r.batcher.Close()
	}
	return nil
}

// caseRun carries the per-case execution state shared by its trials.
type caseRun struct {
	evalCase   *evalset.EvalCase
	evaluators []evaluator.Evaluator

	mu   sync.Mutex
	cost float64
}

// addCost accumulates trial cost for the cost ceiling.
func (c *caseRun) addCost(cost float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cost += cost
}

// overCostLimit reports whether the case has spent its budget.
func (c *caseRun) overCostLimit() bool {
	cfg := c.evalCase.Trials
	if cfg == nil || cfg.CostLimitUSD == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cost >= *cfg.CostLimitUSD
}

// Run validates the cases, executes every valid case and returns the run
// report. Invalid cases are reported in diagnostics and never scheduled. A
// sink failure does not stop remaining cases; all append errors are returned
// together after the run completes.
func (r *Runner) Run(ctx context.Context, cases []*evalset.EvalCase) (*Report, error) {
	start := time.Now()
	runID := r.opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	valid, diags := evalset.ValidateCases(cases)
	for _, diag := range diags {
		log.Warnf("run %s: rejected %s: %s", runID, diag.Location, diag.Message)
	}
	report := &Report{
		RunID:       runID,
		Target:      r.target.Name(),
		StartTime:   start,
		NumCases:    len(valid),
		NumInvalid:  len(cases) - len(valid),
		Diagnostics: diags,
		Records:     make([]*evalresult.Record, len(valid)),
	}
	if len(valid) == 0 {
		report.Duration = time.Since(start)
		return report, errors.New("no valid cases to run")
	}
	deps := &registry.Dependencies{Judge: r.opts.Judge}
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		appendErrs *multierror.Error
	)
	for i, evalCase := range valid {
		wg.Add(1)
		go func(i int, evalCase *evalset.EvalCase) {
			defer wg.Done()
			record := r.runCase(ctx, runID, evalCase, deps)
			report.Records[i] = record
			if r.opts.Sink == nil {
				return
			}
			if err := r.opts.Sink.Append(ctx, record); err != nil {
				mu.Lock()
				appendErrs = multierror.Append(appendErrs, fmt.Errorf("append record for case %s: %w", evalCase.CaseID, err))
				mu.Unlock()
			}
		}(i, evalCase)
	}
	wg.Wait()
	for _, record := range report.Records {
		report.CostUSD += recordCost(record)
		switch caseStatus(record) {
		case status.EvalStatusPassed:
			report.NumPassed++
		case status.EvalStatusFailed:
			report.NumFailed++
		default:
			report.NumNotEvaluated++
		}
	}
	report.Duration = time.Since(start)
	return report, appendErrs.ErrorOrNil()
}

// runCase executes all trials of one case over the shared pool and reduces
// them into a record.
func (r *Runner) runCase(ctx context.Context, runID string, evalCase *evalset.EvalCase, deps *registry.Dependencies) *evalresult.Record {
	record := &evalresult.Record{
		RecordID:          uuid.NewString(),
		RunID:             runID,
		CaseID:            evalCase.CaseID,
		CreationTimestamp: time.Now(),
	}
	evaluators, err := registry.BuildCase(evalCase, deps)
	if err != nil {
		log.Errorf("run %s: case %s: %v", runID, evalCase.CaseID, err)
		record.Trials = []*evalresult.CaseResult{{
			CaseID:       evalCase.CaseID,
			Trial:        1,
			Status:       status.EvalStatusFailed,
			ErrorMessage: err.Error(),
			StartTime:    time.Now(),
		}}
		return record
	}
	run := &caseRun{evalCase: evalCase, evaluators: evaluators}
	n := evalCase.Trials.EffectiveCount()
	results := make([]*evalresult.CaseResult, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		if err := submitTrial(ctx, r, run, i, results, &wg); err != nil {
			results[i] = &evalresult.CaseResult{
				CaseID:       evalCase.CaseID,
				Trial:        i + 1,
				Status:       status.EvalStatusFailed,
				ErrorMessage: fmt.Sprintf("submit trial: %v", err),
				StartTime:    time.Now(),
			}
			wg.Done()
		}
	}
	wg.Wait()
	record.Trials = results
	summary, err := trial.Summarize(evalCase.CaseID, evalCase.Trials, results)
	if err != nil {
		log.Errorf("run %s: summarize case %s: %v", runID, evalCase.CaseID, err)
		return record
	}
	record.Summary = summary
	return record
}

// runTrial executes one trial: target invocation with retries, then the
// case's evaluators in order. Failures never escape the trial.
func (r *Runner) runTrial(ctx context.Context, run *caseRun, trialIdx int) *evalresult.CaseResult {
	evalCase := run.evalCase
	result := &evalresult.CaseResult{
		CaseID:    evalCase.CaseID,
		Trial:     trialIdx + 1,
		Target:    r.target.Name(),
		StartTime: time.Now(),
	}
	defer func() { result.Duration = time.Since(result.StartTime) }()
	if ctx.Err() != nil {
		result.Status = status.EvalStatusNotEvaluated
		result.ErrorMessage = ctx.Err().Error()
		return result
	}
	if run.overCostLimit() {
		result.Status = status.EvalStatusNotEvaluated
		result.ErrorMessage = "cost limit reached"
		return result
	}
	var resp *invoker.Response
	attempts, err := r.opts.RetryPolicy.Do(ctx, fmt.Sprintf("invoke %s", r.target.Name()), func(attempt int) error {
		var ierr error
		resp, ierr = r.target.Invoke(ctx, &invoker.Request{
			CaseID:   evalCase.CaseID,
			Attempt:  attempt,
			Messages: evalCase.Input,
		})
		return ierr
	})
	result.Attempts = attempts
	if err != nil {
		result.Status = status.EvalStatusFailed
		result.ErrorMessage = err.Error()
		return result
	}
	if resp.Usage != nil {
		result.CostUSD = resp.Usage.CostUSD
		run.addCost(resp.Usage.CostUSD)
	}
	var total float64
	failed := false
	for _, eval := range run.evaluators {
		es := &evalresult.EvaluatorScore{Name: eval.Name()}
		score, err := eval.Evaluate(ctx, evalCase, resp)
		if err != nil {
			if ctx.Err() != nil {
				result.Status = status.EvalStatusFailed
				result.ErrorMessage = err.Error()
				result.EvaluatorScores = append(result.EvaluatorScores, es)
				return result
			}
			log.Warnf("evaluator %s failed for case %s trial %d: %v", eval.Name(), evalCase.CaseID, result.Trial, err)
			es.ErrorMessage = err.Error()
			failed = true
		} else {
			es.Score = score.Score
			es.Hits = score.Hits
			es.Misses = score.Misses
			es.Reasoning = score.Reasoning
			es.Details = score.Details
			total += score.Score
		}
		result.EvaluatorScores = append(result.EvaluatorScores, es)
	}
	if n := len(result.EvaluatorScores); n > 0 {
		result.OverallScore = total / float64(n)
	}
	if failed {
		result.Status = status.EvalStatusFailed
		return result
	}
	result.Status = status.ForScore(result.OverallScore, r.opts.PassThreshold)
	return result
}

// caseStatus derives the case's final status from its record.
func caseStatus(record *evalresult.Record) status.EvalStatus {
	if record.Summary != nil && record.Summary.Passed != nil {
		if *record.Summary.Passed {
			return status.EvalStatusPassed
		}
		return status.EvalStatusFailed
	}
	statuses := make([]status.EvalStatus, 0, len(record.Trials))
	for _, t := range record.Trials {
		statuses = append(statuses, t.Status)
	}
	return status.Summarize(statuses)
}

func recordCost(record *evalresult.Record) float64 {
	var cost float64
	for _, t := range record.Trials {
		cost += t.CostUSD
	}
	return cost
}
