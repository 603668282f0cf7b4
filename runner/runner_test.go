//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-eval-go/evalresult/inmemory"
	"trpc.group/trpc-go/trpc-eval-go/evalset"
	"trpc.group/trpc-go/trpc-eval-go/evaluator"
	"trpc.group/trpc-go/trpc-eval-go/evaluator/registry"
	"trpc.group/trpc-go/trpc-eval-go/invoker"
	"trpc.group/trpc-go/trpc-eval-go/status"
)

func init() {
	// A deterministic evaluator keyed on the answer text, so runner tests
	// exercise scheduling without external backends.
	registry.Register("echo_score", func(cfg *evalset.EvaluatorConfig, _ *registry.Dependencies) (evaluator.Evaluator, error) {
		return &echoScoreEvaluator{name: cfg.Name}, nil
	})
}

type echoScoreEvaluator struct {
	name string
}

func (e *echoScoreEvaluator) Name() string        { return e.name }
func (e *echoScoreEvaluator) Description() string { return "scores 1 when the answer echoes ok" }

func (e *echoScoreEvaluator) Evaluate(_ context.Context, _ *evalset.EvalCase, answer *invoker.Response) (*evaluator.Score, error) {
	if answer.Text() == "ok" {
		return &evaluator.Score{Score: 1, Hits: []string{"echoed ok"}}, nil
	}
	return &evaluator.Score{Score: 0, Misses: []string{"did not echo ok"}}, nil
}

// countingTarget tracks concurrent invocations and fails selected cases.
type countingTarget struct {
	delay       time.Duration
	failCases   map[string]bool
	inFlight    atomic.Int64
	maxInFlight atomic.Int64
	calls       atomic.Int64
}

func (c *countingTarget) Name() string { return "counting" }

func (c *countingTarget) Invoke(ctx context.Context, req *invoker.Request) (*invoker.Response, error) {
	cur := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		max := c.maxInFlight.Load()
		if cur <= max || c.maxInFlight.CompareAndSwap(max, cur) {
			break
		}
	}
	c.calls.Add(1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.failCases[req.CaseID] {
		return nil, invoker.NewStatusError(400, "rejected")
	}
	return &invoker.Response{
		Messages: []evalset.Message{{Role: evalset.RoleAssistant, Content: "ok"}},
		Usage:    &invoker.Usage{CostUSD: 0.001},
	}, nil
}

func runnerCase(id string) *evalset.EvalCase {
	return &evalset.EvalCase{
		CaseID:   id,
		Input:    []evalset.Message{{Role: evalset.RoleUser, Content: "ping"}},
		Criteria: "The target echoes ok.",
		Evaluators: []*evalset.EvaluatorConfig{
			{Name: "echo", Type: "echo_score"},
		},
	}
}

func fastRetry() *invoker.RetryPolicy {
	p := invoker.NewRetryPolicy()
	p.InitialDelay = time.Millisecond
	p.MaxDelay = 5 * time.Millisecond
	return p
}

func TestRun_BoundedConcurrencyAndIsolation(t *testing.T) {
	target := &countingTarget{delay: 5 * time.Millisecond, failCases: map[string]bool{"case-3": true}}
	sink := inmemory.New()
	r, err := New(target,
		WithParallelism(4),
		WithRetryPolicy(fastRetry()),
		WithSink(sink),
	)
	require.NoError(t, err)
	defer r.Close()

	cases := make([]*evalset.EvalCase, 0, 10)
	for i := 0; i < 10; i++ {
		cases = append(cases, runnerCase(fmt.Sprintf("case-%d", i)))
	}
	report, err := r.Run(context.Background(), cases)
	require.NoError(t, err)

	assert.LessOrEqual(t, target.maxInFlight.Load(), int64(4))
	assert.Equal(t, 10, report.NumCases)
	assert.Equal(t, 9, report.NumPassed)
	assert.Equal(t, 1, report.NumFailed)
	assert.Equal(t, 0, report.NumNotEvaluated)
	assert.NotEmpty(t, report.RunID)
	assert.InDelta(t, 0.009, report.CostUSD, 1e-9)

	require.Len(t, sink.Records(), 10)
	for _, record := range report.Records {
		require.NotNil(t, record)
		assert.Equal(t, report.RunID, record.RunID)
		require.Len(t, record.Trials, 1)
		if record.CaseID == "case-3" {
			assert.Equal(t, status.EvalStatusFailed, record.Trials[0].Status)
			assert.NotEmpty(t, record.Trials[0].ErrorMessage)
		} else {
			assert.Equal(t, status.EvalStatusPassed, record.Trials[0].Status)
			assert.Equal(t, 1.0, record.Trials[0].OverallScore)
		}
	}
}

func TestRun_TrialsAggregateWithPassAtK(t *testing.T) {
	target := &countingTarget{}
	sink := inmemory.New()
	r, err := New(target, WithRetryPolicy(fastRetry()), WithSink(sink))
	require.NoError(t, err)
	defer r.Close()

	threshold := 0.8
	c := runnerCase("trials")
	c.Trials = &evalset.TrialConfig{
		Count:         3,
		Aggregation:   evalset.TrialPassAtK,
		PassThreshold: &threshold,
	}
	report, err := r.Run(context.Background(), []*evalset.EvalCase{c})
	require.NoError(t, err)
	assert.Equal(t, 1, report.NumPassed)

	require.Len(t, report.Records, 1)
	record := report.Records[0]
	require.Len(t, record.Trials, 3)
	require.NotNil(t, record.Summary)
	require.NotNil(t, record.Summary.Passed)
	assert.True(t, *record.Summary.Passed)
	assert.Equal(t, 1.0, record.Summary.Score)
	assert.Equal(t, int64(3), target.calls.Load())
}

// costlyTarget reports a fixed cost per invocation.
type costlyTarget struct {
	cost  float64
	calls atomic.Int64
}

func (c *costlyTarget) Name() string { return "costly" }

func (c *costlyTarget) Invoke(_ context.Context, _ *invoker.Request) (*invoker.Response, error) {
	c.calls.Add(1)
	return &invoker.Response{
		Messages: []evalset.Message{{Role: evalset.RoleAssistant, Content: "ok"}},
		Usage:    &invoker.Usage{CostUSD: c.cost},
	}, nil
}

func TestRun_CostLimitSkipsRemainingTrials(t *testing.T) {
	target := &costlyTarget{cost: 1.0}
	r, err := New(target, WithParallelism(1), WithRetryPolicy(fastRetry()))
	require.NoError(t, err)
	defer r.Close()

	limit := 1.0
	c := runnerCase("budget")
	c.Trials = &evalset.TrialConfig{Count: 3, CostLimitUSD: &limit}
	report, err := r.Run(context.Background(), []*evalset.EvalCase{c})
	require.NoError(t, err)

	// The first trial exhausts the budget; the rest never invoke the target.
	assert.Equal(t, int64(1), target.calls.Load())
	require.Len(t, report.Records, 1)
	record := report.Records[0]
	require.Len(t, record.Trials, 3)
	assert.Equal(t, status.EvalStatusPassed, record.Trials[0].Status)
	for _, skipped := range record.Trials[1:] {
		assert.Equal(t, status.EvalStatusNotEvaluated, skipped.Status)
		assert.Equal(t, "cost limit reached", skipped.ErrorMessage)
	}
	require.NotNil(t, record.Summary)
	assert.Equal(t, 1, record.Summary.NumTrials)
	assert.Equal(t, []float64{1.0}, record.Summary.TrialScores)
	assert.Equal(t, 1.0, record.Summary.Score)
	assert.InDelta(t, 1.0, record.Summary.CostUSD, 1e-9)
	assert.Equal(t, 1, report.NumPassed)
}

func TestRun_InvalidCasesAreReportedNotScheduled(t *testing.T) {
	target := &countingTarget{}
	r, err := New(target, WithRetryPolicy(fastRetry()))
	require.NoError(t, err)
	defer r.Close()

	cases := []*evalset.EvalCase{
		runnerCase("good"),
		{CaseID: "broken"},
	}
	report, err := r.Run(context.Background(), cases)
	require.NoError(t, err)
	assert.Equal(t, 1, report.NumCases)
	assert.Equal(t, 1, report.NumInvalid)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, evalset.SeverityError, report.Diagnostics[0].Severity)
}

func TestRun_NoValidCases(t *testing.T) {
	r, err := New(&countingTarget{})
	require.NoError(t, err)
	defer r.Close()

	report, err := r.Run(context.Background(), []*evalset.EvalCase{{CaseID: "broken"}})
	require.Error(t, err)
	assert.Equal(t, 0, report.NumCases)
}

func TestRun_RetriesTransientFailures(t *testing.T) {
	target := &flakyOnceTarget{}
	r, err := New(target, WithRetryPolicy(fastRetry()))
	require.NoError(t, err)
	defer r.Close()

	report, err := r.Run(context.Background(), []*evalset.EvalCase{runnerCase("flaky")})
	require.NoError(t, err)
	assert.Equal(t, 1, report.NumPassed)
	require.Len(t, report.Records[0].Trials, 1)
	assert.Equal(t, 2, report.Records[0].Trials[0].Attempts)
}

type flakyOnceTarget struct {
	calls atomic.Int64
}

func (f *flakyOnceTarget) Name() string { return "flaky-once" }

func (f *flakyOnceTarget) Invoke(context.Context, *invoker.Request) (*invoker.Response, error) {
	if f.calls.Add(1) == 1 {
		return nil, invoker.NewStatusError(503, "warming up")
	}
	return &invoker.Response{
		Messages: []evalset.Message{{Role: evalset.RoleAssistant, Content: "ok"}},
	}, nil
}

func TestRun_CancellationLeavesTerminalStates(t *testing.T) {
	target := &countingTarget{delay: 20 * time.Millisecond}
	r, err := New(target, WithParallelism(2), WithRetryPolicy(fastRetry()))
	require.NoError(t, err)
	defer r.Close()

	cases := make([]*evalset.EvalCase, 0, 8)
	for i := 0; i < 8; i++ {
		cases = append(cases, runnerCase(fmt.Sprintf("case-%d", i)))
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	report, err := r.Run(ctx, cases)
	require.NoError(t, err)

	terminal := report.NumPassed + report.NumFailed + report.NumNotEvaluated
	assert.Equal(t, 8, terminal)
	assert.Greater(t, report.NumNotEvaluated+report.NumFailed, 0)
	for _, record := range report.Records {
		require.NotNil(t, record)
		require.Len(t, record.Trials, 1)
		assert.NotEqual(t, status.EvalStatusUnknown, record.Trials[0].Status)
	}
}

type batchTarget struct {
	batches atomic.Int64
	largest atomic.Int64
}

func (b *batchTarget) Name() string { return "batch" }

func (b *batchTarget) Invoke(ctx context.Context, req *invoker.Request) (*invoker.Response, error) {
	resps, err := b.InvokeBatch(ctx, []*invoker.Request{req})
	if err != nil {
		return nil, err
	}
	return resps[0], nil
}

func (b *batchTarget) InvokeBatch(_ context.Context, reqs []*invoker.Request) ([]*invoker.Response, error) {
	b.batches.Add(1)
	for {
		max := b.largest.Load()
		if int64(len(reqs)) <= max || b.largest.CompareAndSwap(max, int64(len(reqs))) {
			break
		}
	}
	resps := make([]*invoker.Response, len(reqs))
	for i, req := range reqs {
		resps[i] = &invoker.Response{
			Messages: []evalset.Message{{Role: evalset.RoleAssistant, Content: "ok"}},
			Raw:      req.CaseID,
		}
	}
	return resps, nil
}

func TestRun_BatchingSharesBatchCalls(t *testing.T) {
	target := &batchTarget{}
	r, err := New(target,
		WithParallelism(8),
		WithBatchSize(4),
		WithBatchLinger(10*time.Millisecond),
		WithRetryPolicy(fastRetry()),
	)
	require.NoError(t, err)
	defer r.Close()

	cases := make([]*evalset.EvalCase, 0, 16)
	for i := 0; i < 16; i++ {
		cases = append(cases, runnerCase(fmt.Sprintf("case-%d", i)))
	}
	report, err := r.Run(context.Background(), cases)
	require.NoError(t, err)
	assert.Equal(t, 16, report.NumPassed)
	// Collector merged concurrent requests into shared batches.
	assert.Less(t, target.batches.Load(), int64(16))
	assert.Greater(t, target.largest.Load(), int64(1))
}

func TestMicroBatcher_RepliesAreIndexAligned(t *testing.T) {
	target := &batchTarget{}
	b := newMicroBatcher(target, 4, 5*time.Millisecond)
	defer b.Close()

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			caseID := fmt.Sprintf("case-%d", i)
			resp, err := b.Invoke(context.Background(), &invoker.Request{CaseID: caseID})
			assert.NoError(t, err)
			assert.Equal(t, caseID, resp.Raw)
		}(i)
	}
	wg.Wait()
}
