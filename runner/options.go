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
	"time"

	"trpc.group/trpc-go/trpc-eval-go/evalresult"
	"trpc.group/trpc-go/trpc-eval-go/invoker"
)

const (
	defaultParallelism   = 1
	defaultPassThreshold = 0.5
	defaultBatchLinger   = 20 * time.Millisecond
)

// Options holds the runner configuration.
type Options struct {
	// Parallelism bounds how many trials run concurrently. Defaults to 1
	// unless overridden.
	Parallelism int
	// RetryPolicy governs target invocation retries.
	RetryPolicy *invoker.RetryPolicy
	// Judge is the backend for llm_judge evaluators.
	Judge invoker.Invoker
	// Sink receives one record per finished case.
	Sink evalresult.Sink
	// PassThreshold converts a trial score into a pass/fail status.
	PassThreshold float64
	// BatchSize enables request batching for batch-capable targets when
	// greater than 1.
	BatchSize int
	// BatchLinger bounds how long a partial batch waits for more requests.
	BatchLinger time.Duration
	// RunID identifies the run in emitted records. A fresh id is generated
	// when empty.
	RunID string
}

// Option configures the runner.
type Option func(*Options)

// NewOptions applies the options over the defaults.
func NewOptions(opt ...Option) *Options {
	opts := &Options{
		Parallelism:   defaultParallelism,
		RetryPolicy:   invoker.NewRetryPolicy(),
		PassThreshold: defaultPassThreshold,
		BatchLinger:   defaultBatchLinger,
	}
	for _, o := range opt {
		o(opts)
	}
	return opts
}

// WithParallelism bounds concurrent trials.
func WithParallelism(n int) Option {
	return func(o *Options) { o.Parallelism = n }
}

// WithRetryPolicy overrides the default target retry policy.
func WithRetryPolicy(policy *invoker.RetryPolicy) Option {
	return func(o *Options) { o.RetryPolicy = policy }
}

// WithJudge sets the backend for llm_judge evaluators.
func WithJudge(judge invoker.Invoker) Option {
	return func(o *Options) { o.Judge = judge }
}

// WithSink sets the record sink.
func WithSink(sink evalresult.Sink) Option {
	return func(o *Options) { o.Sink = sink }
}

// WithPassThreshold sets the score at which a trial counts as passed.
func WithPassThreshold(threshold float64) Option {
	return func(o *Options) { o.PassThreshold = threshold }
}

// WithBatchSize enables request batching up to the given size for targets
// implementing invoker.BatchInvoker.
func WithBatchSize(size int) Option {
	return func(o *Options) { o.BatchSize = size }
}

// WithBatchLinger bounds how long a partial batch waits before dispatch.
func WithBatchLinger(linger time.Duration) Option {
	return func(o *Options) { o.BatchLinger = linger }
}

// WithRunID pins the run identifier instead of generating one.
func WithRunID(runID string) Option {
	return func(o *Options) { o.RunID = runID }
}
