//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package invoker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"trpc.group/trpc-go/trpc-eval-go/log"
)

// Retry policy defaults.
const (
	DefaultMaxRetries    = 3
	DefaultInitialDelay  = time.Second
	DefaultMaxDelay      = 60 * time.Second
	DefaultBackoffFactor = 2.0
)

// ErrBackoffCancelled reports a cancellation that fired during a retry
// backoff wait, distinguishing it from backend failures.
var ErrBackoffCancelled = errors.New("invocation cancelled during retry backoff")

// RetryPolicy decides retry and backoff behavior for one backend call.
// It applies only to Backend Invoker calls, never to evaluator scoring.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
	// InitialDelay is the backoff before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the backoff.
	MaxDelay time.Duration
	// BackoffFactor multiplies the delay between consecutive retries.
	BackoffFactor float64
	// RetryableStatusCodes is the set of retryable status codes.
	RetryableStatusCodes map[int]bool
}

// NewRetryPolicy returns a policy with the default parameters:
// 3 retries, 1s initial delay, 60s cap, factor 2, retryable codes
// {408, 429, 500, 502, 503, 504}.
func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:    DefaultMaxRetries,
		InitialDelay:  DefaultInitialDelay,
		MaxDelay:      DefaultMaxDelay,
		BackoffFactor: DefaultBackoffFactor,
		RetryableStatusCodes: map[int]bool{
			408: true, 429: true, 500: true, 502: true, 503: true, 504: true,
		},
	}
}

// Retryable classifies an error. Status codes outside the retryable set and
// cancellations fail immediately; failures without a status code, such as
// connection resets, are treated as transient.
func (p *RetryPolicy) Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return p.RetryableStatusCodes[statusErr.Code]
	}
	return true
}

// Delay returns the backoff before retry number attempt (1-based):
// min(MaxDelay, InitialDelay*BackoffFactor^(attempt-1)) scaled by a jitter
// uniform in [0.75, 1.25].
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	delay := float64(p.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= p.BackoffFactor
	}
	if capped := float64(p.MaxDelay); delay > capped {
		delay = capped
	}
	jitter := 0.75 + 0.5*rand.Float64()
	return time.Duration(delay * jitter)
}

// Do runs the operation with bounded retries. It returns the total number of
// attempts made and the last error when all attempts fail. The per-call
// retry state lives on the stack and is discarded on return.
func (p *RetryPolicy) Do(ctx context.Context, operation string, op func(attempt int) error) (int, error) {
	attempts := 0
	var lastErr error
	for attempt := 1; attempt <= p.MaxRetries+1; attempt++ {
		attempts = attempt
		err := op(attempt)
		if err == nil {
			if attempt > 1 {
				log.Debugf("operation %s succeeded after %d attempts", operation, attempt)
			}
			return attempts, nil
		}
		if !p.Retryable(err) {
			return attempts, err
		}
		lastErr = err
		if attempt > p.MaxRetries {
			break
		}
		delay := p.Delay(attempt)
		log.Debugf("operation %s attempt %d failed, retrying in %s: %v", operation, attempt, delay, err)
		select {
		case <-ctx.Done():
			return attempts, fmt.Errorf("%w: %w", ErrBackoffCancelled, ctx.Err())
		case <-time.After(delay):
		}
	}
	return attempts, lastErr
}

// WithRetry wraps an invoker so every call observes the retry policy. The
// wrapper sets Request.Attempt on each try; after the call returns, the
// request carries the final attempt count. When the wrapped invoker declares
// batch support, the whole batch retries as one call.
func WithRetry(inv Invoker, policy *RetryPolicy) Invoker {
	if batch, ok := inv.(BatchInvoker); ok {
		return &retryBatchInvoker{retryInvoker{inv: inv, policy: policy}, batch}
	}
	return &retryInvoker{inv: inv, policy: policy}
}

type retryInvoker struct {
	inv    Invoker
	policy *RetryPolicy
}

// Name returns the wrapped backend name.
func (r *retryInvoker) Name() string {
	return r.inv.Name()
}

// Invoke sends the request, retrying per the policy.
func (r *retryInvoker) Invoke(ctx context.Context, req *Request) (*Response, error) {
	var resp *Response
	_, err := r.policy.Do(ctx, "invoke "+r.inv.Name(), func(attempt int) error {
		req.Attempt = attempt
		var opErr error
		resp, opErr = r.inv.Invoke(ctx, req)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

type retryBatchInvoker struct {
	retryInvoker
	batch BatchInvoker
}

// InvokeBatch sends the batch, retrying the whole batch per the policy.
func (r *retryBatchInvoker) InvokeBatch(ctx context.Context, reqs []*Request) ([]*Response, error) {
	var resps []*Response
	_, err := r.policy.Do(ctx, "invoke batch "+r.inv.Name(), func(attempt int) error {
		for _, req := range reqs {
			req.Attempt = attempt
		}
		var opErr error
		resps, opErr = r.batch.InvokeBatch(ctx, reqs)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return resps, nil
}
