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
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-eval-go/invoker"
)

type batchReply struct {
	resp *invoker.Response
	err  error
}

type batchRequest struct {
	ctx   context.Context
	req   *invoker.Request
	reply chan batchReply
}

// microBatcher adapts a batch-capable target to the single-request invoker
// interface. Requests from concurrent workers are collected up to the batch
// size, or until the linger window expires, then dispatched as one batch.
// Dispatch runs in its own goroutine so collection never blocks on an
// in-flight batch and a freed worker slot never stalls on a batch boundary.
type microBatcher struct {
	target    invoker.BatchInvoker
	size      int
	linger    time.Duration
	requests  chan *batchRequest
	done      chan struct{}
	closeOnce sync.Once
}

func newMicroBatcher(target invoker.BatchInvoker, size int, linger time.Duration) *microBatcher {
	b := &microBatcher{
		target:   target,
		size:     size,
		linger:   linger,
		requests: make(chan *batchRequest),
		done:     make(chan struct{}),
	}
	go b.loop()
	return b
}

// Name implements invoker.Invoker.
func (b *microBatcher) Name() string {
	return b.target.Name()
}

// Invoke hands the request to the collector and waits for its reply.
func (b *microBatcher) Invoke(ctx context.Context, req *invoker.Request) (*invoker.Response, error) {
	br := &batchRequest{ctx: ctx, req: req, reply: make(chan batchReply, 1)}
	select {
	case b.requests <- br:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.done:
		return nil, context.Canceled
	}
	select {
	case reply := <-br.reply:
		return reply.resp, reply.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the collector. Pending requests are dispatched first.
func (b *microBatcher) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

func (b *microBatcher) loop() {
	var pending []*batchRequest
	timer := time.NewTimer(b.linger)
	if !timer.Stop() {
		<-timer.C
	}
	flush := func() {
		if len(pending) == 0 {
			return
		}
		batch := pending
		pending = nil
		go b.dispatch(batch)
	}
	for {
		select {
		case req := <-b.requests:
			pending = append(pending, req)
			if len(pending) == 1 {
				timer.Reset(b.linger)
			}
			if len(pending) >= b.size {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				flush()
			}
		case <-timer.C:
			flush()
		case <-b.done:
			flush()
			return
		}
	}
}

func (b *microBatcher) dispatch(batch []*batchRequest) {
	reqs := make([]*invoker.Request, len(batch))
	for i, br := range batch {
		reqs[i] = br.req
	}
	resps, err := b.target.InvokeBatch(batch[0].ctx, reqs)
	for i, br := range batch {
		reply := batchReply{err: err}
		if err == nil {
			if i < len(resps) {
				reply.resp = resps[i]
			} else {
				reply.err = invoker.NewStatusError(500, "batch response is missing entries")
			}
		}
		br.reply <- reply
	}
}
