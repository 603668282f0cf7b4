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
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-eval-go/evalresult"
)

type trialParam struct {
	ctx     context.Context
	runner  *Runner
	run     *caseRun
	idx     int
	results []*evalresult.CaseResult
	wg      *sync.WaitGroup
}

func (p *trialParam) reset() {
	p.ctx = nil
	p.runner = nil
	p.run = nil
	p.idx = 0
	p.results = nil
	p.wg = nil
}

var trialParamPool = &sync.Pool{
	New: func() any { return new(trialParam) },
}

func createTrialPool(size int) (*ants.PoolWithFunc, error) {
	if size <= 0 {
		return nil, errors.New("pool size must be greater than 0")
	}
	pool, err := ants.NewPoolWithFunc(size, func(args any) {
		param, ok := args.(*trialParam)
		if !ok {
			panic("trial pool args type error")
		}
		wg := param.wg
		defer func() {
			wg.Done()
			param.reset()
			trialParamPool.Put(param)
		}()
		param.results[param.idx] = param.runner.runTrial(param.ctx, param.run, param.idx)
	})
	if err != nil {
		return nil, fmt.Errorf("create trial pool: %w", err)
	}
	return pool, nil
}

func submitTrial(ctx context.Context, r *Runner, run *caseRun, idx int, results []*evalresult.CaseResult, wg *sync.WaitGroup) error {
	param := trialParamPool.Get().(*trialParam)
	param.ctx = ctx
	param.runner = r
	param.run = run
	param.idx = idx
	param.results = results
	param.wg = wg
	if err := r.pool.Invoke(param); err != nil {
		param.reset()
		trialParamPool.Put(param)
		return err
	}
	return nil
}
