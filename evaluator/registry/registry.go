//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package registry resolves evaluator configurations into concrete
// evaluators. Resolution happens once at load time so that configuration
// mistakes surface before any case runs.
package registry

import (
	"fmt"
	"os"
	"sync"

	"github.com/hashicorp/go-multierror"

	"trpc.group/trpc-go/trpc-eval-go/evalset"
	"trpc.group/trpc-go/trpc-eval-go/evaluator"
	"trpc.group/trpc-go/trpc-eval-go/evaluator/codeeval"
	"trpc.group/trpc-go/trpc-eval-go/evaluator/composite"
	"trpc.group/trpc-go/trpc-eval-go/evaluator/fieldaccuracy"
	"trpc.group/trpc-go/trpc-eval-go/evaluator/llmjudge"
	"trpc.group/trpc-go/trpc-eval-go/evaluator/tooltrajectory"
	"trpc.group/trpc-go/trpc-eval-go/invoker"
)

// Dependencies carries shared backends evaluator factories may need.
type Dependencies struct {
	// Judge is the invoker used by llm_judge evaluators and composite
	// llm_judge aggregation.
	Judge invoker.Invoker
}

// Factory constructs an evaluator from its configuration.
type Factory func(cfg *evalset.EvaluatorConfig, deps *Dependencies) (evaluator.Evaluator, error)

var (
	mu        sync.RWMutex
	factories = make(map[evalset.EvaluatorType]Factory)
)

func init() {
	Register(evalset.TypeLLMJudge, func(cfg *evalset.EvaluatorConfig, deps *Dependencies) (evaluator.Evaluator, error) {
		return llmjudge.New(cfg.Name, cfg.LLMJudge, deps.Judge)
	})
	Register(evalset.TypeCode, func(cfg *evalset.EvaluatorConfig, _ *Dependencies) (evaluator.Evaluator, error) {
		return codeeval.New(cfg.Name, cfg.Code)
	})
	Register(evalset.TypeToolTrajectory, func(cfg *evalset.EvaluatorConfig, _ *Dependencies) (evaluator.Evaluator, error) {
		return tooltrajectory.New(cfg.Name, cfg.ToolTrajectory)
	})
	Register(evalset.TypeFieldAccuracy, func(cfg *evalset.EvaluatorConfig, _ *Dependencies) (evaluator.Evaluator, error) {
		return fieldaccuracy.New(cfg.Name, cfg.FieldAccuracy)
	})
	Register(evalset.TypeComposite, buildComposite)
}

// Register installs a factory for an evaluator type, replacing any existing
// registration. The type is also accepted by load-time validation from then
// on.
func Register(typ evalset.EvaluatorType, factory Factory) {
	evalset.RegisterCustomType(typ)
	mu.Lock()
	defer mu.Unlock()
	factories[typ] = factory
}

// Get returns the factory registered for an evaluator type. It returns
// os.ErrNotExist when no factory is registered.
func Get(typ evalset.EvaluatorType) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()
	factory, ok := factories[typ]
	if !ok {
		return nil, fmt.Errorf("no evaluator factory for type %s: %w", typ, os.ErrNotExist)
	}
	return factory, nil
}

// Build resolves one evaluator configuration, recursing into composite
// children.
func Build(cfg *evalset.EvaluatorConfig, deps *Dependencies) (evaluator.Evaluator, error) {
	if deps == nil {
		deps = &Dependencies{}
	}
	factory, err := Get(cfg.Type)
	if err != nil {
		return nil, fmt.Errorf("evaluator %s: %w", cfg.Name, err)
	}
	eval, err := factory(cfg, deps)
	if err != nil {
		return nil, fmt.Errorf("evaluator %s: %w", cfg.Name, err)
	}
	return eval, nil
}

// buildComposite resolves all children before wiring them into the composite.
func buildComposite(cfg *evalset.EvaluatorConfig, deps *Dependencies) (evaluator.Evaluator, error) {
	children := make([]evaluator.Evaluator, 0, len(cfg.Composite.Children))
	for _, child := range cfg.Composite.Children {
		built, err := Build(child, deps)
		if err != nil {
			return nil, err
		}
		children = append(children, built)
	}
	return composite.New(cfg.Name, cfg.Composite, children, deps.Judge)
}

// BuildCase resolves every evaluator of a case. All resolution failures are
// accumulated so one pass reports everything wrong with the case.
func BuildCase(evalCase *evalset.EvalCase, deps *Dependencies) ([]evaluator.Evaluator, error) {
	var errs *multierror.Error
	evaluators := make([]evaluator.Evaluator, 0, len(evalCase.Evaluators))
	for _, cfg := range evalCase.Evaluators {
		eval, err := Build(cfg, deps)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("case %s: %w", evalCase.CaseID, err))
			continue
		}
		evaluators = append(evaluators, eval)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return evaluators, nil
}
