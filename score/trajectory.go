//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package score

import (
	"fmt"
	"sort"

	"github.com/google/go-cmp/cmp"

	"trpc.group/trpc-go/trpc-eval-go/evalset"
)

// TrajectoryOutcome is the result of comparing a recorded tool-call trace
// against the configured expectations.
type TrajectoryOutcome struct {
	// Satisfied counts expectations that were met.
	Satisfied int
	// Total counts all expectations.
	Total int
	// Hits lists satisfied expectations.
	Hits []string
	// Misses lists unsatisfied expectations.
	Misses []string
}

// Score returns satisfied/total, or 0 when there are no expectations.
func (o *TrajectoryOutcome) Score() float64 {
	if o.Total == 0 {
		return 0
	}
	return float64(o.Satisfied) / float64(o.Total)
}

// MatchTrajectory compares the trace against the trajectory criterion.
// The config must have passed load-time validation.
func MatchTrajectory(trace []*evalset.ToolCall, cfg *evalset.ToolTrajectoryConfig) *TrajectoryOutcome {
	switch cfg.Mode {
	case evalset.TrajectoryAnyOrder:
		return matchAnyOrder(trace, cfg.Minimums)
	case evalset.TrajectoryInOrder:
		return matchInOrder(trace, cfg.Expected)
	default:
		return matchExact(trace, cfg.Expected)
	}
}

// matchAnyOrder requires every tool in minimums to appear at least that many
// times anywhere in the trace. Order is irrelevant and extras are ignored.
func matchAnyOrder(trace []*evalset.ToolCall, minimums map[string]int) *TrajectoryOutcome {
	counts := make(map[string]int, len(trace))
	for _, call := range trace {
		counts[call.Name]++
	}
	tools := make([]string, 0, len(minimums))
	for tool := range minimums {
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	outcome := &TrajectoryOutcome{Total: len(tools)}
	for _, tool := range tools {
		minimum := minimums[tool]
		if counts[tool] >= minimum {
			outcome.Satisfied++
			outcome.Hits = append(outcome.Hits, fmt.Sprintf("tool %s called %d times (minimum %d)", tool, counts[tool], minimum))
			continue
		}
		outcome.Misses = append(outcome.Misses, fmt.Sprintf("tool %s called %d times, expected at least %d", tool, counts[tool], minimum))
	}
	return outcome
}

// matchInOrder requires the expected calls to appear as a not necessarily
// contiguous subsequence of the trace in the same relative order.
func matchInOrder(trace []*evalset.ToolCall, expected []*evalset.ExpectedToolCall) *TrajectoryOutcome {
	outcome := &TrajectoryOutcome{Total: len(expected)}
	traceIdx := 0
	for _, want := range expected {
		matched := false
		for traceIdx < len(trace) {
			call := trace[traceIdx]
			traceIdx++
			if callMatches(call, want) {
				matched = true
				break
			}
		}
		if matched {
			outcome.Satisfied++
			outcome.Hits = append(outcome.Hits, fmt.Sprintf("tool %s called in order", want.Tool))
			continue
		}
		outcome.Misses = append(outcome.Misses, fmt.Sprintf("tool %s not called in expected order", want.Tool))
	}
	return outcome
}

// matchExact drops trace calls whose tool is not named in expected, then
// requires the remainder to equal expected exactly in length and order.
func matchExact(trace []*evalset.ToolCall, expected []*evalset.ExpectedToolCall) *TrajectoryOutcome {
	named := make(map[string]bool, len(expected))
	for _, want := range expected {
		named[want.Tool] = true
	}
	relevant := make([]*evalset.ToolCall, 0, len(trace))
	for _, call := range trace {
		if named[call.Name] {
			relevant = append(relevant, call)
		}
	}
	total := len(expected)
	if len(relevant) > total {
		total = len(relevant)
	}
	outcome := &TrajectoryOutcome{Total: total}
	for i, want := range expected {
		if i >= len(relevant) {
			outcome.Misses = append(outcome.Misses, fmt.Sprintf("tool %s missing at position %d", want.Tool, i))
			continue
		}
		if !callMatches(relevant[i], want) {
			outcome.Misses = append(outcome.Misses,
				fmt.Sprintf("position %d: got tool %s, want %s", i, relevant[i].Name, want.Tool))
			continue
		}
		outcome.Satisfied++
		outcome.Hits = append(outcome.Hits, fmt.Sprintf("tool %s matched at position %d", want.Tool, i))
	}
	for i := len(expected); i < len(relevant); i++ {
		outcome.Misses = append(outcome.Misses, fmt.Sprintf("unexpected extra call to %s at position %d", relevant[i].Name, i))
	}
	return outcome
}

// callMatches compares tool name and arguments. A wildcard matches any
// arguments; an argument object is compared by deep equality on its listed
// keys only.
func callMatches(call *evalset.ToolCall, want *evalset.ExpectedToolCall) bool {
	if call.Name != want.Tool {
		return false
	}
	if want.AnyArgs {
		return true
	}
	for key, wantValue := range want.Args {
		gotValue, ok := call.Arguments[key]
		if !ok {
			return false
		}
		if !cmp.Equal(gotValue, wantValue) {
			return false
		}
	}
	return true
}
