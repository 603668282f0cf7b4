//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package codeeval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-eval-go/evalset"
	"trpc.group/trpc-go/trpc-eval-go/invoker"
)

func codeCase() *evalset.EvalCase {
	return &evalset.EvalCase{
		CaseID:   "case-1",
		Input:    []evalset.Message{{Role: evalset.RoleUser, Content: "What is 2+2?"}},
		Criteria: "The answer states 4.",
		Expected: "4",
	}
}

func answer(text string) *invoker.Response {
	return &invoker.Response{Messages: []evalset.Message{{Role: evalset.RoleAssistant, Content: text}}}
}

func shellEvaluator(t *testing.T, script string) *evalset.CodeConfig {
	t.Helper()
	return &evalset.CodeConfig{Command: []string{"sh", "-c", script}}
}

func TestCodeEvaluate_ParsesProcessOutput(t *testing.T) {
	cfg := shellEvaluator(t, `cat > /dev/null; echo '{"score": 0.9, "hits": ["ok"], "reasoning": "looks right"}'`)
	e, err := New("checker", cfg)
	require.NoError(t, err)

	result, err := e.Evaluate(context.Background(), codeCase(), answer("4"))
	require.NoError(t, err)
	assert.Equal(t, 0.9, result.Score)
	assert.Equal(t, []string{"ok"}, result.Hits)
	assert.Equal(t, "looks right", result.Reasoning)
}

func TestCodeEvaluate_ReceivesPayloadOnStdin(t *testing.T) {
	script := `input=$(cat)
case "$input" in
*"What is 2+2?"*) echo '{"score": 1}';;
*) echo '{"score": 0}';;
esac`
	e, err := New("checker", shellEvaluator(t, script))
	require.NoError(t, err)

	result, err := e.Evaluate(context.Background(), codeCase(), answer("4"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Score)
}

func TestCodeEvaluate_NonZeroExitScoresZero(t *testing.T) {
	e, err := New("checker", shellEvaluator(t, `cat > /dev/null; echo "boom" >&2; exit 3`))
	require.NoError(t, err)

	result, err := e.Evaluate(context.Background(), codeCase(), answer("4"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Score)
	require.Len(t, result.Misses, 1)
	assert.Contains(t, result.Misses[0], "boom")
}

func TestCodeEvaluate_MalformedOutputScoresZero(t *testing.T) {
	e, err := New("checker", shellEvaluator(t, `cat > /dev/null; echo "not json"`))
	require.NoError(t, err)

	result, err := e.Evaluate(context.Background(), codeCase(), answer("4"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Score)
	require.Len(t, result.Misses, 1)
}

func TestCodeEvaluate_ScoreOutOfRangeScoresZero(t *testing.T) {
	e, err := New("checker", shellEvaluator(t, `cat > /dev/null; echo '{"score": 1.5}'`))
	require.NoError(t, err)

	result, err := e.Evaluate(context.Background(), codeCase(), answer("4"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Score)
}

func TestCodeEvaluate_Timeout(t *testing.T) {
	cfg := shellEvaluator(t, `sleep 5`)
	cfg.TimeoutSec = 1
	e, err := New("checker", cfg)
	require.NoError(t, err)

	result, err := e.Evaluate(context.Background(), codeCase(), answer("4"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Score)
	require.Len(t, result.Misses, 1)
	assert.Contains(t, result.Misses[0], "timed out")
}

func TestBuildPayload_SummarizesTrace(t *testing.T) {
	resp := answer("4")
	resp.Trace = []*evalset.ToolCall{{Name: "calc"}, {Name: "calc"}, {Name: "lookup"}}
	evalCase := codeCase()
	evalCase.GuidelinePaths = []string{"guides/math.md"}
	payload := BuildPayload(evalCase, resp, map[string]any{"strict": true})

	assert.Equal(t, "What is 2+2?", payload.Question)
	assert.Equal(t, "The answer states 4.", payload.Criteria)
	assert.Equal(t, "4", payload.ExpectedAnswer)
	assert.Equal(t, "4", payload.CandidateAnswer)
	assert.Equal(t, []string{"guides/math.md"}, payload.GuidelinePaths)
	assert.Equal(t, map[string]int{"calc": 2, "lookup": 1}, payload.CandidateTraceSummary)
	assert.Equal(t, map[string]any{"strict": true}, payload.Config)
}
