//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package llmjudge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJudgeOutput_DirectJSON(t *testing.T) {
	out, ok := parseJudgeOutput(`{"score": 0.8, "hits": ["clear"], "misses": [], "reasoning": "mostly right"}`)
	require.True(t, ok)
	assert.Equal(t, 0.8, *out.Score)
	assert.Equal(t, []string{"clear"}, out.Hits)
	assert.Equal(t, "mostly right", out.Reasoning)
}

func TestParseJudgeOutput_EmbeddedBlob(t *testing.T) {
	text := "Sure, here is my verdict:\n```json\n{\"score\": 0.5, \"reasoning\": \"partial\"}\n```\nLet me know if you need more."
	out, ok := parseJudgeOutput(text)
	require.True(t, ok)
	assert.Equal(t, 0.5, *out.Score)
	assert.Equal(t, "partial", out.Reasoning)
}

func TestParseJudgeOutput_BracesInsideStrings(t *testing.T) {
	text := `prefix {"score": 1, "reasoning": "used {curly} braces \" escaped"} suffix`
	out, ok := parseJudgeOutput(text)
	require.True(t, ok)
	assert.Equal(t, 1.0, *out.Score)
}

func TestParseJudgeOutput_Invalid(t *testing.T) {
	for _, text := range []string{
		"",
		"no json here",
		`{"score": "high"}`,
		`{"reasoning": "forgot the score"}`,
		`{"score": 1.5}`,
		`{"score": -0.1}`,
		`{"score": 0.5`,
	} {
		_, ok := parseJudgeOutput(text)
		assert.False(t, ok, "input %q", text)
	}
}

func TestParseJudgeOutput_RubricsWithoutScore(t *testing.T) {
	out, ok := parseJudgeOutput(`{"rubrics": [{"id": "r1", "satisfied": true}]}`)
	require.True(t, ok)
	assert.Nil(t, out.Score)
	require.Len(t, out.Rubrics, 1)
	assert.Equal(t, "r1", out.Rubrics[0].ID)

	// A plain verdict still needs its score.
	_, ok = ParseScore(`{"rubrics": [{"id": "r1", "satisfied": true}]}`)
	assert.False(t, ok)
}

func TestParseScore_CapsFindings(t *testing.T) {
	text := `{"score": 0.6, "hits": ["a","b","c","d","e","f"], "misses": []}`
	result, ok := ParseScore(text)
	require.True(t, ok)
	assert.Equal(t, 0.6, result.Score)
	assert.Len(t, result.Hits, 4)
}

func TestExtractJSONBlob_FirstBalancedObject(t *testing.T) {
	blob, ok := extractJSONBlob(`a {"x": {"y": 1}} b {"z": 2}`)
	require.True(t, ok)
	assert.Equal(t, `{"x": {"y": 1}}`, blob)

	_, ok = extractJSONBlob("nothing")
	assert.False(t, ok)
}
