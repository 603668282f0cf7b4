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

	"trpc.group/trpc-go/trpc-eval-go/evalset"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestScoreChecklist_WeightedScore(t *testing.T) {
	rubrics := []*evalset.Rubric{
		{ID: "a", ExpectedOutcome: "covers topic", Weight: floatPtr(3)},
		{ID: "b", ExpectedOutcome: "cites source"},
	}
	verdicts := []*rubricVerdict{
		{ID: "a", Satisfied: true},
		{ID: "b", Satisfied: false},
	}
	score, verdict, hits, misses := scoreChecklist(rubrics, verdicts)
	assert.Equal(t, 0.75, score)
	assert.Equal(t, VerdictBorderline, verdict)
	assert.Len(t, hits, 1)
	assert.Len(t, misses, 1)
}

func TestScoreChecklist_MissingVerdictCountsAsMiss(t *testing.T) {
	rubrics := []*evalset.Rubric{{ID: "a", ExpectedOutcome: "covers topic"}}
	score, verdict, _, misses := scoreChecklist(rubrics, nil)
	assert.Equal(t, 0.0, score)
	assert.Equal(t, VerdictBorderline, verdict)
	assert.Contains(t, misses[0], "no judge verdict")
}

func TestScoreChecklist_RequiredMinScore(t *testing.T) {
	rubrics := []*evalset.Rubric{
		{ID: "a", ExpectedOutcome: "factually correct", RequiredMinScore: intPtr(7)},
	}
	// Satisfied but below the floor still fails the verdict.
	score, verdict, _, _ := scoreChecklist(rubrics, []*rubricVerdict{
		{ID: "a", Satisfied: true, Score: intPtr(5)},
	})
	assert.Equal(t, 1.0, score)
	assert.Equal(t, VerdictFail, verdict)

	_, verdict, _, _ = scoreChecklist(rubrics, []*rubricVerdict{
		{ID: "a", Satisfied: true, Score: intPtr(8)},
	})
	assert.Equal(t, VerdictPass, verdict)

	// A missing sub-score cannot prove the floor was met.
	_, verdict, _, _ = scoreChecklist(rubrics, []*rubricVerdict{
		{ID: "a", Satisfied: true},
	})
	assert.Equal(t, VerdictFail, verdict)
}

func TestScoreRangeResult_MapsGradeToBand(t *testing.T) {
	ranges := []*evalset.ScoreRange{
		{Min: 0, Max: 4, Rationale: "weak"},
		{Min: 5, Max: 10, Rationale: "strong"},
	}
	score, rationale := scoreRangeResult(ranges, 7)
	assert.Equal(t, 0.7, score)
	assert.Equal(t, "strong", rationale)

	score, rationale = scoreRangeResult(ranges, -3)
	assert.Equal(t, 0.0, score)
	assert.Equal(t, "weak", rationale)

	score, rationale = scoreRangeResult(ranges, 15)
	assert.Equal(t, 1.0, score)
	assert.Equal(t, "strong", rationale)
}
