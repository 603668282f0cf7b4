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
	"fmt"

	"trpc.group/trpc-go/trpc-eval-go/evalset"
)

// Verdict values derived from rubric scoring.
const (
	VerdictPass       = "pass"
	VerdictBorderline = "borderline"
	VerdictFail       = "fail"
)

// scoreChecklist reduces per-item judge verdicts to a weighted score and a
// pass/borderline/fail verdict. The raw weighted score counts every item by
// weight; required items only influence the verdict.
func scoreChecklist(rubrics []*evalset.Rubric, verdicts []*rubricVerdict) (float64, string, []string, []string) {
	byID := make(map[string]*rubricVerdict, len(verdicts))
	for _, v := range verdicts {
		byID[v.ID] = v
	}
	var weightedSum, totalWeight float64
	var hits, misses []string
	requiredViolated := false
	allSatisfied := true
	for _, rubric := range rubrics {
		weight := rubric.EffectiveWeight()
		totalWeight += weight
		verdict := byID[rubric.ID]
		satisfied := verdict != nil && verdict.Satisfied
		if satisfied {
			weightedSum += weight
			hits = append(hits, rubric.ExpectedOutcome)
		} else {
			allSatisfied = false
			reason := "not satisfied"
			if verdict == nil {
				reason = "no judge verdict"
			} else if verdict.Reason != "" {
				reason = verdict.Reason
			}
			misses = append(misses, fmt.Sprintf("%s: %s", rubric.ExpectedOutcome, reason))
		}
		if violatesRequirement(rubric, verdict) {
			requiredViolated = true
		}
	}
	score := 0.0
	if totalWeight > 0 {
		score = weightedSum / totalWeight
	}
	verdict := VerdictPass
	switch {
	case requiredViolated:
		verdict = VerdictFail
	case !allSatisfied:
		verdict = VerdictBorderline
	}
	return score, verdict, hits, misses
}

// violatesRequirement reports whether a rubric item blocks a pass verdict.
// With a required min score configured, the requirement is met exactly when
// the judge sub-score reaches that floor; otherwise a required item must be
// satisfied outright.
func violatesRequirement(rubric *evalset.Rubric, verdict *rubricVerdict) bool {
	if rubric.RequiredMinScore != nil {
		if verdict == nil || verdict.Score == nil {
			return true
		}
		return *verdict.Score < *rubric.RequiredMinScore
	}
	if !rubric.Required {
		return false
	}
	return verdict == nil || !verdict.Satisfied
}

// scoreRangeResult maps the judge's 0-10 grade onto the configured bands,
// returning the normalized score and the matched rationale.
func scoreRangeResult(ranges []*evalset.ScoreRange, grade int) (float64, string) {
	if grade < 0 {
		grade = 0
	}
	if grade > 10 {
		grade = 10
	}
	rationale := ""
	// Ranges are validated at load time to jointly cover 0..10.
	for _, r := range ranges {
		if grade >= r.Min && grade <= r.Max {
			rationale = r.Rationale
			break
		}
	}
	return float64(grade) / 10, rationale
}
