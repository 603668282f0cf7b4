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
	"encoding/json"

	"trpc.group/trpc-go/trpc-eval-go/evaluator"
)

// judgeOutput is the JSON object the judge is required to emit.
type judgeOutput struct {
	// Score is the judge score in [0,1].
	Score *float64 `json:"score"`
	// Hits lists satisfied criteria, at most 4.
	Hits []string `json:"hits"`
	// Misses lists unmet criteria, at most 4.
	Misses []string `json:"misses"`
	// Reasoning is the judge explanation.
	Reasoning string `json:"reasoning"`
	// Rubrics carries per-item verdicts for checklist rubrics.
	Rubrics []*rubricVerdict `json:"rubrics"`
	// Grade is the 0-10 integer grade for score-range rubrics.
	Grade *int `json:"grade"`
}

// rubricVerdict is the judge's verdict for one rubric item.
type rubricVerdict struct {
	// ID identifies the rubric item.
	ID string `json:"id"`
	// Satisfied reports whether the item was met.
	Satisfied bool `json:"satisfied"`
	// Score is the 0-10 sub-score for the item.
	Score *int `json:"score"`
	// Reason is the short judge explanation.
	Reason string `json:"reason"`
}

// parseJudgeOutput extracts the judge object from free text. It first tries a
// direct JSON parse of the full response, then the first balanced {...} blob.
// It returns false when neither yields a schema-valid object; it never errors
// on malformed judge output.
func parseJudgeOutput(text string) (*judgeOutput, bool) {
	if out, ok := decodeJudgeOutput([]byte(text)); ok {
		return out, true
	}
	blob, ok := extractJSONBlob(text)
	if !ok {
		return nil, false
	}
	return decodeJudgeOutput([]byte(blob))
}

// ParseScore extracts a plain judge verdict from free text. It returns false
// when the text contains no schema-valid verdict object.
func ParseScore(text string) (*evaluator.Score, bool) {
	out, ok := parseJudgeOutput(text)
	if !ok || out.Score == nil {
		return nil, false
	}
	return &evaluator.Score{
		Score:     evaluator.Clamp(*out.Score),
		Hits:      evaluator.CapFindings(out.Hits),
		Misses:    evaluator.CapFindings(out.Misses),
		Reasoning: out.Reasoning,
	}, true
}

func decodeJudgeOutput(data []byte) (*judgeOutput, bool) {
	var out judgeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false
	}
	if out.Score != nil {
		if *out.Score < 0 || *out.Score > 1 {
			return nil, false
		}
		return &out, true
	}
	// Rubric verdicts carry their own scoring, so a top-level score is
	// optional when the reply has them.
	return &out, len(out.Rubrics) > 0
}

// extractJSONBlob returns the first balanced top-level {...} blob in the
// text, skipping braces inside JSON strings.
func extractJSONBlob(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, r := range text {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
