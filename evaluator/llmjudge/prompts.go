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
	"strings"

	"trpc.group/trpc-go/trpc-eval-go/evalset"
)

// defaultPromptTemplate is the judge prompt used when the configuration does
// not supply one. The placeholders {criteria}, {question}, {expected} and
// {candidate} are substituted.
const defaultPromptTemplate = `You are an impartial judge evaluating an AI assistant's answer.

Success criteria:
{criteria}

Question:
{question}

Reference answer (may be empty):
{expected}

Candidate answer:
{candidate}

Respond with a single JSON object and nothing else:
{"score": <number between 0 and 1>, "hits": [<up to 4 short strings describing satisfied criteria>], "misses": [<up to 4 short strings describing unmet criteria>], "reasoning": "<brief explanation>"}`

const rubricPromptSuffix = `

Judge each rubric item below. For every item report whether the candidate
answer satisfies it and a sub-score from 0 to 10.

Rubric items:
%s
Extend the JSON object with a "rubrics" array:
{"score": ..., "hits": [...], "misses": [...], "reasoning": "...", "rubrics": [{"id": "<item id>", "satisfied": <true|false>, "score": <0-10>, "reason": "<short>"}]}`

const scoreRangePromptSuffix = `

Grade the candidate answer on an integer scale from 0 to 10 using these bands:
%s
Extend the JSON object with the integer grade:
{"score": ..., "hits": [...], "misses": [...], "reasoning": "...", "grade": <0-10>}`

// renderPrompt substitutes the case and answer into the judge template and
// appends rubric instructions when the configuration carries rubrics.
func renderPrompt(cfg *evalset.LLMJudgeConfig, evalCase *evalset.EvalCase, candidate string) string {
	template := cfg.Template
	if template == "" {
		template = defaultPromptTemplate
	}
	replacer := strings.NewReplacer(
		"{criteria}", evalCase.Criteria,
		"{question}", questionText(evalCase),
		"{expected}", evalCase.Expected,
		"{candidate}", candidate,
	)
	prompt := replacer.Replace(template)
	if len(cfg.Rubrics) > 0 {
		var items strings.Builder
		for _, rubric := range cfg.Rubrics {
			fmt.Fprintf(&items, "- id=%s: %s\n", rubric.ID, rubric.ExpectedOutcome)
		}
		prompt += fmt.Sprintf(rubricPromptSuffix, items.String())
	}
	if len(cfg.ScoreRanges) > 0 {
		var bands strings.Builder
		for _, r := range cfg.ScoreRanges {
			fmt.Fprintf(&bands, "- %d..%d: %s\n", r.Min, r.Max, r.Rationale)
		}
		prompt += fmt.Sprintf(scoreRangePromptSuffix, bands.String())
	}
	return prompt
}

// questionText concatenates the user messages of the case input.
func questionText(evalCase *evalset.EvalCase) string {
	parts := make([]string, 0, len(evalCase.Input))
	for _, message := range evalCase.Input {
		if message.Role == evalset.RoleUser {
			parts = append(parts, message.Content)
		}
	}
	return strings.Join(parts, "\n")
}
