//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package score provides deterministic scoring primitives.
package score

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"

	"trpc.group/trpc-go/trpc-eval-go/evalset"
)

// FieldOutcome is the comparison result for a single field matcher.
type FieldOutcome struct {
	// Path is the dot path of the compared field.
	Path string
	// Matched reports whether the field satisfied its matcher.
	Matched bool
	// Weight is the matcher weight.
	Weight float64
	// Reason describes a mismatch. Empty on match.
	Reason string
}

// MatchFields compares named dot-path fields of the candidate JSON document
// against the expected JSON document. A field missing from the candidate
// scores 0 for that field; it never errors.
func MatchFields(candidate, expected string, fields []*evalset.FieldMatcher) []FieldOutcome {
	outcomes := make([]FieldOutcome, 0, len(fields))
	for _, field := range fields {
		outcomes = append(outcomes, matchField(candidate, expected, field))
	}
	return outcomes
}

func matchField(candidate, expected string, field *evalset.FieldMatcher) FieldOutcome {
	outcome := FieldOutcome{Path: field.Path, Weight: field.EffectiveWeight()}
	want := gjson.Get(expected, field.Path)
	if !want.Exists() {
		outcome.Reason = "field missing from expected output"
		return outcome
	}
	got := gjson.Get(candidate, field.Path)
	if !got.Exists() {
		outcome.Reason = "field missing from candidate output"
		return outcome
	}
	switch field.EffectiveMatch() {
	case evalset.FieldMatchExact:
		if !cmp.Equal(got.Value(), want.Value()) {
			outcome.Reason = fmt.Sprintf("got %s, want %s", got.String(), want.String())
			return outcome
		}
	case evalset.FieldMatchNumericTolerance:
		gotNum, err := numericValue(got)
		if err != nil {
			outcome.Reason = fmt.Sprintf("candidate value %s is not numeric", got.String())
			return outcome
		}
		wantNum, err := numericValue(want)
		if err != nil {
			outcome.Reason = fmt.Sprintf("expected value %s is not numeric", want.String())
			return outcome
		}
		tolerance := field.Tolerance
		if field.Relative {
			tolerance = field.Tolerance * math.Abs(wantNum)
		}
		if math.Abs(gotNum-wantNum) > tolerance {
			outcome.Reason = fmt.Sprintf("got %v, want %v within tolerance %v", gotNum, wantNum, tolerance)
			return outcome
		}
	case evalset.FieldMatchDate:
		gotTime, err := parseDate(got.String(), field.Formats)
		if err != nil {
			outcome.Reason = fmt.Sprintf("candidate value %s: %v", got.String(), err)
			return outcome
		}
		wantTime, err := parseDate(want.String(), field.Formats)
		if err != nil {
			outcome.Reason = fmt.Sprintf("expected value %s: %v", want.String(), err)
			return outcome
		}
		if !gotTime.Equal(wantTime) {
			outcome.Reason = fmt.Sprintf("got %s, want %s", gotTime.Format(time.RFC3339), wantTime.Format(time.RFC3339))
			return outcome
		}
	}
	outcome.Matched = true
	return outcome
}

// numericValue extracts a float from a JSON value, accepting numeric strings.
func numericValue(value gjson.Result) (float64, error) {
	switch value.Type {
	case gjson.Number:
		return value.Num, nil
	case gjson.String:
		return strconv.ParseFloat(value.String(), 64)
	default:
		return 0, fmt.Errorf("value is not numeric")
	}
}

// parseDate tries each layout in order and returns the first success.
func parseDate(value string, formats []string) (time.Time, error) {
	for _, layout := range formats {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("does not match any supplied date format")
}
