//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package invoker defines the capability for reaching an AI-answering backend.
package invoker

import (
	"context"
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-eval-go/evalset"
)

// Request carries one rendered prompt to a backend.
type Request struct {
	// CaseID identifies the evaluation case this request belongs to.
	CaseID string `json:"caseId"`
	// Attempt is the 1-based attempt counter, maintained by the retry policy.
	Attempt int `json:"attempt"`
	// Messages are the ordered conversation messages.
	Messages []evalset.Message `json:"messages"`
}

// Usage carries passthrough accounting numbers reported by a backend.
type Usage struct {
	// PromptTokens counts tokens in the prompt.
	PromptTokens int `json:"promptTokens,omitempty"`
	// CompletionTokens counts tokens in the completion.
	CompletionTokens int `json:"completionTokens,omitempty"`
	// CostUSD is the reported cost of the call.
	CostUSD float64 `json:"costUsd,omitempty"`
}

// Response is one backend answer.
type Response struct {
	// Messages are the output messages.
	Messages []evalset.Message `json:"messages"`
	// Trace is the recorded sequence of tool invocations, if any.
	Trace []*evalset.ToolCall `json:"trace,omitempty"`
	// Raw preserves the unparsed backend payload.
	Raw string `json:"raw,omitempty"`
	// Usage carries passthrough accounting numbers.
	Usage *Usage `json:"usage,omitempty"`
}

// Text returns the concatenated assistant output, the candidate answer.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	parts := make([]string, 0, len(r.Messages))
	for _, message := range r.Messages {
		if message.Role == evalset.RoleAssistant && message.Content != "" {
			parts = append(parts, message.Content)
		}
	}
	return strings.Join(parts, "\n")
}

// Invoker is the capability wrapping a target backend. It is used both for
// producing candidate answers and for judge calls.
type Invoker interface {
	// Name identifies the backend, e.g. for result records.
	Name() string
	// Invoke sends one request and returns the backend answer.
	Invoke(ctx context.Context, req *Request) (*Response, error)
}

// BatchInvoker is implemented by backends that declare batch support.
type BatchInvoker interface {
	Invoker
	// InvokeBatch sends several requests in one backend round trip.
	// The response slice is index-aligned with the requests.
	InvokeBatch(ctx context.Context, reqs []*Request) ([]*Response, error)
}

// StatusError is a backend failure carrying an HTTP-like status code,
// consulted by the retry policy.
type StatusError struct {
	// Code is the status code.
	Code int
	// Message describes the failure.
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend status %d", e.Code)
	}
	return fmt.Sprintf("backend status %d: %s", e.Code, e.Message)
}

// NewStatusError creates a StatusError.
func NewStatusError(code int, message string) *StatusError {
	return &StatusError{Code: code, Message: message}
}
