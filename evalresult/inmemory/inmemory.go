//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides an in-memory sink for evaluation records, mainly
// for tests and short-lived runs.
package inmemory

import (
	"context"
	"errors"
	"sync"

	"trpc.group/trpc-go/trpc-eval-go/evalresult"
)

var _ evalresult.Sink = (*Sink)(nil)

// Sink accumulates records in memory.
type Sink struct {
	mu      sync.Mutex
	records []*evalresult.Record
	closed  bool
}

// New creates an empty in-memory sink.
func New() *Sink {
	return &Sink{}
}

// Append stores the record.
func (s *Sink) Append(ctx context.Context, record *evalresult.Record) error {
	_ = ctx
	if record == nil {
		return errors.New("record is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("sink is closed")
	}
	s.records = append(s.records, record)
	return nil
}

// Close marks the sink closed.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Records returns a copy of the appended records.
func (s *Sink) Records() []*evalresult.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*evalresult.Record, len(s.records))
	copy(out, s.records)
	return out
}
