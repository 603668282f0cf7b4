//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package local provides a local file sink for evaluation records.
package local

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"trpc.group/trpc-go/trpc-eval-go/evalresult"
)

var _ evalresult.Sink = (*sink)(nil)

// sink appends records to a JSON lines file. Appends are serialized with a
// mutex and synced to disk before returning so a record is durable once
// Append returns.
type sink struct {
	mu     sync.Mutex
	f      *os.File
	closed bool
}

// New opens (creating if needed) the record file in append mode.
func New(path string) (evalresult.Sink, error) {
	if path == "" {
		return nil, errors.New("record file path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create record directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open record file: %w", err)
	}
	return &sink{f: f}, nil
}

// Append writes one record as a single JSON line and syncs the file.
func (s *sink) Append(ctx context.Context, record *evalresult.Record) error {
	_ = ctx
	if record == nil {
		return errors.New("record is nil")
	}
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("sink is closed")
	}
	if _, err := s.f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return s.f.Sync()
}

// Close closes the underlying file. Further appends fail.
func (s *sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.f.Close()
}

// Load reads all records back from a JSON lines file.
func Load(path string) ([]*evalresult.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open record file: %w", err)
	}
	defer f.Close()
	var records []*evalresult.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record evalresult.Record
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("decode record line: %w", err)
		}
		records = append(records, &record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read record file: %w", err)
	}
	return records, nil
}
