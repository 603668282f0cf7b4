//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package mysql provides a MySQL-backed sink for evaluation records.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"trpc.group/trpc-go/trpc-eval-go/evalresult"
)

var _ evalresult.Sink = (*sink)(nil)

const schema = `CREATE TABLE IF NOT EXISTS %s (
  id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
  record_id VARCHAR(64) NOT NULL,
  run_id VARCHAR(64) NOT NULL,
  case_id VARCHAR(255) NOT NULL,
  trials JSON NOT NULL,
  summary JSON NULL,
  created_at DATETIME(6) NOT NULL,
  PRIMARY KEY (id),
  UNIQUE KEY uniq_record_id (record_id),
  KEY idx_run_case (run_id, case_id)
)`

type sink struct {
	opts  options
	db    *sql.DB
	owned bool
}

// New opens a connection with the configured DSN and ensures the record
// table exists.
func New(opts ...Option) (evalresult.Sink, error) {
	options := newOptions(opts...)
	db := options.db
	owned := false
	if db == nil {
		if options.dsn == "" {
			return nil, errors.New("mysql dsn is empty")
		}
		var err error
		db, err = sql.Open("mysql", options.dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		owned = true
	}
	s := &sink{opts: *options, db: db, owned: owned}
	if !options.skipInit {
		ctx, cancel := context.WithTimeout(context.Background(), options.initTimeout)
		defer cancel()
		if _, err := db.ExecContext(ctx, fmt.Sprintf(schema, options.table)); err != nil {
			if owned {
				_ = db.Close()
			}
			return nil, fmt.Errorf("init record table: %w", err)
		}
	}
	return s, nil
}

// Append inserts one record. A replayed record id updates the stored row.
func (s *sink) Append(ctx context.Context, record *evalresult.Record) error {
	if record == nil {
		return errors.New("record is nil")
	}
	if record.RecordID == "" {
		return errors.New("record id is empty")
	}
	trials, err := json.Marshal(record.Trials)
	if err != nil {
		return fmt.Errorf("marshal trials: %w", err)
	}
	var summary any
	if record.Summary != nil {
		payload, err := json.Marshal(record.Summary)
		if err != nil {
			return fmt.Errorf("marshal summary: %w", err)
		}
		summary = payload
	}
	createdAt := record.CreationTimestamp
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (record_id, run_id, case_id, trials, summary, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		   trials = VALUES(trials),
		   summary = VALUES(summary)`,
		s.opts.table,
	)
	if _, err := s.db.ExecContext(ctx, query, record.RecordID, record.RunID, record.CaseID, trials, summary, createdAt); err != nil {
		return fmt.Errorf("store record %s: %w", record.RecordID, err)
	}
	return nil
}

// Close releases the connection when this sink owns it.
func (s *sink) Close() error {
	if !s.owned || s.db == nil {
		return nil
	}
	return s.db.Close()
}
