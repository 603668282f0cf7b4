//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package mysql

import (
	"database/sql"
	"time"
)

const (
	defaultTable       = "eval_records"
	defaultInitTimeout = 10 * time.Second
)

type options struct {
	dsn         string
	table       string
	db          *sql.DB
	skipInit    bool
	initTimeout time.Duration
}

// Option configures the MySQL sink.
type Option func(*options)

func newOptions(opt ...Option) *options {
	opts := &options{
		table:       defaultTable,
		initTimeout: defaultInitTimeout,
	}
	for _, o := range opt {
		o(opts)
	}
	return opts
}

// WithDSN sets the MySQL connection string.
func WithDSN(dsn string) Option {
	return func(o *options) { o.dsn = dsn }
}

// WithTable overrides the record table name.
func WithTable(table string) Option {
	return func(o *options) { o.table = table }
}

// WithDB supplies an existing connection instead of opening one from the DSN.
// The sink does not close a supplied connection.
func WithDB(db *sql.DB) Option {
	return func(o *options) { o.db = db }
}

// WithSkipInit skips the table creation statement on startup.
func WithSkipInit(skip bool) Option {
	return func(o *options) { o.skipInit = skip }
}

// WithInitTimeout bounds the table creation statement on startup.
func WithInitTimeout(timeout time.Duration) Option {
	return func(o *options) { o.initTimeout = timeout }
}
