//-------------------------------------------------------------------------
//
// FlexiMart ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package store defines the destination boundary of the pipeline and a
// registry of destination backends.
package store

import (
	"context"
	"time"

	"github.com/fleximart/fleximart-etl/internal/model"
)

// Store is a destination for keyed records.
type Store interface {
	// ReplaceAll replaces every row of kind with recs.
	ReplaceAll(ctx context.Context, kind model.Kind, recs []model.Record) error

	// LookupKey returns the surrogate key stored for a natural key.
	LookupKey(ctx context.Context, kind model.Kind, naturalKey string) (int64, bool, error)

	Close() error
}

// Atomic is implemented by stores that can run several replacements as
// one unit. fn receives a Store bound to the unit; if fn fails nothing it
// wrote is kept.
type Atomic interface {
	Atomically(ctx context.Context, fn func(tx Store) error) error
}

// Schema is implemented by stores that manage their own tables.
type Schema interface {
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error
}

// Run describes one completed load for the run history table.
type Run struct {
	ID         string
	Version    string
	StartedAt  time.Time
	FinishedAt time.Time
	Loaded     int
	Dropped    int
	Changes    int
}

// RunRecorder is implemented by stores that keep a run history.
type RunRecorder interface {
	RecordRun(ctx context.Context, run Run) error
}
