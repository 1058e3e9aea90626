//-------------------------------------------------------------------------
//
// FlexiMart ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/fleximart/fleximart-etl/internal/logging"
	"github.com/fleximart/fleximart-etl/internal/store"
)

// RecordRun appends a completed load to the run history table.
func (s *Store) RecordRun(ctx context.Context, run store.Run) error {
	sql := toDollar(store.RecordRunSQL)
	_, err := s.pool.Exec(ctx, sql,
		run.ID, run.Version, run.StartedAt.UTC(), run.FinishedAt.UTC(),
		run.Loaded, run.Dropped, run.Changes)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}

	logging.Debug().
		Str("run_id", run.ID).
		Int("loaded", run.Loaded).
		Msg("Recorded run")
	return nil
}

// LastRun returns the most recently finished run, if any.
func (s *Store) LastRun(ctx context.Context) (store.Run, bool, error) {
	var run store.Run
	err := s.pool.QueryRow(ctx, `
        SELECT run_id, version, started_at, finished_at, loaded, dropped, changes
        FROM etl_runs ORDER BY finished_at DESC LIMIT 1
    `).Scan(&run.ID, &run.Version, &run.StartedAt, &run.FinishedAt, &run.Loaded, &run.Dropped, &run.Changes)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Run{}, false, nil
	}
	if err != nil {
		return store.Run{}, false, err
	}
	return run, true, nil
}

// toDollar rewrites "?" placeholders as $1, $2, ...
func toDollar(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
