package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fleximart/fleximart-etl/internal/logging"
	"github.com/fleximart/fleximart-etl/internal/model"
	"github.com/fleximart/fleximart-etl/internal/store"
)

// loadLockKey is the advisory lock taken by every load transaction.
const loadLockKey int64 = 0x464c4558494d4152 // "FLEXIMAR"

func init() {
	store.Register("PostgreSQL server", func(ctx context.Context, cfg store.Config) (store.Store, error) {
		return Open(ctx, cfg)
	}, "postgres", "postgresql")
}

// DB is satisfied by both *pgxpool.Pool and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Store writes to PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the server described by cfg.
func Open(ctx context.Context, cfg store.Config) (*Store, error) {
	pool, err := Connect(ctx, ConnString(cfg))
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool exposes the connection pool.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) CreateSchema(ctx context.Context) error {
	for _, stmt := range store.CreateStatements() {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	logging.Info().Str("driver", "postgres").Msg("Schema ready")
	return nil
}

func (s *Store) DropSchema(ctx context.Context) error {
	for _, stmt := range store.DropStatements() {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to drop schema: %w", err)
		}
	}
	logging.Info().Str("driver", "postgres").Msg("Schema dropped")
	return nil
}

// ReplaceAll replaces one table in its own transaction.
func (s *Store) ReplaceAll(ctx context.Context, kind model.Kind, recs []model.Record) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return replace(ctx, tx, kind, recs)
	})
}

func (s *Store) LookupKey(ctx context.Context, kind model.Kind, naturalKey string) (int64, bool, error) {
	return lookupKey(ctx, s.pool, kind, naturalKey)
}

// Atomically runs fn in one transaction that holds the load advisory
// lock and starts by clearing every FlexiMart table.
func (s *Store) Atomically(ctx context.Context, fn func(tx store.Store) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", loadLockKey); err != nil {
			return fmt.Errorf("failed to acquire load lock: %w", err)
		}
		for i := len(model.LoadOrder) - 1; i >= 0; i-- {
			kind := model.LoadOrder[i]
			if _, err := tx.Exec(ctx, "DELETE FROM "+store.Table(kind)); err != nil {
				return fmt.Errorf("failed to clear %s: %w", kind, err)
			}
		}
		return fn(&txStore{tx: tx})
	})
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type txStore struct {
	tx pgx.Tx
}

func (t *txStore) ReplaceAll(ctx context.Context, kind model.Kind, recs []model.Record) error {
	return replace(ctx, t.tx, kind, recs)
}

func (t *txStore) LookupKey(ctx context.Context, kind model.Kind, naturalKey string) (int64, bool, error) {
	return lookupKey(ctx, t.tx, kind, naturalKey)
}

func (t *txStore) Close() error { return nil }

func replace(ctx context.Context, db DB, kind model.Kind, recs []model.Record) error {
	if _, err := db.Exec(ctx, "DELETE FROM "+store.Table(kind)); err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	if len(recs) == 0 {
		return nil
	}

	n, err := db.CopyFrom(ctx, pgx.Identifier{store.Table(kind)}, model.Columns(kind),
		pgx.CopyFromSlice(len(recs), func(i int) ([]any, error) {
			return pgValues(recs[i].Values())
		}))
	if err != nil {
		return fmt.Errorf("failed to copy %s: %w", kind, err)
	}

	logging.Debug().
		Str("kind", string(kind)).
		Int64("rows", n).
		Msg("Copied rows")
	return nil
}

func lookupKey(ctx context.Context, db DB, kind model.Kind, naturalKey string) (int64, bool, error) {
	var key int64
	err := db.QueryRow(ctx, toDollar(store.LookupSQL(kind)), naturalKey).Scan(&key)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up %s: %w", kind, err)
	}
	return key, true, nil
}

// pgValues converts decimals to pgtype.Numeric for the binary COPY
// protocol. Everything else pgx encodes natively.
func pgValues(vals []any) ([]any, error) {
	for i, v := range vals {
		d, ok := v.(decimal.Decimal)
		if !ok {
			continue
		}
		var n pgtype.Numeric
		if err := n.Scan(d.String()); err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", d, err)
		}
		vals[i] = n
	}
	return vals, nil
}
