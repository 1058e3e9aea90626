//-------------------------------------------------------------------------
//
// FlexiMart ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package sqlstore is a database/sql destination for MySQL and SQLite,
// built on sqlx.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/fleximart/fleximart-etl/internal/logging"
	"github.com/fleximart/fleximart-etl/internal/model"
	"github.com/fleximart/fleximart-etl/internal/store"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"

	defaultMySQLPort = 3306
	lockName         = "fleximart_etl_load"
	lockTimeout      = 30 // seconds
)

func init() {
	store.Register("MySQL server (creates the database if missing)", Open, DriverMySQL)
	store.Register("SQLite database file, or :memory:", Open, DriverSQLite)
}

// Store writes to a MySQL or SQLite database.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects to the database described by cfg.
func Open(ctx context.Context, cfg store.Config) (store.Store, error) {
	switch cfg.Driver {
	case DriverMySQL:
		return openMySQL(ctx, cfg)
	case DriverSQLite:
		return openSQLite(ctx, cfg)
	}
	return nil, fmt.Errorf("sqlstore: unsupported driver %s", cfg.Driver)
}

// MySQLConfig builds the driver configuration for cfg. The database name
// is left empty when withDB is false.
func MySQLConfig(cfg store.Config, withDB bool) *mysql.Config {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	port := cfg.Port
	if port == 0 {
		port = defaultMySQLPort
	}
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	mc.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	mc.ParseTime = true
	if withDB {
		mc.DBName = cfg.Database
	}
	return mc
}

func openMySQL(ctx context.Context, cfg store.Config) (*Store, error) {
	dsn := cfg.DSN
	if dsn == "" {
		if cfg.Database == "" {
			return nil, fmt.Errorf("sqlstore: mysql database name is required")
		}
		if err := createDatabase(ctx, cfg); err != nil {
			return nil, err
		}
		dsn = MySQLConfig(cfg, true).FormatDSN()
	}

	db, err := connect(ctx, DriverMySQL, dsn)
	if err != nil {
		return nil, err
	}
	logging.Info().
		Str("driver", DriverMySQL).
		Str("host", cfg.Host).
		Str("database", cfg.Database).
		Msg("Connected to database")
	return &Store{db: db, driver: DriverMySQL}, nil
}

// createDatabase connects without a database and creates it if needed.
func createDatabase(ctx context.Context, cfg store.Config) error {
	db, err := connect(ctx, DriverMySQL, MySQLConfig(cfg, false).FormatDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	name := strings.ReplaceAll(cfg.Database, "`", "``")
	if _, err := db.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS `"+name+"`"); err != nil {
		return fmt.Errorf("sqlstore: create database %s: %w", cfg.Database, err)
	}
	logging.Debug().Str("database", cfg.Database).Msg("Ensured database exists")
	return nil
}

// SQLiteDSN returns a modernc.org/sqlite DSN with foreign keys enforced and
// write transactions taking the database lock up front.
func SQLiteDSN(path string) string {
	if path == "" {
		path = ":memory:"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path + sep + "_pragma=foreign_keys(1)&_txlock=immediate"
}

func openSQLite(ctx context.Context, cfg store.Config) (*Store, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = SQLiteDSN(cfg.Database)
	}
	db, err := connect(ctx, DriverSQLite, dsn)
	if err != nil {
		return nil, err
	}
	// A :memory: database exists per connection.
	db.SetMaxOpenConns(1)

	logging.Info().
		Str("driver", DriverSQLite).
		Str("database", cfg.Database).
		Msg("Connected to database")
	return &Store{db: db, driver: DriverSQLite}, nil
}

func connect(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: ping %s: %w", driver, err)
	}
	return db, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) CreateSchema(ctx context.Context) error {
	for _, stmt := range store.CreateStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: create schema: %w", err)
		}
	}
	logging.Info().Str("driver", s.driver).Msg("Schema ready")
	return nil
}

func (s *Store) DropSchema(ctx context.Context) error {
	for _, stmt := range store.DropStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: drop schema: %w", err)
		}
	}
	logging.Info().Str("driver", s.driver).Msg("Schema dropped")
	return nil
}

// ReplaceAll replaces one table in its own transaction. It fails if rows
// of a child table still reference the rows being deleted; use
// Atomically to replace related tables together.
func (s *Store) ReplaceAll(ctx context.Context, kind model.Kind, recs []model.Record) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin: %w", err)
	}
	if err := (&txStore{tx: tx}).ReplaceAll(ctx, kind, recs); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) LookupKey(ctx context.Context, kind model.Kind, naturalKey string) (int64, bool, error) {
	return lookupKey(ctx, s.db, kind, naturalKey)
}

// Atomically clears every FlexiMart table, children first, and runs fn in
// the same transaction. On MySQL a named lock serializes concurrent loads;
// SQLite takes its write lock when the transaction begins.
func (s *Store) Atomically(ctx context.Context, fn func(tx store.Store) error) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("sqlstore: acquire connection: %w", err)
	}
	defer conn.Close()

	if s.driver == DriverMySQL {
		var got sql.NullInt64
		if err := conn.GetContext(ctx, &got, "SELECT GET_LOCK(?, ?)", lockName, lockTimeout); err != nil {
			return fmt.Errorf("sqlstore: acquire load lock: %w", err)
		}
		if got.Int64 != 1 {
			return fmt.Errorf("sqlstore: another load holds %s", lockName)
		}
		defer func() {
			_, _ = conn.ExecContext(context.WithoutCancel(ctx), "SELECT RELEASE_LOCK(?)", lockName)
		}()
	}

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin: %w", err)
	}

	for i := len(model.LoadOrder) - 1; i >= 0; i-- {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+store.Table(model.LoadOrder[i])); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlstore: clear %s: %w", model.LoadOrder[i], err)
		}
	}

	if err := fn(&txStore{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: commit: %w", err)
	}
	return nil
}

func (s *Store) RecordRun(ctx context.Context, run store.Run) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(store.RecordRunSQL),
		run.ID, run.Version, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Loaded, run.Dropped, run.Changes)
	if err != nil {
		return fmt.Errorf("sqlstore: record run: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// txStore is the store.Store bound to an open transaction.
type txStore struct {
	tx *sqlx.Tx
}

func (t *txStore) ReplaceAll(ctx context.Context, kind model.Kind, recs []model.Record) error {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM "+store.Table(kind)); err != nil {
		return fmt.Errorf("sqlstore: delete %s: %w", kind, err)
	}
	if len(recs) == 0 {
		return nil
	}

	stmt, err := t.tx.PreparexContext(ctx, t.tx.Rebind(store.InsertSQL(kind, "?")))
	if err != nil {
		return fmt.Errorf("sqlstore: prepare insert %s: %w", kind, err)
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, r.Values()...); err != nil {
			return fmt.Errorf("sqlstore: insert %s %q: %w", kind, r.NaturalKey(), err)
		}
	}
	return nil
}

func (t *txStore) LookupKey(ctx context.Context, kind model.Kind, naturalKey string) (int64, bool, error) {
	return lookupKey(ctx, t.tx, kind, naturalKey)
}

func (t *txStore) Close() error { return nil }

type queryer interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	Rebind(query string) string
}

func lookupKey(ctx context.Context, q queryer, kind model.Kind, naturalKey string) (int64, bool, error) {
	var key int64
	err := q.GetContext(ctx, &key, q.Rebind(store.LookupSQL(kind)), naturalKey)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("sqlstore: lookup %s: %w", kind, err)
	}
	return key, true, nil
}
