// Package db wraps the SQLite persistence layer (C11's storage core).
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

// Profile tunes PRAGMAs for the expected write pattern of the database
// file. Report/conversation storage is write-once-append-mostly, so it
// uses the "standard" profile rather than a ledger-strict one.
type Profile string

const (
	ProfileStandard Profile = "standard"
	ProfileCache    Profile = "cache"
)

// DB wraps a *sql.DB with profile-tuned pragmas and helpers.
type DB struct {
	*sql.DB
	log zerolog.Logger
}

// Open opens (creating if necessary) a SQLite database file at path
// with profile-appropriate PRAGMAs and connection-pool sizing.
func Open(path string, profile Profile, log zerolog.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	switch profile {
	case ProfileCache:
		sqlDB.SetMaxOpenConns(4)
		sqlDB.SetMaxIdleConns(2)
	default:
		sqlDB.SetMaxOpenConns(8)
		sqlDB.SetMaxIdleConns(4)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			return nil, fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	return &DB{DB: sqlDB, log: log.With().Str("component", "db").Str("path", path).Logger()}, nil
}

// schemaDir resolves the directory holding migration SQL files,
// relative to this source file, matching the teacher's
// runtime.Caller-based resolution (works regardless of the process's
// working directory).
func schemaDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "schema")
}

// Migrate applies every .sql file in the schema directory, in
// lexical order, inside a single transaction.
func (d *DB) Migrate(ctx context.Context) error {
	dir := schemaDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}

	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sql" {
			continue
		}
		body, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", e.Name(), err)
		}
		d.log.Debug().Str("file", e.Name()).Msg("applied migration")
	}

	return tx.Commit()
}

// WithTransaction runs fn inside a transaction, committing on success
// and rolling back on error or panic. The transaction is always
// released: a panic is rolled back and re-raised after cleanup.
func WithTransaction(ctx context.Context, d *DB, fn func(*sql.Tx) error) (err error) {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// HealthCheck verifies the database responds within a short deadline.
func (d *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return d.PingContext(ctx)
}
