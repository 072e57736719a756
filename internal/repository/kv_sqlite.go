package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

/*
LEARNING: PURE-GO SQLITE

modernc.org/sqlite needs no cgo, so the same backend runs in tests,
on a laptop, and inside a scratch container. The draft list is a single
row; SQLite gives us atomic replacement of that row for free.
*/

// SQLiteKVRepositoryImpl stores keys in a kv_entries table of a SQLite file
type SQLiteKVRepositoryImpl struct {
	db *sql.DB
}

// NewSQLiteKVRepository opens (and initializes) the database at path
func NewSQLiteKVRepository(path string) (*SQLiteKVRepositoryImpl, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("sqlite kv: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("sqlite kv: open: %w", err)
	}
	// One writer at a time; sqlite serializes anyway.
	db.SetMaxOpenConns(1)

	if err := initSQLiteKV(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteKVRepositoryImpl{db: db}, nil
}

func initSQLiteKV(db *sql.DB) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS kv_entries (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("sqlite kv: init: %w", err)
		}
	}
	return nil
}

// Get returns nil, nil when the key has no row
func (r *SQLiteKVRepositoryImpl) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite kv: get %s: %w", key, err)
	}
	return []byte(value), nil
}

func (r *SQLiteKVRepositoryImpl) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(value), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("sqlite kv: set %s: %w", key, err)
	}
	return nil
}

// Close releases the database handle
func (r *SQLiteKVRepositoryImpl) Close() error {
	return r.db.Close()
}
