package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS client_state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// SQLiteBackend is the default on-device store: a single-table SQLite database
// in the installation's data directory. It survives process restarts, which is
// what keeps a reopened client authenticated.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) the database at path and ensures
// the state table exists.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := b.db.QueryRowContext(ctx,
		`SELECT value FROM client_state WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return value, nil
}

func (b *SQLiteBackend) Set(ctx context.Context, key, value string) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO client_state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	_, err := b.db.ExecContext(ctx,
		`DELETE FROM client_state WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
