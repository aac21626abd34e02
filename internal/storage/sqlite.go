package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (namespace, key)
);`

// SQLite persists the key-value data in a single-file database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: sqlite path required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	// The driver is in-process; one writer avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: init schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`,
		namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get %s/%s: %w", namespace, key, err)
	}
	return value, nil
}

func (s *SQLite) Set(ctx context.Context, namespace, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET
		   value = excluded.value, updated_at = excluded.updated_at`,
		namespace, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storage: set %s/%s: %w", namespace, key, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, namespace, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM kv WHERE namespace = ? AND key = ?`, namespace, key)
	if err != nil {
		return fmt.Errorf("storage: delete %s/%s: %w", namespace, key, err)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context, namespace string) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM kv WHERE namespace = ?`, namespace)
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", namespace, err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("storage: list %s: %w", namespace, err)
		}
		out[key] = value
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error { return s.db.Close() }
