package out

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	interruptout "dansprotocol/internal/modules/interrupt/port/out"
)

const Schema = `
CREATE TABLE IF NOT EXISTS kv_scratch (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
`

type SQLiteKV struct {
	db *sql.DB
}

func NewSQLiteKV(db *sql.DB) interruptout.KVStore {
	return &SQLiteKV{db: db}
}

func (s *SQLiteKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_scratch WHERE key = ?;`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteKV) Set(ctx context.Context, key, value string) error {
	const stmt = `
INSERT INTO kv_scratch (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value;
`
	if _, err := s.db.ExecContext(ctx, stmt, key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteKV) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_scratch WHERE key = ?;`, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
