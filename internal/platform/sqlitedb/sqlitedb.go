package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	_ "modernc.org/sqlite"
)

// Mode reports which storage Open ended up with.
type Mode string

const (
	ModePersistent Mode = "persistent"
	ModeRecreated  Mode = "recreated"
	ModeMemory     Mode = "memory"
)

const memoryDSN = "file::memory:?_pragma=foreign_keys(1)"

// Open opens the sqlite file at path and applies schema. A store that fails to
// open or migrate is deleted and recreated; if that also fails an in-memory
// database is used for the rest of the run. Only a failing in-memory open is
// returned as an error.
func Open(ctx context.Context, path string, schema []string, logger hclog.Logger) (*sql.DB, Mode, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	db, err := openFile(ctx, path, schema)
	if err == nil {
		return db, ModePersistent, nil
	}
	logger.Warn("store open failed, recreating", "path", path, "error", err)

	if rmErr := removeStore(path); rmErr != nil {
		logger.Warn("remove store failed", "path", path, "error", rmErr)
	} else if db, err = openFile(ctx, path, schema); err == nil {
		logger.Warn("store recreated empty", "path", path)
		return db, ModeRecreated, nil
	} else {
		logger.Warn("store recreate failed", "path", path, "error", err)
	}

	db, err = OpenMemory(ctx, schema)
	if err != nil {
		logger.Error("in-memory store failed", "error", err)
		return nil, "", fmt.Errorf("open store: %w", err)
	}
	logger.Error("using in-memory store, data will not persist", "path", path)
	return db, ModeMemory, nil
}

// OpenMemory opens a private in-memory database. The pool is pinned to one
// connection so every caller sees the same database.
func OpenMemory(ctx context.Context, schema []string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", memoryDSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := prepare(ctx, db, schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func openFile(ctx context.Context, path string, schema []string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := prepare(ctx, db, schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func prepare(ctx context.Context, db *sql.DB, schema []string) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	var check string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&check); err != nil {
		return fmt.Errorf("check sqlite: %w", err)
	}
	if check != "ok" {
		return fmt.Errorf("check sqlite: %s", check)
	}
	for _, ddl := range schema {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func removeStore(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm", path + "-journal"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
