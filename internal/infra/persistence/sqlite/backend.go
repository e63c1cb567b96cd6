// Package sqlite snapshots table payloads into a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const schemaDDL = `CREATE TABLE IF NOT EXISTS tables (
	name TEXT PRIMARY KEY,
	payload BLOB NOT NULL,
	updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Backend stores one row per table. Each write replaces the row inside a
// transaction, so readers see either the old or the new payload.
type Backend struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// Open creates or opens the database at path (default schmerzverlauf.db).
func Open(ctx context.Context, path string) (*Backend, error) {
	if path == "" {
		path = "schmerzverlauf.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables table: %w", err)
	}
	return &Backend{db: db, path: path}, nil
}

// ReadTable returns the stored payload or fs.ErrNotExist.
func (b *Backend) ReadTable(ctx context.Context, name string) ([]byte, error) {
	var payload []byte
	err := b.db.QueryRowContext(ctx, `SELECT payload FROM tables WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("table %s: %w", name, fs.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", name, err)
	}
	return payload, nil
}

// WriteTable upserts the payload in a transaction.
func (b *Backend) WriteTable(ctx context.Context, name string, payload []byte) (retErr error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if payload == nil {
		payload = []byte{}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO tables(name,payload) VALUES(?,?) ON CONFLICT(name) DO UPDATE SET payload=excluded.payload, updated_at=CURRENT_TIMESTAMP`, name, payload); err != nil {
		return fmt.Errorf("upsert %s: %w", name, err)
	}
	return tx.Commit()
}

// Close releases the database handle.
func (b *Backend) Close() error { return b.db.Close() }

// DB exposes the underlying sql.DB for tests.
func (b *Backend) DB() *sql.DB { return b.db }

// Path returns the configured database path.
func (b *Backend) Path() string { return b.path }
