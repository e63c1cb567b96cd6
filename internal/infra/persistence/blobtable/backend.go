// Package blobtable stores tables as objects in a blob.Store.
package blobtable

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"schmerzverlauf/internal/blob"
)

// Prefix is the key namespace for table objects.
const Prefix = "tables/"

// Backend maps table name to the object tables/<name>.csv.
type Backend struct {
	store blob.Store
}

// New wraps store.
func New(store blob.Store) *Backend { return &Backend{store: store} }

// Key returns the object key for name.
func Key(name string) string { return Prefix + name + ".csv" }

// ReadTable fetches the object; an absent key surfaces as fs.ErrNotExist.
func (b *Backend) ReadTable(ctx context.Context, name string) ([]byte, error) {
	_, rc, err := b.store.Get(ctx, Key(name))
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, fmt.Errorf("table %s: %w", name, fs.ErrNotExist)
		}
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// WriteTable replaces the object. The store is create-only, so the old
// object is removed first.
func (b *Backend) WriteTable(ctx context.Context, name string, payload []byte) error {
	_, err := blob.Replace(ctx, b.store, Key(name), payload, blob.PutOptions{
		ContentType: "text/csv; charset=utf-8",
		Metadata:    map[string]string{"table": name},
	})
	return err
}

// Close is a no-op; the blob store outlives the backend.
func (b *Backend) Close() error { return nil }
