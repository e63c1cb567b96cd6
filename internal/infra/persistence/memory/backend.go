// Package memory keeps table payloads in process memory.
package memory

import (
	"context"
	"fmt"
	"io/fs"
	"sync"
)

// Backend is a goroutine-safe map of table name to payload.
type Backend struct {
	mu     sync.RWMutex
	tables map[string][]byte
}

// New returns an empty Backend.
func New() *Backend { return &Backend{tables: make(map[string][]byte)} }

// ReadTable returns a copy of the stored payload.
func (b *Backend) ReadTable(_ context.Context, name string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.tables[name]
	if !ok {
		return nil, fmt.Errorf("table %s: %w", name, fs.ErrNotExist)
	}
	return append([]byte(nil), p...), nil
}

// WriteTable stores a copy of payload.
func (b *Backend) WriteTable(_ context.Context, name string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tables[name] = append([]byte(nil), payload...)
	return nil
}

// Close is a no-op.
func (b *Backend) Close() error { return nil }
