package table

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"go.uber.org/zap"
)

// Backend stores the serialized form of named tables. WriteTable replaces
// the whole payload; ReadTable returns an error satisfying
// errors.Is(err, fs.ErrNotExist) when nothing was stored yet.
type Backend interface {
	ReadTable(ctx context.Context, name string) ([]byte, error)
	WriteTable(ctx context.Context, name string, payload []byte) error
}

// Store binds a schema and serialization format to a named table on a
// Backend. It holds no rows itself: every Load reads the backend and every
// Persist rewrites it, so concurrent load/persist cycles can lose updates.
type Store struct {
	name    string
	schema  Schema
	backend Backend
	format  Format
	logger  *zap.Logger
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithFormat sets the serialization format.
func WithFormat(f Format) StoreOption {
	return func(s *Store) { s.format = f }
}

// WithLogger sets the logger used to report degraded loads.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore constructs a Store for the named table.
func NewStore(name string, schema Schema, backend Backend, opts ...StoreOption) *Store {
	s := &Store{name: name, schema: schema, backend: backend, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("table", name))
	return s
}

// Name returns the table name.
func (s *Store) Name() string { return s.name }

// Schema returns the declared schema.
func (s *Store) Schema() Schema { return s.schema }

// Format returns the serialization format.
func (s *Store) Format() Format { return s.format }

// Load returns the stored table. It never fails: a missing, unreadable or
// malformed payload degrades to an empty table, logged at warn level.
func (s *Store) Load(ctx context.Context) Table {
	payload, err := s.backend.ReadTable(ctx, s.name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("table unreadable, using empty table", zap.Error(err))
		}
		return New(s.schema)
	}
	t, err := Unmarshal(payload, s.schema, s.format)
	if err != nil {
		s.logger.Warn("table malformed, using empty table", zap.Error(err))
		return New(s.schema)
	}
	return t
}

// Persist rewrites the stored table with t.
func (s *Store) Persist(ctx context.Context, t Table) error {
	if !t.schema.Equal(s.schema) {
		return fmt.Errorf("%w: table %s: schema mismatch", ErrPersist, s.name)
	}
	payload, err := Marshal(t, s.format)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrPersist, s.name, err)
	}
	if err := s.backend.WriteTable(ctx, s.name, payload); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrPersist, s.name, err)
	}
	return nil
}

// Append runs one load, append, persist cycle and returns the persisted table.
func (s *Store) Append(ctx context.Context, rec Record) (Table, error) {
	current := s.Load(ctx)
	next, err := current.Append(rec)
	if err != nil {
		return current, err
	}
	if err := s.Persist(ctx, next); err != nil {
		return current, err
	}
	return next, nil
}

// Clear overwrites the stored table with an empty, schema-only table.
func (s *Store) Clear(ctx context.Context) error {
	return s.Persist(ctx, Clear(s.schema))
}
