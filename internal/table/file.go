package table

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrPersist wraps every failure to write a table to its backing storage.
var ErrPersist = errors.New("persist table")

// Read loads the delimited file at path and reconciles it against schema.
// On any failure it returns an empty table together with the cause.
func Read(path string, schema Schema, format Format) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return New(schema), err
	}
	defer func() { _ = f.Close() }()
	return Decode(f, schema, format)
}

// Load is Read without the error: absent, unreadable or malformed files
// yield an empty table conforming to schema.
func Load(path string, schema Schema) Table {
	t, _ := Read(path, schema, Format{})
	return t
}

// Persist writes the whole table to path with the default format,
// replacing any existing content.
func Persist(t Table, path string) error {
	return PersistFormat(t, path, Format{})
}

// PersistFormat writes the whole table to path. The file is written to a
// temporary sibling first and renamed into place.
func PersistFormat(t Table, path string, format Format) error {
	payload, err := Marshal(t, format)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPersist, err)
	}
	if err := WriteFileAtomic(path, payload); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// WriteFileAtomic replaces path with payload via a temp file and rename.
func WriteFileAtomic(path string, payload []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
