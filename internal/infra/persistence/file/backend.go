// Package file stores each table as <dir>/<name>.csv on the local disk.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"schmerzverlauf/internal/table"
)

// Extension is appended to the table name to form the file name.
const Extension = ".csv"

// Backend reads and rewrites whole table files in Dir.
type Backend struct {
	dir string
}

// New returns a Backend rooted at dir (default "."). The directory is
// created lazily on first write.
func New(dir string) *Backend {
	if dir == "" {
		dir = "."
	}
	return &Backend{dir: dir}
}

// Path returns the file backing name.
func (b *Backend) Path(name string) string {
	return filepath.Join(b.dir, name+Extension)
}

// ReadTable returns the raw file; a missing file surfaces as fs.ErrNotExist.
func (b *Backend) ReadTable(_ context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return os.ReadFile(b.Path(name))
}

// WriteTable replaces the file atomically.
func (b *Backend) WriteTable(_ context.Context, name string, payload []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	return table.WriteFileAtomic(b.Path(name), payload)
}

// Close is a no-op.
func (b *Backend) Close() error { return nil }

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}
