package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"schmerzverlauf/internal/infra/blob/fs"
	memorystore "schmerzverlauf/internal/infra/blob/memory"
	infraS3 "schmerzverlauf/internal/infra/blob/s3"
)

// S3Config re-exports the S3 driver configuration.
type S3Config = infraS3.Config

// Config selects and parameterizes a driver.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open builds the Store named by cfg.Driver (default fs).
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewFilesystem constructs a filesystem-backed Store rooted at root.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}

// NewMemory returns an in-memory Store suitable for tests.
func NewMemory() Store { return memorystore.New() }

// NewS3 constructs an S3-backed Store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infraS3.New(ctx, cfg)
}

// Replace overwrites key with payload. Stores are create-only, so the old
// object is deleted first; a crash in between leaves the key absent.
func Replace(ctx context.Context, s Store, key string, payload []byte, opts PutOptions) (Info, error) {
	if _, err := s.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return Info{}, fmt.Errorf("replace %s: %w", key, err)
	}
	info, err := s.Put(ctx, key, bytes.NewReader(payload), opts)
	if err != nil {
		return Info{}, fmt.Errorf("replace %s: %w", key, err)
	}
	return info, nil
}
