// Package storage selects the backend that holds the delimited table payloads.
// Every driver stores the same bytes; only the location differs.
package storage

import (
	"context"
	"fmt"
	"io"

	"schmerzverlauf/internal/blob"
	"schmerzverlauf/internal/infra/persistence/blobtable"
	"schmerzverlauf/internal/infra/persistence/file"
	"schmerzverlauf/internal/infra/persistence/memory"
	"schmerzverlauf/internal/infra/persistence/postgres"
	"schmerzverlauf/internal/infra/persistence/sqlite"
	"schmerzverlauf/internal/table"
)

// Driver names a storage backend.
type Driver string

const (
	DriverFile     Driver = "file"
	DriverBlob     Driver = "blob"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverMemory   Driver = "memory"
)

// Drivers lists the accepted driver names.
var Drivers = []Driver{DriverFile, DriverBlob, DriverSQLite, DriverPostgres, DriverMemory}

// Backend is a table.Backend owning resources that must be released.
type Backend interface {
	table.Backend
	io.Closer
}

// Config parameterizes Open.
type Config struct {
	Driver      Driver
	DataDir     string // file driver
	SQLitePath  string // sqlite driver
	PostgresDSN string // postgres driver
}

// Open builds the backend for cfg.Driver (default file). The blob driver
// stores tables in blobs, which must then be non-nil.
func Open(ctx context.Context, cfg Config, blobs blob.Store) (Backend, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFile
	}
	switch driver {
	case DriverFile:
		return file.New(cfg.DataDir), nil
	case DriverBlob:
		if blobs == nil {
			return nil, fmt.Errorf("storage driver %s requires a blob store", driver)
		}
		return blobtable.New(blobs), nil
	case DriverSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	case DriverPostgres:
		return postgres.Open(ctx, cfg.PostgresDSN)
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// ParseDriver validates s against Drivers; empty selects the file driver.
func ParseDriver(s string) (Driver, error) {
	if s == "" {
		return DriverFile, nil
	}
	for _, d := range Drivers {
		if Driver(s) == d {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown storage driver %q", s)
}
