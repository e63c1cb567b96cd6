// Package blob re-exports the blob storage contract and constructs drivers.
// Packages outside the blob tree depend on blob.Store, never on infra drivers.
package blob

import (
	"schmerzverlauf/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrNotFound    = core.ErrNotFound
	ErrExists      = core.ErrExists
)

// CloneMetadata copies a metadata map.
func CloneMetadata(in map[string]string) map[string]string { return core.CloneMetadata(in) }
