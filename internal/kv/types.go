// Package kv re-exports the key-value abstractions and selects a backend.
// Packages outside the infra tree depend on kv.Store only.
package kv

import (
	"taskmate/internal/kv/core"
)

type (
	// Driver identifies a key-value backend driver.
	Driver = core.Driver
	// Store is the interface for key-value backends.
	Store = core.Store
)

const (
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverSQLite is the embedded SQLite driver.
	DriverSQLite = core.DriverSQLite
	// DriverPostgres is the Postgres driver.
	DriverPostgres = core.DriverPostgres
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
)

var (
	// ErrQuotaExceeded indicates a write exceeded the backend capacity.
	ErrQuotaExceeded = core.ErrQuotaExceeded
	// ErrInvalidKey indicates a key the backend cannot represent.
	ErrInvalidKey = core.ErrInvalidKey
)
