// Package core defines the key-value storage abstraction that every
// persistence backend implements.
package core

import (
	"context"
	"errors"
)

// Driver identifies a concrete key-value backend implementation.
type Driver string

const (
	// DriverMemory represents an in-memory implementation typically used in tests.
	DriverMemory Driver = "memory"
	// DriverFilesystem stores one file per key under a root directory.
	DriverFilesystem Driver = "fs"
	// DriverSQLite stores keys as rows of an embedded SQLite database.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres stores keys as rows of a Postgres table.
	DriverPostgres Driver = "postgres"
	// DriverS3 represents an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3"
)

// Store is a synchronous string key-value store, the same contract browser
// local storage offers: values are opaque strings, there is no TTL and a
// missing key is not an error.
type Store interface {
	// Get returns the value stored at key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set overwrites the value stored at key.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key succeeds.
	Remove(ctx context.Context, key string) error
	// Keys lists stored keys with the given prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Driver() Driver
	Close() error
}

// ErrQuotaExceeded is returned by backends enforcing a capacity limit when a
// write would exceed it.
var ErrQuotaExceeded = errors.New("kv: quota exceeded")

// ErrInvalidKey is returned when a key cannot be mapped onto the backend.
var ErrInvalidKey = errors.New("kv: invalid key")
