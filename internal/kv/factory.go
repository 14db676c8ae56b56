package kv

import (
	"context"
	"fmt"

	"taskmate/internal/infra/kv/fs"
	"taskmate/internal/infra/kv/memory"
	"taskmate/internal/infra/kv/postgres"
	infraS3 "taskmate/internal/infra/kv/s3"
	"taskmate/internal/infra/kv/sqlite"
)

// S3Config re-exports the infra S3 configuration type.
type S3Config = infraS3.Config

// Config selects and parameterises a backend.
type Config struct {
	Driver      Driver
	FSRoot      string
	SQLitePath  string
	PostgresDSN string
	S3          S3Config
	// MemoryQuota caps the memory driver in bytes; zero means unlimited.
	MemoryQuota int
}

// Open constructs the Store named by cfg.Driver (default sqlite).
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	switch driver {
	case DriverMemory:
		return NewMemory(cfg.MemoryQuota), nil
	case DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverSQLite:
		return sqlite.New(ctx, cfg.SQLitePath)
	case DriverPostgres:
		return postgres.New(ctx, cfg.PostgresDSN)
	case DriverS3:
		return infraS3.New(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown kv driver %s", driver)
	}
}

// NewMemory returns an in-memory Store; quota is the byte capacity (0 = unlimited).
func NewMemory(quota int) Store {
	if quota > 0 {
		return memory.New(memory.WithQuota(quota))
	}
	return memory.New()
}

// NewFilesystem constructs a filesystem-backed Store rooted at the provided path.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}

// NewMockS3ForTests exposes the in-memory S3 mock for cross-package tests.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }
