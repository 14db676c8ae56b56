package core

import (
	"context"
	"fmt"

	"taskmate/internal/infra/persistence/kvstore"
	"taskmate/internal/infra/persistence/memory"
	"taskmate/internal/kv"
	"taskmate/internal/logging"
	"taskmate/internal/storage"
	"taskmate/pkg/domain"
)

type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)

// OpenPersistentStore opens the configured key-value backend, wraps it in a
// storage adapter and returns a write-through store loaded from it. The
// caller owns the returned kv.Store and must Close it.
func OpenPersistentStore(ctx context.Context, cfg kv.Config, engine *RulesEngine, logger logging.Logger) (*kvstore.Store, kv.Store, error) {
	backend, err := kv.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s backend: %w", cfg.Driver, err)
	}
	adapter := storage.New(backend, storage.WithLogger(logger))
	store, err := kvstore.NewStore(ctx, adapter, engine, kvstore.WithLogger(logger))
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}
	return store, backend, nil
}

// NewMemoryStore returns a non-persistent store, used by tests and the
// memory driver.
func NewMemoryStore(engine *RulesEngine) *memory.Store {
	return memory.NewStore(engine)
}
