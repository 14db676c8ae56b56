// Package storage serializes TaskMate collections to and from a key-value
// store, one JSON document per key.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"taskmate/internal/kv"
	"taskmate/internal/logging"
)

// Prefix namespaces every key TaskMate writes.
const Prefix = "taskmate_"

// Persisted keys.
const (
	KeyTeams         = Prefix + "teams"
	KeyCurrentTeam   = Prefix + "current_team"
	KeyProjects      = Prefix + "projects"
	KeyTasks         = Prefix + "tasks"
	KeyComments      = Prefix + "comments"
	KeyFiles         = Prefix + "files"
	KeyFileComments  = Prefix + "file_comments"
	KeyNotifications = Prefix + "notifications"
	KeyUsers         = Prefix + "users"
	KeySession       = Prefix + "user"
	KeyLanguage      = Prefix + "language"
	KeyPurgeSentinel = Prefix + "demo_purged"
)

// LegacyKeys are removed once by PurgeLegacy.
var LegacyKeys = []string{
	KeyProjects,
	KeyTasks,
	KeyComments,
	KeyFiles,
	KeyFileComments,
	KeyNotifications,
}

// PreferencesKey returns the per-user preferences key.
func PreferencesKey(userID string) string {
	return Prefix + "preferences_" + userID
}

// ErrUnavailable wraps every backend failure: quota exhaustion, a missing
// database, a network error. Callers report it as "persistence unavailable".
var ErrUnavailable = errors.New("storage: persistence unavailable")

// Adapter reads and writes whole collections through a kv.Store.
type Adapter struct {
	store  kv.Store
	logger logging.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger routes diagnostics (malformed payloads, purge) to logger.
func WithLogger(logger logging.Logger) Option {
	return func(a *Adapter) { a.logger = logging.OrNoop(logger) }
}

// New wraps store.
func New(store kv.Store, opts ...Option) *Adapter {
	a := &Adapter{store: store, logger: logging.Noop{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Store returns the backing key-value store.
func (a *Adapter) Store() kv.Store { return a.store }

// unavailable marks a backend failure. Backends already name the key.
func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// GetString returns the raw value at key.
func (a *Adapter) GetString(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := a.store.Get(ctx, key)
	if err != nil {
		return "", false, unavailable(err)
	}
	return v, ok, nil
}

// SetString writes a raw value.
func (a *Adapter) SetString(ctx context.Context, key, value string) error {
	if err := a.store.Set(ctx, key, value); err != nil {
		return unavailable(err)
	}
	return nil
}

// Remove deletes key.
func (a *Adapter) Remove(ctx context.Context, key string) error {
	if err := a.store.Remove(ctx, key); err != nil {
		return unavailable(err)
	}
	return nil
}

// Load decodes the collection stored at key. An absent key yields an empty
// slice; a malformed payload is logged and also yields an empty slice.
func Load[T any](ctx context.Context, a *Adapter, key string) ([]T, error) {
	raw, ok, err := a.GetString(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		a.logger.Warn("discarding malformed collection", "key", key, "error", err)
		return []T{}, nil
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Save overwrites the collection at key. A nil slice is written as [].
func Save[T any](ctx context.Context, a *Adapter, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return a.SetString(ctx, key, string(b))
}

// LoadObject decodes a single JSON object at key. Malformed payloads are
// logged and reported as absent.
func LoadObject[T any](ctx context.Context, a *Adapter, key string) (T, bool, error) {
	var zero T
	raw, ok, err := a.GetString(ctx, key)
	if err != nil || !ok || raw == "" {
		return zero, false, err
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		a.logger.Warn("discarding malformed object", "key", key, "error", err)
		return zero, false, nil
	}
	return v, true, nil
}

// SaveObject writes v as a JSON object at key.
func SaveObject[T any](ctx context.Context, a *Adapter, key string, v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return a.SetString(ctx, key, string(b))
}

// PurgeLegacy removes LegacyKeys once, guarded by the sentinel key. It reports
// whether a purge ran. An interrupted purge repeats on the next call.
func (a *Adapter) PurgeLegacy(ctx context.Context) (bool, error) {
	_, done, err := a.GetString(ctx, KeyPurgeSentinel)
	if err != nil {
		return false, err
	}
	if done {
		return false, nil
	}
	for _, key := range LegacyKeys {
		if err := a.Remove(ctx, key); err != nil {
			return false, err
		}
	}
	if err := a.SetString(ctx, KeyPurgeSentinel, "1"); err != nil {
		return false, err
	}
	a.logger.Info("purged legacy collections", "keys", len(LegacyKeys))
	return true, nil
}
