// Package memory implements an in-memory key-value Store for tests and
// ephemeral sessions.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"taskmate/internal/kv/core"
)

// Store implements core.Store backed by process memory. An optional quota
// emulates the capacity limit of browser local storage.
type Store struct {
	mu    sync.RWMutex
	data  map[string]string
	used  int
	quota int
}

// Option configures a Store.
type Option func(*Store)

// WithQuota caps the total size of keys plus values, in bytes.
func WithQuota(bytes int) Option {
	return func(s *Store) { s.quota = bytes }
}

// New returns an in-memory key-value store.
func New(opts ...Option) *Store {
	s := &Store{data: make(map[string]string)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Driver returns the kv driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Get returns the value stored at key.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

// Set stores value at key, failing with ErrQuotaExceeded when over capacity.
func (s *Store) Set(_ context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", core.ErrInvalidKey)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.used + len(key) + len(value)
	if prev, ok := s.data[key]; ok {
		next -= len(key) + len(prev)
	}
	if s.quota > 0 && next > s.quota {
		return fmt.Errorf("set %s: %w", key, core.ErrQuotaExceeded)
	}
	s.data[key] = value
	s.used = next
	return nil
}

// Remove deletes key if present.
func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.data[key]; ok {
		s.used -= len(key) + len(prev)
		delete(s.data, key)
	}
	return nil
}

// Keys returns all keys matching prefix in ascending order.
func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Used reports the bytes currently counted against the quota.
func (s *Store) Used() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
