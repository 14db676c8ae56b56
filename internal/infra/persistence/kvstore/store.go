// Package kvstore persists the in-memory transactional store through the
// key-value storage adapter, one JSON array per collection key.
package kvstore

import (
	"context"
	"fmt"
	"sync"

	"taskmate/internal/infra/persistence/memory"
	"taskmate/internal/logging"
	"taskmate/internal/storage"
	"taskmate/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

// Store wraps memory.Store and writes every collection touched by a
// committed transaction back to the adapter. Concurrent writers against the
// same keys resolve as last writer wins per collection.
type Store struct {
	*memory.Store
	adapter *storage.Adapter
	logger  logging.Logger
	mu      sync.Mutex
}

// Option configures a Store.
type Option func(*options)

type options struct {
	logger    logging.Logger
	memOpts   []memory.Option
	skipPurge bool
}

// WithLogger routes load and persist diagnostics to logger.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMemoryOptions forwards options to the wrapped memory store.
func WithMemoryOptions(opts ...memory.Option) Option {
	return func(o *options) { o.memOpts = append(o.memOpts, opts...) }
}

// WithoutLegacyPurge skips the one-time removal of demo data on open.
func WithoutLegacyPurge() Option {
	return func(o *options) { o.skipPurge = true }
}

// NewStore purges legacy demo data once, then loads every collection from
// the adapter. Absent or malformed keys load as empty collections.
func NewStore(ctx context.Context, adapter *storage.Adapter, engine *domain.RulesEngine, opts ...Option) (*Store, error) {
	if adapter == nil {
		return nil, fmt.Errorf("kvstore: adapter is required")
	}
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Store{
		Store:   memory.NewStore(engine, cfg.memOpts...),
		adapter: adapter,
		logger:  logging.OrNoop(cfg.logger),
	}
	if !cfg.skipPurge {
		if _, err := adapter.PurgeLegacy(ctx); err != nil {
			return nil, err
		}
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the in-memory state with what the adapter currently holds.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := s.ImportState(snapshot); err != nil {
		return err
	}
	// migration may have assigned join codes; write them back
	migrated := s.ExportState()
	if !sameJoinCodes(snapshot.Teams, migrated.Teams) {
		if err := storage.Save(ctx, s.adapter, storage.KeyTeams, migrated.Teams); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) load(ctx context.Context) (memory.Snapshot, error) {
	var (
		snap memory.Snapshot
		err  error
	)
	if snap.Teams, err = storage.Load[domain.Team](ctx, s.adapter, storage.KeyTeams); err != nil {
		return snap, err
	}
	if snap.Projects, err = storage.Load[domain.Project](ctx, s.adapter, storage.KeyProjects); err != nil {
		return snap, err
	}
	if snap.Tasks, err = storage.Load[domain.Task](ctx, s.adapter, storage.KeyTasks); err != nil {
		return snap, err
	}
	if snap.Comments, err = storage.Load[domain.Comment](ctx, s.adapter, storage.KeyComments); err != nil {
		return snap, err
	}
	if snap.Files, err = storage.Load[domain.FileAttachment](ctx, s.adapter, storage.KeyFiles); err != nil {
		return snap, err
	}
	if snap.FileComments, err = storage.Load[domain.FileComment](ctx, s.adapter, storage.KeyFileComments); err != nil {
		return snap, err
	}
	if snap.Notifications, err = storage.Load[domain.Notification](ctx, s.adapter, storage.KeyNotifications); err != nil {
		return snap, err
	}
	current, ok, err := s.adapter.GetString(ctx, storage.KeyCurrentTeam)
	if err != nil {
		return snap, err
	}
	if ok {
		snap.CurrentTeamID = current
	}
	return snap, nil
}

// RunInTransaction runs fn in memory and persists the touched collections
// before the new state becomes visible. When a write fails the transaction
// is discarded and collections already written are restored.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, _, err := s.ApplyThen(ctx, fn, func(prev, next memory.Snapshot, changes []domain.Change) error {
		return s.writeThrough(ctx, prev, next, touchedEntities(changes))
	})
	return res, err
}

func (s *Store) writeThrough(ctx context.Context, prev, next memory.Snapshot, touched []domain.EntityType) error {
	for i, entity := range touched {
		err := s.save(ctx, next, entity)
		if err == nil {
			continue
		}
		s.logger.Error("persist collection", "entity", entity, "error", err)
		for _, written := range touched[:i] {
			if rbErr := s.save(ctx, prev, written); rbErr != nil {
				s.logger.Error("restore collection", "entity", written, "error", rbErr)
			}
		}
		return err
	}
	return nil
}

func touchedEntities(changes []domain.Change) []domain.EntityType {
	seen := make(map[domain.EntityType]bool, len(changes))
	for _, c := range changes {
		seen[c.Entity] = true
	}
	out := make([]domain.EntityType, 0, len(seen))
	for _, entity := range persistOrder {
		if seen[entity] {
			out = append(out, entity)
		}
	}
	return out
}

func (s *Store) save(ctx context.Context, snap memory.Snapshot, entity domain.EntityType) error {
	switch entity {
	case domain.EntityTeam:
		return storage.Save(ctx, s.adapter, storage.KeyTeams, snap.Teams)
	case domain.EntityProject:
		return storage.Save(ctx, s.adapter, storage.KeyProjects, snap.Projects)
	case domain.EntityTask:
		return storage.Save(ctx, s.adapter, storage.KeyTasks, snap.Tasks)
	case domain.EntityComment:
		return storage.Save(ctx, s.adapter, storage.KeyComments, snap.Comments)
	case domain.EntityFile:
		return storage.Save(ctx, s.adapter, storage.KeyFiles, snap.Files)
	case domain.EntityFileComment:
		return storage.Save(ctx, s.adapter, storage.KeyFileComments, snap.FileComments)
	case domain.EntityNotification:
		return storage.Save(ctx, s.adapter, storage.KeyNotifications, snap.Notifications)
	case domain.EntityCurrentTeam:
		if snap.CurrentTeamID == "" {
			return s.adapter.Remove(ctx, storage.KeyCurrentTeam)
		}
		return s.adapter.SetString(ctx, storage.KeyCurrentTeam, snap.CurrentTeamID)
	}
	return nil
}

var persistOrder = []domain.EntityType{
	domain.EntityTeam,
	domain.EntityProject,
	domain.EntityTask,
	domain.EntityComment,
	domain.EntityFile,
	domain.EntityFileComment,
	domain.EntityNotification,
	domain.EntityCurrentTeam,
}

// Adapter exposes the underlying storage adapter.
func (s *Store) Adapter() *storage.Adapter { return s.adapter }

func sameJoinCodes(a, b []domain.Team) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].JoinCode != b[i].JoinCode {
			return false
		}
	}
	return true
}
