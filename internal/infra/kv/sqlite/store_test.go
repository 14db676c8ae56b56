package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"taskmate/internal/kv/core"
)

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "taskmate.db")
	s, err := New(ctx, path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Driver() != core.DriverSQLite || s.Path() != path || s.DB() == nil {
		t.Fatalf("unexpected store metadata")
	}
	if err := s.Set(ctx, "taskmate_teams", `[{"id":"t1"}]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "taskmate_teams", `[{"id":"t2"}]`); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Set(ctx, "taskmate_demo_purged", "1"); err != nil {
		t.Fatalf("set sentinel: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := New(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	v, ok, err := reopened.Get(ctx, "taskmate_teams")
	if err != nil || !ok || v != `[{"id":"t2"}]` {
		t.Fatalf("unexpected value %q ok=%v err=%v", v, ok, err)
	}
	keys, err := reopened.Keys(ctx, "taskmate_")
	if err != nil || len(keys) != 2 || keys[0] != "taskmate_demo_purged" {
		t.Fatalf("unexpected keys %v err=%v", keys, err)
	}
	if err := reopened.Remove(ctx, "taskmate_teams"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, err := reopened.Get(ctx, "taskmate_teams"); ok || err != nil {
		t.Fatalf("expected removed key, ok=%v err=%v", ok, err)
	}
}

func TestSQLiteStoreInMemory(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = s.Close() }()
	if err := s.Set(ctx, "", "x"); err == nil {
		t.Fatalf("expected empty key to be rejected")
	}
	if err := s.Set(ctx, "taskmate_language", "en"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok, _ := s.Get(ctx, "taskmate_language"); !ok || v != "en" {
		t.Fatalf("unexpected value %q", v)
	}
}
