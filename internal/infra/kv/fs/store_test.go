package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"taskmate/internal/kv/core"
)

func TestFilesystemStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Driver() != core.DriverFilesystem || s.Root() != root {
		t.Fatalf("unexpected driver/root %s %s", s.Driver(), s.Root())
	}
	if _, ok, err := s.Get(ctx, "taskmate_tasks"); err != nil || ok {
		t.Fatalf("expected absent key, ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "taskmate_tasks", `[{"id":"a"}]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "taskmate_current_team", "team-1"); err != nil {
		t.Fatalf("set scalar: %v", err)
	}
	v, ok, err := s.Get(ctx, "taskmate_tasks")
	if err != nil || !ok || v != `[{"id":"a"}]` {
		t.Fatalf("unexpected value %q ok=%v err=%v", v, ok, err)
	}
	if _, err := os.Stat(filepath.Join(root, "taskmate_tasks.json")); err != nil {
		t.Fatalf("expected backing file: %v", err)
	}
	keys, err := s.Keys(ctx, "taskmate_")
	if err != nil || len(keys) != 2 || keys[0] != "taskmate_current_team" {
		t.Fatalf("unexpected keys %v err=%v", keys, err)
	}
	if err := s.Remove(ctx, "taskmate_tasks"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Remove(ctx, "taskmate_tasks"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "taskmate_tasks"); ok {
		t.Fatalf("expected key removed")
	}
}

func TestFilesystemStoreRejectsTraversal(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"", "../escape", "a/b", `a\b`} {
		if err := s.Set(context.Background(), key, "x"); !errors.Is(err, core.ErrInvalidKey) {
			t.Fatalf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestFilesystemStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	first, _ := New(root)
	if err := first.Set(ctx, "taskmate_language", "en"); err != nil {
		t.Fatalf("set: %v", err)
	}
	second, _ := New(root)
	v, ok, err := second.Get(ctx, "taskmate_language")
	if err != nil || !ok || v != "en" {
		t.Fatalf("expected persisted value, got %q ok=%v err=%v", v, ok, err)
	}
}
