package storage

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"taskmate/internal/kv"
	"taskmate/pkg/domain"
)

type recordingLogger struct {
	warns []string
}

func (r *recordingLogger) Debug(string, ...any) {}
func (r *recordingLogger) Info(string, ...any)  {}
func (r *recordingLogger) Warn(msg string, args ...any) {
	r.warns = append(r.warns, msg)
}
func (r *recordingLogger) Error(string, ...any) {}

type failingStore struct {
	kv.Store
	err error
}

func (f failingStore) Get(context.Context, string) (string, bool, error) { return "", false, f.err }
func (f failingStore) Set(context.Context, string, string) error         { return f.err }
func (f failingStore) Remove(context.Context, string) error              { return f.err }

func roundTrip[T any](t *testing.T, a *Adapter, key string, items []T) {
	t.Helper()
	ctx := context.Background()
	if err := Save(ctx, a, key, items); err != nil {
		t.Fatalf("save %s: %v", key, err)
	}
	got, err := Load[T](ctx, a, key)
	if err != nil {
		t.Fatalf("load %s: %v", key, err)
	}
	if !reflect.DeepEqual(got, items) {
		t.Fatalf("round trip mismatch for %s:\n got %+v\nwant %+v", key, got, items)
	}
}

func TestRoundTripEveryEntityShape(t *testing.T) {
	a := New(kv.NewMemory(0))
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	roundTrip(t, a, KeyUsers, []domain.User{{ID: "u1", Name: "Ada Lovelace", Email: "ada@example.com", PasswordHash: "$2a$10$abc", Role: domain.RoleAdmin, Initials: "AL", CreatedAt: now}})
	roundTrip(t, a, KeyTeams, []domain.Team{{ID: "t1", Name: "Eng", Description: "core", Color: "#355070", JoinCode: "ABCDEFGH", Members: []string{"u1", "u2"}, CreatedBy: "u1", CreatedAt: now}})
	roundTrip(t, a, KeyProjects, []domain.Project{{ID: "p1", TeamID: "t1", Name: "API", Description: "d", Color: "#fff", CreatedBy: "u1", CreatedAt: now}})
	roundTrip(t, a, KeyTasks, []domain.Task{{ID: "k1", TeamID: "t1", ProjectID: "p1", Title: "Fix bug", Status: domain.TaskStatusTodo, AssigneeID: "u2", Deadline: "2025-01-10", Priority: domain.PriorityHigh, CreatedBy: "u1", CreatedAt: now}})
	roundTrip(t, a, KeyComments, []domain.Comment{{ID: "c1", TaskID: "k1", UserID: "u1", UserName: "Ada Lovelace", UserInitials: "AL", Message: "on it", CreatedAt: now}})
	roundTrip(t, a, KeyFiles, []domain.FileAttachment{{ID: "f1", TaskID: "k1", ProjectID: "p1", TeamID: "t1", Name: "spec.pdf", Size: 1024, Type: "application/pdf", Category: domain.FileCategoryDocument, URL: "mock://file/spec.pdf", UploadedBy: "u1", UploadedByName: "Ada Lovelace", UploadedAt: now, Tags: []string{"spec"}, Description: "draft", Status: domain.FileStatusDraft}})
	roundTrip(t, a, KeyFileComments, []domain.FileComment{{ID: "fc1", FileID: "f1", UserID: "u2", UserName: "Bob", UserInitials: "B", Message: "lgtm", CreatedAt: now}})
	roundTrip(t, a, KeyNotifications, []domain.Notification{{ID: "n1", UserID: "u2", Type: domain.NotificationTaskAssigned, Title: "New task", Message: "Fix bug", RelatedID: "k1", CreatedAt: now}})
}

func TestLoadAbsentAndNil(t *testing.T) {
	ctx := context.Background()
	a := New(kv.NewMemory(0))
	items, err := Load[domain.Task](ctx, a, KeyTasks)
	if err != nil || items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v err=%v", items, err)
	}
	if err := Save[domain.Task](ctx, a, KeyTasks, nil); err != nil {
		t.Fatalf("save nil: %v", err)
	}
	raw, _, _ := a.GetString(ctx, KeyTasks)
	if raw != "[]" {
		t.Fatalf("expected nil slice saved as [], got %q", raw)
	}
}

func TestLoadMalformedRecoversEmptyAndWarns(t *testing.T) {
	ctx := context.Background()
	logger := &recordingLogger{}
	a := New(kv.NewMemory(0), WithLogger(logger))
	if err := a.SetString(ctx, KeyTeams, "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	teams, err := Load[domain.Team](ctx, a, KeyTeams)
	if err != nil {
		t.Fatalf("malformed payload must not error: %v", err)
	}
	if len(teams) != 0 {
		t.Fatalf("expected empty collection, got %v", teams)
	}
	if len(logger.warns) != 1 {
		t.Fatalf("expected one warning, got %v", logger.warns)
	}
	if err := a.SetString(ctx, KeySession, "[1,2"); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	if _, ok, err := LoadObject[domain.SessionUser](ctx, a, KeySession); ok || err != nil {
		t.Fatalf("expected malformed object reported absent, ok=%v err=%v", ok, err)
	}
}

func TestObjectRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := New(kv.NewMemory(0))
	in := domain.SessionUser{ID: "u1", Name: "Ada", Email: "ada@example.com", Role: domain.RoleMember, Initials: "A"}
	if err := SaveObject(ctx, a, KeySession, in); err != nil {
		t.Fatalf("save object: %v", err)
	}
	out, ok, err := LoadObject[domain.SessionUser](ctx, a, KeySession)
	if err != nil || !ok || out != in {
		t.Fatalf("unexpected object %+v ok=%v err=%v", out, ok, err)
	}
	if _, ok, err := LoadObject[domain.SessionUser](ctx, a, PreferencesKey("nobody")); ok || err != nil {
		t.Fatalf("expected absent object")
	}
}

func TestPurgeLegacyRunsOnce(t *testing.T) {
	ctx := context.Background()
	a := New(kv.NewMemory(0))
	for _, key := range append([]string{KeyTeams, KeyUsers}, LegacyKeys...) {
		if err := a.SetString(ctx, key, "[]"); err != nil {
			t.Fatalf("seed %s: %v", key, err)
		}
	}
	ran, err := a.PurgeLegacy(ctx)
	if err != nil || !ran {
		t.Fatalf("expected purge to run, ran=%v err=%v", ran, err)
	}
	for _, key := range LegacyKeys {
		if _, ok, _ := a.GetString(ctx, key); ok {
			t.Fatalf("expected %s purged", key)
		}
	}
	for _, key := range []string{KeyTeams, KeyUsers} {
		if _, ok, _ := a.GetString(ctx, key); !ok {
			t.Fatalf("expected %s kept", key)
		}
	}
	if v, _, _ := a.GetString(ctx, KeyPurgeSentinel); v != "1" {
		t.Fatalf("expected sentinel, got %q", v)
	}

	if err := a.SetString(ctx, KeyTasks, `[{"id":"new"}]`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	ran, err = a.PurgeLegacy(ctx)
	if err != nil || ran {
		t.Fatalf("expected second purge to be skipped, ran=%v err=%v", ran, err)
	}
	if _, ok, _ := a.GetString(ctx, KeyTasks); !ok {
		t.Fatalf("data written after the purge must survive")
	}
}

func TestBackendFailuresWrapUnavailable(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk on fire")
	a := New(failingStore{Store: kv.NewMemory(0), err: boom})
	if _, err := Load[domain.Team](ctx, a, KeyTeams); !errors.Is(err, ErrUnavailable) || !errors.Is(err, boom) {
		t.Fatalf("expected ErrUnavailable wrapping cause, got %v", err)
	}
	if err := Save(ctx, a, KeyTeams, []domain.Team{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := a.PurgeLegacy(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from purge, got %v", err)
	}
}

func TestQuotaSurfacesAsUnavailable(t *testing.T) {
	ctx := context.Background()
	a := New(kv.NewMemory(64))
	big := []domain.Comment{{ID: "c1", Message: strings.Repeat("x", 128)}}
	err := Save(ctx, a, KeyComments, big)
	if !errors.Is(err, ErrUnavailable) || !errors.Is(err, kv.ErrQuotaExceeded) {
		t.Fatalf("expected quota to surface as ErrUnavailable, got %v", err)
	}
	if n := strings.Count(err.Error(), KeyComments); n != 1 {
		t.Fatalf("expected key named once in %q, got %d", err.Error(), n)
	}
}

func TestPreferencesKey(t *testing.T) {
	if got := PreferencesKey("u1"); got != "taskmate_preferences_u1" {
		t.Fatalf("unexpected key %q", got)
	}
}
