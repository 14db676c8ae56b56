package core

import (
	"context"
	"testing"

	"taskmate/internal/kv"
	"taskmate/internal/storage"
	"taskmate/pkg/domain"
)

func TestOpenPersistentStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := kv.Config{Driver: kv.DriverFilesystem, FSRoot: t.TempDir()}

	store, backend, err := OpenPersistentStore(ctx, cfg, NewDefaultRulesEngine(), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	svc := NewService(store)
	team, _, err := svc.CreateTeam(ctx, Team{Name: "Durable", Members: []string{"u1"}, CreatedBy: "u1"})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	if err := backend.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, backend2, err := OpenPersistentStore(ctx, cfg, NewDefaultRulesEngine(), nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = backend2.Close() }()
	got, ok, err := NewService(reopened).CurrentTeam(ctx)
	if err != nil || !ok || got.ID != team.ID || got.JoinCode != team.JoinCode {
		t.Fatalf("expected persisted current team, got %+v ok=%v err=%v", got, ok, err)
	}
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	if _, _, err := OpenPersistentStore(context.Background(), kv.Config{Driver: "floppy"}, nil, nil); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestJoinSucceedsAfterDuplicateCodesInStorage(t *testing.T) {
	ctx := context.Background()
	cfg := kv.Config{Driver: kv.DriverFilesystem, FSRoot: t.TempDir()}

	store, backend, err := OpenPersistentStore(ctx, cfg, NewDefaultRulesEngine(), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	seed := []domain.Team{
		{ID: "t1", Name: "First", JoinCode: "ABCD2345", Members: []string{"a"}},
		{ID: "t2", Name: "Second", JoinCode: "ABCD2345", Members: []string{"b"}},
	}
	if err := storage.Save(ctx, store.Adapter(), storage.KeyTeams, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := backend.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, backend2, err := OpenPersistentStore(ctx, cfg, NewDefaultRulesEngine(), nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = backend2.Close() }()
	joined, _, err := NewService(reopened).JoinTeamByCode(ctx, "abcd2345", "newbie")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if joined.ID != "t1" || !joined.HasMember("newbie") {
		t.Fatalf("expected newbie in first team, got %+v", joined)
	}
}
