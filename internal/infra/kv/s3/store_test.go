package s3

import (
	"context"
	"errors"
	"testing"

	"taskmate/internal/kv/core"
)

func TestMockS3StoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()
	if s.Driver() != core.DriverS3 {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	if _, ok, err := s.Get(ctx, "taskmate_tasks"); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
	payload := `[{"id":"a","title":"Fix bug"}]`
	if err := s.Set(ctx, "taskmate_tasks", payload); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "taskmate_tasks", payload); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, ok, err := s.Get(ctx, "taskmate_tasks")
	if err != nil || !ok || v != payload {
		t.Fatalf("unexpected value %q ok=%v err=%v", v, ok, err)
	}
	if err := s.Set(ctx, "unrelated", "x"); err != nil {
		t.Fatalf("set unrelated: %v", err)
	}
	keys, err := s.Keys(ctx, "taskmate_")
	if err != nil || len(keys) != 1 || keys[0] != "taskmate_tasks" {
		t.Fatalf("unexpected keys %v err=%v", keys, err)
	}
	if err := s.Remove(ctx, "taskmate_tasks"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "taskmate_tasks"); ok {
		t.Fatalf("expected removal")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestMockS3StorePrefixIsolation(t *testing.T) {
	ctx := context.Background()
	s := newMock("tenant-a/")
	if err := s.Set(ctx, "taskmate_language", "en"); err != nil {
		t.Fatalf("set: %v", err)
	}
	keys, err := s.Keys(ctx, "")
	if err != nil || len(keys) != 1 || keys[0] != "taskmate_language" {
		t.Fatalf("expected prefix stripped from keys, got %v err=%v", keys, err)
	}
}

func TestS3StoreValidation(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected bucket requirement")
	}
	if err := NewMockForTests().Set(context.Background(), "", "x"); !errors.Is(err, core.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestDecodeChunkedLite(t *testing.T) {
	body, ok := decodeChunkedLite([]byte("5\r\nhello\r\n0\r\nx-amz-checksum-crc32:abc\r\n\r\n"))
	if !ok || string(body) != "hello" {
		t.Fatalf("unexpected decode %q ok=%v", body, ok)
	}
	if _, ok := decodeChunkedLite([]byte("plain body")); ok {
		t.Fatalf("expected plain body to be left alone")
	}
}
