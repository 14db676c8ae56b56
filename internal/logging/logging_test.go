package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "json")
	logger.Info("hidden")
	logger.Warn("storage unavailable", "key", "taskmate_tasks")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected a single record, got %q", buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec["msg"] != "storage unavailable" || rec["key"] != "taskmate_tasks" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestNewTextDefault(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "", "").Info("hello", "n", 1)
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Fatalf("expected text handler output, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestOrNoop(t *testing.T) {
	l := OrNoop(nil)
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	if _, ok := l.(Noop); !ok {
		t.Fatalf("expected Noop fallback")
	}
	custom := New(&bytes.Buffer{}, "info", "text")
	if OrNoop(custom) != Logger(custom) {
		t.Fatalf("expected logger passthrough")
	}
}
