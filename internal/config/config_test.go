package config

import (
	"os"
	"path/filepath"
	"testing"

	"taskmate/internal/kv"
)

func lookupFrom(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(nil))
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if cfg.Storage.Driver != kv.DriverSQLite || cfg.LogLevel != "info" || cfg.LogFormat != "text" || cfg.Metrics != MetricsExpvar || cfg.Trace {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestOverrides(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"TASKMATE_STORAGE_DRIVER": "S3",
		"TASKMATE_S3_BUCKET":      "tasks",
		"TASKMATE_S3_PATH_STYLE":  "true",
		"TASKMATE_S3_PREFIX":      "dev/",
		"TASKMATE_METRICS":        "prometheus",
		"TASKMATE_LOG_FORMAT":     "json",
		"TASKMATE_TRACE":          "1",
	}))
	if err != nil {
		t.Fatalf("overrides: %v", err)
	}
	if cfg.Storage.Driver != kv.DriverS3 || cfg.Storage.S3.Bucket != "tasks" || !cfg.Storage.S3.PathStyle || cfg.Storage.S3.Prefix != "dev/" {
		t.Fatalf("unexpected s3 config: %+v", cfg.Storage.S3)
	}
	if cfg.Metrics != MetricsPrometheus || cfg.LogFormat != "json" || !cfg.Trace {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"driver":       {"TASKMATE_STORAGE_DRIVER": "floppy"},
		"path style":   {"TASKMATE_S3_PATH_STYLE": "maybe"},
		"metrics":      {"TASKMATE_METRICS": "statsd"},
		"quota":        {"TASKMATE_MEMORY_QUOTA": "lots"},
		"trace":        {"TASKMATE_TRACE": "loud"},
		"postgres dsn": {"TASKMATE_STORAGE_DRIVER": "postgres"},
		"s3 bucket":    {"TASKMATE_STORAGE_DRIVER": "s3"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := FromLookup(lookupFrom(env)); err == nil {
				t.Fatalf("expected error for %v", env)
			}
		})
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("TASKMATE_FS_ROOT=/tmp/taskmate-test\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("TASKMATE_STORAGE_DRIVER", "fs")
	t.Setenv("TASKMATE_FS_ROOT", "")
	_ = os.Unsetenv("TASKMATE_FS_ROOT")
	cfg, err := Load(path, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != kv.DriverFilesystem || cfg.Storage.FSRoot != "/tmp/taskmate-test" {
		t.Fatalf("unexpected config: %+v", cfg.Storage)
	}
}
