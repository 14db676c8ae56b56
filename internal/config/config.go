// Package config resolves runtime settings from an optional .env file and
// the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"taskmate/internal/kv"
)

// Metrics exporters selectable with TASKMATE_METRICS.
const (
	MetricsNone       = "none"
	MetricsExpvar     = "expvar"
	MetricsPrometheus = "prometheus"
)

// Config is the resolved runtime configuration.
type Config struct {
	Storage   kv.Config
	LogLevel  string
	LogFormat string
	Metrics   string
	Trace     bool
}

// LookupFunc reads one variable; it matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads envFiles (".env" when none are given) into the environment,
// skipping files that do not exist, then resolves the configuration.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

func get(lookup LookupFunc, key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

// FromLookup resolves the configuration from lookup with defaults applied.
func FromLookup(lookup LookupFunc) (Config, error) {
	driver := kv.Driver(strings.ToLower(get(lookup, "TASKMATE_STORAGE_DRIVER", string(kv.DriverSQLite))))
	switch driver {
	case kv.DriverMemory, kv.DriverFilesystem, kv.DriverSQLite, kv.DriverPostgres, kv.DriverS3:
	default:
		return Config{}, fmt.Errorf("TASKMATE_STORAGE_DRIVER: unknown driver %q", driver)
	}
	pathStyle, err := strconv.ParseBool(get(lookup, "TASKMATE_S3_PATH_STYLE", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("TASKMATE_S3_PATH_STYLE: %w", err)
	}
	quota, err := strconv.Atoi(get(lookup, "TASKMATE_MEMORY_QUOTA", "0"))
	if err != nil {
		return Config{}, fmt.Errorf("TASKMATE_MEMORY_QUOTA: %w", err)
	}
	trace, err := strconv.ParseBool(get(lookup, "TASKMATE_TRACE", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("TASKMATE_TRACE: %w", err)
	}
	metrics := strings.ToLower(get(lookup, "TASKMATE_METRICS", MetricsExpvar))
	switch metrics {
	case MetricsNone, MetricsExpvar, MetricsPrometheus:
	default:
		return Config{}, fmt.Errorf("TASKMATE_METRICS: unknown exporter %q", metrics)
	}
	cfg := Config{
		Storage: kv.Config{
			Driver:      driver,
			FSRoot:      get(lookup, "TASKMATE_FS_ROOT", ""),
			SQLitePath:  get(lookup, "TASKMATE_SQLITE_PATH", ""),
			PostgresDSN: get(lookup, "TASKMATE_POSTGRES_DSN", ""),
			S3: kv.S3Config{
				Bucket:          get(lookup, "TASKMATE_S3_BUCKET", ""),
				Region:          get(lookup, "TASKMATE_S3_REGION", ""),
				Endpoint:        get(lookup, "TASKMATE_S3_ENDPOINT", ""),
				Prefix:          get(lookup, "TASKMATE_S3_PREFIX", ""),
				AccessKeyID:     get(lookup, "TASKMATE_S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: get(lookup, "TASKMATE_S3_SECRET_ACCESS_KEY", ""),
				PathStyle:       pathStyle,
			},
			MemoryQuota: quota,
		},
		LogLevel:  get(lookup, "TASKMATE_LOG_LEVEL", "info"),
		LogFormat: get(lookup, "TASKMATE_LOG_FORMAT", "text"),
		Metrics:   metrics,
		Trace:     trace,
	}
	if driver == kv.DriverPostgres && cfg.Storage.PostgresDSN == "" {
		return Config{}, errors.New("TASKMATE_POSTGRES_DSN is required for the postgres driver")
	}
	if driver == kv.DriverS3 && cfg.Storage.S3.Bucket == "" {
		return Config{}, errors.New("TASKMATE_S3_BUCKET is required for the s3 driver")
	}
	return cfg, nil
}
