// Command taskmate is the command-line front end for the TaskMate data
// layer. It opens the configured key-value backend once, wires the auth
// store and core service, and runs a single command.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"taskmate/internal/auth"
	"taskmate/internal/config"
	"taskmate/internal/core"
	"taskmate/internal/kv"
	"taskmate/internal/logging"
	"taskmate/internal/storage"
)

var (
	exitFunc   = os.Exit
	loadConfig = config.Load
)

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

// errUsage marks errors that should exit with status 2.
var errUsage = errors.New("usage")

type app struct {
	svc        *core.Service
	auth       *auth.Store
	backend    kv.Store
	logger     logging.Logger
	out        io.Writer
	expvar     *core.ExpvarMetricsRecorder
	prometheus bool
	registry   *prometheus.Registry
}

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"register":      cmdRegister,
	"login":         cmdLogin,
	"logout":        cmdLogout,
	"whoami":        cmdWhoami,
	"profile":       cmdProfile,
	"password":      cmdPassword,
	"preferences":   cmdPreferences,
	"language":      cmdLanguage,
	"team":          cmdTeam,
	"project":       cmdProject,
	"task":          cmdTask,
	"comment":       cmdComment,
	"file":          cmdFile,
	"notifications": cmdNotifications,
	"deadlines":     cmdDeadlines,
	"dashboard":     cmdDashboard,
	"calendar":      cmdCalendar,
	"metrics":       cmdMetrics,
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	_, _ = fmt.Fprintf(w, "usage: taskmate [-env FILE] <command> [flags]\ncommands: %s\n", strings.Join(names, ", "))
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("taskmate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var envFile string
	fs.StringVar(&envFile, "env", ".env", "optional dotenv file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		usage(stderr)
		return 2
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n", rest[0])
		usage(stderr)
		return 2
	}

	cfg, err := loadConfig(envFile)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	ctx := context.Background()
	a, err := newApp(ctx, cfg, stdout, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "startup: %v\n", err)
		return 1
	}
	defer func() {
		if err := a.backend.Close(); err != nil {
			a.logger.Error("close backend", "error", err)
		}
	}()

	if err := cmd(ctx, a, rest[1:]); err != nil {
		_, _ = fmt.Fprintf(stderr, "%s: %v\n", rest[0], err)
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			return 2
		}
		if errors.Is(err, storage.ErrUnavailable) {
			_, _ = fmt.Fprintln(stderr, "persistence unavailable; changes were not saved")
		}
		return 1
	}
	return 0
}

func newApp(ctx context.Context, cfg config.Config, stdout, stderr io.Writer) (*app, error) {
	logger := logging.New(stderr, cfg.LogLevel, cfg.LogFormat)
	a := &app{logger: logger, out: stdout, registry: prometheus.NewRegistry()}

	opts := []core.ServiceOption{
		core.WithLogger(logger),
		core.WithAuditRecorder(core.NewLogAuditRecorder(logger)),
	}
	if cfg.Trace {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(stderr)))
	}
	switch cfg.Metrics {
	case config.MetricsExpvar:
		a.expvar = core.NewExpvarMetricsRecorder("")
		opts = append(opts, core.WithMetricsRecorder(a.expvar))
	case config.MetricsPrometheus:
		a.prometheus = true
		a.registry.MustRegister(collectors.NewGoCollector())
		recorder, err := core.NewPrometheusMetricsRecorder(a.registry)
		if err != nil {
			return nil, err
		}
		opts = append(opts, core.WithMetricsRecorder(recorder))
	}

	store, backend, err := core.OpenPersistentStore(ctx, cfg.Storage, core.NewDefaultRulesEngine(), logger)
	if err != nil {
		return nil, err
	}
	a.backend = backend
	a.svc = core.NewService(store, opts...)
	a.auth = auth.New(store.Adapter(), auth.WithLogger(logger))
	return a, nil
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func parse(name string, args []string, setup func(fs *flag.FlagSet)) (*flag.FlagSet, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	setup(fs)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	return fs, nil
}

func need(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return fmt.Errorf("%w: -%s is required", errUsage, pairs[i])
		}
	}
	return nil
}
