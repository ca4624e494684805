package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/tasksync/internal/archive"
	"github.com/steveyegge/tasksync/internal/calendar"
	"github.com/steveyegge/tasksync/internal/config"
	"github.com/steveyegge/tasksync/internal/connect"
	"github.com/steveyegge/tasksync/internal/logging"
	"github.com/steveyegge/tasksync/internal/report"
	"github.com/steveyegge/tasksync/internal/secrets"
	"github.com/steveyegge/tasksync/internal/sync"
	"github.com/steveyegge/tasksync/internal/ui"
)

// app is the per-invocation state shared by every command.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	format report.Format
	now    time.Time
}

// newApp loads configuration and builds the logger from flags and env.
func newApp() (*app, error) {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, err
	}

	f, err := report.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	ui.Init(noColor || f != report.FormatText)

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	now, err := calendar.ParseAsOf(asOf, time.Now(), cfg.Location())
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	if asOf != "" {
		logger.Info("using reference date", "as_of", asOf, "date", calendar.Today(now, cfg.Location()))
	}
	if cfg.File != "" {
		logger.Debug("loaded config", "file", cfg.File)
	}

	return &app{cfg: cfg, logger: logger, format: f, now: now}, nil
}

// Close releases the logger.
func (a *app) Close() error {
	return a.logger.Close()
}

// withApp builds the app, runs fn and returns its exit code. Resources are
// released before the caller exits.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app, w io.Writer) int) int {
	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer a.Close()

	return fn(cmd.Context(), a, cmd.OutOrStdout())
}

// exitOn exits the process with code unless it is zero.
func exitOn(code int) {
	if code != 0 {
		os.Exit(code)
	}
}

// connect opens the configured store.
func (a *app) connect(ctx context.Context) (*connect.Conn, error) {
	p := connect.Params{
		URI:               a.cfg.URI,
		URISecret:         a.cfg.URISecret,
		Database:          a.cfg.Database,
		StagingCollection: a.cfg.StagingCollection,
		TasksCollection:   a.cfg.TasksCollection,
		Timeout:           a.cfg.ConnectTimeout,
		Logger:            a.logger.Logger,
	}
	if p.URI == "" && p.URISecret != "" {
		resolver, err := secrets.NewResolverFromEnv(ctx, a.cfg.AWS.Region, a.logger.Logger)
		if err != nil {
			return nil, err
		}
		p.Secrets = resolver
	}
	return connect.Open(ctx, p)
}

// syncer builds a Syncer over conn from the retention settings.
func (a *app) syncer(ctx context.Context, conn *connect.Conn) (sync.Syncer, error) {
	opts := sync.DefaultOptions()
	opts.Location = a.cfg.Location()
	opts.RetentionEnabled = a.cfg.Retention.Enabled
	opts.RetentionDays = a.cfg.Retention.Days
	opts.ConsumeStaging = a.cfg.ConsumeStaging
	opts.Logger = a.logger.Logger

	if bucket := a.cfg.Retention.ArchiveBucket; bucket != "" {
		arch, err := archive.NewS3FromEnv(ctx, a.cfg.AWS.Region, bucket, a.cfg.Retention.ArchivePrefix, a.logger.Logger)
		if err != nil {
			return nil, err
		}
		opts.Archiver = arch
	}

	return sync.New(conn.Staging, conn.Tasks, opts), nil
}

// emit writes v in the selected structured format, or calls text.
func (a *app) emit(w io.Writer, v any, text func(io.Writer)) error {
	if a.format == report.FormatText {
		text(w)
		return nil
	}
	return report.Encode(w, a.format, v)
}

// open connects and builds the syncer, printing any error. The returned
// conn must be closed by the caller even when the syncer is nil.
func (a *app) open(ctx context.Context) (*connect.Conn, sync.Syncer, bool) {
	conn, err := a.connect(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting: %v\n", err)
		return nil, nil, false
	}
	s, err := a.syncer(ctx, conn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return conn, nil, false
	}
	return conn, s, true
}

// closeConn closes conn with a fresh context so cleanup still runs after
// the command context is cancelled.
func (a *app) closeConn(conn *connect.Conn) {
	if conn == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Close(ctx); err != nil {
		a.logger.Warn("failed to close connection", "error", err)
	}
}
