package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/cachegc/internal/config"
	"github.com/roach88/cachegc/internal/engine"
	"github.com/roach88/cachegc/internal/source"
	"github.com/roach88/cachegc/internal/store"
)

// runEnv is the per-invocation state shared by the pipeline commands.
type runEnv struct {
	cfg *config.Config
	log *slog.Logger
	out *Printer
	cmd *cobra.Command
}

// newRunEnv loads configuration and installs the run logger.
//
// Logs always go to stderr: stdout carries only deletion keys or the JSON
// response.
func newRunEnv(opts *RootOptions, cmd *cobra.Command) (*runEnv, error) {
	runID := uuid.Must(uuid.NewV7()).String()
	out := &Printer{
		Format: opts.Format,
		Out:    cmd.OutOrStdout(),
		Diag:   cmd.ErrOrStderr(),
		RunID:  runID,
	}

	bootLevel := slog.LevelInfo
	if opts.Verbose {
		bootLevel = slog.LevelDebug
	}
	boot := newLogger(cmd.ErrOrStderr(), "text", bootLevel).With("run_id", runID)

	cfg, err := config.Load(config.LoadOptions{Path: opts.ConfigPath, Logger: boot})
	if err != nil {
		return nil, out.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}

	level := cfg.Level()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	log := newLogger(cmd.ErrOrStderr(), cfg.LogFormat, level).With("run_id", runID)
	slog.SetDefault(log)

	log.Debug("configuration loaded",
		"config", opts.ConfigPath,
		"retention_days", cfg.RetentionDays,
		"missing_policy", cfg.MissingPolicy,
		"store_dir", cfg.StoreDir,
	)

	return &runEnv{cfg: cfg, log: log, out: out, cmd: cmd}, nil
}

// newLogger builds a text or JSON slog logger writing to w.
func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// ctx returns the command context, or Background outside Execute.
func (e *runEnv) ctx() context.Context {
	if ctx := e.cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// policy resolves the missing-reference policy, letting a non-empty flag
// override the configuration.
func (e *runEnv) policy(flag string) (engine.MissingPolicy, error) {
	if flag != "" {
		e.cfg.MissingPolicy = flag
	}
	p, err := e.cfg.Policy()
	if err != nil {
		return 0, e.out.Fail(ExitCommandError, ErrCodeConfig, "invalid missing policy", err)
	}
	return p, nil
}

// engineOptions returns engine options for policy with progress logged
// every ProgressEvery objects.
func (e *runEnv) engineOptions(policy engine.MissingPolicy) engine.Options {
	return engine.Options{
		MissingPolicy: policy,
		ProgressEvery: e.cfg.ProgressEvery,
		Logger:        e.log,
		Progress: func(done, total int) {
			e.log.Info("closure progress", "done", done, "total", total)
		},
	}
}

// loadStore reads input and folds it into a store.
func (e *runEnv) loadStore(input string) (*store.Store, error) {
	records, err := source.Load(e.ctx(), input, source.Options{
		Stdin: e.cmd.InOrStdin(),
		S3: source.S3Config{
			Region:       e.cfg.S3.Region,
			Endpoint:     e.cfg.S3.Endpoint,
			UsePathStyle: e.cfg.S3.PathStyle,
		},
		Canonicalizer: e.cfg.Canonicalizer(),
		Logger:        e.log,
	})
	if err != nil {
		return nil, e.out.Fail(ExitCommandError, classifyLoadError(err), "failed to load records", err)
	}

	return store.Build(records, store.Config{
		Canonicalizer: e.cfg.Canonicalizer(),
		Logger:        e.log,
	}), nil
}
