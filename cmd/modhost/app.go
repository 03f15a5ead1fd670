// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/modhost/modhost/internal/config"
	"github.com/modhost/modhost/internal/decoders"
	"github.com/modhost/modhost/internal/engine"
	"github.com/modhost/modhost/internal/issue"
	"github.com/modhost/modhost/internal/registry"
	"github.com/modhost/modhost/pkg/resource"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: every Cobra handler receives an App and builds
	// its engine session through it.
	App struct {
		Config   ConfigProvider
		Decoders DecoderFactory
		stdout   io.Writer
		stderr   io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config   ConfigProvider
		Decoders DecoderFactory
		Stdout   io.Writer
		Stderr   io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// DecoderFactory returns a fresh dispatcher for each engine.
	DecoderFactory func() *resource.Dispatcher

	// rootFlagValues holds the persistent flags shared by every subcommand.
	rootFlagValues struct {
		verbose    bool
		configPath string
		modsDir    string
	}

	// session is the per-invocation state: resolved configuration, loggers
	// and the engine over the mods directory.
	session struct {
		cfg    *config.Config
		logger *log.Logger
		slog   *slog.Logger
		engine *engine.Engine
	}
)

// NewApp creates an App, filling nil dependencies with defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:   deps.Config,
		Decoders: deps.Decoders,
		stdout:   deps.Stdout,
		stderr:   deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.Decoders == nil {
		app.Decoders = decoders.NewDispatcher
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

// loadConfig loads configuration honoring the --config and --mods flags.
func (a *App) loadConfig(ctx context.Context, flags *rootFlagValues) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		return nil, err
	}
	if flags.modsDir != "" {
		cfg.ModsDir = flags.modsDir
	}
	return cfg, nil
}

// newSession loads configuration and builds an engine over the mods
// directory. Packages are not loaded yet.
func (a *App) newSession(ctx context.Context, flags *rootFlagValues) (*session, error) {
	cfg, err := a.loadConfig(ctx, flags)
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(cfg.ModsDir)
	if err != nil {
		return nil, fmt.Errorf("resolve mods directory %s: %w", cfg.ModsDir, err)
	}
	if info, statErr := os.Stat(root); statErr != nil || !info.IsDir() {
		if statErr == nil {
			statErr = errors.New("not a directory")
		}
		return nil, issue.NewErrorContext().
			WithOperation("open mods directory").
			WithResource(root).
			WithSuggestion("Create the directory or point --mods at an existing one").
			WithSuggestion("Set mods_dir in the config file or MODHOST_MODS_DIR").
			WithIssue(issue.ModsDirNotFoundId).
			Wrap(statErr).
			BuildError()
	}

	logger := newLogger(a.stderr, cfg.Log, flags.verbose)
	slogger := slog.New(logger)
	e := engine.New(registry.New(), a.Decoders(), engine.Options{
		Root:               root,
		Logger:             slogger,
		Disabled:           cfg.Packages.Disabled,
		RevalidateOnUnload: cfg.Packages.RevalidateOnUnload,
	})
	return &session{cfg: cfg, logger: logger, slog: slogger, engine: e}, nil
}

// startSession builds a session and loads and imports every package. The
// startup report is returned for commands that render it.
func (a *App) startSession(ctx context.Context, flags *rootFlagValues) (*session, engine.Report, error) {
	s, err := a.newSession(ctx, flags)
	if err != nil {
		return nil, engine.Report{}, err
	}
	rep, err := s.engine.Start(ctx)
	if err != nil {
		return nil, rep, err
	}
	return s, rep, nil
}

// newLogger builds the charm logger backing both the CLI and, through its
// slog.Handler implementation, the engine. verbose forces debug level.
func newLogger(w io.Writer, cfg config.LogConfig, verbose bool) *log.Logger {
	level := cfg.Level.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	formatter := log.TextFormatter
	if cfg.Format == config.LogFormatJSON {
		formatter = log.JSONFormatter
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           log.Level(level),
		Formatter:       formatter,
	})
}
