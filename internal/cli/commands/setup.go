// Package commands implements the tripguard subcommands.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tripguard/internal/cli/config"
	"github.com/leapstack-labs/tripguard/internal/cli/output"
	"github.com/leapstack-labs/tripguard/internal/engine"
	"github.com/leapstack-labs/tripguard/internal/state"
	"github.com/leapstack-labs/tripguard/pkg/correlation"
	"github.com/leapstack-labs/tripguard/pkg/schema"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	mode, err := output.ParseMode(cfg.OutputFormat)
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}, nil
}

// getConfig returns the configuration loaded by the root command.
func getConfig() (*config.Config, error) {
	cfg := config.GetCurrentConfig()
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}

// buildSchema resolves the active contract: the schema file when one is
// configured, the named preset otherwise. Coerce and strict from the
// configuration override the contract's own settings.
func buildSchema(cfg *config.Config) (*schema.Schema, error) {
	var (
		s   *schema.Schema
		err error
	)
	if cfg.UsesSchemaFile() {
		s, err = schema.Load(cfg.SchemaFile)
	} else {
		s, err = schema.Preset(cfg.Schema)
	}
	if err != nil {
		return nil, err
	}
	return s.With(schema.WithCoerce(cfg.Coerce), schema.WithStrict(cfg.Strict))
}

// openSinks opens the schema and correlation failure logs under cfg.LogDir.
// The returned function closes both files.
func openSinks(cfg *config.Config) (engine.Sinks, func(), error) {
	if err := os.MkdirAll(cfg.LogDir, 0o750); err != nil {
		return engine.Sinks{}, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	open := func(name string) (*slog.Logger, error) {
		f, err := os.OpenFile(filepath.Join(cfg.LogDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", name, err)
		}
		files = append(files, f)
		return slog.New(newHandler(f, cfg.LogFormat)), nil
	}

	schemaLog, err := open(config.SchemaLogFile)
	if err != nil {
		closeAll()
		return engine.Sinks{}, nil, err
	}
	corrLog, err := open(config.CorrelationLogFile)
	if err != nil {
		closeAll()
		return engine.Sinks{}, nil, err
	}
	return engine.Sinks{Schema: schemaLog, Correlation: corrLog}, closeAll, nil
}

func newHandler(w io.Writer, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// openStore opens the run history database.
func openStore(cfg *config.Config, logger *slog.Logger) (*state.SQLiteStore, error) {
	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return store, nil
}

// createEngine wires an engine from the configuration. The returned
// function releases the sinks and the state store.
func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, func(), error) {
	s, err := buildSchema(cfg)
	if err != nil {
		return nil, nil, err
	}

	sinks, closeSinks, err := openSinks(cfg)
	if err != nil {
		return nil, nil, err
	}

	var recorder engine.Recorder
	cleanup := closeSinks
	if cfg.StatePath != "" {
		store, err := openStore(cfg, logger)
		if err != nil {
			closeSinks()
			return nil, nil, err
		}
		recorder = store
		cleanup = func() {
			_ = store.Close()
			closeSinks()
		}
	}

	eng, err := engine.New(engine.Config{
		Schema:          s,
		SchemaName:      cfg.SchemaName(),
		ExpectedColumns: cfg.ExpectedColumns,
		Target:          cfg.Target,
		Thresholds:      &cfg.CorrelationThresholds,
		Scorer:          correlation.PPS{SampleSize: cfg.SampleSize, Seed: cfg.RandomSeed},
		Sinks:           sinks,
		Recorder:        recorder,
		Logger:          logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return eng, cleanup, nil
}

// CompleteSchemas completes preset names for --schema.
func CompleteSchemas(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return schema.PresetNames(), cobra.ShellCompDirectiveNoFileComp
}
