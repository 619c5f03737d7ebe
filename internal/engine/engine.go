// Package engine orchestrates a validation run: column presence, schema
// validation with row repair, and the correlation guard.
package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/tripguard/pkg/core"
	"github.com/leapstack-labs/tripguard/pkg/correlation"
	"github.com/leapstack-labs/tripguard/pkg/schema"
)

// Sinks are the two failure channels of a run. Schema receives one record
// per FailureCase and Correlation one record per threshold breach, so data
// quality defects and structural leakage end up in different places.
type Sinks struct {
	Schema      *slog.Logger
	Correlation *slog.Logger
}

// Recorder persists run history. It is implemented by *state.SQLiteStore.
type Recorder interface {
	CreateRun(source, schemaName, target string) (*core.Run, error)
	CompleteRun(id string, summary core.RunSummary) error
	SaveFailures(runID string, failures []core.FailureCase) error
	SaveScores(runID string, scores []core.StoredScore) error
}

// Engine validates batches. It holds no per-run state, so one Engine may
// serve concurrent runs.
type Engine struct {
	schema          *schema.Schema
	schemaName      string
	expectedColumns []string
	guard           *correlation.Guard
	sinks           Sinks
	recorder        Recorder
	logger          *slog.Logger
}

// Config holds engine configuration.
type Config struct {
	// Schema is the data contract. Required.
	Schema *schema.Schema
	// SchemaName labels recorded runs (preset name or schema file).
	SchemaName string
	// ExpectedColumns must all be present before any check runs.
	// Defaults to the schema's column names.
	ExpectedColumns []string
	// Target is the column the correlation guard protects. Required.
	Target string
	// Thresholds bound the predictive power scores. Nil means
	// core.DefaultThresholds().
	Thresholds *core.Thresholds
	// Scorer computes predictive power (optional, defaults to correlation.DefaultPPS).
	Scorer correlation.Scorer
	// Sinks receive failure records. Nil loggers discard.
	Sinks Sinks
	// Recorder stores run history (optional).
	Recorder Recorder
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Schema == nil {
		return nil, errors.New("engine requires a schema")
	}

	thresholds := core.DefaultThresholds()
	if cfg.Thresholds != nil {
		thresholds = *cfg.Thresholds
	}

	opts := []correlation.Option{correlation.WithLogger(logger)}
	if cfg.Scorer != nil {
		opts = append(opts, correlation.WithScorer(cfg.Scorer))
	}
	guard, err := correlation.NewGuard(cfg.Target, thresholds, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create correlation guard: %w", err)
	}

	expected := cfg.ExpectedColumns
	if len(expected) == 0 {
		expected = cfg.Schema.ColumnNames()
	}

	return &Engine{
		schema:          cfg.Schema,
		schemaName:      cfg.SchemaName,
		expectedColumns: append([]string(nil), expected...),
		guard:           guard,
		sinks:           Sinks{Schema: orDiscard(cfg.Sinks.Schema), Correlation: orDiscard(cfg.Sinks.Correlation)},
		recorder:        cfg.Recorder,
		logger:          logger,
	}, nil
}

func orDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}

// Schema returns the engine's data contract.
func (e *Engine) Schema() *schema.Schema { return e.schema }

// ExpectedColumns returns the columns checked by CheckColumnsPresent.
func (e *Engine) ExpectedColumns() []string {
	return append([]string(nil), e.expectedColumns...)
}

// Target returns the protected column.
func (e *Engine) Target() string { return e.guard.Target() }

// Thresholds returns the correlation thresholds in effect.
func (e *Engine) Thresholds() core.Thresholds { return e.guard.Thresholds() }

// CheckColumnsPresent fails with a *core.MissingColumnsError when any of
// expected is absent from b. Missing names keep the order of expected.
func CheckColumnsPresent(b *core.Batch, expected []string) error {
	if missing := missingColumns(b, expected); len(missing) > 0 {
		return &core.MissingColumnsError{Missing: missing}
	}
	return nil
}

func missingColumns(b *core.Batch, expected []string) []string {
	var missing []string
	seen := make(map[string]struct{}, len(expected))
	for _, name := range expected {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if !b.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	return missing
}
