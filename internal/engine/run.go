package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/tripguard/pkg/core"
)

// Outcome is the result of one validation run. Fields are filled as far as
// the run got; Batch is nil whenever the run failed.
type Outcome struct {
	RunID       string
	Batch       *core.Batch
	Report      *core.Report
	Correlation *core.CorrelationResult
	Repair      Repair
	RowsIn      int
	RowsOut     int
	Elapsed     time.Duration
}

// Status classifies a finished run.
func (o *Outcome) Status(err error) core.RunStatus {
	switch {
	case err != nil:
		return core.RunStatusFailed
	case o.Report != nil && !o.Report.Empty(), o.Repair.Removed() > 0:
		return core.RunStatusRepaired
	default:
		return core.RunStatusPassed
	}
}

// RunValidation checks column presence, validates and repairs b, and runs
// the correlation guard on the repaired batch.
//
// A missing column stops the run before any check. An unresolved schema
// violation or a correlation breach fails the run; the returned Outcome
// then carries the report and scores but no batch.
func (e *Engine) RunValidation(ctx context.Context, b *core.Batch) (*Outcome, error) {
	start := time.Now()
	out := &Outcome{RowsIn: b.NumRows()}
	defer func() { out.Elapsed = time.Since(start) }()

	if missing := missingColumns(b, e.expectedColumns); len(missing) > 0 {
		e.sinks.Schema.Error("missing expected columns", slog.Any("missing", missing))
		return out, &core.MissingColumnsError{Missing: missing}
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	clean, report, rep, err := e.validateAndRepair(b)
	out.Report = report
	out.Repair = rep
	if err != nil {
		return out, err
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	result, err := e.guard.Check(clean)
	out.Correlation = result
	if err != nil {
		var thresholdErr *core.CorrelationThresholdError
		if errors.As(err, &thresholdErr) {
			for _, br := range thresholdErr.Breaches {
				e.sinks.Correlation.Error("correlation threshold exceeded",
					slog.String("kind", string(br.Kind)),
					slog.String("feature", br.Feature),
					slog.Float64("score", br.Score),
					slog.Float64("threshold", br.Threshold),
					slog.Float64("excess", br.Excess()))
			}
			return out, err
		}
		return out, fmt.Errorf("correlation guard failed: %w", err)
	}

	out.Batch = clean
	out.RowsOut = clean.NumRows()
	e.logger.Info("validation passed",
		slog.Int("rows_in", out.RowsIn),
		slog.Int("rows_out", out.RowsOut),
		slog.Int("failures", report.Len()))
	return out, nil
}

// Run is RunValidation with run history: the run is recorded under source
// together with its failures and scores when a Recorder is configured.
// Recording errors are logged and never change the validation result.
func (e *Engine) Run(ctx context.Context, source string, b *core.Batch) (*Outcome, error) {
	if e.recorder == nil {
		return e.RunValidation(ctx, b)
	}

	run, err := e.recorder.CreateRun(source, e.schemaName, e.guard.Target())
	if err != nil {
		e.logger.Warn("failed to record run", slog.String("error", err.Error()))
		return e.RunValidation(ctx, b)
	}
	e.logger.Debug("created run", slog.String("run_id", run.ID))

	out, runErr := e.RunValidation(ctx, b)
	out.RunID = run.ID

	if out.Report != nil {
		if err := e.recorder.SaveFailures(run.ID, out.Report.Failures()); err != nil {
			e.logger.Warn("failed to record failures", slog.String("run_id", run.ID), slog.String("error", err.Error()))
		}
	}
	if out.Correlation != nil {
		if err := e.recorder.SaveScores(run.ID, core.ScoresOf(out.Correlation)); err != nil {
			e.logger.Warn("failed to record scores", slog.String("run_id", run.ID), slog.String("error", err.Error()))
		}
	}

	summary := core.RunSummary{Status: out.Status(runErr), RowsIn: out.RowsIn, RowsOut: out.RowsOut}
	if runErr != nil {
		summary.Error = runErr.Error()
	}
	if err := e.recorder.CompleteRun(run.ID, summary); err != nil {
		e.logger.Warn("failed to complete run", slog.String("run_id", run.ID), slog.String("error", err.Error()))
	}
	return out, runErr
}
