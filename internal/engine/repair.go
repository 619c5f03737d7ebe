package engine

import (
	"log/slog"

	"github.com/leapstack-labs/tripguard/pkg/core"
)

// Repair describes what ValidateAndRepair removed.
type Repair struct {
	// Flagged are rows named by a failure, as indices of the input batch.
	Flagged int `json:"flagged"`
	// Duplicates and Empty are rows removed by the final pass.
	Duplicates int `json:"duplicates"`
	Empty      int `json:"empty"`
}

// Removed is the total number of rows dropped.
func (r Repair) Removed() int { return r.Flagged + r.Duplicates + r.Empty }

// ValidateAndRepair validates b against the schema and drops every row a
// failure names, then every exact duplicate and fully-null row. It returns
// the surviving coerced batch and the report of the first pass.
//
// The surviving batch is validated again. Anything still reported there,
// table failures included, is returned as a *core.UnresolvedViolationError
// along with the report.
func (e *Engine) ValidateAndRepair(b *core.Batch) (*core.Batch, *core.Report, error) {
	clean, report, _, err := e.validateAndRepair(b)
	return clean, report, err
}

func (e *Engine) validateAndRepair(b *core.Batch) (*core.Batch, *core.Report, Repair, error) {
	result := e.schema.Apply(b)
	e.logFailures(result.Report.Failures())

	var rep Repair
	flagged := result.Report.RowIndices()
	rep.Flagged = len(flagged)
	clean := result.Batch.DropRows(flagged)

	dups := clean.DuplicateRows()
	rep.Duplicates = len(dups)
	clean = clean.DropRows(dups)

	empty := clean.EmptyRows()
	rep.Empty = len(empty)
	clean = clean.DropRows(empty)

	e.logger.Debug("batch repaired",
		slog.Int("rows_in", b.NumRows()),
		slog.Int("failures", result.Report.Len()),
		slog.Int("flagged_rows", rep.Flagged),
		slog.Int("duplicate_rows", rep.Duplicates),
		slog.Int("empty_rows", rep.Empty),
		slog.Int("rows_out", clean.NumRows()))

	if result.Report.Empty() {
		return clean, result.Report, rep, nil
	}

	recheck := e.schema.Validate(clean)
	if !recheck.Empty() {
		remaining := recheck.Failures()
		for _, f := range remaining {
			e.sinks.Schema.Error("unresolved schema violation", failureAttrs(f)...)
		}
		return clean, result.Report, rep, &core.UnresolvedViolationError{Failures: remaining}
	}
	return clean, result.Report, rep, nil
}

func (e *Engine) logFailures(failures []core.FailureCase) {
	for _, f := range failures {
		e.sinks.Schema.Warn("schema violation", failureAttrs(f)...)
	}
}

func failureAttrs(f core.FailureCase) []any {
	attrs := make([]any, 0, 5)
	if f.HasRow() {
		attrs = append(attrs, slog.Int("row", f.Row()))
	}
	if f.Column != "" {
		attrs = append(attrs, slog.String("column", f.Column))
	}
	attrs = append(attrs,
		slog.String("check", f.Check),
		slog.String("scope", f.Scope.String()),
		slog.String("value", core.Format(f.Value)))
	return attrs
}
