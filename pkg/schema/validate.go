package schema

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/tripguard/pkg/core"
)

// Structural check descriptions.
const (
	notNullableCheck   = "not_nullable"
	missingColumnCheck = "column_in_dataframe"
	unknownColumnCheck = "column_in_schema"
)

// Result is a validation report together with the coerced batch the
// checks were evaluated on.
type Result struct {
	// Batch holds the input with every declared column converted to its
	// type. Values that could not be converted are null.
	Batch  *core.Batch
	Report *core.Report
}

// Validate evaluates the schema against b and returns every violation.
func (s *Schema) Validate(b *core.Batch) *core.Report {
	return s.Apply(b).Report
}

// Apply coerces b and evaluates every column and table check.
//
// Columns are processed concurrently, then table checks run concurrently
// on the coerced batch. The report order depends only on the failures,
// never on scheduling. b is not modified.
func (s *Schema) Apply(b *core.Batch) *Result {
	limit := runtime.GOMAXPROCS(0)

	// Phase 1: per-column coercion and checks.
	columnFailures := make([][]core.FailureCase, len(s.columns))
	coerced := make([][]core.Value, len(s.columns))

	var g errgroup.Group
	g.SetLimit(limit)
	for i := range s.columns {
		g.Go(func() error {
			coerced[i], columnFailures[i] = s.evaluateColumn(b, s.columns[i])
			return nil
		})
	}
	_ = g.Wait()

	var failures []core.FailureCase
	for _, fc := range columnFailures {
		failures = append(failures, fc...)
	}
	failures = append(failures, s.unknownColumns(b)...)

	out := b
	for i, col := range s.columns {
		if coerced[i] == nil {
			continue
		}
		next, err := out.WithColumn(col.Name, coerced[i])
		if err == nil {
			out = next
		}
	}

	// Phase 2: table checks over the coerced batch.
	tableFailures := make([][]core.FailureCase, len(s.tableChecks))
	var tg errgroup.Group
	tg.SetLimit(limit)
	for i, c := range s.tableChecks {
		tg.Go(func() error {
			tableFailures[i] = c.Evaluate(Input{Batch: out})
			return nil
		})
	}
	_ = tg.Wait()

	for _, fc := range tableFailures {
		failures = append(failures, fc...)
	}

	return &Result{Batch: out, Report: core.NewReport(failures)}
}

// evaluateColumn coerces one column and runs its checks. A nil value slice
// means the column is absent from the batch.
func (s *Schema) evaluateColumn(b *core.Batch, col ColumnSpec) ([]core.Value, []core.FailureCase) {
	raw, ok := b.Column(col.Name)
	if !ok {
		return nil, []core.FailureCase{
			core.TableFailure(col.Name, missingColumnCheck, core.ScopeColumn, col.Name),
		}
	}

	var failures []core.FailureCase
	values := make([]core.Value, len(raw))
	desc := coerceDescription(col.Type, s.coerce)
	for i, v := range raw {
		cv, ok := convert(v, col.Type, s.coerce)
		if !ok {
			failures = append(failures, core.RowFailure(i, col.Name, desc, core.ScopeElement, v))
			continue
		}
		values[i] = cv
		if cv == nil && !col.Nullable {
			failures = append(failures, core.RowFailure(i, col.Name, notNullableCheck, core.ScopeElement, nil))
		}
	}

	in := Input{Batch: b, Column: col.Name, Values: values}
	for _, c := range col.Checks {
		failures = append(failures, c.Evaluate(in)...)
	}
	return values, failures
}

// unknownColumns reports undeclared batch columns in strict mode.
func (s *Schema) unknownColumns(b *core.Batch) []core.FailureCase {
	if !s.strict {
		return nil
	}
	var out []core.FailureCase
	for _, name := range b.Columns() {
		if _, ok := s.index[name]; !ok {
			out = append(out, core.TableFailure(name, unknownColumnCheck, core.ScopeTable, name))
		}
	}
	return out
}
