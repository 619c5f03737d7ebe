package core

import (
	"encoding/json"
	"sort"
)

// =============================================================================
// FailureCase
// =============================================================================

// FailureCase is one recorded contract violation.
//
// A nil RowIndex marks a table-wide violation that is not attributable to a
// single row. An empty Column marks a violation that spans columns.
type FailureCase struct {
	RowIndex *int   `json:"row_index"`
	Column   string `json:"column,omitempty"`
	Check    string `json:"check"`
	Scope    Scope  `json:"scope"`
	Value    Value  `json:"failure_value,omitempty"`
}

// RowFailure creates a failure attributed to a row.
func RowFailure(row int, column, check string, scope Scope, value Value) FailureCase {
	r := row
	return FailureCase{RowIndex: &r, Column: column, Check: check, Scope: scope, Value: value}
}

// TableFailure creates a failure that is not attributed to any row.
func TableFailure(column, check string, scope Scope, value Value) FailureCase {
	return FailureCase{Column: column, Check: check, Scope: scope, Value: value}
}

// HasRow reports whether the failure names a concrete row.
func (f FailureCase) HasRow() bool { return f.RowIndex != nil }

// Row returns the row index, or -1 for table-wide failures.
func (f FailureCase) Row() int {
	if f.RowIndex == nil {
		return -1
	}
	return *f.RowIndex
}

// less orders failures by (row_index, column, check); table-wide failures first.
func (f FailureCase) less(o FailureCase) bool {
	if f.Row() != o.Row() {
		return f.Row() < o.Row()
	}
	if f.Column != o.Column {
		return f.Column < o.Column
	}
	return f.Check < o.Check
}

// SortFailures stable-sorts failures by (row_index, column, check).
func SortFailures(cases []FailureCase) {
	sort.SliceStable(cases, func(i, j int) bool { return cases[i].less(cases[j]) })
}

// =============================================================================
// Report
// =============================================================================

// Report is the immutable result of one schema validation pass.
type Report struct {
	failures []FailureCase
}

// NewReport builds a report from collected failures. The input is copied
// and sorted so that report order does not depend on evaluation order.
func NewReport(cases []FailureCase) *Report {
	failures := append([]FailureCase(nil), cases...)
	SortFailures(failures)
	return &Report{failures: failures}
}

// Failures returns a copy of the recorded failures in report order.
func (r *Report) Failures() []FailureCase {
	if r == nil {
		return nil
	}
	return append([]FailureCase(nil), r.failures...)
}

// Len returns the number of failures.
func (r *Report) Len() int {
	if r == nil {
		return 0
	}
	return len(r.failures)
}

// Empty reports whether no failure was recorded.
func (r *Report) Empty() bool { return r.Len() == 0 }

// RowIndices returns the distinct row indices named by failures, ascending.
func (r *Report) RowIndices() []int {
	if r == nil {
		return nil
	}
	seen := make(map[int]struct{})
	var rows []int
	for _, f := range r.failures {
		if !f.HasRow() {
			continue
		}
		if _, ok := seen[*f.RowIndex]; ok {
			continue
		}
		seen[*f.RowIndex] = struct{}{}
		rows = append(rows, *f.RowIndex)
	}
	sort.Ints(rows)
	return rows
}

// TableFailures returns the failures that name no row.
func (r *Report) TableFailures() []FailureCase {
	if r == nil {
		return nil
	}
	var out []FailureCase
	for _, f := range r.failures {
		if !f.HasRow() {
			out = append(out, f)
		}
	}
	return out
}

// CountByCheck returns the number of failures per check description.
func (r *Report) CountByCheck() map[string]int {
	counts := make(map[string]int)
	if r == nil {
		return counts
	}
	for _, f := range r.failures {
		counts[f.Check]++
	}
	return counts
}

// MarshalJSON renders the report as a list of failure cases.
func (r *Report) MarshalJSON() ([]byte, error) {
	failures := r.Failures()
	if failures == nil {
		failures = []FailureCase{}
	}
	return json.Marshal(struct {
		Failures []FailureCase `json:"failures"`
	}{Failures: failures})
}
