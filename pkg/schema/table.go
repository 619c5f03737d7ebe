package schema

import (
	"fmt"

	"github.com/leapstack-labs/tripguard/pkg/core"
)

// Table check descriptions.
const (
	DuplicateRowsMessage = "Duplicate rows found."
	EmptyRowsMessage     = "Empty rows found."
)

// NoDuplicateRowsCheck fails once, without a row attribution, when any row
// exactly repeats an earlier row. The failure value is the number of
// repeated rows.
type NoDuplicateRowsCheck struct {
	Message string
}

// NoDuplicateRows returns the duplicate-row table check.
func NoDuplicateRows() *NoDuplicateRowsCheck { return &NoDuplicateRowsCheck{} }

func (c *NoDuplicateRowsCheck) Kind() Kind        { return KindNoDuplicateRows }
func (c *NoDuplicateRowsCheck) Scope() core.Scope { return core.ScopeTable }
func (c *NoDuplicateRowsCheck) Description() string {
	return orDefault(c.Message, DuplicateRowsMessage)
}

func (c *NoDuplicateRowsCheck) Evaluate(in Input) []core.FailureCase {
	dups := in.Batch.DuplicateRows()
	if len(dups) == 0 {
		return nil
	}
	return []core.FailureCase{core.TableFailure("", c.Description(), core.ScopeTable, len(dups))}
}

// NoEmptyRowsCheck fails once, without a row attribution, when any row is
// entirely null. The failure value is the number of empty rows.
type NoEmptyRowsCheck struct {
	Message string
}

// NoEmptyRows returns the all-null-row table check.
func NoEmptyRows() *NoEmptyRowsCheck { return &NoEmptyRowsCheck{} }

func (c *NoEmptyRowsCheck) Kind() Kind        { return KindNoEmptyRows }
func (c *NoEmptyRowsCheck) Scope() core.Scope { return core.ScopeTable }
func (c *NoEmptyRowsCheck) Description() string {
	return orDefault(c.Message, EmptyRowsMessage)
}

func (c *NoEmptyRowsCheck) Evaluate(in Input) []core.FailureCase {
	empty := in.Batch.EmptyRows()
	if len(empty) == 0 {
		return nil
	}
	return []core.FailureCase{core.TableFailure("", c.Description(), core.ScopeTable, len(empty))}
}

// CompareCheck requires Left Op Right to hold on every row.
//
// Rows where either side is null are skipped. Rows whose values cannot be
// ordered against each other fail. A missing column fails once for the
// whole table.
type CompareCheck struct {
	Left    string
	Op      Operator
	Right   string
	Message string
}

// Compare returns a cross-column comparator check.
func Compare(left string, op Operator, right string) *CompareCheck {
	return &CompareCheck{Left: left, Op: op, Right: right}
}

func (c *CompareCheck) Kind() Kind        { return KindCompare }
func (c *CompareCheck) Scope() core.Scope { return core.ScopeTable }

func (c *CompareCheck) Description() string {
	return orDefault(c.Message, fmt.Sprintf("%s %s %s", c.Left, c.Op.symbol(), c.Right))
}

func (c *CompareCheck) Evaluate(in Input) []core.FailureCase {
	left, ok := in.Batch.Column(c.Left)
	if !ok {
		return []core.FailureCase{core.TableFailure(c.Left, missingColumnCheck, core.ScopeTable, c.Left)}
	}
	right, ok := in.Batch.Column(c.Right)
	if !ok {
		return []core.FailureCase{core.TableFailure(c.Right, missingColumnCheck, core.ScopeTable, c.Right)}
	}

	desc := c.Description()
	var out []core.FailureCase
	for i := range left {
		if core.IsNull(left[i]) || core.IsNull(right[i]) {
			continue
		}
		cmp, ok := core.Compare(left[i], right[i])
		if !ok || !c.Op.holds(cmp) {
			out = append(out, core.RowFailure(i, "", desc, core.ScopeTable, left[i]))
		}
	}
	return out
}

var (
	_ Check = (*NoDuplicateRowsCheck)(nil)
	_ Check = (*NoEmptyRowsCheck)(nil)
	_ Check = (*CompareCheck)(nil)
)
