package schema

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/tripguard/pkg/core"
)

// evaluateElements applies ok to every non-null value and records a failure
// for each value that does not satisfy it.
func evaluateElements(in Input, description string, ok func(core.Value) bool) []core.FailureCase {
	var out []core.FailureCase
	for i, v := range in.Values {
		if core.IsNull(v) {
			continue
		}
		if !ok(v) {
			out = append(out, core.RowFailure(i, in.Column, description, core.ScopeElement, v))
		}
	}
	return out
}

// =============================================================================
// RangeCheck
// =============================================================================

// RangeCheck compares every value against a single bound.
// Values that cannot be ordered against the bound fail.
type RangeCheck struct {
	Op      Operator
	Bound   core.Value
	Message string
}

// GE returns a check requiring values >= bound.
func GE(bound core.Value) *RangeCheck { return &RangeCheck{Op: OpGE, Bound: bound} }

// GT returns a check requiring values > bound.
func GT(bound core.Value) *RangeCheck { return &RangeCheck{Op: OpGT, Bound: bound} }

// LE returns a check requiring values <= bound.
func LE(bound core.Value) *RangeCheck { return &RangeCheck{Op: OpLE, Bound: bound} }

// LT returns a check requiring values < bound.
func LT(bound core.Value) *RangeCheck { return &RangeCheck{Op: OpLT, Bound: bound} }

func (c *RangeCheck) Kind() Kind {
	switch c.Op {
	case OpGT:
		return KindGT
	case OpLE:
		return KindLE
	case OpLT:
		return KindLT
	default:
		return KindGE
	}
}

func (c *RangeCheck) Scope() core.Scope { return core.ScopeElement }

func (c *RangeCheck) Description() string {
	return orDefault(c.Message, fmt.Sprintf("%s(%s)", c.Op.verb(), formatLiteral(c.Bound)))
}

func (c *RangeCheck) Evaluate(in Input) []core.FailureCase {
	return evaluateElements(in, c.Description(), func(v core.Value) bool {
		cmp, ok := core.Compare(v, c.Bound)
		return ok && c.Op.holds(cmp)
	})
}

// =============================================================================
// BetweenCheck
// =============================================================================

// BetweenCheck requires values to lie within [Min, Max]. Either end can be
// made exclusive.
type BetweenCheck struct {
	Min        core.Value
	Max        core.Value
	ExcludeMin bool
	ExcludeMax bool
	Message    string
}

// Between returns an inclusive range check.
func Between(lo, hi core.Value) *BetweenCheck { return &BetweenCheck{Min: lo, Max: hi} }

func (c *BetweenCheck) Kind() Kind        { return KindBetween }
func (c *BetweenCheck) Scope() core.Scope { return core.ScopeElement }

func (c *BetweenCheck) Description() string {
	return orDefault(c.Message, fmt.Sprintf("in_range(%s, %s)", formatLiteral(c.Min), formatLiteral(c.Max)))
}

func (c *BetweenCheck) Evaluate(in Input) []core.FailureCase {
	lower, upper := OpGE, OpLE
	if c.ExcludeMin {
		lower = OpGT
	}
	if c.ExcludeMax {
		upper = OpLT
	}
	return evaluateElements(in, c.Description(), func(v core.Value) bool {
		lo, ok := core.Compare(v, c.Min)
		if !ok || !lower.holds(lo) {
			return false
		}
		hi, ok := core.Compare(v, c.Max)
		return ok && upper.holds(hi)
	})
}

// =============================================================================
// IsInCheck
// =============================================================================

// IsInCheck requires every value to be one of Allowed. Numbers match by
// value, so 1 and 1.0 are the same member.
type IsInCheck struct {
	Allowed []core.Value
	Message string
}

// IsIn returns a set-membership check.
func IsIn(allowed ...core.Value) *IsInCheck { return &IsInCheck{Allowed: allowed} }

func (c *IsInCheck) Kind() Kind        { return KindIsIn }
func (c *IsInCheck) Scope() core.Scope { return core.ScopeElement }

func (c *IsInCheck) Description() string {
	if c.Message != "" {
		return c.Message
	}
	parts := make([]string, len(c.Allowed))
	for i, v := range c.Allowed {
		parts[i] = formatLiteral(v)
	}
	return "isin([" + strings.Join(parts, ", ") + "])"
}

func (c *IsInCheck) Evaluate(in Input) []core.FailureCase {
	members := make(map[string]struct{}, len(c.Allowed))
	for _, v := range c.Allowed {
		members[core.Key(v)] = struct{}{}
	}
	return evaluateElements(in, c.Description(), func(v core.Value) bool {
		_, ok := members[core.Key(v)]
		return ok
	})
}

// =============================================================================
// NullFractionCheck
// =============================================================================

// NullFractionCheck is a column aggregate bounding the share of null
// values. An empty column passes.
type NullFractionCheck struct {
	Max     float64
	Message string
}

// NullFraction returns a check requiring at most max (a fraction in [0,1])
// of the column to be null.
func NullFraction(maxFraction float64) *NullFractionCheck {
	return &NullFractionCheck{Max: maxFraction}
}

func (c *NullFractionCheck) Kind() Kind        { return KindNullFraction }
func (c *NullFractionCheck) Scope() core.Scope { return core.ScopeColumn }

func (c *NullFractionCheck) Description() string {
	return orDefault(c.Message, fmt.Sprintf("null_fraction(<= %s)", core.Format(c.Max)))
}

func (c *NullFractionCheck) Evaluate(in Input) []core.FailureCase {
	if len(in.Values) == 0 {
		return nil
	}
	nulls := 0
	for _, v := range in.Values {
		if core.IsNull(v) {
			nulls++
		}
	}
	fraction := float64(nulls) / float64(len(in.Values))
	if fraction <= c.Max {
		return nil
	}
	return []core.FailureCase{core.TableFailure(in.Column, c.Description(), core.ScopeColumn, fraction)}
}

var (
	_ Check = (*RangeCheck)(nil)
	_ Check = (*BetweenCheck)(nil)
	_ Check = (*IsInCheck)(nil)
	_ Check = (*NullFractionCheck)(nil)
)
