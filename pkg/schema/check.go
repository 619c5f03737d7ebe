package schema

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/tripguard/pkg/core"
)

// Kind identifies one of the supported check variants.
type Kind string

// Supported check kinds.
const (
	KindGE              Kind = "ge"
	KindGT              Kind = "gt"
	KindLE              Kind = "le"
	KindLT              Kind = "lt"
	KindBetween         Kind = "between"
	KindIsIn            Kind = "isin"
	KindNullFraction    Kind = "null_fraction"
	KindNoDuplicateRows Kind = "no_duplicate_rows"
	KindNoEmptyRows     Kind = "no_empty_rows"
	KindCompare         Kind = "compare"
)

// Kinds returns every supported kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindGE, KindGT, KindLE, KindLT, KindBetween, KindIsIn,
		KindNullFraction, KindNoDuplicateRows, KindNoEmptyRows, KindCompare,
	}
}

// Input is what a check is evaluated against.
//
// Column and Values are set for column-bound checks and hold the coerced
// values of that column. Batch is always the coerced batch.
type Input struct {
	Batch  *core.Batch
	Column string
	Values []core.Value
}

// Check is a pure predicate over a value, a column or a whole batch.
//
// Evaluate returns one FailureCase per violating row for element checks
// and at most one unattributed FailureCase for aggregate checks.
type Check interface {
	Kind() Kind
	Scope() core.Scope
	Description() string
	Evaluate(in Input) []core.FailureCase
}

// =============================================================================
// Operator
// =============================================================================

// Operator is a comparison used by range and compare checks.
type Operator string

// Comparison operators.
const (
	OpLT Operator = "lt"
	OpLE Operator = "le"
	OpEQ Operator = "eq"
	OpNE Operator = "ne"
	OpGE Operator = "ge"
	OpGT Operator = "gt"
)

// ParseOperator converts a string to an Operator. Symbolic forms such as
// "<=" are accepted.
func ParseOperator(s string) (Operator, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "lt", "<":
		return OpLT, nil
	case "le", "<=":
		return OpLE, nil
	case "eq", "==", "=":
		return OpEQ, nil
	case "ne", "!=", "<>":
		return OpNE, nil
	case "ge", ">=":
		return OpGE, nil
	case "gt", ">":
		return OpGT, nil
	default:
		return "", fmt.Errorf("unknown comparison operator %q", s)
	}
}

// holds reports whether cmp, the result of comparing a to b, satisfies a op b.
func (o Operator) holds(cmp int) bool {
	switch o {
	case OpLT:
		return cmp < 0
	case OpLE:
		return cmp <= 0
	case OpEQ:
		return cmp == 0
	case OpNE:
		return cmp != 0
	case OpGE:
		return cmp >= 0
	case OpGT:
		return cmp > 0
	default:
		return false
	}
}

// verb returns the descriptive name used in failure descriptions.
func (o Operator) verb() string {
	switch o {
	case OpLT:
		return "less_than"
	case OpLE:
		return "less_than_or_equal_to"
	case OpEQ:
		return "equal_to"
	case OpNE:
		return "not_equal_to"
	case OpGE:
		return "greater_than_or_equal_to"
	case OpGT:
		return "greater_than"
	default:
		return string(o)
	}
}

// symbol returns the infix symbol of the operator.
func (o Operator) symbol() string {
	switch o {
	case OpLT:
		return "<"
	case OpLE:
		return "<="
	case OpEQ:
		return "=="
	case OpNE:
		return "!="
	case OpGE:
		return ">="
	case OpGT:
		return ">"
	default:
		return string(o)
	}
}

// formatLiteral renders a check parameter the way failure descriptions show it.
func formatLiteral(v core.Value) string {
	if s, ok := v.(string); ok {
		return "'" + s + "'"
	}
	return core.Format(v)
}

func orDefault(message, fallback string) string {
	if message != "" {
		return message
	}
	return fallback
}
