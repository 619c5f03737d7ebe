package schema

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/tripguard/pkg/core"
)

// ColumnSpec is the contract for one column.
type ColumnSpec struct {
	Name        string
	Type        core.ColumnType
	Nullable    bool
	Checks      []Check
	Description string
}

// Schema is a read-only set of column contracts plus table-level checks.
type Schema struct {
	columns     []ColumnSpec
	index       map[string]int
	tableChecks []Check
	coerce      bool
	strict      bool
}

// Option configures a Schema.
type Option func(*Schema)

// WithCoerce controls whether representable values are converted to the
// column type. Coercion is on by default.
func WithCoerce(coerce bool) Option {
	return func(s *Schema) { s.coerce = coerce }
}

// WithStrict reports batch columns that the schema does not declare.
func WithStrict(strict bool) Option {
	return func(s *Schema) { s.strict = strict }
}

// WithTableChecks appends table-level checks.
func WithTableChecks(checks ...Check) Option {
	return func(s *Schema) { s.tableChecks = append(s.tableChecks, checks...) }
}

// New builds a schema. Column names must be unique, column checks must be
// element or column scoped and table checks must be table scoped.
func New(columns []ColumnSpec, opts ...Option) (*Schema, error) {
	s := &Schema{
		index:  make(map[string]int, len(columns)),
		coerce: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	var errs []error
	for i, col := range columns {
		if col.Name == "" {
			errs = append(errs, fmt.Errorf("column %d: name is required", i))
			continue
		}
		if _, dup := s.index[col.Name]; dup {
			errs = append(errs, fmt.Errorf("column %q: declared more than once", col.Name))
			continue
		}
		for _, c := range col.Checks {
			if c == nil {
				errs = append(errs, fmt.Errorf("column %q: nil check", col.Name))
			} else if c.Scope() == core.ScopeTable {
				errs = append(errs, fmt.Errorf("column %q: %s is a table check", col.Name, c.Kind()))
			}
		}
		col.Checks = append([]Check(nil), col.Checks...)
		s.index[col.Name] = len(s.columns)
		s.columns = append(s.columns, col)
	}
	for _, c := range s.tableChecks {
		if c == nil {
			errs = append(errs, errors.New("nil table check"))
		} else if c.Scope() != core.ScopeTable {
			errs = append(errs, fmt.Errorf("table check %s is %s scoped", c.Kind(), c.Scope()))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid schema: %w", errors.Join(errs...))
	}
	return s, nil
}

// MustNew is New that panics on error. Intended for presets and tests.
func MustNew(columns []ColumnSpec, opts ...Option) *Schema {
	s, err := New(columns, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// With returns a copy of s with opts applied. s is not modified. The
// copy is checked the same way New checks a schema.
func (s *Schema) With(opts ...Option) (*Schema, error) {
	base := []Option{
		WithCoerce(s.coerce),
		WithStrict(s.strict),
		WithTableChecks(s.tableChecks...),
	}
	return New(s.columns, append(base, opts...)...)
}

// Columns returns the column specs in declaration order.
func (s *Schema) Columns() []ColumnSpec {
	return append([]ColumnSpec(nil), s.columns...)
}

// ColumnNames returns the declared column names in declaration order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// ColumnTypes maps each declared column to its type.
func (s *Schema) ColumnTypes() map[string]core.ColumnType {
	types := make(map[string]core.ColumnType, len(s.columns))
	for _, c := range s.columns {
		types[c.Name] = c.Type
	}
	return types
}

// Column returns the spec for a column.
func (s *Schema) Column(name string) (ColumnSpec, bool) {
	i, ok := s.index[name]
	if !ok {
		return ColumnSpec{}, false
	}
	return s.columns[i], true
}

// TableChecks returns the table-level checks in declaration order.
func (s *Schema) TableChecks() []Check {
	return append([]Check(nil), s.tableChecks...)
}

// Coerce reports whether values are coerced to column types.
func (s *Schema) Coerce() bool { return s.coerce }

// Strict reports whether undeclared batch columns are violations.
func (s *Schema) Strict() bool { return s.strict }
