package core

import "strings"

// =============================================================================
// ColumnType
// =============================================================================

// ColumnType is the logical type a column is expected to hold.
type ColumnType int

// Column types understood by schemas.
const (
	// TypeInteger holds int64 values.
	TypeInteger ColumnType = iota
	// TypeFloat holds float64 values.
	TypeFloat
	// TypeString holds string values.
	TypeString
	// TypeTimestamp holds time.Time values.
	TypeTimestamp
	// TypeBoolean holds bool values.
	TypeBoolean
)

// String returns the string representation of the column type.
func (t ColumnType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeTimestamp:
		return "timestamp"
	case TypeBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// DType returns the storage dtype name used in failure descriptions.
func (t ColumnType) DType() string {
	switch t {
	case TypeInteger:
		return "int64"
	case TypeFloat:
		return "float64"
	case TypeString:
		return "str"
	case TypeTimestamp:
		return "datetime64[ns]"
	case TypeBoolean:
		return "bool"
	default:
		return "unknown"
	}
}

// ParseColumnType converts a string to a ColumnType.
// Common aliases (int, int64, double, datetime, bool, ...) are accepted.
func ParseColumnType(s string) (ColumnType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "integer", "int", "int64", "bigint":
		return TypeInteger, true
	case "float", "float64", "double", "number":
		return TypeFloat, true
	case "string", "str", "text", "varchar":
		return TypeString, true
	case "timestamp", "datetime", "datetime64", "time":
		return TypeTimestamp, true
	case "boolean", "bool":
		return TypeBoolean, true
	default:
		return TypeString, false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t ColumnType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// =============================================================================
// Scope
// =============================================================================

// Scope tags what a check looks at: one value, one column, or the whole table.
type Scope int

// Check scopes.
const (
	// ScopeElement checks are evaluated per value.
	ScopeElement Scope = iota
	// ScopeColumn checks are evaluated over a whole column.
	ScopeColumn
	// ScopeTable checks receive the full batch.
	ScopeTable
)

// String returns the string representation of the scope.
func (s Scope) String() string {
	switch s {
	case ScopeElement:
		return "element"
	case ScopeColumn:
		return "column"
	case ScopeTable:
		return "table"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseScope converts a string to a Scope.
func ParseScope(s string) (Scope, bool) {
	switch strings.ToLower(s) {
	case "element":
		return ScopeElement, true
	case "column":
		return ScopeColumn, true
	case "table":
		return ScopeTable, true
	default:
		return ScopeElement, false
	}
}
