package correlation

import (
	"math"
	"sort"

	"github.com/leapstack-labs/tripguard/pkg/core"
)

// ColumnKind classifies a column for scoring.
type ColumnKind int

// Column kinds.
const (
	// Numeric columns are regression targets and ordered features.
	Numeric ColumnKind = iota
	// Categorical columns (strings, booleans) are classification targets
	// and label-encoded features.
	Categorical
	// Unsupported columns (timestamps, mixed kinds) are not scored.
	Unsupported
)

func (k ColumnKind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return "unsupported"
	}
}

// Column is a batch column encoded for scoring. Null cells are NaN.
type Column struct {
	Name   string
	Kind   ColumnKind
	Values []float64
}

// Encode converts column values for scoring.
//
// Numeric values are kept as float64. Strings and booleans are label
// encoded in sorted key order. Timestamps and columns mixing numbers with
// other kinds are Unsupported. A column with no values is Numeric.
func Encode(name string, values []core.Value) Column {
	col := Column{Name: name, Kind: Numeric, Values: make([]float64, len(values))}

	numeric, categorical := 0, 0
	for _, v := range values {
		if core.IsNull(v) {
			continue
		}
		switch v.(type) {
		case bool, string, []byte:
			categorical++
			continue
		}
		if _, ok := core.AsFloat(v); ok {
			numeric++
			continue
		}
		col.Kind = Unsupported
		return col
	}

	switch {
	case numeric > 0 && categorical > 0:
		col.Kind = Unsupported
	case categorical > 0:
		col.Kind = Categorical
		encodeLabels(values, col.Values)
	default:
		for i, v := range values {
			f, ok := core.AsFloat(v)
			if !ok {
				f = math.NaN()
			}
			col.Values[i] = f
		}
	}
	return col
}

func encodeLabels(values []core.Value, out []float64) {
	keys := make(map[string]int)
	for _, v := range values {
		if !core.IsNull(v) {
			keys[core.Key(v)] = 0
		}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)
	for i, k := range sorted {
		keys[k] = i
	}
	for i, v := range values {
		if core.IsNull(v) {
			out[i] = math.NaN()
			continue
		}
		out[i] = float64(keys[core.Key(v)])
	}
}
