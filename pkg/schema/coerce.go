package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/tripguard/pkg/core"
)

// timestampLayouts are tried in order when parsing timestamp strings.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 03:04:05 PM",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"2006-01-02",
	"01/02/2006",
}

// coerceDescription is the failure description for a value that cannot be
// represented in the column type.
func coerceDescription(t core.ColumnType, coerce bool) string {
	if coerce {
		return fmt.Sprintf("coerce_dtype('%s')", t.DType())
	}
	return fmt.Sprintf("dtype('%s')", t.DType())
}

// convert maps v onto the canonical representation of t.
//
// With coerce set, strings and other representable values are converted.
// Without it only values already of the type's kind are accepted, though
// numeric widths are still normalized. Empty strings and NaN become null.
func convert(v core.Value, t core.ColumnType, coerce bool) (core.Value, bool) {
	if core.IsNull(v) {
		return nil, true
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if p, ok := v.(*time.Time); ok {
		v = *p
	}
	if s, ok := v.(string); ok && coerce {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, true
		}
		v = s
	}

	switch t {
	case core.TypeInteger:
		return toInteger(v, coerce)
	case core.TypeFloat:
		return toFloat(v, coerce)
	case core.TypeString:
		return toString(v, coerce)
	case core.TypeTimestamp:
		return toTimestamp(v, coerce)
	case core.TypeBoolean:
		return toBoolean(v, coerce)
	default:
		return nil, false
	}
}

func isInteger(v core.Value) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func toInteger(v core.Value, coerce bool) (core.Value, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int16:
		return int64(x), true
	case int8:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return nil, false
		}
		return int64(x), true
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, false
		}
		return int64(x), true
	}
	if !coerce {
		return nil, false
	}
	switch x := v.(type) {
	case float64:
		return integral(x)
	case float32:
		return integral(float64(x))
	case string:
		if i, err := strconv.ParseInt(x, 10, 64); err == nil {
			return i, true
		}
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return nil, false
		}
		return integral(f)
	case bool:
		if x {
			return int64(1), true
		}
		return int64(0), true
	}
	return nil, false
}

// integral accepts f only when it is a whole number in [-2^63, 2^63).
// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is exclusive.
func integral(f float64) (core.Value, bool) {
	if math.IsInf(f, 0) || f != math.Trunc(f) || f >= 0x1p63 || f < -0x1p63 {
		return nil, false
	}
	return int64(f), true
}

func toFloat(v core.Value, coerce bool) (core.Value, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	if isInteger(v) {
		f, _ := core.AsFloat(v)
		return f, true
	}
	if !coerce {
		return nil, false
	}
	switch x := v.(type) {
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return nil, false
		}
		if math.IsNaN(f) {
			return nil, true
		}
		return f, true
	case bool:
		if x {
			return 1.0, true
		}
		return 0.0, true
	}
	return nil, false
}

func toString(v core.Value, coerce bool) (core.Value, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	if !coerce {
		return nil, false
	}
	switch x := v.(type) {
	case bool:
		return strconv.FormatBool(x), true
	case time.Time:
		return x.Format(time.RFC3339Nano), true
	}
	if isInteger(v) {
		i, _ := toInteger(v, false)
		if i != nil {
			return strconv.FormatInt(i.(int64), 10), true
		}
	}
	if f, ok := core.AsFloat(v); ok {
		return strconv.FormatFloat(f, 'g', -1, 64), true
	}
	return nil, false
}

func toTimestamp(v core.Value, coerce bool) (core.Value, bool) {
	if ts, ok := v.(time.Time); ok {
		return ts, true
	}
	if !coerce {
		return nil, false
	}
	s, ok := v.(string)
	if !ok {
		return nil, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return nil, false
}

func toBoolean(v core.Value, coerce bool) (core.Value, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	if !coerce {
		return nil, false
	}
	if s, ok := v.(string); ok {
		switch strings.ToLower(s) {
		case "true", "t", "yes", "y", "1":
			return true, true
		case "false", "f", "no", "n", "0":
			return false, true
		}
		return nil, false
	}
	if f, ok := core.AsFloat(v); ok {
		switch f {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	}
	return nil, false
}
