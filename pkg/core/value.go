package core

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Value is a single cell. A nil Value is null.
//
// Batches produced by schema coercion hold only int64, float64, string,
// time.Time, bool or nil. Raw batches coming from a loader may hold any
// driver type.
type Value = any

// IsNull reports whether v is a missing value (nil or a NaN float).
func IsNull(v Value) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	case *time.Time:
		return x == nil
	default:
		return false
	}
}

// AsFloat converts numeric values to float64.
// Booleans, strings and timestamps are not numeric.
func AsFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x)
	case float32:
		return float64(x), !math.IsNaN(float64(x))
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int16:
		return float64(x), true
	case int8:
		return float64(x), true
	case uint64:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint:
		return float64(x), true
	default:
		return 0, false
	}
}

// asInt converts integer kinds that fit in int64.
func asInt(v Value) (int64, bool) {
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
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint:
		if uint64(x) > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	default:
		return 0, false
	}
}

// numeric classifies a number. isInt is set for integer kinds and for
// floats holding an integral value inside the int64 range.
func numeric(v Value) (i int64, f float64, isInt, ok bool) {
	if i, ok := asInt(v); ok {
		return i, float64(i), true, true
	}
	f, ok = AsFloat(v)
	if !ok {
		return 0, 0, false, false
	}
	if f == math.Trunc(f) && f >= -0x1p63 && f < 0x1p63 {
		return int64(f), f, true, true
	}
	return 0, f, false, true
}

// Key returns a canonical string for v, used for equality across rows.
// Numbers compare by value regardless of width, so 1 and 1.0 share a key.
// Integers are keyed exactly, never through float64.
func Key(v Value) string {
	if IsNull(v) {
		return "\x00null"
	}
	if u, ok := v.(uint64); ok && u > math.MaxInt64 {
		return "n:" + strconv.FormatUint(u, 10)
	}
	if i, _, isInt, ok := numeric(v); ok {
		if isInt {
			return "n:" + strconv.FormatInt(i, 10)
		}
		f, _ := AsFloat(v)
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	switch x := v.(type) {
	case string:
		return "s:" + x
	case bool:
		return "b:" + strconv.FormatBool(x)
	case time.Time:
		return "t:" + strconv.FormatInt(x.UnixNano(), 10)
	case []byte:
		return "s:" + string(x)
	default:
		return fmt.Sprintf("%T:%v", v, v)
	}
}

// Compare orders two non-null values of compatible kinds.
// It returns ok=false when the values cannot be ordered against each other.
// Two integral numbers are compared as int64 so large values keep their
// precision.
func Compare(a, b Value) (int, bool) {
	if ia, fa, aInt, ok := numeric(a); ok {
		ib, fb, bInt, ok := numeric(b)
		if !ok {
			return 0, false
		}
		if aInt && bInt {
			return cmp.Compare(ia, ib), true
		}
		return cmp.Compare(fa, fb), true
	}
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		default:
			return 0, true
		}
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

// Format renders a value for logs and reports.
func Format(v Value) string {
	if IsNull(v) {
		return "null"
	}
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(v)
	}
}
