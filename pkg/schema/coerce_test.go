package schema

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/tripguard/pkg/core"
)

func TestConvert(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 57, 55, 0, time.UTC)

	tests := []struct {
		name   string
		in     core.Value
		typ    core.ColumnType
		coerce bool
		want   core.Value
		wantOK bool
	}{
		{name: "int from string", in: " 42 ", typ: core.TypeInteger, coerce: true, want: int64(42), wantOK: true},
		{name: "int from integral float", in: 3.0, typ: core.TypeInteger, coerce: true, want: int64(3), wantOK: true},
		{name: "int from float string", in: "3.0", typ: core.TypeInteger, coerce: true, want: int64(3), wantOK: true},
		{name: "int rejects fraction", in: 3.5, typ: core.TypeInteger, coerce: true, wantOK: false},
		{name: "int widens int32", in: int32(7), typ: core.TypeInteger, want: int64(7), wantOK: true},
		{name: "int rejects 2^63 string", in: "9223372036854775808", typ: core.TypeInteger, coerce: true, wantOK: false},
		{name: "int rejects 2^63 float", in: 0x1p63, typ: core.TypeInteger, coerce: true, wantOK: false},
		{name: "int accepts -2^63 float", in: -0x1p63, typ: core.TypeInteger, coerce: true, want: int64(math.MinInt64), wantOK: true},
		{name: "int keeps max int64 string", in: "9223372036854775807", typ: core.TypeInteger, coerce: true, want: int64(math.MaxInt64), wantOK: true},
		{name: "uint64 overflow", in: uint64(math.MaxUint64), typ: core.TypeInteger, coerce: true, wantOK: false},
		{name: "float from int", in: int64(2), typ: core.TypeFloat, want: 2.0, wantOK: true},
		{name: "float NaN string is null", in: "NaN", typ: core.TypeFloat, coerce: true, want: nil, wantOK: true},
		{name: "empty string is null", in: "", typ: core.TypeFloat, coerce: true, want: nil, wantOK: true},
		{name: "float rejects text", in: "ten", typ: core.TypeFloat, coerce: true, wantOK: false},
		{name: "string from int", in: int64(186), typ: core.TypeString, coerce: true, want: "186", wantOK: true},
		{name: "string strict rejects number", in: 1.5, typ: core.TypeString, wantOK: false},
		{name: "bytes become string", in: []byte("N"), typ: core.TypeString, want: "N", wantOK: true},
		{name: "timestamp sql layout", in: "2024-01-01 00:57:55", typ: core.TypeTimestamp, coerce: true, want: ts, wantOK: true},
		{name: "timestamp us layout", in: "01/01/2024 12:57:55 AM", typ: core.TypeTimestamp, coerce: true, want: ts, wantOK: true},
		{name: "timestamp rejects junk", in: "yesterday", typ: core.TypeTimestamp, coerce: true, wantOK: false},
		{name: "timestamp native", in: ts, typ: core.TypeTimestamp, want: ts, wantOK: true},
		{name: "bool from Y", in: "Y", typ: core.TypeBoolean, coerce: true, want: true, wantOK: true},
		{name: "bool from zero", in: int64(0), typ: core.TypeBoolean, coerce: true, want: false, wantOK: true},
		{name: "bool rejects two", in: int64(2), typ: core.TypeBoolean, coerce: true, wantOK: false},
		{name: "nil stays null", in: nil, typ: core.TypeInteger, want: nil, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := convert(tt.in, tt.typ, tt.coerce)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
