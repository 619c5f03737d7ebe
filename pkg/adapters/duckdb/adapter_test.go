package duckdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/tripguard/pkg/core"
)

func connect(t *testing.T) *Adapter {
	t.Helper()
	adp := New(nil)
	require.NoError(t, adp.Connect(context.Background(), Config{Path: ":memory:"}))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		verify    func(t *testing.T, path string)
	}{
		{
			name:      "in-memory",
			setupPath: func(_ *testing.T) string { return ":memory:" },
		},
		{
			name: "file-based",
			setupPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "scratch.duckdb")
			},
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adp := New(nil)
			path := tt.setupPath(t)
			require.NoError(t, adp.Connect(context.Background(), Config{Path: path}))
			defer func() { _ = adp.Close() }()

			assert.True(t, adp.IsConnected())
			if tt.verify != nil {
				tt.verify(t, path)
			}
		})
	}
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	assert.Error(t, adp.Exec(ctx, "SELECT 1"))
	_, err := adp.ReadFile(ctx, "trips.csv", ReadOptions{Format: FormatCSV})
	assert.Error(t, err)
	assert.Error(t, adp.WriteFile(ctx, core.MustBatchFromRows(nil, nil), "out.csv", WriteOptions{Format: FormatCSV}))
	assert.NoError(t, adp.Close())
}

func TestAdapter_ConnectRejectsUnknownParams(t *testing.T) {
	adp := New(nil)
	err := adp.Connect(context.Background(), Config{Params: map[string]any{"extentions": []any{"httpfs"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duckdb params")
	assert.False(t, adp.IsConnected())
}

func TestAdapter_ConnectWithSettings(t *testing.T) {
	adp := New(nil)
	cfg := Config{Params: map[string]any{"settings": map[string]any{"threads": "2"}}}
	require.NoError(t, adp.Connect(context.Background(), cfg))
	defer func() { _ = adp.Close() }()

	var threads string
	require.NoError(t, adp.db.QueryRow("SELECT current_setting('threads')").Scan(&threads))
	assert.Equal(t, "2", threads)
}

func TestAdapter_ReadCSV(t *testing.T) {
	adp := connect(t)
	path := filepath.Join(t.TempDir(), "trips.csv")
	content := "VendorID;trip_distance;store_and_fwd_flag;tpep_pickup_datetime\n" +
		"1;1.5;N;2024-01-01 00:57:55\n" +
		"2;;Y;2024-01-01 01:03:00\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	b, err := adp.ReadFile(context.Background(), path, ReadOptions{Format: FormatCSV, Delimiter: ";"})
	require.NoError(t, err)

	assert.Equal(t, []string{"VendorID", "trip_distance", "store_and_fwd_flag", "tpep_pickup_datetime"}, b.Columns())
	require.Equal(t, 2, b.NumRows())

	vendor, _ := b.Column("VendorID")
	f, ok := core.AsFloat(vendor[1])
	require.True(t, ok)
	assert.Equal(t, 2.0, f)

	dist, _ := b.Column("trip_distance")
	assert.Equal(t, 1.5, dist[0])
	assert.Nil(t, dist[1])

	flag, _ := b.Column("store_and_fwd_flag")
	assert.Equal(t, "N", flag[0])

	pickup, _ := b.Column("tpep_pickup_datetime")
	ts, ok := pickup[0].(time.Time)
	require.True(t, ok)
	assert.Equal(t, 57, ts.Minute())
}

func TestAdapter_WriteAndReadBack(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 57, 55, 0, time.UTC)
	b := core.MustBatchFromRows(
		[]string{"VendorID", "fare_amount", "store_and_fwd_flag", "tpep_pickup_datetime"},
		[][]core.Value{
			{int64(1), 10.5, "N", ts},
			{int64(2), nil, "It's", ts.Add(time.Hour)},
		})

	for _, format := range []Format{FormatCSV, FormatParquet} {
		t.Run(string(format), func(t *testing.T) {
			adp := connect(t)
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "out."+string(format))

			require.NoError(t, adp.WriteFile(ctx, b, path, WriteOptions{Format: format}))

			got, err := adp.ReadFile(ctx, path, ReadOptions{Format: format})
			require.NoError(t, err)
			assert.Equal(t, b.Columns(), got.Columns())
			require.Equal(t, 2, got.NumRows())

			fare, _ := got.Column("fare_amount")
			assert.Equal(t, 10.5, fare[0])
			assert.Nil(t, fare[1])

			flag, _ := got.Column("store_and_fwd_flag")
			assert.Equal(t, "It's", flag[1])
		})
	}
}

func TestAdapter_WriteAllNullColumnKeepsDeclaredType(t *testing.T) {
	b := core.MustBatchFromRows([]string{"VendorID", "fare_amount", "note"}, [][]core.Value{
		{int64(1), nil, nil},
		{int64(2), nil, nil},
	})
	adp := connect(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out.parquet")

	require.NoError(t, adp.WriteFile(ctx, b, path, WriteOptions{
		Format: FormatParquet,
		Types:  map[string]core.ColumnType{"fare_amount": core.TypeFloat},
	}))

	tests := []struct {
		column string
		want   string
	}{
		{column: "VendorID", want: "BIGINT"},
		{column: "fare_amount", want: "DOUBLE"},
		{column: "note", want: "VARCHAR"},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			query := fmt.Sprintf(
				"SELECT CASE WHEN typeof(%s) <> '%s' THEN error('unexpected type ' || typeof(%s)) END FROM read_parquet(%s)",
				quoteIdent(tt.column), tt.want, quoteIdent(tt.column), quoteString(path))
			assert.NoError(t, adp.Exec(ctx, query))
		})
	}

	got, err := adp.ReadFile(ctx, path, ReadOptions{Format: FormatParquet})
	require.NoError(t, err)
	fare, _ := got.Column("fare_amount")
	assert.Equal(t, []core.Value{nil, nil}, fare)
}

func TestDeclaredSQLType(t *testing.T) {
	tests := []struct {
		typ  core.ColumnType
		want string
	}{
		{typ: core.TypeInteger, want: "BIGINT"},
		{typ: core.TypeFloat, want: "DOUBLE"},
		{typ: core.TypeString, want: "VARCHAR"},
		{typ: core.TypeTimestamp, want: "TIMESTAMP"},
		{typ: core.TypeBoolean, want: "BOOLEAN"},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, declaredSQLType(tt.typ))
		})
	}
}

func TestAdapter_UnsupportedFormat(t *testing.T) {
	adp := connect(t)
	_, err := adp.ReadFile(context.Background(), "trips.json", ReadOptions{Format: "json"})
	assert.Error(t, err)
}

func TestSQLType(t *testing.T) {
	tests := []struct {
		name   string
		values []core.Value
		want   string
	}{
		{name: "integers", values: []core.Value{int64(1), int32(2), nil}, want: "BIGINT"},
		{name: "mixed numbers", values: []core.Value{int64(1), 2.5}, want: "DOUBLE"},
		{name: "strings", values: []core.Value{"a", int64(1)}, want: "VARCHAR"},
		{name: "booleans", values: []core.Value{true, false}, want: "BOOLEAN"},
		{name: "timestamps", values: []core.Value{time.Now()}, want: "TIMESTAMP"},
		{name: "all null", values: []core.Value{nil, nil}, want: "VARCHAR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sqlType(tt.values))
		})
	}
}

func TestReadQuery(t *testing.T) {
	q, err := readQuery("/data/o'neil.csv", ReadOptions{Format: FormatCSV})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM read_csv_auto('/data/o''neil.csv', header=true, delim=',')", q)

	q, err = readQuery("/data/trips.parquet", ReadOptions{Format: FormatParquet})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM read_parquet('/data/trips.parquet')", q)
}
