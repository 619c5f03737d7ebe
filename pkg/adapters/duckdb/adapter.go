// Package duckdb reads and writes trip record files through an embedded
// DuckDB instance.
//
// CSV files are read with read_csv_auto, Parquet with read_parquet and
// Excel workbooks with read_xlsx from the excel extension. Batches are
// written back with an Appender followed by COPY ... TO.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/marcboeker/go-duckdb"

	"github.com/leapstack-labs/tripguard/pkg/core"
)

// Format is a file encoding DuckDB can read and write.
type Format string

// Supported formats.
const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatXLSX    Format = "xlsx"
)

// ReadOptions controls how a file is decoded.
type ReadOptions struct {
	Format Format
	// Delimiter is the CSV field separator. Empty means ",".
	Delimiter string
}

// WriteOptions controls how a batch is encoded.
type WriteOptions struct {
	Format    Format
	Delimiter string
	// Types are the declared column types. A column with no non-null
	// value is written with its declared type instead of VARCHAR.
	Types map[string]core.ColumnType
}

var errNotConnected = errors.New("database connection not established")

// Adapter wraps a DuckDB connection pool.
type Adapter struct {
	db     *sql.DB
	cfg    Config
	logger *slog.Logger
	seq    atomic.Uint64
}

// New creates a new DuckDB adapter instance.
// The logger parameter is optional (nil uses discard logger).
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{logger: logger}
}

// Connect opens DuckDB and applies extensions, secrets and settings.
// Use ":memory:" or an empty path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg Config) error {
	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.db = db
	a.cfg = cfg

	if err := a.applyParams(ctx, params); err != nil {
		_ = db.Close()
		a.db = nil
		return err
	}

	a.logger.Debug("duckdb connected", slog.String("path", path),
		slog.Int("extensions", len(params.Extensions)),
		slog.Int("secrets", len(params.Secrets)))
	return nil
}

func (a *Adapter) applyParams(ctx context.Context, p *Params) error {
	for _, ext := range p.Extensions {
		if err := a.loadExtension(ctx, ext); err != nil {
			return err
		}
	}
	for i, s := range p.Secrets {
		if err := a.Exec(ctx, buildCreateSecretSQL(s)); err != nil {
			return fmt.Errorf("failed to create secret %d (%s): %w", i, s.Type, err)
		}
	}
	for key, value := range p.Settings {
		if err := a.Exec(ctx, fmt.Sprintf("SET %s = %s", key, quoteString(value))); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", key, err)
		}
	}
	return nil
}

func (a *Adapter) loadExtension(ctx context.Context, name string) error {
	if err := a.Exec(ctx, "INSTALL "+name); err != nil {
		return fmt.Errorf("failed to install extension %s: %w", name, err)
	}
	if err := a.Exec(ctx, "LOAD "+name); err != nil {
		return fmt.Errorf("failed to load extension %s: %w", name, err)
	}
	return nil
}

// Close closes the database connection.
func (a *Adapter) Close() error {
	if a.db == nil {
		return nil
	}
	a.logger.Debug("closing database connection")
	err := a.db.Close()
	a.db = nil
	return err
}

// IsConnected returns true if the database connection is established.
func (a *Adapter) IsConnected() bool { return a.db != nil }

// Exec executes a SQL statement that doesn't return rows.
func (a *Adapter) Exec(ctx context.Context, query string) error {
	if a.db == nil {
		return errNotConnected
	}
	if _, err := a.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// =============================================================================
// Reading
// =============================================================================

func readQuery(path string, opts ReadOptions) (string, error) {
	src := quoteString(path)
	switch opts.Format {
	case FormatCSV:
		delim := opts.Delimiter
		if delim == "" {
			delim = ","
		}
		return fmt.Sprintf("SELECT * FROM read_csv_auto(%s, header=true, delim=%s)", src, quoteString(delim)), nil
	case FormatParquet:
		return fmt.Sprintf("SELECT * FROM read_parquet(%s)", src), nil
	case FormatXLSX:
		return fmt.Sprintf("SELECT * FROM read_xlsx(%s, header=true)", src), nil
	default:
		return "", fmt.Errorf("unsupported format %q", opts.Format)
	}
}

// ReadFile decodes the file at path into a batch.
func (a *Adapter) ReadFile(ctx context.Context, path string, opts ReadOptions) (*core.Batch, error) {
	if a.db == nil {
		return nil, errNotConnected
	}
	source := path
	if !isRemote(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
		source = abs
	}
	query, err := readQuery(source, opts)
	if err != nil {
		return nil, err
	}
	if opts.Format == FormatXLSX {
		if err := a.loadExtension(ctx, "excel"); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer func() { _ = rows.Close() }()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var data [][]core.Value
	for rows.Next() {
		raw := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", len(data), err)
		}
		row := make([]core.Value, len(names))
		for i, v := range raw {
			row[i] = fromDriver(v)
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	a.logger.Debug("file read", slog.String("path", path), slog.String("format", string(opts.Format)),
		slog.Int("rows", len(data)), slog.Int("columns", len(names)),
		slog.Duration("elapsed", time.Since(start)))

	return core.BatchFromRows(names, data)
}

func isRemote(path string) bool {
	return strings.Contains(path, "://")
}

// fromDriver maps DuckDB driver values onto batch values.
func fromDriver(v any) core.Value {
	switch x := v.(type) {
	case nil:
		return nil
	case duckdb.Decimal:
		return x.Float64()
	case *big.Int:
		if x.IsInt64() {
			return x.Int64()
		}
		f, _ := new(big.Float).SetInt(x).Float64()
		return f
	case []byte:
		return string(x)
	case int8, int16, int32, int64, int, uint8, uint16, uint32, uint64, uint,
		float32, float64, string, bool, time.Time:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// =============================================================================
// Writing
// =============================================================================

// WriteFile encodes b to path in the requested format.
func (a *Adapter) WriteFile(ctx context.Context, b *core.Batch, path string, opts WriteOptions) error {
	if a.db == nil {
		return errNotConnected
	}
	copyOpts, err := copyOptions(opts)
	if err != nil {
		return err
	}
	if opts.Format == FormatXLSX {
		if err := a.loadExtension(ctx, "excel"); err != nil {
			return err
		}
	}

	conn, err := a.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	table := fmt.Sprintf("tripguard_export_%d", a.seq.Add(1))
	columns := b.Columns()
	types := make([]string, len(columns))
	defs := make([]string, len(columns))
	for i, name := range columns {
		values, _ := b.Column(name)
		types[i] = sqlType(values)
		if declared, ok := opts.Types[name]; ok && allNull(values) {
			types[i] = declaredSQLType(declared)
		}
		defs[i] = quoteIdent(name) + " " + types[i]
	}

	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
	if _, err := conn.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create export table: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "DROP TABLE IF EXISTS "+quoteIdent(table))
	}()

	if err := a.appendBatch(conn, table, b, types); err != nil {
		return err
	}

	stmt := fmt.Sprintf("COPY %s TO %s (%s)", quoteIdent(table), quoteString(path), copyOpts)
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	a.logger.Debug("file written", slog.String("path", path), slog.String("format", string(opts.Format)),
		slog.Int("rows", b.NumRows()))
	return nil
}

func copyOptions(opts WriteOptions) (string, error) {
	switch opts.Format {
	case FormatCSV:
		delim := opts.Delimiter
		if delim == "" {
			delim = ","
		}
		return "FORMAT CSV, HEADER, DELIMITER " + quoteString(delim), nil
	case FormatParquet:
		return "FORMAT PARQUET", nil
	case FormatXLSX:
		return "FORMAT XLSX, HEADER true", nil
	default:
		return "", fmt.Errorf("unsupported format %q", opts.Format)
	}
}

func (a *Adapter) appendBatch(conn *sql.Conn, table string, b *core.Batch, types []string) error {
	return conn.Raw(func(driverConn any) error {
		dc, ok := driverConn.(driver.Conn)
		if !ok {
			return errors.New("unexpected driver connection type")
		}
		app, err := duckdb.NewAppenderFromConn(dc, "", table)
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}

		row := make([]driver.Value, len(types))
		for r := 0; r < b.NumRows(); r++ {
			for c, v := range b.Row(r) {
				row[c] = toDriver(v, types[c])
			}
			if err := app.AppendRow(row...); err != nil {
				_ = app.Close()
				return fmt.Errorf("failed to append row %d: %w", r, err)
			}
		}
		if err := app.Close(); err != nil {
			return fmt.Errorf("failed to flush appender: %w", err)
		}
		return nil
	})
}

// sqlType picks the narrowest column type that holds every value.
func sqlType(values []core.Value) string {
	var ints, floats, strs, bools, times, other int
	for _, v := range values {
		if core.IsNull(v) {
			continue
		}
		switch v.(type) {
		case int8, int16, int32, int64, int, uint8, uint16, uint32:
			ints++
		case float32, float64, uint64, uint:
			floats++
		case string:
			strs++
		case bool:
			bools++
		case time.Time:
			times++
		default:
			other++
		}
	}
	total := ints + floats + strs + bools + times + other
	switch {
	case total == 0, strs+other > 0:
		return "VARCHAR"
	case ints == total:
		return "BIGINT"
	case ints+floats == total:
		return "DOUBLE"
	case bools == total:
		return "BOOLEAN"
	case times == total:
		return "TIMESTAMP"
	default:
		return "VARCHAR"
	}
}

func allNull(values []core.Value) bool {
	for _, v := range values {
		if !core.IsNull(v) {
			return false
		}
	}
	return true
}

// declaredSQLType maps a schema column type to its DuckDB type.
func declaredSQLType(t core.ColumnType) string {
	switch t {
	case core.TypeInteger:
		return "BIGINT"
	case core.TypeFloat:
		return "DOUBLE"
	case core.TypeTimestamp:
		return "TIMESTAMP"
	case core.TypeBoolean:
		return "BOOLEAN"
	default:
		return "VARCHAR"
	}
}

// toDriver converts v to the Go type the appender expects for sqlType.
func toDriver(v core.Value, sqlType string) driver.Value {
	if core.IsNull(v) {
		return nil
	}
	switch sqlType {
	case "BIGINT":
		if i, ok := v.(int64); ok {
			return i
		}
		f, _ := core.AsFloat(v)
		return int64(f)
	case "DOUBLE":
		f, _ := core.AsFloat(v)
		return f
	case "BOOLEAN", "TIMESTAMP":
		return v
	default:
		return core.Format(v)
	}
}
