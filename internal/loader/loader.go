// Package loader resolves trip record files to a format by extension and
// moves batches in and out of them through DuckDB.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/tripguard/pkg/adapters/duckdb"
	"github.com/leapstack-labs/tripguard/pkg/core"
)

// SupportedFormats lists the accepted file extensions.
var SupportedFormats = []string{"csv", "parquet", "xlsx"}

// DetectFormat maps a file extension onto a format.
// Unsupported extensions return a *core.FormatError.
func DetectFormat(path string) (duckdb.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv":
		return duckdb.FormatCSV, nil
	case ".parquet":
		return duckdb.FormatParquet, nil
	case ".xlsx":
		return duckdb.FormatXLSX, nil
	default:
		return "", &core.FormatError{Path: path, Extension: ext, Supported: SupportedFormats}
	}
}

// OutputPath returns the default destination for the cleaned version of
// src: data/processed/<name>_validated.<ext> under root.
func OutputPath(root, src string) string {
	base := filepath.Base(src)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(root, "data", "processed", stem+"_validated"+strings.ToLower(ext))
}

// Options configures a Loader.
type Options struct {
	// Delimiter is the CSV field separator. Empty means ",".
	Delimiter string
	// DuckDB configures the embedded database used for decoding.
	DuckDB duckdb.Config
	Logger *slog.Logger
}

// Loader reads and writes batches. It owns one DuckDB connection.
type Loader struct {
	adapter   *duckdb.Adapter
	delimiter string
	logger    *slog.Logger
}

// Open connects the embedded database.
func Open(ctx context.Context, opts Options) (*Loader, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	adp := duckdb.New(logger)
	if err := adp.Connect(ctx, opts.DuckDB); err != nil {
		return nil, fmt.Errorf("failed to open loader: %w", err)
	}
	return &Loader{adapter: adp, delimiter: opts.Delimiter, logger: logger}, nil
}

// Close releases the database connection.
func (l *Loader) Close() error {
	return l.adapter.Close()
}

// Load decodes the file at path. The format is resolved from the extension
// before the file is touched, so an unsupported extension fails with a
// *core.FormatError. Decode failures are returned as *core.LoadError.
func (l *Loader) Load(ctx context.Context, path string) (*core.Batch, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(path, "://") {
		if _, err := os.Stat(path); err != nil {
			return nil, &core.LoadError{Path: path, Err: err}
		}
	}

	b, err := l.adapter.ReadFile(ctx, path, duckdb.ReadOptions{Format: format, Delimiter: l.delimiter})
	if err != nil {
		return nil, &core.LoadError{Path: path, Err: err}
	}
	l.logger.Info("data loaded", slog.String("path", path), slog.String("format", string(format)),
		slog.Int("rows", b.NumRows()), slog.Int("columns", b.NumColumns()))
	return b, nil
}

// Save encodes b to path in the format implied by its extension, creating
// parent directories as needed. types gives the declared column types used
// for columns that hold only nulls; nil infers every column.
func (l *Loader) Save(ctx context.Context, b *core.Batch, path string, types map[string]core.ColumnType) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := l.adapter.WriteFile(ctx, b, path, duckdb.WriteOptions{Format: format, Delimiter: l.delimiter, Types: types}); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	l.logger.Info("data saved", slog.String("path", path), slog.Int("rows", b.NumRows()))
	return nil
}
