// Package config loads tripguard CLI configuration.
//
// Values are layered with koanf: built-in defaults, then tripguard.yaml,
// then TRIPGUARD_* environment variables, then explicitly set flags.
package config

import (
	"github.com/leapstack-labs/tripguard/pkg/core"
)

// Config holds all CLI configuration options.
type Config struct {
	DataPath              string          `koanf:"data_path"`
	Delimiter             string          `koanf:"delimiter"`
	OutputPath            string          `koanf:"output_path"`
	ExpectedColumns       []string        `koanf:"expected_columns"`
	Target                string          `koanf:"target"`
	CorrelationThresholds core.Thresholds `koanf:"correlation_thresholds"`
	Schema                string          `koanf:"schema"`
	SchemaFile            string          `koanf:"schema_file"`
	Coerce                bool            `koanf:"coerce"`
	Strict                bool            `koanf:"strict"`
	LogDir                string          `koanf:"log_dir"`
	LogFormat             string          `koanf:"log_format"`
	StatePath             string          `koanf:"state_path"`
	Verbose               bool            `koanf:"verbose"`
	OutputFormat          string          `koanf:"output"`
	SampleSize            int             `koanf:"sample_size"`
	RandomSeed            uint64          `koanf:"random_seed"`
	// DuckDB holds extensions, secrets and settings for the embedded
	// database used to read and write data files.
	DuckDB map[string]any `koanf:"duckdb"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultDataPath   = "data/raw/yellow_tripdata_2024-01.csv"
	DefaultDelimiter  = ","
	DefaultTarget     = "VendorID"
	DefaultSchema     = "taxi"
	DefaultLogDir     = "logs"
	DefaultLogFormat  = "text"
	DefaultStateFile  = ".tripguard/state.db"
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultSampleSize = 5000
	DefaultRandomSeed = 123
)

// Log file names under LogDir.
const (
	SchemaLogFile      = "validation_errors.log"
	CorrelationLogFile = "correlation_errors.log"
)

// ConfigFileNames are searched in the project root, in order.
var ConfigFileNames = []string{"tripguard.yaml", "tripguard.yml"}

// UsesSchemaFile reports whether the contract comes from SchemaFile. A
// schema file takes precedence over the preset named by Schema.
func (c *Config) UsesSchemaFile() bool { return c.SchemaFile != "" }

// SchemaName labels the active contract: the schema file path or the
// preset name.
func (c *Config) SchemaName() string {
	if c.UsesSchemaFile() {
		return c.SchemaFile
	}
	return c.Schema
}
