package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/tripguard/pkg/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tripguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	root, err := os.Getwd()
	require.NoError(t, err)

	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(root, DefaultDataPath), cfg.DataPath)
	assert.Equal(t, ",", cfg.Delimiter)
	assert.Equal(t, DefaultTarget, cfg.Target)
	assert.Equal(t, core.DefaultThresholds(), cfg.CorrelationThresholds)
	assert.Equal(t, DefaultSchema, cfg.Schema)
	assert.True(t, cfg.Coerce)
	assert.False(t, cfg.Strict)
	assert.Equal(t, filepath.Join(root, DefaultLogDir), cfg.LogDir)
	assert.Equal(t, filepath.Join(root, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, DefaultSampleSize, cfg.SampleSize)
	assert.Equal(t, uint64(DefaultRandomSeed), cfg.RandomSeed)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	t.Setenv("TRIPS_DIR", "/srv/trips")
	path := writeConfig(t, `
data_path: ${TRIPS_DIR}/yellow.parquet
delimiter: ";"
target: fare_amount
expected_columns: [trip_distance, fare_amount]
correlation_thresholds:
  feature_label: 0.95
  feature_feature: 0.7
schema_file: schemas/trips.yaml
strict: true
output: json
duckdb:
  extensions: [httpfs]
  secrets:
    - type: s3
      key_id: ${AWS_KEY_ID_FOR_TEST}
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	root := filepath.Dir(path)

	assert.Equal(t, path, GetConfigFileUsed())
	assert.Equal(t, "/srv/trips/yellow.parquet", cfg.DataPath)
	assert.Equal(t, ";", cfg.Delimiter)
	assert.Equal(t, "fare_amount", cfg.Target)
	assert.Equal(t, []string{"trip_distance", "fare_amount"}, cfg.ExpectedColumns)
	assert.Equal(t, core.Thresholds{FeatureLabel: 0.95, FeatureFeature: 0.7}, cfg.CorrelationThresholds)
	assert.Equal(t, filepath.Join(root, "schemas", "trips.yaml"), cfg.SchemaFile)
	assert.True(t, cfg.UsesSchemaFile())
	assert.Equal(t, cfg.SchemaFile, cfg.SchemaName())
	assert.True(t, cfg.Strict)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, []any{"httpfs"}, cfg.DuckDB["extensions"])
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeConfig(t, "target: from_file\nsample_size: 100\n")

	newFlags := func() *pflag.FlagSet {
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		fs.String("target", "", "")
		fs.Int("sample-size", 0, "")
		fs.Float64("feature-label-threshold", 0, "")
		return fs
	}

	t.Run("env overrides file", func(t *testing.T) {
		ResetConfig()
		t.Setenv("TRIPGUARD_TARGET", "from_env")
		t.Setenv("TRIPGUARD_CORRELATION_THRESHOLDS__FEATURE_FEATURE", "0.5")

		cfg, err := LoadConfig(path, newFlags())
		require.NoError(t, err)
		assert.Equal(t, "from_env", cfg.Target)
		assert.Equal(t, 100, cfg.SampleSize)
		assert.InDelta(t, 0.5, cfg.CorrelationThresholds.FeatureFeature, 1e-12)
	})

	t.Run("set flag overrides env", func(t *testing.T) {
		ResetConfig()
		t.Setenv("TRIPGUARD_TARGET", "from_env")
		fs := newFlags()
		require.NoError(t, fs.Parse([]string{"--target", "from_flag", "--feature-label-threshold", "0.75"}))

		cfg, err := LoadConfig(path, fs)
		require.NoError(t, err)
		assert.Equal(t, "from_flag", cfg.Target)
		assert.InDelta(t, 0.75, cfg.CorrelationThresholds.FeatureLabel, 1e-12)
	})

	t.Run("unset flag keeps file value", func(t *testing.T) {
		ResetConfig()
		cfg, err := LoadConfig(path, newFlags())
		require.NoError(t, err)
		assert.Equal(t, "from_file", cfg.Target)
		assert.Equal(t, 100, cfg.SampleSize)
	})
}

func TestLoadConfig_PathFlagsRelativeToWorkingDir(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, "target: fare_amount\n")
	cwd := t.TempDir()
	t.Chdir(cwd)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("data-path", "", "")
	fs.String("state", "", "")
	require.NoError(t, fs.Parse([]string{"--data-path", "trips.csv", "--state", "state.db"}))

	cfg, err := LoadConfig(path, fs)
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "trips.csv"), cfg.DataPath)
	assert.Equal(t, filepath.Join(wd, "state.db"), cfg.StatePath)
	assert.Equal(t, filepath.Join(filepath.Dir(path), DefaultLogDir), cfg.LogDir)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "threshold out of range", content: "correlation_thresholds:\n  feature_label: 1.5\n", wantErr: "feature_label threshold"},
		{name: "empty target", content: "target: \"\"\n", wantErr: "target is required"},
		{name: "long delimiter", content: "delimiter: \";;\"\n", wantErr: "single character"},
		{name: "bad output", content: "output: html\n", wantErr: "unknown output format"},
		{name: "bad log format", content: "log_format: xml\n", wantErr: "log_format"},
		{name: "malformed yaml", content: "target: [\n", wantErr: "error reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			_, err := LoadConfig(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	ResetConfig()
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestFindProjectRootUpward(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "data", "raw")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "tripguard.yml"), []byte("{}"), 0o600))

	assert.Equal(t, root, findProjectRootUpward(nested))
	assert.Empty(t, findProjectRootUpward(t.TempDir()))
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TRIPGUARD_TEST_ONE", "one")

	tests := []struct {
		in   string
		want string
	}{
		{in: "${TRIPGUARD_TEST_ONE}/x", want: "one/x"},
		{in: "${TRIPGUARD_TEST_UNSET}", want: "${TRIPGUARD_TEST_UNSET}"},
		{in: "plain", want: "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnvVars(tt.in))
		})
	}

	params := map[string]any{
		"secrets":  []any{map[string]any{"secret": "${TRIPGUARD_TEST_ONE}"}},
		"settings": map[string]any{"threads": 4},
	}
	expandParamEnvVars(params)
	assert.Equal(t, "one", params["secrets"].([]any)[0].(map[string]any)["secret"])
	assert.Equal(t, 4, params["settings"].(map[string]any)["threads"])
}

func TestResolvePathRelativeTo(t *testing.T) {
	assert.Equal(t, "", resolvePathRelativeTo("", "/root"))
	assert.Equal(t, "/abs/x.csv", resolvePathRelativeTo("/abs/x.csv", "/root"))
	assert.Equal(t, "s3://bucket/x.parquet", resolvePathRelativeTo("s3://bucket/x.parquet", "/root"))
	assert.Equal(t, filepath.Join("/root", "x.csv"), resolvePathRelativeTo("x.csv", "/root"))
}
