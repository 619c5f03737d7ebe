package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/tripguard/internal/cli/config"
	"github.com/leapstack-labs/tripguard/internal/cli/testutil"
)

// openThresholds keeps the correlation guard from failing on the tiny
// fixture, where scores are not meaningful.
const openThresholds = `correlation_thresholds:
  feature_label: 1
  feature_feature: 1
`

func execute(t *testing.T, root string, args ...string) (string, string, error) {
	t.Helper()
	t.Cleanup(config.ResetConfig)

	cmd := NewRootCmd()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append([]string{"--config", filepath.Join(root, "tripguard.yaml")}, args...))

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

type validateJSON struct {
	RunID     string `json:"run_id"`
	Status    string `json:"status"`
	RowsIn    int    `json:"rows_in"`
	RowsOut   int    `json:"rows_out"`
	Output    string `json:"output"`
	ErrorKind string `json:"error_kind"`
	Removed   struct {
		Flagged    int `json:"flagged"`
		Duplicates int `json:"duplicates"`
	} `json:"removed"`
	Failures []json.RawMessage `json:"failures"`
}

func TestValidate_RepairsAndRecords(t *testing.T) {
	root := testutil.SetupTestProject(t, openThresholds)

	stdout, _, err := execute(t, root, "validate", "-o", "json")
	require.NoError(t, err)

	var got validateJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "repaired", got.Status)
	assert.Equal(t, 5, got.RowsIn)
	assert.Equal(t, 3, got.RowsOut)
	assert.Equal(t, 1, got.Removed.Flagged)
	assert.Equal(t, 1, got.Removed.Duplicates)
	assert.Len(t, got.Failures, 2)
	assert.NotEmpty(t, got.RunID)

	wantOutput := filepath.Join(root, "data", "processed", "trips_validated.csv")
	assert.Equal(t, wantOutput, got.Output)
	assert.FileExists(t, wantOutput)

	schemaLog, err := os.ReadFile(filepath.Join(root, "logs", config.SchemaLogFile))
	require.NoError(t, err)
	assert.Contains(t, string(schemaLog), "schema violation")
	assert.Contains(t, string(schemaLog), "greater_than_or_equal_to(0)")

	t.Run("runs list", func(t *testing.T) {
		stdout, _, err := execute(t, root, "runs", "list", "-o", "markdown")
		require.NoError(t, err)
		assert.Contains(t, stdout, got.RunID)
		assert.Contains(t, stdout, "repaired")
		testutil.AssertNoANSI(t, stdout)
	})

	t.Run("runs show", func(t *testing.T) {
		stdout, _, err := execute(t, root, "runs", "show", got.RunID, "-o", "json")
		require.NoError(t, err)

		var detail struct {
			ID       string            `json:"id"`
			Status   string            `json:"status"`
			Failures []json.RawMessage `json:"failures"`
			Scores   []json.RawMessage `json:"scores"`
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &detail))
		assert.Equal(t, got.RunID, detail.ID)
		assert.Equal(t, "repaired", detail.Status)
		assert.Len(t, detail.Failures, 2)
		assert.Len(t, detail.Scores, 3, "two feature-label scores and one pair")
	})
}

func TestValidate_MarkdownSummary(t *testing.T) {
	root := testutil.SetupTestProject(t, openThresholds)

	stdout, _, err := execute(t, root, "validate", "-o", "markdown")
	require.NoError(t, err)

	assert.Contains(t, stdout, "# Validation")
	assert.Contains(t, stdout, "## Schema failures (2)")
	assert.Contains(t, stdout, "## Correlation")
	assert.Contains(t, stdout, "[warn] validation")
	testutil.AssertNoANSI(t, stdout)
	testutil.AssertValidMarkdown(t, stdout)
}

func TestValidate_MissingColumns(t *testing.T) {
	root := testutil.SetupTestProject(t, openThresholds)

	stdout, _, err := execute(t, root, "validate", "--expected-columns", "trip_distance,VendorID", "-o", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VendorID")

	var got validateJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "failed", got.Status)
	assert.Equal(t, "missing_columns", got.ErrorKind)
	assert.Empty(t, got.Output)
	assert.NoFileExists(t, filepath.Join(root, "data", "processed", "trips_validated.csv"))
}

func TestValidate_UnsupportedFormat(t *testing.T) {
	root := testutil.SetupTestProject(t, openThresholds)
	path := filepath.Join(root, "data", "raw", "trips.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	_, _, err := execute(t, root, "validate", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file format .json")
	assert.Contains(t, err.Error(), "csv, parquet, xlsx")
}

func TestValidate_InvalidConfig(t *testing.T) {
	root := testutil.SetupTestProject(t, "")

	_, _, err := execute(t, root, "validate", "--feature-label-threshold", "1.5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestSchemaShow(t *testing.T) {
	root := testutil.SetupTestProject(t, "")

	t.Run("schema file", func(t *testing.T) {
		stdout, _, err := execute(t, root, "schema", "show", "-o", "markdown")
		require.NoError(t, err)
		assert.Contains(t, stdout, "trip_distance")
		assert.Contains(t, stdout, "no_duplicate_rows")
	})

	t.Run("yaml export", func(t *testing.T) {
		stdout, _, err := execute(t, root, "schema", "show", "--yaml", "--schema-file", "", "--schema", "taxi")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(stdout, "coerce: true"), stdout)
		assert.Contains(t, stdout, "name: VendorID")
	})
}

func TestSchemaPresets(t *testing.T) {
	root := testutil.SetupTestProject(t, "")

	stdout, _, err := execute(t, root, "schema", "presets", "-o", "json")
	require.NoError(t, err)

	var names []string
	require.NoError(t, json.Unmarshal([]byte(stdout), &names))
	assert.Contains(t, names, "taxi")
	assert.Contains(t, names, "taxi_post_eda")
}

func TestVersionSkipsConfig(t *testing.T) {
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--config", "/does/not/exist.yaml", "version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "tripguard v"+Version)
}

func TestCompletion(t *testing.T) {
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetArgs([]string{"completion", "bash"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "tripguard")
}
