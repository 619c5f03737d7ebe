// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/tripguard/internal/cli/output"
)

// TripsCSV is a small trip file: row 1 has a negative distance and row 3
// repeats row 2.
const TripsCSV = `trip_distance,fare_amount,tip_amount
2.0,10.0,1.0
-1.0,5.0,0.5
3.0,5.0,0.0
3.0,5.0,0.0
4.0,15.0,2.0
`

// TripsSchema declares the columns of TripsCSV.
const TripsSchema = `columns:
  - name: trip_distance
    type: float
    checks:
      - {kind: ge, value: 0}
  - name: fare_amount
    type: float
    checks:
      - {kind: ge, value: 0}
  - name: tip_amount
    type: float
    nullable: true
table_checks:
  - {kind: no_duplicate_rows}
  - {kind: no_empty_rows}
`

// SetupTestProject creates a temporary project with a trip file, a schema
// file and a tripguard.yaml pointing at both. Extra config lines are
// appended to the YAML. It returns the project root.
func SetupTestProject(t *testing.T, extraConfig string) string {
	t.Helper()

	root := t.TempDir()
	for _, dir := range []string{filepath.Join(root, "data", "raw"), filepath.Join(root, "schemas")} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}

	files := map[string]string{
		filepath.Join(root, "data", "raw", "trips.csv"): TripsCSV,
		filepath.Join(root, "schemas", "trips.yaml"):    TripsSchema,
		filepath.Join(root, "tripguard.yaml"): `data_path: data/raw/trips.csv
schema_file: schemas/trips.yaml
target: fare_amount
` + extraConfig,
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}

	return root
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	if fenceCount := strings.Count(md, "```"); fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
