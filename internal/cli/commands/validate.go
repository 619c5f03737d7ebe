package commands

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tripguard/internal/cli/output"
	"github.com/leapstack-labs/tripguard/internal/engine"
	"github.com/leapstack-labs/tripguard/internal/loader"
	"github.com/leapstack-labs/tripguard/pkg/adapters/duckdb"
	"github.com/leapstack-labs/tripguard/pkg/core"
)

// maxFailureRows caps the failure table in text and markdown output.
const maxFailureRows = 50

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [data_path]",
		Short: "Validate, repair and score a trip record file",
		Long: `Load a trip record file, validate it against the configured contract,
remove offending rows, duplicates and empty rows, then run the correlation
guard on what is left.

The cleaned batch is written to --output-path, or to
data/processed/<name>_validated.<ext> under the project root. Every schema
failure goes to validation_errors.log and every threshold breach to
correlation_errors.log in the log directory.

The command fails when expected columns are missing, when a violation
survives repair, or when a correlation score exceeds its threshold.`,
		Example: `  # Validate the configured data file
  tripguard validate

  # Validate a specific file against a YAML contract
  tripguard validate data/raw/trips.parquet --schema-file schemas/trips.yaml

  # Tighten the leakage threshold and emit JSON for CI
  tripguard validate --feature-label-threshold 0.8 -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runValidate,
	}

	f := cmd.Flags()
	f.String("data-path", "", "Trip record file (csv, parquet or xlsx)")
	f.String("delimiter", "", "CSV field separator")
	f.String("output-path", "", "Destination of the cleaned data")
	f.String("target", "", "Column the correlation guard protects")
	f.StringSlice("expected-columns", nil, "Columns that must be present (default: schema columns)")
	f.Float64("feature-label-threshold", core.DefaultFeatureLabelThreshold, "Maximum feature to target score")
	f.Float64("feature-feature-threshold", core.DefaultFeatureFeatureThreshold, "Maximum feature to feature score")
	f.Bool("coerce", true, "Convert representable values to the column type")
	f.Bool("strict", false, "Report columns the schema does not declare")
	f.String("log-format", "", "Failure log format (text|json)")
	f.Int("sample-size", 0, "Rows sampled for predictive power scoring")
	f.Uint64("seed", 0, "Seed for sampling and cross-validation")

	return cmd
}

// validationView is the JSON form of a validation run.
type validationView struct {
	RunID       string                  `json:"run_id,omitempty"`
	Source      string                  `json:"source"`
	Schema      string                  `json:"schema"`
	Target      string                  `json:"target"`
	Status      core.RunStatus          `json:"status"`
	RowsIn      int                     `json:"rows_in"`
	RowsOut     int                     `json:"rows_out"`
	Removed     engine.Repair           `json:"removed"`
	Failures    []core.FailureCase      `json:"failures"`
	Correlation *core.CorrelationResult `json:"correlation,omitempty"`
	Output      string                  `json:"output,omitempty"`
	ElapsedMS   int64                   `json:"elapsed_ms"`
	Error       string                  `json:"error,omitempty"`
	ErrorKind   core.FailureKind        `json:"error_kind,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg := cc.Cfg
	ctx := cmd.Context()

	source := cfg.DataPath
	if len(args) == 1 {
		if source, err = filepath.Abs(args[0]); err != nil {
			return err
		}
	}

	eng, cleanup, err := createEngine(cfg, cc.Logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ld, err := loader.Open(ctx, loader.Options{
		Delimiter: cfg.Delimiter,
		DuckDB:    duckdb.Config{Params: cfg.DuckDB},
		Logger:    cc.Logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = ld.Close() }()

	b, err := ld.Load(ctx, source)
	if err != nil {
		return err
	}

	out, runErr := eng.Run(ctx, source, b)

	view := validationView{
		RunID:       out.RunID,
		Source:      source,
		Schema:      cfg.SchemaName(),
		Target:      eng.Target(),
		Status:      out.Status(runErr),
		RowsIn:      out.RowsIn,
		RowsOut:     out.RowsOut,
		Removed:     out.Repair,
		Correlation: out.Correlation,
		ElapsedMS:   out.Elapsed.Milliseconds(),
	}
	if out.Report != nil {
		view.Failures = out.Report.Failures()
	}
	if runErr != nil {
		view.Error = runErr.Error()
		var failure core.Failure
		if errors.As(runErr, &failure) {
			view.ErrorKind = failure.Kind()
		}
	} else {
		view.Output = cfg.OutputPath
		if view.Output == "" {
			view.Output = loader.OutputPath(cfg.ProjectRoot, source)
		}
		if err := ld.Save(ctx, out.Batch, view.Output, eng.Schema().ColumnTypes()); err != nil {
			return err
		}
	}

	if cc.Renderer.EffectiveMode() == output.ModeJSON {
		if err := cc.Renderer.JSON(view); err != nil {
			return err
		}
	} else {
		renderValidation(cc.Renderer, &view, out.Elapsed)
	}
	return runErr
}

func renderValidation(r *output.Renderer, v *validationView, elapsed time.Duration) {
	r.Header(1, "Validation")
	pairs := [][2]string{
		{"Source", v.Source},
		{"Schema", v.Schema},
		{"Target", v.Target},
	}
	if v.RunID != "" {
		pairs = append(pairs, [2]string{"Run", v.RunID})
	}
	pairs = append(pairs,
		[2]string{"Rows in", strconv.Itoa(v.RowsIn)},
		[2]string{"Rows out", strconv.Itoa(v.RowsOut)},
		[2]string{"Removed", fmt.Sprintf("%d flagged, %d duplicate, %d empty",
			v.Removed.Flagged, v.Removed.Duplicates, v.Removed.Empty)},
		[2]string{"Elapsed", elapsed.Round(time.Millisecond).String()},
	)
	if v.Output != "" {
		pairs = append(pairs, [2]string{"Output", v.Output})
	}
	r.KeyValues(pairs)
	r.Println("")

	if len(v.Failures) > 0 {
		r.Header(2, fmt.Sprintf("Schema failures (%d)", len(v.Failures)))
		renderFailures(r, v.Failures)
		r.Println("")
	}

	if c := v.Correlation; c != nil {
		r.Header(2, "Correlation")
		rows := make([][]any, 0, len(c.FeatureLabel)+len(c.FeatureFeature))
		for _, s := range c.FeatureLabel {
			rows = append(rows, scoreRow(core.FeatureLabel, s.Feature, s.Score, c.FeatureLabelThreshold))
		}
		for _, s := range c.FeatureFeature {
			rows = append(rows, scoreRow(core.FeatureFeature, s.Name(), s.Score, c.FeatureFeatureThreshold))
		}
		r.Table([]string{"Check", "Feature", "Score", "Threshold", "Status"}, rows)
		if len(c.Skipped) > 0 {
			r.Muted(fmt.Sprintf("Skipped: %v", c.Skipped))
		}
		r.Println("")
	}

	switch v.Status {
	case core.RunStatusPassed:
		r.StatusLine("validation", "success", string(v.Status))
	case core.RunStatusRepaired:
		r.StatusLine("validation", "warning", fmt.Sprintf("%s, %d rows removed", v.Status, v.Removed.Flagged+v.Removed.Duplicates+v.Removed.Empty))
	default:
		r.StatusLine("validation", "failed", v.Error)
	}
}

func renderFailures(r *output.Renderer, failures []core.FailureCase) {
	shown := failures
	if len(shown) > maxFailureRows {
		shown = shown[:maxFailureRows]
	}
	rows := make([][]any, len(shown))
	for i, f := range shown {
		row := "-"
		if f.HasRow() {
			row = strconv.Itoa(f.Row())
		}
		rows[i] = []any{row, f.Column, f.Check, f.Scope.String(), core.Format(f.Value)}
	}
	r.Table([]string{"Row", "Column", "Check", "Scope", "Value"}, rows)
	if rest := len(failures) - len(shown); rest > 0 {
		r.Muted(fmt.Sprintf("... %d more", rest))
	}
}

func scoreRow(kind core.CorrelationKind, feature string, score, threshold float64) []any {
	status := "ok"
	if score > threshold {
		status = "exceeded"
	}
	return []any{string(kind), feature, fmt.Sprintf("%.4f", score), fmt.Sprintf("%.2f", threshold), status}
}
