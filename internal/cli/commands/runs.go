package commands

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tripguard/internal/cli/output"
	"github.com/leapstack-labs/tripguard/pkg/core"
)

// NewRunsCommand creates the runs command group.
func NewRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect validation history",
		Long:  `Inspect validation runs recorded in the state database.`,
	}
	cmd.AddCommand(newRunsListCommand())
	cmd.AddCommand(newRunsShowCommand())
	return cmd
}

func newRunsListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cc.Cfg, cc.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}
			if cc.Renderer.EffectiveMode() == output.ModeJSON {
				if runs == nil {
					runs = []*core.Run{}
				}
				return cc.Renderer.JSON(runs)
			}
			if len(runs) == 0 {
				cc.Renderer.Muted("No runs recorded")
				return nil
			}
			rows := make([][]any, len(runs))
			for i, run := range runs {
				rows[i] = []any{run.ID, run.StartedAt.Local().Format(time.DateTime), string(run.Status), run.Source, run.RowsIn, run.RowsOut}
			}
			cc.Renderer.Table([]string{"ID", "Started", "Status", "Source", "Rows in", "Rows out"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs (0 for all)")
	return cmd
}

// runDetail is the JSON form of one recorded run.
type runDetail struct {
	*core.Run
	Failures []core.FailureCase `json:"failures"`
	Scores   []core.StoredScore `json:"scores"`
}

func newRunsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its failures and scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cc.Cfg, cc.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			run, err := store.GetRun(args[0])
			if err != nil {
				return err
			}
			failures, err := store.GetFailures(run.ID)
			if err != nil {
				return err
			}
			scores, err := store.GetScores(run.ID)
			if err != nil {
				return err
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				if failures == nil {
					failures = []core.FailureCase{}
				}
				if scores == nil {
					scores = []core.StoredScore{}
				}
				return r.JSON(runDetail{Run: run, Failures: failures, Scores: scores})
			}

			r.Header(1, "Run "+run.ID)
			pairs := [][2]string{
				{"Source", run.Source},
				{"Schema", run.Schema},
				{"Target", run.Target},
				{"Status", string(run.Status)},
				{"Rows in", strconv.Itoa(run.RowsIn)},
				{"Rows out", strconv.Itoa(run.RowsOut)},
				{"Started", run.StartedAt.Local().Format(time.DateTime)},
			}
			if run.CompletedAt != nil {
				pairs = append(pairs, [2]string{"Duration", run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()})
			}
			if run.Error != "" {
				pairs = append(pairs, [2]string{"Error", run.Error})
			}
			r.KeyValues(pairs)
			r.Println("")

			if len(failures) > 0 {
				r.Header(2, "Schema failures ("+strconv.Itoa(len(failures))+")")
				renderFailures(r, failures)
				r.Println("")
			}
			if len(scores) > 0 {
				r.Header(2, "Correlation")
				rows := make([][]any, len(scores))
				for i, s := range scores {
					rows[i] = scoreRow(s.Kind, s.Feature, s.Score, s.Threshold)
				}
				r.Table([]string{"Check", "Feature", "Score", "Threshold", "Status"}, rows)
			}
			return nil
		},
	}
}
