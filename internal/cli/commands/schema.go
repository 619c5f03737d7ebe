package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tripguard/internal/cli/output"
	"github.com/leapstack-labs/tripguard/pkg/schema"
)

// NewSchemaCommand creates the schema command group.
func NewSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect data contracts",
		Long: `Inspect the active data contract and the built-in presets.

The active contract is --schema-file when set, the --schema preset otherwise.`,
	}
	cmd.AddCommand(newSchemaShowCommand())
	cmd.AddCommand(newSchemaPresetsCommand())
	cmd.AddCommand(newSchemaChecksCommand())
	return cmd
}

func newSchemaShowCommand() *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the active contract",
		Example: `  # Show the taxi preset as a table
  tripguard schema show --schema taxi

  # Export a preset as a starting point for a schema file
  tripguard schema show --schema taxi_post_eda --yaml > schemas/trips.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			s, err := buildSchema(cc.Cfg)
			if err != nil {
				return err
			}
			def := s.Definition()

			if asYAML {
				data, err := def.YAML()
				if err != nil {
					return err
				}
				cc.Renderer.Printf("%s", data)
				return nil
			}
			if cc.Renderer.EffectiveMode() == output.ModeJSON {
				return cc.Renderer.JSON(def)
			}
			renderDefinition(cc.Renderer, cc.Cfg.SchemaName(), def)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print the contract as a YAML schema file")
	return cmd
}

func renderDefinition(r *output.Renderer, name string, def schema.Definition) {
	r.Header(1, "Schema "+name)
	coerce := def.Coerce == nil || *def.Coerce
	r.KeyValues([][2]string{
		{"Columns", fmt.Sprint(len(def.Columns))},
		{"Coerce", fmt.Sprint(coerce)},
		{"Strict", fmt.Sprint(def.Strict)},
	})
	r.Println("")

	rows := make([][]any, len(def.Columns))
	for i, col := range def.Columns {
		rows[i] = []any{col.Name, col.Type, col.Nullable, checkList(col.Checks)}
	}
	r.Table([]string{"Column", "Type", "Nullable", "Checks"}, rows)

	if len(def.TableChecks) > 0 {
		r.Println("")
		r.Header(2, "Table checks")
		trows := make([][]any, len(def.TableChecks))
		for i, c := range def.TableChecks {
			trows[i] = []any{c.Kind, c.Message}
		}
		r.Table([]string{"Kind", "Message"}, trows)
	}
}

func checkList(checks []schema.CheckDefinition) string {
	kinds := make([]string, len(checks))
	for i, c := range checks {
		kinds[i] = c.Kind
	}
	return strings.Join(kinds, ", ")
}

func newSchemaPresetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the built-in contracts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			names := schema.PresetNames()
			if cc.Renderer.EffectiveMode() == output.ModeJSON {
				return cc.Renderer.JSON(names)
			}
			rows := make([][]any, 0, len(names))
			for _, name := range names {
				s, err := schema.Preset(name)
				if err != nil {
					return err
				}
				rows = append(rows, []any{name, len(s.Columns()), len(s.TableChecks())})
			}
			cc.Renderer.Table([]string{"Preset", "Columns", "Table checks"}, rows)
			return nil
		},
	}
}

func newSchemaChecksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "checks",
		Short: "List every check of the active contract",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			s, err := buildSchema(cc.Cfg)
			if err != nil {
				return err
			}

			type checkRow struct {
				Column      string `json:"column,omitempty"`
				Kind        string `json:"kind"`
				Scope       string `json:"scope"`
				Description string `json:"description"`
			}
			var checks []checkRow
			for _, col := range s.Columns() {
				for _, c := range col.Checks {
					checks = append(checks, checkRow{col.Name, string(c.Kind()), c.Scope().String(), c.Description()})
				}
			}
			for _, c := range s.TableChecks() {
				checks = append(checks, checkRow{"", string(c.Kind()), c.Scope().String(), c.Description()})
			}

			if cc.Renderer.EffectiveMode() == output.ModeJSON {
				return cc.Renderer.JSON(checks)
			}
			rows := make([][]any, len(checks))
			for i, c := range checks {
				rows[i] = []any{c.Column, c.Kind, c.Scope, c.Description}
			}
			cc.Renderer.Table([]string{"Column", "Kind", "Scope", "Description"}, rows)
			return nil
		},
	}
}
