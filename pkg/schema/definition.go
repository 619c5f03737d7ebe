package schema

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/tripguard/pkg/core"
)

// =============================================================================
// Declarative definitions
// =============================================================================

// Definition is the YAML form of a schema.
type Definition struct {
	Coerce      *bool              `yaml:"coerce,omitempty"`
	Strict      bool               `yaml:"strict,omitempty"`
	Columns     []ColumnDefinition `yaml:"columns"`
	TableChecks []CheckDefinition  `yaml:"table_checks,omitempty"`
}

// ColumnDefinition is the YAML form of a ColumnSpec.
type ColumnDefinition struct {
	Name        string            `yaml:"name"`
	Type        string            `yaml:"type"`
	Nullable    bool              `yaml:"nullable"`
	Description string            `yaml:"description,omitempty"`
	Checks      []CheckDefinition `yaml:"checks,omitempty"`
}

// CheckDefinition is the YAML form of a Check. Keys other than kind and
// message are kind-specific parameters.
type CheckDefinition struct {
	Kind    string         `yaml:"kind"`
	Message string         `yaml:"message,omitempty"`
	Params  map[string]any `yaml:",inline"`
}

type boundParams struct {
	Value any `mapstructure:"value"`
}

type betweenParams struct {
	Min        any  `mapstructure:"min"`
	Max        any  `mapstructure:"max"`
	ExcludeMin bool `mapstructure:"exclude_min"`
	ExcludeMax bool `mapstructure:"exclude_max"`
}

type isinParams struct {
	Values []any `mapstructure:"values"`
}

type nullFractionParams struct {
	Max float64 `mapstructure:"max"`
}

type compareParams struct {
	Left  string `mapstructure:"left"`
	Op    string `mapstructure:"op"`
	Right string `mapstructure:"right"`
}

// Load reads a YAML schema definition from path and builds it.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a YAML schema definition and builds it.
func Parse(data []byte) (*Schema, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to parse schema definition: %w", err)
	}
	return def.Build()
}

// Build converts the definition into a Schema. Every invalid column or
// check is reported.
func (d Definition) Build() (*Schema, error) {
	var errs []error
	columns := make([]ColumnSpec, 0, len(d.Columns))
	for _, cd := range d.Columns {
		t, ok := core.ParseColumnType(cd.Type)
		if !ok {
			errs = append(errs, fmt.Errorf("column %q: unknown type %q", cd.Name, cd.Type))
			continue
		}
		spec := ColumnSpec{Name: cd.Name, Type: t, Nullable: cd.Nullable, Description: cd.Description}
		for i, chk := range cd.Checks {
			c, err := chk.build(t)
			if err != nil {
				errs = append(errs, fmt.Errorf("column %q check %d: %w", cd.Name, i, err))
				continue
			}
			spec.Checks = append(spec.Checks, c)
		}
		columns = append(columns, spec)
	}

	tableChecks := make([]Check, 0, len(d.TableChecks))
	for i, chk := range d.TableChecks {
		c, err := chk.build(core.TypeString)
		if err != nil {
			errs = append(errs, fmt.Errorf("table check %d: %w", i, err))
			continue
		}
		tableChecks = append(tableChecks, c)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid schema definition: %w", errors.Join(errs...))
	}

	coerce := true
	if d.Coerce != nil {
		coerce = *d.Coerce
	}
	return New(columns, WithCoerce(coerce), WithStrict(d.Strict), WithTableChecks(tableChecks...))
}

// build decodes the kind-specific parameters into a Check. Literal
// parameters are converted to the column type t.
func (cd CheckDefinition) build(t core.ColumnType) (Check, error) {
	literal := func(name string, v any) (core.Value, error) {
		if v == nil {
			return nil, fmt.Errorf("%s is required", name)
		}
		cv, ok := convert(v, t, true)
		if !ok || cv == nil {
			return nil, fmt.Errorf("%s %v is not a valid %s", name, v, t)
		}
		return cv, nil
	}

	switch Kind(cd.Kind) {
	case KindGE, KindGT, KindLE, KindLT:
		var p boundParams
		if err := decodeParams(cd.Params, &p); err != nil {
			return nil, err
		}
		bound, err := literal("value", p.Value)
		if err != nil {
			return nil, err
		}
		op, _ := ParseOperator(cd.Kind)
		return &RangeCheck{Op: op, Bound: bound, Message: cd.Message}, nil

	case KindBetween:
		var p betweenParams
		if err := decodeParams(cd.Params, &p); err != nil {
			return nil, err
		}
		lo, err := literal("min", p.Min)
		if err != nil {
			return nil, err
		}
		hi, err := literal("max", p.Max)
		if err != nil {
			return nil, err
		}
		return &BetweenCheck{Min: lo, Max: hi, ExcludeMin: p.ExcludeMin, ExcludeMax: p.ExcludeMax, Message: cd.Message}, nil

	case KindIsIn:
		var p isinParams
		if err := decodeParams(cd.Params, &p); err != nil {
			return nil, err
		}
		if len(p.Values) == 0 {
			return nil, errors.New("values must not be empty")
		}
		allowed := make([]core.Value, len(p.Values))
		for i, v := range p.Values {
			cv, err := literal("value", v)
			if err != nil {
				return nil, err
			}
			allowed[i] = cv
		}
		return &IsInCheck{Allowed: allowed, Message: cd.Message}, nil

	case KindNullFraction:
		var p nullFractionParams
		if err := decodeParams(cd.Params, &p); err != nil {
			return nil, err
		}
		if p.Max < 0 || p.Max > 1 {
			return nil, fmt.Errorf("max %v must be in [0,1]", p.Max)
		}
		return &NullFractionCheck{Max: p.Max, Message: cd.Message}, nil

	case KindNoDuplicateRows:
		if err := decodeParams(cd.Params, &struct{}{}); err != nil {
			return nil, err
		}
		return &NoDuplicateRowsCheck{Message: cd.Message}, nil

	case KindNoEmptyRows:
		if err := decodeParams(cd.Params, &struct{}{}); err != nil {
			return nil, err
		}
		return &NoEmptyRowsCheck{Message: cd.Message}, nil

	case KindCompare:
		var p compareParams
		if err := decodeParams(cd.Params, &p); err != nil {
			return nil, err
		}
		if p.Left == "" || p.Right == "" {
			return nil, errors.New("left and right are required")
		}
		op, err := ParseOperator(p.Op)
		if err != nil {
			return nil, err
		}
		return &CompareCheck{Left: p.Left, Op: op, Right: p.Right, Message: cd.Message}, nil

	default:
		return nil, fmt.Errorf("unknown check kind %q", cd.Kind)
	}
}

// decodeParams decodes a parameter map into out, rejecting unknown keys.
func decodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}

// =============================================================================
// Export
// =============================================================================

// Definition returns the declarative form of s.
func (s *Schema) Definition() Definition {
	coerce := s.coerce
	def := Definition{Coerce: &coerce, Strict: s.strict}
	for _, col := range s.columns {
		cd := ColumnDefinition{
			Name:        col.Name,
			Type:        col.Type.String(),
			Nullable:    col.Nullable,
			Description: col.Description,
		}
		for _, c := range col.Checks {
			cd.Checks = append(cd.Checks, DefinitionOf(c))
		}
		def.Columns = append(def.Columns, cd)
	}
	for _, c := range s.tableChecks {
		def.TableChecks = append(def.TableChecks, DefinitionOf(c))
	}
	return def
}

// DefinitionOf returns the declarative form of a check.
func DefinitionOf(c Check) CheckDefinition {
	switch x := c.(type) {
	case *RangeCheck:
		return CheckDefinition{Kind: string(x.Kind()), Message: x.Message, Params: map[string]any{"value": exportLiteral(x.Bound)}}
	case *BetweenCheck:
		params := map[string]any{"min": exportLiteral(x.Min), "max": exportLiteral(x.Max)}
		if x.ExcludeMin {
			params["exclude_min"] = true
		}
		if x.ExcludeMax {
			params["exclude_max"] = true
		}
		return CheckDefinition{Kind: string(KindBetween), Message: x.Message, Params: params}
	case *IsInCheck:
		values := make([]any, len(x.Allowed))
		for i, v := range x.Allowed {
			values[i] = exportLiteral(v)
		}
		return CheckDefinition{Kind: string(KindIsIn), Message: x.Message, Params: map[string]any{"values": values}}
	case *NullFractionCheck:
		return CheckDefinition{Kind: string(KindNullFraction), Message: x.Message, Params: map[string]any{"max": x.Max}}
	case *CompareCheck:
		return CheckDefinition{Kind: string(KindCompare), Message: x.Message, Params: map[string]any{
			"left": x.Left, "op": string(x.Op), "right": x.Right,
		}}
	default:
		return CheckDefinition{Kind: string(c.Kind()), Message: messageOf(c)}
	}
}

func messageOf(c Check) string {
	switch x := c.(type) {
	case *NoDuplicateRowsCheck:
		return x.Message
	case *NoEmptyRowsCheck:
		return x.Message
	default:
		return ""
	}
}

func exportLiteral(v core.Value) any {
	if ts, ok := v.(time.Time); ok {
		return ts.Format(time.RFC3339Nano)
	}
	return v
}

// YAML renders the definition with two-space indentation.
func (d Definition) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("failed to encode schema definition: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
