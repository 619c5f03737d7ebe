package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/tripguard/internal/cli/output"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Target) == "" {
		errs = append(errs, errors.New("target is required"))
	}
	if err := c.CorrelationThresholds.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("correlation_thresholds: %w", err))
	}
	if c.Delimiter != "" && utf8.RuneCountInString(c.Delimiter) != 1 {
		errs = append(errs, fmt.Errorf("delimiter %q must be a single character", c.Delimiter))
	}
	if c.Schema == "" && c.SchemaFile == "" {
		errs = append(errs, errors.New("either schema or schema_file is required"))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format %q must be text or json", c.LogFormat))
	}
	if _, err := output.ParseMode(c.OutputFormat); err != nil {
		errs = append(errs, err)
	}
	if c.SampleSize < 0 {
		errs = append(errs, fmt.Errorf("sample_size %d must not be negative", c.SampleSize))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
