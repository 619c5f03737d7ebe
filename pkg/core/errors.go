package core

import (
	"fmt"
	"strings"
)

// FailureKind identifies a fatal failure class of a validation run.
type FailureKind string

// Failure kinds.
const (
	FailureFormat               FailureKind = "format"
	FailureLoad                 FailureKind = "load"
	FailureMissingColumns       FailureKind = "missing_columns"
	FailureUnresolvedViolation  FailureKind = "unresolved_violation"
	FailureCorrelationThreshold FailureKind = "correlation_threshold"
)

// Failure is implemented by every fatal error the engine and its I/O
// collaborators return. Callers switch on Kind or use errors.As on the
// concrete types.
type Failure interface {
	error
	Kind() FailureKind
}

// FormatError is returned for an unsupported or unrecognized source encoding.
type FormatError struct {
	Path      string
	Extension string
	Supported []string
}

func (e *FormatError) Error() string {
	ext := e.Extension
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Sprintf("unsupported file format %s for %s\nSupported formats: %s",
		ext, e.Path, strings.Join(e.Supported, ", "))
}

// Kind implements Failure.
func (e *FormatError) Kind() FailureKind { return FailureFormat }

// LoadError wraps a decode failure from a reader or writer.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying decode error.
func (e *LoadError) Unwrap() error { return e.Err }

// Kind implements Failure.
func (e *LoadError) Kind() FailureKind { return FailureLoad }

// MissingColumnsError is returned when expected columns are absent.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing expected columns: %s", strings.Join(e.Missing, ", "))
}

// Kind implements Failure.
func (e *MissingColumnsError) Kind() FailureKind { return FailureMissingColumns }

// UnresolvedViolationError is returned when schema violations survive row
// pruning and deduplication.
type UnresolvedViolationError struct {
	Failures []FailureCase
}

func (e *UnresolvedViolationError) Error() string {
	checks := make([]string, 0, len(e.Failures))
	seen := make(map[string]struct{})
	for _, f := range e.Failures {
		name := f.Check
		if f.Column != "" {
			name = f.Column + ": " + f.Check
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		checks = append(checks, name)
	}
	return fmt.Sprintf("%d schema violation(s) could not be resolved by row removal: %s",
		len(e.Failures), strings.Join(checks, "; "))
}

// Kind implements Failure.
func (e *UnresolvedViolationError) Kind() FailureKind { return FailureUnresolvedViolation }

// CorrelationThresholdError is returned when a predictive power score
// exceeds its threshold.
type CorrelationThresholdError struct {
	Breaches []Breach
	Result   *CorrelationResult
}

func (e *CorrelationThresholdError) Error() string {
	parts := make([]string, len(e.Breaches))
	for i, b := range e.Breaches {
		parts[i] = b.String()
	}
	return "correlation threshold exceeded: " + strings.Join(parts, "; ")
}

// Kind implements Failure.
func (e *CorrelationThresholdError) Kind() FailureKind { return FailureCorrelationThreshold }

// HasKind reports whether any breach is of the given kind.
func (e *CorrelationThresholdError) HasKind(kind CorrelationKind) bool {
	for _, b := range e.Breaches {
		if b.Kind == kind {
			return true
		}
	}
	return false
}

var (
	_ Failure = (*FormatError)(nil)
	_ Failure = (*LoadError)(nil)
	_ Failure = (*MissingColumnsError)(nil)
	_ Failure = (*UnresolvedViolationError)(nil)
	_ Failure = (*CorrelationThresholdError)(nil)
)
