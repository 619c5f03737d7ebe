// Package core defines the shared language of the tripguard system.
//
// This package contains:
//   - The tabular batch the validator operates on (Batch, Value helpers)
//   - Column type and check scope enumerations
//   - Validation output (FailureCase, Report, CorrelationResult)
//   - The failure taxonomy returned by the engine (FormatError, LoadError, ...)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
