// Package state records validation run history in SQLite: one row per run,
// the failure cases it reported and the correlation scores it measured.
package state

import (
	"github.com/leapstack-labs/tripguard/internal/engine"
)

var _ engine.Recorder = (*SQLiteStore)(nil)
