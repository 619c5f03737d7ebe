package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/tripguard/internal/testutil"
	"github.com/leapstack-labs/tripguard/pkg/core"
	"github.com/leapstack-labs/tripguard/pkg/correlation"
)

type memoryRecorder struct {
	runs      map[string]*core.Run
	failures  map[string][]core.FailureCase
	scores    map[string][]core.StoredScore
	createErr error
}

func newMemoryRecorder() *memoryRecorder {
	return &memoryRecorder{
		runs:     make(map[string]*core.Run),
		failures: make(map[string][]core.FailureCase),
		scores:   make(map[string][]core.StoredScore),
	}
}

func (m *memoryRecorder) CreateRun(source, schemaName, target string) (*core.Run, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	run := &core.Run{ID: "run-1", Source: source, Schema: schemaName, Target: target, Status: core.RunStatusRunning}
	m.runs[run.ID] = run
	return run, nil
}

func (m *memoryRecorder) CompleteRun(id string, summary core.RunSummary) error {
	run := m.runs[id]
	run.Status = summary.Status
	run.RowsIn = summary.RowsIn
	run.RowsOut = summary.RowsOut
	run.Error = summary.Error
	return nil
}

func (m *memoryRecorder) SaveFailures(runID string, failures []core.FailureCase) error {
	m.failures[runID] = failures
	return nil
}

func (m *memoryRecorder) SaveScores(runID string, scores []core.StoredScore) error {
	m.scores[runID] = scores
	return nil
}

func recordingEngine(t *testing.T, rec Recorder, scorer correlation.Scorer) *Engine {
	t.Helper()
	e, err := New(Config{
		Schema:     tripSchema(t),
		SchemaName: "trips",
		Target:     "fare_amount",
		Scorer:     scorer,
		Recorder:   rec,
		Logger:     testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	return e
}

func TestEngine_RunRecordsHistory(t *testing.T) {
	tests := []struct {
		name       string
		scorer     correlation.Scorer
		wantStatus core.RunStatus
		wantErr    bool
	}{
		{name: "repaired", scorer: zeroScorer{}, wantStatus: core.RunStatusRepaired},
		{name: "failed", scorer: fixedScorer{"trip_distance->fare_amount": 1}, wantStatus: core.RunStatusFailed, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newMemoryRecorder()
			e := recordingEngine(t, rec, tt.scorer)

			out, err := e.Run(context.Background(), "data/raw/trips.csv", exampleBatch())
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			require.Equal(t, "run-1", out.RunID)
			run := rec.runs["run-1"]
			assert.Equal(t, "data/raw/trips.csv", run.Source)
			assert.Equal(t, "trips", run.Schema)
			assert.Equal(t, tt.wantStatus, run.Status)
			assert.Equal(t, 4, run.RowsIn)
			assert.Len(t, rec.failures["run-1"], 2)
			// one feature-label score, no pairs with a single feature
			assert.Len(t, rec.scores["run-1"], 1)
			if tt.wantErr {
				assert.Contains(t, run.Error, "correlation threshold exceeded")
			}
		})
	}
}

func TestEngine_RunRecorderFailureDoesNotFailRun(t *testing.T) {
	rec := newMemoryRecorder()
	rec.createErr = errors.New("disk full")
	e := recordingEngine(t, rec, zeroScorer{})

	out, err := e.Run(context.Background(), "trips.csv", exampleBatch())
	require.NoError(t, err)
	assert.Empty(t, out.RunID)
	assert.Equal(t, 2, out.RowsOut)
}

func TestOutcome_Status(t *testing.T) {
	clean := &Outcome{Report: core.NewReport(nil)}
	assert.Equal(t, core.RunStatusPassed, clean.Status(nil))

	deduped := &Outcome{Report: core.NewReport(nil), Repair: Repair{Duplicates: 1}}
	assert.Equal(t, core.RunStatusRepaired, deduped.Status(nil))

	assert.Equal(t, core.RunStatusFailed, clean.Status(errors.New("boom")))
}
