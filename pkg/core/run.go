package core

import "time"

// RunStatus is the outcome of one recorded validation run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning  RunStatus = "running"
	RunStatusPassed   RunStatus = "passed"
	RunStatusRepaired RunStatus = "repaired"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded validation run.
type Run struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	Schema      string     `json:"schema"`
	Target      string     `json:"target"`
	Status      RunStatus  `json:"status"`
	RowsIn      int        `json:"rows_in"`
	RowsOut     int        `json:"rows_out"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// RunSummary holds the counts a run is completed with.
type RunSummary struct {
	Status  RunStatus
	RowsIn  int
	RowsOut int
	Error   string
}

// StoredScore is one persisted correlation score.
type StoredScore struct {
	Kind      CorrelationKind `json:"kind"`
	Feature   string          `json:"feature"`
	Score     float64         `json:"score"`
	Threshold float64         `json:"threshold"`
	Passed    bool            `json:"passed"`
}

// ScoresOf flattens a correlation result into stored scores, feature-label
// scores first.
func ScoresOf(r *CorrelationResult) []StoredScore {
	if r == nil {
		return nil
	}
	out := make([]StoredScore, 0, len(r.FeatureLabel)+len(r.FeatureFeature))
	for _, s := range r.FeatureLabel {
		out = append(out, StoredScore{
			Kind: FeatureLabel, Feature: s.Feature, Score: s.Score,
			Threshold: r.FeatureLabelThreshold, Passed: s.Score <= r.FeatureLabelThreshold,
		})
	}
	for _, s := range r.FeatureFeature {
		out = append(out, StoredScore{
			Kind: FeatureFeature, Feature: s.Name(), Score: s.Score,
			Threshold: r.FeatureFeatureThreshold, Passed: s.Score <= r.FeatureFeatureThreshold,
		})
	}
	return out
}
