package core

import (
	"fmt"
	"sort"
)

// Default correlation thresholds.
const (
	DefaultFeatureLabelThreshold   = 0.9
	DefaultFeatureFeatureThreshold = 0.8
)

// Thresholds bounds the predictive power scores a batch may exhibit.
type Thresholds struct {
	FeatureLabel   float64 `json:"feature_label" koanf:"feature_label"`
	FeatureFeature float64 `json:"feature_feature" koanf:"feature_feature"`
}

// DefaultThresholds returns the 0.9 / 0.8 defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FeatureLabel:   DefaultFeatureLabelThreshold,
		FeatureFeature: DefaultFeatureFeatureThreshold,
	}
}

// Validate checks that both thresholds lie in [0,1].
func (t Thresholds) Validate() error {
	if t.FeatureLabel < 0 || t.FeatureLabel > 1 {
		return fmt.Errorf("feature_label threshold %v must be in [0,1]", t.FeatureLabel)
	}
	if t.FeatureFeature < 0 || t.FeatureFeature > 1 {
		return fmt.Errorf("feature_feature threshold %v must be in [0,1]", t.FeatureFeature)
	}
	return nil
}

// =============================================================================
// Scores
// =============================================================================

// CorrelationKind distinguishes the two correlation checks.
type CorrelationKind string

// Correlation check kinds.
const (
	FeatureLabel   CorrelationKind = "feature_label"
	FeatureFeature CorrelationKind = "feature_feature"
)

// FeatureScore is the predictive power of a feature for the target.
type FeatureScore struct {
	Feature string  `json:"feature"`
	Score   float64 `json:"score"`
}

// PairScore is the predictive power between two features.
// Left sorts before Right.
type PairScore struct {
	Left  string  `json:"left"`
	Right string  `json:"right"`
	Score float64 `json:"score"`
}

// Name renders the pair as "left, right".
func (p PairScore) Name() string { return p.Left + ", " + p.Right }

// SortFeatureScores orders scores by descending score, then feature name.
func SortFeatureScores(scores []FeatureScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Feature < scores[j].Feature
	})
}

// SortPairScores orders scores by descending score, then pair name.
func SortPairScores(scores []PairScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Name() < scores[j].Name()
	})
}

// Breach is one score that exceeded its threshold.
type Breach struct {
	Kind      CorrelationKind `json:"kind"`
	Feature   string          `json:"feature"`
	Score     float64         `json:"score"`
	Threshold float64         `json:"threshold"`
}

// Excess returns how far the score is above the threshold.
func (b Breach) Excess() float64 { return b.Score - b.Threshold }

func (b Breach) String() string {
	return fmt.Sprintf("%s %q: score %.4f exceeds threshold %.4f by %.4f",
		b.Kind, b.Feature, b.Score, b.Threshold, b.Excess())
}

// =============================================================================
// CorrelationResult
// =============================================================================

// CorrelationResult is the outcome of the correlation guard for one batch.
type CorrelationResult struct {
	Target                  string         `json:"target"`
	FeatureLabel            []FeatureScore `json:"feature_label"`
	FeatureFeature          []PairScore    `json:"feature_feature"`
	FeatureLabelThreshold   float64        `json:"feature_label_threshold"`
	FeatureFeatureThreshold float64        `json:"feature_feature_threshold"`
	FeatureLabelPassed      bool           `json:"feature_label_passed"`
	FeatureFeaturePassed    bool           `json:"feature_feature_passed"`
	Skipped                 []string       `json:"skipped,omitempty"`
}

// Passed reports whether both checks passed.
func (r *CorrelationResult) Passed() bool {
	return r != nil && r.FeatureLabelPassed && r.FeatureFeaturePassed
}

// Breaches lists every score above its threshold. A score equal to the
// threshold is not a breach.
func (r *CorrelationResult) Breaches() []Breach {
	if r == nil {
		return nil
	}
	var out []Breach
	for _, s := range r.FeatureLabel {
		if s.Score > r.FeatureLabelThreshold {
			out = append(out, Breach{Kind: FeatureLabel, Feature: s.Feature, Score: s.Score, Threshold: r.FeatureLabelThreshold})
		}
	}
	for _, s := range r.FeatureFeature {
		if s.Score > r.FeatureFeatureThreshold {
			out = append(out, Breach{Kind: FeatureFeature, Feature: s.Name(), Score: s.Score, Threshold: r.FeatureFeatureThreshold})
		}
	}
	return out
}
