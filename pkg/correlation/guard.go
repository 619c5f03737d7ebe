package correlation

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/tripguard/pkg/core"
)

// Guard evaluates both correlation checks against a target column.
type Guard struct {
	target     string
	thresholds core.Thresholds
	scorer     Scorer
	logger     *slog.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithScorer replaces the default PPS scorer.
func WithScorer(s Scorer) Option {
	return func(g *Guard) {
		if s != nil {
			g.scorer = s
		}
	}
}

// WithLogger sets the logger used for scoring diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGuard creates a guard for target with the given thresholds.
func NewGuard(target string, thresholds core.Thresholds, opts ...Option) (*Guard, error) {
	if target == "" {
		return nil, errors.New("correlation target column is required")
	}
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid correlation thresholds: %w", err)
	}
	g := &Guard{
		target:     target,
		thresholds: thresholds,
		scorer:     DefaultPPS(),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Target returns the protected column name.
func (g *Guard) Target() string { return g.target }

// Thresholds returns the thresholds scores are checked against.
func (g *Guard) Thresholds() core.Thresholds { return g.thresholds }

// encoded holds the target and the scoreable features of a batch.
type encoded struct {
	target   Column
	features []Column
	skipped  []string
}

func (g *Guard) encode(b *core.Batch) (*encoded, error) {
	values, ok := b.Column(g.target)
	if !ok {
		return nil, &core.MissingColumnsError{Missing: []string{g.target}}
	}
	target := Encode(g.target, values)
	if target.Kind == Unsupported {
		return nil, fmt.Errorf("target column %q cannot be scored: unsupported value kind", g.target)
	}

	enc := &encoded{target: target}
	for _, name := range b.Columns() {
		if name == g.target {
			continue
		}
		col, _ := b.Column(name)
		c := Encode(name, col)
		if c.Kind == Unsupported {
			enc.skipped = append(enc.skipped, name)
			continue
		}
		enc.features = append(enc.features, c)
	}
	sort.Strings(enc.skipped)
	return enc, nil
}

// FeatureLabelScores scores every scoreable non-target column against the
// target. Results are sorted by descending score.
func (g *Guard) FeatureLabelScores(b *core.Batch) ([]core.FeatureScore, error) {
	enc, err := g.encode(b)
	if err != nil {
		return nil, err
	}
	return g.featureLabel(enc), nil
}

// FeatureFeatureScores scores every unordered pair of scoreable non-target
// columns. A pair scores the larger of its two directions. Results are
// sorted by descending score.
func (g *Guard) FeatureFeatureScores(b *core.Batch) ([]core.PairScore, error) {
	enc, err := g.encode(b)
	if err != nil {
		return nil, err
	}
	return g.featureFeature(enc), nil
}

// Check runs both checks. Both are always evaluated. When any score exceeds
// its threshold the result is returned together with a
// *core.CorrelationThresholdError listing every breach.
func (g *Guard) Check(b *core.Batch) (*core.CorrelationResult, error) {
	start := time.Now()
	enc, err := g.encode(b)
	if err != nil {
		return nil, err
	}

	result := &core.CorrelationResult{
		Target:                  g.target,
		FeatureLabel:            g.featureLabel(enc),
		FeatureFeature:          g.featureFeature(enc),
		FeatureLabelThreshold:   g.thresholds.FeatureLabel,
		FeatureFeatureThreshold: g.thresholds.FeatureFeature,
		Skipped:                 enc.skipped,
	}
	breaches := result.Breaches()
	result.FeatureLabelPassed = true
	result.FeatureFeaturePassed = true
	for _, br := range breaches {
		if br.Kind == core.FeatureLabel {
			result.FeatureLabelPassed = false
		} else {
			result.FeatureFeaturePassed = false
		}
	}

	g.logger.Debug("correlation scored",
		slog.String("target", g.target),
		slog.Int("features", len(enc.features)),
		slog.Int("pairs", len(result.FeatureFeature)),
		slog.Int("skipped", len(enc.skipped)),
		slog.Duration("elapsed", time.Since(start)))

	if len(breaches) > 0 {
		return result, &core.CorrelationThresholdError{Breaches: breaches, Result: result}
	}
	return result, nil
}

func (g *Guard) featureLabel(enc *encoded) []core.FeatureScore {
	scores := make([]core.FeatureScore, len(enc.features))
	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, f := range enc.features {
		eg.Go(func() error {
			scores[i] = core.FeatureScore{Feature: f.Name, Score: clamp(g.scorer.Score(f, enc.target))}
			return nil
		})
	}
	_ = eg.Wait()
	core.SortFeatureScores(scores)
	return scores
}

func (g *Guard) featureFeature(enc *encoded) []core.PairScore {
	n := len(enc.features)
	scores := make([]core.PairScore, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			left, right := enc.features[i].Name, enc.features[j].Name
			if right < left {
				left, right = right, left
			}
			scores = append(scores, core.PairScore{Left: left, Right: right})
		}
	}

	byName := make(map[string]Column, n)
	for _, f := range enc.features {
		byName[f.Name] = f
	}

	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i := range scores {
		eg.Go(func() error {
			a, b := byName[scores[i].Left], byName[scores[i].Right]
			scores[i].Score = clamp(max(g.scorer.Score(a, b), g.scorer.Score(b, a)))
			return nil
		})
	}
	_ = eg.Wait()
	core.SortPairScores(scores)
	return scores
}

func clamp(v float64) float64 {
	switch {
	case v != v || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
