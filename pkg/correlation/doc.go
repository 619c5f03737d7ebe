// Package correlation guards a batch against label leakage and
// multicollinearity.
//
// Every non-target column is scored for how well it alone predicts the
// target (feature-label), and every unordered pair of non-target columns is
// scored against each other (feature-feature). Scores come from a Scorer,
// by default the predictive power score implemented by PPS. A score above
// its threshold rejects the batch; a score equal to the threshold passes.
package correlation
