package correlation

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Default scoring parameters.
const (
	DefaultSampleSize = 5000
	DefaultSeed       = 123
	crossValidation   = 4
)

// Scorer measures how well feature x alone predicts target y, in [0,1].
type Scorer interface {
	Score(x, y Column) float64
}

// PPS is the predictive power score: the normalized cross-validated
// improvement of a single-feature decision tree over a naive baseline.
//
// Numeric targets are scored with mean absolute error against a median
// baseline. Categorical targets are scored with weighted F1 against a
// most-frequent-class baseline.
type PPS struct {
	// SampleSize caps the number of rows scored. Zero uses DefaultSampleSize.
	SampleSize int
	// Seed drives sampling and the cross-validation shuffle.
	Seed uint64
}

// DefaultPPS returns a PPS scorer with the default sample size and seed.
func DefaultPPS() PPS {
	return PPS{SampleSize: DefaultSampleSize, Seed: DefaultSeed}
}

// Score implements Scorer.
func (p PPS) Score(x, y Column) float64 {
	if x.Name == y.Name {
		return 1
	}
	if x.Kind == Unsupported || y.Kind == Unsupported {
		return 0
	}

	xs, ys := completeRows(x.Values, y.Values)
	if len(xs) < 2 {
		return 0
	}

	rng := rand.New(rand.NewPCG(p.Seed, p.Seed))
	limit := p.SampleSize
	if limit <= 0 {
		limit = DefaultSampleSize
	}
	xs, ys = shuffle(rng, xs, ys, limit)

	uniqueY := distinct(ys)
	if uniqueY == 1 {
		return 0
	}
	if y.Kind == Categorical && uniqueY == len(ys) {
		return 0
	}
	if x.Kind == Categorical && distinct(xs) == len(xs) {
		return 0
	}

	if y.Kind == Categorical {
		return classificationScore(xs, ys)
	}
	return regressionScore(xs, ys)
}

// completeRows keeps the rows where both x and y are present.
func completeRows(x, y []float64) ([]float64, []float64) {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys
}

// shuffle returns at most limit rows in random order.
func shuffle(rng *rand.Rand, x, y []float64, limit int) ([]float64, []float64) {
	perm := rng.Perm(len(x))
	if len(perm) > limit {
		perm = perm[:limit]
	}
	xs := make([]float64, len(perm))
	ys := make([]float64, len(perm))
	for i, j := range perm {
		xs[i] = x[j]
		ys[i] = y[j]
	}
	return xs, ys
}

func distinct(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// folds splits n rows into k contiguous folds; the first n%k folds get one
// extra row.
func folds(n int) [][2]int {
	k := min(crossValidation, n)
	out := make([][2]int, k)
	start := 0
	for f := 0; f < k; f++ {
		size := n / k
		if f < n%k {
			size++
		}
		out[f] = [2]int{start, start + size}
		start += size
	}
	return out
}

// split separates the rows of one fold from the rest.
func split(x, y []float64, lo, hi int) (trainX, trainY, testX, testY []float64) {
	trainX = make([]float64, 0, len(x)-(hi-lo))
	trainY = make([]float64, 0, len(y)-(hi-lo))
	trainX = append(append(trainX, x[:lo]...), x[hi:]...)
	trainY = append(append(trainY, y[:lo]...), y[hi:]...)
	return trainX, trainY, x[lo:hi], y[lo:hi]
}

// =============================================================================
// Regression
// =============================================================================

func regressionScore(x, y []float64) float64 {
	scores := make([]float64, 0, crossValidation)
	for _, f := range folds(len(x)) {
		trainX, trainY, testX, testY := split(x, y, f[0], f[1])
		t := fitRegressor(trainX, trainY)
		var abs float64
		for i, v := range testX {
			abs += math.Abs(t.predict(v) - testY[i])
		}
		scores = append(scores, abs/float64(len(testX)))
	}
	modelMAE := stat.Mean(scores, nil)

	sorted := append([]float64(nil), y...)
	sort.Float64s(sorted)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	var naive float64
	for _, v := range y {
		naive += math.Abs(v - median)
	}
	naiveMAE := naive / float64(len(y))

	if naiveMAE == 0 || modelMAE > naiveMAE {
		return 0
	}
	return 1 - modelMAE/naiveMAE
}

// =============================================================================
// Classification
// =============================================================================

func classificationScore(x, y []float64) float64 {
	codes, labels := denseLabels(y)

	scores := make([]float64, 0, crossValidation)
	for _, f := range folds(len(x)) {
		trainX, _, testX, _ := split(x, y, f[0], f[1])
		trainY := append(append([]int(nil), codes[:f[0]]...), codes[f[1]:]...)
		t := fitClassifier(trainX, trainY, labels)

		truth := codes[f[0]:f[1]]
		pred := make([]int, len(testX))
		for i, v := range testX {
			pred[i] = int(t.predict(v))
		}
		scores = append(scores, weightedF1(truth, pred, labels))
	}
	modelF1 := stat.Mean(scores, nil)

	counts := make([]int, labels)
	for _, c := range codes {
		counts[c]++
	}
	mostFrequent := 0
	for c, n := range counts {
		if n > counts[mostFrequent] {
			mostFrequent = c
		}
	}
	naive := make([]int, len(codes))
	for i := range naive {
		naive[i] = mostFrequent
	}
	baseline := weightedF1(codes, naive, labels)

	if baseline >= 1 || modelF1 < baseline {
		return 0
	}
	return (modelF1 - baseline) / (1 - baseline)
}

// denseLabels maps class values onto codes in [0, labels).
func denseLabels(y []float64) ([]int, int) {
	index := make(map[float64]int)
	values := make([]float64, 0)
	for _, v := range y {
		if _, ok := index[v]; !ok {
			index[v] = 0
			values = append(values, v)
		}
	}
	sort.Float64s(values)
	for i, v := range values {
		index[v] = i
	}
	codes := make([]int, len(y))
	for i, v := range y {
		codes[i] = index[v]
	}
	return codes, len(values)
}

// weightedF1 is the support-weighted mean of per-class F1 scores.
func weightedF1(truth, pred []int, labels int) float64 {
	if len(truth) == 0 {
		return 0
	}
	tp := make([]int, labels)
	support := make([]int, labels)
	predicted := make([]int, labels)
	for i, c := range truth {
		support[c]++
		predicted[pred[i]]++
		if pred[i] == c {
			tp[c]++
		}
	}

	var total float64
	for c := 0; c < labels; c++ {
		if support[c] == 0 || tp[c] == 0 {
			continue
		}
		precision := float64(tp[c]) / float64(predicted[c])
		recall := float64(tp[c]) / float64(support[c])
		total += float64(support[c]) * 2 * precision * recall / (precision + recall)
	}
	return total / float64(len(truth))
}
