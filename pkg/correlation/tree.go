package correlation

import (
	"gonum.org/v1/gonum/floats"
)

// node is one node of a single-feature decision tree. Leaves have
// left == -1.
type node struct {
	threshold float64
	left      int
	right     int
	value     float64
}

// tree is a fully grown CART tree over one numeric feature.
//
// Regression trees split on squared error and predict the leaf mean.
// Classification trees split on Gini impurity and predict the majority
// class, breaking ties toward the smaller class code.
type tree struct {
	nodes []node
}

// predict returns the prediction for feature value x.
func (t *tree) predict(x float64) float64 {
	i := 0
	for t.nodes[i].left >= 0 {
		if x <= t.nodes[i].threshold {
			i = t.nodes[i].left
		} else {
			i = t.nodes[i].right
		}
	}
	return t.nodes[i].value
}

// sortByFeature returns copies of x and y ordered by ascending x.
func sortByFeature(x, y []float64) ([]float64, []float64) {
	xs := append([]float64(nil), x...)
	idx := make([]int, len(xs))
	floats.Argsort(xs, idx)
	ys := make([]float64, len(y))
	for i, j := range idx {
		ys[i] = y[j]
	}
	return xs, ys
}

// =============================================================================
// Regression
// =============================================================================

type regressionBuilder struct {
	xs, ys []float64
	sum    []float64 // prefix sums of ys
	sumSq  []float64 // prefix sums of ys squared
	nodes  []node
}

// fitRegressor grows a regression tree on (x, y).
func fitRegressor(x, y []float64) *tree {
	xs, ys := sortByFeature(x, y)
	b := &regressionBuilder{
		xs:    xs,
		ys:    ys,
		sum:   make([]float64, len(ys)+1),
		sumSq: make([]float64, len(ys)+1),
	}
	for i, v := range ys {
		b.sum[i+1] = b.sum[i] + v
		b.sumSq[i+1] = b.sumSq[i] + v*v
	}
	b.grow(0, len(xs))
	return &tree{nodes: b.nodes}
}

// sse returns the sum of squared errors of ys[lo:hi] around its mean.
func (b *regressionBuilder) sse(lo, hi int) float64 {
	n := float64(hi - lo)
	s := b.sum[hi] - b.sum[lo]
	v := b.sumSq[hi] - b.sumSq[lo] - s*s/n
	if v < 0 {
		return 0
	}
	return v
}

func (b *regressionBuilder) grow(lo, hi int) int {
	id := len(b.nodes)
	mean := (b.sum[hi] - b.sum[lo]) / float64(hi-lo)
	b.nodes = append(b.nodes, node{left: -1, right: -1, value: mean})

	if hi-lo < 2 || b.sse(lo, hi) <= 1e-12 {
		return id
	}

	best, bestCost := -1, 0.0
	for i := lo + 1; i < hi; i++ {
		if b.xs[i] == b.xs[i-1] {
			continue
		}
		cost := b.sse(lo, i) + b.sse(i, hi)
		if best < 0 || cost < bestCost {
			best, bestCost = i, cost
		}
	}
	if best < 0 {
		return id
	}

	threshold := b.xs[best-1] + (b.xs[best]-b.xs[best-1])/2
	left := b.grow(lo, best)
	right := b.grow(best, hi)
	b.nodes[id] = node{threshold: threshold, left: left, right: right, value: mean}
	return id
}

// =============================================================================
// Classification
// =============================================================================

type classificationBuilder struct {
	xs     []float64
	ys     []int
	labels int
	nodes  []node
}

// fitClassifier grows a classification tree on (x, y); y holds class codes
// in [0, labels).
func fitClassifier(x []float64, y []int, labels int) *tree {
	yf := make([]float64, len(y))
	for i, v := range y {
		yf[i] = float64(v)
	}
	xs, ysf := sortByFeature(x, yf)
	ys := make([]int, len(ysf))
	for i, v := range ysf {
		ys[i] = int(v)
	}
	b := &classificationBuilder{xs: xs, ys: ys, labels: labels}
	b.grow(0, len(xs))
	return &tree{nodes: b.nodes}
}

func (b *classificationBuilder) grow(lo, hi int) int {
	counts := make([]int, b.labels)
	for _, c := range b.ys[lo:hi] {
		counts[c]++
	}
	majority, distinct := 0, 0
	for c, n := range counts {
		if n > counts[majority] {
			majority = c
		}
		if n > 0 {
			distinct++
		}
	}

	id := len(b.nodes)
	b.nodes = append(b.nodes, node{left: -1, right: -1, value: float64(majority)})
	if hi-lo < 2 || distinct < 2 {
		return id
	}

	// Weighted Gini of a split is nL - sqL/nL + nR - sqR/nR where sq is the
	// sum of squared class counts on each side.
	left := make([]int, b.labels)
	right := append([]int(nil), counts...)
	sqLeft, sqRight := 0.0, 0.0
	for _, n := range right {
		sqRight += float64(n * n)
	}

	best, bestCost := -1, 0.0
	for i := lo + 1; i < hi; i++ {
		c := b.ys[i-1]
		sqLeft += float64(2*left[c] + 1)
		sqRight -= float64(2*right[c] - 1)
		left[c]++
		right[c]--

		if b.xs[i] == b.xs[i-1] {
			continue
		}
		nl, nr := float64(i-lo), float64(hi-i)
		cost := nl - sqLeft/nl + nr - sqRight/nr
		if best < 0 || cost < bestCost {
			best, bestCost = i, cost
		}
	}
	if best < 0 {
		return id
	}

	threshold := b.xs[best-1] + (b.xs[best]-b.xs[best-1])/2
	l := b.grow(lo, best)
	r := b.grow(best, hi)
	b.nodes[id] = node{threshold: threshold, left: l, right: r, value: float64(majority)}
	return id
}
