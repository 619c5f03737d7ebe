package correlation

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/tripguard/pkg/core"
)

func numericColumn(name string, values []float64) Column {
	return Column{Name: name, Kind: Numeric, Values: values}
}

func noise(n int, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64() * 100
	}
	return out
}

func TestEncode(t *testing.T) {
	t.Run("numeric", func(t *testing.T) {
		c := Encode("fare", []core.Value{int64(1), 2.5, nil})
		assert.Equal(t, Numeric, c.Kind)
		assert.Equal(t, 1.0, c.Values[0])
		assert.Equal(t, 2.5, c.Values[1])
		assert.True(t, math.IsNaN(c.Values[2]))
	})

	t.Run("categorical labels in sorted order", func(t *testing.T) {
		c := Encode("flag", []core.Value{"Y", "N", nil, "Y"})
		assert.Equal(t, Categorical, c.Kind)
		assert.Equal(t, 1.0, c.Values[0])
		assert.Equal(t, 0.0, c.Values[1])
		assert.True(t, math.IsNaN(c.Values[2]))
		assert.Equal(t, 1.0, c.Values[3])
	})

	t.Run("timestamps are unsupported", func(t *testing.T) {
		c := Encode("pickup", []core.Value{time.Now()})
		assert.Equal(t, Unsupported, c.Kind)
	})

	t.Run("mixed kinds are unsupported", func(t *testing.T) {
		c := Encode("mixed", []core.Value{"a", 1.0})
		assert.Equal(t, Unsupported, c.Kind)
	})
}

func TestTree_Regressor(t *testing.T) {
	tr := fitRegressor([]float64{4, 1, 3, 2}, []float64{5, 1, 5, 1})

	assert.Equal(t, 1.0, tr.predict(1.4))
	assert.Equal(t, 1.0, tr.predict(2.5))
	assert.Equal(t, 5.0, tr.predict(3.6))
	assert.Equal(t, 5.0, tr.predict(100))
}

func TestTree_Classifier(t *testing.T) {
	tr := fitClassifier([]float64{1, 2, 3, 4, 5, 6}, []int{0, 0, 1, 1, 0, 0}, 2)

	assert.Equal(t, 0.0, tr.predict(1))
	assert.Equal(t, 1.0, tr.predict(3.2))
	assert.Equal(t, 0.0, tr.predict(5.9))
}

func TestFolds(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 3}, {3, 6}, {6, 8}, {8, 10}}, folds(10))
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}}, folds(2))
}

func TestWeightedF1(t *testing.T) {
	got := weightedF1([]int{0, 0, 1, 1}, []int{0, 0, 0, 1}, 2)
	assert.InDelta(t, (2*0.8+2*(2.0/3.0))/4, got, 1e-12)
	assert.Equal(t, 1.0, weightedF1([]int{0, 1}, []int{0, 1}, 2))
}

func TestPPS_SpecialCases(t *testing.T) {
	pps := DefaultPPS()
	y := numericColumn("y", []float64{1, 2, 3, 4, 5, 6})

	t.Run("column against itself", func(t *testing.T) {
		assert.Equal(t, 1.0, pps.Score(y, y))
	})

	t.Run("constant target", func(t *testing.T) {
		constant := numericColumn("c", []float64{7, 7, 7, 7, 7, 7})
		assert.Equal(t, 0.0, pps.Score(y, constant))
	})

	t.Run("id-like categorical feature", func(t *testing.T) {
		id := Encode("trip_id", []core.Value{"a", "b", "c", "d", "e", "f"})
		assert.Equal(t, 0.0, pps.Score(id, y))
	})

	t.Run("id-like categorical target", func(t *testing.T) {
		id := Encode("trip_id", []core.Value{"a", "b", "c", "d", "e", "f"})
		assert.Equal(t, 0.0, pps.Score(y, id))
	})

	t.Run("too few complete rows", func(t *testing.T) {
		x := numericColumn("x", []float64{1, math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()})
		assert.Equal(t, 0.0, pps.Score(x, y))
	})

	t.Run("unsupported column", func(t *testing.T) {
		x := Column{Name: "pickup", Kind: Unsupported, Values: make([]float64, 6)}
		assert.Equal(t, 0.0, pps.Score(x, y))
	})
}

func TestPPS_RegressionCopyOfTarget(t *testing.T) {
	n := 200
	target := make([]float64, n)
	feature := make([]float64, n)
	for i := range target {
		target[i] = float64(i % 10)
		feature[i] = target[i]*2 + 1
	}

	score := DefaultPPS().Score(numericColumn("fare_copy", feature), numericColumn("fare", target))
	assert.Greater(t, score, 0.95)
}

func TestPPS_RegressionNoise(t *testing.T) {
	n := 400
	target := noise(n, 1)
	feature := noise(n, 2)

	score := DefaultPPS().Score(numericColumn("x", feature), numericColumn("y", target))
	assert.Less(t, score, 0.3)
}

func TestPPS_Classification(t *testing.T) {
	n := 200
	x := make([]float64, n)
	labels := make([]core.Value, n)
	for i := range x {
		x[i] = float64(i)
		if i < 100 {
			labels[i] = "short"
		} else {
			labels[i] = "long"
		}
	}

	score := DefaultPPS().Score(numericColumn("trip_distance", x), Encode("trip_kind", labels))
	assert.InDelta(t, 1.0, score, 0.05)
}

func TestPPS_Deterministic(t *testing.T) {
	x := numericColumn("x", noise(300, 3))
	y := numericColumn("y", noise(300, 4))
	pps := PPS{SampleSize: 100, Seed: 9}

	first := pps.Score(x, y)
	for i := 0; i < 3; i++ {
		require.Equal(t, first, pps.Score(x, y))
	}
}
