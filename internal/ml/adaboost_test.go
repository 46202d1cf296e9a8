package ml

import (
	"math/rand"
	"testing"
)

// separableData builds a two-class problem split cleanly on the first
// feature, with an uninformative second feature.
func separableData(n int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		label := i % 2
		offset := -2.0
		if label == 1 {
			offset = 2.0
		}
		X[i] = []float64{offset + rng.NormFloat64()*0.2, rng.NormFloat64()}
		y[i] = label
	}
	return X, y
}

func TestAdaBoostSeparable(t *testing.T) {
	t.Parallel()

	X, y := separableData(40, 1)
	model := NewAdaBoost(50, 0.5)
	if err := model.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	scores := Evaluate(PredictAll(model, X), y)
	if scores.Accuracy != 1 {
		t.Errorf("expected perfect training accuracy on separable data, got %f", scores.Accuracy)
	}
	if scores.F1 != 1 {
		t.Errorf("expected perfect F1 on separable data, got %f", scores.F1)
	}
}

func TestAdaBoostOverlapping(t *testing.T) {
	t.Parallel()

	// Overlapping classes: the ensemble should still beat chance.
	rng := rand.New(rand.NewSource(2))
	n := 200
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		label := i % 2
		offset := -0.8
		if label == 1 {
			offset = 0.8
		}
		X[i] = []float64{offset + rng.NormFloat64()}
		y[i] = label
	}

	model := NewAdaBoost(100, 0.5)
	if err := model.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if acc := Evaluate(PredictAll(model, X), y).Accuracy; acc < 0.65 {
		t.Errorf("expected accuracy above chance, got %f", acc)
	}
}

func TestAdaBoostFitErrors(t *testing.T) {
	t.Parallel()

	X, y := separableData(10, 3)

	if err := NewAdaBoost(50, 0.5).Fit(nil, nil); err == nil {
		t.Error("expected error for empty input")
	}
	if err := NewAdaBoost(0, 0.5).Fit(X, y); err == nil {
		t.Error("expected error for zero ensemble size")
	}
	if err := NewAdaBoost(50, 0).Fit(X, y); err == nil {
		t.Error("expected error for zero learning rate")
	}

	bad := append([]int{}, y...)
	bad[0] = 2
	if err := NewAdaBoost(50, 0.5).Fit(X, bad); err == nil {
		t.Error("expected error for non-binary label")
	}
}

func TestGridSearchAdaBoost(t *testing.T) {
	t.Parallel()

	X, y := separableData(40, 4)
	ds := &Dataset{FeatureNames: []string{"f0", "f1"}, X: X, Y: y}

	best, err := GridSearchAdaBoost(ds, []int{10, 25}, []float64{0.1, 1.0}, 4, 42)
	if err != nil {
		t.Fatalf("GridSearchAdaBoost failed: %v", err)
	}

	if best.Model == nil {
		t.Fatal("grid search returned no refitted model")
	}
	if best.Estimators != 10 && best.Estimators != 25 {
		t.Errorf("selected ensemble size %d not in grid", best.Estimators)
	}
	if best.LearningRate != 0.1 && best.LearningRate != 1.0 {
		t.Errorf("selected learning rate %f not in grid", best.LearningRate)
	}
	if best.CVAccuracy < 0.9 {
		t.Errorf("expected high CV accuracy on separable data, got %f", best.CVAccuracy)
	}

	// The refitted model must be usable directly.
	if acc := Evaluate(PredictAll(best.Model, X), y).Accuracy; acc < 0.95 {
		t.Errorf("refitted model accuracy %f too low", acc)
	}
}

func TestGridSearchAdaBoostErrors(t *testing.T) {
	t.Parallel()

	X, y := separableData(10, 5)
	ds := &Dataset{X: X, Y: y}

	if _, err := GridSearchAdaBoost(ds, nil, []float64{0.1}, 3, 1); err == nil {
		t.Error("expected error for empty estimator grid")
	}
	if _, err := GridSearchAdaBoost(ds, []int{10}, nil, 3, 1); err == nil {
		t.Error("expected error for empty rate grid")
	}
	if _, err := GridSearchAdaBoost(ds, []int{10}, []float64{0.1}, 1, 1); err == nil {
		t.Error("expected error for invalid fold count")
	}
}
