package ml

import (
	"math/rand"
	"testing"
)

// stackedData builds [time][channel] tensors where class 1 trials carry a
// positive offset and class 0 trials a negative one.
func stackedData(n, steps, channels int, seed int64) ([][][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][][]float64, n)
	y := make([]int, n)
	for i := range X {
		label := i % 2
		offset := -1.0
		if label == 1 {
			offset = 1.0
		}
		X[i] = make([][]float64, steps)
		for t := range X[i] {
			X[i][t] = make([]float64, channels)
			for c := range X[i][t] {
				X[i][t][c] = offset + rng.NormFloat64()*0.1
			}
		}
		y[i] = label
	}
	return X, y
}

func TestConvNetSeparable(t *testing.T) {
	t.Parallel()

	X, y := stackedData(40, 50, 2, 31)
	model := NewConvNet(4, 5, 100, 8, 42)
	if err := model.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	var correct int
	for i := range X {
		if model.Predict(X[i]) == y[i] {
			correct++
		}
	}
	if acc := float64(correct) / float64(len(X)); acc < 0.9 {
		t.Errorf("expected high training accuracy on separable tensors, got %f", acc)
	}

	if len(model.History) != 100 {
		t.Fatalf("expected 100 history entries, got %d", len(model.History))
	}
	first, last := model.History[0], model.History[len(model.History)-1]
	if last.Loss >= first.Loss {
		t.Errorf("training loss did not decrease: %f -> %f", first.Loss, last.Loss)
	}
}

func TestConvNetFitErrors(t *testing.T) {
	t.Parallel()

	X, y := stackedData(8, 20, 2, 32)

	if err := NewConvNet(4, 5, 10, 4, 1).Fit(nil, nil); err == nil {
		t.Error("expected error for empty input")
	}
	if err := NewConvNet(0, 5, 10, 4, 1).Fit(X, y); err == nil {
		t.Error("expected error for zero filters")
	}
	if err := NewConvNet(4, 25, 10, 4, 1).Fit(X, y); err == nil {
		t.Error("expected error when the kernel exceeds the series length")
	}

	ragged, labels := stackedData(4, 20, 2, 33)
	ragged[2][5] = []float64{1} // inconsistent channel count
	if err := NewConvNet(4, 5, 10, 4, 1).Fit(ragged, labels); err == nil {
		t.Error("expected error for inconsistent channel counts")
	}
}
