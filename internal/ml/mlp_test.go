package ml

import "testing"

func TestMLPSeparable(t *testing.T) {
	t.Parallel()

	X, y := separableData(60, 21)
	model := NewMLP(8, 100, 8, 42)
	if err := model.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if acc := Evaluate(PredictAll(model, X), y).Accuracy; acc < 0.9 {
		t.Errorf("expected high training accuracy on separable data, got %f", acc)
	}

	if len(model.History) != 100 {
		t.Fatalf("expected 100 history entries, got %d", len(model.History))
	}
	first, last := model.History[0], model.History[len(model.History)-1]
	if last.Loss >= first.Loss {
		t.Errorf("training loss did not decrease: %f -> %f", first.Loss, last.Loss)
	}
	if last.Epoch != 100 {
		t.Errorf("expected final epoch 100, got %d", last.Epoch)
	}
}

func TestMLPDeterministic(t *testing.T) {
	t.Parallel()

	X, y := separableData(30, 22)

	a := NewMLP(8, 20, 8, 7)
	if err := a.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	b := NewMLP(8, 20, 8, 7)
	if err := b.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	for i := range a.History {
		if a.History[i].Loss != b.History[i].Loss {
			t.Fatalf("epoch %d: losses differ for identical seeds: %f vs %f",
				i+1, a.History[i].Loss, b.History[i].Loss)
		}
	}
	for i := range X {
		if a.Predict(X[i]) != b.Predict(X[i]) {
			t.Fatalf("sample %d: predictions differ for identical seeds", i)
		}
	}
}

func TestMLPFitErrors(t *testing.T) {
	t.Parallel()

	X, y := separableData(10, 23)

	if err := NewMLP(8, 10, 4, 1).Fit(nil, nil); err == nil {
		t.Error("expected error for empty input")
	}
	if err := NewMLP(0, 10, 4, 1).Fit(X, y); err == nil {
		t.Error("expected error for zero hidden units")
	}
	if err := NewMLP(8, 0, 4, 1).Fit(X, y); err == nil {
		t.Error("expected error for zero epochs")
	}
	if err := NewMLP(8, 10, 0, 1).Fit(X, y); err == nil {
		t.Error("expected error for zero batch size")
	}
}
