// Package ml trains and evaluates classifiers on the assembled feature
// table and on raw multi-channel waveforms. All models implement the
// same small Classifier interface; training is deterministic for a fixed
// seed.
package ml

import (
	"fmt"
	"math/rand"

	"eeg-pipeline/internal/table"
)

// Classifier is a trainable two-class model over float feature vectors.
type Classifier interface {
	Fit(X [][]float64, y []int) error
	Predict(x []float64) int
}

// Dataset is a row-major design matrix with integer class labels.
type Dataset struct {
	FeatureNames []string
	X            [][]float64
	Y            []int
}

// FromTable builds a dataset from a feature table. Columns containing
// NaN or infinite values are dropped first; the label column becomes Y.
func FromTable(t *table.Table, labelColumn string) (*Dataset, error) {
	clean := t.DropNaNColumns()
	if !clean.HasColumn(labelColumn) {
		return nil, fmt.Errorf("label column %q missing or contains non-finite values", labelColumn)
	}

	labels, err := clean.Column(labelColumn)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, name := range clean.Columns() {
		if name != labelColumn {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("table has no feature columns besides %q", labelColumn)
	}

	ds := &Dataset{FeatureNames: names}
	for i := 0; i < clean.NumRows(); i++ {
		row, err := clean.Row(i, names)
		if err != nil {
			return nil, err
		}
		ds.X = append(ds.X, row)
		ds.Y = append(ds.Y, int(labels[i]))
	}
	return ds, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.X) }

// Subset returns the dataset restricted to the given row indices.
func (d *Dataset) Subset(idx []int) *Dataset {
	out := &Dataset{FeatureNames: d.FeatureNames}
	for _, i := range idx {
		out.X = append(out.X, d.X[i])
		out.Y = append(out.Y, d.Y[i])
	}
	return out
}

// Split shuffles the row indices with the given seed and partitions the
// dataset into train and test subsets. The seed makes reported scores
// reproducible run to run.
func (d *Dataset) Split(testFraction float64, seed int64) (train, test *Dataset, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction must be in (0, 1), got %f", testFraction)
	}
	n := d.Len()
	nTest := int(float64(n) * testFraction)
	if nTest == 0 || nTest == n {
		return nil, nil, fmt.Errorf("cannot split %d samples with test fraction %f", n, testFraction)
	}

	idx := rand.New(rand.NewSource(seed)).Perm(n)
	return d.Subset(idx[nTest:]), d.Subset(idx[:nTest]), nil
}

// Folds partitions the shuffled row indices into k cross-validation
// folds, returned as (train, validation) index pairs.
func (d *Dataset) Folds(k int, seed int64) ([][2][]int, error) {
	n := d.Len()
	if k < 2 || k > n {
		return nil, fmt.Errorf("cannot make %d folds from %d samples", k, n)
	}

	idx := rand.New(rand.NewSource(seed)).Perm(n)
	folds := make([][2][]int, k)
	for f := 0; f < k; f++ {
		lo := f * n / k
		hi := (f + 1) * n / k
		val := idx[lo:hi]
		train := make([]int, 0, n-len(val))
		train = append(train, idx[:lo]...)
		train = append(train, idx[hi:]...)
		folds[f] = [2][]int{train, val}
	}
	return folds, nil
}

// PredictAll applies a fitted classifier to every row.
func PredictAll(c Classifier, X [][]float64) []int {
	out := make([]int, len(X))
	for i, x := range X {
		out[i] = c.Predict(x)
	}
	return out
}
