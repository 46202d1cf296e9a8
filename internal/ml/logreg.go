package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// LogisticRegression is a two-class linear classifier fitted by
// full-batch gradient descent on standardized features.
type LogisticRegression struct {
	LearningRate float64
	Iterations   int

	weights []float64
	bias    float64
	means   []float64
	stds    []float64
}

// NewLogisticRegression returns a model with the default training
// schedule.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{LearningRate: 0.1, Iterations: 500}
}

// Fit trains the model. Labels must be 0 or 1.
func (m *LogisticRegression) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("logistic regression: %d samples, %d labels", len(X), len(y))
	}
	nFeatures := len(X[0])
	for i, x := range X {
		if len(x) != nFeatures {
			return fmt.Errorf("logistic regression: row %d has %d features, want %d", i, len(x), nFeatures)
		}
	}
	for i, label := range y {
		if label != 0 && label != 1 {
			return fmt.Errorf("logistic regression: label %d at row %d is not binary", label, i)
		}
	}

	m.fitScaler(X)
	scaled := make([][]float64, len(X))
	for i, x := range X {
		scaled[i] = m.scale(x)
	}

	m.weights = make([]float64, nFeatures)
	m.bias = 0
	grad := make([]float64, nFeatures)

	for it := 0; it < m.Iterations; it++ {
		for j := range grad {
			grad[j] = 0
		}
		var biasGrad float64

		for i, x := range scaled {
			err := m.prob(x) - float64(y[i])
			for j := range x {
				grad[j] += err * x[j]
			}
			biasGrad += err
		}

		scale := m.LearningRate / float64(len(scaled))
		for j := range m.weights {
			m.weights[j] -= scale * grad[j]
		}
		m.bias -= scale * biasGrad
	}
	return nil
}

// Predict returns the class of x.
func (m *LogisticRegression) Predict(x []float64) int {
	if m.prob(m.scale(x)) >= 0.5 {
		return 1
	}
	return 0
}

func (m *LogisticRegression) prob(scaled []float64) float64 {
	z := m.bias
	for j, w := range m.weights {
		if j < len(scaled) {
			z += w * scaled[j]
		}
	}
	return 1 / (1 + math.Exp(-z))
}

func (m *LogisticRegression) fitScaler(X [][]float64) {
	nFeatures := len(X[0])
	m.means = make([]float64, nFeatures)
	m.stds = make([]float64, nFeatures)

	col := make([]float64, len(X))
	for j := 0; j < nFeatures; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		m.means[j], m.stds[j] = mean, std
	}
}

func (m *LogisticRegression) scale(x []float64) []float64 {
	out := make([]float64, len(x))
	for j := range x {
		if j < len(m.means) {
			out[j] = (x[j] - m.means[j]) / m.stds[j]
		} else {
			out[j] = x[j]
		}
	}
	return out
}
