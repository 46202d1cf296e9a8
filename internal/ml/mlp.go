package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// EpochStats is one entry of a training curve.
type EpochStats struct {
	Epoch    int
	Loss     float64
	Accuracy float64
}

// MLP is a feed-forward network with one tanh hidden layer and a
// sigmoid output, trained by mini-batch SGD on cross-entropy loss.
// It consumes the flattened waveform tensors from BuildFlat.
type MLP struct {
	Hidden       int
	LearningRate float64
	Epochs       int
	BatchSize    int
	Seed         int64

	w1 [][]float64 // [hidden][in]
	b1 []float64
	w2 []float64 // [hidden]
	b2 float64

	// History holds the per-epoch training curve from the last Fit.
	History []EpochStats
}

// NewMLP returns a network with the default architecture.
func NewMLP(hidden, epochs, batchSize int, seed int64) *MLP {
	return &MLP{
		Hidden:       hidden,
		LearningRate: 0.01,
		Epochs:       epochs,
		BatchSize:    batchSize,
		Seed:         seed,
	}
}

// Fit trains the network for the configured number of epochs.
func (m *MLP) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("mlp: %d samples, %d labels", len(X), len(y))
	}
	if m.Hidden <= 0 || m.Epochs <= 0 || m.BatchSize <= 0 {
		return fmt.Errorf("mlp: invalid schedule hidden=%d epochs=%d batch=%d", m.Hidden, m.Epochs, m.BatchSize)
	}

	in := len(X[0])
	rng := rand.New(rand.NewSource(m.Seed))

	// Xavier-style init keeps tanh units out of saturation at the start.
	limit := math.Sqrt(6 / float64(in+m.Hidden))
	m.w1 = make([][]float64, m.Hidden)
	for h := range m.w1 {
		m.w1[h] = make([]float64, in)
		for j := range m.w1[h] {
			m.w1[h][j] = (rng.Float64()*2 - 1) * limit
		}
	}
	m.b1 = make([]float64, m.Hidden)
	m.w2 = make([]float64, m.Hidden)
	for h := range m.w2 {
		m.w2[h] = (rng.Float64()*2 - 1) * limit
	}
	m.b2 = 0

	m.History = m.History[:0]
	n := len(X)

	for epoch := 0; epoch < m.Epochs; epoch++ {
		order := rng.Perm(n)

		for start := 0; start < n; start += m.BatchSize {
			end := start + m.BatchSize
			if end > n {
				end = n
			}
			m.sgdStep(X, y, order[start:end])
		}

		var loss float64
		var correct int
		for i := range X {
			p, _ := m.forward(X[i])
			loss += logLoss(p, y[i])
			if predictLabel(p) == y[i] {
				correct++
			}
		}
		m.History = append(m.History, EpochStats{
			Epoch:    epoch + 1,
			Loss:     loss / float64(n),
			Accuracy: float64(correct) / float64(n),
		})
	}
	return nil
}

func (m *MLP) sgdStep(X [][]float64, y []int, batch []int) {
	gw1 := make([][]float64, m.Hidden)
	for h := range gw1 {
		gw1[h] = make([]float64, len(X[batch[0]]))
	}
	gb1 := make([]float64, m.Hidden)
	gw2 := make([]float64, m.Hidden)
	var gb2 float64

	for _, i := range batch {
		x := X[i]
		p, hidden := m.forward(x)
		dz2 := p - float64(y[i])

		gb2 += dz2
		for h := range m.w2 {
			gw2[h] += dz2 * hidden[h]
			dz1 := dz2 * m.w2[h] * (1 - hidden[h]*hidden[h])
			gb1[h] += dz1
			for j := range x {
				gw1[h][j] += dz1 * x[j]
			}
		}
	}

	scale := m.LearningRate / float64(len(batch))
	for h := range m.w1 {
		for j := range m.w1[h] {
			m.w1[h][j] -= scale * gw1[h][j]
		}
		m.b1[h] -= scale * gb1[h]
		m.w2[h] -= scale * gw2[h]
	}
	m.b2 -= scale * gb2
}

func (m *MLP) forward(x []float64) (p float64, hidden []float64) {
	hidden = make([]float64, m.Hidden)
	for h := range hidden {
		z := m.b1[h]
		row := m.w1[h]
		for j := range x {
			if j < len(row) {
				z += row[j] * x[j]
			}
		}
		hidden[h] = math.Tanh(z)
	}

	z := m.b2
	for h := range hidden {
		z += m.w2[h] * hidden[h]
	}
	return sigmoid(z), hidden
}

// Predict returns the class of x.
func (m *MLP) Predict(x []float64) int {
	p, _ := m.forward(x)
	return predictLabel(p)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func predictLabel(p float64) int {
	if p >= 0.5 {
		return 1
	}
	return 0
}

func logLoss(p float64, y int) float64 {
	const eps = 1e-12
	if p < eps {
		p = eps
	}
	if p > 1-eps {
		p = 1 - eps
	}
	if y == 1 {
		return -math.Log(p)
	}
	return -math.Log(1 - p)
}
