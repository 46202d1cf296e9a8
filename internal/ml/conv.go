package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// ConvNet is a small 1-D convolutional classifier over [time][channel]
// tensors from BuildStacked: a bank of temporal filters shared across
// time, ReLU, global average pooling and a logistic output. Trained by
// mini-batch SGD on cross-entropy loss.
type ConvNet struct {
	Filters      int
	KernelSize   int
	LearningRate float64
	Epochs       int
	BatchSize    int
	Seed         int64

	kernels [][][]float64 // [filter][tap][channel]
	kbias   []float64
	w       []float64 // [filter]
	b       float64

	History []EpochStats
}

// NewConvNet returns a network with the default architecture.
func NewConvNet(filters, kernelSize, epochs, batchSize int, seed int64) *ConvNet {
	return &ConvNet{
		Filters:      filters,
		KernelSize:   kernelSize,
		LearningRate: 0.01,
		Epochs:       epochs,
		BatchSize:    batchSize,
		Seed:         seed,
	}
}

// Fit trains the network. Every tensor must have at least KernelSize
// time steps and a consistent channel count.
func (c *ConvNet) Fit(X [][][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("convnet: %d samples, %d labels", len(X), len(y))
	}
	if c.Filters <= 0 || c.KernelSize <= 0 || c.Epochs <= 0 || c.BatchSize <= 0 {
		return fmt.Errorf("convnet: invalid schedule filters=%d kernel=%d epochs=%d batch=%d",
			c.Filters, c.KernelSize, c.Epochs, c.BatchSize)
	}

	channels := len(X[0][0])
	for i, tensor := range X {
		if len(tensor) < c.KernelSize {
			return fmt.Errorf("convnet: tensor %d has %d steps, kernel needs %d", i, len(tensor), c.KernelSize)
		}
		for _, step := range tensor {
			if len(step) != channels {
				return fmt.Errorf("convnet: tensor %d has inconsistent channel count", i)
			}
		}
	}

	rng := rand.New(rand.NewSource(c.Seed))
	limit := math.Sqrt(6 / float64(c.KernelSize*channels+1))
	c.kernels = make([][][]float64, c.Filters)
	for f := range c.kernels {
		c.kernels[f] = make([][]float64, c.KernelSize)
		for k := range c.kernels[f] {
			c.kernels[f][k] = make([]float64, channels)
			for ch := range c.kernels[f][k] {
				c.kernels[f][k][ch] = (rng.Float64()*2 - 1) * limit
			}
		}
	}
	c.kbias = make([]float64, c.Filters)
	c.w = make([]float64, c.Filters)
	for f := range c.w {
		c.w[f] = (rng.Float64()*2 - 1) * limit
	}
	c.b = 0

	c.History = c.History[:0]
	n := len(X)

	for epoch := 0; epoch < c.Epochs; epoch++ {
		order := rng.Perm(n)

		for start := 0; start < n; start += c.BatchSize {
			end := start + c.BatchSize
			if end > n {
				end = n
			}
			for _, i := range order[start:end] {
				c.sgdStep(X[i], y[i], float64(end-start))
			}
		}

		var loss float64
		var correct int
		for i := range X {
			p, _, _ := c.forward(X[i])
			loss += logLoss(p, y[i])
			if predictLabel(p) == y[i] {
				correct++
			}
		}
		c.History = append(c.History, EpochStats{
			Epoch:    epoch + 1,
			Loss:     loss / float64(n),
			Accuracy: float64(correct) / float64(n),
		})
	}
	return nil
}

// forward returns the output probability, the pre-activation maps and the
// pooled feature vector.
func (c *ConvNet) forward(x [][]float64) (p float64, preact [][]float64, pooled []float64) {
	steps := len(x) - c.KernelSize + 1
	preact = make([][]float64, c.Filters)
	pooled = make([]float64, c.Filters)

	for f := 0; f < c.Filters; f++ {
		preact[f] = make([]float64, steps)
		var sum float64
		for t := 0; t < steps; t++ {
			a := c.kbias[f]
			for k := 0; k < c.KernelSize; k++ {
				taps := c.kernels[f][k]
				row := x[t+k]
				for ch := range taps {
					a += taps[ch] * row[ch]
				}
			}
			preact[f][t] = a
			if a > 0 {
				sum += a
			}
		}
		pooled[f] = sum / float64(steps)
	}

	z := c.b
	for f := range pooled {
		z += c.w[f] * pooled[f]
	}
	return sigmoid(z), preact, pooled
}

func (c *ConvNet) sgdStep(x [][]float64, y int, batchSize float64) {
	p, preact, pooled := c.forward(x)
	dz := p - float64(y)
	scale := c.LearningRate / batchSize

	steps := len(preact[0])
	for f := 0; f < c.Filters; f++ {
		dPool := dz * c.w[f]
		c.w[f] -= scale * dz * pooled[f]

		var dBias float64
		for t := 0; t < steps; t++ {
			if preact[f][t] <= 0 {
				continue // ReLU gate
			}
			da := dPool / float64(steps)
			dBias += da
			for k := 0; k < c.KernelSize; k++ {
				taps := c.kernels[f][k]
				row := x[t+k]
				for ch := range taps {
					taps[ch] -= scale * da * row[ch]
				}
			}
		}
		c.kbias[f] -= scale * dBias
	}
	c.b -= scale * dz
}

// Predict returns the class of one [time][channel] tensor.
func (c *ConvNet) Predict(x [][]float64) int {
	p, _, _ := c.forward(x)
	return predictLabel(p)
}
