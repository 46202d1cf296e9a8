package ml

import (
	"fmt"
	"math"
	"sort"
)

// stump is a one-feature threshold classifier, the weak learner used by
// AdaBoost. It predicts in {-1, +1}.
type stump struct {
	feature   int
	threshold float64
	polarity  float64
}

func (s *stump) predict(x []float64) float64 {
	if s.feature >= len(x) {
		return -1
	}
	if x[s.feature] < s.threshold {
		return -s.polarity
	}
	return s.polarity
}

// trainStump finds the weighted-error-minimizing threshold over all
// features and both polarities.
func trainStump(X [][]float64, y []float64, w []float64) *stump {
	best := &stump{polarity: 1}
	bestErr := math.Inf(1)

	nFeatures := len(X[0])
	values := make([]float64, len(X))

	for f := 0; f < nFeatures; f++ {
		for i := range X {
			values[i] = X[i][f]
		}
		thresholds := candidateThresholds(values)

		for _, thresh := range thresholds {
			for _, polarity := range []float64{1, -1} {
				var werr float64
				for i := range X {
					pred := -polarity
					if values[i] >= thresh {
						pred = polarity
					}
					if pred != y[i] {
						werr += w[i]
					}
				}
				if werr < bestErr {
					bestErr = werr
					best = &stump{feature: f, threshold: thresh, polarity: polarity}
				}
			}
		}
	}
	return best
}

func candidateThresholds(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var out []float64
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			out = append(out, (sorted[i]+sorted[i-1])/2)
		}
	}
	if len(out) == 0 {
		out = append(out, sorted[0])
	}
	return out
}

// AdaBoost is a boosted ensemble of decision stumps with a shrinkage
// learning rate.
type AdaBoost struct {
	Estimators   int
	LearningRate float64

	stumps []*stump
	alphas []float64
}

// NewAdaBoost returns an ensemble with the given size and learning rate.
func NewAdaBoost(estimators int, learningRate float64) *AdaBoost {
	return &AdaBoost{Estimators: estimators, LearningRate: learningRate}
}

// Fit trains the ensemble. Labels must be 0 or 1.
func (a *AdaBoost) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("adaboost: %d samples, %d labels", len(X), len(y))
	}
	if a.Estimators <= 0 {
		return fmt.Errorf("adaboost: ensemble size must be positive, got %d", a.Estimators)
	}
	if a.LearningRate <= 0 {
		return fmt.Errorf("adaboost: learning rate must be positive, got %f", a.LearningRate)
	}

	// Internally labels are in {-1, +1}.
	signs := make([]float64, len(y))
	for i, label := range y {
		if label != 0 && label != 1 {
			return fmt.Errorf("adaboost: label %d at row %d is not binary", label, i)
		}
		signs[i] = 2*float64(label) - 1
	}

	n := len(X)
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}

	a.stumps = a.stumps[:0]
	a.alphas = a.alphas[:0]

	for t := 0; t < a.Estimators; t++ {
		s := trainStump(X, signs, w)

		var werr float64
		for i := range X {
			if s.predict(X[i]) != signs[i] {
				werr += w[i]
			}
		}
		if werr >= 0.5 {
			break // weak learner no better than chance
		}

		var alpha float64
		if werr < 1e-12 {
			alpha = a.LearningRate * 10 // perfect stump; cap the vote
		} else {
			alpha = a.LearningRate * 0.5 * math.Log((1-werr)/werr)
		}
		a.stumps = append(a.stumps, s)
		a.alphas = append(a.alphas, alpha)

		if werr < 1e-12 {
			break
		}

		var sum float64
		for i := range w {
			w[i] *= math.Exp(-alpha * signs[i] * s.predict(X[i]))
			sum += w[i]
		}
		for i := range w {
			w[i] /= sum
		}
	}

	if len(a.stumps) == 0 {
		return fmt.Errorf("adaboost: no usable weak learner found")
	}
	return nil
}

// Predict returns the class of x by the weighted stump vote.
func (a *AdaBoost) Predict(x []float64) int {
	var score float64
	for i, s := range a.stumps {
		score += a.alphas[i] * s.predict(x)
	}
	if score >= 0 {
		return 1
	}
	return 0
}

// GridResult is the outcome of a cross-validated grid search.
type GridResult struct {
	Estimators   int
	LearningRate float64
	CVAccuracy   float64
	Model        *AdaBoost
}

// GridSearchAdaBoost evaluates every (ensemble size, learning rate)
// combination with k-fold cross-validation, selects the combination with
// the best mean validation accuracy and refits it on the full dataset.
func GridSearchAdaBoost(ds *Dataset, estimators []int, rates []float64, folds int, seed int64) (*GridResult, error) {
	if len(estimators) == 0 || len(rates) == 0 {
		return nil, fmt.Errorf("grid search: empty parameter grid")
	}

	cv, err := ds.Folds(folds, seed)
	if err != nil {
		return nil, err
	}

	best := &GridResult{CVAccuracy: -1}
	for _, n := range estimators {
		for _, lr := range rates {
			var sum float64
			var evaluated int
			for _, fold := range cv {
				train := ds.Subset(fold[0])
				val := ds.Subset(fold[1])
				if val.Len() == 0 {
					continue
				}

				model := NewAdaBoost(n, lr)
				if err := model.Fit(train.X, train.Y); err != nil {
					return nil, fmt.Errorf("grid search: fold fit with %d estimators, rate %g: %w", n, lr, err)
				}
				sum += Evaluate(PredictAll(model, val.X), val.Y).Accuracy
				evaluated++
			}
			if evaluated == 0 {
				continue
			}

			mean := sum / float64(evaluated)
			if mean > best.CVAccuracy {
				best.Estimators = n
				best.LearningRate = lr
				best.CVAccuracy = mean
			}
		}
	}

	best.Model = NewAdaBoost(best.Estimators, best.LearningRate)
	if err := best.Model.Fit(ds.X, ds.Y); err != nil {
		return nil, fmt.Errorf("grid search: final fit: %w", err)
	}
	return best, nil
}
