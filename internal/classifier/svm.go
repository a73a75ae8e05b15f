package classifier

import (
	"fmt"
	"math/rand"
)

// LinearSVM is a one-vs-rest margin classifier trained with hinge-loss SGD.
// Probabilities are a softmax over raw margins and are not calibrated.
type LinearSVM struct {
	Epochs       int
	LearningRate float64
	Lambda       float64
	Seed         int64

	NumClasses int
	// Weights is K x (D+1); the final column is the unregularised bias.
	Weights [][]float64
}

// NewLinearSVM builds an unfitted model from hyperparameters.
func NewLinearSVM(p Params) *LinearSVM {
	return &LinearSVM{
		Epochs:       p.Int("epochs", 200),
		LearningRate: p.Get("learning_rate", 0.01),
		Lambda:       p.Get("lambda", 1e-4),
		Seed:         int64(p.Get("seed", 42)),
	}
}

// Name implements Model.
func (s *LinearSVM) Name() string { return FamilyLinearSVM }

// Fit trains one hinge-loss separator per class against the rest.
func (s *LinearSVM) Fit(X [][]float64, y []int, numClasses int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("linear svm: invalid training shape %d/%d", len(X), len(y))
	}
	if numClasses < 2 {
		return fmt.Errorf("linear svm: need at least 2 classes, got %d", numClasses)
	}

	width := len(X[0])
	s.NumClasses = numClasses
	s.Weights = make([][]float64, numClasses)
	for k := range s.Weights {
		s.Weights[k] = make([]float64, width+1)
	}

	rng := rand.New(rand.NewSource(s.Seed))
	order := make([]int, len(X))
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < s.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		for _, i := range order {
			x := X[i]
			for k := 0; k < numClasses; k++ {
				w := s.Weights[k]
				target := -1.0
				if y[i] == k {
					target = 1
				}

				margin := w[width]
				for j, val := range x {
					margin += w[j] * val
				}
				margin *= target

				for j := 0; j < width; j++ {
					grad := s.Lambda * w[j]
					if margin < 1 {
						grad -= target * x[j]
					}
					w[j] -= s.LearningRate * grad
				}
				if margin < 1 {
					w[width] += s.LearningRate * target
				}
			}
		}
	}
	return nil
}

// PredictProba softmax-normalises the per-class margins.
func (s *LinearSVM) PredictProba(x []float64) []float64 {
	if len(s.Weights) == 0 {
		return make([]float64, s.NumClasses)
	}
	scores := make([]float64, len(s.Weights))
	for k, w := range s.Weights {
		m := w[len(w)-1]
		for j, val := range x {
			m += w[j] * val
		}
		scores[k] = m
	}
	return softmax(scores)
}
