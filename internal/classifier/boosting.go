package classifier

import (
	"fmt"
	"math"
)

// GradientBoosting is a multiclass boosted ensemble: per round, one shallow
// regression tree per class is fitted to the softmax residuals.
type GradientBoosting struct {
	NumRounds    int
	LearningRate float64
	MaxDepth     int
	MinLeaf      int

	NumClasses int
	InitScore  []float64
	Rounds     [][]*RegNode
}

// NewGradientBoosting builds an unfitted booster from hyperparameters.
func NewGradientBoosting(p Params) *GradientBoosting {
	return &GradientBoosting{
		NumRounds:    p.Int("n_estimators", 100),
		LearningRate: p.Get("learning_rate", 0.1),
		MaxDepth:     p.Int("max_depth", 3),
		MinLeaf:      p.Int("min_samples_leaf", 1),
	}
}

// Name implements Model.
func (g *GradientBoosting) Name() string { return FamilyGradientBoosting }

// Fit boosts from log class priors.
func (g *GradientBoosting) Fit(X [][]float64, y []int, numClasses int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("gradient boosting: invalid training shape %d/%d", len(X), len(y))
	}
	if numClasses < 2 {
		return fmt.Errorf("gradient boosting: need at least 2 classes, got %d", numClasses)
	}

	n := len(X)
	g.NumClasses = numClasses

	// Initial score: log prior per class, floored to avoid -Inf.
	counts := make([]float64, numClasses)
	for _, label := range y {
		counts[label]++
	}
	g.InitScore = make([]float64, numClasses)
	for k := range counts {
		p := counts[k] / float64(n)
		if p < 1e-9 {
			p = 1e-9
		}
		g.InitScore[k] = math.Log(p)
	}

	scores := make([][]float64, n)
	for i := range scores {
		scores[i] = append([]float64(nil), g.InitScore...)
	}

	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	g.Rounds = make([][]*RegNode, 0, g.NumRounds)
	residual := make([]float64, n)

	for round := 0; round < g.NumRounds; round++ {
		trees := make([]*RegNode, numClasses)
		for k := 0; k < numClasses; k++ {
			for i := range X {
				probs := softmax(scores[i])
				target := 0.0
				if y[i] == k {
					target = 1
				}
				residual[i] = target - probs[k]
			}
			trees[k] = buildRegTree(X, residual, all, 0, g.MaxDepth, g.MinLeaf)
		}
		for i := range X {
			for k := 0; k < numClasses; k++ {
				scores[i][k] += g.LearningRate * trees[k].predict(X[i])
			}
		}
		g.Rounds = append(g.Rounds, trees)
	}
	return nil
}

// PredictProba accumulates boosted scores and softmax-normalises them.
func (g *GradientBoosting) PredictProba(x []float64) []float64 {
	if g.NumClasses == 0 {
		return nil
	}
	scores := append([]float64(nil), g.InitScore...)
	for _, trees := range g.Rounds {
		for k, tree := range trees {
			scores[k] += g.LearningRate * tree.predict(x)
		}
	}
	return softmax(scores)
}
