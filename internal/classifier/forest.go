package classifier

import (
	"fmt"
	"math"
	"math/rand"
)

// RandomForest is a bagged ensemble of Gini CART trees with per-split
// feature subsampling. Tolerant of non-linear feature interactions.
type RandomForest struct {
	NumTrees        int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Seed            int64

	NumClasses int
	Trees      []*TreeNode
}

// NewRandomForest builds an unfitted forest from hyperparameters.
func NewRandomForest(p Params) *RandomForest {
	return &RandomForest{
		NumTrees:        p.Int("n_estimators", 100),
		MaxDepth:        p.Int("max_depth", 12),
		MinSamplesSplit: p.Int("min_samples_split", 2),
		MinSamplesLeaf:  p.Int("min_samples_leaf", 1),
		Seed:            int64(p.Get("seed", 42)),
	}
}

// Name implements Model.
func (f *RandomForest) Name() string { return FamilyRandomForest }

// Fit grows NumTrees trees on bootstrap samples of (X, y).
func (f *RandomForest) Fit(X [][]float64, y []int, numClasses int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("random forest: invalid training shape %d/%d", len(X), len(y))
	}
	if numClasses < 2 {
		return fmt.Errorf("random forest: need at least 2 classes, got %d", numClasses)
	}

	f.NumClasses = numClasses
	f.Trees = make([]*TreeNode, 0, f.NumTrees)

	width := len(X[0])
	maxFeatures := int(math.Sqrt(float64(width)))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	cfg := treeConfig{
		maxDepth:        f.MaxDepth,
		minSamplesSplit: f.MinSamplesSplit,
		minSamplesLeaf:  f.MinSamplesLeaf,
		maxFeatures:     maxFeatures,
		numClasses:      numClasses,
	}

	rng := rand.New(rand.NewSource(f.Seed))
	for t := 0; t < f.NumTrees; t++ {
		sample := make([]int, len(X))
		for i := range sample {
			sample[i] = rng.Intn(len(X))
		}
		f.Trees = append(f.Trees, buildTree(X, y, sample, 0, cfg, rng))
	}
	return nil
}

// PredictProba averages the leaf distributions of all trees.
func (f *RandomForest) PredictProba(x []float64) []float64 {
	probs := make([]float64, f.NumClasses)
	if len(f.Trees) == 0 {
		return probs
	}
	for _, tree := range f.Trees {
		for k, p := range tree.predict(x) {
			probs[k] += p
		}
	}
	for k := range probs {
		probs[k] /= float64(len(f.Trees))
	}
	return probs
}
