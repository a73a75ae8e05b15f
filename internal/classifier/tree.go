package classifier

import (
	"math"
	"math/rand"
	"sort"
)

// TreeNode is a binary CART node. Leaves carry a class distribution;
// internal nodes route on Feature <= Threshold. Fields are exported for gob
// round-trips through the artifact store.
type TreeNode struct {
	Feature   int
	Threshold float64
	Left      *TreeNode
	Right     *TreeNode
	Probs     []float64
}

func (n *TreeNode) isLeaf() bool { return n.Left == nil && n.Right == nil }

// predict walks the tree and returns the leaf class distribution.
func (n *TreeNode) predict(x []float64) []float64 {
	node := n
	for !node.isLeaf() {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Probs
}

type treeConfig struct {
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
	numClasses      int
}

// buildTree grows a classification tree on the rows indexed by idx, using
// Gini impurity. Feature candidates per split are subsampled via rng when
// maxFeatures < width.
func buildTree(X [][]float64, y []int, idx []int, depth int, cfg treeConfig, rng *rand.Rand) *TreeNode {
	node := &TreeNode{Probs: classDistribution(y, idx, cfg.numClasses)}

	if depth >= cfg.maxDepth || len(idx) < cfg.minSamplesSplit || pure(y, idx) {
		return node
	}

	feature, threshold, ok := bestSplit(X, y, idx, cfg, rng)
	if !ok {
		return node
	}

	left, right := partition(X, idx, feature, threshold)
	if len(left) < cfg.minSamplesLeaf || len(right) < cfg.minSamplesLeaf {
		return node
	}

	node.Feature = feature
	node.Threshold = threshold
	node.Left = buildTree(X, y, left, depth+1, cfg, rng)
	node.Right = buildTree(X, y, right, depth+1, cfg, rng)
	return node
}

func classDistribution(y []int, idx []int, numClasses int) []float64 {
	probs := make([]float64, numClasses)
	if len(idx) == 0 {
		return probs
	}
	for _, i := range idx {
		probs[y[i]]++
	}
	for k := range probs {
		probs[k] /= float64(len(idx))
	}
	return probs
}

func pure(y []int, idx []int) bool {
	if len(idx) == 0 {
		return true
	}
	first := y[idx[0]]
	for _, i := range idx[1:] {
		if y[i] != first {
			return false
		}
	}
	return true
}

func gini(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}
	impurity := 1.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		impurity -= p * p
	}
	return impurity
}

// bestSplit scans candidate features for the threshold minimising weighted
// Gini impurity of the two children.
func bestSplit(X [][]float64, y []int, idx []int, cfg treeConfig, rng *rand.Rand) (int, float64, bool) {
	width := len(X[idx[0]])
	features := candidateFeatures(width, cfg.maxFeatures, rng)

	bestImpurity := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0

	leftCounts := make([]int, cfg.numClasses)
	rightCounts := make([]int, cfg.numClasses)

	for _, f := range features {
		ordered := append([]int(nil), idx...)
		sort.Slice(ordered, func(a, b int) bool { return X[ordered[a]][f] < X[ordered[b]][f] })

		for k := range leftCounts {
			leftCounts[k] = 0
			rightCounts[k] = 0
		}
		for _, i := range ordered {
			rightCounts[y[i]]++
		}

		nLeft := 0
		for pos := 0; pos < len(ordered)-1; pos++ {
			i := ordered[pos]
			leftCounts[y[i]]++
			rightCounts[y[i]]--
			nLeft++

			cur, next := X[i][f], X[ordered[pos+1]][f]
			if cur == next {
				continue
			}

			nRight := len(ordered) - nLeft
			impurity := (float64(nLeft)*gini(leftCounts, nLeft) +
				float64(nRight)*gini(rightCounts, nRight)) / float64(len(ordered))
			if impurity < bestImpurity {
				bestImpurity = impurity
				bestFeature = f
				bestThreshold = (cur + next) / 2
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func candidateFeatures(width, maxFeatures int, rng *rand.Rand) []int {
	if maxFeatures <= 0 || maxFeatures >= width || rng == nil {
		all := make([]int, width)
		for i := range all {
			all[i] = i
		}
		return all
	}
	perm := rng.Perm(width)
	return perm[:maxFeatures]
}

func partition(X [][]float64, idx []int, feature int, threshold float64) ([]int, []int) {
	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

// RegNode is a binary regression tree node used by gradient boosting.
// Leaves carry the mean target value.
type RegNode struct {
	Feature   int
	Threshold float64
	Left      *RegNode
	Right     *RegNode
	Value     float64
}

func (n *RegNode) isLeaf() bool { return n.Left == nil && n.Right == nil }

func (n *RegNode) predict(x []float64) float64 {
	node := n
	for !node.isLeaf() {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

// buildRegTree grows a regression tree minimising squared error on targets.
func buildRegTree(X [][]float64, targets []float64, idx []int, depth, maxDepth, minLeaf int) *RegNode {
	node := &RegNode{Value: meanAt(targets, idx)}
	if depth >= maxDepth || len(idx) < 2*minLeaf {
		return node
	}

	feature, threshold, ok := bestRegSplit(X, targets, idx, minLeaf)
	if !ok {
		return node
	}

	left, right := partition(X, idx, feature, threshold)
	node.Feature = feature
	node.Threshold = threshold
	node.Left = buildRegTree(X, targets, left, depth+1, maxDepth, minLeaf)
	node.Right = buildRegTree(X, targets, right, depth+1, maxDepth, minLeaf)
	return node
}

func meanAt(values []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range idx {
		sum += values[i]
	}
	return sum / float64(len(idx))
}

func bestRegSplit(X [][]float64, targets []float64, idx []int, minLeaf int) (int, float64, bool) {
	width := len(X[idx[0]])

	bestScore := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0

	for f := 0; f < width; f++ {
		ordered := append([]int(nil), idx...)
		sort.Slice(ordered, func(a, b int) bool { return X[ordered[a]][f] < X[ordered[b]][f] })

		sumLeft, sqLeft := 0.0, 0.0
		sumRight, sqRight := 0.0, 0.0
		for _, i := range ordered {
			sumRight += targets[i]
			sqRight += targets[i] * targets[i]
		}

		for pos := 0; pos < len(ordered)-1; pos++ {
			i := ordered[pos]
			t := targets[i]
			sumLeft += t
			sqLeft += t * t
			sumRight -= t
			sqRight -= t * t

			cur, next := X[i][f], X[ordered[pos+1]][f]
			if cur == next {
				continue
			}
			nLeft := pos + 1
			nRight := len(ordered) - nLeft
			if nLeft < minLeaf || nRight < minLeaf {
				continue
			}

			// Sum of squared errors around each child's mean.
			sse := (sqLeft - sumLeft*sumLeft/float64(nLeft)) +
				(sqRight - sumRight*sumRight/float64(nRight))
			if sse < bestScore {
				bestScore = sse
				bestFeature = f
				bestThreshold = (cur + next) / 2
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}
