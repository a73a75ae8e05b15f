package classifier

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

// Predict returns the argmax class for a single example.
func Predict(m Model, x []float64) int {
	return argmax(m.PredictProba(x))
}

// Accuracy computes the fraction of correct argmax predictions.
func Accuracy(m Model, X [][]float64, y []int) float64 {
	if len(X) == 0 {
		return 0
	}
	correct := 0
	for i, x := range X {
		if Predict(m, x) == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(X))
}

// ConfusionMatrix returns counts[actual][predicted].
func ConfusionMatrix(m Model, X [][]float64, y []int, numClasses int) [][]int {
	cm := make([][]int, numClasses)
	for k := range cm {
		cm[k] = make([]int, numClasses)
	}
	for i, x := range X {
		cm[y[i]][Predict(m, x)]++
	}
	return cm
}

// PrecisionRecall derives per-class precision, recall and support from a
// confusion matrix.
func PrecisionRecall(cm [][]int) (precision, recall []float64, support []int) {
	k := len(cm)
	precision = make([]float64, k)
	recall = make([]float64, k)
	support = make([]int, k)

	for actual := 0; actual < k; actual++ {
		for predicted := 0; predicted < k; predicted++ {
			count := cm[actual][predicted]
			support[actual] += count
			if actual == predicted {
				precision[predicted] += float64(count)
				recall[actual] += float64(count)
			}
		}
	}

	for c := 0; c < k; c++ {
		colTotal := 0
		for actual := 0; actual < k; actual++ {
			colTotal += cm[actual][c]
		}
		if colTotal > 0 {
			precision[c] /= float64(colTotal)
		} else {
			precision[c] = 0
		}
		if support[c] > 0 {
			recall[c] /= float64(support[c])
		} else {
			recall[c] = 0
		}
	}
	return precision, recall, support
}

// CrossValidate runs k-fold cross-validation with a fresh model per fold and
// returns the mean and standard deviation of fold accuracies. Fold
// assignment is deterministic for a fixed seed.
func CrossValidate(factory func() Model, X [][]float64, y []int, numClasses, folds int, seed int64) (float64, float64, error) {
	if folds < 2 {
		return 0, 0, fmt.Errorf("cross-validation needs at least 2 folds, got %d", folds)
	}
	if len(X) < folds {
		return 0, 0, fmt.Errorf("cross-validation needs at least %d examples, have %d", folds, len(X))
	}

	rng := rand.New(rand.NewSource(seed))
	indices := rng.Perm(len(X))

	scores := make([]float64, 0, folds)
	for fold := 0; fold < folds; fold++ {
		lo := fold * len(X) / folds
		hi := (fold + 1) * len(X) / folds

		trainX := make([][]float64, 0, len(X)-(hi-lo))
		trainY := make([]int, 0, len(X)-(hi-lo))
		testX := make([][]float64, 0, hi-lo)
		testY := make([]int, 0, hi-lo)

		for pos, idx := range indices {
			if pos >= lo && pos < hi {
				testX = append(testX, X[idx])
				testY = append(testY, y[idx])
			} else {
				trainX = append(trainX, X[idx])
				trainY = append(trainY, y[idx])
			}
		}

		m := factory()
		if err := m.Fit(trainX, trainY, numClasses); err != nil {
			return 0, 0, fmt.Errorf("fold %d: %w", fold, err)
		}
		scores = append(scores, Accuracy(m, testX, testY))
	}

	mean, std := stat.MeanStdDev(scores, nil)
	return mean, std, nil
}
