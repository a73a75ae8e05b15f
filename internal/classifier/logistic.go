package classifier

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// LogisticRegression is a multinomial softmax baseline trained by batch
// gradient descent with L2 regularisation.
type LogisticRegression struct {
	Epochs       int
	LearningRate float64
	L2           float64

	NumClasses int
	// Weights is row-major K x (D+1); the final column is the bias term.
	Weights [][]float64
}

// NewLogisticRegression builds an unfitted model from hyperparameters.
func NewLogisticRegression(p Params) *LogisticRegression {
	return &LogisticRegression{
		Epochs:       p.Int("epochs", 300),
		LearningRate: p.Get("learning_rate", 0.1),
		L2:           p.Get("l2", 1e-4),
	}
}

// Name implements Model.
func (l *LogisticRegression) Name() string { return FamilyLogistic }

// Fit runs full-batch gradient descent on the cross-entropy objective.
func (l *LogisticRegression) Fit(X [][]float64, y []int, numClasses int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("logistic regression: invalid training shape %d/%d", len(X), len(y))
	}
	if numClasses < 2 {
		return fmt.Errorf("logistic regression: need at least 2 classes, got %d", numClasses)
	}

	n := len(X)
	width := len(X[0]) + 1 // bias column
	l.NumClasses = numClasses

	xData := make([]float64, n*width)
	for i, row := range X {
		copy(xData[i*width:], row)
		xData[i*width+width-1] = 1
	}
	xm := mat.NewDense(n, width, xData)

	onehot := mat.NewDense(n, numClasses, nil)
	for i, label := range y {
		onehot.Set(i, label, 1)
	}

	weights := mat.NewDense(numClasses, width, nil)
	var scores, probs, grad mat.Dense

	for epoch := 0; epoch < l.Epochs; epoch++ {
		scores.Mul(xm, weights.T())

		probs.Reset()
		probs.CloneFrom(&scores)
		for i := 0; i < n; i++ {
			row := softmax(probs.RawRowView(i))
			for k := 0; k < numClasses; k++ {
				probs.Set(i, k, row[k])
			}
		}

		// grad = (P - Y)^T X / n + l2 * W
		probs.Sub(&probs, onehot)
		grad.Mul(probs.T(), xm)
		grad.Scale(1/float64(n), &grad)

		var reg mat.Dense
		reg.Scale(l.L2, weights)
		grad.Add(&grad, &reg)

		grad.Scale(l.LearningRate, &grad)
		weights.Sub(weights, &grad)
	}

	l.Weights = make([][]float64, numClasses)
	for k := 0; k < numClasses; k++ {
		l.Weights[k] = append([]float64(nil), weights.RawRowView(k)...)
	}
	return nil
}

// PredictProba returns softmax class probabilities.
func (l *LogisticRegression) PredictProba(x []float64) []float64 {
	if len(l.Weights) == 0 {
		return make([]float64, l.NumClasses)
	}
	scores := make([]float64, len(l.Weights))
	for k, w := range l.Weights {
		s := w[len(w)-1] // bias
		for j, val := range x {
			s += w[j] * val
		}
		scores[k] = s
	}
	return softmax(scores)
}
