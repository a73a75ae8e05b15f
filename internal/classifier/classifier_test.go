package classifier

import (
	"math"
	"testing"
)

// twoBlobs builds a trivially separable two-class dataset: class 0 lives in
// the low corner of feature space, class 1 in the high corner.
func twoBlobs() ([][]float64, []int) {
	X := make([][]float64, 0, 40)
	y := make([]int, 0, 40)
	for i := 0; i < 20; i++ {
		jitter := float64(i%5) * 0.1
		X = append(X, []float64{0.5 + jitter, 0.3 + jitter, 0})
		y = append(y, 0)
		X = append(X, []float64{4.5 - jitter, 5.0 - jitter, 3})
		y = append(y, 1)
	}
	return X, y
}

func families(t *testing.T) map[string]Model {
	t.Helper()
	// Small budgets keep the test fast; the blobs are trivially separable.
	return map[string]Model{
		FamilyRandomForest:     NewRandomForest(Params{"n_estimators": 15, "max_depth": 6}),
		FamilyGradientBoosting: NewGradientBoosting(Params{"n_estimators": 20, "max_depth": 2}),
		FamilyLogistic:         NewLogisticRegression(Params{"epochs": 200}),
		FamilyLinearSVM:        NewLinearSVM(Params{"epochs": 100}),
	}
}

func TestFamiliesSeparateBlobs(t *testing.T) {
	X, y := twoBlobs()
	for name, m := range families(t) {
		if err := m.Fit(X, y, 2); err != nil {
			t.Fatalf("%s fit: %v", name, err)
		}
		if acc := Accuracy(m, X, y); acc < 0.95 {
			t.Errorf("%s training accuracy %.3f below 0.95", name, acc)
		}
	}
}

func TestPredictProbaIsDistribution(t *testing.T) {
	X, y := twoBlobs()
	for name, m := range families(t) {
		if err := m.Fit(X, y, 2); err != nil {
			t.Fatalf("%s fit: %v", name, err)
		}
		probs := m.PredictProba([]float64{0.4, 0.4, 0})
		sum := 0.0
		for _, p := range probs {
			if p < 0 || p > 1 {
				t.Fatalf("%s probability out of range: %v", name, probs)
			}
			sum += p
		}
		if math.Abs(sum-1) > 1e-6 {
			t.Fatalf("%s probabilities sum to %v", name, sum)
		}
	}
}

func TestPredictProbaDeterministic(t *testing.T) {
	X, y := twoBlobs()
	for name, m := range families(t) {
		if err := m.Fit(X, y, 2); err != nil {
			t.Fatalf("%s fit: %v", name, err)
		}
		x := []float64{2.0, 2.5, 1}
		a := m.PredictProba(x)
		b := m.PredictProba(x)
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("%s not deterministic: %v vs %v", name, a, b)
			}
		}
	}
}

func TestFitRejectsDegenerateInput(t *testing.T) {
	for name, m := range families(t) {
		if err := m.Fit(nil, nil, 2); err == nil {
			t.Errorf("%s accepted empty training set", name)
		}
	}
	m := NewRandomForest(Params{})
	if err := m.Fit([][]float64{{1}}, []int{0}, 1); err == nil {
		t.Error("random forest accepted single-class problem")
	}
}

func TestCrossValidate(t *testing.T) {
	X, y := twoBlobs()
	factory := func() Model {
		return NewLogisticRegression(Params{"epochs": 150})
	}

	mean, std, err := CrossValidate(factory, X, y, 2, 5, 42)
	if err != nil {
		t.Fatalf("cv: %v", err)
	}
	if mean < 0.9 {
		t.Fatalf("cv mean %.3f unexpectedly low", mean)
	}
	if std < 0 {
		t.Fatalf("negative std %v", std)
	}

	mean2, _, err := CrossValidate(factory, X, y, 2, 5, 42)
	if err != nil {
		t.Fatalf("cv repeat: %v", err)
	}
	if mean != mean2 {
		t.Fatalf("cv not deterministic: %v vs %v", mean, mean2)
	}

	if _, _, err := CrossValidate(factory, X, y, 2, 1, 42); err == nil {
		t.Fatal("expected error for folds < 2")
	}
}

func TestConfusionMatrixAndPrecisionRecall(t *testing.T) {
	X, y := twoBlobs()
	m := NewRandomForest(Params{"n_estimators": 15})
	if err := m.Fit(X, y, 2); err != nil {
		t.Fatalf("fit: %v", err)
	}

	cm := ConfusionMatrix(m, X, y, 2)
	total := 0
	for _, row := range cm {
		for _, c := range row {
			total += c
		}
	}
	if total != len(X) {
		t.Fatalf("confusion matrix total %d != %d examples", total, len(X))
	}

	precision, recall, support := PrecisionRecall(cm)
	if len(precision) != 2 || len(recall) != 2 {
		t.Fatalf("unexpected metric lengths")
	}
	if support[0]+support[1] != len(X) {
		t.Fatalf("support mismatch: %v", support)
	}
	for k := 0; k < 2; k++ {
		if precision[k] < 0 || precision[k] > 1 || recall[k] < 0 || recall[k] > 1 {
			t.Fatalf("metrics out of range: p=%v r=%v", precision, recall)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	fams := r.Families()
	if len(fams) != 4 {
		t.Fatalf("expected 4 families, got %v", fams)
	}

	m, err := r.New(FamilyLogistic, Params{"epochs": 10})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if m.Name() != FamilyLogistic {
		t.Fatalf("unexpected name %q", m.Name())
	}

	if _, err := r.New("naive-bayes", nil); err == nil {
		t.Fatal("expected error for unknown family")
	}
	if err := r.Register(FamilyLogistic, func(Params) Model { return nil }); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}
