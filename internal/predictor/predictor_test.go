package predictor

import (
	"testing"
	"time"

	"github.com/healthstack/diagnosis-engine/internal/artifact"
	"github.com/healthstack/diagnosis-engine/internal/classifier"
	"github.com/healthstack/diagnosis-engine/internal/encoder"
	"github.com/healthstack/diagnosis-engine/internal/matcher"
)

// Vocabulary order is alphabetical: chills, fatigue, fever, headache,
// nausea, rash. Each disease has a disjoint severity-weighted signature.
var (
	testSymptoms = []string{"chills", "fatigue", "fever", "headache", "nausea", "rash"}
	testWeights  = map[string]float64{
		"chills": 3, "fatigue": 4, "fever": 5, "headache": 3, "nausea": 2, "rash": 4,
	}
	testLabels = []string{"Flu", "Measles", "Migraine"}
)

func testArtifact(t *testing.T) *artifact.Artifact {
	t.Helper()

	signatures := [][]float64{
		{3, 4, 5, 0, 0, 0}, // Flu: chills, fatigue, fever
		{0, 0, 5, 0, 0, 4}, // Measles: fever, rash
		{0, 0, 0, 3, 2, 0}, // Migraine: headache, nausea
	}
	var X [][]float64
	var y []int
	for class, sig := range signatures {
		for i := 0; i < 8; i++ {
			X = append(X, sig)
			y = append(y, class)
		}
	}

	model := classifier.NewLogisticRegression(classifier.Params{"epochs": 200})
	if err := model.Fit(X, y, len(testLabels)); err != nil {
		t.Fatalf("fit: %v", err)
	}

	mean := make([]float64, len(testSymptoms))
	std := make([]float64, len(testSymptoms))
	for i := range std {
		std[i] = 1
	}
	return &artifact.Artifact{
		Meta: artifact.Metadata{
			SchemaVersion: artifact.SchemaVersion,
			Algorithm:     classifier.FamilyLogistic,
			RunID:         "run-test",
			TrainedAt:     time.Now().UTC(),
			Encoding:      encoder.EncodingSeverityWeighted,
			Symptoms:      testSymptoms,
			Weights:       testWeights,
			Labels:        testLabels,
			ScalerMean:    mean,
			ScalerStd:     std,
		},
		Model: model,
	}
}

func newContext(t *testing.T) *ServingContext {
	t.Helper()
	sc, err := NewServingContext(testArtifact(t), matcher.DefaultOptions())
	if err != nil {
		t.Fatalf("new serving context: %v", err)
	}
	return sc
}

func TestPredictRankedAndDeterministic(t *testing.T) {
	sc := newContext(t)

	input := []string{"fever", "chills", "fatigue"}
	a, err := sc.Predict(input, 3)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	b, err := sc.Predict(input, 3)
	if err != nil {
		t.Fatalf("predict repeat: %v", err)
	}

	if len(a.Predictions) != 3 {
		t.Fatalf("expected 3 predictions, got %d", len(a.Predictions))
	}
	if a.Predictions[0].Disease != "Flu" {
		t.Fatalf("expected Flu on top, got %+v", a.Predictions)
	}
	for i := 1; i < len(a.Predictions); i++ {
		if a.Predictions[i].Probability > a.Predictions[i-1].Probability {
			t.Fatalf("ranking not non-increasing: %+v", a.Predictions)
		}
	}
	for i := range a.Predictions {
		if a.Predictions[i].Probability != b.Predictions[i].Probability {
			t.Fatalf("prediction not deterministic: %+v vs %+v", a.Predictions, b.Predictions)
		}
	}
	if len(a.Resolved) != 3 {
		t.Fatalf("resolved = %v", a.Resolved)
	}
	if a.PredictionID == "" || a.PredictionID == b.PredictionID {
		t.Fatal("each prediction needs its own id")
	}
}

func TestPredictTopNClamping(t *testing.T) {
	sc := newContext(t)
	input := []string{"fever"}

	// Zero falls back to the default, capped at the label count.
	res, err := sc.Predict(input, 0)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(res.Predictions) != len(testLabels) {
		t.Fatalf("default top_n: got %d predictions", len(res.Predictions))
	}

	res, _ = sc.Predict(input, 100)
	if len(res.Predictions) != len(testLabels) {
		t.Fatalf("oversized top_n not clamped: %d", len(res.Predictions))
	}

	res, _ = sc.Predict(input, 1)
	if len(res.Predictions) != 1 {
		t.Fatalf("top_n 1: got %d", len(res.Predictions))
	}
}

func TestPredictFuzzyAcceptsTypos(t *testing.T) {
	sc := newContext(t)

	res, err := sc.Predict([]string{"fevr", "Chills "}, 3)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(res.Resolved) != 2 {
		t.Fatalf("typos not resolved: %+v", res)
	}
	if res.Resolved[0] != "fever" || res.Resolved[1] != "chills" {
		t.Fatalf("unexpected resolution: %v", res.Resolved)
	}
}

func TestPredictNothingResolved(t *testing.T) {
	sc := newContext(t)

	res, err := sc.Predict([]string{"spontaneous combustion"}, 3)
	if err != nil {
		t.Fatalf("unresolved input must not error: %v", err)
	}
	if len(res.Predictions) != 0 {
		t.Fatalf("expected no predictions, got %+v", res.Predictions)
	}
	if len(res.Unresolved) != 1 {
		t.Fatalf("expected 1 unresolved entry, got %+v", res.Unresolved)
	}

	res, err = sc.Predict(nil, 3)
	if err != nil {
		t.Fatalf("empty input must not error: %v", err)
	}
	if len(res.Predictions) != 0 || len(res.Resolved) != 0 {
		t.Fatalf("empty input should yield empty result: %+v", res)
	}
}

func TestPredictText(t *testing.T) {
	sc := newContext(t)

	res, err := sc.PredictText("headache, nausea", 2)
	if err != nil {
		t.Fatalf("predict text: %v", err)
	}
	if len(res.Predictions) == 0 || res.Predictions[0].Disease != "Migraine" {
		t.Fatalf("expected Migraine on top, got %+v", res.Predictions)
	}
}

func TestVocabularyAndModelInfo(t *testing.T) {
	sc := newContext(t)

	list := sc.Vocabulary()
	if len(list) != len(testSymptoms) {
		t.Fatalf("vocabulary size %d", len(list))
	}
	if list[0].Symptom != "chills" || list[0].Weight != 3 {
		t.Fatalf("unexpected first entry %+v", list[0])
	}

	info := sc.ModelInfo()
	if info.Algorithm != classifier.FamilyLogistic || info.NumDiseases != 3 {
		t.Fatalf("unexpected model info %+v", info)
	}
}

func TestHandleSwap(t *testing.T) {
	first := newContext(t)
	second := newContext(t)

	h := NewHandle(first)
	if h.Current() != first {
		t.Fatal("handle does not return initial context")
	}
	if old := h.Swap(second); old != first {
		t.Fatal("swap did not return previous context")
	}
	if h.Current() != second {
		t.Fatal("swap did not install new context")
	}
}
