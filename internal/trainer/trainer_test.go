package trainer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/healthstack/diagnosis-engine/internal/artifact"
	"github.com/healthstack/diagnosis-engine/internal/classifier"
	"github.com/healthstack/diagnosis-engine/internal/dataset"
	"github.com/healthstack/diagnosis-engine/internal/models"
)

const severityCSV = `Symptom,weight
fever,5
headache,3
chills,3
fatigue,4
nausea,2
rash,4
`

// writeDataDir lays out a small but CV-viable corpus: three diseases with
// distinct symptom signatures, ten rows each.
func writeDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Symptom-severity.csv"), []byte(severityCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	var b strings.Builder
	b.WriteString("Disease,Symptom_1,Symptom_2,Symptom_3\n")
	for i := 0; i < 10; i++ {
		b.WriteString("Flu,fever,chills,fatigue\n")
		b.WriteString("Migraine,headache,nausea,\n")
		b.WriteString("Measles,rash,fever,\n")
	}
	if err := os.WriteFile(filepath.Join(dir, "dataset.csv"), []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

// fastRegistry trains only the linear families to keep tests quick.
func fastRegistry(t *testing.T) *classifier.Registry {
	t.Helper()
	r := classifier.NewRegistry()
	if err := r.Register(classifier.FamilyLogistic, func(p classifier.Params) classifier.Model {
		return classifier.NewLogisticRegression(p)
	}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(classifier.FamilyLinearSVM, func(p classifier.Params) classifier.Model {
		return classifier.NewLinearSVM(p)
	}); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRunProducesArtifact(t *testing.T) {
	dataDir := writeDataDir(t)
	modelsDir := t.TempDir()

	tr := New(nil, fastRegistry(t), Options{TestSize: 0.2, RandomState: 42, Folds: 3, SamplesPerDisease: 2})
	art, err := tr.Run(dataDir, modelsDir)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if art.Meta.Algorithm == "" {
		t.Fatal("no winning algorithm recorded")
	}
	if art.Meta.RunID == "" {
		t.Fatal("no run id recorded")
	}
	if len(art.Meta.Labels) != 3 {
		t.Fatalf("expected 3 labels, got %v", art.Meta.Labels)
	}
	if len(art.Meta.Symptoms) != 6 {
		t.Fatalf("expected 6 vocabulary tokens, got %d", len(art.Meta.Symptoms))
	}
	if len(art.Metrics.Families) != 2 {
		t.Fatalf("expected scores for 2 families, got %d", len(art.Metrics.Families))
	}
	if art.Metrics.TestAccuracy < 0.9 {
		t.Fatalf("winner test accuracy %.3f unexpectedly low on separable data", art.Metrics.TestAccuracy)
	}

	// The signatures are disjoint, so the winner must classify cleanly.
	loaded, err := artifact.Load(modelsDir)
	if err != nil {
		t.Fatalf("reload artifact: %v", err)
	}
	if loaded.Meta.RunID != art.Meta.RunID {
		t.Fatalf("reloaded run id %q != %q", loaded.Meta.RunID, art.Meta.RunID)
	}

	// Side outputs from the processing stage.
	for _, name := range []string{"merged.csv", "synthetic_patient_data.csv"} {
		if _, err := os.Stat(filepath.Join(dataDir, name)); err != nil {
			t.Errorf("expected %s to be written: %v", name, err)
		}
	}
}

func TestRunRejectsSparseLabels(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "Symptom-severity.csv"), []byte(severityCSV), 0o644)
	data := "Disease,Symptom_1\nFlu,fever\nFlu,chills\nRare,rash\n"
	os.WriteFile(filepath.Join(dir, "dataset.csv"), []byte(data), 0o644)

	tr := New(nil, fastRegistry(t), DefaultOptions())
	_, err := tr.Run(dir, t.TempDir())
	if !errors.Is(err, dataset.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestSelectBestTieBreaks(t *testing.T) {
	results := map[string]*familyResult{
		"a": {score: models.FamilyScore{Family: "a", CVMean: 0.9, TestAccuracy: 0.8, TrainSeconds: 1}},
		"b": {score: models.FamilyScore{Family: "b", CVMean: 0.95, TestAccuracy: 0.7, TrainSeconds: 9}},
		"c": {score: models.FamilyScore{Family: "c", CVMean: 0.9, TestAccuracy: 0.9, TrainSeconds: 2}},
	}
	if got := selectBest(results).score.Family; got != "b" {
		t.Fatalf("highest CV mean should win, got %q", got)
	}

	// Equal CV means: higher test accuracy wins.
	results["b"].score.CVMean = 0.9
	if got := selectBest(results).score.Family; got != "c" {
		t.Fatalf("test accuracy tie-break failed, got %q", got)
	}

	// Equal CV means and test accuracy: faster training wins.
	results["a"].score.TestAccuracy = 0.9
	if got := selectBest(results).score.Family; got != "a" {
		t.Fatalf("train time tie-break failed, got %q", got)
	}
}

func TestOptimizeKeepsDefaultsWhenNoGain(t *testing.T) {
	// The grid only covers the ensemble families, so a linear-only result
	// set must pass through untouched.
	tr := New(nil, fastRegistry(t), Options{Folds: 3})
	results := map[string]*familyResult{
		classifier.FamilyLogistic: {score: models.FamilyScore{Family: classifier.FamilyLogistic, CVMean: 0.9}},
	}
	tr.optimize(results, nil, nil, nil, nil, 2)
	if results[classifier.FamilyLogistic].score.CVMean != 0.9 {
		t.Fatal("linear family result was modified by ensemble grid search")
	}
}
