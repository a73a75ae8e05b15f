package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/healthstack/diagnosis-engine/internal/classifier"
	"github.com/healthstack/diagnosis-engine/internal/models"
)

func fittedModel(t *testing.T) classifier.Model {
	t.Helper()
	m := classifier.NewLogisticRegression(classifier.Params{"epochs": 50})
	X := [][]float64{{5, 0}, {5, 0}, {0, 3}, {0, 3}}
	y := []int{0, 0, 1, 1}
	if err := m.Fit(X, y, 2); err != nil {
		t.Fatalf("fit: %v", err)
	}
	return m
}

func sampleArtifact(t *testing.T) *Artifact {
	return &Artifact{
		Meta: Metadata{
			SchemaVersion: SchemaVersion,
			Algorithm:     classifier.FamilyLogistic,
			RunID:         "run-test",
			TrainedAt:     time.Now().UTC().Truncate(time.Second),
			Encoding:      "severity-weighted",
			Symptoms:      []string{"fever", "headache"},
			Weights:       map[string]float64{"fever": 5, "headache": 3},
			Labels:        []string{"Cold", "Flu"},
			ScalerMean:    []float64{2.5, 1.5},
			ScalerStd:     []float64{2.5, 1.5},
		},
		Model: fittedModel(t),
		Metrics: models.TrainingReport{
			BestFamily:   classifier.FamilyLogistic,
			CVAccuracy:   0.9,
			TestAccuracy: 0.85,
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := sampleArtifact(t)

	if err := Save(dir, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Meta.Algorithm != original.Meta.Algorithm {
		t.Fatalf("algorithm mismatch: %q", loaded.Meta.Algorithm)
	}
	if loaded.Meta.RunID != "run-test" {
		t.Fatalf("run id mismatch: %q", loaded.Meta.RunID)
	}
	if len(loaded.Meta.Symptoms) != 2 || loaded.Meta.Symptoms[0] != "fever" {
		t.Fatalf("vocabulary order lost: %v", loaded.Meta.Symptoms)
	}
	if loaded.Metrics.CVAccuracy != 0.9 {
		t.Fatalf("metrics lost: %+v", loaded.Metrics)
	}

	// The fitted model must survive serialisation with identical outputs.
	x := []float64{1, -1}
	a := original.Model.PredictProba(x)
	b := loaded.Model.PredictProba(x)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("model outputs differ after round trip: %v vs %v", a, b)
		}
	}
}

func TestLoadMissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrArtifactIncompatible) {
		t.Fatalf("expected ErrArtifactIncompatible, got %v", err)
	}
}

func TestLoadRejectsSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	art := sampleArtifact(t)
	art.Meta.SchemaVersion = SchemaVersion + 1
	if err := Save(dir, art); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := Load(dir); !errors.Is(err, ErrArtifactIncompatible) {
		t.Fatalf("expected ErrArtifactIncompatible, got %v", err)
	}
}

func TestLoadRejectsVocabularyScalerMismatch(t *testing.T) {
	dir := t.TempDir()
	art := sampleArtifact(t)
	art.Meta.ScalerMean = []float64{1}
	if err := Save(dir, art); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := Load(dir); !errors.Is(err, ErrArtifactIncompatible) {
		t.Fatalf("expected ErrArtifactIncompatible, got %v", err)
	}
}

func TestLoadRejectsCorruptMetadata(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, sampleArtifact(t)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); !errors.Is(err, ErrArtifactIncompatible) {
		t.Fatalf("expected ErrArtifactIncompatible, got %v", err)
	}
}

func TestInfo(t *testing.T) {
	art := sampleArtifact(t)
	info := art.Info()
	if info.NumSymptoms != 2 || info.NumDiseases != 2 {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.Metrics.BestFamily != classifier.FamilyLogistic {
		t.Fatalf("metrics not carried: %+v", info.Metrics)
	}
}
