// Package artifact persists and loads the trained model bundle: the fitted
// classifier plus the metadata required to use it correctly (vocabulary
// order, label map, feature encoding, scaler parameters, metrics). Artifacts
// are produced once per training run and loaded read-only at serve start;
// deploying a new one is a whole-directory replacement, never an in-place
// mutation.
package artifact

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/healthstack/diagnosis-engine/internal/classifier"
	"github.com/healthstack/diagnosis-engine/internal/models"
)

// SchemaVersion guards against loading bundles written by incompatible
// builds.
const SchemaVersion = 1

const (
	metadataFile = "metadata.json"
	modelFile    = "model.gob"
	metricsFile  = "metrics.json"
)

// ErrArtifactIncompatible reports a missing or schema-mismatched bundle.
// The predictor treats it as a fatal startup error.
var ErrArtifactIncompatible = errors.New("artifact: missing or incompatible model bundle")

func init() {
	gob.Register(&classifier.RandomForest{})
	gob.Register(&classifier.GradientBoosting{})
	gob.Register(&classifier.LogisticRegression{})
	gob.Register(&classifier.LinearSVM{})
}

// Metadata is the JSON-serialised companion of the fitted model.
type Metadata struct {
	SchemaVersion int                `json:"schema_version"`
	Algorithm     string             `json:"algorithm"`
	RunID         string             `json:"run_id"`
	TrainedAt     time.Time          `json:"trained_at"`
	Encoding      string             `json:"encoding"`
	Symptoms      []string           `json:"symptoms"`
	Weights       map[string]float64 `json:"symptom_weights"`
	Labels        []string           `json:"labels"`
	ScalerMean    []float64          `json:"scaler_mean"`
	ScalerStd     []float64          `json:"scaler_std"`
	Params        map[string]float64 `json:"params,omitempty"`
}

// Artifact bundles a fitted model with its metadata and training report.
type Artifact struct {
	Meta    Metadata
	Model   classifier.Model
	Metrics models.TrainingReport
}

// modelEnvelope wraps the Model interface so gob records the concrete type.
type modelEnvelope struct {
	Model classifier.Model
}

// Save writes the bundle into dir, creating it if needed.
func Save(dir string, art *Artifact) error {
	if art == nil || art.Model == nil {
		return fmt.Errorf("artifact: nothing to save")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create models dir: %w", err)
	}

	if err := writeJSON(filepath.Join(dir, metadataFile), art.Meta); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, metricsFile), art.Metrics); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(dir, modelFile))
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(modelEnvelope{Model: art.Model}); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Load reads and validates the bundle in dir. Any structural mismatch is
// reported as ErrArtifactIncompatible so callers can refuse to serve.
func Load(dir string) (*Artifact, error) {
	meta, err := readMetadata(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, err
	}

	var metrics models.TrainingReport
	if data, err := os.ReadFile(filepath.Join(dir, metricsFile)); err == nil {
		if err := json.Unmarshal(data, &metrics); err != nil {
			return nil, fmt.Errorf("%w: metrics file corrupt: %v", ErrArtifactIncompatible, err)
		}
	}

	f, err := os.Open(filepath.Join(dir, modelFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactIncompatible, err)
	}
	defer f.Close()

	var envelope modelEnvelope
	if err := gob.NewDecoder(f).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: decode model: %v", ErrArtifactIncompatible, err)
	}
	if envelope.Model == nil {
		return nil, fmt.Errorf("%w: model payload empty", ErrArtifactIncompatible)
	}

	art := &Artifact{Meta: *meta, Model: envelope.Model, Metrics: metrics}
	if err := validate(art); err != nil {
		return nil, err
	}
	return art, nil
}

func readMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactIncompatible, err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: metadata corrupt: %v", ErrArtifactIncompatible, err)
	}
	return &meta, nil
}

func validate(art *Artifact) error {
	meta := art.Meta
	if meta.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: schema version %d, want %d",
			ErrArtifactIncompatible, meta.SchemaVersion, SchemaVersion)
	}
	if len(meta.Symptoms) == 0 {
		return fmt.Errorf("%w: no symptom vocabulary recorded", ErrArtifactIncompatible)
	}
	seen := make(map[string]struct{}, len(meta.Symptoms))
	for _, token := range meta.Symptoms {
		if token == "" {
			return fmt.Errorf("%w: empty vocabulary token", ErrArtifactIncompatible)
		}
		if _, dup := seen[token]; dup {
			return fmt.Errorf("%w: duplicate vocabulary token %q", ErrArtifactIncompatible, token)
		}
		seen[token] = struct{}{}
	}
	if len(meta.Labels) < 2 {
		return fmt.Errorf("%w: label map has %d entries", ErrArtifactIncompatible, len(meta.Labels))
	}
	if len(meta.ScalerMean) != len(meta.Symptoms) || len(meta.ScalerStd) != len(meta.Symptoms) {
		return fmt.Errorf("%w: scaler width %d/%d does not match vocabulary size %d",
			ErrArtifactIncompatible, len(meta.ScalerMean), len(meta.ScalerStd), len(meta.Symptoms))
	}
	return nil
}

// Info summarises the artifact for diagnostics endpoints.
func (a *Artifact) Info() models.ModelInfo {
	return models.ModelInfo{
		Algorithm:   a.Meta.Algorithm,
		RunID:       a.Meta.RunID,
		TrainedAt:   a.Meta.TrainedAt,
		NumSymptoms: len(a.Meta.Symptoms),
		NumDiseases: len(a.Meta.Labels),
		Diseases:    append([]string(nil), a.Meta.Labels...),
		Metrics:     a.Metrics,
	}
}
