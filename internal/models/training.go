package models

import "time"

// FamilyScore records how one classifier family performed during training.
type FamilyScore struct {
	Family       string  `json:"family"`
	CVMean       float64 `json:"cv_mean"`
	CVStd        float64 `json:"cv_std"`
	TestAccuracy float64 `json:"test_accuracy"`
	TrainSeconds float64 `json:"train_seconds"`
}

// ClassMetrics holds per-label precision/recall for the winning model.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Support   int     `json:"support"`
}

// TrainingReport aggregates the evaluation of a training run.
type TrainingReport struct {
	BestFamily   string         `json:"best_family"`
	CVAccuracy   float64        `json:"cv_accuracy"`
	TestAccuracy float64        `json:"test_accuracy"`
	Families     []FamilyScore  `json:"families"`
	Confusion    [][]int        `json:"confusion_matrix"`
	PerClass     []ClassMetrics `json:"per_class"`
}

// ModelInfo is the read-only diagnostic view of the loaded artifact.
type ModelInfo struct {
	Algorithm   string         `json:"algorithm"`
	RunID       string         `json:"run_id"`
	TrainedAt   time.Time      `json:"trained_at"`
	NumSymptoms int            `json:"num_symptoms"`
	NumDiseases int            `json:"num_diseases"`
	Diseases    []string       `json:"diseases"`
	Metrics     TrainingReport `json:"metrics"`
}
