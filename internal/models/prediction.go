package models

import "time"

// ConfidenceBand is a coarse, human-readable label derived from a class
// probability. Probabilities are the model's estimates, not calibrated
// clinical likelihoods.
type ConfidenceBand string

const (
	ConfidenceVeryLow  ConfidenceBand = "very_low"
	ConfidenceLow      ConfidenceBand = "low"
	ConfidenceMedium   ConfidenceBand = "medium"
	ConfidenceHigh     ConfidenceBand = "high"
	ConfidenceVeryHigh ConfidenceBand = "very_high"
)

// BandFromProbability maps a probability in [0,1] onto a ConfidenceBand.
func BandFromProbability(p float64) ConfidenceBand {
	switch {
	case p >= 0.8:
		return ConfidenceVeryHigh
	case p >= 0.6:
		return ConfidenceHigh
	case p >= 0.4:
		return ConfidenceMedium
	case p >= 0.2:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// RankedDisease is a single entry of a prediction: a disease label and the
// model's probability estimate for it.
type RankedDisease struct {
	Disease     string         `json:"disease"`
	Probability float64        `json:"probability"`
	Confidence  ConfidenceBand `json:"confidence"`
}

// PredictionResult is the ranked outcome of one prediction request.
// Probabilities are non-increasing across Predictions. An empty Predictions
// slice with unresolved symptoms signals "rephrase your symptoms", not a
// failure.
type PredictionResult struct {
	PredictionID string              `json:"prediction_id"`
	Predictions  []RankedDisease     `json:"predictions"`
	Resolved     []string            `json:"resolved_symptoms"`
	Unresolved   []UnresolvedSymptom `json:"unresolved_symptoms,omitempty"`
	GeneratedAt  time.Time           `json:"generated_at"`
}

// UnresolvedSymptom is a raw input phrase that could not be mapped to the
// vocabulary, with the closest vocabulary tokens as suggestions.
type UnresolvedSymptom struct {
	Input       string   `json:"input"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// MatchReport describes how raw input was resolved against the vocabulary.
type MatchReport struct {
	Resolved   []string            `json:"resolved"`
	Unresolved []UnresolvedSymptom `json:"unresolved,omitempty"`
}

// SymptomWeight pairs a vocabulary token with its severity weight.
type SymptomWeight struct {
	Symptom string  `json:"symptom"`
	Weight  float64 `json:"weight"`
}
