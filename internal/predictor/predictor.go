// Package predictor composes the loaded model artifact with the matcher,
// encoder and scaler into the online inference path. A ServingContext is
// immutable once built; replacing the model means building a new context and
// swapping it into the Handle.
package predictor

import (
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/healthstack/diagnosis-engine/internal/artifact"
	"github.com/healthstack/diagnosis-engine/internal/classifier"
	"github.com/healthstack/diagnosis-engine/internal/dataset"
	"github.com/healthstack/diagnosis-engine/internal/encoder"
	"github.com/healthstack/diagnosis-engine/internal/matcher"
	"github.com/healthstack/diagnosis-engine/internal/models"
	"github.com/healthstack/diagnosis-engine/internal/vocab"
)

// DefaultTopN is the ranking depth used when a request does not ask for one.
const DefaultTopN = 5

// ServingContext bundles everything one prediction needs. All fields are
// read-only after NewServingContext returns, so a single context serves
// concurrent requests without locking.
type ServingContext struct {
	vocab   *vocab.Vocabulary
	matcher *matcher.Matcher
	encoder *encoder.Encoder
	scaler  *dataset.Scaler
	model   classifier.Model
	labels  []string
	info    models.ModelInfo
}

// NewServingContext rebuilds the inference pipeline from a loaded artifact.
// The vocabulary order, encoding and scaler come from the artifact metadata
// so inference reproduces the training-time feature space exactly.
func NewServingContext(art *artifact.Artifact, opts matcher.Options) (*ServingContext, error) {
	if art == nil || art.Model == nil {
		return nil, fmt.Errorf("predictor: artifact has no model")
	}

	v, err := vocab.FromOrdered(art.Meta.Symptoms, art.Meta.Weights)
	if err != nil {
		return nil, fmt.Errorf("predictor: rebuild vocabulary: %w", err)
	}
	enc, err := encoder.New(v, art.Meta.Encoding)
	if err != nil {
		return nil, fmt.Errorf("predictor: %w", err)
	}

	return &ServingContext{
		vocab:   v,
		matcher: matcher.New(v, nil, opts),
		encoder: enc,
		scaler:  &dataset.Scaler{Mean: art.Meta.ScalerMean, Std: art.Meta.ScalerStd},
		model:   art.Model,
		labels:  append([]string(nil), art.Meta.Labels...),
		info:    art.Info(),
	}, nil
}

// Predict resolves the input phrases, encodes them and returns diseases
// ranked by descending probability. When nothing resolves, the result carries
// only the unresolved entries with suggestions; that is a valid answer, not
// an error.
func (s *ServingContext) Predict(phrases []string, topN int) (*models.PredictionResult, error) {
	report := s.matcher.Match(phrases)

	result := &models.PredictionResult{
		PredictionID: uuid.NewString(),
		Predictions:  []models.RankedDisease{},
		Resolved:     report.Resolved,
		Unresolved:   report.Unresolved,
		GeneratedAt:  time.Now().UTC(),
	}
	if len(report.Resolved) == 0 {
		return result, nil
	}

	vector, err := s.encoder.Encode(report.Resolved)
	if err != nil {
		return nil, fmt.Errorf("predictor: encode resolved symptoms: %w", err)
	}
	probs := s.model.PredictProba(s.scaler.Transform(vector))
	if len(probs) != len(s.labels) {
		return nil, fmt.Errorf("predictor: model returned %d probabilities for %d labels", len(probs), len(s.labels))
	}

	result.Predictions = s.rank(probs, topN)
	return result, nil
}

// PredictText splits free text on commas, semicolons and newlines before
// predicting.
func (s *ServingContext) PredictText(raw string, topN int) (*models.PredictionResult, error) {
	return s.Predict(matcher.SplitInput(raw), topN)
}

// Match exposes vocabulary resolution without running the model.
func (s *ServingContext) Match(phrases []string) models.MatchReport {
	return s.matcher.Match(phrases)
}

// Vocabulary returns the ordered symptom/weight pairs the model understands.
func (s *ServingContext) Vocabulary() []models.SymptomWeight {
	return s.vocab.List()
}

// ModelInfo describes the loaded artifact.
func (s *ServingContext) ModelInfo() models.ModelInfo {
	return s.info
}

// rank sorts classes by probability descending, label ascending on exact
// ties, and truncates to topN clamped into [1, len(labels)].
func (s *ServingContext) rank(probs []float64, topN int) []models.RankedDisease {
	ranked := make([]models.RankedDisease, len(s.labels))
	for i, label := range s.labels {
		ranked[i] = models.RankedDisease{
			Disease:     label,
			Probability: probs[i],
			Confidence:  models.BandFromProbability(probs[i]),
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Probability != ranked[j].Probability {
			return ranked[i].Probability > ranked[j].Probability
		}
		return ranked[i].Disease < ranked[j].Disease
	})

	if topN <= 0 {
		topN = DefaultTopN
	}
	if topN > len(ranked) {
		topN = len(ranked)
	}
	return ranked[:topN]
}

// Handle is the hot-swappable pointer through which the service reads the
// current ServingContext. Swapping is atomic; in-flight requests finish on
// the context they started with.
type Handle struct {
	ptr atomic.Pointer[ServingContext]
}

// NewHandle wraps an initial context.
func NewHandle(sc *ServingContext) *Handle {
	h := &Handle{}
	h.ptr.Store(sc)
	return h
}

// Current returns the active context.
func (h *Handle) Current() *ServingContext {
	return h.ptr.Load()
}

// Swap installs a new context and returns the previous one.
func (h *Handle) Swap(sc *ServingContext) *ServingContext {
	return h.ptr.Swap(sc)
}
