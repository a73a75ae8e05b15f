package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/healthstack/diagnosis-engine/internal/cache"
	"github.com/healthstack/diagnosis-engine/internal/metrics"
	"github.com/healthstack/diagnosis-engine/internal/models"
	"github.com/healthstack/diagnosis-engine/internal/predictor"
	"github.com/healthstack/diagnosis-engine/internal/utils"
	"github.com/healthstack/diagnosis-engine/internal/vocab"
)

// ErrInvalidInput reports a request the service cannot act on at all, such as
// an empty symptom list.
var ErrInvalidInput = errors.New("prediction: no symptoms provided")

// PredictionService is the request-facing facade: it fronts the serving
// context with validation, caching, metrics and latency logging.
type PredictionService struct {
	logger    *slog.Logger
	handle    *predictor.Handle
	cache     cache.Provider
	ttl       time.Duration
	latencies *utils.LatencyTracker
}

// NewPredictionService constructs the facade. A nil cache provider disables
// result caching via the noop implementation.
func NewPredictionService(logger *slog.Logger, handle *predictor.Handle, provider cache.Provider, ttl time.Duration) *PredictionService {
	if logger == nil {
		logger = slog.Default()
	}
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	return &PredictionService{
		logger:    logger,
		handle:    handle,
		cache:     provider,
		ttl:       ttl,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Predict resolves symptoms and returns ranked diseases. Results for
// identical normalised inputs are served from cache while the same model is
// loaded.
func (s *PredictionService) Predict(ctx context.Context, symptoms []string, topN int) (*models.PredictionResult, error) {
	cleaned := make([]string, 0, len(symptoms))
	for _, raw := range symptoms {
		if t := strings.TrimSpace(raw); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	if len(cleaned) == 0 {
		metrics.ObservePrediction(0, metrics.OutcomeError)
		return nil, ErrInvalidInput
	}

	sc := s.handle.Current()
	key := s.cacheKey(sc, cleaned, topN)
	if cached, ok := s.readCache(ctx, key); ok {
		return cached, nil
	}

	start := time.Now()
	result, err := sc.Predict(cleaned, topN)
	duration := time.Since(start)
	if err != nil {
		metrics.ObservePrediction(duration, metrics.OutcomeError)
		s.logger.Error("prediction failed", slog.Any("error", err))
		return nil, fmt.Errorf("predict: %w", err)
	}

	s.latencies.Observe(duration)
	metrics.CountUnresolvedSymptoms(len(result.Unresolved))
	if len(result.Predictions) == 0 {
		metrics.ObservePrediction(duration, metrics.OutcomeUnresolved)
	} else {
		metrics.ObservePrediction(duration, metrics.OutcomeSuccess)
	}
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("prediction latency",
			slog.Duration("p95", s.latencies.Percentile(95)),
			slog.Int("samples", count),
		)
	}

	s.writeCache(ctx, key, result)
	return result, nil
}

// Match resolves input phrases against the vocabulary without running the
// model.
func (s *PredictionService) Match(symptoms []string) models.MatchReport {
	return s.handle.Current().Match(symptoms)
}

// Symptoms returns the ordered vocabulary with severity weights.
func (s *PredictionService) Symptoms() []models.SymptomWeight {
	return s.handle.Current().Vocabulary()
}

// ModelInfo describes the currently loaded model.
func (s *PredictionService) ModelInfo() models.ModelInfo {
	return s.handle.Current().ModelInfo()
}

// cacheKey hashes the normalised, sorted symptom set, the requested depth and
// the model run so stale entries die with the artifact that produced them.
func (s *PredictionService) cacheKey(sc *predictor.ServingContext, symptoms []string, topN int) string {
	tokens := make([]string, 0, len(symptoms))
	for _, raw := range symptoms {
		if t := vocab.Normalize(raw); t != "" {
			tokens = append(tokens, t)
		}
	}
	sort.Strings(tokens)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s", sc.ModelInfo().RunID, topN, strings.Join(tokens, ","))
	return "prediction:" + hex.EncodeToString(h.Sum(nil))
}

func (s *PredictionService) readCache(ctx context.Context, key string) (*models.PredictionResult, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("prediction cache read failed", slog.Any("error", err))
		}
		metrics.ObserveCacheLookup(false)
		return nil, false
	}

	var result models.PredictionResult
	if err := json.Unmarshal(data, &result); err != nil {
		s.logger.Warn("prediction cache entry corrupt", slog.Any("error", err))
		metrics.ObserveCacheLookup(false)
		return nil, false
	}
	metrics.ObserveCacheLookup(true)
	return &result, true
}

func (s *PredictionService) writeCache(ctx context.Context, key string, result *models.PredictionResult) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		s.logger.Warn("prediction cache write failed", slog.Any("error", err))
	}
}
