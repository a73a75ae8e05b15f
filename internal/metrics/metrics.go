package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels predictions that produced a ranked result.
	OutcomeSuccess = "success"
	// OutcomeUnresolved labels requests where no input symptom matched the vocabulary.
	OutcomeUnresolved = "unresolved"
	// OutcomeError labels failed predictions (bad input or internal issues).
	OutcomeError = "error"
)

var (
	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "diagnosis_engine",
			Name:      "predictions_total",
			Help:      "Total number of prediction requests handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	predictionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "diagnosis_engine",
			Name:      "prediction_seconds",
			Help:      "Prediction latency in seconds.",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "diagnosis_engine",
			Name:      "cache_lookups_total",
			Help:      "Prediction cache lookups, partitioned by result.",
		},
		[]string{"result"},
	)

	unresolvedSymptomsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "diagnosis_engine",
			Name:      "unresolved_symptoms_total",
			Help:      "Input symptoms that could not be matched to the vocabulary.",
		},
	)
)

// Register attaches diagnosis-engine collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		predictionsTotal,
		predictionDurationSeconds,
		cacheLookupsTotal,
		unresolvedSymptomsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObservePrediction records a prediction duration and outcome label.
func ObservePrediction(duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeError, OutcomeUnresolved:
	default:
		outcome = OutcomeSuccess
	}
	predictionsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	predictionDurationSeconds.Observe(duration.Seconds())
}

// ObserveCacheLookup records a prediction cache hit or miss.
func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// CountUnresolvedSymptoms adds to the running total of unmatched inputs.
func CountUnresolvedSymptoms(n int) {
	if n > 0 {
		unresolvedSymptomsTotal.Add(float64(n))
	}
}
