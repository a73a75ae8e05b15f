// Package trainer runs the offline training pipeline: data processing,
// per-family cross-validation, model selection, optional hyperparameter
// search, evaluation, and artifact persistence. It is a single-instance
// batch job, never invoked from request-serving code paths.
package trainer

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/healthstack/diagnosis-engine/internal/artifact"
	"github.com/healthstack/diagnosis-engine/internal/classifier"
	"github.com/healthstack/diagnosis-engine/internal/dataset"
	"github.com/healthstack/diagnosis-engine/internal/encoder"
	"github.com/healthstack/diagnosis-engine/internal/models"
	"github.com/healthstack/diagnosis-engine/internal/utils"
)

// Options configure a training run.
type Options struct {
	TestSize          float64
	RandomState       int64
	Folds             int
	Optimize          bool
	SkipSynthetic     bool
	SamplesPerDisease int
}

// DefaultOptions mirror the stock training pipeline: 20% held out, seed 42,
// 5-fold cross-validation, 5 synthetic samples per source row.
func DefaultOptions() Options {
	return Options{TestSize: 0.2, RandomState: 42, Folds: 5, SamplesPerDisease: 5}
}

// Trainer compares the registered classifier families and persists the
// winner.
type Trainer struct {
	logger   *slog.Logger
	registry *classifier.Registry
	opts     Options
}

// New constructs a Trainer. A nil registry falls back to the default
// families; zero-valued options fall back to defaults.
func New(logger *slog.Logger, registry *classifier.Registry, opts Options) *Trainer {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = classifier.DefaultRegistry()
	}
	def := DefaultOptions()
	if opts.TestSize <= 0 || opts.TestSize >= 1 {
		opts.TestSize = def.TestSize
	}
	if opts.Folds < 2 {
		opts.Folds = def.Folds
	}
	if opts.SamplesPerDisease <= 0 {
		opts.SamplesPerDisease = def.SamplesPerDisease
	}
	return &Trainer{logger: logger, registry: registry, opts: opts}
}

type familyResult struct {
	score  models.FamilyScore
	model  classifier.Model
	params classifier.Params
}

// Run executes the full pipeline against dataDir and writes the winning
// artifact into modelsDir.
func (t *Trainer) Run(dataDir, modelsDir string) (*artifact.Artifact, error) {
	proc := dataset.NewProcessor(dataDir, t.logger)

	vocabulary, err := proc.LoadVocabulary()
	if err != nil {
		return nil, utils.NewAppError("trainer.Run", "load vocabulary", err)
	}
	merged, err := proc.LoadMerged(vocabulary)
	if err != nil {
		return nil, utils.NewAppError("trainer.Run", "load dataset", err)
	}
	if err := proc.SaveMerged(merged, vocabulary, ""); err != nil {
		t.logger.Warn("could not save merged dataset", slog.Any("error", err))
	}

	// Data-quality gate: fail before any fitting starts.
	if err := dataset.CheckQuality(merged); err != nil {
		return nil, err
	}

	split, err := dataset.StratifiedSplit(merged, t.opts.TestSize, t.opts.RandomState)
	if err != nil {
		return nil, err
	}

	// Synthetic rows join the training split only, so the held-out set
	// stays untouched by augmentation.
	if !t.opts.SkipSynthetic {
		synthetic := dataset.Synthesize(split.Train, vocabulary, t.opts.SamplesPerDisease, t.opts.RandomState)
		if err := proc.SaveSynthetic(synthetic, vocabulary, ""); err != nil {
			t.logger.Warn("could not save synthetic dataset", slog.Any("error", err))
		}
		split.Train.Append(synthetic)
		t.logger.Info("augmented training split",
			slog.Int("synthetic", synthetic.Len()),
			slog.Int("train_total", split.Train.Len()),
		)
	}

	scaler := dataset.FitScaler(split.Train.Features)
	trainX := scaler.TransformAll(split.Train.Features)
	testX := scaler.TransformAll(split.Test.Features)

	labels := uniqueSortedLabels(merged.Labels)
	labelIndex := make(map[string]int, len(labels))
	for i, l := range labels {
		labelIndex[l] = i
	}
	trainY := encodeLabels(split.Train.Labels, labelIndex)
	testY := encodeLabels(split.Test.Labels, labelIndex)

	results := make(map[string]*familyResult)
	for _, family := range t.registry.Families() {
		params := classifier.Params{"seed": float64(t.opts.RandomState)}
		result, err := t.trainFamily(family, params, trainX, trainY, testX, testY, len(labels))
		if err != nil {
			return nil, fmt.Errorf("train %s: %w", family, err)
		}
		results[family] = result
	}

	if t.opts.Optimize {
		t.optimize(results, trainX, trainY, testX, testY, len(labels))
	}

	best := selectBest(results)
	t.logger.Info("selected best model",
		slog.String("family", best.score.Family),
		slog.Float64("cv_accuracy", best.score.CVMean),
		slog.Float64("test_accuracy", best.score.TestAccuracy),
	)

	report := t.buildReport(best, results, testX, testY, labels)

	art := &artifact.Artifact{
		Meta: artifact.Metadata{
			SchemaVersion: artifact.SchemaVersion,
			Algorithm:     best.score.Family,
			RunID:         uuid.NewString(),
			TrainedAt:     time.Now().UTC(),
			Encoding:      encoder.EncodingSeverityWeighted,
			Symptoms:      vocabulary.Tokens(),
			Weights:       vocabulary.Weights(),
			Labels:        labels,
			ScalerMean:    scaler.Mean,
			ScalerStd:     scaler.Std,
			Params:        best.params,
		},
		Model:   best.model,
		Metrics: report,
	}

	if err := artifact.Save(modelsDir, art); err != nil {
		return nil, utils.NewAppError("trainer.Run", "persist artifact", err)
	}
	t.logger.Info("artifact saved",
		slog.String("dir", modelsDir),
		slog.String("run_id", art.Meta.RunID),
		slog.String("algorithm", art.Meta.Algorithm),
	)
	return art, nil
}

func (t *Trainer) trainFamily(family string, params classifier.Params, trainX [][]float64, trainY []int, testX [][]float64, testY []int, numClasses int) (*familyResult, error) {
	factory := func() classifier.Model {
		m, _ := t.registry.New(family, params)
		return m
	}

	cvMean, cvStd, err := classifier.CrossValidate(factory, trainX, trainY, numClasses, t.opts.Folds, t.opts.RandomState)
	if err != nil {
		return nil, err
	}

	model, err := t.registry.New(family, params)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	if err := model.Fit(trainX, trainY, numClasses); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	score := models.FamilyScore{
		Family:       family,
		CVMean:       cvMean,
		CVStd:        cvStd,
		TestAccuracy: classifier.Accuracy(model, testX, testY),
		TrainSeconds: elapsed.Seconds(),
	}
	t.logger.Info("trained family",
		slog.String("family", family),
		slog.Float64("cv_mean", score.CVMean),
		slog.Float64("cv_std", score.CVStd),
		slog.Float64("test_accuracy", score.TestAccuracy),
		slog.Duration("train_time", elapsed),
	)
	return &familyResult{score: score, model: model, params: params}, nil
}

// selectBest picks the family with the highest cross-validation mean
// accuracy; ties break by higher held-out accuracy, then by lower training
// time, then by name for full determinism.
func selectBest(results map[string]*familyResult) *familyResult {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	var best *familyResult
	for _, name := range names {
		candidate := results[name]
		if best == nil {
			best = candidate
			continue
		}
		a, b := candidate.score, best.score
		switch {
		case a.CVMean > b.CVMean:
			best = candidate
		case a.CVMean == b.CVMean && a.TestAccuracy > b.TestAccuracy:
			best = candidate
		case a.CVMean == b.CVMean && a.TestAccuracy == b.TestAccuracy && a.TrainSeconds < b.TrainSeconds:
			best = candidate
		}
	}
	return best
}

func (t *Trainer) buildReport(best *familyResult, results map[string]*familyResult, testX [][]float64, testY []int, labels []string) models.TrainingReport {
	report := models.TrainingReport{
		BestFamily:   best.score.Family,
		CVAccuracy:   best.score.CVMean,
		TestAccuracy: best.score.TestAccuracy,
	}

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		report.Families = append(report.Families, results[name].score)
	}

	cm := classifier.ConfusionMatrix(best.model, testX, testY, len(labels))
	report.Confusion = cm
	precision, recall, support := classifier.PrecisionRecall(cm)
	for i, label := range labels {
		report.PerClass = append(report.PerClass, models.ClassMetrics{
			Label:     label,
			Precision: precision[i],
			Recall:    recall[i],
			Support:   support[i],
		})
	}
	return report
}

func uniqueSortedLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func encodeLabels(labels []string, index map[string]int) []int {
	out := make([]int, len(labels))
	for i, l := range labels {
		out[i] = index[l]
	}
	return out
}
