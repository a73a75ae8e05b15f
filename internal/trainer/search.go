package trainer

import (
	"log/slog"
	"sort"
	"time"

	"github.com/healthstack/diagnosis-engine/internal/classifier"
	"github.com/healthstack/diagnosis-engine/internal/models"
)

// grids enumerate the candidate hyperparameters for the two tree-ensemble
// families. The linear families converge to the same optimum regardless of
// budget on this problem size, so only the ensembles are searched.
var grids = map[string]map[string][]float64{
	classifier.FamilyRandomForest: {
		"n_estimators":      {50, 100, 200},
		"max_depth":         {8, 12, 16},
		"min_samples_split": {2, 5, 10},
		"min_samples_leaf":  {1, 2},
	},
	classifier.FamilyGradientBoosting: {
		"n_estimators":  {50, 100, 200},
		"learning_rate": {0.01, 0.1, 0.2},
		"max_depth":     {3, 5, 7},
	},
}

// optimize runs an exhaustive cross-validated grid search over the ensemble
// families and replaces a family's result when a candidate beats its current
// CV mean. A search failure leaves the default-parameter result in place.
func (t *Trainer) optimize(results map[string]*familyResult, trainX [][]float64, trainY []int, testX [][]float64, testY []int, numClasses int) {
	for _, family := range []string{classifier.FamilyRandomForest, classifier.FamilyGradientBoosting} {
		current, ok := results[family]
		if !ok {
			continue
		}
		best, mean, std, err := t.searchFamily(family, trainX, trainY, numClasses)
		if err != nil {
			t.logger.Warn("grid search failed, keeping defaults",
				slog.String("family", family),
				slog.Any("error", err),
			)
			continue
		}
		if mean <= current.score.CVMean {
			t.logger.Info("grid search did not improve on defaults",
				slog.String("family", family),
				slog.Float64("best_cv", mean),
				slog.Float64("default_cv", current.score.CVMean),
			)
			continue
		}

		model, err := t.registry.New(family, best)
		if err != nil {
			continue
		}
		start := time.Now()
		if err := model.Fit(trainX, trainY, numClasses); err != nil {
			t.logger.Warn("refit with tuned parameters failed, keeping defaults",
				slog.String("family", family),
				slog.Any("error", err),
			)
			continue
		}
		elapsed := time.Since(start)

		results[family] = &familyResult{
			model:  model,
			params: best,
			score:  models.FamilyScore{
				Family:       family,
				CVMean:       mean,
				CVStd:        std,
				TestAccuracy: classifier.Accuracy(model, testX, testY),
				TrainSeconds: elapsed.Seconds(),
			},
		}
		t.logger.Info("grid search improved family",
			slog.String("family", family),
			slog.Float64("cv_mean", mean),
			slog.Any("params", best),
		)
	}
}

// searchFamily evaluates every combination in the family's grid and returns
// the parameters with the best CV mean. Combinations are visited in a fixed
// order so repeated runs produce the same winner.
func (t *Trainer) searchFamily(family string, X [][]float64, y []int, numClasses int) (classifier.Params, float64, float64, error) {
	grid := grids[family]
	keys := make([]string, 0, len(grid))
	for k := range grid {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		bestParams classifier.Params
		bestMean   = -1.0
		bestStd    float64
		firstErr   error
	)

	combo := classifier.Params{"seed": float64(t.opts.RandomState)}
	var walk func(depth int)
	walk = func(depth int) {
		if depth == len(keys) {
			params := combo.Clone()
			factory := func() classifier.Model {
				m, _ := t.registry.New(family, params)
				return m
			}
			mean, std, err := classifier.CrossValidate(factory, X, y, numClasses, t.opts.Folds, t.opts.RandomState)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			if mean > bestMean {
				bestMean, bestStd, bestParams = mean, std, params
			}
			return
		}
		key := keys[depth]
		for _, value := range grid[key] {
			combo[key] = value
			walk(depth + 1)
		}
		delete(combo, key)
	}
	walk(0)

	if bestParams == nil {
		return nil, 0, 0, firstErr
	}
	return bestParams, bestMean, bestStd, nil
}
