package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/healthstack/diagnosis-engine/internal/config"
	"github.com/healthstack/diagnosis-engine/internal/trainer"
	"github.com/healthstack/diagnosis-engine/internal/utils"
)

func main() {
	var (
		configPath        string
		dataDir           string
		modelsDir         string
		testSize          float64
		randomState       int64
		folds             int
		optimize          bool
		skipSynthetic     bool
		samplesPerDisease int
	)
	defaults := trainer.DefaultOptions()
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&dataDir, "data-dir", "", "Directory with dataset.csv and Symptom-severity.csv (overrides config)")
	flag.StringVar(&modelsDir, "models-dir", "", "Output directory for the trained artifact (overrides config)")
	flag.Float64Var(&testSize, "test-size", defaults.TestSize, "Held-out fraction in (0,1)")
	flag.Int64Var(&randomState, "random-state", defaults.RandomState, "Seed for splits, augmentation and model fitting")
	flag.IntVar(&folds, "folds", defaults.Folds, "Cross-validation folds")
	flag.BoolVar(&optimize, "optimize", false, "Run hyperparameter grid search on the ensemble families")
	flag.BoolVar(&skipSynthetic, "skip-synthetic", false, "Disable synthetic training augmentation")
	flag.IntVar(&samplesPerDisease, "samples-per-disease", defaults.SamplesPerDisease, "Synthetic samples generated per source row")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}
	if dataDir == "" {
		dataDir = cfg.Data.Dir
	}
	if modelsDir == "" {
		modelsDir = cfg.Model.Dir
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting training run",
		slog.String("data_dir", dataDir),
		slog.String("models_dir", modelsDir),
		slog.Bool("optimize", optimize),
	)

	tr := trainer.New(logger, nil, trainer.Options{
		TestSize:          testSize,
		RandomState:       randomState,
		Folds:             folds,
		Optimize:          optimize,
		SkipSynthetic:     skipSynthetic,
		SamplesPerDisease: samplesPerDisease,
	})

	art, err := tr.Run(dataDir, modelsDir)
	if err != nil {
		logger.Error("training failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("training complete",
		slog.String("algorithm", art.Meta.Algorithm),
		slog.String("run_id", art.Meta.RunID),
		slog.Float64("cv_accuracy", art.Metrics.CVAccuracy),
		slog.Float64("test_accuracy", art.Metrics.TestAccuracy),
	)
}
