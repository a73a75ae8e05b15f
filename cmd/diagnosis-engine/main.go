package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/healthstack/diagnosis-engine/internal/api"
	"github.com/healthstack/diagnosis-engine/internal/artifact"
	"github.com/healthstack/diagnosis-engine/internal/cache"
	"github.com/healthstack/diagnosis-engine/internal/config"
	"github.com/healthstack/diagnosis-engine/internal/matcher"
	"github.com/healthstack/diagnosis-engine/internal/metrics"
	"github.com/healthstack/diagnosis-engine/internal/predictor"
	"github.com/healthstack/diagnosis-engine/internal/services"
	"github.com/healthstack/diagnosis-engine/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting diagnosis-engine", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	art, err := artifact.Load(cfg.Model.Dir)
	if err != nil {
		logger.Error("failed to load model artifact",
			slog.String("dir", cfg.Model.Dir),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
	logger.Info("model artifact loaded",
		slog.String("algorithm", art.Meta.Algorithm),
		slog.String("run_id", art.Meta.RunID),
		slog.Int("symptoms", len(art.Meta.Symptoms)),
		slog.Int("diseases", len(art.Meta.Labels)),
	)

	servingCtx, err := predictor.NewServingContext(art, matcher.Options{
		AcceptThreshold:  cfg.Matcher.AcceptThreshold,
		SuggestThreshold: cfg.Matcher.SuggestThreshold,
		MaxSuggestions:   cfg.Matcher.MaxSuggestions,
	})
	if err != nil {
		logger.Error("failed to build serving context", slog.Any("error", err))
		os.Exit(1)
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled {
		if cfg.Cache.Addr != "" {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Cache.DialTimeout+time.Second)
			provider, err := cache.NewRedisProvider(ctx, cache.Options{
				Addr:         cfg.Cache.Addr,
				Username:     cfg.Cache.Username,
				Password:     cfg.Cache.Password,
				DB:           cfg.Cache.DB,
				DialTimeout:  cfg.Cache.DialTimeout,
				ReadTimeout:  cfg.Cache.ReadTimeout,
				WriteTimeout: cfg.Cache.WriteTimeout,
				TLS:          cfg.Cache.TLS,
			})
			cancel()
			if err != nil {
				logger.Warn("redis cache unavailable, using in-memory cache", slog.Any("error", err))
				cacheProvider = cache.NewMemoryProvider()
			} else {
				cacheProvider = provider
			}
		} else {
			cacheProvider = cache.NewMemoryProvider()
		}
	}
	defer cacheProvider.Close()

	svc := services.NewPredictionService(logger, predictor.NewHandle(servingCtx), cacheProvider, cfg.Cache.PredictionTTL)
	server := api.NewServer(logger, svc, cfg.Server.Address)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("http server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", slog.Any("error", err))
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("diagnosis-engine stopped")
}
