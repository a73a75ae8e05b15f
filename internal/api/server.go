package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/healthstack/diagnosis-engine/internal/services"
)

// Server wires the prediction service into an HTTP listener.
type Server struct {
	logger *slog.Logger
	svc    *services.PredictionService
	http   *http.Server
}

// NewServer builds the router and wraps it in an http.Server bound to addr.
func NewServer(logger *slog.Logger, svc *services.PredictionService, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{logger: logger, svc: svc}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/healthz", s.handleHealth)
	v1 := router.Group("/api/v1")
	{
		v1.POST("/predict", s.handlePredict)
		v1.POST("/match", s.handleMatch)
		v1.GET("/symptoms", s.handleSymptoms)
		v1.GET("/model", s.handleModelInfo)
	}

	s.http = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start blocks serving requests until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("address", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}
