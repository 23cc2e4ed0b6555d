package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZanzyTHEbar/campus-mcp/internal/adapters"
	"github.com/ZanzyTHEbar/campus-mcp/internal/cache"
	"github.com/ZanzyTHEbar/campus-mcp/internal/classifier"
	"github.com/ZanzyTHEbar/campus-mcp/internal/config"
	apperrors "github.com/ZanzyTHEbar/campus-mcp/internal/errors"
	"github.com/ZanzyTHEbar/campus-mcp/internal/knowledge"
	"github.com/ZanzyTHEbar/campus-mcp/internal/monitoring"
	"github.com/ZanzyTHEbar/campus-mcp/internal/ratelimit"
	"github.com/ZanzyTHEbar/campus-mcp/internal/resilience"
	"github.com/ZanzyTHEbar/campus-mcp/internal/server"
	"github.com/ZanzyTHEbar/campus-mcp/internal/tools"
	"github.com/gin-gonic/gin"
)

// @title        Campus MCP API
// @version      1.0.0
// @description  Academic analytics tools, knowledge base search and image classification.
// @BasePath     /
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Structured logging setup
	appLogger := monitoring.NewLogger(cfg.LogLevel)
	slog.SetDefault(appLogger.Logger)
	gin.SetMode(cfg.GinMode)

	appMetrics := monitoring.NewMetrics()

	// Prediction cache keyed by model and image digest
	predictions := cache.New[classifier.Prediction](cfg.PredictionCacheTTL)
	predictions.SetMetrics(appMetrics)
	defer apperrors.SafeClose(predictions, "prediction cache")

	// Redis is optional; the limiter falls back to in-memory buckets
	redisClient, err := ratelimit.NewRedisClient(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		slog.Warn("Redis unavailable, using in-memory rate limiting", "addr", cfg.RedisAddr, "error", err)
	}
	defer apperrors.SafeClose(redisClient, "redis")

	limiterConfig := ratelimit.DefaultConfig()
	limiterConfig.IPLimitPerMin = cfg.RateLimitPerMin
	limiterConfig.ClassifyLimitPerMin = cfg.ClassifyRateLimitPerMin
	limiter := ratelimit.NewRateLimiter(redisClient, limiterConfig, appMetrics)
	defer apperrors.SafeClose(limiter, "rate limiter")

	breakers := resilience.NewCircuitBreakerRegistry()
	registry := classifier.NewRegistry(appLogger.Logger, predictions)
	registry.Observe(func(model string, pred classifier.Prediction, d time.Duration, cached bool, err error) {
		appMetrics.RecordClassification(model, err == nil)
		if err == nil {
			appLogger.ClassificationLogger(model, pred.Label, pred.Confidence, d, cached)
		}
	})

	backend, err := newModelBackend(cfg, breakers, appMetrics, appLogger)
	if err != nil {
		slog.Error("Failed to configure model backend", "error", err)
		os.Exit(1)
	}

	pneumoniaLabels, err := classifier.PneumoniaLabels(cfg.PneumoniaLabelsPath)
	if err != nil {
		slog.Error("Failed to load pneumonia labels", "path", cfg.PneumoniaLabelsPath, "error", err)
		os.Exit(1)
	}
	registry.Register(classifier.NewModel(classifier.PneumoniaConfig(cfg.PneumoniaModelName, pneumoniaLabels), backend))
	registry.Register(classifier.NewModel(classifier.FruitsConfig(cfg.FruitsModelName), backend))

	if cfg.ClassifiersEnabled() {
		loadCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		loaded := registry.LoadAll(loadCtx)
		cancel()
		slog.Info("Classifiers probed", "loaded", loaded, "total", len(registry.Names()))
	} else {
		slog.Warn("TF_SERVING_URL not set, classification endpoints will answer 503")
	}

	srv := server.New(server.Deps{
		Config:      cfg,
		Dispatcher:  tools.NewDispatcher(tools.WithClassifier(registry)),
		Knowledge:   knowledge.MustLoad(),
		Classifiers: registry,
		Predictions: predictions,
		Limiter:     limiter,
		Redis:       redisClient,
		Breakers:    breakers,
		Metrics:     appMetrics,
		Logger:      appLogger,
	})

	// Start server with graceful shutdown
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "addr", cfg.Addr(), "rate_limit_backend", limiter.Backend())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return
	}

	slog.Info("Server exited")
}

// newModelBackend returns nil when no inference server is configured; the
// models then report ErrNotConfigured.
func newModelBackend(cfg *config.Config, breakers *resilience.CircuitBreakerRegistry, metrics *monitoring.Metrics, logger *monitoring.Logger) (classifier.Backend, error) {
	if !cfg.ClassifiersEnabled() {
		return nil, nil
	}

	breaker := breakers.GetOrCreate("tf-serving", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		SuccessThreshold: 2,
	})
	guard := resilience.NewGuard(breaker, resilience.DefaultRetryConfig())

	adapter, err := adapters.NewTFServingAdapter(cfg.TFServingURL, nil, guard)
	if err != nil {
		return nil, err
	}
	adapter.Observe(func(operation string, d time.Duration, err error) {
		metrics.RecordExternalAPIRequest(adapter.Name(), err == nil)
		logger.ExternalAPILogger(adapter.Name(), operation, d, err)
	})
	return adapter, nil
}
