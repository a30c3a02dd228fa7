package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/af-corp/genroute/internal/config"
	"github.com/af-corp/genroute/internal/feedback"
	"github.com/af-corp/genroute/internal/gateway"
	"github.com/af-corp/genroute/internal/ratelimit"
	"github.com/af-corp/genroute/internal/router"
	"github.com/af-corp/genroute/internal/telemetry"
	"github.com/af-corp/genroute/internal/usage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var version = "dev"

func main() {
	configDir := flag.String("config", "configs", "path to configuration directory")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	loader := config.NewLoader(*configDir, logger)
	if err := loader.Load(); err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := loader.Watch(); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	cfg := loader.Config()
	logger = newLogger(cfg.Telemetry)
	slog.SetDefault(logger)

	// Connect to Redis
	var rdb *redis.Client
	if len(cfg.Redis.Addresses) > 0 && cfg.Redis.Addresses[0] != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addresses[0],
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis not reachable (spend tracking and rate limiting fail open)", "error", err)
		} else {
			logger.Info("redis connected")
		}
	}

	// Build provider registry
	providerRegistry := router.BuildFromConfig(loader.Providers())
	loader.OnReload(func() {
		providerRegistry.Replace(router.BuildFromConfig(loader.Providers()))
		logger.Info("provider registry reloaded")
	})

	health := router.NewHealthTracker(
		cfg.Routing.CircuitBreaker.FailureThreshold,
		cfg.Routing.CircuitBreaker.RecoveryProbeInterval,
	)
	tracker := usage.NewTracker(usage.DefaultCapacity)
	metrics := telemetry.NewMetrics()

	orchestrator := router.NewOrchestrator(providerRegistry,
		router.WithHealthTracker(health),
		router.WithRecorder(tracker),
		router.WithRecorder(metrics),
		router.WithAttemptTimeout(cfg.Routing.AttemptTimeout),
		router.WithLogger(logger),
	)

	var validator feedback.Validator
	if cfg.Feedback.ValidatorURL != "" {
		validator = feedback.NewHTTPValidator(cfg.Feedback.ValidatorURL, cfg.Feedback.ValidatorTimeout)
		logger.Info("diagram validator configured", "url", cfg.Feedback.ValidatorURL)
	}

	handler := gateway.NewHandler(gateway.Deps{
		Generator:   orchestrator,
		ModelConfig: loader.ModelConfig,
		Config:      loader.Config,
		Validator:   validator,
		Tracker:     tracker,
		Spend:       usage.NewSpendCounter(rdb),
		Health:      health,
		Metrics:     metrics,
		Logger:      logger,
		Version:     version,
	})

	// Router setup
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)

	r.Handle("/metrics", promhttp.Handler())
	handler.Routes(r, ratelimit.Middleware(ratelimit.NewLimiter(rdb), cfg.RateLimit.RequestsPerMinute, metrics))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("genroute starting",
			"addr", addr,
			"version", version,
			"primary_model", string(loader.ModelConfig().Primary),
		)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		rdb.Close()
	}
	logger.Info("genroute stopped")
}

func newLogger(cfg config.TelemetryConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = "req_" + uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}
