package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yuva-raja-reddy/city-weather-collector-db/internal/client"
	"github.com/yuva-raja-reddy/city-weather-collector-db/internal/collector"
	"github.com/yuva-raja-reddy/city-weather-collector-db/internal/config"
	httphandler "github.com/yuva-raja-reddy/city-weather-collector-db/internal/http"
	"github.com/yuva-raja-reddy/city-weather-collector-db/internal/lifecycle"
	"github.com/yuva-raja-reddy/city-weather-collector-db/internal/observability"
	"github.com/yuva-raja-reddy/city-weather-collector-db/internal/storage"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	weatherClient, err := client.NewOpenWeatherClient(cfg.WeatherAPIKey, cfg.WeatherAPIURL, cfg.WeatherAPITimeout)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}
	if cfg.APIRateLimitPerMinute > 0 {
		limit := rate.Limit(float64(cfg.APIRateLimitPerMinute) / 60.0)
		weatherClient.SetRateLimiter(rate.NewLimiter(limit, 1))
		logger.Info("outbound rate limiter enabled", zap.Int("calls_per_minute", cfg.APIRateLimitPerMinute))
	}

	if cfg.ValidateAPIKeyOnStart {
		probeCtx, probeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = weatherClient.ValidateAPIKey(probeCtx)
		probeCancel()
		if err != nil {
			logger.Fatal("api key validation", zap.Error(err))
		}
	}

	store, err := storage.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("postgres", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	}()

	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = store.EnsureSchema(schemaCtx)
	schemaCancel()
	if err != nil {
		logger.Fatal("ensure schema", zap.Error(err))
	}

	coll := collector.New(weatherClient, store, cfg.City, cfg.CollectInterval, cfg.CycleTimeout, logger)
	if err := coll.Start(); err != nil {
		logger.Fatal("collector", zap.Error(err))
	}

	healthConfig := &httphandler.HealthConfig{
		CollectInterval: cfg.CollectInterval,
		StartTime:       time.Now(),
	}
	handler := httphandler.NewHandler(store, coll.Status, healthConfig, logger)

	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("ops server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("ops server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)

	// Stop returns once any in-flight cycle has finished: no torn writes.
	coll.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown", zap.Error(err))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
