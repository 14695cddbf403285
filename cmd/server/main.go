package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/eltarotassadar/lct-hack-zhkh/internal/adapter/h3geo"
	"github.com/eltarotassadar/lct-hack-zhkh/internal/adapter/httpapi"
	"github.com/eltarotassadar/lct-hack-zhkh/internal/adapter/openmeteo"
	"github.com/eltarotassadar/lct-hack-zhkh/internal/adapter/yieldmodel"
	"github.com/eltarotassadar/lct-hack-zhkh/internal/analytics"
	"github.com/eltarotassadar/lct-hack-zhkh/internal/config"
	"github.com/eltarotassadar/lct-hack-zhkh/internal/feedback"
	"github.com/eltarotassadar/lct-hack-zhkh/internal/geo"
	"github.com/eltarotassadar/lct-hack-zhkh/internal/observability"
	"github.com/eltarotassadar/lct-hack-zhkh/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	store, err := telemetry.Open(cfg.TelemetryPath, logger)
	if err != nil {
		logger.Error("failed to open telemetry dataset", "path", cfg.TelemetryPath, "error", err)
		os.Exit(1)
	}
	metrics.TelemetryRows.Set(float64(store.Len()))

	ledger := feedback.Open(cfg.FeedbackPath, store, logger, metrics)
	service := analytics.NewService(store, ledger, logger, metrics)

	// Archive weather is feature-flagged via OPENMETEO_ENABLED.
	var weather geo.WeatherFetcher
	if cfg.OpenMeteoEnabled {
		client := openmeteo.NewClient(cfg.OpenMeteoBaseURL, cfg.OpenMeteoTimeout, logger, metrics)
		weather = openmeteo.NewCachedFetcher(client, cfg.WeatherCacheSize)
		logger.Info("archive weather enabled",
			"base_url", cfg.OpenMeteoBaseURL, "cache_size", cfg.WeatherCacheSize, "timeout", cfg.OpenMeteoTimeout)
	} else {
		logger.Info("archive weather disabled, synthetic series only")
	}

	// The yield model is optional: without weights the overlay serves the
	// synthetic ranking.
	var scorer geo.YieldScorer
	if model, err := yieldmodel.Load(cfg.ModelWeightsPath, logger); err != nil {
		logger.Warn("yield model unavailable", "path", cfg.ModelWeightsPath, "error", err)
	} else {
		scorer = model
	}

	enricher := geo.NewEnricher(h3geo.New(), weather, scorer, logger, metrics)
	srv := httpapi.NewServer(cfg.HTTPAddr, service, enricher, weather, service, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
