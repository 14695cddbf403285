package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// TelemetryPath is the dataset path without extension; the store tries
	// <path>.parquet first and falls back to <path>.csv.
	TelemetryPath string
	FeedbackPath  string

	// Open-Meteo archive API configuration.
	OpenMeteoBaseURL string
	OpenMeteoEnabled bool
	OpenMeteoTimeout time.Duration
	WeatherCacheSize int

	// ModelWeightsPath points at the exported yield model weights. The file
	// is optional: when absent the service degrades to synthetic rankings.
	ModelWeightsPath string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	weatherTimeout, err := parseDuration("OPENMETEO_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("WEATHER_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}

	openMeteoEnabled := true
	if v := os.Getenv("OPENMETEO_ENABLED"); v != "" {
		openMeteoEnabled, err = strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("invalid OPENMETEO_ENABLED")
		}
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8010"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		TelemetryPath: envOrDefault("TELEMETRY_PATH", "data/telemetry"),
		FeedbackPath:  envOrDefault("FEEDBACK_PATH", "data/feedback.csv"),

		OpenMeteoBaseURL: envOrDefault("OPENMETEO_BASE_URL", "https://archive-api.open-meteo.com"),
		OpenMeteoEnabled: openMeteoEnabled,
		OpenMeteoTimeout: weatherTimeout,
		WeatherCacheSize: cacheSize,

		ModelWeightsPath: envOrDefault("MODEL_WEIGHTS_PATH", "weights/model.json"),
	}

	if cfg.TelemetryPath == "" {
		return nil, errors.New("TELEMETRY_PATH is required")
	}
	if cfg.FeedbackPath == "" {
		return nil, errors.New("FEEDBACK_PATH is required")
	}
	if cfg.OpenMeteoEnabled && cfg.OpenMeteoBaseURL == "" {
		return nil, errors.New("OPENMETEO_ENABLED is true but OPENMETEO_BASE_URL is empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	raw := envOrDefault(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}
