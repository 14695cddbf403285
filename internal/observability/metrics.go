package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the analytics service.
type Metrics struct {
	TelemetryRows   prometheus.Gauge
	FeedbackEntries prometheus.Gauge
	FeedbackWrites  prometheus.Counter
	ExportRequests  *prometheus.CounterVec // labels: kind={report,anomalies}

	// Geo enrichment metrics.
	WeatherRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	WeatherAPIDuration prometheus.Histogram
	SyntheticFallbacks prometheus.Counter
	ModelPredictions   *prometheus.CounterVec // labels: outcome={success,error,empty}
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		TelemetryRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "water_analytics",
			Name:      "telemetry_rows",
			Help:      "Telemetry rows held by the in-process store.",
		}),
		FeedbackEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "water_analytics",
			Name:      "feedback_entries",
			Help:      "Feedback entries currently in the ledger.",
		}),
		FeedbackWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "water_analytics",
			Name:      "feedback_writes_total",
			Help:      "Total feedback registrations persisted to disk.",
		}),
		ExportRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "water_analytics",
			Name:      "export_requests_total",
			Help:      "CSV export requests by kind.",
		}, []string{"kind"}),
		WeatherRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "water_analytics",
			Name:      "weather_requests_total",
			Help:      "Archive weather API requests by outcome.",
		}, []string{"outcome"}),
		WeatherAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "water_analytics",
			Name:      "weather_api_duration_seconds",
			Help:      "Archive weather API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		SyntheticFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "water_analytics",
			Name:      "synthetic_fallbacks_total",
			Help:      "Polygon enrichments served fully from synthetic data.",
		}),
		ModelPredictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "water_analytics",
			Name:      "model_predictions_total",
			Help:      "Yield model scoring attempts by outcome.",
		}, []string{"outcome"}),
	}

	prometheus.MustRegister(
		m.TelemetryRows,
		m.FeedbackEntries,
		m.FeedbackWrites,
		m.ExportRequests,
		m.WeatherRequests,
		m.WeatherAPIDuration,
		m.SyntheticFallbacks,
		m.ModelPredictions,
	)

	return m
}

// NewMetricsForTesting creates Metrics with unregistered collectors to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		TelemetryRows:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "water_analytics", Name: "telemetry_rows"}),
		FeedbackEntries:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "water_analytics", Name: "feedback_entries"}),
		FeedbackWrites:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "water_analytics", Name: "feedback_writes_total"}),
		ExportRequests:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "water_analytics", Name: "export_requests_total"}, []string{"kind"}),
		WeatherRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "water_analytics", Name: "weather_requests_total"}, []string{"outcome"}),
		WeatherAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "water_analytics", Name: "weather_api_duration_seconds"}),
		SyntheticFallbacks: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "water_analytics", Name: "synthetic_fallbacks_total"}),
		ModelPredictions:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "water_analytics", Name: "model_predictions_total"}, []string{"outcome"}),
	}
}
