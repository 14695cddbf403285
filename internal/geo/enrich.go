package geo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eltarotassadar/lct-hack-zhkh/internal/observability"
)

// WeatherFetcher pulls an hourly archive series for a coordinate and date
// range.
type WeatherFetcher interface {
	FetchArchive(ctx context.Context, lat, lon float64, start, end time.Time) (HourlyPayload, error)
}

// YieldScorer ranks sampling nodes for a year given raw hourly weather.
// Implementations return an error when the trained model is unavailable.
type YieldScorer interface {
	PredictYield(year int, payload HourlyPayload) ([]YieldScore, error)
}

// CellGeometry resolves H3 cells into map coordinates.
type CellGeometry interface {
	CellCenter(cellID string) (lat, lon float64, err error)
	CellBoundary(cellID string) ([][2]float64, error)
}

// PolygonBundle is the full enriched payload for one cell.
type PolygonBundle struct {
	CellID          string        `json:"cellId"`
	Center          [2]float64    `json:"center"`
	Boundary        [][2]float64  `json:"boundary"`
	Weather         WeatherSeries `json:"weather"`
	YieldPrediction []YieldScore  `json:"yieldPrediction"`
	Summary         Summary       `json:"summary"`
	Dataset         string        `json:"dataset"`
}

// PolygonDescriptor is the lightweight map-layer descriptor: geometry plus
// the synthetic summary fields, no weather and no model calls.
type PolygonDescriptor struct {
	CellID          string       `json:"cellId"`
	Center          [2]float64   `json:"center"`
	Boundary        [][2]float64 `json:"boundary"`
	RiskIndex       float64      `json:"riskIndex"`
	MaxRisk         float64      `json:"maxRisk"`
	LeakProbability float64      `json:"leakProbability"`
	FlowRate        float64      `json:"flowRate"`
	Pressure        float64      `json:"pressure"`
	Status          string       `json:"status"`
	Dataset         string       `json:"dataset"`
	UpdatedAt       string       `json:"updatedAt"`
	Advisories      []string     `json:"advisories"`
	DistrictKey     string       `json:"districtKey,omitempty"`
	DistrictLabel   string       `json:"districtLabel,omitempty"`
}

// Enricher composes geometry, the archive weather source, and the yield
// model into polygon bundles. The synthetic generators are the floor: every
// external failure past geometry degrades to them instead of erroring.
type Enricher struct {
	geometry CellGeometry
	weather  WeatherFetcher
	scorer   YieldScorer
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewEnricher wires the orchestrator. weather and scorer may be nil; a nil
// stage is skipped and its synthetic counterpart is served.
func NewEnricher(geometry CellGeometry, weather WeatherFetcher, scorer YieldScorer, logger *slog.Logger, metrics *observability.Metrics) *Enricher {
	return &Enricher{
		geometry: geometry,
		weather:  weather,
		scorer:   scorer,
		logger:   logger,
		metrics:  metrics,
	}
}

// EnrichPolygon builds the full bundle for one cell. Geometry failure is the
// only surfaced error: a cell that cannot be placed on the map has no useful
// degraded form. The reporting year comes from the override when non-zero,
// otherwise from the client timestamp.
func (e *Enricher) EnrichPolygon(ctx context.Context, cellID string, epochSeconds int64, yearOverride int) (PolygonBundle, error) {
	centerLat, centerLon, err := e.geometry.CellCenter(cellID)
	if err != nil {
		return PolygonBundle{}, fmt.Errorf("resolve cell center: %w", err)
	}
	boundary, err := e.geometry.CellBoundary(cellID)
	if err != nil {
		return PolygonBundle{}, fmt.Errorf("resolve cell boundary: %w", err)
	}

	year := yearOverride
	if year == 0 {
		year = time.Unix(epochSeconds, 0).UTC().Year()
	}

	fallback := GenerateBundle(cellID, year)
	weather := fallback.Weather
	predictions := fallback.YieldPrediction
	summary := fallback.Summary
	dataset := summary.Dataset

	if e.weather != nil {
		start := time.Date(year, time.May, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(year, time.October, 1, 0, 0, 0, 0, time.UTC)
		payload, err := e.weather.FetchArchive(ctx, centerLat, centerLon, start, end)
		if err != nil {
			e.metrics.SyntheticFallbacks.Inc()
			e.logger.Warn("archive weather unavailable, serving synthetic series",
				"cell_id", cellID, "year", year, "error", err)
		} else {
			if aggregated := AggregateWeather(payload); !aggregated.Empty() {
				weather = aggregated
				dataset = "open-meteo"
			}
			if e.scorer != nil {
				scored, err := e.scorer.PredictYield(year, payload)
				switch {
				case err != nil:
					e.metrics.ModelPredictions.WithLabelValues("error").Inc()
					e.logger.Warn("yield model unavailable, serving synthetic ranking",
						"cell_id", cellID, "year", year, "error", err)
				case len(scored) > 0:
					e.metrics.ModelPredictions.WithLabelValues("success").Inc()
					predictions = scored
				}
			}
		}
	}

	if len(predictions) > 0 {
		var sum, highest float64
		for i, p := range predictions {
			sum += p.Yield
			if i == 0 || p.Yield > highest {
				highest = p.Yield
			}
		}
		summary.RiskIndex = round2(sum / float64(len(predictions)))
		summary.MaxRisk = round2(highest)
	}
	summary.Dataset = dataset
	summary.UpdatedAt = Timestamp()

	return PolygonBundle{
		CellID:          cellID,
		Center:          [2]float64{centerLat, centerLon},
		Boundary:        boundary,
		Weather:         weather,
		YieldPrediction: predictions,
		Summary:         summary,
		Dataset:         dataset,
	}, nil
}

// ResolvePolygons returns map-layer descriptors for a batch of cells without
// touching the network. A zero year resolves to the current one.
func (e *Enricher) ResolvePolygons(cells []string, year int) ([]PolygonDescriptor, error) {
	if year == 0 {
		year = clock.Now().UTC().Year()
	}
	descriptors := make([]PolygonDescriptor, 0, len(cells))
	for _, cell := range cells {
		centerLat, centerLon, err := e.geometry.CellCenter(cell)
		if err != nil {
			return nil, fmt.Errorf("resolve cell center: %w", err)
		}
		boundary, err := e.geometry.CellBoundary(cell)
		if err != nil {
			return nil, fmt.Errorf("resolve cell boundary: %w", err)
		}
		summary := GenerateSummary(cell, year)
		descriptors = append(descriptors, PolygonDescriptor{
			CellID:          cell,
			Center:          [2]float64{centerLat, centerLon},
			Boundary:        boundary,
			RiskIndex:       summary.RiskIndex,
			MaxRisk:         summary.MaxRisk,
			LeakProbability: summary.LeakProbability,
			FlowRate:        summary.FlowRate,
			Pressure:        summary.Pressure,
			Status:          summary.Status,
			Dataset:         summary.Dataset,
			UpdatedAt:       summary.UpdatedAt,
			Advisories:      summary.Advisories,
			DistrictKey:     summary.DistrictKey,
			DistrictLabel:   summary.DistrictLabel,
		})
	}
	return descriptors, nil
}
