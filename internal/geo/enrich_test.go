package geo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eltarotassadar/lct-hack-zhkh/internal/observability"
)

type stubGeometry struct {
	err error
}

func (s *stubGeometry) CellCenter(cellID string) (float64, float64, error) {
	if s.err != nil {
		return 0, 0, s.err
	}
	return 55.75, 37.61, nil
}

func (s *stubGeometry) CellBoundary(cellID string) ([][2]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return [][2]float64{{55.7, 37.6}, {55.8, 37.6}, {55.8, 37.7}}, nil
}

type stubWeather struct {
	payload HourlyPayload
	err     error

	gotLat, gotLon float64
	gotStart       time.Time
	gotEnd         time.Time
}

func (s *stubWeather) FetchArchive(_ context.Context, lat, lon float64, start, end time.Time) (HourlyPayload, error) {
	s.gotLat, s.gotLon = lat, lon
	s.gotStart, s.gotEnd = start, end
	return s.payload, s.err
}

type stubScorer struct {
	scores []YieldScore
	err    error
}

func (s *stubScorer) PredictYield(year int, payload HourlyPayload) ([]YieldScore, error) {
	return s.scores, s.err
}

func enricherLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnrichPolygonGeometryFailureSurfaces(t *testing.T) {
	enricher := NewEnricher(&stubGeometry{err: errors.New("bad cell")}, nil, nil,
		enricherLogger(), observability.NewMetricsForTesting())

	_, err := enricher.EnrichPolygon(context.Background(), "nope", 1718000000, 0)
	require.Error(t, err)
}

func TestEnrichPolygonSyntheticWhenWeatherDisabled(t *testing.T) {
	frozenClock(t)
	enricher := NewEnricher(&stubGeometry{}, nil, nil,
		enricherLogger(), observability.NewMetricsForTesting())

	bundle, err := enricher.EnrichPolygon(context.Background(), "8611aa7afffffff", 0, 2024)
	require.NoError(t, err)

	assert.Equal(t, "synthetic", bundle.Dataset)
	assert.Equal(t, "synthetic", bundle.Summary.Dataset)
	assert.Len(t, bundle.Weather.Time, 84)
	assert.Len(t, bundle.YieldPrediction, 12)
	assert.Equal(t, [2]float64{55.75, 37.61}, bundle.Center)
	require.Len(t, bundle.Boundary, 3)

	// Synthetic yield feeds the risk overwrite.
	synthetic := GenerateYield("8611aa7afffffff", 2024)
	var sum, highest float64
	for i, p := range synthetic {
		sum += p.Yield
		if i == 0 || p.Yield > highest {
			highest = p.Yield
		}
	}
	assert.InDelta(t, sum/float64(len(synthetic)), bundle.Summary.RiskIndex, 0.01)
	assert.InDelta(t, highest, bundle.Summary.MaxRisk, 0.01)
}

func TestEnrichPolygonLiveWeatherReplacesSynthetic(t *testing.T) {
	frozenClock(t)
	weather := &stubWeather{payload: hourlyFixture()}
	enricher := NewEnricher(&stubGeometry{}, weather, nil,
		enricherLogger(), observability.NewMetricsForTesting())

	bundle, err := enricher.EnrichPolygon(context.Background(), "8611aa7afffffff", 0, 2024)
	require.NoError(t, err)

	assert.Equal(t, "open-meteo", bundle.Dataset)
	assert.Equal(t, "open-meteo", bundle.Summary.Dataset)
	assert.Len(t, bundle.Weather.Time, 2)
	assert.Len(t, bundle.YieldPrediction, 12)

	assert.InDelta(t, 55.75, weather.gotLat, 0.001)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), weather.gotStart)
	assert.Equal(t, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), weather.gotEnd)
}

func TestEnrichPolygonFetchFailureFallsBack(t *testing.T) {
	frozenClock(t)
	weather := &stubWeather{err: errors.New("upstream down")}
	enricher := NewEnricher(&stubGeometry{}, weather, &stubScorer{},
		enricherLogger(), observability.NewMetricsForTesting())

	bundle, err := enricher.EnrichPolygon(context.Background(), "8611aa7afffffff", 0, 2024)
	require.NoError(t, err)
	assert.Equal(t, "synthetic", bundle.Dataset)
	assert.Len(t, bundle.Weather.Time, 84)
}

func TestEnrichPolygonModelScoresOverrideRisk(t *testing.T) {
	frozenClock(t)
	weather := &stubWeather{payload: hourlyFixture()}
	scorer := &stubScorer{scores: []YieldScore{
		{Sample: "PS000101", Yield: 140},
		{Sample: "PS000202", Yield: 100},
	}}
	enricher := NewEnricher(&stubGeometry{}, weather, scorer,
		enricherLogger(), observability.NewMetricsForTesting())

	bundle, err := enricher.EnrichPolygon(context.Background(), "8611aa7afffffff", 0, 2024)
	require.NoError(t, err)

	assert.Equal(t, scorer.scores, bundle.YieldPrediction)
	assert.InDelta(t, 120.0, bundle.Summary.RiskIndex, 0.001)
	assert.InDelta(t, 140.0, bundle.Summary.MaxRisk, 0.001)
}

func TestEnrichPolygonScorerFailureIsAbsorbed(t *testing.T) {
	frozenClock(t)
	weather := &stubWeather{payload: hourlyFixture()}
	scorer := &stubScorer{err: errors.New("weights missing")}
	enricher := NewEnricher(&stubGeometry{}, weather, scorer,
		enricherLogger(), observability.NewMetricsForTesting())

	bundle, err := enricher.EnrichPolygon(context.Background(), "8611aa7afffffff", 0, 2024)
	require.NoError(t, err)

	// Live weather still lands even though scoring failed.
	assert.Equal(t, "open-meteo", bundle.Dataset)
	assert.Len(t, bundle.YieldPrediction, 12)
}

func TestEnrichPolygonYearFromTimestamp(t *testing.T) {
	frozenClock(t)
	weather := &stubWeather{err: errors.New("down")}
	enricher := NewEnricher(&stubGeometry{}, weather, nil,
		enricherLogger(), observability.NewMetricsForTesting())

	epoch := time.Date(2023, 8, 10, 0, 0, 0, 0, time.UTC).Unix()
	bundle, err := enricher.EnrichPolygon(context.Background(), "8611aa7afffffff", epoch, 0)
	require.NoError(t, err)
	assert.Equal(t, "2023-05-01T00:00:00", bundle.Weather.Time[0])
	assert.Equal(t, time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), weather.gotStart)
}

func TestResolvePolygons(t *testing.T) {
	frozenClock(t)
	enricher := NewEnricher(&stubGeometry{}, nil, nil,
		enricherLogger(), observability.NewMetricsForTesting())

	descriptors, err := enricher.ResolvePolygons([]string{"8611aa7afffffff", "8611aa797ffffff"}, 2024)
	require.NoError(t, err)
	require.Len(t, descriptors, 2)

	first := descriptors[0]
	assert.Equal(t, "8611aa7afffffff", first.CellID)
	assert.Equal(t, "centralDistrict", first.DistrictKey)
	assert.Equal(t, "synthetic", first.Dataset)
	assert.NotEmpty(t, first.Advisories)
	require.Len(t, first.Boundary, 3)

	summary := GenerateSummary("8611aa7afffffff", 2024)
	assert.Equal(t, summary.RiskIndex, first.RiskIndex)

	_, err = enricher.ResolvePolygons([]string{"bad"}, 2024)
	require.NoError(t, err)

	broken := NewEnricher(&stubGeometry{err: errors.New("bad cell")}, nil, nil,
		enricherLogger(), observability.NewMetricsForTesting())
	_, err = broken.ResolvePolygons([]string{"bad"}, 2024)
	require.Error(t, err)
}
