package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommend_Deterministic(t *testing.T) {
	records := []TelemetryRecord{
		record("MKD-7", 1, 100, 70),
		record("MKD-7", 2, 100, 80),
		record("MKD-7", 3, 100, 60),
		record("MKD-7", 4, 100, 55),
	}

	first := Recommend(records, "MKD-7", 2024)
	second := Recommend(records, "MKD-7", 2024)
	assert.Equal(t, first, second, "same (building, year) must reproduce the same actions")

	otherYear := Recommend(records, "MKD-7", 2023)
	assert.NotEqual(t, first, otherYear, "a different year seeds a different stream")
}

func TestRecommend_Shape(t *testing.T) {
	records := []TelemetryRecord{
		record("MKD-7", 1, 100, 70),
		record("MKD-7", 2, 100, 90),
	}

	actions := Recommend(records, "MKD-7", 2024)
	require.Len(t, actions, 4)

	codes := make(map[string]bool)
	for _, a := range actions {
		codes[a.Code] = true
		assert.GreaterOrEqual(t, a.Confidence, 0.15)
		assert.LessOrEqual(t, a.Confidence, 0.95)
		require.Len(t, a.Factors, 4)
		assert.Equal(t, "deviation_trend", a.Factors[0].ID)
		assert.Equal(t, "supply_ratio", a.Factors[1].ID)
		assert.Equal(t, "dispatcher_feedback", a.Factors[2].ID)
		assert.Equal(t, "weather_context", a.Factors[3].ID)
		assert.GreaterOrEqual(t, a.Factors[2].Impact, 5.0)
		assert.LessOrEqual(t, a.Factors[2].Impact, 35.0)
		assert.GreaterOrEqual(t, a.Factors[3].Impact, 0.0)
		assert.LessOrEqual(t, a.Factors[3].Impact, 25.0)
	}
	assert.Len(t, codes, 4, "all four remediation codes present")

	for i := 1; i < len(actions); i++ {
		assert.GreaterOrEqual(t, actions[i-1].Confidence, actions[i].Confidence)
	}
}

func TestRecommend_EmptyTelemetry(t *testing.T) {
	actions := Recommend(nil, "MKD-empty", 2024)
	require.Len(t, actions, 4)
	for _, a := range actions {
		// No deviation signal: confidence falls back to the base weights.
		assert.GreaterOrEqual(t, a.Confidence, 0.15)
		assert.Zero(t, a.Factors[0].Impact)
	}
}

func TestFactorCatalog(t *testing.T) {
	catalog := FactorCatalog()
	require.Len(t, catalog, 4)
	assert.Equal(t, "deviation_trend", catalog[0].ID)
	assert.Equal(t, "weather_context", catalog[3].ID)

	// Mutating the returned slice must not leak into the catalog.
	catalog[0].Label = "changed"
	assert.Equal(t, "Deviation trend", FactorCatalog()[0].Label)
}
