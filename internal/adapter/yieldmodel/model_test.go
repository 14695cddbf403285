package yieldmodel

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eltarotassadar/lct-hack-zhkh/internal/geo"
)

const testWeights = `{
	"bias": 90.0,
	"coefficients": {
		"embeddings": 10.0,
		"avg_day_temp_prorastanie": 0.5,
		"sum_rain_prorastanie": 1.0
	},
	"samples": [
		{"sample": "PS000101", "embedding": 0.2},
		{"sample": "PS000202", "embedding": 0.8},
		{"sample": "PS000303", "embedding": 0.5}
	]
}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeWeights(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func weatherFixture() geo.HourlyPayload {
	return geo.HourlyPayload{Hourly: geo.HourlyBlock{
		Time:        []string{"2024-05-02T10:00", "2024-05-02T14:00"},
		Temperature: []float64{12, 16},
		Rain:        []float64{0.5, 1.5},
	}}
}

func TestLoad(t *testing.T) {
	model, err := Load(writeWeights(t, testWeights), testLogger())
	require.NoError(t, err)
	require.NotNil(t, model)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"), testLogger())
		require.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := Load(writeWeights(t, "{broken"), testLogger())
		require.Error(t, err)
	})

	t.Run("no samples", func(t *testing.T) {
		_, err := Load(writeWeights(t, `{"bias": 1, "coefficients": {}, "samples": []}`), testLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no samples")
	})
}

func TestPredictYield(t *testing.T) {
	model, err := Load(writeWeights(t, testWeights), testLogger())
	require.NoError(t, err)

	scores, err := model.PredictYield(2024, weatherFixture())
	require.NoError(t, err)
	require.Len(t, scores, 3)

	// avg temp 14, rain sum 2: base contribution 90 + 0.5*14 + 1.0*2 = 99.
	assert.Equal(t, geo.YieldScore{Sample: "PS000202", Yield: 107}, scores[0])
	assert.Equal(t, geo.YieldScore{Sample: "PS000303", Yield: 104}, scores[1])
	assert.Equal(t, geo.YieldScore{Sample: "PS000101", Yield: 101}, scores[2])
}

func TestPredictYieldEmptyWeather(t *testing.T) {
	model, err := Load(writeWeights(t, testWeights), testLogger())
	require.NoError(t, err)

	scores, err := model.PredictYield(2024, geo.HourlyPayload{})
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestPredictYieldUnmatchedYearZeroFills(t *testing.T) {
	model, err := Load(writeWeights(t, testWeights), testLogger())
	require.NoError(t, err)

	scores, err := model.PredictYield(2019, weatherFixture())
	require.NoError(t, err)
	require.Len(t, scores, 3)
	// Only bias and embeddings contribute when the year has no features.
	assert.Equal(t, 98.0, scores[0].Yield)
}
