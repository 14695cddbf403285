package openmeteo

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eltarotassadar/lct-hack-zhkh/internal/observability"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const archiveResponse = `{
	"hourly": {
		"time": ["2024-05-01T00:00", "2024-05-01T01:00"],
		"temperature_2m": [8.4, 8.1],
		"relative_humidity_2m": [81, 83],
		"rain": [0.0, 0.2],
		"cloud_cover_high": [25, 40],
		"soil_moisture_100_to_255cm": [0.31, 0.31],
		"soil_temperature_100_to_255cm": [6.8, 6.8]
	}
}`

func TestFetchArchive(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/archive", r.URL.Path)
		gotQuery = map[string]string{}
		for key := range r.URL.Query() {
			gotQuery[key] = r.URL.Query().Get(key)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(archiveResponse))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, testLogger(), observability.NewMetricsForTesting())

	payload, err := client.FetchArchive(context.Background(), 55.75, 37.61,
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "55.75", gotQuery["latitude"])
	assert.Equal(t, "37.61", gotQuery["longitude"])
	assert.Equal(t, "2024-05-01", gotQuery["start_date"])
	assert.Equal(t, "2024-10-01", gotQuery["end_date"])
	assert.Equal(t, "Europe/Moscow", gotQuery["timezone"])
	assert.Equal(t, "best_match", gotQuery["models"])
	assert.Contains(t, gotQuery["hourly"], "temperature_2m")
	assert.Contains(t, gotQuery["hourly"], "soil_moisture_100_to_255cm")

	require.Len(t, payload.Hourly.Time, 2)
	assert.InDelta(t, 8.4, payload.Hourly.Temperature[0], 0.001)
	assert.InDelta(t, 0.2, payload.Hourly.Rain[1], 0.001)
}

func TestFetchArchiveUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, testLogger(), observability.NewMetricsForTesting())

	_, err := client.FetchArchive(context.Background(), 55.75, 37.61,
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestFetchArchiveBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, testLogger(), observability.NewMetricsForTesting())

	_, err := client.FetchArchive(context.Background(), 55.75, 37.61,
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestFetchArchiveContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(archiveResponse))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, testLogger(), observability.NewMetricsForTesting())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.FetchArchive(ctx, 55.75, 37.61,
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
}
