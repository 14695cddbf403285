// Package openmeteo fetches historical hourly weather from the Open-Meteo
// archive API.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/eltarotassadar/lct-hack-zhkh/internal/geo"
	"github.com/eltarotassadar/lct-hack-zhkh/internal/observability"
)

// hourlyVariables is the fixed variable set both the overlay and the yield
// model consume.
var hourlyVariables = []string{
	"temperature_2m",
	"relative_humidity_2m",
	"rain",
	"cloud_cover_high",
	"soil_moisture_100_to_255cm",
	"soil_temperature_100_to_255cm",
}

// Client implements geo.WeatherFetcher against the archive endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an archive API client. baseURL carries scheme and host
// only; the path is fixed.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// FetchArchive pulls the hourly series for a coordinate and date range.
// Times are requested in Europe/Moscow so day boundaries line up with the
// reporting windows.
func (c *Client) FetchArchive(ctx context.Context, lat, lon float64, start, end time.Time) (geo.HourlyPayload, error) {
	params := url.Values{
		"latitude":   {strconv.FormatFloat(lat, 'f', -1, 64)},
		"longitude":  {strconv.FormatFloat(lon, 'f', -1, 64)},
		"start_date": {start.Format("2006-01-02")},
		"end_date":   {end.Format("2006-01-02")},
		"hourly":     {strings.Join(hourlyVariables, ",")},
		"timezone":   {"Europe/Moscow"},
		"models":     {"best_match"},
	}
	fullURL := c.baseURL + "/v1/archive?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return geo.HourlyPayload{}, fmt.Errorf("create request: %w", err)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.WeatherAPIDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		return geo.HourlyPayload{}, fmt.Errorf("archive request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return geo.HourlyPayload{}, fmt.Errorf("archive API error: status %d: %s", resp.StatusCode, body)
	}

	var payload geo.HourlyPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		return geo.HourlyPayload{}, fmt.Errorf("decode response: %w", err)
	}

	c.metrics.WeatherRequests.WithLabelValues("success").Inc()
	c.logger.Debug("archive weather fetched",
		"lat", lat, "lon", lon,
		"start", start.Format("2006-01-02"), "end", end.Format("2006-01-02"),
		"hours", len(payload.Hourly.Time))
	return payload, nil
}
