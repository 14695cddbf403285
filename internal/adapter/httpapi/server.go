// Package httpapi exposes the analytics and geo endpoints plus the
// health/readiness/metrics surface.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eltarotassadar/lct-hack-zhkh/internal/analytics"
	"github.com/eltarotassadar/lct-hack-zhkh/internal/domain"
	"github.com/eltarotassadar/lct-hack-zhkh/internal/geo"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness() error
}

// Server wires the REST routes over the analytics service and the polygon
// enricher.
type Server struct {
	httpServer *http.Server
	service    *analytics.Service
	enricher   *geo.Enricher
	weather    geo.WeatherFetcher
	logger     *slog.Logger
}

// NewServer builds the route table. weather may be nil; building bundles
// then skip the live weather attachment.
func NewServer(addr string, service *analytics.Service, enricher *geo.Enricher, weather geo.WeatherFetcher, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		service:  service,
		enricher: enricher,
		weather:  weather,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/years", s.handleYears)
	mux.HandleFunc("GET /api/buildings", s.handleBuildings)
	mux.HandleFunc("GET /api/buildings/{mkdID}", s.handleBuilding)
	mux.HandleFunc("POST /api/buildings/{mkdID}/feedback", s.handleFeedback)
	mux.HandleFunc("GET /api/buildings/{mkdID}/report", s.handleReport)
	mux.HandleFunc("GET /api/anomalies/export", s.handleAnomalyExport)
	mux.HandleFunc("POST /api/polygons", s.handlePolygonList)
	mux.HandleFunc("GET /api/polygons/{cellID}", s.handlePolygon)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := checker.CheckReadiness(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleYears(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]int{"years": s.service.Years()})
}

func (s *Server) handleBuildings(w http.ResponseWriter, r *http.Request) {
	year, err := requiredYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.service.BuildingSummaries(year))
}

func (s *Server) handleBuilding(w http.ResponseWriter, r *http.Request) {
	mkdID := r.PathValue("mkdID")
	year, err := requiredYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bundle, err := s.service.BuildingBundle(mkdID, year)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if includeWeather(r) && s.weather != nil {
		bundle.Weather = s.fetchBuildingWeather(r.Context(), bundle, year)
	}
	writeJSON(w, http.StatusOK, bundle)
}

// fetchBuildingWeather attaches the full-year aggregated archive series at
// the building coordinates. Any failure leaves the bundle without a weather
// block rather than failing it.
func (s *Server) fetchBuildingWeather(ctx context.Context, bundle analytics.Bundle, year int) *geo.WeatherSeries {
	lat := bundle.Summary.MkdLat
	lon := bundle.Summary.MkdLon
	if lat == 0 && lon == 0 {
		lat, lon = domain.DefaultLat, domain.DefaultLon
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	payload, err := s.weather.FetchArchive(ctx, lat, lon, start, end)
	if err != nil {
		s.logger.Warn("building weather unavailable", "mkd_id", bundle.Summary.MkdID, "error", err)
		return nil
	}
	series := geo.AggregateWeather(payload)
	return &series
}

type feedbackRequest struct {
	AnomalyID string `json:"anomaly_id"`
	Status    string `json:"status"`
	Comment   string `json:"comment"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid feedback payload")
		return
	}
	result, err := s.service.RegisterFeedback(req.AnomalyID, req.Status, req.Comment)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	mkdID := r.PathValue("mkdID")
	year, err := requiredYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	content, err := s.service.ExportReport(mkdID, year)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeCSV(w, fmt.Sprintf("report-%s-%d.csv", mkdID, year), content)
}

func (s *Server) handleAnomalyExport(w http.ResponseWriter, r *http.Request) {
	year, err := optionalYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	mkdID := r.URL.Query().Get("mkd_id")

	parts := []string{"anomalies"}
	if mkdID != "" {
		parts = append(parts, mkdID)
	}
	if year != 0 {
		parts = append(parts, strconv.Itoa(year))
	}
	writeCSV(w, strings.Join(parts, "-")+".csv", s.service.ExportAnomalyDatabase(year, mkdID))
}

type polygonListRequest struct {
	IDs  []string `json:"ids"`
	Now  int64    `json:"now"`
	Year int      `json:"year"`
}

func (s *Server) handlePolygonList(w http.ResponseWriter, r *http.Request) {
	var req polygonListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid polygon payload")
		return
	}
	descriptors, err := s.enricher.ResolvePolygons(req.IDs, req.Year)
	if err != nil {
		s.logger.Error("polygon resolution failed", "error", err)
		writeError(w, http.StatusBadGateway, "Failed to load polygon bundle")
		return
	}
	writeJSON(w, http.StatusOK, descriptors)
}

func (s *Server) handlePolygon(w http.ResponseWriter, r *http.Request) {
	cellID := r.PathValue("cellID")

	epochMillis, err := optionalInt64(r, "now")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if epochMillis == 0 {
		epochMillis = domain.Now().UnixMilli()
	}
	epochSeconds := epochMillis / 1000
	if epochSeconds < 1 {
		epochSeconds = 1
	}

	year, err := optionalYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bundle, err := s.enricher.EnrichPolygon(r.Context(), cellID, epochSeconds, year)
	if err != nil {
		s.logger.Error("polygon enrichment failed", "cell_id", cellID, "error", err)
		writeError(w, http.StatusBadGateway, "Failed to load polygon bundle")
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

func requiredYear(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return 0, errors.New("year query parameter is required")
	}
	return parseYear(raw)
}

func optionalYear(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return 0, nil
	}
	return parseYear(raw)
}

func parseYear(raw string) (int, error) {
	year, err := strconv.Atoi(raw)
	if err != nil || year < 2000 || year > 2100 {
		return 0, fmt.Errorf("year must be an integer between 2000 and 2100")
	}
	return year, nil
}

func optionalInt64(r *http.Request, key string) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer timestamp", key)
	}
	return value, nil
}

func includeWeather(r *http.Request) bool {
	raw := strings.ToLower(r.URL.Query().Get("include_weather"))
	return raw != "false" && raw != "0"
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}

func writeCSV(w http.ResponseWriter, filename string, content []byte) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	w.Write(content) //nolint:errcheck // best-effort response write
}
