// Package analytics assembles the building-level API payloads: summaries,
// drill-down bundles, feedback registration, and the CSV exports.
package analytics

import (
	"fmt"
	"log/slog"

	"github.com/eltarotassadar/lct-hack-zhkh/internal/domain"
	"github.com/eltarotassadar/lct-hack-zhkh/internal/feedback"
	"github.com/eltarotassadar/lct-hack-zhkh/internal/observability"
	"github.com/eltarotassadar/lct-hack-zhkh/internal/telemetry"
)

// Service composes the telemetry store and the feedback ledger behind the
// read API.
type Service struct {
	store   *telemetry.Store
	ledger  *feedback.Ledger
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewService(store *telemetry.Store, ledger *feedback.Ledger, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{store: store, ledger: ledger, logger: logger, metrics: metrics}
}

// Years lists the reporting years present in telemetry, ascending.
func (s *Service) Years() []int {
	return s.store.Years()
}

// BuildingSummaries scores every building with telemetry in the given year,
// sorted by risk descending.
func (s *Service) BuildingSummaries(year int) []SummaryPayload {
	summaries := domain.SummarizeBuildings(s.store.Records("", year))
	payloads := make([]SummaryPayload, 0, len(summaries))
	for _, summary := range summaries {
		payloads = append(payloads, summaryPayload(summary))
	}
	return payloads
}

// BuildingBundle assembles the drill-down response for one building-year.
// A building with no telemetry in the year is a not-found condition.
func (s *Service) BuildingBundle(mkdID string, year int) (Bundle, error) {
	records := s.store.Records(mkdID, year)
	if len(records) == 0 {
		return Bundle{}, fmt.Errorf("MKD %s not found for year %d: %w", mkdID, year, domain.ErrNotFound)
	}

	summary := domain.BuildSummary(records)
	deviations := make([]float64, 0, len(records))
	for _, record := range records {
		deviations = append(deviations, record.DeviationRatio)
	}

	return Bundle{
		Summary:         summaryPayload(summary),
		Telemetry:       timeSeriesPayload(records),
		Recommendations: actionPayloads(domain.Recommend(records, mkdID, year)),
		Analytics: AnalyticsPayload{
			MkdID:            summary.MkdID,
			MkdAddress:       summary.MkdAddress,
			ItpID:            summary.ItpID,
			OdpuID:           summary.OdpuID,
			MkdLat:           summary.MkdLat,
			MkdLon:           summary.MkdLon,
			Anomalies:        s.anomalyPayloads(records),
			FactorCatalog:    factorCatalogPayload(),
			AnomalyShare:     roundTo(summary.AnomalyRate*100, 1),
			MedianDeviation:  roundTo(medianOf(deviations)*100, 1),
			AverageDeviation: roundTo(meanOf(deviations)*100, 1),
		},
	}, nil
}

func (s *Service) anomalyPayloads(records []domain.TelemetryRecord) []AnomalyPayload {
	anomalies := make([]AnomalyPayload, 0)
	for _, record := range records {
		if !record.Anomaly {
			continue
		}
		id := domain.AnomalyID(record.MkdID, record.Date, record.OdpuID)
		payload := AnomalyPayload{
			ID:               id,
			Date:             record.Date.Format("2006-01-02T15:04:05"),
			DeviationPercent: roundTo(record.DeviationRatio*100, 2),
			ItpCold:          roundTo(record.ColdIntake, 2),
			OdpuHot:          roundTo(record.HotOutput, 2),
			Status:           domain.StatusUnreviewed,
		}
		if entry, ok := s.ledger.Get(id); ok {
			payload.Status = entry.Status
			if entry.Comment != "" {
				comment := entry.Comment
				payload.Comment = &comment
			}
			stamp := entry.UpdatedAt.UTC().Format("2006-01-02T15:04:05") + "Z"
			payload.UpdatedAt = &stamp
		}
		anomalies = append(anomalies, payload)
	}
	return anomalies
}

// RegisterFeedback stores a dispatcher verdict and confirms it back.
func (s *Service) RegisterFeedback(anomalyID, status, comment string) (FeedbackResult, error) {
	entry, err := s.ledger.Register(anomalyID, status, comment)
	if err != nil {
		return FeedbackResult{}, err
	}
	result := FeedbackResult{
		ID:        entry.AnomalyID,
		Status:    entry.Status,
		UpdatedAt: entry.UpdatedAt.UTC().Format("2006-01-02T15:04:05") + "Z",
	}
	if entry.Comment != "" {
		comment := entry.Comment
		result.Comment = &comment
	}
	return result, nil
}

// CheckReadiness reports whether the service can serve analytics.
func (s *Service) CheckReadiness() error {
	if s.store.Len() == 0 {
		return fmt.Errorf("telemetry store is empty")
	}
	return nil
}
