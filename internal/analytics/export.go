package analytics

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/eltarotassadar/lct-hack-zhkh/internal/domain"
)

// anomalyExportHeader is the column contract of the anomaly database dump.
var anomalyExportHeader = []string{
	"anomaly_id", "date", "mkd_id", "mkd_address", "itp_id", "odpu_id",
	"district", "deviation_percent", "itp_cold", "odpu_hot",
	"status", "comment", "updated_at",
}

// ExportReport renders the per-building telemetry report as CSV. Numeric
// cells keep the minimal decimal form of the rounded value.
func (s *Service) ExportReport(mkdID string, year int) ([]byte, error) {
	records := s.store.Records(mkdID, year)
	if len(records) == 0 {
		return nil, fmt.Errorf("MKD %s not found for year %d: %w", mkdID, year, domain.ErrNotFound)
	}
	s.metrics.ExportRequests.WithLabelValues("report").Inc()

	var buf bytes.Buffer
	buf.WriteString("date,itp_cold,odpu_hot,deviation_percent\n")
	for _, record := range records {
		fmt.Fprintf(&buf, "%s,%s,%s,%s\n",
			record.Date.Format("2006-01-02"),
			trimFloat(roundTo(record.ColdIntake, 2)),
			trimFloat(roundTo(record.HotOutput, 2)),
			trimFloat(roundTo(record.DeviationRatio*100, 2)),
		)
	}
	return buf.Bytes(), nil
}

// ExportAnomalyDatabase dumps every anomalous reading, optionally filtered
// by year and building, joined with dispatcher feedback. An empty selection
// still yields the header so downstream imports keep their schema.
func (s *Service) ExportAnomalyDatabase(year int, mkdID string) []byte {
	s.metrics.ExportRequests.WithLabelValues("anomalies").Inc()

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	writer.Write(anomalyExportHeader)

	for _, record := range s.store.Records(mkdID, year) {
		if !record.Anomaly {
			continue
		}
		id := domain.AnomalyID(record.MkdID, record.Date, record.OdpuID)

		status := domain.StatusUnreviewed
		comment := ""
		updatedAt := ""
		if entry, ok := s.ledger.Get(id); ok {
			status = entry.Status
			comment = strings.TrimSpace(strings.ReplaceAll(entry.Comment, "\n", " "))
			updatedAt = entry.UpdatedAt.UTC().Format("2006-01-02T15:04:05") + "Z"
		}

		writer.Write([]string{
			id,
			record.Date.Format("2006-01-02"),
			record.MkdID,
			record.MkdAddress,
			record.ItpID,
			record.OdpuID,
			record.District,
			fmt.Sprintf("%.2f", record.DeviationRatio*100),
			fmt.Sprintf("%.2f", record.ColdIntake),
			fmt.Sprintf("%.2f", record.HotOutput),
			status,
			comment,
			updatedAt,
		})
	}
	writer.Flush()
	return buf.Bytes()
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
