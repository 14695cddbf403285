package telemetry

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/eltarotassadar/lct-hack-zhkh/internal/domain"
)

// readCSV loads the row-text fallback format. The first row is the header;
// column order is free as long as the required columns are present.
func readCSV(path string) ([]domain.TelemetryRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read telemetry csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("telemetry csv %s has no header row", path)
	}

	index := make(map[string]int, len(rows[0]))
	present := make(map[string]struct{}, len(rows[0]))
	for i, name := range rows[0] {
		index[name] = i
		present[name] = struct{}{}
	}
	if err := missingColumnsError(present); err != nil {
		return nil, err
	}

	_, hasAnomaly := index["anomaly"]

	out := make([]domain.TelemetryRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		rec, err := parseCSVRow(row, index, hasAnomaly)
		if err != nil {
			return nil, fmt.Errorf("telemetry csv row %d: %w", n+2, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseCSVRow(row []string, index map[string]int, hasAnomaly bool) (domain.TelemetryRecord, error) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	date, err := parseDate(field("date"))
	if err != nil {
		return domain.TelemetryRecord{}, err
	}
	cold, err := parseFloat(field("itp_cold_water"))
	if err != nil {
		return domain.TelemetryRecord{}, fmt.Errorf("itp_cold_water: %w", err)
	}
	hot, err := parseFloat(field("odpu_hot_water"))
	if err != nil {
		return domain.TelemetryRecord{}, fmt.Errorf("odpu_hot_water: %w", err)
	}

	deviation := domain.DeviationRatio(cold, hot)
	if raw := field("deviation_ratio"); raw != "" {
		deviation, err = parseFloat(raw)
		if err != nil {
			return domain.TelemetryRecord{}, fmt.Errorf("deviation_ratio: %w", err)
		}
	}

	mkdLat := optionalFloat(field("mkd_lat"), domain.DefaultLat)
	mkdLon := optionalFloat(field("mkd_lon"), domain.DefaultLon)

	return domain.TelemetryRecord{
		MkdID:          field("mkd_id"),
		MkdAddress:     field("mkd_address"),
		MkdLat:         mkdLat,
		MkdLon:         mkdLon,
		ItpID:          field("itp_id"),
		ItpName:        field("itp_name"),
		ItpLat:         optionalFloat(field("itp_lat"), mkdLat),
		ItpLon:         optionalFloat(field("itp_lon"), mkdLon),
		OdpuID:         field("odpu_id"),
		District:       field("district"),
		Date:           date,
		ColdIntake:     cold,
		HotOutput:      hot,
		DeviationRatio: deviation,
		Anomaly:        domain.CoerceAnomaly(field("anomaly"), hasAnomaly, deviation),
	}, nil
}

func optionalFloat(raw string, fallback float64) float64 {
	if raw == "" {
		return fallback
	}
	v, err := parseFloat(raw)
	if err != nil {
		return fallback
	}
	return v
}
