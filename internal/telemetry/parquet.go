package telemetry

import (
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/eltarotassadar/lct-hack-zhkh/internal/domain"
)

// parquetRow mirrors the columnar dataset schema. Optional columns decode to
// zero values; schema inspection decides whether they were actually present.
type parquetRow struct {
	MkdID          string    `parquet:"mkd_id"`
	MkdAddress     string    `parquet:"mkd_address"`
	MkdLat         float64   `parquet:"mkd_lat,optional"`
	MkdLon         float64   `parquet:"mkd_lon,optional"`
	ItpID          string    `parquet:"itp_id"`
	ItpName        string    `parquet:"itp_name"`
	ItpLat         float64   `parquet:"itp_lat,optional"`
	ItpLon         float64   `parquet:"itp_lon,optional"`
	OdpuID         string    `parquet:"odpu_id"`
	District       string    `parquet:"district"`
	Date           time.Time `parquet:"date"`
	ColdIntake     float64   `parquet:"itp_cold_water"`
	HotOutput      float64   `parquet:"odpu_hot_water"`
	DeviationRatio float64   `parquet:"deviation_ratio"`
	Anomaly        string    `parquet:"anomaly,optional"`
}

// readParquet loads the preferred columnar format. The file schema is
// checked against the required column set before rows are decoded, so a
// truncated dataset fails with a descriptive error instead of a decode
// panic deep inside the reader.
func readParquet(path string) ([]domain.TelemetryRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry parquet: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat telemetry parquet: %w", err)
	}

	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("read telemetry parquet: %w", err)
	}

	present := make(map[string]struct{})
	for _, field := range pf.Schema().Fields() {
		present[field.Name()] = struct{}{}
	}
	if err := missingColumnsError(present); err != nil {
		return nil, err
	}
	_, hasAnomaly := present["anomaly"]
	_, hasMkdLat := present["mkd_lat"]
	_, hasMkdLon := present["mkd_lon"]
	_, hasItpLat := present["itp_lat"]
	_, hasItpLon := present["itp_lon"]

	rows, err := parquet.Read[parquetRow](f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("decode telemetry parquet: %w", err)
	}

	out := make([]domain.TelemetryRecord, 0, len(rows))
	for _, row := range rows {
		rec := domain.TelemetryRecord{
			MkdID:          row.MkdID,
			MkdAddress:     row.MkdAddress,
			MkdLat:         row.MkdLat,
			MkdLon:         row.MkdLon,
			ItpID:          row.ItpID,
			ItpName:        row.ItpName,
			ItpLat:         row.ItpLat,
			ItpLon:         row.ItpLon,
			OdpuID:         row.OdpuID,
			District:       row.District,
			Date:           row.Date.UTC(),
			ColdIntake:     row.ColdIntake,
			HotOutput:      row.HotOutput,
			DeviationRatio: row.DeviationRatio,
			Anomaly:        domain.CoerceAnomaly(row.Anomaly, hasAnomaly, row.DeviationRatio),
		}
		if !hasMkdLat {
			rec.MkdLat = domain.DefaultLat
		}
		if !hasMkdLon {
			rec.MkdLon = domain.DefaultLon
		}
		if !hasItpLat {
			rec.ItpLat = rec.MkdLat
		}
		if !hasItpLon {
			rec.ItpLon = rec.MkdLon
		}
		out = append(out, rec)
	}
	return out, nil
}
