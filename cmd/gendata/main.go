// Command gendata generates a synthetic building telemetry dataset for
// local development and the test suites. Draws are seeded per building, so
// the same flags always reproduce the same dataset, and the output goes
// through the same column schema the server loads at startup.
//
// Usage:
//
//	go run ./cmd/gendata -out data/telemetry -buildings 40 -year 2024
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/eltarotassadar/lct-hack-zhkh/internal/domain"
)

// districts cycle across generated buildings so filters and exports have
// something to group by.
var districts = []string{
	"Центральный",
	"Южный",
	"Северный",
	"Восточный",
	"Западный",
}

var streets = []string{
	"ул. Водопроводная",
	"ул. Насосная",
	"пр-т Тепловой",
	"ул. Магистральная",
	"пер. Котельный",
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output stem; writes <stem>.csv and <stem>.parquet")
	buildings := flag.Int("buildings", 40, "number of buildings to generate")
	days := flag.Int("days", 120, "number of daily readings per building")
	year := flag.Int("year", 2024, "reporting year for the generated readings")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *buildings < 1 || *days < 1 {
		return fmt.Errorf("buildings and days must be positive")
	}

	records := generate(*buildings, *days, *year)
	log.Printf("generated %d rows for %d buildings", len(records), *buildings)

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	if err := writeCSV(*out+".csv", records); err != nil {
		return fmt.Errorf("writing CSV dataset: %w", err)
	}
	log.Printf("wrote %s.csv", *out)

	if err := writeParquet(*out+".parquet", records); err != nil {
		return fmt.Errorf("writing parquet dataset: %w", err)
	}
	log.Printf("wrote %s.parquet", *out)

	printStats(records)
	return nil
}

// generate draws daily readings per building. Each building has a stable
// consumption base; a handful of days get an injected imbalance so the
// anomaly paths always have material to work with.
func generate(buildings, days, year int) []domain.TelemetryRecord {
	start := time.Date(year, time.January, 10, 0, 0, 0, 0, time.UTC)
	records := make([]domain.TelemetryRecord, 0, buildings*days)

	for b := 0; b < buildings; b++ {
		mkdID := fmt.Sprintf("MKD-%03d", b+1)
		rng := domain.NewSyntheticRand(domain.RecommendationSeed(mkdID, year))

		street := streets[b%len(streets)]
		district := districts[b%len(districts)]
		address := fmt.Sprintf("%s, д. %d", street, 2+b)
		lat := domain.DefaultLat + rng.Uniform(-0.12, 0.12)
		lon := domain.DefaultLon + rng.Uniform(-0.2, 0.2)

		itpID := fmt.Sprintf("ITP-%03d", b+1)
		odpuID := fmt.Sprintf("ODPU-%03d", b+1)
		baseCold := rng.Uniform(80, 160)

		for d := 0; d < days; d++ {
			cold := baseCold + rng.Uniform(-8, 8)
			loss := rng.Uniform(0.01, 0.08)
			if rng.Normalised() > 0.88 {
				// Injected imbalance day.
				loss = rng.Uniform(0.12, 0.45)
			}
			hot := cold * (1 - loss)

			deviation := domain.DeviationRatio(cold, hot)
			records = append(records, domain.TelemetryRecord{
				MkdID:          mkdID,
				MkdAddress:     address,
				MkdLat:         lat,
				MkdLon:         lon,
				ItpID:          itpID,
				ItpName:        fmt.Sprintf("ИТП %s", address),
				ItpLat:         lat,
				ItpLon:         lon,
				OdpuID:         odpuID,
				District:       district,
				Date:           start.AddDate(0, 0, d),
				ColdIntake:     round2(cold),
				HotOutput:      round2(hot),
				DeviationRatio: round4(deviation),
				Anomaly:        deviation > domain.AnomalyDeviationThreshold,
			})
		}
	}
	return records
}

var csvHeader = []string{
	"mkd_id", "mkd_address", "itp_id", "itp_name", "odpu_id", "district",
	"date", "itp_cold_water", "odpu_hot_water", "deviation_ratio",
	"mkd_lat", "mkd_lon",
}

func writeCSV(path string, records []domain.TelemetryRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.MkdID, r.MkdAddress, r.ItpID, r.ItpName, r.OdpuID, r.District,
			r.Date.Format("2006-01-02"),
			trimFloat(r.ColdIntake),
			trimFloat(r.HotOutput),
			trimFloat(r.DeviationRatio),
			trimFloat(r.MkdLat),
			trimFloat(r.MkdLon),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// datasetRow carries the parquet column schema; it mirrors what the server's
// loader expects to find.
type datasetRow struct {
	MkdID          string    `parquet:"mkd_id"`
	MkdAddress     string    `parquet:"mkd_address"`
	MkdLat         float64   `parquet:"mkd_lat"`
	MkdLon         float64   `parquet:"mkd_lon"`
	ItpID          string    `parquet:"itp_id"`
	ItpName        string    `parquet:"itp_name"`
	ItpLat         float64   `parquet:"itp_lat"`
	ItpLon         float64   `parquet:"itp_lon"`
	OdpuID         string    `parquet:"odpu_id"`
	District       string    `parquet:"district"`
	Date           time.Time `parquet:"date"`
	ColdIntake     float64   `parquet:"itp_cold_water"`
	HotOutput      float64   `parquet:"odpu_hot_water"`
	DeviationRatio float64   `parquet:"deviation_ratio"`
}

func writeParquet(path string, records []domain.TelemetryRecord) error {
	rows := make([]datasetRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, datasetRow{
			MkdID:          r.MkdID,
			MkdAddress:     r.MkdAddress,
			MkdLat:         r.MkdLat,
			MkdLon:         r.MkdLon,
			ItpID:          r.ItpID,
			ItpName:        r.ItpName,
			ItpLat:         r.ItpLat,
			ItpLon:         r.ItpLon,
			OdpuID:         r.OdpuID,
			District:       r.District,
			Date:           r.Date,
			ColdIntake:     r.ColdIntake,
			HotOutput:      r.HotOutput,
			DeviationRatio: r.DeviationRatio,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := parquet.Write(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printStats(records []domain.TelemetryRecord) {
	districtCounts := map[string]int{}
	var anomalies int
	var maxDeviation float64
	for i := range records {
		r := &records[i]
		districtCounts[r.District]++
		if r.Anomaly {
			anomalies++
		}
		if r.DeviationRatio > maxDeviation {
			maxDeviation = r.DeviationRatio
		}
	}

	fmt.Println("\n=== Dataset stats ===")
	fmt.Printf("Total rows: %d\n", len(records))
	fmt.Printf("Anomalous rows: %d (%.1f%%)\n", anomalies, 100*float64(anomalies)/float64(len(records)))
	fmt.Printf("Max deviation: %.1f%%\n", maxDeviation*100)
	for _, d := range districts {
		if n := districtCounts[d]; n > 0 {
			fmt.Printf("  %s: %d\n", d, n)
		}
	}
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

func round4(v float64) float64 {
	return float64(int(v*10000+0.5)) / 10000
}
