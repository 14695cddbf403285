// Command validate performs integrity checks on a building telemetry
// dataset before it is shipped to a server deployment. It verifies format
// parity between the CSV and parquet renditions, recomputes derived
// columns, and checks the field constraints the analytics layer relies on.
//
// Usage:
//
//	go run ./cmd/validate -data data/telemetry
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/eltarotassadar/lct-hack-zhkh/internal/domain"
	"github.com/eltarotassadar/lct-hack-zhkh/internal/telemetry"
)

func main() {
	data := flag.String("data", "", "telemetry dataset stem (<stem>.csv / <stem>.parquet)")
	flag.Parse()

	if *data == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*data); code != 0 {
		os.Exit(code)
	}
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func run(stem string) int {
	fmt.Println("=== Telemetry Dataset Validation ===")
	fmt.Println()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	store, err := telemetry.Open(stem, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load dataset: %v\n", err)
		return 1
	}
	records := store.Records("", 0)

	phases := []*phase{
		validateFormatParity(stem, records),
		validateDerivedColumns(records),
		validateAnomalyIdentity(records),
		validateFieldConstraints(records),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d rows, %d years, %d buildings\n",
		store.Len(), len(store.Years()), countBuildings(records))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Format Parity ──
// When both renditions exist, the CSV must agree row-for-row with whatever
// the store loaded (the parquet file wins at load time).

func validateFormatParity(stem string, records []domain.TelemetryRecord) *phase {
	p := &phase{name: "Phase 1: Format Parity (CSV vs parquet)"}

	if _, err := os.Stat(stem + ".csv"); err != nil {
		fmt.Println("  Note: single-format dataset, parity check skipped")
		return p
	}
	if _, err := os.Stat(stem + ".parquet"); err != nil {
		fmt.Println("  Note: single-format dataset, parity check skipped")
		return p
	}

	csvRows, err := loadCSVReadings(stem + ".csv")
	if err != nil {
		p.errorf("read CSV rendition: %v", err)
		return p
	}

	if len(csvRows) != len(records) {
		p.errorf("row count: CSV has %d rows, parquet has %d", len(csvRows), len(records))
	}

	loaded := map[string]domain.TelemetryRecord{}
	for _, r := range records {
		loaded[readingKey(r.MkdID, r.Date.Format("2006-01-02"), r.OdpuID)] = r
	}

	for _, row := range csvRows {
		rec, ok := loaded[row.key]
		if !ok {
			p.errorf("CSV line %d: reading %s not present in parquet", row.lineNum, row.key)
			continue
		}
		if !floatEq(row.cold, rec.ColdIntake) {
			p.errorf("CSV line %d: itp_cold_water: CSV=%g, parquet=%g", row.lineNum, row.cold, rec.ColdIntake)
		}
		if !floatEq(row.hot, rec.HotOutput) {
			p.errorf("CSV line %d: odpu_hot_water: CSV=%g, parquet=%g", row.lineNum, row.hot, rec.HotOutput)
		}
	}
	return p
}

// csvReading is the comparison subset of one CSV row.
type csvReading struct {
	lineNum int
	key     string
	cold    float64
	hot     float64
}

func readingKey(mkdID, date, odpuID string) string {
	return mkdID + "|" + date + "|" + odpuID
}

func loadCSVReadings(path string) ([]csvReading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	colIdx := map[string]int{}
	for i, h := range header {
		colIdx[strings.TrimSpace(h)] = i
	}

	get := func(row []string, col string) string {
		i, ok := colIdx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var rows []csvReading
	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		line++

		cold, _ := strconv.ParseFloat(get(row, "itp_cold_water"), 64)
		hot, _ := strconv.ParseFloat(get(row, "odpu_hot_water"), 64)
		rows = append(rows, csvReading{
			lineNum: line,
			key:     readingKey(get(row, "mkd_id"), get(row, "date"), get(row, "odpu_id")),
			cold:    cold,
			hot:     hot,
		})
	}
	return rows, nil
}

// ── Phase 2: Derived Columns ──
// The stored deviation ratio must match what the server would recompute
// from the raw volumes. Rounded source columns get a small tolerance.

func validateDerivedColumns(records []domain.TelemetryRecord) *phase {
	p := &phase{name: "Phase 2: Derived Columns (deviation)"}
	for i := range records {
		r := &records[i]
		expected := domain.DeviationRatio(r.ColdIntake, r.HotOutput)
		if math.Abs(expected-r.DeviationRatio) > 1e-3 {
			p.errorf("row %d (%s %s): deviation_ratio %g, recomputed %g",
				i, r.MkdID, r.Date.Format("2006-01-02"), r.DeviationRatio, expected)
		}
		if r.DeviationRatio > domain.AnomalyDeviationThreshold && !r.Anomaly {
			p.errorf("row %d (%s %s): deviation %g over threshold but not flagged anomalous",
				i, r.MkdID, r.Date.Format("2006-01-02"), r.DeviationRatio)
		}
	}
	return p
}

// ── Phase 3: Anomaly Identity ──
// Anomaly IDs key the feedback ledger; two readings sharing an ID would
// silently merge their review history.

func validateAnomalyIdentity(records []domain.TelemetryRecord) *phase {
	p := &phase{name: "Phase 3: Anomaly Identity (ID collisions)"}

	seen := map[string]string{}
	for i := range records {
		r := &records[i]
		id := domain.AnomalyID(r.MkdID, r.Date, r.OdpuID)
		key := readingKey(r.MkdID, r.Date.Format("2006-01-02"), r.OdpuID)
		if prev, ok := seen[id]; ok && prev != key {
			p.errorf("ID %s: collision between %s and %s", id, prev, key)
			continue
		}
		seen[id] = key
	}
	return p
}

// ── Phase 4: Field Constraints ──
// Values the analytics and geo layers assume without re-checking.

func validateFieldConstraints(records []domain.TelemetryRecord) *phase {
	p := &phase{name: "Phase 4: Field Constraints"}
	for i := range records {
		checkRecord(p, i, &records[i])
	}
	return p
}

func checkRecord(p *phase, i int, r *domain.TelemetryRecord) {
	pf := func(format string, args ...any) {
		p.errorf("row %d (%s): "+format, append([]any{i, r.MkdID}, args...)...)
	}

	if r.MkdID == "" {
		pf("mkd_id is empty")
	}
	if r.ItpID == "" {
		pf("itp_id is empty")
	}
	if r.OdpuID == "" {
		pf("odpu_id is empty")
	}
	if r.Date.IsZero() {
		pf("date is zero")
	}
	if r.ColdIntake < 0 {
		pf("itp_cold_water %g is negative", r.ColdIntake)
	}
	if r.HotOutput < 0 {
		pf("odpu_hot_water %g is negative", r.HotOutput)
	}
	if r.MkdLat < -90 || r.MkdLat > 90 {
		pf("mkd_lat %g out of range", r.MkdLat)
	}
	if r.MkdLon < -180 || r.MkdLon > 180 {
		pf("mkd_lon %g out of range", r.MkdLon)
	}
}

func countBuildings(records []domain.TelemetryRecord) int {
	seen := map[string]struct{}{}
	for i := range records {
		seen[records[i].MkdID] = struct{}{}
	}
	return len(seen)
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}
