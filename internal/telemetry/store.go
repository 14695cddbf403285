// Package telemetry loads and serves the building telemetry dataset.
//
// The dataset is read once at startup and held immutable for the process
// lifetime; picking up new data requires a restart. That is a deliberate
// simplicity trade-off, not a cache-invalidation feature.
package telemetry

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eltarotassadar/lct-hack-zhkh/internal/domain"
)

// requiredColumns must all be present in the dataset; the process refuses to
// start without them.
var requiredColumns = []string{
	"mkd_id",
	"mkd_address",
	"itp_id",
	"itp_name",
	"odpu_id",
	"district",
	"date",
	"itp_cold_water",
	"odpu_hot_water",
	"deviation_ratio",
}

// Store is the process-wide telemetry table. Constructed once in main;
// read-only afterwards, so no locking is needed on the record slice.
type Store struct {
	records []domain.TelemetryRecord
	years   []int
	logger  *slog.Logger

	ctxOnce  sync.Once
	contexts map[string]domain.AnomalyContext
}

// Open loads the dataset at stem, trying <stem>.parquet first and falling
// back to <stem>.csv. Missing required columns are fatal.
func Open(stem string, logger *slog.Logger) (*Store, error) {
	records, source, err := loadRows(stem)
	if err != nil {
		return nil, err
	}

	s := &Store{records: records, logger: logger}
	s.years = distinctYears(records)
	logger.Info("telemetry dataset loaded", "source", source, "rows", len(records), "years", len(s.years))
	return s, nil
}

func loadRows(stem string) ([]domain.TelemetryRecord, string, error) {
	parquetPath := stem + ".parquet"
	csvPath := stem + ".csv"

	if _, err := os.Stat(parquetPath); err == nil {
		records, perr := readParquet(parquetPath)
		if perr == nil {
			return records, parquetPath, nil
		}
		if _, serr := os.Stat(csvPath); serr != nil {
			return nil, "", perr
		}
		// A readable CSV shadows a corrupt parquet file.
		records, cerr := readCSV(csvPath)
		if cerr != nil {
			return nil, "", cerr
		}
		return records, csvPath, nil
	}

	if _, err := os.Stat(csvPath); err == nil {
		records, cerr := readCSV(csvPath)
		if cerr != nil {
			return nil, "", cerr
		}
		return records, csvPath, nil
	}

	return nil, "", fmt.Errorf("telemetry dataset missing at %s(.csv|.parquet)", stem)
}

// Len returns the number of telemetry rows.
func (s *Store) Len() int {
	return len(s.records)
}

// Years returns the distinct reporting years present in the dataset, sorted
// ascending.
func (s *Store) Years() []int {
	out := make([]int, len(s.years))
	copy(out, s.years)
	return out
}

// Records returns the rows matching the given filters. An empty mkdID or a
// zero year means "no filter". The returned slice is a copy in date order.
func (s *Store) Records(mkdID string, year int) []domain.TelemetryRecord {
	var out []domain.TelemetryRecord
	for _, r := range s.records {
		if mkdID != "" && r.MkdID != mkdID {
			continue
		}
		if year != 0 && r.Date.Year() != year {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// ResolveAnomaly maps an anomaly ID back to its telemetry context. The map
// is built once, on first use, and covers every row in the dataset so that
// feedback submissions can be validated without a separate datastore.
func (s *Store) ResolveAnomaly(id string) (domain.AnomalyContext, bool) {
	s.ctxOnce.Do(func() {
		s.contexts = make(map[string]domain.AnomalyContext, len(s.records))
		for _, r := range s.records {
			anomalyID := domain.AnomalyID(r.MkdID, r.Date, r.OdpuID)
			s.contexts[anomalyID] = domain.AnomalyContext{
				MkdID:      r.MkdID,
				MkdAddress: r.MkdAddress,
				ItpID:      r.ItpID,
				OdpuID:     r.OdpuID,
				District:   r.District,
				Date:       r.Date.Format("2006-01-02"),
			}
		}
	})
	ctx, ok := s.contexts[id]
	return ctx, ok
}

func distinctYears(records []domain.TelemetryRecord) []int {
	seen := make(map[int]struct{})
	for _, r := range records {
		seen[r.Date.Year()] = struct{}{}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// missingColumnsError formats the fatal DataIntegrity error for an
// incomplete dataset, naming the absent columns in sorted order.
func missingColumnsError(present map[string]struct{}) error {
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("telemetry dataset missing columns: %s", strings.Join(missing, ", "))
}

// dateFormats accepted for the date column, most common first.
var dateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

func parseFloat(raw string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}
