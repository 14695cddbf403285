// Package feedback keeps dispatcher verdicts on anomalies and persists them
// to a flat CSV file keyed by anomaly ID.
package feedback

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/eltarotassadar/lct-hack-zhkh/internal/domain"
	"github.com/eltarotassadar/lct-hack-zhkh/internal/observability"
)

// fileHeader is the persisted column order. Changing it breaks files written
// by earlier builds.
var fileHeader = []string{
	"anomaly_id", "date", "mkd_id", "mkd_address", "itp_id",
	"odpu_id", "district", "status", "comment", "updated_at",
}

// clock is swapped in tests so registration timestamps are deterministic.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// ContextResolver validates anomaly IDs against real telemetry.
type ContextResolver interface {
	ResolveAnomaly(id string) (domain.AnomalyContext, bool)
}

// Ledger is the in-memory feedback registry backed by a flat file. All
// mutations hold the mutex across the full read-modify-write-persist
// sequence, so concurrent registrations cannot interleave a stale rewrite.
type Ledger struct {
	path     string
	resolver ContextResolver
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu      sync.Mutex
	entries map[string]domain.FeedbackEntry
}

// Open creates a ledger over the given file, loading any persisted entries.
// A missing or unreadable file is not an error: feedback is an overlay and
// the service must start without it. Malformed rows are dropped with a
// warning; rows with an unparseable timestamp keep their payload and fall
// back to the current time.
func Open(path string, resolver ContextResolver, logger *slog.Logger, metrics *observability.Metrics) *Ledger {
	l := &Ledger{
		path:     path,
		resolver: resolver,
		logger:   logger,
		metrics:  metrics,
		entries:  make(map[string]domain.FeedbackEntry),
	}
	l.load()
	metrics.FeedbackEntries.Set(float64(len(l.entries)))
	return l
}

func (l *Ledger) load() {
	f, err := os.Open(l.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("feedback file unreadable, starting empty", "path", l.path, "error", err)
		}
		return
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		l.logger.Warn("feedback file unparsable, starting empty", "path", l.path, "error", err)
		return
	}

	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == "anomaly_id" {
			continue
		}
		if len(row) != len(fileHeader) {
			l.logger.Warn("dropping malformed feedback row", "row", i+1, "fields", len(row))
			continue
		}
		updatedAt, err := time.Parse(time.RFC3339, row[9])
		if err != nil {
			updatedAt = clock.Now().UTC()
		}
		l.entries[row[0]] = domain.FeedbackEntry{
			AnomalyID: row[0],
			Status:    row[7],
			Comment:   row[8],
			UpdatedAt: updatedAt,
			Context: domain.AnomalyContext{
				Date:       row[1],
				MkdID:      row[2],
				MkdAddress: row[3],
				ItpID:      row[4],
				OdpuID:     row[5],
				District:   row[6],
			},
		}
	}
	l.logger.Info("feedback ledger loaded", "path", l.path, "entries", len(l.entries))
}

// Register upserts a dispatcher verdict. The status must be one of the
// accepted values and the anomaly ID must resolve to real telemetry. On
// success the full file is rewritten; low write volume makes the wholesale
// rewrite an acceptable price for a trivially correct file.
func (l *Ledger) Register(anomalyID, status, comment string) (domain.FeedbackEntry, error) {
	if !domain.ValidStatus(status) {
		return domain.FeedbackEntry{}, fmt.Errorf("unsupported status value: %w", domain.ErrInvalidInput)
	}
	ctx, ok := l.resolver.ResolveAnomaly(anomalyID)
	if !ok {
		return domain.FeedbackEntry{}, fmt.Errorf("unable to match anomaly with telemetry: %w", domain.ErrNotFound)
	}

	entry := domain.FeedbackEntry{
		AnomalyID: anomalyID,
		Status:    status,
		Comment:   strings.TrimSpace(comment),
		UpdatedAt: clock.Now().UTC().Truncate(time.Second),
		Context:   ctx,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[anomalyID] = entry
	if err := l.persistLocked(); err != nil {
		l.logger.Error("feedback persist failed", "path", l.path, "error", err)
	} else {
		l.metrics.FeedbackWrites.Inc()
	}
	l.metrics.FeedbackEntries.Set(float64(len(l.entries)))
	return entry, nil
}

// Get returns the entry for an anomaly ID, if any.
func (l *Ledger) Get(anomalyID string) (domain.FeedbackEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[anomalyID]
	return entry, ok
}

// Len returns the number of entries in the ledger.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// persistLocked rewrites the feedback file, sorted ascending by update
// timestamp. An empty registry removes the file instead of writing an
// empty one. Caller holds the mutex.
func (l *Ledger) persistLocked() error {
	if len(l.entries) == 0 {
		if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}

	entries := make([]domain.FeedbackEntry, 0, len(l.entries))
	for _, e := range l.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].UpdatedAt.Equal(entries[j].UpdatedAt) {
			return entries[i].AnomalyID < entries[j].AnomalyID
		}
		return entries[i].UpdatedAt.Before(entries[j].UpdatedAt)
	})

	f, err := os.Create(l.path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(fileHeader); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			e.AnomalyID,
			e.Context.Date,
			e.Context.MkdID,
			e.Context.MkdAddress,
			e.Context.ItpID,
			e.Context.OdpuID,
			e.Context.District,
			e.Status,
			e.Comment,
			e.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
