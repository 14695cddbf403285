package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"
)

// AnomalyDeviationThreshold is the deviation ratio above which a telemetry
// row is flagged anomalous when no explicit flag says otherwise.
const AnomalyDeviationThreshold = 0.10

// Default coordinates used when a dataset omits building geometry (central
// Moscow, matching the map frontend's initial viewport).
const (
	DefaultLat = 55.75
	DefaultLon = 37.61
)

// TelemetryRecord is one telemetry row: cold-water intake at the ITP vs
// hot-water output at the ODPU for one building on one date. Records are
// immutable after load.
type TelemetryRecord struct {
	MkdID      string
	MkdAddress string
	MkdLat     float64
	MkdLon     float64
	ItpID      string
	ItpName    string
	ItpLat     float64
	ItpLon     float64
	OdpuID     string
	District   string
	Date       time.Time

	ColdIntake     float64 // itp_cold_water, m³
	HotOutput      float64 // odpu_hot_water, m³
	DeviationRatio float64
	Anomaly        bool
}

// DeviationRatio computes the normalized absolute gap between intake and
// output. A zero intake yields 0 rather than dividing by zero.
func DeviationRatio(cold, hot float64) float64 {
	if cold == 0 {
		return 0
	}
	return math.Abs(cold-hot) / cold
}

// truthy values accepted for an explicit anomaly column.
var truthyAnomaly = map[string]struct{}{
	"true": {}, "1": {}, "yes": {}, "y": {},
}

// CoerceAnomaly resolves the anomaly flag for a row. An explicit column value
// is coerced via case-insensitive truthy-string membership and OR-ed with the
// deviation threshold; without an explicit column the threshold alone decides.
func CoerceAnomaly(explicit string, hasExplicit bool, deviationRatio float64) bool {
	over := deviationRatio > AnomalyDeviationThreshold
	if !hasExplicit {
		return over
	}
	_, ok := truthyAnomaly[strings.ToLower(strings.TrimSpace(explicit))]
	return ok || over
}

// AnomalyID derives the stable identity of an anomalous reading: the first
// 12 hex characters of SHA-1("<mkd>-<YYYYMMDD>-<odpu>"). Identical inputs
// always produce identical IDs, so feedback attached to an anomaly survives
// dataset reprocessing.
func AnomalyID(mkdID string, date time.Time, odpuID string) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s-%s-%s", mkdID, date.Format("20060102"), odpuID)))
	return hex.EncodeToString(sum[:])[:12]
}

// AnomalyContext is the denormalized telemetry context behind an anomaly ID.
// It backs feedback validation: an ID that resolves to no context belongs to
// no real reading.
type AnomalyContext struct {
	MkdID      string
	MkdAddress string
	ItpID      string
	OdpuID     string
	District   string
	Date       string // YYYY-MM-DD
}
