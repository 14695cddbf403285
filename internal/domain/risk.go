package domain

import (
	"sort"
	"time"
)

// Risk index bounds. The map frontend renders 60 as the calmest tier and
// 180 as the hottest; scores outside the band are clipped, never dropped.
const (
	MinRiskIndex = 60
	MaxRiskIndex = 180
)

// BuildingSummary aggregates one building's telemetry for one reporting
// period. It is recomputed on every request and never persisted.
type BuildingSummary struct {
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

	RiskIndex    float64
	MaxDeviation float64
	AnomalyRate  float64
	AnomalyCount int
	SupplyRatio  float64
	UpdatedAt    time.Time
}

// BuildSummary scores one group of telemetry records. All records are
// expected to belong to the same building; identifiers are taken from the
// first record. An empty slice yields the zero summary.
func BuildSummary(records []TelemetryRecord) BuildingSummary {
	if len(records) == 0 {
		return BuildingSummary{}
	}

	first := records[0]
	s := BuildingSummary{
		MkdID:      first.MkdID,
		MkdAddress: first.MkdAddress,
		MkdLat:     first.MkdLat,
		MkdLon:     first.MkdLon,
		ItpID:      first.ItpID,
		ItpName:    first.ItpName,
		ItpLat:     first.ItpLat,
		ItpLon:     first.ItpLon,
		OdpuID:     first.OdpuID,
		District:   first.District,
		UpdatedAt:  Now(),
	}

	var coldTotal, hotTotal float64
	for _, r := range records {
		if r.Anomaly {
			s.AnomalyCount++
		}
		if r.DeviationRatio > s.MaxDeviation {
			s.MaxDeviation = r.DeviationRatio
		}
		coldTotal += r.ColdIntake
		hotTotal += r.HotOutput
	}
	s.AnomalyRate = float64(s.AnomalyCount) / float64(len(records))
	if coldTotal != 0 {
		s.SupplyRatio = hotTotal / coldTotal
	}

	risk := s.AnomalyRate*65 + s.MaxDeviation*120 + (1-s.SupplyRatio)*40 + 45
	s.RiskIndex = clip(risk, MinRiskIndex, MaxRiskIndex)
	return s
}

// SummarizeBuildings groups records by building ID, scores each group, and
// returns the summaries sorted by risk index descending. The ordering is a
// presentation contract: dashboards list the riskiest buildings first.
func SummarizeBuildings(records []TelemetryRecord) []BuildingSummary {
	groups := make(map[string][]TelemetryRecord)
	order := make([]string, 0)
	for _, r := range records {
		if _, seen := groups[r.MkdID]; !seen {
			order = append(order, r.MkdID)
		}
		groups[r.MkdID] = append(groups[r.MkdID], r)
	}

	summaries := make([]BuildingSummary, 0, len(order))
	for _, id := range order {
		summaries = append(summaries, BuildSummary(groups[id]))
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].RiskIndex > summaries[j].RiskIndex
	})
	return summaries
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
