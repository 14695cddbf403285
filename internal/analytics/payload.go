package analytics

import (
	"math"
	"sort"

	"github.com/eltarotassadar/lct-hack-zhkh/internal/domain"
	"github.com/eltarotassadar/lct-hack-zhkh/internal/geo"
)

// SummaryPayload is the building card rendered on the map and in lists.
// Deviation and anomaly rate are exposed as percentages.
type SummaryPayload struct {
	MkdID        string  `json:"mkdId"`
	MkdAddress   string  `json:"mkdAddress"`
	MkdLat       float64 `json:"mkdLat"`
	MkdLon       float64 `json:"mkdLon"`
	ItpID        string  `json:"itpId"`
	ItpName      string  `json:"itpName"`
	ItpLat       float64 `json:"itpLat"`
	ItpLon       float64 `json:"itpLon"`
	OdpuID       string  `json:"odpuId"`
	District     string  `json:"district"`
	RiskIndex    float64 `json:"riskIndex"`
	MaxDeviation float64 `json:"maxDeviation"`
	AnomalyRate  float64 `json:"anomalyRate"`
	AnomalyCount int     `json:"anomalyCount"`
	SupplyRatio  float64 `json:"supplyRatio"`
	UpdatedAt    string  `json:"updatedAt"`
}

// TimeSeriesPayload carries the chart series. Labels are epoch
// milliseconds.
type TimeSeriesPayload struct {
	Labels           []int64   `json:"labels"`
	ItpCold          []float64 `json:"itpCold"`
	OdpuHot          []float64 `json:"odpuHot"`
	DeviationPercent []float64 `json:"deviationPercent"`
}

// AnomalyPayload is one anomalous reading joined with dispatcher feedback.
// Comment and updatedAt are null until feedback lands.
type AnomalyPayload struct {
	ID               string  `json:"id"`
	Date             string  `json:"date"`
	DeviationPercent float64 `json:"deviationPercent"`
	ItpCold          float64 `json:"itpCold"`
	OdpuHot          float64 `json:"odpuHot"`
	Status           string  `json:"status"`
	Comment          *string `json:"comment"`
	UpdatedAt        *string `json:"updatedAt"`
}

// FactorPayload is one weighted driver behind a recommendation.
type FactorPayload struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Impact float64 `json:"impact"`
}

// ActionPayload is one remediation recommendation.
type ActionPayload struct {
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Confidence  float64         `json:"confidence"`
	Factors     []FactorPayload `json:"factors"`
}

// FactorDefinitionPayload describes a factor for the frontend toggles.
type FactorDefinitionPayload struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// AnalyticsPayload is the drill-down block of the building bundle.
type AnalyticsPayload struct {
	MkdID            string                    `json:"mkdId"`
	MkdAddress       string                    `json:"mkdAddress"`
	ItpID            string                    `json:"itpId"`
	OdpuID           string                    `json:"odpuId"`
	MkdLat           float64                   `json:"mkdLat"`
	MkdLon           float64                   `json:"mkdLon"`
	Anomalies        []AnomalyPayload          `json:"anomalies"`
	FactorCatalog    []FactorDefinitionPayload `json:"factorCatalog"`
	AnomalyShare     float64                   `json:"anomalyShare"`
	MedianDeviation  float64                   `json:"medianDeviation"`
	AverageDeviation float64                   `json:"averageDeviation"`
}

// Bundle is the full per-building response. Weather is attached by the
// HTTP layer when the caller asks for it and the archive API cooperates.
type Bundle struct {
	Summary         SummaryPayload     `json:"summary"`
	Telemetry       TimeSeriesPayload  `json:"telemetry"`
	Recommendations []ActionPayload    `json:"recommendations"`
	Analytics       AnalyticsPayload   `json:"analytics"`
	Weather         *geo.WeatherSeries `json:"weather,omitempty"`
}

// FeedbackResult confirms a registered verdict.
type FeedbackResult struct {
	ID        string  `json:"id"`
	Status    string  `json:"status"`
	Comment   *string `json:"comment"`
	UpdatedAt string  `json:"updatedAt"`
}

func summaryPayload(s domain.BuildingSummary) SummaryPayload {
	return SummaryPayload{
		MkdID:        s.MkdID,
		MkdAddress:   s.MkdAddress,
		MkdLat:       roundTo(s.MkdLat, 6),
		MkdLon:       roundTo(s.MkdLon, 6),
		ItpID:        s.ItpID,
		ItpName:      s.ItpName,
		ItpLat:       roundTo(s.ItpLat, 6),
		ItpLon:       roundTo(s.ItpLon, 6),
		OdpuID:       s.OdpuID,
		District:     s.District,
		RiskIndex:    roundTo(s.RiskIndex, 2),
		MaxDeviation: roundTo(s.MaxDeviation*100, 2),
		AnomalyRate:  roundTo(s.AnomalyRate*100, 1),
		AnomalyCount: s.AnomalyCount,
		SupplyRatio:  roundTo(s.SupplyRatio, 3),
		UpdatedAt:    s.UpdatedAt.UTC().Format("2006-01-02T15:04:05") + "Z",
	}
}

func timeSeriesPayload(records []domain.TelemetryRecord) TimeSeriesPayload {
	series := TimeSeriesPayload{
		Labels:           make([]int64, 0, len(records)),
		ItpCold:          make([]float64, 0, len(records)),
		OdpuHot:          make([]float64, 0, len(records)),
		DeviationPercent: make([]float64, 0, len(records)),
	}
	for _, record := range records {
		series.Labels = append(series.Labels, record.Date.UnixMilli())
		series.ItpCold = append(series.ItpCold, roundTo(record.ColdIntake, 2))
		series.OdpuHot = append(series.OdpuHot, roundTo(record.HotOutput, 2))
		series.DeviationPercent = append(series.DeviationPercent, roundTo(record.DeviationRatio*100, 2))
	}
	return series
}

func actionPayloads(actions []domain.Action) []ActionPayload {
	payloads := make([]ActionPayload, 0, len(actions))
	for _, action := range actions {
		factors := make([]FactorPayload, 0, len(action.Factors))
		for _, factor := range action.Factors {
			factors = append(factors, FactorPayload{
				ID:     factor.ID,
				Label:  factor.Label,
				Impact: factor.Impact,
			})
		}
		payloads = append(payloads, ActionPayload{
			Code:        action.Code,
			Description: action.Description,
			Confidence:  action.Confidence,
			Factors:     factors,
		})
	}
	return payloads
}

func factorCatalogPayload() []FactorDefinitionPayload {
	definitions := domain.FactorCatalog()
	payloads := make([]FactorDefinitionPayload, 0, len(definitions))
	for _, def := range definitions {
		payloads = append(payloads, FactorDefinitionPayload{
			ID:          def.ID,
			Label:       def.Label,
			Description: def.Description,
		})
	}
	return payloads
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func medianOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
