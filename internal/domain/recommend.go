package domain

import (
	"math"
	"sort"
)

// Confidence bounds for remediation actions.
const (
	minConfidence = 0.15
	maxConfidence = 0.95
)

// Factor is one contributing factor behind a recommended action.
type Factor struct {
	ID     string
	Label  string
	Impact float64
}

// FactorDefinition describes a factor for the frontend's toggle catalog.
type FactorDefinition struct {
	ID          string
	Label       string
	Description string
}

// factorCatalog is the fixed factor set, in display order. The first two are
// computed from telemetry; the last two are seeded qualitative signals that
// stand in for data not present in the raw readings.
var factorCatalog = []FactorDefinition{
	{ID: "deviation_trend", Label: "Deviation trend", Description: "Change in the ITP vs ODDP gap over the latest periods"},
	{ID: "supply_ratio", Label: "Supply balance", Description: "Ratio between cold-water feed and hot-water output"},
	{ID: "dispatcher_feedback", Label: "Dispatcher feedback", Description: "Recent operator actions on similar incidents"},
	{ID: "weather_context", Label: "Weather factors", Description: "Temperature and precipitation drivers affecting consumption"},
}

// FactorCatalog returns the factor definitions in display order.
func FactorCatalog() []FactorDefinition {
	out := make([]FactorDefinition, len(factorCatalog))
	copy(out, factorCatalog)
	return out
}

func factorLabel(id string) string {
	for _, def := range factorCatalog {
		if def.ID == id {
			return def.Label
		}
	}
	return id
}

// Action is one remediation recommendation with its confidence and
// contributing-factor breakdown.
type Action struct {
	Code        string
	Description string
	Confidence  float64
	Factors     []Factor
}

// actionCatalog pairs each remediation code with its base confidence weight.
var actionCatalog = []struct {
	code        string
	description string
	base        float64
}{
	{"communication", "Verify RTU connectivity", 0.62},
	{"hydraulics", "Capture pressure checkpoints", 0.54},
	{"inspection", "Schedule riser inspection", 0.71},
	{"metering", "Reconcile ODDP and apartment meters", 0.48},
}

// Recommend synthesizes the ranked remediation actions for one building and
// year. Records must be in date order; the recent-deviation signal is the
// mean of the last three observations. The seeded generator makes the output
// reproducible per (building, year); the draw order (confidence jitter, then
// dispatcher weight, then weather weight, per action) is load-bearing and
// must not change.
func Recommend(records []TelemetryRecord, mkdID string, year int) []Action {
	rng := NewSyntheticRand(RecommendationSeed(mkdID, year))

	var recent float64
	if n := len(records); n > 0 {
		tail := records
		if n > 3 {
			tail = records[n-3:]
		}
		for _, r := range tail {
			recent += r.DeviationRatio
		}
		recent /= float64(len(tail))
	}

	var coldTotal, hotTotal float64
	for _, r := range records {
		coldTotal += r.ColdIntake
		hotTotal += r.HotOutput
	}
	supplyRatio := hotTotal / math.Max(coldTotal, 1)

	actions := make([]Action, 0, len(actionCatalog))
	for _, item := range actionCatalog {
		confidence := clip(item.base+recent*rng.Uniform(0.8, 1.6), minConfidence, maxConfidence)
		factors := []Factor{
			{ID: "deviation_trend", Label: factorLabel("deviation_trend"), Impact: round1(recent * 100)},
			{ID: "supply_ratio", Label: factorLabel("supply_ratio"), Impact: round1(supplyRatio * 100)},
			{ID: "dispatcher_feedback", Label: factorLabel("dispatcher_feedback"), Impact: round1(rng.Uniform(5, 35))},
			{ID: "weather_context", Label: factorLabel("weather_context"), Impact: round1(rng.Uniform(0, 25))},
		}
		actions = append(actions, Action{
			Code:        item.code,
			Description: item.description,
			Confidence:  round2(confidence),
			Factors:     factors,
		})
	}
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Confidence > actions[j].Confidence
	})
	return actions
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
