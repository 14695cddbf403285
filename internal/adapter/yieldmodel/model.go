// Package yieldmodel scores sampling nodes with regression weights exported
// from the training pipeline.
package yieldmodel

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"

	"github.com/eltarotassadar/lct-hack-zhkh/internal/geo"
)

// weightsFile is the on-disk deployment format: a linear head over the
// phase feature columns plus a per-sample embedding scalar.
type weightsFile struct {
	Bias         float64            `json:"bias"`
	Coefficients map[string]float64 `json:"coefficients"`
	Samples      []sampleWeight     `json:"samples"`
}

type sampleWeight struct {
	Sample    string  `json:"sample"`
	Embedding float64 `json:"embedding"`
}

// Model implements geo.YieldScorer.
type Model struct {
	bias         float64
	coefficients map[string]float64
	samples      []sampleWeight
	logger       *slog.Logger
}

// Load reads exported weights from path. A missing or malformed file is an
// error; callers decide whether to run without a scorer.
func Load(path string, logger *slog.Logger) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model weights: %w", err)
	}
	var weights weightsFile
	if err := json.Unmarshal(raw, &weights); err != nil {
		return nil, fmt.Errorf("parse model weights: %w", err)
	}
	if len(weights.Samples) == 0 {
		return nil, fmt.Errorf("model weights at %s carry no samples", path)
	}
	logger.Info("yield model loaded", "path", path, "samples", len(weights.Samples))
	return &Model{
		bias:         weights.Bias,
		coefficients: weights.Coefficients,
		samples:      weights.Samples,
	}, nil
}

// PredictYield scores every sample for the year using the phase features
// derived from raw hourly weather. Feature columns absent from the payload
// contribute zero, matching how the model was trained on sparse seasons.
// Empty weather yields an empty ranking without error.
func (m *Model) PredictYield(year int, payload geo.HourlyPayload) ([]geo.YieldScore, error) {
	features := geo.PhaseFeatures(payload)
	if len(features) == 0 {
		return nil, nil
	}

	values := map[string]float64{}
	for _, row := range features {
		if row.Year == year {
			values = row.Values
			break
		}
	}

	scores := make([]geo.YieldScore, 0, len(m.samples))
	for _, sample := range m.samples {
		score := m.bias +
			m.coefficients["year"]*float64(year) +
			m.coefficients["embeddings"]*sample.Embedding
		for column, coefficient := range m.coefficients {
			if column == "year" || column == "embeddings" {
				continue
			}
			score += coefficient * values[column]
		}
		scores = append(scores, geo.YieldScore{
			Sample: sample.Sample,
			Yield:  math.Round(score*100) / 100,
		})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Yield > scores[j].Yield })
	return scores, nil
}
