package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeviationRatio(t *testing.T) {
	tests := []struct {
		name     string
		cold     float64
		hot      float64
		expected float64
	}{
		{"thirty percent gap", 100, 70, 0.30},
		{"output above intake", 80, 100, 0.25},
		{"balanced", 50, 50, 0},
		{"zero intake", 0, 42, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, DeviationRatio(tt.cold, tt.hot), 1e-9)
		})
	}
}

func TestCoerceAnomaly(t *testing.T) {
	tests := []struct {
		name        string
		explicit    string
		hasExplicit bool
		deviation   float64
		expected    bool
	}{
		{"derived above threshold", "", false, 0.11, true},
		{"derived at threshold", "", false, 0.10, false},
		{"derived below threshold", "", false, 0.05, false},
		{"explicit true", "true", true, 0.02, true},
		{"explicit TRUE mixed case", " TRUE ", true, 0.02, true},
		{"explicit yes", "yes", true, 0.0, true},
		{"explicit y", "Y", true, 0.0, true},
		{"explicit one", "1", true, 0.0, true},
		{"explicit false below threshold", "false", true, 0.02, false},
		{"explicit false cannot hide deviation", "false", true, 0.30, true},
		{"explicit garbage", "maybe", true, 0.02, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CoerceAnomaly(tt.explicit, tt.hasExplicit, tt.deviation))
		})
	}
}

func TestAnomalyID(t *testing.T) {
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("known digest", func(t *testing.T) {
		// First 12 hex chars of sha1("B1-20240601-M1").
		assert.Equal(t, "f2132c7c12da", AnomalyID("B1", date, "M1"))
	})

	t.Run("stable across calls", func(t *testing.T) {
		assert.Equal(t, AnomalyID("B1", date, "M1"), AnomalyID("B1", date, "M1"))
	})

	t.Run("any input change changes the id", func(t *testing.T) {
		base := AnomalyID("B1", date, "M1")
		assert.NotEqual(t, base, AnomalyID("B2", date, "M1"))
		assert.NotEqual(t, base, AnomalyID("B1", date.AddDate(0, 0, 1), "M1"))
		assert.NotEqual(t, base, AnomalyID("B1", date, "M2"))
	})

	t.Run("time of day is ignored", func(t *testing.T) {
		noon := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
		assert.Equal(t, AnomalyID("B1", date, "M1"), AnomalyID("B1", noon, "M1"))
	})
}
