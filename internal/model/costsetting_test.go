package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyMultiplier(t *testing.T) {
	setting := CostSetting{BaseValue: 1.5, Multiplier: 2, IsEnabled: true}
	assert.Equal(t, 3.0, setting.ApplyMultiplier())

	setting.IsEnabled = false
	assert.Zero(t, setting.ApplyMultiplier())
}

func TestTouchNormalizesToUTC(t *testing.T) {
	zone := time.FixedZone("CEST", 2*60*60)
	now := time.Date(2026, 6, 15, 14, 30, 0, 0, zone)

	var setting CostSetting
	setting.Touch(now)
	assert.Equal(t, time.UTC, setting.LastUpdated.Location())
	assert.True(t, setting.LastUpdated.Equal(now))
}

func TestCostBreakdownSumAndValidate(t *testing.T) {
	breakdown := CostBreakdown{
		BaseCosts:     map[string]float64{"Insurance": 50},
		VariableCosts: map[string]float64{"Fuel": 750, "Driver": 248.5},
		CargoSpecificCosts: map[string]map[string]float64{
			"cargo-1": {"handling": 60, "weight": 600},
		},
	}
	require.InDelta(t, 1708.5, breakdown.Sum(), 0.0001)

	breakdown.TotalCost = breakdown.Sum()
	assert.NoError(t, breakdown.Validate())

	// Within tolerance still passes.
	breakdown.TotalCost = breakdown.Sum() + 0.009
	assert.NoError(t, breakdown.Validate())

	breakdown.TotalCost = breakdown.Sum() + 1
	assert.Error(t, breakdown.Validate())
}
