package model

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	CategoryBase          = "base"
	CategoryVariable      = "variable"
	CategoryCargoSpecific = "cargo-specific"
)

const (
	CostTypeFuel        = "fuel"
	CostTypeDriver      = "driver"
	CostTypeMaintenance = "maintenance"
	CostTypeTime        = "time"
	CostTypeWeight      = "weight"
	CostTypeVolume      = "volume"
	CostTypeHandling    = "handling"
	CostTypeInsurance   = "insurance"
	CostTypeOverhead    = "overhead"
	CostTypeToll        = "toll"
)

// CostSetting is one configurable pricing rule. Settings are never hard
// deleted, only disabled, so historical offers stay explainable.
type CostSetting struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
	BaseValue   float64   `json:"base_value"`
	Multiplier  float64   `json:"multiplier"`
	Currency    string    `json:"currency"`
	IsEnabled   bool      `json:"is_enabled"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// ApplyMultiplier returns the effective value of the setting: base value
// scaled by the multiplier when enabled, zero otherwise.
func (s *CostSetting) ApplyMultiplier() float64 {
	if !s.IsEnabled {
		return 0
	}
	return s.BaseValue * s.Multiplier
}

// Touch refreshes LastUpdated; call on every mutation.
func (s *CostSetting) Touch(now time.Time) {
	s.LastUpdated = now.UTC()
}

// breakdownTolerance is the absolute float tolerance for the additivity
// check on a cost breakdown.
const breakdownTolerance = 0.01

// CostBreakdown is the structured result of one cost calculation. It is
// produced fresh on every run and never patched in place.
type CostBreakdown struct {
	BaseCosts          map[string]float64            `json:"base_costs"`
	VariableCosts      map[string]float64            `json:"variable_costs"`
	CargoSpecificCosts map[string]map[string]float64 `json:"cargo_specific_costs"`
	TotalCost          float64                       `json:"total_cost"`
}

// Sum recomputes the total from the three buckets.
func (b *CostBreakdown) Sum() float64 {
	total := 0.0
	for _, v := range b.BaseCosts {
		total += v
	}
	for _, v := range b.VariableCosts {
		total += v
	}
	for _, perCargo := range b.CargoSpecificCosts {
		for _, v := range perCargo {
			total += v
		}
	}
	return total
}

// Validate checks that TotalCost matches the component sums within the
// float tolerance.
func (b *CostBreakdown) Validate() error {
	if diff := math.Abs(b.TotalCost - b.Sum()); diff > breakdownTolerance {
		return fmt.Errorf("cost breakdown total %.2f does not match component sum %.2f", b.TotalCost, b.Sum())
	}
	return nil
}

// CostSample is one historical cost observation used by the optimization
// advisor.
type CostSample struct {
	RecordedAt time.Time          `json:"recorded_at"`
	TotalCost  float64            `json:"total_cost"`
	Components map[string]float64 `json:"components"`
}
