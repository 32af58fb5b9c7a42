package model

import "github.com/google/uuid"

type Cargo struct {
	ID                  uuid.UUID `json:"id"`
	Type                string    `json:"type"`
	WeightKg            float64   `json:"weight_kg"`
	VolumeM3            float64   `json:"volume_m3"`
	Value               float64   `json:"value"`
	HandlingFactor      float64   `json:"handling_factor"`
	SpecialRequirements []string  `json:"special_requirements"`
}

// RequiresSpecial reports whether the cargo carries the given requirement
// flag, e.g. "ADR" or "Temperature controlled".
func (c *Cargo) RequiresSpecial(requirement string) bool {
	for _, req := range c.SpecialRequirements {
		if req == requirement {
			return true
		}
	}
	return false
}

type TransportCapacity struct {
	MaxWeightKg float64 `json:"max_weight_kg"`
	MaxVolumeM3 float64 `json:"max_volume_m3"`
}

type TransportType struct {
	Name         string            `json:"name"`
	Capacity     TransportCapacity `json:"capacity"`
	Restrictions []string          `json:"restrictions"`
}
