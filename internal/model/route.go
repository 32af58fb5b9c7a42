package model

import (
	"time"

	"github.com/google/uuid"
)

// Location is an immutable value object; coordinates come from the caller,
// no geocoding happens in this service.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// CountrySegment is the sub-span of a driving leg attributable to a single
// country, used for per-country toll and permit costs.
type CountrySegment struct {
	CountryCode   string  `json:"country_code"`
	DistanceKm    float64 `json:"distance_km"`
	DurationHours float64 `json:"duration_hours"`
}

// RouteSegment is one driving leg of a route. Every route has exactly two:
// the unloaded approach to the pickup location and the loaded main leg.
type RouteSegment struct {
	DistanceKm      float64          `json:"distance_km"`
	DurationHours   float64          `json:"duration_hours"`
	BaseCost        float64          `json:"base_cost"`
	CountrySegments []CountrySegment `json:"country_segments"`
}

type EventType string

const (
	EventStart    EventType = "start"
	EventPickup   EventType = "pickup"
	EventRest     EventType = "rest"
	EventBorder   EventType = "border"
	EventDelivery EventType = "delivery"
	EventEnd      EventType = "end"
)

type TimelineEvent struct {
	Type            EventType `json:"type"`
	Location        Location  `json:"location"`
	Time            time.Time `json:"time"`
	DurationMinutes int       `json:"duration_minutes"`
	Description     string    `json:"description"`
	IsRequired      bool      `json:"is_required"`
}

// Route is produced by the route service once the timeline passed all
// driving-time and loading-window checks. IsFeasible and DurationValidation
// reflect that verdict and are not re-evaluated later; the only mutation
// after construction is attaching the computed cost result.
type Route struct {
	ID                 uuid.UUID       `json:"id"`
	Origin             Location        `json:"origin"`
	Destination        Location        `json:"destination"`
	PickupTime         time.Time       `json:"pickup_time"`
	DeliveryTime       time.Time       `json:"delivery_time"`
	EmptyDriving       RouteSegment    `json:"empty_driving"`
	MainRoute          RouteSegment    `json:"main_route"`
	Timeline           []TimelineEvent `json:"timeline"`
	TotalDurationHours float64         `json:"total_duration_hours"`
	Cargo              *Cargo          `json:"cargo,omitempty"`
	TransportType      *TransportType  `json:"transport_type,omitempty"`
	IsFeasible         bool            `json:"is_feasible"`
	DurationValidation bool            `json:"duration_validation"`
	CostBreakdown      *CostBreakdown  `json:"cost_breakdown,omitempty"`
	TotalCost          float64         `json:"total_cost"`
	Currency           string          `json:"currency"`
	CreatedAt          time.Time       `json:"created_at"`
}

// TotalDistanceKm covers both legs, loaded and unloaded.
func (r *Route) TotalDistanceKm() float64 {
	return r.MainRoute.DistanceKm + r.EmptyDriving.DistanceKm
}

// Countries returns the distinct country codes crossed by either leg, in
// order of first appearance.
func (r *Route) Countries() []string {
	seen := make(map[string]struct{})
	var codes []string
	for _, seg := range append(append([]CountrySegment{}, r.EmptyDriving.CountrySegments...), r.MainRoute.CountrySegments...) {
		if _, ok := seen[seg.CountryCode]; ok {
			continue
		}
		seen[seg.CountryCode] = struct{}{}
		codes = append(codes, seg.CountryCode)
	}
	return codes
}
