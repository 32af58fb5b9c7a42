package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ainur/freight-quotes/internal/model"
	"github.com/ainur/freight-quotes/internal/service"
)

type RouteRepository struct {
	db *gorm.DB
}

func NewRouteRepository(db *gorm.DB) *RouteRepository {
	return &RouteRepository{db: db}
}

func (r *RouteRepository) Create(ctx context.Context, route *model.Route) error {
	emptyDriving, err := json.Marshal(route.EmptyDriving)
	if err != nil {
		return fmt.Errorf("encode empty driving: %w", err)
	}
	mainRoute, err := json.Marshal(route.MainRoute)
	if err != nil {
		return fmt.Errorf("encode main route: %w", err)
	}
	timeline, err := json.Marshal(route.Timeline)
	if err != nil {
		return fmt.Errorf("encode timeline: %w", err)
	}
	cargo, err := marshalNullable(route.Cargo)
	if err != nil {
		return fmt.Errorf("encode cargo: %w", err)
	}
	transport, err := marshalNullable(route.TransportType)
	if err != nil {
		return fmt.Errorf("encode transport type: %w", err)
	}

	return r.db.WithContext(ctx).Exec(`
		INSERT INTO routes
			(id, origin_address, origin_lat, origin_lon,
			 destination_address, destination_lat, destination_lon,
			 pickup_time, delivery_time, empty_driving, main_route, timeline,
			 cargo, transport_type, total_duration_hours, is_feasible,
			 duration_validation, total_cost, currency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, route.ID, route.Origin.Address, route.Origin.Latitude, route.Origin.Longitude,
		route.Destination.Address, route.Destination.Latitude, route.Destination.Longitude,
		route.PickupTime, route.DeliveryTime, string(emptyDriving), string(mainRoute), string(timeline),
		cargo, transport, route.TotalDurationHours, route.IsFeasible,
		route.DurationValidation, route.TotalCost, route.Currency, route.CreatedAt).Error
}

func (r *RouteRepository) Get(ctx context.Context, id uuid.UUID) (*model.Route, error) {
	var row struct {
		ID                 uuid.UUID
		OriginAddress      string
		OriginLat          float64
		OriginLon          float64
		DestinationAddress string
		DestinationLat     float64
		DestinationLon     float64
		PickupTime         time.Time
		DeliveryTime       time.Time
		EmptyDriving       string
		MainRoute          string
		Timeline           string
		Cargo              *string
		TransportType      *string
		TotalDurationHours float64
		IsFeasible         bool
		DurationValidation bool
		CostBreakdown      *string
		TotalCost          float64
		Currency           string
		CreatedAt          time.Time
	}

	err := r.db.WithContext(ctx).Raw(`
		SELECT id, origin_address, origin_lat, origin_lon,
			destination_address, destination_lat, destination_lon,
			pickup_time, delivery_time, empty_driving, main_route, timeline,
			cargo, transport_type, total_duration_hours, is_feasible,
			duration_validation, cost_breakdown, total_cost, currency, created_at
		FROM routes
		WHERE id = ?
	`, id).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: route %s", service.ErrNotFound, id)
	}

	route := &model.Route{
		ID:                 row.ID,
		Origin:             model.Location{Latitude: row.OriginLat, Longitude: row.OriginLon, Address: row.OriginAddress},
		Destination:        model.Location{Latitude: row.DestinationLat, Longitude: row.DestinationLon, Address: row.DestinationAddress},
		PickupTime:         row.PickupTime,
		DeliveryTime:       row.DeliveryTime,
		TotalDurationHours: row.TotalDurationHours,
		IsFeasible:         row.IsFeasible,
		DurationValidation: row.DurationValidation,
		TotalCost:          row.TotalCost,
		Currency:           row.Currency,
		CreatedAt:          row.CreatedAt,
	}
	if err := json.Unmarshal([]byte(row.EmptyDriving), &route.EmptyDriving); err != nil {
		return nil, fmt.Errorf("decode empty driving: %w", err)
	}
	if err := json.Unmarshal([]byte(row.MainRoute), &route.MainRoute); err != nil {
		return nil, fmt.Errorf("decode main route: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Timeline), &route.Timeline); err != nil {
		return nil, fmt.Errorf("decode timeline: %w", err)
	}
	if err := unmarshalNullable(row.Cargo, &route.Cargo); err != nil {
		return nil, fmt.Errorf("decode cargo: %w", err)
	}
	if err := unmarshalNullable(row.TransportType, &route.TransportType); err != nil {
		return nil, fmt.Errorf("decode transport type: %w", err)
	}
	if err := unmarshalNullable(row.CostBreakdown, &route.CostBreakdown); err != nil {
		return nil, fmt.Errorf("decode cost breakdown: %w", err)
	}
	return route, nil
}

// AttachCosts stores the computed breakdown on the route row; the route's
// timeline fields stay untouched.
func (r *RouteRepository) AttachCosts(ctx context.Context, id uuid.UUID, breakdown model.CostBreakdown, currency string) error {
	encoded, err := json.Marshal(breakdown)
	if err != nil {
		return fmt.Errorf("encode cost breakdown: %w", err)
	}
	result := r.db.WithContext(ctx).Exec(`
		UPDATE routes
		SET cost_breakdown = ?, total_cost = ?, currency = ?
		WHERE id = ?
	`, string(encoded), breakdown.TotalCost, currency, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: route %s", service.ErrNotFound, id)
	}
	return nil
}

func marshalNullable(value any) (*string, error) {
	if value == nil {
		return nil, nil
	}
	switch v := value.(type) {
	case *model.Cargo:
		if v == nil {
			return nil, nil
		}
	case *model.TransportType:
		if v == nil {
			return nil, nil
		}
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	text := string(encoded)
	return &text, nil
}

func unmarshalNullable(raw *string, target any) error {
	if raw == nil || *raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(*raw), target)
}
