package service

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ainur/freight-quotes/internal/metrics"
	"github.com/ainur/freight-quotes/internal/model"
)

// Share of the maintenance contribution that scales with distance; the
// remainder scales with time.
const maintenanceDistanceShare = 0.7

// CostService turns a route plus a set of enabled cost settings into a
// structured cost breakdown.
type CostService struct {
	log  zerolog.Logger
	sink metrics.Sink
}

func NewCostService(log zerolog.Logger, sink metrics.Sink) *CostService {
	if sink == nil {
		sink = metrics.Noop{}
	}
	return &CostService{log: log, sink: sink}
}

// Calculate computes the breakdown for the route. Disabled settings are
// omitted entirely, not written as zero entries. Route-data problems come
// back as a RouteValidationError listing every offending field.
func (s *CostService) Calculate(route *model.Route, settings []model.CostSetting) (*model.CostBreakdown, error) {
	started := time.Now()

	if route == nil {
		return nil, &RouteValidationError{Errors: []FieldError{{Field: "route", Message: "route is required"}}}
	}
	if fieldErrs := validateRouteData(route); len(fieldErrs) > 0 {
		return nil, &RouteValidationError{Errors: fieldErrs}
	}

	breakdown := &model.CostBreakdown{
		BaseCosts:          make(map[string]float64),
		VariableCosts:      make(map[string]float64),
		CargoSpecificCosts: make(map[string]map[string]float64),
	}

	totalDistance := route.TotalDistanceKm()
	totalDuration := route.TotalDurationHours

	for _, setting := range settings {
		if !setting.IsEnabled {
			continue
		}
		effective := setting.ApplyMultiplier()

		switch setting.Category {
		case model.CategoryBase:
			breakdown.BaseCosts[setting.Name] = effective

		case model.CategoryVariable:
			breakdown.VariableCosts[setting.Name] = variableContribution(setting.Type, effective, totalDistance, totalDuration)

		case model.CategoryCargoSpecific:
			if route.Cargo == nil {
				continue
			}
			cargoKey := route.Cargo.ID.String()
			if breakdown.CargoSpecificCosts[cargoKey] == nil {
				breakdown.CargoSpecificCosts[cargoKey] = make(map[string]float64)
			}
			breakdown.CargoSpecificCosts[cargoKey][setting.Type] = cargoContribution(setting.Type, effective, route.Cargo)

		default:
			return nil, &CostCalculationError{
				Op:    "partition settings",
				Cause: fmt.Errorf("setting %s has unknown category %q", setting.Name, setting.Category),
			}
		}
	}

	breakdown.TotalCost = breakdown.Sum()

	s.sink.Timing("costs.calculate_duration", time.Since(started), nil)
	s.sink.Gauge("costs.total", breakdown.TotalCost, nil)
	s.log.Debug().
		Str("route_id", route.ID.String()).
		Float64("total_cost", breakdown.TotalCost).
		Float64("total_distance_km", totalDistance).
		Msg("cost breakdown calculated")

	return breakdown, nil
}

func variableContribution(costType string, effective, totalDistance, totalDuration float64) float64 {
	switch costType {
	case model.CostTypeFuel, model.CostTypeToll:
		return effective * totalDistance
	case model.CostTypeDriver:
		return effective * totalDuration
	case model.CostTypeMaintenance:
		return effective*maintenanceDistanceShare*totalDistance + effective*(1-maintenanceDistanceShare)*totalDuration
	default:
		return effective * totalDuration
	}
}

func cargoContribution(costType string, effective float64, cargo *model.Cargo) float64 {
	switch costType {
	case model.CostTypeWeight:
		return effective * cargo.WeightKg
	case model.CostTypeVolume:
		return effective * cargo.VolumeM3
	case model.CostTypeHandling:
		return effective * (1 + cargo.HandlingFactor)
	default:
		return effective
	}
}

func validateRouteData(route *model.Route) []FieldError {
	var errs []FieldError
	check := func(field string, value float64) {
		if value < 0 {
			errs = append(errs, FieldError{Field: field, Message: "must not be negative"})
		}
	}
	check("main_route.distance_km", route.MainRoute.DistanceKm)
	check("main_route.duration_hours", route.MainRoute.DurationHours)
	check("empty_driving.distance_km", route.EmptyDriving.DistanceKm)
	check("empty_driving.duration_hours", route.EmptyDriving.DurationHours)
	if route.MainRoute.DistanceKm == 0 && route.MainRoute.DurationHours == 0 {
		errs = append(errs, FieldError{Field: "main_route", Message: "segment data is required"})
	}
	return errs
}
