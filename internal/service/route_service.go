package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ainur/freight-quotes/internal/metrics"
	"github.com/ainur/freight-quotes/internal/model"
)

// EU driving-time regulation constants.
const (
	MaxDailyDrivingHours   = 9.0
	RequiredRestAfterHours = 4.5
	MinRestDurationMinutes = 45
	LoadingWindowStartHour = 6
	LoadingWindowEndHour   = 22
	loadUnloadMinutes      = 30
	loadUnloadHours        = 2 * float64(loadUnloadMinutes) / 60
)

type RouteRepository interface {
	Create(ctx context.Context, route *model.Route) error
	Get(ctx context.Context, id uuid.UUID) (*model.Route, error)
	AttachCosts(ctx context.Context, id uuid.UUID, breakdown model.CostBreakdown, currency string) error
}

// RouteService builds and validates route timelines. A route it returns has
// already passed every driving-time and loading-window check; there is no
// "infeasible but returned" state.
type RouteService struct {
	routes   RouteRepository
	mainLeg  DistanceEstimator
	emptyLeg DistanceEstimator
	log      zerolog.Logger
	sink     metrics.Sink
}

func NewRouteService(routes RouteRepository, mainLeg, emptyLeg DistanceEstimator, log zerolog.Logger, sink metrics.Sink) *RouteService {
	if sink == nil {
		sink = metrics.Noop{}
	}
	return &RouteService{routes: routes, mainLeg: mainLeg, emptyLeg: emptyLeg, log: log, sink: sink}
}

type CalculateRouteInput struct {
	Origin        model.Location
	Destination   model.Location
	PickupTime    time.Time
	DeliveryTime  time.Time
	Cargo         *model.Cargo
	TransportType *model.TransportType
}

// CalculateRoute validates the requested window, estimates both legs,
// checks EU driving limits and builds the event timeline. All validation
// findings are returned together in a RouteValidationError.
func (s *RouteService) CalculateRoute(ctx context.Context, input CalculateRouteInput) (*model.Route, error) {
	started := time.Now()

	if fieldErrs := validateWindow(input.PickupTime, input.DeliveryTime); len(fieldErrs) > 0 {
		s.sink.Counter("routes.validation_failures", nil)
		return nil, &RouteValidationError{Errors: fieldErrs}
	}

	emptyDriving, err := s.emptyLeg.Estimate(ctx, input.Origin, input.Origin)
	if err != nil {
		return nil, fmt.Errorf("estimate empty driving leg: %w", err)
	}
	mainRoute, err := s.mainLeg.Estimate(ctx, input.Origin, input.Destination)
	if err != nil {
		return nil, fmt.Errorf("estimate main leg: %w", err)
	}

	totalDriving := emptyDriving.DurationHours + mainRoute.DurationHours
	availableHours := input.DeliveryTime.Sub(input.PickupTime).Hours()

	var feasibilityErrs []FieldError
	if totalDriving > MaxDailyDrivingHours {
		feasibilityErrs = append(feasibilityErrs, FieldError{
			Field:   "delivery_time",
			Message: fmt.Sprintf("total driving time %.1fh exceeds maximum daily driving time of %.0f hours", totalDriving, MaxDailyDrivingHours),
		})
	}
	// The window must hold the full driving time, every mandated rest and
	// one hour of loading/unloading; otherwise the built timeline would
	// place events out of order.
	restStops := RequiredRestStops(totalDriving)
	requiredHours := totalDriving + float64(restStops)*float64(MinRestDurationMinutes)/60 + loadUnloadHours
	if availableHours < requiredHours {
		feasibilityErrs = append(feasibilityErrs, FieldError{
			Field:   "delivery_time",
			Message: fmt.Sprintf("timeline too tight: need %.1f hours including %d rest stops but only %.1f available", requiredHours, restStops, availableHours),
		})
	}
	if len(feasibilityErrs) > 0 {
		s.sink.Counter("routes.validation_failures", nil)
		return nil, &RouteValidationError{Errors: feasibilityErrs}
	}

	route := &model.Route{
		ID:                 uuid.New(),
		Origin:             input.Origin,
		Destination:        input.Destination,
		PickupTime:         input.PickupTime,
		DeliveryTime:       input.DeliveryTime,
		EmptyDriving:       emptyDriving,
		MainRoute:          mainRoute,
		Timeline:           BuildTimeline(input.Origin, input.Destination, input.PickupTime, input.DeliveryTime, emptyDriving, mainRoute),
		TotalDurationHours: totalDriving,
		Cargo:              input.Cargo,
		TransportType:      input.TransportType,
		IsFeasible:         true,
		DurationValidation: true,
		Currency:           "EUR",
		CreatedAt:          time.Now().UTC(),
	}

	if s.routes != nil {
		if err := s.routes.Create(ctx, route); err != nil {
			return nil, fmt.Errorf("persist route: %w", err)
		}
	}

	s.sink.Timing("routes.calculate_duration", time.Since(started), nil)
	s.sink.Counter("routes.calculated", nil)
	s.log.Info().
		Str("route_id", route.ID.String()).
		Float64("total_driving_hours", totalDriving).
		Int("rest_stops", RequiredRestStops(mainRoute.DurationHours)).
		Msg("route calculated")

	return route, nil
}

func (s *RouteService) Get(ctx context.Context, routeID uuid.UUID) (*model.Route, error) {
	route, err := s.routes.Get(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("load route %s: %w", routeID, err)
	}
	return route, nil
}

// validateWindow runs the pre-estimation checks. The loading-window hour is
// evaluated on the submitted pickup timestamp's own zone: callers are
// expected to submit origin-local, offset-carrying times.
func validateWindow(pickup, delivery time.Time) []FieldError {
	var errs []FieldError
	if pickup.IsZero() {
		errs = append(errs, FieldError{Field: "pickup_time", Message: "pickup time is required and must carry a timezone offset"})
	}
	if delivery.IsZero() {
		errs = append(errs, FieldError{Field: "delivery_time", Message: "delivery time is required and must carry a timezone offset"})
	}
	if len(errs) > 0 {
		return errs
	}
	if !delivery.After(pickup) {
		errs = append(errs, FieldError{Field: "delivery_time", Message: "delivery time must be after pickup time"})
	}
	if hour := pickup.Hour(); hour < LoadingWindowStartHour || hour >= LoadingWindowEndHour {
		errs = append(errs, FieldError{
			Field:   "pickup_time",
			Message: fmt.Sprintf("loading time outside of allowed window (%02d:00 - %02d:00)", LoadingWindowStartHour, LoadingWindowEndHour),
		})
	}
	return errs
}

// RequiredRestStops is the mandated rest count for a loaded leg of the
// given driving duration.
func RequiredRestStops(mainDurationHours float64) int {
	stops := int(math.Ceil(mainDurationHours/RequiredRestAfterHours)) - 1
	if stops < 0 {
		return 0
	}
	return stops
}

// BuildTimeline produces the ordered event sequence: start, pickup, the
// mandated rest stops, delivery and end. Event times are strictly
// increasing.
func BuildTimeline(origin, destination model.Location, pickup, delivery time.Time, emptyDriving, mainRoute model.RouteSegment) []model.TimelineEvent {
	timeline := []model.TimelineEvent{
		{
			Type:        model.EventStart,
			Location:    origin,
			Time:        pickup.Add(-time.Duration(emptyDriving.DurationHours * float64(time.Hour))),
			Description: "Start of route",
			IsRequired:  true,
		},
		{
			Type:            model.EventPickup,
			Location:        origin,
			Time:            pickup,
			DurationMinutes: loadUnloadMinutes,
			Description:     "Loading cargo",
			IsRequired:      true,
		},
	}

	current := pickup.Add(loadUnloadMinutes * time.Minute)
	remaining := mainRoute.DurationHours
	driven := 0.0
	for remaining > RequiredRestAfterHours {
		restTime := current.Add(time.Duration(RequiredRestAfterHours * float64(time.Hour)))
		driven += RequiredRestAfterHours
		progress := driven / mainRoute.DurationHours
		timeline = append(timeline, model.TimelineEvent{
			Type: model.EventRest,
			Location: model.Location{
				Latitude:  origin.Latitude + (destination.Latitude-origin.Latitude)*progress,
				Longitude: origin.Longitude + (destination.Longitude-origin.Longitude)*progress,
				Address:   fmt.Sprintf("Rest area %d", len(timeline)-1),
			},
			Time:            restTime,
			DurationMinutes: MinRestDurationMinutes,
			Description:     "Required rest period",
			IsRequired:      true,
		})
		current = restTime.Add(MinRestDurationMinutes * time.Minute)
		remaining -= RequiredRestAfterHours
	}

	timeline = append(timeline,
		model.TimelineEvent{
			Type:            model.EventDelivery,
			Location:        destination,
			Time:            delivery.Add(-loadUnloadMinutes * time.Minute),
			DurationMinutes: loadUnloadMinutes,
			Description:     "Unloading cargo",
			IsRequired:      true,
		},
		model.TimelineEvent{
			Type:        model.EventEnd,
			Location:    destination,
			Time:        delivery,
			Description: "End of route",
			IsRequired:  true,
		},
	)
	return timeline
}
