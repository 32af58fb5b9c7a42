package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ainur/freight-quotes/internal/model"
)

func newTestRouteService(mainLeg, emptyLeg DistanceEstimator) *RouteService {
	return NewRouteService(nil, mainLeg, emptyLeg, zerolog.Nop(), nil)
}

func segment(distanceKm, durationHours float64, country string) model.RouteSegment {
	return model.RouteSegment{
		DistanceKm:    distanceKm,
		DurationHours: durationHours,
		CountrySegments: []model.CountrySegment{
			{CountryCode: country, DistanceKm: distanceKm, DurationHours: durationHours},
		},
	}
}

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var routeErr *RouteValidationError
	require.ErrorAs(t, err, &routeErr)
	names := make([]string, 0, len(routeErr.Errors))
	for _, fe := range routeErr.Errors {
		names = append(names, fe.Field)
	}
	return names
}

func TestCalculateRouteLoadingWindow(t *testing.T) {
	svc := newTestRouteService(
		&StaticEstimator{Segment: segment(280, 4, "DE")},
		&StaticEstimator{Segment: segment(70, 1, "DE")},
	)

	ctx := context.Background()
	pickup := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)

	_, err := svc.CalculateRoute(ctx, CalculateRouteInput{
		Origin:       model.Location{Address: "Berlin", Latitude: 52.52, Longitude: 13.405},
		Destination:  model.Location{Address: "Munich", Latitude: 48.137, Longitude: 11.575},
		PickupTime:   pickup,
		DeliveryTime: pickup.Add(10 * time.Hour),
	})
	require.Error(t, err)
	assert.Contains(t, fieldNames(t, err), "pickup_time")

	// A pickup inside the window on the same day passes.
	pickup = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	route, err := svc.CalculateRoute(ctx, CalculateRouteInput{
		Origin:       model.Location{Address: "Berlin"},
		Destination:  model.Location{Address: "Munich"},
		PickupTime:   pickup,
		DeliveryTime: pickup.Add(10 * time.Hour),
	})
	require.NoError(t, err)
	assert.True(t, route.IsFeasible)
}

func TestCalculateRouteLocalOffsetWindow(t *testing.T) {
	svc := newTestRouteService(
		&StaticEstimator{Segment: segment(280, 4, "DE")},
		&StaticEstimator{Segment: segment(70, 1, "DE")},
	)

	// 07:00 in the submitted offset is inside the window even though the
	// same instant is 05:00 UTC.
	zone := time.FixedZone("CEST", 2*60*60)
	pickup := time.Date(2026, 6, 15, 7, 0, 0, 0, zone)

	route, err := svc.CalculateRoute(context.Background(), CalculateRouteInput{
		Origin:       model.Location{Address: "Warsaw"},
		Destination:  model.Location{Address: "Vienna"},
		PickupTime:   pickup,
		DeliveryTime: pickup.Add(12 * time.Hour),
	})
	require.NoError(t, err)
	assert.True(t, route.DurationValidation)
}

func TestCalculateRouteWindowOrdering(t *testing.T) {
	svc := newTestRouteService(
		&StaticEstimator{Segment: segment(280, 4, "DE")},
		&StaticEstimator{Segment: segment(70, 1, "DE")},
	)
	pickup := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		delivery time.Time
		field    string
	}{
		{"delivery before pickup", pickup.Add(-2 * time.Hour), "delivery_time"},
		{"delivery equals pickup", pickup, "delivery_time"},
		{"zero delivery", time.Time{}, "delivery_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CalculateRoute(context.Background(), CalculateRouteInput{
				Origin:       model.Location{Address: "A"},
				Destination:  model.Location{Address: "B"},
				PickupTime:   pickup,
				DeliveryTime: tt.delivery,
			})
			require.Error(t, err)
			assert.Contains(t, fieldNames(t, err), tt.field)
		})
	}
}

func TestCalculateRouteMaxDailyDriving(t *testing.T) {
	svc := newTestRouteService(
		&StaticEstimator{Segment: segment(600, 8.5, "DE")},
		&StaticEstimator{Segment: segment(70, 1, "DE")},
	)
	pickup := time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)

	_, err := svc.CalculateRoute(context.Background(), CalculateRouteInput{
		Origin:       model.Location{Address: "Hamburg"},
		Destination:  model.Location{Address: "Rome"},
		PickupTime:   pickup,
		DeliveryTime: pickup.Add(14 * time.Hour),
	})
	require.Error(t, err)

	var routeErr *RouteValidationError
	require.ErrorAs(t, err, &routeErr)
	require.Len(t, routeErr.Errors, 1)
	assert.Contains(t, routeErr.Errors[0].Message, "maximum daily driving")
}

func TestCalculateRouteWindowTooTight(t *testing.T) {
	// Six hours of driving needs the driving time plus the 45 minute rest
	// plus an hour of loading and unloading; 7.75 hours do not fit in six.
	svc := newTestRouteService(
		&StaticEstimator{Segment: segment(350, 5, "DE")},
		&StaticEstimator{Segment: segment(70, 1, "DE")},
	)
	pickup := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	_, err := svc.CalculateRoute(context.Background(), CalculateRouteInput{
		Origin:       model.Location{Address: "A"},
		Destination:  model.Location{Address: "B"},
		PickupTime:   pickup,
		DeliveryTime: pickup.Add(6 * time.Hour),
	})
	require.Error(t, err)

	var routeErr *RouteValidationError
	require.ErrorAs(t, err, &routeErr)
	require.Len(t, routeErr.Errors, 1)
	assert.Contains(t, routeErr.Errors[0].Message, "timeline too tight")
	assert.Contains(t, routeErr.Errors[0].Message, "1 rest stops")
}

func TestCalculateRouteShortLegNeedsLoadingTime(t *testing.T) {
	// Even without any mandated rest the window must still hold the load
	// and unload hour; twenty minutes cannot.
	svc := newTestRouteService(
		&StaticEstimator{Segment: segment(15, 0.2, "DE")},
		&StaticEstimator{Segment: segment(7, 0.1, "DE")},
	)
	pickup := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	_, err := svc.CalculateRoute(context.Background(), CalculateRouteInput{
		Origin:       model.Location{Address: "A"},
		Destination:  model.Location{Address: "B"},
		PickupTime:   pickup,
		DeliveryTime: pickup.Add(20 * time.Minute),
	})
	require.Error(t, err)
	assert.Contains(t, fieldNames(t, err), "delivery_time")
}

func TestCalculateRouteMinimumWindowTimelineOrder(t *testing.T) {
	// 4.7h of driving mandates one rest, so the minimum accepted window is
	// 4.7 + 0.75 + 1 = 6.45 hours. A route built exactly at that minimum
	// must still produce a strictly increasing timeline.
	svc := newTestRouteService(
		&StaticEstimator{Segment: segment(320, 4.6, "DE")},
		&StaticEstimator{Segment: segment(7, 0.1, "DE")},
	)
	pickup := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	minWindow := 6*time.Hour + 27*time.Minute

	_, err := svc.CalculateRoute(context.Background(), CalculateRouteInput{
		Origin:       model.Location{Address: "Berlin", Latitude: 52.52, Longitude: 13.405},
		Destination:  model.Location{Address: "Munich", Latitude: 48.137, Longitude: 11.575},
		PickupTime:   pickup,
		DeliveryTime: pickup.Add(minWindow - time.Minute),
	})
	require.Error(t, err, "window below the minimum must be rejected")

	route, err := svc.CalculateRoute(context.Background(), CalculateRouteInput{
		Origin:       model.Location{Address: "Berlin", Latitude: 52.52, Longitude: 13.405},
		Destination:  model.Location{Address: "Munich", Latitude: 48.137, Longitude: 11.575},
		PickupTime:   pickup,
		DeliveryTime: pickup.Add(minWindow),
	})
	require.NoError(t, err)

	require.NotEmpty(t, route.Timeline)
	for i := 1; i < len(route.Timeline); i++ {
		assert.True(t, route.Timeline[i].Time.After(route.Timeline[i-1].Time),
			"event %d (%s) at %s not after event %d (%s) at %s",
			i, route.Timeline[i].Type, route.Timeline[i].Time,
			i-1, route.Timeline[i-1].Type, route.Timeline[i-1].Time)
	}
}

func TestCalculateRoutePersistFailure(t *testing.T) {
	repo := &fakeRouteRepo{createErr: errors.New("connection refused")}
	svc := NewRouteService(repo,
		&StaticEstimator{Segment: segment(280, 4, "DE")},
		&StaticEstimator{Segment: segment(70, 1, "DE")},
		zerolog.Nop(), nil)
	pickup := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	_, err := svc.CalculateRoute(context.Background(), CalculateRouteInput{
		Origin:       model.Location{Address: "A"},
		Destination:  model.Location{Address: "B"},
		PickupTime:   pickup,
		DeliveryTime: pickup.Add(10 * time.Hour),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist route")
}

func TestRequiredRestStops(t *testing.T) {
	tests := []struct {
		hours float64
		want  int
	}{
		{0, 0},
		{4.0, 0},
		{4.5, 0},
		{4.6, 1},
		{9.0, 1},
		{9.1, 2},
		{11.0, 2},
		{13.5, 2},
		{13.6, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RequiredRestStops(tt.hours), "hours=%v", tt.hours)
	}
}

func TestBuildTimelineOrderAndRests(t *testing.T) {
	origin := model.Location{Address: "Berlin", Latitude: 52.52, Longitude: 13.405}
	destination := model.Location{Address: "Madrid", Latitude: 40.417, Longitude: -3.703}
	pickup := time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)
	delivery := pickup.Add(13 * time.Hour)

	timeline := BuildTimeline(origin, destination, pickup, delivery,
		segment(70, 1, "DE"), segment(750, 11, "DE"))

	var rests int
	for _, ev := range timeline {
		if ev.Type == model.EventRest {
			rests++
		}
	}
	assert.Equal(t, 2, rests)

	require.GreaterOrEqual(t, len(timeline), 2)
	assert.Equal(t, model.EventStart, timeline[0].Type)
	assert.Equal(t, model.EventPickup, timeline[1].Type)
	assert.Equal(t, model.EventEnd, timeline[len(timeline)-1].Type)
	assert.Equal(t, delivery, timeline[len(timeline)-1].Time)

	for i := 1; i < len(timeline); i++ {
		assert.True(t, timeline[i].Time.After(timeline[i-1].Time),
			"event %d (%s) not after event %d (%s)", i, timeline[i].Type, i-1, timeline[i-1].Type)
	}

	// Rest locations are interpolated between the endpoints.
	for _, ev := range timeline {
		if ev.Type != model.EventRest {
			continue
		}
		assert.InDelta(t, MinRestDurationMinutes, ev.DurationMinutes, 0)
		assert.Less(t, ev.Location.Latitude, origin.Latitude)
		assert.Greater(t, ev.Location.Latitude, destination.Latitude)
	}
}

func TestBuildTimelineNoRestForShortLeg(t *testing.T) {
	pickup := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	timeline := BuildTimeline(
		model.Location{Address: "A"}, model.Location{Address: "B"},
		pickup, pickup.Add(5*time.Hour),
		segment(70, 1, "DE"), segment(280, 4, "DE"))

	require.Len(t, timeline, 4)
	assert.Equal(t, model.EventStart, timeline[0].Type)
	assert.Equal(t, model.EventPickup, timeline[1].Type)
	assert.Equal(t, model.EventDelivery, timeline[2].Type)
	assert.Equal(t, model.EventEnd, timeline[3].Type)
}

func TestHaversineEstimator(t *testing.T) {
	est := NewHaversineEstimator(1.3, 70, 0.35, "DE")

	berlin := model.Location{Latitude: 52.52, Longitude: 13.405}
	munich := model.Location{Latitude: 48.137, Longitude: 11.575}

	seg, err := est.Estimate(context.Background(), berlin, munich)
	require.NoError(t, err)

	// Great-circle Berlin-Munich is roughly 504 km.
	assert.InDelta(t, 504*1.3, seg.DistanceKm, 15)
	assert.InDelta(t, seg.DistanceKm/70, seg.DurationHours, 0.001)
	assert.InDelta(t, seg.DistanceKm*0.35, seg.BaseCost, 0.001)
	require.Len(t, seg.CountrySegments, 1)
	assert.Equal(t, "DE", seg.CountrySegments[0].CountryCode)
}
