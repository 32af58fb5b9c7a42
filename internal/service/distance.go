package service

import (
	"context"
	"math"

	"github.com/ainur/freight-quotes/internal/model"
)

// DistanceEstimator supplies distance and duration for a driving leg. The
// service itself does no geocoding or map routing; estimates come from this
// port, either a real provider or the built-in great-circle stub.
type DistanceEstimator interface {
	Estimate(ctx context.Context, from, to model.Location) (model.RouteSegment, error)
}

const earthRadiusKm = 6371.0

// HaversineEstimator approximates road legs from the great-circle distance
// scaled by a road factor, at a flat average speed.
type HaversineEstimator struct {
	RoadFactor      float64 // great-circle to road distance ratio, e.g. 1.3
	AverageSpeedKmh float64
	CostPerKm       float64 // feeds the segment's base cost
	CountryCode     string  // attributed country for the whole leg
}

func NewHaversineEstimator(roadFactor, averageSpeedKmh, costPerKm float64, countryCode string) *HaversineEstimator {
	if roadFactor <= 0 {
		roadFactor = 1.3
	}
	if averageSpeedKmh <= 0 {
		averageSpeedKmh = 70
	}
	return &HaversineEstimator{
		RoadFactor:      roadFactor,
		AverageSpeedKmh: averageSpeedKmh,
		CostPerKm:       costPerKm,
		CountryCode:     countryCode,
	}
}

func (e *HaversineEstimator) Estimate(_ context.Context, from, to model.Location) (model.RouteSegment, error) {
	distance := haversineKm(from, to) * e.RoadFactor
	duration := distance / e.AverageSpeedKmh
	return model.RouteSegment{
		DistanceKm:    distance,
		DurationHours: duration,
		BaseCost:      distance * e.CostPerKm,
		CountrySegments: []model.CountrySegment{
			{CountryCode: e.CountryCode, DistanceKm: distance, DurationHours: duration},
		},
	}, nil
}

func haversineKm(from, to model.Location) float64 {
	lat1 := from.Latitude * math.Pi / 180
	lat2 := to.Latitude * math.Pi / 180
	dLat := (to.Latitude - from.Latitude) * math.Pi / 180
	dLon := (to.Longitude - from.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// StaticEstimator returns a fixed segment regardless of endpoints. Used for
// the unloaded approach leg and in tests.
type StaticEstimator struct {
	Segment model.RouteSegment
}

func (e *StaticEstimator) Estimate(context.Context, model.Location, model.Location) (model.RouteSegment, error) {
	return e.Segment, nil
}
