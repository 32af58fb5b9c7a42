package main

import (
	"fmt"
	"os"

	"github.com/ainur/freight-quotes/internal/auth"
	"github.com/ainur/freight-quotes/internal/config"
	"github.com/ainur/freight-quotes/internal/db"
	"github.com/ainur/freight-quotes/internal/excel"
	httphandler "github.com/ainur/freight-quotes/internal/http"
	"github.com/ainur/freight-quotes/internal/http/middleware"
	"github.com/ainur/freight-quotes/internal/insights"
	"github.com/ainur/freight-quotes/internal/logger"
	"github.com/ainur/freight-quotes/internal/metrics"
	"github.com/ainur/freight-quotes/internal/model"
	"github.com/ainur/freight-quotes/internal/pdf"
	"github.com/ainur/freight-quotes/internal/repository"
	"github.com/ainur/freight-quotes/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	routeRepo := repository.NewRouteRepository(database)
	settingsRepo := repository.NewCostSettingRepository(database)
	offerRepo := repository.NewOfferRepository(database)

	sink := metrics.NewPrometheus("freight_quotes", nil)

	mainLeg := service.NewHaversineEstimator(
		cfg.Routing.RoadFactor,
		cfg.Routing.AverageSpeedKmh,
		cfg.Routing.CostPerKm,
		cfg.Routing.DefaultCountry,
	)
	emptyLeg := &service.StaticEstimator{Segment: model.RouteSegment{
		DistanceKm:    cfg.Routing.EmptyDrivingKm,
		DurationHours: cfg.Routing.EmptyDrivingHours,
		BaseCost:      cfg.Routing.EmptyDrivingKm * cfg.Routing.CostPerKm,
		CountrySegments: []model.CountrySegment{{
			CountryCode:   cfg.Routing.DefaultCountry,
			DistanceKm:    cfg.Routing.EmptyDrivingKm,
			DurationHours: cfg.Routing.EmptyDrivingHours,
		}},
	}}

	routeService := service.NewRouteService(routeRepo, mainLeg, emptyLeg, log, sink)
	costService := service.NewCostService(log, sink)
	settingsService := service.NewSettingsService(settingsRepo, log, sink)
	optimizer := service.NewOptimizer(nil, log, sink)
	offerService := service.NewOfferService(offerRepo, routeRepo, settingsRepo, costService, optimizer, insights.Static{}, log, sink)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(
		routeService,
		costService,
		settingsService,
		offerService,
		optimizer,
		pdf.NewGenerator(),
		excel.NewGenerator(),
		cfg.Offers.DefaultMarginPercentage,
		log,
	)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, sink.Registry(), cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting quote service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
