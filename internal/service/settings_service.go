package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ainur/freight-quotes/internal/metrics"
	"github.com/ainur/freight-quotes/internal/model"
	"github.com/ainur/freight-quotes/internal/validation"
)

type CostSettingRepository interface {
	List(ctx context.Context) ([]model.CostSetting, error)
	ListEnabled(ctx context.Context) ([]model.CostSetting, error)
	// ReplaceBatch upserts every setting in one transaction; either all
	// rows apply or none do.
	ReplaceBatch(ctx context.Context, settings []model.CostSetting) error
}

// SettingsService manages the cost-setting catalogue. Settings are
// validated as a whole batch before any write; a single error aborts the
// entire update.
type SettingsService struct {
	repo CostSettingRepository
	log  zerolog.Logger
	sink metrics.Sink
}

func NewSettingsService(repo CostSettingRepository, log zerolog.Logger, sink metrics.Sink) *SettingsService {
	if sink == nil {
		sink = metrics.Noop{}
	}
	return &SettingsService{repo: repo, log: log, sink: sink}
}

// List returns the full catalogue, seeding the defaults on first use.
func (s *SettingsService) List(ctx context.Context) ([]model.CostSetting, error) {
	settings, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(settings) == 0 {
		defaults := DefaultCostSettings(time.Now().UTC())
		if err := s.repo.ReplaceBatch(ctx, defaults); err != nil {
			return nil, fmt.Errorf("seed default cost settings: %w", err)
		}
		settings = defaults
		s.log.Info().Int("count", len(defaults)).Msg("seeded default cost settings")
	}
	s.sink.Gauge("cost_settings.total_count", float64(len(settings)), nil)
	return settings, nil
}

// ListEnabled returns the settings that currently contribute to pricing.
func (s *SettingsService) ListEnabled(ctx context.Context) ([]model.CostSetting, error) {
	return s.repo.ListEnabled(ctx)
}

type BulkUpdateResult struct {
	Success      bool                 `json:"success"`
	UpdatedCount int                  `json:"updated_count"`
	Errors       []validation.Finding `json:"errors"`
	Warnings     []validation.Finding `json:"warnings"`
	Timestamp    time.Time            `json:"timestamp"`
}

// BulkUpdate validates the whole batch and applies it atomically. Any
// validation error rejects the batch with updated_count zero; warnings are
// reported but do not block.
func (s *SettingsService) BulkUpdate(ctx context.Context, settings []model.CostSetting) (*BulkUpdateResult, error) {
	now := time.Now().UTC()
	for i := range settings {
		if settings[i].ID == uuid.Nil {
			settings[i].ID = uuid.New()
			settings[i].CreatedAt = now
		}
		settings[i].Touch(now)
	}

	findings := validation.ValidateAll(settings)
	errs, warnings := validation.Split(findings)

	s.sink.Gauge("cost_settings.validation.error_count", float64(len(errs)), nil)
	s.sink.Gauge("cost_settings.validation.warning_count", float64(len(warnings)), nil)

	if len(errs) > 0 {
		s.sink.Counter("cost_settings.validation_failures", nil)
		s.log.Warn().Int("errors", len(errs)).Msg("cost settings batch rejected")
		return &BulkUpdateResult{
			Success:   false,
			Errors:    errs,
			Warnings:  warnings,
			Timestamp: now,
		}, nil
	}

	started := time.Now()
	if err := s.repo.ReplaceBatch(ctx, settings); err != nil {
		s.sink.Counter("cost_settings.failed_updates", nil)
		return nil, fmt.Errorf("update cost settings: %w", err)
	}
	s.sink.Timing("cost_settings.update_duration", time.Since(started), nil)
	s.sink.Counter("cost_settings.successful_updates", nil)

	s.log.Info().Int("count", len(settings)).Int("warnings", len(warnings)).Msg("cost settings updated")
	return &BulkUpdateResult{
		Success:      true,
		UpdatedCount: len(settings),
		Warnings:     warnings,
		Timestamp:    now,
	}, nil
}

// DefaultCostSettings is the catalogue installed on an empty store.
func DefaultCostSettings(now time.Time) []model.CostSetting {
	mk := func(name, costType, category string, baseValue float64, description string) model.CostSetting {
		return model.CostSetting{
			ID:          uuid.New(),
			Name:        name,
			Type:        costType,
			Category:    category,
			BaseValue:   baseValue,
			Multiplier:  1.0,
			Currency:    "EUR",
			IsEnabled:   true,
			Description: description,
			CreatedAt:   now,
			LastUpdated: now,
		}
	}
	return []model.CostSetting{
		mk("Fuel", model.CostTypeFuel, model.CategoryVariable, 1.5, "Fuel cost per kilometer"),
		mk("Driver", model.CostTypeDriver, model.CategoryVariable, 35.0, "Driver salary per hour"),
		mk("Maintenance", model.CostTypeMaintenance, model.CategoryVariable, 0.3, "Vehicle maintenance per kilometer"),
		mk("Working time", model.CostTypeTime, model.CategoryVariable, 25.0, "Operating cost per hour"),
		mk("Tolls", model.CostTypeToll, model.CategoryVariable, 0.2, "Base toll rate per kilometer"),
		mk("Insurance", model.CostTypeInsurance, model.CategoryBase, 50.0, "Insurance cost per job"),
		mk("Cargo handling", model.CostTypeHandling, model.CategoryCargoSpecific, 40.0, "Handling surcharge per cargo item"),
	}
}
