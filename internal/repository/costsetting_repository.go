package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ainur/freight-quotes/internal/model"
)

type CostSettingRepository struct {
	db *gorm.DB
}

func NewCostSettingRepository(db *gorm.DB) *CostSettingRepository {
	return &CostSettingRepository{db: db}
}

func (r *CostSettingRepository) List(ctx context.Context) ([]model.CostSetting, error) {
	var settings []model.CostSetting
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, name, type, category, base_value, multiplier, currency,
			is_enabled, description, created_at, last_updated
		FROM cost_settings
		ORDER BY name ASC
	`).Scan(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *CostSettingRepository) ListEnabled(ctx context.Context) ([]model.CostSetting, error) {
	var settings []model.CostSetting
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, name, type, category, base_value, multiplier, currency,
			is_enabled, description, created_at, last_updated
		FROM cost_settings
		WHERE is_enabled
		ORDER BY name ASC
	`).Scan(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

// ReplaceBatch upserts the whole batch inside one transaction so a failure
// on any row rolls back every other row.
func (r *CostSettingRepository) ReplaceBatch(ctx context.Context, settings []model.CostSetting) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, setting := range settings {
			err := tx.Exec(`
				INSERT INTO cost_settings
					(id, name, type, category, base_value, multiplier, currency,
					 is_enabled, description, created_at, last_updated)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name,
					type = EXCLUDED.type,
					category = EXCLUDED.category,
					base_value = EXCLUDED.base_value,
					multiplier = EXCLUDED.multiplier,
					currency = EXCLUDED.currency,
					is_enabled = EXCLUDED.is_enabled,
					description = EXCLUDED.description,
					last_updated = EXCLUDED.last_updated
			`, setting.ID, setting.Name, setting.Type, setting.Category,
				setting.BaseValue, setting.Multiplier, setting.Currency,
				setting.IsEnabled, setting.Description, setting.CreatedAt, setting.LastUpdated).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
