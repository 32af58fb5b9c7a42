package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'offer_status') THEN
			CREATE TYPE offer_status AS ENUM ('draft', 'pending', 'sent', 'accepted', 'rejected', 'expired');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS routes (
		id UUID PRIMARY KEY,
		origin_address TEXT NOT NULL,
		origin_lat DOUBLE PRECISION NOT NULL,
		origin_lon DOUBLE PRECISION NOT NULL,
		destination_address TEXT NOT NULL,
		destination_lat DOUBLE PRECISION NOT NULL,
		destination_lon DOUBLE PRECISION NOT NULL,
		pickup_time TIMESTAMPTZ NOT NULL,
		delivery_time TIMESTAMPTZ NOT NULL,
		empty_driving JSONB NOT NULL,
		main_route JSONB NOT NULL,
		timeline JSONB NOT NULL,
		cargo JSONB,
		transport_type JSONB,
		total_duration_hours DOUBLE PRECISION NOT NULL,
		is_feasible BOOLEAN NOT NULL,
		duration_validation BOOLEAN NOT NULL,
		cost_breakdown JSONB,
		total_cost NUMERIC(18,2) NOT NULL DEFAULT 0,
		currency VARCHAR(3) NOT NULL DEFAULT 'EUR',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS cost_settings (
		id UUID PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		type VARCHAR(32) NOT NULL,
		category VARCHAR(32) NOT NULL,
		base_value NUMERIC(18,4) NOT NULL,
		multiplier NUMERIC(10,4) NOT NULL DEFAULT 1,
		currency VARCHAR(3) NOT NULL DEFAULT 'EUR',
		is_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_cost_settings_enabled ON cost_settings (is_enabled);`,
	`CREATE TABLE IF NOT EXISTS offers (
		id UUID PRIMARY KEY,
		route_id UUID NOT NULL REFERENCES routes(id),
		client_id UUID,
		client_name TEXT,
		cost_breakdown JSONB NOT NULL,
		margin_percentage NUMERIC(5,2) NOT NULL,
		final_price NUMERIC(18,2) NOT NULL,
		currency VARCHAR(3) NOT NULL,
		status offer_status NOT NULL DEFAULT 'draft',
		version INTEGER NOT NULL DEFAULT 1,
		created_by TEXT NOT NULL,
		updated_by TEXT NOT NULL,
		countries TEXT NOT NULL DEFAULT '',
		regions TEXT NOT NULL DEFAULT '',
		geographic_restrictions JSONB,
		business_rules JSONB,
		insight TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_offers_route_id ON offers (route_id);`,
	`CREATE INDEX IF NOT EXISTS idx_offers_status ON offers (status);`,
	`CREATE INDEX IF NOT EXISTS idx_offers_client_id ON offers (client_id) WHERE client_id IS NOT NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_offers_created_at ON offers (created_at);`,
	`CREATE TABLE IF NOT EXISTS offer_versions (
		id UUID PRIMARY KEY,
		offer_id UUID NOT NULL REFERENCES offers(id) ON DELETE CASCADE,
		version INTEGER NOT NULL,
		snapshot JSONB NOT NULL,
		changed_by TEXT NOT NULL,
		reason TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_offer_versions ON offer_versions (offer_id, version);`,
	`CREATE TABLE IF NOT EXISTS offer_events (
		id UUID PRIMARY KEY,
		offer_id UUID NOT NULL REFERENCES offers(id) ON DELETE CASCADE,
		event_type VARCHAR(64) NOT NULL,
		payload JSONB NOT NULL DEFAULT '{}',
		created_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_offer_events_offer_id ON offer_events (offer_id);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
