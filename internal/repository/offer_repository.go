package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ainur/freight-quotes/internal/model"
	"github.com/ainur/freight-quotes/internal/service"
)

type OfferRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

type offerRow struct {
	ID                     uuid.UUID
	RouteID                uuid.UUID
	ClientID               *uuid.UUID
	ClientName             *string
	CostBreakdown          string
	MarginPercentage       float64
	FinalPrice             float64
	Currency               string
	Status                 string
	Version                int
	CreatedBy              string
	UpdatedBy              string
	Countries              string
	GeographicRestrictions *string
	BusinessRules          *string
	Insight                *string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

const offerColumns = `
	id, route_id, client_id, client_name, cost_breakdown, margin_percentage,
	final_price, currency, status::text AS status, version, created_by, updated_by,
	countries, geographic_restrictions, business_rules, insight, created_at, updated_at`

// Create persists the offer, its initial version snapshot and the creation
// event in one transaction.
func (r *OfferRepository) Create(ctx context.Context, offer *model.Offer, initial model.OfferVersion, event model.OfferEvent) error {
	encoded, err := encodeOffer(offer)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Exec(`
			INSERT INTO offers
				(id, route_id, client_id, client_name, cost_breakdown,
				 margin_percentage, final_price, currency, status, version,
				 created_by, updated_by, countries, regions,
				 geographic_restrictions, business_rules, insight,
				 created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?::offer_status, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, offer.ID, offer.RouteID, offer.ClientID, offer.ClientName, encoded.breakdown,
			offer.MarginPercentage, offer.FinalPrice, offer.Currency, string(offer.Status), offer.Version,
			offer.CreatedBy, offer.UpdatedBy, padList(offer.Countries), padList(allowedRegions(offer)),
			encoded.geo, encoded.rules, offer.Insight,
			offer.CreatedAt, offer.UpdatedAt).Error
		if err != nil {
			return err
		}
		if err := insertVersion(tx, initial); err != nil {
			return err
		}
		return insertEvent(tx, event)
	})
}

// Save applies the mutated offer under optimistic concurrency: the UPDATE
// only matches when the stored version still equals expectedVersion.
func (r *OfferRepository) Save(ctx context.Context, offer *model.Offer, expectedVersion int, entry model.OfferVersion, event model.OfferEvent) error {
	encoded, err := encodeOffer(offer)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(`
			UPDATE offers SET
				client_name = ?,
				cost_breakdown = ?,
				margin_percentage = ?,
				final_price = ?,
				currency = ?,
				status = ?::offer_status,
				version = ?,
				updated_by = ?,
				regions = ?,
				geographic_restrictions = ?,
				business_rules = ?,
				updated_at = ?
			WHERE id = ? AND version = ?
		`, offer.ClientName, encoded.breakdown, offer.MarginPercentage, offer.FinalPrice,
			offer.Currency, string(offer.Status), offer.Version, offer.UpdatedBy,
			padList(allowedRegions(offer)), encoded.geo, encoded.rules, offer.UpdatedAt,
			offer.ID, expectedVersion)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var exists bool
			if err := tx.Raw(`SELECT EXISTS (SELECT 1 FROM offers WHERE id = ?)`, offer.ID).Scan(&exists).Error; err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("%w: offer %s", service.ErrNotFound, offer.ID)
			}
			return fmt.Errorf("%w: offer %s moved past version %d", service.ErrVersionConflict, offer.ID, expectedVersion)
		}
		if err := insertVersion(tx, entry); err != nil {
			return err
		}
		return insertEvent(tx, event)
	})
}

func (r *OfferRepository) Get(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	var row offerRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+offerColumns+`
		FROM offers
		WHERE id = ?
	`, id).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: offer %s", service.ErrNotFound, id)
	}
	return decodeOffer(row)
}

func (r *OfferRepository) List(ctx context.Context, filter service.OfferFilter) ([]model.Offer, int64, error) {
	where, args := buildOfferFilter(filter)

	var total int64
	if err := r.db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM offers`+where, args...).Scan(&total).Error; err != nil {
		return nil, 0, err
	}

	listArgs := append(append([]interface{}{}, args...), filter.Limit, filter.Offset)
	var rows []offerRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+offerColumns+`
		FROM offers`+where+`
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, listArgs...).Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	offers := make([]model.Offer, 0, len(rows))
	for _, row := range rows {
		offer, err := decodeOffer(row)
		if err != nil {
			return nil, 0, err
		}
		offers = append(offers, *offer)
	}
	return offers, total, nil
}

func (r *OfferRepository) ListVersions(ctx context.Context, offerID uuid.UUID) ([]model.OfferVersion, error) {
	var rows []struct {
		ID        uuid.UUID
		OfferID   uuid.UUID
		Version   int
		Snapshot  string
		ChangedBy string
		Reason    string
		CreatedAt time.Time
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, offer_id, version, snapshot, changed_by, reason, created_at
		FROM offer_versions
		WHERE offer_id = ?
		ORDER BY version ASC
	`, offerID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	versions := make([]model.OfferVersion, 0, len(rows))
	for _, row := range rows {
		version := model.OfferVersion{
			ID:        row.ID,
			OfferID:   row.OfferID,
			Version:   row.Version,
			ChangedBy: row.ChangedBy,
			Reason:    row.Reason,
			CreatedAt: row.CreatedAt,
		}
		if err := json.Unmarshal([]byte(row.Snapshot), &version.Snapshot); err != nil {
			return nil, fmt.Errorf("decode version snapshot: %w", err)
		}
		versions = append(versions, version)
	}
	return versions, nil
}

func buildOfferFilter(filter service.OfferFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if filter.StartDate != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, *filter.EndDate)
	}
	if filter.MinPrice != nil {
		clauses = append(clauses, "final_price >= ?")
		args = append(args, *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		clauses = append(clauses, "final_price <= ?")
		args = append(args, *filter.MaxPrice)
	}
	if filter.Status != nil {
		clauses = append(clauses, "status = ?::offer_status")
		args = append(args, string(*filter.Status))
	}
	if filter.Currency != "" {
		clauses = append(clauses, "currency = ?")
		args = append(args, filter.Currency)
	}
	if filter.ClientID != nil {
		clauses = append(clauses, "client_id = ?")
		args = append(args, *filter.ClientID)
	}
	if len(filter.Countries) > 0 {
		var matches []string
		for _, country := range filter.Countries {
			matches = append(matches, "countries LIKE ?")
			args = append(args, "%,"+country+",%")
		}
		clauses = append(clauses, "("+strings.Join(matches, " OR ")+")")
	}
	if len(filter.Regions) > 0 {
		var matches []string
		for _, region := range filter.Regions {
			matches = append(matches, "regions LIKE ?")
			args = append(args, "%,"+region+",%")
		}
		clauses = append(clauses, "("+strings.Join(matches, " OR ")+")")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type encodedOffer struct {
	breakdown string
	geo       *string
	rules     *string
}

func encodeOffer(offer *model.Offer) (encodedOffer, error) {
	breakdown, err := json.Marshal(offer.CostBreakdown)
	if err != nil {
		return encodedOffer{}, fmt.Errorf("encode cost breakdown: %w", err)
	}
	var geo *string
	if offer.GeographicRestrictions != nil {
		raw, err := json.Marshal(offer.GeographicRestrictions)
		if err != nil {
			return encodedOffer{}, fmt.Errorf("encode geographic restrictions: %w", err)
		}
		text := string(raw)
		geo = &text
	}
	var rules *string
	if offer.BusinessRulesValidation != nil {
		raw, err := json.Marshal(offer.BusinessRulesValidation)
		if err != nil {
			return encodedOffer{}, fmt.Errorf("encode business rules: %w", err)
		}
		text := string(raw)
		rules = &text
	}
	return encodedOffer{breakdown: string(breakdown), geo: geo, rules: rules}, nil
}

func decodeOffer(row offerRow) (*model.Offer, error) {
	offer := &model.Offer{
		ID:               row.ID,
		RouteID:          row.RouteID,
		ClientID:         row.ClientID,
		MarginPercentage: row.MarginPercentage,
		FinalPrice:       row.FinalPrice,
		Currency:         row.Currency,
		Status:           model.OfferStatus(row.Status),
		Version:          row.Version,
		CreatedBy:        row.CreatedBy,
		UpdatedBy:        row.UpdatedBy,
		Countries:        unpadList(row.Countries),
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	if row.ClientName != nil {
		offer.ClientName = *row.ClientName
	}
	if row.Insight != nil {
		offer.Insight = *row.Insight
	}
	if err := json.Unmarshal([]byte(row.CostBreakdown), &offer.CostBreakdown); err != nil {
		return nil, fmt.Errorf("decode cost breakdown: %w", err)
	}
	if row.GeographicRestrictions != nil && *row.GeographicRestrictions != "" {
		if err := json.Unmarshal([]byte(*row.GeographicRestrictions), &offer.GeographicRestrictions); err != nil {
			return nil, fmt.Errorf("decode geographic restrictions: %w", err)
		}
	}
	if row.BusinessRules != nil && *row.BusinessRules != "" {
		if err := json.Unmarshal([]byte(*row.BusinessRules), &offer.BusinessRulesValidation); err != nil {
			return nil, fmt.Errorf("decode business rules: %w", err)
		}
	}
	return offer, nil
}

func insertVersion(tx *gorm.DB, entry model.OfferVersion) error {
	snapshot, err := json.Marshal(entry.Snapshot)
	if err != nil {
		return fmt.Errorf("encode version snapshot: %w", err)
	}
	return tx.Exec(`
		INSERT INTO offer_versions (id, offer_id, version, snapshot, changed_by, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.OfferID, entry.Version, string(snapshot), entry.ChangedBy, entry.Reason, entry.CreatedAt).Error
}

func insertEvent(tx *gorm.DB, event model.OfferEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("encode event payload: %w", err)
	}
	return tx.Exec(`
		INSERT INTO offer_events (id, offer_id, event_type, payload, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, event.ID, event.OfferID, event.EventType, string(payload), event.CreatedBy, event.CreatedAt).Error
}

// padList stores list values as ",a,b," so a LIKE '%,a,%' match cannot hit
// a substring of another entry.
func padList(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return "," + strings.Join(values, ",") + ","
}

func unpadList(raw string) []string {
	trimmed := strings.Trim(raw, ",")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, ",")
}

func allowedRegions(offer *model.Offer) []string {
	if offer.GeographicRestrictions == nil {
		return nil
	}
	return offer.GeographicRestrictions.AllowedRegions
}
