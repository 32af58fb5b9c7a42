package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ainur/freight-quotes/internal/insights"
	"github.com/ainur/freight-quotes/internal/metrics"
	"github.com/ainur/freight-quotes/internal/model"
)

// Business-rule bounds applied at offer generation.
const (
	minOfferMarginPercentage = 5.0
	maxOfferMarginPercentage = 50.0
	minOfferTotalCost        = 100.0
)

var offerCurrencies = map[string]struct{}{"EUR": {}, "USD": {}, "GBP": {}}

type OfferFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	MinPrice  *float64
	MaxPrice  *float64
	Status    *model.OfferStatus
	Currency  string
	Countries []string
	Regions   []string
	ClientID  *uuid.UUID
	Limit     int
	Offset    int
}

type OfferRepository interface {
	// Create persists the offer together with its initial version snapshot
	// and creation event in one transaction.
	Create(ctx context.Context, offer *model.Offer, initial model.OfferVersion, event model.OfferEvent) error
	Get(ctx context.Context, id uuid.UUID) (*model.Offer, error)
	// Save applies the mutated offer only if the stored version still equals
	// expectedVersion, appending the version entry and event atomically.
	// Returns ErrVersionConflict when the row moved on.
	Save(ctx context.Context, offer *model.Offer, expectedVersion int, entry model.OfferVersion, event model.OfferEvent) error
	List(ctx context.Context, filter OfferFilter) ([]model.Offer, int64, error)
	ListVersions(ctx context.Context, offerID uuid.UUID) ([]model.OfferVersion, error)
}

// OfferService prices cost breakdowns into offers and governs their
// lifecycle: status machine, version history, optimistic concurrency.
type OfferService struct {
	offers   OfferRepository
	routes   RouteRepository
	settings CostSettingRepository
	costs    *CostService
	advisor  *Optimizer
	insight  insights.Provider
	log      zerolog.Logger
	sink     metrics.Sink
}

func NewOfferService(
	offers OfferRepository,
	routes RouteRepository,
	settings CostSettingRepository,
	costs *CostService,
	advisor *Optimizer,
	insight insights.Provider,
	log zerolog.Logger,
	sink metrics.Sink,
) *OfferService {
	if insight == nil {
		insight = insights.Static{}
	}
	if sink == nil {
		sink = metrics.Noop{}
	}
	return &OfferService{
		offers:   offers,
		routes:   routes,
		settings: settings,
		costs:    costs,
		advisor:  advisor,
		insight:  insight,
		log:      log,
		sink:     sink,
	}
}

type GenerateOfferInput struct {
	RouteID                uuid.UUID
	MarginPercentage       float64
	Currency               string
	ClientID               *uuid.UUID
	ClientName             string
	GeographicRestrictions *model.GeographicRestriction
	UserID                 string
}

// Generate computes the cost breakdown for the route, applies the margin
// and persists a DRAFT offer at version 1 with its initial version
// snapshot. Insight-provider failures degrade to a default message.
func (s *OfferService) Generate(ctx context.Context, input GenerateOfferInput) (*model.Offer, error) {
	started := time.Now()

	route, err := s.routes.Get(ctx, input.RouteID)
	if err != nil {
		return nil, fmt.Errorf("load route %s: %w", input.RouteID, err)
	}

	settings, err := s.settings.ListEnabled(ctx)
	if err != nil {
		return nil, &CostCalculationError{Op: "load cost settings", Cause: err}
	}

	breakdown, err := s.costs.Calculate(route, settings)
	if err != nil {
		return nil, err
	}
	if err := breakdown.Validate(); err != nil {
		return nil, &CostCalculationError{Op: "validate breakdown", Cause: err}
	}
	if breakdown.TotalCost <= 0 {
		return nil, &BusinessRuleError{
			Code:    "NON_POSITIVE_COST",
			Message: fmt.Sprintf("cost breakdown total %.2f must be positive", breakdown.TotalCost),
		}
	}

	rules := evaluateBusinessRules(input.MarginPercentage, breakdown.TotalCost, input.Currency, input.GeographicRestrictions)
	if failed := failedRules(rules); len(failed) > 0 {
		return nil, &BusinessRuleError{
			Code:    "BUSINESS_RULES_FAILED",
			Message: "offer violates business rules: " + strings.Join(failed, ", "),
		}
	}

	now := time.Now().UTC()
	offer := &model.Offer{
		ID:                      uuid.New(),
		RouteID:                 route.ID,
		ClientID:                input.ClientID,
		ClientName:              input.ClientName,
		CostBreakdown:           *breakdown,
		MarginPercentage:        input.MarginPercentage,
		FinalPrice:              breakdown.TotalCost * (1 + input.MarginPercentage/100),
		Currency:                input.Currency,
		Status:                  model.OfferStatusDraft,
		Version:                 1,
		CreatedBy:               input.UserID,
		UpdatedBy:               input.UserID,
		CreatedAt:               now,
		UpdatedAt:               now,
		Countries:               route.Countries(),
		GeographicRestrictions:  input.GeographicRestrictions,
		BusinessRulesValidation: rules,
	}

	if problems := offer.Validate(); len(problems) > 0 {
		return nil, &BusinessRuleError{
			Code:    "OFFER_VALIDATION_FAILED",
			Message: "offer validation failed: " + strings.Join(problems, "; "),
		}
	}

	offer.Insight = s.fetchInsight(ctx, route, *breakdown)

	// Advisory only; pattern analysis never blocks or fails pricing.
	if s.advisor != nil {
		patterns := s.advisor.AnalyzePatterns(ctx, route, nil, 0)
		s.log.Debug().
			Str("route_id", route.ID.String()).
			Int("patterns", len(patterns)).
			Msg("cost patterns analyzed for offer")
	}

	initial := model.OfferVersion{
		ID:        uuid.New(),
		OfferID:   offer.ID,
		Version:   1,
		Snapshot:  offer.Snapshot(),
		ChangedBy: input.UserID,
		Reason:    "Initial offer creation",
		CreatedAt: now,
	}
	event := model.OfferEvent{
		ID:        uuid.New(),
		OfferID:   offer.ID,
		EventType: "offer_created",
		Payload:   map[string]string{"route_id": route.ID.String()},
		CreatedBy: input.UserID,
		CreatedAt: now,
	}
	if err := s.offers.Create(ctx, offer, initial, event); err != nil {
		return nil, fmt.Errorf("persist offer: %w", err)
	}

	if err := s.routes.AttachCosts(ctx, route.ID, *breakdown, input.Currency); err != nil {
		// The offer itself is already durable; losing the route-side copy
		// is not fatal.
		s.log.Warn().Err(err).Str("route_id", route.ID.String()).Msg("attach costs to route failed")
	}

	s.sink.Timing("offers.generate_duration", time.Since(started), nil)
	s.sink.Counter("offers.generated", nil)
	s.log.Info().
		Str("offer_id", offer.ID.String()).
		Str("route_id", route.ID.String()).
		Float64("final_price", offer.FinalPrice).
		Msg("offer generated")
	return offer, nil
}

// fetchInsight asks the external provider and falls back to the default
// message; offer generation never fails because of it.
func (s *OfferService) fetchInsight(ctx context.Context, route *model.Route, breakdown model.CostBreakdown) string {
	text, err := s.insight.OfferInsight(ctx, route, breakdown)
	if err != nil {
		s.sink.Counter("offers.insight_failures", nil)
		s.log.Warn().Err(err).Str("route_id", route.ID.String()).Msg("insight provider failed, using default")
		return insights.DefaultMessage
	}
	return text
}

// OfferChanges is the set of fields an update may touch. Nil pointers are
// left untouched.
type OfferChanges struct {
	Status                 *model.OfferStatus
	MarginPercentage       *float64
	ClientName             *string
	GeographicRestrictions *model.GeographicRestriction
}

// Update applies changes under optimistic concurrency: expectedVersion must
// equal the stored version or the update is rejected with
// ErrVersionConflict. Each accepted update increments the version and
// appends exactly one snapshot of the prior state to the history.
func (s *OfferService) Update(ctx context.Context, offerID uuid.UUID, changes OfferChanges, expectedVersion int, userID, reason string) (*model.Offer, error) {
	offer, err := s.offers.Get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.Version != expectedVersion {
		return nil, fmt.Errorf("%w: offer %s is at version %d, caller read %d",
			ErrVersionConflict, offerID, offer.Version, expectedVersion)
	}

	prior := offer.Snapshot()

	if changes.Status != nil {
		if ok, msg := offer.CanTransitionTo(*changes.Status); !ok {
			return nil, &BusinessRuleError{Code: "INVALID_STATUS_TRANSITION", Message: msg}
		}
		offer.Status = *changes.Status
	}
	if changes.MarginPercentage != nil {
		offer.MarginPercentage = *changes.MarginPercentage
		offer.FinalPrice = offer.CostBreakdown.TotalCost * (1 + offer.MarginPercentage/100)
	}
	if changes.ClientName != nil {
		offer.ClientName = *changes.ClientName
	}
	if changes.GeographicRestrictions != nil {
		offer.GeographicRestrictions = changes.GeographicRestrictions
	}

	if problems := offer.Validate(); len(problems) > 0 {
		return nil, &BusinessRuleError{
			Code:    "OFFER_VALIDATION_FAILED",
			Message: "offer validation failed: " + strings.Join(problems, "; "),
		}
	}

	now := time.Now().UTC()
	offer.Version++
	offer.UpdatedAt = now
	offer.UpdatedBy = userID

	entry := model.OfferVersion{
		ID:        uuid.New(),
		OfferID:   offer.ID,
		Version:   offer.Version,
		Snapshot:  prior,
		ChangedBy: userID,
		Reason:    reason,
		CreatedAt: now,
	}
	event := model.OfferEvent{
		ID:        uuid.New(),
		OfferID:   offer.ID,
		EventType: "offer_updated",
		Payload:   map[string]string{"reason": reason},
		CreatedBy: userID,
		CreatedAt: now,
	}
	if err := s.offers.Save(ctx, offer, expectedVersion, entry, event); err != nil {
		return nil, err
	}

	s.sink.Counter("offers.updated", nil)
	return offer, nil
}

// UpdateStatus is the status-only update path.
func (s *OfferService) UpdateStatus(ctx context.Context, offerID uuid.UUID, status model.OfferStatus, expectedVersion int, userID string) (*model.Offer, error) {
	return s.Update(ctx, offerID, OfferChanges{Status: &status}, expectedVersion, userID, fmt.Sprintf("Status changed to %s", status))
}

// Delete soft-deletes by transitioning to EXPIRED through the regular
// lifecycle table; offers in a terminal status cannot be deleted again.
func (s *OfferService) Delete(ctx context.Context, offerID uuid.UUID, userID, reason string) error {
	offer, err := s.offers.Get(ctx, offerID)
	if err != nil {
		return err
	}
	expired := model.OfferStatusExpired
	_, err = s.Update(ctx, offerID, OfferChanges{Status: &expired}, offer.Version, userID, reason)
	if err != nil {
		return err
	}
	s.sink.Counter("offers.deleted", nil)
	return nil
}

func (s *OfferService) Get(ctx context.Context, offerID uuid.UUID, includeHistory bool) (*model.Offer, error) {
	offer, err := s.offers.Get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if includeHistory {
		history, err := s.offers.ListVersions(ctx, offerID)
		if err != nil {
			return nil, err
		}
		offer.VersionHistory = history
	}
	return offer, nil
}

// Document assembles the printable quote for an offer together with its
// route timeline.
func (s *OfferService) Document(ctx context.Context, offerID uuid.UUID) (*model.QuoteDocument, error) {
	offer, err := s.offers.Get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	route, err := s.routes.Get(ctx, offer.RouteID)
	if err != nil {
		return nil, err
	}
	return &model.QuoteDocument{Offer: *offer, Route: *route}, nil
}

func (s *OfferService) List(ctx context.Context, filter OfferFilter) ([]model.Offer, int64, error) {
	if filter.Limit <= 0 {
		filter.Limit = 10
	}
	return s.offers.List(ctx, filter)
}

func evaluateBusinessRules(margin, totalCost float64, currency string, geo *model.GeographicRestriction) map[string]bool {
	_, currencyOK := offerCurrencies[currency]
	rules := map[string]bool{
		"minimum_margin":     margin >= minOfferMarginPercentage,
		"maximum_margin":     margin <= maxOfferMarginPercentage,
		"minimum_total_cost": totalCost >= minOfferTotalCost,
		"valid_currency":     currencyOK,
	}
	if geo != nil {
		rules["geographic_restrictions_valid"] = len(geo.AllowedCountries) > 0 || len(geo.AllowedRegions) > 0
	}
	return rules
}

func failedRules(rules map[string]bool) []string {
	var failed []string
	for rule, passed := range rules {
		if !passed {
			failed = append(failed, rule)
		}
	}
	sort.Strings(failed)
	return failed
}
