package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ainur/freight-quotes/internal/insights"
	"github.com/ainur/freight-quotes/internal/model"
)

type offerFixture struct {
	svc       *OfferService
	offerRepo *fakeOfferRepo
	routeRepo *fakeRouteRepo
	route     *model.Route
}

func newOfferFixture(t *testing.T, provider insights.Provider) *offerFixture {
	t.Helper()

	route := testRoute()
	routeRepo := newFakeRouteRepo(route)
	offerRepo := newFakeOfferRepo()
	now := time.Now().UTC()
	settingsRepo := &fakeSettingsRepo{settings: DefaultCostSettings(now)}

	svc := NewOfferService(
		offerRepo,
		routeRepo,
		settingsRepo,
		NewCostService(zerolog.Nop(), nil),
		nil,
		provider,
		zerolog.Nop(),
		nil,
	)
	return &offerFixture{svc: svc, offerRepo: offerRepo, routeRepo: routeRepo, route: route}
}

func (f *offerFixture) generate(t *testing.T, margin float64) *model.Offer {
	t.Helper()
	offer, err := f.svc.Generate(context.Background(), GenerateOfferInput{
		RouteID:          f.route.ID,
		MarginPercentage: margin,
		Currency:         "EUR",
		ClientName:       "ACME Logistics",
		UserID:           "user-1",
	})
	require.NoError(t, err)
	return offer
}

func TestGenerateOfferDraftVersionOne(t *testing.T) {
	f := newOfferFixture(t, insights.Static{})
	offer := f.generate(t, 15)

	assert.Equal(t, model.OfferStatusDraft, offer.Status)
	assert.Equal(t, 1, offer.Version)
	assert.InDelta(t, offer.CostBreakdown.TotalCost*1.15, offer.FinalPrice, 0.001)
	assert.Equal(t, []string{"DE"}, offer.Countries)
	assert.NotEmpty(t, offer.Insight)

	for rule, passed := range offer.BusinessRulesValidation {
		assert.True(t, passed, "rule %s failed", rule)
	}

	versions := f.offerRepo.versions[offer.ID]
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].Version)
	assert.Equal(t, "Initial offer creation", versions[0].Reason)
	assert.Equal(t, model.OfferStatusDraft, versions[0].Snapshot.Status)

	events := f.offerRepo.events[offer.ID]
	require.Len(t, events, 1)
	assert.Equal(t, "offer_created", events[0].EventType)

	// The route carries the computed breakdown afterwards.
	assert.Equal(t, 1, f.routeRepo.attachCalls)
	assert.NotNil(t, f.routeRepo.routes[f.route.ID].CostBreakdown)
}

func TestGenerateOfferBusinessRuleViolations(t *testing.T) {
	f := newOfferFixture(t, insights.Static{})

	tests := []struct {
		name   string
		input  GenerateOfferInput
		phrase string
	}{
		{
			name: "margin below minimum",
			input: GenerateOfferInput{
				RouteID: f.route.ID, MarginPercentage: 2, Currency: "EUR", UserID: "u",
			},
			phrase: "minimum_margin",
		},
		{
			name: "margin above maximum",
			input: GenerateOfferInput{
				RouteID: f.route.ID, MarginPercentage: 60, Currency: "EUR", UserID: "u",
			},
			phrase: "maximum_margin",
		},
		{
			name: "unsupported currency",
			input: GenerateOfferInput{
				RouteID: f.route.ID, MarginPercentage: 15, Currency: "JPY", UserID: "u",
			},
			phrase: "valid_currency",
		},
		{
			name: "empty geographic restrictions",
			input: GenerateOfferInput{
				RouteID: f.route.ID, MarginPercentage: 15, Currency: "EUR", UserID: "u",
				GeographicRestrictions: &model.GeographicRestriction{},
			},
			phrase: "geographic_restrictions_valid",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Generate(context.Background(), tt.input)
			require.Error(t, err)

			var ruleErr *BusinessRuleError
			require.ErrorAs(t, err, &ruleErr)
			assert.Equal(t, "BUSINESS_RULES_FAILED", ruleErr.Code)
			assert.Contains(t, ruleErr.Message, tt.phrase)
		})
	}
}

func TestGenerateOfferUnknownRoute(t *testing.T) {
	f := newOfferFixture(t, insights.Static{})

	_, err := f.svc.Generate(context.Background(), GenerateOfferInput{
		RouteID: uuid.New(), MarginPercentage: 15, Currency: "EUR", UserID: "u",
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGenerateOfferInsightFallback(t *testing.T) {
	f := newOfferFixture(t, failingInsightProvider{err: errors.New("provider down")})
	offer := f.generate(t, 15)
	assert.Equal(t, insights.DefaultMessage, offer.Insight)
}

func TestUpdateOfferAppendsPriorSnapshot(t *testing.T) {
	f := newOfferFixture(t, insights.Static{})
	offer := f.generate(t, 15)
	originalPrice := offer.FinalPrice

	newMargin := 20.0
	updated, err := f.svc.Update(context.Background(), offer.ID,
		OfferChanges{MarginPercentage: &newMargin}, 1, "user-2", "Margin renegotiated")
	require.NoError(t, err)

	assert.Equal(t, 2, updated.Version)
	assert.InDelta(t, updated.CostBreakdown.TotalCost*1.20, updated.FinalPrice, 0.001)
	assert.Equal(t, "user-2", updated.UpdatedBy)

	versions := f.offerRepo.versions[offer.ID]
	require.Len(t, versions, 2)
	// The new entry snapshots the state before the change.
	assert.Equal(t, 2, versions[1].Version)
	assert.InDelta(t, 15.0, versions[1].Snapshot.MarginPercentage, 0.001)
	assert.InDelta(t, originalPrice, versions[1].Snapshot.FinalPrice, 0.001)
	assert.Equal(t, "Margin renegotiated", versions[1].Reason)
}

func TestUpdateOfferVersionConflict(t *testing.T) {
	f := newOfferFixture(t, insights.Static{})
	offer := f.generate(t, 15)

	margin := 20.0
	_, err := f.svc.Update(context.Background(), offer.ID,
		OfferChanges{MarginPercentage: &margin}, 1, "user-2", "first writer")
	require.NoError(t, err)

	// Second writer still holds version 1.
	_, err = f.svc.Update(context.Background(), offer.ID,
		OfferChanges{MarginPercentage: &margin}, 1, "user-3", "stale writer")
	require.ErrorIs(t, err, ErrVersionConflict)

	assert.Len(t, f.offerRepo.versions[offer.ID], 2)
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newOfferFixture(t, insights.Static{})
	offer := f.generate(t, 15)

	offer, err := f.svc.UpdateStatus(context.Background(), offer.ID, model.OfferStatusPending, offer.Version, "u")
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusPending, offer.Status)

	offer, err = f.svc.UpdateStatus(context.Background(), offer.ID, model.OfferStatusSent, offer.Version, "u")
	require.NoError(t, err)

	// Sent cannot go back to draft.
	_, err = f.svc.UpdateStatus(context.Background(), offer.ID, model.OfferStatusDraft, offer.Version, "u")
	require.Error(t, err)

	var ruleErr *BusinessRuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "INVALID_STATUS_TRANSITION", ruleErr.Code)
	assert.Equal(t, "Invalid status transition from sent to draft", ruleErr.Message)
}

func TestDeleteOfferExpires(t *testing.T) {
	f := newOfferFixture(t, insights.Static{})
	offer := f.generate(t, 15)

	offer, err := f.svc.UpdateStatus(context.Background(), offer.ID, model.OfferStatusPending, offer.Version, "user-1")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), offer.ID, "user-1", "Client withdrew"))

	stored, err := f.svc.Get(context.Background(), offer.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusExpired, stored.Status)
	assert.Equal(t, 3, stored.Version)
	require.Len(t, stored.VersionHistory, 3)
	assert.Equal(t, "Client withdrew", stored.VersionHistory[2].Reason)

	// Expired is terminal, a second delete fails the transition check.
	err = f.svc.Delete(context.Background(), offer.ID, "user-1", "again")
	require.Error(t, err)

	// Draft offers have no path to expired, so they cannot be deleted.
	draft := f.generate(t, 15)
	err = f.svc.Delete(context.Background(), draft.ID, "user-1", "too early")
	require.Error(t, err)
}

func TestGetOfferHistoryOptIn(t *testing.T) {
	f := newOfferFixture(t, insights.Static{})
	offer := f.generate(t, 15)

	plain, err := f.svc.Get(context.Background(), offer.ID, false)
	require.NoError(t, err)
	assert.Nil(t, plain.VersionHistory)

	withHistory, err := f.svc.Get(context.Background(), offer.ID, true)
	require.NoError(t, err)
	assert.Len(t, withHistory.VersionHistory, 1)
}

func TestDocumentBundlesOfferAndRoute(t *testing.T) {
	f := newOfferFixture(t, insights.Static{})
	offer := f.generate(t, 15)

	doc, err := f.svc.Document(context.Background(), offer.ID)
	require.NoError(t, err)
	assert.Equal(t, offer.ID, doc.Offer.ID)
	assert.Equal(t, f.route.ID, doc.Route.ID)
}
