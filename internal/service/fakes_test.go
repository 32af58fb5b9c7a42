package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ainur/freight-quotes/internal/model"
)

type fakeRouteRepo struct {
	routes      map[uuid.UUID]*model.Route
	createErr   error
	attachErr   error
	attachCalls int
}

func newFakeRouteRepo(routes ...*model.Route) *fakeRouteRepo {
	repo := &fakeRouteRepo{routes: make(map[uuid.UUID]*model.Route)}
	for _, r := range routes {
		repo.routes[r.ID] = r
	}
	return repo
}

func (f *fakeRouteRepo) Create(_ context.Context, route *model.Route) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.routes == nil {
		f.routes = make(map[uuid.UUID]*model.Route)
	}
	f.routes[route.ID] = route
	return nil
}

func (f *fakeRouteRepo) Get(_ context.Context, id uuid.UUID) (*model.Route, error) {
	route, ok := f.routes[id]
	if !ok {
		return nil, fmt.Errorf("%w: route %s", ErrNotFound, id)
	}
	copied := *route
	return &copied, nil
}

func (f *fakeRouteRepo) AttachCosts(_ context.Context, id uuid.UUID, breakdown model.CostBreakdown, currency string) error {
	f.attachCalls++
	if f.attachErr != nil {
		return f.attachErr
	}
	route, ok := f.routes[id]
	if !ok {
		return fmt.Errorf("%w: route %s", ErrNotFound, id)
	}
	route.CostBreakdown = &breakdown
	route.TotalCost = breakdown.TotalCost
	route.Currency = currency
	return nil
}

type fakeOfferRepo struct {
	offers   map[uuid.UUID]model.Offer
	versions map[uuid.UUID][]model.OfferVersion
	events   map[uuid.UUID][]model.OfferEvent
	saveErr  error
}

func newFakeOfferRepo() *fakeOfferRepo {
	return &fakeOfferRepo{
		offers:   make(map[uuid.UUID]model.Offer),
		versions: make(map[uuid.UUID][]model.OfferVersion),
		events:   make(map[uuid.UUID][]model.OfferEvent),
	}
}

func (f *fakeOfferRepo) Create(_ context.Context, offer *model.Offer, initial model.OfferVersion, event model.OfferEvent) error {
	f.offers[offer.ID] = *offer
	f.versions[offer.ID] = append(f.versions[offer.ID], initial)
	f.events[offer.ID] = append(f.events[offer.ID], event)
	return nil
}

func (f *fakeOfferRepo) Get(_ context.Context, id uuid.UUID) (*model.Offer, error) {
	offer, ok := f.offers[id]
	if !ok {
		return nil, fmt.Errorf("%w: offer %s", ErrNotFound, id)
	}
	return &offer, nil
}

func (f *fakeOfferRepo) Save(_ context.Context, offer *model.Offer, expectedVersion int, entry model.OfferVersion, event model.OfferEvent) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	stored, ok := f.offers[offer.ID]
	if !ok {
		return fmt.Errorf("%w: offer %s", ErrNotFound, offer.ID)
	}
	if stored.Version != expectedVersion {
		return fmt.Errorf("%w: offer %s is at version %d, caller read %d",
			ErrVersionConflict, offer.ID, stored.Version, expectedVersion)
	}
	f.offers[offer.ID] = *offer
	f.versions[offer.ID] = append(f.versions[offer.ID], entry)
	f.events[offer.ID] = append(f.events[offer.ID], event)
	return nil
}

func (f *fakeOfferRepo) List(_ context.Context, filter OfferFilter) ([]model.Offer, int64, error) {
	var out []model.Offer
	for _, offer := range f.offers {
		if filter.Status != nil && offer.Status != *filter.Status {
			continue
		}
		out = append(out, offer)
	}
	return out, int64(len(out)), nil
}

func (f *fakeOfferRepo) ListVersions(_ context.Context, offerID uuid.UUID) ([]model.OfferVersion, error) {
	return f.versions[offerID], nil
}

type fakeSettingsRepo struct {
	settings   []model.CostSetting
	listErr    error
	replaceErr error
	replaced   int
}

func (f *fakeSettingsRepo) List(context.Context) ([]model.CostSetting, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.settings, nil
}

func (f *fakeSettingsRepo) ListEnabled(context.Context) ([]model.CostSetting, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var enabled []model.CostSetting
	for _, s := range f.settings {
		if s.IsEnabled {
			enabled = append(enabled, s)
		}
	}
	return enabled, nil
}

func (f *fakeSettingsRepo) ReplaceBatch(_ context.Context, settings []model.CostSetting) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.replaced++
	f.settings = settings
	return nil
}

type failingInsightProvider struct{ err error }

func (p failingInsightProvider) OfferInsight(context.Context, *model.Route, model.CostBreakdown) (string, error) {
	return "", p.err
}
