// Package insights wraps the external market-insight provider. The offer
// engine treats it as best effort: a failure here never blocks pricing.
package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/ainur/freight-quotes/internal/model"
)

// DefaultMessage is attached to an offer when the provider is unavailable.
const DefaultMessage = "Reliable freight transport across Europe."

type Provider interface {
	OfferInsight(ctx context.Context, route *model.Route, breakdown model.CostBreakdown) (string, error)
}

// Static is the built-in provider: a rule-based remark derived from the
// route itself. Stands in for the external AI integration.
type Static struct{}

func (Static) OfferInsight(_ context.Context, route *model.Route, _ model.CostBreakdown) (string, error) {
	countries := route.Countries()
	if len(countries) > 1 {
		return fmt.Sprintf("This %0.f km route crosses %s - border waiting times are already priced in.",
			route.TotalDistanceKm(), strings.Join(countries, ", ")), nil
	}
	return fmt.Sprintf("A %0.f km haul from %s to %s, planned within EU driving-time rules.",
		route.TotalDistanceKm(), route.Origin.Address, route.Destination.Address), nil
}
