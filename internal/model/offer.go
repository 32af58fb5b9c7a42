package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type OfferStatus string

const (
	OfferStatusDraft    OfferStatus = "draft"
	OfferStatusPending  OfferStatus = "pending"
	OfferStatusSent     OfferStatus = "sent"
	OfferStatusAccepted OfferStatus = "accepted"
	OfferStatusRejected OfferStatus = "rejected"
	OfferStatusExpired  OfferStatus = "expired"
)

// statusTransitions is the full lifecycle table. Rejected and expired are
// absorbing states.
var statusTransitions = map[OfferStatus][]OfferStatus{
	OfferStatusDraft:    {OfferStatusPending},
	OfferStatusPending:  {OfferStatusSent, OfferStatusExpired},
	OfferStatusSent:     {OfferStatusAccepted, OfferStatusRejected, OfferStatusExpired},
	OfferStatusAccepted: {OfferStatusExpired},
	OfferStatusRejected: {},
	OfferStatusExpired:  {},
}

func ParseOfferStatus(raw string) (OfferStatus, error) {
	status := OfferStatus(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := statusTransitions[status]; !ok {
		return "", fmt.Errorf("unknown offer status %q", raw)
	}
	return status, nil
}

type GeographicRestriction struct {
	AllowedCountries []string `json:"allowed_countries"`
	AllowedRegions   []string `json:"allowed_regions"`
	RestrictedZones  []string `json:"restricted_zones"`
}

// OfferVersion is one entry of the append-only audit trail. Snapshot holds
// the offer state as it was before the change that produced this version.
type OfferVersion struct {
	ID        uuid.UUID     `json:"id"`
	OfferID   uuid.UUID     `json:"offer_id"`
	Version   int           `json:"version"`
	Snapshot  OfferSnapshot `json:"snapshot"`
	ChangedBy string        `json:"changed_by"`
	Reason    string        `json:"reason"`
	CreatedAt time.Time     `json:"created_at"`
}

type OfferSnapshot struct {
	Status           OfferStatus   `json:"status"`
	MarginPercentage float64       `json:"margin_percentage"`
	FinalPrice       float64       `json:"final_price"`
	Currency         string        `json:"currency"`
	ClientName       string        `json:"client_name,omitempty"`
	CostBreakdown    CostBreakdown `json:"cost_breakdown"`
}

type OfferEvent struct {
	ID        uuid.UUID         `json:"id"`
	OfferID   uuid.UUID         `json:"offer_id"`
	EventType string            `json:"event_type"`
	Payload   map[string]string `json:"payload"`
	CreatedBy string            `json:"created_by"`
	CreatedAt time.Time         `json:"created_at"`
}

type Offer struct {
	ID                      uuid.UUID              `json:"id"`
	RouteID                 uuid.UUID              `json:"route_id"`
	ClientID                *uuid.UUID             `json:"client_id,omitempty"`
	ClientName              string                 `json:"client_name,omitempty"`
	CostBreakdown           CostBreakdown          `json:"cost_breakdown"`
	MarginPercentage        float64                `json:"margin_percentage"`
	FinalPrice              float64                `json:"final_price"`
	Currency                string                 `json:"currency"`
	Status                  OfferStatus            `json:"status"`
	Version                 int                    `json:"version"`
	CreatedBy               string                 `json:"created_by"`
	UpdatedBy               string                 `json:"updated_by"`
	CreatedAt               time.Time              `json:"created_at"`
	UpdatedAt               time.Time              `json:"updated_at"`
	Countries               []string               `json:"countries,omitempty"`
	GeographicRestrictions  *GeographicRestriction `json:"geographic_restrictions,omitempty"`
	BusinessRulesValidation map[string]bool        `json:"business_rules_validation,omitempty"`
	Insight                 string                 `json:"insight,omitempty"`
	VersionHistory          []OfferVersion         `json:"version_history,omitempty"`
}

// CanTransitionTo reports whether the lifecycle table allows moving to the
// target status, with a caller-facing message on refusal.
func (o *Offer) CanTransitionTo(target OfferStatus) (bool, string) {
	for _, allowed := range statusTransitions[o.Status] {
		if allowed == target {
			return true, ""
		}
	}
	return false, fmt.Sprintf("Invalid status transition from %s to %s", o.Status, target)
}

// Snapshot captures the current pricing state for the version log.
func (o *Offer) Snapshot() OfferSnapshot {
	return OfferSnapshot{
		Status:           o.Status,
		MarginPercentage: o.MarginPercentage,
		FinalPrice:       o.FinalPrice,
		Currency:         o.Currency,
		ClientName:       o.ClientName,
		CostBreakdown:    o.CostBreakdown,
	}
}

// Validate returns every problem with the offer at once so callers can
// surface the complete set, not just the first.
func (o *Offer) Validate() []string {
	var problems []string
	if o.MarginPercentage < 0 || o.MarginPercentage > 100 {
		problems = append(problems, fmt.Sprintf("margin percentage %.2f outside [0, 100]", o.MarginPercentage))
	}
	if o.FinalPrice <= 0 {
		problems = append(problems, fmt.Sprintf("final price %.2f must be positive", o.FinalPrice))
	}
	if err := o.CostBreakdown.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if o.GeographicRestrictions != nil &&
		len(o.GeographicRestrictions.AllowedCountries) == 0 &&
		len(o.GeographicRestrictions.AllowedRegions) == 0 {
		problems = append(problems, "geographic restrictions present but no allowed countries or regions")
	}
	var failedRules []string
	for rule, passed := range o.BusinessRulesValidation {
		if !passed {
			failedRules = append(failedRules, rule)
		}
	}
	sort.Strings(failedRules)
	if len(failedRules) > 0 {
		problems = append(problems, fmt.Sprintf("business rules failed: %s", strings.Join(failedRules, ", ")))
	}
	return problems
}
