package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionToClosure(t *testing.T) {
	all := []OfferStatus{
		OfferStatusDraft, OfferStatusPending, OfferStatusSent,
		OfferStatusAccepted, OfferStatusRejected, OfferStatusExpired,
	}
	allowed := map[OfferStatus]map[OfferStatus]bool{
		OfferStatusDraft:    {OfferStatusPending: true},
		OfferStatusPending:  {OfferStatusSent: true, OfferStatusExpired: true},
		OfferStatusSent:     {OfferStatusAccepted: true, OfferStatusRejected: true, OfferStatusExpired: true},
		OfferStatusAccepted: {OfferStatusExpired: true},
		OfferStatusRejected: {},
		OfferStatusExpired:  {},
	}

	for _, from := range all {
		for _, to := range all {
			offer := Offer{Status: from}
			ok, msg := offer.CanTransitionTo(to)
			assert.Equal(t, allowed[from][to], ok, "%s -> %s", from, to)
			if !ok {
				assert.NotEmpty(t, msg)
			}
		}
	}
}

func TestCanTransitionToMessage(t *testing.T) {
	offer := Offer{Status: OfferStatusSent}
	ok, msg := offer.CanTransitionTo(OfferStatusDraft)
	assert.False(t, ok)
	assert.Equal(t, "Invalid status transition from sent to draft", msg)
}

func TestParseOfferStatus(t *testing.T) {
	status, err := ParseOfferStatus("  Pending ")
	require.NoError(t, err)
	assert.Equal(t, OfferStatusPending, status)

	_, err = ParseOfferStatus("archived")
	require.Error(t, err)
}

func TestOfferSnapshotCapturesPricingState(t *testing.T) {
	offer := Offer{
		Status:           OfferStatusSent,
		MarginPercentage: 12.5,
		FinalPrice:       1125,
		Currency:         "EUR",
		ClientName:       "ACME",
		CostBreakdown:    CostBreakdown{TotalCost: 1000, BaseCosts: map[string]float64{"Insurance": 1000}},
	}
	snap := offer.Snapshot()
	assert.Equal(t, OfferStatusSent, snap.Status)
	assert.Equal(t, 12.5, snap.MarginPercentage)
	assert.Equal(t, 1125.0, snap.FinalPrice)
	assert.Equal(t, "ACME", snap.ClientName)
	assert.Equal(t, 1000.0, snap.CostBreakdown.TotalCost)
}

func validOffer() Offer {
	return Offer{
		Status:           OfferStatusDraft,
		MarginPercentage: 15,
		FinalPrice:       1150,
		Currency:         "EUR",
		CostBreakdown: CostBreakdown{
			BaseCosts: map[string]float64{"Insurance": 1000},
			TotalCost: 1000,
		},
	}
}

func TestOfferValidate(t *testing.T) {
	offer := validOffer()
	assert.Empty(t, offer.Validate())

	t.Run("collects every problem at once", func(t *testing.T) {
		offer := validOffer()
		offer.MarginPercentage = 150
		offer.FinalPrice = 0
		offer.CostBreakdown.TotalCost = 900

		problems := offer.Validate()
		assert.Len(t, problems, 3)
	})

	t.Run("empty geographic restrictions", func(t *testing.T) {
		offer := validOffer()
		offer.GeographicRestrictions = &GeographicRestriction{}
		problems := offer.Validate()
		require.Len(t, problems, 1)
		assert.Contains(t, problems[0], "geographic restrictions")
	})

	t.Run("failed business rules listed sorted", func(t *testing.T) {
		offer := validOffer()
		offer.BusinessRulesValidation = map[string]bool{
			"minimum_margin": false,
			"valid_currency": true,
			"maximum_margin": false,
		}
		problems := offer.Validate()
		require.Len(t, problems, 1)
		assert.Equal(t, "business rules failed: maximum_margin, minimum_margin", problems[0])
	})
}
