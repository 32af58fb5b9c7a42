package model

// QuoteDocument bundles everything the export generators need to render a
// customer-facing quote.
type QuoteDocument struct {
	Offer Offer
	Route Route
}
