package domain

import "context"

// PlaceResolver resolves a hotel name/address pair to third-party place data.
type PlaceResolver interface {
	Resolve(ctx context.Context, name, address string) (PlaceInfo, error)
}

// ReviewSummarizer condenses raw review texts into a short narrative.
type ReviewSummarizer interface {
	Summarize(ctx context.Context, hotelName string, reviews []string) (string, error)
}

// TourSearcher is the search orchestration port consumed by the HTTP layer.
// Search returns a non-nil error only for authentication or configuration
// failures; upstream trouble degrades the result instead.
type TourSearcher interface {
	Search(ctx context.Context, criteria SearchCriteria) (SearchResult, error)
	TourByID(ctx context.Context, id string) (Tour, bool)
}

// TourEnricher fans out per-tour enrichment; it never fails the whole batch.
type TourEnricher interface {
	Enrich(ctx context.Context, tours []Tour) []EnrichedTour
}
