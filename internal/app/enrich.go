package app

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"globus_tours/internal/adapters/observability"
	"globus_tours/internal/cache"
	"globus_tours/internal/domain"
)

// amenityVocabulary maps provider category tags to the fixed amenity set.
// Unmapped tags are dropped.
var amenityVocabulary = map[string]string{
	"wifi":             "Free WiFi",
	"internet":         "Free WiFi",
	"restaurant":       "Restaurant",
	"food":             "Restaurant",
	"cafe":             "Restaurant",
	"bar":              "Bar",
	"swimming_pool":    "Swimming pool",
	"pool":             "Swimming pool",
	"spa":              "Spa",
	"gym":              "Gym",
	"fitness_center":   "Gym",
	"parking":          "Parking",
	"airport_shuttle":  "Airport shuttle",
	"air_conditioning": "Air conditioning",
}

// defaultAmenities is the domain fallback when no tag survives the mapping.
var defaultAmenities = []string{"Free WiFi", "Swimming pool", "Restaurant"}

// Enricher attaches third-party place data and an optional review summary to
// tours. The batch call fans out per-tour work concurrently and never fails
// because of one item: failed items keep their original tour fields.
type Enricher struct {
	places     domain.PlaceResolver
	summarizer domain.ReviewSummarizer // nil disables summaries
	store      cache.Store[domain.PlaceInfo]
	workers    int
}

func NewEnricher(places domain.PlaceResolver, summarizer domain.ReviewSummarizer,
	store cache.Store[domain.PlaceInfo], workers int) *Enricher {
	if workers <= 0 {
		workers = 8
	}
	return &Enricher{places: places, summarizer: summarizer, store: store, workers: workers}
}

// Enrich implements domain.TourEnricher. Each tour is handled by its own
// goroutine writing to its own slot; the group waits for all to settle.
func (e *Enricher) Enrich(ctx context.Context, tours []domain.Tour) []domain.EnrichedTour {
	out := make([]domain.EnrichedTour, len(tours))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, t := range tours {
		i, t := i, t
		g.Go(func() error {
			out[i] = e.enrichOne(ctx, t)
			return nil
		})
	}
	_ = g.Wait() // closures never return errors

	return out
}

func (e *Enricher) enrichOne(ctx context.Context, tour domain.Tour) domain.EnrichedTour {
	enriched := domain.EnrichedTour{Tour: tour}

	info, err := e.placeInfo(ctx, tour.Hotel)
	if err != nil {
		log.Warn().Err(err).Str("hotel", tour.Hotel.Name).Msg("enrichment failed, returning tour unenriched")
		observability.ObserveEnrichment("degraded")
		return enriched
	}
	enriched.Place = &info

	if e.summarizer != nil && len(info.Reviews) > 0 {
		summary, err := e.summarizer.Summarize(ctx, tour.Hotel.Name, info.Reviews)
		if err != nil {
			// place data stays attached; only the narrative is lost
			log.Warn().Err(err).Str("hotel", tour.Hotel.Name).Msg("review summary failed")
		} else {
			enriched.Summary = summary
		}
	}

	observability.ObserveEnrichment("ok")
	return enriched
}

// placeInfo returns cached place data for the hotel or looks it up, maps the
// provider tags to the amenity vocabulary and caches the assembled result.
func (e *Enricher) placeInfo(ctx context.Context, hotel domain.Hotel) (domain.PlaceInfo, error) {
	key, err := cache.Fingerprint(struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	}{hotel.Name, hotel.Address})
	if err != nil {
		return domain.PlaceInfo{}, err
	}

	if info, ok, _ := e.store.Get(ctx, key); ok {
		return info, nil
	}

	info, err := e.places.Resolve(ctx, hotel.Name, hotel.Address)
	if err != nil {
		return domain.PlaceInfo{}, err
	}
	info.Amenities = mapAmenities(info.Amenities)

	_ = e.store.Set(ctx, key, info)
	return info, nil
}

// mapAmenities translates raw provider tags into the fixed vocabulary,
// deduplicated. An empty mapped set falls back to the three defaults; that
// is a domain fallback, not an error path.
func mapAmenities(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	var out []string
	for _, tag := range tags {
		name, ok := amenityVocabulary[strings.ToLower(strings.TrimSpace(tag))]
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	if len(out) == 0 {
		out = append(out, defaultAmenities...)
	}
	sort.Strings(out)
	return out
}
