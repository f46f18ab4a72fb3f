package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"globus_tours/internal/adapters/bgoperator"
	"globus_tours/internal/cache"
	"globus_tours/internal/domain"
)

const (
	upstreamDateFormat = "02.01.2006"
	outputDateFormat   = "2006-01-02"
)

// SearchConfig carries the search policy knobs.
type SearchConfig struct {
	ExportURL     string
	DepartureCity string
	MaxPriceLists int
	MaxResults    int
	// AdultAgeBands are substrings matched against an offer's traveler
	// age-band field to select the adult price entry.
	AdultAgeBands []string
}

// SearchService resolves criteria to upstream ids, walks the operator's
// price-list documents and normalizes offers into Tours, caching result sets
// by criteria fingerprint. Upstream trouble degrades the result rather than
// failing it; only authentication and configuration errors propagate.
type SearchService struct {
	api   bgoperator.JSONGetter
	refs  *bgoperator.References
	cache cache.Store[[]domain.Tour]
	tours cache.Store[domain.Tour]
	cfg   SearchConfig
}

func NewSearchService(api bgoperator.JSONGetter, refs *bgoperator.References,
	searchStore cache.Store[[]domain.Tour], tourStore cache.Store[domain.Tour], cfg SearchConfig) *SearchService {
	if cfg.MaxPriceLists <= 0 {
		cfg.MaxPriceLists = 3
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 25
	}
	if len(cfg.AdultAgeBands) == 0 {
		cfg.AdultAgeBands = []string{"14-99", "12+"}
	}
	return &SearchService{api: api, refs: refs, cache: searchStore, tours: tourStore, cfg: cfg}
}

// Upstream price-list document listing and per-document offer payloads.
// Field names follow the operator JSON exactly.

type priceListEntry struct {
	URL      string `json:"url"`
	Date     string `json:"date"` // dd.mm.yyyy
	Duration string `json:"duration"`
	IDPrice  string `json:"id_price"`
}

type priceListResponse struct {
	Entries []priceListEntry `json:"entries"`
}

type offerPrice struct {
	Amount string `json:"amount"`
	RUR    string `json:"RUR,omitempty"`
	AG     string `json:"ag"` // traveler age band
}

type offerEntry struct {
	IDHotel  string       `json:"id_hotel"`
	IDNS     string       `json:"id_ns"`
	Duration string       `json:"duration"`
	Prices   []offerPrice `json:"prices"`
}

type offerResponse struct {
	Entries []offerEntry `json:"entries"`
}

// Search implements domain.TourSearcher.
func (s *SearchService) Search(ctx context.Context, criteria domain.SearchCriteria) (domain.SearchResult, error) {
	crit := criteria.Normalized()

	key, err := cache.Fingerprint(crit)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("search fingerprint: %w", err)
	}
	if tours, ok, _ := s.cache.Get(ctx, key); ok {
		return domain.SearchResult{Tours: tours, FromCache: true}, nil
	}

	result, err := s.fetch(ctx, crit)
	if err != nil {
		if isHardError(err) {
			return domain.SearchResult{}, err
		}
		// partial-catalog search beats a hard failure for an advisory tool
		log.Warn().Err(err).Str("country", crit.Country).Msg("tour search degraded")
		return domain.SearchResult{Tours: []domain.Tour{}, Degraded: true}, nil
	}

	for _, t := range result.Tours {
		_ = s.tours.Set(ctx, t.ID, t)
	}
	if !result.Degraded {
		_ = s.cache.Set(ctx, key, result.Tours)
	}
	return result, nil
}

// TourByID implements domain.TourSearcher, backed by the by-id store that
// Search populates.
func (s *SearchService) TourByID(ctx context.Context, id string) (domain.Tour, bool) {
	t, ok, _ := s.tours.Get(ctx, id)
	return t, ok
}

func (s *SearchService) fetch(ctx context.Context, crit domain.SearchCriteria) (domain.SearchResult, error) {
	country, ok, err := s.refs.FindCountry(ctx, crit.Country)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("resolve country: %w", err)
	}
	if !ok {
		// "no tours in that country" and "country not found" are the same
		// empty outcome at the caller's boundary
		log.Warn().Str("country", crit.Country).Msg("country not found in references")
		return domain.SearchResult{Tours: []domain.Tour{}}, nil
	}

	depCity, ok, err := s.refs.FindCity(ctx, s.cfg.DepartureCity)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("resolve departure city: %w", err)
	}
	if !ok {
		log.Warn().Str("city", s.cfg.DepartureCity).Msg("departure city not found in references")
		return domain.SearchResult{Tours: []domain.Tour{}}, nil
	}

	hotels, err := s.refs.HotelIndex(ctx)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("hotel references: %w", err)
	}
	cities, err := s.refs.CityIndex(ctx)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("city references: %w", err)
	}

	listURL := fmt.Sprintf("%s/yandex?action=files&flt=%s&flt2=%s&xml=11",
		strings.TrimRight(s.cfg.ExportURL, "/"), url.QueryEscape(country.ID), url.QueryEscape(depCity.ID))
	if crit.Stars != "" {
		listURL += "&f3=" + url.QueryEscape(crit.Stars)
	}
	if crit.MealType != "" {
		listURL += "&f8=" + url.QueryEscape(crit.MealType)
	}

	var list priceListResponse
	if err := s.api.GetJSON(ctx, listURL, &list); err != nil {
		return domain.SearchResult{}, fmt.Errorf("price lists: %w", err)
	}

	from, to := parseWindow(crit)

	// bounded latency: only the first few price-list documents are walked
	docs := list.Entries
	if len(docs) > s.cfg.MaxPriceLists {
		docs = docs[:s.cfg.MaxPriceLists]
	}

	degraded := false
	tours := make([]domain.Tour, 0, s.cfg.MaxResults)
	for _, pl := range docs {
		departure, err := time.Parse(upstreamDateFormat, pl.Date)
		if err != nil {
			log.Warn().Str("date", pl.Date).Str("price_list", pl.IDPrice).Msg("unparseable price-list date, skipping")
			continue
		}
		plDuration, _ := strconv.Atoi(pl.Duration)
		if !overlaps(departure, plDuration, from, to) {
			continue
		}

		detailURL := pl.URL
		if crit.Stars != "" && !strings.Contains(detailURL, "&f3=") {
			detailURL += "&f3=" + url.QueryEscape(crit.Stars)
		}
		if crit.MealType != "" && !strings.Contains(detailURL, "&f8=") {
			detailURL += "&f8=" + url.QueryEscape(crit.MealType)
		}

		var offers offerResponse
		if err := s.api.GetJSON(ctx, detailURL, &offers); err != nil {
			if isHardError(err) {
				return domain.SearchResult{}, err
			}
			log.Warn().Err(err).Str("price_list", pl.IDPrice).Msg("offer fetch failed, continuing")
			degraded = true
			continue
		}

		for _, off := range offers.Entries {
			t, ok := s.normalize(off, pl, country, hotels, cities, departure, plDuration)
			if !ok {
				continue // partial upstream data is expected, not an error
			}
			tours = append(tours, t)
		}
	}

	if len(tours) > s.cfg.MaxResults {
		tours = tours[:s.cfg.MaxResults]
	}
	return domain.SearchResult{Tours: tours, Degraded: degraded}, nil
}

// normalize maps one upstream offer into a Tour. Offers without a resolvable
// hotel or an adult price entry are silently discarded.
func (s *SearchService) normalize(off offerEntry, pl priceListEntry, country bgoperator.Country,
	hotels map[string]bgoperator.HotelRef, cities map[string]bgoperator.City,
	departure time.Time, plDuration int) (domain.Tour, bool) {

	hotel, ok := hotels[off.IDHotel]
	if !ok {
		return domain.Tour{}, false
	}
	price, ok := s.adultPrice(off.Prices)
	if !ok {
		return domain.Tour{}, false
	}

	durationDays := plDuration
	if d, err := strconv.Atoi(off.Duration); err == nil && d > 0 {
		durationDays = d
	}
	returnDate := departure.AddDate(0, 0, durationDays)

	cityTitle := "Unknown City"
	if c, ok := cities[hotel.CityKey]; ok {
		cityTitle = c.TitleRU
	}
	stars, _ := strconv.Atoi(hotel.Stars)

	return domain.Tour{
		// id is derived from upstream hotel, price-list and offer ids so
		// the same offer always maps to the same Tour id
		ID:            off.IDHotel + "-" + pl.IDPrice + "-" + off.IDNS,
		Country:       country.TitleRU,
		City:          cityTitle,
		DepartureDate: departure.Format(outputDateFormat),
		ReturnDate:    returnDate.Format(outputDateFormat),
		Price:         price,
		Hotel: domain.Hotel{
			Name:    hotel.Name,
			Address: cityTitle + ", " + country.TitleRU,
			Stars:   stars,
		},
		ImageURL: "https://picsum.photos/seed/" + off.IDHotel + "/600/400",
	}, true
}

// adultPrice selects the price entry whose age band matches the configured
// adult bands. RUR is preferred over amount when both are present.
func (s *SearchService) adultPrice(prices []offerPrice) (int, bool) {
	for _, p := range prices {
		for _, band := range s.cfg.AdultAgeBands {
			if !strings.Contains(p.AG, band) {
				continue
			}
			raw := p.RUR
			if raw == "" {
				raw = p.Amount
			}
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil || n <= 0 {
				break
			}
			return n, true
		}
	}
	return 0, false
}

// parseWindow extracts the optional search date bounds.
func parseWindow(crit domain.SearchCriteria) (from, to time.Time) {
	if crit.DateFrom != "" {
		if t, err := time.Parse(outputDateFormat, crit.DateFrom); err == nil {
			from = t
		}
	}
	if crit.DateTo != "" {
		if t, err := time.Parse(outputDateFormat, crit.DateTo); err == nil {
			to = t
		}
	}
	return from, to
}

// overlaps applies the range test: departure <= searchTo AND return >= searchFrom.
// Zero bounds are open.
func overlaps(departure time.Time, durationDays int, from, to time.Time) bool {
	ret := departure.AddDate(0, 0, durationDays)
	if !to.IsZero() && departure.After(to) {
		return false
	}
	if !from.IsZero() && ret.Before(from) {
		return false
	}
	return true
}

// isHardError reports whether err must propagate past the orchestrator:
// authentication and configuration failures only.
func isHardError(err error) bool {
	return errors.Is(err, bgoperator.ErrMissingCredentials) ||
		errors.Is(err, bgoperator.ErrAuthProtocol) ||
		errors.Is(err, bgoperator.ErrSessionExpired)
}
