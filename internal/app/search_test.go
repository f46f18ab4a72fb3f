package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"globus_tours/internal/adapters/bgoperator"
	"globus_tours/internal/app"
	"globus_tours/internal/cache"
	"globus_tours/internal/domain"
)

// fakeOperator serves canned upstream JSON keyed by URL substring, counting
// fetches. Patterns listed in failing return an error instead.
type fakeOperator struct {
	mu        sync.Mutex
	calls     map[string]int
	responses map[string]string
	failing   map[string]bool
}

func (f *fakeOperator) GetJSON(ctx context.Context, rawURL string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for pattern, body := range f.responses {
		if !strings.Contains(rawURL, pattern) {
			continue
		}
		if f.calls == nil {
			f.calls = map[string]int{}
		}
		f.calls[pattern]++
		if f.failing[pattern] {
			return fmt.Errorf("upstream 502 for %s", pattern)
		}
		return json.Unmarshal([]byte(body), out)
	}
	return fmt.Errorf("no canned response for %s", rawURL)
}

func (f *fakeOperator) count(pattern string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[pattern]
}

func newCatalogFake() *fakeOperator {
	return &fakeOperator{
		responses: map[string]string{
			"action=countries":  `[{"id":"9","title_ru":"Турция","title_en":"Turkey","code":"TR"}]`,
			"jsonResorts":       `[{"id":"1","title_ru":"Москва","country":"0"},{"id":"77","title_ru":"Анталья","country":"9"}]`,
			"action=hotelsJson": `[{"key":"H1","name":"Grand Park","stars":"5","countryKey":"9","cityKey":"77"}]`,
			"action=files":      `{"entries":[{"url":"http://export.test/price/pl7","date":"12.09.2024","duration":"7","id_price":"P7"}]}`,
			"/price/pl7": `{"entries":[{"id_hotel":"H1","id_ns":"O3","duration":"7","prices":[
				{"amount":"12000","ag":"0-2"},
				{"amount":"100000","RUR":"95000","ag":"14-99"}
			]}]}`,
		},
		failing: map[string]bool{},
	}
}

func newSearchService(fake *fakeOperator) *app.SearchService {
	refs := bgoperator.NewReferences(fake, "http://export.test", time.Hour)
	return app.NewSearchService(fake, refs,
		cache.NewMemory[[]domain.Tour]("search_test", 5*time.Minute),
		cache.NewMemory[domain.Tour]("tour_test", 30*time.Minute),
		app.SearchConfig{
			ExportURL:     "http://export.test",
			DepartureCity: "Москва",
			MaxPriceLists: 3,
			MaxResults:    25,
			AdultAgeBands: []string{"14-99", "12+"},
		})
}

func septemberCriteria() domain.SearchCriteria {
	return domain.SearchCriteria{Country: "турция", DateFrom: "2024-09-01", DateTo: "2024-09-20"}
}

func TestSearch_NormalizesOffers(t *testing.T) {
	svc := newSearchService(newCatalogFake())

	res, err := svc.Search(context.Background(), septemberCriteria())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Degraded || res.FromCache {
		t.Fatalf("unexpected flags: %+v", res)
	}
	if len(res.Tours) != 1 {
		t.Fatalf("expected 1 tour, got %d", len(res.Tours))
	}

	tour := res.Tours[0]
	if tour.ID != "H1-P7-O3" {
		t.Fatalf("unexpected id: %s", tour.ID)
	}
	if tour.DepartureDate != "2024-09-12" || tour.ReturnDate != "2024-09-19" {
		t.Fatalf("unexpected dates: %s .. %s", tour.DepartureDate, tour.ReturnDate)
	}
	if tour.Price != 95000 { // RUR preferred over amount
		t.Fatalf("unexpected price: %d", tour.Price)
	}
	if tour.City != "Анталья" || tour.Country != "Турция" {
		t.Fatalf("unexpected location: %s, %s", tour.City, tour.Country)
	}
	if tour.Hotel.Name != "Grand Park" || tour.Hotel.Stars != 5 {
		t.Fatalf("unexpected hotel: %+v", tour.Hotel)
	}
}

func TestSearch_DeterministicTourID(t *testing.T) {
	first, err := newSearchService(newCatalogFake()).Search(context.Background(), septemberCriteria())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	second, err := newSearchService(newCatalogFake()).Search(context.Background(), septemberCriteria())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if first.Tours[0].ID != second.Tours[0].ID {
		t.Fatalf("tour id not deterministic: %s vs %s", first.Tours[0].ID, second.Tours[0].ID)
	}
}

func TestSearch_CachedWithinTTLWindow(t *testing.T) {
	fake := newCatalogFake()
	svc := newSearchService(fake)
	ctx := context.Background()

	first, err := svc.Search(ctx, septemberCriteria())
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	second, err := svc.Search(ctx, septemberCriteria())
	if err != nil {
		t.Fatalf("second search: %v", err)
	}

	if !second.FromCache {
		t.Fatalf("expected second search served from cache")
	}
	if !reflect.DeepEqual(first.Tours, second.Tours) {
		t.Fatalf("cached result differs from original")
	}
	// exactly one upstream fetch sequence
	if n := fake.count("action=files"); n != 1 {
		t.Fatalf("expected one price-list fetch, got %d", n)
	}
	if n := fake.count("/price/pl7"); n != 1 {
		t.Fatalf("expected one offer fetch, got %d", n)
	}
}

func TestSearch_DateOverlapGate(t *testing.T) {
	svc := newSearchService(newCatalogFake())
	ctx := context.Background()

	// price list dated 2024-09-12, duration 7: inside [09-01, 09-20]
	in, err := svc.Search(ctx, septemberCriteria())
	if err != nil || len(in.Tours) != 1 {
		t.Fatalf("expected inclusion, tours=%d err=%v", len(in.Tours), err)
	}

	// excluded for [2024-01-01, 2024-02-01]
	out, err := svc.Search(ctx, domain.SearchCriteria{Country: "Турция", DateFrom: "2024-01-01", DateTo: "2024-02-01"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(out.Tours) != 0 || out.Degraded {
		t.Fatalf("expected empty non-degraded result, got %+v", out)
	}
}

func TestSearch_UnknownCountryIsEmptyNotError(t *testing.T) {
	fake := newCatalogFake()
	svc := newSearchService(fake)

	res, err := svc.Search(context.Background(), domain.SearchCriteria{Country: "Atlantis"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Tours) != 0 || res.Degraded {
		t.Fatalf("expected empty non-degraded result, got %+v", res)
	}
	if n := fake.count("action=files"); n != 0 {
		t.Fatalf("expected no price-list fetch for unknown country")
	}
}

func TestSearch_OfferFetchFailureDegrades(t *testing.T) {
	fake := newCatalogFake()
	fake.failing["/price/pl7"] = true
	svc := newSearchService(fake)
	ctx := context.Background()

	res, err := svc.Search(ctx, septemberCriteria())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !res.Degraded || len(res.Tours) != 0 {
		t.Fatalf("expected degraded empty result, got %+v", res)
	}

	// degraded results are not cached: a retry hits upstream again
	fake.failing["/price/pl7"] = false
	res2, err := svc.Search(ctx, septemberCriteria())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if res2.FromCache || len(res2.Tours) != 1 {
		t.Fatalf("expected recomputed result after degradation, got %+v", res2)
	}
}

func TestSearch_OffersWithoutHotelOrAdultPriceDiscarded(t *testing.T) {
	fake := newCatalogFake()
	fake.responses["/price/pl7"] = `{"entries":[
		{"id_hotel":"H1","id_ns":"O3","duration":"7","prices":[{"amount":"95000","RUR":"95000","ag":"14-99"}]},
		{"id_hotel":"GHOST","id_ns":"O4","duration":"7","prices":[{"amount":"95000","ag":"14-99"}]},
		{"id_hotel":"H1","id_ns":"O5","duration":"7","prices":[{"amount":"12000","ag":"0-2"}]}
	]}`
	svc := newSearchService(fake)

	res, err := svc.Search(context.Background(), septemberCriteria())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Tours) != 1 || res.Tours[0].ID != "H1-P7-O3" {
		t.Fatalf("expected only the resolvable offer, got %+v", res.Tours)
	}
}

func TestTourByID_AfterSearch(t *testing.T) {
	svc := newSearchService(newCatalogFake())
	ctx := context.Background()

	if _, ok := svc.TourByID(ctx, "H1-P7-O3"); ok {
		t.Fatalf("expected miss before any search")
	}

	if _, err := svc.Search(ctx, septemberCriteria()); err != nil {
		t.Fatalf("search: %v", err)
	}

	tour, ok := svc.TourByID(ctx, "H1-P7-O3")
	if !ok || tour.Hotel.Name != "Grand Park" {
		t.Fatalf("expected tour by id after search, ok=%v tour=%+v", ok, tour)
	}
}
