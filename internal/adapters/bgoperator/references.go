package bgoperator

import (
	"context"
	"strings"
	"time"

	"globus_tours/internal/cache"
)

// Reference records as published by the export endpoints. Field names follow
// the upstream JSON exactly.

type Country struct {
	ID      string `json:"id"`
	TitleRU string `json:"title_ru"`
	TitleEN string `json:"title_en"`
	Code    string `json:"code"`
}

type City struct {
	ID      string `json:"id"`
	TitleRU string `json:"title_ru"`
	Country string `json:"country"`
}

type HotelRef struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Stars      string `json:"stars"`
	CountryKey string `json:"countryKey"`
	CityKey    string `json:"cityKey"`
}

type MealType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// References fetches and long-TTL-caches the slow-changing lookup tables
// needed to resolve human-entered criteria into upstream ids. One fetch per
// kind per TTL window, shared by all callers within that window.
type References struct {
	api  JSONGetter
	base string

	countries *cache.Memory[[]Country]
	cities    *cache.Memory[[]City]
	hotels    *cache.Memory[[]HotelRef]
	meals     *cache.Memory[[]MealType]
}

const refKey = "all"

func NewReferences(api JSONGetter, base string, ttl time.Duration) *References {
	return &References{
		api:       api,
		base:      strings.TrimRight(base, "/"),
		countries: cache.NewMemory[[]Country]("ref_countries", ttl),
		cities:    cache.NewMemory[[]City]("ref_cities", ttl),
		hotels:    cache.NewMemory[[]HotelRef]("ref_hotels", ttl),
		meals:     cache.NewMemory[[]MealType]("ref_meals", ttl),
	}
}

func (r *References) Countries(ctx context.Context) ([]Country, error) {
	if v, ok, _ := r.countries.Get(ctx, refKey); ok {
		return v, nil
	}
	var out []Country
	if err := r.api.GetJSON(ctx, r.base+"/yandex?action=countries", &out); err != nil {
		return nil, err
	}
	_ = r.countries.Set(ctx, refKey, out)
	return out, nil
}

func (r *References) Cities(ctx context.Context) ([]City, error) {
	if v, ok, _ := r.cities.Get(ctx, refKey); ok {
		return v, nil
	}
	var out []City
	if err := r.api.GetJSON(ctx, r.base+"/auto/jsonResorts.json", &out); err != nil {
		return nil, err
	}
	_ = r.cities.Set(ctx, refKey, out)
	return out, nil
}

func (r *References) Hotels(ctx context.Context) ([]HotelRef, error) {
	if v, ok, _ := r.hotels.Get(ctx, refKey); ok {
		return v, nil
	}
	var out []HotelRef
	if err := r.api.GetJSON(ctx, r.base+"/yandex?action=hotelsJson", &out); err != nil {
		return nil, err
	}
	_ = r.hotels.Set(ctx, refKey, out)
	return out, nil
}

func (r *References) Meals(ctx context.Context) ([]MealType, error) {
	if v, ok, _ := r.meals.Get(ctx, refKey); ok {
		return v, nil
	}
	var out []MealType
	if err := r.api.GetJSON(ctx, r.base+"/yandex?action=boards", &out); err != nil {
		return nil, err
	}
	_ = r.meals.Set(ctx, refKey, out)
	return out, nil
}

// FindCountry matches a human-entered name against localized titles,
// case-insensitively. A miss is a valid empty outcome, not an error.
func (r *References) FindCountry(ctx context.Context, name string) (Country, bool, error) {
	list, err := r.Countries(ctx)
	if err != nil {
		return Country{}, false, err
	}
	for _, c := range list {
		if strings.EqualFold(c.TitleRU, name) || strings.EqualFold(c.TitleEN, name) {
			return c, true, nil
		}
	}
	return Country{}, false, nil
}

// FindCity matches a city by localized title, same miss semantics.
func (r *References) FindCity(ctx context.Context, title string) (City, bool, error) {
	list, err := r.Cities(ctx)
	if err != nil {
		return City{}, false, err
	}
	for _, c := range list {
		if strings.EqualFold(c.TitleRU, title) {
			return c, true, nil
		}
	}
	return City{}, false, nil
}

// HotelIndex returns hotels keyed by upstream key.
func (r *References) HotelIndex(ctx context.Context) (map[string]HotelRef, error) {
	list, err := r.Hotels(ctx)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]HotelRef, len(list))
	for _, h := range list {
		idx[h.Key] = h
	}
	return idx, nil
}

// CityIndex returns cities keyed by id.
func (r *References) CityIndex(ctx context.Context) (map[string]City, error) {
	list, err := r.Cities(ctx)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]City, len(list))
	for _, c := range list {
		idx[c.ID] = c
	}
	return idx, nil
}
