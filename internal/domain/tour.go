package domain

// Hotel is the accommodation part of a tour as published by the operator.
type Hotel struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Stars   int    `json:"stars"`
}

// Tour is one bookable offer normalized from the operator's price lists.
// ID is derived from upstream hotel/price-list/offer ids and is stable for
// the lifetime of one catalog revision.
type Tour struct {
	ID            string `json:"id"`
	Country       string `json:"country"`
	City          string `json:"city"`
	DepartureDate string `json:"departureDate"` // yyyy-mm-dd
	ReturnDate    string `json:"returnDate"`    // yyyy-mm-dd
	Price         int    `json:"price"`
	Hotel         Hotel  `json:"hotel"`
	ImageURL      string `json:"imageUrl"`
}

// PlaceInfo is third-party place data attached to a tour's hotel.
// Reviews carry the raw texts so a summary can be produced later.
type PlaceInfo struct {
	Rating    float64  `json:"rating,omitempty"`
	Photos    []string `json:"photos,omitempty"`
	Amenities []string `json:"amenities,omitempty"`
	Reviews   []string `json:"reviews,omitempty"`
}

// EnrichedTour is a Tour plus optional place data and review summary.
// It never replaces the underlying Tour identity.
type EnrichedTour struct {
	Tour
	Place   *PlaceInfo `json:"place,omitempty"`
	Summary string     `json:"summary,omitempty"`
}

// SearchResult is the outcome of one tour search. Degraded marks a search
// that lost part of the catalog to an upstream failure, so callers can tell
// "nothing found" from "upstream broken" without an error path.
type SearchResult struct {
	Tours     []Tour `json:"tours"`
	FromCache bool   `json:"fromCache"`
	Degraded  bool   `json:"degraded"`
}
