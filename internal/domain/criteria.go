package domain

// SearchCriteria is the agent-entered search input. It is used as a cache-key
// source and as filter parameters only; never mutated after creation.
// Dates are yyyy-mm-dd and optional.
type SearchCriteria struct {
	Country   string `json:"country"`
	DateFrom  string `json:"dateFrom,omitempty"`
	DateTo    string `json:"dateTo,omitempty"`
	Travelers int    `json:"travelers,omitempty"`
	Stars     string `json:"stars,omitempty"`
	MealType  string `json:"mealType,omitempty"`
}

// Normalized returns a copy with defaults applied (two travelers) so that
// logically identical searches fingerprint identically.
func (c SearchCriteria) Normalized() SearchCriteria {
	if c.Travelers <= 0 {
		c.Travelers = 2
	}
	return c
}
