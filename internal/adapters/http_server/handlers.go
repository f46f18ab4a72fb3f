package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"globus_tours/internal/domain"
)

// maxEnrichBatch bounds the ad-hoc enrichment endpoint's fan-out.
const maxEnrichBatch = 50

type Handlers struct {
	Search domain.TourSearcher
	Enrich domain.TourEnricher
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Post("/v1/tours/search", h.searchTours)
	s.mux.Get("/v1/tours/{id}", h.getTour)
	s.mux.Post("/v1/tours/enrich", h.enrichTours)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func (h *Handlers) searchTours(w http.ResponseWriter, r *http.Request) {
	var criteria domain.SearchCriteria
	if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "invalid search criteria JSON")
		return
	}
	if strings.TrimSpace(criteria.Country) == "" {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "country is required")
		return
	}

	result, err := h.Search.Search(r.Context(), criteria)
	if err != nil {
		// only authentication/configuration failures reach here
		log.Error().Err(err).Msg("tour search hard failure")
		writeProblem(w, http.StatusBadGateway, "Upstream Authentication Failed", "could not establish an operator session")
		return
	}

	if result.Degraded {
		w.Header().Set("X-Degraded", "true")
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) getTour(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tour, ok := h.Search.TourByID(r.Context(), id)
	if !ok {
		writeProblem(w, http.StatusNotFound, "Not Found", "tour not found or expired from the result store")
		return
	}

	enriched := h.Enrich.Enrich(r.Context(), []domain.Tour{tour})
	writeJSON(w, http.StatusOK, enriched[0])
}

func (h *Handlers) enrichTours(w http.ResponseWriter, r *http.Request) {
	var tours []domain.Tour
	if err := json.NewDecoder(r.Body).Decode(&tours); err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "invalid tours JSON")
		return
	}
	if len(tours) > maxEnrichBatch {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "too many tours in one batch")
		return
	}

	writeJSON(w, http.StatusOK, h.Enrich.Enrich(r.Context(), tours))
}
