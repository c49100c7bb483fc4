package handlers

import (
	"context"
	"fmt"
	"net/http"
	"tripsynth/internal/api/dto"
	"tripsynth/internal/domain"
	"tripsynth/internal/ports"
	"tripsynth/internal/report"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
)

type TripPlanner interface {
	Plan(ctx context.Context, trip domain.Trip) (*domain.Itinerary, error)
}

type ItineraryMailer interface {
	Send(ctx context.Context, to []string, it *domain.Itinerary) error
}

// ItineraryHandler plans, stores and renders itineraries. Mailer may be nil.
type ItineraryHandler struct {
	Planner TripPlanner
	Store   ports.ItineraryStore
	Mailer  ItineraryMailer
}

func (h *ItineraryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateItineraryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	trip, err := req.Trip()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	it, err := h.Planner.Plan(r.Context(), trip)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := h.Store.Save(r.Context(), it); err != nil {
		writeDomainError(w, r, fmt.Errorf("store itinerary: %w", err))
		return
	}

	hlog.FromRequest(r).Info().Str("itinerary", it.ID).Msg("itinerary created")
	w.Header().Set("Location", "/itineraries/"+it.ID)
	writeJSON(w, r, http.StatusCreated, dto.NewItineraryResponse(it))
}

func (h *ItineraryHandler) Get(w http.ResponseWriter, r *http.Request) {
	it, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, dto.NewItineraryResponse(it))
}

func (h *ItineraryHandler) Document(w http.ResponseWriter, r *http.Request) {
	it, ok := h.load(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(report.Document(it)))
}

func (h *ItineraryHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	it, ok := h.load(w, r)
	if !ok {
		return
	}
	body, err := report.Calendar(it)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "itinerary-"+it.ID+".ics"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *ItineraryHandler) Email(w http.ResponseWriter, r *http.Request) {
	if h.Mailer == nil {
		writeError(w, r, http.StatusNotImplemented, "email_disabled", "email delivery is not configured")
		return
	}

	var req dto.EmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	it, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.Mailer.Send(r.Context(), req.To, it); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (h *ItineraryHandler) load(w http.ResponseWriter, r *http.Request) (*domain.Itinerary, bool) {
	it, err := h.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return nil, false
	}
	return it, true
}
