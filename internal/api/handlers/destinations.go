package handlers

import (
	"context"
	"net/http"
	"tripsynth/internal/api/dto"
)

type DestinationLister interface {
	Destinations(ctx context.Context) ([]string, error)
}

// DestinationHandler exposes the destinations the local catalog can plan for.
type DestinationHandler struct {
	Catalog DestinationLister
}

func (h *DestinationHandler) List(w http.ResponseWriter, r *http.Request) {
	dests, err := h.Catalog.Destinations(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if dests == nil {
		dests = []string{}
	}
	writeJSON(w, r, http.StatusOK, dto.DestinationsResponse{Destinations: dests})
}
