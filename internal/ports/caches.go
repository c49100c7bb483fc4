package ports

import (
	"context"
	"tripsynth/internal/domain"
)

// Persistent cross-run cache of route results keyed by Coordinates.Key().
type LegCache interface {
	GetMany(ctx context.Context, origin string, destinations []string, mode domain.TravelMode) (map[string]RouteResult, error)
	PutMany(ctx context.Context, origin string, results map[string]RouteResult, mode domain.TravelMode) error
}

// Persistent cache mapping normalized addresses to coordinates.
type GeocodeCache interface {
	GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error)
	PutMany(ctx context.Context, results map[string]domain.Coordinates) error
}

// Storage for finalized itineraries served by the HTTP API.
type ItineraryStore interface {
	Save(ctx context.Context, it *domain.Itinerary) error
	// Returns domain.ErrNotFound when id is unknown.
	Get(ctx context.Context, id string) (*domain.Itinerary, error)
}
