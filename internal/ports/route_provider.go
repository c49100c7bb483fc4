package ports

import (
	"context"
	"tripsynth/internal/domain"
)

// Distance and travel duration between two locations.
type RouteResult struct {
	DistanceMeters  int
	DurationSeconds int
}

// Contract for retrieving travel distance and duration between locations.
// Implementations return domain.ErrRouteUnavailable when the points cannot be
// connected with the requested mode.
type RouteProvider interface {
	Route(ctx context.Context, origin, destination domain.Coordinates, mode domain.TravelMode) (RouteResult, error)
}

// Optional extension of RouteProvider that supports batched lookups.
type RouteMatrixProvider interface {
	RouteProvider
	// Return results from one origin to many destinations keyed by Coordinates.Key().
	// Unroutable destinations are absent from the map.
	RouteRow(ctx context.Context, origin domain.Coordinates, destinations []domain.Coordinates, mode domain.TravelMode) (map[string]RouteResult, error)
}
