package ports

import (
	"context"
	"tripsynth/internal/domain"
)

// Port: lodging search (e.g. a listings marketplace).
type LodgingProvider interface {
	// Return lodging candidates in destination for the range, priced at or below budgetCeiling.
	SearchLodging(ctx context.Context, destination string, dates domain.DateRange, budgetCeiling domain.Money) ([]domain.Candidate, error)
}

// Port: points-of-interest search.
type ActivityProvider interface {
	// Return activity candidates in destination; tags are hints, not filters.
	SearchActivities(ctx context.Context, destination string, tags []string) ([]domain.Candidate, error)
}

// Port: advisory text (weather, local context) for a day. Never used for feasibility.
type AdvisoryProvider interface {
	Advisory(ctx context.Context, at domain.Coordinates, dates domain.DateRange) (map[string]string, error)
}

// Port: address to coordinates for candidates delivered without a location.
type Geocoder interface {
	Geocode(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error)
}

// Port: coordinates to IANA time zone.
type TimeZoneResolver interface {
	TimeZone(at domain.Coordinates) (string, error)
}
