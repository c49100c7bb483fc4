package routing

import (
	"context"
	"fmt"
	"math"
	"tripsynth/internal/domain"
	"tripsynth/internal/ports"
)

const earthRadiusMeters = 6371000.0

// Average door-to-door speeds in meters per second.
var defaultSpeeds = map[domain.TravelMode]float64{
	domain.ModeWalk:    1.33,
	domain.ModeDrive:   8.33,
	domain.ModeTransit: 5.55,
}

// HaversineRouter estimates legs from great-circle distance. It is the offline
// router used when no routing API key is configured, and in tests.
type HaversineRouter struct {
	// Detour scales the straight-line distance to approximate the street network.
	Detour float64
	Speeds map[domain.TravelMode]float64
	// MaxMeters marks longer legs unavailable for a mode. Zero means unlimited.
	MaxMeters map[domain.TravelMode]int
}

func NewHaversineRouter() *HaversineRouter {
	return &HaversineRouter{
		Detour:    1.3,
		Speeds:    defaultSpeeds,
		MaxMeters: map[domain.TravelMode]int{domain.ModeWalk: 8000},
	}
}

func (h *HaversineRouter) Route(
	ctx context.Context,
	origin, destination domain.Coordinates,
	mode domain.TravelMode,
) (ports.RouteResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.RouteResult{}, err
	}
	speed, ok := h.Speeds[mode]
	if !ok || speed <= 0 {
		return ports.RouteResult{}, fmt.Errorf("haversine: no speed for %s: %w", mode, domain.ErrRouteUnavailable)
	}

	meters := int(math.Round(Distance(origin, destination) * h.Detour))
	if limit := h.MaxMeters[mode]; limit > 0 && meters > limit {
		return ports.RouteResult{}, fmt.Errorf("haversine: %d m is too far to %s: %w", meters, mode, domain.ErrRouteUnavailable)
	}
	return ports.RouteResult{
		DistanceMeters:  meters,
		DurationSeconds: int(math.Round(float64(meters) / speed)),
	}, nil
}

func (h *HaversineRouter) RouteRow(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
	mode domain.TravelMode,
) (map[string]ports.RouteResult, error) {
	out := make(map[string]ports.RouteResult, len(destinations))
	for _, d := range destinations {
		r, err := h.Route(ctx, origin, d, mode)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		out[d.Key()] = r
	}
	return out, nil
}

// Distance returns the great-circle distance in meters.
func Distance(a, b domain.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(s)))
}

var _ ports.RouteMatrixProvider = (*HaversineRouter)(nil)
