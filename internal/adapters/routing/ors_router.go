package routing

import (
	"context"
	"fmt"
	"time"
	"tripsynth/internal/domain"
	"tripsynth/internal/platform/obs"
	"tripsynth/internal/ports"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// ORS profiles per travel mode. OpenRouteService has no public transit profile.
var orsProfiles = map[domain.TravelMode]string{
	domain.ModeDrive: "driving-car",
	domain.ModeWalk:  "foot-walking",
}

// ORSRouter implements ports.RouteMatrixProvider using OpenRouteService.
//
// It coordinates:
//   - In-process memoization of route rows
//   - Persistent leg caching
//   - External API calls with retry/backoff
//
// The router is safe for concurrent use.
type ORSRouter struct {
	*orsClient
	legCache ports.LegCache
	memo     *gocache.Cache
	logger   zerolog.Logger
}

// NewORSRouter builds a router. legCache may be nil.
func NewORSRouter(apiKey, baseURL string, legCache ports.LegCache, logger zerolog.Logger) (*ORSRouter, error) {
	client, err := newORSClient(apiKey, baseURL)
	if err != nil {
		return nil, fmt.Errorf("new ORS router: %w", err)
	}
	return &ORSRouter{
		orsClient: client,
		legCache:  legCache,
		memo:      gocache.New(30*time.Minute, 10*time.Minute),
		logger:    logger,
	}, nil
}

func memoKey(origin, destination string, mode domain.TravelMode) string {
	return string(mode) + "|" + origin + "|" + destination
}

// Delegate to the batched path to reuse caching and matrix logic.
func (o *ORSRouter) Route(
	ctx context.Context,
	origin, destination domain.Coordinates,
	mode domain.TravelMode,
) (ports.RouteResult, error) {
	results, err := o.RouteRow(ctx, origin, []domain.Coordinates{destination}, mode)
	if err != nil {
		return ports.RouteResult{}, fmt.Errorf("route %s -> %s: %w", origin.Key(), destination.Key(), err)
	}

	r, ok := results[destination.Key()]
	if !ok {
		return ports.RouteResult{}, fmt.Errorf("route %s -> %s (%s): %w",
			origin.Key(), destination.Key(), mode, domain.ErrRouteUnavailable)
	}
	return r, nil
}

// Compute routes from a single origin to many destinations.
func (o *ORSRouter) RouteRow(
	ctx context.Context,
	origin domain.Coordinates,
	destinations []domain.Coordinates,
	mode domain.TravelMode,
) (_ map[string]ports.RouteResult, err error) {
	defer obs.Time(ctx, "ors.RouteRow")(&err)

	profile, ok := orsProfiles[mode]
	if !ok {
		return nil, fmt.Errorf("ORS has no %s profile: %w", mode, domain.ErrRouteUnavailable)
	}

	originKey := origin.Key()
	out := make(map[string]ports.RouteResult, len(destinations))

	seen := make(map[string]struct{}, len(destinations))
	var pending []domain.Coordinates
	for _, d := range destinations {
		k := d.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if k == originKey {
			out[k] = ports.RouteResult{}
			continue
		}
		if v, hit := o.memo.Get(memoKey(originKey, k, mode)); hit {
			out[k] = v.(ports.RouteResult)
			continue
		}
		pending = append(pending, d)
	}
	if len(pending) == 0 {
		return out, nil
	}

	// Check persistent leg cache before issuing external API calls.
	if o.legCache != nil {
		keys := make([]string, 0, len(pending))
		for _, d := range pending {
			keys = append(keys, d.Key())
		}
		hits, err := o.legCache.GetMany(ctx, originKey, keys, mode)
		if err != nil {
			o.logger.Warn().Err(err).Msg("leg cache read failed")
		}
		misses := pending[:0:0]
		for _, d := range pending {
			if r, hit := hits[d.Key()]; hit {
				out[d.Key()] = r
				o.memo.SetDefault(memoKey(originKey, d.Key(), mode), r)
				continue
			}
			misses = append(misses, d)
		}
		pending = misses
	}
	if len(pending) == 0 {
		return out, nil
	}

	// Fetch a single origin->many matrix row for all cache misses.
	fetched, err := o.fetchMatrixRow(ctx, profile, origin, pending)
	if err != nil {
		return nil, fmt.Errorf("fetching matrix row: %w", err)
	}

	if o.legCache != nil && len(fetched) > 0 {
		if err := o.legCache.PutMany(ctx, originKey, fetched, mode); err != nil {
			o.logger.Warn().Err(err).Msg("leg cache write failed")
		}
	}
	for k, r := range fetched {
		o.memo.SetDefault(memoKey(originKey, k, mode), r)
		out[k] = r
	}
	return out, nil
}

var _ ports.RouteMatrixProvider = (*ORSRouter)(nil)
