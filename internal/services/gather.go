package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"tripsynth/internal/domain"
	"tripsynth/internal/platform/obs"
	"tripsynth/internal/ports"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// CandidateSources are the search ports queried before assembly.
type CandidateSources struct {
	Lodging    ports.LodgingProvider
	Activities ports.ActivityProvider
	// Optional. Used for candidates that arrive with an address but no coordinates.
	Geocoder ports.Geocoder
}

// GatherCandidates runs the lodging and activity searches concurrently and builds
// the run's CandidateStore. A search that times out twice is treated as empty;
// auth and quota failures are returned as-is.
func GatherCandidates(
	ctx context.Context,
	trip domain.Trip,
	src CandidateSources,
	opts PlannerOptions,
	logger zerolog.Logger,
) (_ *CandidateStore, err error) {
	defer obs.Time(ctx, "services.GatherCandidates")(&err)

	var lodgings, activities []domain.Candidate
	ceiling := trip.Budget.Scale(opts.overflowFactor())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := callProvider(gctx, opts, func(ctx context.Context) ([]domain.Candidate, error) {
			return src.Lodging.SearchLodging(ctx, trip.Destination, trip.Dates, ceiling)
		})
		if err != nil {
			return searchFailure("lodging search", err, logger)
		}
		lodgings = res
		return nil
	})
	g.Go(func() error {
		res, err := callProvider(gctx, opts, func(ctx context.Context) ([]domain.Candidate, error) {
			return src.Activities.SearchActivities(ctx, trip.Destination, trip.Preferences)
		})
		if err != nil {
			return searchFailure("activity search", err, logger)
		}
		activities = res
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("gather candidates: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if src.Geocoder != nil {
		lodgings, activities = geocodeMissing(ctx, src.Geocoder, lodgings, activities, opts, logger)
	}

	return NewCandidateStore(trip, lodgings, activities, opts.DefaultVisitDuration, logger)
}

// searchFailure keeps timeouts local (the search yields nothing) and passes every
// other failure up.
func searchFailure(op string, err error, logger zerolog.Logger) error {
	if errors.Is(err, domain.ErrProviderTimeout) {
		logger.Warn().Err(err).Str("op", op).Msg("provider unavailable, continuing without results")
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

func geocodeMissing(
	ctx context.Context,
	geo ports.Geocoder,
	lodgings, activities []domain.Candidate,
	opts PlannerOptions,
	logger zerolog.Logger,
) ([]domain.Candidate, []domain.Candidate) {
	missing := func(c domain.Candidate, _ int) bool {
		return c.Location.IsZero() && strings.TrimSpace(c.Address) != ""
	}
	address := func(c domain.Candidate, _ int) string { return strings.TrimSpace(c.Address) }

	addrs := lo.Uniq(append(
		lo.Map(lo.Filter(lodgings, missing), address),
		lo.Map(lo.Filter(activities, missing), address)...,
	))
	if len(addrs) == 0 {
		return lodgings, activities
	}

	coords, err := callProvider(ctx, opts, func(ctx context.Context) (map[string]domain.Coordinates, error) {
		return geo.Geocode(ctx, addrs)
	})
	if err != nil {
		logger.Warn().Err(err).Int("addresses", len(addrs)).Msg("geocoding failed, candidates without location will be dropped")
		return lodgings, activities
	}

	fill := func(cands []domain.Candidate) []domain.Candidate {
		out := make([]domain.Candidate, len(cands))
		for i, c := range cands {
			if loc, ok := coords[strings.TrimSpace(c.Address)]; ok && c.Location.IsZero() {
				c.Location = loc
			}
			out[i] = c
		}
		return out
	}
	return fill(lodgings), fill(activities)
}
