package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"tripsynth/internal/domain"
	"tripsynth/internal/platform/obs"
	"tripsynth/internal/ports"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// PlannerDeps are the ports a Planner talks to. Lodging, Activities and Router
// are required.
type PlannerDeps struct {
	Lodging    ports.LodgingProvider
	Activities ports.ActivityProvider
	Router     ports.RouteProvider
	Geocoder   ports.Geocoder
	Advisories ports.AdvisoryProvider
	TimeZones  ports.TimeZoneResolver
}

// Planner runs one trip through gathering, lodging selection, prefetching and
// assembly. It holds no per-trip state and may serve concurrent requests.
type Planner struct {
	deps   PlannerDeps
	opts   PlannerOptions
	logger zerolog.Logger
}

func NewPlanner(deps PlannerDeps, opts PlannerOptions, logger zerolog.Logger) (*Planner, error) {
	if deps.Lodging == nil || deps.Activities == nil || deps.Router == nil {
		return nil, errors.New("new planner: lodging, activity and route providers are required")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("new planner: %w", err)
	}
	return &Planner{deps: deps, opts: opts, logger: logger}, nil
}

// Plan builds the itinerary for trip. Errors are domain.ErrValidation,
// domain.ErrNoCandidates, *domain.InfeasibleTripError, provider auth/quota
// failures or the context's error.
func (p *Planner) Plan(ctx context.Context, trip domain.Trip) (_ *domain.Itinerary, err error) {
	defer obs.Time(ctx, "services.Plan")(&err)

	trip.Preferences = domain.NormalizePreferences(trip.Preferences)
	if err := trip.Validate(); err != nil {
		return nil, err
	}
	logger := p.logger.With().Str("destination", trip.Destination).Str("dates", trip.Dates.String()).Logger()

	store, err := GatherCandidates(ctx, trip, CandidateSources{
		Lodging:    p.deps.Lodging,
		Activities: p.deps.Activities,
		Geocoder:   p.deps.Geocoder,
	}, p.opts, logger)
	if err != nil {
		return nil, fmt.Errorf("plan trip: %w", err)
	}

	engine := NewFeasibilityEngine(p.deps.Router, p.opts, logger)
	lodging, overflow, err := engine.SelectLodging(trip, store)
	if err != nil {
		return nil, err
	}
	var resolutions []domain.ConflictResolution
	if overflow != nil {
		resolutions = append(resolutions, *overflow)
	}
	logger.Info().Str("lodging", lodging.ID).Str("cost", lodging.Cost.String()).Msg("lodging selected")

	loc := p.location(trip, lodging, logger)

	var advisories map[string]string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		nodes := append([]domain.Candidate{lodging}, store.Activities()...)
		return engine.Prefetch(gctx, nodes)
	})
	if p.deps.Advisories != nil {
		g.Go(func() error {
			advisories = p.advisories(gctx, trip, lodging, logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("plan trip: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	it, err := NewItineraryAssembler(engine, p.opts, logger).Assemble(ctx, AssemblyInput{
		Trip:        trip,
		Store:       store,
		Lodging:     lodging,
		Location:    loc,
		Advisories:  advisories,
		Resolutions: resolutions,
	})
	if err != nil {
		return nil, err
	}
	if err := it.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("plan trip: %w", err)
	}

	logger.Info().
		Str("itinerary", it.ID).
		Str("total", it.TotalCost.String()).
		Int("resolutions", len(it.Resolutions)).
		Int("rest_days", it.DegenerateDays()).
		Msg("itinerary assembled")
	return it, nil
}

// location resolves the trip's zone: explicit name, then the lodging's
// coordinates, then UTC.
func (p *Planner) location(trip domain.Trip, lodging domain.Candidate, logger zerolog.Logger) *time.Location {
	name := trip.TimeZone
	if name == "" && p.deps.TimeZones != nil {
		tz, err := p.deps.TimeZones.TimeZone(lodging.Location)
		if err != nil {
			logger.Warn().Err(err).Msg("time zone lookup failed, using UTC")
		}
		name = tz
	}
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warn().Err(err).Str("tz", name).Msg("unknown time zone, using UTC")
		return time.UTC
	}
	return loc
}

// advisories are best effort; a failure only means days carry no note.
func (p *Planner) advisories(ctx context.Context, trip domain.Trip, lodging domain.Candidate, logger zerolog.Logger) map[string]string {
	res, err := callProvider(ctx, p.opts, func(ctx context.Context) (map[string]string, error) {
		return p.deps.Advisories.Advisory(ctx, lodging.Location, trip.Dates)
	})
	if err != nil {
		logger.Warn().Err(err).Msg("advisories unavailable")
		return nil
	}
	return res
}
