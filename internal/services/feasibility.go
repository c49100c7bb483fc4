package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
	"tripsynth/internal/domain"
	"tripsynth/internal/platform/obs"
	"tripsynth/internal/ports"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type legKey struct {
	from, to string
	mode     domain.TravelMode
}

// legEntry with ok == false records a pair the router could not connect.
type legEntry struct {
	leg domain.TravelLeg
	ok  bool
}

// FeasibilityEngine answers the pure checks the assembler and resolver ask during
// assembly. All travel legs are fetched up front by Prefetch; after that every
// check is a memory lookup.
type FeasibilityEngine struct {
	router ports.RouteProvider
	opts   PlannerOptions
	logger zerolog.Logger

	legs        map[legKey]legEntry
	fingerprint string
}

func NewFeasibilityEngine(router ports.RouteProvider, opts PlannerOptions, logger zerolog.Logger) *FeasibilityEngine {
	return &FeasibilityEngine{router: router, opts: opts, logger: logger, legs: map[legKey]legEntry{}}
}

// Prefetch fetches the primary-mode leg between every ordered pair of nodes and,
// for pairs the primary mode cannot connect, the substitute modes as well.
// A repeated call with the same node set is a no-op.
func (e *FeasibilityEngine) Prefetch(ctx context.Context, nodes []domain.Candidate) (err error) {
	defer obs.Time(ctx, "feasibility.Prefetch")(&err)

	nodes = append([]domain.Candidate(nil), nodes...)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	fp := fingerprint(nodes)
	if fp == e.fingerprint {
		return nil
	}

	legs := make(map[legKey]legEntry, len(nodes)*len(nodes))
	all := func(from, to domain.Candidate) bool { return true }
	if err := e.fetchMode(ctx, legs, nodes, e.opts.PrimaryMode, all); err != nil {
		return fmt.Errorf("prefetch legs: %w", err)
	}

	for _, mode := range e.opts.allModes()[1:] {
		primaryFailed := func(from, to domain.Candidate) bool {
			return !legs[legKey{from.ID, to.ID, e.opts.PrimaryMode}].ok
		}
		if err := e.fetchMode(ctx, legs, nodes, mode, primaryFailed); err != nil {
			return fmt.Errorf("prefetch %s legs: %w", mode, err)
		}
	}

	e.legs = legs
	e.fingerprint = fp
	return nil
}

// fetchMode fills legs for every ordered pair accepted by want. Batches go out
// through a bounded worker group; the context is checked before each batch.
func (e *FeasibilityEngine) fetchMode(
	ctx context.Context,
	legs map[legKey]legEntry,
	nodes []domain.Candidate,
	mode domain.TravelMode,
	want func(from, to domain.Candidate) bool,
) error {
	type rowResult struct {
		origin  domain.Candidate
		targets []domain.Candidate
		results map[string]ports.RouteResult
	}

	var tasks []rowResult
	for _, origin := range nodes {
		var targets []domain.Candidate
		for _, to := range nodes {
			if to.ID == origin.ID || !want(origin, to) {
				continue
			}
			if to.Location == origin.Location {
				legs[legKey{origin.ID, to.ID, mode}] = legEntry{
					leg: domain.TravelLeg{From: origin.ID, To: to.ID, Mode: mode},
					ok:  true,
				}
				continue
			}
			targets = append(targets, to)
		}
		if len(targets) > 0 {
			tasks = append(tasks, rowResult{origin: origin, targets: targets})
		}
	}
	if len(tasks) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	for i := range tasks {
		if gctx.Err() != nil {
			break
		}
		t := &tasks[i]
		g.Go(func() error {
			res, err := e.fetchRow(gctx, t.origin, t.targets, mode)
			if err != nil {
				return err
			}
			t.results = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, t := range tasks {
		for _, to := range t.targets {
			k := legKey{t.origin.ID, to.ID, mode}
			r, ok := t.results[to.Location.Key()]
			if !ok {
				legs[k] = legEntry{}
				continue
			}
			legs[k] = legEntry{
				leg: domain.TravelLeg{
					From:           t.origin.ID,
					To:             to.ID,
					Duration:       time.Duration(r.DurationSeconds) * time.Second,
					DistanceMeters: r.DistanceMeters,
					Mode:           mode,
				},
				ok: true,
			}
		}
	}
	return nil
}

// fetchRow returns results keyed by destination Coordinates.Key(). A missing key
// means the leg is unavailable. Only cancellation, auth and quota errors escape.
func (e *FeasibilityEngine) fetchRow(
	ctx context.Context,
	origin domain.Candidate,
	targets []domain.Candidate,
	mode domain.TravelMode,
) (map[string]ports.RouteResult, error) {
	out := make(map[string]ports.RouteResult, len(targets))

	if mp, ok := e.router.(ports.RouteMatrixProvider); ok {
		dests := make([]domain.Coordinates, 0, len(targets))
		for _, t := range targets {
			dests = append(dests, t.Location)
		}
		res, err := callProvider(ctx, e.opts, func(ctx context.Context) (map[string]ports.RouteResult, error) {
			return mp.RouteRow(ctx, origin.Location, dests, mode)
		})
		if err == nil {
			return res, nil
		}
		if ferr := e.legFailure(ctx, origin.ID, "*", mode, err); ferr != nil {
			return nil, ferr
		}
		if errors.Is(err, domain.ErrRouteUnavailable) {
			return out, nil
		}
		// Fall through to single lookups for this row.
	}

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := callProvider(ctx, e.opts, func(ctx context.Context) (ports.RouteResult, error) {
			return e.router.Route(ctx, origin.Location, t.Location, mode)
		})
		if err != nil {
			if err := e.legFailure(ctx, origin.ID, t.ID, mode, err); err != nil {
				return nil, err
			}
			continue
		}
		out[t.Location.Key()] = r
	}
	return out, nil
}

// legFailure logs a leg failure that only makes the leg unavailable and returns
// the failures that must abort prefetching.
func (e *FeasibilityEngine) legFailure(ctx context.Context, from, to string, mode domain.TravelMode, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if isUpstreamFatal(err) {
		return fmt.Errorf("route %s -> %s (%s): %w", from, to, mode, err)
	}
	if !errors.Is(err, domain.ErrRouteUnavailable) {
		e.logger.Warn().Err(err).Str("from", from).Str("to", to).Str("mode", string(mode)).Msg("leg unavailable")
	}
	return nil
}

// LegBetween returns the prefetched leg from a to b for mode.
func (e *FeasibilityEngine) LegBetween(a, b domain.Candidate, mode domain.TravelMode) (domain.TravelLeg, error) {
	if a.ID == b.ID {
		return domain.TravelLeg{From: a.ID, To: b.ID, Mode: mode}, nil
	}
	entry, found := e.legs[legKey{a.ID, b.ID, mode}]
	if !found || !entry.ok {
		return domain.TravelLeg{}, fmt.Errorf("leg %s -> %s (%s): %w", a.ID, b.ID, mode, domain.ErrRouteUnavailable)
	}
	return entry.leg, nil
}

// firstLeg tries modes in order and returns the first available leg.
func (e *FeasibilityEngine) firstLeg(a, b domain.Candidate, modes []domain.TravelMode) (domain.TravelLeg, bool) {
	for _, m := range modes {
		if leg, err := e.LegBetween(a, b, m); err == nil {
			return leg, true
		}
	}
	return domain.TravelLeg{}, false
}

// IsOpenDuring reports whether c is open for the whole of [start, end] on date.
// Visits that spill past midnight are never open.
func (e *FeasibilityEngine) IsOpenDuring(c domain.Candidate, date, start, end time.Time) bool {
	if end.Before(start) {
		return false
	}
	if !domain.DateOf(start).Equal(domain.DateOf(date)) {
		return false
	}
	from := domain.ClockOf(date, start)
	to := domain.ClockOf(date, end)
	if to > domain.EndOfDay {
		return false
	}
	return c.Hours.Covers(date.Weekday(), from, to)
}

func (e *FeasibilityEngine) WithinBudget(partial, budget domain.Money) bool {
	return partial.LessOrEqual(budget)
}

func (e *FeasibilityEngine) LodgingCovers(lodging domain.Candidate, trip domain.Trip) bool {
	return lodging.IsLodging() && lodging.Availability.Covers(trip.Dates)
}

// SelectLodging picks the lodging for the whole stay. Well rated lodgings that
// leave room for activities are preferred; otherwise the cheapest affordable one
// is taken. A lodging above budget within the overflow cap is accepted with a
// trip-level ALLOW_BUDGET_OVERFLOW record.
func (e *FeasibilityEngine) SelectLodging(trip domain.Trip, store *CandidateStore) (domain.Candidate, *domain.ConflictResolution, error) {
	var covering []domain.Candidate
	for _, l := range store.Lodgings() {
		if e.LodgingCovers(l, trip) {
			covering = append(covering, l)
		}
	}
	if len(covering) == 0 {
		return domain.Candidate{}, nil, &domain.InfeasibleTripError{
			Constraint: fmt.Sprintf("no lodging is available for the whole stay %s", trip.Dates),
		}
	}

	byValue := func(cs []domain.Candidate) {
		sort.Slice(cs, func(i, j int) bool {
			if cs[i].Rating != cs[j].Rating {
				return cs[i].Rating > cs[j].Rating
			}
			if !cs[i].Cost.Amount.Equal(cs[j].Cost.Amount) {
				return cs[i].Cost.Amount.LessThan(cs[j].Cost.Amount)
			}
			return cs[i].ID < cs[j].ID
		})
	}
	byPrice := func(cs []domain.Candidate) {
		sort.Slice(cs, func(i, j int) bool {
			if !cs[i].Cost.Amount.Equal(cs[j].Cost.Amount) {
				return cs[i].Cost.Amount.LessThan(cs[j].Cost.Amount)
			}
			if cs[i].Rating != cs[j].Rating {
				return cs[i].Rating > cs[j].Rating
			}
			return cs[i].ID < cs[j].ID
		})
	}

	comfortable := trip.Budget.Scale(e.opts.LodgingBudgetShare)
	var preferred []domain.Candidate
	for _, l := range covering {
		if l.Cost.LessOrEqual(comfortable) {
			preferred = append(preferred, l)
		}
	}
	if len(preferred) > 0 {
		byValue(preferred)
		return preferred[0], nil, nil
	}

	byPrice(covering)
	cheapest := covering[0]
	if e.WithinBudget(cheapest.Cost, trip.Budget) {
		return cheapest, nil, nil
	}

	limit := trip.Budget.Scale(e.opts.overflowFactor())
	if !cheapest.Cost.LessOrEqual(limit) {
		return domain.Candidate{}, nil, &domain.InfeasibleTripError{
			Constraint: fmt.Sprintf("cheapest available lodging %q costs %s, above budget %s even with a %s%% overflow",
				cheapest.ID, cheapest.Cost, trip.Budget, e.opts.BudgetOverflowPct),
		}
	}

	over := cheapest.Cost.Sub(trip.Budget)
	res := &domain.ConflictResolution{
		Level:       domain.LevelAllowBudgetOverflow,
		ActivityID:  cheapest.ID,
		Reason:      domain.ReasonBudgetExceeded,
		Description: fmt.Sprintf("accepted lodging %q at %s, %s over budget", cheapest.Label(), cheapest.Cost, over),
		Rationale: fmt.Sprintf("no lodging for %s fits the budget of %s; the cheapest is within the %s%% overflow allowance",
			trip.Dates, trip.Budget, e.opts.BudgetOverflowPct),
	}
	return cheapest, res, nil
}
