package services

import (
	"context"
	"fmt"
	"sort"
	"time"
	"tripsynth/internal/domain"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// dayRequest is everything fixed about one day before any relaxation.
type dayRequest struct {
	trip domain.Trip
	date time.Time
	loc  *time.Location
	from domain.Candidate
	pool []domain.Candidate
}

// dayConstraints are the limits a day is planned under. The resolver loosens them.
type dayConstraints struct {
	start, end domain.TimeOfDay
	// limit caps the day's activity spend; share is the unrelaxed value and
	// remaining what is left of the trip's activity budget.
	limit, share, remaining domain.Money
	modes                   []domain.TravelMode
}

type dayOutcome struct {
	plan   domain.DayPlan
	reason domain.FailureReason
}

func (o dayOutcome) filled() bool { return len(o.plan.Items) > 0 }

// option is a feasible next stop from the current position.
type option struct {
	cand       domain.Candidate
	leg        domain.TravelLeg
	start, end time.Time
	score      float64
}

// rejections counts why candidates were not feasible during a day.
type rejections struct {
	budget, unreachable, closed int
}

func (r rejections) reason() domain.FailureReason {
	switch {
	case r.budget > 0:
		return domain.ReasonBudgetExceeded
	case r.unreachable > 0:
		return domain.ReasonUnreachable
	default:
		return domain.ReasonNoOpenCandidates
	}
}

// AssemblyInput is the pre-fetched state one assembly run works from.
type AssemblyInput struct {
	Trip     domain.Trip
	Store    *CandidateStore
	Lodging  domain.Candidate
	Location *time.Location
	// Advisories by date (YYYY-MM-DD). Copied onto day plans, never consulted.
	Advisories map[string]string
	// Trip-level resolutions already applied, such as a lodging overflow.
	Resolutions []domain.ConflictResolution
}

// ItineraryAssembler builds day plans one day at a time with a greedy,
// score-ordered selection and a bounded lookahead.
type ItineraryAssembler struct {
	engine *FeasibilityEngine
	opts   PlannerOptions
	logger zerolog.Logger
}

func NewItineraryAssembler(engine *FeasibilityEngine, opts PlannerOptions, logger zerolog.Logger) *ItineraryAssembler {
	return &ItineraryAssembler{engine: engine, opts: opts, logger: logger}
}

// Assemble returns a finalized itinerary or an *domain.InfeasibleTripError.
// Legs must already be prefetched for the lodging and every activity, and the
// lodging must be available for every day of the trip.
func (a *ItineraryAssembler) Assemble(ctx context.Context, in AssemblyInput) (*domain.Itinerary, error) {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	it := &domain.Itinerary{
		Trip:        in.Trip,
		Lodging:     in.Lodging,
		TimeZone:    loc.String(),
		Resolutions: append([]domain.ConflictResolution{}, in.Resolutions...),
	}
	if !a.engine.LodgingCovers(in.Lodging, in.Trip) {
		return nil, &domain.InfeasibleTripError{
			Constraint: fmt.Sprintf("lodging %q is not available for the whole stay %s", in.Lodging.ID, in.Trip.Dates),
			Partial:    it,
		}
	}

	activityBudget := in.Trip.Budget.Sub(in.Lodging.Cost)
	if activityBudget.IsNegative() {
		activityBudget = activityBudget.Zero()
	}
	spent := activityBudget.Zero()

	resolver := NewConflictResolver(a, a.opts, a.logger)
	consumed := map[string]bool{}
	position := in.Lodging
	var attempts []domain.ConflictResolution

	days := in.Trip.Dates.Days()
	for i, date := range days {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		remaining := activityBudget.Sub(spent)
		if remaining.IsNegative() {
			remaining = remaining.Zero()
		}
		share := remaining.Split(len(days) - i)
		c := dayConstraints{
			start:     a.opts.DayStart,
			end:       a.opts.DayEnd,
			limit:     share,
			share:     share,
			remaining: remaining,
			modes:     []domain.TravelMode{a.opts.PrimaryMode},
		}
		req := dayRequest{
			trip: in.Trip,
			date: date,
			loc:  loc,
			from: position,
			pool: a.pool(in.Trip, in.Store, date, consumed),
		}

		out := a.planDay(req, c)
		if !out.filled() {
			res := resolver.Resolve(req, c, out.reason)
			attempts = append(attempts, res.attempts...)
			out.plan = res.plan
			it.Resolutions = append(it.Resolutions, res.applied...)
		}

		out.plan.Advisory = in.Advisories[date.Format(domain.DateLayout)]
		for _, item := range out.plan.Items {
			consumed[item.Candidate.ID] = true
		}
		spent = spent.Add(out.plan.Cost)
		if len(out.plan.Items) > 0 {
			position = out.plan.Items[len(out.plan.Items)-1].Candidate
		}
		it.Days = append(it.Days, out.plan)

		a.logger.Debug().
			Str("date", date.Format(domain.DateLayout)).
			Int("items", len(out.plan.Items)).
			Str("cost", out.plan.Cost.String()).
			Bool("degenerate", out.plan.Degenerate).
			Msg("day assembled")
	}

	if err := it.Finalize(); err != nil {
		return nil, fmt.Errorf("assemble itinerary: %w", err)
	}
	limit := in.Trip.Budget.Scale(a.opts.overflowFactor())
	if it.TotalCost.GreaterThan(limit) {
		return nil, &domain.InfeasibleTripError{
			Constraint: fmt.Sprintf("total cost %s exceeds budget %s beyond the overflow cap", it.TotalCost, in.Trip.Budget),
			Partial:    it,
			Attempts:   attempts,
		}
	}
	return it, nil
}

// pool returns the activities open on date that have not been consumed yet.
func (a *ItineraryAssembler) pool(trip domain.Trip, store *CandidateStore, date time.Time, consumed map[string]bool) []domain.Candidate {
	return lo.Filter(store.Activities(), func(c domain.Candidate, _ int) bool {
		if !trip.AllowRevisits && consumed[c.ID] {
			return false
		}
		return c.OpenOn(date)
	})
}

// planDay greedily fills one day starting at the constraint's start time from req.from.
func (a *ItineraryAssembler) planDay(req dayRequest, c dayConstraints) dayOutcome {
	plan := domain.DayPlan{
		Date:  req.date,
		Items: []domain.ScheduledItem{},
		Cost:  req.trip.Budget.Zero(),
	}
	if len(req.pool) == 0 {
		return dayOutcome{plan: plan, reason: domain.ReasonNoOpenCandidates}
	}

	now := c.start.On(req.date, req.loc)
	pos := req.from
	chosen := map[string]bool{}
	var tally rejections

	for {
		options := a.feasibleNext(req, c, pos, now, plan.Cost, chosen, &tally)
		if len(options) == 0 {
			break
		}
		best := a.pick(req, c, options, plan.Cost, chosen)

		leg := best.leg
		plan.Items = append(plan.Items, domain.ScheduledItem{
			Candidate: best.cand,
			Start:     best.start,
			End:       best.end,
			Leg:       &leg,
		})
		plan.Cost = plan.Cost.Add(best.cand.Cost)
		plan.TravelTime += leg.Duration
		chosen[best.cand.ID] = true
		now = best.end
		pos = best.cand
	}

	if len(plan.Items) == 0 {
		return dayOutcome{plan: plan, reason: tally.reason()}
	}
	return dayOutcome{plan: plan}
}

// feasibleNext lists every candidate that can be reached from pos after now, fits
// an opening window before the day ends and keeps the day within its limit.
// Options come back best first.
func (a *ItineraryAssembler) feasibleNext(
	req dayRequest,
	c dayConstraints,
	pos domain.Candidate,
	now time.Time,
	spent domain.Money,
	chosen map[string]bool,
	tally *rejections,
) []option {
	if tally == nil {
		tally = &rejections{}
	}
	dayEnd := c.end.On(req.date, req.loc)
	weekday := req.date.Weekday()

	var out []option
	for _, cand := range req.pool {
		if chosen[cand.ID] {
			continue
		}

		leg, ok := a.engine.firstLeg(pos, cand, c.modes)
		if !ok {
			tally.unreachable++
			continue
		}

		arrive := now.Add(leg.Duration)
		notBefore := max(domain.ClockOf(req.date, arrive), c.start)
		fit, ok := cand.Hours.EarliestFit(weekday, notBefore, cand.VisitDuration)
		if !ok {
			tally.closed++
			continue
		}
		start := fit.On(req.date, req.loc)
		end := start.Add(cand.VisitDuration)
		if end.After(dayEnd) || !a.engine.IsOpenDuring(cand, req.date, start, end) {
			tally.closed++
			continue
		}

		if !a.engine.WithinBudget(spent.Add(cand.Cost), c.limit) {
			tally.budget++
			continue
		}

		out = append(out, option{
			cand:  cand,
			leg:   leg,
			start: start,
			end:   end,
			score: a.score(req.trip, cand, leg),
		})
	}

	sort.Slice(out, func(i, j int) bool { return better(out[i].score, out[j].score, out[i].cand, out[j].cand) })
	return out
}

// score favours preference matches and penalizes cost and travel time.
func (a *ItineraryAssembler) score(trip domain.Trip, c domain.Candidate, leg domain.TravelLeg) float64 {
	weight := 1 + float64(trip.PreferenceMatches(c.Tags))
	penalty := 1 + c.Cost.Float() + leg.Duration.Minutes()*a.opts.TravelPenaltyPerMinute
	return weight / penalty
}

// pick chooses among the top options by adding a discounted score for the best
// follow-up stop each one leaves open.
func (a *ItineraryAssembler) pick(req dayRequest, c dayConstraints, options []option, spent domain.Money, chosen map[string]bool) option {
	width := min(a.opts.LookaheadWidth, len(options))
	if width <= 1 || a.opts.LookaheadWeight == 0 {
		return options[0]
	}

	best := options[0]
	bestTotal := -1.0
	for _, opt := range options[:width] {
		chosen[opt.cand.ID] = true
		next := a.feasibleNext(req, c, opt.cand, opt.end, spent.Add(opt.cand.Cost), chosen, nil)
		delete(chosen, opt.cand.ID)

		total := opt.score
		if len(next) > 0 {
			total += a.opts.LookaheadWeight * next[0].score
		}
		if total > bestTotal || (total == bestTotal && better(total, bestTotal, opt.cand, best.cand)) {
			best = opt
			bestTotal = total
		}
	}
	return best
}

// better orders by score, then rating, then id.
func better(si, sj float64, ci, cj domain.Candidate) bool {
	if si != sj {
		return si > sj
	}
	if ci.Rating != cj.Rating {
		return ci.Rating > cj.Rating
	}
	return ci.ID < cj.ID
}
