package services

import (
	"fmt"
	"math/bits"
	"time"
	"tripsynth/internal/domain"

	"github.com/rs/zerolog"
)

// dayPlanner is the part of the assembler the resolver re-runs under looser constraints.
type dayPlanner interface {
	planDay(req dayRequest, c dayConstraints) dayOutcome
}

// resolution is the outcome of resolving one day. applied holds the relaxations
// the accepted plan depends on; attempts holds every relaxation that was tried.
type resolution struct {
	plan     domain.DayPlan
	applied  []domain.ConflictResolution
	attempts []domain.ConflictResolution
}

// relaxation is one loosened constraint and its record.
type relaxation struct {
	rec   domain.ConflictResolution
	apply func(c *dayConstraints)
}

// ConflictResolver relaxes a failed day's constraints one level at a time, in a
// fixed order: EXTEND_HOURS, ALLOW_BUDGET_OVERFLOW, SUBSTITUTE_MODE,
// ACCEPT_DEGENERATE_DAY. Relaxations from earlier levels stay available to later
// ones but are only kept when the accepted plan needs them.
type ConflictResolver struct {
	planner dayPlanner
	opts    PlannerOptions
	logger  zerolog.Logger
}

func NewConflictResolver(planner dayPlanner, opts PlannerOptions, logger zerolog.Logger) *ConflictResolver {
	return &ConflictResolver{planner: planner, opts: opts, logger: logger}
}

// Resolve returns a plan for req. When no relaxation fills the day it is kept as
// a rest day at the lodging.
func (r *ConflictResolver) Resolve(req dayRequest, base dayConstraints, reason domain.FailureReason) resolution {
	var res resolution
	day := req.date.Format(domain.DateLayout)

	newRelaxation := func(level domain.RelaxationLevel, desc string, apply func(c *dayConstraints)) relaxation {
		rec := domain.ConflictResolution{
			Level:       level,
			Date:        req.date,
			Reason:      reason,
			Description: desc,
			Rationale:   fmt.Sprintf("no activity fit %s under the current constraints (%s)", day, reason),
		}
		res.attempts = append(res.attempts, rec)
		return relaxation{rec: rec, apply: apply}
	}

	var earlier []relaxation
	// try plans under base plus last, adding earlier relaxations only as needed:
	// smaller combinations first, in level order.
	try := func(last relaxation) bool {
		n := len(earlier)
		for size := 0; size <= n; size++ {
			for mask := 0; mask < 1<<n; mask++ {
				if bits.OnesCount(uint(mask)) != size {
					continue
				}
				c := base
				var recs []domain.ConflictResolution
				for i, e := range earlier {
					if mask&(1<<i) != 0 {
						e.apply(&c)
						recs = append(recs, e.rec)
					}
				}
				last.apply(&c)

				out := r.planner.planDay(req, c)
				if !out.filled() {
					continue
				}
				res.plan = out.plan
				res.applied = append(recs, last.rec)
				if last.rec.Level == domain.LevelSubstituteMode {
					res.applied[len(res.applied)-1].ActivityID = substitutedLeg(out.plan, base.modes)
				}
				r.logger.Info().Str("date", day).Str("level", string(last.rec.Level)).Str("reason", string(reason)).Msg("day resolved")
				return true
			}
		}
		return false
	}

	if len(req.pool) > 0 {
		// EXTEND_HOURS
		var widest relaxation
		for ext := r.opts.ExtendStep; ext <= r.opts.ExtendCap; ext += r.opts.ExtendStep {
			start, end := base.start.Add(-ext), base.end.Add(ext)
			widest = newRelaxation(domain.LevelExtendHours,
				fmt.Sprintf("extended day window by %d min to %s-%s", int(ext/time.Minute), start, end),
				func(c *dayConstraints) { c.start, c.end = start, end })
			if try(widest) {
				return res
			}
		}
		earlier = append(earlier, widest)

		// ALLOW_BUDGET_OVERFLOW
		limit := base.share.Scale(r.opts.overflowFactor())
		if limit.GreaterThan(base.remaining) {
			limit = base.remaining
		}
		if limit.GreaterThan(base.limit) {
			overflow := newRelaxation(domain.LevelAllowBudgetOverflow,
				fmt.Sprintf("raised day spend limit from %s to %s", base.share, limit),
				func(c *dayConstraints) { c.limit = limit })
			if try(overflow) {
				return res
			}
			earlier = append(earlier, overflow)
		} else {
			newRelaxation(domain.LevelAllowBudgetOverflow,
				fmt.Sprintf("no budget headroom beyond the day share of %s", base.share), nil)
		}

		// SUBSTITUTE_MODE
		if modes := r.opts.allModes(); len(modes) > len(base.modes) {
			substitute := newRelaxation(domain.LevelSubstituteMode,
				fmt.Sprintf("allowed travel by %v", modes),
				func(c *dayConstraints) { c.modes = modes })
			if try(substitute) {
				return res
			}
		}
	}

	// ACCEPT_DEGENERATE_DAY
	rest := newRelaxation(domain.LevelAcceptDegenerateDay, fmt.Sprintf("kept %s as a rest day at the lodging", day), nil)
	res.plan = domain.DayPlan{
		Date:       req.date,
		Items:      []domain.ScheduledItem{},
		Cost:       req.trip.Budget.Zero(),
		Degenerate: true,
	}
	res.applied = []domain.ConflictResolution{rest.rec}
	r.logger.Info().Str("date", day).Str("reason", string(reason)).Msg("day kept as rest day")
	return res
}

// substitutedLeg returns the first activity reached by a mode outside primary.
func substitutedLeg(plan domain.DayPlan, primary []domain.TravelMode) string {
	for _, item := range plan.Items {
		if item.Leg == nil {
			continue
		}
		used := false
		for _, m := range primary {
			if item.Leg.Mode == m {
				used = true
			}
		}
		if !used {
			return item.Candidate.ID
		}
	}
	return ""
}
