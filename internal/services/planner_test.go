package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"
	"tripsynth/internal/adapters/routing"
	"tripsynth/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertWellFormed(t *testing.T, it *domain.Itinerary) {
	t.Helper()
	require.NoError(t, it.CheckInvariants())

	for _, d := range it.Days {
		for i := 1; i < len(d.Items); i++ {
			prev, cur := d.Items[i-1], d.Items[i]
			assert.False(t, cur.Start.Before(prev.End.Add(cur.Leg.Duration)),
				"%s starts before %s ends plus travel", cur.Candidate.ID, prev.Candidate.ID)
		}
	}
	if !it.HasResolution(domain.LevelAllowBudgetOverflow) {
		assert.True(t, it.TotalCost.LessOrEqual(it.Trip.Budget), "total %s over budget %s", it.TotalCost, it.Trip.Budget)
	}
}

func TestPlanLisbonScenario(t *testing.T) {
	open := hours(t, map[string][]string{"daily": {"09:00-18:00"}})
	var acts []domain.Candidate
	for i, cost := range []float64{20, 30, 0, 15, 40} {
		acts = append(acts, activity(fmt.Sprintf("act-%d", i+1), i, cost, open, "culture"))
	}
	tr := trip(t, 3, 900)
	p := newTestPlanner(t, []domain.Candidate{lodging("stay", 450, tr.Dates)}, acts, nil)

	it, err := p.Plan(context.Background(), tr)
	require.NoError(t, err)

	require.Len(t, it.Days, 3)
	assert.True(t, it.TotalCost.LessOrEqual(usd(900)))
	assert.Equal(t, "stay", it.Lodging.ID)
	assert.Equal(t, "Europe/Lisbon", it.TimeZone)
	assertWellFormed(t, it)

	scheduled := 0
	for _, d := range it.Days {
		scheduled += len(d.Items)
		for _, item := range d.Items {
			assert.Equal(t, "Europe/Lisbon", item.Start.Location().String())
			assert.False(t, item.Start.Before(domain.NewTimeOfDay(9, 0).On(d.Date, item.Start.Location())))
		}
	}
	assert.Equal(t, 5, scheduled, "every activity is scheduled exactly once")
}

func TestPlanSkipsLodgingMissingLastDay(t *testing.T) {
	tr := trip(t, 3, 900)
	short := dates(t, "2026-05-04", 2)
	acts := []domain.Candidate{activity("museum", 0, 10, nil)}

	p := newTestPlanner(t, []domain.Candidate{
		lodging("cheap-short", 100, short),
		lodging("full", 400, tr.Dates),
	}, acts, nil)

	it, err := p.Plan(context.Background(), tr)
	require.NoError(t, err)
	assert.Equal(t, "full", it.Lodging.ID)

	p = newTestPlanner(t, []domain.Candidate{lodging("cheap-short", 100, short)}, acts, nil)
	_, err = p.Plan(context.Background(), tr)

	var infeasible *domain.InfeasibleTripError
	require.ErrorAs(t, err, &infeasible)
	assert.ErrorIs(t, err, domain.ErrInfeasibleTrip)
	assert.Contains(t, infeasible.Constraint, "no lodging")
}

func TestAssembleRejectsLodgingMissingADay(t *testing.T) {
	tr := trip(t, 3, 900)
	short := lodging("short", 200, dates(t, "2026-05-04", 2))
	store, err := NewCandidateStore(tr, []domain.Candidate{short}, []domain.Candidate{activity("a", 0, 10, nil)}, time.Hour, zerolog.Nop())
	require.NoError(t, err)

	opts := testOptions()
	engine := NewFeasibilityEngine(routing.NewHaversineRouter(), opts, zerolog.Nop())
	_, err = NewItineraryAssembler(engine, opts, zerolog.Nop()).Assemble(context.Background(), AssemblyInput{
		Trip:    tr,
		Store:   store,
		Lodging: short,
	})

	var infeasible *domain.InfeasibleTripError
	require.ErrorAs(t, err, &infeasible)
	assert.Contains(t, infeasible.Constraint, "whole stay")
	require.NotNil(t, infeasible.Partial)
	assert.Empty(t, infeasible.Partial.Days)
}

func TestPlanEarlyClosingExtendsHours(t *testing.T) {
	tr := trip(t, 1, 500)
	// Reachable only when the day starts two hours early.
	acts := []domain.Candidate{activity("bakery", 0, 5, hours(t, map[string][]string{"daily": {"06:00-08:00"}}))}
	acts[0].Location = lisbon
	acts[0].VisitDuration = time.Hour

	p := newTestPlanner(t, []domain.Candidate{lodging("stay", 200, tr.Dates)}, acts, nil)
	it, err := p.Plan(context.Background(), tr)
	require.NoError(t, err)

	require.Len(t, it.Days, 1)
	require.Len(t, it.Days[0].Items, 1)
	assert.Equal(t, "07:00", it.Days[0].Items[0].Start.Format("15:04"))
	require.Len(t, it.Resolutions, 1)
	assert.Equal(t, domain.LevelExtendHours, it.Resolutions[0].Level)
	assert.Equal(t, domain.ReasonNoOpenCandidates, it.Resolutions[0].Reason)
	assert.Contains(t, it.Resolutions[0].Description, "120 min")
	assertWellFormed(t, it)
}

func TestPlanOnClockChangeDay(t *testing.T) {
	tr, err := domain.NewTrip("Lisbon", dates(t, "2026-03-29", 1), usd(500), []string{"culture"})
	require.NoError(t, err)
	tr.TimeZone = "Europe/Lisbon"

	acts := []domain.Candidate{activity("museum", 0, 5, hours(t, map[string][]string{"daily": {"09:00-10:30"}}))}
	acts[0].Location = lisbon

	p := newTestPlanner(t, []domain.Candidate{lodging("stay", 200, tr.Dates)}, acts, nil)
	it, err := p.Plan(context.Background(), tr)
	require.NoError(t, err)

	require.Len(t, it.Days, 1)
	require.Len(t, it.Days[0].Items, 1)
	item := it.Days[0].Items[0]
	assert.Equal(t, "09:00", item.Start.Format("15:04"))
	assert.Equal(t, "10:30", item.End.Format("15:04"))
	assert.Empty(t, it.Resolutions)
	assertWellFormed(t, it)
}

func TestPlanEarlyClosingBecomesRestDay(t *testing.T) {
	tr := trip(t, 1, 500)
	acts := []domain.Candidate{activity("night-market", 0, 5, hours(t, map[string][]string{"daily": {"04:00-05:00"}}))}

	p := newTestPlanner(t, []domain.Candidate{lodging("stay", 200, tr.Dates)}, acts, nil)
	it, err := p.Plan(context.Background(), tr)
	require.NoError(t, err)

	require.Len(t, it.Days, 1)
	assert.True(t, it.Days[0].Degenerate)
	assert.Empty(t, it.Days[0].Items)
	assert.True(t, it.HasResolution(domain.LevelAcceptDegenerateDay))
	assert.False(t, it.HasResolution(domain.LevelExtendHours))
	assertWellFormed(t, it)
}

func TestPlanDayOverflowsShare(t *testing.T) {
	tr := trip(t, 2, 100)
	acts := []domain.Candidate{activity("tour", 0, 28, nil)}

	p := newTestPlanner(t, []domain.Candidate{lodging("stay", 50, tr.Dates)}, acts, nil)
	it, err := p.Plan(context.Background(), tr)
	require.NoError(t, err)

	require.Len(t, it.Days[0].Items, 1)
	assert.True(t, it.Days[1].Degenerate)
	assert.True(t, it.HasResolution(domain.LevelAllowBudgetOverflow))
	assert.True(t, it.TotalCost.LessOrEqual(tr.Budget), "day overflow never exceeds the trip budget")
	assertWellFormed(t, it)
}

func TestPlanSubstitutesTravelMode(t *testing.T) {
	tr := trip(t, 1, 500)
	acts := []domain.Candidate{activity("castle", 0, 10, nil)}
	router := routing.NewMockRouteProvider([]routing.MockLeg{
		{From: lisbon, To: acts[0].Location, Mode: domain.ModeWalk, Meters: 400, Seconds: 300},
	})

	p := newTestPlanner(t, []domain.Candidate{lodging("stay", 200, tr.Dates)}, acts, router)
	it, err := p.Plan(context.Background(), tr)
	require.NoError(t, err)

	require.Len(t, it.Days[0].Items, 1)
	assert.Equal(t, domain.ModeWalk, it.Days[0].Items[0].Leg.Mode)
	require.True(t, it.HasResolution(domain.LevelSubstituteMode))
	for _, r := range it.Resolutions {
		if r.Level == domain.LevelSubstituteMode {
			assert.Equal(t, "castle", r.ActivityID)
			assert.Equal(t, domain.ReasonUnreachable, r.Reason)
		}
	}
	assertWellFormed(t, it)
}

func TestPlanLodgingOverflow(t *testing.T) {
	tr := trip(t, 1, 100)
	acts := []domain.Candidate{activity("park", 0, 0, nil), activity("gallery", 1, 10, nil)}

	p := newTestPlanner(t, []domain.Candidate{lodging("stay", 110, tr.Dates)}, acts, nil)
	it, err := p.Plan(context.Background(), tr)
	require.NoError(t, err)

	assert.True(t, it.HasResolution(domain.LevelAllowBudgetOverflow))
	assert.True(t, it.TotalCost.Amount.Equal(usd(110).Amount), "only free activities fit, got %s", it.TotalCost)
	assertWellFormed(t, it)

	p = newTestPlanner(t, []domain.Candidate{lodging("stay", 120, tr.Dates)}, acts, nil)
	_, err = p.Plan(context.Background(), tr)
	assert.ErrorIs(t, err, domain.ErrInfeasibleTrip)
}

func TestPlanIsIdempotent(t *testing.T) {
	open := hours(t, map[string][]string{"mon-fri": {"10:00-17:00"}, "sat": {"10:00-13:00"}})
	var acts []domain.Candidate
	for i := 0; i < 12; i++ {
		acts = append(acts, activity(fmt.Sprintf("a%02d", i), i, float64(5*(i%4)), open))
	}
	tr := trip(t, 4, 600)
	lodgings := []domain.Candidate{lodging("stay", 300, tr.Dates)}

	first, err := newTestPlanner(t, lodgings, acts, nil).Plan(context.Background(), tr)
	require.NoError(t, err)
	second, err := newTestPlanner(t, lodgings, acts, nil).Plan(context.Background(), tr)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, first.ID, second.ID)
}

func TestPlanRandomCandidateSets(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			days := 1 + rng.Intn(5)
			tr := trip(t, days, float64(300+rng.Intn(1500)))
			tr.AllowRevisits = rng.Intn(4) == 0

			var lodgings []domain.Candidate
			for i := 0; i < 1+rng.Intn(3); i++ {
				lodgings = append(lodgings, lodging(fmt.Sprintf("l%d", i), float64(50+rng.Intn(400)), tr.Dates))
			}

			var acts []domain.Candidate
			for i := 0; i < 1+rng.Intn(15); i++ {
				open := 6 + rng.Intn(8)
				h := hours(t, map[string][]string{
					"daily": {fmt.Sprintf("%02d:00-%02d:00", open, min(open+2+rng.Intn(10), 24))},
				})
				a := activity(fmt.Sprintf("a%02d", i), rng.Intn(25), float64(rng.Intn(80)), h, "culture")
				a.VisitDuration = time.Duration(30+rng.Intn(150)) * time.Minute
				acts = append(acts, a)
			}

			it, err := newTestPlanner(t, lodgings, acts, nil).Plan(context.Background(), tr)
			if errors.Is(err, domain.ErrInfeasibleTrip) {
				return
			}
			require.NoError(t, err)
			require.Len(t, it.Days, days)
			assertWellFormed(t, it)

			if !tr.AllowRevisits {
				seen := map[string]bool{}
				for _, d := range it.Days {
					for _, item := range d.Items {
						assert.False(t, seen[item.Candidate.ID], "%s scheduled twice", item.Candidate.ID)
						seen[item.Candidate.ID] = true
					}
				}
			}
		})
	}
}

func TestPlanNoActivities(t *testing.T) {
	tr := trip(t, 2, 500)
	p := newTestPlanner(t, []domain.Candidate{lodging("stay", 200, tr.Dates)}, nil, nil)

	_, err := p.Plan(context.Background(), tr)
	assert.ErrorIs(t, err, domain.ErrNoCandidates)
}

func TestPlanRejectsInvalidTrip(t *testing.T) {
	tr := trip(t, 2, 500)
	tr.Budget = usd(50)
	p := newTestPlanner(t, nil, nil, nil)

	_, err := p.Plan(context.Background(), tr)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPlanCancelled(t *testing.T) {
	tr := trip(t, 2, 500)
	acts := []domain.Candidate{activity("a", 0, 1, nil), activity("b", 1, 1, nil)}
	p := newTestPlanner(t, []domain.Candidate{lodging("stay", 200, tr.Dates)}, acts, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	it, err := p.Plan(ctx, tr)
	assert.Nil(t, it)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlanProviderFailures(t *testing.T) {
	tr := trip(t, 1, 500)
	acts := []domain.Candidate{activity("a", 0, 1, nil)}

	t.Run("auth surfaces", func(t *testing.T) {
		p, err := NewPlanner(PlannerDeps{
			Lodging:    &fakeLodging{err: fmt.Errorf("listings: %w", domain.ErrProviderAuth)},
			Activities: &fakeActivities{cands: acts},
			Router:     routing.NewHaversineRouter(),
		}, testOptions(), zerolog.Nop())
		require.NoError(t, err)

		_, err = p.Plan(context.Background(), tr)
		assert.ErrorIs(t, err, domain.ErrProviderAuth)
	})

	t.Run("timeout means no candidates", func(t *testing.T) {
		opts := testOptions()
		opts.CallTimeout = 20 * time.Millisecond
		lodgings := &fakeLodging{block: true}
		p, err := NewPlanner(PlannerDeps{
			Lodging:    lodgings,
			Activities: &fakeActivities{cands: acts},
			Router:     routing.NewHaversineRouter(),
		}, opts, zerolog.Nop())
		require.NoError(t, err)

		_, err = p.Plan(context.Background(), tr)
		assert.ErrorIs(t, err, domain.ErrNoCandidates)
		assert.Equal(t, 2, lodgings.calls, "one retry after the timeout")
	})
}

func TestNewPlannerValidates(t *testing.T) {
	_, err := NewPlanner(PlannerDeps{}, DefaultPlannerOptions(), zerolog.Nop())
	assert.Error(t, err)

	deps := PlannerDeps{
		Lodging:    &fakeLodging{},
		Activities: &fakeActivities{},
		Router:     routing.NewHaversineRouter(),
	}
	for name, mutate := range map[string]func(*PlannerOptions){
		"empty day":      func(o *PlannerOptions) { o.DayEnd = o.DayStart },
		"zero backoff":   func(o *PlannerOptions) { o.RetryBackoff = 0 },
		"no concurrency": func(o *PlannerOptions) { o.Concurrency = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			opts := DefaultPlannerOptions()
			mutate(&opts)
			_, err := NewPlanner(deps, opts, zerolog.Nop())
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}
