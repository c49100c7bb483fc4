package services

import (
	"context"
	"testing"
	"time"
	"tripsynth/internal/adapters/routing"
	"tripsynth/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeLodging struct {
	cands []domain.Candidate
	err   error
	block bool
	calls int
}

func (f *fakeLodging) SearchLodging(ctx context.Context, _ string, _ domain.DateRange, _ domain.Money) ([]domain.Candidate, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.cands, f.err
}

type fakeActivities struct {
	cands []domain.Candidate
	err   error
}

func (f *fakeActivities) SearchActivities(context.Context, string, []string) ([]domain.Candidate, error) {
	return f.cands, f.err
}

// lisbon is the lodging location; activities sit a few hundred meters around it.
var lisbon = domain.Coordinates{Lon: -9.1393, Lat: 38.7107}

func near(i int) domain.Coordinates {
	return domain.Coordinates{Lon: lisbon.Lon + 0.002*float64(i%5), Lat: lisbon.Lat + 0.002*float64(i/5+1)}
}

func usd(v float64) domain.Money { return domain.MoneyFromFloat(v, "USD") }

func dates(t *testing.T, start string, days int) domain.DateRange {
	t.Helper()
	s, err := domain.ParseDate(start)
	require.NoError(t, err)
	r, err := domain.NewDateRange(s, s.AddDate(0, 0, days-1))
	require.NoError(t, err)
	return r
}

func hours(t *testing.T, raw map[string][]string) domain.WeeklyHours {
	t.Helper()
	h, err := domain.ParseWeeklyHours(raw)
	require.NoError(t, err)
	return h
}

func lodging(id string, cost float64, avail domain.DateRange) domain.Candidate {
	return domain.Candidate{
		ID:           id,
		Kind:         domain.KindLodging,
		Name:         "Lodging " + id,
		Location:     lisbon,
		Cost:         usd(cost),
		Rating:       4.2,
		Availability: avail,
		ProviderID:   "test",
	}
}

func activity(id string, i int, cost float64, h domain.WeeklyHours, tags ...string) domain.Candidate {
	return domain.Candidate{
		ID:            id,
		Kind:          domain.KindActivity,
		Name:          "Activity " + id,
		Location:      near(i),
		Cost:          usd(cost),
		Hours:         h,
		VisitDuration: 90 * time.Minute,
		Rating:        4.0,
		Tags:          tags,
		ProviderID:    "test",
	}
}

func trip(t *testing.T, days int, budget float64) domain.Trip {
	t.Helper()
	tr, err := domain.NewTrip("Lisbon", dates(t, "2026-05-04", days), usd(budget), []string{"culture"})
	require.NoError(t, err)
	tr.TimeZone = "Europe/Lisbon"
	return tr
}

func testOptions() PlannerOptions {
	opts := DefaultPlannerOptions()
	opts.CallTimeout = 200 * time.Millisecond
	opts.RetryBackoff = time.Millisecond
	return opts
}

func newTestPlanner(t *testing.T, lodgings, activities []domain.Candidate, router *routing.MockRouteProvider) *Planner {
	t.Helper()
	deps := PlannerDeps{
		Lodging:    &fakeLodging{cands: lodgings},
		Activities: &fakeActivities{cands: activities},
		Router:     routing.NewHaversineRouter(),
	}
	if router != nil {
		deps.Router = router
	}
	p, err := NewPlanner(deps, testOptions(), zerolog.Nop())
	require.NoError(t, err)
	return p
}
