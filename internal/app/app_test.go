package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"
	"tripsynth/internal/config"
	"tripsynth/internal/domain"
	"tripsynth/internal/services"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	forecast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"daily":{"time":["2026-05-05"],"weather_code":[1]}}`)
	}))
	t.Cleanup(forecast.Close)

	return config.Config{
		DBPath:         filepath.Join(t.TempDir(), "app.db"),
		SeedPath:       filepath.Join("..", "..", "data", "seeds", "candidates.json"),
		Router:         "haversine",
		WeatherBaseURL: forecast.URL,
		ItineraryTTL:   time.Hour,
		Planner:        services.DefaultPlannerOptions(),
	}
}

func TestBuild_PlansFromSeededCatalog(t *testing.T) {
	ctx := context.Background()
	a, err := Build(ctx, testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	assert.Nil(t, a.Mailer)
	dests, err := a.Catalog.Destinations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lisbon"}, dests)

	start := time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)
	dates, err := domain.NewDateRange(start, start.AddDate(0, 0, 2))
	require.NoError(t, err)
	trip, err := domain.NewTrip("Lisbon", dates, domain.MoneyFromFloat(900, "USD"), []string{"Cultural Experiences"})
	require.NoError(t, err)
	trip.TimeZone = "Europe/Lisbon"

	it, err := a.Planner.Plan(ctx, trip)
	require.NoError(t, err)
	require.NoError(t, it.CheckInvariants())
	assert.Len(t, it.Days, 3)
	assert.Equal(t, "Europe/Lisbon", it.TimeZone)
	assert.Equal(t, "Partly cloudy", it.Days[0].Advisory)

	require.NoError(t, a.Store.Save(ctx, it))
	got, err := a.Store.Get(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, it.ID, got.ID)
}

func TestBuild_SeedsOnlyOnce(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := Build(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	_, err = a.Catalog.DB.Exec(`DELETE FROM candidates WHERE id = 'lis-act-lx-factory'`)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	a, err = Build(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	var count int
	require.NoError(t, a.Catalog.DB.QueryRow(`SELECT COUNT(*) FROM candidates`).Scan(&count))
	assert.Equal(t, 7, count)
}

func TestBuild_MissingSeedIsTolerated(t *testing.T) {
	cfg := testConfig(t)
	cfg.SeedPath = filepath.Join(t.TempDir(), "none.json")

	a, err := Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	_, err = a.Planner.Plan(context.Background(), domain.Trip{})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestBuild_SMTPMailer(t *testing.T) {
	cfg := testConfig(t)
	cfg.SMTPHost = "smtp.example.com"
	cfg.SMTPFrom = "plans@example.com"
	cfg.SMTPPort = 2525

	a, err := Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	assert.NotNil(t, a.Mailer)
}

func TestBuild_InvalidRedisURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisURL = "not-a-url://"
	_, err := Build(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "REDIS_URL")
}
