package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"tripsynth/internal/adapters/repositories"
	"tripsynth/internal/api/dto"
	"tripsynth/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlanner struct {
	plan  func(ctx context.Context, trip domain.Trip) (*domain.Itinerary, error)
	calls int
}

func (f *fakePlanner) Plan(ctx context.Context, trip domain.Trip) (*domain.Itinerary, error) {
	f.calls++
	return f.plan(ctx, trip)
}

type fakeMailer struct {
	to  []string
	err error
}

func (f *fakeMailer) Send(_ context.Context, to []string, _ *domain.Itinerary) error {
	f.to = to
	return f.err
}

type fakeCatalog struct{ dests []string }

func (f fakeCatalog) Destinations(context.Context) ([]string, error) { return f.dests, nil }

func plannedItinerary(trip domain.Trip) (*domain.Itinerary, error) {
	stay := domain.Candidate{
		ID: "stay", Kind: domain.KindLodging, Name: "Alfama Loft",
		Cost: domain.MoneyFromFloat(300, trip.Budget.Currency), Availability: trip.Dates,
	}
	castle := domain.Candidate{
		ID: "castle", Kind: domain.KindActivity, Name: "Castle",
		Cost: domain.MoneyFromFloat(15, trip.Budget.Currency),
	}
	start := trip.Dates.Start.Add(9*time.Hour + 10*time.Minute)

	it := &domain.Itinerary{Trip: trip, Lodging: stay, TimeZone: "UTC"}
	for i, date := range trip.Dates.Days() {
		day := domain.DayPlan{Date: date, Cost: trip.Budget.Zero(), Degenerate: true}
		if i == 0 {
			day = domain.DayPlan{
				Date: date,
				Items: []domain.ScheduledItem{{
					Candidate: castle, Start: start, End: start.Add(90 * time.Minute),
					Leg: &domain.TravelLeg{From: "stay", To: "castle", Duration: 10 * time.Minute, DistanceMeters: 700, Mode: domain.ModeWalk},
				}},
				Cost:       castle.Cost,
				TravelTime: 10 * time.Minute,
			}
		}
		it.Days = append(it.Days, day)
	}
	if err := it.Finalize(); err != nil {
		return nil, err
	}
	return it, nil
}

type harness struct {
	srv     *httptest.Server
	planner *fakePlanner
	mailer  *fakeMailer
}

func newHarness(t *testing.T, withMailer bool) *harness {
	t.Helper()
	h := &harness{
		planner: &fakePlanner{plan: func(_ context.Context, trip domain.Trip) (*domain.Itinerary, error) {
			return plannedItinerary(trip)
		}},
	}
	deps := Deps{
		Planner:     h.planner,
		Store:       repositories.NewMemoryItineraryRepository(time.Hour),
		Catalog:     fakeCatalog{dests: []string{"Lisbon", "Porto"}},
		Logger:      zerolog.Nop(),
		CORSOrigins: []string{"https://app.example"},
	}
	if withMailer {
		h.mailer = &fakeMailer{}
		deps.Mailer = h.mailer
	}
	h.srv = httptest.NewServer(NewRouter(deps))
	t.Cleanup(h.srv.Close)
	return h
}

func (h *harness) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, rdr)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

const lisbonRequest = `{
	"destination": "Lisbon",
	"start_date": "2026-05-04",
	"end_date": "2026-05-06",
	"budget": 900,
	"currency": "usd",
	"preferences": ["Sightseeing", "Food & Dining"]
}`

func decodeError(t *testing.T, b []byte) dto.ErrorResponse {
	t.Helper()
	var res dto.ErrorResponse
	require.NoError(t, json.Unmarshal(b, &res), string(b))
	return res
}

func TestHealth(t *testing.T) {
	h := newHarness(t, false)
	resp, body := h.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}

func TestDestinations(t *testing.T) {
	h := newHarness(t, false)
	resp, body := h.do(t, http.MethodGet, "/destinations", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"destinations":["Lisbon","Porto"]}`, string(body))
}

func TestCreateAndFetchItinerary(t *testing.T) {
	h := newHarness(t, false)

	resp, body := h.do(t, http.MethodPost, "/itineraries", lisbonRequest)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var created dto.ItineraryResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "/itineraries/"+created.ID, resp.Header.Get("Location"))
	assert.Equal(t, "Lisbon", created.Destination)
	assert.Equal(t, dto.MoneyResponse{Amount: "900.00", Currency: "USD"}, created.Budget)
	assert.Equal(t, dto.MoneyResponse{Amount: "315.00", Currency: "USD"}, created.TotalCost)
	assert.Equal(t, []string{"food & dining", "sightseeing"}, created.Preferences)
	require.Len(t, created.Days, 3)
	assert.Equal(t, "2026-05-04", created.Days[0].Date)
	require.Len(t, created.Days[0].Items, 1)
	assert.Equal(t, 10, created.Days[0].Items[0].Leg.DurationMinutes)
	assert.True(t, created.Days[1].RestDay)
	assert.Equal(t, 1, h.planner.calls)

	resp, body = h.do(t, http.MethodGet, "/itineraries/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched dto.ItineraryResponse
	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, created.TotalCost, fetched.TotalCost)

	resp, body = h.do(t, http.MethodGet, "/itineraries/"+created.ID+"/document", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
	assert.Contains(t, string(body), "Lisbon, 2026-05-04 to 2026-05-06 (3 days)")
	assert.Contains(t, string(body), "Rest day at Alfama Loft.")

	resp, body = h.do(t, http.MethodGet, "/itineraries/"+created.ID+"/calendar.ics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/calendar")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), created.ID+".ics")
	assert.Contains(t, string(body), "BEGIN:VCALENDAR")
	assert.Contains(t, string(body), "SUMMARY:Castle")
}

func TestCreateItinerary_BadRequests(t *testing.T) {
	h := newHarness(t, false)

	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed", `{"destination":`, http.StatusBadRequest, "invalid_json"},
		{"unknown field", `{"destination":"Lisbon","hub":"x"}`, http.StatusBadRequest, "invalid_json"},
		{"two objects", lisbonRequest + lisbonRequest, http.StatusBadRequest, "invalid_json"},
		{"bad date", strings.Replace(lisbonRequest, "2026-05-04", "May 4", 1), http.StatusUnprocessableEntity, "validation_error"},
		{"reversed dates", strings.Replace(lisbonRequest, "2026-05-06", "2026-05-01", 1), http.StatusUnprocessableEntity, "validation_error"},
		{"budget too small", strings.Replace(lisbonRequest, "900", "50", 1), http.StatusUnprocessableEntity, "validation_error"},
		{"unknown zone", strings.Replace(lisbonRequest, `"currency"`, `"time_zone":"Mars/Olympus","currency"`, 1), http.StatusUnprocessableEntity, "validation_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := h.do(t, http.MethodPost, "/itineraries", tc.body)
			assert.Equal(t, tc.status, resp.StatusCode, string(body))
			assert.Equal(t, tc.code, decodeError(t, body).Error.Code)
		})
	}
	assert.Zero(t, h.planner.calls)
}

func TestCreateItinerary_PlannerErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"no candidates", fmt.Errorf("plan trip: %w: no activities", domain.ErrNoCandidates), http.StatusUnprocessableEntity, "no_candidates"},
		{"auth", fmt.Errorf("route: %w", domain.ErrProviderAuth), http.StatusBadGateway, "upstream_error"},
		{"quota", fmt.Errorf("route: %w", domain.ErrProviderQuota), http.StatusBadGateway, "upstream_error"},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable, "cancelled"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, false)
			h.planner.plan = func(context.Context, domain.Trip) (*domain.Itinerary, error) { return nil, tc.err }

			resp, body := h.do(t, http.MethodPost, "/itineraries", lisbonRequest)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.code, decodeError(t, body).Error.Code)
		})
	}
}

func TestCreateItinerary_Infeasible(t *testing.T) {
	h := newHarness(t, false)
	h.planner.plan = func(_ context.Context, trip domain.Trip) (*domain.Itinerary, error) {
		partial, err := plannedItinerary(trip)
		if err != nil {
			return nil, err
		}
		return nil, &domain.InfeasibleTripError{
			Constraint: "no lodging is available for the whole stay",
			Partial:    partial,
			Attempts: []domain.ConflictResolution{{
				Level: domain.LevelExtendHours, Date: trip.Dates.Start, Description: "extended the day by 30 min",
			}},
		}
	}

	resp, body := h.do(t, http.MethodPost, "/itineraries", lisbonRequest)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	res := decodeError(t, body)
	assert.Equal(t, "infeasible_trip", res.Error.Code)
	assert.Contains(t, res.Error.Message, "no lodging is available")
	assert.Contains(t, res.Error.Message, "extended the day by 30 min")
	require.NotNil(t, res.Partial)
	assert.Len(t, res.Partial.Days, 3)
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, "EXTEND_HOURS", res.Attempts[0].Level)
	assert.Equal(t, "2026-05-04", res.Attempts[0].Date)
}

func TestItineraryNotFound(t *testing.T) {
	h := newHarness(t, false)
	for _, path := range []string{"/itineraries/missing", "/itineraries/missing/document", "/itineraries/missing/calendar.ics"} {
		resp, body := h.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.Equal(t, "not_found", decodeError(t, body).Error.Code)
	}
}

func TestEmail(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		h := newHarness(t, false)
		resp, body := h.do(t, http.MethodPost, "/itineraries/any/email", `{"to":["a@example.com"]}`)
		assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
		assert.Equal(t, "email_disabled", decodeError(t, body).Error.Code)
	})

	t.Run("sent", func(t *testing.T) {
		h := newHarness(t, true)
		_, body := h.do(t, http.MethodPost, "/itineraries", lisbonRequest)
		var created dto.ItineraryResponse
		require.NoError(t, json.Unmarshal(body, &created))

		resp, body := h.do(t, http.MethodPost, "/itineraries/"+created.ID+"/email", `{"to":["a@example.com"]}`)
		assert.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))
		assert.Equal(t, []string{"a@example.com"}, h.mailer.to)
	})

	t.Run("invalid recipients", func(t *testing.T) {
		h := newHarness(t, true)
		h.mailer.err = fmt.Errorf("%w: at least one recipient is required", domain.ErrValidation)
		_, body := h.do(t, http.MethodPost, "/itineraries", lisbonRequest)
		var created dto.ItineraryResponse
		require.NoError(t, json.Unmarshal(body, &created))

		resp, body := h.do(t, http.MethodPost, "/itineraries/"+created.ID+"/email", `{"to":[]}`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, "validation_error", decodeError(t, body).Error.Code)
	})
}

func TestRouterErrors(t *testing.T) {
	h := newHarness(t, false)

	resp, body := h.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", decodeError(t, body).Error.Code)

	resp, body = h.do(t, http.MethodDelete, "/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "method_not_allowed", decodeError(t, body).Error.Code)
}

func TestCORS(t *testing.T) {
	h := newHarness(t, false)

	req, err := http.NewRequest(http.MethodOptions, h.srv.URL+"/itineraries", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "https://app.example", resp.Header.Get("Access-Control-Allow-Origin"))

	req, err = http.NewRequest(http.MethodGet, h.srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
