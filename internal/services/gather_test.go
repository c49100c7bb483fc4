package services

import (
	"context"
	"errors"
	"testing"
	"tripsynth/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGeocoder struct {
	coords map[string]domain.Coordinates
	err    error
	asked  []string
}

func (f *fakeGeocoder) Geocode(_ context.Context, addresses []string) (map[string]domain.Coordinates, error) {
	f.asked = append(f.asked, addresses...)
	return f.coords, f.err
}

func TestGatherCandidatesGeocodesMissingLocations(t *testing.T) {
	tr := trip(t, 2, 500)

	museum := activity("museum", 1, 10, nil)
	museum.Location = domain.Coordinates{}
	museum.Address = " Rua da Prata 1 "
	lost := activity("lost", 2, 10, nil)
	lost.Location = domain.Coordinates{}
	lost.Address = "Nowhere"

	geo := &fakeGeocoder{coords: map[string]domain.Coordinates{"Rua da Prata 1": near(7)}}
	src := CandidateSources{
		Lodging:    &fakeLodging{cands: []domain.Candidate{lodging("stay", 200, tr.Dates)}},
		Activities: &fakeActivities{cands: []domain.Candidate{museum, lost, activity("tower", 3, 5, nil)}},
		Geocoder:   geo,
	}

	store, err := GatherCandidates(context.Background(), tr, src, testOptions(), zerolog.Nop())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Rua da Prata 1", "Nowhere"}, geo.asked)
	got, ok := store.Get("museum")
	require.True(t, ok)
	assert.Equal(t, near(7), got.Location)
	_, ok = store.Get("lost")
	assert.False(t, ok, "candidates the geocoder cannot place are dropped")
	_, ok = store.Get("tower")
	assert.True(t, ok)
}

func TestGatherCandidatesGeocoderFailureKeepsLocatedCandidates(t *testing.T) {
	tr := trip(t, 2, 500)

	museum := activity("museum", 1, 10, nil)
	museum.Location = domain.Coordinates{}
	museum.Address = "Rua da Prata 1"

	src := CandidateSources{
		Lodging:    &fakeLodging{cands: []domain.Candidate{lodging("stay", 200, tr.Dates)}},
		Activities: &fakeActivities{cands: []domain.Candidate{museum, activity("tower", 3, 5, nil)}},
		Geocoder:   &fakeGeocoder{err: errors.New("geocoder down")},
	}

	store, err := GatherCandidates(context.Background(), tr, src, testOptions(), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())
}

func TestGatherCandidatesSearchTimeoutIsEmpty(t *testing.T) {
	tr := trip(t, 2, 500)

	lodgings := &fakeLodging{block: true}
	src := CandidateSources{
		Lodging:    lodgings,
		Activities: &fakeActivities{cands: []domain.Candidate{activity("tower", 3, 5, nil)}},
	}

	_, err := GatherCandidates(context.Background(), tr, src, testOptions(), zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoCandidates)
	assert.Equal(t, 2, lodgings.calls, "a timed out search is retried once")
}

func TestGatherCandidatesSurfacesAuthErrors(t *testing.T) {
	tr := trip(t, 2, 500)

	src := CandidateSources{
		Lodging:    &fakeLodging{err: domain.ErrProviderAuth},
		Activities: &fakeActivities{},
	}

	_, err := GatherCandidates(context.Background(), tr, src, testOptions(), zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrProviderAuth)
}
