package tz

import (
	"testing"
	"tripsynth/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_TimeZone(t *testing.T) {
	r := NewResolver()

	cases := []struct {
		name string
		at   domain.Coordinates
		want string
	}{
		{"lisbon", domain.Coordinates{Lon: -9.1393, Lat: 38.7223}, "Europe/Lisbon"},
		{"tokyo", domain.Coordinates{Lon: 139.6917, Lat: 35.6895}, "Asia/Tokyo"},
		{"new york", domain.Coordinates{Lon: -74.0060, Lat: 40.7128}, "America/New_York"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.TimeZone(tc.at)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolver_RejectsInvalidCoordinates(t *testing.T) {
	_, err := NewResolver().TimeZone(domain.Coordinates{Lon: 200, Lat: 95})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
