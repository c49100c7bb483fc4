package routing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"tripsynth/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memGeocodeCache struct {
	data map[string]domain.Coordinates
}

func (c *memGeocodeCache) GetMany(_ context.Context, addrs []string) (map[string]domain.Coordinates, error) {
	out := map[string]domain.Coordinates{}
	for _, a := range addrs {
		if v, ok := c.data[a]; ok {
			out[a] = v
		}
	}
	return out, nil
}

func (c *memGeocodeCache) PutMany(_ context.Context, res map[string]domain.Coordinates) error {
	for k, v := range res {
		c.data[k] = v
	}
	return nil
}

func TestORSGeocoder(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("text") == "Nowhere" {
			fmt.Fprint(w, `{"features":[]}`)
			return
		}
		fmt.Fprint(w, `{"features":[{"geometry":{"coordinates":[-9.1393,38.7107]}}]}`)
	}))
	defer srv.Close()

	cache := &memGeocodeCache{data: map[string]domain.Coordinates{
		"Rua Augusta, Lisbon": {Lon: -9.1366, Lat: 38.7101},
	}}
	g, err := NewORSGeocoder("key", srv.URL, cache, zerolog.Nop())
	require.NoError(t, err)

	got, err := g.Geocode(context.Background(), []string{
		"Praça do  Comércio", "Praça do Comércio", "Rua Augusta, Lisbon", "Nowhere",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.Coordinates{Lon: -9.1393, Lat: 38.7107}, got["Praça do  Comércio"])
	assert.Equal(t, got["Praça do  Comércio"], got["Praça do Comércio"])
	assert.Equal(t, -9.1366, got["Rua Augusta, Lisbon"].Lon)
	assert.NotContains(t, got, "Nowhere")
	assert.EqualValues(t, 2, hits.Load())
	assert.Contains(t, cache.data, "Praça do Comércio")
}
