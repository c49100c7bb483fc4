package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"tripsynth/internal/domain"
	"tripsynth/internal/platform/obs"
	"tripsynth/internal/ports"

	"github.com/rs/zerolog"
)

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// ORSGeocoder implements ports.Geocoder using OpenRouteService /geocode/search,
// with an optional persistent cache in front of it.
type ORSGeocoder struct {
	*orsClient
	cache  ports.GeocodeCache
	logger zerolog.Logger
}

func NewORSGeocoder(apiKey, baseURL string, cache ports.GeocodeCache, logger zerolog.Logger) (*ORSGeocoder, error) {
	client, err := newORSClient(apiKey, baseURL)
	if err != nil {
		return nil, fmt.Errorf("new ORS geocoder: %w", err)
	}
	return &ORSGeocoder{orsClient: client, cache: cache, logger: logger}, nil
}

// normalize ensures consistent cache keys by collapsing whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Geocode resolves addresses. Results are keyed by the address as given;
// addresses without a match are absent.
func (o *ORSGeocoder) Geocode(ctx context.Context, addresses []string) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, "ors.Geocode")(&err)

	byNorm := make(map[string][]string, len(addresses))
	needed := make([]string, 0, len(addresses))
	for _, a := range addresses {
		n := normalize(a)
		if n == "" {
			continue
		}
		if _, ok := byNorm[n]; !ok {
			needed = append(needed, n)
		}
		byNorm[n] = append(byNorm[n], a)
	}

	coords := make(map[string]domain.Coordinates, len(needed))
	// Resolve coordinates via cache before calling ORS geocoding.
	if o.cache != nil && len(needed) > 0 {
		hits, err := o.cache.GetMany(ctx, needed)
		if err != nil {
			o.logger.Warn().Err(err).Msg("geocode cache read failed")
		}
		for k, v := range hits {
			coords[k] = v
		}
	}

	fresh := make(map[string]domain.Coordinates)
	for _, n := range needed {
		if _, ok := coords[n]; ok {
			continue
		}
		c, found, err := o.geocodeOne(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("geocode %q: %w", n, err)
		}
		if found {
			fresh[n] = c
			coords[n] = c
		}
	}

	if o.cache != nil && len(fresh) > 0 {
		if err := o.cache.PutMany(ctx, fresh); err != nil {
			o.logger.Warn().Err(err).Msg("geocode cache write failed")
		}
	}

	out := make(map[string]domain.Coordinates, len(addresses))
	for n, originals := range byNorm {
		c, ok := coords[n]
		if !ok {
			continue
		}
		for _, a := range originals {
			out[a] = c
		}
	}
	return out, nil
}

func (o *ORSGeocoder) geocodeOne(ctx context.Context, address string) (domain.Coordinates, bool, error) {
	endpoint := o.baseURL + "/geocode/search"

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := o.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", address)
		q.Set("size", "1")
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(decoded.Features) == 0 {
		return domain.Coordinates{}, false, nil
	}

	c := decoded.Features[0].Geometry.Coordinates
	if len(c) != 2 {
		return domain.Coordinates{}, false, fmt.Errorf("invalid coordinate format for %q", address)
	}
	return domain.Coordinates{Lon: c[0], Lat: c[1]}, true, nil
}

var _ ports.Geocoder = (*ORSGeocoder)(nil)
