package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"tripsynth/internal/domain"
	"tripsynth/internal/platform/obs"
	"tripsynth/internal/ports"

	"github.com/patrickmn/go-cache"
	"github.com/sethvargo/go-retry"
)

type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

// OpenMeteo builds per-day weather advisories from the Open-Meteo daily forecast.
// Responses are memoized per location and date range.
type OpenMeteo struct {
	session  *http.Client
	baseURL  string
	attempts uint64
	backoff  time.Duration
	memo     *cache.Cache
}

func NewOpenMeteo(baseURL string) *OpenMeteo {
	if baseURL == "" {
		baseURL = "https://api.open-meteo.com"
	}
	return &OpenMeteo{
		session:  &http.Client{Timeout: 10 * time.Second},
		baseURL:  strings.TrimRight(baseURL, "/"),
		attempts: 3,
		backoff:  200 * time.Millisecond,
		memo:     cache.New(3*time.Hour, 30*time.Minute),
	}
}

type forecastResponse struct {
	Daily struct {
		Time        []string   `json:"time"`
		WeatherCode []int      `json:"weather_code"`
		TempMax     []float64  `json:"temperature_2m_max"`
		TempMin     []float64  `json:"temperature_2m_min"`
		PrecipProb  []*float64 `json:"precipitation_probability_max"`
	} `json:"daily"`
}

// Advisory returns advisory text keyed by YYYY-MM-DD. Dates outside the forecast
// horizon are simply absent.
func (o *OpenMeteo) Advisory(ctx context.Context, at domain.Coordinates, dates domain.DateRange) (_ map[string]string, err error) {
	defer obs.Time(ctx, "weather.Advisory")(&err)

	key := at.Key() + "|" + dates.String()
	if v, ok := o.memo.Get(key); ok {
		return v.(map[string]string), nil
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(at.Lat, 'f', 5, 64))
	q.Set("longitude", strconv.FormatFloat(at.Lon, 'f', 5, 64))
	q.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,precipitation_probability_max")
	q.Set("timezone", "auto")
	q.Set("start_date", dates.Start.Format(domain.DateLayout))
	q.Set("end_date", dates.End.Format(domain.DateLayout))
	endpoint := o.baseURL + "/v1/forecast?" + q.Encode()

	var body forecastResponse
	backoff := retry.WithMaxRetries(o.attempts-1, retry.NewExponential(o.backoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := o.session.Do(req)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && ctx.Err() == nil {
				return retry.RetryableError(err)
			}
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			se := &statusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return retry.RetryableError(se)
			}
			return se
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return fmt.Errorf("decode forecast: %w", err)
		}
		return nil
	})
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: forecast: %v", domain.ErrProviderTimeout, err)
		}
		return nil, fmt.Errorf("forecast: %w", err)
	}

	out := make(map[string]string, len(body.Daily.Time))
	for i, day := range body.Daily.Time {
		if i >= len(body.Daily.WeatherCode) {
			break
		}
		text := describe(body.Daily.WeatherCode[i])
		if i < len(body.Daily.TempMin) && i < len(body.Daily.TempMax) {
			text += fmt.Sprintf(", %.0f-%.0f°C", body.Daily.TempMin[i], body.Daily.TempMax[i])
		}
		if i < len(body.Daily.PrecipProb) && body.Daily.PrecipProb[i] != nil && *body.Daily.PrecipProb[i] >= 40 {
			text += fmt.Sprintf(", %.0f%% chance of rain", *body.Daily.PrecipProb[i])
		}
		out[day] = text
	}

	o.memo.SetDefault(key, out)
	return out, nil
}

// describe maps a WMO weather interpretation code to a short phrase.
func describe(code int) string {
	switch {
	case code == 0:
		return "Clear sky"
	case code <= 3:
		return "Partly cloudy"
	case code == 45 || code == 48:
		return "Fog"
	case code >= 51 && code <= 57:
		return "Drizzle"
	case code >= 61 && code <= 67:
		return "Rain"
	case code >= 71 && code <= 77:
		return "Snow"
	case code >= 80 && code <= 82:
		return "Rain showers"
	case code == 85 || code == 86:
		return "Snow showers"
	case code >= 95:
		return "Thunderstorms"
	}
	return "Mixed conditions"
}

var _ ports.AdvisoryProvider = (*OpenMeteo)(nil)
