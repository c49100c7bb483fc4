package routing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"tripsynth/internal/domain"

	"github.com/sethvargo/go-retry"
)

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

// orsClient is the HTTP session shared by the OpenRouteService adapters.
type orsClient struct {
	session *http.Client
	apiKey  string
	baseURL string
	// attempts per request, including the first.
	attempts uint64
	backoff  time.Duration
}

func newORSClient(apiKey, baseURL string) (*orsClient, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if baseURL == "" {
		baseURL = "https://api.openrouteservice.org"
	}
	return &orsClient{
		session:  &http.Client{Timeout: 10 * time.Second},
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		attempts: 3,
		backoff:  200 * time.Millisecond,
	}, nil
}

func (o *orsClient) newRequest(
	ctx context.Context,
	method string,
	url string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", o.apiKey)
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

func (o *orsClient) do(req *http.Request) (*http.Response, error) {
	resp, err := o.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// doWithRetry retries transient failures (network errors, 429 and 5xx responses)
// using exponential backoff while respecting context cancellation. Credential
// and quota failures come back wrapped in domain.ErrProviderAuth and
// domain.ErrProviderQuota.
func (o *orsClient) doWithRetry(
	ctx context.Context,
	makeReq func() (*http.Request, error),
) (*http.Response, error) {
	var resp *http.Response

	backoff := retry.WithMaxRetries(o.attempts-1, retry.NewExponential(o.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := makeReq()
		if err != nil {
			return fmt.Errorf("make request: %w", err)
		}

		r, err := o.do(req)
		if err == nil {
			resp = r
			return nil
		}

		var he *httpStatusError
		if errors.As(err, &he) {
			switch he.Code {
			case http.StatusTooManyRequests, 500, 502, 503, 504:
				return retry.RetryableError(err)
			}
			return err
		}

		var netErr net.Error
		if errors.As(err, &netErr) && ctx.Err() == nil {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, classify(err)
	}
	return resp, nil
}

// classify maps terminal HTTP failures onto the domain's provider errors.
func classify(err error) error {
	var he *httpStatusError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", domain.ErrProviderAuth, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", domain.ErrProviderQuota, err)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", domain.ErrProviderTimeout, err)
	}
	return err
}
