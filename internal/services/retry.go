package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"tripsynth/internal/domain"

	"github.com/sethvargo/go-retry"
)

// callProvider runs fn under a per-attempt timeout. Timeouts are retried
// opts.Retries times with exponential backoff and then reported as
// domain.ErrProviderTimeout. Other errors are returned immediately.
func callProvider[T any](ctx context.Context, opts PlannerOptions, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T

	backoff := retry.WithMaxRetries(uint64(opts.Retries), retry.NewExponential(opts.RetryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, opts.CallTimeout)
		defer cancel()

		v, err := fn(callCtx)
		if err == nil {
			out = v
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if isTimeout(err) {
			return retry.RetryableError(fmt.Errorf("%w: %v", domain.ErrProviderTimeout, err))
		}
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrProviderTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isUpstreamFatal reports provider failures that must reach the caller.
func isUpstreamFatal(err error) bool {
	return errors.Is(err, domain.ErrProviderAuth) || errors.Is(err, domain.ErrProviderQuota)
}
