package cache

import (
	"context"
	"time"

	"github.com/facebookgo/clock"
)

// RetryPolicy retries failed fetches with capped exponential backoff.
type RetryPolicy struct {
	// Retries is the number of attempts after the first one.
	Retries   int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Retryable decides whether an error is worth another attempt. Nil
	// retries nothing.
	Retryable func(error) bool
}

// DefaultRetryPolicy retries 3 times, starting at 1s and capped at 30s.
func DefaultRetryPolicy(retryable func(error) bool) RetryPolicy {
	return RetryPolicy{
		Retries:   3,
		BaseDelay: time.Second,
		MaxDelay:  30 * time.Second,
		Retryable: retryable,
	}
}

// Delay returns the wait before retry number attempt, counted from 0.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

func (p RetryPolicy) do(ctx context.Context, clk clock.Clock, fetch Fetcher) (interface{}, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		value, err := fetch(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if attempt >= p.Retries || p.Retryable == nil || !p.Retryable(err) {
			return nil, lastErr
		}

		select {
		case <-ctx.Done():
			return nil, lastErr
		case <-clk.After(p.Delay(attempt)):
		}
	}
}
