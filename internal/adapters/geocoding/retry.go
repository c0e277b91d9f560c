package geocoding

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy controls how a rate-limited provider is retried.
//
// A 429 waits attempt × RateLimitBackoff before the next attempt; any other
// failure waits FailureDelay. ErrNoResult and invalid coordinates are
// definitive and end the loop immediately.
type RetryPolicy struct {
	MaxAttempts      int
	RateLimitBackoff time.Duration
	FailureDelay     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:      2,
		RateLimitBackoff: 1200 * time.Millisecond,
		FailureDelay:     500 * time.Millisecond,
	}
}

func (p RetryPolicy) do(ctx context.Context, attemptFn func(ctx context.Context) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := attemptFn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, ErrNoResult) || errors.Is(err, errInvalidCoordinates) || attempt == maxAttempts {
			return lastErr
		}

		if err := sleep(ctx, p.delay(attempt, err)); err != nil {
			return lastErr
		}
	}

	return lastErr
}

// delay is the wait after the given failed attempt (1-based).
func (p RetryPolicy) delay(attempt int, err error) time.Duration {
	if isRateLimited(err) {
		return time.Duration(attempt) * p.RateLimitBackoff
	}
	return p.FailureDelay
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
