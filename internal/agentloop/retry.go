package agentloop

import (
	"context"
	"time"
)

// RetryPolicy bounds the exponential backoff applied to a Transient
// provider failure. Backoff lives in the loop, not in any Provider, so
// policy is uniform across backends and tests can inject a deterministic
// clock (sleep).
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// sleep is swappable in tests to avoid real waits.
	sleep func(context.Context, time.Duration) error
}

// DefaultRetryPolicy returns the default policy: 3 attempts, 250ms base,
// capped at 5s, doubling between attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// delay returns the backoff before attempt (1-indexed: the wait before
// retrying after attempt's failure), doubling from BaseDelay and capped at
// MaxDelay.
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

func (p RetryPolicy) wait(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// run executes op, retrying while isRetryable(err) is true and attempts
// remain, backing off between attempts. The last error is returned when
// attempts are exhausted.
func (p RetryPolicy) run(ctx context.Context, isRetryable func(error) bool, op func() error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) || attempt >= maxAttempts {
			return lastErr
		}
		if waitErr := p.wait(ctx, p.delay(attempt)); waitErr != nil {
			return waitErr
		}
	}
	return lastErr
}
