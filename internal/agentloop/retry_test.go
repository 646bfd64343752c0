package agentloop

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicyRetriesWhileRetryable(t *testing.T) {
	var waited []time.Duration
	policy := RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    time.Second,
		sleep: func(_ context.Context, d time.Duration) error {
			waited = append(waited, d)
			return nil
		},
	}

	attempts := 0
	retryable := errors.New("transient")
	err := policy.run(context.Background(), func(err error) bool { return err == retryable }, func() error {
		attempts++
		if attempts < 3 {
			return retryable
		}
		return nil
	})

	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
	if len(waited) != 2 {
		t.Fatalf("waited %d times, want 2", len(waited))
	}
	if waited[1] <= waited[0] {
		t.Fatalf("expected exponential backoff, got %v then %v", waited[0], waited[1])
	}
}

func TestRetryPolicyStopsOnNonRetryableError(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: time.Second}

	attempts := 0
	permanent := errors.New("permanent")
	err := policy.run(context.Background(), func(error) bool { return false }, func() error {
		attempts++
		return permanent
	})

	if !errors.Is(err, permanent) {
		t.Fatalf("run() error = %v, want %v", err, permanent)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestRetryPolicyExhaustsMaxAttempts(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
		sleep:       func(context.Context, time.Duration) error { return nil },
	}

	attempts := 0
	transient := errors.New("transient")
	err := policy.run(context.Background(), func(error) bool { return true }, func() error {
		attempts++
		return transient
	})

	if !errors.Is(err, transient) {
		t.Fatalf("run() error = %v, want %v", err, transient)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3 (MaxAttempts)", attempts)
	}
}

func TestDefaultRetryPolicyDelayDoublesAndCaps(t *testing.T) {
	policy := DefaultRetryPolicy()
	if policy.delay(1) != policy.BaseDelay {
		t.Fatalf("delay(1) = %v, want %v", policy.delay(1), policy.BaseDelay)
	}
	if policy.delay(2) != policy.BaseDelay*2 {
		t.Fatalf("delay(2) = %v, want %v", policy.delay(2), policy.BaseDelay*2)
	}
	if policy.delay(10) != policy.MaxDelay {
		t.Fatalf("delay(10) = %v, want capped at %v", policy.delay(10), policy.MaxDelay)
	}
}
