package pipeline

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy computes backoff delays for retryable failures. The policy is
// stateless; per-operation progress lives in RetryState, created fresh for
// every top-level request so unrelated calls never share backoff.
type RetryPolicy struct {
	// MaxAttempts caps retries per logical operation.
	MaxAttempts int
	// BaseDelay is the first backoff delay; it doubles per attempt.
	BaseDelay time.Duration
	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the default backoff parameters.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}
}

// RetryState tracks one logical operation's attempts.
type RetryState struct {
	Attempts  int
	LastDelay time.Duration
}

// NextDelay returns the delay before the next attempt, or false once the
// attempt budget is exhausted. Rate-limit errors bypass the exponential
// schedule: the server's retry-after hint is used verbatim.
func (p RetryPolicy) NextDelay(state *RetryState, err error) (time.Duration, bool) {
	if state.Attempts >= p.MaxAttempts {
		return 0, false
	}

	var delay time.Duration
	if hint := RetryAfterOf(err); hint > 0 {
		delay = hint
	} else {
		delay = p.BaseDelay << uint(state.Attempts)
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
		delay = withJitter(delay)
	}

	state.Attempts++
	state.LastDelay = delay
	return delay, true
}

// withJitter applies ±10% random jitter so synchronized clients spread out.
func withJitter(d time.Duration) time.Duration {
	jitter := time.Duration(rand.Int63n(int64(d)/5+1)) - d/10
	return d + jitter
}

// sleep waits for the delay or until the context is canceled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
