package httpclient

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy decides whether a failed attempt should be retried and how long
// to wait before the next attempt. Delays grow exponentially from BaseDelay
// by BackoffFactor, capped at MaxDelay, with optional ±10% jitter.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt. Zero means
	// a single attempt with no retries.
	MaxRetries int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the computed delay, jitter included.
	MaxDelay time.Duration
	// BackoffFactor is the exponential growth factor (> 1).
	BackoffFactor float64
	// Jitter applies ±10% uniform jitter to each delay.
	Jitter bool
	// RetryCondition decides retryability per error and attempt index.
	// Nil means DefaultRetryCondition.
	RetryCondition func(err ClientError, attempt int) bool
}

// DefaultRetryPolicy returns the policy used when a client is built without
// an explicit one: 3 retries, 1s base delay doubling up to 30s, with jitter.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:    3,
		BaseDelay:     time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// DefaultRetryCondition retries transport-level failures (no status code) and
// 5xx responses. Timeouts, cancellations, and deterministic failures
// (validation, interceptor rejection) are never retried by default.
func DefaultRetryCondition(err ClientError, _ int) bool {
	if err == nil {
		return false
	}
	switch err.Type() {
	case TimeoutError, CancelledError, ValidationError, InterceptorError:
		return false
	}
	if status, ok := StatusCodeOf(err); ok {
		return IsRetryableStatus(status)
	}
	return true
}

// ShouldRetry reports whether the attempt at the given zero-based index may
// be retried. It is false whenever attempt >= MaxRetries, for any error.
func (p *RetryPolicy) ShouldRetry(err ClientError, attempt int) bool {
	if attempt >= p.MaxRetries {
		return false
	}
	condition := p.RetryCondition
	if condition == nil {
		condition = DefaultRetryCondition
	}
	return condition(err, attempt)
}

// CalculateDelay computes the wait before retrying the attempt at the given
// zero-based index. The result never exceeds MaxDelay and is never negative.
func (p *RetryPolicy) CalculateDelay(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(p.BackoffFactor, float64(attempt))
	if max := float64(p.MaxDelay); delay > max {
		delay = max
	}
	if p.Jitter {
		// ±10% uniform jitter, re-clamped so the cap holds.
		delay *= 0.9 + 0.2*rand.Float64()
		if max := float64(p.MaxDelay); delay > max {
			delay = max
		}
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// ExecuteWithRetry runs op up to MaxRetries+1 times. The first attempt is
// always made. Between attempts it sleeps for CalculateDelay; cancellation
// during the sleep aborts the loop immediately. Cancellation-kind errors are
// never retried regardless of the configured condition.
//
// Error interceptors are not invoked here: the orchestrator runs them exactly
// once on the terminal failure, not per attempt.
func (p *RetryPolicy) ExecuteWithRetry(ctx context.Context, op func(ctx context.Context) (*Response, ClientError)) (*Response, ClientError) {
	var lastErr ClientError
	for attempt := 0; ; attempt++ {
		resp, err := op(ctx)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if err.Type() == CancelledError || !p.ShouldRetry(err, attempt) {
			return nil, lastErr
		}

		timer := time.NewTimer(p.CalculateDelay(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, contextError(ctx.Err(), 0)
		}
	}
}

// contextError maps a context error to the matching cancellation-kind client
// error. Deadline expiry is reported as a timeout, everything else as a
// caller cancellation.
func contextError(err error, timeout time.Duration) ClientError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("request deadline exceeded", timeout)
	}
	return NewCancelledError("request cancelled", err)
}
