package llmapi

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy configures the retrying invoker: bounded exponential backoff
// with additive jitter, honoring server retry-after hints.
type RetryPolicy struct {
	MaxRetries int           // retry attempts beyond the initial call
	BaseDelay  time.Duration // delay before the first retry
	MaxDelay   time.Duration // cap on the computed backoff
	JitterMax  time.Duration // uniform random addition in [0, JitterMax)
	OnRetry    func(err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy returns the policy used for provider calls:
// up to 3 retries, 1s base delay doubling to a 10s cap, jitter in [0, 500ms).
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
		JitterMax:  500 * time.Millisecond,
	}
}

// Delay computes the backoff for retry attempt n (0-indexed), jitter included.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay << uint(attempt)
	if d > p.MaxDelay || d <= 0 {
		d = p.MaxDelay
	}
	return d + p.jitter()
}

func (p RetryPolicy) jitter() time.Duration {
	if p.JitterMax <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(p.JitterMax)))
}

// Invoke calls fn, retrying under the policy on rate-limit, overload, and
// transport failures. The request closed over by fn must be re-sendable
// verbatim; Invoke never mutates or buffers anything between attempts.
//
// A server retry-after hint takes precedence over the computed backoff, but
// only for status-code errors — transport failures always use the schedule.
// Non-retryable errors return immediately. Exhausting retries on a transport
// failure yields a *NetworkError with the attempt count; exhausting them on
// a status-code error returns that last error unchanged.
func Invoke[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	result, err := fn(ctx)
	if err == nil {
		return result, nil
	}

	attempt := 0
	for {
		if !IsRetryable(err) {
			return zero, err
		}
		if attempt >= policy.MaxRetries {
			if _, ok := err.(*TransportError); ok {
				return zero, &NetworkError{Attempts: attempt + 1, LastErr: err}
			}
			return zero, err
		}

		delay := policy.Delay(attempt)
		if hint, ok := retryAfterHint(err); ok {
			delay = hint + policy.jitter()
		}
		if policy.OnRetry != nil {
			policy.OnRetry(err, attempt+1, delay)
		}

		select {
		case <-ctx.Done():
			return zero, &NetworkError{Attempts: attempt + 1, LastErr: ctx.Err()}
		case <-time.After(delay):
		}

		attempt++
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
	}
}
