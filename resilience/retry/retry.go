// Package retry implements the bounded exponential-backoff engine from
// spec.md §4.4: delay_n = min(initial * factor^(n-1), max) * (1 ± jitter),
// retried only while the error classifies as retryable, honoring a
// Retry-After floor on the RATE_LIMIT category.
package retry

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/heymumford/skidbladnir/apierrors"
)

// Options configures the retry engine.
type Options struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// Jitter is the +/- fraction applied to each computed delay, e.g.
	// 0.2 for +/-20%.
	Jitter float64
	// RetryableErrorCodes extends the fixed classifier (NETWORK,
	// RATE_LIMIT, SERVER, cause.IsRetryable()) with provider-declared
	// extra codes, matched against apierrors.APIError.HTTPStatus via the
	// 5xx/429 rule already baked into apierrors.ClassifyHTTPStatus — this
	// field only adds classifier categories, not new status codes.
	RetryableErrorCodes []apierrors.Category
	// Now is overridable for deterministic tests; defaults to time.Now.
	Now func() time.Time
	// Sleep is overridable for deterministic tests; defaults to a
	// context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o Options) sleep(ctx context.Context, d time.Duration) error {
	if o.Sleep != nil {
		return o.Sleep(ctx, d)
	}
	return contextSleep(ctx, d)
}

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Producer is the outbound operation the retry engine wraps.
type Producer func(ctx context.Context) (interface{}, error)

// isRetryable implements the classifier: configured error-code set, HTTP
// status matches (handled by apierrors.APIError.Category already being
// Server/RateLimit), the three fixed categories, and cause.IsRetryable().
func isRetryable(err error, extra []apierrors.Category) bool {
	ae, ok := apierrors.As(err)
	if !ok {
		return false
	}
	if ae.Retryable() {
		return true
	}
	for _, c := range extra {
		if ae.Category == c {
			return true
		}
	}
	return false
}

// Do runs producer, retrying up to opts.MaxAttempts total attempts while
// the error is retryable. On a RATE_LIMIT error carrying RetryAfter, the
// next delay's floor is the parsed Retry-After value (seconds or
// HTTP-date), per spec.md §4.4. Cancellation aborts before the next sleep
// without charging an extra attempt (spec.md §5).
func Do(ctx context.Context, opts Options, producer Producer) (interface{}, error) {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, apierrors.New("", apierrors.Cancelled, "cancelled before attempt")
		}

		result, err := producer(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ae, ok := apierrors.As(err); ok && ae.Category == apierrors.Cancelled {
			return nil, err
		}

		if attempt == maxAttempts || !isRetryable(err, opts.RetryableErrorCodes) {
			return nil, err
		}

		delay := computeDelay(opts, attempt)
		if ae, ok := apierrors.As(err); ok && ae.Category == apierrors.RateLimit && ae.RetryAfter != "" {
			if floor, ok := parseRetryAfter(ae.RetryAfter, opts.now()); ok && floor > delay {
				delay = floor
			}
		}

		if ctx.Err() != nil {
			return nil, apierrors.New("", apierrors.Cancelled, "cancelled before backoff sleep")
		}
		if err := opts.sleep(ctx, delay); err != nil {
			return nil, apierrors.New("", apierrors.Cancelled, "cancelled during backoff sleep")
		}
	}
	return nil, lastErr
}

func computeDelay(opts Options, attempt int) time.Duration {
	initial := opts.InitialDelay
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	factor := opts.BackoffFactor
	if factor <= 0 {
		factor = 2
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	raw := float64(initial) * math.Pow(factor, float64(attempt-1))
	if raw > float64(maxDelay) {
		raw = float64(maxDelay)
	}

	jitter := opts.Jitter
	if jitter < 0 {
		jitter = 0
	}
	if jitter > 0 {
		span := raw * jitter
		raw = raw - span + rand.Float64()*2*span
		if raw < 0 {
			raw = 0
		}
	}
	return time.Duration(raw)
}

// parseRetryAfter parses a Retry-After header value: either an integer
// number of seconds, or an HTTP-date.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(value); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
