// Package ratelimit implements the per-provider token bucket described in
// spec.md §4.2: two independent caps (per-second, per-minute — the
// effective rate is the minimum of the two) plus a maximum concurrency N,
// a bounded FIFO wait queue, and a disabled mode that still tracks the
// active-request count for observability.
package ratelimit

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/heymumford/skidbladnir/apierrors"
)

// Options configures a Limiter.
type Options struct {
	MaxRequestsPerSecond  int
	MaxRequestsPerMinute  int
	MaxConcurrentRequests int
	// QueueSize bounds how many callers may wait for a token at once.
	// Exceeding it fails fast with rateLimitQueueFull rather than piling
	// up unbounded goroutines.
	QueueSize int
	Disabled  bool
}

// Limiter is a per-provider rate limiter. The zero value is not usable;
// construct with New.
type Limiter struct {
	provider string
	opts     Options

	limiter *rate.Limiter // the effective (min of per-second/per-minute) bucket
	sem     chan struct{} // concurrency cap
	queue   chan struct{} // bounds callers waiting for sem/limiter

	active int64 // observability counter, maintained even when Disabled
}

// New builds a Limiter for provider using opts. The effective rate is
// min(MaxRequestsPerSecond, MaxRequestsPerMinute/60), matching spec.md
// §4.2's "effective rate is the minimum" rule. A zero cap on either is
// treated as unlimited for that cap.
func New(provider string, opts Options) *Limiter {
	perSecond := rate.Inf
	if opts.MaxRequestsPerSecond > 0 {
		perSecond = rate.Limit(opts.MaxRequestsPerSecond)
	}
	if opts.MaxRequestsPerMinute > 0 {
		fromMinute := rate.Limit(float64(opts.MaxRequestsPerMinute) / 60.0)
		if fromMinute < perSecond {
			perSecond = fromMinute
		}
	}

	burst := opts.MaxRequestsPerSecond
	if burst <= 0 {
		burst = 1
	}

	concurrency := opts.MaxConcurrentRequests
	if concurrency <= 0 {
		concurrency = 1
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = concurrency * 4
	}

	return &Limiter{
		provider: provider,
		opts:     opts,
		limiter:  rate.NewLimiter(perSecond, burst),
		sem:      make(chan struct{}, concurrency),
		queue:    make(chan struct{}, queueSize),
	}
}

// AcquireToken blocks until a token is available and concurrency allows
// the caller in, or ctx is cancelled, or the wait queue is full (in which
// case it fails immediately with a rateLimitQueueFull APIError rather
// than blocking — spec.md §4.2). When ctx carries a deadline that falls
// before the next token, it returns a RATE_LIMIT APIError at once
// instead of waiting for the deadline.
func (l *Limiter) AcquireToken(ctx context.Context) error {
	atomic.AddInt64(&l.active, 1)

	select {
	case l.queue <- struct{}{}:
	default:
		atomic.AddInt64(&l.active, -1)
		return apierrors.New(l.provider, apierrors.RateLimit, "rateLimitQueueFull")
	}
	defer func() { <-l.queue }()

	if l.opts.Disabled {
		select {
		case l.sem <- struct{}{}:
			return nil
		case <-ctx.Done():
			atomic.AddInt64(&l.active, -1)
			return apierrors.New(l.provider, apierrors.Cancelled, "cancelled while acquiring disabled-mode slot")
		}
	}

	if err := l.limiter.Wait(ctx); err != nil {
		atomic.AddInt64(&l.active, -1)
		if ctx.Err() != nil {
			return apierrors.New(l.provider, apierrors.Cancelled, "cancelled waiting for rate-limit token")
		}
		return apierrors.Wrap(l.provider, apierrors.RateLimit, "rate limiter wait failed", err)
	}

	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		atomic.AddInt64(&l.active, -1)
		return apierrors.New(l.provider, apierrors.Cancelled, "cancelled waiting for concurrency slot")
	}
}

// ReleaseToken frees the concurrency slot acquired by AcquireToken. Safe
// to call exactly once per successful AcquireToken, including on the
// cancellation path per spec.md §5 ("the rate-limit token, if acquired,
// is released").
func (l *Limiter) ReleaseToken() {
	select {
	case <-l.sem:
	default:
	}
	atomic.AddInt64(&l.active, -1)
}

// ActiveRequests returns the current number of callers inside
// AcquireToken or holding a token, for health/observability use (P10).
func (l *Limiter) ActiveRequests() int64 {
	return atomic.LoadInt64(&l.active)
}
