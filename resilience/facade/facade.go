// Package facade composes the rate limiter, bulkhead, circuit breaker,
// retry engine, and response cache into the single linear pipeline
// described in spec.md §4.7: cache lookup, bulkhead entry, rate-limit
// token, breaker admission, retry-wrapped producer invocation, then
// health-counter and cache-store bookkeeping on success, or fallback on
// exhausted/non-retryable failure.
package facade

import (
	"context"
	"sync"

	"github.com/heymumford/skidbladnir/apierrors"
	"github.com/heymumford/skidbladnir/resilience/breaker"
	"github.com/heymumford/skidbladnir/resilience/bulkhead"
	"github.com/heymumford/skidbladnir/resilience/cache"
	"github.com/heymumford/skidbladnir/resilience/ratelimit"
	"github.com/heymumford/skidbladnir/resilience/retry"
)

// HealthStatus is the derived status from recent success/failure ratios
// (spec.md §4.7).
type HealthStatus string

const (
	Healthy   HealthStatus = "HEALTHY"
	Degraded  HealthStatus = "DEGRADED"
	Unhealthy HealthStatus = "UNHEALTHY"
)

// Producer is the outbound operation the facade wraps.
type Producer func(ctx context.Context) (interface{}, error)

// Fallback is invoked with the final error when the producer's attempts
// are exhausted or the error is non-retryable.
type Fallback func(ctx context.Context, err error) (interface{}, error)

// Options configures one provider's Facade.
type Options struct {
	Provider      string
	RateLimit     ratelimit.Options
	Bulkhead      bulkhead.Options
	Breaker       breaker.Options
	Retry         retry.Options
	Cache         cache.Options
	// Cacheable reports whether a given key should consult/populate the
	// cache at all; nil means every non-empty key is cacheable.
	Cacheable func(key string) bool
	// HealthWindow bounds how many recent outcomes feed the health ratio.
	HealthWindow int
}

// Facade is the per-provider resilience composition.
type Facade struct {
	provider string

	limiter  *ratelimit.Limiter
	bulkhead *bulkhead.Bulkhead
	breaker  *breaker.Breaker
	cache    *cache.Cache
	retryOps retry.Options
	cacheable func(key string) bool

	mu      sync.Mutex
	outcomes []bool // true = success, ring buffer bounded by HealthWindow
	window   int
}

// New builds a Facade from Options.
func New(opts Options) *Facade {
	window := opts.HealthWindow
	if window <= 0 {
		window = 100
	}
	f := &Facade{
		provider:  opts.Provider,
		limiter:   ratelimit.New(opts.Provider, opts.RateLimit),
		bulkhead:  bulkhead.New(),
		breaker:   breaker.New(opts.Provider, opts.Breaker),
		cache:     cache.New(opts.Cache),
		retryOps:  opts.Retry,
		cacheable: opts.Cacheable,
		window:    window,
	}
	f.bulkhead.Configure(opts.Provider, opts.Bulkhead)
	return f
}

// Execute runs producer through the full pipeline. key, when non-empty
// and cacheable, gates a cache lookup/store around the rest of the
// pipeline; fallback, when non-nil, is invoked (instead of propagating)
// on a final non-retryable or exhausted failure.
func (f *Facade) Execute(ctx context.Context, key string, producer Producer, fallback Fallback) (interface{}, error) {
	if f.isCacheable(key) {
		return f.cache.Execute(ctx, key, func(ctx context.Context) (interface{}, error) {
			// Stale-while-revalidate never reaches the real producer while
			// the breaker is OPEN (spec.md §9 resolution): the background
			// refresh fails fast here and the stale value keeps serving.
			if f.breaker.State() == breaker.Open {
				return nil, apierrors.New(f.provider, apierrors.CircuitOpen, "circuit_open: skipping background revalidation")
			}
			return f.runPipeline(ctx, producer, fallback)
		})
	}
	return f.runPipeline(ctx, producer, fallback)
}

func (f *Facade) isCacheable(key string) bool {
	if key == "" {
		return false
	}
	if f.cacheable == nil {
		return true
	}
	return f.cacheable(key)
}

func (f *Facade) runPipeline(ctx context.Context, producer Producer, fallback Fallback) (interface{}, error) {
	result, err := f.bulkhead.Run(ctx, f.provider, f.provider, func(ctx context.Context) (interface{}, error) {
		if acqErr := f.limiter.AcquireToken(ctx); acqErr != nil {
			return nil, acqErr
		}
		released := false
		release := func() {
			if !released {
				released = true
				f.limiter.ReleaseToken()
			}
		}
		defer release()

		if admitErr := f.breaker.Admit(); admitErr != nil {
			return nil, admitErr
		}

		// The retry loop charges the breaker exactly one failure per
		// exhausted loop, not per attempt (spec.md §9 resolution).
		val, rerr := retry.Do(ctx, f.retryOps, producer)
		if rerr != nil {
			if ae, ok := apierrors.As(rerr); ok && ae.Category == apierrors.Cancelled {
				// Cancellation never charges the breaker (spec.md §5).
				return nil, rerr
			}
			f.breaker.RecordFailure()
			f.recordOutcome(false)
			return nil, rerr
		}

		f.breaker.RecordSuccess()
		f.recordOutcome(true)
		return val, nil
	})

	if err != nil {
		if fallback != nil {
			return fallback(ctx, err)
		}
		return nil, err
	}
	return result, nil
}

func (f *Facade) recordOutcome(success bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, success)
	if len(f.outcomes) > f.window {
		f.outcomes = f.outcomes[len(f.outcomes)-f.window:]
	}
}

// Health derives HEALTHY/DEGRADED/UNHEALTHY from the recent
// success/failure ratio, or UNHEALTHY outright if the breaker is OPEN.
func (f *Facade) Health() HealthStatus {
	if f.breaker.State() == breaker.Open {
		return Unhealthy
	}

	f.mu.Lock()
	outcomes := append([]bool(nil), f.outcomes...)
	f.mu.Unlock()

	if len(outcomes) == 0 {
		return Healthy
	}
	successes := 0
	for _, ok := range outcomes {
		if ok {
			successes++
		}
	}
	ratio := float64(successes) / float64(len(outcomes))
	switch {
	case ratio >= 0.95:
		return Healthy
	case ratio >= 0.70:
		return Degraded
	default:
		return Unhealthy
	}
}

// Reset clears accumulated health counters (used by HTTPClient.Reset).
func (f *Facade) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = nil
}
