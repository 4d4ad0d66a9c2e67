package httpclient

import (
	"time"

	"github.com/heymumford/skidbladnir/internal/config"
	"github.com/heymumford/skidbladnir/resilience/breaker"
	"github.com/heymumford/skidbladnir/resilience/bulkhead"
	"github.com/heymumford/skidbladnir/resilience/cache"
	"github.com/heymumford/skidbladnir/resilience/facade"
	"github.com/heymumford/skidbladnir/resilience/ratelimit"
	"github.com/heymumford/skidbladnir/resilience/retry"
)

// facadeOptionsFromConfig translates a ProviderConfig's resilience
// surface (spec.md §6) into facade.Options, applying the teacher-style
// convention of sane defaults when a field is left at its YAML zero
// value rather than requiring every knob to be set explicitly.
func facadeOptionsFromConfig(cfg *config.ProviderConfig) facade.Options {
	r := cfg.Resilience

	return facade.Options{
		Provider: cfg.ProviderName,
		RateLimit: ratelimit.Options{
			MaxRequestsPerSecond:  cfg.RateLimiting.MaxRequestsPerSecond,
			MaxRequestsPerMinute:  cfg.RateLimiting.MaxRequestsPerMinute,
			MaxConcurrentRequests: cfg.RateLimiting.MaxConcurrentRequests,
			Disabled:              cfg.RateLimiting.Disabled,
		},
		Bulkhead: bulkhead.Options{
			MaxConcurrent: cfg.RateLimiting.MaxConcurrentRequests,
		},
		Breaker: breaker.Options{
			FailureThreshold:         r.CircuitBreakerOptions.FailureThreshold,
			ResetTimeoutMs:           r.CircuitBreakerOptions.ResetTimeoutMs,
			HalfOpenSuccessThreshold: r.CircuitBreakerOptions.HalfOpenSuccessThreshold,
		},
		Retry: retry.Options{
			MaxAttempts:    r.RetryOptions.MaxAttempts,
			InitialDelay:   time.Duration(r.RetryOptions.InitialDelayMs) * time.Millisecond,
			MaxDelay:       time.Duration(r.RetryOptions.MaxDelayMs) * time.Millisecond,
			BackoffFactor:  r.RetryOptions.BackoffFactor,
		},
		Cache: cache.Options{
			TTL:        5 * time.Minute,
			MaxEntries: 1000,
		},
	}
}
