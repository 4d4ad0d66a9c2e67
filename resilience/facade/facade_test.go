package facade

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/heymumford/skidbladnir/apierrors"
	"github.com/heymumford/skidbladnir/resilience/breaker"
	"github.com/heymumford/skidbladnir/resilience/bulkhead"
	"github.com/heymumford/skidbladnir/resilience/cache"
	"github.com/heymumford/skidbladnir/resilience/ratelimit"
	"github.com/heymumford/skidbladnir/resilience/retry"
)

func newTestFacade() *Facade {
	return New(Options{
		Provider:  "zephyr",
		RateLimit: ratelimit.Options{MaxRequestsPerSecond: 1000, MaxConcurrentRequests: 10},
		Bulkhead:  bulkhead.Options{MaxConcurrent: 10},
		Breaker:   breaker.Options{FailureThreshold: 3, ResetTimeoutMs: 50, HalfOpenSuccessThreshold: 1},
		Retry:     retry.Options{MaxAttempts: 3, InitialDelay: time.Millisecond, Sleep: func(ctx context.Context, d time.Duration) error { return nil }},
		Cache:     cache.Options{TTL: time.Hour, MaxEntries: 100},
	})
}

func TestExecuteSucceedsAndCaches(t *testing.T) {
	f := newTestFacade()
	calls := int32(0)
	producer := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "ok", nil
	}

	v1, err := f.Execute(context.Background(), "key1", producer, nil)
	require.NoError(t, err)
	require.Equal(t, "ok", v1)

	v2, err := f.Execute(context.Background(), "key1", producer, nil)
	require.NoError(t, err)
	require.Equal(t, "ok", v2)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestExecuteInvokesFallbackOnExhaustion(t *testing.T) {
	f := newTestFacade()
	producer := func(ctx context.Context) (interface{}, error) {
		return nil, apierrors.New("zephyr", apierrors.Server, "boom")
	}
	fallback := func(ctx context.Context, err error) (interface{}, error) {
		return "fallback-value", nil
	}

	v, err := f.Execute(context.Background(), "", producer, fallback)
	require.NoError(t, err)
	require.Equal(t, "fallback-value", v)
}

func TestExecutePropagatesWithoutFallback(t *testing.T) {
	f := newTestFacade()
	producer := func(ctx context.Context) (interface{}, error) {
		return nil, apierrors.New("zephyr", apierrors.Validation, "bad input")
	}

	_, err := f.Execute(context.Background(), "", producer, nil)
	require.Error(t, err)
}

func TestBreakerOpensAfterRepeatedFailuresAndFacadeReportsUnhealthy(t *testing.T) {
	f := newTestFacade()
	producer := func(ctx context.Context) (interface{}, error) {
		return nil, apierrors.New("zephyr", apierrors.Server, "boom")
	}

	for i := 0; i < 3; i++ {
		_, err := f.Execute(context.Background(), "", producer, nil)
		require.Error(t, err)
	}

	_, err := f.Execute(context.Background(), "", producer, nil)
	require.Error(t, err)
	ae, ok := apierrors.As(err)
	require.True(t, ok)
	require.Equal(t, apierrors.CircuitOpen, ae.Category)
	require.Equal(t, Unhealthy, f.Health())
}

func TestCancellationReleasesRateLimitToken(t *testing.T) {
	f := newTestFacade()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	producer := func(ctx context.Context) (interface{}, error) {
		return "should not run", nil
	}

	_, err := f.Execute(ctx, "", producer, nil)
	require.Error(t, err)
	require.EqualValues(t, 0, f.limiter.ActiveRequests())
}
