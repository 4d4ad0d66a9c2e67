package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/heymumford/skidbladnir/apierrors"
)

func noSleep(_ context.Context, _ time.Duration) error { return nil }

// P5 — retry never duplicates success: given a producer that succeeds on
// attempt k, Do invokes it exactly k times.
func TestRetrySucceedsOnThirdAttempt(t *testing.T) {
	calls := 0
	producer := func(ctx context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, apierrors.New("zephyr", apierrors.Server, "boom")
		}
		return "ok", nil
	}

	result, err := Do(context.Background(), Options{MaxAttempts: 5, Sleep: noSleep}, producer)
	require.NoError(t, err)
	require.Equal(t, "ok", result)
	require.Equal(t, 3, calls)
}

func TestRetryStopsAtMaxAttempts(t *testing.T) {
	calls := 0
	producer := func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, apierrors.New("qtest", apierrors.Server, "boom")
	}

	_, err := Do(context.Background(), Options{MaxAttempts: 3, Sleep: noSleep}, producer)
	require.Error(t, err)
	require.Equal(t, 3, calls)
}

func TestNonRetryableFailsImmediately(t *testing.T) {
	calls := 0
	producer := func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, apierrors.New("rally", apierrors.Validation, "bad field")
	}

	_, err := Do(context.Background(), Options{MaxAttempts: 5, Sleep: noSleep}, producer)
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestRateLimitHonorsRetryAfterFloor(t *testing.T) {
	var delays []time.Duration
	calls := 0
	producer := func(ctx context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			err := apierrors.New("azuredevops", apierrors.RateLimit, "throttled")
			err.RetryAfter = "2"
			return nil, err
		}
		return "ok", nil
	}

	fakeSleep := func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	result, err := Do(context.Background(), Options{
		MaxAttempts:  5,
		InitialDelay: 10 * time.Millisecond,
		Sleep:        fakeSleep,
	}, producer)

	require.NoError(t, err)
	require.Equal(t, "ok", result)
	require.Len(t, delays, 2)
	for _, d := range delays {
		require.GreaterOrEqual(t, d, 2*time.Second)
	}
}

func TestCancellationAbortsBeforeNextSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	producer := func(ctx context.Context) (interface{}, error) {
		calls++
		cancel()
		return nil, apierrors.New("visure", apierrors.Server, "boom")
	}

	_, err := Do(ctx, Options{MaxAttempts: 5, Sleep: noSleep}, producer)
	require.Error(t, err)
	ae, ok := apierrors.As(err)
	require.True(t, ok)
	require.Equal(t, apierrors.Cancelled, ae.Category)
	require.Equal(t, 1, calls)
}

func TestBackoffIsExponentialWithCap(t *testing.T) {
	d1 := computeDelay(Options{InitialDelay: 100 * time.Millisecond, BackoffFactor: 2, MaxDelay: time.Second}, 1)
	d2 := computeDelay(Options{InitialDelay: 100 * time.Millisecond, BackoffFactor: 2, MaxDelay: time.Second}, 2)
	d3 := computeDelay(Options{InitialDelay: 100 * time.Millisecond, BackoffFactor: 2, MaxDelay: time.Second}, 5)

	require.Equal(t, 100*time.Millisecond, d1)
	require.Equal(t, 200*time.Millisecond, d2)
	require.Equal(t, time.Second, d3) // capped
}
