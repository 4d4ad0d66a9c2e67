package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/heymumford/skidbladnir/apierrors"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	l := New("zephyr", Options{MaxRequestsPerSecond: 10, MaxConcurrentRequests: 2})
	ctx := context.Background()

	require.NoError(t, l.AcquireToken(ctx))
	require.EqualValues(t, 1, l.ActiveRequests())
	l.ReleaseToken()
	require.EqualValues(t, 0, l.ActiveRequests())
}

func TestConcurrencyCapBlocksSecondCaller(t *testing.T) {
	l := New("qtest", Options{MaxRequestsPerSecond: 1000, MaxConcurrentRequests: 1})
	ctx := context.Background()
	require.NoError(t, l.AcquireToken(ctx))

	ctx2, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := l.AcquireToken(ctx2)
	require.Error(t, err)
	ae, ok := apierrors.As(err)
	require.True(t, ok)
	require.Equal(t, apierrors.Cancelled, ae.Category)
}

func TestDisabledModeStillTracksActive(t *testing.T) {
	l := New("rally", Options{Disabled: true, MaxConcurrentRequests: 5})
	require.NoError(t, l.AcquireToken(context.Background()))
	require.EqualValues(t, 1, l.ActiveRequests())
	l.ReleaseToken()
	require.EqualValues(t, 0, l.ActiveRequests())
}

func TestQueueFullFailsFast(t *testing.T) {
	l := New("hpalm", Options{MaxRequestsPerSecond: 1000, MaxConcurrentRequests: 1, QueueSize: 1})
	ctx := context.Background()
	require.NoError(t, l.AcquireToken(ctx))

	// Fill the single queue slot with a waiter blocked on the concurrency slot.
	done := make(chan error, 1)
	go func() {
		blockedCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()
		done <- l.AcquireToken(blockedCtx)
	}()
	time.Sleep(20 * time.Millisecond)

	err := l.AcquireToken(ctx)
	require.Error(t, err)
	ae, ok := apierrors.As(err)
	require.True(t, ok)
	require.Equal(t, apierrors.RateLimit, ae.Category)

	<-done
}
