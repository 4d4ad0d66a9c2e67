package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/heymumford/skidbladnir/apierrors"
)

// Scenario 3 from spec.md §8: failureThreshold=3, resetTimeoutMs=100,
// halfOpenSuccessThreshold=1.
func TestCircuitTripsAndRecovers(t *testing.T) {
	b := New("zephyr", Options{FailureThreshold: 3, ResetTimeoutMs: 100, HalfOpenSuccessThreshold: 1})

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Admit())
		b.RecordFailure()
	}
	require.Equal(t, Open, b.State())

	err := b.Admit()
	require.Error(t, err)
	ae, ok := apierrors.As(err)
	require.True(t, ok)
	require.Equal(t, apierrors.CircuitOpen, ae.Category)

	time.Sleep(110 * time.Millisecond)
	require.Equal(t, HalfOpen, b.State())
	require.NoError(t, b.Admit())
	b.RecordSuccess()
	require.Equal(t, Closed, b.State())

	require.NoError(t, b.Admit())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b := New("qtest", Options{FailureThreshold: 1, ResetTimeoutMs: 10, HalfOpenSuccessThreshold: 2})
	require.NoError(t, b.Admit())
	b.RecordFailure()
	require.Equal(t, Open, b.State())

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, HalfOpen, b.State())
	require.NoError(t, b.Admit())
	b.RecordFailure()
	require.Equal(t, Open, b.State())
}

func TestHalfOpenAdmitsOnlyOneProbeAtATime(t *testing.T) {
	b := New("rally", Options{FailureThreshold: 1, ResetTimeoutMs: 10, HalfOpenSuccessThreshold: 2})
	require.NoError(t, b.Admit())
	b.RecordFailure()
	time.Sleep(15 * time.Millisecond)

	require.NoError(t, b.Admit())
	err := b.Admit()
	require.Error(t, err)
}
