package bulkhead

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunAdmitsWithinConcurrency(t *testing.T) {
	b := New()
	b.Configure("zephyr", Options{MaxConcurrent: 2})

	result, err := b.Run(context.Background(), "zephyr", "zephyr", func(ctx context.Context) (interface{}, error) {
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, result)
}

func TestRunRejectsWhenQueueFull(t *testing.T) {
	b := New()
	b.Configure("qtest", Options{MaxConcurrent: 1, QueueSize: 1})

	// One call holds the slot and a second waits in the single queue place.
	release := make(chan struct{})
	for i := 0; i < 2; i++ {
		go b.Run(context.Background(), "qtest", "qtest", func(ctx context.Context) (interface{}, error) {
			<-release
			return nil, nil
		})
	}
	time.Sleep(20 * time.Millisecond)

	_, err := b.Run(context.Background(), "qtest", "qtest", func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	require.Error(t, err)
	close(release)
}

func TestRunEnforcesTimeout(t *testing.T) {
	b := New()
	b.Configure("rally", Options{MaxConcurrent: 1, Timeout: 20 * time.Millisecond})

	_, err := b.Run(context.Background(), "rally", "rally", func(ctx context.Context) (interface{}, error) {
		time.Sleep(100 * time.Millisecond)
		return nil, nil
	})
	require.Error(t, err)
}
