package hpalm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/heymumford/skidbladnir/httpclient"
	"github.com/heymumford/skidbladnir/resilience/breaker"
	"github.com/heymumford/skidbladnir/resilience/bulkhead"
	"github.com/heymumford/skidbladnir/resilience/cache"
	"github.com/heymumford/skidbladnir/resilience/facade"
	"github.com/heymumford/skidbladnir/resilience/ratelimit"
	"github.com/heymumford/skidbladnir/resilience/retry"
)

func newTestAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	f := facade.New(facade.Options{
		Provider:  "hpalm",
		RateLimit: ratelimit.Options{MaxRequestsPerSecond: 1000, MaxConcurrentRequests: 10},
		Bulkhead:  bulkhead.Options{MaxConcurrent: 10},
		Breaker:   breaker.Options{FailureThreshold: 100, ResetTimeoutMs: 10, HalfOpenSuccessThreshold: 1},
		Retry:     retry.Options{MaxAttempts: 1, InitialDelay: time.Millisecond},
		Cache:     cache.Options{TTL: time.Hour, MaxEntries: 100},
	})
	client := httpclient.New(httpclient.Options{Provider: "hpalm", BaseURL: baseURL, Facade: f})
	return New(client, "DEFAULT", "Proj1", nil)
}

func TestGetTestCaseMapsFieldEnvelopeToCanonical(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/qcbin/rest/domains/DEFAULT/projects/Proj1/tests/42", r.URL.Path)
		w.Write([]byte(`{"id":"42","fields":[{"Name":"name","values":["Login works"]}]}`))
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL)
	tc, err := a.GetTestCase(context.Background(), "42")
	require.NoError(t, err)
	require.Equal(t, "Login works", tc.Title)
}

func TestGetTestCaseRejectsEmptyID(t *testing.T) {
	a := newTestAdapter(t, "http://unused")
	_, err := a.GetTestCase(context.Background(), "")
	require.Error(t, err)
}

func TestCreateTestStepsReturnsUnsupported(t *testing.T) {
	a := newTestAdapter(t, "http://unused")
	err := a.CreateTestSteps(context.Background(), "1", nil)
	require.Error(t, err)
}

func TestCapabilitiesDeclareNoTestStepsSupport(t *testing.T) {
	a := newTestAdapter(t, "http://unused")
	require.False(t, a.Capabilities().SupportsTestSteps)
}
