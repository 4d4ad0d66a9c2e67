package visure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/heymumford/skidbladnir/httpclient"
	"github.com/heymumford/skidbladnir/providers/contract"
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
		Provider:  "visure",
		RateLimit: ratelimit.Options{MaxRequestsPerSecond: 1000, MaxConcurrentRequests: 10},
		Bulkhead:  bulkhead.Options{MaxConcurrent: 10},
		Breaker:   breaker.Options{FailureThreshold: 100, ResetTimeoutMs: 10, HalfOpenSuccessThreshold: 1},
		Retry:     retry.Options{MaxAttempts: 1, InitialDelay: time.Millisecond},
		Cache:     cache.Options{TTL: time.Hour, MaxEntries: 100},
	})
	client := httpclient.New(httpclient.Options{Provider: "visure", BaseURL: baseURL, Facade: f})
	return New(client, nil)
}

func TestGetTestCaseMapsNativeResponseToCanonical(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/requirements/REQ-1", r.URL.Path)
		w.Write([]byte(`{"uid":"REQ-1","title":"Login works","state":"Approved"}`))
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL)
	tc, err := a.GetTestCase(context.Background(), "REQ-1")
	require.NoError(t, err)
	require.Equal(t, "Login works", tc.Title)
}

func TestGetTestCaseRejectsEmptyID(t *testing.T) {
	a := newTestAdapter(t, "http://unused")
	_, err := a.GetTestCase(context.Background(), "")
	require.Error(t, err)
}

func TestGetTestCasesReturnsPagedResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/projects/proj-1/requirements", r.URL.Path)
		w.Write([]byte(`{"items":[{"uid":"REQ-1","title":"Case 1"}],"total":1}`))
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL)
	page, err := a.GetTestCases(context.Background(), "proj-1", contract.ListOptions{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, 1, page.Total)
}

func TestGetTestCyclesReturnsEmptyPageNotError(t *testing.T) {
	a := newTestAdapter(t, "http://unused")
	page, err := a.GetTestCycles(context.Background(), "proj-1", contract.ListOptions{})
	require.NoError(t, err)
	require.Empty(t, page.Items)
}

func TestCapabilitiesDeclareSourceOnly(t *testing.T) {
	a := newTestAdapter(t, "http://unused")
	caps := a.Capabilities()
	require.True(t, caps.CanBeSource)
	require.False(t, caps.CanBeTarget)
}
