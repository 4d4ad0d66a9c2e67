package azuredevops

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/heymumford/skidbladnir/canonical"
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
		Provider:  "azuredevops",
		RateLimit: ratelimit.Options{MaxRequestsPerSecond: 1000, MaxConcurrentRequests: 10},
		Bulkhead:  bulkhead.Options{MaxConcurrent: 10},
		Breaker:   breaker.Options{FailureThreshold: 100, ResetTimeoutMs: 10, HalfOpenSuccessThreshold: 1},
		Retry:     retry.Options{MaxAttempts: 1, InitialDelay: time.Millisecond},
		Cache:     cache.Options{TTL: time.Hour, MaxEntries: 100},
	})
	client := httpclient.New(httpclient.Options{Provider: "azuredevops", BaseURL: baseURL, Facade: f})
	return New(client, nil)
}

func TestGetTestCaseMapsNativeResponseToCanonical(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/_apis/wit/workitems/42", r.URL.Path)
		w.Write([]byte(`{"id":42,"fields":{"System.Title":"Login works","System.State":"Ready","Microsoft.VSTS.Common.Priority":2}}`))
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL)
	tc, err := a.GetTestCase(context.Background(), "42")
	require.NoError(t, err)
	require.Equal(t, "Login works", tc.Title)
	require.Equal(t, canonical.StatusApproved, tc.Status)
	require.Equal(t, canonical.PriorityHigh, tc.Priority)
}

func TestGetTestCaseRejectsEmptyID(t *testing.T) {
	a := newTestAdapter(t, "http://unused")
	_, err := a.GetTestCase(context.Background(), "")
	require.Error(t, err)
}

func TestGetTestCasesReturnsPagedResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":[{"id":1,"fields":{"System.Title":"A"}},{"id":2,"fields":{"System.Title":"B"}}],"count":2}`))
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL)
	page, err := a.GetTestCases(context.Background(), "PROJ", contract.ListOptions{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, 2, page.Total)
}

func TestCapabilitiesDeclareNoHierarchySupport(t *testing.T) {
	a := newTestAdapter(t, "http://unused")
	caps := a.Capabilities()
	require.True(t, caps.CanBeSource)
	require.True(t, caps.CanBeTarget)
	require.False(t, caps.SupportsHierarchy)
}
