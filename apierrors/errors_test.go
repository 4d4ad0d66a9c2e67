package apierrors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyHTTPStatus(t *testing.T) {
	require.Equal(t, Authentication, ClassifyHTTPStatus(401))
	require.Equal(t, Authorization, ClassifyHTTPStatus(403))
	require.Equal(t, NotFound, ClassifyHTTPStatus(404))
	require.Equal(t, Conflict, ClassifyHTTPStatus(409))
	require.Equal(t, RateLimit, ClassifyHTTPStatus(429))
	require.Equal(t, Validation, ClassifyHTTPStatus(400))
	require.Equal(t, Validation, ClassifyHTTPStatus(413))
	require.Equal(t, Validation, ClassifyHTTPStatus(422))
	require.Equal(t, Server, ClassifyHTTPStatus(500))
	require.Equal(t, Server, ClassifyHTTPStatus(503))
	require.Equal(t, Unknown, ClassifyHTTPStatus(200))
}

func TestClassifyHTTPStatusRespectsProviderDeclaredRateLimitCodes(t *testing.T) {
	require.Equal(t, RateLimit, ClassifyHTTPStatus(420, 420, 999))
}

func TestRetryableByCategory(t *testing.T) {
	require.True(t, New("zephyr", Network, "boom").Retryable())
	require.True(t, New("zephyr", Server, "boom").Retryable())
	require.True(t, New("zephyr", RateLimit, "boom").Retryable())
	require.False(t, New("zephyr", Validation, "boom").Retryable())
	require.False(t, New("zephyr", CircuitOpen, "boom").Retryable())
	require.False(t, New("zephyr", Cancelled, "boom").Retryable())
}

func TestEnrichRedactsSensitiveKeys(t *testing.T) {
	err := New("qtest", Authentication, "bad creds")
	Enrich(err, "login", map[string]interface{}{
		"password":      "hunter2",
		"apiToken":      "tok-123",
		"clientSecret":  "s3cr3t",
		"Authorization": "Bearer abc",
		"username":      "alice",
	})
	require.Equal(t, "login", err.Operation)
	require.Equal(t, redactedPlaceholder, err.Params["password"])
	require.Equal(t, redactedPlaceholder, err.Params["apiToken"])
	require.Equal(t, redactedPlaceholder, err.Params["clientSecret"])
	require.Equal(t, redactedPlaceholder, err.Params["Authorization"])
	require.Equal(t, "alice", err.Params["username"])
}

type retryableCause struct{ retry bool }

func (c retryableCause) Error() string    { return "cause" }
func (c retryableCause) IsRetryable() bool { return c.retry }

func TestRetryableHonorsCauseAdvertisement(t *testing.T) {
	err := Wrap("rally", Unknown, "boom", retryableCause{retry: true})
	require.True(t, err.Retryable())
}
