package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/heymumford/skidbladnir/internal/config"
)

func TestTokenMethodInjectsConfiguredHeader(t *testing.T) {
	h := New("zephyr", config.Credentials{
		Kind:  config.CredentialToken,
		Token: "abc123",
	}, nil)

	name, value, err := h.CurrentHeader(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Authorization", name)
	require.Equal(t, "Bearer abc123", value)
}

func TestTokenMethodHonorsCustomPrefixAndHeaderName(t *testing.T) {
	h := New("hpalm", config.Credentials{
		Kind:            config.CredentialToken,
		Token:           "xyz",
		TokenHeaderName: "X-Api-Key",
		TokenPrefix:     "Key ",
	}, nil)

	name, value, err := h.CurrentHeader(context.Background())
	require.NoError(t, err)
	require.Equal(t, "X-Api-Key", name)
	require.Equal(t, "Key xyz", value)
}

func TestPasswordMethodCallsLoginAndCachesResult(t *testing.T) {
	calls := 0
	login := func(ctx context.Context, loginURL, username, password string) (string, error) {
		calls++
		require.Equal(t, "alice", username)
		require.Equal(t, "s3cret", password)
		return "session-token", nil
	}
	h := New("qtest", config.Credentials{
		Kind:     config.CredentialPassword,
		Username: "alice",
		Password: "s3cret",
		LoginURL: "https://qtest.example.com/login",
	}, login)

	_, value, err := h.CurrentHeader(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer session-token", value)

	_, _, err = h.CurrentHeader(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, calls) // second call served from cache, no expiry tracked
}

func TestOAuthClientCredentialsFlowFetchesAndCachesToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-1","token_type":"bearer","expires_in":3600}`))
	}))
	defer server.Close()

	h := New("azuredevops", config.Credentials{
		Kind:         config.CredentialOAuth,
		GrantType:    "client_credentials",
		ClientID:     "client",
		ClientSecret: "secret",
		TokenURL:     server.URL,
	}, nil)

	_, value, err := h.CurrentHeader(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer tok-1", value)
	require.False(t, h.expiresAt.IsZero())
}

func TestOAuthProactivelyRefreshesNearExpiry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":1}`))
	}))
	defer server.Close()

	h := New("rally", config.Credentials{
		Kind:         config.CredentialOAuth,
		GrantType:    "client_credentials",
		ClientID:     "client",
		ClientSecret: "secret",
		TokenURL:     server.URL,
	}, nil)

	_, _, err := h.CurrentHeader(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	// expiresAt is ~1s out; needsAuthLocked refreshes anything inside a
	// 30s horizon, so the very next call must hit the token endpoint again.
	_, _, err = h.CurrentHeader(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestAuthenticateForcesRefreshRegardlessOfCache(t *testing.T) {
	calls := 0
	login := func(ctx context.Context, loginURL, username, password string) (string, error) {
		calls++
		return "fresh-token", nil
	}
	h := New("visure", config.Credentials{
		Kind:     config.CredentialPassword,
		Username: "bob",
		Password: "pw",
		LoginURL: "https://visure.example.com/login",
	}, login)

	require.NoError(t, h.Authenticate(context.Background()))
	require.NoError(t, h.Authenticate(context.Background()))
	require.Equal(t, 2, calls)
}

func TestLogoutClearsCachedTokenForcingReauthentication(t *testing.T) {
	calls := 0
	login := func(ctx context.Context, loginURL, username, password string) (string, error) {
		calls++
		return "t", nil
	}
	h := New("excel", config.Credentials{Kind: config.CredentialPassword, LoginURL: "https://x"}, login)

	_, _, err := h.CurrentHeader(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	h.Logout()

	_, _, err = h.CurrentHeader(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestPasswordMethodWithoutLoginFuncReturnsConfigurationError(t *testing.T) {
	h := New("qtest", config.Credentials{Kind: config.CredentialPassword}, nil)
	_, _, err := h.CurrentHeader(context.Background())
	require.Error(t, err)
}

func TestDefaultHTTPLoginExtractsConfiguredField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"session_token":"abc"}`))
	}))
	defer server.Close()

	login := DefaultHTTPLogin("session_token")
	token, err := login(context.Background(), server.URL, "u", "p")
	require.NoError(t, err)
	require.Equal(t, "abc", token)
}

func TestNeedsAuthLockedFalseWhenFarFromExpiry(t *testing.T) {
	h := New("zephyr", config.Credentials{Kind: config.CredentialOAuth}, nil)
	h.cachedToken = "tok"
	h.expiresAt = time.Now().Add(time.Hour)
	require.False(t, h.needsAuthLocked())
}
