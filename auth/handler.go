// Package auth implements the Authentication Handler from spec.md §4.8:
// per-provider TOKEN / PASSWORD / OAUTH lifecycles, proactive OAuth
// refresh, and the reauthenticate-then-retry-once contract every 401
// response triggers. It adapts the teacher's auth tool family
// (shared/auth.go's BearerTool/OAuth2Tool, built on golang.org/x/oauth2
// and clientcredentials) from one-shot CLI actions into a held,
// thread-safe per-provider credential cache.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/heymumford/skidbladnir/apierrors"
	"github.com/heymumford/skidbladnir/internal/config"
)

// TokenSource is satisfied by anything capable of producing the current
// bearer value for injection; Handler itself implements it.
type TokenSource interface {
	CurrentHeader(ctx context.Context) (headerName, headerValue string, err error)
}

// LoginFunc performs the PASSWORD method's POST to the vendor login URL
// and extracts a token from the response. The resilient HTTP client
// supplies this — auth itself does not know how to make HTTP calls, to
// keep the dependency direction from httpclient -> auth, not the reverse.
type LoginFunc func(ctx context.Context, loginURL, username, password string) (token string, err error)

// Handler is the per-provider authentication lifecycle manager. One
// Handler instance is owned by exactly one provider's resilient HTTP
// client; all mutation of its cached credentials happens inside Handler
// itself (spec.md §5 — "credentials... mutated only by the handler").
type Handler struct {
	provider string
	creds    config.Credentials
	login    LoginFunc

	mu          sync.Mutex
	cachedToken string
	expiresAt   time.Time // zero means "no known expiry" (TOKEN, PASSWORD)
	refreshTok  string
}

// New builds a Handler for provider from its configured credentials.
func New(provider string, creds config.Credentials, login LoginFunc) *Handler {
	return &Handler{provider: provider, creds: creds, login: login}
}

// CurrentHeader returns the header name/value pair the resilient HTTP
// client should inject on every outbound request, authenticating (or
// refreshing an expiring OAuth token) first if necessary.
func (h *Handler) CurrentHeader(ctx context.Context) (string, string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.creds.Kind == config.CredentialToken {
		prefix := h.creds.TokenPrefix
		if prefix == "" {
			prefix = "Bearer "
		}
		headerName := h.creds.TokenHeaderName
		if headerName == "" {
			headerName = "Authorization"
		}
		return headerName, prefix + h.creds.Token, nil
	}

	if h.needsAuthLocked() {
		if err := h.authenticateLocked(ctx); err != nil {
			return "", "", err
		}
	}
	return "Authorization", "Bearer " + h.cachedToken, nil
}

func (h *Handler) needsAuthLocked() bool {
	if h.cachedToken == "" {
		return true
	}
	if h.expiresAt.IsZero() {
		return false
	}
	// Refresh proactively 30s before expiry, per spec.md §4.8's "refreshes
	// proactively" requirement for OAUTH.
	return time.Now().Add(30 * time.Second).After(h.expiresAt)
}

// Authenticate forces a (re)authentication regardless of cached state.
// The resilient HTTP client calls this on a 401 before retrying the
// original request exactly once (spec.md §4.8).
func (h *Handler) Authenticate(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.authenticateLocked(ctx)
}

func (h *Handler) authenticateLocked(ctx context.Context) error {
	switch h.creds.Kind {
	case config.CredentialToken:
		return nil // nothing to refresh; the static token is the credential
	case config.CredentialPassword:
		return h.authenticatePasswordLocked(ctx)
	case config.CredentialOAuth:
		return h.authenticateOAuthLocked(ctx)
	default:
		return apierrors.New(h.provider, apierrors.Authentication, fmt.Sprintf("unknown credential kind %q", h.creds.Kind))
	}
}

func (h *Handler) authenticatePasswordLocked(ctx context.Context) error {
	if h.login == nil {
		return apierrors.New(h.provider, apierrors.Authentication, "PASSWORD method configured without a login transport")
	}
	token, err := h.login(ctx, h.creds.LoginURL, h.creds.Username, h.creds.Password)
	if err != nil {
		return apierrors.Wrap(h.provider, apierrors.Authentication, "password login failed", err)
	}
	h.cachedToken = token
	h.expiresAt = time.Time{}
	return nil
}

func (h *Handler) authenticateOAuthLocked(ctx context.Context) error {
	var token *oauth2.Token
	var err error

	switch h.creds.GrantType {
	case "", "client_credentials":
		cc := clientcredentials.Config{
			ClientID:     h.creds.ClientID,
			ClientSecret: h.creds.ClientSecret,
			TokenURL:     h.creds.TokenURL,
			Scopes:       h.creds.Scopes,
		}
		token, err = cc.Token(ctx)
	case "password":
		oc := oauth2.Config{
			ClientID:     h.creds.ClientID,
			ClientSecret: h.creds.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: h.creds.TokenURL},
			Scopes:       h.creds.Scopes,
		}
		if h.refreshTok != "" {
			token, err = oc.TokenSource(ctx, &oauth2.Token{RefreshToken: h.refreshTok}).Token()
		} else {
			token, err = oc.PasswordCredentialsToken(ctx, h.creds.Username, h.creds.Password)
		}
	default:
		return apierrors.New(h.provider, apierrors.Authentication, fmt.Sprintf("unsupported OAuth grant %q", h.creds.GrantType))
	}

	if err != nil {
		return apierrors.Wrap(h.provider, apierrors.Authentication, "oauth token request failed", err)
	}

	h.cachedToken = token.AccessToken
	h.expiresAt = token.Expiry
	if token.RefreshToken != "" {
		h.refreshTok = token.RefreshToken
	}
	return nil
}

// Logout clears any cached token, forcing the next CurrentHeader call to
// reauthenticate.
func (h *Handler) Logout() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cachedToken = ""
	h.expiresAt = time.Time{}
	h.refreshTok = ""
}

// DefaultHTTPLogin is a LoginFunc built on net/http for PASSWORD-method
// providers, reading the token out of a configurable JSON response field
// (defaulting to "token"). Vendor adapters that need a different
// extractor shape should supply their own LoginFunc instead.
func DefaultHTTPLogin(tokenField string) LoginFunc {
	if tokenField == "" {
		tokenField = "token"
	}
	return func(ctx context.Context, loginURL, username, password string) (string, error) {
		body, err := json.Marshal(map[string]string{"username": username, "password": password})
		if err != nil {
			return "", err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(string(body)))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		var parsed map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return "", err
		}
		token, _ := parsed[tokenField].(string)
		if token == "" {
			return "", fmt.Errorf("login response missing %q field", tokenField)
		}
		return token, nil
	}
}
