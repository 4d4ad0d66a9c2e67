package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
baseURL: "https://example.atlassian.net"
providerName: zephyr
authentication:
  credentials:
    kind: TOKEN
    token: "file-token"
rateLimiting:
  maxRequestsPerMinute: 60
  maxRequestsPerSecond: 5
resilience:
  retryOptions:
    maxAttempts: 4
  circuitBreakerOptions:
    failureThreshold: 5
    resetTimeoutMs: 1000
testCaseFieldMappings:
  customfield_priority: priority
`

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesYAMLFields(t *testing.T) {
	path := writeYAML(t, sampleYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "https://example.atlassian.net", cfg.BaseURL)
	require.Equal(t, "zephyr", cfg.ProviderName)
	require.Equal(t, CredentialToken, cfg.Authentication.Credentials.Kind)
	require.Equal(t, "file-token", cfg.Authentication.Credentials.Token)
	require.Equal(t, 60, cfg.RateLimiting.MaxRequestsPerMinute)
	require.Equal(t, 4, cfg.Resilience.RetryOptions.MaxAttempts)
	require.Equal(t, "priority", cfg.TestCaseFieldMappings["customfield_priority"])
}

func TestLoadReturnsErrorForMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadOverlaysBaseURLFromEnv(t *testing.T) {
	path := writeYAML(t, sampleYAML)
	t.Setenv("SKIDBLADNIR_BASEURL", "https://overridden.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://overridden.example.com", cfg.BaseURL)
}

func TestLoadOverlaysTokenFromEnv(t *testing.T) {
	path := writeYAML(t, sampleYAML)
	t.Setenv("SKIDBLADNIR_AUTHENTICATION_CREDENTIALS_TOKEN", "env-token")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "env-token", cfg.Authentication.Credentials.Token)
}

func TestLoadOverlaysRateLimitFromEnv(t *testing.T) {
	path := writeYAML(t, sampleYAML)
	t.Setenv("SKIDBLADNIR_RATELIMITING_MAXREQUESTSPERMINUTE", "120")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 120, cfg.RateLimiting.MaxRequestsPerMinute)
}

func TestLoadDotEnvIsNoOpWhenFileAbsent(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestLoadDotEnvLoadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SKIDBLADNIR_TEST_VAR=present\n"), 0o644))

	require.NoError(t, LoadDotEnv(path))
	require.Equal(t, "present", os.Getenv("SKIDBLADNIR_TEST_VAR"))
}
