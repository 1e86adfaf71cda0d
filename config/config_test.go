package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigquery/sigquery/internal/secrets"
	"github.com/sigquery/sigquery/transport"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
default_profile: prod
profiles:
  prod:
    host: api.example.com
    api_version: "2011-01-01"
    access_key_id: AKID
    secret_access_key: SECRET
    base_path: /v1
    timeout: 10s
    retry:
      max_attempts: 5
      initial_backoff: 500ms
    rate_limit:
      requests_per_second: 20
      burst: 5
  staging:
    host: staging.example.com
    port: 8443
    api_version: "2011-01-01"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.DefaultProfile)
	require.Len(t, cfg.Profiles, 2)

	prod := cfg.Profiles["prod"]
	assert.Equal(t, "api.example.com", prod.Host)
	assert.Equal(t, "/v1", prod.BasePath)
	assert.Equal(t, 10*time.Second, time.Duration(prod.Timeout))
	require.NotNil(t, prod.Retry)
	assert.Equal(t, 5, prod.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, time.Duration(prod.Retry.InitialBackoff))
	require.NotNil(t, prod.RateLimit)
	assert.Equal(t, 20.0, prod.RateLimit.RequestsPerSecond)

	staging := cfg.Profiles["staging"]
	assert.Equal(t, 8443, staging.Port)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_SECRET_KEY", "from-env")

	path := writeConfig(t, `
profiles:
  default:
    host: api.example.com
    api_version: "2011-01-01"
    secret_access_key: ${TEST_SECRET_KEY}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Profiles["default"].SecretAccessKey)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no profiles", "profiles: {}\n"},
		{"missing host", "profiles:\n  p:\n    api_version: \"1\"\n"},
		{"missing api_version", "profiles:\n  p:\n    host: h\n"},
		{"unknown default", "default_profile: x\nprofiles:\n  p:\n    host: h\n    api_version: \"1\"\n"},
		{"bad signature version", "profiles:\n  p:\n    host: h\n    api_version: \"1\"\n    signature_version: \"9\"\n"},
		{"v4 without scope", "profiles:\n  p:\n    host: h\n    api_version: \"1\"\n    signature_version: \"4\"\n"},
		{"bad duration", "profiles:\n  p:\n    host: h\n    api_version: \"1\"\n    timeout: never\n"},
		{"not yaml", "{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestProfileSelection(t *testing.T) {
	cfg := &Config{
		DefaultProfile: "a",
		Profiles: map[string]Profile{
			"a": {Host: "a.example.com", APIVersion: "1"},
			"b": {Host: "b.example.com", APIVersion: "1"},
		},
	}

	p, err := cfg.Profile("")
	require.NoError(t, err)
	assert.Equal(t, "a.example.com", p.Host)

	p, err = cfg.Profile("b")
	require.NoError(t, err)
	assert.Equal(t, "b.example.com", p.Host)

	_, err = cfg.Profile("missing")
	assert.Error(t, err)
}

func TestProfileSelectionSingleImplicitDefault(t *testing.T) {
	cfg := &Config{
		Profiles: map[string]Profile{
			"only": {Host: "only.example.com", APIVersion: "1"},
		},
	}

	p, err := cfg.Profile("")
	require.NoError(t, err)
	assert.Equal(t, "only.example.com", p.Host)
}

func TestProfileSelectionNoDefault(t *testing.T) {
	cfg := &Config{
		Profiles: map[string]Profile{
			"a": {Host: "a", APIVersion: "1"},
			"b": {Host: "b", APIVersion: "1"},
		},
	}

	_, err := cfg.Profile("")
	assert.Error(t, err)
}

func TestDurationUnmarshalNumber(t *testing.T) {
	path := writeConfig(t, `
profiles:
  p:
    host: h
    api_version: "1"
    timeout: 30
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, time.Duration(cfg.Profiles["p"].Timeout))
}

func TestResolveCredentials(t *testing.T) {
	t.Setenv("SIGQUERY_SECRET_PROFILES_PROD_SECRET_ACCESS_KEY", "resolved-secret")

	p := &Profile{
		Host:        "api.example.com",
		APIVersion:  "1",
		AccessKeyID: "explicit-akid",
	}
	resolver := secrets.NewResolver(secrets.NewEnvBackend())
	p.ResolveCredentials(context.Background(), "prod", resolver)

	// explicit value wins, blank field is filled
	assert.Equal(t, "explicit-akid", p.AccessKeyID)
	assert.Equal(t, "resolved-secret", p.SecretAccessKey)
	assert.Empty(t, p.SecurityToken)
}

func TestClientConfig(t *testing.T) {
	insecure := false
	p := &Profile{
		Host:            "api.example.com",
		Port:            8443,
		BasePath:        "/v1",
		APIVersion:      "2011-01-01",
		AccessKeyID:     "AKID",
		SecretAccessKey: "SECRET",
		ValidateCerts:   &insecure,
		Timeout:         Duration(10 * time.Second),
		ClientToken:     true,
		Proxy: &ProxyProfile{
			Host:    "proxy.internal",
			Port:    3128,
			NoProxy: []string{"*.internal"},
		},
		Retry: &RetryProfile{
			MaxAttempts:           5,
			RetryConnectionErrors: true,
		},
		RateLimit: &RateLimitProfile{RequestsPerSecond: 10},
	}

	cfg, err := p.ClientConfig()
	require.NoError(t, err)

	assert.Equal(t, "api.example.com", cfg.Endpoint.Host)
	assert.Equal(t, 8443, cfg.Endpoint.Port)
	assert.True(t, cfg.Endpoint.Secure)
	assert.Equal(t, "/v1", cfg.Endpoint.BasePath)
	assert.Equal(t, "AKID", cfg.Credentials.AccessKeyID)
	assert.Equal(t, "2011-01-01", cfg.APIVersion)
	assert.Equal(t, "v2", cfg.Signer.Name())
	assert.True(t, cfg.InsecureSkipVerify)
	assert.True(t, cfg.ClientToken)
	assert.Equal(t, 10*time.Second, cfg.Timeout)

	require.NotNil(t, cfg.Proxy)
	assert.Equal(t, "proxy.internal", cfg.Proxy.Host)
	assert.Equal(t, []string{"*.internal"}, cfg.Proxy.NoProxy)

	require.NotNil(t, cfg.Retry)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.True(t, cfg.Retry.RetryConnectionErrors)
	// unset retry fields keep their defaults
	assert.Equal(t, transport.DefaultRetryConfig().InitialBackoff, cfg.Retry.InitialBackoff)

	assert.NotNil(t, cfg.RateLimiter)
	assert.NoError(t, cfg.Validate())
}

func TestClientConfigInsecureScheme(t *testing.T) {
	secure := false
	p := &Profile{
		Host:       "localhost",
		Port:       8080,
		Secure:     &secure,
		APIVersion: "1",
	}

	cfg, err := p.ClientConfig()
	require.NoError(t, err)
	assert.False(t, cfg.Endpoint.Secure)
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("SIGQUERY_CONFIG", "/tmp/custom.yaml")
	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.yaml", path)

	t.Setenv("SIGQUERY_CONFIG", "")
	os.Unsetenv("SIGQUERY_CONFIG")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path, err = DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", filepath.Base(path))
	assert.Contains(t, path, "sigquery")
}
