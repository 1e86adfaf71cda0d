// Package config loads client profiles from YAML. A config file holds
// named profiles; each profile carries the endpoint, credentials,
// signing variant, and transport tuning for one remote API. Values may
// reference environment variables with ${VAR} syntax, and credential
// fields left blank are resolved through the secrets backends.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sigquery/sigquery/client"
	"github.com/sigquery/sigquery/internal/secrets"
	"github.com/sigquery/sigquery/sign"
	"github.com/sigquery/sigquery/transport"
)

// Duration wraps time.Duration with YAML string parsing ("30s", "2m").
type Duration time.Duration

// UnmarshalYAML parses a duration string or a bare number of seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var secs float64
	if err := value.Decode(&secs); err != nil {
		return fmt.Errorf("invalid duration value at line %d", value.Line)
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// MarshalYAML renders the duration in time.Duration string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// ProxyProfile configures an optional forward proxy.
type ProxyProfile struct {
	Host    string   `yaml:"host"`
	Port    int      `yaml:"port,omitempty"`
	User    string   `yaml:"user,omitempty"`
	Pass    string   `yaml:"pass,omitempty"`
	NoProxy []string `yaml:"no_proxy,omitempty"`
}

// RetryProfile tunes the transient-failure policy.
type RetryProfile struct {
	MaxAttempts           int      `yaml:"max_attempts,omitempty"`
	InitialBackoff        Duration `yaml:"initial_backoff,omitempty"`
	MaxBackoff            Duration `yaml:"max_backoff,omitempty"`
	BackoffFactor         float64  `yaml:"backoff_factor,omitempty"`
	RetryableStatus       []int    `yaml:"retryable_status,omitempty"`
	RetryConnectionErrors bool     `yaml:"retry_connection_errors,omitempty"`
}

// RateLimitProfile caps the request rate for a profile.
type RateLimitProfile struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst,omitempty"`
}

// OAuth2Profile configures the oauth2 signing variant.
type OAuth2Profile struct {
	TokenURL     string   `yaml:"token_url,omitempty"`
	ClientID     string   `yaml:"client_id,omitempty"`
	ClientSecret string   `yaml:"client_secret,omitempty"`
	Scopes       []string `yaml:"scopes,omitempty"`
}

// Profile is the full client configuration for one remote API.
type Profile struct {
	// Endpoint
	Host     string `yaml:"host"`
	Port     int    `yaml:"port,omitempty"`
	Secure   *bool  `yaml:"secure,omitempty"`
	BasePath string `yaml:"base_path,omitempty"`

	// Protocol
	APIVersion       string `yaml:"api_version"`
	SignatureVersion string `yaml:"signature_version,omitempty"`

	// Credentials. Blank fields fall back to the secrets backends.
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	SecurityToken   string `yaml:"security_token,omitempty"`

	// v4 signing scope
	Service string `yaml:"service,omitempty"`
	Region  string `yaml:"region,omitempty"`

	// jwt signing
	TokenTTL Duration `yaml:"token_ttl,omitempty"`

	// oauth2 signing
	OAuth2 *OAuth2Profile `yaml:"oauth2,omitempty"`

	// Transport tuning
	ValidateCerts *bool             `yaml:"validate_certs,omitempty"`
	Timeout       Duration          `yaml:"timeout,omitempty"`
	ClientToken   bool              `yaml:"client_token,omitempty"`
	Proxy         *ProxyProfile     `yaml:"proxy,omitempty"`
	Retry         *RetryProfile     `yaml:"retry,omitempty"`
	RateLimit     *RateLimitProfile `yaml:"rate_limit,omitempty"`
}

// Config is the top-level config file shape.
type Config struct {
	DefaultProfile string             `yaml:"default_profile,omitempty"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} references with the variable's value.
// Unset variables expand to the empty string.
func expandEnv(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envVarPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// ConfigDir returns the XDG config directory, creating it when absent.
// Respects XDG_CONFIG_HOME; defaults to ~/.config/sigquery.
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}

	dir := filepath.Join(base, "sigquery")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

// DefaultPath returns the config file location: SIGQUERY_CONFIG when
// set, otherwise the XDG config directory.
func DefaultPath() (string, error) {
	if path := os.Getenv("SIGQUERY_CONFIG"); path != "" {
		return path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads and parses a config file, expanding ${VAR} references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expandEnv(data), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the config file shape.
func (c *Config) Validate() error {
	if len(c.Profiles) == 0 {
		return fmt.Errorf("no profiles defined")
	}
	if c.DefaultProfile != "" {
		if _, ok := c.Profiles[c.DefaultProfile]; !ok {
			return fmt.Errorf("default_profile %q is not defined", c.DefaultProfile)
		}
	}
	for name, p := range c.Profiles {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
	}
	return nil
}

// Profile returns the named profile, or the default profile when name
// is empty. With no explicit default and exactly one profile, that
// profile is the default.
func (c *Config) Profile(name string) (*Profile, error) {
	if name == "" {
		name = c.DefaultProfile
	}
	if name == "" {
		if len(c.Profiles) == 1 {
			for _, p := range c.Profiles {
				return &p, nil
			}
		}
		return nil, fmt.Errorf("no profile selected and no default_profile set")
	}

	p, ok := c.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile %q is not defined", name)
	}
	return &p, nil
}

// LoadProfile loads a config file and selects one profile.
func LoadProfile(path, name string) (*Profile, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return cfg.Profile(name)
}

// Validate checks one profile.
func (p *Profile) Validate() error {
	if p.Host == "" {
		return fmt.Errorf("host is required")
	}
	if p.APIVersion == "" {
		return fmt.Errorf("api_version is required")
	}
	switch p.SignatureVersion {
	case "", "2", "4", "jwt", "oauth2":
	default:
		return fmt.Errorf("unsupported signature_version %q", p.SignatureVersion)
	}
	if p.SignatureVersion == "4" && (p.Service == "" || p.Region == "") {
		return fmt.Errorf("signature_version 4 requires service and region")
	}
	if p.Proxy != nil && p.Proxy.Host == "" {
		return fmt.Errorf("proxy requires a host")
	}
	if p.RateLimit != nil && p.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit requires a positive requests_per_second")
	}
	return nil
}

// ResolveCredentials fills blank credential fields from the secrets
// backends using the profile's canonical secret keys. Missing secrets
// are left blank; the signer decides whether that is an error.
func (p *Profile) ResolveCredentials(ctx context.Context, profileName string, resolver *secrets.Resolver) {
	fill := func(dst *string, field string) {
		if *dst != "" {
			return
		}
		if v, err := resolver.Get(ctx, secrets.ProfileKey(profileName, field)); err == nil {
			*dst = v
		}
	}
	fill(&p.AccessKeyID, "access_key_id")
	fill(&p.SecretAccessKey, "secret_access_key")
	fill(&p.SecurityToken, "security_token")
}

// ClientConfig converts the profile into a client configuration.
func (p *Profile) ClientConfig() (*client.Config, error) {
	secure := true
	if p.Secure != nil {
		secure = *p.Secure
	}

	signCfg := sign.Config{
		Version:  p.SignatureVersion,
		Service:  p.Service,
		Region:   p.Region,
		TokenTTL: time.Duration(p.TokenTTL),
	}
	if p.OAuth2 != nil {
		signCfg.TokenURL = p.OAuth2.TokenURL
		signCfg.ClientID = p.OAuth2.ClientID
		signCfg.ClientSecret = p.OAuth2.ClientSecret
		signCfg.Scopes = p.OAuth2.Scopes
	}
	signer, err := sign.New(&signCfg)
	if err != nil {
		return nil, err
	}

	cfg := &client.Config{
		Endpoint: transport.Endpoint{
			Host:     p.Host,
			Port:     p.Port,
			Secure:   secure,
			BasePath: p.BasePath,
		},
		Credentials: sign.Credentials{
			AccessKeyID:     p.AccessKeyID,
			SecretAccessKey: p.SecretAccessKey,
			SecurityToken:   p.SecurityToken,
		},
		APIVersion:         p.APIVersion,
		Signer:             signer,
		Timeout:            time.Duration(p.Timeout),
		InsecureSkipVerify: p.ValidateCerts != nil && !*p.ValidateCerts,
		ClientToken:        p.ClientToken,
	}

	if p.Proxy != nil {
		cfg.Proxy = &transport.ProxyConfig{
			Host:    p.Proxy.Host,
			Port:    p.Proxy.Port,
			User:    p.Proxy.User,
			Pass:    p.Proxy.Pass,
			NoProxy: p.Proxy.NoProxy,
		}
	}

	if p.Retry != nil {
		retry := transport.DefaultRetryConfig()
		if p.Retry.MaxAttempts > 0 {
			retry.MaxAttempts = p.Retry.MaxAttempts
		}
		if p.Retry.InitialBackoff > 0 {
			retry.InitialBackoff = time.Duration(p.Retry.InitialBackoff)
		}
		if p.Retry.MaxBackoff > 0 {
			retry.MaxBackoff = time.Duration(p.Retry.MaxBackoff)
		}
		if p.Retry.BackoffFactor > 0 {
			retry.BackoffFactor = p.Retry.BackoffFactor
		}
		if len(p.Retry.RetryableStatus) > 0 {
			retry.RetryableStatus = p.Retry.RetryableStatus
		}
		retry.RetryConnectionErrors = p.Retry.RetryConnectionErrors
		cfg.Retry = retry
	}

	if p.RateLimit != nil {
		burst := p.RateLimit.Burst
		if burst <= 0 {
			burst = 1
		}
		cfg.RateLimiter = transport.NewTokenBucket(p.RateLimit.RequestsPerSecond, burst)
	}

	return cfg, nil
}
