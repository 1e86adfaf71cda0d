// Package sign produces request authentication material from a
// canonical request representation and a secret. Signer variants form
// a small closed set selected by configuration at client construction,
// never by inspecting the request.
package sign

import (
	"context"
	"fmt"
	"time"
)

// Credentials is the secret material a signer consumes. It is passed
// through opaquely from configuration.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SecurityToken   string
}

// Request is the canonical representation a signer signs. Sign mutates
// Params and Headers in place; a Request is built fresh per attempt
// and never reused across calls.
type Request struct {
	// Method is the HTTP method
	Method string

	// Host is the endpoint host[:port] as it appears on the wire
	Host string

	// Path is the normalized request path
	Path string

	// Params are the flat wire parameters (body or query string)
	Params map[string]string

	// ParamsInQuery is true when Params travel in the query string
	// rather than a form-encoded body (GET flows)
	ParamsInQuery bool

	// Headers are the request headers the signer may augment
	Headers map[string]string

	// Time is the signing time. Identical inputs including Time always
	// produce identical output; retries re-sign with a fresh Time.
	Time time.Time
}

// Signer attaches authentication material to a canonical request.
type Signer interface {
	// Name returns the signer identifier (e.g. "v2", "v4").
	Name() string

	// Sign augments req.Params and req.Headers with authentication
	// material derived from req and creds.
	Sign(ctx context.Context, req *Request, creds Credentials) error
}

// Config selects and configures a signer variant.
type Config struct {
	// Version picks the variant: "2" (default), "4", "jwt", "oauth2"
	Version string

	// Service and Region are required for version 4
	Service string
	Region  string

	// TokenTTL bounds jwt token lifetime (default: 15m)
	TokenTTL time.Duration

	// OAuth2 client-credentials settings for version "oauth2"
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// New builds the signer variant selected by cfg.
func New(cfg *Config) (Signer, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	switch cfg.Version {
	case "", "2":
		return &V2Signer{}, nil
	case "4":
		return NewV4Signer(cfg.Service, cfg.Region)
	case "jwt":
		return NewJWTSigner(cfg.TokenTTL), nil
	case "oauth2":
		return NewOAuth2Signer(cfg)
	default:
		return nil, fmt.Errorf("unknown signature version %q", cfg.Version)
	}
}
