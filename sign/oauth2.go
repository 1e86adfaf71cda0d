package sign

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// OAuth2Signer attaches a bearer token obtained from a token source.
// With a token URL configured it runs the client-credentials flow and
// caches/refreshes tokens through the source; otherwise the client's
// secret key is used as a static token.
type OAuth2Signer struct {
	source oauth2.TokenSource
}

// NewOAuth2Signer creates an OAuth2 signer from configuration.
func NewOAuth2Signer(cfg *Config) (*OAuth2Signer, error) {
	if cfg.TokenURL == "" {
		return &OAuth2Signer{}, nil
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("oauth2 signing requires a client id and secret with a token URL")
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	return &OAuth2Signer{source: cc.TokenSource(context.Background())}, nil
}

// Name returns the signer identifier.
func (s *OAuth2Signer) Name() string { return "oauth2" }

// Sign sets the Authorization header from the token source, or from
// the static secret when no source is configured.
func (s *OAuth2Signer) Sign(ctx context.Context, req *Request, creds Credentials) error {
	source := s.source
	if source == nil {
		if creds.SecretAccessKey == "" {
			return fmt.Errorf("oauth2 signing requires a token URL or a static token")
		}
		source = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.SecretAccessKey})
	}

	token, err := source.Token()
	if err != nil {
		return fmt.Errorf("obtaining token: %w", err)
	}
	req.Headers["Authorization"] = token.Type() + " " + token.AccessToken
	return nil
}
