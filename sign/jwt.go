package sign

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTSigner attaches an HS256 bearer token derived from the secret
// key. The token carries the access key id as issuer and is valid
// from req.Time for the configured TTL.
type JWTSigner struct {
	ttl time.Duration
}

// NewJWTSigner creates a JWT signer. A zero ttl defaults to 15 minutes.
func NewJWTSigner(ttl time.Duration) *JWTSigner {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &JWTSigner{ttl: ttl}
}

// Name returns the signer identifier.
func (s *JWTSigner) Name() string { return "jwt" }

// Sign mints the bearer token and sets the Authorization header.
func (s *JWTSigner) Sign(ctx context.Context, req *Request, creds Credentials) error {
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return fmt.Errorf("jwt signing requires an access key id and secret key")
	}

	claims := jwt.MapClaims{
		"iss": creds.AccessKeyID,
		"iat": req.Time.Unix(),
		"exp": req.Time.Add(s.ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(creds.SecretAccessKey))
	if err != nil {
		return fmt.Errorf("minting token: %w", err)
	}

	req.Headers["Authorization"] = "Bearer " + token
	return nil
}
