package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvBackendPriority puts the environment backend first so exported
// variables override stored secrets.
const EnvBackendPriority = 100

const envSecretPrefix = "SIGQUERY_SECRET_"

// EnvBackend provides read-only access to secrets via environment
// variables named SIGQUERY_SECRET_<KEY>, where KEY is the secret key
// uppercased with slashes replaced by underscores.
type EnvBackend struct{}

// NewEnvBackend creates a new environment variable backend.
func NewEnvBackend() *EnvBackend {
	return &EnvBackend{}
}

// Name returns the backend identifier.
func (e *EnvBackend) Name() string {
	return "env"
}

// Get retrieves a secret from the environment.
func (e *EnvBackend) Get(ctx context.Context, key string) (string, error) {
	if value := os.Getenv(normalizeKey(key)); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("%w: environment variable not set", ErrSecretNotFound)
}

// Set returns ErrReadOnlyBackend; the environment backend is read-only.
func (e *EnvBackend) Set(ctx context.Context, key, value string) error {
	return ErrReadOnlyBackend
}

// Delete returns ErrReadOnlyBackend; the environment backend is read-only.
func (e *EnvBackend) Delete(ctx context.Context, key string) error {
	return ErrReadOnlyBackend
}

// Available returns true; environment variables are always readable.
func (e *EnvBackend) Available() bool {
	return true
}

// Priority returns the backend priority (highest).
func (e *EnvBackend) Priority() int {
	return EnvBackendPriority
}

// normalizeKey converts a secret key to an environment variable name.
// Example: "profiles/prod/secret_access_key" ->
// "SIGQUERY_SECRET_PROFILES_PROD_SECRET_ACCESS_KEY".
func normalizeKey(key string) string {
	return envSecretPrefix + strings.ToUpper(strings.ReplaceAll(key, "/", "_"))
}
