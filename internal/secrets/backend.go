// Package secrets stores and resolves credential material for client
// profiles. Secrets live in the OS keychain or in environment
// variables; a Resolver queries the available backends in priority
// order so an exported environment variable always wins over a stored
// keychain entry.
package secrets

import (
	"context"
	"errors"
)

var (
	// ErrSecretNotFound is returned when a secret key does not exist in the backend.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrBackendUnavailable is returned when a backend cannot be used in the current environment.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrReadOnlyBackend is returned when attempting to modify a read-only backend.
	ErrReadOnlyBackend = errors.New("backend is read-only")
)

// Backend provides storage for sensitive values. Backends are queried
// in priority order by the Resolver.
type Backend interface {
	// Name returns the backend identifier (e.g., "keychain", "env").
	Name() string

	// Get retrieves a secret by key. Returns ErrSecretNotFound if not present.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a secret. Returns ErrReadOnlyBackend if not supported.
	Set(ctx context.Context, key, value string) error

	// Delete removes a secret. Returns ErrSecretNotFound if not present.
	Delete(ctx context.Context, key string) error

	// Available returns true if this backend is usable in the current environment.
	Available() bool

	// Priority returns the resolution priority (higher = checked first).
	Priority() int
}

// ProfileKey builds the canonical secret key for a credential field of
// a named profile, e.g. ProfileKey("prod", "secret_access_key") =
// "profiles/prod/secret_access_key".
func ProfileKey(profile, field string) string {
	return "profiles/" + profile + "/" + field
}
