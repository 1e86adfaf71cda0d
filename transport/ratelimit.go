package transport

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter gates sends on a connection. Implementations block until
// a send is allowed under the limit.
type RateLimiter interface {
	// Wait blocks until a send is allowed. Returns an error if the
	// context is cancelled before the send can proceed.
	Wait(ctx context.Context) error
}

// NewTokenBucket returns a token-bucket RateLimiter allowing
// requestsPerSecond sustained sends with the given burst.
func NewTokenBucket(requestsPerSecond float64, burst int) RateLimiter {
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}
