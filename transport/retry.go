package transport

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

// RetryConfig configures the retry loop for a logical request.
type RetryConfig struct {
	// MaxAttempts is the total attempt budget, first try included (default: 3)
	MaxAttempts int

	// InitialBackoff is the delay before the first retry (default: 1s)
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between attempts (default: 30s)
	MaxBackoff time.Duration

	// BackoffFactor is the exponential backoff multiplier (default: 2.0)
	BackoffFactor float64

	// RetryableStatus lists the HTTP status codes treated as transient.
	// Default: [500, 502, 503, 504]. Client errors (4xx) are never
	// transient unless listed here explicitly.
	RetryableStatus []int

	// RetryConnectionErrors makes connect-level faults (DNS, reset,
	// timeout) share the attempt budget with transient server errors.
	// Off by default: pure transport faults surface immediately.
	RetryConnectionErrors bool
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     3,
		InitialBackoff:  1 * time.Second,
		MaxBackoff:      30 * time.Second,
		BackoffFactor:   2.0,
		RetryableStatus: []int{500, 502, 503, 504},
	}
}

// Validate checks if the retry configuration is valid.
func (c *RetryConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.InitialBackoff < 0 {
		return fmt.Errorf("initial_backoff must be non-negative, got %v", c.InitialBackoff)
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff (%v) must be >= initial_backoff (%v)", c.MaxBackoff, c.InitialBackoff)
	}
	if c.BackoffFactor < 1.0 {
		return fmt.Errorf("backoff_factor must be >= 1.0, got %f", c.BackoffFactor)
	}
	return nil
}

// IsRetryable returns true if the given status code is transient.
func (c *RetryConfig) IsRetryable(statusCode int) bool {
	for _, code := range c.RetryableStatus {
		if code == statusCode {
			return true
		}
	}
	return false
}

// SendFunc executes a single request attempt. When the returned error
// is a *Error, the retry loop consults it to decide whether another
// attempt is warranted.
type SendFunc func(ctx context.Context) (*Response, error)

// Execute runs fn under the retry policy: transient failures are
// retried on the same connection with exponential backoff and jitter,
// any other outcome terminates the loop immediately. When the attempt
// budget is exhausted the last error is surfaced unchanged. Retries
// for one call are strictly sequential.
func Execute(ctx context.Context, config *RetryConfig, fn SendFunc) (*Response, error) {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	var resp *Response

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		resp, lastErr = fn(ctx)
		if lastErr == nil {
			return resp, nil
		}

		shouldRetry, retryAfter := shouldRetryError(lastErr, config)
		if attempt >= config.MaxAttempts || !shouldRetry {
			return nil, lastErr
		}

		if ctx.Err() != nil {
			return nil, &Error{
				Type:      ErrorTypeCancelled,
				Message:   "request cancelled before retry",
				Retryable: false,
				Cause:     ctx.Err(),
			}
		}

		delay := calculateBackoff(config, attempt, retryAfter)
		retriesTotal.WithLabelValues(retryReason(lastErr)).Inc()

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, &Error{
				Type:      ErrorTypeCancelled,
				Message:   "request cancelled during retry backoff",
				Retryable: false,
				Cause:     ctx.Err(),
			}
		}
	}

	return nil, lastErr
}

// shouldRetryError decides if an error warrants another attempt and
// extracts a Retry-After hint if the server sent one.
func shouldRetryError(err error, config *RetryConfig) (shouldRetry bool, retryAfter time.Duration) {
	var terr *Error
	if !errors.As(err, &terr) {
		return false, 0
	}
	if !terr.Retryable {
		return false, 0
	}

	// Connect-level faults carry no status code. Whether they share
	// the retry budget is an explicit policy switch.
	if terr.StatusCode == 0 {
		return config.RetryConnectionErrors, 0
	}

	if !config.IsRetryable(terr.StatusCode) {
		return false, 0
	}
	if terr.StatusCode == http.StatusTooManyRequests || terr.StatusCode == http.StatusServiceUnavailable {
		retryAfter = extractRetryAfter(terr)
	}
	return true, retryAfter
}

func retryReason(err error) string {
	var terr *Error
	if errors.As(err, &terr) {
		if terr.StatusCode != 0 {
			return strconv.Itoa(terr.StatusCode)
		}
		return string(terr.Type)
	}
	return "unknown"
}

// calculateBackoff computes the delay before the next attempt.
//
// Formula: delay = min(InitialBackoff * (BackoffFactor ^ (attempt - 1)), MaxBackoff) + jitter
// Jitter: random [0ms, 100ms]
func calculateBackoff(config *RetryConfig, attempt int, retryAfter time.Duration) time.Duration {
	baseDelay := float64(config.InitialBackoff) * pow(config.BackoffFactor, attempt-1)
	if baseDelay > float64(config.MaxBackoff) {
		baseDelay = float64(config.MaxBackoff)
	}

	delay := time.Duration(baseDelay)

	// A Retry-After hint never shortens the computed delay, and is
	// capped at MaxBackoff to avoid waiting indefinitely.
	if retryAfter > 0 {
		if retryAfter > delay {
			delay = retryAfter
		}
		if delay > config.MaxBackoff {
			delay = config.MaxBackoff
		}
	}

	jitter := time.Duration(rand.Int63n(101)) * time.Millisecond
	return delay + jitter
}

// extractRetryAfter reads the Retry-After header from the response
// attached to a transient error. Returns 0 if absent or malformed.
//
// Supports both formats:
//   - numeric: seconds to wait (e.g. "120")
//   - HTTP-date: absolute time (e.g. "Wed, 21 Oct 2015 07:28:00 GMT")
func extractRetryAfter(terr *Error) time.Duration {
	if terr.Response == nil {
		return 0
	}
	raw := terr.Response.Headers.Get("Retry-After")
	if raw == "" {
		return 0
	}

	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(seconds) * time.Second
	}

	retryTime, err := http.ParseTime(raw)
	if err != nil {
		return 0
	}
	delay := time.Until(retryTime)
	if delay < 0 {
		return 0
	}
	return delay
}

// pow calculates base^exp for integer exponents.
func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
