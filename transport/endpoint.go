// Package transport owns the persistent connection to a query-style
// API endpoint: addressing, proxy selection, the send operation, the
// error taxonomy, and the retry engine.
//
// A Connection is created once per logical client and reused across
// many request/response cycles. It is safe for sequential reuse; a
// single instance is not synchronized for concurrent Send calls.
package transport

import (
	"fmt"
	"strings"
)

// Endpoint identifies the remote API host. It is immutable once a
// Connection is established: the scheme is derived from Secure and the
// port defaults to 443/80 when unset.
type Endpoint struct {
	// Host is the endpoint hostname (required)
	Host string

	// Port overrides the scheme default when non-zero
	Port int

	// Secure selects https when true, http otherwise
	Secure bool

	// BasePath is prefixed to every request path
	BasePath string
}

// Validate checks the endpoint is usable.
func (e Endpoint) Validate() error {
	if e.Host == "" {
		return fmt.Errorf("endpoint host is required")
	}
	if e.Port < 0 || e.Port > 65535 {
		return fmt.Errorf("endpoint port %d out of range", e.Port)
	}
	return nil
}

// Scheme returns "https" or "http" depending on Secure.
func (e Endpoint) Scheme() string {
	if e.Secure {
		return "https"
	}
	return "http"
}

func (e Endpoint) defaultPort() int {
	if e.Secure {
		return 443
	}
	return 80
}

// HostPort returns host[:port], including the port only when it
// differs from the scheme default.
func (e Endpoint) HostPort() string {
	if e.Port != 0 && e.Port != e.defaultPort() {
		return fmt.Sprintf("%s:%d", e.Host, e.Port)
	}
	return e.Host
}

// URL returns scheme://host[:port] without a path.
func (e Endpoint) URL() string {
	return e.Scheme() + "://" + e.HostPort()
}

// GetPath returns the wire path for p: BasePath is prefixed and at
// least one leading slash is guaranteed. No other slashes are
// collapsed or removed, so "folder//image.jpg" becomes
// "/folder//image.jpg" and "///folder////image.jpg" is left unchanged.
func (e Endpoint) GetPath(p string) string {
	base := strings.TrimSuffix(e.BasePath, "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return base + p
}
