package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"syscall"
	"time"
)

// ConnectionConfig configures a Connection.
type ConnectionConfig struct {
	// Endpoint is the remote API host (required)
	Endpoint Endpoint

	// Proxy is the optional forward proxy
	Proxy *ProxyConfig

	// Timeout bounds a single send, connect to close (default: 30s)
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate validation
	InsecureSkipVerify bool

	// RateLimiter gates sends when set
	RateLimiter RateLimiter
}

// Validate checks the configuration is valid.
func (c *ConnectionConfig) Validate() error {
	if err := c.Endpoint.Validate(); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	return nil
}

// Connection owns one persistent connection to an endpoint. It is
// created once per logical client and serves many sequential sends;
// each Send builds its wire request solely from its arguments, so no
// state leaks between calls. A single Connection is not synchronized
// for concurrent Send calls.
type Connection struct {
	endpoint Endpoint
	proxy    *ProxyConfig
	client   *http.Client
	limiter  RateLimiter
}

// NewConnection creates a Connection to the configured endpoint. The
// proxy, TLS mode, and rate limit are fixed here; the no-proxy bypass
// decision is re-evaluated on every send.
func NewConnection(cfg *ConnectionConfig) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	conn := &Connection{
		endpoint: cfg.Endpoint,
		proxy:    cfg.Proxy,
		limiter:  cfg.RateLimiter,
	}

	httpTransport := &http.Transport{
		// Evaluated per request so a no_proxy change between sends is
		// observed by the next send.
		Proxy:               conn.proxyFor,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if cfg.InsecureSkipVerify {
		httpTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	conn.client = &http.Client{
		Timeout:   timeout,
		Transport: httpTransport,
	}
	return conn, nil
}

// Endpoint returns the endpoint this connection is bound to.
func (c *Connection) Endpoint() Endpoint {
	return c.endpoint
}

func (c *Connection) proxyFor(req *http.Request) (*url.URL, error) {
	if c.proxy == nil || c.proxy.Host == "" {
		return nil, nil
	}
	if c.proxy.Bypasses(req.URL.Host) {
		return nil, nil
	}
	return c.proxy.URL(), nil
}

// Response is a received wire response. It is owned transiently by the
// caller; the body is fully read before Send returns.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Send transmits one request and blocks until a response or a
// transport-level failure. The path is normalized per Endpoint.GetPath;
// query strings in path are passed through untouched. Send returns the
// response for any HTTP status; classifying non-2xx statuses is the
// caller's concern.
func (c *Connection) Send(ctx context.Context, method, path string, headers map[string]string, body []byte) (*Response, error) {
	if method == "" {
		return nil, &Error{
			Type:      ErrorTypeInvalidReq,
			Message:   "method is required",
			Retryable: false,
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &Error{
				Type:      ErrorTypeCancelled,
				Message:   "rate limiter cancelled",
				Retryable: false,
				Cause:     err,
			}
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint.URL()+c.endpoint.GetPath(path), reader)
	if err != nil {
		return nil, &Error{
			Type:      ErrorTypeInvalidReq,
			Message:   fmt.Sprintf("failed to build request: %v", err),
			Retryable: false,
			Cause:     err,
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		terr := classifySendError(err)
		sendErrors.WithLabelValues(c.endpoint.Host, string(terr.Type)).Inc()
		return nil, terr
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		terr := &Error{
			Type:      ErrorTypeConnection,
			Message:   fmt.Sprintf("failed to read response body: %v", err),
			Retryable: true,
			Cause:     err,
		}
		sendErrors.WithLabelValues(c.endpoint.Host, string(terr.Type)).Inc()
		return nil, terr
	}

	sendsTotal.WithLabelValues(c.endpoint.Host, strconv.Itoa(resp.StatusCode)).Inc()
	sendDuration.WithLabelValues(c.endpoint.Host).Observe(time.Since(start).Seconds())

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}

// classifySendError maps a transport-level failure onto the error
// taxonomy. Context cancellation is terminal; timeouts and connection
// faults are marked retryable so an opted-in retry policy can reuse
// the attempt budget for them.
func classifySendError(err error) *Error {
	switch {
	case errors.Is(err, context.Canceled):
		return &Error{
			Type:      ErrorTypeCancelled,
			Message:   "request cancelled",
			Retryable: false,
			Cause:     err,
		}
	case isTimeoutError(err), errors.Is(err, context.DeadlineExceeded):
		return &Error{
			Type:      ErrorTypeTimeout,
			Message:   "request timeout",
			Retryable: true,
			Cause:     err,
		}
	case isConnectionError(err):
		return &Error{
			Type:      ErrorTypeConnection,
			Message:   "connection error",
			Retryable: true,
			Cause:     err,
		}
	default:
		return &Error{
			Type:      ErrorTypeConnection,
			Message:   fmt.Sprintf("send failed: %v", err),
			Retryable: true,
			Cause:     err,
		}
	}
}

func isTimeoutError(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
