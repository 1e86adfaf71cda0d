// Package client orchestrates signed query-API calls: it serializes
// parameters, signs the request, sends it over a reused transport
// connection, retries transient server failures with backoff, and
// decodes structured error and status responses.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sigquery/sigquery/internal/log"
	"github.com/sigquery/sigquery/query"
	"github.com/sigquery/sigquery/sign"
	"github.com/sigquery/sigquery/transport"
)

// Config assembles a Client. Endpoint and APIVersion are required;
// everything else has defaults.
type Config struct {
	// Endpoint is the remote API host (required)
	Endpoint transport.Endpoint

	// Proxy is the optional forward proxy
	Proxy *transport.ProxyConfig

	// Credentials is the opaque secret material handed to the signer
	Credentials sign.Credentials

	// APIVersion is sent as the implicit Version parameter (required)
	APIVersion string

	// Signer attaches authentication material (default: v2)
	Signer sign.Signer

	// Retry is the transient-failure policy (default: DefaultRetryConfig)
	Retry *transport.RetryConfig

	// Timeout bounds a single send (default: 30s)
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate validation
	InsecureSkipVerify bool

	// RateLimiter gates sends when set
	RateLimiter transport.RateLimiter

	// ClientToken adds a uuid ClientToken parameter to every logical
	// request, held stable across its retries
	ClientToken bool

	// Logger receives structured request/retry logs (default: discards
	// nothing, uses slog.Default)
	Logger *slog.Logger
}

// Validate checks the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Endpoint.Validate(); err != nil {
		return err
	}
	if c.APIVersion == "" {
		return fmt.Errorf("api version is required")
	}
	if c.Retry != nil {
		if err := c.Retry.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Client executes signed requests against one endpoint. It holds one
// transport connection for its lifetime and reuses it across calls.
// A Client is safe for sequential use; wrap calls in external
// synchronization to share one instance across goroutines.
type Client struct {
	conn        *transport.Connection
	signer      sign.Signer
	creds       sign.Credentials
	apiVersion  string
	retry       *transport.RetryConfig
	clientToken bool
	logger      *slog.Logger
	tracer      trace.Tracer
}

// New creates a Client and establishes its connection configuration.
func New(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	conn, err := transport.NewConnection(&transport.ConnectionConfig{
		Endpoint:           cfg.Endpoint,
		Proxy:              cfg.Proxy,
		Timeout:            cfg.Timeout,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		RateLimiter:        cfg.RateLimiter,
	})
	if err != nil {
		return nil, err
	}

	signer := cfg.Signer
	if signer == nil {
		signer = &sign.V2Signer{}
	}
	retry := cfg.Retry
	if retry == nil {
		retry = transport.DefaultRetryConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		conn:        conn,
		signer:      signer,
		creds:       cfg.Credentials,
		apiVersion:  cfg.APIVersion,
		retry:       retry,
		clientToken: cfg.ClientToken,
		logger:      logger,
		tracer:      otel.Tracer("github.com/sigquery/sigquery/client"),
	}, nil
}

// Connection returns the underlying transport connection.
func (c *Client) Connection() *transport.Connection {
	return c.conn
}

// MakeRequest executes one logical request: serialize params with the
// implicit Action and Version, sign, send, classify, and retry
// transient server errors on the same connection. Retries are
// invisible to the caller beyond latency; the final outcome is
// returned. For non-2xx terminal statuses the received response is
// returned alongside the decoded typed error.
func (c *Client) MakeRequest(ctx context.Context, action string, params query.Tree, path, method string) (*transport.Response, error) {
	ctx, span := c.tracer.Start(ctx, "client.MakeRequest",
		trace.WithAttributes(
			attribute.String("rpc.method", action),
			attribute.String("http.method", method),
		))
	defer span.End()

	start := time.Now()

	flat, err := query.Flatten(params)
	if err != nil {
		serr := &transport.Error{
			Type:      transport.ErrorTypeSerialization,
			Message:   err.Error(),
			Retryable: false,
			Cause:     err,
		}
		span.SetStatus(codes.Error, serr.Message)
		return nil, serr
	}
	flat["Action"] = action
	flat["Version"] = c.apiVersion
	if c.clientToken {
		// One token per logical request, stable across its retries.
		flat["ClientToken"] = uuid.NewString()
	}

	attempts := 0
	resp, err := transport.Execute(ctx, c.retry, func(ctx context.Context) (*transport.Response, error) {
		attempts++
		return c.attempt(ctx, flat, path, method, attempts)
	})

	elapsed := time.Since(start)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}

	if err != nil {
		var terr *transport.Error
		if errors.As(err, &terr) {
			span.RecordError(err)
			span.SetStatus(codes.Error, terr.Message)
			if terr.StatusCode != 0 {
				status = terr.StatusCode
			}
			requestsTotal.WithLabelValues(action, strconv.Itoa(status)).Inc()
			c.logger.ErrorContext(ctx, "request failed",
				log.ActionKey, action,
				log.HostKey, c.conn.Endpoint().Host,
				log.StatusKey, status,
				log.AttemptKey, attempts,
				log.DurationKey, elapsed.Milliseconds(),
				log.ErrorKey, err)
			// The last received response travels with the error so the
			// caller keeps access to the raw body.
			return terr.Response, err
		}
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.status_code", status))
	requestsTotal.WithLabelValues(action, strconv.Itoa(status)).Inc()
	c.logger.DebugContext(ctx, "request complete",
		log.ActionKey, action,
		log.HostKey, c.conn.Endpoint().Host,
		log.StatusKey, status,
		log.AttemptKey, attempts,
		log.DurationKey, elapsed.Milliseconds())
	return resp, nil
}

// attempt performs one signed send. The flat parameter set is copied
// per attempt so one attempt's signature never leaks into the next.
func (c *Client) attempt(ctx context.Context, flat map[string]string, path, method string, attempt int) (*transport.Response, error) {
	params := make(map[string]string, len(flat)+8)
	for k, v := range flat {
		params[k] = v
	}

	wirePath := c.conn.Endpoint().GetPath(path)
	inQuery := method == http.MethodGet || method == http.MethodHead

	signReq := &sign.Request{
		Method:        method,
		Host:          c.conn.Endpoint().HostPort(),
		Path:          wirePath,
		Params:        params,
		ParamsInQuery: inQuery,
		Headers:       map[string]string{},
		Time:          time.Now(),
	}
	if err := c.signer.Sign(ctx, signReq, c.creds); err != nil {
		return nil, &transport.Error{
			Type:      transport.ErrorTypeAuth,
			Message:   fmt.Sprintf("signing failed: %v", err),
			Retryable: false,
			Cause:     err,
		}
	}

	encoded := query.Encode(signReq.Params)
	var body []byte
	sendPath := path
	if inQuery {
		sendPath = path + "?" + encoded
	} else {
		body = []byte(encoded)
		if _, ok := signReq.Headers["Content-Type"]; !ok {
			signReq.Headers["Content-Type"] = "application/x-www-form-urlencoded; charset=utf-8"
		}
	}

	if attempt > 1 {
		c.logger.InfoContext(ctx, "retrying request",
			log.HostKey, c.conn.Endpoint().Host,
			log.AttemptKey, attempt)
	}

	resp, err := c.conn.Send(ctx, method, sendPath, signReq.Headers, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 400 {
		return resp, nil
	}

	serr := DecodeError(resp)
	serr.Retryable = c.retry.IsRetryable(resp.StatusCode)
	return nil, serr
}

// GetStatus executes a GET status flow and decodes the small XML
// status document the endpoint returns. An empty or unparseable body
// on a success status is an error, never an empty success.
func (c *Client) GetStatus(ctx context.Context, action string, params query.Tree, path string) (string, error) {
	resp, err := c.MakeRequest(ctx, action, params, path, http.MethodGet)
	if err != nil {
		return "", err
	}
	return DecodeStatus(resp)
}
