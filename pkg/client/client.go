// Package client is the thin HTTP layer between the portal components and the
// remote REST API. Every call goes through the circuit breaker, is tagged with
// a request id, is measured, and carries the session's bearer token when asked to.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"opensacco-client/pkg/logging"
	"opensacco-client/pkg/metrics"
	"opensacco-client/pkg/portal"
	"opensacco-client/pkg/resilience"
	"opensacco-client/pkg/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 32 << 20

// Config configures the API client.
type Config struct {
	// BaseURL is the API root, e.g. "http://localhost:8000".
	BaseURL string

	// UserAgent is sent with every request.
	UserAgent string

	// Resilience configures the breaker and per-request timeout.
	Resilience resilience.ResilientConfig
}

// DefaultConfig returns a configuration pointing at a local API.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:8000",
		UserAgent:  "opensacco-client",
		Resilience: resilience.DefaultResilientConfig(),
	}
}

// Client issues requests against the portal API.
type Client struct {
	base      *url.URL
	http      *http.Client
	session   *session.Session
	breaker   *resilience.Breaker
	metrics   metrics.MetricsCollector
	logger    *logging.Logger
	userAgent string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.MetricsCollector) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client. sess may be nil for components that never authenticate.
func New(config Config, sess *session.Session, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("client: base url %q must be http or https", config.BaseURL)
	}

	c := &Client{
		base:      base,
		http:      &http.Client{},
		session:   sess,
		metrics:   metrics.NoOpCollector{},
		logger:    logging.Global().Named("client"),
		userAgent: config.UserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = resilience.NewBreakerWithMetrics("portal-api", config.Resilience, c.metrics)

	return c, nil
}

// Session returns the injected session, possibly nil.
func (c *Client) Session() *session.Session {
	return c.session
}

// Breaker returns the client's circuit breaker.
func (c *Client) Breaker() *resilience.Breaker {
	return c.breaker
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Auth selects how a request is authenticated.
type Auth int

const (
	// AuthNone sends no Authorization header.
	AuthNone Auth = iota
	// AuthOptional sends the bearer token if one is stored.
	AuthOptional
	// AuthRequired fails with portal.ErrNotAuthenticated before any network
	// call when no token is stored.
	AuthRequired
)

// Request describes a single API call.
type Request struct {
	Method string
	// Path is joined onto the base URL. It must already be escaped.
	Path string
	// Route is the metrics/log label; defaults to Path. Use it to keep
	// secrets such as reset tokens out of labels.
	Route string
	// JSON is encoded as the request body when non-nil.
	JSON interface{}
	// Body and ContentType are used when JSON is nil.
	Body        []byte
	ContentType string
	Auth        Auth
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsJSON reports whether the response declares a JSON content type.
func (r *Response) IsJSON() bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// DecodeJSON decodes the body into v.
func (r *Response) DecodeJSON(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: decode body: %v", portal.ErrUnexpectedContent, err)
	}
	return nil
}

func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.base.String() + path
}

// Do executes req. A non-2xx response is returned together with a
// *portal.StatusError so callers can inspect the body.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	route := req.Route
	if route == "" {
		route = req.Path
	}
	requestID := uuid.NewString()
	logger := c.logger.With(
		zap.String("method", req.Method),
		zap.String("route", route),
		zap.String("request_id", requestID),
	)

	body := req.Body
	contentType := req.ContentType
	if req.JSON != nil {
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("client: encode %s body: %w", route, err)
		}
		body = data
		contentType = "application/json"
	}

	var bearer string
	if req.Auth != AuthNone && c.session != nil {
		token, err := c.session.AccessToken(ctx)
		switch {
		case err == nil:
			bearer = token
		case req.Auth == AuthRequired:
			return nil, err
		case !portal.IsNotAuthenticated(err):
			logger.Warn("reading access token failed", zap.Error(err))
		}
	} else if req.Auth == AuthRequired {
		return nil, portal.ErrNotAuthenticated
	}

	start := time.Now()
	var resp *Response
	err := c.breaker.Execute(ctx, req.Method+" "+route, func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.url(req.Path), bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("client: build request: %w", err)
		}
		if contentType != "" {
			httpReq.Header.Set("Content-Type", contentType)
		}
		httpReq.Header.Set("Accept", "application/json")
		httpReq.Header.Set("X-Request-ID", requestID)
		if c.userAgent != "" {
			httpReq.Header.Set("User-Agent", c.userAgent)
		}
		if bearer != "" {
			httpReq.Header.Set("Authorization", "Bearer "+bearer)
		}

		httpResp, err := c.http.Do(httpReq)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return ctxErr
			}
			return fmt.Errorf("%w: %v", portal.ErrTransport, err)
		}
		defer httpResp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
		if err != nil {
			return fmt.Errorf("%w: read body: %v", portal.ErrTransport, err)
		}

		resp = &Response{
			StatusCode: httpResp.StatusCode,
			Header:     httpResp.Header,
			Body:       data,
		}
		if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
			return &portal.StatusError{
				Method:     req.Method,
				Route:      route,
				StatusCode: httpResp.StatusCode,
				Body:       data,
			}
		}
		return nil
	})
	duration := time.Since(start)

	if resp != nil {
		c.metrics.RecordRequest(route, req.Method, resp.StatusCode, duration)
	}
	if err != nil {
		c.metrics.RecordRequestError(route, req.Method, portal.ClassifyError(err))
		if errors.Is(err, context.Canceled) {
			logger.Debug("request cancelled", zap.Duration("duration", duration))
		} else {
			logger.Warn("request failed", zap.Duration("duration", duration), zap.Error(err))
		}
		return resp, err
	}

	logger.Debug("request completed",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration),
		zap.Int("bytes", len(resp.Body)),
	)
	return resp, nil
}

// Get issues a GET for path.
func (c *Client) Get(ctx context.Context, path string, auth Auth) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Auth: auth})
}

// PostJSON posts payload as JSON.
func (c *Client) PostJSON(ctx context.Context, path, route string, payload interface{}) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Route: route, JSON: payload})
}
