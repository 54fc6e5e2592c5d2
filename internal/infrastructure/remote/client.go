// Package remote talks to the storefront backend and the region directory.
// Every failure surfaces as a *shared.RemoteError naming the operation.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/storefront/checkout/internal/domain/shared"
	"github.com/storefront/checkout/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const tracerName = "github.com/storefront/checkout/internal/infrastructure/remote"

// ErrNoBaseURL is wrapped by every call of a client built without a base URL
var ErrNoBaseURL = errors.New("remote base URL is not configured")

// Config configures a Client
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	MaxDelay       time.Duration
	RateLimitQPS   float64 // 0 disables throttling
	RateLimitBurst int
	UserAgent      string
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics records every call on m
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTracer replaces the global tracer
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client is a JSON-over-HTTP client with retries, throttling, tracing and
// metrics. Only idempotent methods are retried.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
	limiter    *rate.Limiter
	tracer     trace.Tracer
	metrics    *telemetry.Metrics
	logger     *zap.Logger
}

// NewClient creates a Client. An empty BaseURL is accepted; calls then fail
// with a RemoteError wrapping ErrNoBaseURL.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 2 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	c := &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: cfg.Timeout,
		},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		maxDelay:   cfg.MaxDelay,
		tracer:     otel.Tracer(tracerName),
		logger:     zap.NewNop(),
	}
	if cfg.RateLimitQPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitQPS), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request describes one logical remote operation
type Request struct {
	Op     string // operation name used in errors, spans and metrics
	Method string
	Path   string
	Query  url.Values
	Token  string // sent as a bearer token when set
	Body   any
}

// Do executes req and decodes a successful JSON response into out (when out
// is non-nil and the body is non-empty).
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "remote."+req.Op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
		),
	)
	defer span.End()

	status, err := c.do(ctx, req, out)

	c.metrics.ObserveRemote(req.Op, status, err, time.Since(start))
	if status > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("Remote call failed",
			zap.String("op", req.Op),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return err
	}
	c.logger.Debug("Remote call completed",
		zap.String("op", req.Op),
		zap.Int("status", status),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (c *Client) do(ctx context.Context, req Request, out any) (int, error) {
	if c.baseURL == "" {
		return 0, shared.NewRemoteError(req.Op, 0, "", ErrNoBaseURL)
	}

	u, err := c.buildURL(req.Path, req.Query)
	if err != nil {
		return 0, shared.NewRemoteError(req.Op, 0, "", fmt.Errorf("building URL: %w", err))
	}

	var payload []byte
	if req.Body != nil {
		payload, err = json.Marshal(req.Body)
		if err != nil {
			return 0, shared.NewRemoteError(req.Op, 0, "", fmt.Errorf("marshaling request body: %w", err))
		}
	}

	retries := 0
	if idempotent(req.Method) {
		retries = c.maxRetries
	}

	var (
		status  int
		lastErr error
	)
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			c.metrics.IncRetry(req.Op)
			select {
			case <-ctx.Done():
				return status, shared.NewRemoteError(req.Op, status, "", ctx.Err())
			case <-time.After(c.backoff(attempt)):
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return status, shared.NewRemoteError(req.Op, status, "", err)
			}
		}

		var body []byte
		var retryable bool
		status, body, retryable, lastErr = c.attempt(ctx, req, u, payload)
		if lastErr == nil {
			if out != nil && len(bytes.TrimSpace(body)) > 0 {
				if err := json.Unmarshal(body, out); err != nil {
					return status, shared.NewRemoteError(req.Op, status, "", fmt.Errorf("decoding response: %w", err))
				}
			}
			return status, nil
		}
		if !retryable || ctx.Err() != nil {
			break
		}
	}
	return status, lastErr
}

// attempt performs a single round trip. The request body is rebuilt from
// payload on every attempt.
func (c *Client) attempt(ctx context.Context, req Request, u *url.URL, payload []byte) (status int, body []byte, retryable bool, err error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), reader)
	if err != nil {
		return 0, nil, false, shared.NewRemoteError(req.Op, 0, "", fmt.Errorf("creating HTTP request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, true, shared.NewRemoteError(req.Op, 0, "", err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, true, shared.NewRemoteError(req.Op, resp.StatusCode, "", fmt.Errorf("reading response body: %w", err))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		retryable = resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
		return resp.StatusCode, body, retryable, shared.NewRemoteError(req.Op, resp.StatusCode, serverMessage(body), nil)
	}
	return resp.StatusCode, body, false, nil
}

func (c *Client) buildURL(path string, query url.Values) (*url.URL, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// backoff doubles the delay per attempt up to maxDelay, with ±25% jitter
func (c *Client) backoff(attempt int) time.Duration {
	delay := float64(c.retryDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.maxDelay) {
		delay = float64(c.maxDelay)
	}
	jitter := delay * 0.25
	return time.Duration(delay + (rand.Float64()*2-1)*jitter)
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// serverMessage extracts a human readable message from an error body:
// {"message": "..."} or {"error": {"message": "..."}} or {"error": "..."}.
func serverMessage(body []byte) string {
	var envelope struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	if len(envelope.Error) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(envelope.Error, &s); err == nil {
		return s
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &nested); err == nil {
		return nested.Message
	}
	return ""
}
