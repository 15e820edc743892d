// client/go/locker-client/client.go
package lockerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avivl/locker/client/go/locker-client/backoff"
	"github.com/avivl/locker/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/avivl/locker/client/go/locker-client"

	opGet     = "get"
	opAcquire = "acquire"
	opRenew   = "renew"
	opRelease = "release"

	// Metric names recorded through the configured MetricsClient.
	MetricAttempts = "locker.client.attempts"
	MetricRetries  = "locker.client.retries"
	MetricResults  = "locker.client.results"

	maxBodySize = 1 << 20
)

// RequestHook is called with every outbound request before it is sent.
type RequestHook func(*http.Request)

// StrategyFactory builds the backoff policy for one acquire call.
type StrategyFactory func() backoff.Strategy

// Client talks to the locker service. It keeps no lock state of its own and
// is safe for concurrent use; each call carries its own retry bookkeeping.
type Client struct {
	config     Config
	http       *http.Client
	auth       *AuthTransport
	logger     *observability.SLogger
	metrics    observability.MetricsClient
	tracer     trace.Tracer
	retryDelay time.Duration
	strategy   StrategyFactory
	hooks      []RequestHook
	now        func() time.Time
}

// Option is a function that configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests. Its transport is
// wrapped with the authentication decorator; the caller's client is not modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *observability.SLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m observability.MetricsClient) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithRetryDelay sets the wait between acquire attempts for the default strategy.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithStrategy replaces the acquire backoff policy. The factory is called
// once per AcquireLock call.
func WithStrategy(f StrategyFactory) Option {
	return func(c *Client) {
		c.strategy = f
	}
}

// WithRequestHook registers a hook run against every outbound request.
func WithRequestHook(h RequestHook) Option {
	return func(c *Client) {
		if h != nil {
			c.hooks = append(c.hooks, h)
		}
	}
}

// WithClock sets the time source used for acquire deadlines.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a client. Missing credentials are rejected before any request is made.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", cfg.BaseURL, err)
	}

	c := &Client{
		config:     cfg,
		logger:     observability.NewNopLogger(),
		metrics:    observability.NoopMetrics{},
		tracer:     otel.Tracer(tracerName),
		retryDelay: DefaultRetryDelay,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	base := c.http
	if base == nil {
		base = &http.Client{Timeout: DefaultRequestTimeout}
	}
	c.auth = NewAuthTransport(cfg.Username, cfg.Password, base.Transport)
	hc := *base
	hc.Transport = c.auth
	c.http = &hc

	if c.strategy == nil {
		delay := c.retryDelay
		c.strategy = func() backoff.Strategy { return backoff.DefaultChain(delay) }
	}

	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.config }

// Params returns base_url, username and password, enough to build an equivalent client.
func (c *Client) Params() map[string]string { return c.config.Params() }

// Auth returns the authentication decorator attached to every request.
func (c *Client) Auth() *AuthTransport { return c.auth }

type acquireRequest struct {
	TTL     int    `json:"ttl"`
	Message string `json:"message"`
}

type renewRequest struct {
	OwnershipToken string `json:"uuid"`
	TTL            int    `json:"ttl"`
}

type releaseRequest struct {
	OwnershipToken *string `json:"uuid"`
	Force          bool    `json:"force"`
}

// GetLock fetches the current state of a lock.
func (c *Client) GetLock(ctx context.Context, lockID string) (*Lock, error) {
	ctx, span := c.startSpan(ctx, opGet, lockID)
	defer span.End()
	start := time.Now()

	lock, status, err := c.send(ctx, opGet, http.MethodGet, lockID, nil)
	if err != nil && status == http.StatusNotFound {
		err = &LockNotFoundError{LockID: lockID}
	}

	return c.finish(ctx, span, opGet, lockID, start, lock, err)
}

// AcquireLock asks for the lock with the given lease length in seconds.
// While the lock is held elsewhere (or the server answers 500/503) the call
// keeps retrying until timeout has elapsed since the first attempt. A timeout
// of zero or less makes exactly one attempt.
func (c *Client) AcquireLock(ctx context.Context, lockID string, ttl int, message string, timeout time.Duration) (*Lock, error) {
	ctx, span := c.startSpan(ctx, opAcquire, lockID,
		attribute.Int("lock.ttl", ttl),
		attribute.Float64("lock.timeout_seconds", timeout.Seconds()),
	)
	defer span.End()
	start := time.Now()

	payload := acquireRequest{TTL: ttl, Message: message}
	deadline := c.now().Add(timeout)
	strategy := c.strategy()

	var (
		lock   *Lock
		status int
		err    error
	)
	for retries := 0; ; retries++ {
		lock, status, err = c.send(ctx, opAcquire, http.MethodPost, lockID, payload)
		if err == nil || timeout <= 0 {
			break
		}

		decision := strategy.Decide(backoff.Attempt{
			Retries:    retries,
			StatusCode: status,
			Err:        err,
			Deadline:   deadline,
			Now:        c.now(),
		})
		if decision.Action != backoff.Retry {
			c.logger.DebugCtx(ctx, "acquire stopped retrying",
				"lock_id", lockID, "status", status, "retries", retries, "decision", decision.String())
			break
		}

		c.logger.InfoCtx(ctx, "lock unavailable, retrying",
			"lock_id", lockID, "status", status, "retry", retries+1, "delay", decision.Delay.String())
		c.metrics.Increment(ctx, MetricRetries, 1, "operation", opAcquire, "status", strconv.Itoa(status))
		span.AddEvent("retry", trace.WithAttributes(
			attribute.Int("http.status_code", status),
			attribute.Int64("delay_ms", decision.Delay.Milliseconds()),
		))

		if werr := backoff.Wait(ctx, decision.Delay); werr != nil {
			err, status = werr, 0
			break
		}
	}

	if err != nil && status == http.StatusConflict {
		err = &LockAcquireTimeoutError{LockID: lockID, Timeout: timeout}
	}

	return c.finish(ctx, span, opAcquire, lockID, start, lock, err)
}

// AcquireLockDefault is AcquireLock with DefaultAcquireTimeout.
func (c *Client) AcquireLockDefault(ctx context.Context, lockID string, ttl int, message string) (*Lock, error) {
	return c.AcquireLock(ctx, lockID, ttl, message, DefaultAcquireTimeout)
}

// RenewLock extends the lease of a lock owned through token. It never retries.
func (c *Client) RenewLock(ctx context.Context, lockID, token string, ttl int) (*Lock, error) {
	ctx, span := c.startSpan(ctx, opRenew, lockID, attribute.Int("lock.ttl", ttl))
	defer span.End()
	start := time.Now()

	payload := renewRequest{OwnershipToken: token, TTL: ttl}
	lock, status, err := c.send(ctx, opRenew, http.MethodPut, lockID, payload)
	if err != nil && status == http.StatusConflict {
		err = &OwnershipMismatchError{LockID: lockID, Message: "Lock UUID mismatch."}
	}

	return c.finish(ctx, span, opRenew, lockID, start, lock, err)
}

// ReleaseLock gives the lock up. An empty token is sent as null; force
// releases the lock whoever holds it. It never retries.
func (c *Client) ReleaseLock(ctx context.Context, lockID, token string, force bool) (*Lock, error) {
	ctx, span := c.startSpan(ctx, opRelease, lockID, attribute.Bool("lock.force", force))
	defer span.End()
	start := time.Now()

	payload := releaseRequest{Force: force}
	if token != "" {
		payload.OwnershipToken = &token
	}

	lock, status, err := c.send(ctx, opRelease, http.MethodDelete, lockID, payload)
	if err != nil && status == http.StatusConflict {
		err = &OwnershipMismatchError{LockID: lockID, Message: "Lock UUID mismatch or Lock not found."}
	}

	return c.finish(ctx, span, opRelease, lockID, start, lock, err)
}

// LockURL returns the resource URL for lockID.
func (c *Client) LockURL(lockID string) string {
	return c.config.BaseURL + strings.TrimRight(c.config.BasePath, "/") + "/" + url.PathEscape(lockID) + ".json"
}

// send performs one HTTP attempt. It returns the status code alongside any
// error so callers can remap conflicts; a zero status means no response.
func (c *Client) send(ctx context.Context, op, method, lockID string, payload any) (*Lock, int, error) {
	u := c.LockURL(lockID)

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("encoding %s request for lock %q: %w", op, lockID, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, 0, err
	}
	for _, hook := range c.hooks {
		hook(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.Increment(ctx, MetricAttempts, 1, "operation", op, "status", "error")
		c.logger.DebugCtx(ctx, "request failed", "operation", op, "lock_id", lockID, "error", err)
		return nil, 0, err
	}
	defer resp.Body.Close()

	c.metrics.Increment(ctx, MetricAttempts, 1, "operation", op, "status", strconv.Itoa(resp.StatusCode))
	c.logger.DebugCtx(ctx, "request completed",
		"operation", op, "method", method, "url", u, "status", resp.StatusCode)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading %s response for lock %q: %w", op, lockID, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, &StatusError{
			Method:     method,
			URL:        u,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	lock, err := NewLock(lockID, raw)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return lock, resp.StatusCode, nil
}

func (c *Client) startSpan(ctx context.Context, op, lockID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{attribute.String("lock.id", lockID)}, attrs...)
	return c.tracer.Start(ctx, "locker."+op, trace.WithAttributes(attrs...), trace.WithSpanKind(trace.SpanKindClient))
}

// finish records the outcome of an operation. It never returns a lock together with an error.
func (c *Client) finish(ctx context.Context, span trace.Span, op, lockID string, start time.Time, lock *Lock, err error) (*Lock, error) {
	result := resultLabel(err)

	c.metrics.Increment(ctx, MetricResults, 1, "operation", op, "result", result)
	if lerr := c.metrics.RecordLatency(ctx, time.Since(start), "operation", op, "result", result); lerr != nil {
		c.logger.ErrorCtx(ctx, lerr)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		c.logger.WarnCtx(ctx, "lock operation failed", "operation", op, "lock_id", lockID, "error", err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	c.logger.DebugCtx(ctx, "lock operation succeeded", "operation", op, "lock_id", lockID, "status", string(lock.Status()))
	return lock, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAcquireTimeout):
		return "timeout"
	case errors.Is(err, ErrOwnershipMismatch):
		return "mismatch"
	case errors.Is(err, ErrLockNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case StatusCode(err) != 0:
		return "status_" + strconv.Itoa(StatusCode(err))
	default:
		return "error"
	}
}
