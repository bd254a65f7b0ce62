package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/adpulse/dashcore/internal/metrics"
)

// TokenProvider supplies a short-lived bearer credential. The provider owns
// refresh; the client reads a fresh token on every attempt and never caches
// one across attempts.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenProviderFunc adapts a function to the TokenProvider interface.
type TokenProviderFunc func(ctx context.Context) (string, error)

func (f TokenProviderFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// Request describes one logical outbound request. It is immutable per
// attempt; an automatic retry re-sends the same logical request.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Auth    bool          // attach credentials when true
	Timeout time.Duration // per-attempt timeout, falls back to the client default
}

// Response is a successful (2xx) reply.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Config holds client settings.
type Config struct {
	BaseURL        string
	Timeout        time.Duration // default per-attempt timeout
	MaxRetries     int           // automatic 502/503 retries per logical request
	RetryBaseDelay time.Duration // first retry delay, doubled per retry
}

// Client executes requests against the dashboard backend with per-attempt
// credential attachment, timeouts, and bounded automatic retry of 502/503.
// Multiple logical requests may run concurrently; each carries its own
// retry state.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenProvider
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
	log        *slog.Logger
}

// NewClient creates a request client. tokens may be nil if no request ever
// sets Auth.
func NewClient(cfg Config, tokens TokenProvider) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBaseDelay == 0 {
		cfg.RetryBaseDelay = 200 * time.Millisecond
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		tokens:     tokens,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.RetryBaseDelay,
		log:        slog.Default(),
	}
}

// Send executes the request. 502/503 failures are retried automatically with
// deterministic exponential backoff (base, 2*base, 4*base); at most
// maxRetries retries per logical request. Any other failure, and exhausted
// retries, surface as a classified *Error.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	corrID := uuid.NewString()

	for retries := 0; ; retries++ {
		resp, err := c.attempt(ctx, req, corrID)
		if err == nil {
			return resp, nil
		}

		apiErr, ok := err.(*Error)
		if !ok {
			apiErr = &Error{Kind: KindUnknown, CorrelationID: corrID, Message: err.Error(), Err: err}
		}
		metrics.RequestFailures.WithLabelValues(string(apiErr.Kind)).Inc()

		// AUTH is never retried automatically; everything outside the
		// 502/503 transport window propagates with zero delay.
		if apiErr.Kind == KindAuth || !apiErr.TransportRetry() || retries >= c.maxRetries {
			return nil, apiErr
		}

		delay := c.backoff(retries)
		c.log.Debug("retrying request",
			"method", req.Method,
			"path", req.Path,
			"status", apiErr.Status,
			"retry", retries+1,
			"delay", delay,
			"correlation_id", corrID,
		)
		metrics.RequestRetries.Inc()

		select {
		case <-ctx.Done():
			return nil, &Error{
				Kind:          Classify(Failure{Err: ctx.Err()}),
				CorrelationID: corrID,
				Message:       ctx.Err().Error(),
				Err:           ctx.Err(),
			}
		case <-time.After(delay):
		}
	}
}

// backoff returns the delay before retry n (0-based): base, 2*base, 4*base...
// No jitter, so retry timing is deterministic.
func (c *Client) backoff(retry int) time.Duration {
	return c.baseDelay * time.Duration(1<<retry)
}

func (c *Client) attempt(ctx context.Context, req Request, corrID string) (*Response, error) {
	start := time.Now()
	metrics.RequestsTotal.WithLabelValues(req.Method, req.Path).Inc()

	u, err := url.Parse(c.baseURL + req.Path)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, CorrelationID: corrID, Message: "invalid url", Err: err}
	}
	q := u.Query()
	for k, vs := range req.Query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}

	var token string
	if req.Auth {
		token, err = c.tokens.Token(ctx)
		if err != nil {
			return nil, &Error{
				Kind:          KindAuth,
				CorrelationID: corrID,
				Message:       "credential fetch failed",
				Err:           err,
			}
		}
		// Legacy backends read the token from the query string.
		q.Set("id_token", token)
	}
	u.RawQuery = q.Encode()

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, &Error{Kind: KindUnknown, CorrelationID: corrID, Message: "marshal request", Err: err}
		}
		body = bytes.NewReader(data)
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = c.timeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, u.String(), body)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, CorrelationID: corrID, Message: "create request", Err: err}
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Auth {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	httpReq.Header.Set("X-Correlation-ID", corrID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		kind := Classify(Failure{Err: err})
		return nil, &Error{Kind: kind, CorrelationID: corrID, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, CorrelationID: corrID, Message: "read response", Err: err}
	}

	metrics.RequestLatency.WithLabelValues(req.Method, req.Path).Observe(time.Since(start).Seconds())

	if resp.StatusCode >= 400 {
		kind := Classify(Failure{Status: resp.StatusCode})
		apiErr := &Error{
			Kind:          kind,
			Status:        resp.StatusCode,
			CorrelationID: corrID,
			Message:       string(data),
		}
		if kind == KindRateLimit {
			apiErr.RetryAfter = retryAfter(resp.Header, kind.FixedDelay())
		}
		return nil, apiErr
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// retryAfter parses a Retry-After header in seconds, falling back to the
// kind's fixed delay.
func retryAfter(h http.Header, fallback time.Duration) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}
