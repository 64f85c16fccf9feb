package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/billingkit/pkg/logger"
)

// maxResponseBytes caps how much of a provider response is read into memory.
const maxResponseBytes = 1 << 20 // 1MB

// Client talks to the PayPal REST API with a cached bearer token, idempotency
// keys and bounded retries. It is safe for concurrent use; the token cache is
// the only mutable state and is guarded by its own mutex.
type Client struct {
	cfg     Config
	base    string
	http    *http.Client
	backoff BackoffStrategy
	log     *slog.Logger
	tokens  tokenCache
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, e.g. for custom
// transports or proxies. Per-attempt timeouts are applied via context, so the
// supplied client should not set its own Timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithBackoff overrides the retry delay strategy.
func WithBackoff(b BackoffStrategy) Option {
	return func(c *Client) {
		if b != nil {
			c.backoff = b
		}
	}
}

// WithLogger sets the logger used for retry and verification diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a PayPal API client from the given configuration.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	c := &Client{
		cfg:  cfg,
		base: cfg.apiBaseURL(),
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		backoff: defaultBackoff(),
		log:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// providerError is the error document PayPal returns on 4xx responses.
type providerError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	DebugID string `json:"debug_id"`
}

// do executes one logical API call. A single idempotency key is minted per
// call and reused across every retry, so the provider can deduplicate
// side-effecting requests that were actually delivered more than once.
//
// Outcome classification:
//   - 2xx: success, response decoded into out when non-nil; an undecodable
//     success body is ErrMalformedResponse, surfaced without retry
//   - 401: token invalidated and the call retried once with a fresh token,
//     not counted against the retry budget; a second 401 fails as ErrAuthFailed
//   - other 4xx: *RejectedError, surfaced immediately
//   - 5xx or transport failure: retried with exponential backoff until the
//     budget is spent, then *UnavailableError
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("paypal: encode request body: %w", err)
		}
	}

	idempotencyKey := uuid.NewString()

	var (
		lastStatus  int
		lastErr     error
		authRetried bool
		attempt     int
	)

	for attempt < c.cfg.MaxRetries {
		if attempt > 0 {
			delay := c.backoff.NextInterval(attempt)
			c.log.WarnContext(ctx, "retrying provider request",
				logger.Component("paypal"),
				logger.Attempt(attempt+1),
				logger.StatusCode(lastStatus),
				logger.Duration(delay),
				slog.String("path", path))
			select {
			case <-ctx.Done():
				// The caller gave up; no retry is issued past cancellation.
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		status, err := c.attempt(ctx, method, path, payload, idempotencyKey, out)

		switch {
		case err == nil:
			return nil

		case errors.Is(err, ErrAuthFailed), errors.Is(err, ErrMalformedResponse):
			return err

		case status == http.StatusUnauthorized:
			if authRetried {
				return fmt.Errorf("%w: provider rejected a freshly minted token", ErrAuthFailed)
			}
			// A stale token is not a failed attempt; refresh and go again
			// without touching the retry budget.
			authRetried = true
			c.invalidateToken()
			continue

		case status >= 400 && status < 500:
			return err

		default:
			// 5xx or transport failure.
			lastStatus, lastErr = status, err
			attempt++
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return &UnavailableError{LastStatus: lastStatus, LastErr: lastErr}
}

// attempt performs one network round trip. The returned status is zero when
// no response was received.
func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, idempotencyKey string, out any) (int, error) {
	token, err := c.token(ctx)
	if err != nil {
		return 0, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, c.base+path, bodyReader)
	if err != nil {
		return 0, fmt.Errorf("paypal: build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("PayPal-Request-Id", idempotencyKey)
	req.Header.Set("Prefer", "return=representation")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("paypal: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("paypal: read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out != nil && len(raw) > 0 {
			if err := json.Unmarshal(raw, out); err != nil {
				return resp.StatusCode, fmt.Errorf("%w: status %d: %v",
					ErrMalformedResponse, resp.StatusCode, err)
			}
		}
		return resp.StatusCode, nil

	case resp.StatusCode == http.StatusUnauthorized:
		return resp.StatusCode, fmt.Errorf("paypal: %s %s: unauthorized", method, path)

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var pe providerError
		_ = json.Unmarshal(raw, &pe)
		return resp.StatusCode, &RejectedError{
			Status:  resp.StatusCode,
			Name:    pe.Name,
			Message: pe.Message,
			DebugID: pe.DebugID,
		}

	default:
		return resp.StatusCode, fmt.Errorf("paypal: %s %s: server error status %d", method, path, resp.StatusCode)
	}
}
