// Package client holds the gateways to external data providers. Every public
// call returns a Result; transport and provider failures never escape as
// panics or bare errors.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/kjstillabower/agri-advisor/internal/circuitbreaker"
	"github.com/kjstillabower/agri-advisor/internal/observability"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidAPIKey     = errors.New("invalid API key")
	ErrNotFound          = errors.New("not found")
	ErrUpstreamFailure   = errors.New("upstream failure")
	ErrRateLimited       = errors.New("rate limited")
	ErrRequestRejected   = errors.New("request rejected")
	ErrParse             = errors.New("parse response")
)

// Config is the explicit per-gateway configuration. A gateway constructed
// with an empty APIKey still works; its calls report KindConfig.
type Config struct {
	APIKey         string
	BaseURL        string
	Timeout        time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	Breaker        *circuitbreaker.CircuitBreaker
	HTTPClient     *http.Client
}

func (c Config) withDefaults(baseURL string) Config {
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 1
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 100 * time.Millisecond
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = 2 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	return c
}

// transport performs GET requests with per-attempt timeout, retry and
// circuit breaking, and records gateway metrics.
type transport struct {
	gateway string
	cfg     Config
}

func newTransport(gateway string, cfg Config) *transport {
	return &transport{gateway: gateway, cfg: cfg}
}

// get returns the body of a 2xx response.
func (t *transport) get(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte
	err := t.cfg.Breaker.Call(ctx, func(ctx context.Context) error {
		return retry.Do(
			func() error {
				b, err := t.attempt(ctx, rawURL)
				if err != nil {
					return err
				}
				body = b
				return nil
			},
			retry.Context(ctx),
			retry.Attempts(uint(t.cfg.RetryAttempts)),
			retry.Delay(t.cfg.RetryBaseDelay),
			retry.MaxDelay(t.cfg.RetryMaxDelay),
			retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
			retry.MaxJitter(t.cfg.RetryBaseDelay/10+time.Millisecond),
			retry.RetryIf(isRetryable),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				observability.GatewayRetriesTotal.WithLabelValues(t.gateway).Inc()
				observability.LoggerFromContext(ctx, nil).Debug("gateway retry",
					zap.String("gateway", t.gateway), zap.Uint("attempt", n+1), zap.Error(err))
			}),
		)
	})
	return body, err
}

func (t *transport) attempt(ctx context.Context, rawURL string) ([]byte, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := t.cfg.HTTPClient.Do(req)
	if err != nil {
		t.observe("error", start)
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
			(errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	t.observe(statusLabel(resp.StatusCode), start)

	if err := statusError(resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

func (t *transport) observe(status string, start time.Time) {
	observability.GatewayCallsTotal.WithLabelValues(t.gateway, status).Inc()
	observability.GatewayDuration.WithLabelValues(t.gateway, status).Observe(time.Since(start).Seconds())
}

// statusError maps non-2xx statuses to sentinel errors. The message keeps
// the HTTP status for the error marker.
func statusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ErrInvalidAPIKey, code)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: HTTP %d", ErrNotFound, code)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", ErrRateLimited, code)
	case code >= 400 && code < 500:
		return fmt.Errorf("%w: HTTP %d", ErrRequestRejected, code)
	default:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, code)
	}
}

// BreakerFailure reports whether err should count against a gateway circuit
// breaker. Caller mistakes (unknown city, bad key) do not.
func BreakerFailure(err error) bool {
	return isRetryable(err)
}

func isRetryable(err error) bool {
	switch CategorizeError(err) {
	case KindRateLimited, KindUpstream, KindTimeout, KindTransport:
		return true
	}
	return false
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
