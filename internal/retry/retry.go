// Package retry builds HTTP clients that retry transport failures with a
// per-attempt timeout and exponential backoff
package retry

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	httpretry "github.com/appleboy/go-httpretry"
)

// Defaults used by token exchange
const (
	DefaultAttempts  = 3
	DefaultTimeout   = 15 * time.Second
	DefaultBaseDelay = time.Second
	DefaultMaxDelay  = 10 * time.Second
)

// Policy controls how requests are retried
type Policy struct {
	MaxAttempts int
	Timeout     time.Duration
	BaseDelay   time.Duration
}

// DefaultPolicy returns the 3 attempts / 15s / 1s policy
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultAttempts,
		Timeout:     DefaultTimeout,
		BaseDelay:   DefaultBaseDelay,
	}
}

// Backoff returns the wait after the given zero-based failed attempt
func (p Policy) Backoff(attempt int) time.Duration {
	return p.BaseDelay << attempt
}

// Client is a retrying HTTP client for one policy
type Client struct {
	rc *httpretry.Client
}

// NewClient wraps hc so that each attempt is bounded by p.Timeout and only
// transport failures are retried. HTTP responses of any status are returned
// to the caller on the first attempt.
func NewClient(p Policy, hc *http.Client, logger *slog.Logger) (*Client, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.BaseDelay
	if delay <= 0 {
		delay = DefaultBaseDelay
	}

	bounded := *hc
	if p.Timeout > 0 {
		bounded.Timeout = p.Timeout
	}

	maxDelay := DefaultMaxDelay
	if d := delay << (attempts - 1); d > maxDelay {
		maxDelay = d
	}

	rc, err := httpretry.NewClient(
		httpretry.WithHTTPClient(&bounded),
		httpretry.WithMaxRetries(attempts-1),
		httpretry.WithInitialRetryDelay(delay),
		httpretry.WithRetryDelayMultiple(2),
		httpretry.WithMaxRetryDelay(maxDelay),
		httpretry.WithRetryableChecker(func(err error, _ *http.Response) bool {
			if err == nil {
				return false
			}
			logger.Warn("request attempt failed", "error", err)
			return true
		}),
	)
	if err != nil {
		return nil, err
	}
	return &Client{rc: rc}, nil
}

// Do sends req, retrying transport failures. The final transport failure is
// returned as a *TransportError.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.rc.DoWithContext(ctx, req)
	if err != nil {
		return nil, Classify(err)
	}
	return resp, nil
}
