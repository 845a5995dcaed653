package oauth

import (
	"log/slog"
	"net/http"

	"github.com/wrale/healthbot-connect/internal/retry"
)

// Option configures an Exchanger
type Option func(*Exchanger)

// WithHTTPClient sets the client used for token requests
func WithHTTPClient(c *http.Client) Option {
	return func(e *Exchanger) {
		e.client = c
	}
}

// WithPolicy sets the retry policy for token requests
func WithPolicy(p retry.Policy) Option {
	return func(e *Exchanger) {
		e.policy = p
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Exchanger) {
		e.logger = l
	}
}
