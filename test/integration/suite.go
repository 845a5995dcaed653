// Package integration runs end-to-end checks against a running healthbot server
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"
)

// Configuration for integration tests
const (
	// DefaultEndpoint is used when HEALTHBOT_URL is unset
	DefaultEndpoint = "http://localhost:8080"

	ServiceTimeout = 60 * time.Second
	RetryInterval  = 2 * time.Second
	DialTimeout    = 2 * time.Second
)

// TestSuite provides shared functionality for integration tests
type TestSuite struct {
	T        *testing.T
	Client   *http.Client
	Ctx      context.Context
	Endpoint string
}

// NewSuite creates a new test suite with timeout. Redirects are not followed.
func NewSuite(t *testing.T) *TestSuite {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), ServiceTimeout)
	t.Cleanup(cancel)

	return &TestSuite{
		T: t,
		Client: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		Ctx:      ctx,
		Endpoint: Endpoint(),
	}
}

// Endpoint returns the server under test
func Endpoint() string {
	if endpoint := os.Getenv("HEALTHBOT_URL"); endpoint != "" {
		return endpoint
	}
	return DefaultEndpoint
}

// Reachable dials the endpoint's host once with DialTimeout
func Reachable(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parsing endpoint: %w", err)
	}
	host := u.Host
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "https" {
			port = "443"
		}
		host = net.JoinHostPort(u.Hostname(), port)
	}

	conn, err := net.DialTimeout("tcp", host, DialTimeout)
	if err != nil {
		return err
	}
	return conn.Close()
}

// WaitForServices waits until the server reports healthy storage
func (s *TestSuite) WaitForServices() error {
	ticker := time.NewTicker(RetryInterval)
	defer ticker.Stop()

	for {
		resp, err := s.Do(http.MethodGet, "/health", nil)
		var lastErr error
		switch {
		case err != nil:
			lastErr = fmt.Errorf("checking health: %w", err)
		case resp.StatusCode != http.StatusOK:
			lastErr = fmt.Errorf("health returned status %d", resp.StatusCode)
		default:
			return nil
		}

		select {
		case <-s.Ctx.Done():
			return fmt.Errorf("timeout waiting for services: %w", lastErr)
		case <-ticker.C:
		}
	}
}

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the body into v
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Do sends a request to path with body encoded as JSON when non-nil
func (s *TestSuite) Do(method, path string, body any) (*Response, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(s.Ctx, method, s.Endpoint+path, rd)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// MustDo is Do that fails the test on transport errors
func (s *TestSuite) MustDo(method, path string, body any) *Response {
	s.T.Helper()
	resp, err := s.Do(method, path, body)
	if err != nil {
		s.T.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}
