package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/wrale/healthbot-connect/internal/provider"
	"github.com/wrale/healthbot-connect/internal/retry"
)

// maxResponseSize bounds how much of a provider response is decoded
const maxResponseSize = 8 << 20

// base holds what every provider fetcher shares
type base struct {
	id      provider.ID
	apiBase string
	tokens  Tokens
	opts    options
}

// client returns an HTTP client that adds the provider bearer token
func (b *base) client(ctx context.Context) (*http.Client, error) {
	rec, err := b.tokens.Get(ctx, string(b.id))
	if err != nil {
		return nil, fmt.Errorf("loading %s token: %w", b.id, err)
	}
	if rec == nil || !rec.Valid(b.opts.now()) {
		return nil, fmt.Errorf("%s: %w", b.id, ErrNotConnected)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.opts.client)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(rec.OAuth2Token())), nil
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

// do sends req and decodes a 2xx JSON response into out. It reports false
// after logging when the call fails in any way.
func (b *base) do(ctx context.Context, hc *http.Client, req request, out any) bool {
	target := b.apiBase + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	if err := b.send(ctx, hc, target, req, out); err != nil {
		b.opts.logger.Error("health data fetch failed",
			"provider", b.id,
			"path", req.path,
			"error", err)
		return false
	}
	return true
}

func (b *base) send(ctx context.Context, hc *http.Client, target string, req request, out any) error {
	rc, err := retry.NewClient(b.opts.policy, hc, b.opts.logger)
	if err != nil {
		return err
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return err
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := rc.Do(ctx, httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s API error: %d", b.id, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", b.id, err)
	}
	return nil
}
