package oauth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/wrale/healthbot-connect/internal/provider"
	"github.com/wrale/healthbot-connect/internal/retry"
)

type captured struct {
	form   url.Values
	header http.Header
}

func tokenServer(t *testing.T, status int, body string, got *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		form, err := url.ParseQuery(string(data))
		if err != nil {
			t.Errorf("parsing token request body: %v", err)
		}
		if got != nil {
			got.form = form
			got.header = r.Header.Clone()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, Timeout: time.Second, BaseDelay: 10 * time.Millisecond}
}

func newTestExchanger(cfgs ...provider.Config) *Exchanger {
	return NewExchanger(provider.NewRegistry(cfgs...), WithPolicy(fastPolicy()))
}

func TestExchangeStandard(t *testing.T) {
	var got captured
	srv := tokenServer(t, http.StatusOK,
		`{"access_token":"t","refresh_token":"r","expires_in":3600}`, &got)

	e := newTestExchanger(provider.Config{
		ID: provider.GoogleFit, TokenURL: srv.URL,
		ClientID: "cid", ClientSecret: "secret",
		RedirectURI: "http://localhost:3000/api/oauth/callback/google",
	})

	tok, err := e.Exchange(context.Background(), ExchangeRequest{
		DeviceID:     "google_fit",
		Code:         "abc",
		CodeVerifier: "v",
		RedirectURI:  "http://localhost:3000/api/oauth/callback/google",
	})
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}

	want := &Token{AccessToken: "t", RefreshToken: "r", ExpiresIn: 3600, TokenType: "Bearer"}
	if diff := cmp.Diff(want, tok); diff != "" {
		t.Errorf("token mismatch (-want +got):\n%s", diff)
	}

	wantForm := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {"abc"},
		"redirect_uri":  {"http://localhost:3000/api/oauth/callback/google"},
		"client_id":     {"cid"},
		"client_secret": {"secret"},
		"code_verifier": {"v"},
	}
	if diff := cmp.Diff(wantForm, got.form); diff != "" {
		t.Errorf("form mismatch (-want +got):\n%s", diff)
	}
	if got.header.Get("Authorization") != "" {
		t.Error("standard flow must not send an Authorization header")
	}
	if ct := got.header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestExchangeFitbitUsesBasicAuth(t *testing.T) {
	var got captured
	srv := tokenServer(t, http.StatusOK,
		`{"access_token":"t","token_type":"bearer","expires_in":"28800"}`, &got)

	e := newTestExchanger(provider.Config{
		ID: provider.Fitbit, TokenURL: srv.URL, ClientID: "abc", ClientSecret: "xyz",
	})

	tok, err := e.Exchange(context.Background(), ExchangeRequest{DeviceID: "fitbit", Code: "c"})
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if auth := got.header.Get("Authorization"); auth != "Basic YWJjOnh5eg==" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.form.Has("action") {
		t.Error("fitbit request must not carry an action parameter")
	}
	if got.form.Has("code_verifier") {
		t.Error("code_verifier sent without a verifier")
	}
	if tok.TokenType != "bearer" || tok.ExpiresIn != 28800 {
		t.Errorf("token = %+v", tok)
	}
}

func TestExchangeWithingsUnwrapsBody(t *testing.T) {
	var got captured
	srv := tokenServer(t, http.StatusOK,
		`{"status":0,"body":{"access_token":"w","refresh_token":"wr","expires_in":10800,"token_type":"weird"}}`, &got)

	e := newTestExchanger(provider.Config{
		ID: provider.Withings, TokenURL: srv.URL, ClientID: "id", ClientSecret: "s",
		RedirectURI: "https://health.example.com/api/oauth/callback/withings",
	})

	tok, err := e.Exchange(context.Background(), ExchangeRequest{DeviceID: "withings", Code: "c"})
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if got.form.Get("action") != "requesttoken" {
		t.Errorf("action = %q, want requesttoken", got.form.Get("action"))
	}
	if got.form.Get("redirect_uri") != "https://health.example.com/api/oauth/callback/withings" {
		t.Errorf("redirect_uri should default to the registered one, got %q", got.form.Get("redirect_uri"))
	}
	want := &Token{AccessToken: "w", RefreshToken: "wr", ExpiresIn: 10800, TokenType: "Bearer"}
	if diff := cmp.Diff(want, tok); diff != "" {
		t.Errorf("token mismatch (-want +got):\n%s", diff)
	}
}

func TestExchangeProviderError(t *testing.T) {
	const body = `{"error":"invalid_grant","error_description":"Bad code"}`
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, body)
	}))
	defer srv.Close()

	e := newTestExchanger(provider.Config{ID: provider.Oura, TokenURL: srv.URL, ClientID: "id"})

	_, err := e.Exchange(context.Background(), ExchangeRequest{DeviceID: "oura", Code: "c"})
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Exchange() error = %v, want *ProviderError", err)
	}
	if perr.Status != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", perr.Status)
	}
	if perr.Body != body {
		t.Errorf("Body = %q, want %q", perr.Body, body)
	}
	if calls != 1 {
		t.Errorf("provider called %d times, want 1", calls)
	}
}

func TestExchangeRequestErrors(t *testing.T) {
	e := newTestExchanger(provider.Config{ID: provider.Oura, TokenURL: "http://127.0.0.1:1"})

	tests := []struct {
		name string
		req  ExchangeRequest
		want error
	}{
		{"missing code", ExchangeRequest{DeviceID: "oura"}, ErrMissingParameters},
		{"missing device", ExchangeRequest{Code: "c"}, ErrMissingParameters},
		{"unknown device", ExchangeRequest{DeviceID: "garmin", Code: "c"}, ErrUnknownDevice},
		{"no client id", ExchangeRequest{DeviceID: "oura", Code: "c"}, ErrUnknownDevice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Exchange(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("Exchange() error = %v, want %v", err, tt.want)
			}
		})
	}

	_, err := e.Exchange(context.Background(), ExchangeRequest{DeviceID: "garmin", Code: "c"})
	if err == nil || err.Error() != "Unknown device: garmin" {
		t.Errorf("unknown device message = %v", err)
	}
}

// countingTransport counts round trips through the default transport
type countingTransport struct {
	mu    sync.Mutex
	calls int
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return http.DefaultTransport.RoundTrip(r)
}

func TestExchangeConnectionRefusedIsRetried(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	ct := &countingTransport{}
	p := fastPolicy()
	e := NewExchanger(
		provider.NewRegistry(provider.Config{ID: provider.Strava, TokenURL: addr, ClientID: "id"}),
		WithHTTPClient(&http.Client{Transport: ct}),
		WithPolicy(p),
	)

	start := time.Now()
	_, err := e.Exchange(context.Background(), ExchangeRequest{DeviceID: "strava", Code: "c"})
	var terr *retry.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("Exchange() error = %v, want *retry.TransportError", err)
	}
	if terr.Kind != retry.KindRefused {
		t.Errorf("Kind = %q, want %q", terr.Kind, retry.KindRefused)
	}
	ct.mu.Lock()
	calls := ct.calls
	ct.mu.Unlock()
	if calls != 3 {
		t.Errorf("attempts = %d, want 3", calls)
	}
	if elapsed, want := time.Since(start), p.Backoff(0)+p.Backoff(1); elapsed < want {
		t.Errorf("elapsed = %v, want at least %v of backoff", elapsed, want)
	}
}

func TestExchangeWithingsErrorStatus(t *testing.T) {
	const body = `{"status":601,"error":"invalid_params: code expired"}`
	srv := tokenServer(t, http.StatusOK, body, nil)

	e := newTestExchanger(provider.Config{
		ID: provider.Withings, TokenURL: srv.URL, ClientID: "id", ClientSecret: "s",
	})

	tok, err := e.Exchange(context.Background(), ExchangeRequest{DeviceID: "withings", Code: "c"})
	if tok != nil {
		t.Errorf("Exchange() token = %+v, want nil", tok)
	}
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Exchange() error = %v, want *ProviderError", err)
	}
	if perr.Status != http.StatusBadGateway {
		t.Errorf("Status = %d, want %d", perr.Status, http.StatusBadGateway)
	}
	if perr.Body != body {
		t.Errorf("Body = %q, want %q", perr.Body, body)
	}
}

func TestExchangeMissingAccessToken(t *testing.T) {
	srv := tokenServer(t, http.StatusOK, `{"token_type":"Bearer"}`, nil)
	e := newTestExchanger(provider.Config{ID: provider.Oura, TokenURL: srv.URL, ClientID: "id"})

	_, err := e.Exchange(context.Background(), ExchangeRequest{DeviceID: "oura", Code: "c"})
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Status != http.StatusBadGateway {
		t.Errorf("Exchange() error = %v, want 502 *ProviderError", err)
	}
}
