package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wrale/healthbot-connect/cmd/healthbot/handlers/authorize"
	"github.com/wrale/healthbot-connect/cmd/healthbot/handlers/devices"
	"github.com/wrale/healthbot-connect/cmd/healthbot/handlers/readings"
	"github.com/wrale/healthbot-connect/internal/kv"
	"github.com/wrale/healthbot-connect/internal/oauth"
	"github.com/wrale/healthbot-connect/internal/pkce"
	"github.com/wrale/healthbot-connect/internal/provider"
)

// fakeOura is a token endpoint plus sleep collection
type fakeOura struct {
	t *testing.T

	mu        sync.Mutex
	challenge string
	exchanged int
}

func (f *fakeOura) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/oauth/token":
		if err := r.ParseForm(); err != nil {
			f.t.Errorf("parsing token form: %v", err)
		}
		if got := r.PostForm.Get("code"); got != "oura-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid_grant"}`)
			return
		}
		if !pkce.Verify(r.PostForm.Get("code_verifier"), f.challenge, pkce.MethodS256) {
			f.t.Errorf("code_verifier does not match the challenge sent to the browser")
		}
		f.exchanged++
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"oura-access","refresh_token":"oura-refresh","expires_in":86400}`)

	case "/v2/usercollection/sleep":
		if got := r.Header.Get("Authorization"); got != "Bearer oura-access" {
			f.t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[{"day":"2024-03-10","score":82,"total_sleep_duration":27000}]}`)

	default:
		http.NotFound(w, r)
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeOura) {
	t.Helper()

	oura := &fakeOura{t: t}
	upstream := httptest.NewServer(oura)
	t.Cleanup(upstream.Close)

	cfg := Config{
		BaseURL:          "http://localhost:8080",
		StoreDriver:      kv.DriverMemory,
		SessionTTL:       time.Minute,
		ExchangeTimeout:  5 * time.Second,
		ExchangeAttempts: 1,
		FetchTimeout:     5 * time.Second,
		RequestTimeout:   10 * time.Second,
		Credentials: provider.Credentials{
			OuraClientID:     "oura-client",
			OuraClientSecret: "oura-secret",
		},
	}
	reg := provider.Load(cfg.Credentials, cfg.BaseURL, map[provider.ID]provider.Override{
		provider.Oura: {TokenURL: upstream.URL + "/oauth/token", APIBaseURL: upstream.URL},
	})

	srv := newServer(cfg, kv.NewMemoryStore(), reg, upstream.Client(), discardLogger())
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts, oura
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decoding response: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func connected(t *testing.T, base, id string) bool {
	t.Helper()
	var list devices.ListResponse
	if code := doJSON(t, http.MethodGet, base+"/api/devices", nil, &list); code != http.StatusOK {
		t.Fatalf("GET /api/devices status = %d", code)
	}
	for _, d := range list.Devices {
		if d.ID == id {
			return d.Connected
		}
	}
	t.Fatalf("device %s not listed", id)
	return false
}

func TestConnectAndSync(t *testing.T) {
	ts, oura := newTestServer(t)

	// 1. authorization URL
	var auth authorize.Response
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/oauth/authorize/oura", nil, &auth); code != http.StatusOK {
		t.Fatalf("authorize status = %d", code)
	}
	authURL, err := url.Parse(auth.URL)
	if err != nil {
		t.Fatal(err)
	}
	q := authURL.Query()
	if q.Get("state") != "oura" || q.Get("code_challenge_method") != "S256" || q.Get("client_id") != "oura-client" {
		t.Errorf("authorization query = %v", q)
	}
	if q.Get("redirect_uri") != "http://localhost:8080/api/oauth/callback/oura" {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
	oura.mu.Lock()
	oura.challenge = q.Get("code_challenge")
	oura.mu.Unlock()

	// 2. provider redirects back
	client := &http.Client{CheckRedirect: noRedirect}
	resp, err := client.Get(ts.URL + "/api/oauth/callback/oura?code=oura-code&state=oura")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("callback status = %d", resp.StatusCode)
	}
	loc, _ := url.Parse(resp.Header.Get("Location"))
	if loc.Path != "/connect" || loc.Query().Get("code") != "oura-code" || loc.Query().Get("provider") != "oura" {
		t.Errorf("callback Location = %s", loc)
	}

	if connected(t, ts.URL, "oura") {
		t.Fatal("oura connected before token exchange")
	}

	// 3. client exchanges the relayed code; the server supplies the verifier
	var tok oauth.Token
	req := oauth.ExchangeRequest{DeviceID: "oura", Code: loc.Query().Get("code"), State: loc.Query().Get("state")}
	if code := doJSON(t, http.MethodPost, ts.URL+"/api/oauth/token", req, &tok); code != http.StatusOK {
		t.Fatalf("token status = %d", code)
	}
	want := oauth.Token{AccessToken: "oura-access", RefreshToken: "oura-refresh", ExpiresIn: 86400, TokenType: "Bearer"}
	if tok != want {
		t.Errorf("token = %+v, want %+v", tok, want)
	}
	if !connected(t, ts.URL, "oura") {
		t.Fatal("oura not connected after token exchange")
	}

	// the session was consumed
	if code := doJSON(t, http.MethodPost, ts.URL+"/api/oauth/token", req, nil); code != http.StatusBadRequest {
		t.Errorf("replayed exchange status = %d, want 400", code)
	}

	// 4. sync and read back
	var synced devices.SyncResponse
	if code := doJSON(t, http.MethodPost, ts.URL+"/api/devices/oura/sync?kind=sleep&from=2024-03-10&to=2024-03-10", nil, &synced); code != http.StatusOK {
		t.Fatalf("sync status = %d", code)
	}
	if len(synced.Readings) != 1 || synced.Readings[0].Value != 450 || synced.Readings[0].Unit != "minutes" {
		t.Errorf("synced readings = %+v", synced.Readings)
	}

	var stored readings.ListResponse
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/readings?type=sleep", nil, &stored); code != http.StatusOK {
		t.Fatalf("readings status = %d", code)
	}
	if len(stored.Readings) != 1 {
		t.Errorf("stored %d sleep readings, want 1", len(stored.Readings))
	}

	// 5. disconnect
	if code := doJSON(t, http.MethodDelete, ts.URL+"/api/devices/oura", nil, nil); code != http.StatusNoContent {
		t.Fatalf("disconnect status = %d", code)
	}
	if connected(t, ts.URL, "oura") {
		t.Error("oura still connected after disconnect")
	}
	if code := doJSON(t, http.MethodPost, ts.URL+"/api/devices/oura/sync?kind=sleep", nil, nil); code != http.StatusConflict {
		t.Errorf("sync after disconnect status = %d, want 409", code)
	}

	oura.mu.Lock()
	defer oura.mu.Unlock()
	if oura.exchanged != 1 {
		t.Errorf("token endpoint called %d times, want 1", oura.exchanged)
	}
}

func TestExchangeRejected(t *testing.T) {
	ts, _ := newTestServer(t)

	if code := doJSON(t, http.MethodGet, ts.URL+"/api/oauth/authorize/oura", nil, &authorize.Response{}); code != http.StatusOK {
		t.Fatalf("authorize status = %d", code)
	}

	body := strings.NewReader(`{"deviceId":"oura","code":"stale"}`)
	resp, err := http.Post(ts.URL+"/api/oauth/token", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want provider status 400", resp.StatusCode)
	}
	var e struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		t.Fatal(err)
	}
	if e.Error != "Token exchange failed" || e.Details != `{"error":"invalid_grant"}` {
		t.Errorf("error body = %+v", e)
	}
}

func TestUnconfiguredProvider(t *testing.T) {
	ts, _ := newTestServer(t)

	if code := doJSON(t, http.MethodGet, ts.URL+"/api/oauth/authorize/fitbit", nil, nil); code != http.StatusNotFound {
		t.Errorf("authorize unconfigured status = %d, want 404", code)
	}
	if code := doJSON(t, http.MethodPost, ts.URL+"/api/oauth/token", map[string]string{"deviceId": "garmin", "code": "x"}, nil); code != http.StatusBadRequest {
		t.Errorf("token for unknown device status = %d, want 400", code)
	}
	if code := doJSON(t, http.MethodPost, ts.URL+"/api/oauth/token", map[string]string{"deviceId": "fitbit", "code": "x"}, nil); code != http.StatusBadRequest {
		t.Errorf("token for unconfigured device status = %d, want 400", code)
	}
}

func TestHealthRoute(t *testing.T) {
	ts, _ := newTestServer(t)

	var body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if code := doJSON(t, http.MethodGet, ts.URL+"/health", nil, &body); code != http.StatusOK {
		t.Fatalf("health status = %d", code)
	}
	if body.Status != "healthy" || body.Version != Version {
		t.Errorf("health = %+v", body)
	}
}
