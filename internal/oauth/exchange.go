package oauth

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
	"strings"

	"github.com/wrale/healthbot-connect/internal/provider"
	"github.com/wrale/healthbot-connect/internal/retry"
)

// maxBodySize bounds how much of a token response is read
const maxBodySize = 1 << 20

// Exchanger performs the authorization_code grant against provider token endpoints
type Exchanger struct {
	registry *provider.Registry
	client   *http.Client
	policy   retry.Policy
	logger   *slog.Logger

	retrying  *retry.Client
	clientErr error
}

// NewExchanger creates an exchanger for the providers in reg
func NewExchanger(reg *provider.Registry, opts ...Option) *Exchanger {
	e := &Exchanger{
		registry: reg,
		client:   &http.Client{},
		policy:   retry.DefaultPolicy(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.retrying, e.clientErr = retry.NewClient(e.policy, e.client, e.logger)
	return e
}

// Exchange trades an authorization code for tokens. Errors are
// ErrMissingParameters, *UnknownDeviceError, *ProviderError or
// *retry.TransportError. A provider without a client id is unknown.
func (e *Exchanger) Exchange(ctx context.Context, req ExchangeRequest) (*Token, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cfg, ok := e.registry.Lookup(req.DeviceID)
	if !ok || !cfg.Configured() {
		return nil, &UnknownDeviceError{DeviceID: req.DeviceID}
	}
	if e.clientErr != nil {
		return nil, fmt.Errorf("creating retry client: %w", e.clientErr)
	}
	strategy := provider.StrategyFor(cfg.ID)

	redirectURI := req.RedirectURI
	if redirectURI == "" {
		redirectURI = cfg.RedirectURI
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {req.Code},
		"redirect_uri":  {redirectURI},
		"client_id":     {cfg.ClientID},
		"client_secret": {cfg.ClientSecret},
	}
	if req.CodeVerifier != "" {
		form.Set("code_verifier", req.CodeVerifier)
	}
	if strategy.ExtraParams != nil {
		strategy.ExtraParams(form)
	}
	body := form.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.TokenURL, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	if strategy.Authenticate != nil {
		strategy.Authenticate(httpReq.Header, cfg)
	}

	resp, err := e.retrying.Do(ctx, httpReq)
	if err != nil {
		e.logger.Error("token request failed",
			"provider", cfg.ID,
			"max_attempts", e.policy.MaxAttempts,
			"error", err)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, retry.Classify(fmt.Errorf("reading token response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e.logger.Error("token exchange rejected",
			"provider", cfg.ID,
			"status", resp.StatusCode,
			"redirect_uri", redirectURI,
			"client_id_present", cfg.ClientID != "",
			"client_secret_present", cfg.ClientSecret != "")
		return nil, &ProviderError{
			Provider: string(cfg.ID),
			Status:   resp.StatusCode,
			Body:     string(raw),
		}
	}

	tok, err := normalize(raw, strategy.Envelope)
	if err != nil {
		return nil, fmt.Errorf("parsing %s token response: %w", cfg.ID, err)
	}
	// Withings answers errors with 200 and a non-zero status
	if tok.AccessToken == "" {
		e.logger.Error("token response carried no access token", "provider", cfg.ID)
		return nil, &ProviderError{
			Provider: string(cfg.ID),
			Status:   http.StatusBadGateway,
			Body:     string(raw),
		}
	}
	return tok, nil
}

type tokenPayload struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresIn    json.RawMessage `json:"expires_in"`
	TokenType    string          `json:"token_type"`
}

// normalize decodes a token response, unwrapping envelope when set.
// Envelope responses carry no usable token_type so it is forced to Bearer.
func normalize(data []byte, envelope string) (*Token, error) {
	var p tokenPayload
	forceBearer := false

	if envelope != "" {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, err
		}
		if inner, ok := wrapped[envelope]; ok && !isNull(inner) {
			data = inner
			forceBearer = true
		}
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}

	expiresIn, err := parseExpiresIn(p.ExpiresIn)
	if err != nil {
		return nil, err
	}

	tok := &Token{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresIn:    expiresIn,
		TokenType:    p.TokenType,
	}
	if forceBearer || tok.TokenType == "" {
		tok.TokenType = "Bearer"
	}
	return tok, nil
}

// parseExpiresIn accepts a number or a numeric string
func parseExpiresIn(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || isNull(raw) {
		return 0, nil
	}
	s := string(bytes.Trim(raw, `"`))
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid expires_in %s", raw)
	}
	return int64(f), nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
