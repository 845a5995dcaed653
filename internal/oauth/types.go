// Package oauth exchanges authorization codes for provider access tokens
package oauth

import (
	"context"
	"errors"
	"fmt"
)

// Common errors returned by the exchanger
var (
	ErrMissingParameters = errors.New("missing required parameters")
	ErrUnknownDevice     = errors.New("unknown device")
)

// Token is the normalized token response handed back to the client
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	TokenType    string `json:"token_type"`
}

// ExchangeRequest is the body of a token exchange call
type ExchangeRequest struct {
	DeviceID     string `json:"deviceId"`
	Code         string `json:"code"`
	CodeVerifier string `json:"codeVerifier,omitempty"`
	RedirectURI  string `json:"redirectUri,omitempty"`
	State        string `json:"state,omitempty"`
}

// Validate checks that the required fields are present
func (r ExchangeRequest) Validate() error {
	if r.DeviceID == "" || r.Code == "" {
		return ErrMissingParameters
	}
	return nil
}

// ProviderError is a non-2xx answer from a token endpoint
type ProviderError struct {
	Provider string
	Status   int
	Body     string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("token exchange failed for %s: status %d: %s", e.Provider, e.Status, e.Body)
}

// UnknownDeviceError names the device id that has no provider configuration
type UnknownDeviceError struct {
	DeviceID string
}

func (e *UnknownDeviceError) Error() string {
	return "Unknown device: " + e.DeviceID
}

func (e *UnknownDeviceError) Is(target error) bool {
	return target == ErrUnknownDevice
}

// CodeExchanger is implemented by Exchanger; consumers depend on this
type CodeExchanger interface {
	Exchange(ctx context.Context, req ExchangeRequest) (*Token, error)
}
