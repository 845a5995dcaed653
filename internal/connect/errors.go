package connect

import "errors"

// Common errors returned by the connection flow
var (
	// ErrNotConfigured indicates the provider is unknown or has no client id
	ErrNotConfigured = errors.New("integration not configured")

	// ErrSessionNotFound indicates no pending authorization for the device
	ErrSessionNotFound = errors.New("no pending authorization for device")

	// ErrStateMismatch indicates the state returned by the provider does not match the session
	ErrStateMismatch = errors.New("authorization state mismatch")

	// ErrUnknownDevice indicates the device id is not in the catalogue
	ErrUnknownDevice = errors.New("unknown device")
)
