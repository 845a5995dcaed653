package test

import (
	"context"

	"github.com/wrale/healthbot-connect/internal/connect"
	"github.com/wrale/healthbot-connect/internal/oauth"
)

// MockService provides a full implementation of connect.Service for testing
type MockService struct {
	AuthorizationURLFunc func(ctx context.Context, deviceID string) (string, error)
	CompleteFunc         func(ctx context.Context, req oauth.ExchangeRequest) (*oauth.Token, error)
	DisconnectFunc       func(ctx context.Context, deviceID string) error
	ConnectionsFunc      func(ctx context.Context) ([]connect.DeviceConnection, error)
	MarkSyncedFunc       func(ctx context.Context, deviceID string) error
	MarkBluetoothFunc    func(ctx context.Context, deviceID string, connected bool) error
	CheckHealthFunc      func(ctx context.Context) error
}

var _ connect.Service = (*MockService)(nil)

// AuthorizationURL implements connect.Service
func (m *MockService) AuthorizationURL(ctx context.Context, deviceID string) (string, error) {
	if m.AuthorizationURLFunc != nil {
		return m.AuthorizationURLFunc(ctx, deviceID)
	}
	return "", connect.ErrNotConfigured
}

// Complete implements connect.Service
func (m *MockService) Complete(ctx context.Context, req oauth.ExchangeRequest) (*oauth.Token, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return nil, nil
}

// Disconnect implements connect.Service
func (m *MockService) Disconnect(ctx context.Context, deviceID string) error {
	if m.DisconnectFunc != nil {
		return m.DisconnectFunc(ctx, deviceID)
	}
	return nil
}

// Connections implements connect.Service
func (m *MockService) Connections(ctx context.Context) ([]connect.DeviceConnection, error) {
	if m.ConnectionsFunc != nil {
		return m.ConnectionsFunc(ctx)
	}
	return nil, nil
}

// MarkSynced implements connect.Service
func (m *MockService) MarkSynced(ctx context.Context, deviceID string) error {
	if m.MarkSyncedFunc != nil {
		return m.MarkSyncedFunc(ctx, deviceID)
	}
	return nil
}

// MarkBluetooth implements connect.Service
func (m *MockService) MarkBluetooth(ctx context.Context, deviceID string, connected bool) error {
	if m.MarkBluetoothFunc != nil {
		return m.MarkBluetoothFunc(ctx, deviceID, connected)
	}
	return nil
}

// CheckHealth implements connect.Service
func (m *MockService) CheckHealth(ctx context.Context) error {
	if m.CheckHealthFunc != nil {
		return m.CheckHealthFunc(ctx)
	}
	return nil
}
