package bluetooth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wrale/healthbot-connect/internal/health"
)

var (
	// ErrUnsupported indicates the platform has no Bluetooth LE GATT access.
	// It is not retryable.
	ErrUnsupported = errors.New("bluetooth LE is not supported on this platform")

	// ErrBusy indicates a connect request while the client is already in use
	ErrBusy = errors.New("bluetooth client already connecting or connected")

	// ErrCancelled indicates Disconnect was called before Connect finished
	ErrCancelled = errors.New("bluetooth connect cancelled")
)

// Adapter is the platform Bluetooth stack
type Adapter interface {
	// RequestDevice scans for and selects a device advertising service
	RequestDevice(ctx context.Context, service uuid.UUID) (Device, error)
}

// Device is a selected peripheral
type Device interface {
	Name() string
	Connect(ctx context.Context) (GATTServer, error)
}

// GATTServer is a connected peripheral's attribute server
type GATTServer interface {
	PrimaryService(ctx context.Context, id uuid.UUID) (Service, error)
	Disconnect() error
	// Disconnected is closed when the link drops
	Disconnected() <-chan struct{}
}

// Service is a primary GATT service
type Service interface {
	Characteristic(ctx context.Context, id uuid.UUID) (Characteristic, error)
}

// Characteristic is a notifiable GATT characteristic. Implementations call
// the handler for one notification at a time.
type Characteristic interface {
	StartNotifications(ctx context.Context, handler func(value []byte)) error
	StopNotifications() error
}

// State is the connection state of a Client
type State int

// Client states
const (
	Idle State = iota
	Scanning
	Connected
	Streaming
	Disconnected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Connected:
		return "connected"
	case Streaming:
		return "streaming"
	case Disconnected:
		return "disconnected"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithClock replaces the time source used to stamp readings
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithStateHook registers a function called after every state change
func WithStateHook(fn func(State)) Option {
	return func(c *Client) {
		c.onState = fn
	}
}

// Client streams measurements from one device of a class
type Client struct {
	adapter   Adapter
	profile   Profile
	onReading func(health.Reading)
	onState   func(State)
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.Mutex
	state  State
	server GATTServer
	char   Characteristic
	stop   chan struct{}
	// gen changes on every Connect and teardown so a Connect that was
	// overtaken can tell
	gen uint64
}

// NewClient creates a client for class. adapter may be nil on platforms
// without Bluetooth; Connect then fails with ErrUnsupported.
func NewClient(adapter Adapter, class Class, onReading func(health.Reading), opts ...Option) (*Client, error) {
	p, ok := ProfileFor(class)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}
	c := &Client{
		adapter:   adapter,
		profile:   p,
		onReading: onReading,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// State returns the current state
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect selects a device, subscribes to its measurement characteristic
// and starts streaming readings. It returns the device name.
func (c *Client) Connect(ctx context.Context) (string, error) {
	if c.adapter == nil {
		return "", ErrUnsupported
	}

	c.mu.Lock()
	if c.state == Scanning || c.state == Connected || c.state == Streaming {
		c.mu.Unlock()
		return "", ErrBusy
	}
	c.gen++
	gen := c.gen
	c.state = Scanning
	hook := c.onState
	c.mu.Unlock()
	if hook != nil {
		hook(Scanning)
	}

	dev, err := c.adapter.RequestDevice(ctx, c.profile.Service)
	if err != nil {
		if !c.advance(gen, Disconnected) {
			return "", ErrCancelled
		}
		return "", fmt.Errorf("requesting device: %w", err)
	}

	server, err := dev.Connect(ctx)
	if err != nil {
		if !c.advance(gen, Disconnected) {
			return "", ErrCancelled
		}
		return "", fmt.Errorf("connecting to GATT server: %w", err)
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		_ = server.Disconnect()
		return "", ErrCancelled
	}
	c.server = server
	c.stop = make(chan struct{})
	stop := c.stop
	c.mu.Unlock()
	c.advance(gen, Connected)

	char, err := c.subscribe(ctx, server)
	if err != nil {
		c.mu.Lock()
		overtaken := c.gen != gen
		c.mu.Unlock()
		if overtaken {
			return "", ErrCancelled
		}
		c.teardown()
		return "", err
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		_ = char.StopNotifications()
		return "", ErrCancelled
	}
	c.char = char
	c.mu.Unlock()
	c.advance(gen, Streaming)

	go c.watch(server.Disconnected(), stop)

	c.logger.Info("bluetooth device streaming", "class", c.profile.Class, "device", dev.Name())
	return dev.Name(), nil
}

func (c *Client) subscribe(ctx context.Context, server GATTServer) (Characteristic, error) {
	svc, err := server.PrimaryService(ctx, c.profile.Service)
	if err != nil {
		return nil, fmt.Errorf("getting service %s: %w", c.profile.Service, err)
	}
	char, err := svc.Characteristic(ctx, c.profile.Characteristic)
	if err != nil {
		return nil, fmt.Errorf("getting characteristic %s: %w", c.profile.Characteristic, err)
	}
	if err := char.StartNotifications(ctx, c.handle); err != nil {
		return nil, fmt.Errorf("starting notifications: %w", err)
	}
	return char, nil
}

// handle decodes one notification. Malformed samples are dropped.
func (c *Client) handle(value []byte) {
	r, err := Decode(c.profile.Class, value, c.now())
	if err != nil {
		c.logger.Warn("dropping bluetooth sample", "class", c.profile.Class, "error", err)
		return
	}
	if c.onReading != nil {
		c.onReading(r)
	}
}

func (c *Client) watch(dropped <-chan struct{}, stop <-chan struct{}) {
	select {
	case <-dropped:
		c.logger.Info("bluetooth device disconnected", "class", c.profile.Class)
		c.teardown()
	case <-stop:
	}
}

// Disconnect stops streaming and drops the link. It is safe to call in any state.
func (c *Client) Disconnect() error {
	return c.teardown()
}

func (c *Client) teardown() error {
	c.mu.Lock()
	server, char, stop := c.server, c.char, c.stop
	c.server, c.char, c.stop = nil, nil, nil
	changed := server != nil || c.state == Scanning || c.state == Connected || c.state == Streaming
	if changed {
		c.state = Disconnected
		c.gen++
	}
	hook := c.onState
	c.mu.Unlock()

	if stop != nil {
		close(stop)
	}

	var errs []error
	if char != nil {
		if err := char.StopNotifications(); err != nil {
			errs = append(errs, fmt.Errorf("stopping notifications: %w", err))
		}
	}
	if server != nil {
		if err := server.Disconnect(); err != nil {
			errs = append(errs, fmt.Errorf("disconnecting: %w", err))
		}
	}
	if changed && hook != nil {
		hook(Disconnected)
	}
	return errors.Join(errs...)
}

// advance moves to s unless the Connect that owns gen was overtaken
func (c *Client) advance(gen uint64, s State) bool {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return false
	}
	c.state = s
	hook := c.onState
	c.mu.Unlock()
	if hook != nil {
		hook(s)
	}
	return true
}
