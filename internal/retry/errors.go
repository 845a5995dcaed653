package retry

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// Kind is the category of a transport failure
type Kind string

// Transport failure kinds
const (
	KindTimeout Kind = "timeout"
	KindDNS     Kind = "dns"
	KindRefused Kind = "refused"
	KindNetwork Kind = "network"
)

// TransportError is a failure to reach a remote server at all
type TransportError struct {
	Kind Kind
	Err  error
}

func (e *TransportError) Error() string {
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Message is the short, user-facing label for the failure
func (e *TransportError) Message() string {
	switch e.Kind {
	case KindTimeout:
		return "Connection timeout"
	case KindDNS:
		return "DNS resolution failed"
	case KindRefused:
		return "Connection refused"
	}
	return "Internal server error"
}

// Details explains the failure to an end user
func (e *TransportError) Details() string {
	switch e.Kind {
	case KindTimeout:
		return "Unable to reach the OAuth server. Please check your internet connection and try again."
	case KindDNS:
		return "Unable to resolve the OAuth server address. Please check your network configuration."
	case KindRefused:
		return "The OAuth server refused the connection."
	}
	return e.Err.Error()
}

// Classify wraps err in a *TransportError with the matching Kind.
// An existing *TransportError is returned as is.
func Classify(err error) *TransportError {
	var terr *TransportError
	if errors.As(err, &terr) {
		return terr
	}

	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &TransportError{Kind: KindTimeout, Err: err}
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return &TransportError{Kind: KindTimeout, Err: err}
		}
		return &TransportError{Kind: KindDNS, Err: err}
	case errors.Is(err, syscall.ECONNREFUSED):
		return &TransportError{Kind: KindRefused, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{Kind: KindTimeout, Err: err}
	}
	return &TransportError{Kind: KindNetwork, Err: err}
}
