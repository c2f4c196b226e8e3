package api

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrSerializedDetached is returned when a transaction-family call is
	// issued through the detached (best-effort) path, which cannot honor
	// family serialization.
	ErrSerializedDetached = errors.New("serialized call issued on detached path")

	// ErrEngineClosed is delivered to every pending caller when the engine
	// is closed while their calls are still in flight.
	ErrEngineClosed = errors.New("engine closed")
)

// ServerFaultError is an application-level failure reported by the backend.
// It is terminal for the call that faulted: the engine logs it, transitions
// to StatusError, and aborts the escalation clock instead of retrying.
type ServerFaultError struct {
	Code    string
	Message string
}

func (e *ServerFaultError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server fault %s: %s", e.Code, e.Message)
	}
	return "server fault: " + e.Message
}

// NewServerFault builds a ServerFaultError. Transports use it to flag
// failures that must not be treated as connectivity loss.
func NewServerFault(code, message string) error {
	return &ServerFaultError{Code: code, Message: message}
}

// IsServerFault returns the fault details if err is a server fault.
func IsServerFault(err error) (*ServerFaultError, bool) {
	var f *ServerFaultError
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsCancellation reports whether err indicates a cancelled or expired call
// rather than a server fault. Cancellation without an explicit fault is
// interpreted as connectivity-driven.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
