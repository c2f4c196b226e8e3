package api

import (
	"context"
	"log/slog"
	"time"
)

// Defaults applied by engine constructors when the corresponding Config
// field is zero.
const (
	// DefaultResolution is the scheduler tick: countdowns are decremented
	// and transaction-lock waits re-checked once per tick.
	DefaultResolution = 25 * time.Millisecond

	// DefaultSpinnerDeadline is how long calls may run before an
	// after-timeout spinner becomes visible.
	DefaultSpinnerDeadline = 2 * time.Second

	// DefaultPopupDeadline is how long past the spinner deadline calls may
	// run before the engine declares a timeout.
	DefaultPopupDeadline = 8 * time.Second
)

// Config describes how to construct an engine. Transport is required;
// every other collaborator defaults to its no-op implementation.
type Config struct {
	// Transport performs the remote calls. Required.
	Transport Transport

	// Resolver confirms connectivity after a declared timeout.
	// Defaults to NoopResolver.
	Resolver ConnectivityResolver

	// Indicator presents the loading indicator. Defaults to NoopIndicator.
	Indicator Indicator

	// Sink receives app-state updates from responses.
	// Defaults to NoopStateSink.
	Sink StateSink

	// Deadlines supplies the spinner and popup deadlines. Defaults to
	// StaticDeadlines{DefaultSpinnerDeadline, DefaultPopupDeadline}.
	Deadlines DeadlineSource

	// Observer receives lifecycle callbacks. Defaults to NoopObserver.
	Observer Observer

	// Logger is used for the engine's own handled-error logs.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// Resolution overrides the scheduler tick. Defaults to
	// DefaultResolution. Tests use a small resolution with short deadlines.
	Resolution time.Duration
}

// Engine is the resilient call orchestration API.
type Engine interface {
	// Call dispatches a resilient call and blocks until a result or a
	// fatal error arrives. Calls with a transaction family first wait for
	// the family's lock; the lock releases when the call concludes,
	// regardless of outcome. If the engine declares a timeout while the
	// call is in flight, the call is aborted and automatically re-issued
	// after connectivity recovery, transparently to the caller.
	Call(ctx context.Context, req *Request) (*Response, error)

	// CallAsync dispatches req on the detached best-effort path without
	// blocking the caller. Failures are logged, never surfaced.
	CallAsync(req *Request)

	// CallDetached dispatches req with its own independent cancellation
	// handle, outside the registry and outside timeout escalation. On
	// success it returns the parsed response; on fault or cancellation it
	// returns an empty response and a nil error. The returned error is
	// non-nil only for precondition violations (invalid request, or a
	// transaction-family call, which this path cannot serialize).
	CallDetached(ctx context.Context, req *Request) (*Response, error)

	// State returns the engine's current lifecycle state.
	State() Status

	// EffectiveSpinner returns the merged spinner mode of the calls
	// currently contributing.
	EffectiveSpinner() SpinnerMode

	// InFlight returns the number of registered resilient calls.
	InFlight() int

	// HandleConnectivityChange feeds an out-of-band connectivity
	// notification into the engine. Degraded and Unreachable states abort
	// the active escalation clock so recovery starts without waiting for
	// the popup deadline.
	HandleConnectivityChange(state ConnectivityState)

	// ClaimID returns the engine's indicator claim token.
	ClaimID() string

	// Close tears the engine down: it aborts in-flight attempts, resolves
	// every pending caller with ErrEngineClosed, and stops the escalation
	// machinery. The engine must not be used after Close.
	Close()
}
