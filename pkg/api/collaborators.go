package api

import (
	"context"
	"time"
)

// Transport performs the actual remote call. The engine hands it a request
// and a cancellable context; a declared timeout or connectivity fault
// cancels the context of every in-flight attempt at once.
//
// Invoke returns either a parsed response, a *ServerFaultError for an
// application-level failure, or a context cancellation error when the call
// was aborted. Any other error is treated as a server fault.
type Transport interface {
	Invoke(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

func (f TransportFunc) Invoke(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// ConnectivityResolver re-establishes backend connectivity after a declared
// timeout. The engine awaits Resolve exactly once per timeout; its
// completion is the sole trigger for re-issuing aborted calls.
type ConnectivityResolver interface {
	Resolve(ctx context.Context, blocking bool) error
}

// NoopResolver resolves immediately. It is the default when no resolver is
// configured, which makes recovery re-issue aborted calls without delay.
type NoopResolver struct{}

func (NoopResolver) Resolve(ctx context.Context, blocking bool) error { return nil }

// Indicator presents the loading indicator. The owner argument is the
// engine's claim token, so an implementation shared by several independent
// claimants can track who currently wants the indicator visible.
type Indicator interface {
	Show(owner string)
	Hide(owner string)
}

// NoopIndicator ignores all visibility changes.
type NoopIndicator struct{}

func (NoopIndicator) Show(owner string) {}
func (NoopIndicator) Hide(owner string) {}

// StateSink receives app-state updates embedded in call responses. Each
// method is invoked only when the corresponding response field is present.
type StateSink interface {
	ApplyUserData(payload any)
	ApplyResources(payload any)
}

// NoopStateSink discards all updates.
type NoopStateSink struct{}

func (NoopStateSink) ApplyUserData(payload any)  {}
func (NoopStateSink) ApplyResources(payload any) {}

// DeadlineSource provides the two escalation deadlines. It is read fresh at
// each escalation-cycle start and re-read whenever a new call arrives
// mid-cycle, so raising a deadline extends a live countdown.
type DeadlineSource interface {
	Deadlines() (spinner, popup time.Duration)
}

// StaticDeadlines is a fixed-value DeadlineSource.
type StaticDeadlines struct {
	Spinner time.Duration
	Popup   time.Duration
}

func (d StaticDeadlines) Deadlines() (time.Duration, time.Duration) {
	return d.Spinner, d.Popup
}

// DeadlineFunc adapts a function to the DeadlineSource interface.
type DeadlineFunc func() (spinner, popup time.Duration)

func (f DeadlineFunc) Deadlines() (time.Duration, time.Duration) { return f() }
