package api

import "time"

// Status represents the lifecycle state of the orchestration engine.
type Status string

const (
	// StatusIdle means no resilient call is in flight. The engine is idle
	// exactly when the call registry and the cancellation set are empty.
	StatusIdle Status = "IDLE"

	// StatusProcessing means at least one resilient call is in flight and
	// an escalation cycle is counting down.
	StatusProcessing Status = "PROCESSING"

	// StatusTimedOut means the popup deadline expired without all calls
	// finishing; in-flight attempts have been aborted and connectivity
	// recovery is underway.
	StatusTimedOut Status = "TIMED_OUT"

	// StatusError means a call reported a server fault. The escalation
	// clock is aborted; the engine drains back to StatusIdle once the
	// remaining calls conclude.
	StatusError Status = "ERROR"
)

// SpinnerMode is a call's loading-indicator visibility preference.
//
// Modes are ordered: SpinnerInvisible < SpinnerAfterTimeout < SpinnerInstant.
// The effective mode is the maximum requested by any call currently
// contributing; it resets to SpinnerInvisible when the engine returns to
// StatusIdle.
type SpinnerMode int

const (
	// SpinnerInvisible never shows the indicator for this call.
	SpinnerInvisible SpinnerMode = iota

	// SpinnerAfterTimeout shows the indicator once the spinner deadline
	// elapses without the call finishing.
	SpinnerAfterTimeout

	// SpinnerInstant shows the indicator immediately.
	SpinnerInstant
)

func (m SpinnerMode) String() string {
	switch m {
	case SpinnerInvisible:
		return "invisible"
	case SpinnerAfterTimeout:
		return "after-timeout"
	case SpinnerInstant:
		return "instant"
	default:
		return "unknown"
	}
}

// ConnectivityState is the reachability value delivered by an external
// connectivity-event source via Engine.HandleConnectivityChange.
type ConnectivityState string

const (
	ConnectivityReachable   ConnectivityState = "REACHABLE"
	ConnectivityDegraded    ConnectivityState = "DEGRADED"
	ConnectivityUnreachable ConnectivityState = "UNREACHABLE"
)

// Request describes one logical remote call. The engine keeps the request
// itself as the replay record for automatic retry, so the original
// parameters stay introspectable.
type Request struct {
	// Type is the call type name understood by the transport.
	Type string

	// Family, when non-empty, places the call in a transaction family:
	// at most one call of a family is executing at any time. Family calls
	// must go through Engine.Call; the detached path rejects them.
	Family string

	// Params is the opaque call payload handed to the transport.
	Params any

	// Spinner is this call's indicator visibility preference.
	Spinner SpinnerMode

	// Retry optionally configures retries on the detached (best-effort)
	// path. It has no effect on resilient calls, whose retries are driven
	// by connectivity recovery instead.
	Retry *RetryPolicy
}

// Response is a parsed transport result. The engine never interprets the
// payload beyond the two optional app-state fields.
type Response struct {
	// Payload is the call result as parsed by the transport.
	Payload any

	// UserData, when non-nil, is forwarded to StateSink.ApplyUserData
	// before the response is returned to the caller.
	UserData any

	// Resources, when non-nil, is forwarded to StateSink.ApplyResources
	// before the response is returned to the caller.
	Resources any
}

// RetryPolicy controls how a detached call is retried when the transport
// reports a fault. MaxAttempts includes the first attempt:
//
//	MaxAttempts = 1 => no retries (just the initial call)
//	MaxAttempts = 3 => initial call + up to 2 retries
//
// Cancellations are never retried; they signal the connectivity-fault
// trigger instead.
type RetryPolicy struct {
	MaxAttempts int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the per-attempt delay; <= 0 means no cap.
	MaxBackoff time.Duration

	// BackoffMultiplier grows the delay each attempt; <= 0 defaults to 2.0.
	BackoffMultiplier float64
}

// CallInfo is an observer-facing snapshot of one registered call.
type CallInfo struct {
	// ID is the call's unique, monotonically increasing identifier.
	ID uint64

	Type    string
	Family  string
	Spinner SpinnerMode

	// Attempt is 1 for the first attempt and increments on each retry.
	Attempt int
}
