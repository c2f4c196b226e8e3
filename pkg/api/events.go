package api

import "time"

// EventType identifies a call lifecycle event.
type EventType string

const (
	EventCallStarted   EventType = "call.started"
	EventCallRetried   EventType = "call.retried"
	EventCallCompleted EventType = "call.completed"
	EventCallFailed    EventType = "call.failed"

	EventStateChanged    EventType = "engine.state"
	EventTimeoutDeclared EventType = "engine.timeout"
	EventRecovered       EventType = "engine.recovered"
)

// CallEvent is a minimal append-only history record for audit/debugging.
// It is intentionally small and stable; richer history can be layered later.
type CallEvent struct {
	// CallID is the registered call's identifier, or 0 for engine-level
	// events (state changes, timeouts, recoveries).
	CallID uint64
	At     time.Time
	Type   EventType

	// Optional context.
	CallType string
	Family   string
	Attempt  int

	// Small, human-oriented details (e.g. state names, error string).
	// Keep this low-volume: do NOT dump large payloads here.
	Detail string
}
