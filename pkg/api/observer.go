package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the call engine for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay call dispatch. Observers must not call
// back into the engine.
type Observer interface {
	// OnCallStart is called once when a resilient call is registered,
	// before its first transport attempt.
	OnCallStart(ctx context.Context, call *CallInfo)

	// OnCallCompleted is called when a registered call concludes, for both
	// successes and server faults (err != nil). Retried attempts do not
	// produce intermediate completions.
	OnCallCompleted(ctx context.Context, call *CallInfo, err error, duration time.Duration)

	// OnStateChange is called on every engine state transition.
	OnStateChange(ctx context.Context, from, to Status)

	// OnTimeout is called when the popup deadline expires and the engine
	// declares a timeout. inFlight is the number of calls whose attempts
	// were aborted.
	OnTimeout(ctx context.Context, inFlight int)

	// OnRecovery is called after connectivity resolution, once every
	// aborted call has been re-issued. retried is the number of calls
	// re-entering the escalation machinery.
	OnRecovery(ctx context.Context, retried int)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnCallStart(ctx context.Context, call *CallInfo) {}
func (NoopObserver) OnCallCompleted(ctx context.Context, call *CallInfo, err error, d time.Duration) {
}
func (NoopObserver) OnStateChange(ctx context.Context, from, to Status) {}
func (NoopObserver) OnTimeout(ctx context.Context, inFlight int)        {}
func (NoopObserver) OnRecovery(ctx context.Context, retried int)        {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnCallStart(ctx context.Context, call *CallInfo) {
	for _, o := range c.observers {
		o.OnCallStart(ctx, call)
	}
}

func (c *CompositeObserver) OnCallCompleted(ctx context.Context, call *CallInfo, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnCallCompleted(ctx, call, err, d)
	}
}

func (c *CompositeObserver) OnStateChange(ctx context.Context, from, to Status) {
	for _, o := range c.observers {
		o.OnStateChange(ctx, from, to)
	}
}

func (c *CompositeObserver) OnTimeout(ctx context.Context, inFlight int) {
	for _, o := range c.observers {
		o.OnTimeout(ctx, inFlight)
	}
}

func (c *CompositeObserver) OnRecovery(ctx context.Context, retried int) {
	for _, o := range c.observers {
		o.OnRecovery(ctx, retried)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs call / engine lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnCallStart(ctx context.Context, call *CallInfo) {
	o.Logger.DebugContext(ctx, "call_start",
		slog.Uint64("call_id", call.ID),
		slog.String("call_type", call.Type),
		slog.String("family", call.Family),
		slog.String("spinner", call.Spinner.String()),
	)
}

func (o *LoggingObserver) OnCallCompleted(ctx context.Context, call *CallInfo, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "call_completed",
		slog.Uint64("call_id", call.ID),
		slog.String("call_type", call.Type),
		slog.Int("attempt", call.Attempt),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnStateChange(ctx context.Context, from, to Status) {
	o.Logger.InfoContext(ctx, "engine_state",
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)
}

func (o *LoggingObserver) OnTimeout(ctx context.Context, inFlight int) {
	o.Logger.WarnContext(ctx, "engine_timeout",
		slog.Int("in_flight", inFlight),
	)
}

func (o *LoggingObserver) OnRecovery(ctx context.Context, retried int) {
	o.Logger.InfoContext(ctx, "engine_recovered",
		slog.Int("retried", retried),
	)
}

// BasicMetrics collects simple counters and aggregate call durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	callsStarted      atomic.Int64
	callsCompleted    atomic.Int64
	callsFailed       atomic.Int64
	timeouts          atomic.Int64
	retries           atomic.Int64
	totalCallDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	CallsStarted   int64
	CallsCompleted int64
	CallsFailed    int64
	InFlight       int64

	Timeouts        int64
	Retries         int64
	AvgCallDuration time.Duration
}

func (m *BasicMetrics) OnCallStart(ctx context.Context, call *CallInfo) {
	m.callsStarted.Add(1)
}

func (m *BasicMetrics) OnCallCompleted(ctx context.Context, call *CallInfo, err error, d time.Duration) {
	if err != nil {
		m.callsFailed.Add(1)
		return
	}
	m.callsCompleted.Add(1)
	m.totalCallDuration.Add(d.Nanoseconds())
}

func (m *BasicMetrics) OnTimeout(ctx context.Context, inFlight int) {
	m.timeouts.Add(1)
}

func (m *BasicMetrics) OnRecovery(ctx context.Context, retried int) {
	m.retries.Add(int64(retried))
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.callsStarted.Load()
	completed := m.callsCompleted.Load()
	failed := m.callsFailed.Load()
	totalNs := m.totalCallDuration.Load()

	var avg time.Duration
	if completed > 0 {
		avg = time.Duration(totalNs / completed)
	}

	return BasicMetricsSnapshot{
		CallsStarted:    started,
		CallsCompleted:  completed,
		CallsFailed:     failed,
		InFlight:        started - completed - failed,
		Timeouts:        m.timeouts.Load(),
		Retries:         m.retries.Load(),
		AvgCallDuration: avg,
	}
}
