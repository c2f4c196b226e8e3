// Package recall provides a resilient remote-call orchestration engine
// for Go clients that must stay responsive on unreliable links.
//
// Recall sits between application code and a request/response transport. It
// dispatches calls concurrently, watches them against a two-stage timeout
// ladder, and when the link goes quiet it suspends every in-flight call,
// waits for connectivity to come back, and re-issues all of them without
// the callers ever noticing. It runs fully in Go and integrates cleanly
// into existing codebases.
//
// # Core Concepts
//
// The programming model is intentionally small:
//
//  1. Engine
//  2. CallBuilder
//  3. Transport and collaborators
//  4. Worker
//  5. LocalRunner
//
// # Engine
//
// The Engine is the orchestration core. Every resilient call registers
// with it; the engine tracks the shared escalation countdown, arbitrates
// the loading indicator across concurrent calls, serializes calls that
// share a transaction family, and drives the timeout -> resolve -> retry
// recovery loop. Callers block on Engine.Call and observe only the final
// outcome.
//
// Three dispatch paths exist:
//
//   - Call: resilient, registered, automatically retried after recovery.
//   - CallDetached: best-effort with its own cancellation handle, outside
//     timeout escalation; failures are logged, never surfaced.
//   - CallAsync: CallDetached without blocking the caller.
//
// # CallBuilder
//
// CallBuilder composes requests fluently:
//
//	resp, err := recall.NewCall("submit-order").
//	    WithParams(order).
//	    WithFamily("billing").
//	    WithSpinner(recall.SpinnerInstant).
//	    Dispatch(ctx, engine)
//
// # Transport and Collaborators
//
// The engine is decoupled from any particular wire protocol. Applications
// provide a Transport that performs the actual remote call, and optionally
// a ConnectivityResolver (blocks until the link is usable again after a
// declared timeout), an Indicator (presents the loading state), a
// StateSink (receives app-state updates embedded in responses), and a
// DeadlineSource (supplies the two escalation deadlines; EnvDeadlines
// reads them from the environment).
//
// # Observability
//
// Engine lifecycle is exposed through observers: call start/completion,
// state transitions, timeout declarations, and recovery rounds. Built-in
// observers cover structured logging (LoggingObserver) and counters
// (BasicMetrics); CompositeObserver fans out to several. Engines can
// additionally journal call events in memory or SQLite for audit and
// debugging, see Bundle.
//
// # Worker and LocalRunner
//
// A Worker pulls queued dispatch tasks and executes them on the engine's
// detached path. LocalRunner bundles an engine, an in-memory queue, and a
// worker for single-process deployments.
//
// See the examples directory for complete programs.
package recall
