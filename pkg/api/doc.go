// Package api contains the core building blocks used by the recall call
// orchestration engine. It provides the low-level primitives for describing
// remote calls, wiring collaborators, and observing engine behavior.
//
// Most users interact with the higher-level recall package, which re-exports
// selected types and helpers from this package. The api package is intended
// for advanced use cases, custom integrations, or contributors extending the
// engine itself.
//
// # Concepts
//
// The api package centers around a small set of concepts:
//
//   - Call requests and responses
//   - Collaborator interfaces
//   - Engine state and spinner modes
//   - Observability
//
// # Requests and Responses
//
// A Request describes one logical remote call: its type, optional
// transaction family, parameters, and spinner preference. The engine keeps
// the request itself as the retry record, so call data remains
// introspectable rather than hidden behind a stored closure.
//
// A Response carries the parsed result plus two optional app-state fields.
// When present, those fields are forwarded to the configured StateSink
// before the response reaches the caller.
//
// # Collaborators
//
// The engine owns only the orchestration state machine. Everything at its
// boundary is an interface defined here:
//
//   - Transport performs the remote call.
//   - ConnectivityResolver confirms connectivity after a declared timeout.
//   - Indicator presents the loading indicator, keyed by a claim token.
//   - StateSink applies user-data and resource updates from responses.
//   - DeadlineSource supplies the spinner and popup deadlines, re-read
//     whenever a new call arrives mid-cycle.
//
// No-op implementations are provided for each optional collaborator, so a
// minimal configuration only needs a Transport.
//
// # Engine State
//
// Status tracks the engine's escalation state machine: Idle, Processing,
// TimedOut, and Error. SpinnerMode values are ordered, and the effective
// mode is the maximum requested by contributing calls.
//
// # Observability
//
// The api package defines the Observer interface, which the engine uses to
// report call and state-machine lifecycle events.
//
// Observers can be used to:
//
//   - Log call starts, completions, timeouts, and recoveries
//   - Collect metrics (e.g. counts, latencies, error rates)
//   - Integrate with external monitoring systems
//
// The recall package exposes ready-made implementations such as logging and
// basic in-memory metrics, along with helpers to combine multiple observers.
//
// # Usage
//
// Most applications should start from the recall package, using the engine
// constructors and CallBuilder provided there. The api package is useful
// when you need lower-level access, custom collaborators, or when
// contributing changes to the core engine.
//
// See the recall package documentation and the examples directory for
// end-to-end usage.
package api
