// Package worker provides the background worker used to drive queued
// detached dispatches.
//
// Workers consume dispatch tasks from a task queue and execute them on an
// engine's detached best-effort path. They are designed to be lightweight
// and easy to embed in existing services, and multiple workers can safely
// operate on the same queue to scale processing.
//
// Most applications construct workers via helper functions in the recall
// package, which wire engines and queues together with sensible defaults.
// The worker package is useful when implementing custom dispatch behavior
// or new queue backends.
package worker
