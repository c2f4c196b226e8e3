package taskqueue

import (
	"context"
	"time"

	"github.com/petrijr/recall/pkg/api"
)

// TaskType identifies what the dispatcher should do.
type TaskType string

const (
	TaskTypeDispatchCall TaskType = "dispatch-call"
)

// Task represents one queued dispatch for a background worker.
type Task struct {
	ID   string
	Type TaskType

	// Request is the call to dispatch on the detached path.
	Request *api.Request

	EnqueuedAt time.Time
}

// Queue is a simple async task queue interface.
type Queue interface {
	// Enqueue adds a task to the queue. It should respect ctx for cancellation.
	Enqueue(ctx context.Context, t Task) error

	// Dequeue removes and returns the next task, blocking until one is available
	// or the context is cancelled.
	Dequeue(ctx context.Context) (*Task, error)

	// Len returns the approximate number of tasks queued.
	Len() int
}
