package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/recall/internal/taskqueue"
	"github.com/petrijr/recall/pkg/api"
)

// Worker pulls queued dispatches from a Queue and executes them on an
// Engine's detached path.
type Worker struct {
	engine api.Engine
	queue  taskqueue.Queue
}

// New creates a new Worker.
func New(engine api.Engine, queue taskqueue.Queue) *Worker {
	return &Worker{
		engine: engine,
		queue:  queue,
	}
}

// EnqueueCall enqueues req for background dispatch. It does NOT perform the
// call itself; that is done by ProcessOne. Requests with a transaction
// family are rejected up front, since the detached path cannot serialize
// them.
func (w *Worker) EnqueueCall(ctx context.Context, req *api.Request) error {
	if req == nil {
		return errors.New("request is required")
	}
	if req.Family != "" {
		return api.ErrSerializedDetached
	}
	t := taskqueue.Task{
		ID:         uuid.NewString(),
		Type:       taskqueue.TaskTypeDispatchCall,
		Request:    req,
		EnqueuedAt: time.Now(),
	}
	return w.queue.Enqueue(ctx, t)
}

// ProcessOne pulls a single task from the queue and dispatches it.
// Returns (processed, error):
//   - processed == false, err != nil: nothing processed (ctx cancelled
//     before a task was obtained, or the dequeue failed)
//   - processed == true: a task was processed; err indicates whether the
//     dispatch succeeded.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	task, err := w.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}

	switch task.Type {
	case taskqueue.TaskTypeDispatchCall:
		_, callErr := w.engine.CallDetached(ctx, task.Request)
		return true, callErr

	default:
		// Unknown task type; mark as processed but return an error so this isn't silently ignored.
		return true, errors.New("unknown task type: " + string(task.Type))
	}
}
