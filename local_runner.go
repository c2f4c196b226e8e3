package recall

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/petrijr/recall/internal/taskqueue"
	"github.com/petrijr/recall/pkg/worker"
)

// LocalRunner bundles an Engine, an in-memory task queue, and a Worker to
// provide a simple runner for background dispatch in a single process.
//
// Typical usage:
//
//	runner, _ := recall.NewLocalRunner(recall.Config{Transport: transport})
//
//	// Synchronous resilient call (no queue/worker involved):
//	resp, err := runner.Engine.Call(ctx, req)
//
//	// Queued background dispatch:
//	_ = runner.StartDispatchers(ctx, 2)
//	_ = runner.CallQueued(ctx, req)
//	...
//	runner.Stop()
type LocalRunner struct {
	// Engine is the orchestration engine used by this runner.
	Engine Engine

	// Queue is the in-memory task queue used by the Worker.
	Queue taskqueue.Queue

	// Worker processes queued dispatches from Queue using Engine.
	Worker *worker.Worker

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewLocalRunner constructs a LocalRunner from cfg, backed by an in-memory
// queue and journal.
//
// This is intended for local development, tests, and simple single-process
// deployments.
func NewLocalRunner(cfg Config) (*LocalRunner, error) {
	eng, err := NewInMemoryEngine(cfg)
	if err != nil {
		return nil, err
	}
	q := taskqueue.NewInMemoryQueue(1024)
	w := worker.New(eng, q)

	return &LocalRunner{
		Engine: eng,
		Queue:  q,
		Worker: w,
	}, nil
}

// StartDispatchers starts 'concurrency' worker goroutines that continuously
// call Worker.ProcessOne(ctx) until the context is cancelled via Stop.
//
// If StartDispatchers is called more than once without Stop, it returns an
// error.
func (r *LocalRunner) StartDispatchers(ctx context.Context, concurrency int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("recall: LocalRunner already started")
	}

	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer r.wg.Done()

			for {
				processed, err := r.Worker.ProcessOne(ctx)
				if err != nil {
					// For local runner we treat cancellation as a clean shutdown signal.
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return
					}
					// For other errors, log and keep going so a single bad task
					// doesn't kill the dispatcher loop.
					log.Printf("recall: local runner dispatcher error: %v", err)
					continue
				}
				if !processed {
					// This only happens if ctx was cancelled before a task was obtained.
					// Loop will exit on next Dequeue when err == context.Canceled.
					continue
				}
			}
		}()
	}

	return nil
}

// Stop cancels all dispatcher goroutines started by StartDispatchers, waits
// for them to exit, and closes the engine.
func (r *LocalRunner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		r.Engine.Close()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
	r.Engine.Close()
}

// CallQueued enqueues req for background dispatch. The call runs when a
// dispatcher picks up the task.
func (r *LocalRunner) CallQueued(ctx context.Context, req *Request) error {
	return r.Worker.EnqueueCall(ctx, req)
}
