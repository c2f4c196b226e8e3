package engine

import (
	"context"
	"time"

	"github.com/petrijr/recall/pkg/api"
)

// outcome is a call's final result, delivered to the envelope's channel
// exactly once.
type outcome struct {
	resp *api.Response
	err  error
}

// envelope is the retryable record of one registered call. The request is
// kept verbatim as the replay record; retries re-trigger the envelope
// rather than recreating it.
type envelope struct {
	id  uint64
	req *api.Request

	// attempt is the current attempt epoch. An attempt whose epoch no
	// longer matches has been superseded by a retry and its outcome is
	// discarded. Guarded by the engine mutex.
	attempt int

	registeredAt time.Time

	// done receives the final outcome. Buffered so delivery never blocks
	// on an abandoned caller.
	done      chan outcome
	delivered bool
}

func (e *envelope) info() *api.CallInfo {
	return &api.CallInfo{
		ID:      e.id,
		Type:    e.req.Type,
		Family:  e.req.Family,
		Spinner: e.req.Spinner,
		Attempt: e.attempt,
	}
}

// callRegistry tracks every in-flight resilient call and the cancellation
// handles of their active attempts. All methods assume the engine mutex is
// held; the registry itself has no locking, mirroring the single-scheduler
// ownership of the original design.
type callRegistry struct {
	nextID    uint64
	envelopes map[uint64]*envelope

	// order preserves registration order so recovery re-issues calls
	// first-registered-first.
	order []uint64

	// cancels is the shared cancellation set: one handle per active
	// attempt, all triggered together on a declared timeout.
	cancels map[uint64]context.CancelFunc
}

func newCallRegistry() *callRegistry {
	return &callRegistry{
		envelopes: make(map[uint64]*envelope),
		cancels:   make(map[uint64]context.CancelFunc),
	}
}

// add registers a call and returns its envelope.
func (r *callRegistry) add(req *api.Request) *envelope {
	r.nextID++
	env := &envelope{
		id:           r.nextID,
		req:          req,
		registeredAt: time.Now(),
		done:         make(chan outcome, 1),
	}
	r.envelopes[env.id] = env
	r.order = append(r.order, env.id)
	return env
}

// remove drops a call and its cancellation handle without invoking it.
func (r *callRegistry) remove(id uint64) {
	if _, ok := r.envelopes[id]; !ok {
		return
	}
	delete(r.envelopes, id)
	delete(r.cancels, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *callRegistry) contains(id uint64) bool {
	_, ok := r.envelopes[id]
	return ok
}

func (r *callRegistry) empty() bool { return len(r.envelopes) == 0 }

func (r *callRegistry) size() int { return len(r.envelopes) }

// inOrder returns the registered envelopes first-registered-first.
func (r *callRegistry) inOrder() []*envelope {
	out := make([]*envelope, 0, len(r.order))
	for _, id := range r.order {
		if env, ok := r.envelopes[id]; ok {
			out = append(out, env)
		}
	}
	return out
}

func (r *callRegistry) setCancel(id uint64, cancel context.CancelFunc) {
	r.cancels[id] = cancel
}

// takeCancel removes and returns the cancellation handle for one call.
func (r *callRegistry) takeCancel(id uint64) context.CancelFunc {
	c := r.cancels[id]
	delete(r.cancels, id)
	return c
}

// drainCancels empties the cancellation set and returns the handles so the
// caller can trigger them outside the engine mutex.
func (r *callRegistry) drainCancels() []context.CancelFunc {
	out := make([]context.CancelFunc, 0, len(r.cancels))
	for _, c := range r.cancels {
		out = append(out, c)
	}
	r.cancels = make(map[uint64]context.CancelFunc)
	return out
}

// clear drops every envelope and returns the drained cancellation handles.
func (r *callRegistry) clear() []context.CancelFunc {
	cancels := r.drainCancels()
	r.envelopes = make(map[uint64]*envelope)
	r.order = nil
	return cancels
}
