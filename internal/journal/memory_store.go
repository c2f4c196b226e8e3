package journal

import (
	"context"
	"sync"
	"time"

	"github.com/petrijr/recall/pkg/api"
)

// MemoryStore is a simple, goroutine-safe EventStore backed by a slice.
type MemoryStore struct {
	mu     sync.RWMutex
	events []api.CallEvent
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Ensure MemoryStore implements the interface.
var _ EventStore = (*MemoryStore)(nil)

func (s *MemoryStore) AppendEvent(ctx context.Context, ev api.CallEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, ev)
	return nil
}

func (s *MemoryStore) ListEvents(ctx context.Context, callID uint64) ([]api.CallEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []api.CallEvent
	for _, ev := range s.events {
		if ev.CallID == callID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]api.CallEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]api.CallEvent, len(s.events))
	copy(out, s.events)
	return out, nil
}
