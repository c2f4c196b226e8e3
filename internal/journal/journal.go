package journal

import (
	"context"

	"github.com/petrijr/recall/pkg/api"
)

// EventStore is an append-only history store for call lifecycle events.
//
// The engine only ever appends; reading back is for diagnostics and tests.
// Engine behavior never depends on journal contents.
type EventStore interface {
	AppendEvent(ctx context.Context, ev api.CallEvent) error

	// ListEvents returns events for the given call in append order.
	// callID 0 selects engine-level events; use ListAll for everything.
	ListEvents(ctx context.Context, callID uint64) ([]api.CallEvent, error)

	// ListAll returns every recorded event in append order.
	ListAll(ctx context.Context) ([]api.CallEvent, error)
}

// NoopStore discards all events.
type NoopStore struct{}

func (NoopStore) AppendEvent(ctx context.Context, ev api.CallEvent) error { return nil }
func (NoopStore) ListEvents(ctx context.Context, callID uint64) ([]api.CallEvent, error) {
	return nil, nil
}
func (NoopStore) ListAll(ctx context.Context) ([]api.CallEvent, error) { return nil, nil }
