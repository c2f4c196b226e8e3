package recall

import (
	"context"
	"database/sql"

	"github.com/petrijr/recall/internal/engine"
	"github.com/petrijr/recall/internal/journal"
	"github.com/petrijr/recall/internal/taskqueue"
	workerpkg "github.com/petrijr/recall/pkg/worker"
)

// Bundle wires together an Engine, its call-event journal, and a Worker
// consuming queued detached dispatches.
type Bundle struct {
	Engine Engine
	Worker *workerpkg.Worker

	// queue and events are kept unexported; they are primarily useful for
	// internal inspection and tests. The public API focuses on Engine,
	// Worker, and the Events accessor.
	queue  taskqueue.Queue
	events journal.EventStore
}

// NewSQLiteBundle constructs an Engine + journal + Worker combo journaling
// call events in the provided *sql.DB, so the event history survives
// process restarts.
//
// Typical usage:
//
//	db, _ := sql.Open("sqlite", "file:recall.db?_journal=WAL")
//	bundle, err := recall.NewSQLiteBundle(db, recall.Config{Transport: transport})
//	// dispatch via bundle.Engine, enqueue background work via bundle.Worker
func NewSQLiteBundle(db *sql.DB, cfg Config) (*Bundle, error) {
	store, err := journal.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	return newBundle(cfg, store)
}

// NewInMemoryBundle constructs a bundle whose journal lives in process
// memory. Intended for tests and simple single-process deployments.
func NewInMemoryBundle(cfg Config) (*Bundle, error) {
	return newBundle(cfg, journal.NewMemoryStore())
}

func newBundle(cfg Config, store journal.EventStore) (*Bundle, error) {
	eng, err := engine.New(cfg, store)
	if err != nil {
		return nil, err
	}

	q := taskqueue.NewInMemoryQueue(1024)
	w := workerpkg.New(eng, q)

	return &Bundle{
		Engine: eng,
		Worker: w,
		queue:  q,
		events: store,
	}, nil
}

// Events returns the journaled history for one call, oldest first.
// A zero callID selects engine-level events.
func (b *Bundle) Events(ctx context.Context, callID uint64) ([]CallEvent, error) {
	return b.events.ListEvents(ctx, callID)
}

// AllEvents returns the full journaled history, oldest first.
func (b *Bundle) AllEvents(ctx context.Context) ([]CallEvent, error) {
	return b.events.ListAll(ctx)
}
