package recall

import (
	"context"
	"database/sql"
	"sync"

	"github.com/petrijr/recall/internal/engine"
	"github.com/petrijr/recall/internal/journal"
	"github.com/petrijr/recall/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Engine               = api.Engine
	Config               = api.Config
	Request              = api.Request
	Response             = api.Response
	RetryPolicy          = api.RetryPolicy
	Status               = api.Status
	SpinnerMode          = api.SpinnerMode
	ConnectivityState    = api.ConnectivityState
	CallInfo             = api.CallInfo
	CallEvent            = api.CallEvent
	Transport            = api.Transport
	TransportFunc        = api.TransportFunc
	ConnectivityResolver = api.ConnectivityResolver
	Indicator            = api.Indicator
	StateSink            = api.StateSink
	DeadlineSource       = api.DeadlineSource
	StaticDeadlines      = api.StaticDeadlines
	DeadlineFunc         = api.DeadlineFunc
	ServerFaultError     = api.ServerFaultError
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
)

// Re-export common helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
	NewServerFault       = api.NewServerFault
	IsServerFault        = api.IsServerFault

	ErrSerializedDetached = api.ErrSerializedDetached
	ErrEngineClosed       = api.ErrEngineClosed
)

// Re-export enum values for convenience.

const (
	StatusIdle       = api.StatusIdle
	StatusProcessing = api.StatusProcessing
	StatusTimedOut   = api.StatusTimedOut
	StatusError      = api.StatusError

	SpinnerInvisible    = api.SpinnerInvisible
	SpinnerAfterTimeout = api.SpinnerAfterTimeout
	SpinnerInstant      = api.SpinnerInstant

	ConnectivityReachable   = api.ConnectivityReachable
	ConnectivityDegraded    = api.ConnectivityDegraded
	ConnectivityUnreachable = api.ConnectivityUnreachable
)

// Engine constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewEngine returns an Engine that keeps no call-event history.
func NewEngine(cfg Config) (Engine, error) {
	return engine.New(cfg, journal.NoopStore{})
}

// NewInMemoryEngine returns an Engine whose call-event journal lives
// entirely in process memory.
func NewInMemoryEngine(cfg Config) (Engine, error) {
	return engine.New(cfg, journal.NewMemoryStore())
}

// NewSQLiteEngine returns an Engine that journals call events in a SQLite
// database, surviving engine restarts for audit and debugging.
func NewSQLiteEngine(db *sql.DB, cfg Config) (Engine, error) {
	store, err := journal.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	return engine.New(cfg, store)
}

// Convenience helpers that forward to the underlying Engine.

// Call dispatches a resilient call and blocks until it concludes.
func Call(ctx context.Context, eng Engine, req *Request) (*Response, error) {
	return eng.Call(ctx, req)
}

// CallDetached dispatches a best-effort call outside timeout escalation.
func CallDetached(ctx context.Context, eng Engine, req *Request) (*Response, error) {
	return eng.CallDetached(ctx, req)
}

// CallAll dispatches all requests concurrently on eng and waits for every
// one of them. Results and errors are returned in request order. The calls
// share the engine's escalation cycle, so a timeout suspends and later
// retries the whole batch together.
func CallAll(ctx context.Context, eng Engine, reqs ...*Request) ([]*Response, error) {
	resps := make([]*Response, len(reqs))
	errs := make([]error, len(reqs))

	var wg sync.WaitGroup
	wg.Add(len(reqs))
	for i, req := range reqs {
		go func(i int, req *Request) {
			defer wg.Done()
			resps[i], errs[i] = eng.Call(ctx, req)
		}(i, req)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return resps, err
		}
	}
	return resps, nil
}
