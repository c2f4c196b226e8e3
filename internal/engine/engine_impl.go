package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/recall/internal/journal"
	"github.com/petrijr/recall/pkg/api"
)

// engineImpl is the orchestration engine. A single mutex guards all mutable
// state; every compound invariant holds at lock boundaries, which renders
// the cooperative-scheduler semantics the engine is specified against.
type engineImpl struct {
	mu       sync.Mutex
	state    api.Status
	registry *callRegistry
	families *familyLocks
	spinner  spinnerArbiter
	cycle    *escalation
	closed   bool

	transport  api.Transport
	resolver   api.ConnectivityResolver
	indicator  api.Indicator
	sink       api.StateSink
	deadlines  api.DeadlineSource
	observer   api.Observer
	events     journal.EventStore
	logger     *slog.Logger
	resolution time.Duration

	// claim identifies this engine instance to collaborators shared by
	// several claimants, such as a busy-indicator with reference counting.
	claim string

	// baseCtx bounds everything the engine spawns; Close cancels it.
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// New constructs an engine from cfg, recording lifecycle events in store.
// Only cfg.Transport is required; every other collaborator has a no-op or
// sensible default.
func New(cfg api.Config, store journal.EventStore) (api.Engine, error) {
	if cfg.Transport == nil {
		return nil, errors.New("transport is required")
	}
	if cfg.Resolver == nil {
		cfg.Resolver = api.NoopResolver{}
	}
	if cfg.Indicator == nil {
		cfg.Indicator = api.NoopIndicator{}
	}
	if cfg.Sink == nil {
		cfg.Sink = api.NoopStateSink{}
	}
	if cfg.Deadlines == nil {
		cfg.Deadlines = api.StaticDeadlines{
			Spinner: api.DefaultSpinnerDeadline,
			Popup:   api.DefaultPopupDeadline,
		}
	}
	if cfg.Observer == nil {
		cfg.Observer = api.NoopObserver{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Resolution <= 0 {
		cfg.Resolution = api.DefaultResolution
	}
	if store == nil {
		store = journal.NoopStore{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &engineImpl{
		state:      api.StatusIdle,
		registry:   newCallRegistry(),
		families:   newFamilyLocks(),
		transport:  cfg.Transport,
		resolver:   cfg.Resolver,
		indicator:  cfg.Indicator,
		sink:       cfg.Sink,
		deadlines:  cfg.Deadlines,
		observer:   cfg.Observer,
		events:     store,
		logger:     cfg.Logger,
		resolution: cfg.Resolution,
		claim:      uuid.NewString(),
		baseCtx:    ctx,
		cancelBase: cancel,
	}, nil
}

func validateRequest(req *api.Request) error {
	if req == nil {
		return errors.New("request is required")
	}
	if req.Type == "" {
		return errors.New("call type is required")
	}
	return nil
}

func (e *engineImpl) Call(ctx context.Context, req *api.Request) (*api.Response, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if req.Family != "" {
		if err := e.acquireFamily(ctx, req.Family); err != nil {
			return nil, err
		}
		// Released when the call concludes, regardless of outcome.
		defer e.releaseFamily(req.Family)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, api.ErrEngineClosed
	}
	env := e.registry.add(req)
	show := e.spinner.raise(req.Spinner)

	var stateChange bool
	if e.state == api.StatusIdle {
		// First call while idle starts a fresh escalation cycle.
		e.state = api.StatusProcessing
		stateChange = true
		go e.runEscalation(e.beginCycleLocked())
	} else if e.cycle != nil {
		// Arrivals mid-cycle re-read configuration and extend, never
		// reset, the live countdown.
		e.extendDeadlinesLocked()
	}
	info := env.info()
	e.mu.Unlock()

	if show {
		e.indicator.Show(e.claim)
	}
	if stateChange {
		e.observer.OnStateChange(ctx, api.StatusIdle, api.StatusProcessing)
		e.appendStateEvent(api.StatusIdle, api.StatusProcessing)
	}
	e.observer.OnCallStart(ctx, info)
	e.appendEvent(api.CallEvent{
		CallID:   env.id,
		Type:     api.EventCallStarted,
		CallType: req.Type,
		Family:   req.Family,
	})

	e.startAttempt(env)

	select {
	case out := <-env.done:
		return out.resp, out.err
	case <-ctx.Done():
		e.abandon(env)
		return nil, ctx.Err()
	}
}

func (e *engineImpl) CallAsync(req *api.Request) {
	go func() {
		if _, err := e.CallDetached(e.baseCtx, req); err != nil {
			e.logger.Error("async call rejected",
				slog.String("call_type", callTypeOf(req)),
				slog.Any("error", err),
			)
		}
	}()
}

func (e *engineImpl) CallDetached(ctx context.Context, req *api.Request) (*api.Response, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Family != "" {
		return nil, api.ErrSerializedDetached
	}

	// Independent cancellation handle, never part of the shared set.
	dctx, cancel := context.WithCancel(ctx)
	defer cancel()

	maxAttempts := 1
	var (
		backoff    time.Duration
		maxBackoff time.Duration
		multiplier float64
	)
	if req.Retry != nil {
		if req.Retry.MaxAttempts > 0 {
			maxAttempts = req.Retry.MaxAttempts
		}
		backoff = req.Retry.InitialBackoff
		maxBackoff = req.Retry.MaxBackoff
		multiplier = req.Retry.BackoffMultiplier
		if multiplier <= 0 {
			multiplier = 2.0
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := e.transport.Invoke(dctx, req)
		if err == nil {
			e.forwardState(resp)
			return resp, nil
		}

		if api.IsCancellation(err) {
			// Cancellation without an explicit fault upstream: nudge the
			// shared connectivity-fault path, then fall silent.
			e.signalConnectivityFault("detached call cancelled")
			e.logger.Warn("detached call cancelled",
				slog.String("call_type", req.Type),
			)
			return &api.Response{}, nil
		}

		lastErr = err
		if attempt == maxAttempts {
			break
		}

		if backoff > 0 {
			delay := backoff
			if maxBackoff > 0 && delay > maxBackoff {
				delay = maxBackoff
			}
			select {
			case <-dctx.Done():
				e.signalConnectivityFault("detached call cancelled during backoff")
				return &api.Response{}, nil
			case <-time.After(delay):
			}
			next := time.Duration(float64(backoff) * multiplier)
			if maxBackoff > 0 && next > maxBackoff {
				backoff = maxBackoff
			} else {
				backoff = next
			}
		}
	}

	// Silent fault: logged, never surfaced, no recovery flow.
	e.logger.Error("detached call failed",
		slog.String("call_type", req.Type),
		slog.Int("attempts", maxAttempts),
		slog.Any("error", lastErr),
	)
	return &api.Response{}, nil
}

func (e *engineImpl) State() api.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *engineImpl) EffectiveSpinner() api.SpinnerMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.spinner.effective
}

func (e *engineImpl) InFlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.size()
}

func (e *engineImpl) ClaimID() string { return e.claim }

func (e *engineImpl) HandleConnectivityChange(state api.ConnectivityState) {
	switch state {
	case api.ConnectivityDegraded, api.ConnectivityUnreachable:
		e.signalConnectivityFault("connectivity reported " + string(state))
	}
}

func (e *engineImpl) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.cancelBase()
	e.abortClockLocked()

	for _, env := range e.registry.inOrder() {
		e.deliverLocked(env, outcome{err: api.ErrEngineClosed})
	}
	cancels := e.registry.clear()

	from := e.state
	e.state = api.StatusIdle
	hide := e.spinner.reset()
	e.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if hide {
		e.indicator.Hide(e.claim)
	}
	if from != api.StatusIdle {
		e.observer.OnStateChange(context.Background(), from, api.StatusIdle)
	}
}

// acquireFamily waits cooperatively, re-checking once per tick, until the
// family's lock is free. There is no wait deadline of its own: a caller
// starves only if its family never releases, which is a usage error.
func (e *engineImpl) acquireFamily(ctx context.Context, family string) error {
	for {
		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			return api.ErrEngineClosed
		}
		if e.families.tryAcquire(family) {
			e.mu.Unlock()
			return nil
		}
		e.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.baseCtx.Done():
			return api.ErrEngineClosed
		case <-time.After(e.resolution):
		}
	}
}

func (e *engineImpl) releaseFamily(family string) {
	e.mu.Lock()
	e.families.release(family)
	e.mu.Unlock()
}

// startAttempt begins a new transport attempt for env, superseding any
// previous attempt. Outcomes from superseded attempts are discarded by the
// epoch check in runAttempt.
func (e *engineImpl) startAttempt(env *envelope) {
	e.mu.Lock()
	if e.closed || !e.registry.contains(env.id) {
		e.mu.Unlock()
		return
	}
	env.attempt++
	epoch := env.attempt
	actx, cancel := context.WithCancel(e.baseCtx)
	e.registry.setCancel(env.id, cancel)
	e.mu.Unlock()

	if epoch > 1 {
		e.appendEvent(api.CallEvent{
			CallID:   env.id,
			Type:     api.EventCallRetried,
			CallType: env.req.Type,
			Family:   env.req.Family,
			Attempt:  epoch,
		})
	}

	go e.runAttempt(env, epoch, actx, cancel)
}

func (e *engineImpl) runAttempt(env *envelope, epoch int, actx context.Context, cancel context.CancelFunc) {
	resp, err := e.transport.Invoke(actx, env.req)
	cancel()

	e.mu.Lock()
	if env.attempt != epoch || !e.registry.contains(env.id) {
		// Superseded by a retry, or abandoned: discard the outcome.
		e.mu.Unlock()
		return
	}

	switch {
	case err == nil:
		e.registry.remove(env.id)
		info := env.info()
		e.mu.Unlock()

		// App-state updates are forwarded before the caller resumes.
		e.forwardState(resp)

		e.mu.Lock()
		e.deliverLocked(env, outcome{resp: resp})
		e.mu.Unlock()

		d := time.Since(env.registeredAt)
		e.observer.OnCallCompleted(e.baseCtx, info, nil, d)
		e.appendEvent(api.CallEvent{
			CallID:   env.id,
			Type:     api.EventCallCompleted,
			CallType: env.req.Type,
			Family:   env.req.Family,
			Attempt:  epoch,
		})
		e.maybeDrainReset()

	case api.IsCancellation(err):
		// Connectivity fault: the envelope stays registered for retry.
		e.registry.takeCancel(env.id)
		switch e.state {
		case api.StatusProcessing:
			// Spontaneous transport cancellation while the clock runs:
			// fast-path the timeout declaration.
			e.abortClockLocked()
			e.mu.Unlock()
		case api.StatusTimedOut:
			// Engine-initiated abort; recovery will re-trigger this call.
			e.mu.Unlock()
		default:
			// No escalation machinery is active to ever retry this call;
			// resolve the caller instead of leaving it suspended.
			e.registry.remove(env.id)
			e.deliverLocked(env, outcome{err: err})
			e.mu.Unlock()
			e.maybeDrainReset()
		}

	default:
		// Server fault: terminal for this call, short-circuits the
		// timeout ladder.
		e.registry.remove(env.id)
		from := e.state
		e.state = api.StatusError
		hide := e.spinner.hide()
		e.abortClockLocked()
		info := env.info()
		e.deliverLocked(env, outcome{err: err})
		e.mu.Unlock()

		if hide {
			e.indicator.Hide(e.claim)
		}
		e.logger.Error("call faulted",
			slog.Uint64("call_id", env.id),
			slog.String("call_type", env.req.Type),
			slog.Any("error", err),
		)
		if from != api.StatusError {
			e.observer.OnStateChange(e.baseCtx, from, api.StatusError)
			e.appendStateEvent(from, api.StatusError)
		}
		d := time.Since(env.registeredAt)
		e.observer.OnCallCompleted(e.baseCtx, info, err, d)
		e.appendEvent(api.CallEvent{
			CallID:   env.id,
			Type:     api.EventCallFailed,
			CallType: env.req.Type,
			Family:   env.req.Family,
			Attempt:  epoch,
			Detail:   err.Error(),
		})
		e.maybeDrainReset()
	}
}

// abandon removes a call whose caller gave up waiting.
func (e *engineImpl) abandon(env *envelope) {
	e.mu.Lock()
	if env.delivered || !e.registry.contains(env.id) {
		e.mu.Unlock()
		return
	}
	env.delivered = true
	cancel := e.registry.takeCancel(env.id)
	e.registry.remove(env.id)
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.maybeDrainReset()
}

// deliverLocked resolves the caller exactly once. Engine mutex held.
func (e *engineImpl) deliverLocked(env *envelope, out outcome) {
	if env.delivered {
		return
	}
	env.delivered = true
	env.done <- out
}

// maybeDrainReset restores StatusIdle once the registry drains while no
// escalation cycle is active, for instance after a fault resolved the last
// caller. Keeps the invariant that an idle engine has an empty registry and
// an empty cancellation set.
func (e *engineImpl) maybeDrainReset() {
	e.mu.Lock()
	if e.closed || e.cycle != nil || e.state == api.StatusIdle || !e.registry.empty() {
		e.mu.Unlock()
		return
	}
	from := e.state
	e.state = api.StatusIdle
	hide := e.spinner.reset()
	e.mu.Unlock()

	if hide {
		e.indicator.Hide(e.claim)
	}
	e.observer.OnStateChange(context.Background(), from, api.StatusIdle)
	e.appendStateEvent(from, api.StatusIdle)
}

// signalConnectivityFault aborts the active escalation clock, if any,
// which makes the running cycle declare its timeout immediately.
func (e *engineImpl) signalConnectivityFault(reason string) {
	e.mu.Lock()
	aborted := false
	if e.state == api.StatusProcessing {
		aborted = e.abortClockLocked()
	}
	e.mu.Unlock()

	if aborted {
		e.logger.Debug("escalation clock aborted", slog.String("reason", reason))
	}
}

// forwardState inspects a successful response for embedded app-state
// updates and hands them to the sink.
func (e *engineImpl) forwardState(resp *api.Response) {
	if resp == nil {
		return
	}
	if resp.UserData != nil {
		e.sink.ApplyUserData(resp.UserData)
	}
	if resp.Resources != nil {
		e.sink.ApplyResources(resp.Resources)
	}
}

func (e *engineImpl) appendEvent(ev api.CallEvent) {
	if err := e.events.AppendEvent(e.baseCtx, ev); err != nil && e.baseCtx.Err() == nil {
		e.logger.Debug("journal append failed", slog.Any("error", err))
	}
}

func (e *engineImpl) appendStateEvent(from, to api.Status) {
	e.appendEvent(api.CallEvent{
		Type:   api.EventStateChanged,
		Detail: string(from) + " -> " + string(to),
	})
}

func callTypeOf(req *api.Request) string {
	if req == nil {
		return ""
	}
	return req.Type
}
