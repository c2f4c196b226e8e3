package engine

import (
	"log/slog"
	"time"

	"github.com/petrijr/recall/pkg/api"
)

// phase is one stage of the escalation countdown. configured keeps the
// last value read from the deadline source so that later reads extend
// remaining only by the positive delta.
type phase struct {
	configured time.Duration
	remaining  time.Duration
}

// escalation is the shared countdown for one processing cycle. All calls
// registered during the cycle share it: the clock is never per-call.
type escalation struct {
	phases [2]*phase

	// abort short-circuits the countdown; closing it makes the cycle
	// declare its timeout on the spot. Closed at most once, engine
	// mutex held.
	abort   chan struct{}
	aborted bool
}

func newEscalation(spinner, popup time.Duration) *escalation {
	return &escalation{
		phases: [2]*phase{
			{configured: spinner, remaining: spinner},
			{configured: popup, remaining: popup},
		},
		abort: make(chan struct{}),
	}
}

type phaseResult int

const (
	// phaseExpired means the countdown for this stage reached zero.
	phaseExpired phaseResult = iota
	// phaseDrained means every registered call completed during the stage.
	phaseDrained
	// phaseAborted means the clock was short-circuited while processing.
	phaseAborted
	// phaseExit means the cycle is no longer current and must stop.
	phaseExit
)

// beginCycleLocked installs a fresh escalation cycle from the current
// deadline configuration. Engine mutex held.
func (e *engineImpl) beginCycleLocked() *escalation {
	spinner, popup := e.deadlines.Deadlines()
	c := newEscalation(spinner, popup)
	e.cycle = c
	return c
}

// extendDeadlinesLocked re-reads the deadline source and grows the live
// countdown by any positive configuration delta. Deadlines only ever
// extend mid-cycle; a shrunk configuration takes effect next cycle.
// Engine mutex held.
func (e *engineImpl) extendDeadlinesLocked() {
	c := e.cycle
	if c == nil || c.aborted {
		return
	}
	spinner, popup := e.deadlines.Deadlines()
	for i, configured := range []time.Duration{spinner, popup} {
		ph := c.phases[i]
		if delta := configured - ph.configured; delta > 0 {
			ph.remaining += delta
			ph.configured = configured
		}
	}
}

// abortClockLocked short-circuits the active cycle's countdown. Returns
// whether a live clock was aborted. Engine mutex held.
func (e *engineImpl) abortClockLocked() bool {
	c := e.cycle
	if c == nil || c.aborted {
		return false
	}
	c.aborted = true
	close(c.abort)
	return true
}

// clearCycleLocked detaches c if it is still the current cycle. Engine
// mutex held.
func (e *engineImpl) clearCycleLocked(c *escalation) {
	if e.cycle == c {
		e.cycle = nil
	}
}

// runEscalation drives one processing cycle and its successors: countdown,
// timeout declaration, blocking connectivity resolution, then recovery
// into a fresh cycle, until the registry drains or the engine leaves the
// processing path.
func (e *engineImpl) runEscalation(c *escalation) {
	for {
		if !e.runPhases(c) {
			return
		}
		if !e.declareTimeout(c) {
			return
		}

		// Block until the link is usable again. The resolver owns the
		// wait; a failed resolve is logged and recovery proceeds anyway,
		// letting the next cycle time out again if the link is still bad.
		if err := e.resolver.Resolve(e.baseCtx, true); err != nil {
			if e.baseCtx.Err() != nil {
				return
			}
			e.logger.Warn("connectivity resolve failed", slog.Any("error", err))
		}

		next, ok := e.recoverCalls(c)
		if !ok {
			return
		}
		c = next
	}
}

// runPhases walks the cycle's stages in order. Returns true when the cycle
// ended in a timeout (countdown expired or clock aborted), false when it
// concluded without one.
func (e *engineImpl) runPhases(c *escalation) bool {
	for idx := range c.phases {
		switch e.runPhase(c, idx) {
		case phaseDrained, phaseExit:
			return false
		case phaseAborted:
			return true
		case phaseExpired:
			if idx == 0 {
				e.spinnerPhaseElapsed(c)
			}
		}
	}
	return true
}

// runPhase ticks down one stage at the engine's resolution.
func (e *engineImpl) runPhase(c *escalation, idx int) phaseResult {
	ticker := time.NewTicker(e.resolution)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-c.abort:
			e.mu.Lock()
			if e.closed || e.cycle != c || e.state != api.StatusProcessing {
				e.clearCycleLocked(c)
				e.mu.Unlock()
				e.maybeDrainReset()
				return phaseExit
			}
			e.mu.Unlock()
			return phaseAborted

		case now := <-ticker.C:
			e.mu.Lock()
			if e.closed || e.cycle != c || e.state != api.StatusProcessing {
				e.clearCycleLocked(c)
				e.mu.Unlock()
				e.maybeDrainReset()
				return phaseExit
			}
			if e.registry.empty() {
				e.finishCycleLocked(c)
				return phaseDrained
			}

			ph := c.phases[idx]
			ph.remaining -= now.Sub(last)
			last = now
			expired := ph.remaining <= 0
			e.mu.Unlock()

			if expired {
				return phaseExpired
			}
		}
	}
}

// spinnerPhaseElapsed marks the end of the first stage, which may make a
// deferred indicator claim visible.
func (e *engineImpl) spinnerPhaseElapsed(c *escalation) {
	e.mu.Lock()
	if e.closed || e.cycle != c {
		e.mu.Unlock()
		return
	}
	show := e.spinner.phaseElapsed()
	e.mu.Unlock()

	if show {
		e.indicator.Show(e.claim)
	}
}

// finishCycleLocked concludes a cycle whose registry drained: the engine
// returns to idle and the spinner arbitration resets. Called with the
// engine mutex held; releases it.
func (e *engineImpl) finishCycleLocked(c *escalation) {
	e.clearCycleLocked(c)
	from := e.state
	e.state = api.StatusIdle
	hide := e.spinner.reset()
	cancels := e.registry.clear()
	e.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if hide {
		e.indicator.Hide(e.claim)
	}
	e.observer.OnStateChange(e.baseCtx, from, api.StatusIdle)
	e.appendStateEvent(from, api.StatusIdle)
}

// declareTimeout moves the engine into StatusTimedOut and cancels every
// in-flight attempt. The envelopes stay registered; recovery re-triggers
// them once connectivity is resolved. Returns false when the cycle is no
// longer current.
func (e *engineImpl) declareTimeout(c *escalation) bool {
	e.mu.Lock()
	if e.closed || e.cycle != c || e.state != api.StatusProcessing {
		e.clearCycleLocked(c)
		e.mu.Unlock()
		e.maybeDrainReset()
		return false
	}
	e.state = api.StatusTimedOut
	hide := e.spinner.hide()
	inFlight := e.registry.size()
	cancels := e.registry.drainCancels()
	e.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if hide {
		e.indicator.Hide(e.claim)
	}
	e.logger.Warn("processing timed out", slog.Int("in_flight", inFlight))
	e.observer.OnStateChange(e.baseCtx, api.StatusProcessing, api.StatusTimedOut)
	e.appendStateEvent(api.StatusProcessing, api.StatusTimedOut)
	e.observer.OnTimeout(e.baseCtx, inFlight)
	e.appendEvent(api.CallEvent{Type: api.EventTimeoutDeclared})
	return true
}

// recoverCalls re-issues every still-registered call in registration order
// under a fresh cycle, with immediate indicator visibility for the new
// round. Returns the successor cycle, or false when the cycle is no longer
// current or nothing is left to retry.
func (e *engineImpl) recoverCalls(c *escalation) (*escalation, bool) {
	e.mu.Lock()
	if e.closed || e.cycle != c || e.state != api.StatusTimedOut {
		e.clearCycleLocked(c)
		e.mu.Unlock()
		e.maybeDrainReset()
		return nil, false
	}
	if e.registry.empty() {
		e.finishCycleLocked(c)
		return nil, false
	}

	e.state = api.StatusProcessing
	next := e.beginCycleLocked()
	show := e.spinner.force(api.SpinnerInstant)
	envs := e.registry.inOrder()
	e.mu.Unlock()

	if show {
		e.indicator.Show(e.claim)
	}
	e.observer.OnStateChange(e.baseCtx, api.StatusTimedOut, api.StatusProcessing)
	e.appendStateEvent(api.StatusTimedOut, api.StatusProcessing)
	e.observer.OnRecovery(e.baseCtx, len(envs))
	e.appendEvent(api.CallEvent{Type: api.EventRecovered})
	e.logger.Info("connectivity recovered, retrying calls",
		slog.Int("calls", len(envs)),
	)

	for _, env := range envs {
		e.startAttempt(env)
	}
	return next, true
}
