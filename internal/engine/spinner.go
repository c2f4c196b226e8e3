package engine

import "github.com/petrijr/recall/pkg/api"

// spinnerArbiter merges per-call visibility preferences into one effective
// decision. The effective mode only ever rises within an escalation cycle;
// it resets to invisible when the engine returns to idle.
//
// All methods assume the engine mutex is held.
type spinnerArbiter struct {
	effective api.SpinnerMode

	// spinnerElapsed records that the current cycle's spinner phase has
	// expired, so late AfterTimeout raises show immediately.
	spinnerElapsed bool

	visible bool
}

// raise merges a requested mode and reports whether the indicator should
// become visible now. The indicator is visible iff the effective mode is
// Instant, or is AfterTimeout and the spinner phase has elapsed.
func (s *spinnerArbiter) raise(requested api.SpinnerMode) (show bool) {
	if requested > s.effective {
		s.effective = requested
	}
	if s.visible {
		return false
	}
	if s.effective == api.SpinnerInstant ||
		(s.effective == api.SpinnerAfterTimeout && s.spinnerElapsed) {
		s.visible = true
		return true
	}
	return false
}

// phaseElapsed marks the spinner phase as expired and reports whether that
// makes the indicator visible.
func (s *spinnerArbiter) phaseElapsed() (show bool) {
	s.spinnerElapsed = true
	if !s.visible && s.effective >= api.SpinnerAfterTimeout {
		s.visible = true
		return true
	}
	return false
}

// force sets the effective mode directly (recovery forces Instant) and
// reports whether the indicator should become visible.
func (s *spinnerArbiter) force(mode api.SpinnerMode) (show bool) {
	if mode > s.effective {
		s.effective = mode
	}
	if !s.visible && s.effective == api.SpinnerInstant {
		s.visible = true
		return true
	}
	return false
}

// hide reports whether the indicator was visible and marks it hidden.
func (s *spinnerArbiter) hide() (wasVisible bool) {
	was := s.visible
	s.visible = false
	return was
}

// reset returns the arbiter to its idle state and reports whether the
// indicator needs hiding.
func (s *spinnerArbiter) reset() (wasVisible bool) {
	was := s.visible
	s.effective = api.SpinnerInvisible
	s.spinnerElapsed = false
	s.visible = false
	return was
}
