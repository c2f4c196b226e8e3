package engine

import (
	"testing"

	"github.com/petrijr/recall/pkg/api"
)

func TestSpinnerArbiter_RaiseMergesUpward(t *testing.T) {
	var s spinnerArbiter

	if show := s.raise(api.SpinnerInvisible); show {
		t.Fatalf("invisible request should not show")
	}
	if show := s.raise(api.SpinnerAfterTimeout); show {
		t.Fatalf("deferred request should not show before the phase elapses")
	}
	if s.effective != api.SpinnerAfterTimeout {
		t.Fatalf("expected effective AFTER_TIMEOUT, got %v", s.effective)
	}

	if show := s.raise(api.SpinnerInstant); !show {
		t.Fatalf("instant request should show immediately")
	}
	if s.effective != api.SpinnerInstant {
		t.Fatalf("expected effective INSTANT, got %v", s.effective)
	}

	// A weaker mode arriving later never lowers the merged mode.
	s.raise(api.SpinnerInvisible)
	if s.effective != api.SpinnerInstant {
		t.Fatalf("effective mode lowered by a weaker request: %v", s.effective)
	}
}

func TestSpinnerArbiter_PhaseElapsed(t *testing.T) {
	var s spinnerArbiter

	s.raise(api.SpinnerAfterTimeout)
	if show := s.phaseElapsed(); !show {
		t.Fatalf("deferred spinner should show when the phase elapses")
	}
	if !s.visible {
		t.Fatalf("arbiter should track visibility")
	}

	// An invisible-only merge stays hidden even after the phase.
	var quiet spinnerArbiter
	quiet.raise(api.SpinnerInvisible)
	if show := quiet.phaseElapsed(); show {
		t.Fatalf("invisible merge must never show")
	}
}

func TestSpinnerArbiter_HideKeepsEffectiveMode(t *testing.T) {
	var s spinnerArbiter

	s.raise(api.SpinnerInstant)
	if wasVisible := s.hide(); !wasVisible {
		t.Fatalf("hide should report prior visibility")
	}
	if s.effective != api.SpinnerInstant {
		t.Fatalf("hide must not lower the effective mode, got %v", s.effective)
	}
}

func TestSpinnerArbiter_ForceAndReset(t *testing.T) {
	var s spinnerArbiter

	s.raise(api.SpinnerAfterTimeout)
	if show := s.force(api.SpinnerInstant); !show {
		t.Fatalf("forcing INSTANT should show")
	}

	if wasVisible := s.reset(); !wasVisible {
		t.Fatalf("reset should report prior visibility")
	}
	if s.effective != api.SpinnerInvisible || s.visible || s.spinnerElapsed {
		t.Fatalf("reset should restore the zero state: %+v", s)
	}
}

func TestFamilyLocks_AcquireRelease(t *testing.T) {
	l := newFamilyLocks()

	if !l.tryAcquire("billing") {
		t.Fatalf("first acquire should succeed")
	}
	if l.tryAcquire("billing") {
		t.Fatalf("second acquire of a held family should fail")
	}
	if !l.tryAcquire("profile") {
		t.Fatalf("distinct families must not contend")
	}

	l.release("billing")
	if !l.tryAcquire("billing") {
		t.Fatalf("acquire after release should succeed")
	}
}
