package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/petrijr/recall/pkg/api"
)

// Timing used across the engine tests: a fine tick with deadlines a few
// ticks apart, so a full timeout cycle takes well under a second.
const (
	testResolution = 5 * time.Millisecond
	testSpinner    = 60 * time.Millisecond
	testPopup      = 120 * time.Millisecond
)

type fakeIndicator struct {
	mu      sync.Mutex
	shows   int
	hides   int
	visible bool
}

func (f *fakeIndicator) Show(owner string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shows++
	f.visible = true
}

func (f *fakeIndicator) Hide(owner string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hides++
	f.visible = false
}

func (f *fakeIndicator) snapshot() (shows, hides int, visible bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shows, f.hides, f.visible
}

type fakeResolver struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
}

func (f *fakeResolver) Resolve(ctx context.Context, blocking bool) error {
	f.mu.Lock()
	f.calls++
	ch := f.release
	f.mu.Unlock()

	if !blocking || ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeResolver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingObserver struct {
	api.NoopObserver

	mu          sync.Mutex
	transitions []string
	timeouts    int
	recoveries  int
}

func (r *recordingObserver) OnStateChange(ctx context.Context, from, to api.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, string(from)+">"+string(to))
}

func (r *recordingObserver) OnTimeout(ctx context.Context, inFlight int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeouts++
}

func (r *recordingObserver) OnRecovery(ctx context.Context, retried int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recoveries++
}

func (r *recordingObserver) snapshot() (transitions []string, timeouts, recoveries int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.transitions...), r.timeouts, r.recoveries
}

type recordingSink struct {
	mu        sync.Mutex
	userData  int
	resources int
}

func (s *recordingSink) ApplyUserData(payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userData++
}

func (s *recordingSink) ApplyResources(payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources++
}

func (s *recordingSink) snapshot() (userData, resources int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userData, s.resources
}

func newTestEngine(t *testing.T, cfg api.Config) api.Engine {
	t.Helper()

	if cfg.Resolution == 0 {
		cfg.Resolution = testResolution
	}
	if cfg.Deadlines == nil {
		cfg.Deadlines = api.StaticDeadlines{Spinner: testSpinner, Popup: testPopup}
	}
	eng, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(eng.Close)
	return eng
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

func TestNew_RequiresTransport(t *testing.T) {
	if _, err := New(api.Config{}, nil); err == nil {
		t.Fatalf("expected error for missing transport")
	}
}

func TestCall_FastSuccess(t *testing.T) {
	ind := &fakeIndicator{}
	obs := &recordingObserver{}
	eng := newTestEngine(t, api.Config{
		Transport: api.TransportFunc(func(ctx context.Context, req *api.Request) (*api.Response, error) {
			return &api.Response{Payload: "ok"}, nil
		}),
		Indicator: ind,
		Observer:  obs,
	})

	resp, err := eng.Call(context.Background(), &api.Request{Type: "fetch", Spinner: api.SpinnerAfterTimeout})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if resp.Payload != "ok" {
		t.Fatalf("expected payload ok, got %v", resp.Payload)
	}

	waitFor(t, time.Second, func() bool { return eng.State() == api.StatusIdle }, "engine should return to idle")
	if eng.InFlight() != 0 {
		t.Fatalf("expected 0 in flight, got %d", eng.InFlight())
	}

	// A fast deferred-spinner call must never have shown the indicator.
	shows, _, visible := ind.snapshot()
	if shows != 0 || visible {
		t.Fatalf("indicator should never have been shown (shows=%d visible=%v)", shows, visible)
	}
}

func TestCall_InstantSpinnerShowsAndHides(t *testing.T) {
	ind := &fakeIndicator{}
	release := make(chan struct{})
	eng := newTestEngine(t, api.Config{
		Transport: api.TransportFunc(func(ctx context.Context, req *api.Request) (*api.Response, error) {
			<-release
			return &api.Response{}, nil
		}),
		Indicator: ind,
	})

	done := make(chan error, 1)
	go func() {
		_, err := eng.Call(context.Background(), &api.Request{Type: "save", Spinner: api.SpinnerInstant})
		done <- err
	}()

	waitFor(t, time.Second, func() bool {
		_, _, visible := ind.snapshot()
		return visible
	}, "instant spinner should show while the call runs")

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		_, _, visible := ind.snapshot()
		return !visible && eng.State() == api.StatusIdle
	}, "indicator should hide and engine go idle after completion")
}

func TestCall_DeferredSpinnerShowsAfterDeadline(t *testing.T) {
	ind := &fakeIndicator{}
	release := make(chan struct{})
	eng := newTestEngine(t, api.Config{
		Transport: api.TransportFunc(func(ctx context.Context, req *api.Request) (*api.Response, error) {
			select {
			case <-release:
				return &api.Response{}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}),
		Indicator: ind,
	})

	done := make(chan error, 1)
	go func() {
		_, err := eng.Call(context.Background(), &api.Request{Type: "load", Spinner: api.SpinnerAfterTimeout})
		done <- err
	}()

	// Shortly after dispatch the indicator must still be hidden.
	time.Sleep(testSpinner / 3)
	if _, _, visible := ind.snapshot(); visible {
		t.Fatalf("deferred spinner should not be visible before the spinner deadline")
	}

	waitFor(t, time.Second, func() bool {
		_, _, visible := ind.snapshot()
		return visible
	}, "deferred spinner should show once the spinner deadline elapses")

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Call failed: %v", err)
	}
}

func TestCall_ValidatesRequest(t *testing.T) {
	eng := newTestEngine(t, api.Config{
		Transport: api.TransportFunc(func(ctx context.Context, req *api.Request) (*api.Response, error) {
			return &api.Response{}, nil
		}),
	})

	if _, err := eng.Call(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil request")
	}
	if _, err := eng.Call(context.Background(), &api.Request{}); err == nil {
		t.Fatalf("expected error for empty call type")
	}
}

func TestCall_ServerFaultResolvesCaller(t *testing.T) {
	obs := &recordingObserver{}
	eng := newTestEngine(t, api.Config{
		Transport: api.TransportFunc(func(ctx context.Context, req *api.Request) (*api.Response, error) {
			return nil, api.NewServerFault("E17", "validation rejected")
		}),
		Observer: obs,
	})

	_, err := eng.Call(context.Background(), &api.Request{Type: "submit"})
	if err == nil {
		t.Fatalf("expected a server fault")
	}
	fault, ok := api.IsServerFault(err)
	if !ok || fault.Code != "E17" {
		t.Fatalf("expected fault E17, got %v", err)
	}

	// The fault short-circuits into ERROR, then the drained registry
	// settles the engine back to IDLE.
	waitFor(t, time.Second, func() bool { return eng.State() == api.StatusIdle }, "engine should drain to idle after fault")

	transitions, _, _ := obs.snapshot()
	sawError := false
	for _, tr := range transitions {
		if tr == "PROCESSING>ERROR" {
			sawError = true
		}
	}
	if !sawError {
		t.Fatalf("expected a PROCESSING>ERROR transition, got %v", transitions)
	}
}

func TestCall_CallerContextCancellation(t *testing.T) {
	started := make(chan struct{})
	eng := newTestEngine(t, api.Config{
		Transport: api.TransportFunc(func(ctx context.Context, req *api.Request) (*api.Response, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := eng.Call(ctx, &api.Request{Type: "slow"})
		done <- err
	}()

	<-started
	cancel()

	if err := <-done; err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	waitFor(t, time.Second, func() bool {
		return eng.InFlight() == 0 && eng.State() == api.StatusIdle
	}, "abandoned call should leave the engine idle")
}

func TestClose_ResolvesPendingCallers(t *testing.T) {
	started := make(chan struct{})
	eng, err := New(api.Config{
		Transport: api.TransportFunc(func(ctx context.Context, req *api.Request) (*api.Response, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}),
		Resolution: testResolution,
		Deadlines:  api.StaticDeadlines{Spinner: time.Minute, Popup: time.Minute},
	}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := eng.Call(context.Background(), &api.Request{Type: "hang"})
		done <- err
	}()

	<-started
	eng.Close()

	if err := <-done; err != api.ErrEngineClosed {
		t.Fatalf("expected ErrEngineClosed, got %v", err)
	}
	if _, err := eng.Call(context.Background(), &api.Request{Type: "late"}); err != api.ErrEngineClosed {
		t.Fatalf("expected ErrEngineClosed for calls after Close, got %v", err)
	}
}

func TestCall_ForwardsStateUpdatesBeforeReturning(t *testing.T) {
	sink := &recordingSink{}
	eng := newTestEngine(t, api.Config{
		Transport: api.TransportFunc(func(ctx context.Context, req *api.Request) (*api.Response, error) {
			return &api.Response{UserData: "fresh", Resources: []string{"a", "b"}}, nil
		}),
		Sink: sink,
	})

	if _, err := eng.Call(context.Background(), &api.Request{Type: "sync"}); err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	// Updates are applied before the caller resumes, so no wait here.
	userData, resources := sink.snapshot()
	if userData != 1 || resources != 1 {
		t.Fatalf("expected one user-data and one resources update, got %d/%d", userData, resources)
	}
}

func TestEffectiveSpinner_MergesAndResets(t *testing.T) {
	var inFlight atomic.Int32
	release := make(chan struct{})
	eng := newTestEngine(t, api.Config{
		Transport: api.TransportFunc(func(ctx context.Context, req *api.Request) (*api.Response, error) {
			inFlight.Add(1)
			select {
			case <-release:
				return &api.Response{}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}),
	})

	var wg sync.WaitGroup
	for _, mode := range []api.SpinnerMode{api.SpinnerInvisible, api.SpinnerInstant, api.SpinnerAfterTimeout} {
		wg.Add(1)
		go func(mode api.SpinnerMode) {
			defer wg.Done()
			_, _ = eng.Call(context.Background(), &api.Request{Type: "m", Spinner: mode})
		}(mode)
	}

	waitFor(t, time.Second, func() bool { return inFlight.Load() == 3 }, "all calls should be in flight")

	// The merged mode is the strongest requested one, and completions of
	// weaker calls never lower it.
	if got := eng.EffectiveSpinner(); got != api.SpinnerInstant {
		t.Fatalf("expected merged spinner INSTANT, got %v", got)
	}

	close(release)
	wg.Wait()

	waitFor(t, time.Second, func() bool { return eng.State() == api.StatusIdle }, "engine should go idle")
	if got := eng.EffectiveSpinner(); got != api.SpinnerInvisible {
		t.Fatalf("expected spinner reset to INVISIBLE after drain, got %v", got)
	}
}
