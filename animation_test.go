package compositor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitResult(t *testing.T, f *Future) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r, err := f.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("future did not settle")
	}
	return r
}

// finishHostAnimation fires the host's natural-completion callback of the
// i-th scheduled animation.
func finishHostAnimation(t *testing.T, c *Compositor, h *recordingHost, i int) {
	t.Helper()
	onHost(t, c, func() { h.anims[i].finished() })
}

// --- Lifecycle ---

func TestAnimationCompletesOnce(t *testing.T) {
	h := newRecordingHost()
	c := newTestCompositor(t, h)
	n := c.NewNode(NodeSimple)
	defer n.Reset()

	var calls int
	anim := NewPropertyAnimation(PropOpacity, Some(0), Some(1))
	anim.OnCompleted = func() { calls++ }
	added := n.Get().AddAnimation(anim)
	if n.Get().NumAnimations() != 1 {
		t.Errorf("NumAnimations = %d, want 1", n.Get().NumAnimations())
	}
	mustDispatch(t, c)

	if r := waitResult(t, added); r != ResultScheduled {
		t.Fatalf("added = %v, want scheduled", r)
	}
	if !anim.IsPlaying() {
		t.Error("IsPlaying = false after scheduling")
	}
	if !h.anims[0].begun {
		t.Error("host animation should have begun")
	}

	finishHostAnimation(t, c, h, 0)
	finishHostAnimation(t, c, h, 0)

	if r := waitResult(t, anim.Finished()); r != ResultCompleted {
		t.Errorf("Finished = %v, want completed", r)
	}
	var got int
	onHost(t, c, func() { got = calls })
	if got != 1 {
		t.Errorf("OnCompleted calls = %d, want 1", got)
	}
	if n.Get().NumAnimations() != 0 {
		t.Errorf("NumAnimations = %d, want 0 after completion", n.Get().NumAnimations())
	}

	anim.Stop()
	if r := anim.Finished().Result(); r != ResultCompleted {
		t.Errorf("Stop after completion changed result to %v", r)
	}
}

func TestAnimationStopWhilePlaying(t *testing.T) {
	h := newRecordingHost()
	c := newTestCompositor(t, h)
	n := c.NewNode(NodeSimple)
	defer n.Reset()

	var calls atomic.Int32
	anim := NewPropertyAnimation(PropOpacity, Some(0), Some(1))
	anim.OnCompleted = func() { calls.Add(1) }
	n.Get().AddAnimation(anim)
	mustDispatch(t, c)

	anim.Stop()
	if r := waitResult(t, anim.Finished()); r != ResultStopped {
		t.Errorf("Finished = %v, want stopped", r)
	}
	finishHostAnimation(t, c, h, 0)
	if calls.Load() != 0 {
		t.Errorf("OnCompleted calls = %d, want 0", calls.Load())
	}
	var stopped bool
	onHost(t, c, func() { stopped = h.anims[0].stopped })
	if !stopped {
		t.Error("host animation should be stopped")
	}
	anim.Stop()
}

func TestAnimationStopBeforeDispatch(t *testing.T) {
	h := newRecordingHost()
	c := newTestCompositor(t, h)
	n := c.NewNode(NodeSimple)
	defer n.Reset()

	anim := NewPropertyAnimation(PropOpacity, Some(0), Some(1))
	added := n.Get().AddAnimation(anim)
	anim.Stop()
	mustDispatch(t, c)

	if r := added.Result(); r != ResultStopped {
		t.Errorf("added = %v, want stopped", r)
	}
	if countCalls(h.calls, "schedule") != 0 {
		t.Errorf("stopped animation reached the host: %v", h.calls)
	}
}

func TestAnimationAddTwice(t *testing.T) {
	c := newTestCompositor(t, newRecordingHost())
	n := c.NewNode(NodeSimple)
	defer n.Reset()

	anim := NewTransitionAnimation("fade", "")
	n.Get().AddAnimation(anim)
	f := n.Get().AddAnimation(anim)
	if f.Result() != ResultFailed || !errors.Is(f.Err(), ErrAnimationInUse) {
		t.Errorf("second add = %v, %v; want failed, ErrAnimationInUse", f.Result(), f.Err())
	}
	f = anim.AddAnimation(n.Get(), PropOpacity, true, 0, true, 1)
	if !errors.Is(f.Err(), ErrAnimationInUse) {
		t.Errorf("AddAnimation on used animation = %v, want ErrAnimationInUse", f.Err())
	}
}

func TestAnimationHostRejects(t *testing.T) {
	h := newRecordingHost()
	h.rejectProp[PropRotation] = true
	c := newTestCompositor(t, h)
	n := c.NewNode(NodeSimple)
	defer n.Reset()

	var calls int
	anim := NewPropertyAnimation(PropRotation, Some(0), Some(1))
	anim.OnCompleted = func() { calls++ }
	added := n.Get().AddAnimation(anim)
	mustDispatch(t, c)

	if r := waitResult(t, added); r != ResultFailed {
		t.Fatalf("added = %v, want failed", r)
	}
	if !errors.Is(added.Err(), ErrUnsupportedProperty) {
		t.Errorf("Err = %v, want ErrUnsupportedProperty", added.Err())
	}
	if r := anim.Finished().Result(); r != ResultFailed {
		t.Errorf("Finished = %v, want failed", r)
	}
	if calls != 0 || n.Get().NumAnimations() != 0 {
		t.Errorf("calls = %d, NumAnimations = %d; want 0, 0", calls, n.Get().NumAnimations())
	}
}

func TestAnimationUnknownTransition(t *testing.T) {
	c := newTestCompositor(t, newRecordingHost())
	n := c.NewNode(NodeSimple)
	defer n.Reset()

	anim := NewPropertyAnimation(PropOpacity, Some(0), Some(1))
	added := anim.AddTransitionAnimation(n.Get(), "bogus", "")
	mustDispatch(t, c)
	if r := waitResult(t, added); r != ResultFailed || !errors.Is(added.Err(), ErrUnknownTransition) {
		t.Errorf("added = %v, %v; want failed, ErrUnknownTransition", r, added.Err())
	}
}

func TestAnimationNodeDestroyStops(t *testing.T) {
	c := newTestCompositor(t, newRecordingHost())
	n := c.NewNode(NodeSimple)

	anim := NewTransitionAnimation("fade", "")
	n.Get().AddAnimation(anim)
	mustDispatch(t, c)
	n.Reset()

	if r := waitResult(t, anim.Finished()); r != ResultStopped {
		t.Errorf("Finished = %v, want stopped", r)
	}
}

// --- Host description ---

func TestAnimationEndpointsFromPresentation(t *testing.T) {
	h := newRecordingHost()
	c := newTestCompositor(t, h)
	n := c.NewNode(NodeSimple)
	defer n.Reset()
	n.Get().SetProperty(PropOpacity, 0.4)
	mustDispatch(t, c)

	anim := newAnimation()
	anim.AddAnimation(n.Get(), PropOpacity, false, 0, true, 1)
	mustDispatch(t, c)

	spec := h.anims[0].spec
	if spec.Property != PropOpacity || spec.From != 0.4 || spec.To != 1 {
		t.Errorf("spec = %s %v->%v, want %s 0.4->1", spec.Property, spec.From, spec.To, PropOpacity)
	}
}

func TestAnimationTimingCaptured(t *testing.T) {
	h := newRecordingHost()
	c := newTestCompositor(t, h)
	n := c.NewNode(NodeSimple)
	defer n.Reset()

	anim := NewTransitionAnimation("moveIn", "fromTop")
	anim.BeginTime = 0.5
	anim.Duration = 2
	anim.AutoReverse = true
	anim.RepeatCount = 3
	anim.Speed = 2
	anim.Easing = EaseOut
	n.Get().AddAnimation(anim)
	mustDispatch(t, c)

	spec := h.anims[0].spec
	want := AnimationTiming{BeginTime: 0.5, Duration: 2, AutoReverse: true, RepeatCount: 3, Speed: 2, Easing: EaseOut}
	if spec.Timing != want {
		t.Errorf("Timing = %+v, want %+v", spec.Timing, want)
	}
	if spec.Transition != "moveIn" || spec.Subtype != "fromTop" {
		t.Errorf("transition = %s/%s, want moveIn/fromTop", spec.Transition, spec.Subtype)
	}
}

func TestEasingString(t *testing.T) {
	tests := []struct {
		e    Easing
		want string
	}{
		{EaseDefault, "default"},
		{EaseInEaseOut, "easeInEaseOut"},
		{EaseIn, "easeIn"},
		{EaseOut, "easeOut"},
		{EaseLinear, "linear"},
		{Easing(42), "Easing(42)"},
	}
	for _, tt := range tests {
		if got := tt.e.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

// --- Scene-driven playback ---

func TestAnimationCompletesOnSceneTick(t *testing.T) {
	scene := NewScene()
	c := newTestCompositor(t, scene)
	n := c.NewNode(NodeSimple)
	defer n.Reset()

	done := make(chan struct{})
	anim := NewPropertyAnimation(PropPositionX, Some(0), Some(100))
	anim.Duration = 0.5
	anim.Easing = EaseLinear
	anim.OnCompleted = func() { close(done) }
	n.Get().AddAnimation(anim)
	mustDispatch(t, c)

	if err := c.Tick(0.25); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if got := n.Get().GetPresentationPropertyValue(PropPositionX); got < 49 || got > 51 {
		t.Errorf("halfway x = %v, want ~50", got)
	}
	if err := c.Tick(0.5); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("OnCompleted not called")
	}
	if got := n.Get().GetPresentationPropertyValue(PropPositionX); got != 100 {
		t.Errorf("final x = %v, want 100", got)
	}
	if r := anim.Finished().Result(); r != ResultCompleted {
		t.Errorf("Finished = %v, want completed", r)
	}
}

func TestAnimationStopCompletionRace(t *testing.T) {
	scene := NewScene()
	c := newTestCompositor(t, scene)
	n := c.NewNode(NodeSimple)
	defer n.Reset()

	for i := 0; i < 50; i++ {
		var calls atomic.Int32
		anim := NewPropertyAnimation(PropOpacity, Some(0), Some(1))
		anim.Duration = 0.01
		anim.OnCompleted = func() { calls.Add(1) }
		n.Get().AddAnimation(anim)
		mustDispatch(t, c)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			anim.Stop()
		}()
		go func() {
			defer wg.Done()
			_ = c.Tick(1)
		}()
		wg.Wait()

		switch r := waitResult(t, anim.Finished()); r {
		case ResultCompleted:
			if calls.Load() != 1 {
				t.Fatalf("iteration %d: completed with %d OnCompleted calls", i, calls.Load())
			}
		case ResultStopped:
			if calls.Load() != 0 {
				t.Fatalf("iteration %d: stopped but OnCompleted ran %d times", i, calls.Load())
			}
		default:
			t.Fatalf("iteration %d: Finished = %v", i, r)
		}
	}
}
