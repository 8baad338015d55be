package compositor

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrAnimationInUse is returned when an animation that was already added to
// a node is added again.
var ErrAnimationInUse = errors.New("compositor: animation already attached")

// Easing selects the interpolation curve of an animation.
type Easing uint8

const (
	EaseDefault   Easing = iota // host default curve
	EaseInEaseOut               // slow start and end
	EaseIn                      // slow start
	EaseOut                     // slow end
	EaseLinear                  // constant rate
)

func (e Easing) String() string {
	switch e {
	case EaseDefault:
		return "default"
	case EaseInEaseOut:
		return "easeInEaseOut"
	case EaseIn:
		return "easeIn"
	case EaseOut:
		return "easeOut"
	case EaseLinear:
		return "linear"
	default:
		return fmt.Sprintf("Easing(%d)", uint8(e))
	}
}

// OptionalFloat is an animation endpoint. An invalid endpoint means "use the
// property's current presentation value".
type OptionalFloat struct {
	Value float64
	Valid bool
}

// Some returns a valid endpoint.
func Some(v float64) OptionalFloat {
	return OptionalFloat{Value: v, Valid: true}
}

type animationKind uint8

const (
	animProperty animationKind = iota
	animTransition
)

// Animation states. Completed, Stopped and Failed are terminal.
const (
	animConstructed int32 = iota
	animAttached
	animPlaying
	animCompleted
	animStopped
	animFailed
)

// DisplayAnimation describes a timed property interpolation or a named
// transition effect. Configure the timing fields before adding it to a node;
// the values are captured when the host accepts the animation.
//
// A DisplayAnimation plays once. While attached, the target node owns a
// reference to it.
type DisplayAnimation struct {
	RefCounted

	BeginTime      float64 // seconds of delay before playback
	Duration       float64 // seconds per leg
	AutoReverse    bool
	RepeatCount    float64 // total cycles; +Inf repeats forever
	RepeatDuration float64 // seconds; caps total playback when > 0
	Speed          float64 // playback rate; 0 means 1
	TimeOffset     float64 // seconds skipped at the start
	Easing         Easing

	// OnCompleted runs on the host context, exactly once, when playback
	// ends naturally. It never runs after Stop. It must not call methods
	// that wait on the host context (Dispatch, RunOnHost,
	// GetPresentationPropertyValue).
	OnCompleted func()

	kind       animationKind
	property   string
	from, to   OptionalFloat
	transition string
	subtype    string

	state    atomic.Int32
	node     atomic.Pointer[DisplayNode]
	handle   HostAnimation // written on the host context before Playing
	added    *Future
	finished *Future
}

// NewPropertyAnimation creates an interpolation of property between from
// and to. Either endpoint may be left invalid.
func NewPropertyAnimation(property string, from, to OptionalFloat) *DisplayAnimation {
	a := newAnimation()
	a.kind = animProperty
	a.property = property
	a.from, a.to = from, to
	return a
}

// NewTransitionAnimation creates a named transition effect such as
// ("fade", "") or ("moveIn", "fromLeft").
func NewTransitionAnimation(typ, subtype string) *DisplayAnimation {
	a := newAnimation()
	a.kind = animTransition
	a.transition = typ
	a.subtype = subtype
	return a
}

func newAnimation() *DisplayAnimation {
	a := &DisplayAnimation{
		Duration:    0.25,
		RepeatCount: 1,
		Speed:       1,
		added:       newFuture(),
		finished:    newFuture(),
	}
	a.initRef(a.Stop)
	return a
}

// AddAnimation configures a as an interpolation of property and adds it to
// node. Invalid endpoints use the property's presentation value at the time
// the host accepts the animation.
func (a *DisplayAnimation) AddAnimation(node *DisplayNode, property string, fromValid bool, from float64, toValid bool, to float64) *Future {
	if a.state.Load() != animConstructed {
		return settledFuture(ResultFailed, ErrAnimationInUse)
	}
	a.kind = animProperty
	a.property = property
	a.from = OptionalFloat{Value: from, Valid: fromValid}
	a.to = OptionalFloat{Value: to, Valid: toValid}
	return a.AddToNode(node)
}

// AddTransitionAnimation configures a as a named transition and adds it to
// node.
func (a *DisplayAnimation) AddTransitionAnimation(node *DisplayNode, typ, subtype string) *Future {
	if a.state.Load() != animConstructed {
		return settledFuture(ResultFailed, ErrAnimationInUse)
	}
	a.kind = animTransition
	a.transition = typ
	a.subtype = subtype
	return a.AddToNode(node)
}

// AddToNode attaches a to node and queues it for the next dispatch. The
// returned future resolves ResultScheduled once the host has accepted the
// animation into its timeline, ResultFailed if the host rejected it, or
// ResultStopped if a was stopped first.
func (a *DisplayAnimation) AddToNode(node *DisplayNode) *Future {
	if node == nil {
		panic("compositor: cannot add animation to nil node")
	}
	if !a.state.CompareAndSwap(animConstructed, animAttached) {
		return settledFuture(ResultFailed, ErrAnimationInUse)
	}
	a.node.Store(node)
	node.attachAnimation(a)
	node.comp.enqueueAnimation(animationTx{anim: a, node: node})
	return a.added
}

// Start attaches a to node and begins playback at the next dispatch. Use
// Finished to observe the outcome.
func (a *DisplayAnimation) Start(node *DisplayNode) {
	a.AddToNode(node)
}

// Stop cancels playback. If a has not completed yet, Finished resolves
// ResultStopped and OnCompleted never runs. Stopping twice is a no-op.
func (a *DisplayAnimation) Stop() {
	for {
		s := a.state.Load()
		if s >= animCompleted {
			return
		}
		if !a.state.CompareAndSwap(s, animStopped) {
			continue
		}
		node := a.node.Load()
		if s == animPlaying && node != nil {
			handle := a.handle
			node.comp.post(handle.Stop)
		}
		a.added.resolve(ResultStopped, nil)
		a.finished.resolve(ResultStopped, nil)
		a.settle(node, ResultStopped)
		return
	}
}

// Finished returns a future that resolves ResultCompleted, ResultStopped or
// ResultFailed.
func (a *DisplayAnimation) Finished() *Future {
	return a.finished
}

// IsPlaying reports whether the host is currently playing a.
func (a *DisplayAnimation) IsPlaying() bool {
	return a.state.Load() == animPlaying
}

// spec builds the host description with resolved endpoints.
func (a *DisplayAnimation) spec(h Host, el Element) AnimationSpec {
	s := AnimationSpec{
		Timing: AnimationTiming{
			BeginTime:      a.BeginTime,
			Duration:       a.Duration,
			AutoReverse:    a.AutoReverse,
			RepeatCount:    a.RepeatCount,
			RepeatDuration: a.RepeatDuration,
			Speed:          a.Speed,
			TimeOffset:     a.TimeOffset,
			Easing:         a.Easing,
		},
	}
	if a.kind == animTransition {
		s.Transition = a.transition
		s.Subtype = a.subtype
		return s
	}
	s.Property = a.property
	current, _ := h.PresentationValue(el, a.property)
	s.From, s.To = current, current
	if a.from.Valid {
		s.From = a.from.Value
	}
	if a.to.Valid {
		s.To = a.to.Value
	}
	return s
}

// realize hands a to the host. Runs on the host context during the
// animation phase of a dispatch.
func (a *DisplayAnimation) realize(h Host, node *DisplayNode) *Future {
	if a.state.Load() != animAttached {
		return a.added
	}
	name := a.property
	if a.kind == animTransition {
		name = ""
	}
	el := node.elementFor(name)
	if el == nil {
		a.fail(node, fmt.Errorf("%w: node has no host element", ErrInvalidElement))
		return a.added
	}
	handle, err := h.ScheduleAnimation(el, a.spec(h, el), a.hostFinished)
	if err != nil {
		a.fail(node, err)
		return a.added
	}
	a.handle = handle
	if !a.state.CompareAndSwap(animAttached, animPlaying) {
		// Stopped while the host was scheduling.
		handle.Stop()
		return a.added
	}
	handle.Begin()
	a.added.resolve(ResultScheduled, nil)
	return a.added
}

func (a *DisplayAnimation) fail(node *DisplayNode, err error) {
	if !a.state.CompareAndSwap(animAttached, animFailed) {
		return
	}
	a.added.resolve(ResultFailed, err)
	a.finished.resolve(ResultFailed, err)
	node.comp.metrics.hostRejected()
	a.settle(node, ResultFailed)
}

// hostFinished is the host's natural-completion callback.
func (a *DisplayAnimation) hostFinished() {
	if !a.state.CompareAndSwap(animPlaying, animCompleted) {
		return
	}
	node := a.node.Load()
	if a.OnCompleted != nil {
		a.OnCompleted()
	}
	a.finished.resolve(ResultCompleted, nil)
	a.settle(node, ResultCompleted)
}

// settle records the outcome and drops the node's reference.
func (a *DisplayAnimation) settle(node *DisplayNode, r Result) {
	if node == nil {
		return
	}
	node.comp.metrics.animationSettled(r)
	node.detachAnimation(a)
}
