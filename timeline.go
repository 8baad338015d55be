package compositor

import (
	"fmt"
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// easingFunc maps an Easing selector onto a gween easing curve.
func easingFunc(e Easing) ease.TweenFunc {
	switch e {
	case EaseInEaseOut:
		return ease.InOutQuad
	case EaseIn:
		return ease.InQuad
	case EaseOut:
		return ease.OutQuad
	case EaseLinear:
		return ease.Linear
	default:
		return ease.InOutSine
	}
}

// tweenTrack drives one float64 field between two values.
type tweenTrack struct {
	field    *float64
	from, to float64
	tween    *gween.Tween
}

// timeEpsilon absorbs float drift when comparing accumulated times.
const timeEpsilon = 1e-9

// hostAnimation is a TweenGroup-style playback on the Scene timeline. It
// animates up to two fields of its target and handles begin delay, time
// offset, speed, autoreverse, and repetition. If the target is destroyed,
// the animation stops without calling finished.
type hostAnimation struct {
	scene  *Scene
	target *Visual
	tracks [2]tweenTrack
	count  int
	fn     ease.TweenFunc

	duration    float64 // one leg, in animation time
	delay       float64 // host time left before playback
	seek        float64 // animation time skipped on Begin
	speed       float64
	autoReverse bool
	total       float64 // active time, in animation time; may be +Inf

	started    bool
	reversing  bool
	elapsed    float64
	legElapsed float64
	stopped    bool
	done       bool
	pending    bool // finished callback owed once the animation leaves the timeline
	finished   func()
}

// Begin starts playback. The first Tick after Begin advances the animation.
func (a *hostAnimation) Begin() {
	if a.stopped || a.done || a.started {
		return
	}
	a.started = true
	a.scene.timeline = append(a.scene.timeline, a)
	a.apply()
	if a.seek > 0 {
		a.advance(a.seek)
		a.seek = 0
		a.target.markDirty()
	}
}

// Stop cancels playback; the finished callback will not fire.
func (a *hostAnimation) Stop() {
	a.stopped = true
	a.done = true
	a.pending = false
}

// update advances the animation by dt seconds of host time. Returns true
// once the animation is done and should leave the timeline.
func (a *hostAnimation) update(dt float64) bool {
	if a.done {
		return true
	}
	if a.target.destroyed {
		a.stopped = true
		a.done = true
		return true
	}
	if a.delay > 0 {
		if dt < a.delay {
			a.delay -= dt
			return false
		}
		dt -= a.delay
		a.delay = 0
	}
	a.advance(dt * a.speed)
	a.target.markDirty()
	return a.done
}

// advance moves playback forward by dt seconds of animation time, crossing
// leg boundaries as needed. Playback ends when the active time is used up,
// which may be partway through a leg.
func (a *hostAnimation) advance(dt float64) {
	if a.duration <= 0 {
		for i := 0; i < a.count; i++ {
			if a.autoReverse {
				*a.tracks[i].field = a.tracks[i].from
			} else {
				*a.tracks[i].field = a.tracks[i].to
			}
		}
		a.finish()
		return
	}
	for !a.done {
		remaining := a.total - a.elapsed
		if remaining <= timeEpsilon {
			a.finish()
			return
		}
		step := math.Min(dt, math.Min(remaining, a.duration-a.legElapsed))
		a.elapsed += step
		a.legElapsed += step
		dt -= step

		legDone := a.duration-a.legElapsed <= timeEpsilon
		for i := 0; i < a.count; i++ {
			val, _ := a.tracks[i].tween.Update(float32(step))
			*a.tracks[i].field = float64(val)
			if legDone {
				// gween stops short of the end value on float32 drift; pin it.
				*a.tracks[i].field = a.legEnd(i)
			}
		}
		if legDone {
			a.nextLeg()
		}
		if dt <= timeEpsilon {
			if a.total-a.elapsed <= timeEpsilon {
				a.finish()
			}
			return
		}
	}
}

// legEnd is the value track i reaches at the end of the current leg.
func (a *hostAnimation) legEnd(i int) float64 {
	if a.reversing {
		return a.tracks[i].from
	}
	return a.tracks[i].to
}

// nextLeg sets up the leg after the one that just ended: the reverse leg
// when autoreversing, otherwise the next forward cycle.
func (a *hostAnimation) nextLeg() {
	a.legElapsed = 0
	if a.autoReverse && !a.reversing {
		a.reversing = true
		a.resetTweens(true)
		return
	}
	a.reversing = false
	a.resetTweens(false)
}

func (a *hostAnimation) resetTweens(reverse bool) {
	for i := 0; i < a.count; i++ {
		tr := &a.tracks[i]
		from, to := tr.from, tr.to
		if reverse {
			from, to = to, from
		}
		tr.tween = gween.New(float32(from), float32(to), float32(a.duration), a.fn)
	}
}

// apply writes the current tween values into the target.
func (a *hostAnimation) apply() {
	for i := 0; i < a.count; i++ {
		tr := &a.tracks[i]
		val, _ := tr.tween.Update(0)
		*tr.field = float64(val)
	}
	a.target.markDirty()
}

func (a *hostAnimation) finish() {
	a.done = true
	a.pending = !a.stopped
}

func (a *hostAnimation) finishedPending() bool {
	return a.pending && !a.stopped
}

func (a *hostAnimation) fireFinished() {
	a.pending = false
	if a.finished != nil {
		a.finished()
	}
}

// newHostAnimation builds the playback for spec against v.
func (s *Scene) newHostAnimation(v *Visual, spec AnimationSpec, finished func()) (*hostAnimation, error) {
	t := spec.Timing
	a := &hostAnimation{
		scene:       s,
		target:      v,
		fn:          easingFunc(t.Easing),
		duration:    math.Max(t.Duration, 0),
		delay:       math.Max(t.BeginTime-t.TimeOffset, 0),
		seek:        math.Max(t.TimeOffset-t.BeginTime, 0),
		speed:       t.Speed,
		autoReverse: t.AutoReverse,
		finished:    finished,
	}
	if a.speed <= 0 {
		a.speed = 1
	}
	cycles := t.RepeatCount
	if !(cycles > 0) {
		cycles = 1
	}
	cycle := a.duration
	if a.autoReverse {
		cycle *= 2
	}
	switch {
	case t.RepeatDuration > 0:
		a.total = t.RepeatDuration
	case math.IsInf(cycles, 1):
		a.total = math.Inf(1)
	default:
		a.total = cycles * cycle
	}

	if spec.Property != "" {
		field := v.floatField(spec.Property)
		if field == nil {
			return nil, fmt.Errorf("%w: cannot animate %s", ErrUnsupportedProperty, spec.Property)
		}
		a.tracks[0] = tweenTrack{field: field, from: spec.From, to: spec.To}
		a.count = 1
	} else if err := s.transitionTracks(a, v, spec.Transition, spec.Subtype); err != nil {
		return nil, err
	}
	a.resetTweens(false)
	return a, nil
}

// transitionTracks configures the named enter transition against v's
// current geometry.
func (s *Scene) transitionTracks(a *hostAnimation, v *Visual, typ, subtype string) error {
	switch typ {
	case "fade", "reveal":
		a.tracks[0] = tweenTrack{field: &v.Opacity, from: 0, to: v.Opacity}
		a.count = 1
		return nil
	case "moveIn", "push":
		dx, dy := 0.0, 0.0
		switch subtype {
		case "fromLeft", "":
			dx = -v.Width
		case "fromRight":
			dx = v.Width
		case "fromTop":
			dy = -v.Height
		case "fromBottom":
			dy = v.Height
		default:
			return fmt.Errorf("%w: %s/%s", ErrUnknownTransition, typ, subtype)
		}
		a.tracks[0] = tweenTrack{field: &v.X, from: v.X + dx, to: v.X}
		a.tracks[1] = tweenTrack{field: &v.Y, from: v.Y + dy, to: v.Y}
		a.count = 2
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownTransition, typ)
}
