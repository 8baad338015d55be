package compositor

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Scene is the reference Host: a retained tree of Visual elements with an
// animation timeline and ebiten drawing. A Scene is not safe for concurrent
// use; the compositor calls it only on its host context.
type Scene struct {
	root     *Visual
	timeline []*hostAnimation

	// Batch state
	batchDepth int
	batches    int
	elements   int

	// Render state
	surfaces surfacePool

	log zerolog.Logger
}

// NewScene creates a scene with a pre-created root panel.
func NewScene() *Scene {
	return &Scene{
		root: newVisual(ElementPanel),
		log:  componentLogger("scene"),
	}
}

// RootVisual returns the scene's root panel.
func (s *Scene) RootVisual() *Visual {
	return s.root
}

// Root implements Host.
func (s *Scene) Root() Element {
	return s.root
}

// CreateElement implements Host.
func (s *Scene) CreateElement(role ElementRole) Element {
	s.elements++
	return newVisual(role)
}

// DestroyElement implements Host. Animations targeting the element are
// dropped on the next Tick without calling their finished callbacks.
func (s *Scene) DestroyElement(el Element) {
	v := asVisual(el)
	if v == nil || v.destroyed || v == s.root {
		return
	}
	v.dispose()
	s.elements--
}

// InsertChild implements Host. Invalid elements are ignored.
func (s *Scene) InsertChild(parent, child, before, after Element) {
	p, c := asVisual(parent), asVisual(child)
	if p == nil || c == nil || p.destroyed || c.destroyed {
		s.log.Debug().Msg("insert on invalid element ignored")
		return
	}
	p.insertChild(c, asVisual(before), asVisual(after))
}

// RemoveChild implements Host.
func (s *Scene) RemoveChild(parent, child Element) {
	p, c := asVisual(parent), asVisual(child)
	if p == nil {
		return
	}
	p.removeChild(c)
}

// Parent implements Host. Returns nil for detached or unknown elements.
func (s *Scene) Parent(el Element) Element {
	v := asVisual(el)
	if v == nil || v.Parent == nil {
		return nil
	}
	return v.Parent
}

// SetProperty implements Host.
func (s *Scene) SetProperty(el Element, name string, value any) error {
	v := asVisual(el)
	if v == nil || v.destroyed {
		return ErrInvalidElement
	}
	return v.setProperty(name, value)
}

// SetContent implements Host. Passthrough elements must be Visuals of this
// scene.
func (s *Scene) SetContent(el Element, c Content) error {
	v := asVisual(el)
	if v == nil || v.destroyed {
		return ErrInvalidElement
	}
	if ec, ok := c.(ElementContent); ok {
		inner := asVisual(ec.Element)
		if inner == nil || inner.destroyed {
			return fmt.Errorf("%w: passthrough content", ErrInvalidElement)
		}
		if drawsInto(inner, v) {
			return fmt.Errorf("%w: passthrough content would draw itself", ErrInvalidElement)
		}
	}
	v.Content = c
	v.invalidate()
	return nil
}

// PresentationValue implements Host.
func (s *Scene) PresentationValue(el Element, name string) (float64, bool) {
	v := asVisual(el)
	if v == nil {
		return 0, false
	}
	return v.presentationValue(name)
}

// ScheduleAnimation implements Host. The animation is validated and built
// immediately but only joins the timeline when Begin is called.
func (s *Scene) ScheduleAnimation(el Element, spec AnimationSpec, finished func()) (HostAnimation, error) {
	v := asVisual(el)
	if v == nil || v.destroyed {
		return nil, ErrInvalidElement
	}
	return s.newHostAnimation(v, spec, finished)
}

// Batch implements Host. Nested batches join the outermost one.
func (s *Scene) Batch(fn func()) {
	s.batchDepth++
	defer func() {
		s.batchDepth--
		if s.batchDepth == 0 {
			s.batches++
		}
	}()
	fn()
}

// Tick advances every playing animation by dt seconds. Finished callbacks
// run after the animation has left the timeline.
func (s *Scene) Tick(dt float64) {
	if len(s.timeline) == 0 {
		return
	}
	live := s.timeline[:0]
	var ended []*hostAnimation
	for _, a := range s.timeline {
		if a.update(dt) {
			ended = append(ended, a)
			continue
		}
		live = append(live, a)
	}
	for i := len(live); i < len(s.timeline); i++ {
		s.timeline[i] = nil
	}
	s.timeline = live
	for _, a := range ended {
		if a.finishedPending() {
			a.fireFinished()
		}
	}
}

// ActiveAnimations returns the number of animations on the timeline.
func (s *Scene) ActiveAnimations() int {
	return len(s.timeline)
}

// Batches returns the number of completed outermost batches.
func (s *Scene) Batches() int {
	return s.batches
}

// Elements returns the number of live elements created through the Host API.
func (s *Scene) Elements() int {
	return s.elements
}

func asVisual(el Element) *Visual {
	v, _ := el.(*Visual)
	return v
}
