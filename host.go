package compositor

import (
	"errors"

	"github.com/hajimehoshi/ebiten/v2"
)

// Errors reported by hosts when they refuse to apply a change.
var (
	ErrUnsupportedProperty = errors.New("compositor: unsupported property")
	ErrUnsupportedValue    = errors.New("compositor: unsupported property value")
	ErrUnknownTransition   = errors.New("compositor: unknown transition type")
	ErrInvalidElement      = errors.New("compositor: invalid or destroyed element")
)

// Element is an opaque handle to a visual in the host tree. Only the Host
// that created an element can interpret it.
type Element any

// Content is the visual content bound into an element's content slot.
// A nil Content clears the slot.
type Content interface {
	contentSize() (width, height, scale float64)
}

// ImageContent shows a bitmap.
type ImageContent struct {
	Image                *ebiten.Image
	Width, Height, Scale float64
	Center               Rect // stretchable region in unit coordinates
}

func (c ImageContent) contentSize() (float64, float64, float64) { return c.Width, c.Height, c.Scale }

// ElementContent passes a host element through as the content.
type ElementContent struct {
	Element              Element
	Width, Height, Scale float64
}

func (c ElementContent) contentSize() (float64, float64, float64) { return c.Width, c.Height, c.Scale }

// TextContent shows a laid-out glyph run.
type TextContent struct {
	Lines            []string
	Font             Font
	Color            Color
	Align            TextAlign
	Insets           [4]float64 // top, left, bottom, right
	LineHeight       float64
	CenterVertically bool
	MeasuredHeight   float64
	Width, Height    float64
	Scale            float64
}

func (c TextContent) contentSize() (float64, float64, float64) { return c.Width, c.Height, c.Scale }

// AnimationTiming carries the timing attributes of a DisplayAnimation to the
// host timeline. Times are in seconds.
type AnimationTiming struct {
	BeginTime      float64
	Duration       float64
	AutoReverse    bool
	RepeatCount    float64
	RepeatDuration float64
	Speed          float64
	TimeOffset     float64
	Easing         Easing
}

// AnimationSpec describes one animation for the host: either a property
// interpolation (Property set, From/To resolved) or a named transition.
type AnimationSpec struct {
	Property   string
	From, To   float64
	Transition string
	Subtype    string
	Timing     AnimationTiming
}

// HostAnimation is a host-side playback handle. Both methods must be called
// on the host context.
type HostAnimation interface {
	// Begin starts playback.
	Begin()
	// Stop cancels playback. The finished callback never fires after Stop.
	Stop()
}

// Host is the visual tree the compositor projects onto. Every method is
// called on the host context only (see Compositor.RunOnHost).
type Host interface {
	// Root returns the container that root display nodes attach to.
	Root() Element
	CreateElement(role ElementRole) Element
	// DestroyElement detaches el from its parent and orphans its children.
	DestroyElement(el Element)
	// InsertChild makes child a child of parent, removing it from any
	// previous parent first. before/after are optional sibling hints; with
	// neither, child goes on top.
	InsertChild(parent, child, before, after Element)
	// RemoveChild is a no-op when child is not a child of parent.
	RemoveChild(parent, child Element)
	Parent(el Element) Element
	SetProperty(el Element, name string, value any) error
	SetContent(el Element, c Content) error
	// PresentationValue returns the currently rendered value of a numeric
	// property, including in-flight animation.
	PresentationValue(el Element, name string) (float64, bool)
	// ScheduleAnimation accepts an animation into the host timeline in a
	// paused state. finished is called on the host context when playback
	// ends naturally.
	ScheduleAnimation(el Element, spec AnimationSpec, finished func()) (HostAnimation, error)
	// Batch runs fn as one host-side update; the host defers its own
	// layout/paint work until fn returns.
	Batch(fn func())
}

// Ticker is implemented by hosts that advance their own timeline.
type Ticker interface {
	Tick(dt float64)
}
