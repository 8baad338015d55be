package compositor

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
)

// visualIDCounter is only touched on the host context.
var visualIDCounter uint32

func nextVisualID() uint32 {
	visualIDCounter++
	return visualIDCounter
}

// Visual is the host-side element of the reference Scene. A single flat
// struct serves all element roles.
type Visual struct {
	// Identity
	ID   uint32
	Role ElementRole

	// Hierarchy
	Parent   *Visual
	children []*Visual

	// Geometry (local). X, Y position the anchor point in parent space.
	X, Y           float64
	Width, Height  float64
	AnchorX        float64
	AnchorY        float64
	ScaleX, ScaleY float64
	Rotation       float64
	ContentOffsetX float64
	ContentOffsetY float64
	ContentWidth   float64
	ContentHeight  float64

	// Appearance
	Opacity        float64
	Hidden         bool
	ClipToBounds   bool
	Background     Color
	ContentsCenter Rect
	Rasterize      bool
	ZIndex         int
	TopMost        bool
	Content        Content

	// Computed during Draw
	worldTransform [6]float64
	worldAlpha     float64
	transformDirty bool

	// Ordering
	childrenSorted bool
	sortedChildren []*Visual

	// Rasterization cache (shouldRasterize)
	rasterCache *ebiten.Image
	rasterDirty bool

	destroyed bool
}

func newVisual(role ElementRole) *Visual {
	return &Visual{
		ID:             nextVisualID(),
		Role:           role,
		ScaleX:         1,
		ScaleY:         1,
		Opacity:        1,
		AnchorX:        0,
		AnchorY:        0,
		transformDirty: true,
		childrenSorted: true,
		rasterDirty:    true,
	}
}

// Children returns the child list. The returned slice MUST NOT be mutated.
func (v *Visual) Children() []*Visual {
	return v.children
}

// NumChildren returns the number of children.
func (v *Visual) NumChildren() int {
	return len(v.children)
}

// ChildAt returns the child at the given index.
func (v *Visual) ChildAt(index int) *Visual {
	return v.children[index]
}

// IsDestroyed reports whether the element was destroyed by its host.
func (v *Visual) IsDestroyed() bool {
	return v.destroyed
}

// insertChild reparents child under v. before wins over after; a hint that
// is not a child of v is ignored and child goes on top.
// Panics if child is nil or an ancestor of v.
func (v *Visual) insertChild(child, before, after *Visual) {
	if child == nil {
		panic("compositor: cannot insert nil visual")
	}
	if isAncestorVisual(child, v) {
		panic("compositor: inserting visual would create a cycle")
	}
	if child.Parent != nil {
		child.Parent.removeChildByPtr(child)
	}
	index := len(v.children)
	if i := v.indexOf(before); before != nil && i >= 0 {
		index = i
	} else if i := v.indexOf(after); after != nil && i >= 0 {
		index = i + 1
	}
	child.Parent = v
	v.children = append(v.children, nil)
	copy(v.children[index+1:], v.children[index:])
	v.children[index] = child
	v.childrenSorted = false
	markVisualSubtreeDirty(child)
	v.invalidate()
}

// removeChild detaches child if v is its parent.
func (v *Visual) removeChild(child *Visual) bool {
	if child == nil || child.Parent != v {
		return false
	}
	v.removeChildByPtr(child)
	child.Parent = nil
	v.childrenSorted = false
	markVisualSubtreeDirty(child)
	v.invalidate()
	return true
}

func (v *Visual) indexOf(child *Visual) int {
	if child == nil {
		return -1
	}
	for i, c := range v.children {
		if c == child {
			return i
		}
	}
	return -1
}

// removeChildByPtr removes child from v.children without clearing child.Parent.
// Uses copy+nil to avoid retaining a dangling pointer in the backing array.
func (v *Visual) removeChildByPtr(child *Visual) {
	for i, c := range v.children {
		if c == child {
			copy(v.children[i:], v.children[i+1:])
			v.children[len(v.children)-1] = nil
			v.children = v.children[:len(v.children)-1]
			return
		}
	}
}

// dispose detaches v from the tree and orphans its children. Children are
// not destroyed: they may belong to display nodes that are still alive.
func (v *Visual) dispose() {
	if v.destroyed {
		return
	}
	if v.Parent != nil {
		v.Parent.removeChild(v)
	}
	for _, child := range v.children {
		child.Parent = nil
		markVisualSubtreeDirty(child)
	}
	v.children = nil
	v.sortedChildren = nil
	v.Content = nil
	v.dropRasterCache()
	v.destroyed = true
}

// invalidate marks rasterization caches dirty from v up to the root.
func (v *Visual) invalidate() {
	for p := v; p != nil; p = p.Parent {
		p.rasterDirty = true
	}
}

// setProperty applies a named property. Numeric properties accept any Go
// numeric type; the rest are checked strictly.
func (v *Visual) setProperty(name string, value any) error {
	if f, ok := toFloat(value); ok {
		if field := v.floatField(name); field != nil {
			*field = f
			v.markDirty()
			return nil
		}
	}
	switch name {
	case PropHidden, PropMasksToBounds, PropShouldRasterize, PropTopMost:
		b, ok := toBool(value)
		if !ok {
			return fmt.Errorf("%w: %s=%v", ErrUnsupportedValue, name, value)
		}
		switch name {
		case PropHidden:
			v.Hidden = b
		case PropMasksToBounds:
			v.ClipToBounds = b
		case PropShouldRasterize:
			v.Rasterize = b
		case PropTopMost:
			v.TopMost = b
			if v.Parent != nil {
				v.Parent.childrenSorted = false
			}
		}
	case PropBackgroundColor:
		c, ok := value.(Color)
		if !ok {
			return fmt.Errorf("%w: %s=%v", ErrUnsupportedValue, name, value)
		}
		v.Background = c
	case PropContentsCenter:
		r, ok := value.(Rect)
		if !ok {
			return fmt.Errorf("%w: %s=%v", ErrUnsupportedValue, name, value)
		}
		v.ContentsCenter = r
	case PropZIndex:
		z, ok := value.(int)
		if !ok {
			f, isFloat := toFloat(value)
			if !isFloat {
				return fmt.Errorf("%w: %s=%v", ErrUnsupportedValue, name, value)
			}
			z = int(f)
		}
		if v.ZIndex != z {
			v.ZIndex = z
			if v.Parent != nil {
				v.Parent.childrenSorted = false
			}
		}
	default:
		if v.floatField(name) != nil {
			return fmt.Errorf("%w: %s=%v", ErrUnsupportedValue, name, value)
		}
		return fmt.Errorf("%w: %s", ErrUnsupportedProperty, name)
	}
	v.invalidate()
	return nil
}

// floatField maps animatable numeric properties to their storage.
func (v *Visual) floatField(name string) *float64 {
	switch name {
	case PropOpacity:
		return &v.Opacity
	case PropPositionX:
		return &v.X
	case PropPositionY:
		return &v.Y
	case PropWidth:
		return &v.Width
	case PropHeight:
		return &v.Height
	case PropAnchorX:
		return &v.AnchorX
	case PropAnchorY:
		return &v.AnchorY
	case PropRotation:
		return &v.Rotation
	case PropScaleX:
		return &v.ScaleX
	case PropScaleY:
		return &v.ScaleY
	case PropContentOffsetX:
		return &v.ContentOffsetX
	case PropContentOffsetY:
		return &v.ContentOffsetY
	case PropContentWidth:
		return &v.ContentWidth
	case PropContentHeight:
		return &v.ContentHeight
	}
	return nil
}

// presentationValue reads the rendered value of a numeric property. Boolean
// properties read as 0 or 1.
func (v *Visual) presentationValue(name string) (float64, bool) {
	if field := v.floatField(name); field != nil {
		return *field, true
	}
	switch name {
	case PropHidden:
		return boolFloat(v.Hidden), true
	case PropMasksToBounds:
		return boolFloat(v.ClipToBounds), true
	case PropShouldRasterize:
		return boolFloat(v.Rasterize), true
	case PropTopMost:
		return boolFloat(v.TopMost), true
	case PropZIndex:
		return float64(v.ZIndex), true
	}
	return 0, false
}

// --- Helpers ---

// isAncestorVisual reports whether candidate is an ancestor of v (or v itself).
func isAncestorVisual(candidate, v *Visual) bool {
	for p := v; p != nil; p = p.Parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// drawsInto reports whether drawing from leads back to v: some visual
// reachable from from through children and passthrough content is v or an
// ancestor of v.
func drawsInto(from, v *Visual) bool {
	seen := make(map[*Visual]bool)
	stack := []*Visual{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == nil || seen[cur] {
			continue
		}
		seen[cur] = true
		if isAncestorVisual(cur, v) {
			return true
		}
		stack = append(stack, cur.children...)
		if ec, ok := cur.Content.(ElementContent); ok {
			stack = append(stack, asVisual(ec.Element))
		}
	}
	return false
}

// markVisualSubtreeDirty sets transformDirty on v and all its descendants.
func markVisualSubtreeDirty(v *Visual) {
	v.transformDirty = true
	for _, child := range v.children {
		markVisualSubtreeDirty(child)
	}
}

func toFloat(value any) (float64, bool) {
	switch x := value.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

func toBool(value any) (bool, bool) {
	switch x := value.(type) {
	case bool:
		return x, true
	case int:
		return x != 0, true
	case float64:
		return x != 0, true
	}
	return false, false
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
