package compositor

import (
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
)

// DisplayNode is the client-side tree entity. Every mutation records a
// transaction on its compositor; nothing reaches the host until the next
// dispatch. Methods may be called from any goroutine.
//
// A node is backed by two host elements: the layout element, which sits in
// the parent's content element, and the content element, which hosts the
// node's own subnodes and content. Simple nodes use one element for both.
type DisplayNode struct {
	RefCounted

	comp   *Compositor
	kind   NodeKind
	isRoot bool

	// Tree state, guarded by comp.treeMu. parent does not own n.
	parent   *DisplayNode
	subnodes []Ref[*DisplayNode]
	onRoot   bool

	mu         sync.Mutex
	props      map[string]any
	texture    Ref[DisplayTexture]
	topMost    bool
	animations map[*DisplayAnimation]Ref[*DisplayAnimation]

	// Host context only.
	layout       Element
	content      Element
	ownsElements bool
	boundContent contentBinding
}

func newDisplayNode(c *Compositor, kind NodeKind, isRoot bool) *DisplayNode {
	n := &DisplayNode{
		comp:   c,
		kind:   kind,
		isRoot: isRoot,
		props:  make(map[string]any),
	}
	n.initRef(n.destroy)
	c.enqueueSub(createTx{node: n})
	return n
}

// Kind returns the node's variant.
func (n *DisplayNode) Kind() NodeKind {
	return n.kind
}

// IsRoot reports whether n was created with NewRootNode.
func (n *DisplayNode) IsRoot() bool {
	return n.isRoot
}

// Compositor returns the compositor that created n.
func (n *DisplayNode) Compositor() *Compositor {
	return n.comp
}

// --- Tree ---

// AddSubnode makes node the child of n, removing it from any previous
// parent. before wins over after; a hint that is not a child of n is
// ignored and node goes on top. Panics if node is nil, a root node, or an
// ancestor of n.
func (n *DisplayNode) AddSubnode(node, before, after *DisplayNode) {
	if node == nil {
		panic("compositor: cannot add nil subnode")
	}
	if node.isRoot {
		panic("compositor: cannot add a root node as a subnode")
	}
	if node.comp != n.comp {
		panic("compositor: subnode belongs to another compositor")
	}
	c := n.comp

	c.treeMu.Lock()
	if isAncestorNode(node, n) {
		c.treeMu.Unlock()
		panic("compositor: adding subnode would create a cycle")
	}
	ref := NewRef(node)
	var old Ref[*DisplayNode]
	if node.parent != nil {
		old = node.parent.takeSubnode(node)
	}
	index := len(n.subnodes)
	if i := n.indexOf(before); before != nil && i >= 0 {
		index = i
	} else if i := n.indexOf(after); after != nil && i >= 0 {
		index = i + 1
	}
	n.subnodes = append(n.subnodes, Ref[*DisplayNode]{})
	copy(n.subnodes[index+1:], n.subnodes[index:])
	n.subnodes[index] = ref
	node.parent = n
	c.enqueueMovement(movementTx{op: opInsert, node: node, parent: n, before: before, after: after})
	c.treeMu.Unlock()

	old.Reset()
	if c.cfg.Debug {
		debugCheckTreeDepth(c.log, node)
		debugCheckChildCount(c.log, n)
	}
}

// RemoveFromSupernode detaches n from its parent, or a root node from the
// host root. No-op if n is detached. Dropping the parent's reference may
// destroy n.
func (n *DisplayNode) RemoveFromSupernode() {
	c := n.comp
	c.treeMu.Lock()
	if n.onRoot {
		n.onRoot = false
		c.enqueueMovement(movementTx{op: opDetachRoot, node: n})
		c.treeMu.Unlock()
		c.dropRoot(n)
		return
	}
	p := n.parent
	if p == nil {
		c.treeMu.Unlock()
		return
	}
	ref := p.takeSubnode(n)
	n.parent = nil
	c.enqueueMovement(movementTx{op: opRemove, node: n, parent: p})
	c.treeMu.Unlock()

	ref.Reset()
}

// MoveNode reorders n among its siblings using the same hints as
// AddSubnode. No-op if n has no parent.
func (n *DisplayNode) MoveNode(before, after *DisplayNode) {
	c := n.comp
	c.treeMu.Lock()
	defer c.treeMu.Unlock()
	p := n.parent
	if p == nil {
		return
	}
	ref := p.takeSubnode(n)
	index := len(p.subnodes)
	if i := p.indexOf(before); before != nil && i >= 0 {
		index = i
	} else if i := p.indexOf(after); after != nil && i >= 0 {
		index = i + 1
	}
	p.subnodes = append(p.subnodes, Ref[*DisplayNode]{})
	copy(p.subnodes[index+1:], p.subnodes[index:])
	p.subnodes[index] = ref
	c.enqueueMovement(movementTx{op: opMove, node: n, before: before, after: after})
}

// AddToRoot attaches a root node's layout element to the host root. The
// compositor keeps n alive until RemoveFromSupernode or Close. Panics if n
// is not a root node.
func (n *DisplayNode) AddToRoot() {
	if !n.isRoot {
		panic("compositor: AddToRoot on a non-root node")
	}
	c := n.comp
	c.treeMu.Lock()
	if n.onRoot {
		c.treeMu.Unlock()
		return
	}
	n.onRoot = true
	c.enqueueMovement(movementTx{op: opAttachRoot, node: n})
	c.treeMu.Unlock()
	c.keepRoot(n)
}

// Supernode returns n's parent, or nil.
func (n *DisplayNode) Supernode() *DisplayNode {
	n.comp.treeMu.Lock()
	defer n.comp.treeMu.Unlock()
	return n.parent
}

// Subnodes returns a snapshot of n's children in order.
func (n *DisplayNode) Subnodes() []*DisplayNode {
	n.comp.treeMu.Lock()
	defer n.comp.treeMu.Unlock()
	out := make([]*DisplayNode, len(n.subnodes))
	for i, r := range n.subnodes {
		out[i] = r.Get()
	}
	return out
}

// NumSubnodes returns the number of children.
func (n *DisplayNode) NumSubnodes() int {
	n.comp.treeMu.Lock()
	defer n.comp.treeMu.Unlock()
	return len(n.subnodes)
}

// takeSubnode removes child from n.subnodes and returns the reference n
// held. Caller holds treeMu.
func (n *DisplayNode) takeSubnode(child *DisplayNode) Ref[*DisplayNode] {
	i := n.indexOf(child)
	if i < 0 {
		return Ref[*DisplayNode]{}
	}
	ref := n.subnodes[i]
	copy(n.subnodes[i:], n.subnodes[i+1:])
	n.subnodes[len(n.subnodes)-1] = Ref[*DisplayNode]{}
	n.subnodes = n.subnodes[:len(n.subnodes)-1]
	return ref
}

func (n *DisplayNode) indexOf(child *DisplayNode) int {
	if child == nil {
		return -1
	}
	for i, r := range n.subnodes {
		if r.Get() == child {
			return i
		}
	}
	return -1
}

// isAncestorNode reports whether candidate is node or one of its ancestors.
// Caller holds treeMu.
func isAncestorNode(candidate, node *DisplayNode) bool {
	for p := node; p != nil; p = p.parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// --- Properties ---

// SetProperty sets a numeric property.
func (n *DisplayNode) SetProperty(name string, value float64) {
	n.UpdateProperty(name, value)
}

// SetPropertyInt sets an integer property.
func (n *DisplayNode) SetPropertyInt(name string, value int) {
	n.UpdateProperty(name, value)
}

// UpdateProperty records value in the node's model and queues it for the
// host. Writes to the same property before a dispatch coalesce; only the
// last one is applied.
func (n *DisplayNode) UpdateProperty(name string, value any) {
	n.mu.Lock()
	n.props[name] = value
	n.mu.Unlock()
	n.comp.enqueueProperty(n, name, propertyTx{node: n, name: name, value: value})
}

// GetProperty returns the model value last set on n, which the host may
// not have applied yet.
func (n *DisplayNode) GetProperty(name string) (any, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.props[name]
	return v, ok
}

// GetPresentationPropertyValue returns the value the host is currently
// rendering, including in-flight animation. Returns 0 if the host has no
// numeric value for name or the compositor is closed. Blocks until the host
// context is free.
func (n *DisplayNode) GetPresentationPropertyValue(name string) float64 {
	var v float64
	err := n.comp.RunOnHost(func() {
		if el := n.elementFor(name); el != nil {
			v, _ = n.host().PresentationValue(el, name)
		}
	})
	if err != nil {
		n.comp.log.Debug().Err(err).Str("property", name).Msg("presentation read skipped")
	}
	return v
}

// SetHidden hides or shows the node.
func (n *DisplayNode) SetHidden(hidden bool) { n.UpdateProperty(PropHidden, hidden) }

// SetMasksToBounds clips subnodes to the node's bounds.
func (n *DisplayNode) SetMasksToBounds(mask bool) { n.UpdateProperty(PropMasksToBounds, mask) }

// SetBackgroundColor sets the fill color (straight alpha).
func (n *DisplayNode) SetBackgroundColor(r, g, b, a float64) {
	n.UpdateProperty(PropBackgroundColor, Color{r, g, b, a})
}

// SetContentsCenter sets the stretchable region of bitmap contents in unit
// coordinates.
func (n *DisplayNode) SetContentsCenter(x, y, w, h float64) {
	n.UpdateProperty(PropContentsCenter, Rect{X: x, Y: y, Width: w, Height: h})
}

// SetShouldRasterize caches the node's subtree as one image.
func (n *DisplayNode) SetShouldRasterize(rasterize bool) {
	n.UpdateProperty(PropShouldRasterize, rasterize)
}

// SetNodeZIndex orders n among its siblings; higher draws later.
func (n *DisplayNode) SetNodeZIndex(z int) { n.UpdateProperty(PropZIndex, z) }

// SetTopMost keeps n above its z-sorted siblings.
func (n *DisplayNode) SetTopMost() {
	n.mu.Lock()
	n.topMost = true
	n.mu.Unlock()
	n.UpdateProperty(PropTopMost, true)
}

// IsTopMost reports whether SetTopMost was called.
func (n *DisplayNode) IsTopMost() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.topMost
}

// --- Contents ---

// SetContents shows tex in n's content slot at the given logical size and
// scale. n takes a reference to tex and drops its reference to the previous
// texture. A nil tex clears the slot.
func (n *DisplayNode) SetContents(tex DisplayTexture, width, height, scale float64) {
	n.mu.Lock()
	old := n.texture
	n.texture = NewRef(tex)
	n.mu.Unlock()

	n.comp.enqueueProperty(n, PropContents, contentsTx{
		node: n, texture: tex, width: width, height: height, scale: scale,
	})
	old.Reset()
}

// SetContentsImage shows img through a new BitmapTexture.
func (n *DisplayNode) SetContentsImage(img *ebiten.Image, width, height, scale float64) {
	n.SetContents(NewBitmapTexture(img), width, height, scale)
}

// SetContentsElement shows a host element as n's content.
func (n *DisplayNode) SetContentsElement(el Element, width, height, scale float64) {
	n.SetContents(NewElementTexture(el), width, height, scale)
}

// SetContentsElementOnly shows a host element at its natural size.
func (n *DisplayNode) SetContentsElementOnly(el Element) {
	n.SetContentsElement(el, 0, 0, 1)
}

// Contents returns the texture n is showing, or nil.
func (n *DisplayNode) Contents() DisplayTexture {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.texture.Get()
}

// SetScrollviewerControls makes a composite node use externally created
// host elements as its layout and content elements. Existing subnodes move
// to the new content element. The elements stay owned by their creator.
// Panics on simple nodes.
func (n *DisplayNode) SetScrollviewerControls(layout, content Element) {
	if n.kind != NodeComposite {
		panic("compositor: SetScrollviewerControls on a simple node")
	}
	n.comp.enqueueSub(adoptTx{node: n, layout: layout, content: content})
}

// --- Animations ---

// AddAnimation adds anim to n. See DisplayAnimation.AddToNode.
func (n *DisplayNode) AddAnimation(anim *DisplayAnimation) *Future {
	return anim.AddToNode(n)
}

// NumAnimations returns the number of animations attached to n.
func (n *DisplayNode) NumAnimations() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.animations)
}

func (n *DisplayNode) attachAnimation(a *DisplayAnimation) {
	n.mu.Lock()
	if n.animations == nil {
		n.animations = make(map[*DisplayAnimation]Ref[*DisplayAnimation])
	}
	n.animations[a] = NewRef(a)
	n.mu.Unlock()
}

func (n *DisplayNode) detachAnimation(a *DisplayAnimation) {
	n.mu.Lock()
	ref, ok := n.animations[a]
	delete(n.animations, a)
	n.mu.Unlock()
	if ok {
		ref.Reset()
	}
}

// --- Host elements (host context only) ---

func (n *DisplayNode) host() Host {
	return n.comp.host
}

// LayoutElement returns the element n occupies in its parent. Host context
// only; nil before the first dispatch.
func (n *DisplayNode) LayoutElement() Element {
	return n.layout
}

// ContentElement returns the element hosting n's subnodes and content. Host
// context only.
func (n *DisplayNode) ContentElement() Element {
	return n.content
}

// elementFor routes a property to the element that renders it. Composite
// nodes send content geometry and contents to the content element.
func (n *DisplayNode) elementFor(name string) Element {
	if n.kind == NodeComposite && (isContentProperty(name) || name == PropContents) {
		return n.content
	}
	return n.layout
}

func (n *DisplayNode) layoutOrNil() Element {
	if n == nil {
		return nil
	}
	return n.layout
}

func (n *DisplayNode) createElements(h Host) {
	if n.layout != nil {
		return
	}
	switch n.kind {
	case NodeComposite:
		n.layout = h.CreateElement(ElementScrollViewer)
		n.content = h.CreateElement(ElementScrollContent)
		h.InsertChild(n.layout, n.content, nil, nil)
	default:
		n.layout = h.CreateElement(ElementPanel)
		n.content = n.layout
	}
	n.ownsElements = true
}

func (n *DisplayNode) adoptElements(h Host, layout, content Element) {
	if layout == nil {
		return
	}
	if content == nil {
		content = layout
	}
	oldLayout, oldContent, owned := n.layout, n.content, n.ownsElements
	if layout == oldLayout && content == oldContent {
		return
	}
	if oldLayout != nil {
		n.stopPlayingAnimations()
	}

	if oldLayout != nil {
		if p := h.Parent(oldLayout); p != nil {
			h.InsertChild(p, layout, oldLayout, nil)
		}
	}
	if content != layout && h.Parent(content) == nil {
		h.InsertChild(layout, content, nil, nil)
	}
	for _, child := range n.Subnodes() {
		if child.layout != nil {
			h.InsertChild(content, child.layout, nil, nil)
		}
	}
	n.layout, n.content, n.ownsElements = layout, content, false
	n.boundContent = contentBinding{}

	switch {
	case oldLayout == nil:
	case owned:
		if oldContent != oldLayout {
			h.DestroyElement(oldContent)
		}
		h.DestroyElement(oldLayout)
	default:
		// Previously adopted elements belong to the caller; just unhook them.
		if p := h.Parent(oldLayout); p != nil {
			h.RemoveChild(p, oldLayout)
		}
	}
}

// stopPlayingAnimations stops the animations the host is running against
// n's current elements. Pending animations are realized later against
// whatever elements n has by then.
func (n *DisplayNode) stopPlayingAnimations() {
	n.mu.Lock()
	var playing []*DisplayAnimation
	for a := range n.animations {
		if a.IsPlaying() {
			playing = append(playing, a)
		}
	}
	n.mu.Unlock()
	for _, a := range playing {
		a.Stop()
	}
}

func (n *DisplayNode) destroyElements(h Host) {
	if n.layout == nil {
		return
	}
	if n.ownsElements {
		if n.content != n.layout {
			h.DestroyElement(n.content)
		}
		h.DestroyElement(n.layout)
	} else if p := h.Parent(n.layout); p != nil {
		h.RemoveChild(p, n.layout)
	}
	n.layout, n.content = nil, nil
	n.boundContent = contentBinding{}
}

// destroy runs when the last reference is dropped: subnodes lose their
// parent link and are released, the texture is released, animations are
// stopped, and host teardown is queued behind any pending movements.
func (n *DisplayNode) destroy() {
	c := n.comp

	c.treeMu.Lock()
	children := n.subnodes
	n.subnodes = nil
	for _, ref := range children {
		ref.Get().parent = nil
	}
	n.parent = nil
	c.treeMu.Unlock()

	n.mu.Lock()
	tex := n.texture
	n.texture = Ref[DisplayTexture]{}
	anims := n.animations
	n.animations = nil
	n.mu.Unlock()

	c.dropProperties(n)
	c.enqueueMovement(movementTx{op: opDestroy, node: n})

	for a, ref := range anims {
		a.Stop()
		ref.Reset()
	}
	tex.Reset()
	for _, ref := range children {
		ref.Reset()
	}
}
