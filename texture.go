package compositor

import (
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
)

// DisplayTexture supplies a node's content. Textures are created
// independently of nodes and may be shared; each node showing a texture
// holds a reference to it.
type DisplayTexture interface {
	Counted
	// SetNodeContent binds the texture into node's content slot at the
	// given logical size and scale. Repeating a call with the same
	// arguments does no host work. Must be called on the host context.
	SetNodeContent(node *DisplayNode, width, height, scale float64) error
}

// contentBinding identifies what a node's content slot currently shows.
type contentBinding struct {
	texture uint64
	gen     uint64
	width   float64
	height  float64
	scale   float64
}

// textureBase carries what every texture variant shares.
type textureBase struct {
	RefCounted
	gen atomic.Uint64
}

// invalidate makes the next SetNodeContent rebind even with unchanged size.
func (t *textureBase) invalidate() {
	t.gen.Add(1)
}

// bind pushes c into node's content slot unless the slot already shows the
// same texture generation at the same size.
func (t *textureBase) bind(node *DisplayNode, width, height, scale float64, build func() Content) error {
	key := contentBinding{t.RefID(), t.gen.Load(), width, height, scale}
	if node.boundContent == key {
		return nil
	}
	el := node.elementFor(PropContents)
	if el == nil {
		return ErrInvalidElement
	}
	if err := node.host().SetContent(el, build()); err != nil {
		return err
	}
	node.boundContent = key
	return nil
}

// --- BitmapTexture ---

// BitmapTexture shows an image.
type BitmapTexture struct {
	textureBase
	image  *ebiten.Image
	center Rect
}

// NewBitmapTexture wraps img. The texture does not take ownership of img.
func NewBitmapTexture(img *ebiten.Image) *BitmapTexture {
	t := &BitmapTexture{image: img}
	t.initRef(nil)
	return t
}

// Image returns the wrapped image.
func (t *BitmapTexture) Image() *ebiten.Image {
	return t.image
}

// SetCenter sets the stretchable region in unit coordinates.
func (t *BitmapTexture) SetCenter(r Rect) {
	t.center = r
	t.invalidate()
}

// SetNodeContent implements DisplayTexture.
func (t *BitmapTexture) SetNodeContent(node *DisplayNode, width, height, scale float64) error {
	return t.bind(node, width, height, scale, func() Content {
		return ImageContent{Image: t.image, Width: width, Height: height, Scale: scale, Center: t.center}
	})
}

// --- ElementTexture ---

// ElementTexture passes a host element through as a node's content. The
// element stays owned by whoever created it.
type ElementTexture struct {
	textureBase
	element Element
}

// NewElementTexture wraps el.
func NewElementTexture(el Element) *ElementTexture {
	t := &ElementTexture{element: el}
	t.initRef(nil)
	return t
}

// Element returns the wrapped host element.
func (t *ElementTexture) Element() Element {
	return t.element
}

// SetNodeContent implements DisplayTexture.
func (t *ElementTexture) SetNodeContent(node *DisplayNode, width, height, scale float64) error {
	return t.bind(node, width, height, scale, func() Content {
		return ElementContent{Element: t.element, Width: width, Height: height, Scale: scale}
	})
}

// --- GlyphTexture ---

// GlyphTexture lays out a run of text. Typography setters may be called from
// any goroutine; a node picks up the change on its next content bind.
type GlyphTexture struct {
	textureBase

	mu               sync.Mutex
	fonts            *FontRegistry
	family           *TTFFamily
	fontOverride     Font
	text             string
	align            TextAlign
	insets           [4]float64 // top, left, bottom, right
	color            Color
	fontSize         float64
	fontWeight       FontWeight
	fontStretch      FontStretch
	fontStyle        FontStyle
	lineHeight       float64
	centerVertically bool

	measured textLayout // last Measure; reported by DesiredSize
	bound    textLayout // last layout pushed to a node
}

// textLayout is a wrapped layout of a GlyphTexture's text for one width
// constraint.
type textLayout struct {
	valid         bool
	constraint    float64 // NaN when the layout cannot be reused
	lines         []string
	width, height float64
}

// NewGlyphTexture creates an empty glyph texture resolving family names in
// fonts. A nil fonts uses DefaultFonts.
func NewGlyphTexture(fonts *FontRegistry) *GlyphTexture {
	if fonts == nil {
		fonts = DefaultFonts()
	}
	t := &GlyphTexture{
		fonts:       fonts,
		color:       Color{0, 0, 0, 1},
		fontSize:    14,
		fontWeight:  FontWeightNormal,
		fontStretch: FontStretchNormal,
	}
	t.initRef(nil)
	return t
}

// ConstructGlyphs sets the text to the first length runes of buf and
// resolves family. buf is copied and may be reused by the caller. A family
// that cannot be resolved leaves the texture without a font: it measures
// as zero and the error is returned.
func (t *GlyphTexture) ConstructGlyphs(family string, buf []rune, length int) error {
	if length < 0 {
		length = 0
	}
	if length > len(buf) {
		length = len(buf)
	}
	s := string(buf[:length])

	fam, err := t.fonts.Lookup(family)

	t.mu.Lock()
	t.text = s
	t.family = fam
	t.changedLocked()
	t.mu.Unlock()
	return err
}

// SetFont overrides family resolution with a specific font, such as a
// BitmapFont.
func (t *GlyphTexture) SetFont(f Font) {
	t.mu.Lock()
	t.fontOverride = f
	t.changedLocked()
	t.mu.Unlock()
}

// Text returns the constructed text.
func (t *GlyphTexture) Text() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.text
}

// SetAlignment sets horizontal alignment.
func (t *GlyphTexture) SetAlignment(a TextAlign) { t.update(func() { t.align = a }) }

// SetInsets sets the padding around the text.
func (t *GlyphTexture) SetInsets(top, left, bottom, right float64) {
	t.update(func() { t.insets = [4]float64{top, left, bottom, right} })
}

// SetColor sets the text color.
func (t *GlyphTexture) SetColor(r, g, b, a float64) {
	t.update(func() { t.color = Color{r, g, b, a} })
}

// SetFontSize sets the size in points.
func (t *GlyphTexture) SetFontSize(size float64) { t.update(func() { t.fontSize = size }) }

// SetFontWeight sets the weight.
func (t *GlyphTexture) SetFontWeight(w FontWeight) { t.update(func() { t.fontWeight = w }) }

// SetFontStretch sets the width.
func (t *GlyphTexture) SetFontStretch(s FontStretch) { t.update(func() { t.fontStretch = s }) }

// SetFontStyle sets the slant.
func (t *GlyphTexture) SetFontStyle(s FontStyle) { t.update(func() { t.fontStyle = s }) }

// SetLineHeight overrides the font's line height; 0 restores it.
func (t *GlyphTexture) SetLineHeight(h float64) { t.update(func() { t.lineHeight = h }) }

// SetCenterVertically centers the text block in the bound height.
func (t *GlyphTexture) SetCenterVertically(on bool) { t.update(func() { t.centerVertically = on }) }

func (t *GlyphTexture) update(fn func()) {
	t.mu.Lock()
	fn()
	t.changedLocked()
	t.mu.Unlock()
}

func (t *GlyphTexture) changedLocked() {
	t.measured.valid = false
	t.bound = textLayout{}
	t.invalidate()
}

// fontLocked returns the face for the current typography, or nil.
func (t *GlyphTexture) fontLocked() Font {
	if t.fontOverride != nil {
		return t.fontOverride
	}
	if t.family == nil {
		return nil
	}
	return t.family.Face(t.fontSize, t.fontWeight, t.fontStretch, t.fontStyle)
}

func (t *GlyphTexture) lineHeightLocked(f Font) float64 {
	if t.lineHeight > 0 {
		return t.lineHeight
	}
	return f.LineHeight()
}

// Measure lays the text out within width and caches the desired size,
// insets included. Height is reported, not enforced. An unbounded width
// (+Inf) disables wrapping. Empty text, a missing font, or a zero, negative
// or NaN constraint gives a zero size.
func (t *GlyphTexture) Measure(width, height float64) (desiredWidth, desiredHeight float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.measured = t.layoutLocked(width, height)
	return t.measured.width, t.measured.height
}

// DesiredSize returns the size computed by the last Measure.
func (t *GlyphTexture) DesiredSize() (width, height float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.measured.width, t.measured.height
}

func (t *GlyphTexture) layoutLocked(width, height float64) textLayout {
	l := textLayout{valid: true, constraint: width}
	if math.IsNaN(width) || math.IsNaN(height) || width <= 0 || height < 0 {
		l.constraint = math.NaN()
		return l
	}
	f := t.fontLocked()
	if f == nil || strings.TrimSpace(t.text) == "" {
		return l
	}
	top, left, bottom, right := t.insets[0], t.insets[1], t.insets[2], t.insets[3]
	wrap := width - left - right
	if math.IsInf(width, 1) {
		wrap = 0
	} else if wrap <= 0 {
		return l
	}

	l.lines = wrapText(f, t.text, wrap)
	var maxW float64
	for _, line := range l.lines {
		if w, _ := f.MeasureString(line); w > maxW {
			maxW = w
		}
	}
	l.width = maxW + left + right
	l.height = float64(len(l.lines))*t.lineHeightLocked(f) + top + bottom
	return l
}

// SetNodeContent implements DisplayTexture. The text is laid out for width,
// reusing the last Measure when it used the same width. A width <= 0 lays
// the text out unwrapped. DesiredSize is not affected.
func (t *GlyphTexture) SetNodeContent(node *DisplayNode, width, height, scale float64) error {
	layoutWidth := width
	if !(layoutWidth > 0) {
		layoutWidth = math.Inf(1)
	}
	t.mu.Lock()
	l := t.bound
	switch {
	case t.measured.valid && t.measured.constraint == layoutWidth:
		l = t.measured
	case !l.valid || l.constraint != layoutWidth:
		l = t.layoutLocked(layoutWidth, math.Inf(1))
		t.bound = l
	}
	f := t.fontLocked()
	c := TextContent{
		Lines:            append([]string(nil), l.lines...),
		Font:             f,
		Color:            t.color,
		Align:            t.align,
		Insets:           t.insets,
		CenterVertically: t.centerVertically,
		MeasuredHeight:   l.height,
		Width:            width,
		Height:           height,
		Scale:            scale,
	}
	if f != nil {
		c.LineHeight = t.lineHeightLocked(f)
	}
	t.mu.Unlock()

	return t.bind(node, width, height, scale, func() Content { return c })
}
