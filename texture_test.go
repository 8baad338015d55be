package compositor

import (
	"errors"
	"math"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

func newBitmapGlyphs(t *testing.T, s string) *GlyphTexture {
	t.Helper()
	g := NewGlyphTexture(NewFontRegistry())
	g.SetFont(loadTestFont(t))
	buf := []rune(s)
	_ = g.ConstructGlyphs("", buf, len(buf))
	return g
}

// --- GlyphTexture measure ---

func TestGlyphMeasureEmptyIsZero(t *testing.T) {
	g := NewGlyphTexture(nil)
	if err := g.ConstructGlyphs("", nil, 0); err != nil {
		t.Fatalf("ConstructGlyphs: %v", err)
	}
	if w, h := g.Measure(200, 100); w != 0 || h != 0 {
		t.Errorf("Measure(empty) = (%v, %v), want (0, 0)", w, h)
	}
}

func TestGlyphMeasureNonEmptyIsPositive(t *testing.T) {
	g := NewGlyphTexture(nil)
	buf := []rune("Hello, compositor")
	if err := g.ConstructGlyphs("Go", buf, len(buf)); err != nil {
		t.Fatalf("ConstructGlyphs: %v", err)
	}
	w, h := g.Measure(math.Inf(1), math.Inf(1))
	if w <= 0 || h <= 0 {
		t.Errorf("Measure = (%v, %v), want positive", w, h)
	}
	if dw, dh := g.DesiredSize(); dw != w || dh != h {
		t.Errorf("DesiredSize = (%v, %v), want (%v, %v)", dw, dh, w, h)
	}
}

func TestGlyphMeasureDegenerateConstraints(t *testing.T) {
	g := newBitmapGlyphs(t, "AB")
	tests := []struct {
		name string
		w, h float64
	}{
		{"zero width", 0, 100},
		{"negative width", -5, 100},
		{"negative height", 100, -1},
		{"NaN width", math.NaN(), 100},
		{"NaN height", 100, math.NaN()},
	}
	for _, tt := range tests {
		if w, h := g.Measure(tt.w, tt.h); w != 0 || h != 0 {
			t.Errorf("%s: Measure = (%v, %v), want (0, 0)", tt.name, w, h)
		}
	}
}

func TestGlyphMeasureWithBitmapFont(t *testing.T) {
	g := newBitmapGlyphs(t, "AB CD")
	g.SetInsets(2, 3, 4, 5)

	w, h := g.Measure(math.Inf(1), math.Inf(1))
	if w != 93+3+5 || h != 40+2+4 {
		t.Errorf("unwrapped = (%v, %v), want (101, 46)", w, h)
	}

	w, h = g.Measure(60+3+5, math.Inf(1))
	if w != 43+3+5 || h != 80+2+4 {
		t.Errorf("wrapped = (%v, %v), want (51, 86)", w, h)
	}

	g.SetLineHeight(50)
	if _, h = g.Measure(68, math.Inf(1)); h != 100+2+4 {
		t.Errorf("line height override: h = %v, want 106", h)
	}
}

func TestGlyphMeasureInsetsSwallowWidth(t *testing.T) {
	g := newBitmapGlyphs(t, "AB")
	g.SetInsets(0, 30, 0, 30)
	if w, h := g.Measure(50, 100); w != 0 || h != 0 {
		t.Errorf("Measure = (%v, %v), want (0, 0)", w, h)
	}
}

func TestConstructGlyphsCopiesBuffer(t *testing.T) {
	g := NewGlyphTexture(nil)
	buf := []rune("ABCDEF")
	_ = g.ConstructGlyphs("", buf, 3)
	buf[0] = 'Z'
	if got := g.Text(); got != "ABC" {
		t.Errorf("Text = %q, want %q", got, "ABC")
	}
	_ = g.ConstructGlyphs("", buf, 99)
	if got := g.Text(); got != "ZBCDEF" {
		t.Errorf("Text = %q, want clamped %q", got, "ZBCDEF")
	}
	_ = g.ConstructGlyphs("", buf, -1)
	if got := g.Text(); got != "" {
		t.Errorf("Text = %q, want empty", got)
	}
}

func TestConstructGlyphsUnknownFamily(t *testing.T) {
	g := NewGlyphTexture(nil)
	buf := []rune("Hello")
	err := g.ConstructGlyphs("NoSuchFamily", buf, len(buf))
	if !errors.Is(err, ErrNoFont) {
		t.Fatalf("ConstructGlyphs = %v, want ErrNoFont", err)
	}
	if w, h := g.Measure(100, 100); w != 0 || h != 0 {
		t.Errorf("Measure without font = (%v, %v), want (0, 0)", w, h)
	}
}

func TestGlyphTypographyChangesSize(t *testing.T) {
	g := NewGlyphTexture(nil)
	buf := []rune("Typography")
	_ = g.ConstructGlyphs("Go", buf, len(buf))
	w14, h14 := g.Measure(math.Inf(1), math.Inf(1))
	g.SetFontSize(28)
	w28, h28 := g.Measure(math.Inf(1), math.Inf(1))
	if w28 <= w14 || h28 <= h14 {
		t.Errorf("size 28 = (%v, %v) should exceed size 14 = (%v, %v)", w28, h28, w14, h14)
	}
}

// --- Binding ---

func TestSetNodeContentIdempotent(t *testing.T) {
	h := newRecordingHost()
	c := newTestCompositor(t, h)
	n := c.NewNode(NodeSimple)
	defer n.Reset()
	mustDispatch(t, c)

	tex := NewRef(newBitmapGlyphs(t, "AB"))
	defer tex.Reset()

	var errs []error
	onHost(t, c, func() {
		errs = append(errs,
			tex.Get().SetNodeContent(n.Get(), 100, 40, 1),
			tex.Get().SetNodeContent(n.Get(), 100, 40, 1),
		)
	})
	for _, err := range errs {
		if err != nil {
			t.Fatalf("SetNodeContent: %v", err)
		}
	}
	if got := countCalls(h.calls, "content"); got != 1 {
		t.Errorf("content calls = %d, want 1", got)
	}

	onHost(t, c, func() { _ = tex.Get().SetNodeContent(n.Get(), 120, 40, 1) })
	if got := countCalls(h.calls, "content"); got != 2 {
		t.Errorf("content calls after resize = %d, want 2", got)
	}

	tex.Get().SetColor(1, 0, 0, 1)
	onHost(t, c, func() { _ = tex.Get().SetNodeContent(n.Get(), 120, 40, 1) })
	if got := countCalls(h.calls, "content"); got != 3 {
		t.Errorf("content calls after typography change = %d, want 3", got)
	}

	tc, ok := layoutOf(t, c, n.Get()).content.(TextContent)
	if !ok {
		t.Fatalf("content = %T, want TextContent", layoutOf(t, c, n.Get()).content)
	}
	if len(tc.Lines) != 1 || tc.Lines[0] != "AB" || tc.Color != (Color{1, 0, 0, 1}) {
		t.Errorf("TextContent = %+v", tc)
	}
}

func TestSetNodeContentKeepsDesiredSize(t *testing.T) {
	h := newRecordingHost()
	c := newTestCompositor(t, h)
	n := c.NewNode(NodeSimple)
	defer n.Reset()
	mustDispatch(t, c)

	g := newBitmapGlyphs(t, "AB CD")
	g.SetInsets(2, 3, 4, 5)
	tex := NewRef(g)
	defer tex.Reset()
	if w, h := g.Measure(68, math.Inf(1)); w != 51 || h != 86 {
		t.Fatalf("Measure = (%v, %v), want (51, 86)", w, h)
	}

	onHost(t, c, func() { _ = g.SetNodeContent(n.Get(), 200, 50, 1) })
	if w, h := g.DesiredSize(); w != 51 || h != 86 {
		t.Errorf("DesiredSize after wider layout = (%v, %v), want (51, 86)", w, h)
	}
	tc, ok := layoutOf(t, c, n.Get()).content.(TextContent)
	if !ok {
		t.Fatalf("content = %T, want TextContent", layoutOf(t, c, n.Get()).content)
	}
	if len(tc.Lines) != 1 || tc.MeasuredHeight != 46 {
		t.Errorf("bound layout = %q, height %v; want one line, 46", tc.Lines, tc.MeasuredHeight)
	}

	onHost(t, c, func() { _ = g.SetNodeContent(n.Get(), 68, 90, 1) })
	tc, _ = layoutOf(t, c, n.Get()).content.(TextContent)
	if len(tc.Lines) != 2 {
		t.Errorf("layout at measured width = %q, want two lines", tc.Lines)
	}
}

func TestSetNodeContentWithoutElement(t *testing.T) {
	c := newTestCompositor(t, newRecordingHost())
	n := c.NewNode(NodeSimple)
	defer n.Reset()

	tex := NewBitmapTexture(nil)
	var err error
	onHost(t, c, func() { err = tex.SetNodeContent(n.Get(), 1, 1, 1) })
	if !errors.Is(err, ErrInvalidElement) {
		t.Errorf("SetNodeContent before dispatch = %v, want ErrInvalidElement", err)
	}
}

func TestBitmapTextureContent(t *testing.T) {
	h := newRecordingHost()
	c := newTestCompositor(t, h)
	n := c.NewNode(NodeComposite)
	defer n.Reset()

	img := ebiten.NewImage(8, 8)
	tex := NewBitmapTexture(img)
	tex.SetCenter(Rect{0.25, 0.25, 0.5, 0.5})
	n.Get().SetContents(tex, 16, 16, 2)
	mustDispatch(t, c)

	ic, ok := contentOf(t, c, n.Get()).content.(ImageContent)
	if !ok {
		t.Fatal("composite contents should bind to the content element")
	}
	if ic.Image != img || ic.Width != 16 || ic.Scale != 2 || ic.Center.Width != 0.5 {
		t.Errorf("ImageContent = %+v", ic)
	}
	if layoutOf(t, c, n.Get()).content != nil {
		t.Error("layout element should have no content")
	}
}

func TestSharedTextureBindsPerNode(t *testing.T) {
	h := newRecordingHost()
	c := newTestCompositor(t, h)
	a := c.NewNode(NodeSimple)
	b := c.NewNode(NodeSimple)
	defer a.Reset()
	defer b.Reset()

	tex := NewRef(NewElementTexture("shared"))
	defer tex.Reset()
	a.Get().SetContents(tex.Get(), 10, 10, 1)
	b.Get().SetContents(tex.Get(), 10, 10, 1)
	mustDispatch(t, c)

	if got := countCalls(h.calls, "content"); got != 2 {
		t.Errorf("content calls = %d, want 2", got)
	}
	if rc := tex.Get().RefCount(); rc != 3 {
		t.Errorf("RefCount = %d, want 3", rc)
	}
}
