package compositor

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// ErrNoFont is returned when a font family cannot be resolved.
var ErrNoFont = errors.New("compositor: font family not found")

// Font is the interface for text measurement and layout.
type Font interface {
	MeasureString(text string) (width, height float64)
	LineHeight() float64
}

// --- Typography ---

// FontWeight is a CSS-style weight in [1, 1000]; 400 is regular.
type FontWeight uint16

const (
	FontWeightThin     FontWeight = 100
	FontWeightLight    FontWeight = 300
	FontWeightNormal   FontWeight = 400
	FontWeightSemiBold FontWeight = 600
	FontWeightBold     FontWeight = 700
	FontWeightBlack    FontWeight = 900
)

// FontStretch is the width axis of a face.
type FontStretch uint8

const (
	FontStretchUndefined FontStretch = iota
	FontStretchUltraCondensed
	FontStretchExtraCondensed
	FontStretchCondensed
	FontStretchSemiCondensed
	FontStretchNormal
	FontStretchSemiExpanded
	FontStretchExpanded
	FontStretchExtraExpanded
	FontStretchUltraExpanded
)

// widthPercent maps a stretch to the OpenType wdth axis value.
func (s FontStretch) widthPercent() float32 {
	switch s {
	case FontStretchUltraCondensed:
		return 50
	case FontStretchExtraCondensed:
		return 62.5
	case FontStretchCondensed:
		return 75
	case FontStretchSemiCondensed:
		return 87.5
	case FontStretchSemiExpanded:
		return 112.5
	case FontStretchExpanded:
		return 125
	case FontStretchExtraExpanded:
		return 150
	case FontStretchUltraExpanded:
		return 200
	default:
		return 100
	}
}

// FontStyle selects upright or slanted faces.
type FontStyle uint8

const (
	FontStyleNormal FontStyle = iota
	FontStyleOblique
	FontStyleItalic
)

// --- BitmapFont ---

// bitmapGlyph is one char entry of a BMFont page.
type bitmapGlyph struct {
	src      image.Rectangle
	xOffset  float64
	yOffset  float64
	xAdvance float64
}

type kernPair struct{ first, second rune }

// BitmapFont lays out and draws text from a pre-rasterized glyph page in
// BMFont text format.
type BitmapFont struct {
	lineHeight float64
	base       float64
	page       *ebiten.Image // nil fonts measure but do not draw

	glyphs []bitmapGlyph
	// ascii maps runes below 128 to index+1 in glyphs; 0 means absent.
	ascii    [128]int32
	extended map[rune]int32
	kerning  map[kernPair]float64
}

// SetPage sets the image glyph regions are cut from.
func (f *BitmapFont) SetPage(img *ebiten.Image) {
	f.page = img
}

// NumGlyphs returns the number of chars defined by the font.
func (f *BitmapFont) NumGlyphs() int {
	return len(f.glyphs)
}

// LineHeight returns the vertical distance between baselines.
func (f *BitmapFont) LineHeight() float64 {
	return f.lineHeight
}

func (f *BitmapFont) lookup(r rune) *bitmapGlyph {
	var idx int32
	if r >= 0 && int(r) < len(f.ascii) {
		idx = f.ascii[r]
	} else {
		idx = f.extended[r]
	}
	if idx == 0 {
		return nil
	}
	return &f.glyphs[idx-1]
}

func (f *BitmapFont) add(r rune, g bitmapGlyph) {
	f.glyphs = append(f.glyphs, g)
	idx := int32(len(f.glyphs))
	if r >= 0 && int(r) < len(f.ascii) {
		f.ascii[r] = idx
		return
	}
	if f.extended == nil {
		f.extended = make(map[rune]int32)
	}
	f.extended[r] = idx
}

// walk advances a pen across one line, calling fn with each known glyph
// and its pen position. Unknown runes are skipped and break kerning. It
// returns the final pen position.
func (f *BitmapFont) walk(line string, fn func(g *bitmapGlyph, penX float64)) float64 {
	var pen float64
	prev := rune(-1)
	for _, r := range line {
		g := f.lookup(r)
		if g == nil {
			prev = -1
			continue
		}
		if prev >= 0 {
			pen += f.kerning[kernPair{prev, r}]
		}
		if fn != nil {
			fn(g, pen)
		}
		pen += g.xAdvance
		prev = r
	}
	return pen
}

// MeasureString returns the widest line's advance and the height of all
// lines.
func (f *BitmapFont) MeasureString(s string) (width, height float64) {
	lines := 0
	for line := range strings.SplitSeq(s, "\n") {
		lines++
		if w := f.walk(line, nil); w > width {
			width = w
		}
	}
	return width, float64(lines) * f.lineHeight
}

// drawLine blits one line of glyphs at local (x, y).
func (f *BitmapFont) drawLine(target *ebiten.Image, line string, x, y float64, col Color, world [6]float64, alpha float64) {
	if f.page == nil {
		return
	}
	geo := affineGeoM(world)
	f.walk(line, func(g *bitmapGlyph, penX float64) {
		if g.src.Empty() {
			return
		}
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(x+penX+g.xOffset, y+g.yOffset)
		op.GeoM.Concat(geo)
		applyTint(op, col, alpha)
		target.DrawImage(f.page.SubImage(g.src).(*ebiten.Image), op)
	})
}

// LoadBitmapFont parses BMFont .fnt text-format data. Attach the glyph page
// with SetPage before drawing.
func LoadBitmapFont(fntData []byte) (*BitmapFont, error) {
	f := &BitmapFont{}
	scanner := bufio.NewScanner(bytes.NewReader(fntData))
	for scanner.Scan() {
		tag, fields := parseFntLine(scanner.Text())
		switch tag {
		case "common":
			f.lineHeight = fields.float("lineHeight")
			f.base = fields.float("base")
		case "char":
			x, y := fields.int("x"), fields.int("y")
			f.add(rune(fields.int("id")), bitmapGlyph{
				src:      image.Rect(x, y, x+fields.int("width"), y+fields.int("height")),
				xOffset:  fields.float("xoffset"),
				yOffset:  fields.float("yoffset"),
				xAdvance: fields.float("xadvance"),
			})
		case "kerning":
			if f.kerning == nil {
				f.kerning = make(map[kernPair]float64)
			}
			pair := kernPair{rune(fields.int("first")), rune(fields.int("second"))}
			f.kerning[pair] = fields.float("amount")
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("compositor: failed to read .fnt data: %w", err)
	}
	if f.lineHeight <= 0 {
		return nil, errors.New("compositor: .fnt data missing common lineHeight")
	}
	if len(f.glyphs) == 0 {
		return nil, errors.New("compositor: .fnt data has no char definitions")
	}
	return f, nil
}

type fntFields map[string]string

func (ff fntFields) int(key string) int {
	v, _ := strconv.Atoi(ff[key])
	return v
}

func (ff fntFields) float(key string) float64 {
	v, _ := strconv.ParseFloat(ff[key], 64)
	return v
}

// parseFntLine splits `tag key=value key="quoted value" ...`.
func parseFntLine(line string) (string, fntFields) {
	line = strings.TrimSpace(line)
	tag, rest, _ := strings.Cut(line, " ")
	fields := make(fntFields)
	for rest = strings.TrimSpace(rest); rest != ""; rest = strings.TrimSpace(rest) {
		key, after, ok := strings.Cut(rest, "=")
		if !ok {
			break
		}
		key = strings.TrimSpace(key)
		if strings.HasPrefix(after, `"`) {
			val, tail, _ := strings.Cut(after[1:], `"`)
			fields[key], rest = val, tail
			continue
		}
		val, tail, _ := strings.Cut(after, " ")
		fields[key], rest = val, tail
	}
	return tag, fields
}

// --- TTFFont ---

// TTFFont wraps Ebitengine's text/v2 for TrueType font rendering.
type TTFFont struct {
	face *text.GoTextFace
	size float64
	lh   float64 // cached line height
}

// LoadTTFFont loads a TrueType font from raw TTF/OTF data at the given size.
func LoadTTFFont(ttfData []byte, size float64) (*TTFFont, error) {
	source, err := text.NewGoTextFaceSource(bytes.NewReader(ttfData))
	if err != nil {
		return nil, fmt.Errorf("compositor: failed to parse TTF data: %w", err)
	}
	return newTTFFont(&text.GoTextFace{Source: source, Size: size}), nil
}

func newTTFFont(face *text.GoTextFace) *TTFFont {
	m := face.Metrics()
	return &TTFFont{
		face: face,
		size: face.Size,
		lh:   m.HAscent + m.HDescent + m.HLineGap,
	}
}

// MeasureString returns the width and height of the rendered text.
func (f *TTFFont) MeasureString(s string) (width, height float64) {
	return text.Measure(s, f.face, f.lh)
}

// LineHeight returns the vertical distance between baselines.
func (f *TTFFont) LineHeight() float64 {
	return f.lh
}

// Face returns the underlying GoTextFace for direct Ebitengine text/v2 rendering.
func (f *TTFFont) Face() *text.GoTextFace {
	return f.face
}

// --- TTFFamily ---

// faceKey identifies one sized face within a family.
type faceKey struct {
	size    float64
	weight  FontWeight
	stretch FontStretch
	style   FontStyle
}

// TTFFamily is a set of TrueType sources for one family name. Sized faces
// are cached per (size, weight, stretch, style). Safe for concurrent use.
type TTFFamily struct {
	name    string
	sources [4]*text.GoTextFaceSource // regular, bold, italic, bold italic

	mu    sync.Mutex
	faces map[faceKey]*TTFFont
}

// NewTTFFamily creates a family from its regular face.
func NewTTFFamily(name string, regular []byte) (*TTFFamily, error) {
	fam := &TTFFamily{name: name, faces: make(map[faceKey]*TTFFont)}
	if err := fam.AddStyle(false, false, regular); err != nil {
		return nil, err
	}
	return fam, nil
}

// AddStyle adds a bold and/or italic source to the family.
func (fam *TTFFamily) AddStyle(bold, italic bool, data []byte) error {
	source, err := text.NewGoTextFaceSource(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("compositor: family %s: failed to parse TTF data: %w", fam.name, err)
	}
	fam.mu.Lock()
	fam.sources[styleSlot(bold, italic)] = source
	clear(fam.faces)
	fam.mu.Unlock()
	return nil
}

// Name returns the family name.
func (fam *TTFFamily) Name() string {
	return fam.name
}

func styleSlot(bold, italic bool) int {
	i := 0
	if bold {
		i |= 1
	}
	if italic {
		i |= 2
	}
	return i
}

// Face returns a sized face, picking the closest static source and setting
// the wght and wdth variation axes for variable fonts.
func (fam *TTFFamily) Face(size float64, weight FontWeight, stretch FontStretch, style FontStyle) *TTFFont {
	if size <= 0 || math.IsNaN(size) {
		size = 14
	}
	if weight == 0 {
		weight = FontWeightNormal
	}
	key := faceKey{size, weight, stretch, style}

	fam.mu.Lock()
	defer fam.mu.Unlock()
	if f, ok := fam.faces[key]; ok {
		return f
	}

	bold := weight >= FontWeightSemiBold
	italic := style != FontStyleNormal
	source := fam.sources[styleSlot(bold, italic)]
	if source == nil {
		source = fam.sources[styleSlot(false, italic)]
	}
	if source == nil {
		source = fam.sources[0]
	}
	face := &text.GoTextFace{Source: source, Size: size}
	face.SetVariation(text.MustParseTag("wght"), float32(weight))
	face.SetVariation(text.MustParseTag("wdth"), stretch.widthPercent())

	f := newTTFFont(face)
	fam.faces[key] = f
	return f
}

// --- FontRegistry ---

// DefaultFontFamily is the family used when a glyph texture names none.
const DefaultFontFamily = "Go"

// FontRegistry resolves family names to TTF families. Names compare
// case-insensitively. Safe for concurrent use.
type FontRegistry struct {
	mu       sync.RWMutex
	families map[string]*TTFFamily
}

// NewFontRegistry creates an empty registry.
func NewFontRegistry() *FontRegistry {
	return &FontRegistry{families: make(map[string]*TTFFamily)}
}

// Register adds or replaces a family under its name.
func (r *FontRegistry) Register(fam *TTFFamily) {
	r.mu.Lock()
	r.families[strings.ToLower(fam.name)] = fam
	r.mu.Unlock()
}

// Lookup resolves a family. An empty name resolves DefaultFontFamily.
func (r *FontRegistry) Lookup(name string) (*TTFFamily, error) {
	if name == "" {
		name = DefaultFontFamily
	}
	r.mu.RLock()
	fam, ok := r.families[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoFont, name)
	}
	return fam, nil
}

var (
	defaultFontsOnce sync.Once
	defaultFonts     *FontRegistry
)

// DefaultFonts returns the shared registry holding the Go font family.
func DefaultFonts() *FontRegistry {
	defaultFontsOnce.Do(func() {
		defaultFonts = NewFontRegistry()
		log := componentLogger("text")
		fam, err := NewTTFFamily(DefaultFontFamily, goregular.TTF)
		if err != nil {
			log.Error().Err(err).Msg("loading default font")
			return
		}
		styles := []struct {
			bold, italic bool
			data         []byte
		}{
			{true, false, gobold.TTF},
			{false, true, goitalic.TTF},
			{true, true, gobolditalic.TTF},
		}
		for _, s := range styles {
			if err := fam.AddStyle(s.bold, s.italic, s.data); err != nil {
				log.Error().Err(err).Msg("loading default font style")
			}
		}
		defaultFonts.Register(fam)
	})
	return defaultFonts
}

// --- Layout ---

// wrapText breaks s into lines no wider than width using f. Explicit
// newlines always break. A single word wider than width gets its own line.
// A width <= 0 disables wrapping.
func wrapText(f Font, s string, width float64) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		if width <= 0 {
			lines = append(lines, para)
			continue
		}
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		cur := words[0]
		for _, w := range words[1:] {
			candidate := cur + " " + w
			if cw, _ := f.MeasureString(candidate); cw > width {
				lines = append(lines, cur)
				cur = w
				continue
			}
			cur = candidate
		}
		lines = append(lines, cur)
	}
	return lines
}
