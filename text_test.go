package compositor

import (
	"errors"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

// --- BMFont test fixture ---

// Minimal BMFont .fnt text data with ASCII glyphs for "ABCDEFGHIJ" + space.
const testFntData = `info face="TestFont" size=32 bold=0 italic=0 charset="" unicode=1 stretchH=100 smooth=1 aa=1 padding=0,0,0,0 spacing=0,0
common lineHeight=40 base=30 scaleW=256 scaleH=256 pages=1 packed=0
page id=0 file="test.png"
chars count=11
char id=32  x=0   y=0   width=0   height=0   xoffset=0   yoffset=0   xadvance=10  page=0
char id=65  x=0   y=0   width=20  height=30  xoffset=1   yoffset=2   xadvance=22  page=0
char id=66  x=20  y=0   width=18  height=30  xoffset=1   yoffset=2   xadvance=20  page=0
char id=67  x=38  y=0   width=19  height=30  xoffset=1   yoffset=2   xadvance=21  page=0
char id=68  x=57  y=0   width=20  height=30  xoffset=1   yoffset=2   xadvance=22  page=0
char id=69  x=77  y=0   width=16  height=30  xoffset=1   yoffset=2   xadvance=18  page=0
char id=70  x=93  y=0   width=15  height=30  xoffset=1   yoffset=2   xadvance=17  page=0
char id=71  x=108 y=0   width=20  height=30  xoffset=1   yoffset=2   xadvance=22  page=0
char id=72  x=128 y=0   width=20  height=30  xoffset=1   yoffset=2   xadvance=22  page=0
char id=73  x=148 y=0   width=8   height=30  xoffset=1   yoffset=2   xadvance=10  page=0
char id=74  x=156 y=0   width=12  height=30  xoffset=0   yoffset=2   xadvance=14  page=0
kernings count=2
kerning first=65 second=66 amount=-2
kerning first=65 second=67 amount=-1
`

// testFntDataNoLineHeight is malformed .fnt data missing lineHeight.
const testFntDataNoLineHeight = `info face="Bad" size=32
page id=0 file="test.png"
chars count=1
char id=65 x=0 y=0 width=10 height=10 xoffset=0 yoffset=0 xadvance=12 page=0
`

// testFntDataNoChars is .fnt data with no char definitions.
const testFntDataNoChars = `info face="Bad" size=32
common lineHeight=40 base=30 scaleW=256 scaleH=256 pages=1 packed=0
page id=0 file="test.png"
`

func loadTestFont(t *testing.T) *BitmapFont {
	t.Helper()
	f, err := LoadBitmapFont([]byte(testFntData))
	if err != nil {
		t.Fatalf("LoadBitmapFont: %v", err)
	}
	return f
}

// --- LoadBitmapFont ---

func TestLoadBitmapFont_GlyphCount(t *testing.T) {
	f := loadTestFont(t)
	if n := f.NumGlyphs(); n != 11 {
		t.Errorf("NumGlyphs = %d, want 11", n)
	}
}

func TestLoadBitmapFont_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"garbage", "not valid fnt data at all"},
		{"no lineHeight", testFntDataNoLineHeight},
		{"no chars", testFntDataNoChars},
	}
	for _, tt := range tests {
		if _, err := LoadBitmapFont([]byte(tt.data)); err == nil {
			t.Errorf("%s: expected error, got nil", tt.name)
		}
	}
}

func TestLoadTTFFont_InvalidData(t *testing.T) {
	if _, err := LoadTTFFont([]byte("not a TTF file"), 16); err == nil {
		t.Error("expected error for invalid TTF data, got nil")
	}
}

func TestParseFntLineQuotedValues(t *testing.T) {
	tag, fields := parseFntLine(`info face="Test Font Bold" size=32 charset=""`)
	if tag != "info" {
		t.Errorf("tag = %q, want info", tag)
	}
	if fields["face"] != "Test Font Bold" || fields.int("size") != 32 || fields["charset"] != "" {
		t.Errorf("fields = %v", fields)
	}
}

// --- MeasureString ---

func TestBitmapFont_MeasureString(t *testing.T) {
	f := loadTestFont(t)
	tests := []struct {
		s    string
		w, h float64
	}{
		{"AB", 40, 40},   // 22 - 2 + 20
		{"AC", 42, 40},   // 22 - 1 + 21
		{"CD", 43, 40},   // no kerning
		{"A\nB", 22, 80}, // widest line, two lines
		{"", 0, 40},
		{"A?", 22, 40}, // unknown rune is skipped
	}
	for _, tt := range tests {
		w, h := f.MeasureString(tt.s)
		if w != tt.w || h != tt.h {
			t.Errorf("MeasureString(%q) = (%v, %v), want (%v, %v)", tt.s, w, h, tt.w, tt.h)
		}
	}
	var font Font = f
	if font.LineHeight() != 40 {
		t.Errorf("LineHeight() = %v, want 40", font.LineHeight())
	}
}

// --- wrapText ---

func TestWrapText(t *testing.T) {
	f := loadTestFont(t)
	// "AB" = 40, "AB CD" = 40 + 10 + 43 = 93
	tests := []struct {
		s     string
		width float64
		want  []string
	}{
		{"AB CD", 100, []string{"AB CD"}},
		{"AB CD", 60, []string{"AB", "CD"}},
		{"AB CD EF", 0, []string{"AB CD EF"}},
		{"ABCDEFGHIJ", 50, []string{"ABCDEFGHIJ"}},
		{"AB\n\nCD", 100, []string{"AB", "", "CD"}},
	}
	for _, tt := range tests {
		got := wrapText(f, tt.s, tt.width)
		if len(got) != len(tt.want) {
			t.Errorf("wrapText(%q, %v) = %q, want %q", tt.s, tt.width, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("wrapText(%q, %v)[%d] = %q, want %q", tt.s, tt.width, i, got[i], tt.want[i])
			}
		}
	}
}

// --- Families ---

func TestFontRegistryLookup(t *testing.T) {
	r := NewFontRegistry()
	if _, err := r.Lookup(""); !errors.Is(err, ErrNoFont) {
		t.Errorf("empty registry Lookup = %v, want ErrNoFont", err)
	}
	fam, err := NewTTFFamily("Sans", goregular.TTF)
	if err != nil {
		t.Fatalf("NewTTFFamily: %v", err)
	}
	r.Register(fam)
	got, err := r.Lookup("sANS")
	if err != nil || got != fam {
		t.Errorf("Lookup(sANS) = %v, %v; want the Sans family", got, err)
	}
	if _, err := r.Lookup("Serif"); !errors.Is(err, ErrNoFont) {
		t.Errorf("Lookup(Serif) = %v, want ErrNoFont", err)
	}
}

func TestDefaultFontsHasGo(t *testing.T) {
	fam, err := DefaultFonts().Lookup("")
	if err != nil {
		t.Fatalf("Lookup default: %v", err)
	}
	if fam.Name() != DefaultFontFamily {
		t.Errorf("Name = %q, want %q", fam.Name(), DefaultFontFamily)
	}
}

func TestTTFFamilyFaceCache(t *testing.T) {
	fam, err := NewTTFFamily("Go", goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	a := fam.Face(16, FontWeightNormal, FontStretchNormal, FontStyleNormal)
	b := fam.Face(16, FontWeightNormal, FontStretchNormal, FontStyleNormal)
	if a != b {
		t.Error("same typography should reuse the cached face")
	}
	big := fam.Face(32, FontWeightNormal, FontStretchNormal, FontStyleNormal)
	if big == a {
		t.Error("different size should produce a new face")
	}
	if big.LineHeight() <= a.LineHeight() {
		t.Errorf("LineHeight(32) = %v should exceed LineHeight(16) = %v", big.LineHeight(), a.LineHeight())
	}
	if bold := fam.Face(16, FontWeightBold, FontStretchNormal, FontStyleItalic); bold == nil {
		t.Error("missing styles should fall back to the regular source")
	}
	if w, _ := a.MeasureString("Hello"); w <= 0 {
		t.Errorf("MeasureString width = %v, want > 0", w)
	}
}
