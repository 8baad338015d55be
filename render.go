package compositor

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
)

// whitePixel is a lazily created 1x1 white image used to fill backgrounds.
var whitePixel *ebiten.Image

func ensureWhitePixel() *ebiten.Image {
	if whitePixel == nil {
		whitePixel = ebiten.NewImage(1, 1)
		whitePixel.Fill(color.White)
	}
	return whitePixel
}

// UpdateTransforms refreshes world transforms without drawing. Useful for
// hit tests and coordinate conversion on a scene that is not on screen.
func (s *Scene) UpdateTransforms() {
	updateWorldTransform(s.root, identityTransform, 1.0, false)
}

// Draw renders the visual tree onto screen.
func (s *Scene) Draw(screen *ebiten.Image) {
	s.UpdateTransforms()
	s.drawVisual(screen, s.root, identityTransform, 1.0)
}

// drawVisual draws v and its subtree with the given parent transform.
func (s *Scene) drawVisual(target *ebiten.Image, v *Visual, parent [6]float64, parentAlpha float64) {
	if v.Hidden || v.destroyed {
		return
	}
	world := multiplyAffine(parent, computeLocalTransform(v))
	alpha := parentAlpha * v.Opacity
	if alpha <= 0 {
		return
	}

	// Clipped and rasterized visuals render their subtree offscreen in local
	// space and composite the result once.
	if (v.ClipToBounds || v.Rasterize) && v.Width >= 1 && v.Height >= 1 {
		s.drawOffscreen(target, v, world, alpha)
		return
	}
	s.drawSelf(target, v, world, alpha)
	for _, child := range s.orderedChildren(v) {
		s.drawVisual(target, child, world, alpha)
	}
}

// drawSelf draws v's background and content.
func (s *Scene) drawSelf(target *ebiten.Image, v *Visual, world [6]float64, alpha float64) {
	if v.Background.A > 0 && v.Width > 0 && v.Height > 0 {
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(v.Width, v.Height)
		op.GeoM.Concat(affineGeoM(world))
		applyTint(op, v.Background, alpha)
		target.DrawImage(ensureWhitePixel(), op)
	}
	switch c := v.Content.(type) {
	case ImageContent:
		drawImageContent(target, v, c, world, alpha)
	case TextContent:
		drawTextContent(target, c, world, alpha)
	case ElementContent:
		if inner := asVisual(c.Element); inner != nil {
			s.drawVisual(target, inner, world, alpha)
		}
	}
}

// orderedChildren returns v's children in paint order: TopMost last, then
// ascending ZIndex, insertion order breaking ties.
func (s *Scene) orderedChildren(v *Visual) []*Visual {
	if v.childrenSorted {
		if v.sortedChildren == nil {
			return v.children
		}
		return v.sortedChildren
	}
	v.childrenSorted = true
	needSort := false
	for _, c := range v.children {
		if c.ZIndex != 0 || c.TopMost {
			needSort = true
			break
		}
	}
	if !needSort {
		v.sortedChildren = nil
		return v.children
	}
	v.sortedChildren = append(v.sortedChildren[:0], v.children...)
	sort.SliceStable(v.sortedChildren, func(i, j int) bool {
		a, b := v.sortedChildren[i], v.sortedChildren[j]
		if a.TopMost != b.TopMost {
			return b.TopMost
		}
		return a.ZIndex < b.ZIndex
	})
	return v.sortedChildren
}

// drawOffscreen renders v's subtree into an offscreen image and composites
// it with v's world transform. Rasterized visuals keep the image until
// something below them changes.
func (s *Scene) drawOffscreen(target *ebiten.Image, v *Visual, world [6]float64, alpha float64) {
	w := int(math.Ceil(v.Width))
	h := int(math.Ceil(v.Height))

	var img *ebiten.Image
	pooled := false
	if v.Rasterize {
		var redraw bool
		img, redraw = v.rasterSurface(w, h)
		if redraw {
			img.Clear()
			s.renderLocal(img, v)
			v.rasterDirty = false
		}
	} else {
		img = s.surfaces.Acquire(w, h)
		pooled = true
		s.renderLocal(img, v)
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Concat(affineGeoM(world))
	op.ColorScale.ScaleAlpha(float32(alpha))
	src := img.SubImage(image.Rect(0, 0, w, h)).(*ebiten.Image)
	target.DrawImage(src, op)

	if pooled {
		s.surfaces.Release(img)
	}
}

// renderLocal draws v and its subtree into img in v's local space (without
// v's own transform or opacity).
func (s *Scene) renderLocal(img *ebiten.Image, v *Visual) {
	s.drawSelf(img, v, identityTransform, 1.0)
	for _, child := range s.orderedChildren(v) {
		s.drawVisual(img, child, identityTransform, 1.0)
	}
}

func drawImageContent(target *ebiten.Image, v *Visual, c ImageContent, world [6]float64, alpha float64) {
	if c.Image == nil {
		return
	}
	b := c.Image.Bounds()
	iw, ih := float64(b.Dx()), float64(b.Dy())
	if iw == 0 || ih == 0 {
		return
	}
	w, h := c.Width, c.Height
	if v.Width > 0 && v.Height > 0 {
		w, h = v.Width, v.Height
	}
	if w <= 0 || h <= 0 {
		scale := c.Scale
		if scale <= 0 {
			scale = 1
		}
		w, h = iw/scale, ih/scale
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(w/iw, h/ih)
	op.GeoM.Concat(affineGeoM(world))
	op.ColorScale.ScaleAlpha(float32(alpha))
	op.Filter = ebiten.FilterLinear
	target.DrawImage(c.Image, op)
}

func drawTextContent(target *ebiten.Image, c TextContent, world [6]float64, alpha float64) {
	if len(c.Lines) == 0 || c.Font == nil {
		return
	}
	lh := c.LineHeight
	if lh <= 0 {
		lh = c.Font.LineHeight()
	}
	top, left, bottom, right := c.Insets[0], c.Insets[1], c.Insets[2], c.Insets[3]
	innerW := c.Width - left - right
	y := top
	if c.CenterVertically {
		innerH := c.Height - top - bottom
		y = top + (innerH-float64(len(c.Lines))*lh)/2
	}
	for _, line := range c.Lines {
		lw, _ := c.Font.MeasureString(line)
		x := left
		switch c.Align {
		case TextAlignCenter:
			x = left + (innerW-lw)/2
		case TextAlignRight:
			x = left + innerW - lw
		}
		drawLine(target, c.Font, line, x, y, c.Color, world, alpha)
		y += lh
	}
}

// drawLine draws one line of text at local (x, y).
func drawLine(target *ebiten.Image, f Font, line string, x, y float64, col Color, world [6]float64, alpha float64) {
	switch font := f.(type) {
	case *TTFFont:
		op := &text.DrawOptions{}
		op.GeoM.Translate(x, y)
		op.GeoM.Concat(affineGeoM(world))
		applyTint(&op.DrawImageOptions, col, alpha)
		text.Draw(target, line, font.face, op)
	case *BitmapFont:
		font.drawLine(target, line, x, y, col, world, alpha)
	}
}

// affineGeoM converts a [a, b, c, d, tx, ty] matrix to an ebiten.GeoM.
func affineGeoM(m [6]float64) ebiten.GeoM {
	var g ebiten.GeoM
	g.SetElement(0, 0, m[0])
	g.SetElement(1, 0, m[1])
	g.SetElement(0, 1, m[2])
	g.SetElement(1, 1, m[3])
	g.SetElement(0, 2, m[4])
	g.SetElement(1, 2, m[5])
	return g
}

// applyTint scales a white source to the given straight-alpha color,
// premultiplying for ebiten.
func applyTint(op *ebiten.DrawImageOptions, c Color, alpha float64) {
	a := c.A * alpha
	op.ColorScale.Scale(float32(c.R*a), float32(c.G*a), float32(c.B*a), float32(a))
}
