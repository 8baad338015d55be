package compositor

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
)

// maxIdleSurfaces bounds how many released surfaces of one size are kept.
const maxIdleSurfaces = 4

type surfaceSize struct{ w, h int }

// surfacePool recycles the offscreen images used to clip masksToBounds
// subtrees. Sizes are rounded up to powers of two so that a visual that
// resizes slightly keeps hitting the same bucket. Host context only.
type surfacePool struct {
	idle map[surfaceSize][]*ebiten.Image
}

// Acquire returns a cleared surface of at least w x h pixels.
func (p *surfacePool) Acquire(w, h int) *ebiten.Image {
	size := surfaceSize{nextPowerOfTwo(w), nextPowerOfTwo(h)}
	if stack := p.idle[size]; len(stack) > 0 {
		img := stack[len(stack)-1]
		p.idle[size] = stack[:len(stack)-1]
		img.Clear()
		return img
	}
	return ebiten.NewImageWithOptions(
		image.Rect(0, 0, size.w, size.h),
		&ebiten.NewImageOptions{Unmanaged: true},
	)
}

// Release hands img back. Surfaces beyond maxIdleSurfaces per size are
// deallocated.
func (p *surfacePool) Release(img *ebiten.Image) {
	if img == nil {
		return
	}
	b := img.Bounds()
	size := surfaceSize{b.Dx(), b.Dy()}
	if p.idle == nil {
		p.idle = make(map[surfaceSize][]*ebiten.Image)
	}
	if len(p.idle[size]) >= maxIdleSurfaces {
		img.Deallocate()
		return
	}
	p.idle[size] = append(p.idle[size], img)
}

// Idle returns the number of pooled surfaces.
func (p *surfacePool) Idle() int {
	n := 0
	for _, stack := range p.idle {
		n += len(stack)
	}
	return n
}

// nextPowerOfTwo returns the smallest power of two >= n (minimum 1).
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

// --- shouldRasterize cache ---

// rasterSurface returns v's cached image sized exactly w x h, reallocating
// it when the visual was resized. redraw reports whether the cached pixels
// are stale.
func (v *Visual) rasterSurface(w, h int) (img *ebiten.Image, redraw bool) {
	if v.rasterCache != nil {
		if b := v.rasterCache.Bounds(); b.Dx() != w || b.Dy() != h {
			v.dropRasterCache()
		}
	}
	if v.rasterCache == nil {
		v.rasterCache = ebiten.NewImage(w, h)
		v.rasterDirty = true
	}
	return v.rasterCache, v.rasterDirty
}

func (v *Visual) dropRasterCache() {
	if v.rasterCache != nil {
		v.rasterCache.Deallocate()
		v.rasterCache = nil
	}
}

// SetRasterize toggles the rasterization cache on a visual directly,
// bypassing the property path. Disabling releases the cached image.
func (v *Visual) SetRasterize(enabled bool) {
	v.Rasterize = enabled
	if !enabled {
		v.dropRasterCache()
	}
	v.rasterDirty = true
}

// IsRasterCacheValid reports whether the visual holds a clean cached image.
func (v *Visual) IsRasterCacheValid() bool {
	return v.Rasterize && v.rasterCache != nil && !v.rasterDirty
}
