package compositor

import "math"

// identityTransform is the identity affine matrix.
var identityTransform = [6]float64{1, 0, 0, 1, 0, 0}

// computeLocalTransform computes the local affine matrix from the visual's
// geometry. Returns [a, b, c, d, tx, ty].
//
// Composition order:
//
//	Translate(-anchor*size - contentOffset) -> Scale -> Rotate -> Translate(X, Y)
func computeLocalTransform(v *Visual) [6]float64 {
	sx := v.ScaleX
	sy := v.ScaleY

	sin, cos := math.Sincos(v.Rotation)

	px := v.AnchorX*v.Width + v.ContentOffsetX
	py := v.AnchorY*v.Height + v.ContentOffsetY
	preTx := -px * sx
	preTy := -py * sy

	// After Rotate:
	ra := cos * sx
	rb := sin * sx
	rc := -sin * sy
	rd := cos * sy
	rtx := cos*preTx - sin*preTy
	rty := sin*preTx + cos*preTy

	// After Translate(X, Y):
	return [6]float64{ra, rb, rc, rd, rtx + v.X, rty + v.Y}
}

// multiplyAffine multiplies two 2D affine matrices: result = parent * child.
//
//	Matrix layout: [a, b, c, d, tx, ty]
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0   1 |
func multiplyAffine(p, c [6]float64) [6]float64 {
	return [6]float64{
		p[0]*c[0] + p[2]*c[1],
		p[1]*c[0] + p[3]*c[1],
		p[0]*c[2] + p[2]*c[3],
		p[1]*c[2] + p[3]*c[3],
		p[0]*c[4] + p[2]*c[5] + p[4],
		p[1]*c[4] + p[3]*c[5] + p[5],
	}
}

// invertAffine computes the inverse of a 2D affine matrix.
// Returns the identity matrix if the matrix is singular.
func invertAffine(m [6]float64) [6]float64 {
	det := m[0]*m[3] - m[2]*m[1]
	if det > -1e-12 && det < 1e-12 {
		return identityTransform
	}
	invDet := 1.0 / det
	a := m[3] * invDet
	b := -m[1] * invDet
	c := -m[2] * invDet
	d := m[0] * invDet
	return [6]float64{
		a, b, c, d,
		-(a*m[4] + c*m[5]),
		-(b*m[4] + d*m[5]),
	}
}

// transformPoint applies an affine matrix to a point.
func transformPoint(m [6]float64, x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// updateWorldTransform recomputes a visual's worldTransform and worldAlpha.
// parentRecomputed forces recomputation even when the visual is not dirty.
func updateWorldTransform(v *Visual, parentTransform [6]float64, parentAlpha float64, parentRecomputed bool) {
	recompute := v.transformDirty || parentRecomputed
	if recompute {
		local := computeLocalTransform(v)
		v.worldTransform = multiplyAffine(parentTransform, local)
		v.worldAlpha = parentAlpha * v.Opacity
		v.transformDirty = false
	}

	for _, child := range v.children {
		updateWorldTransform(child, v.worldTransform, v.worldAlpha, recompute)
	}
}

// markDirty flags the visual for transform recomputation and invalidates
// any rasterization cache above it.
func (v *Visual) markDirty() {
	v.transformDirty = true
	v.invalidate()
}

// WorldToLocal converts a point from world space to this visual's local
// space, using the transforms computed by the last Draw or UpdateTransforms.
func (v *Visual) WorldToLocal(wx, wy float64) (lx, ly float64) {
	inv := invertAffine(v.worldTransform)
	return transformPoint(inv, wx, wy)
}

// LocalToWorld converts a point from this visual's local space to world space.
func (v *Visual) LocalToWorld(lx, ly float64) (wx, wy float64) {
	return transformPoint(v.worldTransform, lx, ly)
}
