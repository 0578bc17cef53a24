package stagehand

import "math"

// identityTransform is the identity affine matrix.
var identityTransform = [6]float64{1, 0, 0, 1, 0, 0}

// computeLocalTransform computes the local affine matrix from the node's
// transform properties. Returns [a, b, c, d, tx, ty].
//
// Composition order:
//
//	Translate(-PivotX, -PivotY) -> Scale -> Rotate -> Translate(X, Y)
func computeLocalTransform(n *Node) [6]float64 {
	sx := n.ScaleX
	sy := n.ScaleY

	sin, cos := math.Sincos(n.Rotation)

	preTx := -n.PivotX * sx
	preTy := -n.PivotY * sy

	return [6]float64{
		cos * sx, sin * sx,
		-sin * sy, cos * sy,
		cos*preTx - sin*preTy + n.X,
		sin*preTx + cos*preTy + n.Y,
	}
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

func translateAffine(tx, ty float64) [6]float64 {
	return [6]float64{1, 0, 0, 1, tx, ty}
}

func scaleAffine(sx, sy float64) [6]float64 {
	return [6]float64{sx, 0, 0, sy, 0, 0}
}

func rotateAffine(r float64) [6]float64 {
	sin, cos := math.Sincos(r)
	return [6]float64{cos, sin, -sin, cos, 0, 0}
}

// worldAABB computes the axis-aligned bounding box for a rectangle of size (w, h)
// transformed by the given affine matrix. Zero allocations.
func worldAABB(transform [6]float64, w, h float64) Rect {
	a, b, cc, d, tx, ty := transform[0], transform[2], transform[1], transform[3], transform[4], transform[5]

	x0, y0 := tx, ty
	x1, y1 := a*w+tx, cc*w+ty
	x2, y2 := a*w+b*h+tx, cc*w+d*h+ty
	x3, y3 := b*h+tx, d*h+ty

	minX := math.Min(math.Min(x0, x1), math.Min(x2, x3))
	minY := math.Min(math.Min(y0, y1), math.Min(y2, y3))
	maxX := math.Max(math.Max(x0, x1), math.Max(x2, x3))
	maxY := math.Max(math.Max(y0, y1), math.Max(y2, y3))

	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// updateWorldTransform recomputes a node's worldTransform and worldAlpha.
// parentRecomputed indicates whether the parent was recomputed this frame,
// which forces recomputation of this node even if it's not dirty.
func updateWorldTransform(n *Node, parentTransform [6]float64, parentAlpha float64, parentRecomputed bool) {
	recompute := n.transformDirty || parentRecomputed
	if recompute {
		local := computeLocalTransform(n)
		n.worldTransform = multiplyAffine(parentTransform, local)
		n.worldAlpha = parentAlpha * n.Alpha
		n.transformDirty = false
	}

	for _, child := range n.children {
		updateWorldTransform(child, n.worldTransform, n.worldAlpha, recompute)
	}
}

// --- Transform property setters ---

// SetPosition sets the node's local X and Y and marks it dirty.
func (n *Node) SetPosition(x, y float64) {
	n.X = x
	n.Y = y
	n.transformDirty = true
}

// SetScale sets the node's ScaleX and ScaleY and marks it dirty.
func (n *Node) SetScale(sx, sy float64) {
	n.ScaleX = sx
	n.ScaleY = sy
	n.transformDirty = true
}

// SetRotation sets the node's rotation (in radians) and marks it dirty.
func (n *Node) SetRotation(r float64) {
	n.Rotation = r
	n.transformDirty = true
}

// SetPivot sets the node's PivotX and PivotY and marks it dirty.
func (n *Node) SetPivot(px, py float64) {
	n.PivotX = px
	n.PivotY = py
	n.transformDirty = true
}

// SetAlpha sets the node's alpha and marks it dirty.
func (n *Node) SetAlpha(a float64) {
	n.Alpha = a
	n.transformDirty = true
}

// MarkDirty marks the node's transform as dirty, forcing recomputation
// on the next frame. Useful after bulk-setting fields directly.
func (n *Node) MarkDirty() {
	n.transformDirty = true
}

// --- Coordinate conversion ---

// WorldPosition returns the world-space position of the node's origin,
// computed from the current local fields of the node and its ancestors
// rather than the cached world transform.
func (n *Node) WorldPosition() (x, y float64) {
	m := computeLocalTransform(n)
	for p := n.Parent; p != nil; p = p.Parent {
		m = multiplyAffine(computeLocalTransform(p), m)
	}
	return m[4], m[5]
}

// WorldToLocal converts a world-space point to this node's local coordinate space.
func (n *Node) WorldToLocal(wx, wy float64) (lx, ly float64) {
	inv := invertAffine(n.worldTransform)
	return transformPoint(inv, wx, wy)
}

// LocalToWorld converts a local-space point to world-space.
func (n *Node) LocalToWorld(lx, ly float64) (wx, wy float64) {
	return transformPoint(n.worldTransform, lx, ly)
}
