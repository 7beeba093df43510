package systems

import "gonum.org/v1/gonum/spatial/r3"

// Wall is one inward-facing plane of the bounding box: n̂·p + d gives the
// signed distance from the plane, positive on the interior side.
type Wall struct {
	Center r3.Vec
	Normal r3.Vec
	D      float64
}

// BoundingBox is a six-plane axis-aligned box. Extents may be mutated (wave
// mode animates MaxX) and Rebuild must be called afterward to refresh Walls.
type BoundingBox struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64

	Walls [6]Wall
}

// NewBoundingBox constructs a box from its six extents and builds its walls.
// Panics if any axis has min >= max, matching the fatal-precondition policy
// for a degenerate simulation volume.
func NewBoundingBox(minX, maxX, minY, maxY, minZ, maxZ float64) *BoundingBox {
	b := &BoundingBox{MinX: minX, MaxX: maxX, MinY: minY, MaxY: maxY, MinZ: minZ, MaxZ: maxZ}
	b.Rebuild()
	return b
}

// Rebuild recomputes the six wall planes from the current extents. Call this
// any time an extent changes, e.g. wave mode animating MaxX.
func (b *BoundingBox) Rebuild() {
	if b.MinX >= b.MaxX || b.MinY >= b.MaxY || b.MinZ >= b.MaxZ {
		panic("systems: bounding box has zero or inverted extent")
	}

	// Eight corners, indexed like a unit cube: bit0=x, bit1=y, bit2=z.
	p := [8]r3.Vec{
		{X: b.MinX, Y: b.MinY, Z: b.MinZ}, // 0
		{X: b.MaxX, Y: b.MinY, Z: b.MinZ}, // 1
		{X: b.MinX, Y: b.MaxY, Z: b.MinZ}, // 2
		{X: b.MaxX, Y: b.MaxY, Z: b.MinZ}, // 3
		{X: b.MinX, Y: b.MinY, Z: b.MaxZ}, // 4
		{X: b.MaxX, Y: b.MinY, Z: b.MaxZ}, // 5
		{X: b.MinX, Y: b.MaxY, Z: b.MaxZ}, // 6
		{X: b.MaxX, Y: b.MaxY, Z: b.MaxZ}, // 7
	}

	center := func(idx ...int) r3.Vec {
		var sum r3.Vec
		for _, i := range idx {
			sum = r3.Add(sum, p[i])
		}
		return r3.Scale(1/float64(len(idx)), sum)
	}

	face := func(c r3.Vec, edgeA, edgeB r3.Vec) Wall {
		n := r3.Unit(r3.Cross(edgeA, edgeB))
		return Wall{Center: c, Normal: n, D: -r3.Dot(n, c)}
	}

	// Edge orderings chosen so each cross product points into the box
	// interior, in the order -Y, -X, +Z, +X, -Z, +Y.
	b.Walls[0] = face(center(0, 1, 4, 5), r3.Sub(p[0], p[1]), r3.Sub(p[5], p[1])) // -Y
	b.Walls[1] = face(center(0, 2, 4, 6), r3.Sub(p[6], p[2]), r3.Sub(p[0], p[2])) // -X
	b.Walls[2] = face(center(4, 5, 6, 7), r3.Sub(p[6], p[4]), r3.Sub(p[5], p[4])) // +Z
	b.Walls[3] = face(center(1, 3, 5, 7), r3.Sub(p[5], p[1]), r3.Sub(p[3], p[1])) // +X
	b.Walls[4] = face(center(0, 1, 2, 3), r3.Sub(p[3], p[1]), r3.Sub(p[0], p[1])) // -Z
	b.Walls[5] = face(center(2, 3, 6, 7), r3.Sub(p[3], p[2]), r3.Sub(p[6], p[2])) // +Y
}

// SignedDistance returns n̂·p + d - r for wall w, point p, and particle
// radius r. Negative means the particle penetrates the wall by |dist|.
func (w Wall) SignedDistance(p r3.Vec, radius float64) float64 {
	return r3.Dot(w.Normal, p) + w.D - radius
}

// Collide reflects a predicted position and velocity against every wall the
// particle penetrates, in wall order. A particle may be corrected against
// more than one wall in a single call; corner cases converge over a few
// solver iterations rather than in one pass.
func (b *BoundingBox) Collide(predicted r3.Vec, velocity r3.Vec, radius, restitution float64) (r3.Vec, r3.Vec) {
	for _, w := range b.Walls {
		dist := w.SignedDistance(predicted, radius)
		if dist < 0 {
			predicted = r3.Sub(predicted, r3.Scale(2*dist, w.Normal))
			velocity = r3.Scale(-restitution, velocity)
		}
	}
	return predicted, velocity
}
