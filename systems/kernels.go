// Package systems implements the Position-Based Fluids constraint solver,
// its supporting smoothing kernels, the uniform-grid neighbor index, and the
// boundary box.
package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Kernels bundles the Poly6 and Spiky smoothing kernels for a fixed
// smoothing length h. Both constants depend only on h, so they are
// precomputed once and reused for every kernel evaluation in a tick.
type Kernels struct {
	h          float64
	h2         float64
	polyConst  float64
	spikyConst float64
}

// NewKernels precomputes the Poly6 and Spiky constants for smoothing
// length h.
func NewKernels(h float64) Kernels {
	return Kernels{
		h:          h,
		h2:         h * h,
		polyConst:  315.0 / (64.0 * math.Pi * math.Pow(h, 9)),
		spikyConst: -45.0 / (math.Pi * math.Pow(h, 6)),
	}
}

// SmoothingLength returns h.
func (k Kernels) SmoothingLength() float64 {
	return k.h
}

// Poly6 evaluates the Poly6 density kernel at scalar distance r.
// Returns 0 outside [0, h].
func (k Kernels) Poly6(r float64) float64 {
	if r < 0 || r > k.h {
		return 0
	}
	t := k.h2 - r*r
	return k.polyConst * t * t * t
}

// SpikyGradient evaluates the gradient of the Spiky kernel for the
// separation vector d = x_i - x_j, whose length is r. Returns the zero
// vector for r == 0 or r > h.
func (k Kernels) SpikyGradient(d r3.Vec, r float64) r3.Vec {
	if r <= 0 || r > k.h {
		return r3.Vec{}
	}
	t := k.h - r
	scale := k.spikyConst * t * t / r
	return r3.Scale(scale, d)
}
