// Package components defines the ark ECS components backing the particle
// store. There is exactly one archetype in this simulation: every particle
// carries all seven components below, created together in
// fluid.System.Initialize.
package components

import "gonum.org/v1/gonum/spatial/r3"

// Position is the particle's committed world position x, valid between
// ticks and used as the render position.
type Position struct {
	P r3.Vec
}

// Predicted is the particle's predicted position x* for the current tick,
// mutated in place by every solver phase.
type Predicted struct {
	P r3.Vec
}

// Velocity is the particle's velocity v.
type Velocity struct {
	V r3.Vec
}

// Force accumulates external forces (currently only vorticity confinement)
// applied at the next predictPosition and reset there. This makes the
// coupling one tick delayed: a force written during tick k's velocity phase
// is consumed by tick k+1's predictPosition phase.
type Force struct {
	F r3.Vec
}

// DeltaPos is the position correction Δx computed during a solver
// iteration's position-update phase and applied after every particle's
// delta for that iteration has been computed (Jacobi-style update).
type DeltaPos struct {
	D r3.Vec
}

// Scratch holds transient per-iteration solver state: density and the
// Lagrange multiplier lambda. Both are recomputed every solver iteration
// and carry no meaning between ticks.
type Scratch struct {
	Density float64
	Lambda  float64
}

// Attrs holds a particle's near-static physical attributes and its
// visualization color. Radius and Mass never change after creation; Color
// is recomputed once per tick from the density ratio when fluid.System
// flushes the tick's results back into the components.
type Attrs struct {
	Radius float64
	Mass   float64
	Color  Color
}

// Color is an RGBA color in the 0..1 range, used only for rendering.
type Color struct {
	R, G, B, A float32
}

// RestDensityRef is the reference density used to derive a particle's mass
// from its radius: m = (2r)^3 * RestDensityRef. It matches the solver's
// configured rest density in any sane configuration but is fixed here per
// spec so mass is well defined even before a FluidSolver exists.
const RestDensityRef = 1000.0

// MassFromRadius computes the invariant mass for a particle of the given
// radius: m = (2r)^3 * rho0.
func MassFromRadius(radius float64) float64 {
	d := 2 * radius
	return d * d * d * RestDensityRef
}
