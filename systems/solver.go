package systems

import "gonum.org/v1/gonum/spatial/r3"

// FluidSolver implements the per-particle Position-Based Fluids math:
// predict, density/lambda, position projection, and the velocity-phase
// vorticity confinement plus XSPH viscosity. It holds only the constants
// from a config.Config; all per-particle state lives in the struct-of-array
// slices callers pass in, so a solver can be shared across worker
// goroutines processing disjoint index ranges.
type FluidSolver struct {
	kernels Kernels

	gravity     r3.Vec
	restDensity float64
	invRestDens float64
	relaxation  float64

	pressureStrength float64
	pressureExponent float64
	pressureRadius   float64
	pressureRadiusW  float64 // Poly6(pressureRadius), precomputed once

	xsphCoefficient      float64
	vorticityCoefficient float64
}

// NewFluidSolver builds a solver from resolved physical constants.
func NewFluidSolver(kernels Kernels, gravity r3.Vec, restDensity, relaxation,
	pressureStrength, pressureExponent, pressureRadius,
	xsphCoefficient, vorticityCoefficient float64) *FluidSolver {

	s := &FluidSolver{
		kernels:              kernels,
		gravity:              gravity,
		restDensity:          restDensity,
		invRestDens:          1 / restDensity,
		relaxation:           relaxation,
		pressureStrength:     pressureStrength,
		pressureExponent:     pressureExponent,
		pressureRadius:       pressureRadius,
		xsphCoefficient:      xsphCoefficient,
		vorticityCoefficient: vorticityCoefficient,
	}
	s.pressureRadiusW = kernels.Poly6(pressureRadius)
	return s
}

// PredictPosition applies gravity and any accumulated external force over
// dt, advances velocity, and returns the predicted position. The caller is
// responsible for zeroing the external force afterward.
func (s *FluidSolver) PredictPosition(dt float64, position, velocity, extForce r3.Vec) (predicted, newVelocity r3.Vec) {
	newVelocity = r3.Add(velocity, r3.Scale(dt, r3.Add(s.gravity, extForce)))
	predicted = r3.Add(position, r3.Scale(dt, newVelocity))
	return predicted, newVelocity
}

// ComputeDensity sums the Poly6-weighted mass of every neighbor of particle
// i, skipping i itself if it appears in its own neighbor list.
func (s *FluidSolver) ComputeDensity(i int, predicted []r3.Vec, mass []float64, neighbors []int32) float64 {
	var density float64
	pi := predicted[i]
	for _, jj := range neighbors {
		j := int(jj)
		if j == i {
			continue
		}
		r := r3.Norm(r3.Sub(pi, predicted[j]))
		density += mass[j] * s.kernels.Poly6(r)
	}
	return density
}

// ComputeLambda computes particle i's density and Lagrange multiplier. The
// density is returned so the caller can derive a visualization color from
// it without a second pass. If the density constraint is not violated
// (C <= 0), lambda is 0 and no gradient accumulation happens.
func (s *FluidSolver) ComputeLambda(i int, predicted []r3.Vec, mass []float64, neighbors []int32) (density, lambda float64) {
	density = s.ComputeDensity(i, predicted, mass, neighbors)

	c := density*s.invRestDens - 1
	if c <= 0 {
		return density, 0
	}

	pi := predicted[i]
	var sumGradLenSq float64
	var gradSum r3.Vec

	for _, jj := range neighbors {
		j := int(jj)
		if j == i {
			continue
		}
		d := r3.Sub(pi, predicted[j])
		r := r3.Norm(d)
		grad := r3.Scale(mass[j]*s.invRestDens, s.kernels.SpikyGradient(d, r))
		sumGradLenSq += r3.Dot(grad, grad)
		gradSum = r3.Add(gradSum, grad)
	}
	sumGradLenSq += r3.Dot(gradSum, gradSum)

	lambda = -c / (sumGradLenSq + s.relaxation)
	return density, lambda
}

// artificialPressure computes s_corr = -k * (W(r)/W(r_pressure))^n for the
// separation distance r between two predicted positions.
func (s *FluidSolver) artificialPressure(r float64) float64 {
	if s.pressureRadiusW == 0 {
		return 0
	}
	t := s.kernels.Poly6(r) / s.pressureRadiusW
	scorr := t
	for k := 1; k < int(s.pressureExponent); k++ {
		scorr *= t
	}
	return -s.pressureStrength * scorr
}

// PositionUpdate computes particle i's Δx from its own and its neighbors'
// lambdas plus the tensile-instability correction term.
func (s *FluidSolver) PositionUpdate(i int, predicted []r3.Vec, lambda []float64, neighbors []int32) r3.Vec {
	pi := predicted[i]
	var delta r3.Vec

	for _, jj := range neighbors {
		j := int(jj)
		if j == i {
			continue
		}
		d := r3.Sub(pi, predicted[j])
		r := r3.Norm(d)
		coeff := lambda[i] + lambda[j] + s.artificialPressure(r)
		delta = r3.Add(delta, r3.Scale(coeff, s.kernels.SpikyGradient(d, r)))
	}

	return r3.Scale(s.invRestDens, delta)
}

// EnvironmentCollide reflects a predicted position and velocity against the
// box's walls.
func (s *FluidSolver) EnvironmentCollide(box *BoundingBox, predicted, velocity r3.Vec, radius, restitution float64) (r3.Vec, r3.Vec) {
	return box.Collide(predicted, velocity, radius, restitution)
}

// VorticityAndXSPH applies XSPH viscosity to particle i's velocity and
// returns the vorticity-confinement force to be applied at the start of the
// next tick. The confinement direction is built from Σ∇W·‖ω‖, not the true
// gradient of ‖ω‖ — a deliberate deviation carried over from the reference
// implementation for behavioral parity.
func (s *FluidSolver) VorticityAndXSPH(i int, predicted, velocity []r3.Vec, density []float64, neighbors []int32) (newVelocity, extForce r3.Vec) {
	pi, vi := predicted[i], velocity[i]

	var vorticity r3.Vec
	var xsph r3.Vec

	for _, jj := range neighbors {
		j := int(jj)
		if j == i {
			continue
		}
		d := r3.Sub(pi, predicted[j])
		r := r3.Norm(d)
		vRel := r3.Sub(velocity[j], vi)

		vorticity = r3.Add(vorticity, r3.Cross(vRel, s.kernels.SpikyGradient(d, r)))

		if density[j] != 0 {
			xsph = r3.Add(xsph, r3.Scale(s.kernels.Poly6(r), vRel))
		}
	}

	newVelocity = r3.Add(vi, r3.Scale(s.xsphCoefficient, xsph))

	vortMag := r3.Norm(vorticity)
	if vortMag == 0 {
		return newVelocity, r3.Vec{}
	}

	var eta r3.Vec
	for _, jj := range neighbors {
		j := int(jj)
		if j == i {
			continue
		}
		d := r3.Sub(pi, predicted[j])
		r := r3.Norm(d)
		eta = r3.Add(eta, r3.Scale(vortMag, s.kernels.SpikyGradient(d, r)))
	}

	etaLenSq := r3.Dot(eta, eta)
	if etaLenSq == 0 {
		return newVelocity, r3.Vec{}
	}

	n := r3.Scale(1/r3.Norm(eta), eta)
	extForce = r3.Scale(s.vorticityCoefficient, r3.Cross(n, vorticity))
	return newVelocity, extForce
}
