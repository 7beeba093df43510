// Package fluid orchestrates the Position-Based Fluids tick: it owns the
// particle store, the boundary box, the neighbor index, and the solver, and
// runs the six-phase update spec'd for a single tick.
package fluid

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mlange-42/ark/ecs"

	"fluidsim/components"
	"fluidsim/config"
	"fluidsim/systems"
)

// ParticleView is a read-only snapshot of one particle, returned by
// Particles() for the renderer and CLI to consume without touching the ECS
// world directly.
type ParticleView struct {
	Position r3.Vec
	Velocity r3.Vec
	Radius   float64
	Color    components.Color
	Density  float64
}

// Stats summarizes one tick's outcome for telemetry.
type Stats struct {
	Tick              int
	ParticleCount     int
	MeanDensity       float64
	MinDensity        float64
	MaxDensity        float64
	MeanSpeed         float64
	OverflowCells     int // grid insertions dropped because their cell was full this tick
	OverflowNeighbors int // particles whose neighbor list hit the cap this tick
}

// System owns the entire simulation: the ark world, the boundary box, the
// neighbor index, the solver, and the persistent worker pool that fans the
// per-particle phases out across goroutines.
type System struct {
	cfg *config.Config

	world *ecs.World

	entityMapper *ecs.Map7[
		components.Position,
		components.Predicted,
		components.Velocity,
		components.Force,
		components.DeltaPos,
		components.Scratch,
		components.Attrs,
	]

	posMap      *ecs.Map1[components.Position]
	predMap     *ecs.Map1[components.Predicted]
	velMap      *ecs.Map1[components.Velocity]
	forceMap    *ecs.Map1[components.Force]
	deltaMap    *ecs.Map1[components.DeltaPos]
	scratchMap  *ecs.Map1[components.Scratch]
	attrsMap    *ecs.Map1[components.Attrs]

	ids []ecs.Entity // stable index order, built once at initialize()

	box    *systems.BoundingBox
	grid   *systems.NeighborIndex
	solver *systems.FluidSolver
	pool   *workerPool

	// per-tick working slices, indexed the same way as ids
	position  []r3.Vec
	predicted []r3.Vec
	velocity  []r3.Vec
	extForce  []r3.Vec
	deltaPos  []r3.Vec
	density      []float64
	lambda       []float64
	mass         []float64
	radius       []float64
	nextVelocity []r3.Vec

	tick        int
	simulating  bool
	waveEnabled bool
	wavePhase   float64
}

// New constructs a fluid system from cfg but does not populate it — call
// Initialize to seed the particle lattice.
func New(cfg *config.Config) *System {
	world := ecs.NewWorld()

	s := &System{
		cfg:   cfg,
		world: world,
		entityMapper: ecs.NewMap7[
			components.Position,
			components.Predicted,
			components.Velocity,
			components.Force,
			components.DeltaPos,
			components.Scratch,
			components.Attrs,
		](world),
		posMap:     ecs.NewMap1[components.Position](world),
		predMap:    ecs.NewMap1[components.Predicted](world),
		velMap:     ecs.NewMap1[components.Velocity](world),
		forceMap:   ecs.NewMap1[components.Force](world),
		deltaMap:   ecs.NewMap1[components.DeltaPos](world),
		scratchMap: ecs.NewMap1[components.Scratch](world),
		attrsMap:   ecs.NewMap1[components.Attrs](world),
		pool:       newWorkerPool(),
		simulating: false,
		waveEnabled: cfg.Wave.Enabled,
	}
	return s
}

// Initialize seeds the particle lattice, builds the bounding box and its
// walls, and sizes the neighbor index. It panics if the configured box is
// degenerate, matching the fatal-precondition policy for init errors.
func (s *System) Initialize() {
	l := s.cfg.Lattice
	s.box = systems.NewBoundingBox(
		s.cfg.World.MinX, s.cfg.World.MaxX,
		s.cfg.World.MinY, s.cfg.World.MaxY,
		s.cfg.World.MinZ, s.cfg.World.MaxZ,
	)

	count := l.CountX * l.CountY * l.CountZ
	s.ids = make([]ecs.Entity, 0, count)
	s.position = make([]r3.Vec, count)
	s.predicted = make([]r3.Vec, count)
	s.velocity = make([]r3.Vec, count)
	s.extForce = make([]r3.Vec, count)
	s.deltaPos = make([]r3.Vec, count)
	s.density = make([]float64, count)
	s.lambda = make([]float64, count)
	s.mass = make([]float64, count)
	s.radius = make([]float64, count)
	s.nextVelocity = make([]r3.Vec, count)

	mass := components.MassFromRadius(l.Radius)

	idx := 0
	for x := 0; x < l.CountX; x++ {
		for z := 0; z < l.CountZ; z++ {
			for y := 0; y < l.CountY; y++ {
				pos := r3.Vec{
					X: float64(x)*l.Spacing + l.OffsetX,
					Y: float64(y)*l.Spacing + l.OffsetY,
					Z: float64(z)*l.Spacing + l.OffsetZ,
				}

				posC := components.Position{P: pos}
				predC := components.Predicted{P: pos}
				velC := components.Velocity{}
				forceC := components.Force{}
				deltaC := components.DeltaPos{}
				scratchC := components.Scratch{}
				attrsC := components.Attrs{
					Radius: l.Radius,
					Mass:   mass,
					Color:  components.Color{R: 0, G: 0.62745, B: 0.690196, A: 1},
				}

				entity := s.entityMapper.NewEntity(&posC, &predC, &velC, &forceC, &deltaC, &scratchC, &attrsC)
				s.ids = append(s.ids, entity)

				s.position[idx] = pos
				s.predicted[idx] = pos
				s.mass[idx] = mass
				s.radius[idx] = l.Radius
				idx++
			}
		}
	}

	h := s.cfg.Derived.SmoothingLength
	kernels := systems.NewKernels(h)
	gravity := r3.Vec{X: s.cfg.Physics.GravityX, Y: s.cfg.Physics.GravityY, Z: s.cfg.Physics.GravityZ}

	s.solver = systems.NewFluidSolver(
		kernels, gravity,
		s.cfg.Physics.RestDensity, s.cfg.Physics.Relaxation,
		s.cfg.Physics.PressureStrength, s.cfg.Physics.PressureExponent, s.cfg.Derived.PressureRadius,
		s.cfg.Physics.XSPHCoefficient, s.cfg.Physics.VorticityCoefficient,
	)

	s.grid = systems.NewNeighborIndex(s.box, count, l.Radius, s.cfg.Derived.QueryRadius, s.cfg.Grid.MaxNeighbors,
		s.cfg.Grid.CellEdgeFactor, s.cfg.Grid.MaxPerCellSafety)

	Logf("fluid: initialized %d particles in an %d x %d x %d lattice", count, l.CountX, l.CountY, l.CountZ)
}

// SetSimulationEnabled toggles whether Tick advances the physics.
func (s *System) SetSimulationEnabled(enabled bool) {
	s.simulating = enabled
}

// SetWaveModeEnabled toggles the animated-wall wave mode.
func (s *System) SetWaveModeEnabled(enabled bool) {
	s.waveEnabled = enabled
}

// Tick advances the simulation by one fixed step and returns the tick
// counter's new value. If simulation is disabled, Tick still returns the
// current counter but does no work.
func (s *System) Tick() int {
	if !s.simulating {
		return s.tick
	}

	if s.waveEnabled {
		s.wavePhase += s.cfg.Wave.PhaseIncrement
		s.box.MaxX = s.cfg.Wave.BaseMaxX - math.Abs(math.Sin(s.wavePhase))*s.cfg.Wave.Amplitude
		s.box.Rebuild()
	}

	dt := s.cfg.Physics.Timestep
	n := len(s.ids)

	s.pool.forEach(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			predicted, vel := s.solver.PredictPosition(dt, s.position[i], s.velocity[i], s.extForce[i])
			s.predicted[i] = predicted
			s.velocity[i] = vel
			s.extForce[i] = r3.Vec{}
			s.deltaPos[i] = r3.Vec{}
		}
	})

	s.grid.BuildTable(s.position)

	s.pool.forEach(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			s.grid.BuildNeighborTable(i, s.position)
		}
	})

	iterations := s.cfg.Physics.SolverIterations
	for iter := 0; iter < iterations; iter++ {
		s.pool.forEach(n, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				density, lambda := s.solver.ComputeLambda(i, s.predicted, s.mass, s.grid.Neighbors(i))
				s.density[i] = density
				s.lambda[i] = lambda
			}
		})

		// Δx reads every neighbor's predicted position, so it must finish for
		// every particle before environmentCollide starts mutating predicted
		// positions in place.
		s.pool.forEach(n, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				s.deltaPos[i] = s.solver.PositionUpdate(i, s.predicted, s.lambda, s.grid.Neighbors(i))
			}
		})

		s.pool.forEach(n, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				predicted, vel := s.solver.EnvironmentCollide(s.box, s.predicted[i], s.velocity[i], s.radius[i], s.cfg.Physics.Restitution)
				s.predicted[i] = predicted
				s.velocity[i] = vel
			}
		})

		s.pool.forEach(n, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				s.predicted[i] = r3.Add(s.predicted[i], s.deltaPos[i])
			}
		})
	}

	invDt := 1 / dt
	s.pool.forEach(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			s.velocity[i] = r3.Scale(invDt, r3.Sub(s.predicted[i], s.position[i]))
		}
	})

	// VorticityAndXSPH reads every neighbor's velocity, so the new values are
	// written to a separate buffer and swapped in only after every particle
	// has been processed against the same consistent snapshot.
	s.pool.forEach(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			newVel, extForce := s.solver.VorticityAndXSPH(i, s.predicted, s.velocity, s.density, s.grid.Neighbors(i))
			s.nextVelocity[i] = newVel
			s.extForce[i] = extForce
			s.position[i] = s.predicted[i]
		}
	})
	s.velocity, s.nextVelocity = s.nextVelocity, s.velocity

	s.flushToComponents()

	s.tick++
	return s.tick
}

// flushToComponents writes the tick's working slices back into the ark
// components so Particles() and the renderer see the committed state.
func (s *System) flushToComponents() {
	rho0 := s.cfg.Physics.RestDensity
	for i, e := range s.ids {
		s.posMap.Get(e).P = s.position[i]
		s.predMap.Get(e).P = s.predicted[i]
		s.velMap.Get(e).V = s.velocity[i]
		s.forceMap.Get(e).F = s.extForce[i]
		s.deltaMap.Get(e).D = s.deltaPos[i]

		scratch := s.scratchMap.Get(e)
		scratch.Density = s.density[i]
		scratch.Lambda = s.lambda[i]

		attrs := s.attrsMap.Get(e)
		ratio := s.density[i] / rho0
		attrs.Color = densityColor(ratio)
	}
}

// densityColor derives a visualization color from a particle's density
// ratio ρ/ρ0, matching the reference implementation's warm-to-cool mapping.
func densityColor(ratio float64) components.Color {
	warm := components.Color{R: 1, G: 0.37255, B: 0.309804, A: 1}
	cool := components.Color{R: 0, G: 0.62745, B: 0.690196, A: 1}
	t := ratio - 1
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	lerp := func(a, b float32, t float64) float32 { return a + float32(t)*(b-a) }
	return components.Color{
		R: lerp(cool.R, warm.R, t),
		G: lerp(cool.G, warm.G, t),
		B: lerp(cool.B, warm.B, t),
		A: 1,
	}
}

// Particles returns a read-only snapshot of every particle's render-facing
// state, in stable index order.
func (s *System) Particles() []ParticleView {
	views := make([]ParticleView, len(s.ids))
	for i, e := range s.ids {
		attrs := s.attrsMap.Get(e)
		views[i] = ParticleView{
			Position: s.position[i],
			Velocity: s.velocity[i],
			Radius:   attrs.Radius,
			Color:    attrs.Color,
			Density:  s.density[i],
		}
	}
	return views
}

// BoundingBox returns the current boundary box (extents may be animated by
// wave mode).
func (s *System) BoundingBox() *systems.BoundingBox {
	return s.box
}

// Stats computes summary statistics for the current tick, for telemetry.
func (s *System) Stats() Stats {
	n := len(s.ids)
	stats := Stats{
		Tick:              s.tick,
		ParticleCount:     n,
		OverflowCells:     s.grid.OverflowCells(),
		OverflowNeighbors: s.grid.OverflowNeighbors(),
	}
	if n == 0 {
		return stats
	}

	stats.MinDensity = s.density[0]
	stats.MaxDensity = s.density[0]
	var densitySum, speedSum float64
	for i := 0; i < n; i++ {
		d := s.density[i]
		densitySum += d
		if d < stats.MinDensity {
			stats.MinDensity = d
		}
		if d > stats.MaxDensity {
			stats.MaxDensity = d
		}
		speedSum += r3.Norm(s.velocity[i])
	}
	stats.MeanDensity = densitySum / float64(n)
	stats.MeanSpeed = speedSum / float64(n)
	return stats
}

// Close stops the worker pool. Safe to call even if it was never started.
func (s *System) Close() {
	s.pool.stop()
	Logf("fluid: shut down after %d ticks, %d particles", s.tick, len(s.ids))
}
