package fluid

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"fluidsim/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading embedded defaults: %v", err)
	}
	return cfg
}

func TestInitializeSeedsLatticeInsideBox(t *testing.T) {
	cfg := testConfig(t)
	s := New(cfg)
	s.Initialize()
	defer s.Close()

	if got := len(s.ids); got != cfg.Derived.ParticleCount {
		t.Fatalf("seeded %d particles, want %d", got, cfg.Derived.ParticleCount)
	}

	for i, p := range s.position {
		if p.X < s.box.MinX || p.X > s.box.MaxX ||
			p.Y < s.box.MinY || p.Y > s.box.MaxY ||
			p.Z < s.box.MinZ || p.Z > s.box.MaxZ {
			t.Fatalf("particle %d seeded outside the box at %v", i, p)
		}
	}
}

func TestTickNoOpWhenNotSimulating(t *testing.T) {
	cfg := testConfig(t)
	s := New(cfg)
	s.Initialize()
	defer s.Close()

	before := append([]r3.Vec{}, s.position...)

	s.SetSimulationEnabled(false)
	s.Tick()

	for i := range before {
		if s.position[i] != before[i] {
			t.Fatalf("particle %d moved while simulation disabled", i)
		}
	}
}

func TestZeroGravityAtRestIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	cfg.Physics.GravityX, cfg.Physics.GravityY, cfg.Physics.GravityZ = 0, 0, 0
	// Shrink the lattice to a single, isolated particle far from every wall.
	// With no neighbors its density is 0, so lambda is 0 and the solver
	// applies no position correction.
	cfg.Lattice.CountX, cfg.Lattice.CountY, cfg.Lattice.CountZ = 1, 1, 1
	cfg.Lattice.OffsetX, cfg.Lattice.OffsetY, cfg.Lattice.OffsetZ = 0, 0, 0

	s := New(cfg)
	s.Initialize()
	defer s.Close()

	before := s.position[0]
	s.SetSimulationEnabled(true)
	s.Tick()

	if dist := r3.Norm(r3.Sub(s.position[0], before)); dist > 1e-5 {
		t.Errorf("isolated at-rest particle under zero gravity moved by %v, want <= 1e-5", dist)
	}
}

func TestFreeFallSingleParticle(t *testing.T) {
	cfg := testConfig(t)
	cfg.Lattice.CountX, cfg.Lattice.CountY, cfg.Lattice.CountZ = 1, 1, 1
	cfg.Lattice.OffsetX, cfg.Lattice.OffsetY, cfg.Lattice.OffsetZ = 0, 0, 0
	// Push the box far away so the single particle never collides this tick.
	cfg.World.MinY = -100

	s := New(cfg)
	s.Initialize()
	defer s.Close()

	s.SetSimulationEnabled(true)
	s.Tick()

	dt := cfg.Physics.Timestep
	wantVY := cfg.Physics.GravityY * dt
	if math.Abs(s.velocity[0].Y-wantVY) > 1e-6 {
		t.Errorf("v_y after one tick = %v, want %v", s.velocity[0].Y, wantVY)
	}

	wantY := dt * wantVY
	if math.Abs(s.position[0].Y-wantY) > 1e-6 {
		t.Errorf("y after one tick = %v, want %v", s.position[0].Y, wantY)
	}
}

func TestBoxContainmentAfterManyTicks(t *testing.T) {
	cfg := testConfig(t)
	s := New(cfg)
	s.Initialize()
	defer s.Close()

	s.SetSimulationEnabled(true)
	for i := 0; i < 60; i++ {
		s.Tick()
	}

	eps := 2 * cfg.Lattice.Radius
	for i, p := range s.position {
		if p.X < s.box.MinX-eps || p.X > s.box.MaxX+eps ||
			p.Y < s.box.MinY-eps || p.Y > s.box.MaxY+eps ||
			p.Z < s.box.MinZ-eps || p.Z > s.box.MaxZ+eps {
			t.Fatalf("particle %d escaped the box after 60 ticks: %v", i, p)
		}
	}
}

func TestWaveModeTracksExpectedTrajectory(t *testing.T) {
	cfg := testConfig(t)
	s := New(cfg)
	s.Initialize()
	defer s.Close()

	s.SetSimulationEnabled(true)
	s.SetWaveModeEnabled(true)

	for k := 1; k <= 90; k++ {
		s.Tick()
		wantPhase := cfg.Wave.PhaseIncrement * float64(k)
		wantMaxX := cfg.Wave.BaseMaxX - math.Abs(math.Sin(wantPhase))*cfg.Wave.Amplitude
		if math.Abs(s.box.MaxX-wantMaxX) > 1e-9 {
			t.Fatalf("tick %d: box.MaxX = %v, want %v", k, s.box.MaxX, wantMaxX)
		}
	}

	if s.box.MaxX < 1 || s.box.MaxX > 6 {
		t.Errorf("after 90 ticks box.MaxX = %v, want in [1, 6]", s.box.MaxX)
	}
}

func TestStatsParticleCountMatchesLattice(t *testing.T) {
	cfg := testConfig(t)
	s := New(cfg)
	s.Initialize()
	defer s.Close()

	s.SetSimulationEnabled(true)
	s.Tick()

	stats := s.Stats()
	if stats.ParticleCount != cfg.Derived.ParticleCount {
		t.Errorf("Stats.ParticleCount = %d, want %d", stats.ParticleCount, cfg.Derived.ParticleCount)
	}
	if stats.Tick != 1 {
		t.Errorf("Stats.Tick = %d, want 1", stats.Tick)
	}
}
