// Package renderer draws the fluid simulation with raylib: particles as
// low-poly spheres colored by density, and the boundary box as a wireframe.
// It is a pure consumer of fluid.System's read views — it never touches the
// simulation's internal state.
package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"fluidsim/fluid"
	"fluidsim/systems"
)

// ParticleRenderer draws every particle in a fluid.System snapshot as a
// sphere, colored by its density ratio.
type ParticleRenderer struct {
	rings, slices int32
}

// NewParticleRenderer creates a renderer using a low sphere tessellation —
// there can be thousands of particles on screen, so per-sphere detail stays
// cheap.
func NewParticleRenderer() *ParticleRenderer {
	return &ParticleRenderer{rings: 4, slices: 6}
}

// Draw renders every particle in views as a small sphere at its position.
func (r *ParticleRenderer) Draw(views []fluid.ParticleView) {
	for _, v := range views {
		center := rl.Vector3{X: float32(v.Position.X), Y: float32(v.Position.Y), Z: float32(v.Position.Z)}
		color := rl.Color{
			R: uint8(clamp01(v.Color.R) * 255),
			G: uint8(clamp01(v.Color.G) * 255),
			B: uint8(clamp01(v.Color.B) * 255),
			A: uint8(clamp01(v.Color.A) * 255),
		}
		rl.DrawSphereEx(center, float32(v.Radius), r.rings, r.slices, color)
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// BoxRenderer draws the simulation's boundary box as a wireframe cube.
type BoxRenderer struct {
	Color rl.Color
}

// NewBoxRenderer creates a box renderer with a sensible default wire color.
func NewBoxRenderer() *BoxRenderer {
	return &BoxRenderer{Color: rl.White}
}

// Draw renders box as a wireframe. Extents are read fresh every call so
// wave-mode animation of MaxX shows up immediately.
func (r *BoxRenderer) Draw(box *systems.BoundingBox) {
	center := rl.Vector3{
		X: float32((box.MinX + box.MaxX) / 2),
		Y: float32((box.MinY + box.MaxY) / 2),
		Z: float32((box.MinZ + box.MaxZ) / 2),
	}
	size := rl.Vector3{
		X: float32(box.MaxX - box.MinX),
		Y: float32(box.MaxY - box.MinY),
		Z: float32(box.MaxZ - box.MinZ),
	}
	rl.DrawCubeWiresV(center, size, r.Color)
}
