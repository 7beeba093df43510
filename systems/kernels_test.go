package systems

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestPoly6Bounds(t *testing.T) {
	k := NewKernels(1.0)

	tests := []struct {
		name string
		r    float64
		want float64
	}{
		{"at zero", 0, k.polyConst * 1 * 1 * 1},
		{"at h", 1.0, 0},
		{"beyond h", 1.5, 0},
		{"negative", -0.1, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := k.Poly6(tc.r)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("Poly6(%v) = %v, want %v", tc.r, got, tc.want)
			}
		})
	}
}

func TestPoly6Monotonicity(t *testing.T) {
	k := NewKernels(2.0)
	prev := k.Poly6(0)
	for r := 0.1; r < 2.0; r += 0.1 {
		v := k.Poly6(r)
		if v > prev {
			t.Fatalf("Poly6 not monotonically decreasing near r=%v: %v > %v", r, v, prev)
		}
		prev = v
	}
}

func TestSpikyGradientZeroCases(t *testing.T) {
	k := NewKernels(1.0)

	if g := k.SpikyGradient(r3.Vec{X: 1}, 0); g != (r3.Vec{}) {
		t.Errorf("SpikyGradient at r=0 = %v, want zero vector", g)
	}
	if g := k.SpikyGradient(r3.Vec{X: 1}, 1.5); g != (r3.Vec{}) {
		t.Errorf("SpikyGradient beyond h = %v, want zero vector", g)
	}
}

func TestSpikyGradientPointsAlongSeparation(t *testing.T) {
	k := NewKernels(1.0)
	d := r3.Vec{X: 0.3, Y: 0, Z: 0}
	r := r3.Norm(d)

	g := k.SpikyGradient(d, r)

	// The spiky constant is negative, so the gradient should point opposite
	// to the separation vector d (attraction toward the origin of d).
	if g.X >= 0 {
		t.Errorf("SpikyGradient.X = %v, want negative (opposing d)", g.X)
	}
	if g.Y != 0 || g.Z != 0 {
		t.Errorf("SpikyGradient introduced off-axis component: %v", g)
	}
}
