package components

import "testing"

func TestMassFromRadius(t *testing.T) {
	tests := []struct {
		name   string
		radius float64
		want   float64
	}{
		{"quarter", 0.125, (2 * 0.125) * (2 * 0.125) * (2 * 0.125) * 1000},
		{"unit", 1, 8 * 1000},
		{"half", 0.5, 1 * 1000},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := MassFromRadius(tc.radius)
			if got != tc.want {
				t.Errorf("MassFromRadius(%v) = %v, want %v", tc.radius, got, tc.want)
			}
		})
	}
}

func TestMassFromRadiusPositive(t *testing.T) {
	if m := MassFromRadius(0.01); m <= 0 {
		t.Errorf("mass must be positive for a positive radius, got %v", m)
	}
}
