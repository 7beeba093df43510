// Package config provides configuration loading and access for the fluid
// simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	World     WorldConfig     `yaml:"world"`
	Lattice   LatticeConfig   `yaml:"lattice"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Grid      GridConfig      `yaml:"grid"`
	Wave      WaveConfig      `yaml:"wave"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds graphical-mode display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// WorldConfig holds the bounding box extents, min < max on each axis.
type WorldConfig struct {
	MinX float64 `yaml:"min_x"`
	MaxX float64 `yaml:"max_x"`
	MinY float64 `yaml:"min_y"`
	MaxY float64 `yaml:"max_y"`
	MinZ float64 `yaml:"min_z"`
	MaxZ float64 `yaml:"max_z"`
}

// LatticeConfig holds the initial particle lattice layout.
type LatticeConfig struct {
	CountX  int     `yaml:"count_x"`
	CountY  int     `yaml:"count_y"`
	CountZ  int     `yaml:"count_z"`
	Spacing float64 `yaml:"spacing"`
	OffsetX float64 `yaml:"offset_x"`
	OffsetY float64 `yaml:"offset_y"`
	OffsetZ float64 `yaml:"offset_z"`
	Radius  float64 `yaml:"radius"`
}

// PhysicsConfig holds the PBF solver's tunable constants.
type PhysicsConfig struct {
	Timestep              float64 `yaml:"timestep"`
	SolverIterations      int     `yaml:"solver_iterations"`
	GravityX              float64 `yaml:"gravity_x"`
	GravityY              float64 `yaml:"gravity_y"`
	GravityZ              float64 `yaml:"gravity_z"`
	RestDensity           float64 `yaml:"rest_density"`
	SmoothingLengthFactor float64 `yaml:"smoothing_length_factor"` // smoothing length = factor * radius
	Relaxation            float64 `yaml:"relaxation"`              // epsilon in the lambda denominator
	PressureStrength      float64 `yaml:"pressure_strength"`       // k
	PressureExponent      float64 `yaml:"pressure_exponent"`       // n
	PressureRadiusFactor  float64 `yaml:"pressure_radius_factor"`  // r_pressure = factor * h
	XSPHCoefficient       float64 `yaml:"xsph_coefficient"`
	VorticityCoefficient  float64 `yaml:"vorticity_coefficient"`
	Restitution           float64 `yaml:"restitution"`
}

// GridConfig holds the uniform neighbor-grid sizing parameters.
type GridConfig struct {
	MaxNeighbors       int     `yaml:"max_neighbors"`
	QueryRadiusFactor  float64 `yaml:"query_radius_factor"` // R = factor * radius
	CellEdgeFactor     float64 `yaml:"cell_edge_factor"`    // targetEdge = (2R)*factor
	MaxPerCellSafety   float64 `yaml:"max_per_cell_safety"` // multiplier on the capacity estimate
}

// WaveConfig holds wave-mode animation parameters.
type WaveConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Amplitude       float64 `yaml:"amplitude"`
	PhaseIncrement  float64 `yaml:"phase_increment"`
	BaseMaxX        float64 `yaml:"base_max_x"`
}

// TelemetryConfig holds telemetry collection and output parameters.
type TelemetryConfig struct {
	WindowSize int `yaml:"window_size"` // ticks per stats window
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	SmoothingLength float64 // Lattice.Radius * Physics.SmoothingLengthFactor
	QueryRadius     float64 // Lattice.Radius * Grid.QueryRadiusFactor
	PressureRadius  float64 // smoothing length * Physics.PressureRadiusFactor
	ParticleCount   int     // Lattice.CountX * CountY * CountZ
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if
// path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	return cfg, nil
}

// computeDerived calculates values derived from the loaded config.
func (c *Config) computeDerived() {
	c.Derived.SmoothingLength = c.Lattice.Radius * c.Physics.SmoothingLengthFactor
	c.Derived.QueryRadius = c.Lattice.Radius * c.Grid.QueryRadiusFactor
	c.Derived.PressureRadius = c.Derived.SmoothingLength * c.Physics.PressureRadiusFactor
	c.Derived.ParticleCount = c.Lattice.CountX * c.Lattice.CountY * c.Lattice.CountZ
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
