// Package telemetry accumulates per-tick simulation statistics into
// windowed summaries, tracks perf timing, and writes both to CSV.
package telemetry

import (
	"gonum.org/v1/gonum/stat"

	"fluidsim/fluid"
)

// Collector accumulates per-tick Stats samples over a fixed-size window and
// produces a WindowStats summary when the window fills.
type Collector struct {
	windowSize int

	densities []float64
	speeds    []float64

	overflowCells     int
	overflowNeighbors int

	windowStartTick int
}

// NewCollector creates a collector that flushes every windowSize ticks.
func NewCollector(windowSize int) *Collector {
	if windowSize < 1 {
		windowSize = 1
	}
	return &Collector{
		windowSize: windowSize,
		densities:  make([]float64, 0, windowSize),
		speeds:     make([]float64, 0, windowSize),
	}
}

// Record adds one tick's stats to the current window.
func (c *Collector) Record(s fluid.Stats) {
	c.densities = append(c.densities, s.MeanDensity)
	c.speeds = append(c.speeds, s.MeanSpeed)
	c.overflowCells += s.OverflowCells
	c.overflowNeighbors += s.OverflowNeighbors
}

// ShouldFlush reports whether the current window has filled.
func (c *Collector) ShouldFlush() bool {
	return len(c.densities) >= c.windowSize
}

// WindowStats summarizes one telemetry window's density and speed
// convergence, using gonum's stat package for the mean/stddev.
type WindowStats struct {
	WindowStartTick   int     `csv:"window_start_tick"`
	WindowEndTick     int     `csv:"window_end_tick"`
	ParticleCount     int     `csv:"particle_count"`
	DensityMean       float64 `csv:"density_mean"`
	DensityStdDev     float64 `csv:"density_stddev"`
	SpeedMean         float64 `csv:"speed_mean"`
	SpeedStdDev       float64 `csv:"speed_stddev"`
	OverflowCells     int     `csv:"overflow_cells"`
	OverflowNeighbors int     `csv:"overflow_neighbors"`
}

// Flush produces a WindowStats for the accumulated samples and resets the
// window. currentTick and particleCount come from the caller's latest
// fluid.Stats.
func (c *Collector) Flush(currentTick, particleCount int) WindowStats {
	densityMean, densityStd := stat.MeanStdDev(c.densities, nil)
	speedMean, speedStd := stat.MeanStdDev(c.speeds, nil)

	ws := WindowStats{
		WindowStartTick:   c.windowStartTick,
		WindowEndTick:     currentTick,
		ParticleCount:     particleCount,
		DensityMean:       densityMean,
		DensityStdDev:     densityStd,
		SpeedMean:         speedMean,
		SpeedStdDev:       speedStd,
		OverflowCells:     c.overflowCells,
		OverflowNeighbors: c.overflowNeighbors,
	}

	c.windowStartTick = currentTick
	c.densities = c.densities[:0]
	c.speeds = c.speeds[:0]
	c.overflowCells = 0
	c.overflowNeighbors = 0

	return ws
}
