package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"fluidsim/config"
)

// OutputManager owns the CSV files a headless run writes into --output-dir.
// A nil *OutputManager is valid and every method becomes a no-op, matching
// the "output disabled" case of an empty --output-dir flag.
type OutputManager struct {
	dir string

	ticksFile     *os.File
	windowFile    *os.File
	windowHeader  bool
	ticksHeader   bool
}

// TickRecord is one row of the per-tick CSV: coarse enough to plot, cheap
// enough to write every tick without throttling.
type TickRecord struct {
	Tick              int     `csv:"tick"`
	ParticleCount     int     `csv:"particle_count"`
	MeanDensity       float64 `csv:"mean_density"`
	MinDensity        float64 `csv:"min_density"`
	MaxDensity        float64 `csv:"max_density"`
	MeanSpeed         float64 `csv:"mean_speed"`
	OverflowCells     int     `csv:"overflow_cells"`
	OverflowNeighbors int     `csv:"overflow_neighbors"`
}

// NewOutputManager creates ticks.csv and windows.csv under dir. Returns nil
// if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	ticksFile, err := os.Create(filepath.Join(dir, "ticks.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating ticks.csv: %w", err)
	}
	om.ticksFile = ticksFile

	windowFile, err := os.Create(filepath.Join(dir, "windows.csv"))
	if err != nil {
		om.ticksFile.Close()
		return nil, fmt.Errorf("creating windows.csv: %w", err)
	}
	om.windowFile = windowFile

	return om, nil
}

// WriteConfig saves the run's resolved configuration as YAML alongside the
// CSV output, so a run's parameters are always reproducible from its
// output directory alone.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteTick appends one tick record to ticks.csv.
func (om *OutputManager) WriteTick(rec TickRecord) error {
	if om == nil {
		return nil
	}
	records := []TickRecord{rec}
	if !om.ticksHeader {
		om.ticksHeader = true
		return gocsv.Marshal(records, om.ticksFile)
	}
	return gocsv.MarshalWithoutHeaders(records, om.ticksFile)
}

// WriteWindow appends one telemetry window summary to windows.csv.
func (om *OutputManager) WriteWindow(ws WindowStats) error {
	if om == nil {
		return nil
	}
	records := []WindowStats{ws}
	if !om.windowHeader {
		om.windowHeader = true
		return gocsv.Marshal(records, om.windowFile)
	}
	return gocsv.MarshalWithoutHeaders(records, om.windowFile)
}

// Dir returns the output directory, or "" if output is disabled.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes every open CSV file.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var firstErr error
	if err := om.ticksFile.Close(); err != nil {
		firstErr = err
	}
	if err := om.windowFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
