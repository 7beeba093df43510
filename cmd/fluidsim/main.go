// Command fluidsim drives the Position-Based Fluids simulation, either
// headless (for batch/telemetry runs) or in a raylib window.
package main

import (
	"flag"
	"log/slog"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"

	"fluidsim/config"
	"fluidsim/fluid"
	"fluidsim/renderer"
	"fluidsim/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use embedded defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	outputDir := flag.String("output-dir", "", "Directory for ticks.csv, windows.csv, and config.yaml")
	logStats := flag.Bool("log-stats", false, "Log perf stats via slog every telemetry window")
	startRunning := flag.Bool("run", true, "Start with the simulation enabled")
	startWaves := flag.Bool("waves", false, "Start with wave mode enabled")

	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	sys := fluid.New(cfg)
	sys.Initialize()
	defer sys.Close()

	running := *startRunning
	waving := *startWaves || cfg.Wave.Enabled
	sys.SetSimulationEnabled(running)
	sys.SetWaveModeEnabled(waving)

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to open output directory", "error", err)
		os.Exit(1)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	collector := telemetry.NewCollector(cfg.Telemetry.WindowSize)
	perf := telemetry.NewPerfCollector(cfg.Telemetry.WindowSize)

	var currentTick int
	runTick := func() {
		perf.StartTick()
		currentTick = sys.Tick()
		perf.EndTick()

		stats := sys.Stats()
		output.WriteTick(telemetry.TickRecord{
			Tick:              stats.Tick,
			ParticleCount:     stats.ParticleCount,
			MeanDensity:       stats.MeanDensity,
			MinDensity:        stats.MinDensity,
			MaxDensity:        stats.MaxDensity,
			MeanSpeed:         stats.MeanSpeed,
			OverflowCells:     stats.OverflowCells,
			OverflowNeighbors: stats.OverflowNeighbors,
		})

		collector.Record(stats)
		if collector.ShouldFlush() {
			ws := collector.Flush(stats.Tick, stats.ParticleCount)
			output.WriteWindow(ws)
			if *logStats {
				slog.Info("telemetry window",
					"tick", ws.WindowEndTick,
					"density_mean", ws.DensityMean,
					"density_stddev", ws.DensityStdDev,
					"speed_mean", ws.SpeedMean,
					"overflow_cells", ws.OverflowCells,
					"overflow_neighbors", ws.OverflowNeighbors,
				)
				perf.Stats().LogStats()
			}
		}
	}

	if *headless {
		slog.Info("starting headless run", "particles", cfg.Derived.ParticleCount, "max_ticks", *maxTicks)
		for {
			runTick()
			if *maxTicks > 0 && currentTick >= *maxTicks {
				slog.Info("max ticks reached", "tick", currentTick)
				return
			}
		}
	}

	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "fluidsim")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	particleRenderer := renderer.NewParticleRenderer()
	boxRenderer := renderer.NewBoxRenderer()

	camera := rl.Camera3D{
		Position:   rl.Vector3{X: 0, Y: 5, Z: 25},
		Target:     rl.Vector3{X: 0, Y: -2, Z: -4},
		Up:         rl.Vector3{X: 0, Y: 1, Z: 0},
		Fovy:       45,
		Projection: rl.CameraPerspective,
	}

	for !rl.WindowShouldClose() {
		if rl.IsKeyPressed(rl.KeyS) {
			running = !running
			sys.SetSimulationEnabled(running)
		}
		if rl.IsKeyPressed(rl.KeyW) {
			waving = !waving
			sys.SetWaveModeEnabled(waving)
		}

		runTick()
		if *maxTicks > 0 && currentTick >= *maxTicks {
			break
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.Color{R: 20, G: 20, B: 30, A: 255})

		rl.BeginMode3D(camera)
		boxRenderer.Draw(sys.BoundingBox())
		particleRenderer.Draw(sys.Particles())
		rl.EndMode3D()

		rl.DrawFPS(10, 10)
		rl.EndDrawing()
	}
}
