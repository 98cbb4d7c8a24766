// Package game drives the flock: it advances the destination, steps the
// kernel, publishes to the selected backend, moves the camera and records
// telemetry once per tick.
package game

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/flock/camera"
	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/flock"
	"github.com/pthm-cable/flock/geom"
	"github.com/pthm-cable/flock/publish"
	"github.com/pthm-cable/flock/telemetry"
)

// agentRadius is the bounding sphere used for the camera visibility count.
const agentRadius = 0.5

// Options configures a Game.
type Options struct {
	Seed           int64
	Backend        string  // "" = render.backend from config
	Count          int     // 0 = flock.count from config
	OutputDir      string  // "" = no CSV output
	LogStats       bool    // log stats and perf windows via slog
	StatsWindowSec float64 // 0 = telemetry.stats_window from config

	// Config overrides the global config. Used by the optimizer to run
	// several configurations side by side.
	Config *config.Config

	// StatsCallback receives every stats window.
	StatsCallback func(telemetry.FlockStats)
}

// Game holds the driver state.
type Game struct {
	cfg *config.Config

	flock     *flock.Flock
	publisher publish.Publisher
	camera    *camera.Follow
	orbit     Orbit

	destination geom.Vec3
	dt          float32
	simTime     float32
	tick        int32

	// Telemetry
	perfCollector    *telemetry.PerfCollector
	outputManager    *telemetry.OutputManager
	statsWindowTicks int32
	windowRecovered  int
	logStats         bool
	statsCallback    func(telemetry.FlockStats)
	lastStats        telemetry.FlockStats
}

// NewGameWithOptions builds the flock, the publisher and the telemetry
// outputs described by opts.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}

	f, err := flock.New(flockOptions(cfg, opts.Seed, opts.Count))
	if err != nil {
		return nil, fmt.Errorf("creating flock: %w", err)
	}

	backend := opts.Backend
	if backend == "" {
		backend = cfg.Render.Backend
	}
	pub, err := publish.New(backend, f.Size(), cfg.Render.InstanceBatch)
	if err != nil {
		f.Destroy()
		return nil, err
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		f.Destroy()
		pub.Close()
		return nil, err
	}
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	windowTicks := int32(cfg.Derived.StatsWindowTicks)
	if opts.StatsWindowSec > 0 {
		windowTicks = int32(opts.StatsWindowSec/cfg.Physics.DT + 0.5)
	}
	if windowTicks < 1 {
		windowTicks = 1
	}

	g := &Game{
		cfg:              cfg,
		flock:            f,
		publisher:        pub,
		camera:           camera.New(cfg.Derived.CameraOffset, float32(cfg.Camera.Smoothing)),
		orbit:            newOrbit(cfg),
		dt:               cfg.Derived.DT32,
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		outputManager:    om,
		statsWindowTicks: windowTicks,
		logStats:         opts.LogStats,
		statsCallback:    opts.StatsCallback,
	}
	g.destination = g.orbit.At(0)

	// Renderers see the spawn state before the first tick.
	if err := pub.Publish(f.Current(), f.Center()); err != nil {
		g.Unload()
		return nil, fmt.Errorf("publishing spawn state: %w", err)
	}
	g.camera.Update(f.Center(), g.dt)

	return g, nil
}

// UpdateHeadless runs one tick.
func (g *Game) UpdateHeadless() {
	g.mustBeLoaded("UpdateHeadless")
	g.perfCollector.StartTick()

	g.perfCollector.StartPhase(telemetry.PhaseKernel)
	g.destination = g.orbit.At(g.simTime)
	g.flock.Step(g.dt, g.simTime, g.destination)
	g.windowRecovered += g.flock.Recovered()

	g.perfCollector.StartPhase(telemetry.PhasePublish)
	if err := g.publisher.Publish(g.flock.Current(), g.flock.Center()); err != nil {
		slog.Error("publish failed", "backend", g.publisher.Name(), "tick", g.tick, "error", err)
	}

	g.perfCollector.StartPhase(telemetry.PhaseRender)
	g.camera.Update(g.flock.Center(), g.dt)

	g.tick++
	g.simTime += g.dt

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()

	g.perfCollector.EndTick()
}

// SetBackend replaces the publisher with a new backend and publishes the
// current state to it. The camera snaps back onto the flock so the new
// renderer starts centered. On error the previous backend stays active.
func (g *Game) SetBackend(backend string) error {
	g.mustBeLoaded("SetBackend")

	pub, err := publish.New(backend, g.flock.Size(), g.cfg.Render.InstanceBatch)
	if err != nil {
		return err
	}
	if err := pub.Publish(g.flock.Current(), g.flock.Center()); err != nil {
		pub.Close()
		return fmt.Errorf("publishing to %s: %w", backend, err)
	}
	if err := g.publisher.Close(); err != nil {
		slog.Error("failed to close publisher", "backend", g.publisher.Name(), "error", err)
	}
	g.publisher = pub

	g.camera.Reset()
	g.camera.Update(g.flock.Center(), g.dt)

	slog.Info("switched backend", "backend", backend, "tick", g.tick)
	return nil
}

// Unload destroys the flock and closes the publisher and outputs.
func (g *Game) Unload() {
	if g.flock != nil {
		g.flock.Destroy()
		g.flock = nil
	}
	if g.publisher != nil {
		if err := g.publisher.Close(); err != nil {
			slog.Error("failed to close publisher", "error", err)
		}
		g.publisher = nil
	}
	if err := g.outputManager.Close(); err != nil {
		slog.Error("failed to close output files", "error", err)
	}
	g.outputManager = nil
}

// Tick returns the number of completed ticks.
func (g *Game) Tick() int32 { return g.tick }

// SimTime returns the elapsed simulation time in seconds.
func (g *Game) SimTime() float32 { return g.simTime }

// Flock returns the simulated flock.
func (g *Game) Flock() *flock.Flock { return g.flock }

// Publisher returns the active rendering backend.
func (g *Game) Publisher() publish.Publisher { return g.publisher }

// Camera returns the follow camera.
func (g *Game) Camera() *camera.Follow { return g.camera }

// Destination returns the goal point used by the last tick.
func (g *Game) Destination() geom.Vec3 { return g.destination }

// LastStats returns the most recent stats window.
func (g *Game) LastStats() telemetry.FlockStats { return g.lastStats }

// Stats computes a stats snapshot of the current state.
func (g *Game) Stats() telemetry.FlockStats {
	g.mustBeLoaded("Stats")

	current := g.flock.Current()
	s := telemetry.ComputeFlockStats(current, g.flock.Center(), g.destination, g.windowRecovered)
	s.WindowEndTick = g.tick
	s.SimTimeSec = float64(g.simTime)
	for i := range current {
		if g.camera.IsVisible(geom.Position(&current[i]), agentRadius) {
			s.Visible++
		}
	}
	return s
}

func (g *Game) mustBeLoaded(op string) {
	if g.flock == nil {
		panic(fmt.Sprintf("game: %s called after Unload", op))
	}
}
