package game

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/geom"
	"github.com/pthm-cable/flock/publish"
	"github.com/pthm-cable/flock/telemetry"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Flock.Count = 80
	cfg.Parallel.Workers = 2
	return cfg
}

func TestNewGameBackends(t *testing.T) {
	for _, backend := range []string{publish.BackendMatrices, publish.BackendPacked, publish.BackendEntities} {
		g, err := NewGameWithOptions(Options{Seed: 1, Backend: backend, Config: testConfig(t)})
		if err != nil {
			t.Fatalf("%s: %v", backend, err)
		}
		if g.Publisher().Name() != backend {
			t.Errorf("publisher = %q, expected %q", g.Publisher().Name(), backend)
		}
		for i := 0; i < 5; i++ {
			g.UpdateHeadless()
		}
		if g.Tick() != 5 {
			t.Errorf("Tick() = %d, expected 5", g.Tick())
		}
		g.Unload()
	}
}

func TestNewGameRejectsUnknownBackend(t *testing.T) {
	_, err := NewGameWithOptions(Options{Seed: 1, Backend: "vector", Config: testConfig(t)})
	if !errors.Is(err, publish.ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}
}

func TestCountOverride(t *testing.T) {
	g, err := NewGameWithOptions(Options{Seed: 1, Count: 12, Config: testConfig(t)})
	if err != nil {
		t.Fatal(err)
	}
	defer g.Unload()
	if g.Flock().Size() != 12 {
		t.Errorf("Size() = %d, expected 12", g.Flock().Size())
	}
}

func TestPublishedStateMatchesFlock(t *testing.T) {
	g, err := NewGameWithOptions(Options{Seed: 3, Backend: publish.BackendMatrices, Config: testConfig(t)})
	if err != nil {
		t.Fatal(err)
	}
	defer g.Unload()

	for i := 0; i < 10; i++ {
		g.UpdateHeadless()
	}
	m := g.Publisher().(*publish.Matrices)
	current := g.Flock().Current()
	for i := range current {
		if m.Matrix(i) != current[i] {
			t.Fatalf("agent %d: published matrix differs from the flock", i)
		}
	}
	if m.Center() != g.Flock().Center() {
		t.Errorf("published center %v, flock center %v", m.Center(), g.Flock().Center())
	}
}

func TestSameSeedIsDeterministic(t *testing.T) {
	run := func() []geom.Mat4 {
		cfg := testConfig(t)
		cfg.Parallel.Workers = 4
		g, err := NewGameWithOptions(Options{Seed: 11, Config: cfg})
		if err != nil {
			t.Fatal(err)
		}
		defer g.Unload()
		for i := 0; i < 30; i++ {
			g.UpdateHeadless()
		}
		return append([]geom.Mat4(nil), g.Flock().Current()...)
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("agent %d diverged between identical runs", i)
		}
	}
}

func TestStatsWindows(t *testing.T) {
	cfg := testConfig(t)
	var windows []telemetry.FlockStats
	g, err := NewGameWithOptions(Options{
		Seed:           5,
		Config:         cfg,
		StatsWindowSec: 10 * cfg.Physics.DT,
		StatsCallback: func(s telemetry.FlockStats) {
			windows = append(windows, s)
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer g.Unload()

	for i := 0; i < 35; i++ {
		g.UpdateHeadless()
	}
	if len(windows) != 3 {
		t.Fatalf("got %d windows, expected 3", len(windows))
	}
	for i, w := range windows {
		if w.WindowEndTick != int32(10*(i+1)) {
			t.Errorf("window %d ends at %d", i, w.WindowEndTick)
		}
		if w.Count != cfg.Flock.Count {
			t.Errorf("window %d count = %d", i, w.Count)
		}
	}
	if g.LastStats().WindowEndTick != 30 {
		t.Errorf("LastStats ends at %d, expected 30", g.LastStats().WindowEndTick)
	}
}

func TestOutputDir(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Join(t.TempDir(), "out")
	g, err := NewGameWithOptions(Options{
		Seed:           2,
		Config:         cfg,
		OutputDir:      dir,
		StatsWindowSec: 5 * cfg.Physics.DT,
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		g.UpdateHeadless()
	}
	g.Unload()

	for _, name := range []string{"stats.csv", "perf.csv", "config.yaml"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}

func TestCameraFollowsCenter(t *testing.T) {
	cfg := testConfig(t)
	cfg.Camera.Smoothing = 0
	g, err := NewGameWithOptions(Options{Seed: 4, Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	defer g.Unload()

	g.UpdateHeadless()
	if g.Camera().Target != g.Flock().Center() {
		t.Errorf("camera target %v, flock center %v", g.Camera().Target, g.Flock().Center())
	}
}

func TestOrbit(t *testing.T) {
	o := Orbit{Center: geom.V3(0, 10, 0), Radius: 30, AngularSpeed: 0.5, HeightAmplitude: 5}

	if p := o.At(0); !p.ApproxEqual(geom.V3(30, 10, 0), 1e-4) {
		t.Errorf("At(0) = %v", p)
	}
	for _, tt := range []float32{0.3, 1.7, 12.5} {
		p := o.At(tt)
		dx, dz := p.X-o.Center.X, p.Z-o.Center.Z
		if r := dx*dx + dz*dz; r < 899 || r > 901 {
			t.Errorf("At(%v) horizontal radius^2 = %v, expected 900", tt, r)
		}
		if dy := p.Y - o.Center.Y; dy < -5.0001 || dy > 5.0001 {
			t.Errorf("At(%v) height offset %v out of amplitude", tt, dy)
		}
	}
}

func TestUnloadTwice(t *testing.T) {
	g, err := NewGameWithOptions(Options{Seed: 1, Config: testConfig(t)})
	if err != nil {
		t.Fatal(err)
	}
	g.Unload()
	g.Unload()
}

func TestSetBackend(t *testing.T) {
	cfg := testConfig(t)
	g, err := NewGameWithOptions(Options{Seed: 2, Backend: publish.BackendMatrices, Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	defer g.Unload()

	for i := 0; i < 10; i++ {
		g.UpdateHeadless()
	}
	// Move the target away so the switch has something to snap back.
	g.Camera().Target = geom.V3(1000, 0, 0)

	if err := g.SetBackend(publish.BackendPacked); err != nil {
		t.Fatal(err)
	}
	if g.Publisher().Name() != publish.BackendPacked {
		t.Errorf("publisher = %q, expected %q", g.Publisher().Name(), publish.BackendPacked)
	}
	if g.Camera().Target != g.Flock().Center() {
		t.Errorf("camera target %v, expected snap to center %v", g.Camera().Target, g.Flock().Center())
	}

	packed := g.Publisher().(*publish.Packed)
	got := make([]geom.Mat4, g.Flock().Size())
	if err := publish.Unpack(packed.Buffer(), got); err != nil {
		t.Fatal(err)
	}
	for i := range got {
		want := g.Flock().Get(i)
		if !got[i].ApproxEqual(&want, 1e-6) {
			t.Fatalf("agent %d not published to the new backend", i)
		}
	}

	if err := g.SetBackend("vector"); !errors.Is(err, publish.ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}
	if g.Publisher().Name() != publish.BackendPacked {
		t.Errorf("failed switch replaced the publisher with %q", g.Publisher().Name())
	}
	g.UpdateHeadless()
}

func TestStatsCountsVisibleAgents(t *testing.T) {
	g, err := NewGameWithOptions(Options{Seed: 3, Config: testConfig(t)})
	if err != nil {
		t.Fatal(err)
	}
	defer g.Unload()

	g.UpdateHeadless()
	s := g.Stats()
	if s.Visible <= 0 || s.Visible > s.Count {
		t.Errorf("Visible = %d, expected within (0, %d]", s.Visible, s.Count)
	}

	// With the eye past the whole flock and looking away, nothing is visible.
	cam := g.Camera()
	cam.Target = g.Flock().Center().Add(geom.V3(0, 0, 1e4))
	cam.Offset = geom.V3(0, 0, -1)
	if s := g.Stats(); s.Visible != 0 {
		t.Errorf("Visible = %d with the camera facing away, expected 0", s.Visible)
	}
}

func TestUseAfterUnloadPanics(t *testing.T) {
	ops := map[string]func(g *Game){
		"UpdateHeadless": func(g *Game) { g.UpdateHeadless() },
		"Stats":          func(g *Game) { g.Stats() },
		"SetBackend":     func(g *Game) { g.SetBackend(publish.BackendPacked) },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			g, err := NewGameWithOptions(Options{Seed: 1, Config: testConfig(t)})
			if err != nil {
				t.Fatal(err)
			}
			g.Unload()

			defer func() {
				r := recover()
				if r == nil {
					t.Fatal("expected a panic")
				}
				want := "game: " + name + " called after Unload"
				if msg, _ := r.(string); msg != want {
					t.Errorf("panic = %v, expected %q", r, want)
				}
			}()
			op(g)
		})
	}
}
