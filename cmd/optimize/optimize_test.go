package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/telemetry"
)

func TestParamVectorRoundTrip(t *testing.T) {
	pv := NewParamVector()
	def := pv.DefaultVector()
	back := pv.Denormalize(pv.Normalize(def))
	for i := range def {
		if d := back[i] - def[i]; d > 1e-9 || d < -1e-9 {
			t.Errorf("%s: %v -> %v", pv.Specs[i].Name, def[i], back[i])
		}
	}
}

func TestParamVectorDefaultsMatchConfig(t *testing.T) {
	pv := NewParamVector()
	got := pv.ExtractFromConfig(config.Defaults())
	for i, spec := range pv.Specs {
		if got[i] != spec.Default {
			t.Errorf("%s: config default %v, param default %v", spec.Name, got[i], spec.Default)
		}
	}
}

func TestApplyToConfigClamps(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Defaults()
	values := make([]float64, pv.Dim())
	for i := range values {
		values[i] = 100
	}
	pv.ApplyToConfig(cfg, values)

	for i, v := range pv.ExtractFromConfig(cfg) {
		if v != pv.Specs[i].Max {
			t.Errorf("%s = %v, expected clamp to %v", pv.Specs[i].Name, v, pv.Specs[i].Max)
		}
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("clamped config invalid: %v", err)
	}
}

func TestScoreWindows(t *testing.T) {
	good := []telemetry.FlockStats{
		{Count: 10}, {Count: 10},
		{Count: 10, DestDistMean: 5, SpreadMean: 4, MinSpacing: 2},
		{Count: 10, DestDistMean: 3, SpreadMean: 6, MinSpacing: 2},
	}
	r := scoreWindows(good, 3)
	if r.fitness != 4 {
		t.Errorf("fitness = %v, expected mean dest distance 4", r.fitness)
	}

	crowded := append([]telemetry.FlockStats(nil), good...)
	crowded[3].MinSpacing = 0
	if c := scoreWindows(crowded, 3); c.fitness <= r.fitness {
		t.Errorf("crowding not penalized: %v <= %v", c.fitness, r.fitness)
	}

	spread := append([]telemetry.FlockStats(nil), good...)
	spread[2].SpreadMean = 40
	if s := scoreWindows(spread, 3); s.fitness <= r.fitness {
		t.Errorf("spread not penalized: %v <= %v", s.fitness, r.fitness)
	}

	if f := scoreWindows(good[:2], 3); f.fitness != fitnessFailure {
		t.Errorf("warmup-only run scored %v", f.fitness)
	}
}

func TestEvaluateRuns(t *testing.T) {
	cfg := config.Defaults()
	cfg.Flock.Count = 40
	fe := NewFitnessEvaluator(NewParamVector(), 600, []int64{1, 2}, cfg)

	fitness := fe.Evaluate(fe.params.DefaultVector())
	if fitness <= 0 || fitness >= fitnessFailure {
		t.Errorf("fitness = %v", fitness)
	}
	if fe.LastSpread() <= 0 {
		t.Errorf("LastSpread() = %v", fe.LastSpread())
	}
	if cfg.Parallel.Workers != 0 {
		t.Error("evaluation mutated the base config")
	}
}

func TestEvalLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	pv := NewParamVector()
	l, err := newEvalLog(path, pv)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Write(1, 2.5, pv.DefaultVector()); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "eval,fitness,separation_weight") {
		t.Errorf("unexpected log:\n%s", data)
	}
	if !strings.HasPrefix(lines[1], "1,2.500000,") {
		t.Errorf("unexpected row %q", lines[1])
	}
}
