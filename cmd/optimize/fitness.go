package main

import (
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/game"
	"github.com/pthm-cable/flock/telemetry"
)

// Fitness component weights.
const (
	fitnessWeightDest     = 1.0  // mean distance to destination
	fitnessWeightSpread   = 0.5  // spread beyond spreadTarget
	fitnessWeightCrowding = 20.0 // neighbors closer than crowdingFraction of the separation radius
	fitnessFailure        = 1e6  // run could not start

	spreadTarget     = 8.0
	crowdingFraction = 0.25
	warmupWindows    = 2 // windows skipped while the flock forms
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params      *ParamVector
	maxTicks    int32
	seeds       []int64
	baseConfig  *config.Config
	statsWindow float64

	mu         sync.Mutex
	lastSpread float64 // spread from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		statsWindow: 2.0,
	}
}

// LastSpread returns the mean spread from the most recent evaluation.
func (fe *FitnessEvaluator) LastSpread() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastSpread
}

type seedResult struct {
	fitness float64
	spread  float64
}

// Evaluate computes fitness for a parameter vector (lower = better),
// averaged over all seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(x, s)
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalSpread float64
	for _, r := range results {
		totalFitness += r.fitness
		totalSpread += r.spread
	}
	n := float64(len(fe.seeds))

	fe.mu.Lock()
	fe.lastSpread = totalSpread / n
	fe.mu.Unlock()

	return totalFitness / n
}

// runSimulation executes a single headless run and scores its windows.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) seedResult {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)
	// Seeds already run concurrently.
	cfg.Parallel.Workers = 1

	var windows []telemetry.FlockStats
	g, err := game.NewGameWithOptions(game.Options{
		Seed:           seed,
		StatsWindowSec: fe.statsWindow,
		Config:         cfg,
		StatsCallback: func(s telemetry.FlockStats) {
			windows = append(windows, s)
		},
	})
	if err != nil {
		slog.Error("evaluation failed to start", "seed", seed, "error", err)
		return seedResult{fitness: fitnessFailure}
	}
	defer g.Unload()

	for g.Tick() < fe.maxTicks {
		g.UpdateHeadless()
	}
	return scoreWindows(windows, cfg.Steering.SeparationRadius)
}

// copyConfig returns an independent copy of the base config.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

// scoreWindows turns the stats windows of one run into a fitness value.
func scoreWindows(windows []telemetry.FlockStats, separationRadius float64) seedResult {
	if len(windows) <= warmupWindows {
		return seedResult{fitness: fitnessFailure}
	}
	valid := windows[warmupWindows:]

	dest := make([]float64, 0, len(valid))
	spread := make([]float64, 0, len(valid))
	var crowding, lost float64
	for _, w := range valid {
		if w.Count > 0 {
			lost += float64(w.NonFinite) / float64(w.Count)
		}
		dest = append(dest, w.DestDistMean)
		spread = append(spread, w.SpreadMean)
		if limit := crowdingFraction * separationRadius; w.MinSpacing < limit {
			crowding += (limit - w.MinSpacing) / limit
		}
	}

	meanDest := stat.Mean(dest, nil)
	meanSpread := stat.Mean(spread, nil)
	fitness := fitnessWeightDest*meanDest +
		fitnessWeightSpread*math.Max(0, meanSpread-spreadTarget) +
		fitnessWeightCrowding*crowding/float64(len(valid)) +
		fitnessFailure*lost/float64(len(valid))
	return seedResult{fitness: fitness, spread: meanSpread}
}
