package game

import (
	"math/rand"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/flock"
)

// flockParams converts the steering section into kernel parameters.
func flockParams(cfg *config.Config) flock.Params {
	s := cfg.Steering
	return flock.Params{
		SeparationWeight: float32(s.SeparationWeight),
		AlignmentWeight:  float32(s.AlignmentWeight),
		CohesionWeight:   float32(s.CohesionWeight),
		TendencyWeight:   float32(s.TendencyWeight),
		NoiseWeight:      float32(s.NoiseWeight),
		MaxSpeed:         float32(s.MaxSpeed),
		RotationSpeed:    float32(s.RotationSpeed),
		SeparationRadius: float32(s.SeparationRadius),
	}
}

// flockOptions builds flock options from cfg. count overrides the
// configured agent count when positive.
func flockOptions(cfg *config.Config, seed int64, count int) flock.Options {
	if count <= 0 {
		count = cfg.Flock.Count
	}
	return flock.Options{
		Count:       count,
		SpawnCenter: cfg.Derived.SpawnCenter,
		SpawnRadius: float32(cfg.Flock.SpawnRadius),
		Params:      flockParams(cfg),
		Rand:        rand.New(rand.NewSource(seed)),
		NoiseSeed:   cfg.Flock.NoiseSeed,
		Workers:     cfg.Parallel.Workers,
		ChunkSize:   cfg.Parallel.ChunkSize,
		Threshold:   cfg.Parallel.Threshold,
	}
}
