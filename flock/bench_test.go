package flock

import (
	"math/rand"
	"testing"

	"github.com/pthm-cable/flock/geom"
)

func benchmarkStep(b *testing.B, count, workers int) {
	f, err := New(Options{
		Count:       count,
		SpawnRadius: 20,
		Params:      defaultParams(),
		Rand:        rand.New(rand.NewSource(1)),
		Workers:     workers,
	})
	if err != nil {
		b.Fatal(err)
	}
	defer f.Destroy()

	dt := float32(1.0 / 60.0)
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		f.Step(dt, float32(n)*dt, geom.V3(0, 0, 0))
	}
}

func BenchmarkStep1000Serial(b *testing.B)   { benchmarkStep(b, 1000, 1) }
func BenchmarkStep1000Parallel(b *testing.B) { benchmarkStep(b, 1000, 0) }
func BenchmarkStep4000Parallel(b *testing.B) { benchmarkStep(b, 4000, 0) }
