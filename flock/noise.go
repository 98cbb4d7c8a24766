package flock

import (
	"github.com/chewxy/math32"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// speedNoise samples coherent noise to desynchronize agent speeds.
// The generator is read-only after construction and safe for concurrent use.
type speedNoise struct {
	gen opensimplex.Noise32
}

func newSpeedNoise(seed int64) speedNoise {
	return speedNoise{gen: opensimplex.NewNormalized32(seed)}
}

// jitter maps the noise sample at (t, seed) from [0,1] to |2n-1| in [0,1].
func (s speedNoise) jitter(t, seed float32) float32 {
	n := s.gen.Eval2(t, seed)
	j := math32.Abs(2*n - 1)
	if j > 1 || math32.IsNaN(j) {
		return 1
	}
	return j
}
