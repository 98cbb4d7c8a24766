package flock

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/flock/geom"
)

// noiseSeedRange spreads the per-agent noise offsets far enough apart that
// neighboring agents sample uncorrelated noise.
const noiseSeedRange = 1000

// randomInSphere returns a point uniformly distributed inside the sphere.
func randomInSphere(rng *rand.Rand, center geom.Vec3, radius float32) geom.Vec3 {
	// Gaussian components give a uniform direction; cbrt(u) a uniform radius.
	dir := geom.V3(float32(rng.NormFloat64()), float32(rng.NormFloat64()), float32(rng.NormFloat64()))
	dir = dir.NormalizeOr(geom.V3(0, 0, 1))
	r := radius * float32(math.Cbrt(rng.Float64()))
	return center.Add(dir.Scale(r))
}

// randomRotation returns a uniformly distributed unit quaternion (Shoemake).
func randomRotation(rng *rand.Rand) geom.Quat {
	u1, u2, u3 := rng.Float64(), rng.Float64(), rng.Float64()
	a := math.Sqrt(1 - u1)
	b := math.Sqrt(u1)
	return geom.Quat{
		X: float32(a * math.Sin(2*math.Pi*u2)),
		Y: float32(a * math.Cos(2*math.Pi*u2)),
		Z: float32(b * math.Sin(2*math.Pi*u3)),
		W: float32(b * math.Cos(2*math.Pi*u3)),
	}.Normalize()
}

// spawn fills current with random transforms and seeds with noise offsets.
func spawn(rng *rand.Rand, current []geom.Mat4, seeds []float32, center geom.Vec3, radius float32) {
	for i := range current {
		pos := randomInSphere(rng, center, radius)
		current[i] = geom.Compose(pos, randomRotation(rng))
		seeds[i] = rng.Float32() * noiseSeedRange
	}
}
