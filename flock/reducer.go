package flock

import "github.com/pthm-cable/flock/geom"

// Center returns the arithmetic mean of the agent positions.
//
// Sums are accumulated in float64 so large flocks far from the origin keep
// their precision. Non-finite positions are left out of the mean so a
// single poisoned agent cannot drag the center to NaN; if no position is
// finite (or the slice is empty) the zero vector is returned.
func Center(current []geom.Mat4) geom.Vec3 {
	var sx, sy, sz float64
	var n int
	for i := range current {
		p := geom.Position(&current[i])
		if !p.IsFinite() {
			continue
		}
		sx += float64(p.X)
		sy += float64(p.Y)
		sz += float64(p.Z)
		n++
	}
	if n == 0 {
		return geom.Vec3{}
	}
	inv := 1 / float64(n)
	return geom.Vec3{X: float32(sx * inv), Y: float32(sy * inv), Z: float32(sz * inv)}
}
