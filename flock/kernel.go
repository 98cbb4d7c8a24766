package flock

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/pthm-cable/flock/geom"
)

// noiseSpeedScale caps how far the noise term can push an agent above
// MaxSpeed.
const noiseSpeedScale = 0.9

// Params holds the global steering parameters shared by every agent.
type Params struct {
	SeparationWeight float32
	AlignmentWeight  float32
	CohesionWeight   float32
	TendencyWeight   float32
	NoiseWeight      float32

	MaxSpeed         float32 // units per second before noise jitter
	RotationSpeed    float32 // slerp factor per second
	SeparationRadius float32 // neighbors closer than this push apart
}

// Validate rejects parameters that would poison the buffers.
func (p Params) Validate() error {
	fields := []struct {
		name string
		v    float32
	}{
		{"separation_weight", p.SeparationWeight},
		{"alignment_weight", p.AlignmentWeight},
		{"cohesion_weight", p.CohesionWeight},
		{"tendency_weight", p.TendencyWeight},
		{"noise_weight", p.NoiseWeight},
		{"max_speed", p.MaxSpeed},
		{"rotation_speed", p.RotationSpeed},
		{"separation_radius", p.SeparationRadius},
	}
	for _, f := range fields {
		if math32.IsNaN(f.v) || math32.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidParams, f.name)
		}
	}
	if p.MaxSpeed < 0 {
		return fmt.Errorf("%w: max_speed must be non-negative", ErrInvalidParams)
	}
	if p.RotationSpeed < 0 {
		return fmt.Errorf("%w: rotation_speed must be non-negative", ErrInvalidParams)
	}
	if p.SeparationRadius < 0 {
		return fmt.Errorf("%w: separation_radius must be non-negative", ErrInvalidParams)
	}
	return nil
}

// Frame holds the per-step inputs that change every tick.
type Frame struct {
	Destination geom.Vec3
	DeltaTime   float32
	Time        float32

	// Center is the flock center before this step. Agents whose transform
	// is corrupted beyond repair are respawned there.
	Center geom.Vec3
}

// Steer computes the next transform of agent i from the previous-step
// snapshot. jitter is the agent's speed noise in [0,1].
//
// Every agent is compared against every other agent, so a step is O(n²).
// This is the scaling bottleneck of the whole simulation. Neighbors with a
// non-finite position are skipped so one bad agent cannot stall the others.
//
// recovered is true when the update produced a non-finite transform. The
// previous transform is kept instead, unless it is itself non-finite, in
// which case the agent restarts with identity rotation (see fallback).
func Steer(current []geom.Mat4, i int, p *Params, f *Frame, jitter float32) (next geom.Mat4, recovered bool) {
	m := &current[i]
	pos := geom.Position(m)
	fwd := geom.Forward(m)
	rot := geom.Rotation(m)

	tendency := f.Destination.Sub(pos).NormalizeOr(geom.Vec3{}).Scale(p.TendencyWeight)

	// A single agent has no neighbors; all neighbor terms stay zero.
	var separation, alignment, cohesion geom.Vec3
	var neighbors int
	for j := range current {
		if j == i {
			continue
		}
		other := &current[j]
		pj := geom.Position(other)
		if !pj.IsFinite() {
			continue
		}
		separation = separation.Add(geom.SeparationVector(pos, pj, p.SeparationRadius))
		alignment = alignment.Add(geom.Forward(other))
		cohesion = cohesion.Add(pj)
		neighbors++
	}
	if neighbors > 0 {
		inv := 1 / float32(neighbors)
		alignment = alignment.Scale(inv)
		cohesion = cohesion.Scale(inv).Sub(pos).NormalizeOr(geom.Vec3{})
	}

	direction := separation.Scale(p.SeparationWeight).
		Add(alignment.Scale(p.AlignmentWeight)).
		Add(cohesion.Scale(p.CohesionWeight)).
		Add(tendency.Scale(p.TendencyWeight))

	// Cancelling terms leave no preferred heading: keep flying straight.
	dir := direction.NormalizeOr(fwd)

	newRot := rot
	if t := clamp01(p.RotationSpeed * f.DeltaTime); t > 0 {
		desired := geom.RotationBetween(fwd, dir).Mul(rot).Normalize()
		newRot = geom.Slerp(rot, desired, t)
	}

	// Integrate along the pre-update heading.
	speed := p.MaxSpeed * (1 + jitter*p.NoiseWeight*noiseSpeedScale)
	newPos := pos.Add(fwd.Scale(speed * f.DeltaTime))

	next = geom.Compose(newPos, newRot)
	if !next.IsFinite() {
		return fallback(m, f), true
	}
	return next, false
}

// fallback returns the transform of an agent whose update was not finite.
// A finite previous transform is kept as is. Otherwise the agent gets the
// identity rotation at its old position, or at the flock center when the
// position is lost too.
func fallback(m *geom.Mat4, f *Frame) geom.Mat4 {
	if m.IsFinite() {
		return *m
	}
	pos := geom.Position(m)
	if !pos.IsFinite() {
		pos = f.Center
	}
	if !pos.IsFinite() {
		pos = geom.Vec3{}
	}
	return geom.Compose(pos, geom.IdentityQuat())
}

func clamp01(v float32) float32 {
	if v < 0 || math32.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
