package geom

import "goki.dev/mat32/v2"

// Position returns the translation column of m.
func Position(m *Mat4) Vec3 { return Vec3{m[12], m[13], m[14]} }

// Forward returns the local forward (+Z) basis column of m.
func Forward(m *Mat4) Vec3 { return Vec3{m[8], m[9], m[10]} }

// Up returns the local up (+Y) basis column of m.
func Up(m *Mat4) Vec3 { return Vec3{m[4], m[5], m[6]} }

// Rotation extracts the unit quaternion of the rotation submatrix of m.
func Rotation(m *Mat4) Quat {
	var q mat32.Quat
	q.SetFromRotationMatrix((*mat32.Mat4)(m))
	return Quat(q).Normalize()
}

// RotationBetween returns the shortest rotation taking direction from onto
// direction to, using the half-angle construction (from×to, 1+from⋅to).
//
// Anti-parallel or zero-length inputs have no unique answer; the identity
// is returned so the caller keeps its current heading.
func RotationBetween(from, to Vec3) Quat {
	f, ok := from.Normalize()
	if !ok {
		return IdentityQuat()
	}
	t, ok := to.Normalize()
	if !ok {
		return IdentityQuat()
	}
	if 1+f.Dot(t) < Epsilon {
		return IdentityQuat()
	}
	var q mat32.Quat
	q.SetFromUnitVectors(mat32.Vec3(f), mat32.Vec3(t))
	return Quat(q).Normalize()
}

// SeparationVector returns the push from b towards a. Its magnitude falls
// linearly from 1 when the points touch to 0 at maxDist and stays 0 beyond.
// Coincident points have no direction and yield the zero vector.
func SeparationVector(a, b Vec3, maxDist float32) Vec3 {
	if maxDist <= 0 {
		return Vec3{}
	}
	d := a.Sub(b)
	dist := d.Len()
	if dist >= maxDist || dist < Epsilon {
		return Vec3{}
	}
	return d.Scale((1 - dist/maxDist) / dist)
}
