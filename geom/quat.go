package geom

import (
	"github.com/chewxy/math32"
	"goki.dev/mat32/v2"
)

// Quat is a rotation quaternion. W is the real part.
type Quat struct {
	X, Y, Z, W float32
}

// IdentityQuat returns the quaternion of the null rotation.
func IdentityQuat() Quat { return Quat{W: 1} }

// Mul returns q ⋅ r, i.e. the rotation r followed by q.
func (q Quat) Mul(r Quat) Quat {
	var p mat32.Quat
	p.MulQuats(mat32.Quat(q), mat32.Quat(r))
	return Quat(p)
}

// Dot returns the 4D dot product of q and r.
func (q Quat) Dot(r Quat) float32 {
	return q.X*r.X + q.Y*r.Y + q.Z*r.Z + q.W*r.W
}

// Normalize returns q scaled to unit length.
// A degenerate or non-finite q yields the identity.
func (q Quat) Normalize() Quat {
	l := math32.Sqrt(q.Dot(q))
	if l < Epsilon || !finite(l) {
		return IdentityQuat()
	}
	s := 1 / l
	return Quat{q.X * s, q.Y * s, q.Z * s, q.W * s}
}

// Rotate returns v rotated by the unit quaternion q.
func (q Quat) Rotate(v Vec3) Vec3 {
	return Vec3(mat32.Vec3(v).MulQuat(mat32.Quat(q)))
}

// Forward returns the local +Z axis rotated by q.
func (q Quat) Forward() Vec3 {
	return Vec3{
		2 * (q.X*q.Z + q.W*q.Y),
		2 * (q.Y*q.Z - q.W*q.X),
		1 - 2*(q.X*q.X+q.Y*q.Y),
	}
}

// Slerp interpolates along the shortest arc from a to b.
// t is clamped to [0, 1]; t = 0 returns a unchanged.
func Slerp(a, b Quat, t float32) Quat {
	if t <= 0 {
		return a
	}
	if t > 1 {
		t = 1
	}
	q := mat32.Quat(a)
	q.Slerp(mat32.Quat(b), t)
	return Quat(q).Normalize()
}

// IsFinite reports whether every component of q is finite.
func (q Quat) IsFinite() bool {
	return finite(q.X) && finite(q.Y) && finite(q.Z) && finite(q.W)
}
