// Package geom provides the float32 vector, quaternion and 4x4 transform
// helpers used by the flock kernel and its publishers.
//
// Matrices are column-major: element (row r, column c) lives at m[c*4+r].
// The translation is the fourth column and the local forward axis is the
// third basis column (+Z). Spawn, steering and every publisher use this
// convention.
package geom

import "github.com/chewxy/math32"

// Epsilon is the length below which a vector is treated as zero.
const Epsilon = 1e-6

// Vec3 is a 3-component float32 vector.
type Vec3 struct {
	X, Y, Z float32
}

// V3 is shorthand for Vec3{x, y, z}.
func V3(x, y, z float32) Vec3 { return Vec3{x, y, z} }

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 { return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z} }

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 { return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z} }

// Scale returns s ⋅ v.
func (v Vec3) Scale(s float32) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Neg returns -v.
func (v Vec3) Neg() Vec3 { return Vec3{-v.X, -v.Y, -v.Z} }

// Dot returns v ⋅ w.
func (v Vec3) Dot(w Vec3) float32 { return v.X*w.X + v.Y*w.Y + v.Z*w.Z }

// Cross returns v × w.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		v.Y*w.Z - v.Z*w.Y,
		v.Z*w.X - v.X*w.Z,
		v.X*w.Y - v.Y*w.X,
	}
}

// LenSq returns the squared length of v.
func (v Vec3) LenSq() float32 { return v.Dot(v) }

// Len returns the length of v.
func (v Vec3) Len() float32 { return math32.Sqrt(v.Dot(v)) }

// Normalize returns v scaled to unit length.
// ok is false when v is shorter than Epsilon or not finite, in which case
// the zero vector is returned.
func (v Vec3) Normalize() (u Vec3, ok bool) {
	l := v.Len()
	if l < Epsilon || !finite(l) {
		return Vec3{}, false
	}
	return v.Scale(1 / l), true
}

// NormalizeOr returns v scaled to unit length, or fallback when v cannot
// be normalized.
func (v Vec3) NormalizeOr(fallback Vec3) Vec3 {
	if u, ok := v.Normalize(); ok {
		return u
	}
	return fallback
}

// IsFinite reports whether every component of v is neither NaN nor ±Inf.
func (v Vec3) IsFinite() bool {
	return finite(v.X) && finite(v.Y) && finite(v.Z)
}

// ApproxEqual reports whether v and w differ by at most tol per component.
func (v Vec3) ApproxEqual(w Vec3, tol float32) bool {
	return math32.Abs(v.X-w.X) <= tol &&
		math32.Abs(v.Y-w.Y) <= tol &&
		math32.Abs(v.Z-w.Z) <= tol
}

func finite(f float32) bool {
	return !math32.IsNaN(f) && !math32.IsInf(f, 0)
}
