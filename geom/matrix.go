package geom

import (
	"github.com/chewxy/math32"
	"goki.dev/mat32/v2"
)

// Mat4 is a column-major 4x4 float32 matrix, laid out exactly as a GPU
// mat4x4<f32> / float4x4 expects it.
type Mat4 [16]float32

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// At returns the element at row r, column c.
func (m *Mat4) At(r, c int) float32 { return m[c*4+r] }

// Col returns the xyz part of column c.
func (m *Mat4) Col(c int) Vec3 { return Vec3{m[c*4], m[c*4+1], m[c*4+2]} }

// Mul returns l ⋅ r.
func Mul(l, r *Mat4) Mat4 {
	var m mat32.Mat4
	m.MulMatrices((*mat32.Mat4)(l), (*mat32.Mat4)(r))
	return Mat4(m)
}

// MulPoint transforms p by m, treating p as a point (w = 1).
func (m *Mat4) MulPoint(p Vec3) Vec3 {
	return Vec3{
		m[0]*p.X + m[4]*p.Y + m[8]*p.Z + m[12],
		m[1]*p.X + m[5]*p.Y + m[9]*p.Z + m[13],
		m[2]*p.X + m[6]*p.Y + m[10]*p.Z + m[14],
	}
}

// Compose builds a transform from a position and a unit rotation with
// uniform scale 1.
func Compose(pos Vec3, q Quat) Mat4 {
	var m mat32.Mat4
	m.SetTransform(mat32.Vec3(pos), mat32.Quat(q), mat32.Vec3{X: 1, Y: 1, Z: 1})
	return Mat4(m)
}

// InverseRigid returns the inverse of a rotation+translation transform:
// [Rᵀ | -Rᵀt]. The result is meaningless for matrices with scale or shear.
func InverseRigid(m *Mat4) Mat4 {
	t := Position(m)
	inv := Mat4{
		m[0], m[4], m[8], 0,
		m[1], m[5], m[9], 0,
		m[2], m[6], m[10], 0,
		0, 0, 0, 1,
	}
	inv[12] = -(inv[0]*t.X + inv[4]*t.Y + inv[8]*t.Z)
	inv[13] = -(inv[1]*t.X + inv[5]*t.Y + inv[9]*t.Z)
	inv[14] = -(inv[2]*t.X + inv[6]*t.Y + inv[10]*t.Z)
	return inv
}

// OrthonormalError returns max |RᵀR - I| over the rotation submatrix of m.
func OrthonormalError(m *Mat4) float32 {
	var worst float32
	for i := 0; i < 3; i++ {
		ci := m.Col(i)
		for j := i; j < 3; j++ {
			d := ci.Dot(m.Col(j))
			if i == j {
				d -= 1
			}
			if d = math32.Abs(d); d > worst {
				worst = d
			}
		}
	}
	return worst
}

// IsFinite reports whether every element of m is finite.
func (m *Mat4) IsFinite() bool {
	for _, v := range m {
		if !finite(v) {
			return false
		}
	}
	return true
}

// ApproxEqual reports whether m and n differ by at most tol per element.
func (m *Mat4) ApproxEqual(n *Mat4, tol float32) bool {
	for i := range m {
		if math32.Abs(m[i]-n[i]) > tol {
			return false
		}
	}
	return true
}
