// Package camera provides the follow camera that tracks the flock center.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/pthm-cable/flock/geom"
)

var worldUp = geom.V3(0, 1, 0)

// Follow keeps a fixed offset from a smoothed copy of the flock center.
type Follow struct {
	// Target is the smoothed point the camera looks at.
	Target geom.Vec3

	// Offset from Target to the eye, in world axes.
	Offset geom.Vec3

	// Smoothing is the approach rate per second. Values <= 0 snap to the
	// center every update.
	Smoothing float32

	initialized bool
}

// New creates a follow camera with the given offset and smoothing.
func New(offset geom.Vec3, smoothing float32) *Follow {
	return &Follow{Offset: offset, Smoothing: smoothing}
}

// Update moves the target towards center. The first update snaps.
// Non-finite centers are ignored.
func (c *Follow) Update(center geom.Vec3, dt float32) {
	if !center.IsFinite() {
		return
	}
	if !c.initialized || c.Smoothing <= 0 {
		c.Target = center
		c.initialized = true
		return
	}
	alpha := 1 - math32.Exp(-c.Smoothing*dt)
	c.Target = c.Target.Add(center.Sub(c.Target).Scale(alpha))
}

// Eye returns the camera position.
func (c *Follow) Eye() geom.Vec3 { return c.Target.Add(c.Offset) }

// Transform returns the camera's world transform: +Z looks at Target and
// +Y stays as close to world up as possible.
func (c *Follow) Transform() geom.Mat4 {
	eye := c.Eye()
	fwd := c.Target.Sub(eye).NormalizeOr(geom.V3(0, 0, 1))
	right, ok := worldUp.Cross(fwd).Normalize()
	if !ok {
		// Looking straight up or down.
		right = geom.V3(1, 0, 0)
	}
	up := fwd.Cross(right)

	return geom.Mat4{
		right.X, right.Y, right.Z, 0,
		up.X, up.Y, up.Z, 0,
		fwd.X, fwd.Y, fwd.Z, 0,
		eye.X, eye.Y, eye.Z, 1,
	}
}

// LookAt returns the view matrix handed to the renderer.
func (c *Follow) LookAt() geom.Mat4 {
	m := c.Transform()
	return geom.InverseRigid(&m)
}

// IsVisible reports whether a sphere at p with the given radius is at least
// partly in front of the camera. Conservative check for culling.
func (c *Follow) IsVisible(p geom.Vec3, radius float32) bool {
	eye := c.Eye()
	fwd := c.Target.Sub(eye).NormalizeOr(geom.V3(0, 0, 1))
	return p.Sub(eye).Dot(fwd) > -radius
}

// Reset snaps the camera onto center on the next Update.
func (c *Follow) Reset() { c.initialized = false }
