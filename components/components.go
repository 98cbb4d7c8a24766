// Package components defines ECS components for the per-object transform
// backend, where every agent is an individual scene object.
package components

import "github.com/pthm-cable/flock/geom"

// Transform is an object's world transform, mirrored from the flock's
// published buffer.
type Transform struct {
	Matrix   geom.Mat4
	Position geom.Vec3 // cached translation column
	Forward  geom.Vec3 // cached forward (+Z) column
}

// Set copies m into the component and refreshes the cached columns.
func (t *Transform) Set(m *geom.Mat4) {
	t.Matrix = *m
	t.Position = geom.Position(m)
	t.Forward = geom.Forward(m)
}

// Agent links an object back to its index in the flock buffers.
type Agent struct {
	Index int
}
