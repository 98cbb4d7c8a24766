package game

import (
	"github.com/chewxy/math32"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/geom"
)

// Orbit moves the shared destination on a horizontal circle with a
// vertical bob at twice the orbit frequency.
type Orbit struct {
	Center          geom.Vec3
	Radius          float32
	AngularSpeed    float32 // radians per second
	HeightAmplitude float32
}

func newOrbit(cfg *config.Config) Orbit {
	d := cfg.Destination
	return Orbit{
		Center:          cfg.Derived.DestinationCenter,
		Radius:          float32(d.Radius),
		AngularSpeed:    float32(d.AngularSpeed),
		HeightAmplitude: float32(d.HeightAmplitude),
	}
}

// At returns the destination at simulation time t.
func (o Orbit) At(t float32) geom.Vec3 {
	a := o.AngularSpeed * t
	return o.Center.Add(geom.V3(
		o.Radius*math32.Cos(a),
		o.HeightAmplitude*math32.Sin(2*a),
		o.Radius*math32.Sin(a),
	))
}
