package publish

import "github.com/pthm-cable/flock/geom"

// MaxInstancesPerBatch is the largest instance count one instanced draw
// call accepts.
const MaxInstancesPerBatch = 1023

const floatsPerMatrix = 16

// Matrices mirrors the flock into a flat float32 instance buffer, split
// into draw batches of at most MaxInstancesPerBatch matrices.
type Matrices struct {
	data    []float32
	batches [][]float32
	count   int
	center  geom.Vec3
}

// NewMatrices allocates an instance buffer for count agents. batch values
// outside (0, MaxInstancesPerBatch] are clamped to MaxInstancesPerBatch.
func NewMatrices(count, batch int) *Matrices {
	if batch <= 0 || batch > MaxInstancesPerBatch {
		batch = MaxInstancesPerBatch
	}
	p := &Matrices{
		data:  make([]float32, count*floatsPerMatrix),
		count: count,
	}
	// The data slice never moves, so batch views are built once.
	for start := 0; start < count; start += batch {
		end := min(start+batch, count)
		p.batches = append(p.batches, p.data[start*floatsPerMatrix:end*floatsPerMatrix])
	}
	return p
}

func (p *Matrices) Name() string { return BackendMatrices }

// Publish copies every transform into the instance buffer.
func (p *Matrices) Publish(current []geom.Mat4, center geom.Vec3) error {
	if err := checkSize(p.count, len(current)); err != nil {
		return err
	}
	for i := range current {
		copy(p.data[i*floatsPerMatrix:(i+1)*floatsPerMatrix], current[i][:])
	}
	p.center = center
	return nil
}

// Data returns the whole instance buffer, 16 floats per agent.
func (p *Matrices) Data() []float32 { return p.data }

// Batches returns views into Data, one per instanced draw.
func (p *Matrices) Batches() [][]float32 { return p.batches }

// Matrix returns the published transform of agent i.
func (p *Matrices) Matrix(i int) geom.Mat4 {
	var m geom.Mat4
	copy(m[:], p.data[i*floatsPerMatrix:])
	return m
}

// Center returns the center handed over with the last publish.
func (p *Matrices) Center() geom.Vec3 { return p.center }

func (p *Matrices) Close() error {
	p.data = nil
	p.batches = nil
	return nil
}
