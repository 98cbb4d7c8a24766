package publish

import (
	"encoding/binary"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/pthm-cable/flock/geom"
)

// PackedStride is the number of floats in one 3x4 row-major block.
const PackedStride = 12

// orthonormalTolerance is the rotation error above which Pack stops
// trusting the rigid-body inverse.
const orthonormalTolerance = 1e-3

// PackedBuffer holds the batched-upload layout: for every agent a 3x4
// row-major objectToWorld block and its worldToObject inverse. The bottom
// row (0 0 0 1) is implicit.
type PackedBuffer struct {
	ObjectToWorld []float32
	WorldToObject []float32
}

// NewPackedBuffer allocates blocks for count agents.
func NewPackedBuffer(count int) *PackedBuffer {
	return &PackedBuffer{
		ObjectToWorld: make([]float32, count*PackedStride),
		WorldToObject: make([]float32, count*PackedStride),
	}
}

// Len returns the number of agents the buffer holds.
func (b *PackedBuffer) Len() int { return len(b.ObjectToWorld) / PackedStride }

// Bytes returns the upload payload. See AppendBytes for the layout.
func (b *PackedBuffer) Bytes() []byte {
	return b.AppendBytes(make([]byte, 0, 4*(len(b.ObjectToWorld)+len(b.WorldToObject))))
}

// AppendBytes appends the buffer to dst as little-endian float32: all
// objectToWorld blocks followed by all worldToObject blocks.
func (b *PackedBuffer) AppendBytes(dst []byte) []byte {
	for _, v := range b.ObjectToWorld {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	for _, v := range b.WorldToObject {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

// Pack writes current into dst. It is a pure function of current.
//
// Transforms that are not orthonormal are inverted up front, so a singular
// one fails the call with dst untouched.
func Pack(dst *PackedBuffer, current []geom.Mat4) error {
	if err := checkSize(dst.Len(), len(current)); err != nil {
		return err
	}

	var general map[int]geom.Mat4
	for i := range current {
		m := &current[i]
		if geom.OrthonormalError(m) <= orthonormalTolerance {
			continue
		}
		g, err := InverseGeneral(m)
		if err != nil {
			return fmt.Errorf("packing agent %d: %w", i, err)
		}
		if general == nil {
			general = make(map[int]geom.Mat4)
		}
		general[i] = g
	}

	for i := range current {
		m := &current[i]
		inv, ok := general[i]
		if !ok {
			inv = geom.InverseRigid(m)
		}
		packRows(dst.ObjectToWorld[i*PackedStride:(i+1)*PackedStride], m)
		packRows(dst.WorldToObject[i*PackedStride:(i+1)*PackedStride], &inv)
	}
	return nil
}

// Unpack rebuilds the 4x4 transforms from the objectToWorld blocks.
func Unpack(src *PackedBuffer, dst []geom.Mat4) error {
	if err := checkSize(src.Len(), len(dst)); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = unpackRows(src.ObjectToWorld[i*PackedStride : (i+1)*PackedStride])
	}
	return nil
}

// InverseGeneral inverts an arbitrary affine transform.
func InverseGeneral(m *geom.Mat4) (geom.Mat4, error) {
	a := mat.NewDense(4, 4, nil)
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			a.Set(r, c, float64(m.At(r, c)))
		}
	}

	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return geom.Mat4{}, fmt.Errorf("inverting transform: %w", err)
	}

	var out geom.Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[c*4+r] = float32(inv.At(r, c))
		}
	}
	return out, nil
}

func packRows(dst []float32, m *geom.Mat4) {
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			dst[r*4+c] = m.At(r, c)
		}
	}
}

func unpackRows(src []float32) geom.Mat4 {
	var m geom.Mat4
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			m[c*4+r] = src[r*4+c]
		}
	}
	m[15] = 1
	return m
}

// Packed publishes into a PackedBuffer.
type Packed struct {
	buf    *PackedBuffer
	center geom.Vec3
}

// NewPacked allocates a packed publisher for count agents.
func NewPacked(count int) *Packed {
	return &Packed{buf: NewPackedBuffer(count)}
}

func (p *Packed) Name() string { return BackendPacked }

func (p *Packed) Publish(current []geom.Mat4, center geom.Vec3) error {
	if err := Pack(p.buf, current); err != nil {
		return err
	}
	p.center = center
	return nil
}

// Buffer returns the packed blocks from the last publish.
func (p *Packed) Buffer() *PackedBuffer { return p.buf }

// Center returns the center handed over with the last publish.
func (p *Packed) Center() geom.Vec3 { return p.center }

func (p *Packed) Close() error {
	p.buf = nil
	return nil
}
