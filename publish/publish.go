// Package publish hands the flock's published transforms to rendering
// backends. Every backend consumes the same read-only buffer; they differ
// only in the layout they produce for the renderer.
package publish

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/flock/geom"
)

// Backend names accepted by New.
const (
	BackendMatrices = "matrices" // flat mat4 instance buffer (GPU instancing)
	BackendPacked   = "packed"   // 3x4 blocks plus inverses (batched raw upload)
	BackendEntities = "entities" // one ECS object per agent (per-object transforms)
)

var (
	ErrUnknownBackend = errors.New("publish: unknown backend")
	ErrSizeMismatch   = errors.New("publish: buffer size mismatch")
)

// Publisher receives the flock state after every step barrier.
type Publisher interface {
	// Name returns the backend name.
	Name() string
	// Publish converts current into the backend's layout. current must not
	// be retained or modified.
	Publish(current []geom.Mat4, center geom.Vec3) error
	// Close releases the backend's buffers.
	Close() error
}

// New creates the publisher for backend sized for count agents. batch is
// the instance limit per draw for the matrices backend.
func New(backend string, count, batch int) (Publisher, error) {
	switch backend {
	case BackendMatrices:
		return NewMatrices(count, batch), nil
	case BackendPacked:
		return NewPacked(count), nil
	case BackendEntities:
		return NewEntities(count), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

func checkSize(want, got int) error {
	if want != got {
		return fmt.Errorf("%w: expected %d transforms, got %d", ErrSizeMismatch, want, got)
	}
	return nil
}
