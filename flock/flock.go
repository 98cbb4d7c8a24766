// Package flock implements the boid simulation kernel: a double-buffered
// store of agent transforms and a parallel steering step over it.
//
// A step reads only the current buffer and writes only the next buffer,
// then publishes by copying next into current. Consumers may hold the slice
// returned by Current across frames; its identity never changes.
package flock

import (
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/chewxy/math32"

	"github.com/pthm-cable/flock/geom"
)

var (
	ErrInvalidCount  = errors.New("flock: agent count must be positive")
	ErrInvalidRadius = errors.New("flock: spawn radius must be finite and non-negative")
	ErrInvalidParams = errors.New("flock: invalid steering parameters")
	ErrNilRand       = errors.New("flock: random source is required")
)

// Options configures a new Flock.
type Options struct {
	Count       int
	SpawnCenter geom.Vec3
	SpawnRadius float32
	Params      Params

	// Rand drives spawn positions, orientations and noise offsets.
	Rand *rand.Rand
	// NoiseSeed seeds the speed-jitter noise field.
	NoiseSeed int64

	Workers   int // 0 = GOMAXPROCS
	ChunkSize int // 0 = DefaultChunkSize
	Threshold int // 0 = DefaultParallelThreshold
}

// Flock owns the double-buffered agent state.
type Flock struct {
	current []geom.Mat4
	next    []geom.Mat4
	seeds   []float32

	params Params
	frame  Frame
	noise  speedNoise
	center geom.Vec3

	recovered atomic.Int64
	lastRecov int

	pool      *workerPool
	chunkSize int
	threshold int
	destroyed bool
}

// New validates opts, allocates both buffers and spawns the agents.
func New(opts Options) (*Flock, error) {
	if opts.Count <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, opts.Count)
	}
	if opts.SpawnRadius < 0 || math32.IsNaN(opts.SpawnRadius) || math32.IsInf(opts.SpawnRadius, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidRadius, opts.SpawnRadius)
	}
	if !opts.SpawnCenter.IsFinite() {
		return nil, fmt.Errorf("%w: spawn center %v is not finite", ErrInvalidParams, opts.SpawnCenter)
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	if opts.Rand == nil {
		return nil, ErrNilRand
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultParallelThreshold
	}

	f := &Flock{
		current:   make([]geom.Mat4, opts.Count),
		next:      make([]geom.Mat4, opts.Count),
		seeds:     make([]float32, opts.Count),
		params:    opts.Params,
		noise:     newSpeedNoise(opts.NoiseSeed),
		pool:      newWorkerPool(opts.Workers),
		chunkSize: chunkSize,
		threshold: threshold,
	}

	spawn(opts.Rand, f.current, f.seeds, opts.SpawnCenter, opts.SpawnRadius)
	copy(f.next, f.current)
	f.center = Center(f.current)

	return f, nil
}

// Step advances every agent by dt seconds. t is the elapsed simulation time
// used to sample the speed noise; destination is the shared goal point.
//
// Step returns once the kernel and the reducer have finished and the new
// state has been published to Current.
func (f *Flock) Step(dt, t float32, destination geom.Vec3) {
	f.mustBeAlive("Step")

	f.frame = Frame{Destination: destination, DeltaTime: dt, Time: t, Center: f.center}
	f.recovered.Store(0)

	n := len(f.current)
	if n < f.threshold || f.pool.numWorkers < 2 {
		f.run(task{reduce: true})
		f.run(task{start: 0, end: n})
	} else {
		f.pool.dispatch(f, n, f.chunkSize)
	}

	f.lastRecov = int(f.recovered.Load())
	f.Swap()
}

// run executes a single task against the current snapshot.
func (f *Flock) run(t task) {
	if t.reduce {
		f.center = Center(f.current)
		return
	}

	var recovered int64
	for i := t.start; i < t.end; i++ {
		jitter := f.noise.jitter(f.frame.Time, f.seeds[i])
		m, bad := Steer(f.current, i, &f.params, &f.frame, jitter)
		f.next[i] = m
		if bad {
			recovered++
		}
	}
	if recovered > 0 {
		f.recovered.Add(recovered)
	}
}

// Swap publishes next into current by copying, so the current slice keeps
// its identity for external consumers.
func (f *Flock) Swap() {
	f.mustBeAlive("Swap")
	copy(f.current, f.next)
}

// Get returns the published transform of agent i.
func (f *Flock) Get(i int) geom.Mat4 {
	f.mustBeAlive("Get")
	return f.current[i]
}

// Size returns the agent count.
func (f *Flock) Size() int { return len(f.current) }

// Current returns the published transforms. The slice is owned by the
// flock and must be treated as read-only; it stays valid and stable until
// the next Step.
func (f *Flock) Current() []geom.Mat4 {
	f.mustBeAlive("Current")
	return f.current
}

// Center returns the mean agent position computed during the last step,
// i.e. the center of the state that step read from.
func (f *Flock) Center() geom.Vec3 { return f.center }

// Seed returns the noise offset of agent i.
func (f *Flock) Seed(i int) float32 { return f.seeds[i] }

// Recovered returns how many agents had a non-finite update in the last
// step and were held or reset instead.
func (f *Flock) Recovered() int { return f.lastRecov }

// Params returns the current steering parameters.
func (f *Flock) Params() Params { return f.params }

// SetParams replaces the steering parameters for subsequent steps.
func (f *Flock) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	f.params = p
	return nil
}

// Destroy stops the workers and releases both buffers. Using the flock
// afterwards, or destroying it twice, panics.
func (f *Flock) Destroy() {
	f.mustBeAlive("Destroy")
	f.pool.stop()
	f.current = nil
	f.next = nil
	f.seeds = nil
	f.destroyed = true
}

func (f *Flock) mustBeAlive(op string) {
	if f.destroyed {
		panic(fmt.Sprintf("flock: %s called on destroyed flock", op))
	}
}
