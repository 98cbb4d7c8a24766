package flock

import (
	"runtime"
	"sync"
)

const (
	// DefaultChunkSize is the number of agents per kernel task.
	DefaultChunkSize = 32

	// DefaultParallelThreshold is the minimum agent count to use the worker
	// pool. Below this, single-threaded is faster due to goroutine overhead.
	DefaultParallelThreshold = 64
)

// task is one unit of step work: either a kernel chunk or the reduction.
type task struct {
	start, end int
	reduce     bool
}

// workerPool runs step tasks on persistent goroutines.
type workerPool struct {
	numWorkers int

	workChan chan task      // sends work to workers
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks live workers
	step     sync.WaitGroup // per-step barrier
	running  bool
}

func newWorkerPool(numWorkers int) *workerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	return &workerPool{numWorkers: numWorkers}
}

// start launches the worker goroutines.
func (p *workerPool) start(f *Flock) {
	if p.running {
		return
	}

	p.workChan = make(chan task, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(f)
	}
}

// stop signals all workers to exit and waits for them.
func (p *workerPool) stop() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	p.running = false
}

// worker processes tasks until stopped.
func (p *workerPool) worker(f *Flock) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case t, ok := <-p.workChan:
			if !ok {
				return
			}
			f.run(t)
			p.step.Done()
		}
	}
}

// dispatch queues the reduction plus one kernel task per chunk and blocks
// until every task has finished. This is the only barrier of a step.
func (p *workerPool) dispatch(f *Flock, n, chunkSize int) {
	if !p.running {
		p.start(f)
	}

	numChunks := (n + chunkSize - 1) / chunkSize
	p.step.Add(numChunks + 1)

	p.workChan <- task{reduce: true}
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		p.workChan <- task{start: start, end: end}
	}

	p.step.Wait()
}
