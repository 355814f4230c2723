// Package render implements the per-frame compositing worker pool and its
// coordinator (spec component 4.7): wallpaper, crop, zoom regions,
// background blur, border radius, and padding (shadow, motion blur, and
// annotations are not rendered), parallelized across a fixed worker pool
// with an automatic single-
// threaded fallback. Grounded on the donor parallel encode pipeline's
// worker-pool/semaphore/error-aggregation idiom (internal/encode/encode.go,
// internal/worker.Semaphore), retargeted from chunk encoding to per-frame
// rendering.
package render

import (
	"context"
	"fmt"
	"sync"

	"github.com/clipforge/exporter/internal/config"
	"github.com/clipforge/exporter/internal/planar"
)

// DefaultWorkers is the default pool size, chosen to avoid contention on
// typical 8-core desktops.
const DefaultWorkers = 4

// Mode reports which rendering strategy a Coordinator ended up using.
type Mode string

const (
	ModeParallel Mode = "parallel"
	ModeFallback Mode = "fallback"
)

// Job is one unit of render work submitted to a worker.
type Job struct {
	FrameIndex int64
	Source     *planar.Frame
	TimestampMS int64
}

// Result is a completed (or failed) render.
type Result struct {
	FrameIndex int64
	Frame      *planar.Frame
	Err        error
}

// FrameRenderer performs the actual per-frame compositing. One instance is
// constructed per worker (and one for the fallback path), each caching its
// own derived state from the immutable RenderPlan.
type FrameRenderer interface {
	Render(job Job) (*planar.Frame, error)
}

// FrameRendererFactory builds a FrameRenderer bound to plan, called once
// per worker at pool init (and once for the fallback renderer).
type FrameRendererFactory func(plan config.RenderPlan) (FrameRenderer, error)

// Coordinator parallelizes FrameRenderer.Render across a worker pool,
// falling back to a single-threaded in-process renderer with identical
// semantics if the pool cannot start.
type Coordinator struct {
	plan       config.RenderPlan
	factory    FrameRendererFactory
	numWorkers int
	errThreshold int

	mode Mode

	jobs    chan Job
	results chan Result
	wg      sync.WaitGroup

	single FrameRenderer

	mu        sync.Mutex
	nextIndex int64
	pending   int
	pendingC  *sync.Cond
	errCount  int
	aborted   error

	sink func(Result)
}

// NewCoordinator creates a Coordinator for plan using factory to build
// each worker's renderer. numWorkers <= 0 uses DefaultWorkers.
func NewCoordinator(plan config.RenderPlan, factory FrameRendererFactory, numWorkers, errThreshold int) *Coordinator {
	if numWorkers <= 0 {
		numWorkers = DefaultWorkers
	}
	if errThreshold <= 0 {
		errThreshold = 1
	}
	c := &Coordinator{plan: plan, factory: factory, numWorkers: numWorkers, errThreshold: errThreshold}
	c.pendingC = sync.NewCond(&c.mu)
	return c
}

// Initialize attempts to start the parallel pool; on any per-worker init
// failure it tears the pool down and falls back to a single-threaded
// renderer with identical semantics. Returns the mode actually used.
func (c *Coordinator) Initialize(ctx context.Context) (Mode, error) {
	renderers := make([]FrameRenderer, c.numWorkers)
	for i := 0; i < c.numWorkers; i++ {
		r, err := c.factory(c.plan)
		if err != nil {
			return c.initFallback()
		}
		renderers[i] = r
	}

	c.jobs = make(chan Job, c.numWorkers*2)
	c.results = make(chan Result, c.numWorkers*2)
	for i := 0; i < c.numWorkers; i++ {
		c.wg.Add(1)
		go c.workerLoop(ctx, renderers[i])
	}
	c.mode = ModeParallel
	return ModeParallel, nil
}

func (c *Coordinator) initFallback() (Mode, error) {
	single, err := c.factory(c.plan)
	if err != nil {
		return "", fmt.Errorf("render: fallback renderer init failed: %w", err)
	}
	c.single = single
	c.mode = ModeFallback
	return ModeFallback, nil
}

func (c *Coordinator) workerLoop(ctx context.Context, r FrameRenderer) {
	defer c.wg.Done()
	for job := range c.jobs {
		select {
		case <-ctx.Done():
			c.results <- Result{FrameIndex: job.FrameIndex, Err: ctx.Err()}
			continue
		default:
		}
		frame, err := r.Render(job)
		c.results <- Result{FrameIndex: job.FrameIndex, Frame: frame, Err: err}
	}
}

// SetOutputSink registers the callback invoked as each rendered frame
// becomes available. The coordinator does not guarantee index order here;
// FrameReassembler is responsible for ordering (spec §4.8).
func (c *Coordinator) SetOutputSink(fn func(Result)) {
	c.sink = fn
	if c.mode == ModeParallel {
		go c.collect()
	}
}

func (c *Coordinator) collect() {
	for res := range c.results {
		if res.Err != nil {
			c.mu.Lock()
			c.errCount++
			if c.errCount >= c.errThreshold && c.aborted == nil {
				c.aborted = fmt.Errorf("render: worker error threshold exceeded: %w", res.Err)
			}
			c.pending--
			c.pendingC.Broadcast()
			c.mu.Unlock()
			if c.sink != nil {
				c.sink(res)
			}
			continue
		}
		c.mu.Lock()
		c.pending--
		c.pendingC.Broadcast()
		c.mu.Unlock()
		if c.sink != nil {
			c.sink(res)
		}
	}
}

// RenderFrame submits source for rendering at timestamp tMS, assigning it
// the next sequential frame index. In fallback mode it renders
// synchronously and invokes the sink immediately.
func (c *Coordinator) RenderFrame(ctx context.Context, source *planar.Frame, tMS int64) error {
	c.mu.Lock()
	if c.aborted != nil {
		err := c.aborted
		c.mu.Unlock()
		return err
	}
	idx := c.nextIndex
	c.nextIndex++
	c.pending++
	c.mu.Unlock()

	if c.mode == ModeFallback {
		frame, err := c.single.Render(Job{FrameIndex: idx, Source: source, TimestampMS: tMS})
		c.mu.Lock()
		c.pending--
		c.mu.Unlock()
		if c.sink != nil {
			c.sink(Result{FrameIndex: idx, Frame: frame, Err: err})
		}
		return err
	}

	select {
	case c.jobs <- Job{FrameIndex: idx, Source: source, TimestampMS: tMS}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitForPending blocks until all outstanding renders have completed.
func (c *Coordinator) WaitForPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pending > 0 {
		c.pendingC.Wait()
	}
}

// Mode returns the mode this coordinator ended up using.
func (c *Coordinator) Mode() Mode { return c.mode }

// Flush is a no-op placeholder satisfying the spec's named operation; all
// in-flight work is already tracked by WaitForPending.
func (c *Coordinator) Flush() {}

// Shutdown closes the job channel and waits for workers to drain.
func (c *Coordinator) Shutdown() {
	if c.mode != ModeParallel {
		return
	}
	close(c.jobs)
	c.wg.Wait()
	close(c.results)
}

// Terminate is an alias for Shutdown used on the abort/cancellation path.
func (c *Coordinator) Terminate() { c.Shutdown() }
