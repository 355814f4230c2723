package render

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/clipforge/exporter/internal/config"
	"github.com/clipforge/exporter/internal/planar"
)

func basePlan() config.RenderPlan {
	return config.RenderPlan{OutputWidth: 64, OutputHeight: 64, SourceWidth: 64, SourceHeight: 64}
}

func TestCoordinatorParallelRendersAllFrames(t *testing.T) {
	plan := basePlan()
	c := NewCoordinator(plan, NewDefaultRenderer, 2, 1)
	mode, err := c.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if mode != ModeParallel {
		t.Fatalf("mode = %v, want parallel", mode)
	}

	var mu sync.Mutex
	received := map[int64]bool{}
	c.SetOutputSink(func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		if r.Err == nil {
			received[r.FrameIndex] = true
			planar.Release(r.Frame)
		}
	})

	for i := 0; i < 5; i++ {
		src := planar.Acquire(64, 64)
		if err := c.RenderFrame(context.Background(), src, int64(i)*33); err != nil {
			t.Fatalf("RenderFrame(%d) failed: %v", i, err)
		}
	}
	c.WaitForPending()
	c.Shutdown()

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 5 {
		t.Errorf("expected 5 rendered frames, got %d", len(received))
	}
}

func TestCoordinatorFallbackMode(t *testing.T) {
	failingFactory := func(plan config.RenderPlan) (FrameRenderer, error) {
		return nil, errors.New("worker init failed")
	}
	// First call fails (triggers fallback); fallback factory call must
	// itself succeed for a useful test, so wrap with a counter.
	calls := 0
	factory := func(plan config.RenderPlan) (FrameRenderer, error) {
		calls++
		if calls == 1 {
			return failingFactory(plan)
		}
		return NewDefaultRenderer(plan)
	}

	c := NewCoordinator(basePlan(), factory, 2, 1)
	mode, err := c.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if mode != ModeFallback {
		t.Fatalf("mode = %v, want fallback", mode)
	}

	var got Result
	done := make(chan struct{})
	c.SetOutputSink(func(r Result) {
		got = r
		close(done)
	})

	src := planar.Acquire(64, 64)
	if err := c.RenderFrame(context.Background(), src, 0); err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fallback render did not invoke sink")
	}
	if got.Err != nil {
		t.Errorf("unexpected render error: %v", got.Err)
	}
	planar.Release(got.Frame)
}

func TestDefaultRendererProducesOutputSize(t *testing.T) {
	plan := basePlan()
	plan.OutputWidth, plan.OutputHeight = 32, 32
	r, err := NewDefaultRenderer(plan)
	if err != nil {
		t.Fatal(err)
	}
	// Render takes ownership of src and releases it internally (it is moved
	// in, not borrowed), so the test does not release it again.
	src := planar.Acquire(64, 64)

	out, err := r.Render(Job{FrameIndex: 0, Source: src, TimestampMS: 0})
	if err != nil {
		t.Fatal(err)
	}
	defer planar.Release(out)
	if out.Layout.Width != 32 || out.Layout.Height != 32 {
		t.Errorf("output dims = %dx%d, want 32x32", out.Layout.Width, out.Layout.Height)
	}
}

func TestActiveZoomScaleOutsideRegionIsOne(t *testing.T) {
	plan := basePlan()
	plan.ZoomRegions = []config.ZoomRegion{{StartMS: 1000, EndMS: 2000, ScaleStart: 1.0, ScaleEnd: 2.0}}
	r := &DefaultRenderer{plan: plan}
	if got := r.activeZoomScale(500); got != 1.0 {
		t.Errorf("activeZoomScale outside region = %v, want 1.0", got)
	}
	if got := r.activeZoomScale(1500); got != 1.5 {
		t.Errorf("activeZoomScale midpoint = %v, want 1.5", got)
	}
}
