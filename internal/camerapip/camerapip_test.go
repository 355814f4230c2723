package camerapip

import (
	"context"
	"errors"
	"testing"

	"github.com/clipforge/exporter/internal/config"
	"github.com/clipforge/exporter/internal/planar"
)

type fakeSource struct {
	initErr    error
	durationMS int64
	frame      func() *planar.Frame
}

func (f *fakeSource) Initialize(ctx context.Context, cameraURL string) error { return f.initErr }
func (f *fakeSource) DurationMS() int64                                     { return f.durationMS }
func (f *fakeSource) SeekFrame(ctx context.Context, tMS int64) (*planar.Frame, error) {
	return f.frame(), nil
}

func baseConfig() config.CameraPipConfig {
	return config.CameraPipConfig{
		Enabled:         true,
		CameraURL:       "camera-1699999999999.webm",
		Position:        config.PipBottomRight,
		Size:            config.PipSizeMedium,
		Shape:           config.PipShapeRoundedRect,
		BorderRadiusPct: 20,
	}
}

func TestInitializeFailsSoftly(t *testing.T) {
	src := &fakeSource{initErr: errors.New("no camera track")}
	c := New(baseConfig(), src)
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize should never return an error, got %v", err)
	}
	if c.IsReady() {
		t.Error("expected IsReady false after a failed camera load")
	}
}

func TestRenderNoopWhenNotReady(t *testing.T) {
	src := &fakeSource{initErr: errors.New("fail")}
	c := New(baseConfig(), src)
	c.Initialize(context.Background())

	dst := planar.Acquire(64, 64)
	defer planar.Release(dst)
	if err := c.Render(context.Background(), dst, 1000); err != nil {
		t.Fatalf("Render should no-op when not ready, got %v", err)
	}
}

func TestRenderNoopPastCameraDuration(t *testing.T) {
	src := &fakeSource{durationMS: 500}
	c := New(baseConfig(), src)
	c.Initialize(context.Background())

	dst := planar.Acquire(64, 64)
	defer planar.Release(dst)
	if err := c.Render(context.Background(), dst, 1000); err != nil {
		t.Fatalf("Render should no-op past camera duration, got %v", err)
	}
}

func TestRenderCompositesWithinBounds(t *testing.T) {
	src := &fakeSource{
		durationMS: 10_000,
		frame: func() *planar.Frame {
			f := planar.Acquire(32, 32)
			for i := range f.Pixels {
				f.Pixels[i] = 0xFF
			}
			return f
		},
	}
	c := New(baseConfig(), src)
	c.Initialize(context.Background())

	dst := planar.Acquire(100, 100)
	defer planar.Release(dst)
	if err := c.Render(context.Background(), dst, 1000); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
}

func TestComputePlacementCircleForcesSquareAspect(t *testing.T) {
	cfg := baseConfig()
	cfg.Shape = config.PipShapeCircle
	cfg.Size = config.PipSizeSmall
	p := computePlacement(cfg, 1000, 800, 640, 480)
	if p.aspectW != 1 || p.aspectH != 1 {
		t.Errorf("circle shape should force 1:1 aspect, got %d:%d", p.aspectW, p.aspectH)
	}
	if p.sizePx != 150 {
		t.Errorf("size_px for small (15%%) of 1000 = %d, want 150", p.sizePx)
	}
}
