// Package camerapip composites a camera overlay onto a rendered frame,
// the picture-in-picture behavior of spec component 4.6. It is not run
// inside render workers: it owns a single seekable camera decode unit and
// therefore runs on the main orchestrator goroutine, compositing onto
// frames after they come back from the render pool.
package camerapip

import (
	"context"
	"fmt"
	"math"

	"github.com/clipforge/exporter/internal/config"
	"github.com/clipforge/exporter/internal/planar"
)

// CameraFrameSource seeks a single camera track and extracts frames; it is
// the one seekable unit the compositor owns. A real implementation wraps
// the fallback-prefetch decode path (internal/framesource) against the
// camera_url input.
type CameraFrameSource interface {
	Initialize(ctx context.Context, cameraURL string) error
	DurationMS() int64
	SeekFrame(ctx context.Context, tMS int64) (*planar.Frame, error)
}

// Compositor overlays a camera track onto destination frames.
type Compositor struct {
	cfg    config.CameraPipConfig
	source CameraFrameSource
	ready  bool
}

// New creates a Compositor for the given config and camera source.
func New(cfg config.CameraPipConfig, source CameraFrameSource) *Compositor {
	return &Compositor{cfg: cfg, source: source}
}

// Initialize loads the camera track's metadata. Failures are soft: on
// error IsReady stays false and Render becomes a no-op, matching spec
// §4.6's "fails softly" contract — a broken camera track must never abort
// an otherwise-successful export.
func (c *Compositor) Initialize(ctx context.Context) error {
	if err := c.source.Initialize(ctx, c.cfg.CameraURL); err != nil {
		c.ready = false
		return nil
	}
	c.ready = true
	return nil
}

// IsReady reports whether the compositor successfully initialized.
func (c *Compositor) IsReady() bool { return c.ready }

// Render composites the camera frame at tMS onto dst in place. If the
// compositor isn't ready, or tMS exceeds the camera track's duration, dst
// is left untouched (graceful termination when the camera track is
// shorter than the screen recording).
func (c *Compositor) Render(ctx context.Context, dst *planar.Frame, tMS int64) error {
	if !c.ready {
		return nil
	}
	if tMS > c.source.DurationMS() {
		return nil
	}

	cam, err := c.source.SeekFrame(ctx, tMS)
	if err != nil {
		return fmt.Errorf("camerapip: seek at %dms: %w", tMS, err)
	}
	defer planar.Release(cam)

	placement := computePlacement(c.cfg, dst.Layout.Width, dst.Layout.Height, cam.Layout.Width, cam.Layout.Height)

	cropped := cropToAspect(cam, placement.aspectW, placement.aspectH)
	scaled := planar.ScaleNearest(cropped, placement.sizePx, placement.sizePxH)
	planar.Release(cropped)

	planar.MirrorHorizontal(scaled)

	alpha := roundedRectMask(placement.sizePx, placement.sizePxH, c.cfg.BorderRadiusPct, c.cfg.Shape)
	planar.BlendAt(dst, placement.x, placement.y, scaled, alpha)
	drawStroke(dst, placement.x, placement.y, placement.sizePx, placement.sizePxH, alpha)

	planar.Release(scaled)
	return nil
}

type placement struct {
	x, y              int
	sizePx, sizePxH   int
	aspectW, aspectH  int
}

// computePlacement follows spec §4.6's exact formulas: size_px = round(dst_w
// * size_percent/100), margin = round(dst_w * 0.02), with shape determining
// the overlay's aspect ratio before scaling.
func computePlacement(cfg config.CameraPipConfig, dstW, dstH, camW, camH int) placement {
	percent := cfg.Size.Percent()
	sizePx := int(math.Round(float64(dstW) * percent / 100))
	margin := int(math.Round(float64(dstW) * 0.02))

	aspectW, aspectH := camW, camH
	sizePxH := sizePx
	switch cfg.Shape {
	case config.PipShapeSquare, config.PipShapeCircle:
		aspectW, aspectH = 1, 1
		sizePxH = sizePx
	default:
		if camW > 0 {
			sizePxH = sizePx * camH / camW
		}
	}

	var x, y int
	switch cfg.Position {
	case config.PipTopLeft:
		x, y = margin, margin
	case config.PipTopRight:
		x, y = dstW-sizePx-margin, margin
	case config.PipBottomLeft:
		x, y = margin, dstH-sizePxH-margin
	case config.PipBottomRight:
		x, y = dstW-sizePx-margin, dstH-sizePxH-margin
	}

	return placement{x: x, y: y, sizePx: sizePx, sizePxH: sizePxH, aspectW: aspectW, aspectH: aspectH}
}

// cropToAspect center-crops src to the aspectW:aspectH ratio.
func cropToAspect(src *planar.Frame, aspectW, aspectH int) *planar.Frame {
	if aspectW <= 0 || aspectH <= 0 {
		return planar.Crop(src, 0, 0, src.Layout.Width, src.Layout.Height)
	}
	srcW, srcH := src.Layout.Width, src.Layout.Height
	targetH := srcW * aspectH / aspectW
	if targetH <= srcH {
		y := (srcH - targetH) / 2
		return planar.Crop(src, 0, y, srcW, targetH)
	}
	targetW := srcH * aspectW / aspectH
	x := (srcW - targetW) / 2
	return planar.Crop(src, x, 0, targetW, srcH)
}

// roundedRectMask builds a luma-resolution alpha mask (0-255) applying
// border_radius for rectangle/rounded-rectangle/square shapes, or a full
// circular mask forced to 50% radius for circle.
func roundedRectMask(w, h int, radiusPct int, shape config.PipShape) []byte {
	mask := make([]byte, w*h)
	if shape == config.PipShapeCircle {
		radiusPct = 50
	}
	radius := int(float64(min(w, h)) * float64(radiusPct) / 100)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mask[y*w+x] = 255
			if insideCornerCut(x, y, w, h, radius) {
				mask[y*w+x] = 0
			}
		}
	}
	return mask
}

func insideCornerCut(x, y, w, h, radius int) bool {
	if radius <= 0 {
		return false
	}
	corners := [4][2]int{{radius, radius}, {w - radius - 1, radius}, {radius, h - radius - 1}, {w - radius - 1, h - radius - 1}}
	inCornerBox := (x < radius || x >= w-radius) && (y < radius || y >= h-radius)
	if !inCornerBox {
		return false
	}
	var cx, cy int
	switch {
	case x < radius && y < radius:
		cx, cy = corners[0][0], corners[0][1]
	case x >= w-radius && y < radius:
		cx, cy = corners[1][0], corners[1][1]
	case x < radius && y >= h-radius:
		cx, cy = corners[2][0], corners[2][1]
	default:
		cx, cy = corners[3][0], corners[3][1]
	}
	dx, dy := x-cx, y-cy
	return dx*dx+dy*dy > radius*radius
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// drawStroke paints a 3-pixel white (10-bit luma 1023, neutral chroma)
// 20%-alpha border around the overlay bounds, per spec §4.6's stroke step.
func drawStroke(dst *planar.Frame, x, y, w, h int, alpha []byte) {
	const strokeWidth = 3
	const strokeAlpha = 51 // 0.2 * 255, rounded
	stroke := planar.Acquire(w, h)
	defer planar.Release(stroke)
	luma := stroke.Pixels[:stroke.Layout.YSize]
	for i := 0; i < len(luma); i += 2 {
		luma[i], luma[i+1] = 0xFF, 0x03 // 10-bit white luma (1023), little-endian
	}
	for _, c := range [][]byte{stroke.Layout.UPlane(stroke.Pixels), stroke.Layout.VPlane(stroke.Pixels)} {
		for i := 0; i < len(c); i += 2 {
			c[i], c[i+1] = 0x00, 0x02 // neutral chroma (512)
		}
	}

	strokeAlphaMask := make([]byte, w*h)
	for sy := 0; sy < h; sy++ {
		for sx := 0; sx < w; sx++ {
			onEdge := sx < strokeWidth || sx >= w-strokeWidth || sy < strokeWidth || sy >= h-strokeWidth
			if onEdge && alpha[sy*w+sx] > 0 {
				strokeAlphaMask[sy*w+sx] = strokeAlpha
			}
		}
	}
	planar.BlendAt(dst, x, y, stroke, strokeAlphaMask)
}
