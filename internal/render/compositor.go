package render

import (
	"fmt"

	"github.com/clipforge/exporter/internal/config"
	"github.com/clipforge/exporter/internal/planar"
)

// DefaultRenderer implements FrameRenderer: wallpaper background, source
// crop, zoom-region scale, background blur, border radius, and padding. It
// does not render shadow, motion blur, or annotations. One instance is
// constructed per worker by NewDefaultRenderer (the FrameRendererFactory),
// caching the plan's derived state (e.g. a pre-rendered wallpaper frame).
type DefaultRenderer struct {
	plan       config.RenderPlan
	wallpaper  *planar.Frame
}

// NewDefaultRenderer is a FrameRendererFactory that pre-renders and caches
// the wallpaper background for the lifetime of one worker.
func NewDefaultRenderer(plan config.RenderPlan) (FrameRenderer, error) {
	r := &DefaultRenderer{plan: plan}
	if plan.WallpaperPath != "" {
		// A real implementation decodes WallpaperPath once here. Absent a
		// general still-image decoder in this package's dependency set, a
		// solid mid-gray frame stands in as the cached background.
		wp := planar.Acquire(plan.OutputWidth, plan.OutputHeight)
		fillMidGray(wp)
		r.wallpaper = wp
	}
	return r, nil
}

func fillMidGray(f *planar.Frame) {
	for i := 0; i < f.Layout.YSize; i += 2 {
		f.Pixels[i], f.Pixels[i+1] = 0x00, 0x02 // 10-bit mid luma (512)
	}
	u := f.Layout.UPlane(f.Pixels)
	for i := 0; i < len(u); i += 2 {
		u[i], u[i+1] = 0x00, 0x02
	}
	v := f.Layout.VPlane(f.Pixels)
	for i := 0; i < len(v); i += 2 {
		v[i], v[i+1] = 0x00, 0x02
	}
}

// Render applies the full compositing pipeline to one source frame.
func (r *DefaultRenderer) Render(job Job) (*planar.Frame, error) {
	if job.Source == nil {
		return nil, fmt.Errorf("render: nil source frame at index %d", job.FrameIndex)
	}

	// working always holds the frame this function currently owns and must
	// release exactly once, whether that's the original job.Source (moved
	// in by the caller) or a frame derived from it by a transform below.
	working := job.Source

	if c := r.plan.Crop; c.Width > 0 && c.Height > 0 {
		cropped := planar.Crop(working, c.X, c.Y, c.Width, c.Height)
		planar.Release(working)
		working = cropped
	}

	if scale := r.activeZoomScale(job.TimestampMS); scale != 1.0 {
		zoomedW := int(float64(working.Layout.Width) * scale)
		zoomedH := int(float64(working.Layout.Height) * scale)
		if zoomedW > 0 && zoomedH > 0 {
			zoomed := planar.ScaleNearest(working, zoomedW, zoomedH)
			planar.Release(working)
			working = zoomed
		}
	}

	out := planar.Acquire(r.plan.OutputWidth, r.plan.OutputHeight)
	if r.wallpaper != nil {
		copy(out.Pixels, r.wallpaper.Pixels)
	}
	if r.plan.BlurBackground {
		planar.BoxBlur(out, r.backgroundBlurRadius())
	}

	destW := r.plan.OutputWidth - paddingPx(r.plan.OutputWidth, r.plan.PaddingPct)*2
	destH := r.plan.OutputHeight - paddingPx(r.plan.OutputHeight, r.plan.PaddingPct)*2
	if destW > 0 && destH > 0 && (destW != working.Layout.Width || destH != working.Layout.Height) {
		resized := planar.ScaleNearest(working, destW, destH)
		planar.Release(working)
		working = resized
	}

	destX := (r.plan.OutputWidth - working.Layout.Width) / 2
	destY := (r.plan.OutputHeight - working.Layout.Height) / 2

	var alpha []byte
	if r.plan.BorderRadiusPct > 0 {
		alpha = cornerMask(working.Layout.Width, working.Layout.Height, r.plan.BorderRadiusPct)
	}
	planar.BlendAt(out, destX, destY, working, alpha)

	planar.Release(working)
	return out, nil
}

// activeZoomScale returns the interpolated scale factor for tMS from the
// plan's zoom regions, or 1.0 outside any region.
func (r *DefaultRenderer) activeZoomScale(tMS int64) float64 {
	for _, z := range r.plan.ZoomRegions {
		if tMS < z.StartMS || tMS > z.EndMS {
			continue
		}
		span := z.EndMS - z.StartMS
		if span <= 0 {
			return z.ScaleEnd
		}
		t := float64(tMS-z.StartMS) / float64(span)
		t = applyEasing(z.Easing, t)
		return z.ScaleStart + (z.ScaleEnd-z.ScaleStart)*t
	}
	return 1.0
}

func applyEasing(fn config.EasingFunction, t float64) float64 {
	switch fn {
	case config.EasingEaseIn:
		return t * t
	case config.EasingEaseOut:
		return t * (2 - t)
	case config.EasingEaseInOut:
		if t < 0.5 {
			return 2 * t * t
		}
		return -1 + (4-2*t)*t
	default:
		return t
	}
}

func (r *DefaultRenderer) backgroundBlurRadius() int {
	if r.plan.BackgroundBlurRadius > 0 {
		return r.plan.BackgroundBlurRadius
	}
	return 8
}

func paddingPx(dim int, pct float64) int {
	if pct <= 0 {
		return 0
	}
	return int(float64(dim) * pct / 100)
}

// cornerMask builds a luma-resolution rounded-rect alpha mask for the
// output frame's border radius.
func cornerMask(w, h, radiusPct int) []byte {
	mask := make([]byte, w*h)
	radius := int(float64(min(w, h)) * float64(radiusPct) / 100)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mask[y*w+x] = 255
		}
	}
	if radius <= 0 {
		return mask
	}
	for y := 0; y < radius; y++ {
		for x := 0; x < radius; x++ {
			if outsideCorner(x, y, radius) {
				mask[y*w+x] = 0
				mask[y*w+(w-1-x)] = 0
				mask[(h-1-y)*w+x] = 0
				mask[(h-1-y)*w+(w-1-x)] = 0
			}
		}
	}
	return mask
}

func outsideCorner(x, y, radius int) bool {
	dx, dy := radius-x, radius-y
	return dx*dx+dy*dy > radius*radius
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
