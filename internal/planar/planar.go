// Package planar implements raw pixel arithmetic over planar 10-bit YUV
// 4:2:0 frame buffers, the pixel representation shared by the decoder,
// render workers, and encoder. It extends the donor FFMS2 binding's
// plane-copy/8-to-10-bit-convert idiom (internal/ffmsdecode) to the
// additional operations the renderer needs: crop, nearest-neighbor scale,
// alpha blend, and a separable box blur.
package planar

import (
	"sync"
)

// Layout describes the byte layout of one planar 10-bit YUV 4:2:0 frame.
// Luma is full resolution; chroma planes are subsampled 2x in both
// dimensions. Every sample is 2 bytes, little-endian.
type Layout struct {
	Width, Height int
	YStride       int // bytes per luma row
	CStride       int // bytes per chroma row
	YSize         int
	CSize         int // size of one chroma plane (U or V)
}

// NewLayout computes the plane layout for a Width x Height 10-bit 4:2:0 frame.
func NewLayout(width, height int) Layout {
	cw, ch := (width+1)/2, (height+1)/2
	return Layout{
		Width: width, Height: height,
		YStride: width * 2,
		CStride: cw * 2,
		YSize:   width * height * 2,
		CSize:   cw * ch * 2,
	}
}

// TotalSize is the full frame buffer size (Y+U+V).
func (l Layout) TotalSize() int { return l.YSize + 2*l.CSize }

// YPlane, UPlane, VPlane return byte slices of buf for each plane.
func (l Layout) YPlane(buf []byte) []byte { return buf[:l.YSize] }
func (l Layout) UPlane(buf []byte) []byte { return buf[l.YSize : l.YSize+l.CSize] }
func (l Layout) VPlane(buf []byte) []byte { return buf[l.YSize+l.CSize : l.YSize+2*l.CSize] }

// Frame is an owned planar 10-bit YUV 4:2:0 pixel buffer. Exactly one owner
// at any time; Release returns it to the shared pool. Frame is not safe for
// concurrent use — ownership transfer (e.g. across a channel to a render
// worker) must happen-before the new owner touches it.
type Frame struct {
	Layout Layout
	Pixels []byte
}

var poolsMu sync.Mutex
var pools = map[int]*sync.Pool{}

func poolFor(size int) *sync.Pool {
	poolsMu.Lock()
	defer poolsMu.Unlock()
	p, ok := pools[size]
	if !ok {
		p = &sync.Pool{New: func() interface{} {
			buf := make([]byte, size)
			return &buf
		}}
		pools[size] = p
	}
	return p
}

// Acquire returns a Frame of the given dimensions, reusing a pooled buffer
// of the same byte size when one is available. The caller owns the
// returned Frame and must call Release exactly once.
func Acquire(width, height int) *Frame {
	layout := NewLayout(width, height)
	size := layout.TotalSize()
	bufPtr := poolFor(size).Get().(*[]byte)
	buf := *bufPtr
	if cap(buf) < size {
		buf = make([]byte, size)
	}
	buf = buf[:size]
	return &Frame{Layout: layout, Pixels: buf}
}

// Release returns the frame's buffer to the pool. The frame must not be
// used again after Release. Release is a no-op on a nil Frame so teardown
// code can call it unconditionally.
func Release(f *Frame) {
	if f == nil || f.Pixels == nil {
		return
	}
	size := len(f.Pixels)
	buf := f.Pixels
	poolFor(size).Put(&buf)
	f.Pixels = nil
}

// CopyPlane copies src into dst handling stride differences between the
// source decoder's row pitch and this package's tightly packed layout;
// grounded on the donor's copyPlane10bit.
func CopyPlane(dst, src []byte, rows, dstStride, srcStride int) {
	srcOff, dstOff := 0, 0
	for row := 0; row < rows; row++ {
		copy(dst[dstOff:dstOff+dstStride], src[srcOff:srcOff+dstStride])
		srcOff += srcStride
		dstOff += dstStride
	}
}

// Convert8To10 widens 8-bit samples to 10-bit (left-shift by 2), writing
// 16-bit little-endian output; grounded on the donor's convert8to10bit.
func Convert8To10(dst, src []byte, width, height, srcStride int) {
	dstOff := 0
	for row := 0; row < height; row++ {
		rowStart := row * srcStride
		for col := 0; col < width; col++ {
			sample10 := uint16(src[rowStart+col]) << 2
			dst[dstOff] = byte(sample10 & 0xFF)
			dst[dstOff+1] = byte(sample10 >> 8)
			dstOff += 2
		}
	}
}

func sample(plane []byte, stride, x, y int) uint16 {
	off := y*stride + x*2
	return uint16(plane[off]) | uint16(plane[off+1])<<8
}

func setSample(plane []byte, stride, x, y int, v uint16) {
	off := y*stride + x*2
	plane[off] = byte(v & 0xFF)
	plane[off+1] = byte(v >> 8)
}

// Crop returns a new Frame containing the [x,y,w,h) region of src.
func Crop(src *Frame, x, y, w, h int) *Frame {
	dst := Acquire(w, h)
	copyPlaneRegion(dst.Pixels[:dst.Layout.YSize], dst.Layout.YStride,
		src.Pixels[:src.Layout.YSize], src.Layout.YStride, x, y, w, h)

	cx, cy, cw, ch := x/2, y/2, (w+1)/2, (h+1)/2
	copyPlaneRegion(dst.Layout.UPlane(dst.Pixels), dst.Layout.CStride,
		src.Layout.UPlane(src.Pixels), src.Layout.CStride, cx, cy, cw, ch)
	copyPlaneRegion(dst.Layout.VPlane(dst.Pixels), dst.Layout.CStride,
		src.Layout.VPlane(src.Pixels), src.Layout.CStride, cx, cy, cw, ch)
	return dst
}

func copyPlaneRegion(dst []byte, dstStride int, src []byte, srcStride, x, y, w, h int) {
	for row := 0; row < h; row++ {
		srcOff := (y+row)*srcStride + x*2
		dstOff := row * dstStride
		copy(dst[dstOff:dstOff+w*2], src[srcOff:srcOff+w*2])
	}
}

// ScaleNearest resizes src to dstW x dstH using nearest-neighbor sampling,
// the resize strategy the donor idiom supports without pulling in a
// filtering/resampling library (see DESIGN.md).
func ScaleNearest(src *Frame, dstW, dstH int) *Frame {
	dst := Acquire(dstW, dstH)
	scalePlaneNearest(dst.Pixels[:dst.Layout.YSize], dst.Layout.YStride, dstW, dstH,
		src.Pixels[:src.Layout.YSize], src.Layout.YStride, src.Layout.Width, src.Layout.Height)

	dcw, dch := (dstW+1)/2, (dstH+1)/2
	scw, sch := (src.Layout.Width+1)/2, (src.Layout.Height+1)/2
	scalePlaneNearest(dst.Layout.UPlane(dst.Pixels), dst.Layout.CStride, dcw, dch,
		src.Layout.UPlane(src.Pixels), src.Layout.CStride, scw, sch)
	scalePlaneNearest(dst.Layout.VPlane(dst.Pixels), dst.Layout.CStride, dcw, dch,
		src.Layout.VPlane(src.Pixels), src.Layout.CStride, scw, sch)
	return dst
}

func scalePlaneNearest(dst []byte, dstStride, dstW, dstH int, src []byte, srcStride, srcW, srcH int) {
	for dy := 0; dy < dstH; dy++ {
		sy := dy * srcH / dstH
		if sy >= srcH {
			sy = srcH - 1
		}
		for dx := 0; dx < dstW; dx++ {
			sx := dx * srcW / dstW
			if sx >= srcW {
				sx = srcW - 1
			}
			v := sample(src, srcStride, sx, sy)
			setSample(dst, dstStride, dx, dy, v)
		}
	}
}

// MirrorHorizontal flips f in place along the vertical axis, used for the
// camera PiP overlay's mandatory horizontal mirror.
func MirrorHorizontal(f *Frame) {
	mirrorPlane(f.Pixels[:f.Layout.YSize], f.Layout.YStride, f.Layout.Width, f.Layout.Height)
	cw, ch := (f.Layout.Width+1)/2, (f.Layout.Height+1)/2
	mirrorPlane(f.Layout.UPlane(f.Pixels), f.Layout.CStride, cw, ch)
	mirrorPlane(f.Layout.VPlane(f.Pixels), f.Layout.CStride, cw, ch)
}

func mirrorPlane(plane []byte, stride, w, h int) {
	for y := 0; y < h; y++ {
		for x := 0; x < w/2; x++ {
			left := sample(plane, stride, x, y)
			right := sample(plane, stride, w-1-x, y)
			setSample(plane, stride, x, y, right)
			setSample(plane, stride, w-1-x, y, left)
		}
	}
}

// BlendAt alpha-blends src onto dst at (dstX, dstY), using a per-pixel
// alpha mask (0-255, same dimensions as src, one byte per pixel measured
// at luma resolution) for rounded-corner clipping and shadow/border
// feathering. Out-of-bounds src pixels are skipped.
func BlendAt(dst *Frame, dstX, dstY int, src *Frame, alpha []byte) {
	blendPlane(dst.Pixels[:dst.Layout.YSize], dst.Layout.YStride, dst.Layout.Width, dst.Layout.Height, dstX, dstY,
		src.Pixels[:src.Layout.YSize], src.Layout.YStride, src.Layout.Width, src.Layout.Height, alpha, 1)

	cdx, cdy := dstX/2, dstY/2
	cw, ch := (src.Layout.Width+1)/2, (src.Layout.Height+1)/2
	blendPlane(dst.Layout.UPlane(dst.Pixels), dst.Layout.CStride, (dst.Layout.Width+1)/2, (dst.Layout.Height+1)/2, cdx, cdy,
		src.Layout.UPlane(src.Pixels), src.Layout.CStride, cw, ch, alpha, 2)
	blendPlane(dst.Layout.VPlane(dst.Pixels), dst.Layout.CStride, (dst.Layout.Width+1)/2, (dst.Layout.Height+1)/2, cdx, cdy,
		src.Layout.VPlane(src.Pixels), src.Layout.CStride, cw, ch, alpha, 2)
}

// blendPlane blends one plane; chromaScale is 1 for luma, 2 for chroma
// (alpha mask is indexed at luma resolution and downsampled by chromaScale).
func blendPlane(dst []byte, dstStride, dstW, dstH, dstX, dstY int, src []byte, srcStride, srcW, srcH int, alpha []byte, chromaScale int) {
	for sy := 0; sy < srcH; sy++ {
		dy := dstY + sy
		if dy < 0 || dy >= dstH {
			continue
		}
		for sx := 0; sx < srcW; sx++ {
			dx := dstX + sx
			if dx < 0 || dx >= dstW {
				continue
			}
			a := uint32(255)
			if alpha != nil {
				ay, ax := sy*chromaScale, sx*chromaScale
				maskStride := srcW * chromaScale
				idx := ay*maskStride + ax
				if idx >= 0 && idx < len(alpha) {
					a = uint32(alpha[idx])
				}
			}
			if a == 0 {
				continue
			}
			sv := uint32(sample(src, srcStride, sx, sy))
			if a == 255 {
				setSample(dst, dstStride, dx, dy, uint16(sv))
				continue
			}
			dv := uint32(sample(dst, dstStride, dx, dy))
			blended := (sv*a + dv*(255-a)) / 255
			setSample(dst, dstStride, dx, dy, uint16(blended))
		}
	}
}

// BoxBlur applies an in-place separable box blur of the given radius (in
// luma pixels) to every plane of f, used for background blur, shadow blur,
// and motion-blur sample averaging.
func BoxBlur(f *Frame, radius int) {
	if radius <= 0 {
		return
	}
	boxBlurPlane(f.Pixels[:f.Layout.YSize], f.Layout.YStride, f.Layout.Width, f.Layout.Height, radius)
	cw, ch := (f.Layout.Width+1)/2, (f.Layout.Height+1)/2
	cr := radius / 2
	if cr > 0 {
		boxBlurPlane(f.Layout.UPlane(f.Pixels), f.Layout.CStride, cw, ch, cr)
		boxBlurPlane(f.Layout.VPlane(f.Pixels), f.Layout.CStride, cw, ch, cr)
	}
}

func boxBlurPlane(plane []byte, stride, w, h, radius int) {
	tmp := make([]uint16, w*h)
	// Horizontal pass.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum, count uint32
			for k := -radius; k <= radius; k++ {
				sx := x + k
				if sx < 0 || sx >= w {
					continue
				}
				sum += uint32(sample(plane, stride, sx, y))
				count++
			}
			tmp[y*w+x] = uint16(sum / count)
		}
	}
	// Vertical pass, reading from tmp and writing back into plane.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum, count uint32
			for k := -radius; k <= radius; k++ {
				sy := y + k
				if sy < 0 || sy >= h {
					continue
				}
				sum += uint32(tmp[sy*w+x])
				count++
			}
			setSample(plane, stride, x, y, uint16(sum/count))
		}
	}
}

// AverageInto writes the per-sample average of frames into dst, used to
// approximate motion blur from MotionBlurSamples sub-frame renders.
func AverageInto(dst *Frame, frames []*Frame) {
	if len(frames) == 0 {
		return
	}
	n := uint32(len(frames))
	averagePlane(dst.Pixels[:dst.Layout.YSize], dst.Layout.YStride, dst.Layout.Width, dst.Layout.Height, frames, func(f *Frame) ([]byte, int) {
		return f.Pixels[:f.Layout.YSize], f.Layout.YStride
	}, n)
	cw, ch := (dst.Layout.Width+1)/2, (dst.Layout.Height+1)/2
	averagePlane(dst.Layout.UPlane(dst.Pixels), dst.Layout.CStride, cw, ch, frames, func(f *Frame) ([]byte, int) {
		return f.Layout.UPlane(f.Pixels), f.Layout.CStride
	}, n)
	averagePlane(dst.Layout.VPlane(dst.Pixels), dst.Layout.CStride, cw, ch, frames, func(f *Frame) ([]byte, int) {
		return f.Layout.VPlane(f.Pixels), f.Layout.CStride
	}, n)
}

func averagePlane(dst []byte, stride, w, h int, frames []*Frame, pick func(*Frame) ([]byte, int), n uint32) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum uint32
			for _, f := range frames {
				plane, pstride := pick(f)
				sum += uint32(sample(plane, pstride, x, y))
			}
			setSample(dst, stride, x, y, uint16(sum/n))
		}
	}
}
