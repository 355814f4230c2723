package planar

import "testing"

func TestAcquireReleaseRoundTrip(t *testing.T) {
	f := Acquire(64, 48)
	if len(f.Pixels) != f.Layout.TotalSize() {
		t.Fatalf("buffer size = %d, want %d", len(f.Pixels), f.Layout.TotalSize())
	}
	Release(f)
	if f.Pixels != nil {
		t.Error("Release should clear Pixels")
	}
	// Release on nil must not panic.
	Release(nil)
}

func TestLayoutSizes(t *testing.T) {
	l := NewLayout(4, 2)
	if l.YSize != 16 {
		t.Errorf("YSize = %d, want 16", l.YSize)
	}
	if l.CSize != 4 {
		t.Errorf("CSize = %d, want 4", l.CSize)
	}
	if l.TotalSize() != 24 {
		t.Errorf("TotalSize = %d, want 24", l.TotalSize())
	}
}

func fillSolid(f *Frame, y, u, v uint16) {
	for i := 0; i < f.Layout.YSize; i += 2 {
		f.Pixels[i] = byte(y & 0xFF)
		f.Pixels[i+1] = byte(y >> 8)
	}
	up := f.Layout.UPlane(f.Pixels)
	for i := 0; i < len(up); i += 2 {
		up[i] = byte(u & 0xFF)
		up[i+1] = byte(u >> 8)
	}
	vp := f.Layout.VPlane(f.Pixels)
	for i := 0; i < len(vp); i += 2 {
		vp[i] = byte(v & 0xFF)
		vp[i+1] = byte(v >> 8)
	}
}

func TestCropExtractsSolidRegion(t *testing.T) {
	src := Acquire(16, 16)
	defer Release(src)
	fillSolid(src, 512, 256, 256)

	cropped := Crop(src, 2, 2, 8, 8)
	defer Release(cropped)

	if sample(cropped.Pixels, cropped.Layout.YStride, 0, 0) != 512 {
		t.Error("crop did not preserve luma value")
	}
}

func TestScaleNearestPreservesSolidColor(t *testing.T) {
	src := Acquire(8, 8)
	defer Release(src)
	fillSolid(src, 300, 128, 128)

	scaled := ScaleNearest(src, 16, 16)
	defer Release(scaled)

	if scaled.Layout.Width != 16 || scaled.Layout.Height != 16 {
		t.Fatalf("scaled dims = %dx%d, want 16x16", scaled.Layout.Width, scaled.Layout.Height)
	}
	if sample(scaled.Pixels, scaled.Layout.YStride, 15, 15) != 300 {
		t.Error("scale did not preserve solid luma value at far corner")
	}
}

func TestMirrorHorizontalSwapsEdges(t *testing.T) {
	f := Acquire(4, 2)
	defer Release(f)
	setSample(f.Pixels, f.Layout.YStride, 0, 0, 100)
	setSample(f.Pixels, f.Layout.YStride, 3, 0, 200)

	MirrorHorizontal(f)

	if sample(f.Pixels, f.Layout.YStride, 0, 0) != 200 {
		t.Error("mirror should move right edge to left")
	}
	if sample(f.Pixels, f.Layout.YStride, 3, 0) != 100 {
		t.Error("mirror should move left edge to right")
	}
}

func TestBlendAtOpaqueOverwrites(t *testing.T) {
	dst := Acquire(8, 8)
	defer Release(dst)
	fillSolid(dst, 0, 0, 0)

	src := Acquire(4, 4)
	defer Release(src)
	fillSolid(src, 1000, 500, 500)

	BlendAt(dst, 2, 2, src, nil)

	if sample(dst.Pixels, dst.Layout.YStride, 2, 2) != 1000 {
		t.Error("opaque blend should overwrite destination")
	}
	if sample(dst.Pixels, dst.Layout.YStride, 0, 0) != 0 {
		t.Error("blend should not touch pixels outside src region")
	}
}

func TestBlendAtZeroAlphaLeavesDestination(t *testing.T) {
	dst := Acquire(4, 4)
	defer Release(dst)
	fillSolid(dst, 42, 42, 42)

	src := Acquire(4, 4)
	defer Release(src)
	fillSolid(src, 900, 900, 900)

	alpha := make([]byte, 4*4)
	BlendAt(dst, 0, 0, src, alpha)

	if sample(dst.Pixels, dst.Layout.YStride, 0, 0) != 42 {
		t.Error("zero alpha blend should leave destination unchanged")
	}
}

func TestBoxBlurSmoothsSharpEdge(t *testing.T) {
	f := Acquire(8, 1)
	defer Release(f)
	for x := 0; x < 4; x++ {
		setSample(f.Pixels, f.Layout.YStride, x, 0, 0)
	}
	for x := 4; x < 8; x++ {
		setSample(f.Pixels, f.Layout.YStride, x, 0, 1000)
	}

	BoxBlur(f, 1)

	mid := sample(f.Pixels, f.Layout.YStride, 4, 0)
	if mid == 0 || mid == 1000 {
		t.Errorf("box blur should smooth the edge, got %d", mid)
	}
}

func TestAverageIntoComputesMean(t *testing.T) {
	a := Acquire(2, 2)
	defer Release(a)
	fillSolid(a, 0, 0, 0)
	b := Acquire(2, 2)
	defer Release(b)
	fillSolid(b, 1000, 1000, 1000)

	dst := Acquire(2, 2)
	defer Release(dst)
	AverageInto(dst, []*Frame{a, b})

	if got := sample(dst.Pixels, dst.Layout.YStride, 0, 0); got != 500 {
		t.Errorf("AverageInto luma = %d, want 500", got)
	}
}
