// Package quality wraps libvship's GPU-accelerated SSIMULACRA2 metric as
// an optional post-export validation signal. Absence of a usable GPU is
// not an error: Probe degrades to "unavailable" and the caller proceeds
// without a score, matching the donor's own treatment of vship as a
// nice-to-have quality gate rather than a required dependency.
package quality

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lvship

#include <stdlib.h>
#include <VshipAPI.h>
#include <VshipColor.h>
*/
import "C"
import (
	"fmt"
	"unsafe"

	"github.com/clipforge/exporter/internal/planar"
)

// Availability reports whether a GPU SSIMULACRA2 device could be
// initialized on this machine.
type Availability struct {
	Available bool
	Reason    string
	Backend   string
}

// Probe checks for a usable GPU device without allocating a Processor.
// It never returns an error: a failed probe is reported via Availability.
func Probe() Availability {
	count, err := getDeviceCount()
	if err != nil {
		return Availability{Available: false, Reason: err.Error()}
	}
	if count == 0 {
		return Availability{Available: false, Reason: "no GPU devices found"}
	}
	if err := setDevice(0); err != nil {
		return Availability{Available: false, Reason: err.Error()}
	}
	v := getVersion()
	return Availability{Available: true, Backend: v}
}

func getDeviceCount() (int, error) {
	var count C.int
	ret := C.Vship_GetDeviceCount(&count)
	if ret != C.Vship_NoError {
		return 0, fmt.Errorf("quality: device count query failed: %s", lastErrorDetail())
	}
	return int(count), nil
}

func setDevice(id int) error {
	ret := C.Vship_SetDevice(C.int(id))
	if ret != C.Vship_NoError {
		return fmt.Errorf("quality: failed to set device %d: %s", id, lastErrorDetail())
	}
	return nil
}

func getVersion() string {
	v := C.Vship_GetVersion()
	backend := "HIP"
	if v.backend == C.Vship_Cuda {
		backend = "CUDA"
	}
	return fmt.Sprintf("%d.%d.%d (%s)", int(v.major), int(v.minor), int(v.minorMinor), backend)
}

func lastErrorDetail() string {
	buf := make([]C.char, 2048)
	C.Vship_GetDetailedLastError(&buf[0], 2048)
	return C.GoString(&buf[0])
}

// Scorer computes SSIMULACRA2 scores between source and distorted
// 10-bit planar frames of a fixed size.
type Scorer struct {
	handler C.Vship_SSIMU2Handler
}

// NewScorer initializes a SSIMULACRA2 handler for width x height frames.
// internal/planar frames are always 10-bit, so the colorspace is fixed
// to BT.709 limited-range 4:2:0, matching what internal/ffmsdecode
// produces for every source (it widens 8-bit sources to 10-bit).
func NewScorer(width, height int) (*Scorer, error) {
	cs := defaultColorspace(width, height)
	var handler C.Vship_SSIMU2Handler
	ret := C.Vship_SSIMU2Init(&handler, cs, cs)
	if ret != C.Vship_NoError {
		return nil, fmt.Errorf("quality: failed to init SSIMULACRA2: %s", lastErrorDetail())
	}
	return &Scorer{handler: handler}, nil
}

func defaultColorspace(width, height int) C.Vship_Colorspace_t {
	var cs C.Vship_Colorspace_t
	cs.width = C.int64_t(width)
	cs.height = C.int64_t(height)
	cs.target_width = -1
	cs.target_height = -1
	cs.sample = C.Vship_SampleUINT10
	cs._range = C.Vship_RangeLimited
	cs.subsampling = C.Vship_ChromaSubsample_t{subw: 1, subh: 1}
	cs.chromaLocation = C.Vship_ChromaLoc_Left
	cs.colorFamily = C.Vship_ColorYUV
	cs.YUVMatrix = C.Vship_MATRIX_BT709
	cs.transferFunction = C.Vship_TRC_BT709
	cs.primaries = C.Vship_PRIMARIES_BT709
	return cs
}

// Score computes the SSIMULACRA2 score between a source frame and an
// output frame of the same dimensions.
func (s *Scorer) Score(src, dist *planar.Frame) (float64, error) {
	srcPlanes := [3]unsafe.Pointer{
		unsafe.Pointer(&src.Layout.YPlane(src.Pixels)[0]),
		unsafe.Pointer(&src.Layout.UPlane(src.Pixels)[0]),
		unsafe.Pointer(&src.Layout.VPlane(src.Pixels)[0]),
	}
	distPlanes := [3]unsafe.Pointer{
		unsafe.Pointer(&dist.Layout.YPlane(dist.Pixels)[0]),
		unsafe.Pointer(&dist.Layout.UPlane(dist.Pixels)[0]),
		unsafe.Pointer(&dist.Layout.VPlane(dist.Pixels)[0]),
	}
	strides := [3]int64{int64(src.Layout.YStride), int64(src.Layout.CStride), int64(src.Layout.CStride)}

	srcPtrs := C.malloc(3 * C.size_t(unsafe.Sizeof(uintptr(0))))
	distPtrs := C.malloc(3 * C.size_t(unsafe.Sizeof(uintptr(0))))
	srcLines := C.malloc(3 * C.size_t(unsafe.Sizeof(C.int64_t(0))))
	distLines := C.malloc(3 * C.size_t(unsafe.Sizeof(C.int64_t(0))))
	defer C.free(srcPtrs)
	defer C.free(distPtrs)
	defer C.free(srcLines)
	defer C.free(distLines)

	srcPtrSlice := (*[3]*C.uint8_t)(srcPtrs)
	distPtrSlice := (*[3]*C.uint8_t)(distPtrs)
	srcLineSlice := (*[3]C.int64_t)(srcLines)
	distLineSlice := (*[3]C.int64_t)(distLines)
	for i := 0; i < 3; i++ {
		srcPtrSlice[i] = (*C.uint8_t)(srcPlanes[i])
		distPtrSlice[i] = (*C.uint8_t)(distPlanes[i])
		srcLineSlice[i] = C.int64_t(strides[i])
		distLineSlice[i] = C.int64_t(strides[i])
	}

	var score C.double
	ret := C.Vship_ComputeSSIMU2(s.handler, &score,
		(**C.uint8_t)(srcPtrs), (**C.uint8_t)(distPtrs),
		(*C.int64_t)(srcLines), (*C.int64_t)(distLines))
	if ret != C.Vship_NoError {
		return 0, fmt.Errorf("quality: SSIMULACRA2 computation failed: %s", lastErrorDetail())
	}
	return float64(score), nil
}

// Close releases the handler.
func (s *Scorer) Close() error {
	if s.handler.id == 0 {
		return nil
	}
	ret := C.Vship_SSIMU2Free(s.handler)
	if ret != C.Vship_NoError {
		return fmt.Errorf("quality: failed to free SSIMULACRA2 handler")
	}
	s.handler.id = 0
	return nil
}
