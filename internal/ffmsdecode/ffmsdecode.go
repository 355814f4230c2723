// Package ffmsdecode binds FFMS2 for video frame indexing and decoding,
// adapted from the donor's internal/ffms CGO binding. Where the donor
// binding decodes whole chunks into caller-supplied buffers ahead of
// SVT-AV1 encoding, this binding decodes one FrameIndex at a time into a
// pooled planar.Frame, the unit the decode-ahead task (internal/decode)
// and FrameBuffer consume.
package ffmsdecode

/*
#cgo pkg-config: ffms2
#include <ffms.h>
#include <stdlib.h>

#define ERR_BUF_SIZE 1024

static FFMS_ErrorInfo* create_error_info() {
	FFMS_ErrorInfo* err = (FFMS_ErrorInfo*)malloc(sizeof(FFMS_ErrorInfo));
	err->Buffer = (char*)malloc(ERR_BUF_SIZE);
	err->BufferSize = ERR_BUF_SIZE;
	err->Buffer[0] = '\0';
	return err;
}

static void free_error_info(FFMS_ErrorInfo* err) {
	if (err) {
		free(err->Buffer);
		free(err);
	}
}

static const char* get_error_message(FFMS_ErrorInfo* err) {
	return err->Buffer;
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/clipforge/exporter/internal/planar"
)

var initOnce sync.Once

// Init initializes the FFMS2 library. Safe to call multiple times.
func Init() {
	initOnce.Do(func() {
		C.FFMS_Init(0, 0)
	})
}

// Index wraps an indexed input file, built once during Demuxer
// initialization and shared read-only by every decode call.
type Index struct {
	ptr  *C.FFMS_Index
	path string
}

// OpenIndex indexes path, scanning every track for keyframe positions.
func OpenIndex(path string) (*Index, error) {
	Init()

	errInfo := C.create_error_info()
	defer C.free_error_info(errInfo)

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	indexer := C.FFMS_CreateIndexer(cPath, errInfo)
	if indexer == nil {
		return nil, fmt.Errorf("ffmsdecode: create indexer: %s", C.GoString(C.get_error_message(errInfo)))
	}

	C.FFMS_TrackIndexSettings(indexer, -1, 1, 0)

	idx := C.FFMS_DoIndexing2(indexer, C.int(0), errInfo)
	if idx == nil {
		return nil, fmt.Errorf("ffmsdecode: index: %s", C.GoString(C.get_error_message(errInfo)))
	}

	return &Index{ptr: idx, path: path}, nil
}

// Close releases the index.
func (x *Index) Close() {
	if x.ptr != nil {
		C.FFMS_DestroyIndex(x.ptr)
		x.ptr = nil
	}
}

// Info describes the primary video track's geometry and timing.
type Info struct {
	Width, Height int
	FPSNum        int
	FPSDen        int
	FrameCount    int
	Is10Bit       bool
}

// GetInfo opens a throwaway single-threaded video source against idx to
// read stream properties and the first frame's pixel format.
func GetInfo(idx *Index) (*Info, error) {
	errInfo := C.create_error_info()
	defer C.free_error_info(errInfo)

	track := C.FFMS_GetFirstTrackOfType(idx.ptr, C.FFMS_TYPE_VIDEO, errInfo)
	if track < 0 {
		return nil, fmt.Errorf("ffmsdecode: no video track: %s", C.GoString(C.get_error_message(errInfo)))
	}

	cPath := C.CString(idx.path)
	defer C.free(unsafe.Pointer(cPath))

	src := C.FFMS_CreateVideoSource(cPath, C.int(track), idx.ptr, 1, C.FFMS_SEEK_NORMAL, errInfo)
	if src == nil {
		return nil, fmt.Errorf("ffmsdecode: create video source: %s", C.GoString(C.get_error_message(errInfo)))
	}
	defer C.FFMS_DestroyVideoSource(src)

	props := C.FFMS_GetVideoProperties(src)
	if props == nil {
		return nil, fmt.Errorf("ffmsdecode: no video properties")
	}

	frame := C.FFMS_GetFrame(src, 0, errInfo)
	if frame == nil {
		return nil, fmt.Errorf("ffmsdecode: get first frame: %s", C.GoString(C.get_error_message(errInfo)))
	}
	pixFmt := int(frame.ConvertedPixelFormat)

	return &Info{
		Width:      int(frame.EncodedWidth),
		Height:     int(frame.EncodedHeight),
		FPSNum:     int(props.FPSNumerator),
		FPSDen:     int(props.FPSDenominator),
		FrameCount: int(props.NumFrames),
		Is10Bit:    pixFmt >= 62 && pixFmt <= 67,
	}, nil
}

// Source is a threaded video source bound to an Index, used by the
// decode-ahead task to extract frames as the Demuxer walks the chunk list.
type Source struct {
	ptr  *C.FFMS_VideoSource
	info *Info
}

// OpenSource creates a video source with the given decode thread count.
func OpenSource(idx *Index, info *Info, threads int) (*Source, error) {
	errInfo := C.create_error_info()
	defer C.free_error_info(errInfo)

	track := C.FFMS_GetFirstTrackOfType(idx.ptr, C.FFMS_TYPE_VIDEO, errInfo)
	if track < 0 {
		return nil, fmt.Errorf("ffmsdecode: no video track: %s", C.GoString(C.get_error_message(errInfo)))
	}

	cPath := C.CString(idx.path)
	defer C.free(unsafe.Pointer(cPath))

	src := C.FFMS_CreateVideoSource(cPath, C.int(track), idx.ptr, C.int(threads), C.FFMS_SEEK_NORMAL, errInfo)
	if src == nil {
		return nil, fmt.Errorf("ffmsdecode: create video source: %s", C.GoString(C.get_error_message(errInfo)))
	}

	return &Source{ptr: src, info: info}, nil
}

// Close releases the video source.
func (s *Source) Close() {
	if s.ptr != nil {
		C.FFMS_DestroyVideoSource(s.ptr)
		s.ptr = nil
	}
}

// DecodeFrame decodes frameIdx into a freshly pooled planar.Frame, 8-bit
// sources promoted to 10-bit by left-shifting by 2 (internal/planar's
// Convert8To10), matching the donor binding's output contract.
func (s *Source) DecodeFrame(frameIdx int) (*planar.Frame, error) {
	errInfo := C.create_error_info()
	defer C.free_error_info(errInfo)

	frame := C.FFMS_GetFrame(s.ptr, C.int(frameIdx), errInfo)
	if frame == nil {
		return nil, fmt.Errorf("ffmsdecode: get frame %d: %s", frameIdx, C.GoString(C.get_error_message(errInfo)))
	}

	width, height := s.info.Width, s.info.Height
	out := planar.Acquire(width, height)

	yData := unsafe.Slice((*byte)(unsafe.Pointer(frame.Data[0])), int(frame.Linesize[0])*height)
	uData := unsafe.Slice((*byte)(unsafe.Pointer(frame.Data[1])), int(frame.Linesize[1])*height/2)
	vData := unsafe.Slice((*byte)(unsafe.Pointer(frame.Data[2])), int(frame.Linesize[2])*height/2)

	layout := out.Layout
	if s.info.Is10Bit {
		planar.CopyPlane(layout.YPlane(out.Pixels), yData, height, layout.YStride, int(frame.Linesize[0]))
		planar.CopyPlane(layout.UPlane(out.Pixels), uData, height/2, layout.CStride, int(frame.Linesize[1]))
		planar.CopyPlane(layout.VPlane(out.Pixels), vData, height/2, layout.CStride, int(frame.Linesize[2]))
	} else {
		planar.Convert8To10(layout.YPlane(out.Pixels), yData, width, height, int(frame.Linesize[0]))
		planar.Convert8To10(layout.UPlane(out.Pixels), uData, width/2, height/2, int(frame.Linesize[1]))
		planar.Convert8To10(layout.VPlane(out.Pixels), vData, width/2, height/2, int(frame.Linesize[2]))
	}

	return out, nil
}
