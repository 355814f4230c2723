// Package config provides the export plan types and defaults for the
// export pipeline.
package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/clipforge/exporter/internal/util"
)

// Default constants, named and bounded the way the donor names its SVT-AV1
// defaults.
const (
	// DefaultMaxPendingDecodes bounds the VideoDecoder's pending queue.
	DefaultMaxPendingDecodes int = 8

	// DefaultFrameBufferSize bounds the FrameBuffer's population.
	DefaultFrameBufferSize int = 16

	// DefaultReassemblerMaxBuffer bounds the FrameReassembler's out-of-order holding area.
	DefaultReassemblerMaxBuffer int = 32

	// DefaultSeekTimeout bounds a single fallback FrameSource seek.
	DefaultSeekTimeout = 5 * time.Second

	// DefaultWorkerInitTimeout bounds render worker startup before fallback.
	DefaultWorkerInitTimeout = 10 * time.Second

	// DefaultWorkerShutdownTimeout bounds graceful worker shutdown before force-terminate.
	DefaultWorkerShutdownTimeout = 5 * time.Second

	// MinFrameRate and MaxFrameRate bound Target.FrameRate.
	MinFrameRate = 15
	MaxFrameRate = 60

	// DefaultWorkerErrorThreshold is the WorkerRenderError count at which the
	// export aborts; 1 means any single error aborts.
	DefaultWorkerErrorThreshold = 1

	// estimatedFrameBytes is a 1080p 10-bit 4:2:0 frame's packed size, used
	// only to size the encode queue default before the real source
	// resolution is known from probing.
	estimatedFrameBytes = 1920 * 1080 * 2 * 3 / 2
)

// DefaultRenderWorkers and DefaultEncodeQueueSize are sized from host
// capacity at startup rather than fixed, the way the donor sizes its
// SVT-AV1 worker/chunk counts off detected cores and memory
// (internal/util.PhysicalCores, internal/util.MaxPermitsForMemory).
var (
	// DefaultRenderWorkers is the render worker pool size, one per
	// physical core, clamped to a sane range for machines with very few
	// or very many cores.
	DefaultRenderWorkers = clamp(util.PhysicalCores(), 2, 8)

	// DefaultEncodeQueueSize bounds the EncodeQueue's outstanding depth,
	// sized to use at most half of available memory for in-flight frames.
	DefaultEncodeQueueSize = clamp(util.MaxPermitsForMemory(estimatedFrameBytes, 0.5), 2, 16)
)

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// PipPosition is a corner of the output frame for camera PiP placement.
type PipPosition string

const (
	PipTopLeft     PipPosition = "TL"
	PipTopRight    PipPosition = "TR"
	PipBottomLeft  PipPosition = "BL"
	PipBottomRight PipPosition = "BR"
)

// PipSize is a named camera PiP size as a percentage of output width.
type PipSize string

const (
	PipSizeSmall  PipSize = "small"
	PipSizeMedium PipSize = "medium"
	PipSizeLarge  PipSize = "large"
)

// Percent returns the size as a percentage of output width.
func (s PipSize) Percent() float64 {
	switch s {
	case PipSizeSmall:
		return 15
	case PipSizeMedium:
		return 22
	case PipSizeLarge:
		return 30
	default:
		return 22
	}
}

// PipShape controls clipping of the camera PiP overlay.
type PipShape string

const (
	PipShapeRoundedRect PipShape = "rounded-rect"
	PipShapeRectangle   PipShape = "rectangle"
	PipShapeSquare      PipShape = "square"
	PipShapeCircle      PipShape = "circle"
)

// Format is the output container family.
type Format string

const (
	FormatMP4 Format = "mp4"
	FormatGIF Format = "gif"
)

// TrimRegion is a half-open [start_ms, end_ms) interval on the source timeline.
type TrimRegion struct {
	StartMS int64 `json:"start_ms"`
	EndMS   int64 `json:"end_ms"`
}

// AudioInput is one mixed-in audio source with its gain.
type AudioInput struct {
	URL  string  `json:"url"`
	Gain float64 `json:"gain"` // 0.0-2.0
}

// Target describes the desired output stream parameters.
type Target struct {
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FrameRate    int    `json:"frame_rate"`
	VideoCodec   string `json:"video_codec,omitempty"`
	VideoBitrate int    `json:"video_bitrate,omitempty"`
	AudioCodec   string `json:"audio_codec,omitempty"`
	AudioBitrate int    `json:"audio_bitrate,omitempty"`
	Container    Format `json:"container,omitempty"`
}

// EasingFunction names a zoom-region interpolation curve, carried from
// original_source/'s editor config (not present in the distilled spec).
type EasingFunction string

const (
	EasingLinear    EasingFunction = "linear"
	EasingEaseIn    EasingFunction = "ease-in"
	EasingEaseOut   EasingFunction = "ease-out"
	EasingEaseInOut EasingFunction = "ease-in-out"
)

// ZoomRegion describes one zoom-in/zoom-out segment of the timeline.
type ZoomRegion struct {
	StartMS    int64          `json:"start_ms"`
	EndMS      int64          `json:"end_ms"`
	ScaleStart float64        `json:"scale_start"`
	ScaleEnd   float64        `json:"scale_end"`
	FocusX     float64        `json:"focus_x"` // 0.0-1.0, fraction of source width
	FocusY     float64        `json:"focus_y"` // 0.0-1.0, fraction of source height
	Easing     EasingFunction `json:"easing,omitempty"`
}

// CropRegion is a fixed crop window applied before scaling to output size.
type CropRegion struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Annotation is a timed overlay (text, arrow, highlight) carried on the
// RenderPlan; the render workers do not draw annotations.
type Annotation struct {
	StartMS int64             `json:"start_ms"`
	EndMS   int64             `json:"end_ms"`
	Kind    string            `json:"kind"`
	Payload map[string]string `json:"payload,omitempty"`
}

// CameraPipConfig configures the optional camera picture-in-picture overlay.
type CameraPipConfig struct {
	Enabled         bool        `json:"enabled"`
	CameraURL       string      `json:"camera_url"`
	Position        PipPosition `json:"position"`
	Size            PipSize     `json:"size"`
	Shape           PipShape    `json:"shape"`
	BorderRadiusPct int         `json:"border_radius_pct"` // 0-50, used by rounded-rect and square/rectangle shapes
}

// RenderPlan is the immutable per-export configuration shared by all renderers.
type RenderPlan struct {
	OutputWidth  int `json:"output_width"`
	OutputHeight int `json:"output_height"`

	WallpaperPath string `json:"wallpaper_path,omitempty"`

	ZoomRegions []ZoomRegion `json:"zoom_regions,omitempty"`

	ShadowIntensity float64 `json:"shadow_intensity,omitempty"`
	BlurBackground  bool    `json:"blur_background,omitempty"`
	MotionBlur      bool    `json:"motion_blur,omitempty"`
	// MotionBlurSamples is the sample count used to approximate motion blur
	// when MotionBlur is enabled; carried from original_source/.
	MotionBlurSamples int `json:"motion_blur_samples,omitempty"`
	// BackgroundBlurRadius is a blur radius distinct from the foreground
	// shadow blur, applied to the wallpaper/background layer; carried from
	// original_source/.
	BackgroundBlurRadius int `json:"background_blur_radius,omitempty"`

	BorderRadiusPct int     `json:"border_radius_pct,omitempty"`
	PaddingPct      float64 `json:"padding_pct,omitempty"`

	Crop CropRegion `json:"crop,omitempty"`

	Annotations []Annotation `json:"annotations,omitempty"`

	SourceWidth  int `json:"source_width,omitempty"`
	SourceHeight int `json:"source_height,omitempty"`

	CameraPip *CameraPipConfig `json:"camera_pip,omitempty"`
}

// ExportPlan is the complete top-level description of one export job.
type ExportPlan struct {
	VideoURL    string       `json:"video_url"`
	AudioInputs []AudioInput `json:"audio_inputs,omitempty"`
	OutputPath  string       `json:"output_path"`
	Format      Format       `json:"format,omitempty"`

	Target Target `json:"target"`

	RenderPlan RenderPlan `json:"render_plan,omitempty"`

	TrimRegions []TrimRegion `json:"trim_regions,omitempty"`

	CameraPip *CameraPipConfig `json:"camera_pip,omitempty"`

	// ParallelRendering is carried on the plan (true by default) but is not
	// read by the exporter: the render coordinator always starts the
	// parallel worker pool and falls back to single-threaded rendering only
	// when worker init fails.
	ParallelRendering bool `json:"parallel_rendering,omitempty"`

	// Pipeline bounds; zero values are replaced by package defaults in
	// Normalize.
	MaxPendingDecodes    int `json:"max_pending_decodes,omitempty"`
	FrameBufferSize      int `json:"frame_buffer_size,omitempty"`
	EncodeQueueSize      int `json:"encode_queue_size,omitempty"`
	ReassemblerMaxBuffer int `json:"reassembler_max_buffer,omitempty"`
	RenderWorkers        int `json:"render_workers,omitempty"`
	WorkerErrorThreshold int `json:"worker_error_threshold,omitempty"`
}

// NewExportPlan returns an ExportPlan with every bound set to its package
// default and ParallelRendering enabled, matching spec §6's default config
// object.
func NewExportPlan(videoURL, outputPath string, target Target) *ExportPlan {
	return &ExportPlan{
		VideoURL:             videoURL,
		OutputPath:           outputPath,
		Format:               FormatMP4,
		Target:               target,
		ParallelRendering:    true,
		MaxPendingDecodes:    DefaultMaxPendingDecodes,
		FrameBufferSize:      DefaultFrameBufferSize,
		EncodeQueueSize:      DefaultEncodeQueueSize,
		ReassemblerMaxBuffer: DefaultReassemblerMaxBuffer,
		RenderWorkers:        DefaultRenderWorkers,
		WorkerErrorThreshold: DefaultWorkerErrorThreshold,
	}
}

// Normalize fills any zero-valued bound with its package default. Call
// before Validate so partially-constructed plans (e.g. from JSON, where
// omitted fields decode to zero) still validate against real bounds.
func (p *ExportPlan) Normalize() {
	if p.MaxPendingDecodes == 0 {
		p.MaxPendingDecodes = DefaultMaxPendingDecodes
	}
	if p.FrameBufferSize == 0 {
		p.FrameBufferSize = DefaultFrameBufferSize
	}
	if p.EncodeQueueSize == 0 {
		p.EncodeQueueSize = DefaultEncodeQueueSize
	}
	if p.ReassemblerMaxBuffer == 0 {
		p.ReassemblerMaxBuffer = DefaultReassemblerMaxBuffer
	}
	if p.RenderWorkers == 0 {
		p.RenderWorkers = DefaultRenderWorkers
	}
	if p.WorkerErrorThreshold == 0 {
		p.WorkerErrorThreshold = DefaultWorkerErrorThreshold
	}
}

// Validate checks the plan for internal consistency.
func (p *ExportPlan) Validate() error {
	if p.VideoURL == "" {
		return ErrMissingVideoURL
	}
	if p.OutputPath == "" {
		return fmt.Errorf("output_path is required")
	}
	if p.Format != FormatMP4 && p.Format != FormatGIF {
		return fmt.Errorf("format must be mp4 or gif, got %q", p.Format)
	}

	if p.Target.FrameRate < MinFrameRate || p.Target.FrameRate > MaxFrameRate {
		return fmt.Errorf("%w: target.frame_rate must be %d-%d, got %d", ErrInvalidFrameRate, MinFrameRate, MaxFrameRate, p.Target.FrameRate)
	}
	if p.Target.Width <= 0 || p.Target.Height <= 0 {
		return fmt.Errorf("target width/height must be positive, got %dx%d", p.Target.Width, p.Target.Height)
	}

	for _, a := range p.AudioInputs {
		if a.Gain < 0.0 || a.Gain > 2.0 {
			return fmt.Errorf("%w: must be 0.0-2.0, got %g for %s", ErrInvalidGain, a.Gain, a.URL)
		}
	}

	sorted := append([]TrimRegion(nil), p.TrimRegions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartMS < sorted[j].StartMS })
	for i, t := range sorted {
		if t.StartMS >= t.EndMS {
			return fmt.Errorf("trim_regions[%d]: start_ms must be < end_ms", i)
		}
		if i > 0 && t.StartMS < sorted[i-1].EndMS {
			return fmt.Errorf("trim_regions[%d]: overlaps previous region: %w", i, ErrOverlappingTrims)
		}
	}

	if p.MaxPendingDecodes < 1 {
		return fmt.Errorf("max_pending_decodes must be at least 1, got %d", p.MaxPendingDecodes)
	}
	if p.FrameBufferSize < 1 {
		return fmt.Errorf("frame_buffer_size must be at least 1, got %d", p.FrameBufferSize)
	}
	if p.EncodeQueueSize < 1 {
		return fmt.Errorf("encode_queue_size must be at least 1, got %d", p.EncodeQueueSize)
	}
	if p.ReassemblerMaxBuffer < 1 {
		return fmt.Errorf("reassembler_max_buffer must be at least 1, got %d", p.ReassemblerMaxBuffer)
	}
	if p.RenderWorkers < 1 {
		return fmt.Errorf("render_workers must be at least 1, got %d", p.RenderWorkers)
	}

	if cam := p.CameraPip; cam != nil && cam.Enabled {
		if cam.CameraURL == "" {
			return fmt.Errorf("camera_pip.camera_url is required when enabled")
		}
		if cam.BorderRadiusPct < 0 || cam.BorderRadiusPct > 50 {
			return fmt.Errorf("camera_pip.border_radius_pct must be 0-50, got %d", cam.BorderRadiusPct)
		}
	}

	return nil
}
