// Package reporter provides progress and event reporting for an export run.
package reporter

import "time"

// Phase is one state of the Exporter's state machine.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseInitializing Phase = "initializing"
	PhaseDecoding     Phase = "decoding"
	PhaseRendering    Phase = "rendering"
	PhaseEncoding     Phase = "encoding"
	PhaseFinalizing   Phase = "finalizing"
	PhaseDone         Phase = "done"
	PhaseFailed       Phase = "failed"
)

// RenderMode reports which FrameSource/RenderCoordinator backend is active.
type RenderMode string

const (
	ModeParallel RenderMode = "parallel"
	ModeFallback RenderMode = "fallback"
)

// HardwareSummary contains host information, printed once at startup.
type HardwareSummary struct {
	Hostname string
	CPUCores int
}

// InitializationSummary describes the resolved export job before work starts.
type InitializationSummary struct {
	InputFile     string
	OutputFile    string
	SourceDuration time.Duration
	SourceRes     string
	TargetRes     string
	FrameRate     int
	FrameCount    int
	AudioTracks   int
}

// StageProgress is a free-form status line for sub-stages that do not have
// a frame-count progress (probing, indexing, muxing).
type StageProgress struct {
	Stage   string
	Message string
}

// FrameProgress reports pipeline progress keyed on frame count, matching
// spec §6's progress channel.
type FrameProgress struct {
	Phase        Phase
	CurrentFrame int
	TotalFrames  int
	Mode         RenderMode
	FPS          float64
	Speed        float64
	ETA          time.Duration
}

// Percent returns progress as 0-100, clamped.
func (p FrameProgress) Percent() float64 {
	if p.TotalFrames <= 0 {
		return 0
	}
	pct := float64(p.CurrentFrame) / float64(p.TotalFrames) * 100
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// FallbackStats reports the prefetch-fallback FrameSource's hit rate.
type FallbackStats struct {
	Seeks   int
	Hits    int
	Misses  int
	HitRate float64
}

// CameraPipStats reports camera overlay compositing activity.
type CameraPipStats struct {
	FramesComposited int
	FramesSkipped    int // camera shorter than screen recording
}

// ValidationStep is a single post-export validation check.
type ValidationStep struct {
	Name    string
	Passed  bool
	Details string
}

// ValidationSummary is the full post-export validation result (spec §4.13).
type ValidationSummary struct {
	Passed         bool
	Steps          []ValidationStep
	QualityScore   float64 // SSIMULACRA2, 0 when unavailable
	QualityScored  bool
}

// ExportOutcome is the final summary of a completed export.
type ExportOutcome struct {
	OutputPath   string
	OutputBytes  uint64
	InputBytes   uint64 // 0 when the source recording's size could not be read
	Duration     time.Duration
	FrameCount   int
	Mode         RenderMode
	AverageSpeed float64
}

// ReporterError carries a fatal or non-fatal error event, tagged with its
// ErrorKind label (matching internal/errors.ErrorKind.String()).
type ReporterError struct {
	Kind       string
	Title      string
	Message    string
	Context    string
	Suggestion string
	Fatal      bool
}
