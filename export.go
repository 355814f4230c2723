// Package export is the public SDK surface for the video export pipeline.
//
// Export is an opinionated staged pipeline: it decodes a screen recording,
// composites wallpaper/crop/zoom/camera-overlay/border effects frame
// by frame across a worker pool, re-encodes the result, mixes in any audio
// inputs, and muxes the final container, reporting progress throughout.
//
// Basic usage:
//
//	job, err := export.New("recording.mkv", "out.mp4", export.Target{
//	    Width: 1920, Height: 1080, FrameRate: 30,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	summary, err := job.Run(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("wrote %s (%d bytes)\n", summary.OutputPath, summary.OutputBytes)
package export

import (
	"context"
	"fmt"
	"sync"

	"github.com/clipforge/exporter/internal/config"
	"github.com/clipforge/exporter/internal/exporter"
	"github.com/clipforge/exporter/internal/reporter"
)

// Re-exported config types so callers never need to import internal/config.
type (
	Format          = config.Format
	Target          = config.Target
	TrimRegion      = config.TrimRegion
	AudioInput      = config.AudioInput
	CameraPipConfig = config.CameraPipConfig
	RenderPlan      = config.RenderPlan
	ZoomRegion      = config.ZoomRegion
	CropRegion      = config.CropRegion
)

const (
	FormatMP4 = config.FormatMP4
	FormatGIF = config.FormatGIF
)

// Re-exported reporter types for callers that want full access to progress
// events rather than the simplified EventHandler below.
type (
	Reporter          = reporter.Reporter
	Phase             = reporter.Phase
	FrameProgress     = reporter.FrameProgress
	ValidationSummary = reporter.ValidationSummary
	ExportOutcome     = reporter.ExportOutcome
)

// Summary is the result of a completed export.
type Summary = exporter.Summary

// Option configures an export job's plan.
type Option func(*config.ExportPlan)

// WithFormat sets the output container format (default mp4).
func WithFormat(f Format) Option {
	return func(p *config.ExportPlan) { p.Format = f }
}

// WithTrimRegions sets the source-timeline spans to cut from the export.
func WithTrimRegions(regions []TrimRegion) Option {
	return func(p *config.ExportPlan) { p.TrimRegions = regions }
}

// WithAudioInput adds one mixed-in audio source with its gain.
func WithAudioInput(input AudioInput) Option {
	return func(p *config.ExportPlan) { p.AudioInputs = append(p.AudioInputs, input) }
}

// WithCameraPip enables a picture-in-picture camera overlay.
func WithCameraPip(cfg CameraPipConfig) Option {
	return func(p *config.ExportPlan) {
		cfgCopy := cfg
		p.CameraPip = &cfgCopy
	}
}

// WithRenderPlan replaces the default render plan (wallpaper, crop, zoom
// regions, shadow/blur, border radius, padding, annotations).
func WithRenderPlan(rp RenderPlan) Option {
	return func(p *config.ExportPlan) { p.RenderPlan = rp }
}

// WithParallelRendering sets the plan's ParallelRendering field. The
// exporter does not read that field: whatever this setting is, the
// coordinator starts the parallel render worker pool and falls back to
// single-threaded rendering only if worker initialization fails.
func WithParallelRendering(enabled bool) Option {
	return func(p *config.ExportPlan) { p.ParallelRendering = enabled }
}

// WithRenderWorkers overrides the render worker pool size.
func WithRenderWorkers(n int) Option {
	return func(p *config.ExportPlan) { p.RenderWorkers = n }
}

// WithWorkerErrorThreshold overrides the render worker error count at which
// the coordinator aborts the export (1 aborts on the first error).
func WithWorkerErrorThreshold(n int) Option {
	return func(p *config.ExportPlan) { p.WorkerErrorThreshold = n }
}

// Job is one configured, not-yet-run export. Not safe for concurrent Run
// calls on the same Job; create a new Job per export attempt.
type Job struct {
	plan *config.ExportPlan

	mu      sync.Mutex
	running *exporter.Exporter
}

// New builds a Job for videoURL -> outputPath at the given target stream
// parameters, applying opts. Returns an error immediately if the resulting
// plan fails validation, so configuration mistakes surface before any
// pipeline component is created.
func New(videoURL, outputPath string, target Target, opts ...Option) (*Job, error) {
	plan := config.NewExportPlan(videoURL, outputPath, target)
	for _, opt := range opts {
		opt(plan)
	}
	plan.Normalize()
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid export plan: %w", err)
	}
	return &Job{plan: plan}, nil
}

// Run executes the export, reporting progress to rep (a no-op reporter is
// used if rep is nil). It blocks until the export completes, fails, or ctx
// is cancelled.
func (j *Job) Run(ctx context.Context, rep Reporter) (*Summary, error) {
	ex := exporter.New(j.plan, rep)
	j.mu.Lock()
	j.running = ex
	j.mu.Unlock()
	defer func() {
		j.mu.Lock()
		j.running = nil
		j.mu.Unlock()
	}()
	return ex.Run(ctx)
}

// RunWithHandler executes the export using the simplified EventHandler
// callback surface in place of a full Reporter implementation.
func (j *Job) RunWithHandler(ctx context.Context, handler EventHandler) (*Summary, error) {
	var rep Reporter = reporter.NullReporter{}
	if handler != nil {
		rep = newEventReporter(handler)
	}
	return j.Run(ctx, rep)
}

// Abort requests cancellation of the in-progress Run call, if any. Safe to
// call at any time, including before Run starts or after it finishes, in
// which case it is a no-op.
func (j *Job) Abort() {
	j.mu.Lock()
	ex := j.running
	j.mu.Unlock()
	if ex != nil {
		ex.Abort()
	}
}

// Phase returns the current pipeline phase, or PhaseIdle if Run has not
// been called yet.
func (j *Job) Phase() Phase {
	j.mu.Lock()
	ex := j.running
	j.mu.Unlock()
	if ex == nil {
		return reporter.PhaseIdle
	}
	return ex.Phase()
}

// EventHandler is a simplified progress callback surface for consumers
// that don't want the full Reporter interface (e.g. a GUI progress bar
// that only cares about phase changes and frame counts).
type EventHandler interface {
	OnPhaseChanged(phase Phase)
	OnFrameProgress(progress FrameProgress)
	OnWarning(message string)
	OnValidationComplete(summary ValidationSummary)
	OnComplete(outcome ExportOutcome)
	OnError(kind, message string)
}

// eventReporter adapts an EventHandler to the full Reporter interface,
// forwarding the events EventHandler cares about and discarding the rest.
type eventReporter struct {
	reporter.NullReporter
	handler EventHandler
}

func newEventReporter(handler EventHandler) *eventReporter {
	return &eventReporter{handler: handler}
}

func (r *eventReporter) PhaseChanged(phase Phase)           { r.handler.OnPhaseChanged(phase) }
func (r *eventReporter) FrameProgress(p FrameProgress)      { r.handler.OnFrameProgress(p) }
func (r *eventReporter) Warning(message string)             { r.handler.OnWarning(message) }
func (r *eventReporter) ValidationComplete(s ValidationSummary) {
	r.handler.OnValidationComplete(s)
}
func (r *eventReporter) ExportComplete(o ExportOutcome) { r.handler.OnComplete(o) }
func (r *eventReporter) Error(e reporter.ReporterError) {
	r.handler.OnError(e.Kind, e.Message)
}
