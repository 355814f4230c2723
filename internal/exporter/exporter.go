// Package exporter is the top-level orchestrator: it owns every pipeline
// component for one export, drives the per-frame decode/render/encode
// loop, and reports progress through a reporter.Reporter. Grounded on the
// donor's internal/processing.ProcessVideos orchestration shape (resolve
// input, emit Initialization, run the work, emit ExportComplete) and
// internal/chunk/dispatcher.go's error-aggregation-then-abort discipline,
// retargeted from "batch-encode a list of files" to "drive one staged,
// backpressured export to completion."
package exporter

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/exporter/internal/audio"
	"github.com/clipforge/exporter/internal/camerapip"
	"github.com/clipforge/exporter/internal/config"
	coreerrors "github.com/clipforge/exporter/internal/errors"
	"github.com/clipforge/exporter/internal/encodequeue"
	"github.com/clipforge/exporter/internal/framesource"
	"github.com/clipforge/exporter/internal/mux"
	"github.com/clipforge/exporter/internal/planar"
	"github.com/clipforge/exporter/internal/reassemble"
	"github.com/clipforge/exporter/internal/render"
	"github.com/clipforge/exporter/internal/reporter"
	"github.com/clipforge/exporter/internal/trim"
	"github.com/clipforge/exporter/internal/util"
	"github.com/clipforge/exporter/internal/validate"
	"github.com/clipforge/exporter/internal/videoencoder"
)

// Summary is the final result of a completed (or failed) export.
type Summary struct {
	RunID       string
	OutputPath  string
	OutputBytes int64
	InputBytes  int64 // 0 when the source recording's size could not be read
	Duration    time.Duration
	FrameCount  int
	Mode        render.Mode
	Validation  *validate.Result
}

// Exporter drives one ExportPlan end to end. Not safe for concurrent Run
// calls; Abort may be called concurrently with Run from another goroutine.
type Exporter struct {
	plan *config.ExportPlan
	rep  reporter.Reporter

	mu        sync.Mutex
	phase     reporter.Phase
	cancel    context.CancelFunc
	abortOnce sync.Once
	aborted   bool

	startedAt time.Time
}

// New creates an Exporter for plan, reporting progress to rep (a
// reporter.NullReporter is used if rep is nil).
func New(plan *config.ExportPlan, rep reporter.Reporter) *Exporter {
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	return &Exporter{plan: plan, rep: rep, phase: reporter.PhaseIdle}
}

// Phase returns the current state-machine phase.
func (e *Exporter) Phase() reporter.Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Abort requests cancellation. Idempotent; safe from any state.
func (e *Exporter) Abort() {
	e.abortOnce.Do(func() {
		e.mu.Lock()
		e.aborted = true
		cancel := e.cancel
		e.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})
}

func (e *Exporter) setPhase(p reporter.Phase) {
	e.mu.Lock()
	e.phase = p
	e.mu.Unlock()
	e.rep.PhaseChanged(p)
}

// Run executes the full export pipeline: initialize components, decode and
// render every frame, encode and mux, validate the result, and tear down.
// Teardown always runs, in reverse creation order, whether Run returns a
// result or an error.
func (e *Exporter) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.New().String()
	e.startedAt = time.Now()
	e.setPhase(reporter.PhaseInitializing)

	if err := e.plan.Validate(); err != nil {
		e.setPhase(reporter.PhaseFailed)
		return nil, err
	}
	e.plan.Normalize()

	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	aborted := e.aborted
	e.mu.Unlock()
	if aborted {
		cancel()
	}
	defer cancel()

	teardown := newTeardownStack()
	defer teardown.runAll()

	mapper := trim.NewMapper(e.plan.TrimRegions)

	source, initRes, err := framesource.New(runCtx, e.plan.VideoURL, float64(e.plan.Target.FrameRate), mapper,
		e.plan.MaxPendingDecodes, e.plan.FrameBufferSize)
	if err != nil {
		e.setPhase(reporter.PhaseFailed)
		return nil, err
	}
	teardown.push(source.Close)

	totalFrames := int(math.Ceil(float64(initRes.EffectiveDuration) / 1000 * float64(e.plan.Target.FrameRate)))

	sysInfo := util.GetSystemInfo()
	e.rep.Hardware(reporter.HardwareSummary{
		Hostname: sysInfo.Hostname,
		CPUCores: sysInfo.NumCPU,
	})

	e.rep.Initialization(reporter.InitializationSummary{
		InputFile:      e.plan.VideoURL,
		OutputFile:     e.plan.OutputPath,
		SourceDuration: time.Duration(initRes.EffectiveDuration) * time.Millisecond,
		SourceRes:      fmt.Sprintf("%dx%d", initRes.Width, initRes.Height),
		TargetRes:      fmt.Sprintf("%dx%d", e.plan.Target.Width, e.plan.Target.Height),
		FrameRate:      e.plan.Target.FrameRate,
		FrameCount:     totalFrames,
		AudioTracks:    len(e.plan.AudioInputs),
	})

	var camera *camerapip.Compositor
	if e.plan.CameraPip != nil && e.plan.CameraPip.Enabled {
		adapter := &cameraSourceAdapter{frameRate: float64(e.plan.Target.FrameRate)}
		camera = camerapip.New(*e.plan.CameraPip, adapter)
		if err := camera.Initialize(runCtx); err != nil {
			// camerapip.Initialize never actually returns a non-nil error
			// (it swallows source failures into IsReady()==false); handled
			// defensively in case that contract changes.
			e.rep.Warning(fmt.Sprintf("camera overlay disabled: %v", err))
		}
	}

	coordinator := render.NewCoordinator(e.plan.RenderPlan, render.NewDefaultRenderer, e.plan.RenderWorkers, e.plan.WorkerErrorThreshold)
	mode, err := coordinator.Initialize(runCtx)
	if err != nil {
		e.setPhase(reporter.PhaseFailed)
		return nil, coreerrors.Wrap(coreerrors.KindWorkerInit, "render pool failed to initialize", err)
	}
	teardown.push(coordinator.Terminate)

	outputDir := filepath.Dir(e.plan.OutputPath)
	if err := util.EnsureDirectoryWritable(outputDir); err != nil {
		e.setPhase(reporter.PhaseFailed)
		return nil, coreerrors.Wrap(coreerrors.KindEncoder, "output directory is not writable", err)
	}
	util.CheckDiskSpace(outputDir, func(format string, args ...any) {
		e.rep.Warning(fmt.Sprintf(format, args...))
	})
	tempDir, err := util.CreateTempDir(outputDir, "exporter-"+runID[:8])
	if err != nil {
		e.setPhase(reporter.PhaseFailed)
		return nil, coreerrors.Wrap(coreerrors.KindEncoder, "failed to create temp directory", err)
	}
	teardown.push(func() { _ = tempDir.Cleanup() })

	videoTempPath := filepath.Join(tempDir.Path(), "video.mp4")
	videoEnc := videoencoder.New(e.plan.Target)
	if err := videoEnc.Start(runCtx, videoTempPath, nil); err != nil {
		e.setPhase(reporter.PhaseFailed)
		return nil, err
	}
	teardown.push(func() { videoEnc.Abort() })

	reassembler := reassemble.New(e.plan.ReassemblerMaxBuffer)
	encQueue := encodequeue.New(e.plan.EncodeQueueSize)

	var pipelineErr error
	var pipelineErrOnce sync.Once
	fail := func(err error) {
		pipelineErrOnce.Do(func() {
			pipelineErr = err
			cancel()
		})
	}

	emitted := 0
	camStats := reporter.CameraPipStats{}
	emit := func(frame *planar.Frame, index int64) {
		tMS := index * 1000 / int64(e.plan.Target.FrameRate)
		if camera != nil {
			if camera.IsReady() {
				if err := camera.Render(runCtx, frame, tMS); err != nil {
					camStats.FramesSkipped++
				} else {
					camStats.FramesComposited++
				}
			} else {
				camStats.FramesSkipped++
			}
		}

		encQueue.WaitForSpace()
		encQueue.Increment()
		err := videoEnc.SubmitFrame(frame)
		encQueue.OnChunkOutput()
		planar.Release(frame)
		if err != nil {
			fail(err)
			return
		}

		emitted++
		e.rep.FrameProgress(reporter.FrameProgress{
			Phase:        reporter.PhaseEncoding,
			CurrentFrame: emitted,
			TotalFrames:  totalFrames,
			Mode:         reporter.RenderMode(mode),
		})
	}

	coordinator.SetOutputSink(func(res render.Result) {
		if res.Err != nil {
			fail(coreerrors.Wrap(coreerrors.KindWorkerRender, "render worker failed", res.Err))
			return
		}
		ready, err := reassembler.Add(res.FrameIndex, res.Frame)
		if err != nil {
			fail(err)
			return
		}
		// ready[0] is always the frame at res.FrameIndex (the index that
		// just became nextExpected); any further entries are the
		// contiguously buffered frames immediately following it.
		for i, f := range ready {
			emit(f, res.FrameIndex+int64(i))
		}
	})

	e.setPhase(reporter.PhaseDecoding)
decodeLoop:
	for frameIdx := 0; frameIdx < totalFrames; frameIdx++ {
		if runCtx.Err() != nil {
			break decodeLoop
		}
		effectiveMS := int64(frameIdx) * 1000 / int64(e.plan.Target.FrameRate)
		frame, err := source.GetFrame(runCtx, int64(frameIdx), effectiveMS)
		if err != nil {
			fail(coreerrors.Wrap(coreerrors.KindDecoder, "frame source failed", err))
			break decodeLoop
		}
		e.setPhase(reporter.PhaseRendering)
		if err := coordinator.RenderFrame(runCtx, frame, effectiveMS); err != nil {
			fail(err)
			break decodeLoop
		}
	}

	coordinator.WaitForPending()
	coordinator.Shutdown()

	// Anything still buffered here means a gap in the index sequence never
	// closed (a dropped worker frame past the error threshold, or an
	// early abort). There is no safe index to resume encoding at, so these
	// frames are released unencoded rather than risk corrupting frame
	// order in the output.
	if stranded := reassembler.Flush(); len(stranded) > 0 {
		e.rep.Warning(fmt.Sprintf("dropped %d frame(s) stranded by a gap in render output", len(stranded)))
		for _, f := range stranded {
			planar.Release(f)
		}
	}

	if camera != nil {
		e.rep.CameraPipStats(camStats)
	}

	if pipelineErr != nil {
		videoEnc.Abort()
		e.setPhase(reporter.PhaseFailed)
		return nil, pipelineErr
	}
	if runCtx.Err() != nil {
		videoEnc.Abort()
		e.setPhase(reporter.PhaseFailed)
		return nil, coreerrors.NewCancelledError()
	}

	if err := videoEnc.Finish(); err != nil {
		e.setPhase(reporter.PhaseFailed)
		return nil, err
	}

	e.setPhase(reporter.PhaseEncoding)
	audioTempPath, err := e.processAudio(runCtx, mapper, initRes.EffectiveDuration, tempDir.Path())
	if err != nil {
		e.setPhase(reporter.PhaseFailed)
		return nil, err
	}

	e.setPhase(reporter.PhaseFinalizing)
	muxFormat := mux.FormatMP4
	if e.plan.Format == config.FormatGIF {
		muxFormat = mux.FormatGIF
	}
	result, err := mux.New().Mux(runCtx, videoTempPath, audioTempPath, e.plan.OutputPath, muxFormat)
	if err != nil {
		e.setPhase(reporter.PhaseFailed)
		return nil, err
	}

	validation, err := validate.ValidateOutput(runCtx, e.plan.OutputPath, validate.Options{
		ExpectedWidth:       e.plan.Target.Width,
		ExpectedHeight:      e.plan.Target.Height,
		ExpectedDurationS:   float64(initRes.EffectiveDuration) / 1000,
		ExpectedAudioTracks: len(e.plan.AudioInputs),
	})
	if err != nil {
		e.setPhase(reporter.PhaseFailed)
		return nil, err
	}
	e.rep.ValidationComplete(reporter.ValidationSummary{
		Passed:        validation.IsValid(),
		QualityScore:  derefOr(validation.QualityScore, 0),
		QualityScored: validation.QualityScore != nil,
	})

	e.setPhase(reporter.PhaseDone)
	var inputBytes int64
	if fi, err := os.Stat(e.plan.VideoURL); err == nil {
		inputBytes = fi.Size()
	}
	summary := &Summary{
		RunID:       runID,
		OutputPath:  result.Path,
		OutputBytes: result.SizeBytes,
		InputBytes:  inputBytes,
		Duration:    time.Since(e.startedAt),
		FrameCount:  totalFrames,
		Mode:        mode,
		Validation:  validation,
	}
	e.rep.ExportComplete(reporter.ExportOutcome{
		OutputPath:  result.Path,
		OutputBytes: uint64(result.SizeBytes),
		InputBytes:  uint64(inputBytes),
		Duration:    summary.Duration,
		FrameCount:  totalFrames,
		Mode:        reporter.RenderMode(mode),
	})
	return summary, nil
}

func derefOr(f *float64, def float64) float64 {
	if f == nil {
		return def
	}
	return *f
}

// processAudio extracts each audio input's effective-timeline range
// (respecting trims), mixes them with per-input gain, and encodes the
// result to a temp file. Returns "" if there are no audio inputs.
func (e *Exporter) processAudio(ctx context.Context, mapper *trim.Mapper, effectiveDurationMS int64, tempDir string) (string, error) {
	if len(e.plan.AudioInputs) == 0 {
		return "", nil
	}

	var buffers [][]float32
	var gains []float64
	sampleRate, channels := 48000, 2

	for _, input := range e.plan.AudioInputs {
		dec := audio.NewDecoder(input.URL)
		info, err := dec.Load(ctx)
		if err != nil {
			return "", coreerrors.Wrap(coreerrors.KindEncoder, "failed to load audio input "+input.URL, err)
		}
		sampleRate, channels = info.SampleRate, info.Channels

		pcm, err := extractEffectiveAudio(ctx, dec, mapper, int64(info.DurationS*1000))
		if err != nil {
			return "", err
		}
		buffers = append(buffers, pcm)
		gains = append(gains, input.Gain)
	}

	mixed, err := audio.NewMixer().Mix(buffers, gains)
	if err != nil {
		return "", coreerrors.Wrap(coreerrors.KindEncoder, "failed to mix audio inputs", err)
	}

	outPath := filepath.Join(tempDir, "audio.m4a")
	codec := e.plan.Target.AudioCodec
	if codec == "" {
		codec = "aac"
	}
	bitrate := e.plan.Target.AudioBitrate
	if bitrate == 0 {
		bitrate = 128_000
	}
	enc := audio.NewEncoder(codec, bitrate, sampleRate, channels)
	if err := enc.EncodeToFile(ctx, mixed, outPath); err != nil {
		return "", err
	}
	return outPath, nil
}

// extractEffectiveAudio walks the complement of mapper's trim regions
// (the source-timeline spans that survive into the effective timeline)
// and concatenates each span's decoded PCM, so the audio track lines up
// with the video frames the same trims already removed.
func extractEffectiveAudio(ctx context.Context, dec *audio.Decoder, mapper *trim.Mapper, sourceDurationMS int64) ([]float32, error) {
	var out []float32
	cursor := int64(0)
	for _, region := range mapper.Regions() {
		if region.StartMS > cursor {
			chunk, err := dec.Extract(ctx, cursor, region.StartMS)
			if err != nil {
				return nil, coreerrors.Wrap(coreerrors.KindEncoder, "failed to extract audio range", err)
			}
			out = append(out, chunk...)
		}
		if region.EndMS > cursor {
			cursor = region.EndMS
		}
	}
	if cursor < sourceDurationMS {
		chunk, err := dec.Extract(ctx, cursor, sourceDurationMS)
		if err != nil {
			return nil, coreerrors.Wrap(coreerrors.KindEncoder, "failed to extract trailing audio range", err)
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// cameraSourceAdapter wires internal/framesource's polymorphic frame
// source against the camera_url input, presenting it as the single
// seekable unit camerapip.Compositor expects (camerapip's own doc comment
// names this adaptation as the intended wiring).
type cameraSourceAdapter struct {
	frameRate float64
	source    framesource.Source
	index     int64
	durMS     int64
}

func (a *cameraSourceAdapter) Initialize(ctx context.Context, cameraURL string) error {
	mapper := trim.NewMapper(nil)
	src, res, err := framesource.New(ctx, cameraURL, a.frameRate, mapper, config.DefaultMaxPendingDecodes, config.DefaultFrameBufferSize)
	if err != nil {
		return err
	}
	a.source = src
	a.durMS = res.EffectiveDuration
	return nil
}

func (a *cameraSourceAdapter) DurationMS() int64 { return a.durMS }

func (a *cameraSourceAdapter) SeekFrame(ctx context.Context, tMS int64) (*planar.Frame, error) {
	idx := a.index
	a.index++
	return a.source.GetFrame(ctx, idx, tMS)
}

// teardownStack runs cleanup functions in reverse push order, once, even
// if Run returns early via a bare return rather than a labeled break —
// matching spec §3's "creates all components on start, tears them down in
// reverse order on finish or abort" lifecycle contract.
type teardownStack struct {
	mu   sync.Mutex
	fns  []func()
	done bool
}

func newTeardownStack() *teardownStack { return &teardownStack{} }

func (t *teardownStack) push(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fns = append(t.fns, fn)
}

func (t *teardownStack) runAll() {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return
	}
	t.done = true
	fns := t.fns
	t.mu.Unlock()

	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
