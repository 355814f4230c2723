package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// JSONReporter emits NDJSON events, one JSON object per line, suitable for
// a host process to consume as a pipe.
type JSONReporter struct {
	writer             io.Writer
	mu                 sync.Mutex
	lastProgressBucket int
	lastProgressTime   time.Time
}

// NewJSONReporter creates a new JSON reporter that writes to stdout.
func NewJSONReporter() *JSONReporter {
	return &JSONReporter{writer: os.Stdout, lastProgressBucket: -1}
}

// NewJSONReporterWithWriter creates a JSON reporter with a custom writer.
func NewJSONReporterWithWriter(w io.Writer) *JSONReporter {
	return &JSONReporter{writer: w, lastProgressBucket: -1}
}

func (r *JSONReporter) timestamp() int64 {
	return time.Now().Unix()
}

func (r *JSONReporter) write(v interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintln(r.writer, string(data))
}

func (r *JSONReporter) Hardware(summary HardwareSummary) {
	r.write(map[string]interface{}{
		"type":      "hardware",
		"hostname":  summary.Hostname,
		"cpu_cores": summary.CPUCores,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) Initialization(summary InitializationSummary) {
	r.write(map[string]interface{}{
		"type":            "initialization",
		"input_file":      summary.InputFile,
		"output_file":     summary.OutputFile,
		"source_duration": summary.SourceDuration.Seconds(),
		"source_res":      summary.SourceRes,
		"target_res":      summary.TargetRes,
		"frame_rate":      summary.FrameRate,
		"frame_count":     summary.FrameCount,
		"audio_tracks":    summary.AudioTracks,
		"timestamp":       r.timestamp(),
	})
}

func (r *JSONReporter) StageProgress(update StageProgress) {
	r.write(map[string]interface{}{
		"type":      "stage_progress",
		"stage":     update.Stage,
		"message":   update.Message,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) PhaseChanged(phase Phase) {
	r.write(map[string]interface{}{
		"type":      "phase",
		"phase":     string(phase),
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) emitProgress(eventType string, p FrameProgress) {
	r.write(map[string]interface{}{
		"type":          eventType,
		"phase":         string(p.Phase),
		"current_frame": p.CurrentFrame,
		"total_frames":  p.TotalFrames,
		"mode":          string(p.Mode),
		"percent":       p.Percent(),
		"fps":           p.FPS,
		"speed":         p.Speed,
		"eta_seconds":   int64(p.ETA.Seconds()),
		"timestamp":     r.timestamp(),
	})
}

// FrameProgress emits one message per frame emission, throttled the same
// way the donor's encoding-progress emitter throttles: at least every
// percentage-point bucket or every 5s, whichever comes first, plus always
// at completion.
func (r *JSONReporter) FrameProgress(p FrameProgress) {
	const minInterval = 5 * time.Second

	bucket := int(p.Percent())
	now := time.Now()

	r.mu.Lock()
	intervalElapsed := r.lastProgressTime.IsZero() || now.Sub(r.lastProgressTime) >= minInterval
	shouldEmit := bucket > r.lastProgressBucket || intervalElapsed || p.Percent() >= 99.0

	if !shouldEmit {
		r.mu.Unlock()
		return
	}
	if bucket > r.lastProgressBucket {
		r.lastProgressBucket = bucket
	}
	r.lastProgressTime = now
	r.mu.Unlock()

	r.emitProgress("frame_progress", p)
}

// Tick emits a heartbeat message even without a frame emission, per spec
// §4.12 ("a periodic tick may be emitted... to reassure callers").
func (r *JSONReporter) Tick(p FrameProgress) {
	r.emitProgress("tick", p)
}

func (r *JSONReporter) FallbackStats(stats FallbackStats) {
	r.write(map[string]interface{}{
		"type":      "fallback_stats",
		"seeks":     stats.Seeks,
		"hits":      stats.Hits,
		"misses":    stats.Misses,
		"hit_rate":  stats.HitRate,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) CameraPipStats(stats CameraPipStats) {
	r.write(map[string]interface{}{
		"type":      "camera_pip_stats",
		"composited": stats.FramesComposited,
		"skipped":    stats.FramesSkipped,
		"timestamp":  r.timestamp(),
	})
}

func (r *JSONReporter) ValidationComplete(summary ValidationSummary) {
	steps := make([]map[string]interface{}, len(summary.Steps))
	for i, step := range summary.Steps {
		steps[i] = map[string]interface{}{
			"name":    step.Name,
			"passed":  step.Passed,
			"details": step.Details,
		}
	}

	event := map[string]interface{}{
		"type":      "validation_complete",
		"passed":    summary.Passed,
		"steps":     steps,
		"timestamp": r.timestamp(),
	}
	if summary.QualityScored {
		event["quality_score"] = summary.QualityScore
	}
	r.write(event)
}

func (r *JSONReporter) ExportComplete(summary ExportOutcome) {
	r.write(map[string]interface{}{
		"type":          "export_complete",
		"output_path":   summary.OutputPath,
		"output_bytes":  summary.OutputBytes,
		"input_bytes":   summary.InputBytes,
		"duration_secs": summary.Duration.Seconds(),
		"frame_count":   summary.FrameCount,
		"mode":          string(summary.Mode),
		"average_speed": summary.AverageSpeed,
		"timestamp":     r.timestamp(),
	})
}

func (r *JSONReporter) Warning(message string) {
	r.write(map[string]interface{}{
		"type":      "warning",
		"message":   message,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) Error(err ReporterError) {
	r.write(map[string]interface{}{
		"type":       "error",
		"kind":       err.Kind,
		"title":      err.Title,
		"message":    err.Message,
		"context":    err.Context,
		"suggestion": err.Suggestion,
		"fatal":      err.Fatal,
		"timestamp":  r.timestamp(),
	})
}
