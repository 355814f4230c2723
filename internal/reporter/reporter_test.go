package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

type recordingReporter struct {
	NullReporter
	phases []Phase
	frames []FrameProgress
}

func (r *recordingReporter) PhaseChanged(p Phase)       { r.phases = append(r.phases, p) }
func (r *recordingReporter) FrameProgress(p FrameProgress) { r.frames = append(r.frames, p) }

func TestCompositeReporterFansOut(t *testing.T) {
	a := &recordingReporter{}
	b := &recordingReporter{}
	c := NewCompositeReporter(a, b)

	c.PhaseChanged(PhaseDecoding)
	c.FrameProgress(FrameProgress{Phase: PhaseDecoding, CurrentFrame: 5, TotalFrames: 10})

	for _, r := range []*recordingReporter{a, b} {
		if len(r.phases) != 1 || r.phases[0] != PhaseDecoding {
			t.Errorf("expected PhaseDecoding recorded, got %v", r.phases)
		}
		if len(r.frames) != 1 || r.frames[0].CurrentFrame != 5 {
			t.Errorf("expected frame progress recorded, got %v", r.frames)
		}
	}
}

func TestFrameProgressPercent(t *testing.T) {
	p := FrameProgress{CurrentFrame: 30, TotalFrames: 120}
	if got := p.Percent(); got != 25 {
		t.Errorf("Percent() = %v, want 25", got)
	}

	zero := FrameProgress{CurrentFrame: 1, TotalFrames: 0}
	if got := zero.Percent(); got != 0 {
		t.Errorf("Percent() with zero total = %v, want 0", got)
	}
}

func TestJSONReporterEmitsNDJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterWithWriter(&buf)

	r.PhaseChanged(PhaseEncoding)
	r.FrameProgress(FrameProgress{Phase: PhaseEncoding, CurrentFrame: 100, TotalFrames: 100, Mode: ModeParallel})
	r.ExportComplete(ExportOutcome{OutputPath: "out.mp4", FrameCount: 100, Mode: ModeParallel, Duration: 2 * time.Second})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 NDJSON lines, got %d: %q", len(lines), buf.String())
	}

	var last map[string]interface{}
	if err := json.Unmarshal([]byte(lines[2]), &last); err != nil {
		t.Fatalf("failed to decode last line: %v", err)
	}
	if last["type"] != "export_complete" {
		t.Errorf("expected export_complete event, got %v", last["type"])
	}
	if last["output_path"] != "out.mp4" {
		t.Errorf("expected output_path out.mp4, got %v", last["output_path"])
	}
}

func TestJSONReporterThrottlesFrameProgress(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterWithWriter(&buf)

	// Same whole-percent bucket, emitted twice in rapid succession: the
	// second call should be suppressed by the bucket+interval throttle.
	r.FrameProgress(FrameProgress{CurrentFrame: 1, TotalFrames: 1000})
	r.FrameProgress(FrameProgress{CurrentFrame: 2, TotalFrames: 1000})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Errorf("expected throttling to suppress repeated same-bucket progress, got %d lines", len(lines))
	}
}

func TestNullReporterIsSafe(t *testing.T) {
	var r Reporter = NullReporter{}
	r.PhaseChanged(PhaseDone)
	r.FrameProgress(FrameProgress{})
	r.Error(ReporterError{Kind: "muxer error"})
}
