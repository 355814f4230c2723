package export

import (
	"testing"

	"github.com/clipforge/exporter/internal/reporter"
)

func validTarget() Target {
	return Target{Width: 1920, Height: 1080, FrameRate: 30}
}

func TestNewAppliesOptions(t *testing.T) {
	job, err := New("in.mkv", "out.mp4", validTarget(),
		WithFormat(FormatGIF),
		WithAudioInput(AudioInput{URL: "a.wav", Gain: 1.0}),
		WithRenderWorkers(2),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if job.plan.Format != FormatGIF {
		t.Errorf("Format = %v, want gif", job.plan.Format)
	}
	if len(job.plan.AudioInputs) != 1 {
		t.Fatalf("expected 1 audio input, got %d", len(job.plan.AudioInputs))
	}
	if job.plan.RenderWorkers != 2 {
		t.Errorf("RenderWorkers = %d, want 2", job.plan.RenderWorkers)
	}
}

func TestNewRejectsInvalidTarget(t *testing.T) {
	_, err := New("in.mkv", "out.mp4", Target{Width: 0, Height: 0, FrameRate: 30})
	if err == nil {
		t.Fatal("expected validation error for zero-sized target")
	}
}

func TestWithCameraPipCopiesConfig(t *testing.T) {
	cfg := CameraPipConfig{Enabled: true, CameraURL: "cam.mkv"}
	job, err := New("in.mkv", "out.mp4", validTarget(), WithCameraPip(cfg))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if job.plan.CameraPip == nil || job.plan.CameraPip.CameraURL != "cam.mkv" {
		t.Fatal("expected camera pip config to be applied")
	}

	// Mutating the caller's copy afterward must not affect the stored plan.
	cfg.CameraURL = "mutated.mkv"
	if job.plan.CameraPip.CameraURL != "cam.mkv" {
		t.Error("WithCameraPip must copy its argument, not alias it")
	}
}

func TestPhaseIsIdleBeforeRun(t *testing.T) {
	job, err := New("in.mkv", "out.mp4", validTarget())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if job.Phase() != reporter.PhaseIdle {
		t.Errorf("Phase() = %v, want idle", job.Phase())
	}
}

func TestAbortBeforeRunIsNoOp(t *testing.T) {
	job, err := New("in.mkv", "out.mp4", validTarget())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	job.Abort() // must not panic
}

type fakeHandler struct {
	phases   []Phase
	warnings []string
}

func (h *fakeHandler) OnPhaseChanged(p Phase)                    { h.phases = append(h.phases, p) }
func (h *fakeHandler) OnFrameProgress(FrameProgress)             {}
func (h *fakeHandler) OnWarning(message string)                  { h.warnings = append(h.warnings, message) }
func (h *fakeHandler) OnValidationComplete(ValidationSummary)    {}
func (h *fakeHandler) OnComplete(ExportOutcome)                  {}
func (h *fakeHandler) OnError(kind, message string)              {}

func TestEventReporterForwardsToHandler(t *testing.T) {
	h := &fakeHandler{}
	rep := newEventReporter(h)

	rep.PhaseChanged(reporter.PhaseRendering)
	rep.Warning("disk nearly full")

	if len(h.phases) != 1 || h.phases[0] != reporter.PhaseRendering {
		t.Errorf("phases = %v, want [rendering]", h.phases)
	}
	if len(h.warnings) != 1 || h.warnings[0] != "disk nearly full" {
		t.Errorf("warnings = %v, want [\"disk nearly full\"]", h.warnings)
	}
}
