package videoencoder

import (
	"strings"
	"testing"

	"github.com/clipforge/exporter/internal/config"
)

func TestBuildArgsIncludesRawvideoAndTarget(t *testing.T) {
	target := config.Target{Width: 1920, Height: 1080, FrameRate: 30, VideoCodec: "libx264", VideoBitrate: 8_000_000}
	args := buildArgs(target, "/tmp/out.mp4")
	joined := strings.Join(args, " ")

	for _, want := range []string{"rawvideo", "yuv420p10le", "1920x1080", "30", "libx264", "8000k", "/tmp/out.mp4"} {
		if !strings.Contains(joined, want) {
			t.Errorf("buildArgs() = %q, missing %q", joined, want)
		}
	}
}

func TestSubmitFrameBeforeStartFails(t *testing.T) {
	e := New(config.Target{})
	if err := e.SubmitFrame(nil); err == nil {
		t.Error("expected error submitting a frame before Start")
	}
}

func TestFinishWithoutStartIsNoop(t *testing.T) {
	e := New(config.Target{})
	if err := e.Finish(); err != nil {
		t.Errorf("Finish on unstarted encoder should be a no-op, got %v", err)
	}
}
