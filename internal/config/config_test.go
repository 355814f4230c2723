package config

import "testing"

func baseTarget() Target {
	return Target{
		Width: 1280, Height: 720, FrameRate: 30,
		VideoCodec: "h264", AudioCodec: "aac", Container: FormatMP4,
	}
}

func TestNewExportPlanDefaults(t *testing.T) {
	p := NewExportPlan("rec.webm", "out.mp4", baseTarget())

	if !p.ParallelRendering {
		t.Error("ParallelRendering should default true")
	}
	if p.MaxPendingDecodes != DefaultMaxPendingDecodes {
		t.Errorf("MaxPendingDecodes = %d, want %d", p.MaxPendingDecodes, DefaultMaxPendingDecodes)
	}
	if p.FrameBufferSize != DefaultFrameBufferSize {
		t.Errorf("FrameBufferSize = %d, want %d", p.FrameBufferSize, DefaultFrameBufferSize)
	}
	if p.RenderWorkers != DefaultRenderWorkers {
		t.Errorf("RenderWorkers = %d, want %d", p.RenderWorkers, DefaultRenderWorkers)
	}

	if err := p.Validate(); err != nil {
		t.Errorf("default plan should validate, got %v", err)
	}
}

func TestValidateFrameRate(t *testing.T) {
	p := NewExportPlan("rec.webm", "out.mp4", baseTarget())
	p.Target.FrameRate = 10
	if err := p.Validate(); err == nil {
		t.Error("expected error for frame_rate below 15")
	}
	p.Target.FrameRate = 90
	if err := p.Validate(); err == nil {
		t.Error("expected error for frame_rate above 60")
	}
}

func TestValidateOverlappingTrims(t *testing.T) {
	p := NewExportPlan("rec.webm", "out.mp4", baseTarget())
	p.TrimRegions = []TrimRegion{
		{StartMS: 0, EndMS: 1000},
		{StartMS: 500, EndMS: 1500},
	}
	if err := p.Validate(); err == nil {
		t.Error("expected error for overlapping trim regions")
	}
}

func TestValidateAudioGain(t *testing.T) {
	p := NewExportPlan("rec.webm", "out.mp4", baseTarget())
	p.AudioInputs = []AudioInput{{URL: "mic.webm", Gain: 3.0}}
	if err := p.Validate(); err == nil {
		t.Error("expected error for gain above 2.0")
	}
}

func TestValidateCameraPip(t *testing.T) {
	p := NewExportPlan("rec.webm", "out.mp4", baseTarget())
	p.CameraPip = &CameraPipConfig{Enabled: true}
	if err := p.Validate(); err == nil {
		t.Error("expected error for enabled camera_pip missing camera_url")
	}

	p.CameraPip = &CameraPipConfig{Enabled: true, CameraURL: "camera.webm", BorderRadiusPct: 90}
	if err := p.Validate(); err == nil {
		t.Error("expected error for border_radius_pct above 50")
	}
}

func TestNormalizeFillsZeroBounds(t *testing.T) {
	p := &ExportPlan{VideoURL: "rec.webm", OutputPath: "out.mp4", Format: FormatMP4, Target: baseTarget()}
	p.Normalize()
	if p.MaxPendingDecodes != DefaultMaxPendingDecodes {
		t.Errorf("Normalize did not fill MaxPendingDecodes")
	}
	if p.WorkerErrorThreshold != DefaultWorkerErrorThreshold {
		t.Errorf("Normalize did not fill WorkerErrorThreshold")
	}
	if err := p.Validate(); err != nil {
		t.Errorf("normalized plan should validate, got %v", err)
	}
}

func TestPipSizePercent(t *testing.T) {
	cases := map[PipSize]float64{
		PipSizeSmall:  15,
		PipSizeMedium: 22,
		PipSizeLarge:  30,
	}
	for size, want := range cases {
		if got := size.Percent(); got != want {
			t.Errorf("%s.Percent() = %v, want %v", size, got, want)
		}
	}
}
