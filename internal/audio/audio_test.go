package audio

import (
	"math"
	"testing"
)

func TestBytesToFloat32RoundTrips(t *testing.T) {
	want := []float32{0, 0.5, -0.5, 1, -1}
	buf := make([]byte, len(want)*4)
	for i, v := range want {
		bits := math.Float32bits(v)
		buf[i*4+0] = byte(bits)
		buf[i*4+1] = byte(bits >> 8)
		buf[i*4+2] = byte(bits >> 16)
		buf[i*4+3] = byte(bits >> 24)
	}

	got := bytesToFloat32(buf)
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMixSumsWithGainAndClamps(t *testing.T) {
	m := NewMixer()
	buffers := [][]float32{
		{0.8, 0.8, 0.8},
		{0.8, 0.8},
	}
	gains := []float64{1.0, 1.0}

	out, err := m.Mix(buffers, gains)
	if err != nil {
		t.Fatalf("Mix failed: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	if out[0] != 1 || out[1] != 1 {
		t.Errorf("out[0:2] = %v, want clamped to 1", out[0:2])
	}
	if out[2] != float32(0.8) {
		t.Errorf("out[2] = %v, want 0.8 (unmixed tail)", out[2])
	}
}

func TestMixRejectsMismatchedGains(t *testing.T) {
	m := NewMixer()
	_, err := m.Mix([][]float32{{0.1}}, []float64{1.0, 2.0})
	if err == nil {
		t.Error("expected error on mismatched buffers/gains length")
	}
}

func TestMixEmptyInputReturnsNil(t *testing.T) {
	m := NewMixer()
	out, err := m.Mix(nil, nil)
	if err != nil {
		t.Fatalf("Mix failed: %v", err)
	}
	if out != nil {
		t.Errorf("out = %v, want nil", out)
	}
}
