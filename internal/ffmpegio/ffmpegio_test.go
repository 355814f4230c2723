package ffmpegio

import "testing"

func TestParseProgressLine(t *testing.T) {
	line := "frame=  120 fps= 30.0 q=-1.0 size=    512kB time=00:00:04.00 bitrate= 128.0kbits/s speed=1.01x"
	p := parseProgressLine(line)
	if p.CurrentFrame != 120 {
		t.Errorf("CurrentFrame = %d, want 120", p.CurrentFrame)
	}
	if p.FPS != 30.0 {
		t.Errorf("FPS = %v, want 30.0", p.FPS)
	}
	if p.Speed != 1.01 {
		t.Errorf("Speed = %v, want 1.01", p.Speed)
	}
	if p.ElapsedSecs != 4.0 {
		t.Errorf("ElapsedSecs = %v, want 4.0", p.ElapsedSecs)
	}
	if p.Bitrate != "128.0kbits/s" {
		t.Errorf("Bitrate = %q, want 128.0kbits/s", p.Bitrate)
	}
}

func TestParseTimecode(t *testing.T) {
	secs, ok := ParseTimecode("00:01:02.500")
	if !ok {
		t.Fatal("expected ok")
	}
	if secs != 62.5 {
		t.Errorf("secs = %v, want 62.5", secs)
	}

	if _, ok := ParseTimecode("bad"); ok {
		t.Error("expected failure on malformed timecode")
	}
}

func TestFormatTimecode(t *testing.T) {
	got := FormatTimecode(62.5)
	want := "00:01:02.500"
	if got != want {
		t.Errorf("FormatTimecode(62.5) = %q, want %q", got, want)
	}
}

func TestScanLinesOrCR(t *testing.T) {
	data := []byte("abc\rdef\nghi")
	adv, tok, err := scanLinesOrCR(data, false)
	if err != nil || adv != 4 || string(tok) != "abc" {
		t.Fatalf("got adv=%d tok=%q err=%v", adv, tok, err)
	}
}
