package probe

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSniffContainerWebM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recording-1699999999999.webm")
	data := []byte{0x1A, 0x45, 0xDF, 0xA3, 0, 0, 0, 0}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	family, err := SniffContainer(path)
	if err != nil {
		t.Fatalf("SniffContainer failed: %v", err)
	}
	if family != ContainerWebM {
		t.Errorf("family = %v, want webm", family)
	}
}

func TestSniffContainerMP4(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recording-1699999999999.mp4")
	data := append([]byte{0, 0, 0, 0x18}, []byte("ftypisom")...)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	family, err := SniffContainer(path)
	if err != nil {
		t.Fatalf("SniffContainer failed: %v", err)
	}
	if family != ContainerMP4 {
		t.Errorf("family = %v, want mp4", family)
	}
}

func TestClassifyFormat(t *testing.T) {
	cases := map[string]ContainerFamily{
		"mov,mp4,m4a,3gp,3g2,mj2": ContainerMP4,
		"matroska,webm":          ContainerWebM,
		"avi":                    ContainerUnknown,
	}
	for in, want := range cases {
		if got := classifyFormat(in); got != want {
			t.Errorf("classifyFormat(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseRational(t *testing.T) {
	if got := parseRational("30000/1001"); got < 29.9 || got > 30.0 {
		t.Errorf("parseRational = %v, want ~29.97", got)
	}
	if got := parseRational("bad"); got != 0 {
		t.Errorf("parseRational(bad) = %v, want 0", got)
	}
}
