package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestNewLoggerDisabled(t *testing.T) {
	l := New(Config{Enabled: false})
	if l == nil {
		t.Fatal("New should never return nil")
	}
	// Should not panic even though output is discarded.
	l.Info("should be discarded")
}

func TestLoggerWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Enabled: true, Level: LevelInfo, Output: &buf})
	scoped := l.WithPrefix("decode")
	scoped.Info("frame decoded", "index", 3)

	if buf.Len() == 0 {
		t.Error("expected log output")
	}
}

func TestSetupRunLogWritesTimestampedFile(t *testing.T) {
	dir := t.TempDir()

	rl, err := SetupRunLog(dir, true, false)
	if err != nil {
		t.Fatalf("SetupRunLog failed: %v", err)
	}
	defer rl.Close()

	if rl.FilePath() == "" {
		t.Fatal("expected non-empty file path")
	}
	if filepath.Dir(rl.FilePath()) != dir {
		t.Errorf("log file not under %s: %s", dir, rl.FilePath())
	}

	rl.Debug("debug line")
	rl.Warn("warn line")
	rl.Close()

	data, err := os.ReadFile(rl.FilePath())
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty log file")
	}
}

func TestSetupRunLogDisabled(t *testing.T) {
	rl, err := SetupRunLog(t.TempDir(), false, true)
	if err != nil {
		t.Fatalf("SetupRunLog should not error when disabled: %v", err)
	}
	if rl != nil {
		t.Fatal("SetupRunLog(noLog=true) should return nil")
	}
	// nil-receiver methods must be safe to call.
	rl.Info("noop")
	rl.Close()
}
