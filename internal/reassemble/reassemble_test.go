package reassemble

import (
	"testing"

	"github.com/clipforge/exporter/internal/planar"
)

func TestAddEmitsImmediateInOrder(t *testing.T) {
	r := New(4)
	out, err := r.Add(0, planar.Acquire(2, 2))
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 emitted frame, got %d", len(out))
	}
	for _, f := range out {
		planar.Release(f)
	}
}

func TestAddBuffersOutOfOrderThenDrains(t *testing.T) {
	r := New(4)

	out, err := r.Add(2, planar.Acquire(2, 2))
	if err != nil || out != nil {
		t.Fatalf("expected frame 2 to buffer, got out=%v err=%v", out, err)
	}
	out, err = r.Add(1, planar.Acquire(2, 2))
	if err != nil || out != nil {
		t.Fatalf("expected frame 1 to buffer, got out=%v err=%v", out, err)
	}

	out, err = r.Add(0, planar.Acquire(2, 2))
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("expected contiguous emission of 3 frames, got %d", len(out))
	}
	if r.NextExpected() != 3 {
		t.Errorf("NextExpected = %d, want 3", r.NextExpected())
	}
	for _, f := range out {
		planar.Release(f)
	}
}

func TestAddRejectsOverMaxBuffer(t *testing.T) {
	r := New(2)
	r.Add(5, planar.Acquire(2, 2))
	r.Add(6, planar.Acquire(2, 2))
	if _, err := r.Add(7, planar.Acquire(2, 2)); err == nil {
		t.Error("expected error once pending buffer exceeds max")
	}
}

func TestAddRejectsDuplicateEmitted(t *testing.T) {
	r := New(4)
	r.Add(0, planar.Acquire(2, 2))
	if _, err := r.Add(0, planar.Acquire(2, 2)); err == nil {
		t.Error("expected error re-adding an already-emitted index")
	}
}

func TestFlushEmitsRemainingAndAdvances(t *testing.T) {
	r := New(4)
	r.Add(3, planar.Acquire(2, 2))
	r.Add(1, planar.Acquire(2, 2))

	out := r.Flush()
	if len(out) != 2 {
		t.Fatalf("expected 2 flushed frames, got %d", len(out))
	}
	if r.NextExpected() != 4 {
		t.Errorf("NextExpected after flush = %d, want 4", r.NextExpected())
	}
	for _, f := range out {
		planar.Release(f)
	}
}

func TestResetReleasesPending(t *testing.T) {
	r := New(4)
	r.Add(1, planar.Acquire(2, 2))
	r.Reset()
	if r.Pending() != 0 {
		t.Error("expected no pending frames after Reset")
	}
	if r.NextExpected() != 0 {
		t.Error("expected NextExpected reset to 0")
	}
}
