package framebuffer

import (
	"testing"
	"time"

	"github.com/clipforge/exporter/internal/planar"
)

func TestAddRejectsWhenFull(t *testing.T) {
	b := New(2)
	if !b.Add(0, planar.Acquire(4, 4)) {
		t.Fatal("expected first add to succeed")
	}
	if !b.Add(1, planar.Acquire(4, 4)) {
		t.Fatal("expected second add to succeed")
	}
	if b.Add(2, planar.Acquire(4, 4)) {
		t.Error("expected add to fail once full")
	}
	if !b.IsFull() {
		t.Error("expected IsFull true")
	}
}

func TestConsumeRemovesAndReturnsOwnership(t *testing.T) {
	b := New(4)
	f := planar.Acquire(4, 4)
	b.Add(5, f)
	if !b.Has(5) {
		t.Fatal("expected Has(5) true")
	}
	got := b.Consume(5)
	if got != f {
		t.Error("Consume should return the same frame")
	}
	if b.Has(5) {
		t.Error("Consume should remove the frame")
	}
	planar.Release(got)
}

func TestFlushReturnsAscendingOrderWithoutReleasing(t *testing.T) {
	b := New(4)
	b.Add(2, planar.Acquire(2, 2))
	b.Add(0, planar.Acquire(2, 2))
	b.Add(1, planar.Acquire(2, 2))

	frames := b.Flush()
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	for _, f := range frames {
		if f.Pixels == nil {
			t.Error("Flush must not release frames")
		}
		planar.Release(f)
	}
	if b.Len() != 0 {
		t.Error("Flush should drain the buffer")
	}
}

func TestResetReleasesAll(t *testing.T) {
	b := New(4)
	b.Add(0, planar.Acquire(2, 2))
	b.Add(1, planar.Acquire(2, 2))
	b.Reset()
	if b.Len() != 0 {
		t.Error("expected empty buffer after Reset")
	}
}

func TestWaitForSpaceUnblocksOnConsume(t *testing.T) {
	b := New(1)
	b.Add(0, planar.Acquire(2, 2))

	done := make(chan struct{})
	go func() {
		b.WaitForSpace()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("WaitForSpace should block while full")
	case <-time.After(20 * time.Millisecond):
	}

	f := b.Consume(0)
	planar.Release(f)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitForSpace did not unblock after Consume")
	}
}
