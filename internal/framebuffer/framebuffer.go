// Package framebuffer holds decoded frames in memory keyed by decode-order
// index, with a strict upper bound and FIFO backpressure. Keying by index
// rather than timestamp is required for correct behavior with
// variable-frame-rate sources, where timestamps do not map 1:1 to frame
// indices.
package framebuffer

import (
	"sync"

	"github.com/clipforge/exporter/internal/planar"
)

// DefaultBound is the default maximum number of buffered frames. At 1080p
// this is roughly 100 MB of frame memory (16 packed 10-bit 4:2:0 frames of
// about 6.2 MB each), chosen to balance throughput against footprint.
const DefaultBound = 16

// Buffer is a bounded, index-keyed store of decoded frames.
type Buffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	bound  int
	frames map[int64]*planar.Frame
}

// New creates a Buffer with the given bound. A bound <= 0 uses DefaultBound.
func New(bound int) *Buffer {
	if bound <= 0 {
		bound = DefaultBound
	}
	b := &Buffer{bound: bound, frames: make(map[int64]*planar.Frame)}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// IsFull reports whether the buffer is at its bound.
func (b *Buffer) IsFull() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames) >= b.bound
}

// Add inserts frame at decodeIndex. Callers must check IsFull first; if the
// buffer is already full, Add releases frame instead of queueing it and
// returns false.
func (b *Buffer) Add(decodeIndex int64, frame *planar.Frame) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.frames) >= b.bound {
		planar.Release(frame)
		return false
	}
	b.frames[decodeIndex] = frame
	b.cond.Broadcast()
	return true
}

// WaitForSpace blocks until the buffer has room for at least one more frame.
func (b *Buffer) WaitForSpace() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.frames) >= b.bound {
		b.cond.Wait()
	}
}

// Has reports whether index is currently buffered.
func (b *Buffer) Has(index int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.frames[index]
	return ok
}

// Peek returns the frame at index without removing it, or nil if absent.
func (b *Buffer) Peek(index int64) *planar.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames[index]
}

// Consume removes and returns the frame at index, transferring ownership to
// the caller.
func (b *Buffer) Consume(index int64) *planar.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.frames[index]
	if !ok {
		return nil
	}
	delete(b.frames, index)
	b.cond.Broadcast()
	return f
}

// Flush returns all remaining frames in ascending index order without
// releasing them; the caller takes ownership.
func (b *Buffer) Flush() []*planar.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	indices := make([]int64, 0, len(b.frames))
	for idx := range b.frames {
		indices = append(indices, idx)
	}
	sortInt64s(indices)
	out := make([]*planar.Frame, len(indices))
	for i, idx := range indices {
		out[i] = b.frames[idx]
		delete(b.frames, idx)
	}
	b.cond.Broadcast()
	return out
}

// Reset releases every buffered frame and wakes all waiters.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for idx, f := range b.frames {
		planar.Release(f)
		delete(b.frames, idx)
	}
	b.cond.Broadcast()
}

// Len returns the current number of buffered frames.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

func sortInt64s(s []int64) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
