// Package reassemble restores strict ascending frame order from a render
// worker pool's out-of-order completions, the same ordered-result discipline
// the donor parallel encode pipeline applies to chunk completions, but
// keyed by a contiguous frame index rather than a chunk index.
package reassemble

import (
	"fmt"

	"github.com/clipforge/exporter/internal/planar"
)

// DefaultMaxBuffer bounds how many out-of-order frames the reassembler will
// hold while waiting for the gap to close.
const DefaultMaxBuffer = 32

// Reassembler buffers out-of-order rendered frames and emits them in
// strict ascending index order. It is not safe for concurrent use; callers
// serialize Add calls through the same goroutine that reads the emitted
// sequence.
type Reassembler struct {
	maxBuffer    int
	nextExpected int64
	pending      map[int64]*planar.Frame
}

// New creates a Reassembler. maxBuffer <= 0 uses DefaultMaxBuffer.
func New(maxBuffer int) *Reassembler {
	if maxBuffer <= 0 {
		maxBuffer = DefaultMaxBuffer
	}
	return &Reassembler{maxBuffer: maxBuffer, pending: make(map[int64]*planar.Frame)}
}

// Add records a newly rendered frame and returns every frame that can now
// be emitted in order: if index is the next expected index, it and any
// contiguously buffered successors are returned and nextExpected advances
// past them. Otherwise the frame is buffered, bounded by maxBuffer held
// frames, and nil is returned.
func (r *Reassembler) Add(index int64, frame *planar.Frame) ([]*planar.Frame, error) {
	if index < r.nextExpected {
		return nil, fmt.Errorf("reassemble: duplicate or already-emitted index %d (next expected %d)", index, r.nextExpected)
	}

	if index != r.nextExpected {
		if len(r.pending) >= r.maxBuffer {
			return nil, fmt.Errorf("reassemble: buffer exceeded max %d frames awaiting index %d", r.maxBuffer, r.nextExpected)
		}
		if _, exists := r.pending[index]; exists {
			return nil, fmt.Errorf("reassemble: duplicate buffered index %d", index)
		}
		r.pending[index] = frame
		return nil, nil
	}

	out := []*planar.Frame{frame}
	r.nextExpected++
	for {
		next, ok := r.pending[r.nextExpected]
		if !ok {
			break
		}
		delete(r.pending, r.nextExpected)
		out = append(out, next)
		r.nextExpected++
	}
	return out, nil
}

// Flush emits every buffered frame in index order without releasing them,
// advancing nextExpected past the highest buffered index. Used at
// end-of-stream when a trailing gap will never close (e.g. a dropped
// worker frame past the error threshold).
func (r *Reassembler) Flush() []*planar.Frame {
	if len(r.pending) == 0 {
		return nil
	}
	indices := make([]int64, 0, len(r.pending))
	for idx := range r.pending {
		indices = append(indices, idx)
	}
	for i := 1; i < len(indices); i++ {
		for j := i; j > 0 && indices[j-1] > indices[j]; j-- {
			indices[j-1], indices[j] = indices[j], indices[j-1]
		}
	}
	out := make([]*planar.Frame, len(indices))
	for i, idx := range indices {
		out[i] = r.pending[idx]
		delete(r.pending, idx)
	}
	r.nextExpected = indices[len(indices)-1] + 1
	return out
}

// Reset releases every buffered frame and zeroes counters.
func (r *Reassembler) Reset() {
	for idx, f := range r.pending {
		planar.Release(f)
		delete(r.pending, idx)
	}
	r.nextExpected = 0
}

// NextExpected returns the next frame index the reassembler is waiting on.
func (r *Reassembler) NextExpected() int64 { return r.nextExpected }

// Pending returns the current count of out-of-order buffered frames.
func (r *Reassembler) Pending() int { return len(r.pending) }
