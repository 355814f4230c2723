// Package decode implements the VideoDecoder component: it turns encoded
// chunks into decoded frames behind a bounded pending queue, latching
// decoder errors instead of rejecting in-flight waiters so a failure can
// never deadlock the decode-ahead task. Grounded on the donor's
// internal/worker.Semaphore backpressure idiom, driving
// internal/ffmsdecode's per-frame decode instead of the donor's whole-
// chunk extraction.
package decode

import (
	"sync"
	"time"

	"github.com/clipforge/exporter/internal/demux"
	"github.com/clipforge/exporter/internal/errors"
	"github.com/clipforge/exporter/internal/ffmsdecode"
	"github.com/clipforge/exporter/internal/planar"
)

// DefaultMaxPending is the default bound on chunks submitted but not yet
// delivered to the frame callback.
const DefaultMaxPending = 8

// Stats reports decoder health, used by the reporter's fallback/mode
// diagnostics.
type Stats struct {
	FramesDecoded    int64
	FramesDropped    int64
	AvgDecodeMS      float64
	QueueSize        int
	IsHWAccelerated  bool
}

// FrameCallback receives decoded frames; it takes ownership and must
// release each frame.
type FrameCallback func(frame *planar.Frame, sourceTimestampUS int64)

// Decoder bounds in-flight decode submissions and routes decoded frames to
// a caller-registered callback.
type Decoder struct {
	maxPending int

	mu      sync.Mutex
	cond    *sync.Cond
	pending int
	closed  bool

	source *ffmsdecode.Source
	cb     FrameCallback

	framesDecoded int64
	framesDropped int64
	totalDecodeNS int64

	lastErr error
}

// New creates a Decoder. maxPending <= 0 uses DefaultMaxPending.
func New(maxPending int) *Decoder {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	d := &Decoder{maxPending: maxPending}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Configure opens a decode source against idx/info, closing any
// previously configured source first.
func (d *Decoder) Configure(idx *ffmsdecode.Index, info *ffmsdecode.Info, threads int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.source != nil {
		d.source.Close()
		d.source = nil
	}
	src, err := ffmsdecode.OpenSource(idx, info, threads)
	if err != nil {
		d.lastErr = err
		return errors.Wrap(errors.KindUnsupportedCodec, "decoder configure failed", err)
	}
	d.source = src
	d.closed = false
	return nil
}

// SetFrameCallback registers the sink for decoded frames.
func (d *Decoder) SetFrameCallback(cb FrameCallback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cb = cb
}

// Decode suspends until pending < maxPending, then submits chunk for
// decode, synchronously in this binding (FFMS2 decode is not async), and
// delivers the result to the frame callback. latched errors from a prior
// failed decode are surfaced here rather than on the failing call itself,
// matching the pending-queue error-latch contract.
func (d *Decoder) Decode(chunk demux.EncodedChunk) error {
	d.mu.Lock()
	for d.pending >= d.maxPending && !d.closed {
		d.cond.Wait()
	}
	if d.closed {
		d.mu.Unlock()
		return errors.NewCancelledError()
	}
	if d.lastErr != nil {
		err := d.lastErr
		d.mu.Unlock()
		return err
	}
	d.pending++
	src := d.source
	cb := d.cb
	d.mu.Unlock()

	if src == nil {
		d.mu.Lock()
		d.pending--
		d.mu.Unlock()
		d.failAll(errors.New(errors.KindDecoder, "decoder not configured"))
		return d.lastErr
	}

	start := time.Now()
	frame, err := src.DecodeFrame(chunk.FrameIdx)
	elapsed := time.Since(start)

	d.mu.Lock()
	d.pending--
	d.cond.Signal()
	if err != nil {
		d.framesDropped++
		d.lastErr = errors.Wrap(errors.KindDecoder, "decode failed", err)
		d.mu.Unlock()
		return d.lastErr
	}
	d.framesDecoded++
	d.totalDecodeNS += elapsed.Nanoseconds()
	d.mu.Unlock()

	if cb != nil {
		cb(frame, chunk.Timestamp)
	} else {
		planar.Release(frame)
	}
	return nil
}

// Flush is a no-op: this binding's DecodeFrame call is synchronous, so
// there is never output queued inside the decoder itself to drain.
func (d *Decoder) Flush() {}

// Close idempotently tears the decoder down, releasing every waiter.
func (d *Decoder) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	if d.source != nil {
		d.source.Close()
		d.source = nil
	}
	d.cond.Broadcast()
}

// LastError returns the latched decoder error, if any.
func (d *Decoder) LastError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// Stats reports current decoder health. Hardware acceleration is
// estimated, not guaranteed, by an average decode time under 5ms once more
// than 10 frames have been measured.
func (d *Decoder) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	var avgMS float64
	if d.framesDecoded > 0 {
		avgMS = float64(d.totalDecodeNS) / float64(d.framesDecoded) / 1e6
	}
	return Stats{
		FramesDecoded:   d.framesDecoded,
		FramesDropped:   d.framesDropped,
		AvgDecodeMS:     avgMS,
		QueueSize:       d.pending,
		IsHWAccelerated: d.framesDecoded > 10 && avgMS < 5,
	}
}

func (d *Decoder) failAll(err error) {
	d.mu.Lock()
	d.lastErr = err
	d.cond.Broadcast()
	d.mu.Unlock()
}
