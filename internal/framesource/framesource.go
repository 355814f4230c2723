// Package framesource presents a single get_frame(index, effective_time)
// interface to the renderer over two interchangeable backends: a
// decoder-backed source (Demuxer+VideoDecoder+FrameBuffer) and a
// prefetch-fallback source driven by ffmpeg seeks. The renderer is
// oblivious to which is in use (spec §4.5).
package framesource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clipforge/exporter/internal/decode"
	"github.com/clipforge/exporter/internal/demux"
	"github.com/clipforge/exporter/internal/errors"
	"github.com/clipforge/exporter/internal/ffmsdecode"
	"github.com/clipforge/exporter/internal/framebuffer"
	"github.com/clipforge/exporter/internal/planar"
	"github.com/clipforge/exporter/internal/trim"
)

// Mode reports which backend a Source ended up using.
type Mode string

const (
	ModeDecoder  Mode = "decoder"
	ModeFallback Mode = "fallback"
)

// InitResult is the shared initialization result both backends expose.
type InitResult struct {
	Width, Height    int
	EffectiveDuration int64 // ms
	Mode             Mode
}

// Source is the polymorphic frame source interface the renderer drives.
type Source interface {
	Initialize(ctx context.Context) (InitResult, error)
	GetFrame(ctx context.Context, index int64, effectiveMS int64) (*planar.Frame, error)
	Close()
}

// New selects a backend by factory: try the decoder-backed source first;
// on any initialization failure (e.g. unsupported codec) fall back to the
// prefetch source, matching the spec's "fail out and let the factory fall
// back" contract.
func New(ctx context.Context, videoURL string, frameRate float64, mapper *trim.Mapper, maxPending, bufferBound int) (Source, InitResult, error) {
	primary := NewDecoderSource(videoURL, frameRate, mapper, maxPending, bufferBound)
	if res, err := primary.Initialize(ctx); err == nil {
		return primary, res, nil
	}

	fallback := NewPrefetchSource(videoURL, frameRate, mapper).
		WithSeekers(newFFmpegSeeker(), newFFmpegSeeker())
	res, err := fallback.Initialize(ctx)
	if err != nil {
		return nil, InitResult{}, errors.Wrap(errors.KindDecoder, "both frame source backends failed to initialize", err)
	}
	return fallback, res, nil
}

// DecoderSource composes Demuxer -> Decoder -> FrameBuffer with a
// decode-ahead task that walks the source linearly, per spec §4.5.1.
type DecoderSource struct {
	videoURL   string
	frameRate  float64
	mapper     *trim.Mapper
	maxPending int
	bound      int

	demuxer *demux.Demuxer
	decoder *decode.Decoder
	buffer  *framebuffer.Buffer
	source  *ffmsdecode.Source

	decodeErr chan error
}

// NewDecoderSource constructs an uninitialized decoder-backed source.
func NewDecoderSource(videoURL string, frameRate float64, mapper *trim.Mapper, maxPending, bufferBound int) *DecoderSource {
	return &DecoderSource{
		videoURL: videoURL, frameRate: frameRate, mapper: mapper,
		maxPending: maxPending, bound: bufferBound,
		decodeErr: make(chan error, 1),
	}
}

// Initialize wires the decoder's frame callback into the buffer and starts
// the decode-ahead task.
func (s *DecoderSource) Initialize(ctx context.Context) (InitResult, error) {
	s.demuxer = demux.New(s.videoURL)
	cfg, err := s.demuxer.Initialize(ctx)
	if err != nil {
		return InitResult{}, err
	}

	s.buffer = framebuffer.New(s.bound)
	s.decoder = decode.New(s.maxPending)
	if err := s.decoder.Configure(s.demuxer.Index(), s.demuxer.Info(), 1); err != nil {
		s.demuxer.Destroy()
		return InitResult{}, err
	}
	s.decoder.SetFrameCallback(func(frame *planar.Frame, sourceTS int64) {
		decodeIndex := int64(float64(sourceTS) / 1_000_000 * cfg.EstFPS)
		if !s.buffer.Add(decodeIndex, frame) {
			planar.Release(frame)
		}
	})

	effDuration := s.mapper.EffectiveDurationMS(int64(cfg.DurationS * 1000))

	go s.decodeAhead(ctx)

	return InitResult{Width: cfg.Width, Height: cfg.Height, EffectiveDuration: effDuration, Mode: ModeDecoder}, nil
}

func (s *DecoderSource) decodeAhead(ctx context.Context) {
	chunks, err := s.demuxer.ChunksFrom(0, -1)
	if err != nil {
		s.decodeErr <- err
		return
	}
	for _, chunk := range chunks {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.buffer.WaitForSpace()
		if err := s.decoder.Decode(chunk); err != nil {
			s.decodeErr <- err
			return
		}
	}
	s.decoder.Flush()
}

// GetFrame maps effectiveMS through the trim mapper (for stats only — the
// decode-ahead task already walks the source linearly) and waits for the
// requested index to land in the buffer.
func (s *DecoderSource) GetFrame(ctx context.Context, index int64, effectiveMS int64) (*planar.Frame, error) {
	_ = s.mapper.MapMS(effectiveMS)

	for {
		if s.buffer.Has(index) {
			return s.buffer.Consume(index), nil
		}
		select {
		case err := <-s.decodeErr:
			return nil, err
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
		if err := s.decoder.LastError(); err != nil {
			return nil, err
		}
	}
}

// Close tears down the demuxer, decoder, and buffer.
func (s *DecoderSource) Close() {
	if s.decoder != nil {
		s.decoder.Close()
	}
	if s.buffer != nil {
		s.buffer.Reset()
	}
	if s.demuxer != nil {
		s.demuxer.Destroy()
	}
}

// Seeker is the generic host-side seek-and-read primitive the
// prefetch-fallback source drives — an ffmpeg subprocess seek in this
// implementation.
type Seeker interface {
	Initialize(ctx context.Context, url string) (width, height int, durationMS int64, err error)
	SeekFrame(ctx context.Context, timeoutSourceMS int64) (*planar.Frame, error)
	Close()
}

// PrefetchSource maintains two independent seek units to overlap seek
// latency with rendering, per spec §4.5.2.
type PrefetchSource struct {
	videoURL  string
	frameRate float64
	mapper    *trim.Mapper

	units      [2]Seeker
	current    int
	width, height int
	durationMS int64

	mu         sync.Mutex
	prefetched map[int64]*planar.Frame

	seeks, hits, misses int64
}

// NewPrefetchSource constructs an uninitialized prefetch-fallback source
// with no seek units; WithSeekers must supply them before Initialize (New
// does so with two ffmpeg-backed seekers).
func NewPrefetchSource(videoURL string, frameRate float64, mapper *trim.Mapper) *PrefetchSource {
	return &PrefetchSource{videoURL: videoURL, frameRate: frameRate, mapper: mapper, prefetched: make(map[int64]*planar.Frame)}
}

// WithSeekers injects the two seek units (fakes in tests; New supplies
// ffmpeg-backed ones).
func (s *PrefetchSource) WithSeekers(a, b Seeker) *PrefetchSource {
	s.units[0], s.units[1] = a, b
	return s
}

func (s *PrefetchSource) Initialize(ctx context.Context) (InitResult, error) {
	if s.units[0] == nil {
		return InitResult{}, fmt.Errorf("framesource: prefetch source has no seek units configured")
	}
	w, h, dur, err := s.units[0].Initialize(ctx, s.videoURL)
	if err != nil {
		return InitResult{}, err
	}
	if _, _, _, err := s.units[1].Initialize(ctx, s.videoURL); err != nil {
		return InitResult{}, err
	}
	s.width, s.height, s.durationMS = w, h, dur

	effDuration := s.mapper.EffectiveDurationMS(dur)
	return InitResult{Width: w, Height: h, EffectiveDuration: effDuration, Mode: ModeFallback}, nil
}

// GetFrame maps effectiveMS to source time, takes a landed prefetch if
// available, otherwise performs a synchronous seek with a 5-second
// timeout, then kicks off an async prefetch of index+1 on the other unit.
func (s *PrefetchSource) GetFrame(ctx context.Context, index int64, effectiveMS int64) (*planar.Frame, error) {
	srcMS := s.mapper.MapMS(effectiveMS)

	s.mu.Lock()
	f, ok := s.prefetched[index]
	if ok {
		delete(s.prefetched, index)
	}
	s.mu.Unlock()
	if ok {
		s.hits++
		s.swapAndPrefetch(ctx, index+1)
		return f, nil
	}

	s.misses++
	s.seeks++
	seekCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	frame, err := s.units[s.current].SeekFrame(seekCtx, srcMS)
	if err != nil {
		return nil, fmt.Errorf("framesource: seek timed out at %dms: %w", srcMS, err)
	}

	s.swapAndPrefetch(ctx, index+1)
	return frame, nil
}

func (s *PrefetchSource) swapAndPrefetch(ctx context.Context, nextIndex int64) {
	other := 1 - s.current
	nextEffMS := int64(float64(nextIndex) / s.frameRate * 1000)
	nextSrcMS := s.mapper.MapMS(nextEffMS)
	go func() {
		frame, err := s.units[other].SeekFrame(ctx, nextSrcMS)
		if err == nil {
			s.mu.Lock()
			s.prefetched[nextIndex] = frame
			s.mu.Unlock()
		}
	}()
	s.current = other
}

// Stats reports the fallback source's hit rate, expected above 90% on a
// sequential export.
func (s *PrefetchSource) Stats() (seeks, hits, misses int64, hitRate float64) {
	total := s.hits + s.misses
	if total == 0 {
		return s.seeks, s.hits, s.misses, 0
	}
	return s.seeks, s.hits, s.misses, float64(s.hits) / float64(total)
}

// Close tears down both seek units.
func (s *PrefetchSource) Close() {
	for _, u := range s.units {
		if u != nil {
			u.Close()
		}
	}
	s.mu.Lock()
	for idx, f := range s.prefetched {
		planar.Release(f)
		delete(s.prefetched, idx)
	}
	s.mu.Unlock()
}
