// Package videoencoder drives an ffmpeg subprocess as the platform video
// encoder, fed raw yuv420p10le frames over stdin in the same packed 10-bit
// layout internal/planar produces — no repacking is needed between the
// renderer's output and ffmpeg's rawvideo input. Grounded on the donor's
// SVT-AV1 stdin-pipe encode idiom (internal/encode/encode.go's
// encodeChunk), retargeted from a one-shot whole-chunk write to a
// streaming per-frame feed behind internal/ffmpegio.
package videoencoder

import (
	"context"
	"fmt"
	"strconv"

	"github.com/clipforge/exporter/internal/config"
	"github.com/clipforge/exporter/internal/errors"
	"github.com/clipforge/exporter/internal/ffmpegio"
	"github.com/clipforge/exporter/internal/planar"
)

// Chunk is one encoded output chunk, handed to the Muxer in order.
type Chunk struct {
	Bytes []byte
}

// ChunkSink forwards encoded chunks to the Muxer.
type ChunkSink func(Chunk)

// Encoder wraps an ffmpeg rawvideo-stdin encode process.
type Encoder struct {
	target config.Target
	proc   *ffmpegio.StdinEncoder
	sink   ChunkSink

	framesSubmitted int64
}

// New creates an unconfigured Encoder for the given output target.
func New(target config.Target) *Encoder {
	return &Encoder{target: target}
}

// Start launches the ffmpeg subprocess writing to outputPath.
func (e *Encoder) Start(ctx context.Context, outputPath string, onProgress ffmpegio.ProgressFunc) error {
	args := buildArgs(e.target, outputPath)
	proc, err := ffmpegio.StartStdinEncoder(ctx, args, onProgress)
	if err != nil {
		return errors.Wrap(errors.KindEncoder, "failed to start video encoder", err)
	}
	e.proc = proc
	return nil
}

func buildArgs(target config.Target, outputPath string) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "yuv420p10le",
		"-s", fmt.Sprintf("%dx%d", target.Width, target.Height),
		"-r", strconv.Itoa(target.FrameRate),
		"-i", "pipe:0",
		"-c:v", target.VideoCodec,
	}
	if target.VideoBitrate > 0 {
		args = append(args, "-b:v", fmt.Sprintf("%dk", target.VideoBitrate/1000))
	}
	args = append(args, "-an", outputPath)
	return args
}

// SubmitFrame writes one rendered frame's raw pixel bytes to the encoder's
// stdin, in ascending frame-index order (the caller, FrameReassembler,
// guarantees ordering).
func (e *Encoder) SubmitFrame(frame *planar.Frame) error {
	if e.proc == nil {
		return errors.New(errors.KindEncoder, "video encoder not started")
	}
	if _, err := e.proc.Stdin().Write(frame.Pixels); err != nil {
		return errors.Wrap(errors.KindEncoder, "failed to write frame to encoder", err)
	}
	e.framesSubmitted++
	return nil
}

// Finish closes stdin and waits for ffmpeg to exit, surfacing an
// EncoderError (KindEncoder) on failure per spec §4.9.
func (e *Encoder) Finish() error {
	if e.proc == nil {
		return nil
	}
	if err := e.proc.CloseStdin(); err != nil {
		return errors.Wrap(errors.KindEncoder, "failed to close encoder stdin", err)
	}
	return e.proc.Wait()
}

// Abort kills the encoder subprocess, used on cancellation.
func (e *Encoder) Abort() error {
	if e.proc == nil {
		return nil
	}
	return e.proc.Kill()
}

// FramesSubmitted returns the number of frames written so far.
func (e *Encoder) FramesSubmitted() int64 { return e.framesSubmitted }
