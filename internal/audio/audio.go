// Package audio decodes audio inputs to PCM, extracts a time-aligned
// sample range, and mixes multiple inputs with per-input gain, grounded
// on the donor's ffprobe channel-count probing (internal/ffprobe) and the
// ffmpeg subprocess idiom (internal/ffmpegio), retargeted from whole-file
// audio passthrough to an explicit decode-extract-mix pipeline the
// exporter drives in lockstep with the video timeline.
package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/clipforge/exporter/internal/errors"
	"github.com/clipforge/exporter/internal/ffmpegio"
	"github.com/clipforge/exporter/internal/probe"
)

// FileInfo is the result of loading an audio input.
type FileInfo struct {
	SampleRate   int
	Channels     int
	DurationS    float64
	TotalSamples int64
}

// Decoder decodes one audio input file to interleaved float32 PCM via an
// ffmpeg subprocess.
type Decoder struct {
	path string
	info FileInfo
}

// NewDecoder creates a Decoder for path.
func NewDecoder(path string) *Decoder {
	return &Decoder{path: path}
}

// Load probes path for sample rate, channel count, and duration.
func (d *Decoder) Load(ctx context.Context) (FileInfo, error) {
	p, err := probe.Probe(ctx, d.path)
	if err != nil {
		return FileInfo{}, err
	}
	if len(p.Audio) == 0 {
		return FileInfo{}, errors.New(errors.KindNoVideoTrack, fmt.Sprintf("no audio track in %s", d.path))
	}
	a := p.Audio[0]
	d.info = FileInfo{
		SampleRate:   a.SampleHz,
		Channels:     a.Channels,
		DurationS:    p.DurationSec,
		TotalSamples: int64(p.DurationSec * float64(a.SampleHz)),
	}
	return d.info, nil
}

// Extract decodes the [startMS, endMS) sample range to interleaved
// float32 PCM at the source's native sample rate, using ffmpeg's -ss/-to
// trimming and f32le output format.
func (d *Decoder) Extract(ctx context.Context, startMS, endMS int64) ([]float32, error) {
	args := []string{
		"-y",
		"-ss", ffmpegio.FormatTimecode(float64(startMS) / 1000),
		"-to", ffmpegio.FormatTimecode(float64(endMS) / 1000),
		"-i", d.path,
		"-f", "f32le",
		"-ac", fmt.Sprintf("%d", d.info.Channels),
		"-ar", fmt.Sprintf("%d", d.info.SampleRate),
		"pipe:1",
	}
	raw, err := ffmpegio.RunCapture(ctx, "ffmpeg", args...)
	if err != nil {
		return nil, err
	}
	return bytesToFloat32(raw), nil
}

func bytesToFloat32(raw []byte) []float32 {
	out := make([]float32, len(raw)/4)
	for i := range out {
		bits := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
		out[i] = math.Float32frombits(bits)
	}
	return out
}

// Mixer combines multiple per-input PCM buffers, applying per-input gain,
// into a single interleaved output. It takes no target sample rate and
// does not resample.
type Mixer struct{}

// NewMixer creates a Mixer.
func NewMixer() *Mixer { return &Mixer{} }

// Mix sums buffers[i]*gains[i] sample-by-sample, clamping to [-1, 1] to
// avoid clipping artifacts from a combined gain over 1.0. Buffers must
// already share one sample rate and channel count; nothing in this package
// resamples (Extract's -ar flag keeps each input at its own native rate),
// so buffers at different rates are summed without conversion.
func (m *Mixer) Mix(buffers [][]float32, gains []float64) ([]float32, error) {
	if len(buffers) != len(gains) {
		return nil, fmt.Errorf("audio: mixer got %d buffers but %d gains", len(buffers), len(gains))
	}
	if len(buffers) == 0 {
		return nil, nil
	}
	maxLen := 0
	for _, b := range buffers {
		if len(b) > maxLen {
			maxLen = len(b)
		}
	}
	out := make([]float32, maxLen)
	for i, b := range buffers {
		gain := float32(gains[i])
		for j, s := range b {
			out[j] += s * gain
		}
	}
	for i, s := range out {
		if s > 1 {
			out[i] = 1
		} else if s < -1 {
			out[i] = -1
		}
	}
	return out, nil
}

// Encoder pipes mixed PCM into an ffmpeg audio encode, producing the final
// audio stream the Muxer combines with video.
type Encoder struct {
	codec      string
	bitrate    int
	sampleRate int
	channels   int
}

// NewEncoder creates an audio Encoder targeting codec at bitrate bps.
func NewEncoder(codec string, bitrate, sampleRate, channels int) *Encoder {
	return &Encoder{codec: codec, bitrate: bitrate, sampleRate: sampleRate, channels: channels}
}

// EncodeToFile writes pcm to outputPath using codec, via an ffmpeg
// f32le-stdin subprocess.
func (e *Encoder) EncodeToFile(ctx context.Context, pcm []float32, outputPath string) error {
	args := []string{
		"-y",
		"-f", "f32le",
		"-ar", fmt.Sprintf("%d", e.sampleRate),
		"-ac", fmt.Sprintf("%d", e.channels),
		"-i", "pipe:0",
		"-c:a", e.codec,
		"-b:a", fmt.Sprintf("%dk", e.bitrate/1000),
		outputPath,
	}
	proc, err := ffmpegio.StartStdinEncoder(ctx, args, nil)
	if err != nil {
		return errors.Wrap(errors.KindEncoder, "failed to start audio encoder", err)
	}
	buf := make([]byte, len(pcm)*4)
	for i, s := range pcm {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	if _, err := proc.Stdin().Write(buf); err != nil {
		return errors.Wrap(errors.KindEncoder, "failed to write PCM to audio encoder", err)
	}
	if err := proc.CloseStdin(); err != nil {
		return errors.Wrap(errors.KindEncoder, "failed to close audio encoder stdin", err)
	}
	return proc.Wait()
}
