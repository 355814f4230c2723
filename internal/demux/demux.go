// Package demux parses an input container and yields encoded video chunks
// in decode order starting from a requested keyframe, grounded on the
// donor's FFMS2 index (internal/ffmsdecode, adapted from
// internal/ffms/ffms.go) for keyframe lookup and internal/probe for
// container/codec identification.
package demux

import (
	"context"

	"github.com/clipforge/exporter/internal/errors"
	"github.com/clipforge/exporter/internal/ffmsdecode"
	"github.com/clipforge/exporter/internal/probe"
)

// ChunkKind distinguishes keyframes from delta frames.
type ChunkKind int

const (
	ChunkDelta ChunkKind = iota
	ChunkKey
)

// EncodedChunk is one decode-ordered unit handed to the VideoDecoder. It
// carries no bitstream bytes: FrameIdx names the FFMS2 frame Decode fetches.
type EncodedChunk struct {
	Kind      ChunkKind
	Timestamp int64 // microseconds, source timeline
	Duration  int64 // microseconds
	FrameIdx  int   // FFMS2 frame index, used to drive DecodeFrame
}

// Config is the result of Initialize: everything the decoder and renderer
// need to know about the source track.
type Config struct {
	Width, Height int
	DurationS     float64
	EstFPS        float64
	Container     probe.ContainerFamily
	CodecName     string
}

// Demuxer parses a container and walks its video track in decode order.
type Demuxer struct {
	path  string
	idx   *ffmsdecode.Index
	info  *ffmsdecode.Info
	cfg   Config
}

// New creates an uninitialized Demuxer for path.
func New(path string) *Demuxer {
	return &Demuxer{path: path}
}

// recognizedContainers is the set of wrapping formats the pipeline accepts.
var recognizedContainers = map[probe.ContainerFamily]bool{
	probe.ContainerMP4:  true,
	probe.ContainerWebM: true,
	probe.ContainerMKV:  true,
	probe.ContainerMOV:  true,
}

// Initialize identifies the container, locates the primary video track,
// and builds a codec configuration. All failures abort initialization and
// release internal resources.
func (d *Demuxer) Initialize(ctx context.Context) (Config, error) {
	family, err := probe.SniffContainer(d.path)
	if err != nil {
		return Config{}, err
	}

	info, err := probe.Probe(ctx, d.path)
	if err != nil {
		if errors.IsKind(err, errors.KindNoVideoTrack) {
			return Config{}, err
		}
		return Config{}, errors.Wrap(errors.KindCorruptInput, "probe failed", err)
	}

	if family == probe.ContainerUnknown {
		family = info.Container
	}
	if !recognizedContainers[family] {
		return Config{}, errors.New(errors.KindUnsupportedContainer, "container format not recognized")
	}

	idx, err := ffmsdecode.OpenIndex(d.path)
	if err != nil {
		d.Destroy()
		return Config{}, errors.Wrap(errors.KindCorruptInput, "failed to index input", err)
	}
	d.idx = idx

	ffmsInfo, err := ffmsdecode.GetInfo(idx)
	if err != nil {
		d.Destroy()
		return Config{}, errors.Wrap(errors.KindUnsupportedCodec, "decoder support probe failed", err)
	}
	d.info = ffmsInfo

	fps := info.Video.FrameRate
	if fps <= 0 && ffmsInfo.FPSDen > 0 {
		fps = float64(ffmsInfo.FPSNum) / float64(ffmsInfo.FPSDen)
	}

	d.cfg = Config{
		Width:     ffmsInfo.Width,
		Height:    ffmsInfo.Height,
		DurationS: info.DurationSec,
		EstFPS:    fps,
		Container: family,
		CodecName: info.Video.CodecName,
	}
	return d.cfg, nil
}

// ChunksFrom returns the decode-ordered chunk sequence starting at frame
// int(startS*fps) (fps is 30 when unknown), stopping once a chunk's
// timestamp reaches endS (a negative endS means unbounded). The first chunk
// is marked ChunkKey and every later one ChunkDelta; the walk does not move
// back to a preceding keyframe, and neither the FFMS2 index nor container
// flags are consulted for keyframe status.
func (d *Demuxer) ChunksFrom(startS, endS float64) ([]EncodedChunk, error) {
	if d.info == nil {
		return nil, errors.New(errors.KindDecoder, "demuxer not initialized")
	}

	fps := d.cfg.EstFPS
	if fps <= 0 {
		fps = 30
	}
	startFrame := int(startS * fps)
	if startFrame < 0 {
		startFrame = 0
	}

	chunks := make([]EncodedChunk, 0, d.info.FrameCount-startFrame)
	for i := startFrame; i < d.info.FrameCount; i++ {
		tsUS := int64(float64(i) / fps * 1_000_000)
		if endS >= 0 && float64(tsUS)/1_000_000 >= endS {
			break
		}
		kind := ChunkDelta
		if i == startFrame {
			kind = ChunkKey
		}
		chunks = append(chunks, EncodedChunk{
			Kind:      kind,
			Timestamp: tsUS,
			Duration:  int64(1_000_000 / fps),
			FrameIdx:  i,
		})
	}
	return chunks, nil
}

// SeekToKeyframe returns the source-timeline millisecond position of the
// frame at tS, clamped to the first and last frame, or -1 if the source has
// no frames or no known frame rate. It does not look up keyframes: the
// position returned is that of the frame at tS itself.
func (d *Demuxer) SeekToKeyframe(tS float64) int64 {
	fps := d.cfg.EstFPS
	if fps <= 0 || d.info == nil || d.info.FrameCount == 0 {
		return -1
	}
	frame := int(tS * fps)
	if frame >= d.info.FrameCount {
		frame = d.info.FrameCount - 1
	}
	if frame < 0 {
		frame = 0
	}
	return int64(float64(frame) / fps * 1000)
}

// Info exposes the FFMS2 stream info for callers (e.g. VideoDecoder) that
// need to open their own decode source against the same index.
func (d *Demuxer) Info() *ffmsdecode.Info { return d.info }

// Index exposes the underlying FFMS2 index.
func (d *Demuxer) Index() *ffmsdecode.Index { return d.idx }

// Destroy releases internal resources. Idempotent.
func (d *Demuxer) Destroy() {
	if d.idx != nil {
		d.idx.Close()
		d.idx = nil
	}
}
