package framesource

import (
	"context"
	"fmt"

	"github.com/clipforge/exporter/internal/ffmpegio"
	"github.com/clipforge/exporter/internal/planar"
	"github.com/clipforge/exporter/internal/probe"
)

// ffmpegSeeker is the production Seeker: every SeekFrame call spawns one
// ffmpeg subprocess that seeks to a timestamp and emits exactly one frame
// of raw 10-bit planar 4:2:0 on stdout, matching internal/planar's layout
// byte-for-byte. Built on internal/ffmpegio, the transport every other
// component that shells out to ffmpeg/ffprobe also uses.
type ffmpegSeeker struct {
	videoURL string
	layout   planar.Layout
}

func newFFmpegSeeker() *ffmpegSeeker {
	return &ffmpegSeeker{}
}

// Initialize probes the input once via ffprobe to learn geometry and
// duration, reusing internal/probe rather than re-deriving ffprobe JSON
// parsing here.
func (s *ffmpegSeeker) Initialize(ctx context.Context, url string) (int, int, int64, error) {
	info, err := probe.Probe(ctx, url)
	if err != nil {
		return 0, 0, 0, err
	}
	s.videoURL = url
	s.layout = planar.NewLayout(info.Video.Width, info.Video.Height)
	durationMS := int64(info.DurationSec * 1000)
	return info.Video.Width, info.Video.Height, durationMS, nil
}

// SeekFrame shells out to ffmpeg with -ss ahead of -i so the seek is
// performed by the demuxer rather than by decoding and discarding frames,
// then reads exactly one tightly packed rawvideo frame off stdout.
func (s *ffmpegSeeker) SeekFrame(ctx context.Context, timeoutSourceMS int64) (*planar.Frame, error) {
	seconds := float64(timeoutSourceMS) / 1000
	out, err := ffmpegio.RunCapture(ctx, "ffmpeg",
		"-nostdin",
		"-ss", ffmpegio.FormatTimecode(seconds),
		"-i", s.videoURL,
		"-frames:v", "1",
		"-f", "rawvideo",
		"-pix_fmt", "yuv420p10le",
		"-vsync", "0",
		"pipe:1",
	)
	if err != nil {
		return nil, fmt.Errorf("framesource: ffmpeg seek to %dms failed: %w", timeoutSourceMS, err)
	}
	want := s.layout.TotalSize()
	if len(out) < want {
		return nil, fmt.Errorf("framesource: ffmpeg seek to %dms produced %d bytes, want %d", timeoutSourceMS, len(out), want)
	}

	frame := planar.Acquire(s.layout.Width, s.layout.Height)
	copy(frame.Pixels, out[:want])
	return frame, nil
}

func (s *ffmpegSeeker) Close() {}
