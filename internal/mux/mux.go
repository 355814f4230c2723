// Package mux assembles already-encoded video and audio elementary
// streams into the final output container via a single `ffmpeg -c copy`
// invocation. Container format details beyond stream copy are out of
// scope; the Muxer's job is exactly "combine, don't re-encode, report the
// result".
package mux

import (
	"context"
	"os"

	"github.com/clipforge/exporter/internal/errors"
	"github.com/clipforge/exporter/internal/ffmpegio"
)

// Format is the output container format.
type Format string

const (
	FormatMP4 Format = "mp4"
	FormatGIF Format = "gif"
)

// Result reports the final output file's size and path.
type Result struct {
	Path      string
	SizeBytes int64
}

// Muxer combines an encoded video stream and an optional audio stream
// into outputPath.
type Muxer struct{}

// New creates a Muxer.
func New() *Muxer { return &Muxer{} }

// Mux copies videoPath (and audioPath, if non-empty) into outputPath
// without re-encoding, using ffmpeg's stream-copy mode. GIF output has no
// audio stream by construction; audioPath is ignored for FormatGIF.
func (m *Muxer) Mux(ctx context.Context, videoPath, audioPath, outputPath string, format Format) (Result, error) {
	args := []string{"-y", "-i", videoPath}
	if audioPath != "" && format != FormatGIF {
		args = append(args, "-i", audioPath, "-c", "copy")
	} else {
		args = append(args, "-c:v", "copy")
	}

	switch format {
	case FormatMP4:
		args = append(args, "-f", "mp4")
	case FormatGIF:
		args = append(args, "-f", "gif")
	}
	args = append(args, outputPath)

	if _, err := ffmpegio.RunCapture(ctx, "ffmpeg", args...); err != nil {
		return Result{}, errors.Wrap(errors.KindMuxer, "failed to mux output", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return Result{}, errors.Wrap(errors.KindMuxer, "mux reported success but output is missing", err)
	}
	return Result{Path: outputPath, SizeBytes: info.Size()}, nil
}
