// Package probe inspects input media with ffprobe, identifying container
// family, codec, and stream geometry ahead of demuxing. Grounded on the
// donor ffprobe JSON-parsing idiom, extended with container-family
// classification and a magic-byte sniff so the exporter can reject
// unsupported inputs before spawning a decoder.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/clipforge/exporter/internal/errors"
	"github.com/clipforge/exporter/internal/ffmpegio"
)

// ContainerFamily classifies the input's wrapping format.
type ContainerFamily string

const (
	ContainerMP4  ContainerFamily = "mp4"
	ContainerWebM ContainerFamily = "webm"
	ContainerMKV  ContainerFamily = "mkv"
	ContainerMOV  ContainerFamily = "mov"
	ContainerUnknown ContainerFamily = "unknown"
)

// VideoStream describes the primary video stream of a probed input.
type VideoStream struct {
	CodecName   string
	Width       int
	Height      int
	FrameRate   float64
	DurationSec float64
	TotalFrames int64
	PixFmt      string
}

// AudioStream describes one audio stream of a probed input.
type AudioStream struct {
	Index     int
	CodecName string
	Channels  int
	SampleHz  int
}

// Info is the full probe result for one input file.
type Info struct {
	Container   ContainerFamily
	DurationSec float64
	Video       *VideoStream
	Audio       []AudioStream
}

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

type ffprobeStream struct {
	Index         int    `json:"index"`
	CodecType     string `json:"codec_type"`
	CodecName     string `json:"codec_name"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	RFrameRate    string `json:"r_frame_rate"`
	NbFrames      string `json:"nb_frames"`
	Duration      string `json:"duration"`
	Channels      int    `json:"channels"`
	SampleRate    string `json:"sample_rate"`
	PixFmt        string `json:"pix_fmt"`
}

// magic byte signatures used to classify a container independent of
// extension, since recordings arrive under the capture naming contract
// (recording-<ts>.<ext>) rather than a trusted file extension.
var magicSniffs = []struct {
	family ContainerFamily
	check  func([]byte) bool
}{
	{ContainerWebM, func(b []byte) bool { return len(b) >= 4 && b[0] == 0x1A && b[1] == 0x45 && b[2] == 0xDF && b[3] == 0xA3 }},
	{ContainerMP4, func(b []byte) bool { return len(b) >= 8 && string(b[4:8]) == "ftyp" }},
}

// SniffContainer reads the leading bytes of path and classifies its
// container family by magic number, ignoring any file extension.
func SniffContainer(path string) (ContainerFamily, error) {
	f, err := os.Open(path)
	if err != nil {
		return ContainerUnknown, errors.Wrap(errors.KindInputNotFound, "cannot open input", err)
	}
	defer f.Close()

	buf := make([]byte, 16)
	n, _ := f.Read(buf)
	buf = buf[:n]

	for _, s := range magicSniffs {
		if s.check(buf) {
			return s.family, nil
		}
	}
	return ContainerUnknown, nil
}

// Probe runs ffprobe against path and returns structured stream info.
func Probe(ctx context.Context, path string) (*Info, error) {
	out, err := ffmpegio.RunCapture(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return nil, err
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, errors.Wrap(errors.KindCorruptInput, "failed to parse ffprobe output", err)
	}

	info := &Info{Container: classifyFormat(parsed.Format.FormatName)}
	if d, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
		info.DurationSec = d
	}

	for _, s := range parsed.Streams {
		switch s.CodecType {
		case "video":
			if info.Video != nil {
				continue // primary video stream only
			}
			info.Video = &VideoStream{
				CodecName:   s.CodecName,
				Width:       s.Width,
				Height:      s.Height,
				FrameRate:   parseRational(s.RFrameRate),
				PixFmt:      s.PixFmt,
				DurationSec: info.DurationSec,
			}
			if n, err := strconv.ParseInt(s.NbFrames, 10, 64); err == nil {
				info.Video.TotalFrames = n
			}
		case "audio":
			sampleHz, _ := strconv.Atoi(s.SampleRate)
			info.Audio = append(info.Audio, AudioStream{
				Index:     s.Index,
				CodecName: s.CodecName,
				Channels:  s.Channels,
				SampleHz:  sampleHz,
			})
		}
	}

	if info.Video == nil {
		return nil, errors.New(errors.KindNoVideoTrack, fmt.Sprintf("no video track in %s", path))
	}
	return info, nil
}

func classifyFormat(formatName string) ContainerFamily {
	names := strings.Split(formatName, ",")
	for _, n := range names {
		switch strings.TrimSpace(n) {
		case "mov", "mp4", "m4a", "3gp", "3g2", "mj2":
			return ContainerMP4
		case "matroska", "webm":
			return ContainerWebM
		}
	}
	return ContainerUnknown
}

// parseRational parses an ffprobe "num/den" rate string into a float64.
func parseRational(s string) float64 {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}
