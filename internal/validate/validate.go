// Package validate checks a finished export against the request it was
// built from — dimensions, duration, and audio track count — before the
// exporter reports success, restoring a check the spec's distillation
// dropped. An optional GPU perceptual score is attached when available.
package validate

import (
	"context"
	"fmt"
	"math"

	"github.com/clipforge/exporter/internal/planar"
	"github.com/clipforge/exporter/internal/probe"
	"github.com/clipforge/exporter/internal/quality"
)

const durationToleranceSecs = 1.0

// Options carries the expected shape of the output, derived from the
// export plan.
type Options struct {
	ExpectedWidth       int
	ExpectedHeight      int
	ExpectedDurationS   float64
	ExpectedAudioTracks int
}

// Result is the outcome of validating one export.
type Result struct {
	IsDimensionsCorrect      bool
	IsDurationCorrect        bool
	IsAudioTrackCountCorrect bool

	ActualWidth, ActualHeight int
	ActualDurationS           float64
	ActualAudioTracks         int

	DimensionsMessage string
	DurationMessage   string
	AudioMessage      string

	QualityAvailable bool
	QualityScore     *float64
	QualityReason    string
}

// IsValid reports whether every check passed. Quality is advisory and
// never affects validity.
func (r *Result) IsValid() bool {
	return r.IsDimensionsCorrect && r.IsDurationCorrect && r.IsAudioTrackCountCorrect
}

// GetFailures describes every failed check.
func (r *Result) GetFailures() []string {
	var failures []string
	if !r.IsDimensionsCorrect {
		failures = append(failures, "dimensions: "+r.DimensionsMessage)
	}
	if !r.IsDurationCorrect {
		failures = append(failures, "duration: "+r.DurationMessage)
	}
	if !r.IsAudioTrackCountCorrect {
		failures = append(failures, "audio tracks: "+r.AudioMessage)
	}
	return failures
}

// ValidateOutput probes outputPath and compares it against opts.
func ValidateOutput(ctx context.Context, outputPath string, opts Options) (*Result, error) {
	info, err := probe.Probe(ctx, outputPath)
	if err != nil {
		return nil, fmt.Errorf("validate: failed to probe output: %w", err)
	}

	r := &Result{
		ActualWidth:       info.Video.Width,
		ActualHeight:      info.Video.Height,
		ActualDurationS:   info.DurationSec,
		ActualAudioTracks: len(info.Audio),
	}

	r.IsDimensionsCorrect, r.DimensionsMessage = validateDimensions(
		info.Video.Width, info.Video.Height, opts.ExpectedWidth, opts.ExpectedHeight)
	r.IsDurationCorrect, r.DurationMessage = validateDuration(info.DurationSec, opts.ExpectedDurationS)
	r.IsAudioTrackCountCorrect, r.AudioMessage = validateAudioTracks(len(info.Audio), opts.ExpectedAudioTracks)

	avail := quality.Probe()
	r.QualityAvailable = avail.Available
	if !avail.Available {
		r.QualityReason = avail.Reason
	}

	return r, nil
}

func validateDimensions(actualW, actualH, expectedW, expectedH int) (bool, string) {
	if expectedW == 0 && expectedH == 0 {
		return true, "no dimension expectation set"
	}
	if actualW == expectedW && actualH == expectedH {
		return true, fmt.Sprintf("dimensions match: %dx%d", actualW, actualH)
	}
	return false, fmt.Sprintf("dimension mismatch: got %dx%d, expected %dx%d", actualW, actualH, expectedW, expectedH)
}

func validateDuration(actual, expected float64) (bool, string) {
	if expected == 0 {
		return true, "no duration expectation set"
	}
	diff := math.Abs(actual - expected)
	if diff <= durationToleranceSecs {
		return true, fmt.Sprintf("duration matches request (%.2fs)", actual)
	}
	return false, fmt.Sprintf("duration mismatch: got %.2fs, expected %.2fs (diff %.2fs)", actual, expected, diff)
}

func validateAudioTracks(actual, expected int) (bool, string) {
	if expected == 0 {
		return true, "no audio track expectation set"
	}
	if actual == expected {
		return true, fmt.Sprintf("audio track count matches: %d", actual)
	}
	return false, fmt.Sprintf("audio track count mismatch: got %d, expected %d", actual, expected)
}

// AttachQualityScore records a measured SSIMULACRA2 score on r, averaged
// from SampleQuality's per-pair scores by the caller.
func AttachQualityScore(r *Result, score float64) {
	r.QualityAvailable = true
	r.QualityScore = &score
}

// FramePair is one evenly-spaced (source, output) sample for SampleQuality.
type FramePair struct {
	Source *planar.Frame
	Output *planar.Frame
}

// SampleQuality scores each of pairs with scorer and returns the mean.
// Callers decode and own the frame pairs (the exporter drives
// framesource/decoder to produce them); this keeps validate free of
// decode-pipeline wiring concerns.
func SampleQuality(scorer *quality.Scorer, pairs []FramePair) (float64, error) {
	if len(pairs) == 0 {
		return 0, fmt.Errorf("validate: no frame pairs to score")
	}
	var sum float64
	for _, p := range pairs {
		score, err := scorer.Score(p.Source, p.Output)
		if err != nil {
			return 0, err
		}
		sum += score
	}
	return sum / float64(len(pairs)), nil
}
