// Package config provides the export plan types and defaults for the
// export pipeline.
package config

import "errors"

// Sentinel errors for plan validation.
var (
	// ErrMissingVideoURL indicates an ExportPlan with no video_url.
	ErrMissingVideoURL = errors.New("video_url is required")

	// ErrInvalidFrameRate indicates a target frame rate outside 15-60.
	ErrInvalidFrameRate = errors.New("frame_rate out of range")

	// ErrOverlappingTrims indicates two trim regions overlap.
	ErrOverlappingTrims = errors.New("trim regions overlap")

	// ErrInvalidGain indicates an audio input gain outside 0.0-2.0.
	ErrInvalidGain = errors.New("audio gain out of range")
)
