// Package pathsafety validates recording filenames and resolves them
// within a single sandboxed recordings directory, per the capture
// subsystem's file-naming contract.
package pathsafety

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// filenamePattern matches the capture subsystem's naming contract:
// (recording|camera|mic|system-audio)-{13 or 14 digit timestamp}.{ext}
var filenamePattern = regexp.MustCompile(`^(recording|camera|mic|system-audio)-\d{13,14}\.[a-z0-9]+$`)

// Kind identifies which capture track a filename names.
type Kind string

const (
	KindRecording   Kind = "recording"
	KindCamera      Kind = "camera"
	KindMic         Kind = "mic"
	KindSystemAudio Kind = "system-audio"
)

// ParsedName is a filename that matched the naming contract.
type ParsedName struct {
	Kind      Kind
	Timestamp string
	Ext       string
}

// ValidateFilename checks name against the capture subsystem's naming
// contract, returning the parsed kind/timestamp on success.
func ValidateFilename(name string) (ParsedName, error) {
	if !filenamePattern.MatchString(name) {
		return ParsedName{}, fmt.Errorf("filename %q does not match naming contract", name)
	}

	// name is kind-timestamp.ext; split on the last '.' for ext and the
	// first '-' for kind (system-audio itself contains a hyphen, so split
	// kind off by trimming the matched literal prefixes instead of a raw
	// Split).
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for _, k := range []Kind{KindSystemAudio, KindRecording, KindCamera, KindMic} {
		prefix := string(k) + "-"
		if strings.HasPrefix(base, prefix) {
			return ParsedName{
				Kind:      k,
				Timestamp: strings.TrimPrefix(base, prefix),
				Ext:       strings.TrimPrefix(ext, "."),
			}, nil
		}
	}
	return ParsedName{}, fmt.Errorf("filename %q does not match naming contract", name)
}

// Resolve validates name against the naming contract and resolves it to an
// absolute path inside recordingsDir, rejecting any path that would escape
// the directory (e.g. via ".." components or a symlink-free traversal).
func Resolve(recordingsDir, name string) (string, error) {
	if _, err := ValidateFilename(name); err != nil {
		return "", err
	}

	dirAbs, err := filepath.Abs(recordingsDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve recordings directory: %w", err)
	}

	candidate := filepath.Join(dirAbs, name)
	candidateAbs, err := filepath.Abs(candidate)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	rel, err := filepath.Rel(dirAbs, candidateAbs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes recordings directory %q", name, recordingsDir)
	}

	if _, err := os.Stat(candidateAbs); err != nil {
		return "", fmt.Errorf("input not found: %s", candidateAbs)
	}

	return candidateAbs, nil
}

// ListRecordings returns every file in recordingsDir that matches the
// naming contract for the given kind, sorted by timestamp.
func ListRecordings(recordingsDir string, kind Kind) ([]string, error) {
	entries, err := os.ReadDir(recordingsDir)
	if err != nil {
		return nil, fmt.Errorf("cannot read recordings directory %s: %w", recordingsDir, err)
	}

	type match struct {
		name   string
		parsed ParsedName
	}
	var matches []match
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		parsed, err := ValidateFilename(entry.Name())
		if err != nil || parsed.Kind != kind {
			continue
		}
		matches = append(matches, match{name: entry.Name(), parsed: parsed})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].parsed.Timestamp < matches[j].parsed.Timestamp })

	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = filepath.Join(recordingsDir, m.name)
	}
	return out, nil
}
