package util

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// MinTempSpaceMB is the minimum free space recommended for export temp
// files (video/audio remux intermediates), in megabytes.
const MinTempSpaceMB = 200

// TempDir is a temporary directory with caller-driven cleanup.
type TempDir struct {
	path string
}

// Path returns the directory path.
func (t *TempDir) Path() string {
	return t.path
}

// Cleanup removes the directory and everything under it.
func (t *TempDir) Cleanup() error {
	if t.path == "" {
		return nil
	}
	return os.RemoveAll(t.path)
}

// TempFile is a temporary file with caller-driven cleanup.
type TempFile struct {
	*os.File
	path string
}

// Cleanup closes and removes the file.
func (t *TempFile) Cleanup() error {
	var closeErr error
	if t.File != nil {
		closeErr = t.Close()
	}
	if t.path == "" {
		return closeErr
	}
	if err := os.Remove(t.path); err != nil {
		return err
	}
	return closeErr
}

// EnsureDirectoryWritable checks that path exists, is a directory, and
// accepts new files.
func EnsureDirectoryWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testPath := filepath.Join(path, ".exporter_write_test")
	f, err := os.Create(testPath)
	if err != nil {
		return fmt.Errorf("directory is not writable: %s", path)
	}
	_ = f.Close()
	_ = os.Remove(testPath)
	return nil
}

// GetAvailableSpace returns the free space in bytes at path, or 0 if it
// cannot be determined.
func GetAvailableSpace(path string) uint64 {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0
	}
	return stat.Bavail * uint64(stat.Bsize)
}

// CheckDiskSpace reports whether free space at path meets MinTempSpaceMB,
// logging a warning through logger (if non-nil) when it doesn't. Returns
// true when space is sufficient or cannot be determined.
func CheckDiskSpace(path string, logger func(format string, args ...any)) bool {
	available := GetAvailableSpace(path)
	if available == 0 {
		return true
	}

	availableMB := available / (1024 * 1024)
	if availableMB < MinTempSpaceMB {
		if logger != nil {
			logger("low disk space in %s: %d MB available (recommend at least %d MB)",
				path, availableMB, MinTempSpaceMB)
		}
		return false
	}
	return true
}

// CreateTempDir creates a randomly-suffixed directory under baseDir. The
// caller must call Cleanup when done.
func CreateTempDir(baseDir, prefix string) (*TempDir, error) {
	if err := EnsureDirectoryWritable(baseDir); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	CheckDiskSpace(baseDir, nil)

	suffix, err := generateRandomString(8)
	if err != nil {
		return nil, fmt.Errorf("failed to generate random string: %w", err)
	}

	dirPath := filepath.Join(baseDir, fmt.Sprintf("%s_%s", prefix, suffix))
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory in %s: %w", baseDir, err)
	}
	return &TempDir{path: dirPath}, nil
}

// CreateTempFile creates a randomly-suffixed file under dir. The caller
// must call Cleanup when done.
func CreateTempFile(dir, prefix, extension string) (*TempFile, error) {
	if err := EnsureDirectoryWritable(dir); err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	suffix, err := generateRandomString(8)
	if err != nil {
		return nil, fmt.Errorf("failed to generate random string: %w", err)
	}

	filePath := filepath.Join(dir, fmt.Sprintf("%s_%s.%s", prefix, suffix, extension))
	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	return &TempFile{File: f, path: filePath}, nil
}

// CreateTempFilePath returns a randomly-suffixed path under dir without
// creating the file. Validates dir exists and is writable first.
func CreateTempFilePath(dir, prefix, extension string) (string, error) {
	if err := EnsureDirectoryWritable(dir); err != nil {
		return "", fmt.Errorf("failed to create temp file path: %w", err)
	}

	suffix, err := generateRandomString(8)
	if err != nil {
		return "", fmt.Errorf("failed to generate random string: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.%s", prefix, suffix, extension))
	if _, err := os.Stat(path); err == nil {
		return CreateTempFilePath(dir, prefix, extension)
	}
	return path, nil
}

// CleanupStaleTempFiles removes top-level files under dir whose name
// starts with prefix+"_" and whose mtime is older than maxAgeHours.
// Returns the number of files removed.
func CleanupStaleTempFiles(dir, prefix string, maxAgeHours uint64) (int, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}

	cleaned := 0
	maxAge := time.Duration(maxAgeHours) * time.Hour
	now := time.Now()
	prefixMatch := prefix + "_"

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasPrefix(d.Name(), prefixMatch) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if now.Sub(info.ModTime()) > maxAge {
			if err := os.Remove(path); err == nil {
				cleaned++
			}
		}
		return nil
	})
	if err != nil {
		return cleaned, fmt.Errorf("failed to read temp directory for cleanup: %w", err)
	}
	return cleaned, nil
}

func generateRandomString(length int) (string, error) {
	b := make([]byte, (length+1)/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b)[:length], nil
}
