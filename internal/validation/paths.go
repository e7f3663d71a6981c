// Package validation checks names that end up as path components under a
// staging directory.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFilename validates a single path component such as a table id.
//
// Returns an error if the name:
//   - Is empty
//   - Contains path separators (/ or \)
//   - Is "." or ".."
//   - Contains null bytes
func ValidateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	if strings.ContainsRune(filename, 0) {
		return fmt.Errorf("filename contains null byte: %q", filename)
	}

	if strings.ContainsAny(filename, `/\`) {
		return fmt.Errorf("filename cannot contain path separators: %s", filename)
	}

	// Separators are already rejected, so "foo..bar.csv" is fine here.
	if filename == ".." || filename == "." {
		return fmt.Errorf("filename cannot be %q", filename)
	}

	return nil
}

// ValidatePathInDirectory validates that a relative path, when joined onto
// baseDir, stays within baseDir. Slash-separated paths are accepted on every
// platform.
//
// Example:
//
//	ValidatePathInDirectory("../../etc/passwd", "/data/out/files") // Error: escapes base dir
//	ValidatePathInDirectory("reports/q1.csv", "/data/out/files")   // OK: within base dir
func ValidatePathInDirectory(path string, baseDir string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if baseDir == "" {
		return fmt.Errorf("base directory cannot be empty")
	}
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("path contains null byte: %q", path)
	}

	cleanPath := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(cleanPath) || filepath.VolumeName(cleanPath) != "" {
		return fmt.Errorf("path must be relative: %s", path)
	}

	cleanBase, err := filepath.Abs(filepath.Clean(baseDir))
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %w", err)
	}

	relPath, err := filepath.Rel(cleanBase, filepath.Join(cleanBase, cleanPath))
	if err != nil {
		return fmt.Errorf("failed to compute relative path: %w", err)
	}

	if relPath == "." || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s (base: %s)", path, baseDir)
	}

	return nil
}
