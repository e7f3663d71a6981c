// Package pathutil resolves user-supplied directory paths for local staging
// providers.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveAbsolutePath converts path to an absolute path. A leading ~ expands
// to the home directory. Symlinks are resolved in the EXISTING portion of the
// path and any non-existent components are appended, so a data directory that
// is not created yet still resolves to where it will live.
func ResolveAbsolutePath(path string) (string, error) {
	if path == "" {
		return os.Getwd()
	}

	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = home + path[1:]
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	// Fast path: the whole path exists
	resolved, err := filepath.EvalSymlinks(absPath)
	if err == nil {
		return resolved, nil
	}

	current := absPath
	var remainder []string
	for {
		if _, err := os.Stat(current); err == nil {
			resolved, err := filepath.EvalSymlinks(current)
			if err != nil {
				resolved = current
			}
			// remainder was collected bottom-up
			for i := len(remainder) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, remainder[i])
			}
			return resolved, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return absPath, nil
		}
		remainder = append(remainder, filepath.Base(current))
		current = parent
	}
}

// ResolveUnder resolves path like ResolveAbsolutePath, first joining a
// relative path onto baseDir. Paths starting with ~ are taken as given.
func ResolveUnder(path, baseDir string) (string, error) {
	if path != "" && !filepath.IsAbs(path) && !strings.HasPrefix(path, "~") && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	return ResolveAbsolutePath(path)
}
