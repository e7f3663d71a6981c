// Package diskspace checks free space on the filesystem backing a staging
// directory.
package diskspace

import (
	"errors"
	"fmt"
)

// InsufficientSpaceError indicates that there is not enough disk space available.
type InsufficientSpaceError struct {
	Path           string
	RequiredBytes  int64
	AvailableBytes int64
}

func (e *InsufficientSpaceError) Error() string {
	requiredMB := float64(e.RequiredBytes) / (1024 * 1024)
	availableMB := float64(e.AvailableBytes) / (1024 * 1024)
	return fmt.Sprintf("insufficient disk space for %s: need %.2f MB, have %.2f MB available",
		e.Path, requiredMB, availableMB)
}

// CheckDir checks that the filesystem holding the existing directory dir has
// at least requiredBytes available. If the filesystem cannot be queried the
// check passes and writes are left to fail on their own.
func CheckDir(dir string, requiredBytes int64) error {
	available, err := availableBytes(dir)
	if err != nil {
		return nil
	}
	if available < requiredBytes {
		return &InsufficientSpaceError{
			Path:           dir,
			RequiredBytes:  requiredBytes,
			AvailableBytes: available,
		}
	}
	return nil
}

// IsInsufficientSpaceError reports whether err wraps an InsufficientSpaceError.
func IsInsufficientSpaceError(err error) bool {
	var target *InsufficientSpaceError
	return errors.As(err, &target)
}
