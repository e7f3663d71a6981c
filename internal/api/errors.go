package api

import (
	"errors"
	"fmt"
	nethttp "net/http"
	"strings"
)

// ErrNotFound indicates the requested resource does not exist (HTTP 404).
var ErrNotFound = errors.New("resource not found")

// Error is a non-success response from the workspace-management API.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	// Message is the "error" field of the response body when present,
	// otherwise the raw body.
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s failed: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Unwrap maps 404 responses onto ErrNotFound.
func (e *Error) Unwrap() error {
	if e.StatusCode == nethttp.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// IsNotFoundError checks if an error indicates a missing resource.
//
// Usage:
//
//	err := client.DeleteWorkspace(ctx, id)
//	if api.IsNotFoundError(err) {
//	    // already gone
//	}
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StatusCode returns the HTTP status of an API error, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func errorMessage(body []byte) string {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	return msg
}
