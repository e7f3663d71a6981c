package staging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/rescale/rescale-staging/internal/constants"
	"github.com/rescale/rescale-staging/internal/diskspace"
	"github.com/rescale/rescale-staging/internal/secret"
)

// Provider is a bound handle giving access to one or more axes of a staging type.
// It is created once per run and owned by the strategy factory holding it.
type Provider interface {
	// Cleanup releases ephemeral resources held by the provider. It is called at
	// most once, at the end of the run.
	Cleanup(ctx context.Context) error
}

// PathProvider is the filesystem capability.
type PathProvider interface {
	Provider
	// Path returns the directory backing the provider.
	Path() (string, error)
}

// WorkspaceCapability is the remote workspace capability.
type WorkspaceCapability interface {
	Provider
	// WorkspaceID returns the id of the remote workspace.
	WorkspaceID() (string, error)
	// Credentials returns the backend-specific connection settings.
	Credentials() (secret.Map, error)
}

// Describe names p for logs and plan output.
func Describe(p Provider) string {
	if p == nil {
		return "-"
	}
	if s, ok := p.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", p)
}

// LocalProvider serves a directory on local disk.
type LocalProvider struct {
	path      string
	ephemeral bool
}

var _ PathProvider = (*LocalProvider)(nil)

// NewLocalProvider wraps an existing directory. Cleanup leaves it in place.
func NewLocalProvider(path string) (*LocalProvider, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: local staging path is empty", ErrConfiguration)
	}
	return &LocalProvider{path: filepath.Clean(trimmed)}, nil
}

// NewTemporaryLocalProvider creates a fresh directory under baseDir that is
// removed by Cleanup.
func NewTemporaryLocalProvider(baseDir string) (*LocalProvider, error) {
	if strings.TrimSpace(baseDir) == "" {
		baseDir = os.TempDir()
	}
	dir := filepath.Join(filepath.Clean(baseDir), constants.TemporaryDirPrefix+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create temporary staging directory: %w", err)
	}
	if err := diskspace.CheckDir(dir, constants.MinTemporaryFreeBytes); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("create temporary staging directory: %w", err)
	}
	return &LocalProvider{path: dir, ephemeral: true}, nil
}

// Path returns the directory.
func (p *LocalProvider) Path() (string, error) {
	return p.path, nil
}

// Cleanup removes the directory if the provider created it.
func (p *LocalProvider) Cleanup(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.ephemeral {
		return nil
	}
	if err := os.RemoveAll(p.path); err != nil {
		return fmt.Errorf("remove temporary staging directory %s: %w", p.path, err)
	}
	return nil
}

// String describes the provider for logs and plan output.
func (p *LocalProvider) String() string {
	return "local:" + p.path
}

// NullProvider stands in for an axis a backend does not need. Any attempt to
// use it as a path or workspace fails.
type NullProvider struct{}

var (
	_ PathProvider        = NullProvider{}
	_ WorkspaceCapability = NullProvider{}
)

// Path always fails.
func (NullProvider) Path() (string, error) {
	return "", fmt.Errorf("%w: null provider has no path", ErrNotImplemented)
}

// WorkspaceID always fails.
func (NullProvider) WorkspaceID() (string, error) {
	return "", fmt.Errorf("%w: null provider has no workspace id", ErrNotImplemented)
}

// Credentials returns an empty map.
func (NullProvider) Credentials() (secret.Map, error) {
	return secret.Map{}, nil
}

// Cleanup does nothing.
func (NullProvider) Cleanup(context.Context) error {
	return nil
}

// String describes the provider for logs and plan output.
func (NullProvider) String() string {
	return "null"
}
