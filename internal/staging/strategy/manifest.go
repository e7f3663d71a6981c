package strategy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rescale/rescale-staging/internal/constants"
	"github.com/rescale/rescale-staging/internal/staging"
	"github.com/rescale/rescale-staging/internal/validation"
)

// Manifest formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ParseFormat normalizes a manifest format name. Empty selects the default.
func ParseFormat(format string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "":
		return constants.DefaultManifestFormat, nil
	case FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unsupported manifest format %q", staging.ErrConfiguration, format)
	}
}

func encodeManifest(format string, v interface{}) ([]byte, error) {
	if format == FormatYAML {
		return yaml.Marshal(v)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// writeManifest writes v to <dir>/<name>.manifest, replacing any previous
// manifest atomically.
func writeManifest(dir, name, format string, v interface{}) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: manifest name is empty", staging.ErrConfiguration)
	}
	if err := validation.ValidatePathInDirectory(name, dir); err != nil {
		return "", fmt.Errorf("%w: manifest %q: %v", staging.ErrConfiguration, name, err)
	}
	data, err := encodeManifest(format, v)
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest %s: %w", name, err)
	}

	path := filepath.Join(dir, filepath.FromSlash(name)+constants.ManifestSuffix)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create manifest directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}
