package strategy

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rescale/rescale-staging/internal/staging"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestParseFormat(t *testing.T) {
	tests := map[string]string{"": FormatJSON, "JSON": FormatJSON, "yaml": FormatYAML, "yml": FormatYAML}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("toml")
	assert.True(t, staging.IsConfigurationError(err))
}

func TestLocalFileListFiles(t *testing.T) {
	data := t.TempDir()
	writeFile(t, filepath.Join(data, "b.txt"), "bb")
	writeFile(t, filepath.Join(data, "a", "c.bin"), "ccc")
	writeFile(t, filepath.Join(data, "b.txt.manifest"), "{}")

	s := NewLocalFile(data, t.TempDir(), nil, FormatJSON, nil)
	files, err := s.ListFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []FileEntry{{Path: "a/c.bin", Size: 3}, {Path: "b.txt", Size: 2}}, files)

	missing := NewLocalFile(filepath.Join(data, "nope"), "", nil, FormatJSON, nil)
	files, err = missing.ListFiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.ListFiles(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalFileWriteManifest(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatYAML} {
		t.Run(format, func(t *testing.T) {
			meta := t.TempDir()
			s := NewLocalFile(t.TempDir(), meta, []FileState{{ID: "42"}}, format, nil)
			assert.Equal(t, meta, s.MetadataPath())
			assert.Equal(t, []FileState{{ID: "42"}}, s.States())

			manifest := FileManifest{ID: "42", Name: "report.csv", Size: 10, Tags: []string{"daily"}}
			require.NoError(t, s.WriteManifest(context.Background(), "42_report.csv", manifest))

			raw, err := os.ReadFile(filepath.Join(meta, "42_report.csv.manifest"))
			require.NoError(t, err)

			var got FileManifest
			if format == FormatYAML {
				require.NoError(t, yaml.Unmarshal(raw, &got))
			} else {
				require.NoError(t, json.Unmarshal(raw, &got))
				assert.Contains(t, string(raw), `"size_bytes": 10`)
			}
			assert.Equal(t, manifest, got)
		})
	}
}

func TestLocalFileWriteManifestEmptyName(t *testing.T) {
	s := NewLocalFile(t.TempDir(), t.TempDir(), nil, FormatJSON, nil)
	err := s.WriteManifest(context.Background(), "", FileManifest{})
	assert.True(t, staging.IsConfigurationError(err))
}

func TestLocalFileWriteManifestStaysInMetadataDir(t *testing.T) {
	meta := filepath.Join(t.TempDir(), "out", "files")
	s := NewLocalFile(t.TempDir(), meta, nil, FormatJSON, nil)

	err := s.WriteManifest(context.Background(), "../../escape.csv", FileManifest{})
	assert.True(t, staging.IsConfigurationError(err))

	require.NoError(t, s.WriteManifest(context.Background(), "sub/report.csv", FileManifest{ID: "1"}))
	assert.FileExists(t, filepath.Join(meta, "sub", "report.csv.manifest"))
}

func TestLocalTableResolve(t *testing.T) {
	data := t.TempDir()
	writeFile(t, filepath.Join(data, "in", "tables", "orders.csv"), "id\n1\n")
	writeFile(t, filepath.Join(data, "in", "tables", "events.csv", "part-2.csv"), "2\n")
	writeFile(t, filepath.Join(data, "in", "tables", "events.csv", "part-1.csv"), "1\n")
	writeFile(t, filepath.Join(data, "in", "tables", "events.csv", "part-1.csv.manifest"), "{}")

	s := NewLocalTable(data, t.TempDir(), "in/tables", nil, FormatJSON, nil)
	ctx := context.Background()

	loc, err := s.Resolve(ctx, "orders")
	require.NoError(t, err)
	assert.False(t, loc.Sliced)
	assert.Equal(t, filepath.Join(data, "in", "tables", "orders.csv"), loc.URI)

	loc, err = s.Resolve(ctx, "events")
	require.NoError(t, err)
	assert.True(t, loc.Sliced)
	assert.Equal(t, []string{
		filepath.Join(data, "in", "tables", "events.csv", "part-1.csv"),
		filepath.Join(data, "in", "tables", "events.csv", "part-2.csv"),
	}, loc.Slices)

	loc, err = s.Resolve(ctx, "new")
	require.NoError(t, err, "a table not yet written still has a location")
	assert.False(t, loc.Sliced)

	_, err = s.Resolve(ctx, "../etc")
	assert.True(t, staging.IsConfigurationError(err))
	_, err = s.Resolve(ctx, " ")
	assert.True(t, staging.IsConfigurationError(err))
}

func TestTableWriteManifest(t *testing.T) {
	meta := t.TempDir()
	s := NewLocalTable(t.TempDir(), meta, "in/tables", nil, FormatYAML, nil)

	manifest := TableManifest{ID: "in.c-main.orders", Name: "orders", Columns: []string{"id"}, PrimaryKey: []string{"id"}}
	require.NoError(t, s.WriteManifest(context.Background(), "orders", manifest))

	raw, err := os.ReadFile(filepath.Join(meta, "in", "tables", "orders.manifest"))
	require.NoError(t, err)
	var got TableManifest
	require.NoError(t, yaml.Unmarshal(raw, &got))
	assert.Equal(t, manifest, got)

	_, err = os.Stat(filepath.Join(meta, "in", "tables", "orders.manifest.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalTableDestinationStaysInside(t *testing.T) {
	root := t.TempDir()
	data := filepath.Join(root, "work", "data")
	meta := filepath.Join(root, "work", "meta")
	ctx := context.Background()

	s := NewLocalTable(data, meta, "../../escaped", nil, FormatJSON, nil)
	err := s.WriteManifest(ctx, "t1", TableManifest{ID: "t1"})
	assert.True(t, staging.IsConfigurationError(err))
	assert.NoFileExists(t, filepath.Join(root, "escaped", "t1.manifest"))

	_, err = s.Resolve(ctx, "t1")
	assert.True(t, staging.IsConfigurationError(err))

	s = NewLocalTable(data, meta, "/in/tables/", nil, FormatJSON, nil)
	require.NoError(t, s.WriteManifest(ctx, "t1", TableManifest{ID: "t1"}))
	assert.FileExists(t, filepath.Join(meta, "in", "tables", "t1.manifest"))
	loc, err := s.Resolve(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(data, "in", "tables", "t1.csv"), loc.URI)
}

func TestLocalFileWriteManifestNormalizesTags(t *testing.T) {
	meta := t.TempDir()
	s := NewLocalFile(t.TempDir(), meta, nil, FormatJSON, nil)

	require.NoError(t, s.WriteManifest(context.Background(), "a.csv", FileManifest{ID: "1", Tags: []string{" daily", "", "daily", "export"}}))

	raw, err := os.ReadFile(filepath.Join(meta, "a.csv.manifest"))
	require.NoError(t, err)
	var got FileManifest
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, []string{"daily", "export"}, got.Tags)
}
