package strategy

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rescale/rescale-staging/internal/constants"
	"github.com/rescale/rescale-staging/internal/logging"
	"github.com/rescale/rescale-staging/internal/staging"
	"github.com/rescale/rescale-staging/internal/util/tags"
	"github.com/rescale/rescale-staging/internal/validation"
)

// LocalFile stages files on local disk. Every staging type uses it for files.
type LocalFile struct {
	dataPath     string
	metadataPath string
	states       []FileState
	format       string
	logger       *logging.Logger
}

var _ FileStrategy = (*LocalFile)(nil)

// NewLocalFile creates a file strategy over two directories.
func NewLocalFile(dataPath, metadataPath string, states []FileState, format string, logger *logging.Logger) *LocalFile {
	if logger == nil {
		logger = logging.Nop()
	}
	return &LocalFile{
		dataPath:     dataPath,
		metadataPath: metadataPath,
		states:       states,
		format:       format,
		logger:       logger,
	}
}

// DataPath returns the directory files are read from.
func (s *LocalFile) DataPath() string { return s.dataPath }

// MetadataPath returns the directory manifests are written to.
func (s *LocalFile) MetadataPath() string { return s.metadataPath }

// States returns the file states of the previous run.
func (s *LocalFile) States() []FileState { return s.states }

// ListFiles walks the data directory. Manifests are skipped; a missing
// directory yields no files.
func (s *LocalFile) ListFiles(ctx context.Context) ([]FileEntry, error) {
	var entries []FileEntry
	err := filepath.WalkDir(s.dataPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.dataPath && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.HasSuffix(path, constants.ManifestSuffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.dataPath, path)
		if err != nil {
			return err
		}
		entries = append(entries, FileEntry{Path: filepath.ToSlash(rel), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files in %s: %w", s.dataPath, err)
	}
	return entries, nil
}

// WriteManifest writes <metadata>/<name>.manifest.
func (s *LocalFile) WriteManifest(ctx context.Context, name string, manifest FileManifest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	manifest.Tags = tags.NormalizeTags(manifest.Tags)
	path, err := writeManifest(s.metadataPath, name, s.format, manifest)
	if err != nil {
		return err
	}
	s.logger.Debug().Str("path", path).Msg("File manifest written")
	return nil
}

// tableBase carries what every table strategy shares: the destination, the
// states and the local metadata directory manifests are written to.
type tableBase struct {
	kind         staging.StrategyKind
	destination  string
	states       []TableState
	metadataPath string
	format       string
	logger       *logging.Logger
}

func newTableBase(kind staging.StrategyKind, destination string, states []TableState, metadataPath, format string, logger *logging.Logger) tableBase {
	if logger == nil {
		logger = logging.Nop()
	}
	return tableBase{
		kind:         kind,
		destination:  destination,
		states:       states,
		metadataPath: metadataPath,
		format:       format,
		logger:       logger,
	}
}

// Kind returns the strategy kind the factory dispatched to.
func (b *tableBase) Kind() staging.StrategyKind { return b.kind }

// Destination returns the table destination, relative to the data and
// metadata directories.
func (b *tableBase) Destination() string { return b.destination }

// States returns the table states of the previous run.
func (b *tableBase) States() []TableState { return b.states }

// WriteManifest writes <metadata>/<destination>/<tableID>.manifest.
func (b *tableBase) WriteManifest(ctx context.Context, tableID string, manifest TableManifest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkTableID(tableID); err != nil {
		return err
	}
	dir, err := destinationDir(b.metadataPath, b.destination)
	if err != nil {
		return err
	}
	path, err := writeManifest(dir, tableID, b.format, manifest)
	if err != nil {
		return err
	}
	b.logger.Debug().Str("table", tableID).Str("path", path).Msg("Table manifest written")
	return nil
}

// destinationDir returns dir/<destination>. Leading and trailing slashes of
// destination are ignored; a destination leaving dir is a configuration error.
func destinationDir(dir, destination string) (string, error) {
	rel := strings.Trim(filepath.ToSlash(destination), "/")
	if rel == "" {
		return dir, nil
	}
	if err := validation.ValidatePathInDirectory(rel, dir); err != nil {
		return "", fmt.Errorf("%w: table destination %q: %v", staging.ErrConfiguration, destination, err)
	}
	return filepath.Join(dir, filepath.FromSlash(rel)), nil
}

func checkTableID(tableID string) error {
	if strings.TrimSpace(tableID) == "" {
		return fmt.Errorf("%w: table id is empty", staging.ErrConfiguration)
	}
	if err := validation.ValidateFilename(tableID); err != nil {
		return fmt.Errorf("%w: table id %q: %v", staging.ErrConfiguration, tableID, err)
	}
	return nil
}

// LocalTable stages tables as CSV files on local disk.
type LocalTable struct {
	tableBase
	dataPath string
}

var _ TableStrategy = (*LocalTable)(nil)

// NewLocalTable creates a table strategy over two directories.
func NewLocalTable(dataPath, metadataPath, destination string, states []TableState, format string, logger *logging.Logger) *LocalTable {
	return &LocalTable{
		tableBase: newTableBase(KindLocalTable, destination, states, metadataPath, format, logger),
		dataPath:  dataPath,
	}
}

// Resolve returns <data>/<destination>/<tableID>.csv. When that path is a
// directory the location is sliced and lists its files.
func (s *LocalTable) Resolve(ctx context.Context, tableID string) (TableLocation, error) {
	if err := ctx.Err(); err != nil {
		return TableLocation{}, err
	}
	if err := checkTableID(tableID); err != nil {
		return TableLocation{}, err
	}

	dir, err := destinationDir(s.dataPath, s.destination)
	if err != nil {
		return TableLocation{}, err
	}
	path := filepath.Join(dir, tableID+".csv")
	loc := TableLocation{TableID: tableID, URI: path}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return loc, nil
	case err != nil:
		return TableLocation{}, fmt.Errorf("failed to stat %s: %w", path, err)
	case !info.IsDir():
		return loc, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return TableLocation{}, fmt.Errorf("failed to read slices of %s: %w", path, err)
	}
	loc.Sliced = true
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), constants.ManifestSuffix) {
			continue
		}
		loc.Slices = append(loc.Slices, filepath.Join(path, e.Name()))
	}
	sort.Strings(loc.Slices)
	return loc, nil
}
