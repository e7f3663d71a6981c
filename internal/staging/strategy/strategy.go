// Package strategy builds the file and table input strategies of a pipeline
// run from the providers bound to the active staging type.
package strategy

import (
	"context"

	"github.com/rescale/rescale-staging/internal/staging"
)

// Strategy kinds. Every staging type maps to one file kind and one table kind
// in the dispatch table; staging.NoStrategy marks a type without one.
const (
	KindLocalFile      staging.StrategyKind = "local-file"
	KindLocalTable     staging.StrategyKind = "local-table"
	KindS3Table        staging.StrategyKind = "s3-table"
	KindABSTable       staging.StrategyKind = "abs-table"
	KindSnowflakeTable staging.StrategyKind = "snowflake-table"
	KindBigQueryTable  staging.StrategyKind = "bigquery-table"
)

// FileState is the input state of one file from the previous run.
type FileState struct {
	ID   string   `json:"id" yaml:"id"`
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// TableState is the input state of one table from the previous run.
type TableState struct {
	Source         string `json:"source" yaml:"source"`
	LastImportDate string `json:"lastImportDate,omitempty" yaml:"lastImportDate,omitempty"`
}

// FileEntry is one file found under the file data directory.
type FileEntry struct {
	// Path is relative to the data directory, slash separated.
	Path string
	Size int64
}

// FileManifest describes a staged file.
type FileManifest struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Size     int64    `json:"size_bytes" yaml:"size_bytes"`
	Tags     []string `json:"tags" yaml:"tags"`
	IsPublic bool     `json:"is_public" yaml:"is_public"`
}

// TableManifest describes a staged table.
type TableManifest struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Columns     []string `json:"columns" yaml:"columns"`
	PrimaryKey  []string `json:"primary_key" yaml:"primary_key"`
	Incremental bool     `json:"incremental" yaml:"incremental"`
}

// TableLocation is where a table's data lives in the staging backend.
type TableLocation struct {
	TableID string
	// URI addresses the file, the slice directory or the workspace table.
	URI string
	// Sliced is set when the location is directory-like.
	Sliced bool
	Slices []string

	// Workspace tables only.
	WorkspaceID string
	Schema      string
	Table       string
}

// FileStrategy stages input files.
type FileStrategy interface {
	DataPath() string
	MetadataPath() string
	States() []FileState
	ListFiles(ctx context.Context) ([]FileEntry, error)
	WriteManifest(ctx context.Context, name string, manifest FileManifest) error
}

// TableStrategy stages input tables.
type TableStrategy interface {
	Kind() staging.StrategyKind
	Destination() string
	States() []TableState
	Resolve(ctx context.Context, tableID string) (TableLocation, error)
	WriteManifest(ctx context.Context, tableID string, manifest TableManifest) error
}
