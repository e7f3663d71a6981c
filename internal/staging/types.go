// Package staging resolves, for each kind of data movement a pipeline run needs,
// which storage backend serves it.
//
// A run selects a staging Type (local disk, object storage or a provisioned
// warehouse workspace). Providers are bound into the four axis slots of each
// type's Definition; strategies are later built from a validated Definition.
package staging

import (
	"fmt"
	"strings"
)

// Type identifies a staging backend.
type Type string

// Staging types.
const (
	Local              Type = "local"
	S3                 Type = "s3"
	Abs                Type = "abs"
	WorkspaceSnowflake Type = "workspace-snowflake"
	WorkspaceBigquery  Type = "workspace-bigquery"
	WorkspaceRedshift  Type = "workspace-redshift"
	WorkspaceSynapse   Type = "workspace-synapse"
	WorkspaceExasol    Type = "workspace-exasol"
	WorkspaceTeradata  Type = "workspace-teradata"
	None               Type = "none"
)

// Class groups staging types by the kind of capability they hand out.
type Class int

const (
	// ClassNone is the class of the None type; it is never usable.
	ClassNone Class = iota
	// ClassFilesystem types expose a path.
	ClassFilesystem
	// ClassWorkspace types expose a remote workspace id and credentials.
	ClassWorkspace
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassFilesystem:
		return "filesystem"
	case ClassWorkspace:
		return "workspace"
	default:
		return "none"
	}
}

var allTypes = []Type{
	Local,
	S3,
	Abs,
	WorkspaceSnowflake,
	WorkspaceBigquery,
	WorkspaceRedshift,
	WorkspaceSynapse,
	WorkspaceExasol,
	WorkspaceTeradata,
	None,
}

// AllTypes returns every staging type in declaration order.
func AllTypes() []Type {
	out := make([]Type, len(allTypes))
	copy(out, allTypes)
	return out
}

// ParseType converts a configured name into a Type.
func ParseType(name string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range allTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown staging type %q, known types: %s", ErrConfiguration, name, joinTypes(allTypes))
}

// String returns the configured name of the type.
func (t Type) String() string {
	return string(t)
}

// Class returns the staging class of t.
func (t Type) Class() Class {
	switch t {
	case Local, S3, Abs:
		return ClassFilesystem
	case WorkspaceSnowflake, WorkspaceBigquery, WorkspaceRedshift,
		WorkspaceSynapse, WorkspaceExasol, WorkspaceTeradata:
		return ClassWorkspace
	default:
		return ClassNone
	}
}

// Backend returns the workspace backend identifier understood by the
// workspace-management API, or "" for non-workspace types.
func (t Type) Backend() string {
	if t.Class() != ClassWorkspace {
		return ""
	}
	return strings.TrimPrefix(string(t), "workspace-")
}

func joinTypes(types []Type) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
