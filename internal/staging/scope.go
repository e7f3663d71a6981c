package staging

import (
	"fmt"
	"strings"
)

// Axis is one kind of data movement a staging backend may serve.
type Axis string

// Scope axes.
const (
	TableData     Axis = "tableData"
	TableMetadata Axis = "tableMetadata"
	FileData      Axis = "fileData"
	FileMetadata  Axis = "fileMetadata"
)

// AllAxes returns the four recognized axes.
func AllAxes() []Axis {
	return []Axis{TableData, TableMetadata, FileData, FileMetadata}
}

func (a Axis) valid() bool {
	switch a {
	case TableData, TableMetadata, FileData, FileMetadata:
		return true
	}
	return false
}

// Scope is the set of axes a provider is bound to for one staging type.
// Order and duplicates are kept as given.
type Scope struct {
	axes []Axis
}

// NewScope validates axes against the four recognized axis names.
func NewScope(axes ...string) (Scope, error) {
	var invalid []string
	out := make([]Axis, 0, len(axes))
	for _, a := range axes {
		axis := Axis(a)
		if !axis.valid() {
			invalid = append(invalid, fmt.Sprintf("%q", a))
			continue
		}
		out = append(out, axis)
	}
	if len(invalid) > 0 {
		return Scope{}, fmt.Errorf("%w: unknown scope types %s", ErrConfiguration, strings.Join(invalid, ", "))
	}
	return Scope{axes: out}, nil
}

// MustScope is NewScope for static scopes known to be valid. It panics otherwise.
func MustScope(axes ...Axis) Scope {
	names := make([]string, len(axes))
	for i, a := range axes {
		names[i] = string(a)
	}
	s, err := NewScope(names...)
	if err != nil {
		panic(err)
	}
	return s
}

// Types returns the axes of the scope.
func (s Scope) Types() []Axis {
	out := make([]Axis, len(s.axes))
	copy(out, s.axes)
	return out
}

// Group selects the pair of slots a strategy needs.
type Group string

// Axis groups.
const (
	GroupFile  Group = "file"
	GroupTable Group = "table"
)
