package staging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScopeAcceptsKnownAxes(t *testing.T) {
	s, err := NewScope("tableData", "fileMetadata", "tableData")
	require.NoError(t, err)
	assert.Equal(t, []Axis{TableData, FileMetadata, TableData}, s.Types(), "order and duplicates are preserved")
}

func TestNewScopeRejectsUnknownAxes(t *testing.T) {
	_, err := NewScope("tableData", "boo")
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), `"boo"`)
	assert.NotContains(t, err.Error(), `"tableData"`)
}

func TestNewScopeNamesEveryInvalidElement(t *testing.T) {
	_, err := NewScope("foo", "fileData", "TableData", "bar")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"foo", "TableData", "bar"`)
	assert.NotContains(t, err.Error(), `"fileData"`)
}

func TestScopeTypesReturnsCopy(t *testing.T) {
	s := MustScope(FileData)
	types := s.Types()
	types[0] = TableData
	assert.Equal(t, []Axis{FileData}, s.Types())
}

func TestMustScopePanicsOnInvalidAxis(t *testing.T) {
	assert.Panics(t, func() { MustScope(Axis("nope")) })
}

func TestParseType(t *testing.T) {
	got, err := ParseType(" Workspace-Snowflake ")
	require.NoError(t, err)
	assert.Equal(t, WorkspaceSnowflake, got)

	_, err = ParseType("workspace-oracle")
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), "workspace-teradata")
}

func TestTypeClassAndBackend(t *testing.T) {
	tests := []struct {
		typ     Type
		class   Class
		backend string
	}{
		{Local, ClassFilesystem, ""},
		{S3, ClassFilesystem, ""},
		{Abs, ClassFilesystem, ""},
		{WorkspaceSnowflake, ClassWorkspace, "snowflake"},
		{WorkspaceBigquery, ClassWorkspace, "bigquery"},
		{WorkspaceRedshift, ClassWorkspace, "redshift"},
		{WorkspaceSynapse, ClassWorkspace, "synapse"},
		{WorkspaceExasol, ClassWorkspace, "exasol"},
		{WorkspaceTeradata, ClassWorkspace, "teradata"},
		{None, ClassNone, ""},
	}
	require.Len(t, tests, len(AllTypes()))
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.class, tt.typ.Class())
			assert.Equal(t, tt.backend, tt.typ.Backend())
		})
	}
}
