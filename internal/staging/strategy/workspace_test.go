package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescale/rescale-staging/internal/secret"
	"github.com/rescale/rescale-staging/internal/staging"
)

func TestWorkspaceTableResolve(t *testing.T) {
	ws := &fakeWorkspace{id: "123", creds: secret.Map{
		"host":     "kbc.snowflakecomputing.com",
		"database": "DB",
		"schema":   "WORKSPACE_123",
		"password": secret.String("hunter2"),
	}}

	s := NewWorkspaceTable(KindSnowflakeTable, ws, t.TempDir(), "in/tables", nil, FormatJSON, nil)
	loc, err := s.Resolve(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, TableLocation{
		TableID:     "orders",
		URI:         "snowflake://kbc.snowflakecomputing.com/DB/WORKSPACE_123/orders",
		WorkspaceID: "123",
		Schema:      "WORKSPACE_123",
		Table:       "orders",
	}, loc)

	bq := NewWorkspaceTable(KindBigQueryTable, ws, t.TempDir(), "in/tables", nil, FormatJSON, nil)
	loc, err = bq.Resolve(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, "bigquery://WORKSPACE_123/orders", loc.URI)
}

func TestWorkspaceTableMissingSchema(t *testing.T) {
	ws := &fakeWorkspace{id: "9", creds: secret.Map{}}
	s := NewWorkspaceTable(KindBigQueryTable, ws, t.TempDir(), "in/tables", nil, FormatJSON, nil)
	_, err := s.Resolve(context.Background(), "orders")
	require.Error(t, err)
	assert.True(t, staging.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "workspace 9")
}

func TestWorkspaceTableNullProvider(t *testing.T) {
	s := NewWorkspaceTable(KindSnowflakeTable, staging.NullProvider{}, t.TempDir(), "in/tables", nil, FormatJSON, nil)
	_, err := s.Resolve(context.Background(), "orders")
	assert.ErrorIs(t, err, staging.ErrNotImplemented)
}
