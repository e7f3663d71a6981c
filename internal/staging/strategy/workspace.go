package strategy

import (
	"context"
	"fmt"

	"github.com/rescale/rescale-staging/internal/logging"
	"github.com/rescale/rescale-staging/internal/staging"
)

// WorkspaceTable stages tables in a provisioned warehouse workspace. Tables
// are addressed as <schema>.<tableID>; the schema is the workspace schema
// (Snowflake) or dataset (BigQuery).
type WorkspaceTable struct {
	tableBase
	workspace staging.WorkspaceCapability
}

var _ TableStrategy = (*WorkspaceTable)(nil)

// NewWorkspaceTable creates a workspace table strategy. kind is
// KindSnowflakeTable or KindBigQueryTable.
func NewWorkspaceTable(kind staging.StrategyKind, ws staging.WorkspaceCapability, metadataPath, destination string, states []TableState, format string, logger *logging.Logger) *WorkspaceTable {
	return &WorkspaceTable{
		tableBase: newTableBase(kind, destination, states, metadataPath, format, logger),
		workspace: ws,
	}
}

// Resolve returns the workspace table for tableID.
func (s *WorkspaceTable) Resolve(ctx context.Context, tableID string) (TableLocation, error) {
	if err := ctx.Err(); err != nil {
		return TableLocation{}, err
	}
	if err := checkTableID(tableID); err != nil {
		return TableLocation{}, err
	}

	id, err := s.workspace.WorkspaceID()
	if err != nil {
		return TableLocation{}, err
	}
	creds, err := s.workspace.Credentials()
	if err != nil {
		return TableLocation{}, err
	}
	schema, ok := creds.Get("schema")
	if !ok || schema == "" {
		return TableLocation{}, fmt.Errorf("%w: workspace %s credentials have no schema", staging.ErrConfiguration, id)
	}

	loc := TableLocation{
		TableID:     tableID,
		WorkspaceID: id,
		Schema:      schema,
		Table:       tableID,
	}
	switch s.kind {
	case KindSnowflakeTable:
		host, _ := creds.Get("host")
		database, _ := creds.Get("database")
		loc.URI = fmt.Sprintf("snowflake://%s/%s/%s/%s", host, database, schema, tableID)
	default:
		loc.URI = fmt.Sprintf("bigquery://%s/%s", schema, tableID)
	}
	return loc, nil
}
