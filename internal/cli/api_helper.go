package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rescale/rescale-staging/internal/api"
	"github.com/rescale/rescale-staging/internal/config"
	"github.com/rescale/rescale-staging/internal/workspace"
)

// getWorkspaceProvider creates an API client, verifies the token and returns
// a workspace provider entitled by it.
func getWorkspaceProvider(ctx context.Context, cfg *config.Config) (*workspace.Provider, error) {
	if err := cfg.ValidateForConnection(); err != nil {
		return nil, err
	}

	client, err := api.NewClient(cfg, GetLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	token, err := client.VerifyToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	GetLogger().Debug().
		Str("token_id", token.ID).
		Str("project", token.Owner.Name).
		Msg("Token verified")

	return workspace.NewProvider(client, token, nil, GetLogger()), nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
