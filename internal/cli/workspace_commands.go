package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rescale/rescale-staging/internal/secret"
	"github.com/rescale/rescale-staging/internal/staging"
	"github.com/rescale/rescale-staging/internal/workspace"
)

// newWorkspaceCmd creates the 'workspace' command group.
func newWorkspaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage remote workspaces",
		Long: `Workspace lifecycle commands.

Commands:
  create  - Provision a new workspace
  get     - Show a workspace
  reset   - Rotate workspace credentials
  delete  - Delete a workspace`,
	}

	cmd.AddCommand(newWorkspaceCreateCmd())
	cmd.AddCommand(newWorkspaceGetCmd())
	cmd.AddCommand(newWorkspaceResetCmd())
	cmd.AddCommand(newWorkspaceDeleteCmd())

	return cmd
}

type workspaceOutput struct {
	ID          string      `json:"id"`
	Backend     string      `json:"backend"`
	BackendSize *string     `json:"backendSize"`
	LoginType   string      `json:"loginType"`
	Credentials interface{} `json:"credentials,omitempty"`
}

func newWorkspaceOutput(ws *workspace.Workspace, creds secret.Map, reveal bool) workspaceOutput {
	out := workspaceOutput{
		ID:          ws.ID,
		Backend:     ws.BackendType,
		BackendSize: ws.BackendSize,
		LoginType:   string(ws.LoginType),
	}
	switch {
	case creds == nil:
	case reveal:
		out.Credentials = creds.Reveal()
	default:
		out.Credentials = creds
	}
	return out
}

// newWorkspaceCreateCmd creates the 'workspace create' command.
func newWorkspaceCreateCmd() *cobra.Command {
	var (
		typeName      string
		loginType     string
		backendSize   string
		networkPolicy string
		readOnly      bool
		componentID   string
		configID      string
		reveal        bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Provision a new workspace",
		Long: `Provision a new workspace of the given staging type.

Snowflake workspaces default to key-pair login: a key pair is generated
locally, only the public key is sent, and the private key is printed with
the credentials.

Examples:
  # Snowflake workspace with the default key-pair login
  rescale-staging workspace create --type workspace-snowflake --reveal

  # BigQuery workspace tied to a component configuration
  rescale-staging workspace create --type workspace-bigquery --component keboola.sandboxes --config-id 123`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			typ, err := staging.ParseType(typeName)
			if err != nil {
				return err
			}
			if loginType == "" {
				loginType = cfg.Workspace.LoginType
			}
			lt, err := workspace.ParseLoginType(loginType)
			if err != nil {
				return err
			}

			opts := workspace.CreateOptions{
				StagingType:           typ,
				LoginType:             lt,
				NetworkPolicy:         cfg.Workspace.NetworkPolicy,
				ReadOnlyStorageAccess: cfg.Workspace.ReadOnlyStorageAccess,
				ComponentID:           componentID,
				ConfigID:              configID,
			}
			if networkPolicy != "" {
				opts.NetworkPolicy = networkPolicy
			}
			if backendSize == "" {
				backendSize = cfg.Workspace.BackendSize
			}
			if backendSize != "" {
				opts.BackendSize = &backendSize
			}
			if cmd.Flags().Changed("read-only") {
				opts.ReadOnlyStorageAccess = &readOnly
			}

			provider, err := getWorkspaceProvider(ctx, cfg)
			if err != nil {
				return err
			}
			ws, err := provider.CreateNewWorkspace(ctx, opts)
			if err != nil {
				return fmt.Errorf("failed to create workspace: %w", err)
			}
			GetLogger().Info().Str("workspace_id", ws.ID).Str("type", string(typ)).Msg("Workspace created")

			return printJSON(cmd.OutOrStdout(), newWorkspaceOutput(&ws.Workspace, ws.Credentials, reveal))
		},
	}

	cmd.Flags().StringVar(&typeName, "type", "", "Workspace staging type, e.g. workspace-snowflake (required)")
	cmd.Flags().StringVar(&loginType, "login-type", "", "Login type (default depends on the backend)")
	cmd.Flags().StringVar(&backendSize, "backend-size", "", "Backend size")
	cmd.Flags().StringVar(&networkPolicy, "network-policy", "", "Network policy (default from config)")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Grant read-only access to project storage")
	cmd.Flags().StringVar(&componentID, "component", "", "Component ID to create the workspace under")
	cmd.Flags().StringVar(&configID, "config-id", "", "Configuration ID to create the workspace under")
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print secrets in plain text")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

// newWorkspaceGetCmd creates the 'workspace get' command.
func newWorkspaceGetCmd() *cobra.Command {
	var (
		typeName    string
		credentials bool
		reveal      bool
	)

	cmd := &cobra.Command{
		Use:   "get <workspace-id>",
		Short: "Show a workspace",
		Long: `Show a workspace and, with --credentials, its connection credentials.

Examples:
  rescale-staging workspace get 12345
  rescale-staging workspace get 12345 --type workspace-bigquery --credentials`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var expected staging.Type
			if typeName != "" {
				if expected, err = staging.ParseType(typeName); err != nil {
					return err
				}
			}

			provider, err := getWorkspaceProvider(ctx, cfg)
			if err != nil {
				return err
			}

			if !credentials {
				ws, err := provider.GetWorkspaceForType(ctx, args[0], expected)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), newWorkspaceOutput(ws, nil, false))
			}

			ws, err := provider.GetWorkspaceWithCredentials(ctx, args[0], nil)
			if err != nil {
				return err
			}
			if err := ws.CheckType(expected); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), newWorkspaceOutput(&ws.Workspace, ws.Credentials, reveal))
		},
	}

	cmd.Flags().StringVar(&typeName, "type", "", "Fail unless the workspace has this staging type")
	cmd.Flags().BoolVar(&credentials, "credentials", false, "Include connection credentials")
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print secrets in plain text")

	return cmd
}

// newWorkspaceResetCmd creates the 'workspace reset' command.
func newWorkspaceResetCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "reset <workspace-id>",
		Short: "Rotate workspace credentials",
		Long: `Rotate the credentials of a workspace.

Key-pair workspaces get a new locally generated key pair; the new private
key is printed. Other workspaces get a new password.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			provider, err := getWorkspaceProvider(ctx, cfg)
			if err != nil {
				return err
			}

			ws, err := provider.GetWorkspace(ctx, args[0])
			if err != nil {
				return err
			}
			creds, err := provider.ResetWorkspaceCredentials(ctx, ws)
			if err != nil {
				return err
			}
			if !reveal && (creds.Has("privateKey") || creds.Has("password")) {
				fmt.Fprintln(cmd.ErrOrStderr(), "New credentials are masked and cannot be fetched again; rerun with --reveal to print them")
			}
			return printJSON(cmd.OutOrStdout(), newWorkspaceOutput(ws, creds, reveal))
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print secrets in plain text")

	return cmd
}

// newWorkspaceDeleteCmd creates the 'workspace delete' command.
func newWorkspaceDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <workspace-id>",
		Short: "Delete a workspace",
		Long:  `Delete a workspace. Deleting a workspace that no longer exists succeeds.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			provider, err := getWorkspaceProvider(ctx, cfg)
			if err != nil {
				return err
			}
			if err := provider.CleanupWorkspace(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Workspace %s deleted\n", args[0])
			return nil
		},
	}
}
