package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rescale/rescale-staging/internal/config"
	"github.com/rescale/rescale-staging/internal/secret"
	"github.com/rescale/rescale-staging/internal/staging"
	"github.com/rescale/rescale-staging/internal/staging/strategy"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage rescale-staging configuration",
		Long: `Configuration management commands for rescale-staging.

Commands:
  init  - Write a configuration file
  show  - Display current configuration
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var (
		force          bool
		dataDir        string
		manifestFormat string
		bindingPlan    string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file",
		Long: `Write a configuration file from defaults and the given flags.

The token is stored in the file, which is created with 0600 permissions.
Use --force to overwrite an existing file.

Example:
  rescale-staging config init --token $TOKEN --api-url connection.eu-central-1.keboola.com --input-type local`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Configuration already exists at: %s\n", path)
					fmt.Fprintln(cmd.OutOrStdout(), "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			cfg := config.New()
			cfg.MergeWithFlags(apiToken, apiBaseURL, inputType)
			if dataDir != "" {
				cfg.Staging.DataDir = dataDir
			}
			if manifestFormat != "" {
				format, err := strategy.ParseFormat(manifestFormat)
				if err != nil {
					return err
				}
				cfg.Staging.ManifestFormat = format
			}
			cfg.Staging.BindingPlan = bindingPlan

			if _, err := staging.ParseType(cfg.Staging.InputType); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			GetLogger().Info().Str("path", path).Msg("Configuration saved")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory for local staging data")
	cmd.Flags().StringVar(&manifestFormat, "manifest-format", "", "Manifest format: json or yaml")
	cmd.Flags().StringVar(&bindingPlan, "plan", "", "Default binding plan file")

	return cmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long:  `Display the effective configuration after environment and flag overrides. Secrets are masked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			printConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

func printConfig(w io.Writer, cfg *config.Config) {
	masked := func(s string) string {
		if s == "" {
			return "(not set)"
		}
		return secret.String(s).String()
	}
	orUnset := func(s string) string {
		if s == "" {
			return "(not set)"
		}
		return s
	}

	fmt.Fprintln(w, "API:")
	fmt.Fprintf(w, "  URL:              %s\n", cfg.APIBaseURL)
	fmt.Fprintf(w, "  Token:            %s\n", masked(cfg.APIToken))
	fmt.Fprintf(w, "  Max retries:      %d\n", cfg.MaxRetries)
	fmt.Fprintln(w, "Proxy:")
	fmt.Fprintf(w, "  Mode:             %s\n", cfg.ProxyMode)
	if cfg.ProxyHost != "" {
		fmt.Fprintf(w, "  Host:             %s:%d\n", cfg.ProxyHost, cfg.ProxyPort)
		fmt.Fprintf(w, "  User:             %s\n", orUnset(cfg.ProxyUser))
		fmt.Fprintf(w, "  Password:         %s\n", masked(cfg.ProxyPassword))
	}
	fmt.Fprintln(w, "Staging:")
	fmt.Fprintf(w, "  Input type:       %s\n", cfg.Staging.InputType)
	fmt.Fprintf(w, "  Data dir:         %s\n", cfg.Staging.DataDir)
	fmt.Fprintf(w, "  Manifest format:  %s\n", cfg.Staging.ManifestFormat)
	fmt.Fprintf(w, "  Binding plan:     %s\n", orUnset(cfg.Staging.BindingPlan))
	fmt.Fprintln(w, "Workspace:")
	fmt.Fprintf(w, "  Network policy:   %s\n", cfg.Workspace.NetworkPolicy)
	fmt.Fprintf(w, "  Login type:       %s\n", orUnset(cfg.Workspace.LoginType))
	fmt.Fprintf(w, "  Backend size:     %s\n", orUnset(cfg.Workspace.BackendSize))
	if cfg.S3.Bucket != "" {
		fmt.Fprintln(w, "S3:")
		fmt.Fprintf(w, "  Bucket:           %s (%s)\n", cfg.S3.Bucket, cfg.S3.Region)
		fmt.Fprintf(w, "  Prefix:           %s\n", orUnset(cfg.S3.Prefix))
		fmt.Fprintf(w, "  Secret key:       %s\n", masked(cfg.S3.SecretAccessKey))
	}
	if cfg.ABS.Container != "" {
		fmt.Fprintln(w, "ABS:")
		fmt.Fprintf(w, "  Container:        %s\n", cfg.ABS.Container)
		fmt.Fprintf(w, "  Connection:       %s\n", masked(cfg.ABS.ConnectionString))
	}
	fmt.Fprintf(w, "Log level:          %s\n", cfg.LogLevel)
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
