// Package cli provides the command-line interface for rescale-staging.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rescale/rescale-staging/internal/config"
	"github.com/rescale/rescale-staging/internal/logging"
	"github.com/rescale/rescale-staging/internal/version"
)

var (
	// Global flags
	cfgFile    string
	apiToken   string
	apiBaseURL string
	inputType  string
	verbose    bool
	debug      bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rescale-staging",
		Short: "Staging and workspace provisioning for pipeline runs",
		Long: `rescale-staging ` + version.Version + ` - Built: ` + version.BuildTime + `
Resolves which storage backend serves each kind of data movement of a
pipeline run and manages the remote workspaces backing them.

Commands:
  workspace  - Create, inspect, rotate and delete workspaces
  staging    - Bind providers from a plan and check the active staging type
  config     - Manage the configuration file`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultCLILogger()
			if verbose || debug {
				logging.SetGlobalLevel(-1) // zerolog.DebugLevel
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "Storage API token (overrides config and environment)")
	rootCmd.PersistentFlags().StringVar(&apiBaseURL, "api-url", "", "Storage API base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&inputType, "input-type", "", "Staging type of the run (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"
	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling operations...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newWorkspaceCmd())
	rootCmd.AddCommand(newStagingCmd())
	rootCmd.AddCommand(newConfigCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

// loadConfig loads the config file and applies flag overrides. The configured
// log level applies unless --verbose was given.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg.MergeWithFlags(apiToken, apiBaseURL, inputType)
	if err := ensureProxyPassword(cfg); err != nil {
		return nil, err
	}

	if !verbose && !debug && cfg.LogLevel != "" {
		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid [log] level: %w", err)
		}
		logging.SetGlobalLevel(level)
	}
	return cfg, nil
}
