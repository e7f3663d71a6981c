package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rescale/rescale-staging/internal/config"
	"github.com/rescale/rescale-staging/internal/staging"
	"github.com/rescale/rescale-staging/internal/staging/strategy"
)

// newStagingCmd creates the 'staging' command group.
func newStagingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staging",
		Short: "Inspect staging bindings",
		Long: `Staging commands.

Commands:
  plan  - Bind the providers of a plan and check the active staging type`,
	}

	cmd.AddCommand(newStagingPlanCmd())

	return cmd
}

// newStagingPlanCmd creates the 'staging plan' command.
func newStagingPlanCmd() *cobra.Command {
	var (
		planFile    string
		destination string
		keep        bool
	)

	cmd := &cobra.Command{
		Use:   "plan [table-id...]",
		Short: "Bind a plan and check the active staging type",
		Long: `Create the providers of a binding plan, bind them, and print the slot
table. The file and table strategies of the active staging type are then
built, and each table id given is resolved to its location.

Providers created for the run (temporary directories, new workspaces) are
cleaned up at the end unless --keep is given.

Examples:
  rescale-staging staging plan --plan plan.yaml
  rescale-staging staging plan --plan plan.yaml --input-type s3 orders events`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if planFile == "" {
				planFile = cfg.Staging.BindingPlan
			}
			if planFile == "" {
				return fmt.Errorf("no binding plan: use --plan or set [staging] binding_plan")
			}
			plan, err := config.LoadBindingPlan(planFile)
			if err != nil {
				return err
			}

			return runPlan(ctx, cmd.OutOrStdout(), cfg, plan, destination, args, keep)
		},
	}

	cmd.Flags().StringVar(&planFile, "plan", "", "Binding plan file (default from config)")
	cmd.Flags().StringVar(&destination, "destination", "in/tables", "Table destination")
	cmd.Flags().BoolVar(&keep, "keep", false, "Keep temporary directories and created workspaces")

	return cmd
}

func runPlan(ctx context.Context, w io.Writer, cfg *config.Config, plan *config.BindingPlan, destination string, tables []string, keep bool) (err error) {
	log := GetLogger()

	stores, err := newObjectStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	f, err := strategy.NewFactory(strategy.Options{
		Type:         staging.Type(cfg.Staging.InputType),
		Logger:       log,
		Format:       cfg.Staging.ManifestFormat,
		ObjectStores: stores,
	})
	if err != nil {
		return err
	}

	b := &binder{cfg: cfg, logger: log}
	if planNeedsWorkspaces(plan) {
		provider, err := getWorkspaceProvider(ctx, cfg)
		if err != nil {
			return err
		}
		b.workspaces = provider
	}
	if err := b.bind(ctx, f, plan); err != nil {
		return err
	}

	if keep {
		log.Warnf("Keeping providers; workspaces created by this run must be deleted with 'workspace delete'")
	} else {
		defer func() {
			if cleanupErr := f.Cleanup(context.WithoutCancel(ctx)); cleanupErr != nil && err == nil {
				err = cleanupErr
			}
		}()
	}

	printSlots(w, f)
	return checkStrategies(ctx, w, f, destination, tables)
}

// printSlots prints which provider fills each slot of each staging type.
func printSlots(w io.Writer, f *strategy.Factory) {
	defs := f.StrategyMap()
	axes := staging.AllAxes()

	fmt.Fprintf(w, "Active staging type: %s\n\n", f.Type())
	fmt.Fprintf(w, "%-22s", "TYPE")
	for _, axis := range axes {
		fmt.Fprintf(w, " %-24s", strings.ToUpper(string(axis)))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 22+25*len(axes)))

	for _, typ := range f.Types() {
		fmt.Fprintf(w, "%-22s", typ)
		for _, axis := range axes {
			fmt.Fprintf(w, " %-24s", truncate(staging.Describe(defs[typ].Provider(axis)), 24))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
}

// checkStrategies builds the strategies of the active type and resolves
// tables. Strategy errors are printed; the first one is returned.
func checkStrategies(ctx context.Context, w io.Writer, f *strategy.Factory, destination string, tables []string) error {
	var firstErr error
	fail := func(what string, err error) {
		fmt.Fprintf(w, "%-16s FAILED: %v\n", what, err)
		if firstErr == nil {
			firstErr = err
		}
	}

	file, err := f.FileInputStrategy(nil)
	if err != nil {
		fail("File strategy:", err)
	} else {
		fmt.Fprintf(w, "%-16s %s -> %s\n", "File strategy:", file.DataPath(), file.MetadataPath())
	}

	table, err := f.TableInputStrategy(destination, nil)
	if err != nil {
		fail("Table strategy:", err)
		return firstErr
	}
	fmt.Fprintf(w, "%-16s %s (%s)\n", "Table strategy:", table.Kind(), table.Destination())

	for _, id := range tables {
		loc, err := table.Resolve(ctx, id)
		if err != nil {
			fail("  "+id, err)
			continue
		}
		sliced := ""
		if loc.Sliced {
			sliced = fmt.Sprintf(" (%d slices)", len(loc.Slices))
		}
		fmt.Fprintf(w, "  %-14s %s%s\n", id, loc.URI, sliced)
	}
	return firstErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
