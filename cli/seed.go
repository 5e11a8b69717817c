package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"skmf.evalgo.org/seed"
	"skmf.evalgo.org/version"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "apply a YAML fixture file",
		Long: `Registers the users and creates the resources listed in a YAML file.
Entries that already exist are skipped, so the file can be applied
repeatedly.`,
		Example: `  skmf seed ~/.skmf/fixtures.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := homedir.Expand(args[0])
			if err != nil {
				return err
			}
			fixtures, err := seed.Load(path)
			if err != nil {
				return err
			}
			return runApp(cmd, func(ctx context.Context, a *app) error {
				report, err := seed.Apply(ctx, fixtures, a.auth, a.client)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}

func newAuditCmd() *cobra.Command {
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "print the audit log",
		Long:  `Prints the authentication events recorded in audit.path as JSON, oldest first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, func(ctx context.Context, a *app) error {
				if a.audit == nil {
					return fmt.Errorf("audit.path is not configured")
				}
				var from time.Time
				if since > 0 {
					from = time.Now().Add(-since)
				}
				entries, err := a.audit.List(ctx, from, time.Time{})
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), entries)
			})
		},
	}
	cmd.Flags().DurationVar(&since, "since", 0, "only show entries newer than this")
	return cmd
}

func newVersionCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "print build information",
		Args:  cobra.NoArgs,
		// version needs no configuration
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				return writeJSON(cmd.OutOrStdout(), version.GetBuildInfo())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "skmf %s\n", version.GetVersion())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "include dependencies")
	return cmd
}
