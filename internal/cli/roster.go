package cli

import (
	"fmt"

	"ppe-monitor/internal/service"

	"github.com/spf13/cobra"
)

// NewRosterCommand creates the roster command group.
func NewRosterCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Manage the worker roster",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import",
		Short: "Upsert the roster from the config file into the workers table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts.config)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.workers.ImportRoster(rootOpts.config.Roster)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d worker(s)\n", n)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List workers with their leave balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts.config)
			if err != nil {
				return err
			}
			defer a.Close()

			workers, err := a.workers.List()
			if err != nil {
				return err
			}
			return rootOpts.print(cmd.OutOrStdout(), service.FormatWorkers(workers), workers)
		},
	})

	return cmd
}
