package cli

import (
	"ppe-monitor/internal/service"

	"github.com/spf13/cobra"
)

// NewPayrollCommand creates the payroll command.
func NewPayrollCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "payroll",
		Short: "Print the payroll projection for every known worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts.config)
			if err != nil {
				return err
			}
			defer a.Close()

			rows, err := a.payroll.Report()
			if err != nil {
				return err
			}
			return rootOpts.print(cmd.OutOrStdout(), service.FormatPayroll(rows), rows)
		},
	}
}
