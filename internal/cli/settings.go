package cli

import (
	"fmt"
	"strconv"
	"strings"

	"ppe-monitor/internal/service"

	"github.com/spf13/cobra"
)

// NewSettingsCommand creates the settings command group.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change persisted settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSettings(rootOpts, func(s *service.SettingsService) error {
				current := s.Current()
				return rootOpts.print(cmd.OutOrStdout(), service.FormatSettings(current), current)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-webhook <url>",
		Short: "Set the alert webhook URL (empty string clears it)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSettings(rootOpts, func(s *service.SettingsService) error {
				return s.SetWebhookURL(strings.TrimSpace(args[0]))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:       "webhook <on|off>",
		Short:     "Enable or disable the alert webhook",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled bool
			switch strings.ToLower(args[0]) {
			case "on":
				enabled = true
			case "off":
			default:
				return fmt.Errorf("expected on or off, got %q", args[0])
			}
			return withSettings(rootOpts, func(s *service.SettingsService) error {
				return s.SetWebhookEnabled(enabled)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-penalty <category> <amount>",
		Short: "Set the penalty for helmet, vest, gloves, boots or chest_guard",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseFloatArg(args[1])
			if err != nil {
				return err
			}
			return withSettings(rootOpts, func(s *service.SettingsService) error {
				return s.SetPenalty(strings.ToLower(args[0]), amount)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-holiday-rate <days>",
		Short: "Set the leave days deducted per violation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			days, err := parseFloatArg(args[0])
			if err != nil {
				return err
			}
			return withSettings(rootOpts, func(s *service.SettingsService) error {
				return s.SetHolidayRate(days)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-violation-penalty <amount>",
		Short: "Set the salary deducted per violation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseFloatArg(args[0])
			if err != nil {
				return err
			}
			return withSettings(rootOpts, func(s *service.SettingsService) error {
				return s.SetViolationPenalty(amount)
			})
		},
	})

	return cmd
}

func withSettings(rootOpts *RootOptions, fn func(*service.SettingsService) error) error {
	a, err := openApp(rootOpts.config)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a.settings)
}

func parseFloatArg(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return v, nil
}
