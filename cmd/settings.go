package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lance13c/shopassist/internal/store"
)

func (a *app) newSettingsCmd() *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change auto-fill settings",
	}

	var asJSON bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, db, err := a.openAssistant(nil)
			if err != nil {
				return err
			}
			defer db.Close()

			settings, err := svc.Settings(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				a.cli().ShowJSON(settings)
				return nil
			}
			a.cli().ShowSettings(settings)
			return nil
		},
	}
	showCmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	var s store.Settings
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Change settings; unset flags keep their stored value",
		Example: `  shopassist settings set --auto-fill --delay 150
  shopassist settings set --smart-nav=false --payment transfer`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !anyChanged(cmd, "auto-fill", "smart-nav", "delay", "payment") {
				return fmt.Errorf("nothing to change; see 'shopassist settings set --help'")
			}

			hub := a.hubClient()
			defer hub.Close()
			svc, db, err := a.openAssistant(hub)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			next, err := svc.Settings(ctx)
			if err != nil {
				return err
			}
			if flags.Changed("auto-fill") {
				next.AutoFillEnabled = s.AutoFillEnabled
			}
			if flags.Changed("smart-nav") {
				next.SmartNavEnabled = s.SmartNavEnabled
			}
			if flags.Changed("delay") {
				next.FillDelayMs = s.FillDelayMs
			}
			if flags.Changed("payment") {
				next.PaymentMethod = s.PaymentMethod
			}

			saved, err := svc.SaveSettings(ctx, next)
			if err != nil {
				return err
			}
			a.cli().ShowSuccess("Pengaturan disimpan")
			a.cli().ShowSettings(saved)
			return nil
		},
	}
	setCmd.Flags().BoolVar(&s.AutoFillEnabled, "auto-fill", false, "enable auto-fill mode")
	setCmd.Flags().BoolVar(&s.SmartNavEnabled, "smart-nav", false, "retry detection while the page loads")
	setCmd.Flags().IntVar(&s.FillDelayMs, "delay", 100, "delay before each field write, in ms")
	setCmd.Flags().StringVar(&s.PaymentMethod, "payment", "cod",
		"preferred payment method ("+strings.Join(store.PaymentMethods, ", ")+")")

	settingsCmd.AddCommand(showCmd, setCmd)
	return settingsCmd
}
