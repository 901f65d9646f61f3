package cmd

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lance13c/shopassist/internal/services"
	"github.com/lance13c/shopassist/internal/store"
)

func (a *app) newProfileCmd() *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit the shipping profile",
	}

	var asJSON bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the saved profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, db, err := a.openAssistant(nil)
			if err != nil {
				return err
			}
			defer db.Close()

			cli := a.cli()
			p, err := svc.Profile(cmd.Context())
			if errors.Is(err, services.ErrNoProfile) {
				cli.ShowWarning("No profile saved yet. Run 'shopassist profile set'.")
				return nil
			}
			if err != nil {
				return err
			}
			if asJSON {
				cli.ShowJSON(p)
				return nil
			}
			cli.ShowProfile(p)
			return nil
		},
	}
	showCmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	var p store.Profile
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Save the shipping profile",
		Long: `Save the shipping profile. Name and phone are required.

Flags override the stored values. Without flags on a terminal, each field
is asked for in turn with the stored value as default.`,
		Example: `  shopassist profile set --name Budi --phone 08123 --postal-code 10110`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, db, err := a.openAssistant(nil)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			current, err := svc.Profile(ctx)
			if err != nil && !errors.Is(err, services.ErrNoProfile) {
				return err
			}

			cli := a.cli()
			flags := cmd.Flags()
			next := current
			if !anyChanged(cmd, "name", "phone", "address", "postal-code") && isTerminal(a.in) {
				if next, err = cli.PromptProfile(current); err != nil {
					return err
				}
			}
			if flags.Changed("name") {
				next.Name = p.Name
			}
			if flags.Changed("phone") {
				next.Phone = p.Phone
			}
			if flags.Changed("address") {
				next.Address = p.Address
			}
			if flags.Changed("postal-code") {
				next.PostalCode = p.PostalCode
			}

			saved, err := svc.SaveProfile(ctx, next)
			if err != nil {
				return err
			}
			cli.ShowSuccess("Profile berhasil disimpan")
			cli.ShowProfile(saved)
			return nil
		},
	}
	setCmd.Flags().StringVar(&p.Name, "name", "", "recipient name")
	setCmd.Flags().StringVar(&p.Phone, "phone", "", "phone number")
	setCmd.Flags().StringVar(&p.Address, "address", "", "street address")
	setCmd.Flags().StringVar(&p.PostalCode, "postal-code", "", "postal code")

	profileCmd.AddCommand(showCmd, setCmd)
	return profileCmd
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// anyChanged reports whether any of the named flags was set on the command
// line
func anyChanged(cmd *cobra.Command, names ...string) bool {
	for _, name := range names {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}
