package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) newHistoryCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent fill runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be at least 1")
			}

			svc, db, err := a.openAssistant(nil)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := svc.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				a.cli().ShowJSON(runs)
				return nil
			}
			a.cli().ShowHistory(runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
