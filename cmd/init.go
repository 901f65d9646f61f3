package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/lance13c/shopassist/internal/config"
)

func (a *app) newInitCmd() *cobra.Command {
	var force bool

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration for this project",
		Long: `Initialize Shop Assistant in the current project:
- Create .shopassist/config.yaml with default settings
- Point storage at .shopassist/shopassist.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(a.projectDir)
			if err != nil {
				return err
			}
			loader := config.NewLoader(dir)
			path := loader.GetConfigPath()

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := config.DefaultConfig()
			if err := loader.Save(cfg, path); err != nil {
				return err
			}

			green := lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
			fmt.Fprintln(a.out, green.Render("🛍️  Shop Assistant initialized"))
			fmt.Fprintf(a.out, "   Config:  %s\n", path)
			fmt.Fprintf(a.out, "   Storage: %s\n", filepath.Join(dir, cfg.Storage.Path))
			fmt.Fprintln(a.out, "\nNext: run 'shopassist profile set' to save your shipping details.")
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return initCmd
}
