package cmd

import (
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lance13c/shopassist/internal/logging"
	"github.com/lance13c/shopassist/internal/ui"
)

var errNoTerminal = errors.New("the interactive UI needs a terminal; run 'shopassist --help' for commands")

// runTUI launches the terminal UI
func (a *app) runTUI(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errNoTerminal
	}

	hub := a.hubClient()
	defer hub.Close()
	svc, db, err := a.openAssistant(hub)
	if err != nil {
		return err
	}
	defer db.Close()

	ctrl := ui.NewController(svc, nil, nil)
	program := tea.NewProgram(
		ui.NewModel(ctrl),
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
	)

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logging.Error("UI exited with error: %v", err)
		return err
	}
	return nil
}
