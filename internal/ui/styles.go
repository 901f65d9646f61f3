package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds all the styling for the TUI
type Styles struct {
	Header    lipgloss.Style
	Welcome   lipgloss.Style
	Footer    lipgloss.Style
	NavItem   lipgloss.Style
	NavActive lipgloss.Style
	Card      lipgloss.Style
	Label     lipgloss.Style
	SwitchOn  lipgloss.Style
	SwitchOff lipgloss.Style
	Modal     lipgloss.Style
	Toast     lipgloss.Style
	ErrorBox  lipgloss.Style
	ErrorText lipgloss.Style
	Muted     lipgloss.Style
}

// NewStyles creates a new styles instance
func NewStyles() *Styles {
	return &Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#FE2C55")).
			Padding(0, 2),

		Welcome: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#25F4EE")),

		Footer: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1),

		NavItem: lipgloss.NewStyle().
			Foreground(lipgloss.Color("248")).
			Padding(0, 2),

		NavActive: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#FE2C55")).
			Padding(0, 2),

		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 2).
			Width(56),

		Label: lipgloss.NewStyle().
			Width(20),

		SwitchOn: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#04B575")),

		SwitchOff: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),

		Modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Width(60),

		Toast: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("236")).
			Padding(0, 1).
			MarginTop(1),

		ErrorBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF5F87")).
			Foreground(lipgloss.Color("#FF5F87")).
			Padding(0, 1),

		ErrorText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")),

		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
	}
}
