package ui

import "github.com/charmbracelet/lipgloss"

// ANSI colors so the help output follows the terminal theme.
var (
	TitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true).MarginBottom(1)
	UsageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	DescStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	FlagStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	// OKStyle and WarnStyle mark one-shot command results.
	OKStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	WarnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
)
