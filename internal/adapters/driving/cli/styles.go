package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles for rendering check results.
var (
	styleHeadline = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#06B6D4"))

	styleNew = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6E3A1"))

	styleChanged = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F9E2AF"))

	styleDeleted = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8")).
			Strikethrough(true)

	styleUndeleted = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6E3A1")).
			Underline(true)

	styleMuted = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086"))
)
