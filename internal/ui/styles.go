package ui

import "github.com/charmbracelet/lipgloss"

// Lip Gloss styles for the one-shot commands.
// All colors are specified using hex codes.

var (
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff005f")).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ff5f")).
			Bold(true)

	HintStyle = lipgloss.NewStyle().
			Faint(true).
			Foreground(lipgloss.Color("#a8a8a8"))

	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5fd7ff")).
			Bold(true)
)
