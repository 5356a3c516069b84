// Package style defines lipgloss styles for the TUI.
package style

import "github.com/charmbracelet/lipgloss"

// Names omit a "Style" suffix since they are read through the package name
// (style.Title, not style.TitleStyle).
var (
	// Title is used for screen headers.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	// Subtitle is used for secondary text under a header.
	Subtitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	// Success marks a finished conversion or a saved file.
	Success = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	// Error marks a failed conversion.
	Error = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	// Warning is used for notices the user can act on.
	Warning = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	// Viewport frames the summary text.
	Viewport = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	// Help is used for keyboard shortcut hints.
	Help = lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	// Key highlights a key inside a hint.
	Key = lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true)

	// Label is used for inline labels ("Document:", "Audio:").
	Label = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("255"))

	// Muted is used for paths and sizes.
	Muted = lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	// Selected is the chosen operation.
	Selected = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	// Disabled renders controls that cannot be used right now.
	Disabled = lipgloss.NewStyle().
			Faint(true).
			Foreground(lipgloss.Color("240"))

	// Cursor marks the operation under selection.
	Cursor = lipgloss.NewStyle().
		Foreground(lipgloss.Color("205"))
)
