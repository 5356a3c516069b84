// Package labeledspinner renders a spinner next to a title, a subtitle and a
// help line.
package labeledspinner

import (
	"strings"

	"github.com/alkime/docvoice/internal/tui/style"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Model displays a spinner with title, subtitle and help text.
type Model struct {
	Spinner  spinner.Model
	Title    string
	Subtitle string
	Help     string
}

// New creates a labeled spinner.
func New(s spinner.Spinner, title, subtitle, help string) Model {
	sp := spinner.New()
	sp.Spinner = s

	return Model{
		Spinner:  sp,
		Title:    title,
		Subtitle: subtitle,
		Help:     help,
	}
}

// Init starts the spinner.
func (ls Model) Init() tea.Cmd {
	return ls.Spinner.Tick
}

// Update advances the spinner on its own ticks and ignores everything else.
func (ls Model) Update(teaMsg tea.Msg) (Model, tea.Cmd) {
	if tickMsg, ok := teaMsg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		ls.Spinner, cmd = ls.Spinner.Update(tickMsg)

		return ls, cmd
	}

	return ls, nil
}

// WithLabels returns a copy with new labels and the same spinner frame.
func (ls Model) WithLabels(title, subtitle string) Model {
	ls.Title = title
	ls.Subtitle = subtitle

	return ls
}

// View renders the labeled spinner with its static help text.
func (ls Model) View() string {
	return ls.ViewWithHelp(ls.Help)
}

// ViewWithHelp renders the labeled spinner with help computed at render
// time, such as a progress bar.
func (ls Model) ViewWithHelp(help string) string {
	var sb strings.Builder

	sb.WriteString(ls.Spinner.View())
	sb.WriteString(" ")
	sb.WriteString(style.Title.Render(ls.Title))
	sb.WriteString("\n\n")

	if ls.Subtitle != "" {
		sb.WriteString(style.Subtitle.Render(ls.Subtitle))
		sb.WriteString("\n\n")
	}

	sb.WriteString(style.Help.Render(help))

	return sb.String()
}
