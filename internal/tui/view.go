package tui

import (
	"fmt"
	"strings"

	"github.com/alkime/docvoice/internal/controller"
	"github.com/alkime/docvoice/internal/operation"
	"github.com/alkime/docvoice/internal/tui/style"
	"github.com/alkime/docvoice/pkg/collections"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// View renders the current snapshot.
func (m *Model) View() string {
	var sb strings.Builder

	sb.WriteString(style.Title.Render("docvoice"))
	sb.WriteString(style.Subtitle.Render("  documents to speech and summaries"))
	sb.WriteString("\n\n")

	switch s := m.state.(type) {
	case controller.InFlight:
		sb.WriteString(m.formView(false))
		sb.WriteString("\n\n")
		sb.WriteString(m.spinner.ViewWithHelp(m.progress.ViewAs(float64(s.Progress) / 100)))

	case controller.Succeeded:
		sb.WriteString(m.succeededView(s))

	case controller.Failed:
		sb.WriteString(failedView(s))

	default:
		sb.WriteString(m.formView(!m.pending))
	}

	if m.notice.text != "" {
		sb.WriteString("\n\n")
		sb.WriteString(m.notice.style.Render(m.notice.text))
	}

	sb.WriteString("\n\n")
	sb.WriteString(renderHelp(m.activeKeys().ShortHelp()))
	sb.WriteString("\n")

	return sb.String()
}

// formView renders the document path and the operation selector. A disabled
// form is shown dimmed and ignores input.
func (m *Model) formView(enabled bool) string {
	var sb strings.Builder

	label, item := style.Label, style.Muted
	if !enabled {
		label, item = style.Disabled, style.Disabled
	}

	sb.WriteString(label.Render("Document  "))
	if enabled {
		sb.WriteString(m.path.View())
	} else {
		sb.WriteString(item.Render(m.path.Value()))
	}
	sb.WriteString("\n")
	sb.WriteString(item.Render("          accepts " + strings.Join(operation.AcceptedExtensions, " ")))
	sb.WriteString("\n\n")

	sb.WriteString(label.Render("Operation"))
	sb.WriteString("\n")

	for i, op := range m.ops {
		line := fmt.Sprintf("[%d] %s", i+1, op.Label())

		switch {
		case !enabled:
			line = "  " + style.Disabled.Render(line)
		case i == m.selected:
			line = style.Cursor.Render("> ") + style.Selected.Render(line)
		default:
			line = "  " + item.Render(line)
		}

		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

func (m *Model) succeededView(s controller.Succeeded) string {
	var sb strings.Builder

	sb.WriteString(style.Success.Render("✓ " + s.Operation.Label() + " finished"))
	sb.WriteString(style.Muted.Render("  " + s.FileName))
	sb.WriteString("\n\n")

	switch result := s.Result.(type) {
	case controller.TextResult:
		sb.WriteString(style.Viewport.Render(m.viewport.View()))

	case controller.AudioResult:
		sb.WriteString(style.Label.Render("Audio  "))
		sb.WriteString(result.Ref.PlayableURL())
		sb.WriteString(style.Muted.Render("  " + formatSize(result.Ref.Size())))
	}

	return sb.String()
}

func failedView(s controller.Failed) string {
	var sb strings.Builder

	sb.WriteString(style.Error.Render("✗ " + s.Operation.Label() + " failed"))
	sb.WriteString(style.Muted.Render("  " + s.FileName))
	sb.WriteString("\n\n")
	sb.WriteString(s.Message)

	return sb.String()
}

func renderKeyHelp(keyBinding key.Binding) string {
	return style.Help.Render("[") + style.Key.Render(keyBinding.Help().Key) +
		style.Help.Render("] ") +
		style.Help.Render(keyBinding.Help().Desc)
}

func renderHelp(bindings []key.Binding) string {
	return strings.Join(collections.Apply(bindings, renderKeyHelp), "  ")
}

func formatSize(n int) string {
	const kib = 1024
	if n < kib {
		return fmt.Sprintf("%d B", n)
	}
	if n < kib*kib {
		return fmt.Sprintf("%.1f KB", float64(n)/kib)
	}

	return fmt.Sprintf("%.1f MB", float64(n)/(kib*kib))
}

// wrapText wraps text to width so long lines wrap in the viewport instead of
// being cut off.
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}

	return lipgloss.NewStyle().Width(width).Render(text)
}
