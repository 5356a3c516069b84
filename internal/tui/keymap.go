package tui

import (
	"github.com/alkime/docvoice/pkg/collections"
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the key bindings of the TUI. Bindings that do not apply to
// the current state are disabled and left out of the help line.
type KeyMap struct {
	Submit    key.Binding
	NextOp    key.Binding
	PrevOp    key.Binding
	PickOp    key.Binding
	Focus     key.Binding
	Download  key.Binding
	Play      key.Binding
	New       key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "convert"),
		),
		NextOp: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next operation"),
		),
		PrevOp: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "previous operation"),
		),
		PickOp: key.NewBinding(
			key.WithKeys("1", "2", "3"),
			key.WithHelp("1/2/3", "pick operation"),
		),
		Focus: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "edit path"),
		),
		Download: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "download"),
		),
		Play: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "play"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new document"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
	}
}

// ShortHelp returns the enabled bindings in display order.
func (k KeyMap) ShortHelp() []key.Binding {
	all := []key.Binding{
		k.Submit, k.NextOp, k.PickOp, k.Focus,
		k.Download, k.Play, k.New, k.Quit, k.ForceQuit,
	}

	return collections.Filter(all, key.Binding.Enabled)
}

// FullHelp returns every binding grouped by purpose.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.NextOp, k.PrevOp, k.PickOp, k.Focus},
		{k.Download, k.Play, k.New},
		{k.Quit, k.ForceQuit},
	}
}

// forState enables the bindings that apply to the given screen.
func (k KeyMap) forState(s screen, pathFocused, audio bool) KeyMap {
	form := s == screenForm
	result := s == screenSucceeded || s == screenFailed

	k.Submit.SetEnabled(form)
	k.NextOp.SetEnabled(form)
	k.PrevOp.SetEnabled(form)
	k.PickOp.SetEnabled(form && !pathFocused)
	k.Focus.SetEnabled(form)
	if pathFocused {
		k.Focus.SetHelp("esc", "choose operation")
	} else {
		k.Focus.SetHelp("esc", "edit path")
	}
	k.Download.SetEnabled(s == screenSucceeded)
	k.Play.SetEnabled(s == screenSucceeded && audio)
	k.New.SetEnabled(result)
	// typing into the path must not quit
	k.Quit.SetEnabled(!form || !pathFocused)

	return k
}
