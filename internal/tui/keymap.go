package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyBindings holds the progress view's keybindings.
type KeyBindings struct {
	Quit   key.Binding
	CtrlC  key.Binding
	Follow key.Binding
	Up     key.Binding
	Down   key.Binding
}

// NewKeyBindings creates the default keybindings.
func NewKeyBindings() KeyBindings {
	return KeyBindings{
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "stop run"),
		),
		CtrlC: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "stop run"),
		),
		Follow: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "follow"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k KeyBindings) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Follow, k.Up, k.Down}
}
