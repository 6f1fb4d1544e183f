package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Start   key.Binding
	Reset   key.Binding
	Left    key.Binding
	Middle  key.Binding
	Right   key.Binding
	Quit    key.Binding
	buttons bool
}

func newKeyMap(buttons bool) keyMap {
	km := keyMap{
		Start:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start without clicking")),
		Reset:  key.NewBinding(key.WithKeys("esc", "r"), key.WithHelp("esc/r", "reset")),
		Left:   key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "left button")),
		Middle: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "middle button")),
		Right:  key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "right button")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
	km.buttons = buttons
	km.Left.SetEnabled(buttons)
	km.Middle.SetEnabled(buttons)
	km.Right.SetEnabled(buttons)
	return km
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	if k.buttons {
		return []key.Binding{k.Reset, k.Left, k.Middle, k.Right, k.Quit}
	}
	return []key.Binding{k.Start, k.Reset, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Reset},
		{k.Left, k.Middle, k.Right},
		{k.Quit},
	}
}
