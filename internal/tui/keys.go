package tui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Tab        key.Binding
	Quit       key.Binding
	Up         key.Binding
	Down       key.Binding
	Left       key.Binding
	Right      key.Binding
	PrevWeek   key.Binding
	NextWeek   key.Binding
	Today      key.Binding
	ShiftEarly key.Binding
	ShiftLate  key.Binding
	Toggle     key.Binding
	Complete   key.Binding
	Reopen     key.Binding
	Refresh    key.Binding
	Help       key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Toggle, k.ShiftLate, k.Quit, k.Help}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Quit, k.Help, k.Refresh},
		{k.Up, k.Down, k.Left, k.Right, k.PrevWeek, k.NextWeek, k.Today},
		{k.Toggle, k.ShiftEarly, k.ShiftLate, k.Complete, k.Reopen},
	}
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch view"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "prev day"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next day"),
		),
		PrevWeek: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "prev week"),
		),
		NextWeek: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next week"),
		),
		Today: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "today"),
		),
		ShiftEarly: key.NewBinding(
			key.WithKeys("H", "shift+left"),
			key.WithHelp("H", "move a day earlier"),
		),
		ShiftLate: key.NewBinding(
			key.WithKeys("L", "shift+right"),
			key.WithHelp("L", "move a day later"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("x", " ", "enter"),
			key.WithHelp("x", "toggle done"),
		),
		Complete: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "complete goal"),
		),
		Reopen: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "reopen goal"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
	}
}
