package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Lock    key.Binding
	Clear   key.Binding
	Refresh key.Binding
	Reloads key.Binding
	Help    key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Lock:    key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "lock/unlock")),
	Clear:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload from storage")),
	Reloads: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "show reloads")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Lock, k.Clear, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Lock, k.Clear, k.Refresh},
		{k.Reloads, k.Help, k.Quit},
	}
}
