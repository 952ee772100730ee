package app

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Toggle  key.Binding
	Faster  key.Binding
	Slower  key.Binding
	StopAll key.Binding
	About   key.Binding
	Close   key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		Toggle:  key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("space", "toggle")),
		Faster:  key.NewBinding(key.WithKeys("-", "_", "["), key.WithHelp("-", "faster")),
		Slower:  key.NewBinding(key.WithKeys("+", "=", "]"), key.WithHelp("+", "slower")),
		StopAll: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop all")),
		About:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "about")),
		Close:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c", "ctrl+d"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Faster, k.Slower, k.StopAll, k.About, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Toggle, k.Faster, k.Slower},
		{k.StopAll, k.About, k.Close, k.Quit},
	}
}
