package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	prev   key.Binding
	next   key.Binding
	up     key.Binding
	down   key.Binding
	enter  key.Binding
	back   key.Binding
	period key.Binding
	theme  key.Binding
	export key.Binding
	reload key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		prev:   key.NewBinding(key.WithKeys("left", "h", "shift+tab"), key.WithHelp("←/h", "prev tab")),
		next:   key.NewBinding(key.WithKeys("right", "l", "tab"), key.WithHelp("→/l", "next tab")),
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		period: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "period")),
		theme:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
		export: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
		reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.prev, k.next, k.period, k.theme, k.export, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.prev, k.next, k.up, k.down},
		{k.period, k.theme, k.export, k.enter, k.back},
		{k.reload, k.quit},
	}
}
