package tui

import "github.com/charmbracelet/bubbles/key"

// DashboardKeyMap defines the keys of the main list view
type DashboardKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	NextTab  key.Binding
	Add      key.Binding
	Paste    key.Binding
	Settings key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view.
func (k DashboardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Paste, k.NextTab, k.Settings, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view.
func (k DashboardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextTab},
		{k.Add, k.Paste},
		{k.Settings, k.Help, k.Quit},
	}
}

// InputKeyMap defines the keys of the add-download popup
type InputKeyMap struct {
	Submit key.Binding
	Cancel key.Binding
}

func (k InputKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel}
}

func (k InputKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Submit, k.Cancel}}
}

// SettingsKeyMap defines the keys of the settings browser
type SettingsKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	Close   key.Binding
}

func (k SettingsKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.PrevTab, k.NextTab, k.Close}
}

func (k SettingsKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, {k.PrevTab, k.NextTab}, {k.Close}}
}

var (
	DashboardKeys = DashboardKeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		NextTab:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch tab")),
		Add:      key.NewBinding(key.WithKeys("g", "a"), key.WithHelp("g", "add download")),
		Paste:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "add from clipboard")),
		Settings: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "settings")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}

	InputKeys = InputKeyMap{
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}

	SettingsKeys = SettingsKeyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		NextTab: key.NewBinding(key.WithKeys("right", "l", "tab"), key.WithHelp("→", "next tab")),
		PrevTab: key.NewBinding(key.WithKeys("left", "h", "shift+tab"), key.WithHelp("←", "prev tab")),
		Close:   key.NewBinding(key.WithKeys("esc", "q", "s"), key.WithHelp("esc", "close")),
	}
)
