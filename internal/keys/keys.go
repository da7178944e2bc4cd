// Package keys contains keybinding definitions.
package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the editing session. Letters are left
// to the editing panes, so every action sits on a control chord.
type KeyMap struct {
	// Focus
	NextPane key.Binding
	Markup   key.Binding
	Style    key.Binding
	Script   key.Binding
	Indent   key.Binding

	// Actions
	Run           key.Binding
	CycleLanguage key.Binding
	ClearOutput   key.Binding

	// View
	SwitchTab     key.Binding
	TogglePreview key.Binding
	ToggleTheme   key.Binding
	ToggleDiff    key.Binding

	// General
	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		NextPane: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "next pane"),
		),
		Markup: key.NewBinding(
			key.WithKeys("alt+1"),
			key.WithHelp("alt+1", "markup pane"),
		),
		Style: key.NewBinding(
			key.WithKeys("alt+2"),
			key.WithHelp("alt+2", "style pane"),
		),
		Script: key.NewBinding(
			key.WithKeys("alt+3"),
			key.WithHelp("alt+3", "script pane"),
		),
		Indent: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "indent"),
		),

		Run: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "run script"),
		),
		CycleLanguage: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "next language"),
		),
		ClearOutput: key.NewBinding(
			key.WithKeys("ctrl+k"),
			key.WithHelp("ctrl+k", "clear output"),
		),

		SwitchTab: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "output/preview"),
		),
		TogglePreview: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p", "expand preview"),
		),
		ToggleTheme: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "toggle theme"),
		),
		ToggleDiff: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "diff last runs"),
		),

		Help: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp returns keybindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Run, k.SwitchTab, k.TogglePreview, k.Help, k.Quit}
}

// FullHelp returns keybindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextPane, k.Markup, k.Style, k.Script, k.Indent},         // Focus
		{k.Run, k.CycleLanguage, k.ClearOutput},                     // Actions
		{k.SwitchTab, k.TogglePreview, k.ToggleTheme, k.ToggleDiff}, // View
		{k.Help, k.Quit},                                            // General
	}
}
