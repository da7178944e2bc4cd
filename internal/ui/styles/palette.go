// Package styles contains Lip Gloss style definitions.
package styles

import "github.com/charmbracelet/lipgloss"

// Palette is the colour set for one editor theme.
type Palette struct {
	Name string

	Text       lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Focus      lipgloss.Color
	Title      lipgloss.Color
	Background lipgloss.Color

	TabActiveFg lipgloss.Color
	TabActiveBg lipgloss.Color
	ButtonFg    lipgloss.Color
	ButtonBg    lipgloss.Color
	BusyBg      lipgloss.Color

	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Added   lipgloss.Color
	Removed lipgloss.Color
}

// Dark mirrors a dark code-editor scheme and is the default.
var Dark = Palette{
	Name:        "dark",
	Text:        lipgloss.Color("#D4D4D4"),
	Muted:       lipgloss.Color("#808080"),
	Border:      lipgloss.Color("#3C3C3C"),
	Focus:       lipgloss.Color("#007ACC"),
	Title:       lipgloss.Color("#9CDCFE"),
	Background:  lipgloss.Color("#1E1E1E"),
	TabActiveFg: lipgloss.Color("#FFFFFF"),
	TabActiveBg: lipgloss.Color("#37373D"),
	ButtonFg:    lipgloss.Color("#FFFFFF"),
	ButtonBg:    lipgloss.Color("#0E639C"),
	BusyBg:      lipgloss.Color("#5A5A5A"),
	Success:     lipgloss.Color("#73F59F"),
	Warning:     lipgloss.Color("#FECA57"),
	Error:       lipgloss.Color("#F48771"),
	Added:       lipgloss.Color("#73F59F"),
	Removed:     lipgloss.Color("#FF8787"),
}

// Light mirrors a light code-editor scheme.
var Light = Palette{
	Name:        "light",
	Text:        lipgloss.Color("#1F1F1F"),
	Muted:       lipgloss.Color("#6E7781"),
	Border:      lipgloss.Color("#D0D7DE"),
	Focus:       lipgloss.Color("#0969DA"),
	Title:       lipgloss.Color("#0550AE"),
	Background:  lipgloss.Color("#FFFFFF"),
	TabActiveFg: lipgloss.Color("#1F1F1F"),
	TabActiveBg: lipgloss.Color("#E8E8E8"),
	ButtonFg:    lipgloss.Color("#FFFFFF"),
	ButtonBg:    lipgloss.Color("#0969DA"),
	BusyBg:      lipgloss.Color("#8C959F"),
	Success:     lipgloss.Color("#1A7F37"),
	Warning:     lipgloss.Color("#9A6700"),
	Error:       lipgloss.Color("#CF222E"),
	Added:       lipgloss.Color("#1A7F37"),
	Removed:     lipgloss.Color("#CF222E"),
}

// ForTheme returns the palette for a theme name. Anything but "light"
// gets Dark.
func ForTheme(name string) Palette {
	if name == Light.Name {
		return Light
	}
	return Dark
}

// Tab renders a result tab label.
func (p Palette) Tab(label string, active bool) string {
	s := lipgloss.NewStyle().Padding(0, 1)
	if active {
		return s.Bold(true).Foreground(p.TabActiveFg).Background(p.TabActiveBg).Render(label)
	}
	return s.Foreground(p.Muted).Render(label)
}

// Button renders an action button. Busy buttons are dimmed.
func (p Palette) Button(label string, busy bool) string {
	bg := p.ButtonBg
	if busy {
		bg = p.BusyBg
	}
	return lipgloss.NewStyle().Padding(0, 2).Bold(true).Foreground(p.ButtonFg).Background(bg).Render(label)
}

// Hint renders secondary text such as key help.
func (p Palette) Hint(s string) string {
	return lipgloss.NewStyle().Foreground(p.Muted).Render(s)
}

// Err renders error text.
func (p Palette) Err(s string) string {
	return lipgloss.NewStyle().Foreground(p.Error).Render(s)
}
