package session

import (
	"github.com/zjrosen/polypad/internal/catalog"
	"github.com/zjrosen/polypad/internal/preview"
)

// Theme is the editor colour scheme.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	return t == ThemeDark || t == ThemeLight
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// Tab selects what the result pane shows.
type Tab string

const (
	TabOutput  Tab = "output"
	TabPreview Tab = "preview"
)

// Valid reports whether t is a known tab.
func (t Tab) Valid() bool {
	return t == TabOutput || t == TabPreview
}

// DefaultMarkup is the markup buffer of a new session.
const DefaultMarkup = "<div class=\"container\">\n  <h1>Hello World</h1>\n  <p>Welcome to my web app!</p>\n</div>"

// DefaultStyle is the style buffer of a new session.
const DefaultStyle = ".container {\n  max-width: 800px;\n  margin: 0 auto;\n  padding: 20px;\n  font-family: Arial, sans-serif;\n}\n\n" +
	"h1 {\n  color: #333;\n}\n\np {\n  color: #666;\n}"

// State is a point-in-time copy of a session. Mutating it has no effect on
// the controller.
type State struct {
	ID string

	Markup   string
	Style    string
	Script   string
	Language catalog.LanguageID

	Theme           Theme
	ActiveTab       Tab
	PreviewExpanded bool

	// Output is the last run's output or formatted failure.
	Output string
	// PreviousOutput is what Output held before the last run finished.
	PreviousOutput string
	Executing      bool

	// Artifact is always Compose(Markup, Style).
	Artifact preview.Artifact

	// OutputStale is set once the script or language changes after a run
	// was dispatched, and cleared by the next dispatch.
	OutputStale bool

	Runs int
}

// RunLabel is the caption of the run action for the current state.
func (s State) RunLabel() string {
	if s.Executing {
		return "Running..."
	}
	return catalog.RunLabel(s.Language)
}
