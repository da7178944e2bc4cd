// Package output renders the result pane: the last run's output, or a diff
// against the run before it.
package output

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/zjrosen/polypad/internal/ui/styles"
)

// Placeholder is shown before anything has run.
const Placeholder = "Run your code to see output here."

// Model is a scrollable output view.
type Model struct {
	vp       viewport.Model
	text     string
	previous string
	diff     bool
	palette  styles.Palette
}

// New creates an empty output view.
func New(width, height int) Model {
	return Model{vp: viewport.New(width, height), palette: styles.Dark}
}

// SetSize resizes the view and rewraps its content.
func (m *Model) SetSize(width, height int) {
	m.vp.Width = width
	m.vp.Height = height
	m.refresh()
}

// SetOutput replaces the displayed output and the one it is diffed against.
func (m *Model) SetOutput(current, previous string) {
	if current == m.text && previous == m.previous {
		return
	}
	m.text = current
	m.previous = previous
	m.refresh()
	m.vp.GotoTop()
}

// SetPalette changes the colours used for diffs and hints.
func (m *Model) SetPalette(p styles.Palette) {
	m.palette = p
	m.refresh()
}

// ToggleDiff switches between plain output and the diff view.
func (m *Model) ToggleDiff() bool {
	m.diff = !m.diff
	m.refresh()
	return m.diff
}

// DiffMode reports whether the diff view is shown.
func (m Model) DiffMode() bool { return m.diff }

// Update handles scrolling.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

// View renders the visible lines.
func (m Model) View() string {
	return m.vp.View()
}

func (m *Model) refresh() {
	var body string
	switch {
	case m.diff:
		body = RenderDiff(m.previous, m.text, m.palette)
	case m.text == "":
		body = lipgloss.NewStyle().Foreground(m.palette.Muted).Render(Placeholder)
	default:
		body = m.text
	}
	m.vp.SetContent(Wrap(body, m.vp.Width))
}

// Wrap breaks text at word boundaries to width, hard-wrapping words that
// are longer than a line. Tabs become four spaces.
func Wrap(s string, width int) string {
	s = strings.ReplaceAll(s, "\t", "    ")
	if width <= 0 {
		return s
	}
	return wrap.String(wordwrap.String(s, width), width)
}
