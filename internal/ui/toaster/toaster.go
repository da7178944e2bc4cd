// Package toaster shows short status notices over the bottom of the
// screen, e.g. "Theme saved" or "Run already in progress".
package toaster

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/polypad/internal/ui/styles"
)

// DefaultDuration is how long a toast stays up.
const DefaultDuration = 2500 * time.Millisecond

// Level determines the toast's border colour.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarn
	LevelError
)

// Model holds the toaster state.
type Model struct {
	message string
	level   Level
	visible bool
	seq     int
}

// New creates a hidden toaster.
func New() Model {
	return Model{}
}

// Show displays message and returns the command that hides it again.
// A later Show supersedes the pending dismissal of an earlier one.
func (m Model) Show(message string, level Level) (Model, tea.Cmd) {
	m.message = message
	m.level = level
	m.visible = true
	m.seq++
	seq := m.seq
	return m, tea.Tick(DefaultDuration, func(time.Time) tea.Msg {
		return DismissMsg{seq: seq}
	})
}

// Update hides the toast when its own DismissMsg arrives.
func (m Model) Update(msg tea.Msg) Model {
	if d, ok := msg.(DismissMsg); ok && d.seq == m.seq {
		m.visible = false
		m.message = ""
	}
	return m
}

// Visible returns whether the toast is currently showing.
func (m Model) Visible() bool {
	return m.visible
}

// Message returns the current text.
func (m Model) Message() string {
	return m.message
}

// View renders the toast box.
func (m Model) View(p styles.Palette) string {
	if !m.visible || m.message == "" {
		return ""
	}
	var border lipgloss.Color
	switch m.level {
	case LevelSuccess:
		border = p.Success
	case LevelWarn:
		border = p.Warning
	case LevelError:
		border = p.Error
	default:
		border = p.Focus
	}
	return lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Foreground(p.Text).
		Render(m.message)
}

// Overlay draws the toast centred near the bottom of bg.
func (m Model) Overlay(bg string, width, height int, p styles.Palette) string {
	fg := m.View(p)
	if fg == "" {
		return bg
	}
	return Place(fg, bg, width, height, 1)
}

// DismissMsg hides the toast that scheduled it.
type DismissMsg struct {
	seq int
}
