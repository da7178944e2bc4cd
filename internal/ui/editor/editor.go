// Package editor adapts a bubbles textarea into an editing pane that the
// layout coordinator can re-measure.
//
// The textarea keeps its size until it is told to re-measure. The parent
// assigns a box with SetBox whenever the screen geometry changes, but the
// textarea only adopts that box after the coordinator calls Layout and the
// parent then calls Remeasure from the update loop.
package editor

import (
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/polypad/internal/layout"
	"github.com/zjrosen/polypad/internal/ui/styles"
)

// Pane is one editing surface.
type Pane struct {
	id      layout.SurfaceID
	title   string
	area    textarea.Model
	tabSize int

	stale      atomic.Bool
	boxW, boxH int
	measured   bool
}

var _ layout.Surface = (*Pane)(nil)

// New creates an unfocused, unsized pane.
func New(id layout.SurfaceID, title string, tabSize int) *Pane {
	ta := textarea.New()
	ta.ShowLineNumbers = true
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.Placeholder = "Start typing..."
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.Blur()

	if tabSize <= 0 {
		tabSize = 4
	}
	return &Pane{id: id, title: title, area: ta, tabSize: tabSize}
}

// ID returns the surface this pane backs.
func (p *Pane) ID() layout.SurfaceID { return p.id }

// ZoneID is the bubblezone id of the pane's box.
func (p *Pane) ZoneID() string { return "pane-" + string(p.id) }

// Title returns the title drawn in the top border.
func (p *Pane) Title() string { return p.title }

// SetTitle replaces the border title.
func (p *Pane) SetTitle(title string) { p.title = title }

// Layout marks the pane for re-measurement. Safe to call from any
// goroutine.
func (p *Pane) Layout() {
	p.stale.Store(true)
}

// SetBox assigns the outer size of the pane including its border. The
// first box is adopted immediately; later boxes wait for Remeasure.
func (p *Pane) SetBox(width, height int) {
	p.boxW, p.boxH = width, height
	if !p.measured {
		p.apply()
	}
}

// Box returns the assigned outer size.
func (p *Pane) Box() (int, int) { return p.boxW, p.boxH }

// Remeasure adopts the assigned box if Layout was called since the last
// measurement. It reports whether the textarea was resized.
func (p *Pane) Remeasure() bool {
	if !p.stale.Swap(false) {
		return false
	}
	p.apply()
	return true
}

// Size returns the textarea's current inner size.
func (p *Pane) Size() (int, int) {
	return p.area.Width(), p.area.Height()
}

func (p *Pane) apply() {
	p.area.SetWidth(max(p.boxW-2, 1))
	p.area.SetHeight(max(p.boxH-2, 1))
	p.measured = true
}

// Value returns the buffer text.
func (p *Pane) Value() string { return p.area.Value() }

// SetValue replaces the buffer text. The cursor moves to the end.
func (p *Pane) SetValue(s string) { p.area.SetValue(s) }

// Focus gives the pane the cursor.
func (p *Pane) Focus() tea.Cmd { return p.area.Focus() }

// Blur removes the cursor.
func (p *Pane) Blur() { p.area.Blur() }

// Focused reports whether the pane has the cursor.
func (p *Pane) Focused() bool { return p.area.Focused() }

// Indent inserts spaces up to the next tab stop.
func (p *Pane) Indent() bool {
	if !p.area.Focused() {
		return false
	}
	li := p.area.LineInfo()
	col := li.StartColumn + li.ColumnOffset
	p.area.InsertString(strings.Repeat(" ", p.tabSize-col%p.tabSize))
	return true
}

// Update forwards msg to the textarea and reports whether the text changed.
func (p *Pane) Update(msg tea.Msg) (bool, tea.Cmd) {
	before := p.area.Value()
	var cmd tea.Cmd
	p.area, cmd = p.area.Update(msg)
	return p.area.Value() != before, cmd
}

// View draws the pane in its assigned box.
func (p *Pane) View(pal styles.Palette) string {
	box := styles.Frame(p.area.View(), p.title, p.boxW, p.boxH, p.area.Focused(), pal)
	return zone.Mark(p.ZoneID(), box)
}
