package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Border characters (rounded)
const (
	borderTopLeft     = "╭"
	borderTopRight    = "╮"
	borderBottomLeft  = "╰"
	borderBottomRight = "╯"
	borderHorizontal  = "─"
	borderVertical    = "│"
)

// Frame renders content in a width x height box with the title embedded in
// the top border: ╭─ Title ─────╮. Content is clipped or padded to fit, so
// a widget that has not been re-measured yet still draws inside its box.
func Frame(content, title string, width, height int, focused bool, p Palette) string {
	borderColor := p.Border
	if focused {
		borderColor = p.Focus
	}
	borderStyle := lipgloss.NewStyle().Foreground(borderColor)
	titleStyle := lipgloss.NewStyle().Foreground(p.Title)

	innerWidth := max(width-2, 1)
	contentHeight := max(height-2, 1)

	var b strings.Builder
	b.WriteString(topBorder(title, innerWidth, borderStyle, titleStyle))
	b.WriteString("\n")

	lines := strings.Split(content, "\n")
	for i := 0; i < contentHeight; i++ {
		var line string
		if i < len(lines) {
			line = lines[i]
		}
		line = clip(line, innerWidth)
		if w := lipgloss.Width(line); w < innerWidth {
			line += strings.Repeat(" ", innerWidth-w)
		}
		b.WriteString(borderStyle.Render(borderVertical))
		b.WriteString(line)
		b.WriteString(borderStyle.Render(borderVertical))
		b.WriteString("\n")
	}

	b.WriteString(borderStyle.Render(borderBottomLeft + strings.Repeat(borderHorizontal, innerWidth) + borderBottomRight))
	return b.String()
}

func topBorder(title string, innerWidth int, borderStyle, titleStyle lipgloss.Style) string {
	// "─ " + title + " ─" needs at least four cells around the title.
	if title == "" || innerWidth < 4 {
		return borderStyle.Render(borderTopLeft + strings.Repeat(borderHorizontal, innerWidth) + borderTopRight)
	}

	display := Truncate(title, innerWidth-4)
	remaining := max(innerWidth-3-lipgloss.Width(display), 0)

	return borderStyle.Render(borderTopLeft+borderHorizontal+" ") +
		titleStyle.Render(display) +
		borderStyle.Render(" "+strings.Repeat(borderHorizontal, remaining)+borderTopRight)
}

// clip cuts a possibly styled line to at most width cells.
func clip(line string, width int) string {
	if lipgloss.Width(line) <= width {
		return line
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(line)
}

// Truncate shortens s to maxWidth cells, ending in "..." when cut.
func Truncate(s string, maxWidth int) string {
	if maxWidth < 1 {
		return ""
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return strings.Repeat(".", maxWidth)
	}

	var out strings.Builder
	for _, r := range s {
		if lipgloss.Width(out.String()+string(r)) > maxWidth-3 {
			break
		}
		out.WriteRune(r)
	}
	return out.String() + "..."
}
