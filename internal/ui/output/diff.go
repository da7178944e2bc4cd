package output

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/zjrosen/polypad/internal/ui/styles"
)

// Line is one line of a line-level diff.
type Line struct {
	Op   diffmatchpatch.Operation
	Text string
}

// DiffLines compares two outputs line by line.
func DiffLines(previous, current string) []Line {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(previous, current)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []Line
	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		for _, l := range strings.Split(text, "\n") {
			out = append(out, Line{Op: d.Type, Text: l})
		}
	}
	return out
}

// RenderDiff draws a unified-style diff of two outputs.
func RenderDiff(previous, current string, p styles.Palette) string {
	if previous == current {
		return lipgloss.NewStyle().Foreground(p.Muted).Render("No changes since the previous run.")
	}

	added := lipgloss.NewStyle().Foreground(p.Added)
	removed := lipgloss.NewStyle().Foreground(p.Removed)

	var b strings.Builder
	for i, l := range DiffLines(previous, current) {
		if i > 0 {
			b.WriteString("\n")
		}
		switch l.Op {
		case diffmatchpatch.DiffInsert:
			b.WriteString(added.Render("+ " + l.Text))
		case diffmatchpatch.DiffDelete:
			b.WriteString(removed.Render("- " + l.Text))
		default:
			b.WriteString("  " + l.Text)
		}
	}
	return b.String()
}
