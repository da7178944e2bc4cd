package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_Basic(t *testing.T) {
	result := Frame("content", "Title", 20, 5, false, Dark)

	assert.Contains(t, result, "╭", "missing top-left corner")
	assert.Contains(t, result, "╯", "missing bottom-right corner")

	lines := strings.Split(result, "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "Title")
	assert.Contains(t, lines[1], "content")
	for i, line := range lines {
		assert.Equal(t, 20, lipgloss.Width(line), "line %d width", i)
	}
}

func TestFrame_ClipsOversizedContent(t *testing.T) {
	content := strings.Repeat("x", 50) + "\n" + strings.Repeat("y\n", 20)
	result := Frame(content, "Wide", 12, 4, true, Light)

	lines := strings.Split(result, "\n")
	require.Len(t, lines, 4)
	for i, line := range lines {
		assert.Equal(t, 12, lipgloss.Width(line), "line %d width", i)
	}
}

func TestFrame_TitleTruncated(t *testing.T) {
	result := Frame("", "A very long pane title", 12, 3, false, Dark)
	first := strings.Split(result, "\n")[0]
	assert.Contains(t, first, "...")
	assert.Equal(t, 12, lipgloss.Width(first))
}

func TestFrame_NoTitle(t *testing.T) {
	result := Frame("", "", 6, 3, false, Dark)
	assert.Contains(t, strings.Split(result, "\n")[0], "────")
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"hello", 3, "..."},
		{"hello", 0, ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Truncate(tt.in, tt.max), "Truncate(%q, %d)", tt.in, tt.max)
	}
}

func TestForTheme(t *testing.T) {
	require.Equal(t, Light, ForTheme("light"))
	require.Equal(t, Dark, ForTheme("dark"))
	require.Equal(t, Dark, ForTheme(""))
}

func TestPalette_Renderers(t *testing.T) {
	require.Contains(t, Dark.Tab("Output", true), "Output")
	require.Contains(t, Dark.Tab("Preview", false), "Preview")
	require.Contains(t, Dark.Button("Run Python", false), "Run Python")
	require.Contains(t, Light.Hint("ctrl+r run"), "ctrl+r run")
	require.Contains(t, Light.Err("boom"), "boom")
}
