// Package preview renders the composed document for the preview tab as a
// syntax-highlighted listing.
package preview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"

	"github.com/zjrosen/polypad/internal/log"
	"github.com/zjrosen/polypad/internal/preview"
)

// noMarginStyle removes document margins so the listing fills the pane.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	},
	"code_block": {
		"margin": 0
	}
}`

// Renderer wraps glamour for one width and theme.
type Renderer struct {
	renderer *glamour.TermRenderer
	width    int
	theme    string
}

// New creates a renderer. theme is "dark" or "light".
func New(width int, theme string) (*Renderer, error) {
	style := styles.DarkStyle
	if theme == "light" {
		style = styles.LightStyle
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("creating preview renderer: %w", err)
	}
	return &Renderer{renderer: r, width: width, theme: theme}, nil
}

// Matches reports whether the renderer was built for width and theme.
func (r *Renderer) Matches(width int, theme string) bool {
	return r != nil && r.width == width && r.theme == theme
}

// Render highlights the artifact as HTML.
func (r *Renderer) Render(a preview.Artifact) string {
	out, err := r.renderer.Render(Listing(a))
	if err != nil {
		log.ErrorErr(log.CatRender, "preview render failed", err)
		return a.String()
	}
	return strings.Trim(out, "\n")
}

// Listing wraps the artifact in a fenced html block. The fence grows past
// any backtick run inside the document.
func Listing(a preview.Artifact) string {
	fence := "```"
	for strings.Contains(a.String(), fence) {
		fence += "`"
	}
	return fence + "html\n" + a.String() + "\n" + fence + "\n"
}
