// Package preview composes the markup and stylesheet buffers into a single
// self-contained document and describes the permissions of the isolated
// context that renders it.
package preview

import (
	"html"
	"strings"
)

// Artifact is a complete HTML document built from the markup and style
// buffers. It is a pure function of those two inputs.
type Artifact string

// String returns the document text.
func (a Artifact) String() string { return string(a) }

// Compose embeds style in a <style> element and markup in <body>. Neither
// input is escaped or altered.
func Compose(markup, style string) Artifact {
	var b strings.Builder
	b.Grow(len(markup) + len(style) + 96)
	b.WriteString("\n      <html>\n        <head>\n          <style>")
	b.WriteString(style)
	b.WriteString("</style>\n        </head>\n        <body>")
	b.WriteString(markup)
	b.WriteString("</body>\n      </html>\n    ")
	return Artifact(b.String())
}

// Sandbox is the capability set granted to the rendering context. The
// artifact never carries it; the host applies it.
type Sandbox struct {
	Scripts    bool
	Forms      bool
	Popups     bool
	Modals     bool
	SameOrigin bool
}

// DefaultSandbox allows scripts, forms, popups and modals and keeps the
// document cross-origin.
func DefaultSandbox() Sandbox {
	return Sandbox{
		Scripts: true,
		Forms:   true,
		Popups:  true,
		Modals:  true,
	}
}

// Attribute renders the iframe sandbox token list.
func (s Sandbox) Attribute() string {
	var tokens []string
	if s.Scripts {
		tokens = append(tokens, "allow-scripts")
	}
	if s.Forms {
		tokens = append(tokens, "allow-forms")
	}
	if s.Popups {
		tokens = append(tokens, "allow-popups")
	}
	if s.Modals {
		tokens = append(tokens, "allow-modals")
	}
	if s.SameOrigin {
		tokens = append(tokens, "allow-same-origin")
	}
	return strings.Join(tokens, " ")
}

// IframeDocument wraps the artifact in an <iframe> whose srcdoc holds the
// artifact and whose sandbox attribute carries sb. The artifact is escaped
// only as an attribute value; the framed document sees it verbatim.
func IframeDocument(a Artifact, sb Sandbox) string {
	var b strings.Builder
	b.WriteString(`<iframe title="Preview" width="100%" height="100%" sandbox="`)
	b.WriteString(sb.Attribute())
	b.WriteString(`" srcdoc="`)
	b.WriteString(html.EscapeString(string(a)))
	b.WriteString(`"></iframe>`)
	return b.String()
}
