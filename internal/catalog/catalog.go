// Package catalog is the static table of script languages the editor can
// dispatch, with the label shown in the selector and the seed program that
// replaces the script buffer when the language is selected.
package catalog

import (
	"path/filepath"
	"slices"
	"strings"
)

// LanguageID identifies a script language on the wire and in config.
type LanguageID string

const (
	Python     LanguageID = "python"
	JavaScript LanguageID = "javascript"
	Ruby       LanguageID = "ruby"
)

// Option is one selectable language.
type Option struct {
	ID    LanguageID
	Label string
	Seed  string
	// Extensions are the file suffixes `polypad run` maps to this
	// language, with the leading dot.
	Extensions []string
}

// options is ordered as the selector displays it; the first entry is the
// session default.
var options = []Option{
	{
		ID:    Python,
		Label: "Python",
		Seed: "# Python code\nprint(\"Hello from Python!\")\n\n" +
			"# You can define functions\ndef greet(name):\n    return f\"Hello, {name}!\"\n\n" +
			"# Output example\nprint(greet(\"User\"))",
		Extensions: []string{".py"},
	},
	{
		ID:    JavaScript,
		Label: "JavaScript",
		Seed: "// JavaScript code\nconsole.log(\"Hello from JavaScript!\");\n\n" +
			"// You can define functions\nfunction greet(name) {\n  return `Hello, ${name}!`;\n}\n\n" +
			"// Output example\nconsole.log(greet(\"User\"));",
		Extensions: []string{".js", ".mjs", ".cjs"},
	},
	{
		ID:    Ruby,
		Label: "Ruby",
		Seed: "# Ruby code\nputs \"Hello from Ruby!\"\n\n" +
			"# You can define functions\ndef greet(name)\n  \"Hello, #{name}!\"\nend\n\n" +
			"# Output example\nputs greet(\"User\")",
		Extensions: []string{".rb"},
	},
}

// Lookup returns the option for id. The second result is false for any id
// outside the catalog; callers treat that as "no seed available".
func Lookup(id LanguageID) (Option, bool) {
	for _, opt := range options {
		if opt.ID == id {
			return opt.clone(), true
		}
	}
	return Option{}, false
}

// ForPath infers the language of a source file from its extension.
func ForPath(path string) (LanguageID, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "", false
	}
	for _, opt := range options {
		if slices.Contains(opt.Extensions, ext) {
			return opt.ID, true
		}
	}
	return "", false
}

// Valid reports whether id is in the catalog.
func Valid(id LanguageID) bool {
	_, ok := Lookup(id)
	return ok
}

// Options returns the catalog in display order. The result shares no
// memory with the catalog.
func Options() []Option {
	out := make([]Option, len(options))
	for i, opt := range options {
		out[i] = opt.clone()
	}
	return out
}

func (o Option) clone() Option {
	o.Extensions = slices.Clone(o.Extensions)
	return o
}

// IDs returns every language identifier in display order.
func IDs() []LanguageID {
	ids := make([]LanguageID, len(options))
	for i, opt := range options {
		ids[i] = opt.ID
	}
	return ids
}

// Default is the language a fresh session starts with.
func Default() Option {
	return options[0].clone()
}

// Next returns the language after id in display order, wrapping around.
// Unknown ids yield the default.
func Next(id LanguageID) LanguageID {
	for i, opt := range options {
		if opt.ID == id {
			return options[(i+1)%len(options)].ID
		}
	}
	return Default().ID
}

// RunLabel is the caption of the run control, e.g. "Run Python".
func RunLabel(id LanguageID) string {
	s := string(id)
	if s == "" {
		return "Run"
	}
	return "Run " + strings.ToUpper(s[:1]) + s[1:]
}
