package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
}

// NewFormatter creates a new formatter
func NewFormatter(writer io.Writer) *Formatter {
	return &Formatter{
		writer: writer,
	}
}

// FormatJSON writes v as indented JSON
func (f *Formatter) FormatJSON(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// FormatLanguages writes the catalog as a table
func (f *Formatter) FormatLanguages(languages []LanguageDTO) error {
	rows := make([][]string, 0, len(languages))
	for _, l := range languages {
		id := l.ID
		if l.Default {
			id += " (default)"
		}
		rows = append(rows, []string{id, l.Label, strings.Join(l.Extensions, " ")})
	}
	return f.table([]string{"ID", "LANGUAGE", "EXTENSIONS"}, rows)
}

// FormatRuns writes run history as a table, newest first as given
func (f *Formatter) FormatRuns(runs []RunDTO) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(f.writer, "No runs recorded.")
		return err
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		status := r.Status
		if r.CacheHit {
			status += " (cached)"
		}
		rows = append(rows, []string{
			r.CreatedAt.Local().Format(time.DateTime),
			r.Language,
			status,
			(time.Duration(r.DurationMS) * time.Millisecond).String(),
			fmt.Sprintf("%d", r.CodeBytes),
			shortHash(r.CodeHash),
		})
	}
	return f.table([]string{"WHEN", "LANGUAGE", "STATUS", "DURATION", "BYTES", "HASH"}, rows)
}

func (f *Formatter) table(headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		StyleFunc(func(row, _ int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingRight(2)
			if row == table.HeaderRow {
				return s.Bold(true)
			}
			return s
		}).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(f.writer, t.String())
	return err
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
