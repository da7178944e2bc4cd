package presentation

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/polypad/internal/catalog"
	"github.com/zjrosen/polypad/internal/history"
)

func TestFromCatalog_MarksDefault(t *testing.T) {
	dtos := FromCatalog(catalog.Options())
	require.Len(t, dtos, 3)
	require.Equal(t, "python", dtos[0].ID)
	require.True(t, dtos[0].Default)
	require.False(t, dtos[1].Default)
	require.Equal(t, "Run Javascript", dtos[1].RunLabel)
	require.Equal(t, []string{".rb"}, dtos[2].Extensions)
}

func TestFormatLanguages_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf).FormatLanguages(FromCatalog(catalog.Options())))

	out := ansi.Strip(buf.String())
	require.Contains(t, out, "LANGUAGE")
	require.Contains(t, out, "python (default)")
	require.Contains(t, out, "JavaScript")
	require.Contains(t, out, ".js .mjs .cjs")
}

func TestFormatJSON_Languages(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf).FormatJSON(FromCatalog(catalog.Options())))

	var got []LanguageDTO
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 3)
	require.Equal(t, "ruby", got[2].ID)
}

func TestFormatRuns(t *testing.T) {
	runs := []*history.Run{{
		GUID:      "r-1",
		Language:  "python",
		CodeHash:  "0123456789abcdef",
		CodeBytes: 42,
		Status:    history.StatusOK,
		CacheHit:  true,
		Duration:  1500 * time.Millisecond,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}

	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf).FormatRuns(FromRuns(runs)))

	out := ansi.Strip(buf.String())
	require.Contains(t, out, "ok (cached)")
	require.Contains(t, out, "1.5s")
	require.Contains(t, out, "0123456789ab")
	require.NotContains(t, out, "0123456789abc")
}

func TestFormatRuns_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf).FormatRuns(nil))
	require.Equal(t, "No runs recorded.\n", buf.String())
}
