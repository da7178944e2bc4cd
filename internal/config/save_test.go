package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveTheme_PreservesComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	require.NoError(t, SaveTheme(path, "light"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	require.Contains(t, content, "# Polypad Configuration")
	require.Contains(t, content, "theme: light")
	require.Contains(t, content, "ctrl+t toggles")
	require.Contains(t, content, "settle_delay: 350ms")

	cfg := loadConfigFromYAML(t, content)
	require.Equal(t, "light", cfg.Editor.Theme)
	require.Equal(t, "python", cfg.Editor.Language)
}

func TestSaveTheme_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	require.NoError(t, SaveTheme(path, "dark"))

	cfg := loadConfigFromYAML(t, readFile(t, path))
	require.Equal(t, "dark", cfg.Editor.Theme)
}

func TestSaveTheme_AddsEditorSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("# mine\nserver:\n  addr: 127.0.0.1:9000\n"), 0o600))

	require.NoError(t, SaveTheme(path, "light"))

	content := readFile(t, path)
	require.Contains(t, content, "# mine")
	cfg := loadConfigFromYAML(t, content)
	require.Equal(t, "light", cfg.Editor.Theme)
	require.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestSaveTheme_RejectsUnknownTheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.Error(t, SaveTheme(path, "solarized"))
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestSaveTheme_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("editor: [unclosed"), 0o600))

	err := SaveTheme(path, "light")
	require.Error(t, err)
	require.Contains(t, err.Error(), "parsing config")
}

func TestSaveTheme_TopLevelNotMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- a\n- b\n"), 0o600))

	require.Error(t, SaveTheme(path, "light"))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
