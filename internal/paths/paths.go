// Package paths provides path resolution utilities.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// AppName names the per-user and per-project state directories.
const AppName = "polypad"

// ProjectDirName is the project-local state directory, e.g. ./.polypad.
const ProjectDirName = ".polypad"

// UserConfigDir returns ~/.config/polypad, or an empty string if the home
// directory is unavailable.
func UserConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", AppName)
}

// ProjectConfigFile is the config file consulted before the user config.
func ProjectConfigFile() string {
	return filepath.Join(ProjectDirName, "config.yaml")
}

// DefaultHistoryPath returns the run history database under the user config
// directory, or an empty string if the home directory is unavailable.
func DefaultHistoryPath() string {
	dir := UserConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "history.db")
}

// DefaultTracesPath returns the JSONL trace file under the user config
// directory, or an empty string if the home directory is unavailable.
func DefaultTracesPath() string {
	dir := UserConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "traces", "traces.jsonl")
}

// Expand resolves a user-supplied path:
//   - "" -> ""
//   - "~" and "~/x" -> the home directory and paths under it
//   - anything else -> cleaned, left relative if it was relative
//
// If the home directory cannot be determined, "~" paths are returned cleaned
// but otherwise unchanged.
func Expand(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Clean(path)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Clean(path)
}
