// Package config provides configuration types and defaults for polypad.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zjrosen/polypad/internal/catalog"
	"github.com/zjrosen/polypad/internal/execution"
	"github.com/zjrosen/polypad/internal/layout"
	"github.com/zjrosen/polypad/internal/log"
	"github.com/zjrosen/polypad/internal/paths"
	"github.com/zjrosen/polypad/internal/runner"
	"github.com/zjrosen/polypad/internal/tracing"
)

// Config holds all configuration options for polypad.
type Config struct {
	Editor    EditorConfig    `mapstructure:"editor"`
	Layout    LayoutConfig    `mapstructure:"layout"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Server    ServerConfig    `mapstructure:"server"`
	Tracing   tracing.Config  `mapstructure:"tracing"`
}

// EditorConfig holds the initial editing session settings.
type EditorConfig struct {
	Theme    string `mapstructure:"theme"`    // "dark" (default) or "light"
	TabSize  int    `mapstructure:"tab_size"` // spaces inserted for a tab in the panes
	Language string `mapstructure:"language"` // initial script language
}

// LayoutConfig controls relayout of the editing surfaces.
type LayoutConfig struct {
	// SettleDelay is how long the coordinator waits after the last
	// invalidation before recomputing surface geometry.
	SettleDelay time.Duration `mapstructure:"settle_delay"`

	// TransitionDuration is the preview expand/collapse animation length.
	// SettleDelay must not be shorter.
	TransitionDuration time.Duration `mapstructure:"transition_duration"`
}

// ExecutionConfig configures the client side of the execution service.
type ExecutionConfig struct {
	Endpoint string `mapstructure:"endpoint"`

	// RequestTimeout bounds a single run request. Zero means no client
	// side limit.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// WatchConfig names files that feed the editing buffers.
type WatchConfig struct {
	Markup   string        `mapstructure:"markup"`
	Style    string        `mapstructure:"style"`
	Script   string        `mapstructure:"script"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// Enabled reports whether any file is being watched.
func (w WatchConfig) Enabled() bool {
	return w.Markup != "" || w.Style != "" || w.Script != ""
}

// ServerConfig configures `polypad serve`.
type ServerConfig struct {
	Addr             string        `mapstructure:"addr"`
	AllowedOrigins   []string      `mapstructure:"allowed_origins"` // empty allows every origin
	RunTimeout       time.Duration `mapstructure:"run_timeout"`
	JavaScriptEngine string        `mapstructure:"javascript_engine"` // "goja" (default) or "node"
	ResultCacheTTL   time.Duration `mapstructure:"result_cache_ttl"`  // 0 disables the cache
	HistoryPath      string        `mapstructure:"history_path"`      // empty uses the user config dir
	MaxCodeBytes     int           `mapstructure:"max_code_bytes"`
}

// ResolvedHistoryPath returns the history database location with "~"
// expanded and the default applied.
func (s ServerConfig) ResolvedHistoryPath() string {
	if s.HistoryPath == "" {
		return paths.DefaultHistoryPath()
	}
	return paths.Expand(s.HistoryPath)
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	tr := tracing.DefaultConfig()
	tr.FilePath = "" // derived from the user config dir at runtime

	return Config{
		Editor: EditorConfig{
			Theme:    "dark",
			TabSize:  4,
			Language: string(catalog.Default().ID),
		},
		Layout: LayoutConfig{
			SettleDelay:        layout.DefaultSettleDelay,
			TransitionDuration: layout.DefaultTransition,
		},
		Execution: ExecutionConfig{
			Endpoint:       execution.DefaultEndpoint,
			RequestTimeout: 0,
		},
		Watch: WatchConfig{
			Debounce: 150 * time.Millisecond,
		},
		Server: ServerConfig{
			Addr:             "127.0.0.1:8000",
			RunTimeout:       runner.DefaultTimeout,
			JavaScriptEngine: runner.EngineGoja,
			ResultCacheTTL:   0,
			MaxCodeBytes:     256 << 10,
		},
		Tracing: tr,
	}
}

// Validate runs every section validator and returns the first error.
func (c Config) Validate() error {
	if err := ValidateEditor(c.Editor); err != nil {
		return err
	}
	if err := ValidateLayout(c.Layout); err != nil {
		return err
	}
	if err := ValidateExecution(c.Execution); err != nil {
		return err
	}
	if err := ValidateServer(c.Server); err != nil {
		return err
	}
	return ValidateTracing(c.Tracing)
}

// ValidateEditor checks editor configuration for errors.
// Empty values fall back to defaults and are accepted.
func ValidateEditor(editor EditorConfig) error {
	switch editor.Theme {
	case "", "dark", "light":
	default:
		return fmt.Errorf("editor.theme must be \"dark\" or \"light\", got %q", editor.Theme)
	}
	if editor.TabSize < 0 || editor.TabSize > 16 {
		return fmt.Errorf("editor.tab_size must be between 0 and 16, got %d", editor.TabSize)
	}
	if editor.Language != "" && !catalog.Valid(catalog.LanguageID(strings.ToLower(editor.Language))) {
		return fmt.Errorf("editor.language %q is not one of %v", editor.Language, catalog.IDs())
	}
	return nil
}

// ValidateLayout checks layout timing. A relayout that fires before the
// preview transition finishes measures the surfaces mid-animation, so the
// settle delay may not be shorter than the transition. A zero settle delay
// selects layout.DefaultSettleDelay, and that value is what gets checked.
func ValidateLayout(l LayoutConfig) error {
	if l.SettleDelay < 0 || l.TransitionDuration < 0 {
		return fmt.Errorf("layout durations must not be negative")
	}
	settle := l.SettleDelay
	if settle == 0 {
		settle = layout.DefaultSettleDelay
	}
	if settle < l.TransitionDuration {
		return fmt.Errorf("layout.settle_delay (%s) must not be shorter than layout.transition_duration (%s)",
			settle, l.TransitionDuration)
	}
	return nil
}

// ValidateExecution checks execution client configuration for errors.
func ValidateExecution(e ExecutionConfig) error {
	if e.Endpoint != "" && !strings.HasPrefix(e.Endpoint, "http://") && !strings.HasPrefix(e.Endpoint, "https://") {
		return fmt.Errorf("execution.endpoint must be an http or https URL, got %q", e.Endpoint)
	}
	if e.RequestTimeout < 0 {
		return fmt.Errorf("execution.request_timeout must not be negative, got %s", e.RequestTimeout)
	}
	return nil
}

// ValidateServer checks execution service configuration for errors.
func ValidateServer(s ServerConfig) error {
	switch s.JavaScriptEngine {
	case "", runner.EngineGoja, runner.EngineNode:
	default:
		return fmt.Errorf("server.javascript_engine must be %q or %q, got %q",
			runner.EngineGoja, runner.EngineNode, s.JavaScriptEngine)
	}
	if s.RunTimeout < 0 {
		return fmt.Errorf("server.run_timeout must not be negative, got %s", s.RunTimeout)
	}
	if s.ResultCacheTTL < 0 {
		return fmt.Errorf("server.result_cache_ttl must not be negative, got %s", s.ResultCacheTTL)
	}
	if s.MaxCodeBytes < 0 {
		return fmt.Errorf("server.max_code_bytes must not be negative, got %d", s.MaxCodeBytes)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tr tracing.Config) error {
	if tr.SampleRate < 0.0 || tr.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tr.SampleRate)
	}

	if tr.Exporter != "" {
		switch tr.Exporter {
		case tracing.ExporterNone, tracing.ExporterFile, tracing.ExporterStdout, tracing.ExporterOTLP:
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tr.Exporter)
		}
	}

	// Path requirements only matter once tracing is on.
	if tr.Enabled && tr.Exporter == tracing.ExporterOTLP && tr.OTLPEndpoint == "" {
		return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
	}

	return nil
}

// TracingWithDefaults fills the file exporter path from the user config
// dir when none is configured.
func TracingWithDefaults(tr tracing.Config) tracing.Config {
	if tr.Exporter == tracing.ExporterFile {
		if tr.FilePath == "" {
			tr.FilePath = paths.DefaultTracesPath()
		} else {
			tr.FilePath = paths.Expand(tr.FilePath)
		}
	}
	if tr.ServiceName == "" {
		tr.ServiceName = tracing.DefaultServiceName
	}
	return tr
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Polypad Configuration

# Editing session
editor:
  theme: dark         # "dark" (default) or "light"; ctrl+t toggles and saves it here
  tab_size: 4         # Spaces inserted for a tab in the editing panes
  language: python    # Initial script language: python, javascript, ruby

# Relayout of the editing panes after the preview area resizes
layout:
  settle_delay: 350ms         # Quiet period before panes are re-measured (0 = default)
  transition_duration: 300ms  # Preview expand/collapse animation; settle_delay must not be shorter

# Execution service used by Run (ctrl+r)
execution:
  endpoint: http://127.0.0.1:8000/api/v1/editor/execute
  # request_timeout: 10s  # Client-side limit per run (default: none)

# Follow files edited elsewhere and push their content into the panes
# watch:
#   markup: ./index.html
#   style: ./style.css
#   script: ./main.py
#   debounce: 150ms

# Execution service (polypad serve)
server:
  addr: 127.0.0.1:8000
  # allowed_origins:             # CORS origins (default: any)
  #   - http://localhost:3000
  run_timeout: 5s                # Wall-clock limit per program
  javascript_engine: goja        # "goja" (in-process, default) or "node"
  result_cache_ttl: 0s           # Reuse results for identical programs (0 disables)
  # history_path: ~/.config/polypad/history.db
  max_code_bytes: 262144

# Distributed tracing configuration
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/polypad/traces/traces.jsonl  # Output file for file exporter
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
