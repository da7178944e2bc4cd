package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/polypad/internal/app"
	"github.com/zjrosen/polypad/internal/config"
	"github.com/zjrosen/polypad/internal/execution"
	"github.com/zjrosen/polypad/internal/log"
	"github.com/zjrosen/polypad/internal/paths"
	"github.com/zjrosen/polypad/internal/tracing"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in the editing panes.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var (
	version   = "dev"
	cfgFile   string
	cfg       config.Config
	debugFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "polypad",
	Short: "A terminal playground for markup, style and scripts",
	Long: `polypad edits an HTML fragment, a stylesheet and a script side by side,
previews the composed page and runs the script through an execution service.

Start the execution service with 'polypad serve' in another terminal.`,
	Version: version,
	RunE:    runApp,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/polypad/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"write debug logs (also POLYPAD_DEBUG=1; POLYPAD_LOG_LEVEL filters)")
	rootCmd.PersistentFlags().String("endpoint", "",
		"execution service endpoint")

	rootCmd.Flags().StringP("language", "l", "", "initial script language")
	rootCmd.Flags().String("theme", "", "color theme: dark or light")
	rootCmd.Flags().String("watch-markup", "", "file that feeds the HTML pane")
	rootCmd.Flags().String("watch-style", "", "file that feeds the CSS pane")
	rootCmd.Flags().String("watch-script", "", "file that feeds the script pane")
}

// flagBindings maps config keys to the flags that override them.
var flagBindings = map[string]string{
	"execution.endpoint": "endpoint",
	"editor.language":    "language",
	"editor.theme":       "theme",
	"watch.markup":       "watch-markup",
	"watch.style":        "watch-style",
	"watch.script":       "watch-script",
}

func bindFlags() {
	for key, name := range flagBindings {
		flag := rootCmd.Flags().Lookup(name)
		if flag == nil {
			flag = rootCmd.PersistentFlags().Lookup(name)
		}
		_ = viper.BindPFlag(key, flag)
	}
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("editor.theme", defaults.Editor.Theme)
	viper.SetDefault("editor.tab_size", defaults.Editor.TabSize)
	viper.SetDefault("editor.language", defaults.Editor.Language)
	viper.SetDefault("layout.settle_delay", defaults.Layout.SettleDelay)
	viper.SetDefault("layout.transition_duration", defaults.Layout.TransitionDuration)
	viper.SetDefault("execution.endpoint", defaults.Execution.Endpoint)
	viper.SetDefault("execution.request_timeout", defaults.Execution.RequestTimeout)
	viper.SetDefault("watch.debounce", defaults.Watch.Debounce)
	viper.SetDefault("server.addr", defaults.Server.Addr)
	viper.SetDefault("server.run_timeout", defaults.Server.RunTimeout)
	viper.SetDefault("server.javascript_engine", defaults.Server.JavaScriptEngine)
	viper.SetDefault("server.result_cache_ttl", defaults.Server.ResultCacheTTL)
	viper.SetDefault("server.max_code_bytes", defaults.Server.MaxCodeBytes)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)
	bindFlags()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .polypad/config.yaml (current directory)
		// 2. ~/.config/polypad/config.yaml (user config)
		if _, err := os.Stat(paths.ProjectConfigFile()); err == nil {
			viper.SetConfigFile(paths.ProjectConfigFile())
		} else {
			viper.AddConfigPath(paths.UserConfigDir())
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create default at .polypad/config.yaml
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			defaultPath := paths.ProjectConfigFile()
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	cfg = config.Config{}
	_ = viper.Unmarshal(&cfg)
}

// initLogging enables the debug log when requested by flag or environment.
// The returned cleanup is never nil.
func initLogging(prefix string) (func(), error) {
	if os.Getenv("POLYPAD_DEBUG") == "" && !debugFlag {
		return func() {}, nil
	}
	logPath := os.Getenv("POLYPAD_LOG")
	if logPath == "" {
		logPath = "debug.log"
	}
	cleanup, err := log.InitWithTeaLog(logPath, prefix)
	if err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}
	if level := os.Getenv("POLYPAD_LOG_LEVEL"); level != "" {
		log.SetMinLevel(log.ParseLevel(level))
	}
	log.Info(log.CatConfig, "polypad starting", "version", version, "config", viper.ConfigFileUsed(), "logPath", logPath)
	return cleanup, nil
}

// initTracing installs the global tracer provider for this process. The
// returned shutdown flushes spans and is never nil.
func initTracing() (*tracing.Provider, func(), error) {
	if err := config.ValidateTracing(cfg.Tracing); err != nil {
		return nil, nil, fmt.Errorf("invalid tracing configuration: %w", err)
	}
	provider, err := tracing.NewProvider(config.TracingWithDefaults(cfg.Tracing))
	if err != nil {
		return nil, nil, fmt.Errorf("initializing tracing: %w", err)
	}
	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			log.ErrorErr(log.CatTrace, "tracing shutdown failed", err)
		}
	}
	return provider, shutdown, nil
}

// newExecutor builds the client used by the TUI and by `polypad run`.
func newExecutor(provider *tracing.Provider) *execution.Client {
	return execution.NewClient(cfg.Execution.Endpoint,
		execution.WithTimeout(cfg.Execution.RequestTimeout),
		execution.WithTracer(provider.Tracer()),
	)
}

func runApp(_ *cobra.Command, _ []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cleanupLog, err := initLogging("polypad")
	if err != nil {
		return err
	}
	defer cleanupLog()

	provider, shutdownTracing, err := initTracing()
	if err != nil {
		return err
	}
	defer shutdownTracing()

	zone.NewGlobal()

	// Store the config file path for saving theme changes
	configFilePath := viper.ConfigFileUsed()
	if configFilePath == "" {
		configFilePath = paths.ProjectConfigFile()
	}
	if abs, err := filepath.Abs(configFilePath); err == nil {
		configFilePath = abs
	}

	model, err := app.New(app.Options{
		Executor:   newExecutor(provider),
		Config:     cfg,
		ConfigPath: configFilePath,
	})
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	p := tea.NewProgram(
		&model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err = p.Run()

	// Clean up watcher, coordinator and listeners
	if closeErr := model.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
