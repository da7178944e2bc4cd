package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/polypad/internal/config"
	"github.com/zjrosen/polypad/internal/history"
	"github.com/zjrosen/polypad/internal/infrastructure/sqlite"
	"github.com/zjrosen/polypad/internal/log"
	"github.com/zjrosen/polypad/internal/runner"
	"github.com/zjrosen/polypad/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the code execution service",
	Long: `Run the HTTP service the editor sends scripts to.

The service listens on the configured address (default: 127.0.0.1:8000) and
exposes:
  POST /api/v1/editor/execute    run {"code", "language"}
  GET  /api/v1/editor/languages  supported languages
  GET  /api/v1/editor/runs       recent run history
  GET  /health

Python and Ruby run as subprocesses and need their interpreters on PATH.
JavaScript runs in-process unless server.javascript_engine is "node".

Example:
  polypad serve                       # Start on the configured address
  polypad serve --addr 127.0.0.1:0    # Pick a free port
  polypad serve --no-history          # Do not record runs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "address to listen on (overrides config)")
	serveCmd.Flags().String("history", "", "run history database (overrides config)")
	serveCmd.Flags().Bool("no-history", false, "do not record runs")
	serveCmd.Flags().String("engine", "", "javascript engine: goja or node (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if path, _ := cmd.Flags().GetString("history"); path != "" {
		cfg.Server.HistoryPath = path
	}
	if engine, _ := cmd.Flags().GetString("engine"); engine != "" {
		cfg.Server.JavaScriptEngine = engine
	}
	if err := config.ValidateServer(cfg.Server); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	cleanupLog, err := initLogging("polypad-serve")
	if err != nil {
		return err
	}
	defer cleanupLog()

	_, shutdownTracing, err := initTracing()
	if err != nil {
		return err
	}
	defer shutdownTracing()

	var runs history.Repository
	if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory {
		db, err := sqlite.NewDB(cfg.Server.ResolvedHistoryPath())
		if err != nil {
			return fmt.Errorf("opening run history: %w", err)
		}
		defer func() { _ = db.Close() }()
		runs = db.Runs()
	}

	gin.SetMode(gin.ReleaseMode)
	srv, err := server.NewServer(server.Config{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Handler: server.HandlerConfig{
			Runner:       runner.NewDefault(cfg.Server.RunTimeout, cfg.Server.JavaScriptEngine),
			Runs:         runs,
			ResultTTL:    cfg.Server.ResultCacheTTL,
			MaxCodeBytes: cfg.Server.MaxCodeBytes,
		},
		// A run is bounded by RunTimeout; leave room to write the reply.
		WriteTimeout: cfg.Server.RunTimeout + 30*time.Second,
	})
	if err != nil {
		return fmt.Errorf("creating execution service: %w", err)
	}

	// Handle shutdown signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "polypad execution service listening on %s\n", srv.URL())
	if used := viper.ConfigFileUsed(); used != "" {
		_, _ = fmt.Fprintf(out, "config: %s\n", used)
	}
	_, _ = fmt.Fprintln(out, "Press Ctrl+C to stop")

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		_, _ = fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.ErrorErr(log.CatServer, "error stopping execution service", err)
	}

	_, _ = fmt.Fprintln(out, "Execution service stopped")
	return nil
}
